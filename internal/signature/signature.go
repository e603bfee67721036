// Package signature computes the keyed hash used to authenticate RemoteAPI
// requests.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign computes the request signature for an application key/secret pair.
// The secret keys an HMAC-SHA256 over the key, hex-encoded lowercase. The
// same pair always produces the same signature.
func Sign(key, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

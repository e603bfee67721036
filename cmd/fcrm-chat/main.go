package main

import "github.com/ipchi/fcrm-chat-go/internal/cli"

func main() {
	cli.Execute()
}

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	registerName    string
	registerEmail   string
	registerPhone   string
	registerExtra   []string
	registerChannel string
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register this device with the chat backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		defer client.Dispose()

		if err := client.Initialize(cmd.Context()); err != nil {
			return err
		}

		fields := map[string]string{}
		if registerName != "" {
			fields["name"] = registerName
		}
		if registerEmail != "" {
			fields["email"] = registerEmail
		}
		if registerPhone != "" {
			fields["phone"] = registerPhone
		}
		for _, kv := range registerExtra {
			key, value, ok := strings.Cut(kv, "=")
			if !ok {
				return fmt.Errorf("invalid --field %q, expected key=value", kv)
			}
			fields[key] = value
		}

		history, err := client.Register(cmd.Context(), fields, registerChannel)
		if err != nil {
			return err
		}

		state := client.State()
		fmt.Printf("Registered. browser_key=%s chat_id=%d\n", state.BrowserKey, state.ChatID)
		if len(history) > 0 {
			fmt.Printf("%d message(s) in history; run 'fcrm-chat messages' to view them.\n", len(history))
		}
		return nil
	},
}

func init() {
	registerCmd.Flags().StringVar(&registerName, "name", "", "Visitor name")
	registerCmd.Flags().StringVar(&registerEmail, "email", "", "Visitor email")
	registerCmd.Flags().StringVar(&registerPhone, "phone", "", "Visitor phone")
	registerCmd.Flags().StringArrayVar(&registerExtra, "field", nil, "Additional field as key=value (repeatable)")
	registerCmd.Flags().StringVar(&registerChannel, "channel", "", "Channel hint sent to the backend")
	rootCmd.AddCommand(registerCmd)
}

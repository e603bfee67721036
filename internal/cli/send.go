package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var sendChannel string

var sendCmd = &cobra.Command{
	Use:   "send <text>...",
	Short: "Send a text message",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		defer client.Dispose()

		if err := client.Initialize(cmd.Context()); err != nil {
			return err
		}

		text := strings.Join(args, " ")
		res, err := client.SendMessage(cmd.Context(), text, sendChannel, nil)
		if err != nil {
			return err
		}

		fmt.Printf("Sent message %d on chat %d\n", res.MessageID, res.ChatID)
		if res.BotReply != nil {
			fmt.Printf("Bot: %s\n", res.BotReply.Message)
		}
		return nil
	},
}

func init() {
	sendCmd.Flags().StringVar(&sendChannel, "channel", "", "Channel hint sent to the backend")
	rootCmd.AddCommand(sendCmd)
}

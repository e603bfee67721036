package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ipchi/fcrm-chat-go/internal/api"
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Stream realtime events until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		defer client.Dispose()

		if err := client.Initialize(cmd.Context()); err != nil {
			return err
		}

		unsubMsg := client.OnMessage(func(m api.Message) {
			fmt.Println(renderMessage(m))
		})
		defer unsubMsg()

		unsubConn := client.OnConnectionChange(func(connected bool) {
			if connected {
				fmt.Println(systemStyle.Render("-- connected --"))
			} else {
				fmt.Println(systemStyle.Render("-- disconnected --"))
			}
		})
		defer unsubConn()

		unsubTyping := client.OnTyping(func(isTyping bool) {
			if isTyping {
				fmt.Println(systemStyle.Render("-- agent is typing --"))
			}
		})
		defer unsubTyping()

		fmt.Println("Listening for events, Ctrl-C to stop.")
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		select {
		case <-sig:
		case <-cmd.Context().Done():
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listenCmd)
}

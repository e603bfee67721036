package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget the local device identity and conversation",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		defer client.Dispose()

		if err := client.Reset(); err != nil {
			return err
		}
		fmt.Println("Local chat identity cleared. Register again to start a new conversation.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)
}

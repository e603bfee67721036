package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ipchi/fcrm-chat-go/internal/api"
	"github.com/ipchi/fcrm-chat-go/sdk"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Fetch and print the remote chat configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings()
		if err != nil {
			return err
		}

		// Talk to the API directly so an inactive application still prints
		// its configuration instead of failing initialization.
		remote := api.New(api.Config{
			BaseURL:      s.BaseURL,
			CompanyToken: s.CompanyToken,
			AppKey:       s.AppKey,
			AppSecret:    s.AppSecret,
			Timeout:      sdk.DefaultTimeout,
		})
		cfg, err := remote.FetchConfig(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("Name:              %s\n", cfg.Name)
		fmt.Printf("Active:            %t\n", cfg.IsActive)
		fmt.Printf("Realtime endpoint: %s\n", cfg.RealtimeEndpoint)
		if len(cfg.RequiredFields) > 0 {
			fmt.Println("Required fields:")
			for _, f := range cfg.RequiredFields {
				fmt.Printf("  %-12s %s\n", f.Name, f.Label)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}

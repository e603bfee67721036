// Package cli implements the fcrm-chat command line client, a thin terminal
// frontend over the SDK used for manual testing against a live backend.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ipchi/fcrm-chat-go/pkg/logger"
	"github.com/ipchi/fcrm-chat-go/sdk"
)

var (
	verbose    bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "fcrm-chat",
	Short: "Terminal client for the FCRM mobile chat backend",
	Long: `fcrm-chat is a terminal client for the FCRM mobile chat backend.

It registers a device, sends and lists messages, and can listen for
realtime events. Configure it with ~/.fcrm-chat/config.yaml or
FCRM_CHAT_* environment variables.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logger.SetLevel(logger.LevelDebug)
		}
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Settings file (default ~/.fcrm-chat/config.yaml)")
}

// loadSettings resolves the settings path and loads it.
func loadSettings() (Settings, error) {
	path := configPath
	if path == "" {
		var err error
		path, err = DefaultSettingsPath()
		if err != nil {
			return Settings{}, err
		}
	}
	s, err := LoadSettings(path)
	if err != nil {
		return Settings{}, err
	}
	if err := s.validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// newClient builds an SDK client from the loaded settings.
func newClient() (*sdk.Client, error) {
	s, err := loadSettings()
	if err != nil {
		return nil, err
	}
	return sdk.New(s.options(verbose))
}

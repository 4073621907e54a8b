package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfg    *Config
	client *Client
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg = DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "tacmap",
		Short: "CLI tool for the tactical map sync server",
		Long: `tacmap is a CLI tool for the tactical map sync server.

It covers account management (register, login, TOTP), marker operations
over the REST API, and live streaming of marker events from the real-time
channel.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.LoadToken(); err != nil {
				return err
			}

			client = NewClient(cfg.ServerURL, cfg.Token)
			client.SetVerbose(cfg.Verbose, cmd.ErrOrStderr())
			return nil
		},
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "REST server URL (env: TACMAP_SERVER)")
	rootCmd.PersistentFlags().StringVar(&cfg.RealtimeURL, "realtime", cfg.RealtimeURL, "Real-time websocket URL (env: TACMAP_REALTIME)")
	rootCmd.PersistentFlags().StringVar(&cfg.Token, "token", cfg.Token, "Session token (env: TACMAP_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&cfg.TokenFile, "token-file", cfg.TokenFile, "Token file path (env: TACMAP_TOKEN_FILE)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Verbose output")

	rootCmd.AddCommand(newHealthCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newRegisterCmd())
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newWhoamiCmd())
	rootCmd.AddCommand(newRecoverCmd())
	rootCmd.AddCommand(newTOTPCmd())
	rootCmd.AddCommand(newMarkersCmd())
	rootCmd.AddCommand(newWatchCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

package cli

import (
	"github.com/fintrack/fintrack/internal/config"
	"github.com/spf13/cobra"
)

var (
	configPath string
	cfg        config.Application
)

// Execute runs the fintrack command tree.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "fintrack",
		Short:         "Onboarding service of the personal finance tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg = loaded
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd)
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to the YAML configuration")

	root.AddCommand(serveCmd(), migrateCmd(), draftCmd(), tokenCmd())
	return root
}

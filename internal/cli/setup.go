package cli

import (
	"errors"

	"github.com/raine/rapidlisting/internal/config"
	"github.com/spf13/cobra"
)

func newSetupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Write the configuration file interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !config.IsInteractiveTerminal() {
				return errors.New("setup needs an interactive terminal")
			}
			if !config.RunSetupWizard(cmd.Context()) {
				config.WaitOnWindows()
				return errors.New("setup was not completed")
			}
			return nil
		},
	}
}

package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/raine/rapidlisting/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the rapidlisting command tree.
func NewRootCmd() *cobra.Command {
	var logFile string

	cmd := &cobra.Command{
		Use:   "rapidlisting",
		Short: "Listing generator for eBay, Facebook Marketplace and Craigslist",
		Long: `Rapid Listing turns a few item details and product photos into ready to
paste titles and descriptions for eBay, Facebook Marketplace and Craigslist.

It serves a web form and an optional Telegram bot, and can build prompts or
read text from photos straight from the command line.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env and the user config file if present
			config.LoadEnvFile()
			return setupLogging(cmd.ErrOrStderr(), logFile)
		},
	}

	cmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write logs to this file")

	cmd.AddCommand(
		newServeCmd(),
		newPromptCmd(),
		newExtractCmd(),
		newSetupCmd(),
	)

	return cmd
}

func setupLogging(stderr io.Writer, logFile string) error {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := config.LogLevelFromEnv()
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(level)

	consoleWriter := zerolog.ConsoleWriter{Out: stderr}
	if logFile == "" {
		log.Logger = log.Output(consoleWriter)
		return nil
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	fileWriter := zerolog.ConsoleWriter{Out: f, NoColor: true}
	log.Logger = log.Output(io.MultiWriter(consoleWriter, fileWriter))
	log.Debug().Str("logFile", logFile).Msg("logging to file")
	return nil
}

package cli

import (
	"fmt"
	"os"

	"github.com/raine/rapidlisting/internal/imaging"
	"github.com/raine/rapidlisting/internal/llm"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newExtractCmd() *cobra.Command {
	var noCache bool

	cmd := &cobra.Command{
		Use:   "extract <image>",
		Short: "Read the visible text from a product photo",
		Long: `Sends a photo to Gemini and prints the text found on it, such as part
numbers, UPCs or model names. Results are cached in CACHE_DB_PATH, so the
same photo is only sent once.`,
		Example: `  rapidlisting extract label.jpg`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read image: %w", err)
			}
			img, err := imaging.Normalize(data)
			if err != nil {
				return err
			}
			log.Debug().
				Str("file", args[0]).
				Str("mimeType", img.MIMEType).
				Int("width", img.Width).
				Int("height", img.Height).
				Msg("image normalized")

			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			gemini, err := llm.NewGemini(ctx, llm.GeminiConfig{
				APIKey:  cfg.GeminiAPIKey,
				Model:   cfg.GeminiModel,
				Timeout: cfg.GeminiTimeout,
			})
			if err != nil {
				return err
			}

			var extractor llm.Extractor = gemini
			if !noCache {
				store, err := openCache(cfg.CacheDBPath)
				if err != nil {
					return err
				}
				defer store.Close()
				extractor = llm.NewCachedExtractor(gemini, store, gemini.Model())
			}

			text, err := extractor.ExtractText(ctx, img.Data, img.MIMEType)
			if err != nil {
				return fmt.Errorf("failed to extract text: %w", err)
			}
			if text == "" {
				log.Info().Msg("no text found in image")
				return nil
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
			return err
		},
	}

	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Skip the extraction cache")

	return cmd
}

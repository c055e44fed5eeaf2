package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/raine/rapidlisting/internal/listing"
	"github.com/raine/rapidlisting/internal/llm"
	"github.com/raine/rapidlisting/internal/session"
	"github.com/spf13/cobra"
)

var headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))

func newPromptCmd() *cobra.Command {
	var (
		mode     string
		sets     []string
		generate bool
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Print the listing prompt for an item, or generate the listings",
		Long: `Builds the prompt that would be sent to Gemini for an item described with
--set flags. Field keys are the same as in the JSON API (make, partName,
itemName, upc, ...).

With --generate the prompt is sent to Gemini and the six listing texts are
printed instead. This needs GEMINI_API_KEY.`,
		Example: `  rapidlisting prompt --mode auto --set make=Toyota --set model=Camry --set partName=Headlight
  rapidlisting prompt --mode general --set itemName="Nintendo Switch" --generate --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := parseModeFlag(mode)
			if err != nil {
				return err
			}
			values, err := parseAssignments(sets)
			if err != nil {
				return err
			}

			s := session.New("cli", time.Now())
			if err := s.SetMode(m); err != nil {
				return err
			}
			if err := s.SetFields(values); err != nil {
				return err
			}

			if !generate {
				_, err := fmt.Fprint(cmd.OutOrStdout(), listing.BuildPrompt(s.Item()))
				return err
			}

			if missing := listing.MissingFields(s.Item()); len(missing) > 0 {
				return fmt.Errorf("%w: %s", session.ErrNotSubmittable, joinFields(missing))
			}

			cfg, err := loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			gemini, err := llm.NewGemini(cmd.Context(), llm.GeminiConfig{
				APIKey:  cfg.GeminiAPIKey,
				Model:   cfg.GeminiModel,
				Timeout: cfg.GeminiTimeout,
			})
			if err != nil {
				return err
			}

			result, err := session.NewService(nil, gemini).Generate(cmd.Context(), s)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			return printResult(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", "auto", "Item mode: auto or general")
	cmd.Flags().StringArrayVarP(&sets, "set", "s", nil, "Set a field, as key=value (repeatable)")
	cmd.Flags().BoolVarP(&generate, "generate", "g", false, "Send the prompt to Gemini and print the listings")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print generated listings as JSON")

	return cmd
}

func parseModeFlag(s string) (listing.Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "auto", "auto-parts", "autoparts", "auto_parts":
		return listing.ModeAutoParts, nil
	case "general", "general-items", "generalitems", "general_items":
		return listing.ModeGeneralItems, nil
	}
	return listing.ParseMode(s)
}

// parseAssignments turns key=value flags into field values. A later flag for
// the same key wins.
func parseAssignments(sets []string) (map[listing.Field]string, error) {
	values := make(map[listing.Field]string, len(sets))
	for _, kv := range sets {
		key, value, ok := strings.Cut(kv, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q, expected key=value", kv)
		}
		values[listing.Field(key)] = value
	}
	return values, nil
}

func joinFields(fields []listing.Field) string {
	keys := make([]string, len(fields))
	for i, f := range fields {
		keys[i] = string(f)
	}
	return strings.Join(keys, ", ")
}

func printResult(w io.Writer, result *listing.Result) error {
	for i, f := range listing.ResultFields() {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		heading := headingStyle.Render(f.Platform + " " + f.Label)
		if _, err := fmt.Fprintf(w, "%s\n%s\n", heading, result.Get(f.Key)); err != nil {
			return err
		}
	}
	return nil
}

package bot

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/lithammer/dedent"
	"github.com/raine/rapidlisting/internal/listing"
)

func formatReplyText(text string, a ...any) string {
	return fmt.Sprintf(strings.TrimSpace(dedent.Dedent(text)), a...)
}

func parseCommand(s string) (string, []string) {
	parts := strings.Fields(s)
	if len(parts) == 0 {
		return "", nil
	}
	// Commands in groups may carry the bot name: /set@rapidbot
	command, _, _ := strings.Cut(parts[0], "@")
	return command, parts[1:]
}

// escapeMarkdown escapes special characters for Telegram Markdown V1
func escapeMarkdown(text string) string {
	text = strings.ReplaceAll(text, "*", "\\*")
	text = strings.ReplaceAll(text, "_", "\\_")
	text = strings.ReplaceAll(text, "`", "\\`")
	text = strings.ReplaceAll(text, "[", "\\[")
	return text
}

// normalizeFieldName lowercases and drops everything but letters and digits,
// so "Part Name", "part_name" and "partName" compare equal.
func normalizeFieldName(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// resolveField matches a user supplied name against the keys and labels of
// the item's fields.
func resolveField(item listing.Item, name string) (listing.FieldSpec, bool) {
	want := normalizeFieldName(name)
	if want == "" {
		return listing.FieldSpec{}, false
	}
	for _, spec := range item.Fields() {
		if normalizeFieldName(string(spec.Key)) == want || normalizeFieldName(spec.Label) == want {
			return spec, true
		}
	}
	// Short aliases for the common field names.
	aliases := map[string]listing.Field{
		"trim":    listing.FieldTrimEngine,
		"engine":  listing.FieldTrimEngine,
		"part":    listing.FieldPartName,
		"oem":     listing.FieldOEMNumber,
		"item":    listing.FieldItemName,
		"name":    listing.FieldItemName,
		"size":    listing.FieldSizeDimensions,
		"barcode": listing.FieldUPC,
		"ocr":     listing.FieldExtractedText,
		"text":    listing.FieldExtractedText,
	}
	if key, ok := aliases[want]; ok {
		for _, spec := range item.Fields() {
			if spec.Key == key {
				return spec, true
			}
		}
	}
	return listing.FieldSpec{}, false
}

// parseFieldAssignment splits "field: value" messages.
func parseFieldAssignment(text string) (name, value string, ok bool) {
	name, value, ok = strings.Cut(text, ":")
	if !ok {
		return "", "", false
	}
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsRune(name, '\n') {
		return "", "", false
	}
	return name, strings.TrimSpace(value), true
}

// matchCondition accepts condition labels case-insensitively.
func matchCondition(value string) (listing.Condition, bool) {
	for _, c := range listing.Conditions() {
		if strings.EqualFold(c.String(), strings.TrimSpace(value)) {
			return c, true
		}
	}
	return "", false
}

func fieldKeys(item listing.Item) string {
	specs := item.Fields()
	keys := make([]string, len(specs))
	for i, spec := range specs {
		keys[i] = "`" + string(spec.Key) + "`"
	}
	return strings.Join(keys, ", ")
}

// countNoun formats n with the noun, adding an "s" unless n is one.
func countNoun(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

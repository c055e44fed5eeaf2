package listing

import (
	"strings"

	"github.com/lithammer/dedent"
)

const (
	autoPartsHeading    = "Generate optimized listings for an auto part with the following details:"
	generalItemsHeading = "Generate optimized listings for a general item with the following details:"
)

const autoPartsInstructions = `
	Please create three optimized listings tailored for:
	1. eBay - Detailed, SEO-optimized with fitment info (years, make, model, trim/engine) and part numbers
	2. Facebook Marketplace - Casual, local buyer focused
	3. Craigslist - Simple, keyword-rich

	For pricing, suggest competitive prices based on condition and market research, and include the suggested price in each description.`

const generalItemsInstructions = `
	Please create three optimized listings tailored for:
	1. eBay - Detailed, SEO-optimized with brand, size and specifications
	2. Facebook Marketplace - Casual, local buyer focused
	3. Craigslist - Simple, keyword-rich

	For pricing, suggest competitive prices based on condition and market research, and include the suggested price in each description.`

// BuildPrompt renders the generation prompt for an item. Every field of the
// variant appears on its own "Label: value" line, empty values included, so
// the output depends only on the item.
func BuildPrompt(item Item) string {
	var heading, instructions string
	switch item.(type) {
	case AutoPartItem:
		heading, instructions = autoPartsHeading, autoPartsInstructions
	case GeneralItem:
		heading, instructions = generalItemsHeading, generalItemsInstructions
	default:
		return ""
	}

	var b strings.Builder
	b.WriteString(heading)
	b.WriteString("\n\n")
	for _, spec := range item.Fields() {
		v, _ := item.Get(spec.Key)
		b.WriteString(spec.Label)
		b.WriteString(": ")
		b.WriteString(v)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(strings.TrimSpace(dedent.Dedent(instructions)))
	return b.String()
}

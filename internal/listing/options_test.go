package listing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	years := opts.Years()
	require.Len(t, years, 36)
	assert.Equal(t, "2025", years[0])
	assert.Equal(t, "1990", years[35])

	assert.Contains(t, opts.Makes, "Mercedes-Benz")
	assert.Equal(t, "Other", opts.Makes[len(opts.Makes)-1])
	assert.Len(t, opts.AutoCategories, 11)
	assert.Contains(t, opts.Categories(ModeGeneralItems), "Video Games")
	assert.Contains(t, opts.Categories(ModeAutoParts), "Lighting & Lamps")
}

func TestModelsFor(t *testing.T) {
	opts := DefaultOptions()

	assert.Equal(t, []string{"3 Series", "5 Series", "X3", "X5", "M3", "M5"}, opts.ModelsFor("BMW"))
	assert.Contains(t, opts.ModelsFor("Toyota"), "4Runner")
	assert.Nil(t, opts.ModelsFor("Tesla"))
	assert.Nil(t, opts.ModelsFor(""))

	models := opts.ModelsFor("Honda")
	models[0] = "changed"
	assert.Equal(t, "Civic", opts.ModelsFor("Honda")[0])
}

func TestParseOptions_Invalid(t *testing.T) {
	_, err := ParseOptions([]byte("years: [1, 2"))
	assert.Error(t, err)

	_, err = ParseOptions([]byte("years:\n  newest: 2025\n  count: -1\n"))
	assert.Error(t, err)
}

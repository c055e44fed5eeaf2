package listing

import (
	_ "embed"
	"fmt"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed options.yaml
var optionsYAML []byte

// Options is the static reference data offered as form choices.
type Options struct {
	YearRange struct {
		Newest int `yaml:"newest"`
		Count  int `yaml:"count"`
	} `yaml:"years"`
	Makes             []string            `yaml:"makes"`
	AutoCategories    []string            `yaml:"auto_categories"`
	GeneralCategories []string            `yaml:"general_categories"`
	PopularModels     map[string][]string `yaml:"popular_models"`
}

// ParseOptions parses reference data in the embedded YAML format.
func ParseOptions(data []byte) (*Options, error) {
	var opts Options
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return nil, fmt.Errorf("failed to parse options: %w", err)
	}
	if opts.YearRange.Count < 0 {
		return nil, fmt.Errorf("invalid year count %d", opts.YearRange.Count)
	}
	return &opts, nil
}

var defaultOptions = sync.OnceValues(func() (*Options, error) {
	return ParseOptions(optionsYAML)
})

// DefaultOptions returns the built-in reference data.
func DefaultOptions() *Options {
	opts, err := defaultOptions()
	if err != nil {
		panic(err)
	}
	return opts
}

// Years lists model years from newest to oldest.
func (o *Options) Years() []string {
	years := make([]string, 0, o.YearRange.Count)
	for i := 0; i < o.YearRange.Count; i++ {
		years = append(years, strconv.Itoa(o.YearRange.Newest-i))
	}
	return years
}

// ModelsFor returns the popular models of a make, or nil when the make has
// no list and the model is free text.
func (o *Options) ModelsFor(vehicleMake string) []string {
	if vehicleMake == "" {
		return nil
	}
	models := o.PopularModels[vehicleMake]
	if len(models) == 0 {
		return nil
	}
	out := make([]string, len(models))
	copy(out, models)
	return out
}

// Categories returns the category choices for a mode.
func (o *Options) Categories(m Mode) []string {
	if m == ModeAutoParts {
		return o.AutoCategories
	}
	return o.GeneralCategories
}

package web

import (
	"github.com/raine/rapidlisting/internal/listing"
	"github.com/raine/rapidlisting/internal/session"
)

// Input kinds rendered by index.html.
const (
	kindText     = "text"
	kindSelect   = "select"
	kindTextarea = "textarea"
	kindModel    = "model"
	kindBarcode  = "barcode"
)

type formField struct {
	Key      listing.Field
	Label    string
	Value    string
	Kind     string
	Options  []string
	Required bool
}

type resultField struct {
	Key      listing.ResultField
	Platform string
	Label    string
	Value    string
	Copied   bool
}

type modeTab struct {
	Mode   listing.Mode
	Label  string
	Active bool
}

type pageData struct {
	Title       string
	Flash       string
	View        session.View
	Modes       []modeTab
	Fields      []formField
	Results     []resultField
	MaxImages   int
	CopyWindow  int64
	Missing     []string
	CanGenerate bool
}

// formFields describes the inputs for the active record.
func formFields(item listing.Item, opts *listing.Options) []formField {
	required := map[listing.Field]bool{}
	switch item.Mode() {
	case listing.ModeAutoParts:
		required[listing.FieldMake] = true
		required[listing.FieldPartName] = true
	case listing.ModeGeneralItems:
		required[listing.FieldItemName] = true
		required[listing.FieldUPC] = true
	}

	var vehicleMake string
	if part, ok := item.(listing.AutoPartItem); ok {
		vehicleMake = part.Make
	}

	specs := item.Fields()
	fields := make([]formField, 0, len(specs))
	for _, spec := range specs {
		value, _ := item.Get(spec.Key)
		f := formField{Key: spec.Key, Label: spec.Label, Value: value, Kind: kindText, Required: required[spec.Key]}
		switch spec.Key {
		case listing.FieldYear:
			f.Kind, f.Options = kindSelect, opts.Years()
		case listing.FieldMake:
			f.Kind, f.Options = kindSelect, opts.Makes
		case listing.FieldModel:
			f.Kind, f.Options = kindModel, opts.ModelsFor(vehicleMake)
		case listing.FieldCategory:
			f.Kind, f.Options = kindSelect, opts.Categories(item.Mode())
		case listing.FieldCondition:
			f.Kind = kindSelect
			for _, c := range listing.Conditions() {
				f.Options = append(f.Options, c.String())
			}
		case listing.FieldUPC:
			f.Kind = kindBarcode
		case listing.FieldNotes, listing.FieldExtractedText:
			f.Kind = kindTextarea
		}
		fields = append(fields, f)
	}
	return fields
}

func resultFields(v session.View) []resultField {
	if v.Result == nil {
		return nil
	}
	specs := listing.ResultFields()
	out := make([]resultField, 0, len(specs))
	for _, spec := range specs {
		out = append(out, resultField{
			Key:      spec.Key,
			Platform: spec.Platform,
			Label:    spec.Label,
			Value:    v.Result.Get(spec.Key),
			Copied:   v.Copied[spec.Key],
		})
	}
	return out
}

func modeTabs(active listing.Mode) []modeTab {
	modes := []listing.Mode{listing.ModeAutoParts, listing.ModeGeneralItems}
	tabs := make([]modeTab, 0, len(modes))
	for _, m := range modes {
		tabs = append(tabs, modeTab{Mode: m, Label: m.Label(), Active: m == active})
	}
	return tabs
}

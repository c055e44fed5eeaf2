package listing

import (
	"errors"
	"fmt"
)

// Field is the wire key of a form field.
type Field string

const (
	FieldCondition     Field = "condition"
	FieldNotes         Field = "notes"
	FieldExtractedText Field = "extractedText"

	FieldYear              Field = "year"
	FieldMake              Field = "make"
	FieldModel             Field = "model"
	FieldTrimEngine        Field = "trimEngine"
	FieldCategory          Field = "category"
	FieldPartName          Field = "partName"
	FieldOEMNumber         Field = "oemNumber"
	FieldInterchangeNumber Field = "interchangeNumber"

	FieldUPC            Field = "upc"
	FieldBrand          Field = "brand"
	FieldItemName       Field = "itemName"
	FieldSizeDimensions Field = "sizeDimensions"
)

var ErrUnknownField = errors.New("unknown field")

// FieldSpec describes one field of a variant. Label is used both in the
// form and as the line label in generated prompts.
type FieldSpec struct {
	Key   Field
	Label string
}

// Item is one of the two item variants. The set of implementations is closed:
// AutoPartItem and GeneralItem.
type Item interface {
	Mode() Mode
	// Fields lists the variant's fields in prompt order.
	Fields() []FieldSpec
	Get(field Field) (string, error)
	// Set returns a copy of the item with field replaced. The receiver is
	// left untouched.
	Set(field Field, value string) (Item, error)
	Common() Base

	sealed()
}

// Base holds the fields shared by every variant.
type Base struct {
	Condition     Condition `json:"condition"`
	Notes         string    `json:"notes"`
	ExtractedText string    `json:"extractedText"`
}

// setBase applies a shared field. ok is false when the field is not shared.
func (b *Base) setBase(field Field, value string) (ok bool, err error) {
	switch field {
	case FieldCondition:
		c, err := ParseCondition(value)
		if err != nil {
			return true, err
		}
		b.Condition = c
	case FieldNotes:
		b.Notes = value
	case FieldExtractedText:
		b.ExtractedText = value
	default:
		return false, nil
	}
	return true, nil
}

func (b Base) getBase(field Field) (string, bool) {
	switch field {
	case FieldCondition:
		return string(b.Condition), true
	case FieldNotes:
		return b.Notes, true
	case FieldExtractedText:
		return b.ExtractedText, true
	}
	return "", false
}

// AutoPartItem describes a vehicle part.
type AutoPartItem struct {
	Base
	Year              string `json:"year"`
	Make              string `json:"make"`
	Model             string `json:"model"`
	TrimEngine        string `json:"trimEngine"`
	Category          string `json:"category"`
	PartName          string `json:"partName"`
	OEMNumber         string `json:"oemNumber"`
	InterchangeNumber string `json:"interchangeNumber"`
}

// NewAutoPartItem returns an empty auto part record. Parts default to used.
func NewAutoPartItem() AutoPartItem {
	return AutoPartItem{Base: Base{Condition: ConditionUsedGood}}
}

var autoPartFields = []FieldSpec{
	{FieldYear, "Year"},
	{FieldMake, "Make"},
	{FieldModel, "Model"},
	{FieldTrimEngine, "Trim/Engine"},
	{FieldCategory, "Category"},
	{FieldPartName, "Part Name"},
	{FieldOEMNumber, "OEM Number"},
	{FieldInterchangeNumber, "Interchange Number"},
	{FieldCondition, "Condition"},
	{FieldNotes, "Additional Notes"},
	{FieldExtractedText, "OCR Text from Images"},
}

func (AutoPartItem) Mode() Mode { return ModeAutoParts }

func (AutoPartItem) Fields() []FieldSpec { return cloneSpecs(autoPartFields) }

func (a AutoPartItem) Common() Base { return a.Base }

func (AutoPartItem) sealed() {}

func (a AutoPartItem) Get(field Field) (string, error) {
	if v, ok := a.getBase(field); ok {
		return v, nil
	}
	switch field {
	case FieldYear:
		return a.Year, nil
	case FieldMake:
		return a.Make, nil
	case FieldModel:
		return a.Model, nil
	case FieldTrimEngine:
		return a.TrimEngine, nil
	case FieldCategory:
		return a.Category, nil
	case FieldPartName:
		return a.PartName, nil
	case FieldOEMNumber:
		return a.OEMNumber, nil
	case FieldInterchangeNumber:
		return a.InterchangeNumber, nil
	}
	return "", fmt.Errorf("%w %q for %s", ErrUnknownField, field, ModeAutoParts)
}

// Set implements Item. Setting the make always clears the model, even when
// the make is unchanged, because model choices depend on the make.
func (a AutoPartItem) Set(field Field, value string) (Item, error) {
	if ok, err := a.setBase(field, value); ok {
		if err != nil {
			return nil, err
		}
		return a, nil
	}
	switch field {
	case FieldYear:
		a.Year = value
	case FieldMake:
		a.Make = value
		a.Model = ""
	case FieldModel:
		a.Model = value
	case FieldTrimEngine:
		a.TrimEngine = value
	case FieldCategory:
		a.Category = value
	case FieldPartName:
		a.PartName = value
	case FieldOEMNumber:
		a.OEMNumber = value
	case FieldInterchangeNumber:
		a.InterchangeNumber = value
	default:
		return nil, fmt.Errorf("%w %q for %s", ErrUnknownField, field, ModeAutoParts)
	}
	return a, nil
}

// GeneralItem describes any other resale item.
type GeneralItem struct {
	Base
	UPC            string `json:"upc"`
	Category       string `json:"category"`
	Brand          string `json:"brand"`
	ItemName       string `json:"itemName"`
	SizeDimensions string `json:"sizeDimensions"`
}

// NewGeneralItem returns an empty general item record.
func NewGeneralItem() GeneralItem {
	return GeneralItem{Base: Base{Condition: ConditionNew}}
}

var generalItemFields = []FieldSpec{
	{FieldUPC, "UPC"},
	{FieldCategory, "Category"},
	{FieldBrand, "Brand"},
	{FieldItemName, "Item Name"},
	{FieldSizeDimensions, "Size/Dimensions"},
	{FieldCondition, "Condition"},
	{FieldNotes, "Additional Notes"},
	{FieldExtractedText, "OCR Text from Images"},
}

func (GeneralItem) Mode() Mode { return ModeGeneralItems }

func (GeneralItem) Fields() []FieldSpec { return cloneSpecs(generalItemFields) }

func (g GeneralItem) Common() Base { return g.Base }

func (GeneralItem) sealed() {}

func (g GeneralItem) Get(field Field) (string, error) {
	if v, ok := g.getBase(field); ok {
		return v, nil
	}
	switch field {
	case FieldUPC:
		return g.UPC, nil
	case FieldCategory:
		return g.Category, nil
	case FieldBrand:
		return g.Brand, nil
	case FieldItemName:
		return g.ItemName, nil
	case FieldSizeDimensions:
		return g.SizeDimensions, nil
	}
	return "", fmt.Errorf("%w %q for %s", ErrUnknownField, field, ModeGeneralItems)
}

func (g GeneralItem) Set(field Field, value string) (Item, error) {
	if ok, err := g.setBase(field, value); ok {
		if err != nil {
			return nil, err
		}
		return g, nil
	}
	switch field {
	case FieldUPC:
		g.UPC = value
	case FieldCategory:
		g.Category = value
	case FieldBrand:
		g.Brand = value
	case FieldItemName:
		g.ItemName = value
	case FieldSizeDimensions:
		g.SizeDimensions = value
	default:
		return nil, fmt.Errorf("%w %q for %s", ErrUnknownField, field, ModeGeneralItems)
	}
	return g, nil
}

// HasField reports whether the variant has the given field.
func HasField(item Item, field Field) bool {
	for _, spec := range item.Fields() {
		if spec.Key == field {
			return true
		}
	}
	return false
}

func cloneSpecs(specs []FieldSpec) []FieldSpec {
	out := make([]FieldSpec, len(specs))
	copy(out, specs)
	return out
}

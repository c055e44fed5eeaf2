package listing

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ResultField is the key of one generated text in a Result.
type ResultField string

const (
	ResultEbayTitle             ResultField = "ebayTitle"
	ResultEbayDescription       ResultField = "ebayDescription"
	ResultFacebookTitle         ResultField = "facebookTitle"
	ResultFacebookDescription   ResultField = "facebookDescription"
	ResultCraigslistTitle       ResultField = "craigslistTitle"
	ResultCraigslistDescription ResultField = "craigslistDescription"
)

// ErrMalformedResult is returned when a generation response does not honor
// the six field shape.
var ErrMalformedResult = errors.New("malformed listing result")

// ResultFieldSpec describes a generated field for rendering.
type ResultFieldSpec struct {
	Key      ResultField
	Platform string
	Label    string
}

var resultFields = []ResultFieldSpec{
	{ResultEbayTitle, "eBay", "Title"},
	{ResultEbayDescription, "eBay", "Description"},
	{ResultFacebookTitle, "Facebook Marketplace", "Title"},
	{ResultFacebookDescription, "Facebook Marketplace", "Description"},
	{ResultCraigslistTitle, "Craigslist", "Title"},
	{ResultCraigslistDescription, "Craigslist", "Description"},
}

// ResultFields returns the six generated fields in display order.
func ResultFields() []ResultFieldSpec {
	out := make([]ResultFieldSpec, len(resultFields))
	copy(out, resultFields)
	return out
}

// ParseResultField validates a result field key.
func ParseResultField(s string) (ResultField, error) {
	for _, spec := range resultFields {
		if string(spec.Key) == s {
			return spec.Key, nil
		}
	}
	return "", fmt.Errorf("%w %q", ErrUnknownField, s)
}

// Result is the generated listing copy for the three platforms.
type Result struct {
	EbayTitle             string `json:"ebayTitle"`
	EbayDescription       string `json:"ebayDescription"`
	FacebookTitle         string `json:"facebookTitle"`
	FacebookDescription   string `json:"facebookDescription"`
	CraigslistTitle       string `json:"craigslistTitle"`
	CraigslistDescription string `json:"craigslistDescription"`
}

// Get returns the text of a result field.
func (r Result) Get(field ResultField) string {
	switch field {
	case ResultEbayTitle:
		return r.EbayTitle
	case ResultEbayDescription:
		return r.EbayDescription
	case ResultFacebookTitle:
		return r.FacebookTitle
	case ResultFacebookDescription:
		return r.FacebookDescription
	case ResultCraigslistTitle:
		return r.CraigslistTitle
	case ResultCraigslistDescription:
		return r.CraigslistDescription
	}
	return ""
}

func (r *Result) set(field ResultField, v string) {
	switch field {
	case ResultEbayTitle:
		r.EbayTitle = v
	case ResultEbayDescription:
		r.EbayDescription = v
	case ResultFacebookTitle:
		r.FacebookTitle = v
	case ResultFacebookDescription:
		r.FacebookDescription = v
	case ResultCraigslistTitle:
		r.CraigslistTitle = v
	case ResultCraigslistDescription:
		r.CraigslistDescription = v
	}
}

// ParseResult decodes a JSON object that must contain all six fields as
// strings. Unknown keys are ignored. A partial object is an error, never a
// partial Result.
func ParseResult(data []byte) (*Result, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResult, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: not an object", ErrMalformedResult)
	}

	var missing []string
	var result Result
	for _, spec := range resultFields {
		msg, ok := raw[string(spec.Key)]
		if !ok {
			missing = append(missing, string(spec.Key))
			continue
		}
		var v string
		if string(msg) == "null" {
			return nil, fmt.Errorf("%w: %s is null", ErrMalformedResult, spec.Key)
		}
		if err := json.Unmarshal(msg, &v); err != nil {
			return nil, fmt.Errorf("%w: %s is not a string", ErrMalformedResult, spec.Key)
		}
		result.set(spec.Key, v)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrMalformedResult, strings.Join(missing, ", "))
	}
	return &result, nil
}

package listing

import (
	"errors"
	"fmt"
)

// Mode selects which item variant a session is describing.
type Mode string

const (
	ModeAutoParts    Mode = "AUTO_PARTS"
	ModeGeneralItems Mode = "GENERAL_ITEMS"
)

var ErrUnknownMode = errors.New("unknown mode")

// ParseMode accepts the wire value of a mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeAutoParts:
		return ModeAutoParts, nil
	case ModeGeneralItems:
		return ModeGeneralItems, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Label is the human readable name of the mode.
func (m Mode) Label() string {
	switch m {
	case ModeAutoParts:
		return "Auto Parts"
	case ModeGeneralItems:
		return "General Items"
	}
	return string(m)
}

// NewItem returns the initial record for a mode.
func NewItem(m Mode) (Item, error) {
	switch m {
	case ModeAutoParts:
		return NewAutoPartItem(), nil
	case ModeGeneralItems:
		return NewGeneralItem(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMode, string(m))
}

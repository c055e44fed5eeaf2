package listing

import (
	"errors"
	"fmt"
)

// Condition is the physical condition of an item. The string value is the
// label shown to users and embedded in prompts.
type Condition string

const (
	ConditionNew            Condition = "New"
	ConditionUsedExcellent  Condition = "Used - Excellent"
	ConditionUsedGood       Condition = "Used - Good"
	ConditionUsedFair       Condition = "Used - Fair"
	ConditionRemanufactured Condition = "Remanufactured"
	ConditionForParts       Condition = "For Parts/Not Working"
)

var ErrInvalidCondition = errors.New("invalid condition")

var allConditions = []Condition{
	ConditionNew,
	ConditionUsedExcellent,
	ConditionUsedGood,
	ConditionUsedFair,
	ConditionRemanufactured,
	ConditionForParts,
}

// Conditions returns every condition in display order.
func Conditions() []Condition {
	out := make([]Condition, len(allConditions))
	copy(out, allConditions)
	return out
}

// Valid reports whether c is one of the known conditions.
func (c Condition) Valid() bool {
	for _, known := range allConditions {
		if c == known {
			return true
		}
	}
	return false
}

func (c Condition) String() string {
	return string(c)
}

// ParseCondition matches s exactly against the known condition labels.
func ParseCondition(s string) (Condition, error) {
	c := Condition(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCondition, s)
	}
	return c, nil
}

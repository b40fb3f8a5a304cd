package models

import (
	"strconv"
	"strings"
)

// FlagValue is a boolean that the directory stores as either a JSON bool or a "true"/"false" string.
type FlagValue bool

func (f FlagValue) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(FlagString(bool(f)))), nil
}

func (f *FlagValue) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	v, err := strconv.ParseBool(s)
	if err != nil {
		// null, "" and anything unrecognised read as off
		*f = false
		return nil
	}
	*f = FlagValue(v)
	return nil
}

func equalFold(a, b string) bool { return strings.EqualFold(a, b) }

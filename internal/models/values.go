package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	MaxTokensLimit = 8192
	TempMin        = 0.0
	TempMax        = 1.0
)

// Temperature is the sampling temperature. It is kept in [0.0, 1.0], rounded to one decimal,
// and travels as a one-decimal string ("0.7").
type Temperature float64

func NewTemperature(v float64) Temperature {
	if math.IsNaN(v) || v < TempMin {
		v = TempMin
	}
	if v > TempMax {
		v = TempMax
	}
	return Temperature(math.Round(v*10) / 10)
}

func ParseTemperature(s string) (Temperature, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid temperature %q: %w", s, err)
	}
	return NewTemperature(f), nil
}

func (t Temperature) String() string {
	return strconv.FormatFloat(float64(NewTemperature(float64(t))), 'f', 1, 64)
}

func (t Temperature) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Temperature) UnmarshalJSON(b []byte) error {
	raw, err := scalarString(b)
	if err != nil {
		return fmt.Errorf("temperature: %w", err)
	}
	v, err := ParseTemperature(raw)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// MaxTokens is the completion token limit, always an integer in [0, 8192].
type MaxTokens int

func NewMaxTokens(v int) MaxTokens {
	if v < 0 {
		return 0
	}
	if v > MaxTokensLimit {
		return MaxTokensLimit
	}
	return MaxTokens(v)
}

func (m MaxTokens) Int() int { return int(NewMaxTokens(int(m))) }

func (m MaxTokens) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Int())
}

func (m *MaxTokens) UnmarshalJSON(b []byte) error {
	raw, err := scalarString(b)
	if err != nil {
		return fmt.Errorf("maxTokens: %w", err)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		*m = 0
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) {
		return fmt.Errorf("invalid maxTokens %q", raw)
	}
	if math.IsInf(f, 1) {
		f = MaxTokensLimit
	}
	if math.IsInf(f, -1) {
		f = 0
	}
	*m = NewMaxTokens(int(math.Trunc(math.Max(math.Min(f, MaxTokensLimit), -1))))
	return nil
}

// scalarString accepts a JSON number, string or null and returns its text.
func scalarString(b []byte) (string, error) {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return "", nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return "", err
		}
		return str, nil
	}
	if s == "true" || s == "false" || strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[") {
		return "", fmt.Errorf("unexpected value %s", s)
	}
	return s, nil
}

// FlagString renders a boolean the way the inference API and chat history expect it.
func FlagString(b bool) string { return strconv.FormatBool(b) }

// Timestamp is a time that tolerates the directory's offset-less date formats.
type Timestamp struct{ time.Time }

func NowTimestamp() Timestamp { return Timestamp{time.Now().UTC()} }

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.9999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	raw, err := scalarString(b)
	if err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, perr := time.Parse(layout, raw); perr == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("timestamp: unrecognised format %q", raw)
}

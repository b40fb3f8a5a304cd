package models

import (
	"encoding/json"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var oneDecimal = regexp.MustCompile(`^"(0\.[0-9]|1\.0)"$`)

func TestTemperature_AlwaysOneDecimalInRange(t *testing.T) {
	for i := 0; i <= 1000; i++ {
		v := float64(i) / 1000
		b, err := json.Marshal(NewTemperature(v))
		require.NoError(t, err)
		assert.Regexp(t, oneDecimal, string(b), "input %v", v)
	}
}

func TestTemperature_ClampAndRound(t *testing.T) {
	assert.Equal(t, "0.0", NewTemperature(-3).String())
	assert.Equal(t, "1.0", NewTemperature(7.5).String())
	assert.Equal(t, "0.7", NewTemperature(0.66).String())
	assert.Equal(t, "0.3", Temperature(0.25000001).String())
}

func TestTemperature_UnmarshalNumberOrString(t *testing.T) {
	var s struct {
		A Temperature `json:"a"`
		B Temperature `json:"b"`
		C Temperature `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":0.55,"b":"0.2","c":null}`), &s))

	assert.Equal(t, "0.6", s.A.String())
	assert.Equal(t, "0.2", s.B.String())
	assert.Equal(t, "0.0", s.C.String())

	assert.Error(t, json.Unmarshal([]byte(`{"a":"warm"}`), &s))
}

func TestMaxTokens_IntegerInRange(t *testing.T) {
	var s struct {
		A MaxTokens `json:"a"`
		B MaxTokens `json:"b"`
		C MaxTokens `json:"c"`
		D MaxTokens `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"512","b":99999,"c":-4,"d":256.9}`), &s))

	assert.Equal(t, 512, s.A.Int())
	assert.Equal(t, MaxTokensLimit, s.B.Int())
	assert.Equal(t, 0, s.C.Int())
	assert.Equal(t, 256, s.D.Int())

	b, err := json.Marshal(MaxTokens(9000))
	require.NoError(t, err)
	assert.Equal(t, "8192", string(b))
}

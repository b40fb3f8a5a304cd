// Package stt turns dictated audio into draft text.
package stt

import (
	"context"
	"strings"
)

// Transcriber recognises one short utterance.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, language string) (Result, error)
	Close() error
}

type Result struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

const DefaultLanguage = "en-US"

// AppendToDraft joins recognised text onto the current draft with a single space.
func AppendToDraft(draft, text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return draft
	}
	d := strings.TrimRight(draft, " ")
	if d == "" {
		return text
	}
	return d + " " + text
}

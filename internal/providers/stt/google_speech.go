package stt

import (
	"context"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"
)

// GoogleSpeech recognises browser recordings. MediaRecorder produces webm/opus at 48kHz, which
// is the default; wav uploads switch to LINEAR16.
type GoogleSpeech struct {
	c *speech.Client

	Encoding     speechpb.RecognitionConfig_AudioEncoding
	SampleRateHz int32
}

func NewGoogleSpeech(ctx context.Context, credentialsFile string) (*GoogleSpeech, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	c, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &GoogleSpeech{
		c:            c,
		Encoding:     speechpb.RecognitionConfig_WEBM_OPUS,
		SampleRateHz: 48000,
	}, nil
}

func (g *GoogleSpeech) Close() error { return g.c.Close() }

func (g *GoogleSpeech) Transcribe(ctx context.Context, audio []byte, language string) (Result, error) {
	if language == "" {
		language = DefaultLanguage
	}
	resp, err := g.c.Recognize(ctx, recognizeRequest(g.Encoding, g.SampleRateHz, audio, language))
	if err != nil {
		return Result{}, err
	}
	return bestAlternative(resp.GetResults()), nil
}

func recognizeRequest(enc speechpb.RecognitionConfig_AudioEncoding, rate int32, audio []byte, language string) *speechpb.RecognizeRequest {
	return &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   enc,
			SampleRateHertz:            rate,
			LanguageCode:               language,
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	}
}

// bestAlternative concatenates the top alternative of each result; confidence is the lowest seen.
func bestAlternative(results []*speechpb.SpeechRecognitionResult) Result {
	var (
		parts []string
		conf  float64
		seen  bool
	)
	for _, r := range results {
		alts := r.GetAlternatives()
		if len(alts) == 0 || alts[0].GetTranscript() == "" {
			continue
		}
		parts = append(parts, strings.TrimSpace(alts[0].GetTranscript()))
		c := float64(alts[0].GetConfidence())
		if !seen || c < conf {
			conf = c
			seen = true
		}
	}
	return Result{Text: strings.Join(parts, " "), Confidence: conf}
}

// EncodingFor maps an upload content type onto a recognition encoding.
func EncodingFor(contentType string) (speechpb.RecognitionConfig_AudioEncoding, int32) {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "wav"), strings.Contains(ct, "l16"):
		return speechpb.RecognitionConfig_LINEAR16, 16000
	case strings.Contains(ct, "ogg"):
		return speechpb.RecognitionConfig_OGG_OPUS, 48000
	default:
		return speechpb.RecognitionConfig_WEBM_OPUS, 48000
	}
}

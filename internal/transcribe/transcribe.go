package transcribe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"legaldocs-backend/internal/ai"
)

var (
	// ErrEmptyAudio rejects empty payloads before any external call.
	ErrEmptyAudio = errors.New("empty audio")
	// ErrAudioTooLarge rejects payloads over the recognize limit.
	ErrAudioTooLarge = errors.New("audio too large")
	// ErrTranscriptionUnavailable means the speech backend failed.
	ErrTranscriptionUnavailable = errors.New("transcription unavailable")
)

const maxAudioBytes = 4 << 20

// Service turns short audio payloads into text so spoken questions can be
// fed to the chat endpoint.
type Service struct {
	Recognizer ai.Recognizer
}

// Result is one transcription outcome.
type Result struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Transcribe recognizes speech from an audio payload.
func (s *Service) Transcribe(ctx context.Context, audio []byte, languageCode string) (Result, error) {
	if len(audio) == 0 {
		return Result{}, ErrEmptyAudio
	}
	if len(audio) > maxAudioBytes {
		return Result{}, fmt.Errorf("%w: limit is %d bytes", ErrAudioTooLarge, maxAudioBytes)
	}
	if strings.TrimSpace(languageCode) == "" {
		languageCode = "en-US"
	}

	out, err := s.Recognizer.Recognize(ctx, audio, languageCode)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrTranscriptionUnavailable, err)
	}
	return Result{Text: out.Text, Confidence: out.Confidence}, nil
}

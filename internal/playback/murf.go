package playback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"skillup/pkg/schema"
)

var _ Synthesizer = (*MurfSynthesizer)(nil)

// MurfConfig configures the Murf text-to-speech synthesizer.
type MurfConfig struct {
	APIKey string

	// BaseURL is the Murf API base URL
	// Default: https://api.murf.ai
	BaseURL string

	// Timeout bounds each HTTP request
	// Default: 30 seconds
	Timeout time.Duration
}

// Validate checks that required config fields are set.
func (c *MurfConfig) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("APIKey is required")
	}
	return nil
}

// SetDefaults fills in default values for optional fields.
func (c *MurfConfig) SetDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.murf.ai"
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
}

// MurfSynthesizer generates WAV speech through the Murf API.
type MurfSynthesizer struct {
	config *MurfConfig
	http   *http.Client
}

// NewMurfSynthesizer creates a Murf-backed synthesizer.
func NewMurfSynthesizer(config *MurfConfig) (*MurfSynthesizer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	config.SetDefaults()

	return &MurfSynthesizer{
		config: config,
		http:   &http.Client{Timeout: config.Timeout},
	}, nil
}

type murfRequest struct {
	Text        string `json:"text"`
	VoiceID     string `json:"voiceId"`
	Format      string `json:"format"`
	ChannelType string `json:"channelType"`
	SampleRate  int    `json:"sampleRate"`
	Style       string `json:"style,omitempty"`
	Rate        int    `json:"rate"`
	Pitch       int    `json:"pitch"`
}

type murfResponse struct {
	AudioFile            string  `json:"audioFile"`
	AudioLengthInSeconds float64 `json:"audioLengthInSeconds"`
	ErrorMessage         string  `json:"errorMessage,omitempty"`
}

// SynthesisError is returned when Murf rejects a request.
type SynthesisError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *SynthesisError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("synthesis failed (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("synthesis failed: %s", e.Message)
}

func (e *SynthesisError) Unwrap() error {
	return e.Err
}

// Synthesize requests speech for text and downloads the generated file.
func (m *MurfSynthesizer) Synthesize(ctx context.Context, text string, voice schema.VoiceProfile) (*Audio, error) {
	if voice.VoiceID == "" {
		voice = schema.DefaultVoice
	}

	body, err := json.Marshal(murfRequest{
		Text:        text,
		VoiceID:     voice.VoiceID,
		Format:      "WAV",
		ChannelType: "STEREO",
		SampleRate:  44100,
		Style:       voice.Style,
		Rate:        voice.Rate,
		Pitch:       voice.Pitch,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.config.BaseURL+"/v1/speech/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("api-key", m.config.APIKey)

	start := time.Now()
	resp, err := m.http.Do(req)
	if err != nil {
		return nil, &SynthesisError{Message: "request failed", Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("Failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &SynthesisError{StatusCode: resp.StatusCode, Message: string(msg)}
	}

	var mr murfResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return nil, &SynthesisError{Message: "decode response", Err: err}
	}
	if mr.AudioFile == "" {
		return nil, &SynthesisError{Message: "response has no audio file: " + mr.ErrorMessage}
	}

	data, err := m.download(ctx, mr.AudioFile)
	if err != nil {
		return nil, err
	}

	slog.Info("Murf synthesis completed",
		"voice_id", voice.VoiceID,
		"bytes", len(data),
		"duration", time.Since(start),
	)

	return &Audio{
		Data:     data,
		Format:   "wav",
		URL:      mr.AudioFile,
		Duration: time.Duration(mr.AudioLengthInSeconds * float64(time.Second)),
	}, nil
}

func (m *MurfSynthesizer) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create download request: %w", err)
	}

	resp, err := m.http.Do(req)
	if err != nil {
		return nil, &SynthesisError{Message: "download failed", Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("Failed to close download body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, &SynthesisError{StatusCode: resp.StatusCode, Message: "audio download rejected"}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &SynthesisError{Message: "read audio", Err: err}
	}
	return data, nil
}

// Package elevenlabs is a minimal ElevenLabs text-to-speech client.
package elevenlabs

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/FACorreiaa/go-trip-planner/config"
	"github.com/FACorreiaa/go-trip-planner/internal/api/provider"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

const defaultAudioType = "audio/mpeg"

type Voice struct {
	ID      string
	ModelID string
}

type Client struct {
	http   *provider.Client
	apiKey config.Secret
	voice  Voice
	logger *slog.Logger
}

func NewClient(hc *provider.Client, apiKey config.Secret, voice Voice, logger *slog.Logger) *Client {
	return &Client{http: hc, apiKey: apiKey, voice: voice, logger: logger}
}

func (c *Client) Configured() bool { return c.apiKey.IsSet() && c.voice.ID != "" }

type ttsRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id,omitempty"`
}

// Synthesize converts text to speech and returns the audio bytes with their media type.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, string, error) {
	if !c.Configured() {
		return nil, "", &types.ConfigurationError{Subsystem: "speech synthesis"}
	}

	resp, err := c.http.Do(ctx, "text_to_speech", http.MethodPost, "/v1/text-to-speech/{voice_id}", func(r *resty.Request) {
		r.SetPathParam("voice_id", c.voice.ID).
			SetHeader("xi-api-key", c.apiKey.Reveal()).
			SetHeader("Accept", defaultAudioType).
			SetHeader("Content-Type", "application/json").
			SetBody(ttsRequest{Text: text, ModelID: c.voice.ModelID})
	})
	if err != nil {
		return nil, "", err
	}

	mediaType := resp.Header().Get("Content-Type")
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}
	if !strings.HasPrefix(mediaType, "audio/") {
		mediaType = defaultAudioType
	}
	return resp.Body(), mediaType, nil
}

package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vibex365/luna-heart-guide-sub005/internal/logger"
	"github.com/vibex365/luna-heart-guide-sub005/internal/metrics"
)

var ErrProviderUnavailable = errors.New("voice provider unavailable")

const requestTimeout = 10 * time.Second

// personaInstructions is the system prompt handed to the realtime
// provider for every session. Luna addresses the user by name.
const personaInstructions = `You are Luna, a warm, grounded heart-wellness companion.
You listen first, reflect feelings back gently, and never give medical advice.
Keep responses short and conversational. The person you are speaking with is named %s.`

type Client struct {
	apiKey  string
	baseURL string
	model   string
	voice   string
	http    *http.Client
}

func NewClient(apiKey, baseURL, model, voice string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
		voice:   voice,
		http:    &http.Client{Timeout: requestTimeout},
	}
}

type sessionRequest struct {
	Model        string `json:"model"`
	Voice        string `json:"voice"`
	Instructions string `json:"instructions"`
}

// CreateEphemeralSession asks the provider for a short-lived client
// credential and returns the payload verbatim. Nothing is persisted
// server-side and there is no retry: the caller surfaces
// ErrProviderUnavailable and lets the client try again.
func (c *Client) CreateEphemeralSession(ctx context.Context, displayName string) (json.RawMessage, error) {
	body, err := json.Marshal(sessionRequest{
		Model:        c.model,
		Voice:        c.voice,
		Instructions: fmt.Sprintf(personaInstructions, displayName),
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/realtime/sessions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		logger.Errorf("Voice provider request failed: %v", err)
		metrics.RecordTokenRequest("error")
		return nil, ErrProviderUnavailable
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.RecordTokenRequest("error")
		return nil, ErrProviderUnavailable
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		logger.Errorf("Voice provider returned status %d: %s", resp.StatusCode, payload)
		metrics.RecordTokenRequest("error")
		return nil, ErrProviderUnavailable
	}

	metrics.RecordTokenRequest("ok")
	return payload, nil
}

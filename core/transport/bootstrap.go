package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mentora/lesson-core/core/sessions"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Bootstrap creates lesson sessions against the service's HTTP API before
// the websocket is dialed. Requests are traced through otelhttp.
type Bootstrap struct {
	baseURL    string
	httpClient *http.Client
}

// NewBootstrap creates a bootstrap client for the given service base URL.
func NewBootstrap(baseURL string) *Bootstrap {
	return &Bootstrap{
		baseURL: baseURL,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   30 * time.Second,
		},
	}
}

type createSessionRequest struct {
	CourseID string `json:"course_id"`
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
	CourseID  string `json:"course_id"`
	Endpoint  string `json:"endpoint"`
}

// CreateSession asks the service for a new session on the given course and
// returns its descriptor.
func (b *Bootstrap) CreateSession(ctx context.Context, courseID string) (sessions.Descriptor, error) {
	if b == nil {
		return sessions.Descriptor{}, fmt.Errorf("bootstrap client not configured")
	}

	body, err := json.Marshal(createSessionRequest{CourseID: courseID})
	if err != nil {
		return sessions.Descriptor{}, fmt.Errorf("failed to marshal session request: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/sessions", bytes.NewReader(body))
	if err != nil {
		return sessions.Descriptor{}, fmt.Errorf("failed to build session request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := b.httpClient.Do(request)
	if err != nil {
		return sessions.Descriptor{}, fmt.Errorf("failed to create session: %w", err)
	}
	defer func() { _ = response.Body.Close() }()

	if response.StatusCode != http.StatusOK && response.StatusCode != http.StatusCreated {
		return sessions.Descriptor{}, fmt.Errorf("session creation returned status %d", response.StatusCode)
	}

	var parsed createSessionResponse
	if err := json.NewDecoder(response.Body).Decode(&parsed); err != nil {
		return sessions.Descriptor{}, fmt.Errorf("failed to decode session response: %w", err)
	}
	if parsed.SessionID == "" {
		return sessions.Descriptor{}, fmt.Errorf("session creation returned no session id")
	}

	return sessions.Descriptor{
		SessionID: parsed.SessionID,
		CourseID:  parsed.CourseID,
		Endpoint:  parsed.Endpoint,
		CreatedAt: time.Now(),
	}, nil
}

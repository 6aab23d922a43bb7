// Package deepgram transcribes the student's spoken answers through the
// deepgram live websocket API.
package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/gorilla/websocket"
	"github.com/mentora/lesson-core/core/audio"
	"github.com/mentora/lesson-core/core/speechtotext"
)

// ErrNoAPIKey reports a missing deepgram credential.
var ErrNoAPIKey = errors.New("deepgram api key not found")

const (
	keepAliveAfter = 3 * time.Second
	keepAliveEvery = 5 * time.Second
)

// TranscriptionClient is a live transcription session. One client serves
// one lesson; audio flows in while the student holds the talk control and
// the stream stays alive between presses through keepalives.
type TranscriptionClient struct {
	apiKey string

	connMu    sync.Mutex
	conn      *websocket.Conn
	lastAudio time.Time

	segmentsMu sync.Mutex
	segments   []string
}

type ClientOption func(*TranscriptionClient)

// WithAPIKey overrides the DEEPGRAM_API_KEY environment variable.
func WithAPIKey(apiKey string) ClientOption {
	return func(c *TranscriptionClient) { c.apiKey = apiKey }
}

func NewTranscriptionClient(opts ...ClientOption) *TranscriptionClient {
	c := &TranscriptionClient{}
	if apiKey, ok := os.LookupEnv("DEEPGRAM_API_KEY"); ok {
		c.apiKey = apiKey
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Transcribe opens the live websocket and starts the read loop. Idempotent
// while a connection is live.
func (c *TranscriptionClient) Transcribe(ctx context.Context, opts ...speechtotext.TranscriptionOption) error {
	options := &speechtotext.TranscriptionOptions{EncodingInfo: audio.GetDefaultEncodingInfo()}
	for _, opt := range opts {
		opt(options)
	}

	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn != nil {
		return nil
	}

	if c.apiKey == "" {
		return ErrNoAPIKey
	}

	encoding, err := toWireEncoding(options.EncodingInfo)
	if err != nil {
		return fmt.Errorf("invalid encoding: %w", err)
	}

	listenURL, _ := url.Parse("wss://api.deepgram.com/v1/listen")
	queryParams := listenURL.Query()
	queryParams.Set("encoding", encoding.format)
	queryParams.Set("sample_rate", strconv.Itoa(encoding.sampleRate))
	queryParams.Set("channels", "1")
	queryParams.Set("model", "nova-3")
	queryParams.Set("language", "en-US")
	queryParams.Set("smart_format", "true")
	queryParams.Set("endpointing", "300")
	if options.InterimTranscriptionCallback != nil {
		queryParams.Set("interim_results", "true")
	}
	if options.SpeechStartedCallback != nil || options.SpeechEndedCallback != nil {
		queryParams.Set("vad_events", "true")
	}
	listenURL.RawQuery = queryParams.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, listenURL.String(),
		http.Header{"Authorization": {"Token " + c.apiKey}})
	if err != nil {
		return fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}

	c.conn = conn
	c.lastAudio = time.Now()
	go c.readMessages(conn, *options)
	go c.keepAlive(ctx, conn)

	return nil
}

// SendAudio forwards one captured chunk to the live stream.
func (c *TranscriptionClient) SendAudio(chunk []byte) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("transcription stream not open")
	}

	c.lastAudio = time.Now()
	if err := c.conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
		return fmt.Errorf("failed to write to deepgram stream: %w", err)
	}
	return nil
}

// Close finalizes the stream and tears the connection down.
func (c *TranscriptionClient) Close(_ context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return nil
	}

	closeErr := c.conn.WriteJSON(struct {
		Type string `json:"type"`
	}{Type: string(api.TypeCloseStreamResponse)})

	err := c.conn.Close()
	c.conn = nil

	return errors.Join(closeErr, err)
}

func (c *TranscriptionClient) readMessages(conn *websocket.Conn, options speechtotext.TranscriptionOptions) {
	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			c.connMu.Lock()
			if c.conn == conn {
				c.conn = nil
			}
			c.connMu.Unlock()
			_ = conn.Close()
			return
		}

		if messageType != websocket.BinaryMessage {
			c.processMessage(message, options)
		}
	}
}

func (c *TranscriptionClient) processMessage(message []byte, options speechtotext.TranscriptionOptions) {
	var header struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(message, &header); err != nil {
		return
	}

	switch api.TypeResponse(header.Type) {
	case api.TypeMessageResponse:
		var response api.MessageResponse
		if err := json.Unmarshal(message, &response); err != nil {
			return
		}
		if len(response.Channel.Alternatives) == 0 {
			return
		}
		transcript := strings.TrimSpace(response.Channel.Alternatives[0].Transcript)
		if transcript == "" {
			return
		}

		if !response.IsFinal {
			if options.InterimTranscriptionCallback != nil {
				options.InterimTranscriptionCallback(transcript)
			}
			return
		}

		c.segmentsMu.Lock()
		c.segments = append(c.segments, transcript)
		full := strings.Join(c.segments, " ")
		if response.SpeechFinal {
			c.segments = nil
		}
		c.segmentsMu.Unlock()

		if response.SpeechFinal && options.TranscriptionCallback != nil {
			options.TranscriptionCallback(full)
		}

	case api.TypeUtteranceEndResponse:
		c.segmentsMu.Lock()
		full := strings.Join(c.segments, " ")
		c.segments = nil
		c.segmentsMu.Unlock()

		if full != "" && options.TranscriptionCallback != nil {
			options.TranscriptionCallback(full)
		}
		if options.SpeechEndedCallback != nil {
			options.SpeechEndedCallback()
		}

	case api.TypeSpeechStartedResponse:
		if options.SpeechStartedCallback != nil {
			options.SpeechStartedCallback()
		}
	}
}

// keepAlive keeps the stream open between talk-control presses. Deepgram
// drops idle connections, so once audio stops flowing the client switches
// to periodic KeepAlive frames until audio resumes or the stream closes.
func (c *TranscriptionClient) keepAlive(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var lastKeepAlive time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != conn {
				c.connMu.Unlock()
				return
			}
			idle := time.Since(c.lastAudio)
			due := idle > keepAliveAfter && time.Since(lastKeepAlive) > keepAliveEvery
			if due {
				lastKeepAlive = time.Now()
				if err := conn.WriteJSON(struct {
					Type string `json:"type"`
				}{Type: "KeepAlive"}); err != nil {
					c.connMu.Unlock()
					return
				}
			}
			c.connMu.Unlock()
		}
	}
}

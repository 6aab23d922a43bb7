package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// ErrClientClosed reports a send attempted after the client closed.
var ErrClientClosed = errors.New("transport client closed")

const (
	writeTimeout = 10 * time.Second
	pongTimeout  = 75 * time.Second
)

// ClientCallbacks receive transport activity. OnMessage runs on the read
// pump goroutine; implementations hand work off rather than block it.
type ClientCallbacks struct {
	OnMessage      func(message Inbound)
	OnDisconnected func(err error)
}

// Client is the websocket connection to the lesson service. Writes are
// serialized through a mutex; reads run on a single pump goroutine. A lost
// connection is terminal for the client: the owner decides whether to dial
// a fresh one.
type Client struct {
	conn *websocket.Conn

	writeMu sync.Mutex

	callbacks ClientCallbacks

	closeOnce sync.Once
	closed    atomic.Bool
	done      chan struct{}
}

// Dial connects to the lesson service endpoint and starts the read pump.
func Dial(ctx context.Context, endpoint string, header http.Header, callbacks ClientCallbacks) (*Client, error) {
	conn, response, err := websocket.DefaultDialer.DialContext(ctx, endpoint, header)
	if err != nil {
		if response != nil {
			return nil, fmt.Errorf("failed to dial lesson service (status %d): %w", response.StatusCode, err)
		}
		return nil, fmt.Errorf("failed to dial lesson service: %w", err)
	}

	client := &Client{
		conn:      conn,
		callbacks: callbacks,
		done:      make(chan struct{}),
	}

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	go client.readPump()
	return client, nil
}

func (c *Client) readPump() {
	defer close(c.done)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}
			logger.Warn("transport read failed", "error", err.Error())
			if c.callbacks.OnDisconnected != nil {
				c.callbacks.OnDisconnected(err)
			}
			return
		}

		message, err := DecodeInbound(data)
		if err != nil {
			logger.Warn("dropping undecodable inbound message", "error", err.Error())
			continue
		}

		if c.callbacks.OnMessage != nil {
			c.callbacks.OnMessage(message)
		}
	}
}

// Send marshals and writes one outbound message.
func (c *Client) Send(ctx context.Context, message Outbound) error {
	if c == nil {
		return ErrClientClosed
	}
	if c.closed.Load() {
		return ErrClientClosed
	}

	_, span := tracer.Start(ctx, "send outbound message")
	defer span.End()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}
	if err := c.conn.WriteJSON(message); err != nil {
		return fmt.Errorf("failed to write outbound message: %w", err)
	}

	return nil
}

// Ping sends a websocket ping frame, used by keepalive loops owned by the
// embedding application.
func (c *Client) Ping() error {
	if c == nil || c.closed.Load() {
		return ErrClientClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

// Close sends a close frame and tears down the connection. Idempotent.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}

	var closeErr error
	c.closeOnce.Do(func() {
		c.closed.Store(true)

		c.writeMu.Lock()
		deadline := time.Now().Add(writeTimeout)
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			deadline,
		)
		c.writeMu.Unlock()

		closeErr = c.conn.Close()

		select {
		case <-c.done:
		case <-time.After(writeTimeout):
		}
	})

	return closeErr
}

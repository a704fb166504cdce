// Package ws provides a reconnecting WebSocket client for the syncboard
// gateway.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"

	wsprotocol "github.com/syncboard/syncboard/internal/gateway/ws"
)

// Options configures a Client.
type Options struct {
	// BaseDelay is the first reconnect delay; doubled on each further attempt.
	BaseDelay time.Duration
	// MaxAttempts is the reconnect ceiling before giving up.
	MaxAttempts int
	// OnEvent receives every pushed event frame.
	OnEvent func(wsprotocol.Frame)
	// OnConnected fires on every transition into connected, including the
	// first. The gateway keeps no event log, so the handler must do a full
	// resynchronizing pull.
	OnConnected func()
	// OnStateChange observes connection state transitions.
	OnStateChange func(State)
}

// Client maintains a live channel to the gateway, re-announcing its session
// token after every reconnect.
type Client struct {
	url    string
	token  string
	opts   Options
	rm     *ReconnectionManager
	reqSeq uint64

	conn atomic.Pointer[websocket.Conn]
}

// NewClient creates a client for the given ws endpoint and session token.
func NewClient(url, token string, opts Options) *Client {
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	return &Client{
		url:   url,
		token: token,
		opts:  opts,
		rm:    NewReconnectionManager(opts.BaseDelay, opts.MaxAttempts, opts.OnStateChange),
	}
}

// StateMachine exposes the reconnection manager, mainly for inspection.
func (c *Client) StateMachine() *ReconnectionManager { return c.rm }

// Run connects and serves the channel until ctx is cancelled or the retry
// budget is exhausted. Every successful connection re-announces the session
// token and triggers OnConnected.
func (c *Client) Run(ctx context.Context) error {
	c.rm.Connecting()

	for {
		err := c.connectAndServe(ctx)
		if ctx.Err() != nil {
			c.rm.Reset()
			return ctx.Err()
		}

		delay, ok := c.rm.Dropped()
		if !ok {
			return fmt.Errorf("reconnect attempts exhausted: %w", err)
		}
		slog.Debug("ws channel dropped, retrying", "delay", delay, "attempt", c.rm.Attempt())

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			c.rm.Reset()
			return ctx.Err()
		}
	}
}

// connectAndServe dials, joins, and reads frames until the channel breaks.
func (c *Client) connectAndServe(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("ws dial: %w", err)
	}
	c.conn.Store(conn)
	defer func() {
		c.conn.Store(nil)
		conn.Close(websocket.StatusNormalClosure, "")
	}()

	if err := c.announce(ctx, conn); err != nil {
		return err
	}

	c.rm.Connected()
	if c.opts.OnConnected != nil {
		c.opts.OnConnected()
	}

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		frame, err := wsprotocol.UnmarshalFrame(data)
		if err != nil {
			slog.Debug("ws unmarshal frame", "error", err)
			continue
		}
		if frame.Type == wsprotocol.FrameTypeEvent && c.opts.OnEvent != nil {
			c.opts.OnEvent(frame)
		}
	}
}

// announce sends user_join with the session token and waits for the response.
func (c *Client) announce(ctx context.Context, conn *websocket.Conn) error {
	params, _ := json.Marshal(wsprotocol.JoinParams{SessionToken: c.token})
	frame := wsprotocol.Frame{
		Type:   wsprotocol.FrameTypeRequest,
		ID:     c.nextReqID(),
		Method: wsprotocol.MethodUserJoin,
		Params: params,
	}
	data, err := wsprotocol.MarshalFrame(frame)
	if err != nil {
		return err
	}
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("ws join: %w", err)
	}

	// The join response is the first non-event frame back.
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("ws join response: %w", err)
		}
		resp, err := wsprotocol.UnmarshalFrame(data)
		if err != nil {
			continue
		}
		if resp.Type == wsprotocol.FrameTypeEvent {
			if c.opts.OnEvent != nil {
				c.opts.OnEvent(resp)
			}
			continue
		}
		if resp.OK != nil && !*resp.OK {
			return fmt.Errorf("ws join rejected: %s", resp.Error)
		}
		return nil
	}
}

// Leave announces user_leave on the current connection, if any.
func (c *Client) Leave(ctx context.Context) error {
	conn := c.conn.Load()
	if conn == nil {
		return nil
	}
	frame := wsprotocol.Frame{
		Type:   wsprotocol.FrameTypeRequest,
		ID:     c.nextReqID(),
		Method: wsprotocol.MethodUserLeave,
	}
	data, err := wsprotocol.MarshalFrame(frame)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

// Close tears down the current connection.
func (c *Client) Close() error {
	conn := c.conn.Load()
	if conn == nil {
		return nil
	}
	return conn.Close(websocket.StatusNormalClosure, "bye")
}

func (c *Client) nextReqID() string {
	seq := atomic.AddUint64(&c.reqSeq, 1)
	return fmt.Sprintf("req-%d", seq)
}

// Package streaming is a Bayeux/CometD long-polling client for the
// platform's streaming API. One Client carries one handshake and one
// subscription.
package streaming

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/catalandres/sfdx-core/internal/core/domain"
	"github.com/catalandres/sfdx-core/internal/core/ports/driven"
	"github.com/catalandres/sfdx-core/internal/logger"
)

var streamLog = logger.Named("streaming")

// minAccessTokenLength rejects tokens too short to be real.
const minAccessTokenLength = 5

// disconnectTimeout bounds the best-effort /meta/disconnect request.
const disconnectTimeout = 10 * time.Second

// Org is the organization a Client streams from.
type Org interface {
	// RefreshAuth forces a token refresh before the long-lived session.
	RefreshAuth(ctx context.Context) error
	// Connection supplies the instance URL and current access token.
	Connection() driven.Connection
}

// Options configure a Client.
type Options struct {
	Org             Org
	APIVersion      string
	Channel         string
	StreamProcessor StreamProcessor

	// HandshakeTimeout defaults to domain.DefaultHandshakeTimeout.
	HandshakeTimeout time.Duration
	// SubscribeTimeout defaults to domain.DefaultSubscribeTimeout.
	SubscribeTimeout time.Duration
	// ReplayID defaults to ReplayNew.
	ReplayID int64
	// HTTPClient is copied; its cookie jar is replaced.
	HTTPClient *http.Client
}

// State is the lifecycle position of a Client.
type State string

// Client states.
const (
	StateIdle         State = "IDLE"
	StateHandshaking  State = "HANDSHAKING"
	StateHandshaken   State = "HANDSHAKEN"
	StateSubscribing  State = "SUBSCRIBING"
	StateFailed       State = "FAILED"
	StateDisconnected State = "DISCONNECTED"
)

// Client is a single-use streaming session.
type Client struct {
	opts     Options
	endpoint string
	http     *http.Client
	pacer    *pacer

	mu       sync.Mutex
	state    State
	clientID string
	stopLoop context.CancelFunc
}

// NewClient validates opts, refreshes the org's session and prepares the
// transport. No network traffic reaches the streaming endpoint until
// Handshake.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	switch {
	case opts.Org == nil:
		return nil, &domain.MissingArgError{Which: "org"}
	case opts.APIVersion == "":
		return nil, &domain.MissingArgError{Which: "apiVersion"}
	case opts.Channel == "":
		return nil, &domain.MissingArgError{Which: "channel"}
	case opts.StreamProcessor == nil:
		return nil, &domain.MissingArgError{Which: "streamProcessor"}
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = domain.DefaultHandshakeTimeout
	}
	if opts.SubscribeTimeout <= 0 {
		opts.SubscribeTimeout = domain.DefaultSubscribeTimeout
	}
	if opts.ReplayID == 0 {
		opts.ReplayID = ReplayNew
	}

	if err := opts.Org.RefreshAuth(ctx); err != nil {
		return nil, err
	}
	conn := opts.Org.Connection()
	if conn == nil {
		return nil, &domain.MissingArgError{Which: "connection"}
	}
	connOpts := conn.ConnectionOptions()
	if len(connOpts.AccessToken) < minAccessTokenLength {
		return nil, domain.ErrMissingOrInvalidAccessToken
	}
	if connOpts.InstanceURL == "" {
		return nil, &domain.MissingArgError{Which: "instanceUrl"}
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	client := &http.Client{Jar: jar}
	if opts.HTTPClient != nil {
		client.Transport = opts.HTTPClient.Transport
		client.Timeout = opts.HTTPClient.Timeout
	}

	endpoint := strings.TrimRight(connOpts.InstanceURL, "/") + "/cometd/" + opts.APIVersion
	streamLog.Debug("endpoint %s, channel %s", endpoint, opts.Channel)

	return &Client{
		opts:     opts,
		endpoint: endpoint,
		http:     client,
		pacer:    newPacer(),
		state:    StateIdle,
	}, nil
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

// transition moves from one state to another, failing otherwise.
func (c *Client) transition(from, to State) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != from {
		return fmt.Errorf("%w: streaming client is %s, not %s", domain.ErrInvalidInput, c.state, from)
	}
	c.state = to
	return nil
}

func (c *Client) currentClientID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clientID
}

// Handshake negotiates a Bayeux session. If no response arrives within
// the handshake timeout the transport is torn down and a HANDSHAKE
// timeout error is returned.
func (c *Client) Handshake(ctx context.Context) (State, error) {
	if err := c.transition(StateIdle, StateHandshaking); err != nil {
		return c.State(), err
	}

	reqCtx, abort := context.WithCancel(ctx)
	defer abort()

	timer := time.NewTimer(c.opts.HandshakeTimeout)
	defer timer.Stop()

	done := make(chan error, 1)
	go func() { done <- c.handshake(reqCtx) }()

	select {
	case err := <-done:
		if err != nil {
			c.setState(StateFailed)
			return StateFailed, err
		}
		c.setState(StateHandshaken)
		return StateHandshaken, nil
	case <-timer.C:
		streamLog.Warn("handshake timed out after %s", c.opts.HandshakeTimeout)
		if c.currentClientID() == "" {
			abort()
			c.setState(StateDisconnected)
		} else {
			c.Disconnect(context.Background())
		}
		return StateDisconnected, &domain.StreamingTimeoutError{Phase: domain.PhaseHandshake}
	case <-ctx.Done():
		c.setState(StateFailed)
		return StateFailed, ctx.Err()
	}
}

func (c *Client) handshake(ctx context.Context) error {
	streamLog.Debug("handshake")
	replies, err := c.send(ctx, Message{
		Channel:                  channelHandshake,
		Version:                  bayeuxVersion,
		MinimumVersion:           bayeuxVersion,
		SupportedConnectionTypes: []string{connectionType},
		Ext:                      map[string]any{"replay": true},
	})
	if err != nil {
		return err
	}

	reply, ok := find(replies, channelHandshake)
	if !ok {
		return errors.New("handshake: no reply")
	}
	if !reply.OK() {
		return fmt.Errorf("handshake: %s", reply.Error)
	}
	if reply.ClientID == "" {
		return errors.New("handshake: no client id")
	}

	c.mu.Lock()
	c.clientID = reply.ClientID
	c.mu.Unlock()
	if reply.Advice != nil {
		c.pacer.Advise(reply.Advice.Interval)
	}
	streamLog.Debug("handshake complete, client %s", reply.ClientID)
	return nil
}

type outcome struct {
	payload any
	err     error
	// processorErr marks errors that leave the transport connected.
	processorErr bool
}

// Subscribe registers the channel, calls streamInit once registration is
// acknowledged, then feeds every event on the channel to the stream
// processor until it reports completion. Completion disconnects and
// returns the processor's payload. A processor error is returned without
// disconnecting. The subscribe timeout covers registration and waiting.
func (c *Client) Subscribe(ctx context.Context, streamInit func(ctx context.Context) error) (any, error) {
	if err := c.transition(StateHandshaken, StateSubscribing); err != nil {
		return nil, err
	}

	loopCtx, stop := context.WithCancel(ctx)
	defer stop()
	c.mu.Lock()
	c.stopLoop = stop
	c.mu.Unlock()

	timer := time.NewTimer(c.opts.SubscribeTimeout)
	defer timer.Stop()

	done := make(chan outcome, 1)
	go func() { done <- c.run(loopCtx, streamInit) }()

	select {
	case res := <-done:
		switch {
		case res.err == nil:
			c.Disconnect(context.Background())
			return res.payload, nil
		case res.processorErr:
			c.setState(StateFailed)
			return nil, res.err
		default:
			stop()
			c.setState(StateFailed)
			return nil, res.err
		}
	case <-timer.C:
		streamLog.Warn("subscribe to %s timed out after %s", c.opts.Channel, c.opts.SubscribeTimeout)
		c.Disconnect(context.Background())
		return nil, &domain.StreamingTimeoutError{Phase: domain.PhaseSubscribe}
	case <-ctx.Done():
		c.Disconnect(context.Background())
		return nil, ctx.Err()
	}
}

// run subscribes and then long-polls /meta/connect.
func (c *Client) run(ctx context.Context, streamInit func(ctx context.Context) error) outcome {
	pending, err := c.subscribe(ctx)
	if err != nil {
		return outcome{err: err}
	}

	if streamInit != nil {
		if err := streamInit(ctx); err != nil {
			return outcome{err: fmt.Errorf("stream init: %w", err), processorErr: true}
		}
	}

	for {
		for _, msg := range pending {
			if res, handled := c.deliver(msg); handled {
				return res
			}
		}

		if err := c.pacer.Wait(ctx); err != nil {
			return outcome{err: err}
		}
		streamLog.Debug("connect")
		replies, err := c.send(ctx, Message{
			Channel:        channelConnect,
			ClientID:       c.currentClientID(),
			ConnectionType: connectionType,
		})
		if err != nil {
			return outcome{err: err}
		}
		if err := c.checkConnect(replies); err != nil {
			return outcome{err: err}
		}
		pending = replies
	}
}

func (c *Client) subscribe(ctx context.Context) ([]Message, error) {
	streamLog.Debug("subscribe %s (replay %d)", c.opts.Channel, c.opts.ReplayID)
	replies, err := c.send(ctx, Message{
		Channel:      channelSubscribe,
		ClientID:     c.currentClientID(),
		Subscription: c.opts.Channel,
		Ext: map[string]any{
			"replay": map[string]int64{c.opts.Channel: c.opts.ReplayID},
		},
	})
	if err != nil {
		return nil, err
	}

	reply, ok := find(replies, channelSubscribe)
	if !ok {
		return nil, fmt.Errorf("subscribe %s: no reply", c.opts.Channel)
	}
	if !reply.OK() {
		return nil, fmt.Errorf("subscribe %s: %s", c.opts.Channel, reply.Error)
	}

	var rest []Message
	for _, msg := range replies {
		if msg.Channel != channelSubscribe {
			rest = append(rest, msg)
		}
	}
	return rest, nil
}

// checkConnect applies the advice of a /meta/connect reply.
func (c *Client) checkConnect(replies []Message) error {
	reply, ok := find(replies, channelConnect)
	if !ok {
		return nil
	}
	if reply.Advice != nil {
		c.pacer.Advise(reply.Advice.Interval)
		switch reply.Advice.Reconnect {
		case ReconnectNone:
			return fmt.Errorf("connect: server advised no reconnect: %s", reply.Error)
		case ReconnectHandshake:
			return fmt.Errorf("connect: session lost, server requested a new handshake: %s", reply.Error)
		}
	}
	if !reply.OK() {
		return fmt.Errorf("connect: %s", reply.Error)
	}
	return nil
}

// deliver passes a channel event to the processor. handled is false for
// meta messages and events on other channels.
func (c *Client) deliver(msg Message) (outcome, bool) {
	if msg.Channel != c.opts.Channel {
		return outcome{}, false
	}
	res, err := c.opts.StreamProcessor(msg)
	if err != nil {
		return outcome{err: err, processorErr: true}, true
	}
	if !res.Completed {
		return outcome{}, false
	}
	return outcome{payload: res.Payload}, true
}

// Disconnect ends the Bayeux session and stops the connect loop. It is
// safe to call more than once.
func (c *Client) Disconnect(ctx context.Context) {
	c.mu.Lock()
	clientID := c.clientID
	stop := c.stopLoop
	c.clientID = ""
	c.stopLoop = nil
	c.state = StateDisconnected
	c.mu.Unlock()

	if stop != nil {
		stop()
	}
	if clientID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, disconnectTimeout)
	defer cancel()
	streamLog.Debug("disconnect")
	if _, err := c.send(ctx, Message{Channel: channelDisconnect, ClientID: clientID}); err != nil {
		streamLog.Warn("disconnect: %v", err)
	}
}

// send posts one message and returns the server's replies.
func (c *Client) send(ctx context.Context, msg Message) ([]Message, error) {
	msg.ID = uuid.NewString()
	body, err := json.Marshal([]Message{msg})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", msg.Channel, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", msg.Channel, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "OAuth "+c.opts.Org.Connection().ConnectionOptions().AccessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", msg.Channel, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%s: %w", msg.Channel, domain.ErrMissingOrInvalidAccessToken)
	}
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("%s: status %d: %s", msg.Channel, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var replies []Message
	if err := json.NewDecoder(resp.Body).Decode(&replies); err != nil {
		return nil, fmt.Errorf("decode %s reply: %w", msg.Channel, err)
	}
	for _, reply := range replies {
		streamLog.Debug("incoming %s %s", reply.Channel, reply.Data)
	}
	return replies, nil
}

func find(msgs []Message, channel string) (Message, bool) {
	for _, msg := range msgs {
		if msg.Channel == channel {
			return msg, true
		}
	}
	return Message{}, false
}

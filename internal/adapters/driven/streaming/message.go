package streaming

import "encoding/json"

// Bayeux meta channels.
const (
	channelHandshake  = "/meta/handshake"
	channelConnect    = "/meta/connect"
	channelSubscribe  = "/meta/subscribe"
	channelDisconnect = "/meta/disconnect"
)

const (
	bayeuxVersion  = "1.0"
	connectionType = "long-polling"
)

// Reconnect advice values.
const (
	ReconnectRetry     = "retry"
	ReconnectHandshake = "handshake"
	ReconnectNone      = "none"
)

// Replay positions for the replay extension.
const (
	// ReplayNew receives only events published after subscribing.
	ReplayNew int64 = -1
	// ReplayAll receives every event still retained by the platform.
	ReplayAll int64 = -2
)

// Advice is the server's reconnect guidance. Durations are milliseconds.
type Advice struct {
	Reconnect string `json:"reconnect,omitempty"`
	Interval  int    `json:"interval,omitempty"`
	Timeout   int    `json:"timeout,omitempty"`
}

// Message is one Bayeux message in either direction.
type Message struct {
	Channel                  string          `json:"channel"`
	ID                       string          `json:"id,omitempty"`
	ClientID                 string          `json:"clientId,omitempty"`
	Version                  string          `json:"version,omitempty"`
	MinimumVersion           string          `json:"minimumVersion,omitempty"`
	SupportedConnectionTypes []string        `json:"supportedConnectionTypes,omitempty"`
	ConnectionType           string          `json:"connectionType,omitempty"`
	Subscription             string          `json:"subscription,omitempty"`
	Successful               *bool           `json:"successful,omitempty"`
	Error                    string          `json:"error,omitempty"`
	Advice                   *Advice         `json:"advice,omitempty"`
	Ext                      map[string]any  `json:"ext,omitempty"`
	Data                     json.RawMessage `json:"data,omitempty"`
}

// OK reports whether a meta response succeeded.
func (m Message) OK() bool {
	return m.Successful != nil && *m.Successful
}

// StatusResult is a stream processor's verdict on one message.
type StatusResult struct {
	// Completed ends the subscription.
	Completed bool
	// Payload is returned from Subscribe when Completed is set.
	Payload any
}

// StreamProcessor inspects each event delivered on the channel. An
// error ends the subscription without disconnecting.
type StreamProcessor func(msg Message) (StatusResult, error)

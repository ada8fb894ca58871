package cli

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalandres/sfdx-core/internal/adapters/driven/streaming"
	"github.com/catalandres/sfdx-core/internal/core/domain"
)

const testChannel = "/event/Order_Placed__e"

// fakeCometD answers every Bayeux meta channel and publishes one event
// per /meta/connect.
type fakeCometD struct {
	mu       sync.Mutex
	channels []string
	replay   any
}

func (f *fakeCometD) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var msgs []map[string]any
	if err := json.NewDecoder(r.Body).Decode(&msgs); err != nil || len(msgs) == 0 {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	channel, _ := msgs[0]["channel"].(string)

	f.mu.Lock()
	f.channels = append(f.channels, channel)
	connects := 0
	for _, c := range f.channels {
		if c == "/meta/connect" {
			connects++
		}
	}
	if channel == "/meta/subscribe" {
		f.replay = msgs[0]["ext"]
	}
	f.mu.Unlock()

	var reply []map[string]any
	switch channel {
	case "/meta/handshake":
		reply = []map[string]any{{"channel": channel, "successful": true, "clientId": "client-1", "version": "1.0"}}
	case "/meta/subscribe":
		reply = []map[string]any{{"channel": channel, "successful": true, "subscription": msgs[0]["subscription"]}}
	case "/meta/connect":
		reply = []map[string]any{
			{"channel": channel, "successful": true},
			{"channel": testChannel, "data": map[string]any{"payload": map[string]any{"n": connects}}},
		}
	default:
		reply = []map[string]any{{"channel": channel, "successful": true}}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(reply)
}

func (f *fakeCometD) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.channels...)
}

func TestStreamListenCmd(t *testing.T) {
	s := setupTestServices(t)
	cometd := &fakeCometD{}
	server := httptest.NewServer(cometd)
	defer server.Close()
	s.instanceURL = server.URL
	s.storeRecord(t, testUsername, testOrgID, testAccessToken)

	out, err := execute(t, "", "stream", "listen", "-u", testUsername,
		"--channel", testChannel, "--count", "2", "--api-version", "60.0", "--replay", "-2")

	require.NoError(t, err)
	assert.Contains(t, out, "Listening on "+testChannel+" (api 60.0)")
	assert.Contains(t, out, `{"channel":"/event/Order_Placed__e","data":{"payload":{"n":1}}}`)
	assert.Contains(t, out, `{"channel":"/event/Order_Placed__e","data":{"payload":{"n":2}}}`)
	assert.Contains(t, out, "Received 2 event(s)")

	assert.Equal(t, []string{"/meta/handshake", "/meta/subscribe", "/meta/connect", "/meta/connect", "/meta/disconnect"},
		cometd.seen())
	assert.Equal(t, map[string]any{"replay": map[string]any{testChannel: float64(streaming.ReplayAll)}}, cometd.replay)
}

func TestStreamListenCmd_APIVersionFromConfig(t *testing.T) {
	s := setupTestServices(t)
	paths := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case paths <- r.URL.Path:
		default:
		}
		http.Error(w, "gone", http.StatusGone)
	}))
	defer server.Close()
	s.instanceURL = server.URL
	s.storeRecord(t, testUsername, testOrgID, testAccessToken)
	_, err := execute(t, "", "config", "set", "apiVersion=58.0")
	require.NoError(t, err)

	_, err = execute(t, "", "stream", "listen", "-u", testUsername, "-c", testChannel)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "handshake failed")
	assert.Equal(t, "/cometd/58.0", <-paths)
}

func TestStreamListenCmd_MissingChannel(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, "", "stream", "listen", "-u", testUsername)

	var missing *domain.MissingArgError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "channel", missing.Which)
}

func TestFormatEvent(t *testing.T) {
	msg := streaming.Message{Channel: testChannel, Data: json.RawMessage(`{"a":1}`)}
	assert.Equal(t, `{"channel":"/event/Order_Placed__e","data":{"a":1}}`, formatEvent(msg))

	assert.Equal(t, `{"channel":"/topic/x"}`, formatEvent(streaming.Message{Channel: "/topic/x"}))
}

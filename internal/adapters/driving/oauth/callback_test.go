//nolint:noctx // Test file uses http.Get for convenience; context not required in tests
package oauth

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, state string) *CallbackServer {
	t.Helper()
	server, err := NewCallbackServer("http://localhost:0/OauthRedirect", state)
	require.NoError(t, err)
	require.NoError(t, server.Start())
	t.Cleanup(func() { _ = server.Stop() })
	return server
}

func callback(t *testing.T, server *CallbackServer, query url.Values) string {
	t.Helper()
	resp, err := http.Get(server.RedirectURI() + "?" + query.Encode())
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html", resp.Header.Get("Content-Type"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestNewCallbackServer(t *testing.T) {
	server, err := NewCallbackServer("http://localhost:1717/OauthRedirect", "test-state-123")

	require.NoError(t, err)
	assert.Equal(t, 1717, server.Port())
	assert.Equal(t, "/OauthRedirect", server.path)
	assert.Equal(t, "test-state-123", server.expectedState)
	assert.Equal(t, "http://localhost:1717/OauthRedirect", server.RedirectURI())
	assert.Nil(t, server.server)
}

func TestNewCallbackServer_DefaultsPath(t *testing.T) {
	server, err := NewCallbackServer("http://localhost:1717", "s")

	require.NoError(t, err)
	assert.Equal(t, "/", server.path)
}

func TestNewCallbackServer_BadURI(t *testing.T) {
	_, err := NewCallbackServer("http://localhost:abc/cb", "s")
	assert.Error(t, err)
}

func TestCallbackServer_Start_PicksPort(t *testing.T) {
	server := startServer(t, "s")

	assert.NotZero(t, server.Port())
	assert.Equal(t, fmt.Sprintf("http://localhost:%d/OauthRedirect", server.Port()), server.RedirectURI())
}

func TestCallbackServer_Start_PortInUse(t *testing.T) {
	first := startServer(t, "s")

	second, err := NewCallbackServer(first.RedirectURI(), "s")
	require.NoError(t, err)
	err = second.Start()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to listen")
}

func TestCallbackServer_Stop(t *testing.T) {
	server, err := NewCallbackServer("http://localhost:0/cb", "s")
	require.NoError(t, err)

	require.NoError(t, server.Stop(), "stopping before start is harmless")
	require.NoError(t, server.Start())
	require.NoError(t, server.Stop())
	require.NoError(t, server.Stop())
}

func TestCallbackServer_StopRightAfterStart(t *testing.T) {
	for i := 0; i < 20; i++ {
		server, err := NewCallbackServer("http://localhost:0/cb", "s")
		require.NoError(t, err)
		require.NoError(t, server.Start())
		port := server.Port()
		require.NoError(t, server.Stop())

		listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		require.NoError(t, err, "port %d still held after Stop", port)
		require.NoError(t, listener.Close())
	}
}

func TestCallbackServer_Success(t *testing.T) {
	server := startServer(t, "state-abc")

	body := callback(t, server, url.Values{"code": {"code-xyz"}, "state": {"state-abc"}})
	assert.Contains(t, body, "Authorization successful!")

	code, err := server.WaitForCode(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, "code-xyz", code)
}

func TestCallbackServer_Failures(t *testing.T) {
	tests := []struct {
		name    string
		query   url.Values
		wantErr string
	}{
		{
			name:    "state mismatch",
			query:   url.Values{"code": {"c"}, "state": {"wrong"}},
			wantErr: "state mismatch",
		},
		{
			name:    "state is case sensitive",
			query:   url.Values{"code": {"c"}, "state": {"EXPECTED"}},
			wantErr: "state mismatch",
		},
		{
			name:    "missing code",
			query:   url.Values{"state": {"expected"}},
			wantErr: "no authorization code",
		},
		{
			name:    "provider error",
			query:   url.Values{"error": {"access_denied"}, "error_description": {"end-user denied <b>authorization</b>"}},
			wantErr: "access_denied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := startServer(t, "expected")

			body := callback(t, server, tt.query)
			assert.Contains(t, body, "Authorization failed")
			assert.NotContains(t, body, "<b>")

			_, err := server.WaitForCode(context.Background(), time.Second)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCallbackServer_WaitForCode_Timeout(t *testing.T) {
	server := startServer(t, "s")

	_, err := server.WaitForCode(context.Background(), 20*time.Millisecond)
	assert.ErrorIs(t, err, ErrCallbackTimeout)
}

func TestCallbackServer_WaitForCode_Cancelled(t *testing.T) {
	server := startServer(t, "s")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := server.WaitForCode(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCallbackServer_OtherPath(t *testing.T) {
	server := startServer(t, "s")

	resp, err := http.Get(fmt.Sprintf("http://localhost:%d/other", server.Port()))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestResultHTML_Escapes(t *testing.T) {
	out := resultHTML(`<script>alert("x")</script>`, "a & b")

	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "&lt;script&gt;")
	assert.Contains(t, out, "a &amp; b")
}

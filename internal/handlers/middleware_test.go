package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signalsQuery(t *testing.T, signals map[string]any) string {
	t.Helper()
	raw, err := json.Marshal(signals)
	require.NoError(t, err)
	return "datastar=" + url.QueryEscape(string(raw))
}

func TestCheckStreamQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		rule  string
	}{
		{"empty", "", ""},
		{"empty signals", "datastar=", ""},
		{"player signals", "datastar=" + url.QueryEscape(`{"playerId":"p1","numbers":[4,5]}`), ""},
		{"pushed signals echoed back", "datastar=" + url.QueryEscape(`{"connected":true,"room":{},"game":null}`), ""},
		{"unknown parameter", "room=ABC123", "query"},
		{"malformed query", "datastar=%zz", "query"},
		{"repeated datastar", "datastar=%7B%7D&datastar=%7B%7D", "signals"},
		{"not json", "datastar=hello", "signals"},
		{"json array", "datastar=" + url.QueryEscape(`[1,2]`), "signals"},
		{"unknown signal", "datastar=" + url.QueryEscape(`{"playerId":"p1","secret":10}`), "signals"},
		{"oversized payload", "datastar=" + url.QueryEscape(`{"numbers":"`+strings.Repeat("1", maxSignalPayload)+`"}`), "signals"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkStreamQuery(tt.query)
			if tt.rule == "" {
				assert.NoError(t, err)
				return
			}
			_, body := statusFor(err)
			assert.Equal(t, "validation", body.Kind)
			assert.Equal(t, tt.rule, body.Rule)
		})
	}
}

// serveStream runs a stream request until ctx expires and returns the recording.
func serveStream(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil).WithContext(ctx))
	return rec
}

func TestRoomStreamSignals(t *testing.T) {
	ts := newTestServer(t, nil)

	created, err := ts.service.CreateRoom("Alice", 2, "")
	require.NoError(t, err)
	path := "/sse/rooms/" + created.Room.ID

	t.Run("player signals are accepted", func(t *testing.T) {
		rec := serveStream(t, ts.router, path+"?"+signalsQuery(t, map[string]any{
			"playerId": created.Player.ID,
			"numbers":  []int{1, 2},
		}))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/event-stream")
		assert.Contains(t, rec.Body.String(), `"connected":true`)
		assert.Contains(t, rec.Body.String(), created.Room.ID)
	})

	t.Run("unknown signal is rejected", func(t *testing.T) {
		rec := serveStream(t, ts.router, path+"?"+signalsQuery(t, map[string]any{
			"playerId": created.Player.ID,
			"secret":   10,
		}))
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var resp errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "signals", resp.Error.Rule)
		assert.Contains(t, resp.Error.Message, "secret")
	})

	t.Run("extra parameter is rejected", func(t *testing.T) {
		rec := serveStream(t, ts.router, path+"?playerId="+created.Player.ID)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("oversized query", func(t *testing.T) {
		rec := serveStream(t, ts.router, path+"?datastar="+strings.Repeat("a", maxStreamQuery))
		assert.Equal(t, http.StatusRequestURITooLong, rec.Code)
	})

	t.Run("validation runs before the room lookup", func(t *testing.T) {
		rec := serveStream(t, ts.router, "/sse/rooms/NOPE00?bogus=1")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"ultimatecode/internal/game"
)

const (
	maxStreamQuery   = 10000
	maxSignalPayload = 8192
)

// streamSignals are the datastar signal names a stream client may echo back.
var streamSignals = map[string]bool{
	"connected": true,
	"event":     true,
	"rooms":     true,
	"room":      true,
	"game":      true,
	"closed":    true,
	"theme":     true,
	"playerId":  true,
	"numbers":   true,
}

// ValidateSSERequest rejects stream requests carrying anything but a
// well-formed datastar signal payload.
func ValidateSSERequest(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if len(r.URL.RawQuery) > maxStreamQuery {
			writeJSON(w, http.StatusRequestURITooLong, errorResponse{Error: errorBody{
				Kind: string(game.KindValidation), Rule: "query", Message: "query string too large",
			}})
			return
		}
		if err := checkStreamQuery(r.URL.RawQuery); err != nil {
			status, body := statusFor(err)
			writeJSON(w, status, errorResponse{Error: body})
			return
		}
		next(w, r)
	}
}

func checkStreamQuery(raw string) error {
	params, err := url.ParseQuery(raw)
	if err != nil {
		return streamError("query", "invalid query parameters")
	}

	for key, values := range params {
		if key != "datastar" {
			return streamError("query", fmt.Sprintf("unexpected parameter %q", key))
		}
		if len(values) != 1 {
			return streamError("signals", "datastar must be given once")
		}
		if err := checkSignals(values[0]); err != nil {
			return err
		}
	}
	return nil
}

func checkSignals(payload string) error {
	if payload == "" {
		return nil
	}
	if len(payload) > maxSignalPayload {
		return streamError("signals", "signal payload too large")
	}

	var signals map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &signals); err != nil {
		return streamError("signals", "signal payload is not a JSON object")
	}
	for name := range signals {
		if !streamSignals[name] {
			return streamError("signals", fmt.Sprintf("unknown signal %q", name))
		}
	}
	return nil
}

func streamError(rule, msg string) error {
	return &game.Error{Kind: game.KindValidation, Rule: rule, Message: msg}
}

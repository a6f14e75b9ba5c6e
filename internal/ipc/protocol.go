// Package ipc carries navigation requests from a second process (the CLI or
// a relaunched app) to the running instance. Each connection carries one
// newline-terminated JSON request and one newline-terminated JSON response.
package ipc

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"trayhop/internal/userutil"
)

// StatusAction asks for the current page and visibility without changing
// anything. Every other action name is a hotkeys.Action config name.
const StatusAction = "status"

// endpointEnv names the environment variable that overrides DefaultEndpoint.
const endpointEnv = "TRAYHOP_IPC"

// Request is one navigation request.
type Request struct {
	Action string `json:"action"`
	Source string `json:"source,omitempty"`
}

// Response reports the outcome of a Request. Page and Visible describe the
// state after the request ran.
type Response struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Changed bool   `json:"changed,omitempty"`
	Page    string `json:"page,omitempty"`
	Visible *bool  `json:"visible,omitempty"`
}

// Executor handles one request and returns its response.
type Executor interface {
	Execute(req Request) Response
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(req Request) Response

// Execute implements Executor.
func (f ExecutorFunc) Execute(req Request) Response { return f(req) }

// ErrorResponse builds a failed Response.
func ErrorResponse(format string, args ...any) Response {
	return Response{Error: fmt.Sprintf(format, args...)}
}

// DefaultEndpoint returns the endpoint to use. A trusted TRAYHOP_IPC value
// wins; otherwise a per-user default is built from the current username.
func DefaultEndpoint() string {
	if v, ok := trustedEndpointFromEnv(); ok {
		return v
	}
	return defaultEndpointFor(userutil.CurrentUsername())
}

func trustedEndpointFromEnv() (string, bool) {
	value := strings.TrimSpace(os.Getenv(endpointEnv))
	if value == "" {
		return "", false
	}
	if !endpointAllowed(value) {
		slog.Warn("[ipc] "+endpointEnv+" rejected: value does not match allowed pattern", "value", value)
		return "", false
	}
	return value, true
}

func encodeRequest(req Request) ([]byte, error) {
	return json.Marshal(req)
}

func decodeRequest(raw []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return Request{}, err
	}
	req.Action = strings.TrimSpace(req.Action)
	if req.Action == "" {
		return Request{}, errors.New("action is required")
	}
	return req, nil
}

func encodeResponse(resp Response) ([]byte, error) {
	return json.Marshal(resp)
}

func decodeResponse(raw []byte) (Response, error) {
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Response{}, err
	}
	return resp, nil
}

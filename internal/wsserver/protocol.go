// Package wsserver carries input from the webview to the backend and pushes
// navigation state back over a single localhost WebSocket connection.
//
// # Message protocol
//
// All frames are JSON text frames with a "type" discriminator.
//
// Client to server:
//
//	{"type":"scroll","deltaX":-12.5,"deltaY":0.4,"phase":"changed","momentumPhase":"none","synthetic":false}
//	{"type":"resize","width":360}
//	{"type":"action","action":"next-page"}
//
// Server to client:
//
//	{"type":"navigation","payload":{...}}
//	{"type":"error","message":"..."}
package wsserver

import (
	"encoding/json"
	"fmt"
	"math"

	"trayhop/internal/gesture"
	"trayhop/internal/hotkeys"
)

// Client message types.
const (
	TypeScroll = "scroll"
	TypeResize = "resize"
	TypeAction = "action"
)

// Server message types.
const (
	TypeNavigation = "navigation"
	TypeError      = "error"
)

// ClientMessage is one decoded client frame. Only the fields for Type are set.
type ClientMessage struct {
	Type   string
	Scroll gesture.Event
	Width  float64
	Action hotkeys.Action
}

type rawClientMessage struct {
	Type          string        `json:"type"`
	DeltaX        float64       `json:"deltaX"`
	DeltaY        float64       `json:"deltaY"`
	Phase         gesture.Phase `json:"phase"`
	MomentumPhase gesture.Phase `json:"momentumPhase"`
	Synthetic     bool          `json:"synthetic"`
	Width         *float64      `json:"width"`
	Action        string        `json:"action"`
}

// DecodeClientMessage parses and validates a client frame.
func DecodeClientMessage(data []byte) (ClientMessage, error) {
	var raw rawClientMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return ClientMessage{}, fmt.Errorf("wsserver: decode: %w", err)
	}

	msg := ClientMessage{Type: raw.Type}
	switch raw.Type {
	case TypeScroll:
		if !finite(raw.DeltaX) || !finite(raw.DeltaY) {
			return ClientMessage{}, fmt.Errorf("wsserver: scroll delta must be finite")
		}
		msg.Scroll = gesture.Event{
			DeltaX:        raw.DeltaX,
			DeltaY:        raw.DeltaY,
			Phase:         raw.Phase,
			MomentumPhase: raw.MomentumPhase,
			Synthetic:     raw.Synthetic,
		}
	case TypeResize:
		if raw.Width == nil || !finite(*raw.Width) || *raw.Width < 0 {
			return ClientMessage{}, fmt.Errorf("wsserver: resize requires a non-negative width")
		}
		msg.Width = *raw.Width
	case TypeAction:
		action, err := hotkeys.ParseAction(raw.Action)
		if err != nil {
			return ClientMessage{}, fmt.Errorf("wsserver: %w", err)
		}
		msg.Action = action
	case "":
		return ClientMessage{}, fmt.Errorf("wsserver: message type missing")
	default:
		return ClientMessage{}, fmt.Errorf("wsserver: unknown message type %q", raw.Type)
	}
	return msg, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

type serverMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
	Message string `json:"message,omitempty"`
}

// EncodeServerMessage builds a server frame of the given type around payload.
func EncodeServerMessage(msgType string, payload any) ([]byte, error) {
	if msgType == "" {
		return nil, fmt.Errorf("wsserver: encode: type must not be empty")
	}
	return json.Marshal(serverMessage{Type: msgType, Payload: payload})
}

func encodeError(message string) ([]byte, error) {
	return json.Marshal(serverMessage{Type: TypeError, Message: message})
}

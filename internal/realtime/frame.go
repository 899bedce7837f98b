package realtime

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Frame types that are not domain events.
const (
	frameJoinTask   = "join:task"
	frameLeaveTask  = "leave:task"
	frameTaskUpdate = "task:update"
	frameComment    = "task:comment"
	frameTyping     = "task:typing"
	framePing       = "ping"
	framePong       = "pong"
	frameError      = "error"
)

var errMissingTaskID = errors.New("missing taskId")

// outbound is the envelope of every frame sent to a client.
type outbound struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// inbound is the envelope of every frame received from a client. Data is
// decoded by the handler registered for Type.
type inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func encodeFrame(typ string, data any) ([]byte, error) {
	b, err := json.Marshal(outbound{Type: typ, Data: data})
	if err != nil {
		return nil, fmt.Errorf("encode %s frame: %w", typ, err)
	}
	return b, nil
}

// errorFrame encodes an error frame. The payload is a plain string so this
// cannot fail.
func errorFrame(message string) []byte {
	b, _ := encodeFrame(frameError, errorPayload{Message: message})
	return b
}

func decodeFrame(raw []byte) (inbound, error) {
	var in inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		return inbound{}, fmt.Errorf("decode frame: %w", err)
	}
	if in.Type == "" {
		return inbound{}, errors.New("decode frame: missing type")
	}
	return in, nil
}

// taskIDFrom extracts a task identifier from a frame payload. Clients send
// either the bare id ("42" or 42) or an object carrying taskId.
func taskIDFrom(data json.RawMessage) (string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return "", errMissingTaskID
	}
	switch data[0] {
	case '{':
		var obj struct {
			TaskID json.RawMessage `json:"taskId"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return "", fmt.Errorf("decode taskId: %w", err)
		}
		obj.TaskID = bytes.TrimSpace(obj.TaskID)
		if len(obj.TaskID) == 0 || obj.TaskID[0] == '{' {
			return "", errMissingTaskID
		}
		return taskIDFrom(obj.TaskID)
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", fmt.Errorf("decode taskId: %w", err)
		}
		if s == "" {
			return "", errMissingTaskID
		}
		return s, nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return "", fmt.Errorf("decode taskId: %w", err)
		}
		return n.String(), nil
	}
}

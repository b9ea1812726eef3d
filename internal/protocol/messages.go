package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeClientQuery    MessageType = "client_query"
	TypeClientReset    MessageType = "client_reset"
	TypeAssistantReply MessageType = "assistant_reply"
	TypeSystemEvent    MessageType = "system_event"
	TypeErrorEvent     MessageType = "error_event"
)

// System event codes.
const (
	CodeSessionReady      = "session_ready"
	CodeConversationReset = "conversation_reset"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

type ClientQuery struct {
	Type  MessageType `json:"type"`
	Query string      `json:"query"`
	TSMs  int64       `json:"ts_ms,omitempty"`
}

type ClientReset struct {
	Type MessageType `json:"type"`
}

type AssistantReply struct {
	Type      MessageType `json:"type"`
	UserID    string      `json:"user_id"`
	TurnID    string      `json:"turn_id"`
	Text      string      `json:"text"`
	Intents   []string    `json:"intents"`
	Product   string      `json:"product,omitempty"`
	Timestamp string      `json:"timestamp"`
}

type SystemEvent struct {
	Type   MessageType `json:"type"`
	UserID string      `json:"user_id"`
	Code   string      `json:"code"`
	Detail string      `json:"detail,omitempty"`
}

type ErrorEvent struct {
	Type      MessageType `json:"type"`
	UserID    string      `json:"user_id"`
	Code      string      `json:"code"`
	Source    string      `json:"source"`
	Retryable bool        `json:"retryable"`
	Detail    string      `json:"detail"`
}

func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeClientQuery:
		var msg ClientQuery
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if strings.TrimSpace(msg.Query) == "" {
			return nil, errors.New("invalid client_query")
		}
		return msg, nil
	case TypeClientReset:
		return ClientReset{Type: TypeClientReset}, nil
	default:
		return nil, ErrUnsupportedType
	}
}

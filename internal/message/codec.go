package message

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/bytedance/sonic"
)

var (
	jsonNull        = []byte("null")
	errMissingField = errors.New("missing required field")
)

// wire is the codec shared by inbound and outbound frames. Outbound events
// travel as websocket text frames, so every string it writes must be UTF-8.
var wire = sonic.Config{
	ValidateString: true,
	CopyString:     true,
}.Froze()

// ParseClient decodes a raw inbound frame into exactly one ClientMessage variant.
func ParseClient(raw []byte) (ClientMessage, error) {
	if !utf8.Valid(raw) {
		return nil, &ParseError{Raw: string(raw), Reason: "payload is not valid UTF-8"}
	}
	var fields map[string]json.RawMessage
	if err := wire.Unmarshal(raw, &fields); err != nil {
		return nil, &ParseError{Raw: string(raw), Reason: "invalid json", Err: err}
	}
	if fields == nil {
		return nil, &ParseError{Raw: string(raw), Reason: "payload is not an object"}
	}

	var tag string
	if err := requireField(fields, "type", &tag); err != nil {
		return nil, &ParseError{Raw: string(raw), Reason: "type", Err: err}
	}

	switch tag {
	case TypeCreateChatMessage:
		var text string
		if err := requireField(fields, "message", &text); err != nil {
			return nil, &ParseError{Raw: string(raw), Reason: "message", Err: err}
		}
		return CreateChatMessage{Message: text}, nil

	case TypeCreateStroke:
		stroke, ok := fields["stroke"]
		if !ok || isNull(stroke) {
			return nil, &ParseError{Raw: string(raw), Reason: "stroke: missing required field"}
		}
		return CreateStroke{Stroke: stroke}, nil

	default:
		return nil, &UnknownTypeError{Type: tag, Raw: string(raw)}
	}
}

func requireField(fields map[string]json.RawMessage, name string, dst *string) error {
	v, ok := fields[name]
	if !ok || isNull(v) {
		return errMissingField
	}
	if err := wire.Unmarshal(v, dst); err != nil {
		return fmt.Errorf("must be a string: %w", err)
	}
	// escaped lone surrogates survive decoding as invalid sequences
	*dst = strings.ToValidUTF8(*dst, string(utf8.RuneError))
	return nil
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), jsonNull)
}

type chatWire struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
}

type strokeWire struct {
	Type   string          `json:"type"`
	Stroke json.RawMessage `json:"stroke"`
}

// Encode serializes an outbound event with its type tag.
func Encode(msg ServerMessage) ([]byte, error) {
	switch m := msg.(type) {
	case ChatMessageCreated:
		return wire.Marshal(chatWire{
			Type:      TypeChatMessageCreated,
			Message:   strings.ToValidUTF8(m.Message, string(utf8.RuneError)),
			SessionID: strings.ToValidUTF8(m.SessionID, string(utf8.RuneError)),
		})
	case StrokeCreated:
		if !utf8.Valid(m.Stroke) {
			return nil, errors.New("encode: stroke is not valid UTF-8")
		}
		return wire.Marshal(strokeWire{Type: TypeStrokeCreated, Stroke: m.Stroke})
	default:
		return nil, fmt.Errorf("encode: unsupported server message %T", msg)
	}
}

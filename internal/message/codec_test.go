package message

import (
	"encoding/json"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClientChatMessage(t *testing.T) {
	msg, err := ParseClient([]byte(`{"type":"create_chat_message","message":"hi"}`))
	require.NoError(t, err)
	assert.Equal(t, CreateChatMessage{Message: "hi"}, msg)
}

func TestParseClientStrokeIsPassedThrough(t *testing.T) {
	msg, err := ParseClient([]byte(`{"type":"create_stroke","stroke":{"points":[[0,1],[2,3]],"color":"#f00"}}`))
	require.NoError(t, err)
	stroke, ok := msg.(CreateStroke)
	require.True(t, ok)
	assert.JSONEq(t, `{"points":[[0,1],[2,3]],"color":"#f00"}`, string(stroke.Stroke))
}

func TestParseClientRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":           `{"type":`,
		"array":              `[1,2,3]`,
		"null":               `null`,
		"missing type":       `{"message":"hi"}`,
		"non-string type":    `{"type":7}`,
		"chat no message":    `{"type":"create_chat_message"}`,
		"chat null message":  `{"type":"create_chat_message","message":null}`,
		"chat numeric body":  `{"type":"create_chat_message","message":12}`,
		"stroke no stroke":   `{"type":"create_stroke"}`,
		"stroke null stroke": `{"type":"create_stroke","stroke":null}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseClient([]byte(raw))
			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, raw, pe.Raw)
		})
	}
}

func TestParseClientRejectsUnknownType(t *testing.T) {
	raw := `{"type":"delete_everything","message":"hi"}`
	_, err := ParseClient([]byte(raw))
	var ue *UnknownTypeError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "delete_everything", ue.Type)
	assert.Equal(t, raw, ue.Raw)
	assert.Contains(t, err.Error(), raw)
}

func TestEncodeChatMessageCarriesOrigin(t *testing.T) {
	b, err := Encode(ChatMessageCreated{Message: "hi", SessionID: "S1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"chat_message_created","message":"hi","sessionId":"S1"}`, string(b))
}

func TestEncodeStrokeHasNoOrigin(t *testing.T) {
	msg := StrokeCreated{Stroke: []byte(`{"x":1}`)}
	assert.Empty(t, msg.Origin())

	b, err := Encode(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"stroke_created","stroke":{"x":1}}`, string(b))
}

func TestParseClientRejectsInvalidUTF8(t *testing.T) {
	raw := "{\"type\":\"create_chat_message\",\"message\":\"a\xff\xfeb\"}"
	_, err := ParseClient([]byte(raw))
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "payload is not valid UTF-8", pe.Reason)
}

func TestParseClientEscapedSurrogateStaysUTF8(t *testing.T) {
	msg, err := ParseClient([]byte(`{"type":"create_chat_message","message":"a\udc00b"}`))
	if err != nil {
		var pe *ParseError
		require.ErrorAs(t, err, &pe)
		return
	}
	chat, ok := msg.(CreateChatMessage)
	require.True(t, ok)
	assert.True(t, utf8.ValidString(chat.Message), "%q", chat.Message)
}

func TestEncodeReplacesInvalidUTF8(t *testing.T) {
	b, err := Encode(ChatMessageCreated{Message: "a\xff\xfeb", SessionID: "S1"})
	require.NoError(t, err)
	require.True(t, utf8.Valid(b), "%q", b)

	var got struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "a\uFFFDb", got.Message)

	_, err = Encode(StrokeCreated{Stroke: []byte("\"\xff\"")})
	assert.Error(t, err)
}

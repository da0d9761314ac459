package protocol_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/messenger/core/protocol"
)

func TestStrings(t *testing.T) {
	t.Parallel()

	t.Run("pack and unpack", func(t *testing.T) {
		t.Parallel()

		packed, err := protocol.PackString("*sys")
		require.NoError(t, err)
		assert.Equal(t, []byte{0x00, 0x04, '*', 's', 'y', 's'}, packed)

		s, n, err := protocol.UnpackString(append(packed, 0xFF))
		require.NoError(t, err)
		assert.Equal(t, "*sys", s)
		assert.Equal(t, 6, n)
	})

	t.Run("unpack short input", func(t *testing.T) {
		t.Parallel()

		_, _, err := protocol.UnpackString([]byte{0x00})
		assert.ErrorIs(t, err, protocol.ErrIncomplete)

		_, _, err = protocol.UnpackString([]byte{0x00, 0x05, 'a'})
		assert.ErrorIs(t, err, protocol.ErrIncomplete)
	})

	t.Run("unpack invalid utf-8", func(t *testing.T) {
		t.Parallel()

		_, _, err := protocol.UnpackString([]byte{0x00, 0x01, 0xFF})
		assert.ErrorIs(t, err, protocol.ErrInvalidUTF8)
	})

	t.Run("read preamble from stream", func(t *testing.T) {
		t.Parallel()

		r := bytes.NewReader(append(protocol.MustPackString("robot"), 0x01, 0x02))
		name, err := protocol.ReadString(r)
		require.NoError(t, err)
		assert.Equal(t, "robot", name)
		assert.Equal(t, 2, r.Len(), "only the preamble is consumed")
	})

	t.Run("read truncated preamble", func(t *testing.T) {
		t.Parallel()

		_, err := protocol.ReadString(bytes.NewReader([]byte{0x00, 0x05, 'r', 'o'}))
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

		_, err = protocol.ReadString(bytes.NewReader(nil))
		assert.ErrorIs(t, err, io.EOF)
	})

	t.Run("read invalid preamble", func(t *testing.T) {
		t.Parallel()

		_, err := protocol.ReadString(bytes.NewReader([]byte{0x00, 0x02, 0xC3, 0x28}))
		assert.ErrorIs(t, err, protocol.ErrInvalidUTF8)
	})
}

func TestParse(t *testing.T) {
	t.Parallel()

	listen, err := protocol.ListenMessage("*sys")
	require.NoError(t, err)
	unlisten, err := protocol.UnlistenMessage("foo")
	require.NoError(t, err)
	data := protocol.Message{Topic: "sys.alert", Payload: []byte("x")}

	tests := []struct {
		name string
		msg  protocol.Message
		want protocol.Command
	}{
		{"heartbeat", protocol.HeartbeatMessage(), protocol.Heartbeat{}},
		{"listen", listen, protocol.Listen{Topic: "*sys"}},
		{"unlisten", unlisten, protocol.Unlisten{Topic: "foo"}},
		{"disconnect", protocol.DisconnectMessage(), protocol.Disconnect{}},
		{"disconnect ignores payload", protocol.Message{Topic: protocol.TopicDisconnect, Payload: []byte("bye")}, protocol.Disconnect{}},
		{"get clients", protocol.Message{Topic: protocol.TopicGetClients}, protocol.GetClients{}},
		{"data", data, protocol.Publish{Message: data}},
		{"reserved names are case-sensitive", protocol.Message{Topic: "_heartbeat"}, protocol.Publish{Message: protocol.Message{Topic: "_heartbeat"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := protocol.Parse(tt.msg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("malformed listen payload", func(t *testing.T) {
		t.Parallel()

		_, err := protocol.Parse(protocol.Message{Topic: protocol.TopicListen, Payload: []byte{0x00, 0x09, 'a'}})
		assert.ErrorIs(t, err, protocol.ErrMalformedControl)
		assert.ErrorIs(t, err, protocol.ErrIncomplete)
	})

	t.Run("malformed unlisten payload", func(t *testing.T) {
		t.Parallel()

		_, err := protocol.Parse(protocol.Message{Topic: protocol.TopicUnlisten, Payload: []byte{0x00, 0x01, 0xFF}})
		assert.ErrorIs(t, err, protocol.ErrMalformedControl)
		assert.ErrorIs(t, err, protocol.ErrInvalidUTF8)
	})
}

func TestClientsMessage(t *testing.T) {
	t.Parallel()

	msg, err := protocol.ClientsMessage([]string{"vision", "dashboard", "robot"})
	require.NoError(t, err)
	assert.Equal(t, protocol.TopicClients, msg.Topic)

	names, err := protocol.ParseClients(msg.Payload)
	require.NoError(t, err)
	assert.Equal(t, []string{"dashboard", "robot", "vision"}, names)

	empty, err := protocol.ClientsMessage(nil)
	require.NoError(t, err)
	names, err = protocol.ParseClients(empty.Payload)
	require.NoError(t, err)
	assert.Empty(t, names)

	_, err = protocol.ParseClients([]byte{0x00, 0x02, 0x00, 0x01, 'a'})
	assert.ErrorIs(t, err, protocol.ErrMalformedControl)
}

func TestEventMessage(t *testing.T) {
	t.Parallel()

	msg, err := protocol.EventMessage("Connected: robot")
	require.NoError(t, err)
	assert.Equal(t, protocol.TopicEvent, msg.Topic)

	text, _, err := protocol.UnpackString(msg.Payload)
	require.NoError(t, err)
	assert.Equal(t, "Connected: robot", text)
}

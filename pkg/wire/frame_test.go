package wire

import (
	"bytes"
	"testing"

	"github.com/cuemby/raftcoord/pkg/raftproto"
	"github.com/stretchr/testify/require"
)

func TestWriteReadFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	want := Frame{
		Kind:      KindRequest,
		Topic:     raftproto.Append,
		ProtoID:   raftproto.ProtocolID,
		SourceURI: "10.0.0.1:7000",
		Payload:   []byte("hello"),
	}
	require.NoError(t, WriteFrame(&buf, GobSerializer{}, want))

	got, err := ReadFrame(&buf, GobSerializer{})
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestReadFrameRejectsOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xFF, 0xFF, 0xFF})
	_, err := ReadFrame(&buf, GobSerializer{})
	require.Error(t, err)
}

func TestGobSerializerRoundTrip(t *testing.T) {
	type payload struct {
		A int
		B string
	}
	s := GobSerializer{}
	b, err := s.Serialize(payload{A: 1, B: "x"})
	require.NoError(t, err)

	var out payload
	require.NoError(t, s.Deserialize(b, &out))
	require.Equal(t, payload{A: 1, B: "x"}, out)
}

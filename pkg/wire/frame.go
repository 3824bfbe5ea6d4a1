package wire

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/cuemby/raftcoord/pkg/raftproto"
)

// Kind distinguishes a request frame from the reply it provoked.
type Kind uint8

const (
	KindRequest Kind = iota
	KindResponse
	KindError
)

// Frame is the unit exchanged over a member endpoint's connection. Topic
// and ProtoID demultiplex it into the right (topic, protocol-id) handler
// slot on the receiving side. SourceURI names the sending peer; the
// receiving registry does not use it for dispatch, which always runs on
// its local endpoint.
type Frame struct {
	Kind      Kind
	Topic     raftproto.Topic
	ProtoID   uint16
	SourceURI string
	Payload   []byte
}

const maxFrameSize = 64 << 20 // 64MiB, generous headroom for snapshot installs

// WriteFrame serializes f with s and writes it to w as a length-prefixed
// block, mirroring the header+codec framing hashicorp/raft's own
// NetworkTransport uses for its RPCs.
func WriteFrame(w io.Writer, s Serializer, f Frame) error {
	body, err := s.Serialize(f)
	if err != nil {
		return fmt.Errorf("wire: encode frame: %w", err)
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(body)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("wire: write length prefix: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("wire: write frame body: %w", err)
	}
	return nil
}

// ReadFrame reads one length-prefixed frame from r and decodes it with s.
func ReadFrame(r io.Reader, s Serializer) (Frame, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return Frame{}, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > maxFrameSize {
		return Frame{}, fmt.Errorf("wire: frame of %d bytes exceeds max %d", n, maxFrameSize)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return Frame{}, fmt.Errorf("wire: read frame body: %w", err)
	}
	var f Frame
	if err := s.Deserialize(body, &f); err != nil {
		return Frame{}, fmt.Errorf("wire: decode frame: %w", err)
	}
	return f, nil
}

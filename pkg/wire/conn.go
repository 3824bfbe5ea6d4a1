package wire

import (
	"bufio"
	"net"
	"sync"

	"github.com/cuemby/raftcoord/pkg/raftproto"
)

// Conn wraps a net.Conn with frame-level read/write and the serializer the
// peer has agreed to use. Writes are serialized with an internal mutex so
// multiple goroutines on the local side may safely share one Conn; a member
// endpoint's executor is expected to be the only writer in practice, but
// the mutex keeps the type safe to reuse outside that assumption too.
type Conn struct {
	raw  net.Conn
	ser  Serializer
	r    *bufio.Reader
	wmu  sync.Mutex
}

// NewConn wraps raw for frame exchange using ser (wire.Default if nil).
func NewConn(raw net.Conn, ser Serializer) *Conn {
	if ser == nil {
		ser = Default
	}
	return &Conn{raw: raw, ser: ser, r: bufio.NewReader(raw)}
}

func (c *Conn) Send(f Frame) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return WriteFrame(c.raw, c.ser, f)
}

func (c *Conn) Recv() (Frame, error) {
	return ReadFrame(c.r, c.ser)
}

func (c *Conn) Close() error {
	return c.raw.Close()
}

func (c *Conn) RemoteAddr() net.Addr { return c.raw.RemoteAddr() }

// Request is a convenience for the common request/response exchange: send
// a KindRequest frame on topic and block for the matching reply. It is the
// caller's job (normally a member endpoint's single-threaded executor) to
// ensure no other goroutine interleaves a Recv on the same Conn while a
// Request is outstanding.
func (c *Conn) Request(topic raftproto.Topic, protoID uint16, sourceURI string, payload []byte) (Frame, error) {
	if err := c.Send(Frame{
		Kind:      KindRequest,
		Topic:     topic,
		ProtoID:   protoID,
		SourceURI: sourceURI,
		Payload:   payload,
	}); err != nil {
		return Frame{}, err
	}
	return c.Recv()
}

// Package wire implements the framed byte protocol a member endpoint
// speaks over its underlying net.Conn, and the pluggable serializer
// contract described in spec §6. It generalizes the header+codec framing
// hashicorp/raft's own NetworkTransport uses for its four RPCs to an
// arbitrary, caller-supplied number of topics sharing one connection.
package wire

import (
	"bytes"
	"encoding/gob"
)

// Serializer turns values into bytes and back. The default is a binary
// object serializer (encoding/gob). config.ResourceConfig has a Serializer
// field, but nothing reads it: the engine and every member endpoint use
// Default for all clusters.
type Serializer interface {
	Serialize(v any) ([]byte, error)
	Deserialize(data []byte, v any) error
}

// GobSerializer is the default binary object serializer.
type GobSerializer struct{}

func (GobSerializer) Serialize(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (GobSerializer) Deserialize(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

// Default is the package-wide default serializer instance.
var Default Serializer = GobSerializer{}

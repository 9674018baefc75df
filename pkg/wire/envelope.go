// Package wire implements the binary framing used to carry a routed
// message across a transport adapter or a shared-memory channel: a fixed
// header identifying the message and shard, followed by a length-prefixed
// payload. The payload itself is JSON, matching the json.RawMessage
// convention the rest of the stack uses for command bodies.
package wire

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"github.com/chronodb/nodecore/pkg/types"
)

// fixedHeaderSize counts the header fields that follow the variable-length
// msgType (a uint16 length plus the type's bytes): shardID + payloadLen.
const fixedHeaderSize = 4 + 4 // shardID uint32 + payloadLen uint32

// Envelope is one framed message: a MsgType, the shard it targets (or
// ShardNone), and an opaque JSON payload.
type Envelope struct {
	MsgType types.MsgType
	Shard   types.ShardID
	Payload []byte
}

// Encode marshals v as JSON into a new Envelope's Payload.
func Encode(msgType types.MsgType, shard types.ShardID, v interface{}) (*Envelope, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("wire: marshal payload for %s: %w", msgType, err)
	}
	return &Envelope{MsgType: msgType, Shard: shard, Payload: b}, nil
}

// Decode unmarshals the envelope's payload into v.
func (e *Envelope) Decode(v interface{}) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("wire: unmarshal payload for %s: %w", e.MsgType, err)
	}
	return nil
}

// Write serializes the envelope onto w as:
//
//	uint16 msgType length | msgType bytes | uint32 shard | uint32 payload length | payload bytes
//
// all big-endian. This is the concrete framing behind the transport and
// shared-memory adapters; it is deliberately simple rather than
// bit-compatible with any particular wire protocol.
func (e *Envelope) Write(w io.Writer) error {
	mt := []byte(e.MsgType)
	if len(mt) > 0xFFFF {
		return fmt.Errorf("wire: msg type too long: %d bytes", len(mt))
	}

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(mt))); err != nil {
		return err
	}
	buf.Write(mt)
	if err := binary.Write(&buf, binary.BigEndian, uint32(e.Shard)); err != nil {
		return err
	}
	if err := binary.Write(&buf, binary.BigEndian, uint32(len(e.Payload))); err != nil {
		return err
	}
	buf.Write(e.Payload)

	_, err := w.Write(buf.Bytes())
	return err
}

// EncodeBytes frames {msgType, shard, payload} into a single byte slice
// via Write, for transports (like gRPC's BytesValue trick) that carry one
// opaque []byte rather than an io.Writer.
func EncodeBytes(msgType types.MsgType, shard types.ShardID, payload []byte) ([]byte, error) {
	e := &Envelope{MsgType: msgType, Shard: shard, Payload: payload}
	var buf bytes.Buffer
	if err := e.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeBytes is the inverse of EncodeBytes.
func DecodeBytes(b []byte) (*Envelope, error) {
	return Read(bytes.NewReader(b))
}

// Read deserializes one envelope from r, the inverse of Write.
func Read(r io.Reader) (*Envelope, error) {
	var mtLen uint16
	if err := binary.Read(r, binary.BigEndian, &mtLen); err != nil {
		return nil, err
	}
	mt := make([]byte, mtLen)
	if _, err := io.ReadFull(r, mt); err != nil {
		return nil, fmt.Errorf("wire: read msg type: %w", err)
	}

	var shard uint32
	if err := binary.Read(r, binary.BigEndian, &shard); err != nil {
		return nil, fmt.Errorf("wire: read shard: %w", err)
	}

	var payloadLen uint32
	if err := binary.Read(r, binary.BigEndian, &payloadLen); err != nil {
		return nil, fmt.Errorf("wire: read payload length: %w", err)
	}
	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("wire: read payload: %w", err)
	}

	return &Envelope{
		MsgType: types.MsgType(mt),
		Shard:   types.ShardID(shard),
		Payload: payload,
	}, nil
}

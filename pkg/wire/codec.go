// Package wire implements the canonical on-the-wire encoding for protocol
// messages and the exact length-prefixed TCP framing the spec mandates.
// Encoding must be deterministic: the placeholder signature scheme hashes
// the string form of (view, phase, blockHash), so every replica needs to
// agree byte-for-byte on how a message round-trips.
package wire

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"

	"github.com/hotstuffd/hotstuffd/pkg/protocol"
)

func init() {
	gob.Register(protocol.Message{})
	gob.Register(protocol.Command{})
	gob.Register(protocol.Block{})
	gob.Register(protocol.QC{})
	gob.Register(protocol.SignatureAggregator{})
}

// Encode serializes a Message using gob, the encoding the rest of the
// teacher's transport stack already standardized on.
func Encode(m protocol.Message) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(m); err != nil {
		return nil, fmt.Errorf("wire: encode message: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a Message previously produced by Encode.
func Decode(payload []byte) (protocol.Message, error) {
	var m protocol.Message
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&m); err != nil {
		return protocol.Message{}, fmt.Errorf("wire: decode message: %w", err)
	}
	return m, nil
}

// maxFrameBytes bounds a single frame to guard against a corrupt or
// malicious length prefix forcing an unbounded allocation.
const maxFrameBytes = 64 << 20

// WriteFrame writes a u32 big-endian length prefix followed by payload, the
// exact framing the spec's transport section requires.
func WriteFrame(w io.Writer, payload []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("wire: write length prefix: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("wire: write payload: %w", err)
	}
	return nil
}

// ReadFrame reads one length-prefixed frame written by WriteFrame.
func ReadFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > maxFrameBytes {
		return nil, fmt.Errorf("wire: frame of %d bytes exceeds limit", n)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("wire: read payload: %w", err)
	}
	return payload, nil
}

package wire

import (
	"bytes"
	"testing"

	"github.com/hotstuffd/hotstuffd/pkg/protocol"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	block := protocol.Block{Cmds: []protocol.Command{{Op: "SET", Args: []string{"k", "v"}}}, View: 2, HasParent: true}
	original := protocol.Message{
		Phase:      protocol.Prepare,
		View:       2,
		Block:      &block,
		PartialSig: "deadbeef",
		Sender:     "r1",
	}

	payload, err := Encode(original)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(payload)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if decoded.Phase != original.Phase || decoded.View != original.View || decoded.Sender != original.Sender {
		t.Fatalf("round trip mismatch: got %+v, want %+v", decoded, original)
	}
	if decoded.Block == nil || decoded.Block.Hash() != block.Hash() {
		t.Fatal("round trip must preserve the proposed block")
	}
}

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("hello frame")
	if err := WriteFrame(&buf, payload); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	got, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("got %q, want %q", got, payload)
	}
}

func TestReadFrameRejectsOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xFF, 0xFF, 0xFF}) // huge length prefix, no payload
	if _, err := ReadFrame(&buf); err == nil {
		t.Fatal("a frame claiming to exceed the size limit must be rejected")
	}
}

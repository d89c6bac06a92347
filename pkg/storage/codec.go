package storage

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"

	"github.com/hotstuffd/hotstuffd/pkg/protocol"
)

func encodeGob(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
func decodeGob(b []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(b)).Decode(v)
}

func viewKey(v protocol.View) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], uint64(v))
	return k[:]
}

func blockKey(h protocol.Hash) []byte {
	key := make([]byte, 0, len(h)+1)
	key = append(key, 'b')
	key = append(key, h[:]...)
	return key
}

func certKey(v protocol.View) []byte {
	key := make([]byte, 0, 9)
	key = append(key, 'c')
	key = append(key, viewKey(v)...)
	return key
}

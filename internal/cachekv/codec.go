package cachekv

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"

	"github.com/hrygo/modbot/internal/boterror"
)

// Codec provides the compact, unambiguous binary framing the cache
// substrate uses to move typed values in and out of the remote KV. The
// pack carries no third-party binary serializer (its serialization
// libraries are all JSON, used for wire payloads rather than cache
// framing); gob behind a length prefix is the standard-library answer to
// that one gap. See DESIGN.md.
type Codec struct{}

// Marshal encodes v as a 4-byte big-endian length prefix followed by its
// gob encoding.
func (Codec) Marshal(v any) ([]byte, error) {
	var body bytes.Buffer
	if err := gob.NewEncoder(&body).Encode(v); err != nil {
		return nil, boterror.Serialization(err)
	}
	framed := make([]byte, 4+body.Len())
	binary.BigEndian.PutUint32(framed, uint32(body.Len()))
	copy(framed[4:], body.Bytes())
	return framed, nil
}

// Unmarshal decodes data produced by Marshal into v.
func (Codec) Unmarshal(data []byte, v any) error {
	if len(data) < 4 {
		return boterror.Serialization(errShortFrame)
	}
	n := binary.BigEndian.Uint32(data)
	if int(n) != len(data)-4 {
		return boterror.Serialization(errFrameLength)
	}
	if err := gob.NewDecoder(bytes.NewReader(data[4:])).Decode(v); err != nil {
		return boterror.Serialization(err)
	}
	return nil
}

var (
	errShortFrame  = frameErr("cache frame shorter than length prefix")
	errFrameLength = frameErr("cache frame length mismatch")
)

type frameErr string

func (e frameErr) Error() string { return string(e) }

// Package json implements [codec.Codec] on top of encoding/json. Encoded records are compact,
// carry no trailing newline and leave HTML characters unescaped, so they can be spliced into a
// segment as they are.
package json

import (
	"bytes"
	"encoding/json"

	"github.com/teenjuna/replay/codec"
)

type Codec[Record any] struct {
	buf *bytes.Buffer
	enc *json.Encoder
}

var _ codec.Codec[any] = (*Codec[any])(nil)

func New[Record any]() *Codec[Record] {
	buf := new(bytes.Buffer)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)

	return &Codec[Record]{
		buf: buf,
		enc: enc,
	}
}

func (c *Codec[Record]) Encode(record Record) ([]byte, error) {
	c.buf.Reset()
	if err := c.enc.Encode(record); err != nil {
		return nil, err
	}

	res := bytes.TrimSuffix(c.buf.Bytes(), []byte{'\n'})
	out := make([]byte, len(res))
	copy(out, res)

	return out, nil
}

func (c *Codec[Record]) Decode(data []byte) (Record, error) {
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return record, err
	}
	return record, nil
}

func (c *Codec[Record]) Derive() codec.Codec[Record] {
	return New[Record]()
}

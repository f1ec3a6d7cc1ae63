package http

import (
	"io"
)

// Encoder writes HTTP messages to an output stream.
type Encoder struct {
	w io.Writer
}

// NewEncoder returns a new encoder that writes to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes the HTTP/1.1 wire-format encoding of msg to the stream.
// See Marshal for the accepted message types.
func (enc *Encoder) Encode(msg Message) error {
	data, err := Marshal(msg)
	if err != nil {
		return err
	}
	_, err = enc.w.Write(data)
	return err
}

// Package jsonx provides high-performance JSON serialization using Sonic.
// Every wire payload of the gateway, the SDK and the runtime backends goes
// through here so the encoder settings stay in one place.
package jsonx

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"

	"github.com/bytedance/sonic"
)

// RawMessage is a raw encoded JSON value, usable with Sonic.
type RawMessage = json.RawMessage

// ErrEmptyBody is returned by Decode when the reader yields no JSON at all.
var ErrEmptyBody = errors.New("empty JSON body")

var api = sonic.Config{
	EscapeHTML: false,
	UseInt64:   true,
	CopyString: true,
}.Froze()

// Marshal returns the JSON encoding of v using Sonic.
func Marshal(v interface{}) ([]byte, error) {
	return api.Marshal(v)
}

// Unmarshal parses the JSON-encoded data and stores the result
// in the value pointed to by v using Sonic.
func Unmarshal(data []byte, v interface{}) error {
	return api.Unmarshal(data, v)
}

// MarshalToString is like Marshal but returns the JSON as a string.
func MarshalToString(v interface{}) (string, error) {
	return api.MarshalToString(v)
}

// Decode reads r to the end and unmarshals it into v.
func Decode(r io.Reader, v interface{}) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return ErrEmptyBody
	}
	return api.Unmarshal(data, v)
}

// Write encodes v and writes it to w followed by a newline.
func Write(w io.Writer, v interface{}) error {
	data, err := api.Marshal(v)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// Valid reports whether data is a valid JSON encoding.
func Valid(data []byte) bool {
	return api.Valid(data)
}

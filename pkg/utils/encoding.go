package utils

import (
	"bytes"
	"encoding/base64"
	"fmt"
)

// EncodeIndex wraps a serialised index artifact in standard base64.
func EncodeIndex(data []byte) []byte {
	out := make([]byte, base64.StdEncoding.EncodedLen(len(data)))
	base64.StdEncoding.Encode(out, data)
	return out
}

// DecodeIndex unwraps a base64 index artifact. Surrounding whitespace, as left
// by editors and shell redirection, is ignored.
func DecodeIndex(data []byte) ([]byte, error) {
	data = bytes.TrimSpace(data)
	out := make([]byte, base64.StdEncoding.DecodedLen(len(data)))
	n, err := base64.StdEncoding.Decode(out, data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode index: %w", err)
	}
	return out[:n], nil
}

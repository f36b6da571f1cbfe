// Package canonical renders values as canonical JSON: every object key sorted,
// numbers preserved as written, no insignificant whitespace.
package canonical

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gridtruth/domain/core"
)

// Marshal encodes v, then re-encodes the generic form so struct field order
// gives way to sorted keys at every depth.
func Marshal(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonical: encode: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("canonical: decode: %w", err)
	}
	out, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("canonical: re-encode: %w", err)
	}
	return out, nil
}

// Fingerprint is the sha256 of the canonical encoding of v.
func Fingerprint(v any) (core.Hash, error) {
	b, err := Marshal(v)
	if err != nil {
		return "", err
	}
	return core.NewHash(b), nil
}

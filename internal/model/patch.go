package model

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Patch is a JSON merge patch: the top-level keys a client sent in a
// PUT/PATCH body, with their raw values. Keeping the raw form lets services
// ask whether a field was supplied at all (Has), which a decoded struct
// cannot answer.
type Patch map[string]json.RawMessage

// ParsePatch decodes a JSON object body.
func ParsePatch(body []byte) (Patch, error) {
	var p Patch
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("model: decoding patch: %w", err)
	}
	if p == nil {
		p = Patch{}
	}
	return p, nil
}

// Has reports whether the patch carries key.
func (p Patch) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// Without returns a copy of p minus the given keys.
func (p Patch) Without(keys ...string) Patch {
	out := make(Patch, len(p))
	for k, v := range p {
		out[k] = v
	}
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

// ApplyTo merges the patch onto dst. Keys absent from the patch leave the
// corresponding fields untouched.
func (p Patch) ApplyTo(dst any) error {
	if len(p) == 0 {
		return nil
	}
	raw, err := json.Marshal(map[string]json.RawMessage(p))
	if err != nil {
		return fmt.Errorf("model: encoding patch: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("model: applying patch: %w", err)
	}
	return nil
}

// Clone deep-copies v through its JSON form so a patch applied to the copy
// cannot reach slices or pointers shared with the original.
func Clone[T any](v *T) (*T, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("model: cloning: %w", err)
	}
	out := new(T)
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("model: cloning: %w", err)
	}
	return out, nil
}

package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Manifest is a JSON object that remembers the order its keys were set in.
type Manifest struct {
	keys   []string
	fields map[string]json.RawMessage
}

var errNotObject = errors.New("document is not a JSON object")

// New returns an empty manifest.
func New() *Manifest {
	return &Manifest{
		fields: make(map[string]json.RawMessage),
	}
}

// Parse decodes data into a manifest.
// Data that is valid JSON but not an object yields ErrInvalidTemplate.
func Parse(data []byte) (*Manifest, error) {
	m := New()
	if err := json.Unmarshal(data, m); err != nil {
		if errors.Is(err, errNotObject) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidTemplate, err)
		}

		return nil, err
	}

	return m, nil
}

// Set stores value under key. An existing key keeps its position.
func (m *Manifest) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}

	m.setRaw(key, raw)

	return nil
}

func (m *Manifest) setRaw(key string, raw json.RawMessage) {
	if _, found := m.fields[key]; !found {
		m.keys = append(m.keys, key)
	}

	m.fields[key] = raw
}

// Get returns the raw JSON stored under key.
func (m *Manifest) Get(key string) (json.RawMessage, bool) {
	raw, found := m.fields[key]

	return raw, found
}

// Decode unmarshals the value stored under key into dst.
func (m *Manifest) Decode(key string, dst any) error {
	raw, found := m.fields[key]
	if !found {
		return fmt.Errorf("%q: %w", key, errFieldMissing)
	}

	return json.Unmarshal(raw, dst)
}

// IsObject reports whether key holds a JSON object.
func (m *Manifest) IsObject(key string) bool {
	raw, found := m.fields[key]
	if !found {
		return false
	}

	trimmed := bytes.TrimSpace(raw)

	return len(trimmed) > 0 && trimmed[0] == '{'
}

// Keys returns the keys in order.
func (m *Manifest) Keys() []string {
	return append([]string(nil), m.keys...)
}

// Len returns the number of keys.
func (m *Manifest) Len() int {
	return len(m.keys)
}

// Clone returns a copy that shares no state with m.
func (m *Manifest) Clone() *Manifest {
	c := &Manifest{
		keys:   append([]string(nil), m.keys...),
		fields: make(map[string]json.RawMessage, len(m.fields)),
	}

	for key, raw := range m.fields {
		c.fields[key] = append(json.RawMessage(nil), raw...)
	}

	return c
}

// MarshalJSON encodes the manifest with keys in insertion order.
func (m *Manifest) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, key := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}

		encodedKey, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}

		buf.Write(encodedKey)
		buf.WriteByte(':')
		buf.Write(m.fields[key])
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping the order of its keys.
// Duplicate keys keep the first position and the last value.
func (m *Manifest) UnmarshalJSON(data []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(data))

	token, err := decoder.Token()
	if err != nil {
		return err
	}

	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return errNotObject
	}

	m.keys = nil
	m.fields = make(map[string]json.RawMessage)

	for decoder.More() {
		token, err = decoder.Token()
		if err != nil {
			return err
		}

		key, ok := token.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v", token)
		}

		var raw json.RawMessage
		if err = decoder.Decode(&raw); err != nil {
			return fmt.Errorf("decode %q: %w", key, err)
		}

		m.setRaw(key, raw)
	}

	// Closing brace.
	_, err = decoder.Token()

	return err
}

// Write stores m at path as two-space indented JSON with a trailing newline.
func Write(path string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	data = append(data, '\n')

	if err = os.WriteFile(filepath.Clean(path), data, DefaultFileMode); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	return nil
}

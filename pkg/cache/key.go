package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// StableStringify renders v as JSON with object keys sorted at every depth,
// so structurally equal inputs produce identical text regardless of field or
// map order. Structs are first reduced to their JSON object form.
func StableStringify(v interface{}) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("cache: marshal key input: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic interface{}
	if err := dec.Decode(&generic); err != nil {
		return "", fmt.Errorf("cache: decode key input: %w", err)
	}
	var b strings.Builder
	if err := writeStable(&b, generic); err != nil {
		return "", err
	}
	return b.String(), nil
}

func writeStable(b *strings.Builder, v interface{}) error {
	switch t := v.(type) {
	case nil:
		b.WriteString("null")
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := writeScalar(b, k); err != nil {
				return err
			}
			b.WriteByte(':')
			if err := writeStable(b, t[k]); err != nil {
				return err
			}
		}
		b.WriteByte('}')
	case []interface{}:
		b.WriteByte('[')
		for i, item := range t {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := writeStable(b, item); err != nil {
				return err
			}
		}
		b.WriteByte(']')
	case json.Number:
		b.WriteString(t.String())
	default:
		return writeScalar(b, t)
	}
	return nil
}

func writeScalar(b *strings.Builder, v interface{}) error {
	enc, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache: encode scalar: %w", err)
	}
	b.Write(enc)
	return nil
}

// HashKey derives a content address for v: sha256 over "<version>::<stable json>".
// Bumping version invalidates every key derived before it.
func HashKey(version string, v interface{}) (string, error) {
	s, err := StableStringify(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(version + "::" + s))
	return hex.EncodeToString(sum[:]), nil
}

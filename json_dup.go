package plasm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// DuplicateKeyError reports an object key that occurs twice in one object.
type DuplicateKeyError struct {
	Path string // JSON Pointer of the enclosing object.
	Key  string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("plasm: duplicate key %q at %s", e.Key, e.Path)
}

type dupFrame struct {
	object       bool
	keys         map[string]struct{}
	expectingKey bool
	key          string
	index        int
}

// DetectDuplicateKeys walks data token by token and returns a
// *DuplicateKeyError for the first repeated key. Malformed input is reported
// as a syntax error.
func DetectDuplicateKeys(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var stack []dupFrame
	valueDone := func() {
		if len(stack) == 0 {
			return
		}
		top := &stack[len(stack)-1]
		if top.object {
			top.expectingKey = true
		} else {
			top.index++
		}
	}
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		switch v := tok.(type) {
		case json.Delim:
			switch v {
			case '{':
				stack = append(stack, dupFrame{object: true, keys: map[string]struct{}{}, expectingKey: true})
			case '[':
				stack = append(stack, dupFrame{})
			default:
				stack = stack[:len(stack)-1]
				valueDone()
			}
		case string:
			if n := len(stack); n > 0 && stack[n-1].object && stack[n-1].expectingKey {
				top := &stack[n-1]
				if _, dup := top.keys[v]; dup {
					return &DuplicateKeyError{Path: framePointer(stack[:n-1]), Key: v}
				}
				top.keys[v] = struct{}{}
				top.key = v
				top.expectingKey = false
				continue
			}
			valueDone()
		default:
			valueDone()
		}
	}
}

// DecodeJSONStrict is DecodeJSON that also rejects duplicate object keys.
func DecodeJSONStrict(r io.Reader) (map[string]any, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("plasm: read body: %w", err)
	}
	if err := DetectDuplicateKeys(b); err != nil {
		var de *DuplicateKeyError
		if errors.As(err, &de) {
			return nil, err
		}
		return nil, fmt.Errorf("plasm: decode json: %w", err)
	}
	return DecodeJSONBytes(b)
}

func framePointer(frames []dupFrame) string {
	parts := make([]string, 0, len(frames))
	for _, f := range frames {
		if f.object {
			parts = append(parts, f.key)
		} else {
			parts = append(parts, strconv.Itoa(f.index))
		}
	}
	return pointer(parts...)
}

// pointer builds an RFC 6901 JSON Pointer, escaping '~' and '/'.
func pointer(parts ...string) string {
	if len(parts) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, p := range parts {
		b.WriteByte('/')
		b.WriteString(strings.ReplaceAll(strings.ReplaceAll(p, "~", "~0"), "/", "~1"))
	}
	return b.String()
}

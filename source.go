package plasm

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	gojson "github.com/goccy/go-json"
)

// JSONDriver decodes request bodies and encodes response payloads. The default
// implementation is based on goccy/go-json and may be swapped with SetJSONDriver.
type JSONDriver interface {
	Decode(r io.Reader) (any, error)
	Marshal(v any) ([]byte, error)
	Name() string
}

var (
	jsonDriverMu      sync.RWMutex
	currentJSONDriver JSONDriver = defaultJSONDriver{}
)

// SetJSONDriver replaces the global JSON driver; nil values are ignored.
func SetJSONDriver(d JSONDriver) {
	if d == nil {
		return
	}
	jsonDriverMu.Lock()
	currentJSONDriver = d
	jsonDriverMu.Unlock()
}

// UseDefaultJSONDriver restores the go-json backed driver.
func UseDefaultJSONDriver() {
	jsonDriverMu.Lock()
	currentJSONDriver = defaultJSONDriver{}
	jsonDriverMu.Unlock()
}

func getJSONDriver() JSONDriver {
	jsonDriverMu.RLock()
	d := currentJSONDriver
	jsonDriverMu.RUnlock()
	return d
}

type defaultJSONDriver struct{}

func (defaultJSONDriver) Decode(r io.Reader) (any, error) {
	dec := gojson.NewDecoder(r)
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func (defaultJSONDriver) Marshal(v any) ([]byte, error) { return gojson.Marshal(v) }

func (defaultJSONDriver) Name() string { return "go-json" }

// ErrNotObject is returned by DecodeJSON when the body is not a JSON object.
var ErrNotObject = errors.New("plasm: request body must be a JSON object")

// DecodeJSON reads a JSON object from r. An empty body decodes to an empty map.
// Numbers become int64 when integral and float64 otherwise.
func DecodeJSON(r io.Reader) (map[string]any, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("plasm: read body: %w", err)
	}
	return DecodeJSONBytes(b)
}

// DecodeJSONBytes is DecodeJSON over a byte slice.
func DecodeJSONBytes(b []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(b)) == 0 {
		return map[string]any{}, nil
	}
	v, err := getJSONDriver().Decode(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("plasm: decode json: %w", err)
	}
	if v == nil {
		return map[string]any{}, nil
	}
	m, ok := normalizeNumbers(v).(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	return m, nil
}

// EncodeJSON marshals v with the current driver.
func EncodeJSON(v any) ([]byte, error) { return getJSONDriver().Marshal(v) }

func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = normalizeNumbers(val)
		}
		return t
	case []any:
		for i, val := range t {
			t[i] = normalizeNumbers(val)
		}
		return t
	case number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	default:
		return v
	}
}

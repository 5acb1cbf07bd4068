package healthtrack

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/stoewer/go-strcase"
)

// ErrTrailingData is returned when a body holds more than one JSON value.
var ErrTrailingData = errors.New("unexpected data after JSON value")

// NormalizeKeys rewrites every snake_case object key in body to lowerCamel so
// that servers emitting either convention decode into the same types. Keys
// without an underscore are left alone. Bodies without any underscore are
// returned as is.
func NormalizeKeys(body []byte) ([]byte, error) {
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()

	var value interface{}

	err := decoder.Decode(&value)
	if err != nil {
		return nil, fmt.Errorf("failed to parse body: %w", err)
	}

	_, err = decoder.Token()
	if !errors.Is(err, io.EOF) {
		return nil, ErrTrailingData
	}

	if bytes.IndexByte(body, '_') < 0 {
		return body, nil
	}

	converted, changed := convertKeys(value)
	if !changed {
		return body, nil
	}

	out, err := json.Marshal(converted)
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode body: %w", err)
	}

	return out, nil
}

func convertKeys(value interface{}) (interface{}, bool) {
	switch v := value.(type) {
	case map[string]interface{}:
		changed := false
		out := make(map[string]interface{}, len(v))

		for key, item := range v {
			converted, itemChanged := convertKeys(item)
			changed = changed || itemChanged

			name := key
			if strings.Contains(key, "_") {
				name = strcase.LowerCamelCase(key)
				changed = changed || name != key
			}

			out[name] = converted
		}

		return out, changed
	case []interface{}:
		changed := false
		out := make([]interface{}, len(v))

		for i, item := range v {
			converted, itemChanged := convertKeys(item)
			changed = changed || itemChanged
			out[i] = converted
		}

		return out, changed
	default:
		return value, false
	}
}

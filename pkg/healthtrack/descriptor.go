package healthtrack

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"reflect"
)

// Descriptor errors.
var (
	ErrInvalidDescriptor = errors.New("invalid request descriptor")
	ErrUnknownEncoding   = errors.New("unknown parameter encoding")
	ErrUnknownAudience   = errors.New("unknown audience")
)

// JSONArrayKey is the parameter holding the root array for EncodingJSONArray.
const JSONArrayKey = "jsonArray"

// Audience selects which executor serves a request.
type Audience string

// Audiences.
const (
	AudienceUnauthenticated Audience = "unauthenticated"
	AudienceAuthenticated   Audience = "authenticated"
)

// Valid reports whether a is a known audience.
func (a Audience) Valid() bool {
	return a == AudienceUnauthenticated || a == AudienceAuthenticated
}

// Audiences lists every known audience.
func Audiences() []Audience {
	return []Audience{AudienceUnauthenticated, AudienceAuthenticated}
}

// Encoding tells how Params are sent.
type Encoding int

// Parameter encodings.
const (
	// EncodingNone sends no parameters.
	EncodingNone Encoding = iota
	// EncodingQuery URL-encodes Params into the query string.
	EncodingQuery
	// EncodingJSON sends Body, or Params when Body is nil, as a JSON body.
	EncodingJSON
	// EncodingJSONArray sends Params[JSONArrayKey] as the root of the body.
	EncodingJSONArray
)

// String returns the name of the encoding.
func (e Encoding) String() string {
	switch e {
	case EncodingNone:
		return "none"
	case EncodingQuery:
		return "query"
	case EncodingJSON:
		return "json"
	case EncodingJSONArray:
		return "json-array"
	default:
		return fmt.Sprintf("encoding(%d)", int(e))
	}
}

// Descriptor is the static description of one endpoint call. Values are
// treated as immutable once built.
type Descriptor struct {
	// Name identifies the endpoint in logs and metrics.
	Name string `json:"name" validate:"required"`
	// BaseURL overrides the session base URL when set.
	BaseURL  string                 `json:"baseUrl,omitempty" validate:"omitempty,url"`
	Path     string                 `json:"path"              validate:"required"`
	Method   string                 `json:"method"            validate:"required,oneof=GET POST PUT PATCH DELETE HEAD"`
	Encoding Encoding               `json:"encoding"          validate:"gte=0,lte=3"`
	Params   map[string]interface{} `json:"params,omitempty"`
	Body     interface{}            `json:"body,omitempty"`
	Headers  map[string]string      `json:"headers,omitempty"`
	Audience Audience               `json:"audience"          validate:"required,oneof=unauthenticated authenticated"`
}

// Validate checks the descriptor's declared constraints.
func (d Descriptor) Validate() error {
	err := Validate(d)
	if err != nil {
		return fmt.Errorf("%w %q: %w", ErrInvalidDescriptor, d.Name, err)
	}

	return nil
}

// Encode renders Params and Body according to the encoding. It returns the
// query values to append to the URL and the request body, either of which may
// be nil.
func (d Descriptor) Encode() (url.Values, []byte, error) {
	switch d.Encoding {
	case EncodingNone:
		return nil, nil, nil
	case EncodingQuery:
		return queryValues(d.Params), nil, nil
	case EncodingJSON:
		var payload interface{} = d.Params
		if d.Body != nil {
			payload = d.Body
		} else if d.Params == nil {
			return nil, nil, nil
		}

		body, err := json.Marshal(payload)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode body for %s: %w", d.Name, err)
		}

		return nil, body, nil
	case EncodingJSONArray:
		array, ok := d.Params[JSONArrayKey]
		if !ok {
			return nil, nil, nil
		}

		body, err := json.Marshal(array)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode array body for %s: %w", d.Name, err)
		}

		return nil, body, nil
	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownEncoding, d.Encoding)
	}
}

func queryValues(params map[string]interface{}) url.Values {
	if len(params) == 0 {
		return nil
	}

	values := url.Values{}

	for key, value := range params {
		if value == nil {
			continue
		}

		rv := reflect.ValueOf(value)
		if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
			for i := 0; i < rv.Len(); i++ {
				values.Add(key, fmt.Sprint(rv.Index(i).Interface()))
			}

			continue
		}

		values.Set(key, fmt.Sprint(value))
	}

	return values
}

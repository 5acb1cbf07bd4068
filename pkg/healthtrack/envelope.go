package healthtrack

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fivetwenty-io/healthtrack/internal/constants"
)

// Envelope errors.
var (
	ErrMissingCode      = errors.New("envelope has no code")
	ErrMissingData      = errors.New("envelope has no data")
	ErrMissingPageField = errors.New("page is missing a required field")
	ErrNilEnvelope      = errors.New("nil envelope")
)

// Envelope is the {code, message, data} wrapper every endpoint responds with.
// Code 200 is the only success code. A successful envelope may carry no data.
type Envelope[T any] struct {
	Code    int     `json:"code"    yaml:"code"`
	Message *string `json:"message" yaml:"message"`
	Data    *T      `json:"data"    yaml:"data"`
}

// HasData reports whether the envelope carries a payload.
func (e *Envelope[T]) HasData() bool {
	return e != nil && e.Data != nil
}

// MessageText returns the message or an empty string.
func (e *Envelope[T]) MessageText() string {
	if e == nil || e.Message == nil {
		return ""
	}

	return *e.Message
}

// Page is the payload of list endpoints.
type Page[S any] struct {
	HasNextPage bool    `json:"hasNextPage" yaml:"has_next_page"`
	List        []S     `json:"list"        yaml:"list"`
	NextPage    int     `json:"nextPage"    yaml:"next_page"`
	Total       int     `json:"total"       yaml:"total"`
	LastID      *string `json:"lastId"      yaml:"last_id,omitempty"`
	Version     *string `json:"version"     yaml:"version,omitempty"`
}

// UnmarshalJSON requires hasNextPage and list to be present.
func (p *Page[S]) UnmarshalJSON(data []byte) error {
	var wire struct {
		HasNextPage *bool   `json:"hasNextPage"`
		List        *[]S    `json:"list"`
		NextPage    int     `json:"nextPage"`
		Total       int     `json:"total"`
		LastID      *string `json:"lastId"`
		Version     *string `json:"version"`
	}

	err := json.Unmarshal(data, &wire)
	if err != nil {
		return err
	}

	if wire.HasNextPage == nil {
		return fmt.Errorf("%w: hasNextPage", ErrMissingPageField)
	}

	if wire.List == nil {
		return fmt.Errorf("%w: list", ErrMissingPageField)
	}

	*p = Page[S]{
		HasNextPage: *wire.HasNextPage,
		List:        *wire.List,
		NextPage:    wire.NextPage,
		Total:       wire.Total,
		LastID:      wire.LastID,
		Version:     wire.Version,
	}

	return nil
}

// Result carries the outcome of one call for channel-style consumers.
type Result[T any] struct {
	Value T
	Err   error
}

// OK reports whether the result is a success.
func (r Result[T]) OK() bool {
	return r.Err == nil
}

type wireEnvelope[T any] struct {
	Code    *int    `json:"code"`
	Message *string `json:"message"`
	Data    *T      `json:"data"`
}

// DecodeEnvelope turns a raw response into a typed envelope. Checks run in a
// fixed order: a status outside 2xx is a transport failure and the body is
// never parsed; a body that does not parse into the expected shape is a
// decoding failure; a code other than 200 is a business failure.
func DecodeEnvelope[T any](status int, body []byte) (*Envelope[T], error) {
	if status < constants.HTTPStatusOKMin || status > constants.HTTPStatusOKMax {
		return nil, TransportFailure(status, nil)
	}

	normalized, err := NormalizeKeys(body)
	if err != nil {
		return nil, DecodingFailure(err)
	}

	var wire wireEnvelope[T]

	err = json.Unmarshal(normalized, &wire)
	if err != nil {
		return nil, DecodingFailure(err)
	}

	if wire.Code == nil {
		return nil, DecodingFailure(ErrMissingCode)
	}

	if *wire.Code != constants.EnvelopeCodeOK {
		return nil, BusinessFailure(*wire.Code, wire.Message)
	}

	return &Envelope[T]{
		Code:    *wire.Code,
		Message: wire.Message,
		Data:    wire.Data,
	}, nil
}

// RequireData returns the payload of a successful envelope, failing with a
// decoding failure when it is absent.
func RequireData[T any](env *Envelope[T]) (T, error) {
	var zero T

	if env == nil {
		return zero, DecodingFailure(ErrNilEnvelope)
	}

	if env.Data == nil {
		return zero, DecodingFailure(ErrMissingData)
	}

	return *env.Data, nil
}

// DataOrZero returns the payload of a successful envelope or the zero value
// when it is absent.
func DataOrZero[T any](env *Envelope[T]) T {
	var zero T

	if env == nil || env.Data == nil {
		return zero
	}

	return *env.Data
}

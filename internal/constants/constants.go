package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600
)

// HTTP and network timeouts.
const (
	// DefaultRequestTimeout is applied by every executor at construction.
	DefaultRequestTimeout = 60 * time.Second

	// SessionTimeout bounds a single round trip on the shared session.
	SessionTimeout = 60 * time.Second

	// ShortHTTPTimeout is used for quick operations such as NATS connects.
	ShortHTTPTimeout = 10 * time.Second
)

// Retry limits for the transport session.
const (
	// DefaultRetryMax is the default maximum number of retries.
	DefaultRetryMax = 3

	// DefaultRetryWaitMin is the minimum wait time between retries.
	DefaultRetryWaitMin = 500 * time.Millisecond

	// DefaultRetryWaitMax is the maximum wait time between retries.
	DefaultRetryWaitMax = 10 * time.Second
)

// Envelope and HTTP status codes.
const (
	// EnvelopeCodeOK is the only envelope code treated as success.
	EnvelopeCodeOK = 200

	// HTTPStatusOKMin is the lowest HTTP status considered a transport success.
	HTTPStatusOKMin = 200

	// HTTPStatusOKMax is the highest HTTP status considered a transport success.
	HTTPStatusOKMax = 299

	// HTTPStatusUnauthorized is surfaced to callers for re-authentication.
	HTTPStatusUnauthorized = 401

	// UnknownStatusCode classifies errors the pipeline does not recognize.
	UnknownStatusCode = -999
)

// Pagination.
const (
	// FirstPage is the page every aggregation starts from.
	FirstPage = 1

	// DefaultPageSize is the page size used when aggregating list endpoints.
	DefaultPageSize = 50

	// DefaultMaxPages bounds a single aggregation.
	DefaultMaxPages = 1000
)

// Headers.
const (
	// ContentTypeJSON is the default content type sent by the session.
	ContentTypeJSON = "application/json;charset=utf-8"

	// HeaderRequestID carries a per-call identifier.
	HeaderRequestID = "X-Request-ID"

	// DefaultUserAgent is sent when no user agent is configured.
	DefaultUserAgent = "healthtrack-go"
)

// Format constants.
const (
	// FormatJSON for JSON output format.
	FormatJSON = "json"

	// FormatYAML for YAML output format.
	FormatYAML = "yaml"

	// FormatTable for table output format.
	FormatTable = "table"
)

// NATS credential feed.
const (
	// DefaultCredentialSubject is the subject credential changes are published on.
	DefaultCredentialSubject = "healthtrack.credentials.changed"
)

// MinimumArgumentCount is used by commands taking a key and a value.
const MinimumArgumentCount = 2

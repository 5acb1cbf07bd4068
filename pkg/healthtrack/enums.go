package healthtrack

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Closed enumerations decoded from the server fall back to their default case
// when the wire value is not one they know. Values of the wrong JSON type are
// still decoding errors.

var jsonNull = []byte("null")

func decodeStringEnum[E ~string](data []byte, known []E, fallback E) (E, error) {
	if bytes.Equal(bytes.TrimSpace(data), jsonNull) {
		return fallback, nil
	}

	var raw string

	err := json.Unmarshal(data, &raw)
	if err != nil {
		return fallback, fmt.Errorf("failed to decode enum value: %w", err)
	}

	for _, candidate := range known {
		if strings.EqualFold(string(candidate), raw) {
			return candidate, nil
		}
	}

	return fallback, nil
}

func decodeIntEnum[E ~int](data []byte, known []E, fallback E) (E, error) {
	if bytes.Equal(bytes.TrimSpace(data), jsonNull) {
		return fallback, nil
	}

	var raw int

	err := json.Unmarshal(data, &raw)
	if err != nil {
		return fallback, fmt.Errorf("failed to decode enum value: %w", err)
	}

	for _, candidate := range known {
		if int(candidate) == raw {
			return candidate, nil
		}
	}

	return fallback, nil
}

// UserType is the kind of account.
type UserType string

// User types.
const (
	UserTypeUser   UserType = "USER"
	UserTypeSystem UserType = "SYSTEM"
)

// UnmarshalJSON decodes the type, defaulting to UserTypeUser.
func (t *UserType) UnmarshalJSON(data []byte) error {
	v, err := decodeStringEnum(data, []UserType{UserTypeUser, UserTypeSystem}, UserTypeUser)
	if err != nil {
		return err
	}

	*t = v

	return nil
}

// ToolMode is the tracking mode the user selected.
type ToolMode int

// Tool modes.
const (
	ToolModePeriod ToolMode = iota
	ToolModePregnancy
	ToolModeConceive
)

// String returns the mode name.
func (m ToolMode) String() string {
	switch m {
	case ToolModePeriod:
		return "period"
	case ToolModePregnancy:
		return "pregnancy"
	case ToolModeConceive:
		return "conceive"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// UnmarshalJSON decodes the mode, defaulting to ToolModePeriod.
func (m *ToolMode) UnmarshalJSON(data []byte) error {
	v, err := decodeIntEnum(data, []ToolMode{ToolModePeriod, ToolModePregnancy, ToolModeConceive}, ToolModePeriod)
	if err != nil {
		return err
	}

	*m = v

	return nil
}

// PredictionType selects how cycles are predicted.
type PredictionType string

// Prediction types.
const (
	PredictionBase PredictionType = "BASE"
	PredictionPro  PredictionType = "PRO"
)

// UnmarshalJSON decodes the type case-insensitively, defaulting to PredictionBase.
func (p *PredictionType) UnmarshalJSON(data []byte) error {
	v, err := decodeStringEnum(data, []PredictionType{PredictionBase, PredictionPro}, PredictionBase)
	if err != nil {
		return err
	}

	*p = v

	return nil
}

// DialMode is the dial view layout.
type DialMode string

// Dial modes.
const (
	DialModeDefault DialMode = "DEFAULT"
	DialModeLine    DialMode = "LINE"
	DialModeRound   DialMode = "ROUND"
)

// UnmarshalJSON decodes the mode, defaulting to DialModeDefault.
func (d *DialMode) UnmarshalJSON(data []byte) error {
	v, err := decodeStringEnum(data, []DialMode{DialModeDefault, DialModeLine, DialModeRound}, DialModeDefault)
	if err != nil {
		return err
	}

	*d = v

	return nil
}

// AuthType names the login provider.
type AuthType string

// Auth types.
const (
	AuthTypePassword AuthType = "PASSWORD"
	AuthTypeApple    AuthType = "APPLE"
	AuthTypeGoogle   AuthType = "GOOGLE"
)

// UnmarshalJSON decodes the type, defaulting to AuthTypePassword.
func (a *AuthType) UnmarshalJSON(data []byte) error {
	v, err := decodeStringEnum(data, []AuthType{AuthTypePassword, AuthTypeApple, AuthTypeGoogle}, AuthTypePassword)
	if err != nil {
		return err
	}

	*a = v

	return nil
}

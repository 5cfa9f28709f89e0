package wire

import (
	"bytes"
	"encoding/json"
	"errors"

	perrors "pulse/internal/errors"
)

// ErrNoData means the envelope reported failure or carried null data. Callers
// decide whether that is an empty result or a hard error.
var ErrNoData = errors.New("response carried no data")

// Envelope wraps every backend response.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *string         `json:"error"`
	Meta    *Meta           `json:"meta"`
}

type Meta struct {
	Total *int `json:"total"`
	Page  *int `json:"page"`
	Limit *int `json:"limit"`
}

// BackendError is an envelope with success=false and an error message. It
// matches ErrNoData under errors.Is.
type BackendError struct {
	Message string
}

func (e *BackendError) Error() string {
	return "backend reported failure: " + e.Message
}

func (e *BackendError) Is(target error) bool {
	return target == ErrNoData
}

// BackendMessage returns the backend's error text carried by err, if any.
func BackendMessage(err error) (string, bool) {
	var be *BackendError
	if errors.As(err, &be) && be.Message != "" {
		return be.Message, true
	}
	return "", false
}

var null = []byte("null")

// ParseEnvelope decodes the outer envelope only.
func ParseEnvelope(body []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, perrors.Decoding("invalid response envelope", err)
	}
	return &env, nil
}

// HasData is false when the request failed or data is null or absent.
func (e *Envelope) HasData() bool {
	if !e.Success {
		return false
	}
	trimmed := bytes.TrimSpace(e.Data)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, null)
}

// DecodeData unwraps body into T. It returns ErrNoData for an empty envelope,
// a *BackendError when the backend reported a message, and a DecodingError
// when the payload does not match T.
func DecodeData[T any](body []byte) (T, *Meta, error) {
	var out T
	env, err := ParseEnvelope(body)
	if err != nil {
		return out, nil, err
	}
	if !env.HasData() {
		if !env.Success && env.Error != nil && *env.Error != "" {
			return out, env.Meta, &BackendError{Message: *env.Error}
		}
		return out, env.Meta, ErrNoData
	}
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return out, env.Meta, perrors.Decoding(err.Error(), err)
	}
	return out, env.Meta, nil
}

package domain

import "encoding/json"

// Outbound payloads that have no natural home on a model type.

type Welcome struct {
	ID string `json:"id"`
}

type SignalPayload struct {
	Sender string          `json:"sender"`
	Signal json.RawMessage `json:"signal"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	ErrorCodeInvalid  = "invalid"
	ErrorCodeNotFound = "not_found"
	ErrorCodeInternal = "internal"
)

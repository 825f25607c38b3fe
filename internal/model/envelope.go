package model

import "encoding/json"

// Envelope is the uniform body of every API response.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Count   *int   `json:"count,omitempty"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// RawEnvelope keeps data undecoded until the caller knows its shape.
type RawEnvelope = Envelope[json.RawMessage]

// DeleteCompletedResult is the data of a delete-all-completed response.
type DeleteCompletedResult struct {
	DeletedCount int64 `json:"deletedCount"`
}

// Health is the body of the health endpoint.
type Health struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

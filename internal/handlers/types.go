package handlers

import (
	"fmt"
	"strconv"
)

// Shared request/response shapes for the JSON API.

// DateLayout is the wire format for date-only fields.
const DateLayout = "2006-01-02"

// MessageResponse is a generic success payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// CreatedResponse wraps a created resource with any soft warnings the
// services raised along the way.
type CreatedResponse struct {
	Data     interface{} `json:"data"`
	Warnings []string    `json:"warnings,omitempty"`
}

func parseLimit(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid positive integer %q", raw)
	}
	return n, nil
}

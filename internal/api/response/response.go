// Package response writes the JSON envelope used by every endpoint:
// {hasErrors, hasResults, successful, message?, result? | items?+total?}.
// Envelopes are built fresh per call and never shared between requests.
package response

import (
	"encoding/json"
	"net/http"
)

// Shared response messages.
const (
	MsgParamMissing       = "One or more of the required parameters was missing."
	MsgNoResult           = "Record does not exist."
	MsgDuplicateEntry     = "Record already exist."
	MsgFailedRequest      = "Request failed."
	MsgInvalidCredentials = "Invalid credentials."
	MsgAccountLocked      = "Maximum login attempts exceeded. Account temporarily locked."
	MsgInvalidBody        = "Invalid request body."
)

type envelope struct {
	HasErrors  bool   `json:"hasErrors"`
	HasResults bool   `json:"hasResults"`
	Successful bool   `json:"successful"`
	Message    string `json:"message,omitempty"`
	Result     any    `json:"result,omitempty"`
	Items      any    `json:"items,omitempty"`
	Total      *int   `json:"total,omitempty"`
}

// Single writes a 200 envelope carrying one result.
func Single(w http.ResponseWriter, result any) {
	writeJSON(w, http.StatusOK, envelope{
		HasResults: true,
		Successful: true,
		Result:     result,
	})
}

// Created writes a 201 envelope carrying the created resource.
func Created(w http.ResponseWriter, result any) {
	writeJSON(w, http.StatusCreated, envelope{
		HasResults: true,
		Successful: true,
		Result:     result,
	})
}

// Collection writes a 200 envelope carrying a page of items and the total count.
func Collection(w http.ResponseWriter, items any, total int) {
	writeJSON(w, http.StatusOK, envelope{
		HasResults: true,
		Successful: true,
		Items:      items,
		Total:      &total,
	})
}

// NoOp writes a 200 envelope with no result, for operations that legitimately
// changed nothing.
func NoOp(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, envelope{
		Successful: true,
		Message:    message,
	})
}

// Failure writes an error envelope with the given HTTP status.
func Failure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{
		HasErrors: true,
		Message:   message,
	})
}

func writeJSON(w http.ResponseWriter, status int, v envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

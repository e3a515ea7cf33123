package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RequestStatusNew      = "NEW"
	RequestStatusAccepted = "ACCEPTED"
	RequestStatusDeclined = "DECLINED"
	RequestStatusCanceled = "CANCELED"
	RequestStatusTimeout  = "TIMEOUT"
)

// Request is an offer linking one artisan to one job. A request starts NEW
// and moves exactly once into one of the terminal states; it never returns
// to NEW.
type Request struct {
	ID              uuid.UUID  `db:"id"               json:"id"`
	JobID           uuid.UUID  `db:"job_id"           json:"job_id"`
	ArtisanID       uuid.UUID  `db:"artisan_id"       json:"artisan_id"`
	RequesterID     uuid.UUID  `db:"requester_id"     json:"requester_id"`
	Status          string     `db:"status"           json:"status"`
	ExpiresAt       *time.Time `db:"expires_at"       json:"expires_at,omitempty"`
	RejectionReason *string    `db:"rejection_reason" json:"rejection_reason,omitempty"`
	CreatedAt       time.Time  `db:"created_at"       json:"created_at"`
	UpdatedOn       *time.Time `db:"updated_on"       json:"updated_on,omitempty"`
	UpdatedBy       *uuid.UUID `db:"updated_by"       json:"updated_by,omitempty"`
}

var terminalRequestStatuses = map[string]bool{
	RequestStatusAccepted: true,
	RequestStatusDeclined: true,
	RequestStatusCanceled: true,
	RequestStatusTimeout:  true,
}

// TerminalRequestStatus reports whether status is a terminal request state.
func TerminalRequestStatus(status string) bool {
	return terminalRequestStatuses[status]
}

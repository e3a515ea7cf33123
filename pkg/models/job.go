package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusNew       = "NEW"
	JobStatusPending   = "PENDING"
	JobStatusAssigned  = "ASSIGNED"
	JobStatusCompleted = "COMPLETED"
)

// Job is a posted task a requester wants an artisan to perform.
// While an offer is outstanding the job is PENDING and RequestID points at
// that offer; once an offer is accepted the job is ASSIGNED and ArtisanID
// holds the accepting artisan.
type Job struct {
	ID          uuid.UUID  `db:"id"           json:"id"`
	Title       string     `db:"title"        json:"title"`
	Description string     `db:"description"  json:"description"`
	CategoryID  *uuid.UUID `db:"category_id"  json:"category_id,omitempty"`
	RequesterID uuid.UUID  `db:"requester_id" json:"requester_id"`
	ArtisanID   *uuid.UUID `db:"artisan_id"   json:"artisan_id,omitempty"`
	RequestID   *uuid.UUID `db:"request_id"   json:"request_id,omitempty"`
	Status      string     `db:"status"       json:"status"`
	Budget      int64      `db:"budget"       json:"budget"`
	ExpiresAt   *time.Time `db:"expires_at"   json:"expires_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at"   json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"   json:"updated_at"`
}

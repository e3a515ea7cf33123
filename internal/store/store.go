package store

import (
	"context"
	"errors"
	"time"

	"github.com/craftlinkhq/craftlink/pkg/models"
	"github.com/google/uuid"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// ErrAlreadyResolved is returned when a transition is attempted on a request
// that has already left the NEW state.
var ErrAlreadyResolved = errors.New("request already resolved")

// ErrJobUnavailable is returned when a request is created against a job that
// is not open for offers.
var ErrJobUnavailable = errors.New("job not open for requests")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	CreatePrincipal(ctx context.Context, p *models.Principal) error
	GetPrincipal(ctx context.Context, id uuid.UUID) (*models.Principal, error)
	GetPrincipalByEmail(ctx context.Context, email string) (*models.Principal, error)
	IncrementLoginAttempts(ctx context.Context, id uuid.UUID) (int, error)
	LockPrincipal(ctx context.Context, id uuid.UUID, until time.Time) error
	ResetLockout(ctx context.Context, id uuid.UUID) error
	RecordLogin(ctx context.Context, id uuid.UUID, at time.Time) error

	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*models.Job, int, error)

	CreateRequest(ctx context.Context, req *models.Request) error
	GetRequest(ctx context.Context, id uuid.UUID) (*models.Request, error)
	ListRequests(ctx context.Context, filter RequestFilter) ([]*models.Request, int, error)
	TransitionRequest(ctx context.Context, t RequestTransition) (*models.Request, error)
	ExpireDueRequests(ctx context.Context, now time.Time) ([]*models.Request, error)
}

// JobFilter narrows ListJobs results. Zero values mean "any".
type JobFilter struct {
	RequesterID uuid.UUID
	ArtisanID   uuid.UUID
	Status      string
	Page        int
	Limit       int
}

// RequestFilter narrows ListRequests results. Zero values mean "any".
type RequestFilter struct {
	JobID       uuid.UUID
	ArtisanID   uuid.UUID
	RequesterID uuid.UUID
	Status      string
	Page        int
	Limit       int
}

// RequestTransition describes a single request state change together with the
// job update that must land in the same transaction.
type RequestTransition struct {
	RequestID uuid.UUID
	ToStatus  string
	ActorID   uuid.UUID
	Reason    *string
	At        time.Time

	// JobStatus is the job status after the transition: ASSIGNED on accept,
	// NEW on decline/cancel/timeout. When NEW, the job's artisan, request
	// pointer and expiry are cleared.
	JobStatus    string
	JobArtisanID *uuid.UUID
}

// Package lifecycle maintains consistency between a job and its requests
// across the offer/accept/decline/cancel/timeout workflow.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/craftlinkhq/craftlink/internal/notify"
	"github.com/craftlinkhq/craftlink/internal/store"
	"github.com/craftlinkhq/craftlink/pkg/models"
	"github.com/google/uuid"
)

// ErrMissingParam is returned when a required input is absent. No state is
// mutated in that case.
var ErrMissingParam = errors.New("required parameter missing")

const notifyTimeout = 15 * time.Second

// CreateRequestParams holds validated inputs for a new job request.
type CreateRequestParams struct {
	JobID        uuid.UUID
	ArtisanID    uuid.UUID
	RequesterID  uuid.UUID
	TimeoutHours int
}

// Service implements the request lifecycle operations. Each operation writes
// the request and its job in one storage transaction and then dispatches a
// best-effort notification.
type Service struct {
	store    store.Store
	notifier notify.Notifier
	now      func() time.Time
}

// NewService creates a lifecycle service.
func NewService(s store.Store, n notify.Notifier) *Service {
	return &Service{store: s, notifier: n, now: time.Now}
}

// CreateRequest offers a job to an artisan. The request starts NEW with an
// expiry of now + TimeoutHours; the job becomes PENDING with the same expiry
// and points at the new request. The artisan is notified.
func (s *Service) CreateRequest(ctx context.Context, p CreateRequestParams) (*models.Request, error) {
	if p.JobID == uuid.Nil || p.ArtisanID == uuid.Nil || p.RequesterID == uuid.Nil || p.TimeoutHours <= 0 {
		return nil, ErrMissingParam
	}

	now := s.now().UTC()
	expiry := now.Add(time.Duration(p.TimeoutHours) * time.Hour)
	req := &models.Request{
		ID:          uuid.New(),
		JobID:       p.JobID,
		ArtisanID:   p.ArtisanID,
		RequesterID: p.RequesterID,
		Status:      models.RequestStatusNew,
		ExpiresAt:   &expiry,
		CreatedAt:   now,
	}

	if err := s.store.CreateRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	go s.sendNotification(p.ArtisanID, "You have a new job request", "New Job Request")

	return req, nil
}

// AcceptRequest moves a NEW request to ACCEPTED and assigns the job to the
// accepting actor. The requester is notified.
func (s *Service) AcceptRequest(ctx context.Context, requestID, actorID uuid.UUID) (*models.Request, error) {
	if requestID == uuid.Nil {
		return nil, ErrMissingParam
	}

	artisanID := actorID
	req, err := s.store.TransitionRequest(ctx, store.RequestTransition{
		RequestID:    requestID,
		ToStatus:     models.RequestStatusAccepted,
		ActorID:      actorID,
		At:           s.now().UTC(),
		JobStatus:    models.JobStatusAssigned,
		JobArtisanID: &artisanID,
	})
	if err != nil {
		return nil, fmt.Errorf("accepting request: %w", err)
	}

	go s.sendNotification(req.RequesterID, "Your job request has been accepted", "Job Request Accepted")

	return req, nil
}

// DeclineRequest moves a NEW request to DECLINED and reverts the job to NEW
// so new offers can be made. The requester is notified.
func (s *Service) DeclineRequest(ctx context.Context, requestID, actorID uuid.UUID, reason *string) (*models.Request, error) {
	if requestID == uuid.Nil {
		return nil, ErrMissingParam
	}

	req, err := s.store.TransitionRequest(ctx, store.RequestTransition{
		RequestID: requestID,
		ToStatus:  models.RequestStatusDeclined,
		ActorID:   actorID,
		Reason:    reason,
		At:        s.now().UTC(),
		JobStatus: models.JobStatusNew,
	})
	if err != nil {
		return nil, fmt.Errorf("declining request: %w", err)
	}

	go s.sendNotification(req.RequesterID, "Your job request has been declined", "Job Request Declined")

	return req, nil
}

// CancelRequest moves a NEW request to CANCELED. The job reverts to NEW the
// same way a decline does: a withdrawn offer leaves nothing outstanding, so
// the job must reopen for new offers.
func (s *Service) CancelRequest(ctx context.Context, requestID, actorID uuid.UUID) (*models.Request, error) {
	if requestID == uuid.Nil {
		return nil, ErrMissingParam
	}

	req, err := s.store.TransitionRequest(ctx, store.RequestTransition{
		RequestID: requestID,
		ToStatus:  models.RequestStatusCanceled,
		ActorID:   actorID,
		At:        s.now().UTC(),
		JobStatus: models.JobStatusNew,
	})
	if err != nil {
		return nil, fmt.Errorf("canceling request: %w", err)
	}

	go s.sendNotification(req.RequesterID, "Your job request has been canceled", "Job Request Canceled")

	return req, nil
}

// TimeoutCheck expires an overdue offer on demand. It is a no-op returning
// (nil, nil) when the job is not PENDING or its expiry has not passed;
// repeated calls cause no state change and no error. On expiry the request
// becomes TIMEOUT, the job reverts to NEW with its artisan cleared, and the
// requester is notified.
func (s *Service) TimeoutCheck(ctx context.Context, jobID, actorID uuid.UUID) (*models.Request, error) {
	if jobID == uuid.Nil {
		return nil, ErrMissingParam
	}

	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("loading job: %w", err)
	}

	if job.Status != models.JobStatusPending {
		return nil, nil
	}
	now := s.now().UTC()
	if job.ExpiresAt == nil || !now.After(*job.ExpiresAt) {
		return nil, nil
	}
	if job.RequestID == nil {
		return nil, fmt.Errorf("pending job %s has no associated request: %w", job.ID, store.ErrNotFound)
	}

	req, err := s.store.TransitionRequest(ctx, store.RequestTransition{
		RequestID: *job.RequestID,
		ToStatus:  models.RequestStatusTimeout,
		ActorID:   actorID,
		At:        now,
		JobStatus: models.JobStatusNew,
	})
	if err != nil {
		return nil, fmt.Errorf("expiring request: %w", err)
	}

	go s.sendNotification(req.RequesterID, "Your job request has timed out", "Job Request Timed Out")

	return req, nil
}

// sendNotification looks up the recipient and delivers the message.
// Fire-and-forget: failures are logged and never reach the caller.
func (s *Service) sendNotification(recipientID uuid.UUID, message, subject string) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	recipient, err := s.store.GetPrincipal(ctx, recipientID)
	if err != nil {
		slog.Error("notification recipient lookup failed", "recipient_id", recipientID, "error", err)
		return
	}
	if err := s.notifier.Send(ctx, message, recipient.Email, subject); err != nil {
		slog.Error("notification send failed", "recipient", recipient.Email, "subject", subject, "error", err)
	}
}

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	mw "github.com/craftlinkhq/craftlink/internal/api/middleware"
	"github.com/craftlinkhq/craftlink/internal/api/response"
	"github.com/craftlinkhq/craftlink/internal/lifecycle"
	"github.com/craftlinkhq/craftlink/internal/store"
	"github.com/craftlinkhq/craftlink/pkg/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Lifecycle defines the interface the request handlers depend on.
type Lifecycle interface {
	CreateRequest(ctx context.Context, p lifecycle.CreateRequestParams) (*models.Request, error)
	AcceptRequest(ctx context.Context, requestID, actorID uuid.UUID) (*models.Request, error)
	DeclineRequest(ctx context.Context, requestID, actorID uuid.UUID, reason *string) (*models.Request, error)
	CancelRequest(ctx context.Context, requestID, actorID uuid.UUID) (*models.Request, error)
	TimeoutCheck(ctx context.Context, jobID, actorID uuid.UUID) (*models.Request, error)
}

// RequestStore defines the read interface for request lookups.
type RequestStore interface {
	GetRequest(ctx context.Context, id uuid.UUID) (*models.Request, error)
	ListRequests(ctx context.Context, filter store.RequestFilter) ([]*models.Request, int, error)
}

// NewCreateRequestHandler returns an http.HandlerFunc for POST /api/requests/create.
func NewCreateRequestHandler(svc Lifecycle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requesterID, ok := mw.GetPrincipalID(r)
		if !ok {
			response.Failure(w, http.StatusUnauthorized, "Authentication required.")
			return
		}

		var req struct {
			JobID        uuid.UUID `json:"job_id"`
			ArtisanID    uuid.UUID `json:"artisan_id"`
			TimeoutHours int       `json:"timeout_hours"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Failure(w, http.StatusBadRequest, response.MsgInvalidBody)
			return
		}

		created, err := svc.CreateRequest(r.Context(), lifecycle.CreateRequestParams{
			JobID:        req.JobID,
			ArtisanID:    req.ArtisanID,
			RequesterID:  requesterID,
			TimeoutHours: req.TimeoutHours,
		})
		if err != nil {
			writeLifecycleError(w, err)
			return
		}

		response.Created(w, created)
	}
}

// NewAcceptRequestHandler returns an http.HandlerFunc for PUT /api/requests/accept/{requestID}.
func NewAcceptRequestHandler(svc Lifecycle) http.HandlerFunc {
	return transitionHandler(func(ctx context.Context, svc Lifecycle, requestID, actorID uuid.UUID, _ *string) (*models.Request, error) {
		return svc.AcceptRequest(ctx, requestID, actorID)
	}, svc)
}

// NewDeclineRequestHandler returns an http.HandlerFunc for PUT /api/requests/reject/{requestID}.
func NewDeclineRequestHandler(svc Lifecycle) http.HandlerFunc {
	return transitionHandler(func(ctx context.Context, svc Lifecycle, requestID, actorID uuid.UUID, reason *string) (*models.Request, error) {
		return svc.DeclineRequest(ctx, requestID, actorID, reason)
	}, svc)
}

// NewCancelRequestHandler returns an http.HandlerFunc for PUT /api/requests/cancel/{requestID}.
func NewCancelRequestHandler(svc Lifecycle) http.HandlerFunc {
	return transitionHandler(func(ctx context.Context, svc Lifecycle, requestID, actorID uuid.UUID, _ *string) (*models.Request, error) {
		return svc.CancelRequest(ctx, requestID, actorID)
	}, svc)
}

// transitionHandler factors the shared shape of accept/reject/cancel: parse
// the request id, read the actor, optionally read a rejection reason, run the
// transition, map errors.
func transitionHandler(
	do func(ctx context.Context, svc Lifecycle, requestID, actorID uuid.UUID, reason *string) (*models.Request, error),
	svc Lifecycle,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, ok := mw.GetPrincipalID(r)
		if !ok {
			response.Failure(w, http.StatusUnauthorized, "Authentication required.")
			return
		}

		requestID, err := uuid.Parse(chi.URLParam(r, "requestID"))
		if err != nil {
			response.Failure(w, http.StatusBadRequest, response.MsgParamMissing)
			return
		}

		var reason *string
		if r.Body != nil && r.ContentLength != 0 {
			var body struct {
				RejectionReason *string `json:"rejection_reason"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
				reason = body.RejectionReason
			}
		}

		updated, err := do(r.Context(), svc, requestID, actorID, reason)
		if err != nil {
			writeLifecycleError(w, err)
			return
		}

		response.Single(w, updated)
	}
}

// NewTimeoutCheckHandler returns an http.HandlerFunc for POST /api/requests/timeout/{jobID}.
// A job that is not pending, or not yet overdue, yields a successful empty
// envelope rather than an error.
func NewTimeoutCheckHandler(svc Lifecycle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, ok := mw.GetPrincipalID(r)
		if !ok {
			response.Failure(w, http.StatusUnauthorized, "Authentication required.")
			return
		}

		jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			response.Failure(w, http.StatusBadRequest, response.MsgParamMissing)
			return
		}

		expired, err := svc.TimeoutCheck(r.Context(), jobID, actorID)
		if err != nil {
			writeLifecycleError(w, err)
			return
		}
		if expired == nil {
			response.NoOp(w, "No expired request to revert.")
			return
		}

		response.Single(w, expired)
	}
}

// NewGetRequestHandler returns an http.HandlerFunc for GET /api/requests/{requestID}.
func NewGetRequestHandler(s RequestStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID, err := uuid.Parse(chi.URLParam(r, "requestID"))
		if err != nil {
			response.Failure(w, http.StatusBadRequest, response.MsgParamMissing)
			return
		}

		req, err := s.GetRequest(r.Context(), requestID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Failure(w, http.StatusNotFound, response.MsgNoResult)
				return
			}
			response.Failure(w, http.StatusInternalServerError, response.MsgFailedRequest)
			return
		}

		response.Single(w, req)
	}
}

// NewListRequestsHandler returns an http.HandlerFunc for GET /api/requests/all
// and GET /api/requests/admin/all (the admin route differs only in the role
// required to reach it).
func NewListRequestsHandler(s RequestStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := store.RequestFilter{
			Status: r.URL.Query().Get("status"),
			Page:   queryInt(r, "page", 1),
			Limit:  queryInt(r, "pageSize", 50),
		}
		if v := r.URL.Query().Get("jobId"); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				response.Failure(w, http.StatusBadRequest, "jobId must be a valid id.")
				return
			}
			filter.JobID = id
		}

		requests, total, err := s.ListRequests(r.Context(), filter)
		if err != nil {
			response.Failure(w, http.StatusInternalServerError, response.MsgFailedRequest)
			return
		}
		if requests == nil {
			requests = []*models.Request{}
		}

		response.Collection(w, requests, total)
	}
}

// writeLifecycleError maps lifecycle and store errors onto the envelope.
func writeLifecycleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, lifecycle.ErrMissingParam):
		response.Failure(w, http.StatusBadRequest, response.MsgParamMissing)
	case errors.Is(err, store.ErrNotFound):
		response.Failure(w, http.StatusNotFound, response.MsgNoResult)
	case errors.Is(err, store.ErrAlreadyResolved):
		response.Failure(w, http.StatusConflict, "Request has already been resolved.")
	case errors.Is(err, store.ErrJobUnavailable):
		response.Failure(w, http.StatusConflict, "Job is not open for requests.")
	default:
		response.Failure(w, http.StatusInternalServerError, response.MsgFailedRequest)
	}
}

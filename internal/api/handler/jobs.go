package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	mw "github.com/craftlinkhq/craftlink/internal/api/middleware"
	"github.com/craftlinkhq/craftlink/internal/api/response"
	"github.com/craftlinkhq/craftlink/internal/store"
	"github.com/craftlinkhq/craftlink/pkg/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// JobStore defines the interface the job handlers depend on.
type JobStore interface {
	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	ListJobs(ctx context.Context, filter store.JobFilter) ([]*models.Job, int, error)
}

// NewCreateJobHandler returns an http.HandlerFunc for POST /api/jobs/create.
func NewCreateJobHandler(s JobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requesterID, ok := mw.GetPrincipalID(r)
		if !ok {
			response.Failure(w, http.StatusUnauthorized, "Authentication required.")
			return
		}

		var req struct {
			Title       string     `json:"title"`
			Description string     `json:"description"`
			CategoryID  *uuid.UUID `json:"category_id"`
			Budget      int64      `json:"budget"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Failure(w, http.StatusBadRequest, response.MsgInvalidBody)
			return
		}
		if req.Title == "" || req.Description == "" {
			response.Failure(w, http.StatusBadRequest, response.MsgParamMissing)
			return
		}

		now := time.Now().UTC()
		job := &models.Job{
			ID:          uuid.New(),
			Title:       req.Title,
			Description: req.Description,
			CategoryID:  req.CategoryID,
			RequesterID: requesterID,
			Status:      models.JobStatusNew,
			Budget:      req.Budget,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		if err := s.CreateJob(r.Context(), job); err != nil {
			if errors.Is(err, store.ErrDuplicateKey) {
				response.Failure(w, http.StatusConflict, response.MsgDuplicateEntry)
				return
			}
			response.Failure(w, http.StatusInternalServerError, response.MsgFailedRequest)
			return
		}

		response.Created(w, job)
	}
}

// NewGetJobHandler returns an http.HandlerFunc for GET /api/jobs/{jobID}.
func NewGetJobHandler(s JobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			response.Failure(w, http.StatusBadRequest, response.MsgParamMissing)
			return
		}

		job, err := s.GetJob(r.Context(), jobID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Failure(w, http.StatusNotFound, response.MsgNoResult)
				return
			}
			response.Failure(w, http.StatusInternalServerError, response.MsgFailedRequest)
			return
		}

		response.Single(w, job)
	}
}

// NewListJobsHandler returns an http.HandlerFunc for GET /api/jobs/all.
func NewListJobsHandler(s JobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := store.JobFilter{
			Status: r.URL.Query().Get("status"),
			Page:   queryInt(r, "page", 1),
			Limit:  queryInt(r, "pageSize", 50),
		}
		if v := r.URL.Query().Get("requesterId"); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				response.Failure(w, http.StatusBadRequest, "requesterId must be a valid id.")
				return
			}
			filter.RequesterID = id
		}

		jobs, total, err := s.ListJobs(r.Context(), filter)
		if err != nil {
			response.Failure(w, http.StatusInternalServerError, response.MsgFailedRequest)
			return
		}
		if jobs == nil {
			jobs = []*models.Job{}
		}

		response.Collection(w, jobs, total)
	}
}

// queryInt reads an integer query parameter, falling back on absence or junk.
func queryInt(r *http.Request, key string, defaultVal int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

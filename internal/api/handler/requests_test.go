package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	mw "github.com/craftlinkhq/craftlink/internal/api/middleware"
	"github.com/craftlinkhq/craftlink/internal/lifecycle"
	"github.com/craftlinkhq/craftlink/internal/store"
	"github.com/craftlinkhq/craftlink/pkg/models"
)

// --- mock Lifecycle ---

type mockLifecycle struct {
	createFn  func(p lifecycle.CreateRequestParams) (*models.Request, error)
	acceptFn  func(requestID, actorID uuid.UUID) (*models.Request, error)
	declineFn func(requestID, actorID uuid.UUID, reason *string) (*models.Request, error)
	cancelFn  func(requestID, actorID uuid.UUID) (*models.Request, error)
	timeoutFn func(jobID, actorID uuid.UUID) (*models.Request, error)
}

func (m *mockLifecycle) CreateRequest(_ context.Context, p lifecycle.CreateRequestParams) (*models.Request, error) {
	return m.createFn(p)
}

func (m *mockLifecycle) AcceptRequest(_ context.Context, requestID, actorID uuid.UUID) (*models.Request, error) {
	return m.acceptFn(requestID, actorID)
}

func (m *mockLifecycle) DeclineRequest(_ context.Context, requestID, actorID uuid.UUID, reason *string) (*models.Request, error) {
	return m.declineFn(requestID, actorID, reason)
}

func (m *mockLifecycle) CancelRequest(_ context.Context, requestID, actorID uuid.UUID) (*models.Request, error) {
	return m.cancelFn(requestID, actorID)
}

func (m *mockLifecycle) TimeoutCheck(_ context.Context, jobID, actorID uuid.UUID) (*models.Request, error) {
	return m.timeoutFn(jobID, actorID)
}

// --- mock RequestStore ---

type mockRequestStore struct {
	getFn  func(id uuid.UUID) (*models.Request, error)
	listFn func(filter store.RequestFilter) ([]*models.Request, int, error)
}

func (m *mockRequestStore) GetRequest(_ context.Context, id uuid.UUID) (*models.Request, error) {
	return m.getFn(id)
}

func (m *mockRequestStore) ListRequests(_ context.Context, filter store.RequestFilter) ([]*models.Request, int, error) {
	return m.listFn(filter)
}

// --- helpers ---

type testEnvelope struct {
	HasErrors  bool            `json:"hasErrors"`
	HasResults bool            `json:"hasResults"`
	Successful bool            `json:"successful"`
	Message    string          `json:"message"`
	Result     json.RawMessage `json:"result"`
	Items      json.RawMessage `json:"items"`
	Total      *int            `json:"total"`
}

func parseEnvelope(t *testing.T, rec *httptest.ResponseRecorder) testEnvelope {
	t.Helper()
	var env testEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return env
}

func authedRequest(t *testing.T, method, target string, body any, principalID uuid.UUID) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	r := httptest.NewRequest(method, target, &buf)
	r.Header.Set("Content-Type", "application/json")
	return r.WithContext(mw.SetPrincipalID(r.Context(), principalID))
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func sampleRequest(status string) *models.Request {
	expiry := time.Date(2025, 4, 2, 9, 0, 0, 0, time.UTC)
	return &models.Request{
		ID:          uuid.New(),
		JobID:       uuid.New(),
		ArtisanID:   uuid.New(),
		RequesterID: uuid.New(),
		Status:      status,
		ExpiresAt:   &expiry,
		CreatedAt:   time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC),
	}
}

// --- create ---

func TestCreateRequestHandler_Success(t *testing.T) {
	want := sampleRequest(models.RequestStatusNew)
	var captured lifecycle.CreateRequestParams
	mock := &mockLifecycle{createFn: func(p lifecycle.CreateRequestParams) (*models.Request, error) {
		captured = p
		return want, nil
	}}

	h := NewCreateRequestHandler(mock)
	rec := httptest.NewRecorder()
	requester := uuid.New()

	body := map[string]any{
		"job_id":        want.JobID,
		"artisan_id":    want.ArtisanID,
		"timeout_hours": 48,
	}
	h.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/api/requests/create", body, requester))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	env := parseEnvelope(t, rec)
	if !env.Successful || !env.HasResults {
		t.Errorf("unexpected envelope: %+v", env)
	}
	if captured.RequesterID != requester {
		t.Errorf("expected requester %s, got %s", requester, captured.RequesterID)
	}
	if captured.TimeoutHours != 48 {
		t.Errorf("expected timeout_hours 48, got %d", captured.TimeoutHours)
	}
}

func TestCreateRequestHandler_MissingParam(t *testing.T) {
	mock := &mockLifecycle{createFn: func(lifecycle.CreateRequestParams) (*models.Request, error) {
		return nil, lifecycle.ErrMissingParam
	}}

	h := NewCreateRequestHandler(mock)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/api/requests/create", map[string]any{}, uuid.New()))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	env := parseEnvelope(t, rec)
	if !env.HasErrors {
		t.Errorf("expected error envelope, got %+v", env)
	}
}

func TestCreateRequestHandler_JobUnavailable(t *testing.T) {
	mock := &mockLifecycle{createFn: func(lifecycle.CreateRequestParams) (*models.Request, error) {
		return nil, store.ErrJobUnavailable
	}}

	h := NewCreateRequestHandler(mock)
	rec := httptest.NewRecorder()
	body := map[string]any{"job_id": uuid.New(), "artisan_id": uuid.New(), "timeout_hours": 24}
	h.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/api/requests/create", body, uuid.New()))

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestCreateRequestHandler_NoPrincipal(t *testing.T) {
	h := NewCreateRequestHandler(&mockLifecycle{})
	rec := httptest.NewRecorder()

	r := httptest.NewRequest(http.MethodPost, "/api/requests/create", bytes.NewReader([]byte("{}")))
	h.ServeHTTP(rec, r)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

// --- transitions ---

func TestAcceptRequestHandler_Success(t *testing.T) {
	want := sampleRequest(models.RequestStatusAccepted)
	actor := uuid.New()
	var gotRequestID, gotActorID uuid.UUID
	mock := &mockLifecycle{acceptFn: func(requestID, actorID uuid.UUID) (*models.Request, error) {
		gotRequestID, gotActorID = requestID, actorID
		return want, nil
	}}

	h := NewAcceptRequestHandler(mock)
	rec := httptest.NewRecorder()
	r := authedRequest(t, http.MethodPut, "/api/requests/accept/"+want.ID.String(), nil, actor)
	h.ServeHTTP(rec, withURLParam(r, "requestID", want.ID.String()))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotRequestID != want.ID {
		t.Errorf("expected request %s, got %s", want.ID, gotRequestID)
	}
	if gotActorID != actor {
		t.Errorf("expected actor %s, got %s", actor, gotActorID)
	}
}

func TestDeclineRequestHandler_PassesReason(t *testing.T) {
	want := sampleRequest(models.RequestStatusDeclined)
	var gotReason *string
	mock := &mockLifecycle{declineFn: func(_, _ uuid.UUID, reason *string) (*models.Request, error) {
		gotReason = reason
		return want, nil
	}}

	h := NewDeclineRequestHandler(mock)
	rec := httptest.NewRecorder()
	body := map[string]any{"rejection_reason": "Fully booked"}
	r := authedRequest(t, http.MethodPut, "/api/requests/reject/"+want.ID.String(), body, uuid.New())
	h.ServeHTTP(rec, withURLParam(r, "requestID", want.ID.String()))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotReason == nil || *gotReason != "Fully booked" {
		t.Errorf("expected reason to pass through, got %v", gotReason)
	}
}

func TestDeclineRequestHandler_NoBody(t *testing.T) {
	want := sampleRequest(models.RequestStatusDeclined)
	called := false
	mock := &mockLifecycle{declineFn: func(_, _ uuid.UUID, reason *string) (*models.Request, error) {
		called = true
		if reason != nil {
			t.Errorf("expected nil reason, got %q", *reason)
		}
		return want, nil
	}}

	h := NewDeclineRequestHandler(mock)
	rec := httptest.NewRecorder()
	r := authedRequest(t, http.MethodPut, "/api/requests/reject/"+want.ID.String(), nil, uuid.New())
	h.ServeHTTP(rec, withURLParam(r, "requestID", want.ID.String()))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !called {
		t.Error("decline was never invoked")
	}
}

func TestCancelRequestHandler_AlreadyResolved(t *testing.T) {
	mock := &mockLifecycle{cancelFn: func(_, _ uuid.UUID) (*models.Request, error) {
		return nil, store.ErrAlreadyResolved
	}}

	h := NewCancelRequestHandler(mock)
	rec := httptest.NewRecorder()
	id := uuid.New()
	r := authedRequest(t, http.MethodPut, "/api/requests/cancel/"+id.String(), nil, uuid.New())
	h.ServeHTTP(rec, withURLParam(r, "requestID", id.String()))

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestTransitionHandler_BadRequestID(t *testing.T) {
	h := NewAcceptRequestHandler(&mockLifecycle{})
	rec := httptest.NewRecorder()
	r := authedRequest(t, http.MethodPut, "/api/requests/accept/not-a-uuid", nil, uuid.New())
	h.ServeHTTP(rec, withURLParam(r, "requestID", "not-a-uuid"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestTransitionHandler_NotFound(t *testing.T) {
	mock := &mockLifecycle{acceptFn: func(_, _ uuid.UUID) (*models.Request, error) {
		return nil, store.ErrNotFound
	}}

	h := NewAcceptRequestHandler(mock)
	rec := httptest.NewRecorder()
	id := uuid.New()
	r := authedRequest(t, http.MethodPut, "/api/requests/accept/"+id.String(), nil, uuid.New())
	h.ServeHTTP(rec, withURLParam(r, "requestID", id.String()))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestTransitionHandler_UnexpectedError(t *testing.T) {
	mock := &mockLifecycle{acceptFn: func(_, _ uuid.UUID) (*models.Request, error) {
		return nil, errors.New("boom")
	}}

	h := NewAcceptRequestHandler(mock)
	rec := httptest.NewRecorder()
	id := uuid.New()
	r := authedRequest(t, http.MethodPut, "/api/requests/accept/"+id.String(), nil, uuid.New())
	h.ServeHTTP(rec, withURLParam(r, "requestID", id.String()))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

// --- timeout ---

func TestTimeoutCheckHandler_Expired(t *testing.T) {
	want := sampleRequest(models.RequestStatusTimeout)
	mock := &mockLifecycle{timeoutFn: func(_, _ uuid.UUID) (*models.Request, error) {
		return want, nil
	}}

	h := NewTimeoutCheckHandler(mock)
	rec := httptest.NewRecorder()
	r := authedRequest(t, http.MethodPost, "/api/requests/timeout/"+want.JobID.String(), nil, uuid.New())
	h.ServeHTTP(rec, withURLParam(r, "jobID", want.JobID.String()))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	env := parseEnvelope(t, rec)
	if !env.HasResults {
		t.Errorf("expected result envelope, got %+v", env)
	}
}

func TestTimeoutCheckHandler_NoOp(t *testing.T) {
	mock := &mockLifecycle{timeoutFn: func(_, _ uuid.UUID) (*models.Request, error) {
		return nil, nil
	}}

	h := NewTimeoutCheckHandler(mock)
	rec := httptest.NewRecorder()
	jobID := uuid.New()
	r := authedRequest(t, http.MethodPost, "/api/requests/timeout/"+jobID.String(), nil, uuid.New())
	h.ServeHTTP(rec, withURLParam(r, "jobID", jobID.String()))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	env := parseEnvelope(t, rec)
	if env.HasResults || !env.Successful {
		t.Errorf("expected empty successful envelope, got %+v", env)
	}
}

// --- get / list ---

func TestGetRequestHandler_Success(t *testing.T) {
	want := sampleRequest(models.RequestStatusNew)
	mock := &mockRequestStore{getFn: func(id uuid.UUID) (*models.Request, error) {
		if id != want.ID {
			t.Errorf("expected id %s, got %s", want.ID, id)
		}
		return want, nil
	}}

	h := NewGetRequestHandler(mock)
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/requests/"+want.ID.String(), nil)
	h.ServeHTTP(rec, withURLParam(r, "requestID", want.ID.String()))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	env := parseEnvelope(t, rec)
	var got models.Request
	if err := json.Unmarshal(env.Result, &got); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if got.ID != want.ID {
		t.Errorf("expected id %s, got %s", want.ID, got.ID)
	}
}

func TestGetRequestHandler_NotFound(t *testing.T) {
	mock := &mockRequestStore{getFn: func(uuid.UUID) (*models.Request, error) {
		return nil, store.ErrNotFound
	}}

	h := NewGetRequestHandler(mock)
	rec := httptest.NewRecorder()
	id := uuid.New()
	r := httptest.NewRequest(http.MethodGet, "/api/requests/"+id.String(), nil)
	h.ServeHTTP(rec, withURLParam(r, "requestID", id.String()))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestListRequestsHandler_Filters(t *testing.T) {
	jobID := uuid.New()
	var captured store.RequestFilter
	mock := &mockRequestStore{listFn: func(filter store.RequestFilter) ([]*models.Request, int, error) {
		captured = filter
		return []*models.Request{sampleRequest(models.RequestStatusNew)}, 1, nil
	}}

	h := NewListRequestsHandler(mock)
	rec := httptest.NewRecorder()
	target := "/api/requests/all?status=NEW&page=2&pageSize=10&jobId=" + jobID.String()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if captured.Status != "NEW" || captured.Page != 2 || captured.Limit != 10 {
		t.Errorf("unexpected filter: %+v", captured)
	}
	if captured.JobID != jobID {
		t.Errorf("expected job filter %s, got %s", jobID, captured.JobID)
	}
	env := parseEnvelope(t, rec)
	if env.Total == nil || *env.Total != 1 {
		t.Errorf("expected total 1, got %v", env.Total)
	}
}

func TestListRequestsHandler_EmptyPage(t *testing.T) {
	mock := &mockRequestStore{listFn: func(store.RequestFilter) ([]*models.Request, int, error) {
		return nil, 0, nil
	}}

	h := NewListRequestsHandler(mock)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/requests/all", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	env := parseEnvelope(t, rec)
	if string(env.Items) != "[]" {
		t.Errorf("expected empty items array, got %s", env.Items)
	}
}

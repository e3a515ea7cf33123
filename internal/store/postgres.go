package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/craftlinkhq/craftlink/pkg/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Principals ---

const principalColumns = `id, email, password_hash, first_name, last_name, role,
	login_attempts, is_locked, lock_until, last_login, login_time, is_active,
	created_at, updated_at`

func scanPrincipal(row pgx.Row) (*models.Principal, error) {
	var p models.Principal
	err := row.Scan(&p.ID, &p.Email, &p.PasswordHash, &p.FirstName, &p.LastName,
		&p.Role, &p.LoginAttempts, &p.IsLocked, &p.LockUntil, &p.LastLogin,
		&p.LoginTime, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan principal: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) CreatePrincipal(ctx context.Context, p *models.Principal) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO principals (id, email, password_hash, first_name, last_name, role, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.Email, p.PasswordHash, p.FirstName, p.LastName, p.Role, p.IsActive, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create principal: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPrincipal(ctx context.Context, id uuid.UUID) (*models.Principal, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+principalColumns+` FROM principals WHERE id = $1`, id)
	return scanPrincipal(row)
}

func (s *PostgresStore) GetPrincipalByEmail(ctx context.Context, email string) (*models.Principal, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+principalColumns+` FROM principals WHERE email = $1`, email)
	return scanPrincipal(row)
}

// IncrementLoginAttempts bumps the failed-attempt counter atomically and
// returns the new value, so concurrent failures never under-count.
func (s *PostgresStore) IncrementLoginAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	var attempts int
	err := s.pool.QueryRow(ctx,
		`UPDATE principals SET login_attempts = login_attempts + 1, updated_at = NOW()
		 WHERE id = $1 RETURNING login_attempts`, id).Scan(&attempts)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("increment login attempts: %w", err)
	}
	return attempts, nil
}

func (s *PostgresStore) LockPrincipal(ctx context.Context, id uuid.UUID, until time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE principals SET is_locked = TRUE, lock_until = $2, updated_at = NOW()
		 WHERE id = $1`, id, until)
	if err != nil {
		return fmt.Errorf("lock principal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ResetLockout(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE principals SET login_attempts = 0, is_locked = FALSE, lock_until = NULL, updated_at = NOW()
		 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("reset lockout: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordLogin rolls login_time into last_login and stamps the new login time.
func (s *PostgresStore) RecordLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE principals SET last_login = login_time, login_time = $2, updated_at = NOW()
		 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("record login: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Jobs ---

const jobColumns = `id, title, description, category_id, requester_id, artisan_id,
	request_id, status, budget, expires_at, created_at, updated_at`

func scanJob(row pgx.Row) (*models.Job, error) {
	var j models.Job
	err := row.Scan(&j.ID, &j.Title, &j.Description, &j.CategoryID, &j.RequesterID,
		&j.ArtisanID, &j.RequestID, &j.Status, &j.Budget, &j.ExpiresAt,
		&j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}
	return &j, nil
}

func (s *PostgresStore) CreateJob(ctx context.Context, job *models.Job) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO jobs (id, title, description, category_id, requester_id, artisan_id, status, budget, expires_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		job.ID, job.Title, job.Description, job.CategoryID, job.RequesterID,
		job.ArtisanID, job.Status, job.Budget, job.ExpiresAt, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	return scanJob(row)
}

func (s *PostgresStore) ListJobs(ctx context.Context, filter JobFilter) ([]*models.Job, int, error) {
	conditions := []string{"TRUE"}
	var args []any
	argIdx := 1

	if filter.RequesterID != uuid.Nil {
		conditions = append(conditions, fmt.Sprintf("requester_id = $%d", argIdx))
		args = append(args, filter.RequesterID)
		argIdx++
	}
	if filter.ArtisanID != uuid.Nil {
		conditions = append(conditions, fmt.Sprintf("artisan_id = $%d", argIdx))
		args = append(args, filter.ArtisanID)
		argIdx++
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, filter.Status)
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM jobs WHERE " + where
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count jobs: %w", err)
	}

	limit, offset := normalizePagination(filter.Page, filter.Limit)

	dataQuery := fmt.Sprintf(
		`SELECT `+jobColumns+` FROM jobs WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, 0, err
		}
		jobs = append(jobs, j)
	}
	return jobs, total, rows.Err()
}

// --- Requests ---

const requestColumns = `id, job_id, artisan_id, requester_id, status, expires_at,
	rejection_reason, created_at, updated_on, updated_by`

func scanRequest(row pgx.Row) (*models.Request, error) {
	var r models.Request
	err := row.Scan(&r.ID, &r.JobID, &r.ArtisanID, &r.RequesterID, &r.Status,
		&r.ExpiresAt, &r.RejectionReason, &r.CreatedAt, &r.UpdatedOn, &r.UpdatedBy)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan request: %w", err)
	}
	return &r, nil
}

// CreateRequest inserts the request and flips its job to PENDING in a single
// transaction. The job must currently be open (NEW): a job already carrying
// an outstanding offer, or already assigned, rejects the new request.
func (s *PostgresStore) CreateRequest(ctx context.Context, req *models.Request) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create request: %w", err)
	}
	defer tx.Rollback(ctx)

	var jobStatus string
	err = tx.QueryRow(ctx,
		`SELECT status FROM jobs WHERE id = $1 FOR UPDATE`, req.JobID).Scan(&jobStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lock job: %w", err)
	}
	if jobStatus != models.JobStatusNew {
		return ErrJobUnavailable
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO requests (id, job_id, artisan_id, requester_id, status, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		req.ID, req.JobID, req.ArtisanID, req.RequesterID, req.Status, req.ExpiresAt, req.CreatedAt)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE jobs SET status = $2, request_id = $3, expires_at = $4, updated_at = $5
		 WHERE id = $1`,
		req.JobID, models.JobStatusPending, req.ID, req.ExpiresAt, req.CreatedAt)
	if err != nil {
		return fmt.Errorf("mark job pending: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create request: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetRequest(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+requestColumns+` FROM requests WHERE id = $1`, id)
	return scanRequest(row)
}

func (s *PostgresStore) ListRequests(ctx context.Context, filter RequestFilter) ([]*models.Request, int, error) {
	conditions := []string{"TRUE"}
	var args []any
	argIdx := 1

	if filter.JobID != uuid.Nil {
		conditions = append(conditions, fmt.Sprintf("job_id = $%d", argIdx))
		args = append(args, filter.JobID)
		argIdx++
	}
	if filter.ArtisanID != uuid.Nil {
		conditions = append(conditions, fmt.Sprintf("artisan_id = $%d", argIdx))
		args = append(args, filter.ArtisanID)
		argIdx++
	}
	if filter.RequesterID != uuid.Nil {
		conditions = append(conditions, fmt.Sprintf("requester_id = $%d", argIdx))
		args = append(args, filter.RequesterID)
		argIdx++
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, filter.Status)
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM requests WHERE " + where
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count requests: %w", err)
	}

	limit, offset := normalizePagination(filter.Page, filter.Limit)

	dataQuery := fmt.Sprintf(
		`SELECT `+requestColumns+` FROM requests WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	var requests []*models.Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		requests = append(requests, r)
	}
	return requests, total, rows.Err()
}

// TransitionRequest moves a request out of NEW and applies the coupled job
// update in one transaction. The row lock on the request serializes
// concurrent transitions: the second caller sees the terminal state and gets
// ErrAlreadyResolved instead of silently re-assigning the job.
func (s *PostgresStore) TransitionRequest(ctx context.Context, t RequestTransition) (*models.Request, error) {
	if !models.TerminalRequestStatus(t.ToStatus) {
		return nil, fmt.Errorf("invalid request status transition: NEW -> %s", t.ToStatus)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transition: %w", err)
	}
	defer tx.Rollback(ctx)

	req, err := scanRequest(tx.QueryRow(ctx,
		`SELECT `+requestColumns+` FROM requests WHERE id = $1 FOR UPDATE`, t.RequestID))
	if err != nil {
		return nil, err
	}
	if req.Status != models.RequestStatusNew {
		return nil, ErrAlreadyResolved
	}

	updated, err := scanRequest(tx.QueryRow(ctx,
		`UPDATE requests SET status = $2, updated_on = $3, updated_by = $4,
		   rejection_reason = COALESCE($5, rejection_reason)
		 WHERE id = $1
		 RETURNING `+requestColumns, t.RequestID, t.ToStatus, t.At, t.ActorID, t.Reason))
	if err != nil {
		return nil, err
	}

	if err := s.applyJobTransition(ctx, tx, req.JobID, t); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transition: %w", err)
	}
	return updated, nil
}

func (s *PostgresStore) applyJobTransition(ctx context.Context, tx pgx.Tx, jobID uuid.UUID, t RequestTransition) error {
	var tag pgconn.CommandTag
	var err error

	switch t.JobStatus {
	case models.JobStatusAssigned:
		tag, err = tx.Exec(ctx,
			`UPDATE jobs SET status = $2, artisan_id = $3, updated_at = $4 WHERE id = $1`,
			jobID, models.JobStatusAssigned, t.JobArtisanID, t.At)
	case models.JobStatusNew:
		tag, err = tx.Exec(ctx,
			`UPDATE jobs SET status = $2, artisan_id = NULL, request_id = NULL, expires_at = NULL, updated_at = $3
			 WHERE id = $1`,
			jobID, models.JobStatusNew, t.At)
	default:
		return fmt.Errorf("invalid job status after transition: %s", t.JobStatus)
	}
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ExpireDueRequests finds every PENDING job whose expiry has passed and
// applies the TIMEOUT transition server-side: request -> TIMEOUT, job back to
// NEW with its artisan cleared. Returns the requests that were expired so the
// caller can notify requesters. SKIP LOCKED keeps concurrent sweeps and
// client-triggered timeout checks from tripping over each other.
func (s *PostgresStore) ExpireDueRequests(ctx context.Context, now time.Time) ([]*models.Request, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin expiry sweep: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx,
		`SELECT id, request_id FROM jobs
		 WHERE status = $1 AND expires_at IS NOT NULL AND expires_at < $2
		 FOR UPDATE SKIP LOCKED`, models.JobStatusPending, now)
	if err != nil {
		return nil, fmt.Errorf("find due jobs: %w", err)
	}

	type dueJob struct {
		id        uuid.UUID
		requestID *uuid.UUID
	}
	var due []dueJob
	for rows.Next() {
		var d dueJob
		if err := rows.Scan(&d.id, &d.requestID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan due job: %w", err)
		}
		due = append(due, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var expired []*models.Request
	for _, d := range due {
		if d.requestID != nil {
			req, err := scanRequest(tx.QueryRow(ctx,
				`UPDATE requests SET status = $2, updated_on = $3
				 WHERE id = $1 AND status = $4
				 RETURNING `+requestColumns,
				*d.requestID, models.RequestStatusTimeout, now, models.RequestStatusNew))
			if err != nil && !errors.Is(err, ErrNotFound) {
				return nil, err
			}
			if err == nil {
				expired = append(expired, req)
			}
		}

		_, err = tx.Exec(ctx,
			`UPDATE jobs SET status = $2, artisan_id = NULL, request_id = NULL, expires_at = NULL, updated_at = $3
			 WHERE id = $1`,
			d.id, models.JobStatusNew, now)
		if err != nil {
			return nil, fmt.Errorf("revert expired job: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit expiry sweep: %w", err)
	}
	return expired, nil
}

// normalizePagination clamps page/limit to sane bounds.
func normalizePagination(page, limit int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if page <= 0 {
		page = 1
	}
	return limit, (page - 1) * limit
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

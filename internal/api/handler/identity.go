package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/craftlinkhq/craftlink/internal/api/response"
	"github.com/craftlinkhq/craftlink/internal/auth"
	"github.com/craftlinkhq/craftlink/internal/store"
	"github.com/craftlinkhq/craftlink/pkg/models"
	"github.com/google/uuid"
)

// LoginEvaluator defines the interface the login handler depends on.
type LoginEvaluator interface {
	EvaluateLogin(ctx context.Context, email, password string) (*auth.LoginResult, error)
}

// NewLoginHandler returns an http.HandlerFunc for POST /api/identity/token.
func NewLoginHandler(guard LoginEvaluator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Failure(w, http.StatusBadRequest, response.MsgInvalidBody)
			return
		}
		if req.Email == "" || req.Password == "" {
			response.Failure(w, http.StatusBadRequest, response.MsgParamMissing)
			return
		}

		result, err := guard.EvaluateLogin(r.Context(), req.Email, req.Password)
		if err != nil {
			response.Failure(w, http.StatusInternalServerError, response.MsgFailedRequest)
			return
		}

		switch result.Outcome {
		case auth.OutcomeLocked:
			response.Failure(w, http.StatusLocked, response.MsgAccountLocked)
		case auth.OutcomeInvalidCredentials:
			response.Failure(w, http.StatusBadRequest, response.MsgInvalidCredentials)
		case auth.OutcomeSuccess:
			response.Single(w, loginResponse{
				Token:        result.Tokens.AccessToken,
				RefreshToken: result.Tokens.RefreshToken,
				User:         result.Principal,
			})
		default:
			response.Failure(w, http.StatusInternalServerError, response.MsgFailedRequest)
		}
	}
}

type loginResponse struct {
	Token        string            `json:"token"`
	RefreshToken string            `json:"refresh_token"`
	User         *models.Principal `json:"user"`
}

// PrincipalCreator defines the interface the register handler depends on.
type PrincipalCreator interface {
	CreatePrincipal(ctx context.Context, p *models.Principal) error
}

// NewRegisterHandler returns an http.HandlerFunc for POST /api/identity/register.
// Admin accounts cannot be self-registered.
func NewRegisterHandler(s PrincipalCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email     string `json:"email"`
			Password  string `json:"password"`
			FirstName string `json:"first_name"`
			LastName  string `json:"last_name"`
			Role      string `json:"role"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Failure(w, http.StatusBadRequest, response.MsgInvalidBody)
			return
		}
		if req.Email == "" || req.Password == "" || req.FirstName == "" || req.LastName == "" {
			response.Failure(w, http.StatusBadRequest, response.MsgParamMissing)
			return
		}

		role := req.Role
		if role == "" {
			role = models.RoleUser
		}
		if role != models.RoleUser && role != models.RoleArtisan {
			response.Failure(w, http.StatusBadRequest, "Role must be user or artisan.")
			return
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			response.Failure(w, http.StatusInternalServerError, response.MsgFailedRequest)
			return
		}

		now := time.Now().UTC()
		p := &models.Principal{
			ID:           uuid.New(),
			Email:        req.Email,
			PasswordHash: hash,
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			Role:         role,
			IsActive:     true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		if err := s.CreatePrincipal(r.Context(), p); err != nil {
			if errors.Is(err, store.ErrDuplicateKey) {
				response.Failure(w, http.StatusConflict, response.MsgDuplicateEntry)
				return
			}
			response.Failure(w, http.StatusInternalServerError, response.MsgFailedRequest)
			return
		}

		response.Created(w, p)
	}
}

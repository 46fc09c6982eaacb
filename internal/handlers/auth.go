package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/kudipay/settler/internal/apperrors"
	"github.com/kudipay/settler/internal/handlers/render"
	"github.com/kudipay/settler/internal/handlers/requestid"
	"github.com/kudipay/settler/internal/logger"
)

func handleRegister(authService authService, l logger.Logger) http.Handler {
	type request struct {
		Username string `json:"username" validate:"required,min=3"`
		Password string `json:"password" validate:"required,min=8"`
	}

	type response struct {
		Success   bool      `json:"success"`
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
		RequestID string    `json:"request_id"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		_, token, err := authService.Register(r.Context(), req.Username, req.Password)

		switch {
		case err == nil:
			render.JSON(w, response{
				Success:   true,
				Token:     token.Value,
				ExpiresAt: token.ExpiresAt,
				RequestID: requestid.FromContext(r.Context()),
			})
		case errors.Is(err, apperrors.ErrUserAlreadyExists):
			renderCode(w, r, CodeUserExists, http.StatusConflict)
		default:
			l.Error("Failed to register user", "request_id", requestid.FromContext(r.Context()), "error", err)
			renderCode(w, r, CodeBackendError, http.StatusInternalServerError)
		}
	})
}

func handleLogin(authService authService, l logger.Logger) http.Handler {
	type request struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	type response struct {
		Success   bool      `json:"success"`
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
		RequestID string    `json:"request_id"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		_, token, err := authService.Login(r.Context(), req.Username, req.Password)

		switch {
		case err == nil:
			render.JSON(w, response{
				Success:   true,
				Token:     token.Value,
				ExpiresAt: token.ExpiresAt,
				RequestID: requestid.FromContext(r.Context()),
			})
		case errors.Is(err, apperrors.ErrUserNotFound):
			renderCode(w, r, CodeUnauthorized, http.StatusUnauthorized)
		default:
			l.Error("Failed to login user", "request_id", requestid.FromContext(r.Context()), "error", err)
			renderCode(w, r, CodeBackendError, http.StatusInternalServerError)
		}
	})
}

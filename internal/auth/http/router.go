package http

import (
	"context"
	"net/http"
	"time"

	"github.com/AlibekovAA/session-auth/backend/internal/auth/gate"
	"github.com/AlibekovAA/session-auth/backend/internal/auth/service"
	commonhttp "github.com/AlibekovAA/session-auth/backend/internal/common/http"
	"github.com/AlibekovAA/session-auth/backend/internal/common/logger"
	userdomain "github.com/AlibekovAA/session-auth/backend/internal/user/domain"
)

type AuthAPI interface {
	Login(ctx context.Context, username, password string) (service.Session, error)
	Logout(ctx context.Context, userID int64) error
	Register(ctx context.Context, input service.RegisterInput) (userdomain.User, error)
}

type TokenIssuer interface {
	IssueAccessToken(user userdomain.User, sessionID string) (service.AccessToken, error)
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

type loginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      userResponse `json:"user"`
}

type Config struct {
	RequestTimeout time.Duration
	HealthChecks   map[string]commonhttp.HealthCheck
}

type Handler struct {
	auth    AuthAPI
	tokens  TokenIssuer
	timeout time.Duration
	log     *logger.Logger
}

// NewHandler serves the auth API. It expects jwtverify.Middleware to run in
// front of it so gated routes can see the caller's claims.
func NewHandler(auth AuthAPI, tokens TokenIssuer, cfg Config, log *logger.Logger) http.Handler {
	h := &Handler{auth: auth, tokens: tokens, timeout: cfg.RequestTimeout, log: log}
	requireAuth := gate.RequireAuth(log)
	post := commonhttp.RequireMethod(http.MethodPost)
	get := commonhttp.RequireMethod(http.MethodGet)
	withTimeout := commonhttp.WithTimeout(h.timeout)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", commonhttp.HealthHandler(log, cfg.HealthChecks))
	mux.HandleFunc("/api/auth/register", post(withTimeout(h.register)))
	mux.HandleFunc("/api/auth/login", post(withTimeout(h.login)))
	mux.Handle("/api/auth/logout", requireAuth(post(withTimeout(h.logout))))
	mux.Handle("/api/auth/me", requireAuth(get(h.me)))
	return mux
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil {
		h.log.WithFields(r.Context(), logger.Fields{"action": "register_invalid_json"}).Warnf("register failed: invalid json: %v", err)
		commonhttp.WriteErrorEnvelope(w, http.StatusBadRequest, commonhttp.CodeInvalidJSON, "invalid json", nil, "")
		return
	}

	user, err := h.auth.Register(r.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	commonhttp.WriteJSON(w, http.StatusCreated, toUserResponse(user))
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil {
		h.log.WithFields(r.Context(), logger.Fields{"action": "login_invalid_json"}).Warnf("login failed: invalid json: %v", err)
		commonhttp.WriteErrorEnvelope(w, http.StatusBadRequest, commonhttp.CodeInvalidJSON, "invalid json", nil, "")
		return
	}

	session, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	token, err := h.tokens.IssueAccessToken(session.User, session.ID)
	if err != nil {
		h.log.WithFields(r.Context(), logger.Fields{
			"user_id": session.User.ID,
			"action":  "login_token_issue_failed",
		}).Errorf("login failed: token issue error: %v", err)
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, loginResponse{
		Token:     token.Token,
		ExpiresAt: token.ExpiresAt,
		User:      toUserResponse(session.User),
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	req := gate.FromHTTP(r)
	if err := h.auth.Logout(r.Context(), req.Claims.UserID); err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	req := gate.FromHTTP(r)
	commonhttp.WriteJSON(w, http.StatusOK, userResponse{
		ID:       req.Claims.UserID,
		Username: req.Claims.Username,
	})
}

func toUserResponse(user userdomain.User) userResponse {
	return userResponse{ID: user.ID, Username: user.Username, Email: user.Email}
}

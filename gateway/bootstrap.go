package gateway

import (
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"

	"github.com/jasurbek-jolanboyev/safechat.uz/errors"
	"github.com/jasurbek-jolanboyev/safechat.uz/services"
)

// Bootstrap exposes the plain HTTP endpoints a client needs before it can
// open a socket: account creation and login. Tokens issued here are what
// the join handshake validates when auth is required.
type Bootstrap struct {
	log  *slog.Logger
	auth services.IAuthService
}

func NewBootstrap(log *slog.Logger, auth services.IAuthService) *Bootstrap {
	return &Bootstrap{log: log, auth: auth}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

func (b *Bootstrap) Register(w http.ResponseWriter, r *http.Request) {
	b.handle(w, r, b.auth.Register)
}

func (b *Bootstrap) Login(w http.ResponseWriter, r *http.Request) {
	b.handle(w, r, b.auth.Login)
}

func (b *Bootstrap) handle(w http.ResponseWriter, r *http.Request, fn func(username, password string) (services.Token, error)) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	token, err := fn(req.Username, req.Password)
	if err != nil {
		b.log.Debug("Credentials rejected", "username", req.Username, "reason", err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(tokenResponse{Token: string(token)})
}

func statusFor(err error) int {
	switch {
	case stderrors.Is(err, errors.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case stderrors.Is(err, errors.ErrUserAlreadyExists), stderrors.Is(err, errors.ErrNameTaken):
		return http.StatusConflict
	case stderrors.Is(err, errors.ErrInvalidPassword):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/montanasport9-stack/maestriadotrader/internal/model"
	"github.com/montanasport9-stack/maestriadotrader/internal/store"
)

// MinPasswordLen is the shortest password register accepts.
const MinPasswordLen = 6

// Handler serves POST /api/auth/register and POST /api/auth/login.
type Handler struct {
	store  store.Store
	issuer *Issuer
	cost   int
}

// NewHandler creates the auth endpoints over st.
func NewHandler(st store.Store, issuer *Issuer) *Handler {
	return &Handler{store: st, issuer: issuer, cost: bcrypt.DefaultCost}
}

// Credentials is the JSON body for register and login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is returned by a successful register or login.
type Session struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// Register handles POST /api/auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req Credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	email := store.NormalizeEmail(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		writeError(w, "a valid email is required", http.StatusBadRequest)
		return
	}
	if len(req.Password) < MinPasswordLen {
		writeError(w, "password must be at least 6 characters", http.StatusBadRequest)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.cost)
	if err != nil {
		// Only ErrPasswordTooLong is reachable with a valid cost.
		writeError(w, "password is too long", http.StatusBadRequest)
		return
	}

	u := &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := h.store.CreateUser(r.Context(), u); err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			writeError(w, "Email already exists", http.StatusBadRequest)
			return
		}
		slog.Error("register failed", "err", err)
		writeError(w, "failed to create account", http.StatusInternalServerError)
		return
	}

	slog.Info("user registered", "id", u.ID)
	h.writeSession(w, u)
}

// Login handles POST /api/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req Credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	u, err := h.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		slog.Error("login lookup failed", "err", err)
		writeError(w, "failed to load account", http.StatusInternalServerError)
		return
	}
	if u == nil || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	h.writeSession(w, u)
}

func (h *Handler) writeSession(w http.ResponseWriter, u *model.User) {
	token, err := h.issuer.Issue(u)
	if err != nil {
		slog.Error("token issue failed", "user", u.ID, "err", err)
		writeError(w, "failed to issue token", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(Session{Token: token, User: u})
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Lakshya182005/CircuitCrafter/internal/services"
	"github.com/Lakshya182005/CircuitCrafter/internal/store"
	"github.com/Lakshya182005/CircuitCrafter/types"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/api/idtoken"
)

// Tokens are valid for 7 days; logout is client-side discard, there is no
// revocation list.
const defaultTokenTTL = 7 * 24 * time.Hour

// GoogleVerifier resolves a Google sign-in credential to a verified profile.
type GoogleVerifier interface {
	Verify(ctx context.Context, credential string) (services.GoogleProfile, error)
}

// IDTokenVerifier verifies Google ID tokens against the configured OAuth
// client id: signature, audience, and expiry are all checked. There is no
// unverified decoding path.
type IDTokenVerifier struct {
	ClientID string
}

func (v IDTokenVerifier) Verify(ctx context.Context, credential string) (services.GoogleProfile, error) {
	payload, err := idtoken.Validate(ctx, credential, v.ClientID)
	if err != nil {
		return services.GoogleProfile{}, err
	}

	profile := services.GoogleProfile{Subject: payload.Subject}
	if email, ok := payload.Claims["email"].(string); ok {
		profile.Email = email
	}
	if name, ok := payload.Claims["name"].(string); ok {
		profile.Name = name
	}
	if picture, ok := payload.Claims["picture"].(string); ok {
		profile.Picture = picture
	}
	if profile.Email == "" {
		return services.GoogleProfile{}, errors.New("id token carries no email claim")
	}
	return profile, nil
}

// AuthHandler provides signup, login, Google sign-in, and token endpoints.
type AuthHandler struct {
	userService *services.UserService
	verifier    GoogleVerifier
	secret      []byte
	tokenTTL    time.Duration
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(userService *services.UserService, verifier GoogleVerifier, jwtSecret string) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		verifier:    verifier,
		secret:      []byte(jwtSecret),
		tokenTTL:    defaultTokenTTL,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, userService *services.UserService, verifier GoogleVerifier, jwtSecret string) {
	handler := NewAuthHandler(userService, verifier, jwtSecret)

	r.Post("/signup", handler.Signup)
	r.Post("/login", handler.Login)
	r.Post("/google", handler.GoogleAuth)
	r.With(handler.RequireAuth).Get("/me", handler.Me)
}

// RequireAuth enforces bearer-token authentication and injects the user id
// into context.
func (h *AuthHandler) RequireAuth(next http.Handler) http.Handler {
	return requireAuth(h.secret)(next)
}

// RequireAuth constructs auth middleware for other routers.
func RequireAuth(jwtSecret string) func(http.Handler) http.Handler {
	return requireAuth([]byte(jwtSecret))
}

func requireAuth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := bearerToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			userID, err := parseTokenUserID(tokenString, secret)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), contextUserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Signup creates a password account and returns a token.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Please provide all fields")
		return
	}

	if taken, err := h.identityTaken(r.Context(), req.Email, req.Username); err != nil {
		writeServerError(w, r, err)
		return
	} else if taken {
		writeError(w, http.StatusBadRequest, "User already exists")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeServerError(w, r, err)
		return
	}

	user, err := h.userService.Create(r.Context(), types.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hashed),
	})
	if err != nil {
		// The unique indexes backstop the check-then-insert race.
		if errors.Is(err, store.ErrConflict) {
			writeError(w, http.StatusBadRequest, "User already exists")
			return
		}
		writeServerError(w, r, err)
		return
	}

	token, err := h.issueToken(user)
	if err != nil {
		writeServerError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, AuthResponse{Token: token, User: user})
}

// Login verifies email/password credentials and returns a token. Unknown
// email, Google-only account, and wrong password are indistinguishable.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Please provide email and password")
		return
	}

	user, err := h.userService.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusBadRequest, "Invalid credentials")
			return
		}
		writeServerError(w, r, err)
		return
	}

	if user.PasswordHash == "" {
		writeError(w, http.StatusBadRequest, "Invalid credentials")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid credentials")
		return
	}

	token, err := h.issueToken(user)
	if err != nil {
		writeServerError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{Token: token, User: user})
}

// GoogleAuth signs a user in with a verified Google ID token, creating or
// linking the local account as needed.
func (h *AuthHandler) GoogleAuth(w http.ResponseWriter, r *http.Request) {
	var req GoogleAuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	req.Credential = strings.TrimSpace(req.Credential)
	if req.Credential == "" {
		writeError(w, http.StatusBadRequest, "Invalid token")
		return
	}

	profile, err := h.verifier.Verify(r.Context(), req.Credential)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid token")
		return
	}

	user, err := h.userService.ReconcileGoogle(r.Context(), profile)
	if err != nil {
		writeServerError(w, r, err)
		return
	}

	token, err := h.issueToken(user)
	if err != nil {
		writeServerError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{Token: token, User: user})
}

// Me returns the current authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		writeServerError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) identityTaken(ctx context.Context, email, username string) (bool, error) {
	if _, err := h.userService.GetByEmail(ctx, email); err == nil {
		return true, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return false, err
	}
	if _, err := h.userService.GetByUsername(ctx, username); err == nil {
		return true, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return false, err
	}
	return false, nil
}

type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type GoogleAuthRequest struct {
	Credential string `json:"credential"`
}

type AuthResponse struct {
	Token string     `json:"token"`
	User  types.User `json:"user"`
}

// tokenClaims embeds the user's id as the subject plus email and username.
type tokenClaims struct {
	jwt.RegisteredClaims
	Email    string `json:"email"`
	Username string `json:"username"`
}

func (h *AuthHandler) issueToken(user types.User) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(h.tokenTTL)),
		},
		Email:    user.Email,
		Username: user.Username,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(h.secret)
}

func parseTokenUserID(tokenString string, secret []byte) (uuid.UUID, error) {
	claims := tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return secret, nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	if !token.Valid {
		return uuid.Nil, errors.New("invalid token")
	}
	return uuid.Parse(claims.Subject)
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}

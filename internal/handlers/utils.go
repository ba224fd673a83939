package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/Lakshya182005/CircuitCrafter/internal/services"
	"github.com/google/uuid"
)

type contextKey string

const contextUserIDKey contextKey = "userID"

const maxListLimit = 100

// MessageResponse is the uniform error/confirmation payload.
type MessageResponse struct {
	Message string `json:"message"`
}

func userIDFromContext(ctx context.Context) (uuid.UUID, error) {
	id, ok := ctx.Value(contextUserIDKey).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, errors.New("missing user id")
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, MessageResponse{Message: message})
}

// writeServerError logs the failure detail server-side and returns a generic
// message to the client.
func writeServerError(w http.ResponseWriter, r *http.Request, err error) {
	log.Printf("%s %s: %v", r.Method, r.URL.Path, err)
	writeError(w, http.StatusInternalServerError, "Server error")
}

// Healthz reports process liveness.
func Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// parseListQuery reads the shared search/sort/type/page/limit query params.
func parseListQuery(r *http.Request) (services.ListQuery, error) {
	query := services.ListQuery{
		Search: strings.TrimSpace(r.URL.Query().Get("search")),
		Sort:   strings.TrimSpace(r.URL.Query().Get("sort")),
		Type:   strings.TrimSpace(r.URL.Query().Get("type")),
		Page:   1,
		Limit:  10,
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("page")); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return services.ListQuery{}, errors.New("invalid page")
		}
		query.Page = page
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return services.ListQuery{}, errors.New("invalid limit")
		}
		query.Limit = limit
	}

	if query.Limit > maxListLimit {
		query.Limit = maxListLimit
	}

	return query, nil
}

package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/Lakshya182005/CircuitCrafter/internal/services"
	"github.com/Lakshya182005/CircuitCrafter/internal/store"
	"github.com/Lakshya182005/CircuitCrafter/types"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const maxThumbnailBytes = 1 << 20

// CircuitHandler provides HTTP handlers for circuits. Every route assumes the
// auth middleware already resolved the requester.
type CircuitHandler struct {
	circuitService *services.CircuitService
}

// NewCircuitHandler constructs a handler with the provided service.
func NewCircuitHandler(circuitService *services.CircuitService) *CircuitHandler {
	return &CircuitHandler{circuitService: circuitService}
}

// CircuitRouter registers circuit routes on the given router.
func CircuitRouter(r chi.Router, circuitService *services.CircuitService) {
	handler := NewCircuitHandler(circuitService)

	r.Post("/save", handler.Save)
	r.Get("/mine", handler.Mine)
	r.Get("/public", handler.Public)
	r.Post("/copy/{circuitID}", handler.Copy)
	r.Route("/{circuitID}", func(r chi.Router) {
		r.Get("/", handler.Get)
		r.Delete("/", handler.Delete)
		r.Put("/thumbnail", handler.UploadThumbnail)
		r.Get("/thumbnail", handler.GetThumbnail)
	})
}

// SaveRequest is the save payload. Pointer and RawMessage fields distinguish
// an absent key from an explicit zero value: absent preserves the stored
// field, present overwrites it, including false and "".
type SaveRequest struct {
	ID          *uuid.UUID      `json:"id"`
	Name        *string         `json:"name"`
	Nodes       json.RawMessage `json:"nodes"`
	Edges       json.RawMessage `json:"edges"`
	IsPublic    *bool           `json:"isPublic"`
	Type        *string         `json:"type"`
	Description *string         `json:"description"`
}

// Save creates a circuit (201) or partially updates an owned one (200).
func (h *CircuitHandler) Save(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req SaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	if req.Type != nil && !types.ValidCircuitType(*req.Type) {
		writeError(w, http.StatusBadRequest, "Invalid circuit type")
		return
	}
	if req.ID == nil && (req.Name == nil || strings.TrimSpace(*req.Name) == "") {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}

	circuit, created, err := h.circuitService.Save(r.Context(), userID, services.SaveInput{
		ID:          req.ID,
		Name:        req.Name,
		Nodes:       req.Nodes,
		Edges:       req.Edges,
		IsPublic:    req.IsPublic,
		Type:        req.Type,
		Description: req.Description,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Circuit not found")
			return
		}
		writeServerError(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, withThumbnailURL(circuit))
}

// Mine lists the requester's circuits with search, sort, filter, and
// pagination.
func (h *CircuitHandler) Mine(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	query, err := parseListQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := h.circuitService.ListMine(r.Context(), userID, query)
	if err != nil {
		writeServerError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, withThumbnailURLs(page))
}

// Public lists public circuits across all owners, with each owner's username.
func (h *CircuitHandler) Public(w http.ResponseWriter, r *http.Request) {
	query, err := parseListQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := h.circuitService.ListPublic(r.Context(), query)
	if err != nil {
		writeServerError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, withThumbnailURLs(page))
}

// Copy duplicates a public (or owned) circuit into the requester's library.
func (h *CircuitHandler) Copy(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	sourceID, err := parseCircuitID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	circuit, err := h.circuitService.Copy(r.Context(), userID, sourceID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "Circuit not found")
		case errors.Is(err, services.ErrForbidden):
			writeError(w, http.StatusForbidden, "Cannot copy private circuit")
		default:
			writeServerError(w, r, err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, withThumbnailURL(circuit))
}

// Get returns one of the requester's circuits.
func (h *CircuitHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id, err := parseCircuitID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	circuit, err := h.circuitService.Get(r.Context(), userID, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Circuit not found")
			return
		}
		writeServerError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, withThumbnailURL(circuit))
}

// Delete removes one of the requester's circuits.
func (h *CircuitHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id, err := parseCircuitID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.circuitService.Delete(r.Context(), userID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Circuit not found")
			return
		}
		writeServerError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Circuit deleted"})
}

// UploadThumbnail stores a preview image for an owned circuit. The body is
// the raw image, image/png or image/jpeg, at most 1 MiB.
func (h *CircuitHandler) UploadThumbnail(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id, err := parseCircuitID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	contentType := strings.TrimSpace(r.Header.Get("Content-Type"))
	if contentType != "image/png" && contentType != "image/jpeg" {
		writeError(w, http.StatusBadRequest, "Thumbnail must be image/png or image/jpeg")
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxThumbnailBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read thumbnail")
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "Thumbnail is empty")
		return
	}
	if len(data) > maxThumbnailBytes {
		writeError(w, http.StatusBadRequest, "Thumbnail too large")
		return
	}

	circuit, err := h.circuitService.SetThumbnail(r.Context(), userID, id, data, contentType)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrStorageUnavailable):
			writeError(w, http.StatusServiceUnavailable, "Thumbnail storage not configured")
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "Circuit not found")
		default:
			writeServerError(w, r, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, withThumbnailURL(circuit))
}

// GetThumbnail streams a circuit's stored preview image.
func (h *CircuitHandler) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id, err := parseCircuitID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reader, contentType, err := h.circuitService.GetThumbnail(r.Context(), userID, id)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrStorageUnavailable):
			writeError(w, http.StatusServiceUnavailable, "Thumbnail storage not configured")
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "Thumbnail not found")
		default:
			writeServerError(w, r, err)
		}
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, reader)
}

func parseCircuitID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "circuitID")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.New("invalid circuit id")
	}
	return id, nil
}

func withThumbnailURL(circuit types.Circuit) types.Circuit {
	if circuit.ThumbnailKey != "" {
		circuit.ThumbnailURL = "/api/circuits/" + circuit.ID.String() + "/thumbnail"
	}
	return circuit
}

func withThumbnailURLs(page services.CircuitPage) services.CircuitPage {
	for i, circuit := range page.Circuits {
		page.Circuits[i] = withThumbnailURL(circuit)
	}
	return page
}

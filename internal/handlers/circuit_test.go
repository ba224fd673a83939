package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Lakshya182005/CircuitCrafter/internal/handlers"
	"github.com/Lakshya182005/CircuitCrafter/internal/services"
	"github.com/Lakshya182005/CircuitCrafter/internal/storage"
	"github.com/Lakshya182005/CircuitCrafter/internal/testutil"
	"github.com/Lakshya182005/CircuitCrafter/types"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCircuitRouter(objectStorage *storage.Storage) (*chi.Mux, *testutil.MemCircuitRepo) {
	repo := testutil.NewMemCircuitRepo()
	circuitService := services.NewCircuitService(repo, objectStorage)

	router := chi.NewRouter()
	router.Route("/api/circuits", func(r chi.Router) {
		r.Use(handlers.RequireAuth(testSecret))
		handlers.CircuitRouter(r, circuitService)
	})
	return router, repo
}

func mintToken(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func decodeCircuit(t *testing.T, body []byte) types.Circuit {
	t.Helper()
	var circuit types.Circuit
	require.NoError(t, json.Unmarshal(body, &circuit))
	return circuit
}

func TestSaveCreate(t *testing.T) {
	router, _ := newCircuitRouter(nil)
	owner := uuid.New()
	token := mintToken(t, owner)

	w := doJSON(t, router, http.MethodPost, "/api/circuits/save", map[string]any{
		"name":  "Half Adder",
		"nodes": []map[string]any{{"id": "n1", "type": "andGate"}},
		"edges": []map[string]any{},
		"type":  "Combinational",
	}, token)
	require.Equal(t, http.StatusCreated, w.Code)

	circuit := decodeCircuit(t, w.Body.Bytes())
	assert.Equal(t, owner, circuit.OwnerID)
	assert.Equal(t, "Half Adder", circuit.Name)
	assert.NotEqual(t, uuid.Nil, circuit.ID)
}

func TestSaveValidation(t *testing.T) {
	router, _ := newCircuitRouter(nil)
	token := mintToken(t, uuid.New())

	w := doJSON(t, router, http.MethodPost, "/api/circuits/save", map[string]any{
		"nodes": []any{},
	}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/circuits/save", map[string]any{
		"name": "Bad Type",
		"type": "Quantum",
	}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSaveUpdateScopedToOwner(t *testing.T) {
	router, _ := newCircuitRouter(nil)
	owner := uuid.New()
	token := mintToken(t, owner)

	created := doJSON(t, router, http.MethodPost, "/api/circuits/save", map[string]any{
		"name":     "Latch",
		"isPublic": true,
	}, token)
	require.Equal(t, http.StatusCreated, created.Code)
	circuit := decodeCircuit(t, created.Body.Bytes())

	// Present false overwrites, omitted name survives.
	updated := doJSON(t, router, http.MethodPost, "/api/circuits/save", map[string]any{
		"id":       circuit.ID,
		"isPublic": false,
	}, token)
	require.Equal(t, http.StatusOK, updated.Code)
	after := decodeCircuit(t, updated.Body.Bytes())
	assert.Equal(t, "Latch", after.Name)
	assert.False(t, after.IsPublic)

	// Another account updating the same id sees a 404, not a 403.
	hijack := doJSON(t, router, http.MethodPost, "/api/circuits/save", map[string]any{
		"id":   circuit.ID,
		"name": "Hijacked",
	}, mintToken(t, uuid.New()))
	assert.Equal(t, http.StatusNotFound, hijack.Code)
}

func TestMineSearchAndPagination(t *testing.T) {
	router, _ := newCircuitRouter(nil)
	owner := uuid.New()
	token := mintToken(t, owner)

	names := []string{"half adder", "full adder", "HALF subtractor"}
	for _, name := range names {
		w := doJSON(t, router, http.MethodPost, "/api/circuits/save", map[string]any{"name": name}, token)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := doJSON(t, router, http.MethodGet, "/api/circuits/mine?search=Half", nil, token)
	require.Equal(t, http.StatusOK, w.Code)

	var page services.CircuitPage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Len(t, page.Circuits, 2)
	assert.Equal(t, 1, page.TotalPages)

	// A page past the end is an empty 200.
	w = doJSON(t, router, http.MethodGet, "/api/circuits/mine?page=5&limit=2", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Empty(t, page.Circuits)
	assert.Equal(t, 5, page.CurrentPage)

	w = doJSON(t, router, http.MethodGet, "/api/circuits/mine?page=0", nil, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPublicListing(t *testing.T) {
	router, repo := newCircuitRouter(nil)
	owner := uuid.New()
	repo.SetUsername(owner, "alice")
	token := mintToken(t, owner)

	w := doJSON(t, router, http.MethodPost, "/api/circuits/save", map[string]any{
		"name":     "shared",
		"isPublic": true,
	}, token)
	require.Equal(t, http.StatusCreated, w.Code)
	w = doJSON(t, router, http.MethodPost, "/api/circuits/save", map[string]any{
		"name": "mine only",
	}, token)
	require.Equal(t, http.StatusCreated, w.Code)

	// The public gallery still sits behind the auth gate.
	unauth := doJSON(t, router, http.MethodGet, "/api/circuits/public", nil, "")
	assert.Equal(t, http.StatusUnauthorized, unauth.Code)

	other := mintToken(t, uuid.New())
	w = doJSON(t, router, http.MethodGet, "/api/circuits/public", nil, other)
	require.Equal(t, http.StatusOK, w.Code)

	var page services.CircuitPage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Circuits, 1)
	assert.Equal(t, "shared", page.Circuits[0].Name)
	assert.Equal(t, "alice", page.Circuits[0].Username)
}

func TestCopy(t *testing.T) {
	router, _ := newCircuitRouter(nil)
	owner := mintToken(t, uuid.New())
	requester := mintToken(t, uuid.New())

	created := doJSON(t, router, http.MethodPost, "/api/circuits/save", map[string]any{
		"name":     "XOR gate",
		"isPublic": true,
	}, owner)
	require.Equal(t, http.StatusCreated, created.Code)
	source := decodeCircuit(t, created.Body.Bytes())

	w := doJSON(t, router, http.MethodPost, "/api/circuits/copy/"+source.ID.String(), nil, requester)
	require.Equal(t, http.StatusCreated, w.Code)
	copied := decodeCircuit(t, w.Body.Bytes())
	assert.Equal(t, "XOR gate (Copy)", copied.Name)
	assert.False(t, copied.IsPublic)
	assert.NotEqual(t, source.ID, copied.ID)

	w = doJSON(t, router, http.MethodPost, "/api/circuits/copy/"+uuid.NewString(), nil, requester)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCopyPrivateForbidden(t *testing.T) {
	router, _ := newCircuitRouter(nil)
	owner := mintToken(t, uuid.New())

	created := doJSON(t, router, http.MethodPost, "/api/circuits/save", map[string]any{
		"name": "secret",
	}, owner)
	require.Equal(t, http.StatusCreated, created.Code)
	source := decodeCircuit(t, created.Body.Bytes())

	w := doJSON(t, router, http.MethodPost, "/api/circuits/copy/"+source.ID.String(), nil, mintToken(t, uuid.New()))
	assert.Equal(t, http.StatusForbidden, w.Code)

	var resp handlers.MessageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Cannot copy private circuit", resp.Message)
}

func TestGetAndDelete(t *testing.T) {
	router, _ := newCircuitRouter(nil)
	owner := uuid.New()
	token := mintToken(t, owner)

	created := doJSON(t, router, http.MethodPost, "/api/circuits/save", map[string]any{"name": "temp"}, token)
	require.Equal(t, http.StatusCreated, created.Code)
	circuit := decodeCircuit(t, created.Body.Bytes())

	w := doJSON(t, router, http.MethodGet, "/api/circuits/"+circuit.ID.String(), nil, token)
	assert.Equal(t, http.StatusOK, w.Code)

	// Another owner's view is indistinguishable from a missing circuit.
	w = doJSON(t, router, http.MethodGet, "/api/circuits/"+circuit.ID.String(), nil, mintToken(t, uuid.New()))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodDelete, "/api/circuits/"+circuit.ID.String(), nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	var resp handlers.MessageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Circuit deleted", resp.Message)

	w = doJSON(t, router, http.MethodGet, "/api/circuits/"+circuit.ID.String(), nil, token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInvalidCircuitID(t *testing.T) {
	router, _ := newCircuitRouter(nil)
	token := mintToken(t, uuid.New())

	w := doJSON(t, router, http.MethodGet, "/api/circuits/not-a-uuid", nil, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestThumbnailUploadAndFetch(t *testing.T) {
	objectStorage := storage.NewStorage(testutil.NewMemObjectStorage())
	router, _ := newCircuitRouter(objectStorage)
	owner := uuid.New()
	token := mintToken(t, owner)

	created := doJSON(t, router, http.MethodPost, "/api/circuits/save", map[string]any{
		"name":     "preview me",
		"isPublic": true,
	}, token)
	require.Equal(t, http.StatusCreated, created.Code)
	circuit := decodeCircuit(t, created.Body.Bytes())

	upload := httptest.NewRequest(http.MethodPut, "/api/circuits/"+circuit.ID.String()+"/thumbnail", bytes.NewReader([]byte("png-bytes")))
	upload.Header.Set("Content-Type", "image/png")
	upload.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, upload)
	require.Equal(t, http.StatusOK, w.Code)

	updated := decodeCircuit(t, w.Body.Bytes())
	assert.Equal(t, "/api/circuits/"+circuit.ID.String()+"/thumbnail", updated.ThumbnailURL)

	fetch := doJSON(t, router, http.MethodGet, "/api/circuits/"+circuit.ID.String()+"/thumbnail", nil, mintToken(t, uuid.New()))
	require.Equal(t, http.StatusOK, fetch.Code)
	assert.Equal(t, "image/png", fetch.Header().Get("Content-Type"))
	assert.Equal(t, "png-bytes", fetch.Body.String())
}

func TestThumbnailRejectsBadContentType(t *testing.T) {
	objectStorage := storage.NewStorage(testutil.NewMemObjectStorage())
	router, _ := newCircuitRouter(objectStorage)
	owner := uuid.New()
	token := mintToken(t, owner)

	created := doJSON(t, router, http.MethodPost, "/api/circuits/save", map[string]any{"name": "x"}, token)
	require.Equal(t, http.StatusCreated, created.Code)
	circuit := decodeCircuit(t, created.Body.Bytes())

	upload := httptest.NewRequest(http.MethodPut, "/api/circuits/"+circuit.ID.String()+"/thumbnail", bytes.NewReader([]byte("<svg/>")))
	upload.Header.Set("Content-Type", "image/svg+xml")
	upload.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, upload)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestThumbnailWithoutStorageBackend(t *testing.T) {
	router, _ := newCircuitRouter(nil)
	owner := uuid.New()
	token := mintToken(t, owner)

	created := doJSON(t, router, http.MethodPost, "/api/circuits/save", map[string]any{"name": "x"}, token)
	require.Equal(t, http.StatusCreated, created.Code)
	circuit := decodeCircuit(t, created.Body.Bytes())

	upload := httptest.NewRequest(http.MethodPut, "/api/circuits/"+circuit.ID.String()+"/thumbnail", bytes.NewReader([]byte("png")))
	upload.Header.Set("Content-Type", "image/png")
	upload.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, upload)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

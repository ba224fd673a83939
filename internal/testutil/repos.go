// Package testutil provides in-memory fakes for the repository and storage
// interfaces, shared by the service and handler test suites.
package testutil

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Lakshya182005/CircuitCrafter/internal/store"
	"github.com/Lakshya182005/CircuitCrafter/types"
	"github.com/google/uuid"
)

// MemUserRepo is an in-memory services.UserRepository.
type MemUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]types.User
}

func NewMemUserRepo() *MemUserRepo {
	return &MemUserRepo{users: make(map[uuid.UUID]types.User)}
}

func (r *MemUserRepo) GetByID(_ context.Context, id uuid.UUID) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *MemUserRepo) GetByEmail(_ context.Context, email string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *MemUserRepo) GetByUsername(_ context.Context, username string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Username == username {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *MemUserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == user.Email || existing.Username == user.Username {
			return types.User{}, store.ErrConflict
		}
		if user.GoogleID != "" && existing.GoogleID == user.GoogleID {
			return types.User{}, store.ErrConflict
		}
	}
	user.ID = uuid.New()
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = user
	return user, nil
}

func (r *MemUserRepo) AttachGoogleID(_ context.Context, id uuid.UUID, googleID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return store.ErrNotFound
	}
	if user.GoogleID == "" {
		user.GoogleID = googleID
		user.UpdatedAt = time.Now()
		r.users[id] = user
	}
	return nil
}

// MemCircuitRepo is an in-memory services.CircuitRepository with the same
// filter, sort, and pagination behavior as the Postgres store.
type MemCircuitRepo struct {
	mu        sync.Mutex
	circuits  map[uuid.UUID]types.Circuit
	usernames map[uuid.UUID]string
}

func NewMemCircuitRepo() *MemCircuitRepo {
	return &MemCircuitRepo{
		circuits:  make(map[uuid.UUID]types.Circuit),
		usernames: make(map[uuid.UUID]string),
	}
}

// SetUsername registers an owner's username for public listings.
func (r *MemCircuitRepo) SetUsername(ownerID uuid.UUID, username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.usernames[ownerID] = username
}

func (r *MemCircuitRepo) List(_ context.Context, filter store.CircuitFilter) ([]types.Circuit, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matched := make([]types.Circuit, 0, len(r.circuits))
	for _, circuit := range r.circuits {
		if filter.OwnerID != nil && circuit.OwnerID != *filter.OwnerID {
			continue
		}
		if filter.PublicOnly && !circuit.IsPublic {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(circuit.Name), strings.ToLower(filter.Search)) {
			continue
		}
		if filter.Type != "" && circuit.Type != filter.Type {
			continue
		}
		if filter.PublicOnly {
			circuit.Username = r.usernames[circuit.OwnerID]
		}
		matched = append(matched, circuit)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		switch filter.Sort {
		case store.SortOldest:
			return matched[i].UpdatedAt.Before(matched[j].UpdatedAt)
		case store.SortNameAZ:
			return strings.ToLower(matched[i].Name) < strings.ToLower(matched[j].Name)
		case store.SortNameZA:
			return strings.ToLower(matched[i].Name) > strings.ToLower(matched[j].Name)
		default:
			return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
		}
	})

	total := len(matched)
	if filter.Offset >= total {
		return []types.Circuit{}, total, nil
	}
	end := filter.Offset + filter.Limit
	if end > total {
		end = total
	}
	return matched[filter.Offset:end], total, nil
}

func (r *MemCircuitRepo) Get(_ context.Context, id uuid.UUID) (types.Circuit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	circuit, ok := r.circuits[id]
	if !ok {
		return types.Circuit{}, store.ErrNotFound
	}
	return circuit, nil
}

func (r *MemCircuitRepo) GetOwned(_ context.Context, id, ownerID uuid.UUID) (types.Circuit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	circuit, ok := r.circuits[id]
	if !ok || circuit.OwnerID != ownerID {
		return types.Circuit{}, store.ErrNotFound
	}
	return circuit, nil
}

func (r *MemCircuitRepo) Create(_ context.Context, circuit types.Circuit) (types.Circuit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	circuit.ID = uuid.New()
	if len(circuit.Nodes) == 0 {
		circuit.Nodes = []byte("[]")
	}
	if len(circuit.Edges) == 0 {
		circuit.Edges = []byte("[]")
	}
	now := time.Now()
	circuit.CreatedAt = now
	circuit.UpdatedAt = now
	r.circuits[circuit.ID] = circuit
	return circuit, nil
}

func (r *MemCircuitRepo) Update(_ context.Context, circuit types.Circuit) (types.Circuit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.circuits[circuit.ID]
	if !ok || existing.OwnerID != circuit.OwnerID {
		return types.Circuit{}, store.ErrNotFound
	}
	circuit.CreatedAt = existing.CreatedAt
	circuit.UpdatedAt = time.Now()
	r.circuits[circuit.ID] = circuit
	return circuit, nil
}

func (r *MemCircuitRepo) Delete(_ context.Context, id, ownerID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	circuit, ok := r.circuits[id]
	if !ok || circuit.OwnerID != ownerID {
		return store.ErrNotFound
	}
	delete(r.circuits, id)
	return nil
}

// MemObjectStorage is an in-memory storage.ObjectStorage.
type MemObjectStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	bucket  string
}

func NewMemObjectStorage() *MemObjectStorage {
	return &MemObjectStorage{objects: make(map[string][]byte), bucket: "test-bucket"}
}

func (s *MemObjectStorage) EnsureBucket(_ context.Context) error { return nil }

func (s *MemObjectStorage) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

func (s *MemObjectStorage) Get(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *MemObjectStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *MemObjectStorage) Bucket() string { return s.bucket }

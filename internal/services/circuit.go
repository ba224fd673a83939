package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/Lakshya182005/CircuitCrafter/internal/storage"
	"github.com/Lakshya182005/CircuitCrafter/internal/store"
	"github.com/Lakshya182005/CircuitCrafter/types"
	"github.com/google/uuid"
)

// ErrForbidden is returned when the requester may see that a resource exists
// but may not act on it (copying a private circuit).
var ErrForbidden = errors.New("forbidden")

// ErrStorageUnavailable is returned by thumbnail operations when no object
// storage backend is configured.
var ErrStorageUnavailable = errors.New("object storage not configured")

const copyNameSuffix = " (Copy)"

// CircuitRepository defines persistence operations for circuits.
type CircuitRepository interface {
	List(ctx context.Context, filter store.CircuitFilter) ([]types.Circuit, int, error)
	Get(ctx context.Context, id uuid.UUID) (types.Circuit, error)
	GetOwned(ctx context.Context, id, ownerID uuid.UUID) (types.Circuit, error)
	Create(ctx context.Context, circuit types.Circuit) (types.Circuit, error)
	Update(ctx context.Context, circuit types.Circuit) (types.Circuit, error)
	Delete(ctx context.Context, id, ownerID uuid.UUID) error
}

// SaveInput carries one save request. Nil fields were absent from the request
// and preserve the stored value; a present false or empty string overwrites.
type SaveInput struct {
	ID          *uuid.UUID
	Name        *string
	Nodes       json.RawMessage
	Edges       json.RawMessage
	IsPublic    *bool
	Type        *string
	Description *string
}

// ListQuery narrows and pages a circuit listing.
type ListQuery struct {
	Search string
	Sort   string
	Type   string
	Page   int
	Limit  int
}

// CircuitPage is one page of a listing plus its pagination envelope.
type CircuitPage struct {
	Circuits    []types.Circuit `json:"circuits"`
	TotalPages  int             `json:"totalPages"`
	CurrentPage int             `json:"currentPage"`
}

// CircuitService encapsulates circuit use-cases. The storage backend is
// optional; thumbnail operations fail with ErrStorageUnavailable without it.
type CircuitService struct {
	repo    CircuitRepository
	storage *storage.Storage
}

func NewCircuitService(repo CircuitRepository, objectStorage *storage.Storage) *CircuitService {
	return &CircuitService{repo: repo, storage: objectStorage}
}

// Save creates a circuit when input carries no id, otherwise applies a
// partial update to the owner's existing circuit. The returned bool reports
// whether a new record was created.
func (s *CircuitService) Save(ctx context.Context, ownerID uuid.UUID, input SaveInput) (types.Circuit, bool, error) {
	if input.ID == nil {
		circuit := types.Circuit{
			OwnerID: ownerID,
			Nodes:   input.Nodes,
			Edges:   input.Edges,
			Type:    types.CircuitTypeCombinational,
		}
		if input.Name != nil {
			circuit.Name = *input.Name
		}
		if input.IsPublic != nil {
			circuit.IsPublic = *input.IsPublic
		}
		if input.Type != nil {
			circuit.Type = *input.Type
		}
		if input.Description != nil {
			circuit.Description = *input.Description
		}
		created, err := s.repo.Create(ctx, circuit)
		return created, true, err
	}

	circuit, err := s.repo.GetOwned(ctx, *input.ID, ownerID)
	if err != nil {
		return types.Circuit{}, false, err
	}

	if input.Name != nil {
		circuit.Name = *input.Name
	}
	if input.Nodes != nil {
		circuit.Nodes = input.Nodes
	}
	if input.Edges != nil {
		circuit.Edges = input.Edges
	}
	if input.IsPublic != nil {
		circuit.IsPublic = *input.IsPublic
	}
	if input.Type != nil {
		circuit.Type = *input.Type
	}
	if input.Description != nil {
		circuit.Description = *input.Description
	}

	updated, err := s.repo.Update(ctx, circuit)
	return updated, false, err
}

// ListMine returns a page of the owner's circuits.
func (s *CircuitService) ListMine(ctx context.Context, ownerID uuid.UUID, query ListQuery) (CircuitPage, error) {
	return s.list(ctx, store.CircuitFilter{
		OwnerID: &ownerID,
		Search:  query.Search,
		Type:    query.Type,
		Sort:    query.Sort,
	}, query)
}

// ListPublic returns a page of public circuits across all owners, each row
// carrying the owner's username.
func (s *CircuitService) ListPublic(ctx context.Context, query ListQuery) (CircuitPage, error) {
	return s.list(ctx, store.CircuitFilter{
		PublicOnly: true,
		Search:     query.Search,
		Type:       query.Type,
		Sort:       query.Sort,
	}, query)
}

func (s *CircuitService) list(ctx context.Context, filter store.CircuitFilter, query ListQuery) (CircuitPage, error) {
	page := query.Page
	if page < 1 {
		page = 1
	}
	limit := query.Limit
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	filter.Offset = (page - 1) * limit
	filter.Limit = limit

	circuits, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return CircuitPage{}, err
	}

	return CircuitPage{
		Circuits:    circuits,
		TotalPages:  (total + limit - 1) / limit,
		CurrentPage: page,
	}, nil
}

// Get loads one circuit scoped to its owner.
func (s *CircuitService) Get(ctx context.Context, ownerID, id uuid.UUID) (types.Circuit, error) {
	return s.repo.GetOwned(ctx, id, ownerID)
}

// Delete removes an owned circuit and, best-effort, its stored thumbnail.
func (s *CircuitService) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	circuit, err := s.repo.GetOwned(ctx, id, ownerID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id, ownerID); err != nil {
		return err
	}
	if circuit.ThumbnailKey != "" && s.storage != nil {
		_ = s.storage.Delete(ctx, circuit.ThumbnailKey)
	}
	return nil
}

// Copy duplicates a circuit into the requester's library. The source must be
// public or owned by the requester; the copy is always private and gets a
// fresh id, the source name suffixed with " (Copy)", and no thumbnail.
func (s *CircuitService) Copy(ctx context.Context, requesterID, sourceID uuid.UUID) (types.Circuit, error) {
	source, err := s.repo.Get(ctx, sourceID)
	if err != nil {
		return types.Circuit{}, err
	}
	if !source.IsPublic && source.OwnerID != requesterID {
		return types.Circuit{}, ErrForbidden
	}

	return s.repo.Create(ctx, types.Circuit{
		OwnerID:     requesterID,
		Name:        source.Name + copyNameSuffix,
		Nodes:       source.Nodes,
		Edges:       source.Edges,
		IsPublic:    false,
		Type:        source.Type,
		Description: source.Description,
	})
}

// SetThumbnail stores a preview image for an owned circuit and records its
// object key. Re-uploading replaces the previous object.
func (s *CircuitService) SetThumbnail(ctx context.Context, ownerID, id uuid.UUID, data []byte, contentType string) (types.Circuit, error) {
	if s.storage == nil {
		return types.Circuit{}, ErrStorageUnavailable
	}

	circuit, err := s.repo.GetOwned(ctx, id, ownerID)
	if err != nil {
		return types.Circuit{}, err
	}

	key := thumbnailKey(id, contentType)
	if err := s.storage.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return types.Circuit{}, err
	}
	if circuit.ThumbnailKey != "" && circuit.ThumbnailKey != key {
		_ = s.storage.Delete(ctx, circuit.ThumbnailKey)
	}

	circuit.ThumbnailKey = key
	return s.repo.Update(ctx, circuit)
}

// GetThumbnail opens the stored preview image of a circuit. A public
// circuit's thumbnail is readable by any authenticated user; a private one
// only by its owner.
func (s *CircuitService) GetThumbnail(ctx context.Context, requesterID, id uuid.UUID) (io.ReadCloser, string, error) {
	if s.storage == nil {
		return nil, "", ErrStorageUnavailable
	}

	circuit, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if !circuit.IsPublic && circuit.OwnerID != requesterID {
		return nil, "", store.ErrNotFound
	}
	if circuit.ThumbnailKey == "" {
		return nil, "", store.ErrNotFound
	}

	reader, err := s.storage.Get(ctx, circuit.ThumbnailKey)
	if err != nil {
		return nil, "", err
	}
	return reader, thumbnailContentType(circuit.ThumbnailKey), nil
}

func thumbnailKey(id uuid.UUID, contentType string) string {
	ext := "png"
	if contentType == "image/jpeg" {
		ext = "jpg"
	}
	return fmt.Sprintf("thumbnails/%s.%s", id, ext)
}

func thumbnailContentType(key string) string {
	if len(key) > 4 && key[len(key)-4:] == ".jpg" {
		return "image/jpeg"
	}
	return "image/png"
}

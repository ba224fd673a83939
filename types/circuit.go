package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Circuit type categories. The server validates the enum on save but never
// interprets the graph payload itself.
const (
	CircuitTypeCombinational = "Combinational"
	CircuitTypeSequential    = "Sequential"
)

// ValidCircuitType reports whether t is one of the known circuit categories.
func ValidCircuitType(t string) bool {
	return t == CircuitTypeCombinational || t == CircuitTypeSequential
}

// Circuit represents a saved circuit diagram. The node and edge payloads are
// opaque JSON owned by the editor client; the server stores and returns them
// verbatim.
type Circuit struct {
	// ID is the unique identifier of the circuit.
	ID uuid.UUID `json:"id" db:"id"`

	// OwnerID references the owning user. Immutable after creation.
	OwnerID uuid.UUID `json:"userId" db:"owner_id"`

	// Name is the circuit's display name.
	Name string `json:"name" db:"name"`

	// Nodes is the opaque JSON array of diagram nodes.
	Nodes json.RawMessage `json:"nodes" db:"nodes"`

	// Edges is the opaque JSON array of diagram edges.
	Edges json.RawMessage `json:"edges" db:"edges"`

	// IsPublic marks the circuit as visible in the public gallery.
	IsPublic bool `json:"isPublic" db:"is_public"`

	// Type is the circuit category, Combinational or Sequential.
	Type string `json:"type" db:"type"`

	// Description is free-form text about the circuit.
	Description string `json:"description" db:"description"`

	// ThumbnailKey is the object-storage key of the circuit's preview image.
	// Empty when no thumbnail has been uploaded.
	ThumbnailKey string `json:"-" db:"thumbnail_key"`

	// ThumbnailURL is the API path serving the thumbnail, derived from
	// ThumbnailKey. Empty when no thumbnail exists.
	ThumbnailURL string `json:"thumbnailUrl,omitempty" db:"-"`

	// Username is the owner's username, populated only on public gallery
	// listings.
	Username string `json:"username,omitempty" db:"-"`

	// CreatedAt is the timestamp at which the circuit was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent save.
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

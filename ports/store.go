package ports

import (
	"context"

	"github.com/layer-3/garuda/core"
)

// AssociationStore manages the lifecycle of signing associations. The
// provider holds two independent instances: an internal store backing
// dumb-mode relying parties and an external store for secrets established
// via the associate handshake. Handles from one store are meaningless in
// the other.
type AssociationStore interface {
	// Issue creates and persists a fresh association of the given type.
	Issue(ctx context.Context, typ core.AssocType) (*core.Association, error)

	// Lookup retrieves an association by handle and type without mutating
	// the store. It returns core.ErrAssociationNotFound when the handle is
	// absent. A present-but-expired association is returned as-is; callers
	// decide whether to remove it.
	Lookup(ctx context.Context, handle string, typ core.AssocType) (*core.Association, error)

	// Take atomically removes and returns the association if it is present
	// and unexpired. It returns core.ErrAssociationNotFound when the handle
	// is absent, already consumed, or expired. Two concurrent Takes on one
	// handle never both succeed.
	Take(ctx context.Context, handle string, typ core.AssocType) (*core.Association, error)

	// Remove deletes the handle. Removing an absent handle is not an error.
	Remove(ctx context.Context, handle string) error
}

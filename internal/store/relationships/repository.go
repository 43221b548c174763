package relationships

import "context"

// Repository reads the pairing collaborator's relationship records. This
// subsystem only needs membership checks at gift creation.
type Repository interface {
	// Members returns the two user ids paired by the relationship, or
	// common.ErrNotFound.
	Members(ctx context.Context, relationshipID string) (string, string, error)
}

package displaydata

import "context"

// Memory is the minimal projection of a memory-library record: just what is
// needed to render a memory-type gift.
type Memory struct {
	Title    string
	PhotoURL string
}

// Repository reads display data owned by external collaborators (the auth
// service's user profiles and the memory library). The fallback query path
// uses it for application-side joins when the aggregated view is missing.
type Repository interface {
	// SenderNames resolves user ids to display names. Unknown ids are
	// simply absent from the result.
	SenderNames(ctx context.Context, ids []string) (map[string]string, error)

	// Memories resolves memory ids to their photo and title.
	Memories(ctx context.Context, ids []string) (map[string]Memory, error)
}

// Package gifts defines the gift domain model: the authoritative entity, its
// status state machine, the create payload, and the display projections
// consumed by the device cache and the widget renderer.
package gifts

import "time"

// TTL is the fixed time window after which a gift is excluded from the
// active queue irrespective of interaction state.
const TTL = 24 * time.Hour

// Type identifies the affective payload a gift carries.
type Type string

const (
	TypePhoto  Type = "photo"
	TypeMemory Type = "memory"
	TypeNote   Type = "note"
)

// Valid reports whether t is one of the known gift types.
func (t Type) Valid() bool {
	switch t {
	case TypePhoto, TypeMemory, TypeNote:
		return true
	}
	return false
}

// Status is the delivery state of a gift. Transitions are monotonic:
// pending → delivered → seen/dismissed, and pending/delivered → expired.
type Status string

const (
	StatusPending   Status = "pending"
	StatusDelivered Status = "delivered"
	StatusSeen      Status = "seen"
	StatusDismissed Status = "dismissed"
	StatusExpired   Status = "expired"
)

// Active reports whether a gift in this status still participates in
// active-queue computations. Expiration is applied separately, at query
// time, from ExpiresAt.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusDelivered
}

// Terminal reports whether the status is final. Terminal gifts persist for
// history but never transition again.
func (s Status) Terminal() bool {
	return s == StatusSeen || s == StatusDismissed || s == StatusExpired
}

// Gift is the authoritative record store entity. Payload fields are
// immutable after creation; milestone timestamps are set at most once.
type Gift struct {
	ID             string
	SenderID       string
	ReceiverID     string
	RelationshipID string

	Type Type

	// Exactly one of PhotoURL, MemoryID, Message is the primary payload,
	// matching Type. Message may additionally accompany any type.
	PhotoURL string
	MemoryID string
	Message  string

	Status Status

	CreatedAt time.Time
	ExpiresAt time.Time

	DeliveredAt *time.Time
	SeenAt      *time.Time
	DismissedAt *time.Time
}

// Expired reports whether the gift's TTL has elapsed at the given instant.
// Persisted status is never trusted alone; callers apply this at query time.
func (g *Gift) Expired(now time.Time) bool {
	return !g.ExpiresAt.After(now)
}

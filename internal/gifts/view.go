package gifts

import "time"

// View is the display projection of a gift, joined with minimal sender
// display data and, for memory gifts, the referenced memory's photo and
// title. Both query paths normalize into this shape.
type View struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"senderId"`
	SenderName  string    `json:"senderName"`
	GiftType    Type      `json:"giftType"`
	PhotoURL    string    `json:"photoUrl"`
	MemoryTitle string    `json:"memoryTitle,omitempty"`
	Message     string    `json:"message,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Bundle is the derived snapshot persisted in the device cache for the
// widget renderer. It has no independent identity: it may always be
// discarded and regenerated from the record store.
type Bundle struct {
	Gifts       []View    `json:"gifts"`
	ActiveGift  *View     `json:"activeGift"`
	LastChecked time.Time `json:"lastChecked"`
}

// Head returns the queue head of an active-gift list ordered by createdAt
// ascending, or nil for an empty queue. The active gift is a pure function
// of the snapshot, so concurrent syncs converge to the same head.
func Head(queue []View) *View {
	if len(queue) == 0 {
		return nil
	}
	return &queue[0]
}

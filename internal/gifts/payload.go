package gifts

import (
	"fmt"
	"unicode/utf8"

	"github.com/keepsake-app/keepsake/internal/common"
)

// MaxMessageLen is the upper bound on the optional message, in runes. The
// compose flow enforces it in the UI; Validate enforces it again here.
const MaxMessageLen = 150

// CreatePayload is what the compose flow submits to create a gift.
type CreatePayload struct {
	SenderID       string `json:"senderId"`
	ReceiverID     string `json:"receiverId"`
	RelationshipID string `json:"relationshipId"`
	GiftType       Type   `json:"giftType"`
	PhotoURL       string `json:"photoUrl,omitempty"`
	MemoryID       string `json:"memoryId,omitempty"`
	Message        string `json:"message,omitempty"`
}

// Validate checks that the payload matches the gift type. All failures wrap
// common.ErrValidation.
func (p *CreatePayload) Validate() error {
	if p.SenderID == "" || p.ReceiverID == "" || p.RelationshipID == "" {
		return fmt.Errorf("%w: sender, receiver and relationship are required", common.ErrValidation)
	}
	if p.SenderID == p.ReceiverID {
		return fmt.Errorf("%w: sender and receiver must differ", common.ErrValidation)
	}
	if !p.GiftType.Valid() {
		return fmt.Errorf("%w: unknown gift type %q", common.ErrValidation, p.GiftType)
	}
	if utf8.RuneCountInString(p.Message) > MaxMessageLen {
		return fmt.Errorf("%w: message exceeds %d characters", common.ErrValidation, MaxMessageLen)
	}

	switch p.GiftType {
	case TypePhoto:
		if p.PhotoURL == "" {
			return fmt.Errorf("%w: photo gift requires photoUrl", common.ErrValidation)
		}
		if p.MemoryID != "" {
			return fmt.Errorf("%w: photo gift cannot reference a memory", common.ErrValidation)
		}
	case TypeMemory:
		if p.MemoryID == "" {
			return fmt.Errorf("%w: memory gift requires memoryId", common.ErrValidation)
		}
		if p.PhotoURL != "" {
			return fmt.Errorf("%w: memory gift derives its photo from the memory", common.ErrValidation)
		}
	case TypeNote:
		if p.Message == "" {
			return fmt.Errorf("%w: note gift requires message", common.ErrValidation)
		}
		if p.PhotoURL != "" || p.MemoryID != "" {
			return fmt.Errorf("%w: note gift carries only a message", common.ErrValidation)
		}
	}

	return nil
}

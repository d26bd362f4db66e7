package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	SenderUser      = "user"
	SenderAssistant = "assistant"
)

// ChatMessage is immutable once written. Messages in a thread are ordered
// by Timestamp; a user message always precedes its paired assistant message.
type ChatMessage struct {
	ID       uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ThreadID uuid.UUID `gorm:"type:uuid;not null;index" json:"thread_id"`

	Sender  string `gorm:"column:sender;not null;index" json:"sender"`
	Content string `gorm:"column:content;type:text;not null" json:"content"`

	// Assistant-only: ordered source attributions for the grounded answer.
	Sources datatypes.JSON `gorm:"type:jsonb;column:sources" json:"sources,omitempty"`

	Timestamp time.Time `gorm:"column:timestamp;not null;default:now();index" json:"timestamp"`
}

func (ChatMessage) TableName() string { return "chat_message" }

package types

import (
	"time"

	"github.com/google/uuid"
)

type ChatThread struct {
	ID    uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Title string    `gorm:"column:title;not null;default:'New Chat'" json:"title"`

	CreatedAt time.Time `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now();index" json:"updated_at"`
}

func (ChatThread) TableName() string { return "chat_thread" }

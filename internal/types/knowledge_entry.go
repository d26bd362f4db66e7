package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// KnowledgeEntry is the authoritative relational record for a curated Q&A
// item. Its vector representation in Pinecone is a derived projection that
// can always be rebuilt from this row.
type KnowledgeEntry struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Title       string         `gorm:"column:title;not null" json:"title"`
	Question    string         `gorm:"column:question;type:text;not null;default:''" json:"question"`
	AnswerBody  string         `gorm:"column:answer_body;type:text;not null;default:''" json:"answer_body"`
	ContentBody string         `gorm:"column:content_body;type:text;not null;default:''" json:"content_body"`
	Subject     string         `gorm:"column:subject;index" json:"subject"`
	GradeLevel  string         `gorm:"column:grade_level;index" json:"grade_level"`
	Difficulty  string         `gorm:"column:difficulty" json:"difficulty"`
	Category    string         `gorm:"column:category;not null;default:'Concept'" json:"category"`
	Tags        datatypes.JSON `gorm:"type:jsonb;column:tags;not null;default:'[]'" json:"tags"`
	Priority    int            `gorm:"column:priority;not null;default:1;index" json:"priority"`

	CreatedAt time.Time `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (KnowledgeEntry) TableName() string { return "knowledge_entry" }

// SearchText is the text embedded for the vector index: every field a
// student question could match against, concatenated.
func (e *KnowledgeEntry) SearchText() string {
	out := e.Title
	if e.Question != "" {
		out += " " + e.Question
	}
	if e.AnswerBody != "" {
		out += " " + e.AnswerBody
	}
	if e.ContentBody != "" {
		out += " " + e.ContentBody
	}
	return out
}

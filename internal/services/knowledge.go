package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/meroguru/meroguru-backend/internal/apierr"
	"github.com/meroguru/meroguru-backend/internal/clients/pinecone"
	"github.com/meroguru/meroguru-backend/internal/logger"
	"github.com/meroguru/meroguru-backend/internal/repos"
	"github.com/meroguru/meroguru-backend/internal/types"
)

const vectorWriteTimeout = 30 * time.Second

// KnowledgeService manages curated Q&A entries across both stores. The
// relational row is authoritative; the vector entry is a projection kept in
// step on create/update/delete and rebuildable at any time.
type KnowledgeService interface {
	List(ctx context.Context, filters repos.KnowledgeFilters) ([]*types.KnowledgeEntry, error)
	Create(ctx context.Context, entry *types.KnowledgeEntry) (*types.KnowledgeEntry, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (*types.KnowledgeEntry, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Grades(ctx context.Context) ([]string, error)
	SubjectsByGrade(ctx context.Context, grade string) ([]string, error)
}

type knowledgeService struct {
	log       *logger.Logger
	knowledge repos.KnowledgeRepo
	vectors   pinecone.VectorStore
}

func NewKnowledgeService(baseLog *logger.Logger, knowledgeRepo repos.KnowledgeRepo, vectors pinecone.VectorStore) KnowledgeService {
	return &knowledgeService{
		log:       baseLog.With("service", "KnowledgeService"),
		knowledge: knowledgeRepo,
		vectors:   vectors,
	}
}

func (s *knowledgeService) List(ctx context.Context, filters repos.KnowledgeFilters) ([]*types.KnowledgeEntry, error) {
	return s.knowledge.List(ctx, nil, filters)
}

func (s *knowledgeService) Create(ctx context.Context, entry *types.KnowledgeEntry) (*types.KnowledgeEntry, error) {
	if err := validateEntry(entry); err != nil {
		return nil, err
	}
	if len(entry.Tags) == 0 {
		entry.Tags = datatypes.JSON([]byte(`[]`))
	}
	if entry.Priority == 0 {
		entry.Priority = 1
	}
	if entry.Category == "" {
		entry.Category = "Concept"
	}

	created, err := s.knowledge.Create(ctx, nil, entry)
	if err != nil {
		return nil, err
	}

	s.projectToIndex(ctx, created, false)
	return created, nil
}

func (s *knowledgeService) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (*types.KnowledgeEntry, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("%w: missing id", apierr.ErrValidation)
	}
	if len(updates) == 0 {
		return nil, fmt.Errorf("%w: no fields to update", apierr.ErrValidation)
	}

	// The title/body requirements hold for the row as it will look after
	// the update, so the current row is needed to judge partial updates.
	current, err := s.knowledge.GetByIDs(ctx, nil, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if len(current) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	if err := validateUpdates(current[0], updates); err != nil {
		return nil, err
	}
	updates["updated_at"] = time.Now().UTC()

	updated, err := s.knowledge.Update(ctx, nil, id, updates)
	if err != nil {
		return nil, err
	}

	s.projectToIndex(ctx, updated, true)
	return updated, nil
}

func (s *knowledgeService) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return fmt.Errorf("%w: missing id", apierr.ErrValidation)
	}
	if err := s.knowledge.Delete(ctx, nil, id); err != nil {
		return err
	}
	if s.vectors != nil {
		vctx, cancel := context.WithTimeout(ctx, vectorWriteTimeout)
		defer cancel()
		if err := s.vectors.Delete(vctx, id.String()); err != nil {
			// Row is already gone; a stale vector only yields matches that
			// fail hydration against the store.
			s.log.Warn("Vector delete failed after store delete", "entry_id", id, "error", err)
		}
	}
	return nil
}

func (s *knowledgeService) Grades(ctx context.Context) ([]string, error) {
	return s.knowledge.DistinctGrades(ctx, nil)
}

func (s *knowledgeService) SubjectsByGrade(ctx context.Context, grade string) ([]string, error) {
	return s.knowledge.DistinctSubjects(ctx, nil, grade)
}

// projectToIndex re-embeds the entry and writes it to the vector index.
// Index failures are logged, not surfaced: the authoritative row is in
// place and the projection can be rebuilt (see cmd/indexsync).
func (s *knowledgeService) projectToIndex(ctx context.Context, entry *types.KnowledgeEntry, update bool) {
	if s.vectors == nil {
		return
	}
	vctx, cancel := context.WithTimeout(ctx, vectorWriteTimeout)
	defer cancel()

	var err error
	if update {
		err = s.vectors.UpdateEntry(vctx, entry.ID.String(), entry.SearchText(), EntryMetadata(entry))
	} else {
		err = s.vectors.UpsertEntry(vctx, entry.ID.String(), entry.SearchText(), EntryMetadata(entry))
	}
	if err != nil {
		s.log.Warn("Vector projection failed, entry remains searchable by keyword only", "entry_id", entry.ID, "error", err)
	}
}

// EntryMetadata is the filterable metadata stored alongside the vector.
func EntryMetadata(entry *types.KnowledgeEntry) map[string]any {
	md := map[string]any{
		"title":    entry.Title,
		"priority": entry.Priority,
	}
	if entry.Question != "" {
		md["question"] = entry.Question
	}
	if entry.Subject != "" {
		md["subject"] = entry.Subject
	}
	if entry.GradeLevel != "" {
		md["grade_level"] = entry.GradeLevel
	}
	if entry.Difficulty != "" {
		md["difficulty"] = entry.Difficulty
	}
	if entry.Category != "" {
		md["category"] = entry.Category
	}
	return md
}

// validateUpdates checks the entry as it will look once updates are applied:
// a partial update must not blank the title or both answer bodies.
func validateUpdates(entry *types.KnowledgeEntry, updates map[string]interface{}) error {
	title := effectiveField(entry.Title, updates, "title")
	answer := effectiveField(entry.AnswerBody, updates, "answer_body")
	content := effectiveField(entry.ContentBody, updates, "content_body")

	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: title is required", apierr.ErrValidation)
	}
	if strings.TrimSpace(answer) == "" && strings.TrimSpace(content) == "" {
		return fmt.Errorf("%w: answer_body or content_body is required", apierr.ErrValidation)
	}
	return nil
}

func effectiveField(current string, updates map[string]interface{}, key string) string {
	v, ok := updates[key]
	if !ok {
		return current
	}
	s, _ := v.(string)
	return s
}

func validateEntry(entry *types.KnowledgeEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: missing entry", apierr.ErrValidation)
	}
	if strings.TrimSpace(entry.Title) == "" {
		return fmt.Errorf("%w: title is required", apierr.ErrValidation)
	}
	if strings.TrimSpace(entry.AnswerBody) == "" && strings.TrimSpace(entry.ContentBody) == "" {
		return fmt.Errorf("%w: answer_body or content_body is required", apierr.ErrValidation)
	}
	return nil
}

package repos

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/meroguru/meroguru-backend/internal/apierr"
	"github.com/meroguru/meroguru-backend/internal/logger"
	"github.com/meroguru/meroguru-backend/internal/types"
)

// SearchLimit bounds how many entries a single keyword search returns.
const SearchLimit = 5

// KnowledgeFilters are exact-match constraints on a knowledge search.
// Empty fields are unrestricted.
type KnowledgeFilters struct {
	GradeLevel string
	Subject    string
}

type KnowledgeRepo interface {
	// Search matches query as a case-insensitive substring of question,
	// answer_body or content_body, or as an exact tag membership test,
	// ordered by priority DESC then created_at DESC, capped at SearchLimit.
	Search(ctx context.Context, tx *gorm.DB, query string, filters KnowledgeFilters) ([]*types.KnowledgeEntry, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.KnowledgeEntry, error)
	List(ctx context.Context, tx *gorm.DB, filters KnowledgeFilters) ([]*types.KnowledgeEntry, error)
	Create(ctx context.Context, tx *gorm.DB, entry *types.KnowledgeEntry) (*types.KnowledgeEntry, error)
	Update(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) (*types.KnowledgeEntry, error)
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	DistinctGrades(ctx context.Context, tx *gorm.DB) ([]string, error)
	DistinctSubjects(ctx context.Context, tx *gorm.DB, gradeLevel string) ([]string, error)
}

type knowledgeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewKnowledgeRepo(db *gorm.DB, baseLog *logger.Logger) KnowledgeRepo {
	return &knowledgeRepo{db: db, log: baseLog.With("repo", "KnowledgeRepo")}
}

func (r *knowledgeRepo) Search(ctx context.Context, tx *gorm.DB, query string, filters KnowledgeFilters) ([]*types.KnowledgeEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return []*types.KnowledgeEntry{}, nil
	}

	q := transaction.WithContext(ctx).Model(&types.KnowledgeEntry{})
	q = applyFilters(q, filters)

	like := "%" + query + "%"
	tagJSON, _ := json.Marshal([]string{query})

	var results []*types.KnowledgeEntry
	if err := q.
		Where("question ILIKE ? OR answer_body ILIKE ? OR content_body ILIKE ? OR tags @> ?",
			like, like, like, datatypes.JSON(tagJSON)).
		Order("priority DESC, created_at DESC").
		Limit(SearchLimit).
		Find(&results).Error; err != nil {
		r.log.Error("Knowledge search failed", "error", err)
		return nil, fmt.Errorf("%w: %v", apierr.ErrStoreUnavailable, err)
	}
	return results, nil
}

func (r *knowledgeRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.KnowledgeEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.KnowledgeEntry
	if len(ids) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", apierr.ErrStoreUnavailable, err)
	}
	return results, nil
}

func (r *knowledgeRepo) List(ctx context.Context, tx *gorm.DB, filters KnowledgeFilters) ([]*types.KnowledgeEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := applyFilters(transaction.WithContext(ctx).Model(&types.KnowledgeEntry{}), filters)

	var results []*types.KnowledgeEntry
	if err := q.
		Order("priority DESC, created_at DESC").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", apierr.ErrStoreUnavailable, err)
	}
	return results, nil
}

func (r *knowledgeRepo) Create(ctx context.Context, tx *gorm.DB, entry *types.KnowledgeEntry) (*types.KnowledgeEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", apierr.ErrStoreUnavailable, err)
	}
	return entry, nil
}

func (r *knowledgeRepo) Update(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) (*types.KnowledgeEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.KnowledgeEntry{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("%w: %v", apierr.ErrStoreUnavailable, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	var out types.KnowledgeEntry
	if err := transaction.WithContext(ctx).Where("id = ?", id).Take(&out).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", apierr.ErrStoreUnavailable, err)
	}
	return &out, nil
}

func (r *knowledgeRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&types.KnowledgeEntry{})
	if res.Error != nil {
		return fmt.Errorf("%w: %v", apierr.ErrStoreUnavailable, res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *knowledgeRepo) DistinctGrades(ctx context.Context, tx *gorm.DB) ([]string, error) {
	return r.distinct(ctx, tx, "grade_level", KnowledgeFilters{})
}

func (r *knowledgeRepo) DistinctSubjects(ctx context.Context, tx *gorm.DB, gradeLevel string) ([]string, error) {
	return r.distinct(ctx, tx, "subject", KnowledgeFilters{GradeLevel: gradeLevel})
}

func (r *knowledgeRepo) distinct(ctx context.Context, tx *gorm.DB, column string, filters KnowledgeFilters) ([]string, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := applyFilters(transaction.WithContext(ctx).Model(&types.KnowledgeEntry{}), filters)

	var out []string
	if err := q.
		Where(column+" <> ''").
		Distinct(column).
		Order(column).
		Pluck(column, &out).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", apierr.ErrStoreUnavailable, err)
	}
	return out, nil
}

func applyFilters(q *gorm.DB, filters KnowledgeFilters) *gorm.DB {
	if filters.GradeLevel != "" {
		q = q.Where("grade_level = ?", filters.GradeLevel)
	}
	if filters.Subject != "" {
		q = q.Where("subject = ?", filters.Subject)
	}
	return q
}

package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/meroguru/meroguru-backend/internal/clients/openai"
	"github.com/meroguru/meroguru-backend/internal/clients/pinecone"
	"github.com/meroguru/meroguru-backend/internal/logger"
	"github.com/meroguru/meroguru-backend/internal/repos"
	"github.com/meroguru/meroguru-backend/internal/types"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("production")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

type fakeLLM struct {
	generateResp string
	generateErr  error
	embedErr     error

	lastSystem string
	lastUser   string
	lastOpts   openai.GenerateOptions
	generateN  int
}

func (f *fakeLLM) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	out := make([][]float32, len(inputs))
	for i := range inputs {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

func (f *fakeLLM) GenerateText(ctx context.Context, system, user string, opts openai.GenerateOptions) (string, error) {
	f.generateN++
	f.lastSystem = system
	f.lastUser = user
	f.lastOpts = opts
	if f.generateErr != nil {
		return "", f.generateErr
	}
	return f.generateResp, nil
}

type fakeKnowledgeRepo struct {
	searchResults []*types.KnowledgeEntry
	searchErr     error
	searchN       int
	lastQuery     string
	lastFilters   repos.KnowledgeFilters

	byID     map[uuid.UUID]*types.KnowledgeEntry
	getErr   error
	created  []*types.KnowledgeEntry
	createFn func(entry *types.KnowledgeEntry) (*types.KnowledgeEntry, error)
}

func (f *fakeKnowledgeRepo) Search(ctx context.Context, tx *gorm.DB, query string, filters repos.KnowledgeFilters) ([]*types.KnowledgeEntry, error) {
	f.searchN++
	f.lastQuery = query
	f.lastFilters = filters
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.searchResults, nil
}

func (f *fakeKnowledgeRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.KnowledgeEntry, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	out := make([]*types.KnowledgeEntry, 0, len(ids))
	for _, id := range ids {
		if entry, ok := f.byID[id]; ok {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (f *fakeKnowledgeRepo) List(ctx context.Context, tx *gorm.DB, filters repos.KnowledgeFilters) ([]*types.KnowledgeEntry, error) {
	return f.searchResults, nil
}

func (f *fakeKnowledgeRepo) Create(ctx context.Context, tx *gorm.DB, entry *types.KnowledgeEntry) (*types.KnowledgeEntry, error) {
	if f.createFn != nil {
		return f.createFn(entry)
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	f.created = append(f.created, entry)
	return entry, nil
}

func (f *fakeKnowledgeRepo) Update(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) (*types.KnowledgeEntry, error) {
	entry, ok := f.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return entry, nil
}

func (f *fakeKnowledgeRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	if _, ok := f.byID[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeKnowledgeRepo) DistinctGrades(ctx context.Context, tx *gorm.DB) ([]string, error) {
	return []string{"Grade 5", "Grade 6"}, nil
}

func (f *fakeKnowledgeRepo) DistinctSubjects(ctx context.Context, tx *gorm.DB, gradeLevel string) ([]string, error) {
	return []string{"Math", "Science"}, nil
}

type fakeVectorStore struct {
	matches  []pinecone.VectorMatch
	queryErr error
	queryN   int
	lastTopK int

	upserted []string
	updated  []string
	deleted  []string
	writeErr error
}

func (f *fakeVectorStore) UpsertEntry(ctx context.Context, id, text string, metadata map[string]any) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.upserted = append(f.upserted, id)
	return nil
}

func (f *fakeVectorStore) UpdateEntry(ctx context.Context, id, text string, metadata map[string]any) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.updated = append(f.updated, id)
	return nil
}

func (f *fakeVectorStore) Query(ctx context.Context, text string, topK int, filter map[string]any) ([]pinecone.VectorMatch, error) {
	f.queryN++
	f.lastTopK = topK
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.matches, nil
}

func (f *fakeVectorStore) Delete(ctx context.Context, id string) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeThreadRepo struct {
	byID     map[uuid.UUID]*types.ChatThread
	created  []*types.ChatThread
	touched  []uuid.UUID
	touchErr error
}

func (f *fakeThreadRepo) Create(ctx context.Context, tx *gorm.DB, thread *types.ChatThread) (*types.ChatThread, error) {
	if thread.ID == uuid.Nil {
		thread.ID = uuid.New()
	}
	now := time.Now().UTC()
	thread.CreatedAt = now
	thread.UpdatedAt = now
	if f.byID == nil {
		f.byID = map[uuid.UUID]*types.ChatThread{}
	}
	f.byID[thread.ID] = thread
	f.created = append(f.created, thread)
	return thread, nil
}

func (f *fakeThreadRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ChatThread, error) {
	thread, ok := f.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return thread, nil
}

func (f *fakeThreadRepo) List(ctx context.Context, tx *gorm.DB, limit int) ([]*types.ChatThread, error) {
	out := make([]*types.ChatThread, 0, len(f.byID))
	for _, thread := range f.byID {
		out = append(out, thread)
	}
	return out, nil
}

func (f *fakeThreadRepo) Touch(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	if f.touchErr != nil {
		return f.touchErr
	}
	f.touched = append(f.touched, id)
	return nil
}

func (f *fakeThreadRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	if _, ok := f.byID[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(f.byID, id)
	return nil
}

type fakeMessageRepo struct {
	messages  []*types.ChatMessage
	createErr error
}

func (f *fakeMessageRepo) Create(ctx context.Context, tx *gorm.DB, message *types.ChatMessage) (*types.ChatMessage, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}
	f.messages = append(f.messages, message)
	return message, nil
}

func (f *fakeMessageRepo) ListByThread(ctx context.Context, tx *gorm.DB, threadID uuid.UUID) ([]*types.ChatMessage, error) {
	out := make([]*types.ChatMessage, 0, len(f.messages))
	for _, m := range f.messages {
		if m.ThreadID == threadID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMessageRepo) DeleteByThread(ctx context.Context, tx *gorm.DB, threadID uuid.UUID) error {
	kept := f.messages[:0]
	for _, m := range f.messages {
		if m.ThreadID != threadID {
			kept = append(kept, m)
		}
	}
	f.messages = kept
	return nil
}

func newEntry(title, question, answer string, priority int) *types.KnowledgeEntry {
	return &types.KnowledgeEntry{
		ID:         uuid.New(),
		Title:      title,
		Question:   question,
		AnswerBody: answer,
		Subject:    "Math",
		GradeLevel: "Grade 5",
		Priority:   priority,
	}
}

var errBoom = fmt.Errorf("boom")

package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/meroguru/meroguru-backend/internal/apierr"
	"github.com/meroguru/meroguru-backend/internal/repos"
	"github.com/meroguru/meroguru-backend/internal/types"
)

type fakeKnowledgeService struct {
	entries     []*types.KnowledgeEntry
	created     *types.KnowledgeEntry
	err         error
	lastFilters repos.KnowledgeFilters
	lastUpdates map[string]interface{}
	lastGrade   string
}

func (f *fakeKnowledgeService) List(ctx context.Context, filters repos.KnowledgeFilters) ([]*types.KnowledgeEntry, error) {
	f.lastFilters = filters
	return f.entries, f.err
}

func (f *fakeKnowledgeService) Create(ctx context.Context, entry *types.KnowledgeEntry) (*types.KnowledgeEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = entry
	entry.ID = uuid.New()
	return entry, nil
}

func (f *fakeKnowledgeService) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (*types.KnowledgeEntry, error) {
	f.lastUpdates = updates
	if f.err != nil {
		return nil, f.err
	}
	return &types.KnowledgeEntry{ID: id}, nil
}

func (f *fakeKnowledgeService) Delete(ctx context.Context, id uuid.UUID) error {
	return f.err
}

func (f *fakeKnowledgeService) Grades(ctx context.Context) ([]string, error) {
	return []string{"Grade 5"}, f.err
}

func (f *fakeKnowledgeService) SubjectsByGrade(ctx context.Context, grade string) ([]string, error) {
	f.lastGrade = grade
	return []string{"Math"}, f.err
}

func knowledgeRouter(t *testing.T, svc *fakeKnowledgeService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewKnowledgeHandler(testLogger(t), svc)
	r.GET("/api/knowledge", h.ListEntries)
	r.POST("/api/knowledge", h.CreateEntry)
	r.PUT("/api/knowledge/:id", h.UpdateEntry)
	r.DELETE("/api/knowledge/:id", h.DeleteEntry)
	r.GET("/api/knowledge/grades", h.ListGrades)
	r.GET("/api/knowledge/subjects", h.ListSubjects)
	return r
}

func TestListEntries_ForwardsQueryFilters(t *testing.T) {
	svc := &fakeKnowledgeService{}
	r := knowledgeRouter(t, svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/knowledge?grade=Grade+5&subject=Math", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
	if svc.lastFilters.GradeLevel != "Grade 5" || svc.lastFilters.Subject != "Math" {
		t.Fatalf("filters not forwarded: %+v", svc.lastFilters)
	}
}

func TestCreateEntry_Returns201WithDefaultedTags(t *testing.T) {
	svc := &fakeKnowledgeService{}
	r := knowledgeRouter(t, svc)

	body := `{"title": "Addition", "answer_body": "2+2=4", "subject": "Math"}`
	w := doJSON(t, r, http.MethodPost, "/api/knowledge", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", w.Code, w.Body.String())
	}
	if svc.created == nil {
		t.Fatalf("expected entry forwarded to service")
	}
	if string(svc.created.Tags) != "[]" {
		t.Fatalf("expected empty tags json got %q", string(svc.created.Tags))
	}
}

func TestCreateEntry_ValidationErrorIs400(t *testing.T) {
	svc := &fakeKnowledgeService{err: fmt.Errorf("%w: title is required", apierr.ErrValidation)}
	r := knowledgeRouter(t, svc)

	w := doJSON(t, r, http.MethodPost, "/api/knowledge", `{"answer_body": "a"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", w.Code)
	}
}

func TestUpdateEntry_WhitelistsFields(t *testing.T) {
	svc := &fakeKnowledgeService{}
	r := knowledgeRouter(t, svc)

	body := `{"title": "New", "tags": ["algebra"], "id": "should-be-ignored", "created_at": "2020-01-01"}`
	w := doJSON(t, r, http.MethodPut, "/api/knowledge/"+uuid.NewString(), body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", w.Code, w.Body.String())
	}
	if _, ok := svc.lastUpdates["id"]; ok {
		t.Fatalf("id must not be updatable")
	}
	if _, ok := svc.lastUpdates["created_at"]; ok {
		t.Fatalf("created_at must not be updatable")
	}
	if svc.lastUpdates["title"] != "New" {
		t.Fatalf("expected title update, got %v", svc.lastUpdates)
	}
	raw, ok := svc.lastUpdates["tags"].(datatypes.JSON)
	if !ok {
		t.Fatalf("expected tags marshaled to json type, got %T", svc.lastUpdates["tags"])
	}
	var tags []string
	if err := json.Unmarshal(raw, &tags); err != nil || len(tags) != 1 || tags[0] != "algebra" {
		t.Fatalf("unexpected tags %s", raw)
	}
}

func TestUpdateEntry_NotFoundIs404(t *testing.T) {
	svc := &fakeKnowledgeService{err: gorm.ErrRecordNotFound}
	r := knowledgeRouter(t, svc)

	w := doJSON(t, r, http.MethodPut, "/api/knowledge/"+uuid.NewString(), `{"title": "x"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", w.Code)
	}
}

func TestDeleteEntry_RejectsBadID(t *testing.T) {
	r := knowledgeRouter(t, &fakeKnowledgeService{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/knowledge/nope", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", w.Code)
	}
}

func TestListSubjects_ForwardsGrade(t *testing.T) {
	svc := &fakeKnowledgeService{}
	r := knowledgeRouter(t, svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/knowledge/subjects?grade=Grade+6", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
	if svc.lastGrade != "Grade 6" {
		t.Fatalf("expected grade forwarded, got %q", svc.lastGrade)
	}
	var subjects []string
	if err := json.Unmarshal(w.Body.Bytes(), &subjects); err != nil || len(subjects) != 1 {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
}

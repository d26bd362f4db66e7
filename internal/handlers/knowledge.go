package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/meroguru/meroguru-backend/internal/logger"
	"github.com/meroguru/meroguru-backend/internal/repos"
	"github.com/meroguru/meroguru-backend/internal/services"
	"github.com/meroguru/meroguru-backend/internal/types"
)

type KnowledgeHandler struct {
	log              *logger.Logger
	knowledgeService services.KnowledgeService
}

func NewKnowledgeHandler(log *logger.Logger, knowledgeService services.KnowledgeService) *KnowledgeHandler {
	return &KnowledgeHandler{
		log:              log.With("handler", "KnowledgeHandler"),
		knowledgeService: knowledgeService,
	}
}

type knowledgeEntryRequest struct {
	Title       string   `json:"title"`
	Question    string   `json:"question"`
	AnswerBody  string   `json:"answer_body"`
	ContentBody string   `json:"content_body"`
	Subject     string   `json:"subject"`
	GradeLevel  string   `json:"grade_level"`
	Difficulty  string   `json:"difficulty"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	Priority    int      `json:"priority"`
}

// GET /api/knowledge
func (h *KnowledgeHandler) ListEntries(c *gin.Context) {
	entries, err := h.knowledgeService.List(c.Request.Context(), repos.KnowledgeFilters{
		GradeLevel: c.Query("grade"),
		Subject:    c.Query("subject"),
	})
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, entries)
}

// POST /api/knowledge
func (h *KnowledgeHandler) CreateEntry(c *gin.Context) {
	var req knowledgeEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}
	tagJSON, _ := json.Marshal(tags)

	entry := &types.KnowledgeEntry{
		Title:       req.Title,
		Question:    req.Question,
		AnswerBody:  req.AnswerBody,
		ContentBody: req.ContentBody,
		Subject:     req.Subject,
		GradeLevel:  req.GradeLevel,
		Difficulty:  req.Difficulty,
		Category:    req.Category,
		Tags:        datatypes.JSON(tagJSON),
		Priority:    req.Priority,
	}

	created, err := h.knowledgeService.Create(c.Request.Context(), entry)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// PUT /api/knowledge/:id
func (h *KnowledgeHandler) UpdateEntry(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_entry_id", errors.New("invalid entry id"))
		return
	}

	var req map[string]interface{}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	updates := map[string]interface{}{}
	for _, field := range []string{"title", "question", "answer_body", "content_body", "subject", "grade_level", "difficulty", "category", "priority"} {
		if v, ok := req[field]; ok {
			updates[field] = v
		}
	}
	if v, ok := req["tags"]; ok {
		tagJSON, mErr := json.Marshal(v)
		if mErr != nil {
			RespondError(c, http.StatusBadRequest, "invalid_tags", mErr)
			return
		}
		updates["tags"] = datatypes.JSON(tagJSON)
	}

	updated, err := h.knowledgeService.Update(c.Request.Context(), id, updates)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, updated)
}

// DELETE /api/knowledge/:id
func (h *KnowledgeHandler) DeleteEntry(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_entry_id", errors.New("invalid entry id"))
		return
	}
	if err := h.knowledgeService.Delete(c.Request.Context(), id); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"message": "Entry deleted successfully"})
}

// GET /api/knowledge/grades
func (h *KnowledgeHandler) ListGrades(c *gin.Context) {
	grades, err := h.knowledgeService.Grades(c.Request.Context())
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, grades)
}

// GET /api/knowledge/subjects?grade=...
func (h *KnowledgeHandler) ListSubjects(c *gin.Context) {
	subjects, err := h.knowledgeService.SubjectsByGrade(c.Request.Context(), c.Query("grade"))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, subjects)
}

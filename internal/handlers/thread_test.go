package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/meroguru/meroguru-backend/internal/types"
)

func threadRouter(t *testing.T, svc *fakeChatService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewThreadHandler(testLogger(t), svc)
	r.GET("/api/threads", h.ListThreads)
	r.GET("/api/threads/:id", h.ListMessages)
	r.DELETE("/api/threads/:id", h.DeleteThread)
	return r
}

func TestListThreads_ReturnsThreads(t *testing.T) {
	svc := &fakeChatService{threads: []*types.ChatThread{
		{ID: uuid.New(), Title: "Math Help", CreatedAt: time.Now(), UpdatedAt: time.Now()},
	}}
	r := threadRouter(t, svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/threads", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
	var threads []types.ChatThread
	if err := json.Unmarshal(w.Body.Bytes(), &threads); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(threads) != 1 || threads[0].Title != "Math Help" {
		t.Fatalf("unexpected threads %+v", threads)
	}
}

func TestListMessages_RejectsBadID(t *testing.T) {
	r := threadRouter(t, &fakeChatService{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/threads/nope", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", w.Code)
	}
}

func TestListMessages_ReturnsThreadMessages(t *testing.T) {
	threadID := uuid.New()
	svc := &fakeChatService{messages: []*types.ChatMessage{
		{ID: uuid.New(), ThreadID: threadID, Sender: types.SenderUser, Content: "hi"},
		{ID: uuid.New(), ThreadID: threadID, Sender: types.SenderAssistant, Content: "hello!"},
	}}
	r := threadRouter(t, svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/threads/"+threadID.String(), nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
	var messages []types.ChatMessage
	if err := json.Unmarshal(w.Body.Bytes(), &messages); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages got %d", len(messages))
	}
}

func TestDeleteThread_ForwardsID(t *testing.T) {
	threadID := uuid.New()
	svc := &fakeChatService{}
	r := threadRouter(t, svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/threads/"+threadID.String(), nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
	if svc.deletedID != threadID {
		t.Fatalf("expected delete for %s got %s", threadID, svc.deletedID)
	}
}

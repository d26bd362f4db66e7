package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/meroguru/meroguru-backend/internal/apierr"
	"github.com/meroguru/meroguru-backend/internal/clients/openai"
	"github.com/meroguru/meroguru-backend/internal/logger"
	"github.com/meroguru/meroguru-backend/internal/repos"
	"github.com/meroguru/meroguru-backend/internal/types"
)

const (
	answerMaxTokens   = 1000
	answerTemperature = 0.7
	answerTimeout     = 60 * time.Second

	// ApologyMessage is the fixed degraded answer when generation fails.
	ApologyMessage = "I apologize, but I encountered an error while processing your request. Please try again."
)

type ChatRequest struct {
	Message     string
	ThreadID    string
	Grade       string
	Subject     string
	TitlePrompt string
}

// Source is one attribution attached to an assistant message.
type Source struct {
	Title      string `json:"title"`
	Excerpt    string `json:"excerpt"`
	Subject    string `json:"subject,omitempty"`
	GradeLevel string `json:"grade_level,omitempty"`
}

// ChatResult is the outcome of one chat turn. Success is false only when
// the generation backend could not be reached; a successful but unhelpful
// answer still has Success true.
type ChatResult struct {
	Response  string
	ThreadID  uuid.UUID
	Sources   []Source
	Timestamp time.Time
	Success   bool
}

type ChatService interface {
	// SendMessage runs the full turn: resolve or create the thread,
	// retrieve context, generate the grounded answer and persist the
	// exchange. Retrieval failures degrade to an ungrounded answer;
	// generation failure yields the apology with Success=false and no
	// assistant message is persisted.
	SendMessage(ctx context.Context, req ChatRequest) (*ChatResult, error)
	ListThreads(ctx context.Context) ([]*types.ChatThread, error)
	ListMessages(ctx context.Context, threadID uuid.UUID) ([]*types.ChatMessage, error)
	DeleteThread(ctx context.Context, threadID uuid.UUID) error
}

type chatService struct {
	log       *logger.Logger
	threads   repos.ChatThreadRepo
	messages  repos.ChatMessageRepo
	retrieval RetrievalService
	titles    TitleService
	llm       openai.Client
}

func NewChatService(
	baseLog *logger.Logger,
	threadRepo repos.ChatThreadRepo,
	messageRepo repos.ChatMessageRepo,
	retrieval RetrievalService,
	titles TitleService,
	llm openai.Client,
) ChatService {
	return &chatService{
		log:       baseLog.With("service", "ChatService"),
		threads:   threadRepo,
		messages:  messageRepo,
		retrieval: retrieval,
		titles:    titles,
		llm:       llm,
	}
}

func (s *chatService) SendMessage(ctx context.Context, req ChatRequest) (*ChatResult, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, fmt.Errorf("%w: message is required", apierr.ErrValidation)
	}

	// Resolve the existing thread before any side effect.
	var existing *types.ChatThread
	if strings.TrimSpace(req.ThreadID) != "" {
		threadID, err := uuid.Parse(strings.TrimSpace(req.ThreadID))
		if err != nil {
			return nil, fmt.Errorf("%w: invalid thread_id", apierr.ErrValidation)
		}
		existing, err = s.threads.GetByID(ctx, nil, threadID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, fmt.Errorf("%w: unknown thread_id", apierr.ErrValidation)
			}
			return nil, err
		}
	}

	// Title composition (new threads only) and retrieval have no data
	// dependency on each other; run them concurrently. Both must finish
	// before the answer is generated.
	var (
		hits  []Hit
		title string
	)
	var g errgroup.Group
	g.Go(func() error {
		hits = s.retrieval.Retrieve(ctx, message, Hint{GradeLevel: req.Grade, Subject: req.Subject})
		return nil
	})
	if existing == nil {
		g.Go(func() error {
			composed, usedFallback := s.titles.ComposeTitle(ctx, message, req.Grade, req.Subject, req.TitlePrompt)
			if usedFallback {
				s.log.Info("Using fallback conversation title", "title", composed)
			}
			title = composed
			return nil
		})
	}
	_ = g.Wait()

	thread := existing
	if thread == nil {
		created, err := s.threads.Create(ctx, nil, &types.ChatThread{Title: title})
		if err != nil {
			return nil, err
		}
		thread = created
		s.log.Info("New thread created", "thread_id", thread.ID, "title", thread.Title)
	}

	system := buildSystemMessage(req.Grade, req.Subject, hits)

	gctx, cancel := context.WithTimeout(ctx, answerTimeout)
	answer, genErr := s.llm.GenerateText(gctx, system, message, openai.GenerateOptions{
		MaxOutputTokens: answerMaxTokens,
		Temperature:     answerTemperature,
	})
	cancel()

	now := time.Now().UTC()

	// The user's turn happened regardless of the generation outcome;
	// record it so a failed turn is visible instead of silently dropped.
	s.appendMessage(ctx, thread.ID, types.SenderUser, message, nil)

	if genErr != nil {
		genErr = fmt.Errorf("%w: %v", apierr.ErrGenerationFailed, genErr)
		s.log.Error("Answer generation failed", "thread_id", thread.ID, "error", genErr)
		s.touchThread(ctx, thread.ID)
		return &ChatResult{
			Response:  ApologyMessage,
			ThreadID:  thread.ID,
			Sources:   []Source{},
			Timestamp: now,
			Success:   false,
		}, nil
	}

	sources := sourcesFromHits(hits)
	s.appendMessage(ctx, thread.ID, types.SenderAssistant, answer, sources)
	s.touchThread(ctx, thread.ID)

	return &ChatResult{
		Response:  answer,
		ThreadID:  thread.ID,
		Sources:   sources,
		Timestamp: now,
		Success:   true,
	}, nil
}

// appendMessage writes one message row. Persistence failures after a turn
// completed are logged and absorbed: the thread survives as-is rather than
// attempting a rollback across stores.
func (s *chatService) appendMessage(ctx context.Context, threadID uuid.UUID, sender, content string, sources []Source) {
	msg := &types.ChatMessage{
		ThreadID:  threadID,
		Sender:    sender,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
	if sender == types.SenderAssistant && len(sources) > 0 {
		raw, err := json.Marshal(sources)
		if err == nil {
			msg.Sources = datatypes.JSON(raw)
		}
	}
	if _, err := s.messages.Create(ctx, nil, msg); err != nil {
		s.log.Error("Failed to persist message", "thread_id", threadID, "sender", sender, "error", err)
	}
}

func (s *chatService) touchThread(ctx context.Context, threadID uuid.UUID) {
	if err := s.threads.Touch(ctx, nil, threadID); err != nil {
		s.log.Error("Failed to touch thread", "thread_id", threadID, "error", err)
	}
}

func (s *chatService) ListThreads(ctx context.Context) ([]*types.ChatThread, error) {
	return s.threads.List(ctx, nil, 0)
}

func (s *chatService) ListMessages(ctx context.Context, threadID uuid.UUID) ([]*types.ChatMessage, error) {
	return s.messages.ListByThread(ctx, nil, threadID)
}

func (s *chatService) DeleteThread(ctx context.Context, threadID uuid.UUID) error {
	if err := s.messages.DeleteByThread(ctx, nil, threadID); err != nil {
		return err
	}
	return s.threads.Delete(ctx, nil, threadID)
}

func sourcesFromHits(hits []Hit) []Source {
	out := make([]Source, 0, len(hits))
	for _, h := range hits {
		out = append(out, Source{
			Title:      h.Entry.Title,
			Excerpt:    h.Entry.Question,
			Subject:    h.Entry.Subject,
			GradeLevel: h.Entry.GradeLevel,
		})
	}
	return out
}

// buildSystemMessage assembles the tutor persona, grade/subject framing and
// the retrieved context as Question/Answer blocks.
func buildSystemMessage(grade, subject string, hits []Hit) string {
	var b strings.Builder

	audience := "students"
	if grade != "" {
		audience = grade + " students"
	}
	fmt.Fprintf(&b, "You are MeroGuru, a friendly and encouraging AI tutor for %s. ", audience)
	if subject != "" {
		fmt.Fprintf(&b, "You specialize in %s. ", subject)
	}

	b.WriteString(`

PERSONALITY & BEHAVIOR RULES:
- You are enthusiastic, patient, and encouraging
- Use simple, clear language appropriate for the student's grade level
- Give step-by-step explanations when possible
- Use examples and analogies to make concepts easier to understand
- If a student is struggling, offer encouragement and break down the problem
- Ask follow-up questions to check understanding

RESPONSE FORMAT:
- Keep responses concise but thorough
- Use bullet points or numbered lists for complex explanations
- End with a question or suggestion to keep the conversation going
- Always be positive and supportive`)

	if len(hits) > 0 {
		b.WriteString("\n\nKNOWLEDGE BASE CONTEXT:\nUse the following information to answer the student's question accurately:\n")
		for i, h := range hits {
			if i > 0 {
				b.WriteString("\n\n")
			}
			answer := h.Entry.AnswerBody
			if answer == "" {
				answer = h.Entry.ContentBody
			}
			fmt.Fprintf(&b, "Question: %s\nAnswer: %s", h.Entry.Question, answer)
		}
		b.WriteString("\n\nBase your response on this context. If the context doesn't contain enough information, say so politely and provide general guidance while encouraging the student to ask more specific questions.")
	} else {
		b.WriteString("\n\nKNOWLEDGE BASE:\nNo specific context found for this question. Provide helpful general guidance and encourage the student to ask more specific questions.")
	}

	return b.String()
}

package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/meroguru/meroguru-backend/internal/clients/openai"
	"github.com/meroguru/meroguru-backend/internal/logger"
)

const (
	titleMaxTokens   = 30
	titleTemperature = 0.7
	titleTimeout     = 15 * time.Second

	fallbackTitleMaxLen = 40
)

// TitleService derives a short conversation title from the first message of
// a thread. Generation failures never surface: the deterministic fallback
// always produces a title.
type TitleService interface {
	// ComposeTitle returns the title and whether the fallback was used.
	// customPrompt overrides the default title instructions when non-empty.
	ComposeTitle(ctx context.Context, message, grade, subject, customPrompt string) (string, bool)
}

type titleService struct {
	log *logger.Logger
	llm openai.Client
}

func NewTitleService(baseLog *logger.Logger, llm openai.Client) TitleService {
	return &titleService{
		log: baseLog.With("service", "TitleService"),
		llm: llm,
	}
}

func (s *titleService) ComposeTitle(ctx context.Context, message, grade, subject, customPrompt string) (string, bool) {
	if s.llm == nil {
		return FallbackTitle(message, subject), true
	}

	system := customPrompt
	if strings.TrimSpace(system) == "" {
		system = defaultTitlePrompt(grade, subject)
	}
	user := fmt.Sprintf("Generate a title for this message: %q", message)

	tctx, cancel := context.WithTimeout(ctx, titleTimeout)
	defer cancel()

	generated, err := s.llm.GenerateText(tctx, system, user, openai.GenerateOptions{
		MaxOutputTokens: titleMaxTokens,
		Temperature:     titleTemperature,
	})
	if err != nil {
		s.log.Warn("Title generation failed, using fallback", "error", err)
		return FallbackTitle(message, subject), true
	}

	title := strings.TrimSpace(generated)
	title = strings.Trim(title, `"'`)
	title = strings.TrimSpace(title)
	if title == "" {
		s.log.Warn("Title generation returned empty output, using fallback")
		return FallbackTitle(message, subject), true
	}
	return title, false
}

func defaultTitlePrompt(grade, subject string) string {
	if grade == "" {
		grade = "General"
	}
	if subject == "" {
		subject = "General Education"
	}
	return fmt.Sprintf(`You are a specialized title generator for educational conversations. Create a concise, descriptive title (max 8 words) based on the user's first message.

CONTEXT:
- Grade Level: %s
- Subject: %s

TITLE REQUIREMENTS:
- Clear and specific to the topic
- Educational and academic in nature
- Relevant to the grade level and subject above
- Professional but friendly tone
- Include subject prefix when relevant (e.g., "Math:", "Science:")

EXAMPLES:
- "Math: Solving Quadratic Equations"
- "Science: Photosynthesis Process"
- "English: Grammar Rules Review"
- "History: Ancient Egypt Pyramids"
- "Physics: Newton's Laws Explained"

Generate only the title, nothing else. No quotes, no extra text.`, grade, subject)
}

// FallbackTitle builds a title from the raw message with no external
// dependency: first 40 characters (ellipsis-truncated), first letter
// capitalized, prefixed with the first word of the subject when known.
// It is total: any input yields a non-empty title.
func FallbackTitle(message, subject string) string {
	prefix := ""
	if fields := strings.Fields(subject); len(fields) > 0 {
		prefix = fields[0] + ": "
	}

	title := strings.TrimSpace(message)
	if title == "" {
		title = "New Chat"
	}
	runes := []rune(title)
	if len(runes) > fallbackTitleMaxLen {
		title = string(runes[:fallbackTitleMaxLen]) + "..."
		runes = []rune(title)
	}
	runes[0] = unicode.ToUpper(runes[0])
	return prefix + string(runes)
}

package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/meroguru/meroguru-backend/internal/clients/pinecone"
	"github.com/meroguru/meroguru-backend/internal/logger"
	"github.com/meroguru/meroguru-backend/internal/repos"
	"github.com/meroguru/meroguru-backend/internal/types"
)

const (
	// MaxContextEntries bounds the merged context handed to generation.
	MaxContextEntries = 5

	retrievalTimeout = 10 * time.Second
)

const (
	MatchKeyword = "keyword"
	MatchVector  = "vector"
)

// Hint optionally narrows retrieval to a grade level and subject.
type Hint struct {
	GradeLevel string
	Subject    string
}

// Hit is one retrieved context entry. Keyword and vector scores are on
// different scales; rank position, not score magnitude, is the contract.
type Hit struct {
	Entry     *types.KnowledgeEntry
	Score     float64
	MatchKind string
}

// RetrievalService merges keyword and vector search into one ranked,
// deduplicated context list. It never fails: either path erroring out is
// downgraded to zero results from that path.
type RetrievalService interface {
	Retrieve(ctx context.Context, query string, hint Hint) []Hit
}

type retrievalService struct {
	log       *logger.Logger
	knowledge repos.KnowledgeRepo
	vectors   pinecone.VectorStore
}

// NewRetrievalService wires the two retrieval paths. vectors may be nil
// when no index is configured; keyword search still works alone.
func NewRetrievalService(baseLog *logger.Logger, knowledgeRepo repos.KnowledgeRepo, vectors pinecone.VectorStore) RetrievalService {
	return &retrievalService{
		log:       baseLog.With("service", "RetrievalService"),
		knowledge: knowledgeRepo,
		vectors:   vectors,
	}
}

func (s *retrievalService) Retrieve(ctx context.Context, query string, hint Hint) []Hit {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Hit{}
	}

	filters := repos.KnowledgeFilters{
		GradeLevel: hint.GradeLevel,
		Subject:    hint.Subject,
	}

	var (
		keyword []*types.KnowledgeEntry
		matches []pinecone.VectorMatch
	)

	// The two paths are independent; run them concurrently and absorb
	// failures locally.
	var g errgroup.Group
	g.Go(func() error {
		kctx, cancel := context.WithTimeout(ctx, retrievalTimeout)
		defer cancel()
		results, err := s.knowledge.Search(kctx, nil, query, filters)
		if err != nil {
			s.log.Warn("Keyword search failed, continuing without it", "error", err)
			return nil
		}
		keyword = results
		return nil
	})
	g.Go(func() error {
		if s.vectors == nil {
			return nil
		}
		vctx, cancel := context.WithTimeout(ctx, retrievalTimeout)
		defer cancel()
		results, err := s.vectors.Query(vctx, query, MaxContextEntries, vectorFilter(hint))
		if err != nil {
			s.log.Warn("Vector search failed, continuing without it", "error", err)
			return nil
		}
		matches = results
		return nil
	})
	_ = g.Wait()

	return s.merge(ctx, keyword, matches)
}

// merge ranks keyword hits first (the repo already orders them by priority
// then recency) and appends vector hits not already present, by similarity
// score descending. The two score scales are never normalized against each
// other; keyword-first ordering is a documented contract that downstream
// prompt framing depends on.
func (s *retrievalService) merge(ctx context.Context, keyword []*types.KnowledgeEntry, matches []pinecone.VectorMatch) []Hit {
	hits := make([]Hit, 0, len(keyword)+len(matches))
	seen := make(map[uuid.UUID]bool, len(keyword))

	for _, entry := range keyword {
		seen[entry.ID] = true
		hits = append(hits, Hit{
			Entry:     entry,
			Score:     float64(entry.Priority),
			MatchKind: MatchKeyword,
		})
	}

	if len(hits) < MaxContextEntries && len(matches) > 0 {
		hits = append(hits, s.hydrate(ctx, matches, seen)...)
	}

	if len(hits) > MaxContextEntries {
		hits = hits[:MaxContextEntries]
	}
	return hits
}

// hydrate resolves vector match IDs against the authoritative relational
// rows. Matches whose row is gone (or whose ID is not a UUID) are dropped.
func (s *retrievalService) hydrate(ctx context.Context, matches []pinecone.VectorMatch, seen map[uuid.UUID]bool) []Hit {
	scores := make(map[uuid.UUID]float64, len(matches))
	ids := make([]uuid.UUID, 0, len(matches))
	for _, m := range matches {
		id, err := uuid.Parse(m.ID)
		if err != nil || seen[id] {
			continue
		}
		if _, dup := scores[id]; dup {
			continue
		}
		scores[id] = m.Score
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil
	}

	hctx, cancel := context.WithTimeout(ctx, retrievalTimeout)
	defer cancel()
	entries, err := s.knowledge.GetByIDs(hctx, nil, ids)
	if err != nil {
		s.log.Warn("Could not hydrate vector matches from store, dropping them", "error", err)
		return nil
	}

	hits := make([]Hit, 0, len(entries))
	for _, entry := range entries {
		hits = append(hits, Hit{
			Entry:     entry,
			Score:     scores[entry.ID],
			MatchKind: MatchVector,
		})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	return hits
}

func vectorFilter(hint Hint) map[string]any {
	filter := map[string]any{}
	if hint.GradeLevel != "" {
		filter["grade_level"] = hint.GradeLevel
	}
	if hint.Subject != "" {
		filter["subject"] = hint.Subject
	}
	if len(filter) == 0 {
		return nil
	}
	return filter
}

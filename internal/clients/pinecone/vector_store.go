package pinecone

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/meroguru/meroguru-backend/internal/apierr"
	"github.com/meroguru/meroguru-backend/internal/logger"
)

// Embedder turns text into vectors. Satisfied by the OpenAI client.
type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

type VectorMatch struct {
	ID       string
	Score    float64
	Metadata map[string]any
}

// VectorStore is the vector-index adapter: embed-and-upsert, similarity
// query and delete, keyed by knowledge entry IDs. The relational row stays
// authoritative; everything here is a rebuildable projection.
type VectorStore interface {
	UpsertEntry(ctx context.Context, id string, text string, metadata map[string]any) error
	// UpdateEntry is delete-then-upsert. If the upsert half fails the entry
	// is transiently unsearchable by vector but still in the store.
	UpdateEntry(ctx context.Context, id string, text string, metadata map[string]any) error
	Query(ctx context.Context, text string, topK int, filter map[string]any) ([]VectorMatch, error)
	Delete(ctx context.Context, id string) error
}

type vectorStore struct {
	log       *logger.Logger
	pc        Client
	embedder  Embedder
	indexName string
	indexHost string
	dimension int
}

func NewVectorStore(log *logger.Logger, pc Client, embedder Embedder) (VectorStore, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if pc == nil {
		return nil, fmt.Errorf("pinecone client required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder required")
	}

	indexName := strings.TrimSpace(os.Getenv("PINECONE_INDEX_NAME"))
	if indexName == "" {
		indexName = "student-qa-index"
	}

	host := strings.TrimSpace(os.Getenv("PINECONE_INDEX_HOST"))

	dimension := 1536
	if v := strings.TrimSpace(os.Getenv("PINECONE_DIMENSION")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			dimension = parsed
		}
	}

	// If host missing, bootstrap via describe_index (fine for local/dev).
	if host == "" {
		desc, err := pc.DescribeIndex(context.Background(), indexName)
		if err != nil {
			return nil, fmt.Errorf("pinecone describe_index failed: %w", err)
		}
		host = strings.TrimSpace(desc.Host)
		if host == "" {
			return nil, fmt.Errorf("pinecone describe_index returned empty host")
		}
		if desc.Dimension > 0 {
			dimension = desc.Dimension
		}
		log.Warn("PINECONE_INDEX_HOST not set; resolved via describe_index (avoid this in production)",
			"index_name", indexName,
			"index_host", host,
		)
	}

	return &vectorStore{
		log:       log.With("service", "PineconeVectorStore"),
		pc:        pc,
		embedder:  embedder,
		indexName: indexName,
		indexHost: host,
		dimension: dimension,
	}, nil
}

func (s *vectorStore) UpsertEntry(ctx context.Context, id string, text string, metadata map[string]any) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("vector id required")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("vector text required")
	}

	vecs, err := s.embedder.Embed(ctx, []string{text})
	if err != nil {
		return fmt.Errorf("%w: embed: %v", apierr.ErrIndexUnavailable, err)
	}
	if len(vecs) != 1 {
		return fmt.Errorf("%w: embed returned %d vectors", apierr.ErrIndexUnavailable, len(vecs))
	}
	vec := vecs[0]
	// The write must stop here on a mismatch, before it reaches the index.
	if len(vec) != s.dimension {
		return fmt.Errorf("%w: got %d, index expects %d", apierr.ErrDimensionMismatch, len(vec), s.dimension)
	}

	_, err = s.pc.UpsertVectors(ctx, s.indexHost, UpsertRequest{
		Vectors: []Vector{{
			ID:       id,
			Values:   vec,
			Metadata: metadata,
		}},
	})
	if err != nil {
		return fmt.Errorf("%w: %v", apierr.ErrIndexUnavailable, err)
	}
	return nil
}

func (s *vectorStore) UpdateEntry(ctx context.Context, id string, text string, metadata map[string]any) error {
	if err := s.Delete(ctx, id); err != nil {
		return err
	}
	return s.UpsertEntry(ctx, id, text, metadata)
}

func (s *vectorStore) Query(ctx context.Context, text string, topK int, filter map[string]any) ([]VectorMatch, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []VectorMatch{}, nil
	}
	if topK <= 0 {
		topK = 5
	}

	vecs, err := s.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("%w: embed: %v", apierr.ErrIndexUnavailable, err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("%w: embed returned %d vectors", apierr.ErrIndexUnavailable, len(vecs))
	}

	resp, err := s.pc.Query(ctx, s.indexHost, QueryRequest{
		Vector:          vecs[0],
		TopK:            topK,
		Filter:          filter,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apierr.ErrIndexUnavailable, err)
	}

	out := make([]VectorMatch, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		if strings.TrimSpace(m.ID) == "" {
			continue
		}
		out = append(out, VectorMatch{ID: m.ID, Score: m.Score, Metadata: m.Metadata})
	}
	return out, nil
}

func (s *vectorStore) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("vector id required")
	}
	if err := s.pc.DeleteVectors(ctx, s.indexHost, DeleteRequest{IDs: []string{id}}); err != nil {
		return fmt.Errorf("%w: %v", apierr.ErrIndexUnavailable, err)
	}
	return nil
}

package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cloo-solutions/wellrag/internal/domain"
	"github.com/cloo-solutions/wellrag/internal/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ChunkRepository is a ChunkStore backed by PostgreSQL and pgvector.
type ChunkRepository struct {
	pool       *pgxpool.Pool
	collection string
	embedder   store.EmbeddingClient
	logger     *slog.Logger
}

// NewChunkRepository scopes a repository to one collection. embedder may be nil,
// in which case relevance queries use full-text ranking.
func NewChunkRepository(pool *pgxpool.Pool, collection string, embedder store.EmbeddingClient, logger *slog.Logger) *ChunkRepository {
	if collection == "" {
		collection = store.DefaultCollection
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChunkRepository{pool: pool, collection: collection, embedder: embedder, logger: logger}
}

var _ store.ChunkStore = (*ChunkRepository)(nil)

func (r *ChunkRepository) Insert(ctx context.Context, chunks []domain.Chunk) ([]string, error) {
	if len(chunks) == 0 {
		return []string{}, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors := store.EmbedTexts(ctx, r.embedder, texts, r.logger)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, unavailable("begin insert", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ids := make([]string, len(chunks))
	for i, c := range chunks {
		res := domain.SanitizeMetadata(c.Metadata.Map())
		if len(res.Dropped) > 0 {
			r.logger.Debug("dropped non-scalar metadata", "collection", r.collection, "keys", res.Dropped)
		}
		meta, err := store.EncodeMetadata(res.Clean)
		if err != nil {
			return nil, fmt.Errorf("encode metadata: %w", err)
		}

		ids[i] = uuid.NewString()
		if err := insertChunk(ctx, tx, ids[i], r.collection, c.Text, meta, vectors[i]); err != nil {
			return nil, unavailable("insert chunk", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, unavailable("commit insert", err)
	}
	return ids, nil
}

func insertChunk(ctx context.Context, db dbtx, id, collection, text string, meta []byte, embedding []float32) error {
	var vec *pgvector.Vector
	if len(embedding) > 0 {
		v := pgvector.NewVector(embedding)
		vec = &v
	}
	_, err := db.Exec(ctx,
		`INSERT INTO document_chunks (id, collection, text, metadata, embedding)
		 VALUES ($1, $2, $3, $4::jsonb, $5)`,
		id, collection, text, string(meta), vec,
	)
	return err
}

func (r *ChunkRepository) QueryByFilter(ctx context.Context, filter domain.Filter, limit int) ([]string, error) {
	contains, err := filterDocument(filter)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT text FROM document_chunks
		 WHERE collection = $1 AND metadata @> $2::jsonb
		 ORDER BY seq
		 LIMIT $3`,
		r.collection, contains, store.NormalizeLimit(limit),
	)
	if err != nil {
		return nil, unavailable("query by filter", err)
	}
	return scanTexts(rows)
}

// QueryByRelevance orders by cosine distance when the query can be embedded,
// otherwise by full-text rank where any query term counts as a match. Chunks
// stored without a vector follow the embedded ones, ordered by full-text rank.
func (r *ChunkRepository) QueryByRelevance(ctx context.Context, query string, limit int, filter domain.Filter) ([]string, error) {
	if err := store.CheckRelevanceQuery(query, filter); err != nil {
		return nil, err
	}
	contains, err := filterDocument(filter)
	if err != nil {
		return nil, err
	}
	limit = store.NormalizeLimit(limit)

	var rows pgx.Rows
	switch vec := store.EmbedQuery(ctx, r.embedder, query, r.logger); {
	case vec != nil:
		rows, err = r.pool.Query(ctx,
			`SELECT text FROM document_chunks
			 WHERE collection = $1 AND metadata @> $2::jsonb
			 ORDER BY embedding <=> $3 ASC NULLS LAST,
			     ts_rank(
			         to_tsvector('simple', text),
			         replace(plainto_tsquery('simple', $4)::text, '&', '|')::tsquery
			     ) DESC,
			     seq
			 LIMIT $5`,
			r.collection, contains, pgvector.NewVector(vec), query, limit,
		)
	case query != "":
		rows, err = r.pool.Query(ctx,
			`SELECT text FROM document_chunks
			 WHERE collection = $1 AND metadata @> $2::jsonb
			 ORDER BY ts_rank(
			     to_tsvector('simple', text),
			     replace(plainto_tsquery('simple', $3)::text, '&', '|')::tsquery
			 ) DESC, seq
			 LIMIT $4`,
			r.collection, contains, query, limit,
		)
	default:
		rows, err = r.pool.Query(ctx,
			`SELECT text FROM document_chunks
			 WHERE collection = $1 AND metadata @> $2::jsonb
			 ORDER BY seq
			 LIMIT $3`,
			r.collection, contains, limit,
		)
	}
	if err != nil {
		return nil, unavailable("query by relevance", err)
	}
	return scanTexts(rows)
}

func (r *ChunkRepository) Reset(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM document_chunks WHERE collection = $1`, r.collection); err != nil {
		return unavailable("reset", err)
	}
	return nil
}

func (r *ChunkRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM document_chunks WHERE collection = $1`, r.collection).Scan(&n)
	if err != nil {
		return 0, unavailable("count", err)
	}
	return n, nil
}

// filterDocument renders a filter as the JSON document used with @>.
func filterDocument(filter domain.Filter) (string, error) {
	if err := filter.Validate(); err != nil {
		return "", err
	}
	doc, err := store.EncodeMetadata(filter)
	if err != nil {
		return "", err
	}
	return string(doc), nil
}

func scanTexts(rows pgx.Rows) ([]string, error) {
	defer rows.Close()

	texts := []string{}
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, unavailable("scan chunk", err)
		}
		texts = append(texts, text)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("read chunks", err)
	}
	return texts, nil
}

func unavailable(op string, err error) error {
	return domain.Wrap(domain.ErrStoreUnavailable, fmt.Errorf("postgres %s: %w", op, err))
}

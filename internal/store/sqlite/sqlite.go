// Package sqlite is a ChunkStore persisted to a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/cloo-solutions/wellrag/internal/domain"
	"github.com/cloo-solutions/wellrag/internal/store"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS chunks (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL UNIQUE,
	collection TEXT NOT NULL,
	text       TEXT NOT NULL,
	metadata   TEXT NOT NULL,
	embedding  BLOB
);
CREATE INDEX IF NOT EXISTS idx_chunks_collection_seq ON chunks (collection, seq);
`

// Store keeps chunks of one collection in a SQLite database.
type Store struct {
	db         *sql.DB
	collection string
	embedder   store.EmbeddingClient
	logger     *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithEmbedder enables embedding-based relevance ranking.
func WithEmbedder(e store.EmbeddingClient) Option {
	return func(s *Store) { s.embedder = e }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Open opens or creates the database at path. Use ":memory:" for a throwaway store.
func Open(ctx context.Context, path, collection string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, unavailable("open database", err)
	}
	// One connection: keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, unavailable("ping database", err)
	}
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, unavailable("configure database", err)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, unavailable("create schema", err)
	}

	if collection == "" {
		collection = store.DefaultCollection
	}
	s := &Store{db: db, collection: collection, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

var _ store.ChunkStore = (*Store)(nil)

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert writes chunks in one transaction.
func (s *Store) Insert(ctx context.Context, chunks []domain.Chunk) ([]string, error) {
	if len(chunks) == 0 {
		return []string{}, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors := store.EmbedTexts(ctx, s.embedder, texts, s.logger)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, unavailable("begin insert", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (id, collection, text, metadata, embedding) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, unavailable("prepare insert", err)
	}
	defer stmt.Close()

	ids := make([]string, len(chunks))
	for i, c := range chunks {
		res := domain.SanitizeMetadata(c.Metadata.Map())
		if len(res.Dropped) > 0 {
			s.logger.Debug("dropped non-scalar metadata", "collection", s.collection, "keys", res.Dropped)
		}
		meta, err := store.EncodeMetadata(res.Clean)
		if err != nil {
			return nil, fmt.Errorf("encode metadata: %w", err)
		}
		ids[i] = uuid.NewString()
		if _, err := stmt.ExecContext(ctx, ids[i], s.collection, c.Text, string(meta), store.EncodeVector(vectors[i])); err != nil {
			return nil, unavailable("insert chunk", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, unavailable("commit insert", err)
	}
	return ids, nil
}

// QueryByFilter returns matching texts in insertion order.
func (s *Store) QueryByFilter(ctx context.Context, filter domain.Filter, limit int) ([]string, error) {
	where, args, err := s.whereClause(filter)
	if err != nil {
		return nil, err
	}
	args = append(args, store.NormalizeLimit(limit))

	rows, err := s.db.QueryContext(ctx, `SELECT text FROM chunks WHERE `+where+` ORDER BY seq LIMIT ?`, args...)
	if err != nil {
		return nil, unavailable("query by filter", err)
	}
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
		return nil, unavailable("query by filter", err)
	}
	return texts, nil
}

// QueryByRelevance loads the filtered chunks and ranks them in process.
func (s *Store) QueryByRelevance(ctx context.Context, query string, limit int, filter domain.Filter) ([]string, error) {
	if err := store.CheckRelevanceQuery(query, filter); err != nil {
		return nil, err
	}
	where, args, err := s.whereClause(filter)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT seq, text, embedding FROM chunks WHERE `+where+` ORDER BY seq`, args...)
	if err != nil {
		return nil, unavailable("query by relevance", err)
	}
	defer rows.Close()

	var candidates []store.Candidate
	for rows.Next() {
		var c store.Candidate
		var vec []byte
		if err := rows.Scan(&c.Seq, &c.Text, &vec); err != nil {
			return nil, unavailable("scan chunk", err)
		}
		c.Embedding = store.DecodeVector(vec)
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("query by relevance", err)
	}

	queryVec := store.EmbedQuery(ctx, s.embedder, query, s.logger)
	return store.Rank(query, queryVec, candidates, limit), nil
}

// Reset removes every chunk of the collection.
func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE collection = ?`, s.collection); err != nil {
		return unavailable("reset", err)
	}
	return nil
}

// Count returns the number of chunks in the collection.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE collection = ?`, s.collection).Scan(&n); err != nil {
		return 0, unavailable("count", err)
	}
	return n, nil
}

// whereClause scopes to the collection and adds a typed equality check per
// filter pair: json_type must match so the string "1" never equals 1.
func (s *Store) whereClause(filter domain.Filter) (string, []any, error) {
	if err := filter.Validate(); err != nil {
		return "", nil, err
	}

	conds := []string{"collection = ?"}
	args := []any{s.collection}
	for _, key := range sortedKeys(filter) {
		path := jsonPath(key)
		value, _ := domain.NormalizeScalar(filter[key])
		switch v := value.(type) {
		case bool:
			jsonType := "false"
			if v {
				jsonType = "true"
			}
			conds = append(conds, "json_type(metadata, ?) = ?")
			args = append(args, path, jsonType)
		case string:
			conds = append(conds, "json_type(metadata, ?) = 'text' AND json_extract(metadata, ?) = ?")
			args = append(args, path, path, v)
		case int64:
			conds = append(conds, "json_type(metadata, ?) = 'integer' AND json_extract(metadata, ?) = ?")
			args = append(args, path, path, v)
		case float64:
			conds = append(conds, "json_type(metadata, ?) = 'real' AND json_extract(metadata, ?) = ?")
			args = append(args, path, path, v)
		}
	}
	return strings.Join(conds, " AND "), args, nil
}

func jsonPath(key string) string {
	return `$."` + strings.ReplaceAll(key, `"`, `\"`) + `"`
}

func sortedKeys(f domain.Filter) []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func unavailable(op string, err error) error {
	return domain.Wrap(domain.ErrStoreUnavailable, fmt.Errorf("sqlite %s: %w", op, err))
}

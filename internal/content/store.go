package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/mentora-ai/mentora/internal/embedding"
)

// ErrNotFound indicates the requested content item does not exist.
var ErrNotFound = errors.New("content item not found")

// Embedder produces a vector for enriched content text. Satisfied by
// *embedding.Orchestrator.
type Embedder interface {
	Embed(ctx context.Context, text string, opts embedding.Options) (embedding.Vector, error)
}

// querier is the common interface satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists content items and serves similarity search over their
// embeddings.
type Store struct {
	pool     *pgxpool.Pool
	embedder Embedder
	logger   *slog.Logger
}

// NewStore creates a content store backed by pool. The embedder is
// invoked whenever an item's enriched text changes.
func NewStore(pool *pgxpool.Pool, embedder Embedder, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, embedder: embedder, logger: logger}
}

const itemCols = `id, content_type, body, metadata, user_id, created_at, updated_at`

// Upsert writes an item and refreshes its embedding only when the
// enriched text actually changed. Writes to the same item serialize on
// an advisory lock so the hash check and the write stay consistent.
func (s *Store) Upsert(ctx context.Context, item Item) error {
	if err := item.Validate(); err != nil {
		return err
	}
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	enr := Enrich(item)

	metaJSON, err := encodeMetadata(item.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			s.logger.Warn("rollback failed", "error", rbErr)
		}
	}()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, item.ID.String()); err != nil {
		return fmt.Errorf("acquire item lock: %w", err)
	}

	stored, err := s.storedHash(ctx, tx, item.ID)
	if err != nil {
		return err
	}

	// NULL embedding in the upsert keeps the existing vector via
	// COALESCE when the hash is unchanged.
	var vec *pgvector.Vector
	if stored != enr.ContentHash {
		v, err := s.embedder.Embed(ctx, enr.Text, embedding.Options{})
		if err != nil {
			return fmt.Errorf("embed content: %w", err)
		}
		pv := pgvector.NewVector(v.Values)
		vec = &pv
		s.logger.Debug("content embedded",
			"item_id", item.ID,
			"content_type", item.Type,
			"provider", v.ProviderID)
	}

	if err := upsertRow(ctx, tx, item, metaJSON, vec, enr.ContentHash); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// storedHash returns the persisted content hash, or "" for new items.
func (*Store) storedHash(ctx context.Context, q querier, id uuid.UUID) (string, error) {
	var stored string
	err := q.QueryRow(ctx, `SELECT content_hash FROM content_items WHERE id = $1`, id).Scan(&stored)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read content hash: %w", err)
	}
	return stored, nil
}

func upsertRow(ctx context.Context, q querier, item Item, metaJSON []byte, vec *pgvector.Vector, hash string) error {
	_, err := q.Exec(ctx, `
		INSERT INTO content_items (id, content_type, body, metadata, user_id, embedding, content_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			content_type = EXCLUDED.content_type,
			body         = EXCLUDED.body,
			metadata     = EXCLUDED.metadata,
			user_id      = EXCLUDED.user_id,
			embedding    = COALESCE(EXCLUDED.embedding, content_items.embedding),
			content_hash = EXCLUDED.content_hash,
			updated_at   = NOW()`,
		item.ID, item.Type, item.Text, metaJSON, item.UserID, vec, hash)
	if err != nil {
		return fmt.Errorf("upsert content item: %w", err)
	}
	return nil
}

// Get loads a single item by ID.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Item, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+itemCols+` FROM content_items WHERE id = $1`, id)
	item, err := scanItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, ErrNotFound
	}
	if err != nil {
		return Item{}, fmt.Errorf("get content item: %w", err)
	}
	return item, nil
}

// SearchParams bounds one similarity search.
type SearchParams struct {
	Type      Type
	Vector    []float32
	Threshold float64
	Limit     int

	// UserID widens the search to that user's items on top of the
	// shared catalog; empty searches catalog content only.
	UserID string

	// Since excludes items created before it; zero means no window.
	Since time.Time
}

// SearchSimilar returns items of one type ordered by cosine similarity
// to the query vector, strongest first.
func (s *Store) SearchSimilar(ctx context.Context, p SearchParams) ([]Match, error) {
	if p.Limit <= 0 {
		return nil, nil
	}
	var since *time.Time
	if !p.Since.IsZero() {
		since = &p.Since
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+itemCols+`, 1 - (embedding <=> $1) AS similarity
		FROM content_items
		WHERE content_type = $2
		  AND embedding IS NOT NULL
		  AND (user_id = '' OR user_id = $3)
		  AND ($4::timestamptz IS NULL OR created_at >= $4)
		  AND 1 - (embedding <=> $1) >= $5::float8
		ORDER BY embedding <=> $1
		LIMIT $6`,
		pgvector.NewVector(p.Vector), p.Type, p.UserID, since, p.Threshold, p.Limit)
	if err != nil {
		return nil, fmt.Errorf("search %s items: %w", p.Type, err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s match: %w", p.Type, err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s matches: %w", p.Type, err)
	}
	return matches, nil
}

// Delete removes an item. Missing items are not an error.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM content_items WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete content item: %w", err)
	}
	return nil
}

func scanItem(row pgx.Row) (Item, error) {
	var (
		it      Item
		typeStr string
		rawMeta []byte
	)
	if err := row.Scan(&it.ID, &typeStr, &it.Text, &rawMeta, &it.UserID,
		&it.CreatedAt, &it.UpdatedAt); err != nil {
		return Item{}, err
	}
	it.Type = Type(typeStr)
	md, err := decodeMetadata(it.Type, rawMeta)
	if err != nil {
		return Item{}, err
	}
	it.Metadata = md
	return it, nil
}

func scanMatch(rows pgx.Rows) (Match, error) {
	var (
		m       Match
		typeStr string
		rawMeta []byte
	)
	if err := rows.Scan(&m.Item.ID, &typeStr, &m.Item.Text, &rawMeta,
		&m.Item.UserID, &m.Item.CreatedAt, &m.Item.UpdatedAt, &m.Similarity); err != nil {
		return Match{}, err
	}
	m.Item.Type = Type(typeStr)
	md, err := decodeMetadata(m.Item.Type, rawMeta)
	if err != nil {
		return Match{}, err
	}
	m.Item.Metadata = md
	return m, nil
}

func encodeMetadata(m Metadata) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// decodeMetadata rebuilds the typed metadata behind the content type
// discriminant. Unknown or absent payloads decode to nil.
func decodeMetadata(t Type, raw []byte) (Metadata, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var (
		md  Metadata
		err error
	)
	switch t {
	case TypeDomainRecord:
		var m RecordMetadata
		err = json.Unmarshal(raw, &m)
		md = m
	case TypePlan:
		var m PlanMetadata
		err = json.Unmarshal(raw, &m)
		md = m
	case TypeChatHistory:
		var m HistoryMetadata
		err = json.Unmarshal(raw, &m)
		md = m
	case TypeKnowledgeEntity:
		var m EntityMetadata
		err = json.Unmarshal(raw, &m)
		md = m
	default:
		return nil, fmt.Errorf("decode metadata: unknown content type %q", t)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s metadata: %w", t, err)
	}
	return md, nil
}

package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/xhad/mmrag/internal/models"
	"github.com/xhad/mmrag/internal/types"
)

type VectorStoreConfig struct {
	ConnString  string
	TableName   string
	VectorDim   int
	SearchLimit int
}

// VectorStore persists (embedding, content, metadata) triples in Postgres
// with pgvector, partitioned by product. It also owns the surrogate-id
// content side table, which shares the embeddings' lifetime.
type VectorStore struct {
	config   VectorStoreConfig
	pool     *pgxpool.Pool
	embedder types.Embedder
}

func NewWithConfig(ctx context.Context, config VectorStoreConfig, embedder types.Embedder) (*VectorStore, error) {
	if config.TableName == "" {
		config.TableName = "entries"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 1536
	}
	if config.SearchLimit == 0 {
		config.SearchLimit = 5
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	vs := &VectorStore{
		config:   config,
		pool:     pool,
		embedder: embedder,
	}

	if err := vs.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return vs, nil
}

func (vs *VectorStore) initialize(ctx context.Context) error {
	if _, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			product TEXT NOT NULL,
			document TEXT NOT NULL,
			seq INTEGER NOT NULL,
			media_kind TEXT NOT NULL,
			surrogate_id TEXT,
			content TEXT NOT NULL,
			embedding vector(%d)
		)`, vs.config.TableName, vs.config.VectorDim)
	if _, err := vs.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	createProductIdx := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_product_idx ON %s (product)`,
		vs.config.TableName, vs.config.TableName)
	if _, err := vs.pool.Exec(ctx, createProductIdx); err != nil {
		return fmt.Errorf("failed to create product index: %w", err)
	}

	createVectorIdx := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		vs.config.TableName, vs.config.TableName)
	if _, err := vs.pool.Exec(ctx, createVectorIdx); err != nil {
		return fmt.Errorf("failed to create vector index: %w", err)
	}

	createContents := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s_contents (
			id TEXT PRIMARY KEY,
			media_kind TEXT NOT NULL,
			payload TEXT NOT NULL
		)`, vs.config.TableName)
	if _, err := vs.pool.Exec(ctx, createContents); err != nil {
		return fmt.Errorf("failed to create contents table: %w", err)
	}

	return nil
}

// Put embeds every entry's text and persists the batch transactionally.
// Collections are created implicitly on first write; the creation moment is
// logged so it stays observable.
func (vs *VectorStore) Put(ctx context.Context, entries []models.IndexedEntry) error {
	if len(entries) == 0 {
		return nil
	}

	texts := make([]string, len(entries))
	for i, entry := range entries {
		if entry.Meta.Product == "" {
			return fmt.Errorf("entry %d has no product", i)
		}
		texts[i] = sanitizeUTF8(entry.Text)
	}

	vectors, err := vs.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to create embeddings: %w", err)
	}

	newProducts, err := vs.unseenProducts(ctx, entries)
	if err != nil {
		return err
	}

	tx, err := vs.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, product, document, seq, media_kind, surrogate_id, content, embedding)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding`,
		vs.config.TableName)

	for i, entry := range entries {
		_, err := tx.Exec(ctx, stmt,
			entry.Meta.ChunkID,
			entry.Meta.Product,
			entry.Meta.Document,
			entry.Meta.Seq,
			string(entry.Kind),
			entry.SurrogateID,
			texts[i],
			pgvector.NewVector(vectors[i]),
		)
		if err != nil {
			return fmt.Errorf("failed to insert entry %s: %w", entry.Meta.ChunkID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	for _, product := range newProducts {
		log.Printf("collection created: %s", product)
	}
	return nil
}

// Query embeds the question and returns the k nearest entries for the
// product. A product with no entries yields an empty result.
func (vs *VectorStore) Query(ctx context.Context, product, question string, k int) ([]models.IndexedEntry, error) {
	if k <= 0 {
		k = vs.config.SearchLimit
	}

	vectors, err := vs.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, product, document, seq, media_kind, COALESCE(surrogate_id, ''), content
		FROM %s
		WHERE product = $1
		ORDER BY embedding <=> $2
		LIMIT $3`,
		vs.config.TableName)

	rows, err := vs.pool.Query(ctx, query, product, pgvector.NewVector(vectors[0]), k)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []models.IndexedEntry
	for rows.Next() {
		var entry models.IndexedEntry
		var kind string
		err := rows.Scan(
			&entry.Meta.ChunkID,
			&entry.Meta.Product,
			&entry.Meta.Document,
			&entry.Meta.Seq,
			&kind,
			&entry.SurrogateID,
			&entry.Text,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		entry.Kind = models.MediaKind(kind)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return entries, nil
}

// HasProduct reports whether a product has at least one entry.
func (vs *VectorStore) HasProduct(ctx context.Context, product string) (bool, error) {
	query := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE product = $1)", vs.config.TableName)

	var exists bool
	if err := vs.pool.QueryRow(ctx, query, product).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to probe product: %w", err)
	}
	return exists, nil
}

// ListProducts returns every product with at least one entry. This replaces
// the old in-memory routing map with a typed query over stored metadata.
func (vs *VectorStore) ListProducts(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf("SELECT DISTINCT product FROM %s ORDER BY product", vs.config.TableName)

	rows, err := vs.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []string
	for rows.Next() {
		var product string
		if err := rows.Scan(&product); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}
	return products, nil
}

// ListDocuments returns the document names stored under a product.
func (vs *VectorStore) ListDocuments(ctx context.Context, product string) ([]string, error) {
	query := fmt.Sprintf(
		"SELECT DISTINCT document FROM %s WHERE product = $1 ORDER BY document",
		vs.config.TableName)

	rows, err := vs.pool.Query(ctx, query, product)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var documents []string
	for rows.Next() {
		var document string
		if err := rows.Scan(&document); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		documents = append(documents, document)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}
	return documents, nil
}

// PutContent stores an original payload under its surrogate id.
func (vs *VectorStore) PutContent(ctx context.Context, id string, kind models.MediaKind, payload string) error {
	stmt := fmt.Sprintf(`
		INSERT INTO %s_contents (id, media_kind, payload)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload`,
		vs.config.TableName)

	if _, err := vs.pool.Exec(ctx, stmt, id, string(kind), sanitizeUTF8(payload)); err != nil {
		return fmt.Errorf("failed to store content %s: %w", id, err)
	}
	return nil
}

// GetContent resolves a surrogate id back to its original payload.
func (vs *VectorStore) GetContent(ctx context.Context, id string) (string, models.MediaKind, error) {
	query := fmt.Sprintf("SELECT payload, media_kind FROM %s_contents WHERE id = $1", vs.config.TableName)

	var payload, kind string
	err := vs.pool.QueryRow(ctx, query, id).Scan(&payload, &kind)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", fmt.Errorf("surrogate id %s: %w", id, types.ErrContentNotFound)
	}
	if err != nil {
		return "", "", fmt.Errorf("failed to load content %s: %w", id, err)
	}
	return payload, models.MediaKind(kind), nil
}

func (vs *VectorStore) Close() {
	if vs.pool != nil {
		vs.pool.Close()
	}
}

func (vs *VectorStore) unseenProducts(ctx context.Context, entries []models.IndexedEntry) ([]string, error) {
	seen := make(map[string]bool)
	var unseen []string
	for _, entry := range entries {
		if seen[entry.Meta.Product] {
			continue
		}
		seen[entry.Meta.Product] = true

		exists, err := vs.HasProduct(ctx, entry.Meta.Product)
		if err != nil {
			return nil, err
		}
		if !exists {
			unseen = append(unseen, entry.Meta.Product)
		}
	}
	return unseen, nil
}

func sanitizeUTF8(s string) string {
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for i, r := range s {
			if r == utf8.RuneError {
				_, size := utf8.DecodeRuneInString(s[i:])
				if size == 1 {
					continue
				}
			}
			v = append(v, r)
		}
		return string(v)
	}
	return s
}

package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/lib/pq"

	"github.com/ragweave/ragweave/config"
	pkgerrors "github.com/ragweave/ragweave/errors"
	"github.com/ragweave/ragweave/vector"
)

// PGVectorStore implements VectorStore using PostgreSQL with pgvector extension
type PGVectorStore struct {
	db          *sql.DB
	dimension   int
	tableName   string
	indexMethod string // HNSW or IVFFLAT
}

// PGVectorConfig holds pgvector configuration
type PGVectorConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	SSLMode   string
	Dimension int    // Embedding dimension (default: 1536 for OpenAI)
	TableName string // Table name (default: vectors)
	IndexType string // HNSW or IVFFLAT (default: HNSW)
}

// DefaultPGVectorConfig returns default pgvector configuration
func DefaultPGVectorConfig() *PGVectorConfig {
	return &PGVectorConfig{
		Host:      "127.0.0.1",
		Port:      5432,
		User:      "postgres",
		Password:  "",
		DBName:    "ragweave",
		SSLMode:   "disable",
		Dimension: 1536,
		TableName: "vectors",
		IndexType: "HNSW",
	}
}

// Validate checks the configuration before a connection is attempted. An
// empty password is allowed for trust-authenticated local setups.
func (c *PGVectorConfig) Validate() error {
	return config.New().
		NonEmpty("host", c.Host).
		Port("port", c.Port).
		NonEmpty("user", c.User).
		NonEmpty("dbname", c.DBName).
		OneOf("sslmode", c.SSLMode, "disable", "require", "verify-ca", "verify-full").
		IntRange("dimension", c.Dimension, 1, 65535).
		NonEmpty("tableName", c.TableName).
		OneOf("indexType", c.IndexType, "HNSW", "IVFFLAT").
		Err()
}

// NewPGVectorStore creates a new pgvector-based vector store
func NewPGVectorStore(cfg *PGVectorConfig) (*PGVectorStore, error) {
	if cfg == nil {
		cfg = DefaultPGVectorConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	store := &PGVectorStore{
		db:          db,
		dimension:   cfg.Dimension,
		tableName:   cfg.TableName,
		indexMethod: cfg.IndexType,
	}

	if err := store.setup(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to setup pgvector: %w", err)
	}

	return store, nil
}

// setup initializes pgvector and creates necessary tables/indexes
func (s *PGVectorStore) setup(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createTableSQL := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		id VARCHAR(255) PRIMARY KEY,
		text TEXT NOT NULL,
		embedding vector(%d) NOT NULL,
		metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`, s.tableName, s.dimension)

	if _, err := s.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	// A similarity index (HNSW or IVFFLAT) can be created manually once the
	// table carries enough rows; creating it on an empty table is wasted work.

	return nil
}

// AddEmbedding adds a new embedding to the store
func (s *PGVectorStore) AddEmbedding(ctx context.Context, embedding *vector.Embedding) error {
	if embedding == nil {
		return fmt.Errorf("embedding cannot be nil")
	}

	if embedding.ID == "" {
		return fmt.Errorf("embedding ID cannot be empty")
	}

	if len(embedding.Vector) != s.dimension {
		return fmt.Errorf("embedding dimension mismatch: expected %d, got %d", s.dimension, len(embedding.Vector))
	}

	metadata := embedding.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	vectorStr := s.vectorToString(embedding.Vector)

	query := fmt.Sprintf(`
	INSERT INTO %s (id, text, embedding, metadata)
	VALUES ($1, $2, $3::vector, $4::jsonb)
	ON CONFLICT (id) DO UPDATE SET
		text = EXCLUDED.text,
		embedding = EXCLUDED.embedding,
		metadata = EXCLUDED.metadata,
		created_at = CURRENT_TIMESTAMP
	`, s.tableName)

	if _, err := s.db.ExecContext(ctx, query, embedding.ID, embedding.Text, vectorStr, metadataJSON); err != nil {
		return fmt.Errorf("failed to add embedding: %w", err)
	}

	return nil
}

// Search finds embeddings similar to the query vector. Cosine similarity is
// computed in the database so the score survives the round trip.
func (s *PGVectorStore) Search(ctx context.Context, queryVector []float32, topK int) ([]*vector.Match, error) {
	if len(queryVector) == 0 {
		return nil, fmt.Errorf("query vector cannot be empty")
	}

	if len(queryVector) != s.dimension {
		return nil, fmt.Errorf("query vector dimension mismatch: expected %d, got %d", s.dimension, len(queryVector))
	}

	if topK <= 0 {
		topK = 10
	}

	vectorStr := s.vectorToString(queryVector)

	query := fmt.Sprintf(`
	SELECT id, text, embedding, metadata, 1 - (embedding <=> $1::vector) AS score
	FROM %s
	ORDER BY embedding <=> $1::vector
	LIMIT $2
	`, s.tableName)

	rows, err := s.db.QueryContext(ctx, query, vectorStr, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to search embeddings: %w", err)
	}
	defer rows.Close()

	matches := make([]*vector.Match, 0, topK)
	for rows.Next() {
		var id, text, vectorStr string
		var metadataJSON []byte
		var score float64

		if err := rows.Scan(&id, &text, &vectorStr, &metadataJSON, &score); err != nil {
			return nil, fmt.Errorf("failed to scan embedding: %w", err)
		}

		vec, err := s.stringToVector(vectorStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse vector for embedding %s: %w", id, err)
		}

		var metadata map[string]any
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata for embedding %s: %w", id, err)
			}
		}

		matches = append(matches, &vector.Match{
			Embedding: &vector.Embedding{
				ID:       id,
				Text:     text,
				Vector:   vec,
				Metadata: metadata,
			},
			Score: float32(score),
		})
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating embeddings: %w", err)
	}

	return matches, nil
}

// DeleteEmbedding removes an embedding by ID
func (s *PGVectorStore) DeleteEmbedding(ctx context.Context, id string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", s.tableName)
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete embedding: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("embedding %s: %w", id, pkgerrors.ErrNotFound)
	}

	return nil
}

// GetEmbedding retrieves a specific embedding by ID
func (s *PGVectorStore) GetEmbedding(ctx context.Context, id string) (*vector.Embedding, error) {
	query := fmt.Sprintf(`
	SELECT id, text, embedding, metadata
	FROM %s
	WHERE id = $1
	`, s.tableName)

	var embID, text, vectorStr string
	var metadataJSON []byte
	err := s.db.QueryRowContext(ctx, query, id).Scan(&embID, &text, &vectorStr, &metadataJSON)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("embedding %s: %w", id, pkgerrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get embedding: %w", err)
	}

	vec, err := s.stringToVector(vectorStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse vector: %w", err)
	}

	var metadata map[string]any
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	return &vector.Embedding{
		ID:       embID,
		Text:     text,
		Vector:   vec,
		Metadata: metadata,
	}, nil
}

// Clear removes all embeddings
func (s *PGVectorStore) Clear(ctx context.Context) error {
	query := fmt.Sprintf("TRUNCATE TABLE %s", s.tableName)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to clear embeddings: %w", err)
	}
	return nil
}

// Count returns the number of embeddings
func (s *PGVectorStore) Count(ctx context.Context) (int, error) {
	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", s.tableName)
	if err := s.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count embeddings: %w", err)
	}
	return count, nil
}

// Close closes the database connection
func (s *PGVectorStore) Close() error {
	return s.db.Close()
}

// Helper functions

func (s *PGVectorStore) vectorToString(vec []float32) string {
	parts := make([]string, len(vec))
	for i, v := range vec {
		parts[i] = fmt.Sprintf("%f", v)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func (s *PGVectorStore) stringToVector(str string) ([]float32, error) {
	str = strings.TrimPrefix(str, "[")
	str = strings.TrimSuffix(str, "]")
	parts := strings.Split(str, ",")

	vec := make([]float32, 0, len(parts))
	for i, part := range parts {
		var v float32
		n, err := fmt.Sscanf(strings.TrimSpace(part), "%f", &v)
		if err != nil || n != 1 {
			return nil, fmt.Errorf("failed to parse vector component at index %d: %q", i, part)
		}
		vec = append(vec, v)
	}
	return vec, nil
}

package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	pipeerrors "github.com/newswire-data/warehouse-pipeline/pkg/errors"
	"github.com/newswire-data/warehouse-pipeline/pkg/postgres"

	"github.com/lib/pq"
)

// Store is the warehouse boundary: point lookups per natural key, batched
// appends, and schema initialization. It never updates or deletes persisted
// rows.
type Store struct {
	db     *postgres.Client
	schema string
	logger *slog.Logger
}

// NewStore creates a Store for the client's configured schema.
func NewStore(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		schema: db.Schema(),
		logger: slog.Default().With("component", "warehouse-store"),
	}
}

// schemaVersion marks the current DDL revision in schema_migrations. An
// explicit marker row replaces first-run detection via failing DDL.
const schemaVersion = 1

// EnsureSchema creates the warehouse schema, the five tables, and the
// migration marker if they do not exist yet. Idempotent; safe on every run.
//
// Natural-key columns carry UNIQUE constraints (none on dim_content, which is
// not deduplicated by design) so that a concurrent second writer fails its
// commit instead of persisting a duplicate dimension row.
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, s.schema),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.dim_datetime (
			datetime_id  varchar(12) PRIMARY KEY,
			published_at timestamptz NOT NULL UNIQUE
		)`, s.schema),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.dim_news_source (
			news_source_id     varchar(12) PRIMARY KEY,
			source_domain_id   varchar(100) NOT NULL UNIQUE,
			source_domain_name varchar(200)
		)`, s.schema),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.dim_author (
			author_id   varchar(12) PRIMARY KEY,
			author_name varchar(500) UNIQUE
		)`, s.schema),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.dim_content (
			content_id varchar(12) PRIMARY KEY,
			title      varchar(2000),
			url        varchar(2000)
		)`, s.schema),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.fact_articles (
			articles_id    varchar(12) PRIMARY KEY,
			datetime_id    varchar(12) NOT NULL REFERENCES %s.dim_datetime(datetime_id),
			news_source_id varchar(12) NOT NULL REFERENCES %s.dim_news_source(news_source_id),
			author_id      varchar(12) NOT NULL REFERENCES %s.dim_author(author_id),
			content_id     varchar(12) NOT NULL REFERENCES %s.dim_content(content_id)
		)`, s.schema, s.schema, s.schema, s.schema, s.schema),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.schema_migrations (
			version    int PRIMARY KEY,
			applied_at timestamptz NOT NULL DEFAULT now()
		)`, s.schema),
		fmt.Sprintf(`INSERT INTO %s.schema_migrations (version) VALUES (%d) ON CONFLICT (version) DO NOTHING`,
			s.schema, schemaVersion),
	}

	for _, stmt := range stmts {
		if _, err := s.db.DB.ExecContext(ctx, stmt); err != nil {
			return pipeerrors.Newf(pipeerrors.ErrSchemaInit, "init", "executing ddl: %v", err)
		}
	}
	s.logger.Debug("schema ensured", "schema", s.schema, "version", schemaVersion)
	return nil
}

// MaxPublishedAt returns the newest instant in the time dimension. ok is
// false on an empty warehouse (first run).
func (s *Store) MaxPublishedAt(ctx context.Context) (time.Time, bool, error) {
	var max sql.NullTime
	err := s.db.DB.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT MAX(published_at) FROM %s.dim_datetime`, s.schema),
	).Scan(&max)
	if err != nil {
		return time.Time{}, false, pipeerrors.Newf(pipeerrors.ErrLookup, "extract", "querying max published_at: %v", err)
	}
	if !max.Valid {
		return time.Time{}, false, nil
	}
	return max.Time.UTC(), true, nil
}

// FindTimeKey looks up the surrogate key for an exact publication instant.
func (s *Store) FindTimeKey(ctx context.Context, publishedAt time.Time) (string, bool, error) {
	return s.findKey(ctx, fmt.Sprintf(
		`SELECT datetime_id FROM %s.dim_datetime WHERE published_at = $1`, s.schema,
	), publishedAt)
}

// FindSourceKey looks up the surrogate key for a source domain id.
func (s *Store) FindSourceKey(ctx context.Context, domainID string) (string, bool, error) {
	return s.findKey(ctx, fmt.Sprintf(
		`SELECT news_source_id FROM %s.dim_news_source WHERE source_domain_id = $1`, s.schema,
	), domainID)
}

// FindAuthorKey looks up the surrogate key for an exact author string. The
// empty string is the missing-author sentinel, persisted as NULL.
func (s *Store) FindAuthorKey(ctx context.Context, name string) (string, bool, error) {
	if name == "" {
		return s.findKey(ctx, fmt.Sprintf(
			`SELECT author_id FROM %s.dim_author WHERE author_name IS NULL`, s.schema,
		))
	}
	return s.findKey(ctx, fmt.Sprintf(
		`SELECT author_id FROM %s.dim_author WHERE author_name = $1`, s.schema,
	), name)
}

func (s *Store) findKey(ctx context.Context, query string, args ...any) (string, bool, error) {
	var key string
	err := s.db.DB.QueryRowContext(ctx, query, args...).Scan(&key)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, pipeerrors.Newf(pipeerrors.ErrLookup, "transform", "point lookup: %v", err)
	}
	return key, true, nil
}

// AppendBatch inserts the batch into all five tables inside one transaction:
// dimensions first, then facts, so the foreign keys land on rows that exist.
// Any failure, including a uniqueness backstop violation, rolls the whole
// batch back.
func (s *Store) AppendBatch(ctx context.Context, batch *StarBatch) error {
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		if err := s.copyTimes(ctx, tx, batch.Times); err != nil {
			return err
		}
		if err := s.copySources(ctx, tx, batch.Sources); err != nil {
			return err
		}
		if err := s.copyAuthors(ctx, tx, batch.Authors); err != nil {
			return err
		}
		if err := s.copyContents(ctx, tx, batch.Contents); err != nil {
			return err
		}
		return s.copyFacts(ctx, tx, batch.Facts)
	})
	if err != nil {
		return pipeerrors.Newf(pipeerrors.ErrLoad, "load", "appending batch: %v", err)
	}
	s.logger.Info("batch appended",
		"times", len(batch.Times),
		"sources", len(batch.Sources),
		"authors", len(batch.Authors),
		"contents", len(batch.Contents),
		"facts", len(batch.Facts),
	)
	return nil
}

func (s *Store) copyTimes(ctx context.Context, tx *sql.Tx, rows []TimeRow) error {
	return s.copyRows(ctx, tx, "dim_datetime", []string{"datetime_id", "published_at"},
		len(rows), func(i int) []any {
			return []any{rows[i].ID, rows[i].PublishedAt}
		})
}

func (s *Store) copySources(ctx context.Context, tx *sql.Tx, rows []SourceRow) error {
	return s.copyRows(ctx, tx, "dim_news_source", []string{"news_source_id", "source_domain_id", "source_domain_name"},
		len(rows), func(i int) []any {
			return []any{rows[i].ID, rows[i].DomainID, rows[i].DomainName}
		})
}

func (s *Store) copyAuthors(ctx context.Context, tx *sql.Tx, rows []AuthorRow) error {
	return s.copyRows(ctx, tx, "dim_author", []string{"author_id", "author_name"},
		len(rows), func(i int) []any {
			name := sql.NullString{String: rows[i].Name, Valid: rows[i].Name != ""}
			return []any{rows[i].ID, name}
		})
}

func (s *Store) copyContents(ctx context.Context, tx *sql.Tx, rows []ContentRow) error {
	return s.copyRows(ctx, tx, "dim_content", []string{"content_id", "title", "url"},
		len(rows), func(i int) []any {
			return []any{rows[i].ID, rows[i].Title, rows[i].URL}
		})
}

func (s *Store) copyFacts(ctx context.Context, tx *sql.Tx, rows []FactRow) error {
	return s.copyRows(ctx, tx, "fact_articles", []string{"articles_id", "datetime_id", "news_source_id", "author_id", "content_id"},
		len(rows), func(i int) []any {
			return []any{rows[i].ID, rows[i].DatetimeID, rows[i].SourceID, rows[i].AuthorID, rows[i].ContentID}
		})
}

// copyRows bulk-inserts via COPY, the lib/pq batched append path.
func (s *Store) copyRows(ctx context.Context, tx *sql.Tx, table string, columns []string, n int, row func(int) []any) error {
	if n == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, pq.CopyInSchema(s.schema, table, columns...))
	if err != nil {
		return fmt.Errorf("preparing copy into %s: %w", table, err)
	}
	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, row(i)...); err != nil {
			stmt.Close()
			return fmt.Errorf("buffering row %d for %s: %w", i, table, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return fmt.Errorf("flushing copy into %s: %w", table, err)
	}
	return stmt.Close()
}

package export

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paulmach/orb/geojson"

	"github.com/dd0wney/cluso-gridmap/pkg/pipeline"
)

// PGStore writes per-site records to a PostgreSQL table, one row per site
// and run.
type PGStore struct {
	pool  *pgxpool.Pool
	table string // sanitised identifier
}

// NewPGStore connects, verifies the connection and creates the table when
// missing.
func NewPGStore(ctx context.Context, databaseURL, table string) (*PGStore, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// One batch per run
	config.MaxConns = 4
	config.MinConns = 1
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	s := &PGStore{pool: pool, table: pgx.Identifier{table}.Sanitize()}

	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return s, nil
}

func (s *PGStore) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, createTableSQL(s.table))
	return err
}

func createTableSQL(table string) string {
	return fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %[1]s (
		run_id TEXT NOT NULL,
		site_id TEXT NOT NULL,
		name TEXT,
		distributor TEXT,
		role TEXT NOT NULL,
		parent_kind TEXT NOT NULL,
		parent_id TEXT,
		hops INTEGER NOT NULL,
		evidence TEXT,
		tier INTEGER NOT NULL,
		flags JSONB,
		capacity DOUBLE PRECISION NOT NULL,
		consolidated_capacity DOUBLE PRECISION NOT NULL,
		feeders INTEGER NOT NULL,
		area_m2 DOUBLE PRECISION NOT NULL,
		depth INTEGER NOT NULL,
		territory JSONB,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		PRIMARY KEY (run_id, site_id)
	)`, table)
}

func insertSQL(table string) string {
	return fmt.Sprintf(`
		INSERT INTO %s (run_id, site_id, name, distributor, role, parent_kind, parent_id, hops,
			evidence, tier, flags, capacity, consolidated_capacity, feeders, area_m2, depth, territory)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (run_id, site_id) DO NOTHING
	`, table)
}

// siteRow returns the insert arguments for one site.
func siteRow(runID string, s *pipeline.SiteResult, opts FeatureOptions) ([]any, error) {
	flagsJSON, err := json.Marshal(s.Flags)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal flags: %w", err)
	}

	var territoryJSON []byte
	if g := territory(s, opts); g != nil {
		territoryJSON, err = geojson.NewGeometry(g).MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("failed to marshal territory: %w", err)
		}
	}

	parentID := s.Parent.SiteID
	if parentID == "" {
		parentID = s.Parent.ExternalID
	}

	return []any{
		runID,
		s.ID,
		s.Name,
		s.Distributor,
		string(s.Role),
		string(s.Parent.Kind),
		nullable(parentID),
		s.Parent.Hops,
		nullable(string(s.Parent.Evidence)),
		s.Tier,
		flagsJSON,
		s.Capacity,
		s.ConsolidatedCapacity,
		s.Feeders,
		s.Area,
		s.Depth,
		territoryJSON,
	}, nil
}

func nullable(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// SaveRun inserts every site of res in one batch and returns the number of
// rows written. Rows already stored for the same run are left alone.
func (s *PGStore) SaveRun(ctx context.Context, res *pipeline.Result, opts FeatureOptions) (int, error) {
	query := insertSQL(s.table)
	runID := res.Diagnostics.RunID

	batch := &pgx.Batch{}
	for i := range res.Sites {
		args, err := siteRow(runID, &res.Sites[i], opts)
		if err != nil {
			return 0, fmt.Errorf("site %s: %w", res.Sites[i].ID, err)
		}
		batch.Queue(query, args...)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	written := 0
	for i := range res.Sites {
		tag, err := br.Exec()
		if err != nil {
			return written, fmt.Errorf("failed to insert site %s: %w", res.Sites[i].ID, err)
		}
		written += int(tag.RowsAffected())
	}
	return written, nil
}

// Ping checks database connectivity
func (s *PGStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the database connection pool
func (s *PGStore) Close() error {
	s.pool.Close()
	return nil
}

package warehouse

import (
	"context"
	"fmt"
)

// SeedDemo creates the marts tables with a handful of sample tracks so the
// engine can be exercised without a live transformation pipeline. Idempotent:
// returns early when fct_tracks already holds rows.
func (w *Warehouse) SeedDemo(ctx context.Context) error {
	if err := w.CreateMartsTables(ctx); err != nil {
		return err
	}
	n, err := w.RowCount(ctx, SchemaMarts, "fct_tracks")
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	stmts := []string{
		`INSERT INTO marts.dim_artist VALUES
			('art_01', 'The Midnight Owls', 'US'),
			('art_02', 'Nora Vale', 'SE'),
			('art_03', 'Cassette Summer', 'BR')`,
		`INSERT INTO marts.dim_genre VALUES
			('gen_pop', 'pop'), ('gen_rock', 'rock'), ('gen_jazz', 'jazz'),
			('gen_electronic', 'electronic'), ('gen_hiphop', 'hip-hop')`,
		`INSERT INTO marts.fct_tracks VALUES
			('trk_0001', 'Paper Lanterns', 'art_01', 'gen_pop', 'pop', 'US', 'The Midnight Owls', 73.0, 0.64, 0.71, 118.0, 2024, TIMESTAMP '2024-06-01 06:00:00'),
			('trk_0002', 'Glasshouse', 'art_02', 'gen_electronic', 'electronic', 'SE', 'Nora Vale', 58.0, 0.81, 0.66, 124.0, 2023, TIMESTAMP '2024-06-01 06:00:00'),
			('trk_0003', 'Saudade', 'art_03', 'gen_jazz', 'jazz', 'BR', 'Cassette Summer', 41.0, 0.45, 0.38, 96.0, 2022, TIMESTAMP '2024-06-01 06:00:00'),
			('trk_0004', 'Arcade Hearts', 'art_01', 'gen_pop', 'pop', 'US', 'The Midnight Owls', 88.0, 0.72, 0.84, 128.0, 2025, TIMESTAMP '2024-06-01 06:00:00')`,
	}
	for _, stmt := range stmts {
		if _, err := w.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("seed marts: %w", err)
		}
	}
	return nil
}

// CreateMartsTables creates empty marts tables with the documented minimal
// schema contract: a unique track key, dimension foreign keys, category
// columns, audio-feature measures, and the load timestamp.
func (w *Warehouse) CreateMartsTables(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS marts.dim_artist (
			artist_id   VARCHAR NOT NULL,
			artist_name VARCHAR,
			country     VARCHAR
		)`,
		`CREATE TABLE IF NOT EXISTS marts.dim_genre (
			genre_id   VARCHAR NOT NULL,
			genre_name VARCHAR
		)`,
		`CREATE TABLE IF NOT EXISTS marts.fct_tracks (
			track_id         VARCHAR NOT NULL,
			track_name       VARCHAR,
			artist_id        VARCHAR,
			genre_id         VARCHAR,
			genre            VARCHAR,
			country          VARCHAR,
			artists          VARCHAR,
			popularity_score DOUBLE,
			danceability     DOUBLE,
			energy           DOUBLE,
			tempo            DOUBLE,
			release_year     INTEGER,
			dbt_loaded_at    TIMESTAMP
		)`,
	}
	for _, stmt := range stmts {
		if _, err := w.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create marts tables: %w", err)
		}
	}
	return nil
}

package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tiago/land-scout/internal/types"
)

// Postgres mirrors the place table into PostgreSQL and keeps a run log.
// The mirror is best-effort: the CSV remains the system of record, and
// mirror failures degrade to warnings in the pipeline.
type Postgres struct {
	pool *pgxpool.Pool
}

// ConnectPostgres establishes a connection pool and verifies it.
func ConnectPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close closes the connection pool.
func (pg *Postgres) Close() {
	if pg.pool != nil {
		pg.pool.Close()
	}
}

// CreateRun records the start of a scout run and returns its ID.
func (pg *Postgres) CreateRun(ctx context.Context, seedURL string) (uuid.UUID, error) {
	var id uuid.UUID
	err := pg.pool.QueryRow(ctx,
		`INSERT INTO scout_runs (seed_url, status)
		 VALUES ($1, 'running')
		 RETURNING id`,
		seedURL,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create run: %w", err)
	}
	return id, nil
}

// CompleteRun marks a run finished and stores its counters.
func (pg *Postgres) CompleteRun(ctx context.Context, runID uuid.UUID, status string, stats types.RunStats) error {
	_, err := pg.pool.Exec(ctx,
		`UPDATE scout_runs
		 SET status = $1, read_count = $2, discarded_fresh = $3,
		     discarded_low_feedback = $4, failed_count = $5,
		     enrichment_calls = $6, completed_at = NOW()
		 WHERE id = $7`,
		status, stats.Read, stats.DiscardedFresh, stats.DiscardedLowFeedback,
		stats.Failed, stats.EnrichmentCalls, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

// UpsertPlaces mirrors rows into the places table. The conflict guard on
// last_scraped keeps the invariant that only the most recent extraction of
// a place survives, even if runs replay out of order.
func (pg *Postgres) UpsertPlaces(ctx context.Context, places []types.Place) error {
	for _, p := range places {
		_, err := pg.pool.Exec(ctx,
			`INSERT INTO places (
			    p4n_id, title, location_type, url, latitude, longitude,
			    total_reviews, avg_rating, parking_min_eur, parking_max_eur,
			    electricity_eur, water_eur, ai_pros, ai_cons, last_scraped)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
			 ON CONFLICT (p4n_id) DO UPDATE SET
			    title = EXCLUDED.title,
			    location_type = EXCLUDED.location_type,
			    url = EXCLUDED.url,
			    latitude = EXCLUDED.latitude,
			    longitude = EXCLUDED.longitude,
			    total_reviews = EXCLUDED.total_reviews,
			    avg_rating = EXCLUDED.avg_rating,
			    parking_min_eur = EXCLUDED.parking_min_eur,
			    parking_max_eur = EXCLUDED.parking_max_eur,
			    electricity_eur = EXCLUDED.electricity_eur,
			    water_eur = EXCLUDED.water_eur,
			    ai_pros = EXCLUDED.ai_pros,
			    ai_cons = EXCLUDED.ai_cons,
			    last_scraped = EXCLUDED.last_scraped
			 WHERE places.last_scraped <= EXCLUDED.last_scraped`,
			p.P4NID, p.Title, p.LocationType, p.URL, p.Latitude, p.Longitude,
			p.TotalReviews, p.AvgRating, p.ParkingMinEUR, p.ParkingMaxEUR,
			p.ElectricityEUR, p.WaterEUR, p.AIPros, p.AICons, p.LastScraped,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert place %s: %w", p.P4NID, err)
		}
	}
	return nil
}

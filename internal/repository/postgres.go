package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tripcore/internal/model"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

const placeColumns = `
	place_id, name, city, category, vibe_score, buzz_score, taste_verify_score,
	reality_penalty, final_score, tier, price_level, good_for_children,
	good_for_groups, reservable, vibe_keywords, scored_at`

// PostgresRepository handles database operations
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(dsn string, maxConn, maxIdleConn int) (*PostgresRepository, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxConn)
	db.SetMaxIdleConns(maxIdleConn)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{db: db}, nil
}

// NewPostgresRepositoryWithDB wraps an existing connection
func NewPostgresRepositoryWithDB(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Close closes the database connection
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

// Ping checks database connectivity
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ListPlacesByCity returns every place in a city ordered by place id
func (r *PostgresRepository) ListPlacesByCity(ctx context.Context, city string) ([]model.Place, error) {
	query := `SELECT ` + placeColumns + `
		FROM places
		WHERE city = $1
		ORDER BY place_id`

	var places []model.Place
	if err := r.db.SelectContext(ctx, &places, query, city); err != nil {
		return nil, fmt.Errorf("failed to list places: %w", err)
	}
	return places, nil
}

// GetPlace retrieves a single place by id
func (r *PostgresRepository) GetPlace(ctx context.Context, placeID string) (*model.Place, error) {
	query := `SELECT ` + placeColumns + `
		FROM places
		WHERE place_id = $1`

	var place model.Place
	err := r.db.GetContext(ctx, &place, query, placeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get place: %w", err)
	}
	return &place, nil
}

// SaveScore writes aggregator output back to the place record.
// The write is idempotent; the last writer wins.
func (r *PostgresRepository) SaveScore(ctx context.Context, result *model.ScoreResult) error {
	query := `
		UPDATE places
		SET vibe_score = $2, buzz_score = $3, taste_verify_score = $4,
			reality_penalty = $5, final_score = $6, tier = $7, scored_at = NOW()
		WHERE place_id = $1`

	res, err := r.db.ExecContext(ctx, query,
		result.PlaceID, result.VibeScore, result.BuzzScore, result.TasteVerifyScore,
		result.RealityPenalty, result.FinalScore, result.Tier,
	)
	if err != nil {
		return fmt.Errorf("failed to save score: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// RealityContext loads the latest weather penalty and the active alerts for a city
func (r *PostgresRepository) RealityContext(ctx context.Context, city string) (*model.RealityContext, error) {
	reality := &model.RealityContext{City: city, Alerts: []model.CrisisAlert{}}

	weatherQuery := `
		SELECT penalty
		FROM weather_conditions
		WHERE city = $1
		ORDER BY observed_at DESC
		LIMIT 1`
	err := r.db.GetContext(ctx, &reality.WeatherPenalty, weatherQuery, city)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get weather penalty: %w", err)
	}

	alertQuery := `
		SELECT title, category, severity, active, expires_at
		FROM crisis_alerts
		WHERE city = $1 AND active = true AND (expires_at IS NULL OR expires_at > NOW())
		ORDER BY severity DESC`
	if err := r.db.SelectContext(ctx, &reality.Alerts, alertQuery, city); err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}

	return reality, nil
}

// EntranceFee returns the per-person entrance fee for a place
func (r *PostgresRepository) EntranceFee(ctx context.Context, placeID string) (float64, error) {
	var fee float64
	err := r.db.GetContext(ctx, &fee, `SELECT entrance_fee_eur FROM place_prices WHERE place_id = $1`, placeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("failed to get entrance fee: %w", err)
	}
	return fee, nil
}

// GuideRate returns the daily rate for a guide option
func (r *PostgresRepository) GuideRate(ctx context.Context, option string) (float64, error) {
	var rate float64
	err := r.db.GetContext(ctx, &rate, `SELECT daily_rate_eur FROM guide_rates WHERE option = $1`, option)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("failed to get guide rate: %w", err)
	}
	return rate, nil
}

// UpdateVibeEmbeddings stores image-derived vibe embeddings in one transaction
func (r *PostgresRepository) UpdateVibeEmbeddings(ctx context.Context, items []model.EmbeddingItem) (int, []string) {
	success := 0
	var errs []string

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		errs = append(errs, fmt.Sprintf("failed to start transaction: %v", err))
		return success, errs
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `UPDATE places SET vibe_embedding = $1 WHERE place_id = $2`)
	if err != nil {
		errs = append(errs, fmt.Sprintf("failed to prepare statement: %v", err))
		return success, errs
	}
	defer stmt.Close()

	// A failed statement aborts a Postgres transaction; each item gets its own savepoint
	for _, item := range items {
		if len(item.Embedding) == 0 {
			errs = append(errs, fmt.Sprintf("place_id %s: empty embedding", item.PlaceID))
			continue
		}
		if _, err := tx.ExecContext(ctx, `SAVEPOINT embedding_item`); err != nil {
			errs = append(errs, fmt.Sprintf("place_id %s: %v", item.PlaceID, err))
			return 0, errs
		}
		res, err := stmt.ExecContext(ctx, pgvector.NewVector(item.Embedding), item.PlaceID)
		if err == nil {
			if n, rerr := res.RowsAffected(); rerr == nil && n == 0 {
				err = ErrNotFound
			}
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("place_id %s: %v", item.PlaceID, err))
			if _, rbErr := tx.ExecContext(ctx, `ROLLBACK TO SAVEPOINT embedding_item`); rbErr != nil {
				errs = append(errs, fmt.Sprintf("failed to roll back savepoint: %v", rbErr))
				return 0, errs
			}
			continue
		}
		success++
	}

	if err := tx.Commit(); err != nil {
		errs = append(errs, fmt.Sprintf("failed to commit transaction: %v", err))
		return 0, errs
	}

	return success, errs
}

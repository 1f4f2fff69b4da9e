// Package store persists the flight log in SQLite through gorm.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrNotFound is returned when a flight does not exist.
var ErrNotFound = errors.New("flight not found")

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Store is the flight log.
type Store struct {
	db  *gorm.DB
	log zerolog.Logger
}

// Open connects to the SQLite database at path and migrates the schema.
func Open(path string, log zerolog.Logger) (*Store, error) {
	log = log.With().Str("component", "store").Logger()

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql interface: %w", err)
	}
	// One connection keeps an in-memory database alive and serializes writers.
	sqlDB.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA foreign_keys = ON;",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %w", err)
		}
	}

	if err := db.AutoMigrate(Models...); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	log.Info().Str("path", path).Msg("flight log ready")
	return &Store{db: db, log: log}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// StartFlight creates a new flight row.
func (s *Store) StartFlight(ctx context.Context, source string, startedAt time.Time) (Flight, error) {
	f := Flight{ID: uuid.New(), Source: source, StartedAt: startedAt}
	if err := s.db.WithContext(ctx).Create(&f).Error; err != nil {
		return Flight{}, fmt.Errorf("create flight: %w", err)
	}
	return f, nil
}

// UpdateStats overwrites the running totals of a flight.
func (s *Store) UpdateStats(ctx context.Context, id uuid.UUID, st FlightStats) error {
	res := s.db.WithContext(ctx).Model(&Flight{}).Where("id = ?", id).Updates(map[string]any{
		"ticks":        st.Ticks,
		"crashes":      st.Crashes,
		"objectives":   st.Objectives,
		"distance":     st.Distance,
		"max_altitude": st.MaxAltitude,
	})
	if res.Error != nil {
		return fmt.Errorf("update flight %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update flight %s: %w", id, ErrNotFound)
	}
	return nil
}

// EndFlight stores the final totals and the end time.
func (s *Store) EndFlight(ctx context.Context, id uuid.UUID, endedAt time.Time, st FlightStats) error {
	if err := s.UpdateStats(ctx, id, st); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Model(&Flight{}).Where("id = ?", id).Update("ended_at", endedAt).Error
	if err != nil {
		return fmt.Errorf("end flight %s: %w", id, err)
	}
	return nil
}

// AddCrash appends a crash to a flight.
func (s *Store) AddCrash(ctx context.Context, e CrashEvent) error {
	if err := s.db.WithContext(ctx).Create(&e).Error; err != nil {
		return fmt.Errorf("insert crash: %w", err)
	}
	return nil
}

// AddObjective appends a completed goal to a flight.
func (s *Store) AddObjective(ctx context.Context, e ObjectiveEvent) error {
	if err := s.db.WithContext(ctx).Create(&e).Error; err != nil {
		return fmt.Errorf("insert objective: %w", err)
	}
	return nil
}

// Flight loads one flight with its events.
func (s *Store) Flight(ctx context.Context, id uuid.UUID) (Flight, error) {
	var f Flight
	err := s.db.WithContext(ctx).
		Preload("CrashEvents", func(db *gorm.DB) *gorm.DB { return db.Order("tick") }).
		Preload("ObjectiveEvents", func(db *gorm.DB) *gorm.DB { return db.Order("tick") }).
		First(&f, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Flight{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Flight{}, fmt.Errorf("load flight %s: %w", id, err)
	}
	return f, nil
}

// Flights returns the most recent flights without their events.
func (s *Store) Flights(ctx context.Context, limit int) ([]Flight, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []Flight
	if err := s.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list flights: %w", err)
	}
	return out, nil
}

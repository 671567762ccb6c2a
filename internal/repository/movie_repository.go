package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/screening-seat-booking/internal/model"
)

// MovieRepo encapsulates all database queries related to movies.
type MovieRepo struct {
	db *sqlx.DB
}

// NewMovieRepo constructs a MovieRepo with the provided DB handle.
func NewMovieRepo(db *sqlx.DB) *MovieRepo {
	return &MovieRepo{db: db}
}

// Create inserts m and populates its ID.  The UNIQUE index on name makes the
// insert itself the uniqueness check; a collision yields ErrNameTaken.
func (r *MovieRepo) Create(ctx context.Context, m *model.Movie) error {
	const q = `INSERT INTO movies (name, genre, duration_minutes, rating) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, m.Name, m.Genre, m.DurationMinutes, m.Rating)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrNameTaken
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	return nil
}

// GetByID returns ErrMovieNotFound when no row matches.
func (r *MovieRepo) GetByID(ctx context.Context, id uint64) (model.Movie, error) {
	var m model.Movie
	err := r.db.GetContext(ctx, &m,
		`SELECT id, name, genre, duration_minutes, rating FROM movies WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Movie{}, ErrMovieNotFound
	}
	return m, err
}

// GetByName returns ErrMovieNotFound when no row matches.
func (r *MovieRepo) GetByName(ctx context.Context, name string) (model.Movie, error) {
	var m model.Movie
	err := r.db.GetContext(ctx, &m,
		`SELECT id, name, genre, duration_minutes, rating FROM movies WHERE name = ?`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Movie{}, ErrMovieNotFound
	}
	return m, err
}

// ListAll returns every movie ordered by name.
func (r *MovieRepo) ListAll(ctx context.Context) ([]model.Movie, error) {
	out := make([]model.Movie, 0)
	err := r.db.SelectContext(ctx, &out,
		`SELECT id, name, genre, duration_minutes, rating FROM movies ORDER BY name`)
	return out, err
}

// Count is used by the sample-data seeder to stay idempotent.
func (r *MovieRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM movies`)
	return n, err
}

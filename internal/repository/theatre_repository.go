package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/screening-seat-booking/internal/model"
)

// TheatreRepo encapsulates all database queries related to theatres.
type TheatreRepo struct {
	db *sqlx.DB
}

func NewTheatreRepo(db *sqlx.DB) *TheatreRepo {
	return &TheatreRepo{db: db}
}

// Create inserts t and populates its ID.  A name collision yields
// ErrNameTaken.
func (r *TheatreRepo) Create(ctx context.Context, t *model.Theatre) error {
	const q = `INSERT INTO theatres (name, location, total_seats) VALUES (?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, t.Name, t.Location, t.TotalSeats)
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
	t.ID = uint64(id)
	return nil
}

func (r *TheatreRepo) GetByID(ctx context.Context, id uint64) (model.Theatre, error) {
	var t model.Theatre
	err := r.db.GetContext(ctx, &t,
		`SELECT id, name, location, total_seats FROM theatres WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Theatre{}, ErrTheatreNotFound
	}
	return t, err
}

func (r *TheatreRepo) GetByName(ctx context.Context, name string) (model.Theatre, error) {
	var t model.Theatre
	err := r.db.GetContext(ctx, &t,
		`SELECT id, name, location, total_seats FROM theatres WHERE name = ?`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Theatre{}, ErrTheatreNotFound
	}
	return t, err
}

// ListAll returns every theatre ordered by name.
func (r *TheatreRepo) ListAll(ctx context.Context) ([]model.Theatre, error) {
	out := make([]model.Theatre, 0)
	err := r.db.SelectContext(ctx, &out,
		`SELECT id, name, location, total_seats FROM theatres ORDER BY name`)
	return out, err
}

// Package booking holds the seat inventory and booking rules: the catalog
// of movies and theatres, seat availability per screening, the commit
// engine that sells seats, and reporting over the booking ledger.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/screening-seat-booking/internal/model"
	"github.com/iliyamo/screening-seat-booking/internal/repository"
)

// MovieStore is satisfied by repository.MovieRepo and the memory store.
type MovieStore interface {
	Create(ctx context.Context, m *model.Movie) error
	GetByID(ctx context.Context, id uint64) (model.Movie, error)
	GetByName(ctx context.Context, name string) (model.Movie, error)
	ListAll(ctx context.Context) ([]model.Movie, error)
}

// TheatreStore is satisfied by repository.TheatreRepo and the memory store.
type TheatreStore interface {
	Create(ctx context.Context, t *model.Theatre) error
	GetByID(ctx context.Context, id uint64) (model.Theatre, error)
	GetByName(ctx context.Context, name string) (model.Theatre, error)
	ListAll(ctx context.Context) ([]model.Theatre, error)
}

// Catalog validates and records movies and theatres.  Name uniqueness is
// enforced by the store's constraint at insert time, never by a prior
// lookup.
type Catalog struct {
	movies   MovieStore
	theatres TheatreStore
}

func NewCatalog(movies MovieStore, theatres TheatreStore) *Catalog {
	return &Catalog{movies: movies, theatres: theatres}
}

// AddMovie inserts a movie.  The name is trimmed and must be non-empty;
// the duration must be positive.
func (c *Catalog) AddMovie(ctx context.Context, name, genre string, durationMinutes int, rating string) (model.Movie, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Movie{}, invalidf("movie name is required")
	}
	if durationMinutes <= 0 {
		return model.Movie{}, invalidf("duration must be positive, got %d", durationMinutes)
	}
	m := model.Movie{
		Name:            name,
		Genre:           strings.TrimSpace(genre),
		DurationMinutes: durationMinutes,
		Rating:          strings.TrimSpace(rating),
	}
	if err := checkText("movie name", m.Name, model.MaxNameLen); err != nil {
		return model.Movie{}, err
	}
	if err := checkText("genre", m.Genre, model.MaxGenreLen); err != nil {
		return model.Movie{}, err
	}
	if err := checkText("rating", m.Rating, model.MaxRatingLen); err != nil {
		return model.Movie{}, err
	}
	if err := c.movies.Create(ctx, &m); err != nil {
		if errors.Is(err, repository.ErrNameTaken) {
			return model.Movie{}, kindErr(ErrUniquenessViolation, "movie", name)
		}
		return model.Movie{}, unavailable("create movie", err)
	}
	return m, nil
}

// AddTheatre inserts a theatre.  totalSeats is informational but must be
// positive.
func (c *Catalog) AddTheatre(ctx context.Context, name, location string, totalSeats int) (model.Theatre, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Theatre{}, invalidf("theatre name is required")
	}
	if totalSeats <= 0 {
		return model.Theatre{}, invalidf("total seats must be positive, got %d", totalSeats)
	}
	t := model.Theatre{Name: name, Location: strings.TrimSpace(location), TotalSeats: totalSeats}
	if err := checkText("theatre name", t.Name, model.MaxNameLen); err != nil {
		return model.Theatre{}, err
	}
	if err := checkText("location", t.Location, model.MaxLocationLen); err != nil {
		return model.Theatre{}, err
	}
	if err := c.theatres.Create(ctx, &t); err != nil {
		if errors.Is(err, repository.ErrNameTaken) {
			return model.Theatre{}, kindErr(ErrUniquenessViolation, "theatre", name)
		}
		return model.Theatre{}, unavailable("create theatre", err)
	}
	return t, nil
}

// ListMovies returns all movies sorted by name.
func (c *Catalog) ListMovies(ctx context.Context) ([]model.Movie, error) {
	out, err := c.movies.ListAll(ctx)
	if err != nil {
		return nil, unavailable("list movies", err)
	}
	return out, nil
}

// ListTheatres returns all theatres sorted by name.
func (c *Catalog) ListTheatres(ctx context.Context) ([]model.Theatre, error) {
	out, err := c.theatres.ListAll(ctx)
	if err != nil {
		return nil, unavailable("list theatres", err)
	}
	return out, nil
}

func (c *Catalog) MovieByID(ctx context.Context, id uint64) (model.Movie, error) {
	m, err := c.movies.GetByID(ctx, id)
	return m, lookupErr(err, "movie", repository.ErrMovieNotFound)
}

func (c *Catalog) MovieByName(ctx context.Context, name string) (model.Movie, error) {
	m, err := c.movies.GetByName(ctx, strings.TrimSpace(name))
	return m, lookupErr(err, "movie", repository.ErrMovieNotFound)
}

func (c *Catalog) TheatreByID(ctx context.Context, id uint64) (model.Theatre, error) {
	t, err := c.theatres.GetByID(ctx, id)
	return t, lookupErr(err, "theatre", repository.ErrTheatreNotFound)
}

func (c *Catalog) TheatreByName(ctx context.Context, name string) (model.Theatre, error) {
	t, err := c.theatres.GetByName(ctx, strings.TrimSpace(name))
	return t, lookupErr(err, "theatre", repository.ErrTheatreNotFound)
}

func lookupErr(err error, what string, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, notFound):
		return kindErr(ErrNotFound, what, "")
	default:
		return unavailable("get "+what, err)
	}
}

func kindErr(kind error, what, name string) error {
	if name == "" {
		return fmt.Errorf("%w: %s", kind, what)
	}
	return fmt.Errorf("%w: %s %q", kind, what, name)
}

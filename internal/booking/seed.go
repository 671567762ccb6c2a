package booking

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
)

type sampleMovie struct {
	name, genre string
	minutes     int
	rating      string
}

var sampleMovies = []sampleMovie{
	{"The Adventure Begins", "Action", 150, "PG-13"},
	{"Love in Paris", "Romance", 120, "PG"},
	{"The Mystery Manor", "Thriller", 135, "R"},
	{"Cosmic Journey", "Sci-Fi", 160, "PG-13"},
	{"Comedy Nights", "Comedy", 110, "PG"},
	{"Dark Secrets", "Horror", 125, "R"},
}

var sampleTheatres = []struct {
	name, location string
	seats          int
}{
	{"PVR Cinemas", "Mall Road", 80},
	{"INOX Theatre", "City Center", 80},
	{"Cinepolis", "Downtown Plaza", 80},
	{"Carnival Cinemas", "Metro Station", 80},
}

// SeedSampleData fills an empty catalog with a small set of movies and
// theatres.  It does nothing when any movie exists and reports whether it
// inserted anything.  Names inserted concurrently by someone else are
// skipped.
func SeedSampleData(ctx context.Context, c *Catalog) (bool, error) {
	movies, err := c.ListMovies(ctx)
	if err != nil {
		return false, err
	}
	if len(movies) > 0 {
		logrus.Debug("catalog not empty, skipping sample data")
		return false, nil
	}
	for _, m := range sampleMovies {
		if _, err := c.AddMovie(ctx, m.name, m.genre, m.minutes, m.rating); err != nil && !errors.Is(err, ErrUniquenessViolation) {
			return false, err
		}
	}
	for _, t := range sampleTheatres {
		if _, err := c.AddTheatre(ctx, t.name, t.location, t.seats); err != nil && !errors.Is(err, ErrUniquenessViolation) {
			return false, err
		}
	}
	logrus.WithFields(logrus.Fields{
		"movies":   len(sampleMovies),
		"theatres": len(sampleTheatres),
	}).Info("sample data inserted")
	return true, nil
}

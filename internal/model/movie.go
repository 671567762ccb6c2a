package model

// Movie is a catalog entry that can be screened in any theatre.  Names are
// unique across the catalog.  Movies are created by catalog maintenance
// and never modified afterwards.
//
// Fields:
//
//	ID              – primary key identifier.
//	Name            – unique, non-empty title.
//	Genre           – free text genre.
//	DurationMinutes – running time, always positive.
//	Rating          – free text rating (e.g. PG-13).
type Movie struct {
	ID              uint64 `json:"id" db:"id"`                             // movies.id
	Name            string `json:"name" db:"name"`                         // movies.name
	Genre           string `json:"genre" db:"genre"`                       // movies.genre
	DurationMinutes int    `json:"duration_minutes" db:"duration_minutes"` // movies.duration_minutes
	Rating          string `json:"rating" db:"rating"`                     // movies.rating
}

package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/screening-seat-booking/internal/model"
)

// MemoryStore keeps movies, theatres and bookings in process memory.  It
// honours the same contracts as the MySQL repositories (unique names,
// unique seats per screening, all-or-nothing appends) and is used for
// STORAGE_DRIVER=memory and in tests.  Names compare case-insensitively,
// like the tables' default collation.
type MemoryStore struct {
	mu       sync.RWMutex
	movies   map[uint64]model.Movie
	theatres map[uint64]model.Theatre
	bookings []model.Booking
	taken    map[memSeatKey]struct{}
	nextID   struct{ movie, theatre, booking uint64 }

	// one writer per screening, mirroring GET_LOCK
	lockMu sync.Mutex
	locks  map[string]chan struct{}
}

type memSeatKey struct {
	screening string
	seat      string
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		movies:   make(map[uint64]model.Movie),
		theatres: make(map[uint64]model.Theatre),
		taken:    make(map[memSeatKey]struct{}),
		locks:    make(map[string]chan struct{}),
	}
}

// Movies returns the movie half of the catalog.
func (s *MemoryStore) Movies() *MemoryMovies { return &MemoryMovies{s: s} }

// Theatres returns the theatre half of the catalog.
func (s *MemoryStore) Theatres() *MemoryTheatres { return &MemoryTheatres{s: s} }

// Bookings returns the ledger.
func (s *MemoryStore) Bookings() *MemoryBookings { return &MemoryBookings{s: s} }

// MemoryMovies mirrors MovieRepo.
type MemoryMovies struct{ s *MemoryStore }

func (m *MemoryMovies) Create(_ context.Context, mv *model.Movie) error {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.movies {
		if strings.EqualFold(existing.Name, mv.Name) {
			return ErrNameTaken
		}
	}
	s.nextID.movie++
	mv.ID = s.nextID.movie
	s.movies[mv.ID] = *mv
	return nil
}

func (m *MemoryMovies) GetByID(_ context.Context, id uint64) (model.Movie, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	mv, ok := m.s.movies[id]
	if !ok {
		return model.Movie{}, ErrMovieNotFound
	}
	return mv, nil
}

func (m *MemoryMovies) GetByName(_ context.Context, name string) (model.Movie, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	for _, mv := range m.s.movies {
		if strings.EqualFold(mv.Name, name) {
			return mv, nil
		}
	}
	return model.Movie{}, ErrMovieNotFound
}

func (m *MemoryMovies) ListAll(_ context.Context) ([]model.Movie, error) {
	m.s.mu.RLock()
	out := make([]model.Movie, 0, len(m.s.movies))
	for _, mv := range m.s.movies {
		out = append(out, mv)
	}
	m.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryMovies) Count(_ context.Context) (int, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	return len(m.s.movies), nil
}

// MemoryTheatres mirrors TheatreRepo.
type MemoryTheatres struct{ s *MemoryStore }

func (t *MemoryTheatres) Create(_ context.Context, th *model.Theatre) error {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.theatres {
		if strings.EqualFold(existing.Name, th.Name) {
			return ErrNameTaken
		}
	}
	s.nextID.theatre++
	th.ID = s.nextID.theatre
	s.theatres[th.ID] = *th
	return nil
}

func (t *MemoryTheatres) GetByID(_ context.Context, id uint64) (model.Theatre, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	th, ok := t.s.theatres[id]
	if !ok {
		return model.Theatre{}, ErrTheatreNotFound
	}
	return th, nil
}

func (t *MemoryTheatres) GetByName(_ context.Context, name string) (model.Theatre, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	for _, th := range t.s.theatres {
		if strings.EqualFold(th.Name, name) {
			return th, nil
		}
	}
	return model.Theatre{}, ErrTheatreNotFound
}

func (t *MemoryTheatres) ListAll(_ context.Context) ([]model.Theatre, error) {
	t.s.mu.RLock()
	out := make([]model.Theatre, 0, len(t.s.theatres))
	for _, th := range t.s.theatres {
		out = append(out, th)
	}
	t.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// MemoryBookings mirrors BookingRepo.
type MemoryBookings struct{ s *MemoryStore }

func (b *MemoryBookings) BookedSeats(_ context.Context, sc model.Screening) ([]string, error) {
	b.s.mu.RLock()
	seats := b.s.seatsLocked(sc)
	b.s.mu.RUnlock()
	model.SortSeats(seats)
	return seats, nil
}

func (s *MemoryStore) seatsLocked(sc model.Screening) []string {
	seats := make([]string, 0)
	for _, bk := range s.bookings {
		if bk.Screening() == sc {
			seats = append(seats, bk.Seat)
		}
	}
	return seats
}

func (s *MemoryStore) lockScreening(ctx context.Context, key string) (func(), error) {
	for {
		s.lockMu.Lock()
		held, busy := s.locks[key]
		if !busy {
			ch := make(chan struct{})
			s.locks[key] = ch
			s.lockMu.Unlock()
			return func() {
				s.lockMu.Lock()
				delete(s.locks, key)
				s.lockMu.Unlock()
				close(ch)
			}, nil
		}
		s.lockMu.Unlock()
		select {
		case <-held:
		case <-ctx.Done():
			return nil, ErrLockTimeout
		}
	}
}

// WithinScreening serialises callers per screening and applies the rows
// appended by fn only if fn succeeds, all at once.
func (b *MemoryBookings) WithinScreening(ctx context.Context, sc model.Screening, fn func(tx ScreeningTx) error) error {
	s := b.s
	unlock, err := s.lockScreening(ctx, sc.Key())
	if err != nil {
		return err
	}
	defer unlock()

	tx := &memScreeningTx{s: s, screening: sc}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range tx.pending {
		if _, dup := s.taken[memSeatKey{sc.Key(), row.Seat}]; dup {
			return ErrDuplicateSeat
		}
	}
	for _, row := range tx.pending {
		s.nextID.booking++
		row.ID = s.nextID.booking
		s.bookings = append(s.bookings, row)
		s.taken[memSeatKey{sc.Key(), row.Seat}] = struct{}{}
	}
	return nil
}

type memScreeningTx struct {
	s         *MemoryStore
	screening model.Screening
	pending   []model.Booking
}

func (t *memScreeningTx) BookedSeats(ctx context.Context) ([]string, error) {
	return (&MemoryBookings{s: t.s}).BookedSeats(ctx, t.screening)
}

func (t *memScreeningTx) Append(_ context.Context, rows []model.Booking) error {
	seen := make(map[string]struct{}, len(t.pending)+len(rows))
	for _, p := range t.pending {
		seen[p.Seat] = struct{}{}
	}
	for _, r := range rows {
		if r.Screening() != t.screening {
			return fmt.Errorf("booking for %s appended to screening %s", r.Screening().Key(), t.screening.Key())
		}
		if _, dup := seen[r.Seat]; dup {
			return ErrDuplicateSeat
		}
		seen[r.Seat] = struct{}{}
	}
	t.pending = append(t.pending, rows...)
	return nil
}

// ListAll returns bookings joined with catalog names, ordered like
// BookingRepo.ListAll.
func (b *MemoryBookings) ListAll(_ context.Context) ([]model.BookingView, error) {
	s := b.s
	s.mu.RLock()
	out := make([]model.BookingView, 0, len(s.bookings))
	for _, bk := range s.bookings {
		out = append(out, model.BookingView{
			ID:           bk.ID,
			MovieID:      bk.MovieID,
			TheatreID:    bk.TheatreID,
			MovieName:    s.movies[bk.MovieID].Name,
			TheatreName:  s.theatres[bk.TheatreID].Name,
			Date:         bk.Date,
			Seat:         bk.Seat,
			CustomerName: bk.CustomerName,
			Phone:        bk.Phone,
			BookedAt:     bk.BookedAt.Truncate(time.Millisecond),
		})
	}
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		a, c := out[i], out[j]
		if a.Date != c.Date {
			return a.Date > c.Date
		}
		if !a.BookedAt.Equal(c.BookedAt) {
			return a.BookedAt.After(c.BookedAt)
		}
		return a.ID > c.ID
	})
	return out, nil
}

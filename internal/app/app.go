// Package app wires configuration, storage, caches, messaging and the HTTP
// routes into a runnable service.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/screening-seat-booking/internal/booking"
	"github.com/iliyamo/screening-seat-booking/internal/cache"
	"github.com/iliyamo/screening-seat-booking/internal/config"
	"github.com/iliyamo/screening-seat-booking/internal/database"
	"github.com/iliyamo/screening-seat-booking/internal/handler"
	"github.com/iliyamo/screening-seat-booking/internal/metrics"
	"github.com/iliyamo/screening-seat-booking/internal/middleware"
	"github.com/iliyamo/screening-seat-booking/internal/queue"
	"github.com/iliyamo/screening-seat-booking/internal/repository"
	"github.com/iliyamo/screening-seat-booking/internal/router"
	"github.com/iliyamo/screening-seat-booking/internal/utils"
)

// Stores bundles the three storage roles.  Both the MySQL repositories and
// the in-memory store satisfy them.
type Stores struct {
	Movies   booking.MovieStore
	Theatres booking.TheatreStore
	Ledger   booking.Ledger
}

// MemoryStores returns Stores backed by a fresh in-memory store.
func MemoryStores() Stores {
	m := repository.NewMemoryStore()
	return Stores{Movies: m.Movies(), Theatres: m.Theatres(), Ledger: m.Bookings()}
}

// MySQLStores returns Stores backed by db.
func MySQLStores(db *sqlx.DB, lockWait time.Duration) Stores {
	return Stores{
		Movies:   repository.NewMovieRepo(db),
		Theatres: repository.NewTheatreRepo(db),
		Ledger:   repository.NewBookingRepo(db, lockWait),
	}
}

// Services are the domain components built over Stores.
type Services struct {
	Catalog      *booking.Catalog
	Availability *booking.Availability
	Engine       *booking.Engine
	Reports      *booking.Reports
}

// NewServices builds the domain components.  cache may be nil.
func NewServices(st Stores, bc config.BookingConfig, seatCache booking.SeatCache, opts ...booking.Option) Services {
	catalog := booking.NewCatalog(st.Movies, st.Theatres)
	avail := booking.NewAvailability(st.Ledger, seatCache)
	base := []booking.Option{
		booking.WithCommitTimeout(bc.CommitTimeout),
		booking.WithBookingWindow(bc.WindowDays),
		booking.WithTicketPrice(bc.TicketPrice),
	}
	return Services{
		Catalog:      catalog,
		Availability: avail,
		Engine:       booking.NewEngine(catalog, st.Ledger, avail, append(base, opts...)...),
		Reports:      booking.NewReports(st.Ledger),
	}
}

// App is the HTTP service and its background workers.
type App struct {
	cfg      config.Config
	echo     *echo.Echo
	services Services
	consumer *queue.Consumer
	closers  []func() error
}

// New connects to the configured backends and registers every route.
// Redis and RabbitMQ are optional: without them the features they back
// are switched off.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	a := &App{cfg: cfg}

	var st Stores
	switch cfg.StorageDriver {
	case config.StorageMemory:
		st = MemoryStores()
		logrus.Warn("using in-memory storage, bookings are lost on restart")
	default:
		db, err := database.Open(database.Options{
			User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		if err := database.Migrate(ctx, db); err != nil {
			a.Close()
			return nil, err
		}
		st = MySQLStores(db, cfg.Booking.LockWait)
	}

	rdb := config.NewRedisClient()
	var seatCache booking.SeatCache
	if rdb != nil {
		a.closers = append(a.closers, rdb.Close)
		seatCache = cache.NewSeatCache(rdb, cfg.Booking.AvailabilityCacheTTL)
	}

	m := metrics.NewBooking()
	opts := []booking.Option{booking.WithRecorder(m)}
	if cfg.AMQPURL != "" {
		pub := queue.NewPublisher(cfg.AMQPURL)
		a.closers = append(a.closers, pub.Close)
		opts = append(opts, booking.WithPublisher(pub))
		a.consumer = queue.NewConsumer(cfg.AMQPURL, queue.DefaultLogPath)
	} else {
		logrus.Info("AMQP_URL not set, booking events disabled")
	}
	a.services = NewServices(st, cfg.Booking, seatCache, opts...)

	if cfg.SeedSampleData {
		seeded, err := booking.SeedSampleData(ctx, a.services.Catalog)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("seed sample data: %w", err)
		}
		if seeded {
			logrus.Info("sample catalog seeded")
		}
	}

	if cfg.AdminPasswordHash == "" {
		logrus.Warn("ADMIN_PASSWORD_HASH not set, admin login disabled")
	} else if !utils.ValidHash(cfg.AdminPasswordHash) {
		a.Close()
		return nil, errors.New("ADMIN_PASSWORD_HASH is not a bcrypt hash, generate one with boxoffice hash-password")
	}

	a.echo = newEcho(cfg, a.services, rdb, m.Handler())
	return a, nil
}

func newEcho(cfg config.Config, s Services, rdb *redis.Client, metricsHandler http.Handler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.RequestLogger())

	cacheCfg := config.LoadCacheConfig()
	router.RegisterRoutes(e, metricsHandler)
	router.RegisterAuth(e, &handler.AdminAuthHandler{
		Username:     cfg.AdminUsername,
		PasswordHash: cfg.AdminPasswordHash,
		JWTSecret:    cfg.JWTSecret,
		AccessTTLMin: cfg.AccessTTLMin,
	})
	router.RegisterCatalog(e, &handler.CatalogHandler{
		Catalog: s.Catalog,
		OnChange: func(ctx context.Context) error {
			return middleware.PurgeResponseCache(ctx, cacheCfg, rdb)
		},
	}, cfg.JWTSecret, middleware.NewRedisCache(cacheCfg, rdb))
	router.RegisterBooking(e,
		&handler.ScreeningHandler{Availability: s.Availability},
		&handler.BookingHandler{Engine: s.Engine, Reports: s.Reports},
		cfg.JWTSecret, middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	return e
}

// Handler exposes the router, mainly for tests.
func (a *App) Handler() http.Handler { return a.echo }

// Services returns the domain components.
func (a *App) Services() Services { return a.services }

// Run serves HTTP, and consumes booking events when a broker is
// configured, until ctx ends.  Shutdown waits up to 10s for in-flight
// requests.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		addr := ":" + a.cfg.Port
		logrus.WithFields(logrus.Fields{"addr": addr, "env": a.cfg.Env}).Info("listening")
		if err := a.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if a.consumer != nil {
		g.Go(func() error { return a.consumer.Run(ctx) })
	}

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return a.echo.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Close releases backend connections in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Command boxoffice is the counter clerk's tool: it browses the catalog,
// shows seat maps, books seats and prints the bookings report against the
// same database the server uses.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/iliyamo/screening-seat-booking/internal/app"
	"github.com/iliyamo/screening-seat-booking/internal/booking"
	"github.com/iliyamo/screening-seat-booking/internal/cache"
	"github.com/iliyamo/screening-seat-booking/internal/config"
	"github.com/iliyamo/screening-seat-booking/internal/database"
	"github.com/iliyamo/screening-seat-booking/internal/model"
	"github.com/iliyamo/screening-seat-booking/internal/utils"
)

// session is what every command runs against.
type session struct {
	app.Services
	migrate func(ctx context.Context) error
	close   func() error
}

type opener func(ctx context.Context) (*session, error)

func openMySQL(ctx context.Context) (*session, error) {
	cfg, err := config.LoadDB()
	if err != nil {
		return nil, err
	}
	bc, err := config.LoadBookingConfig()
	if err != nil {
		return nil, err
	}
	db, err := database.Open(database.Options{
		User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
	})
	if err != nil {
		return nil, err
	}
	closers := []func() error{db.Close}

	// bookings made here must invalidate the server's cached seat maps
	var seatCache booking.SeatCache
	if rdb := config.NewRedisClient(); rdb != nil {
		closers = append(closers, rdb.Close)
		seatCache = cache.NewSeatCache(rdb, bc.AvailabilityCacheTTL)
	}
	return &session{
		Services: app.NewServices(app.MySQLStores(db, bc.LockWait), bc, seatCache),
		migrate:  func(ctx context.Context) error { return database.Migrate(ctx, db) },
		close: func() error {
			for _, c := range closers {
				_ = c()
			}
			return nil
		},
	}, nil
}

func withSession(open opener, fn func(c *cli.Context, s *session) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		s, err := open(c.Context)
		if err != nil {
			return err
		}
		defer s.close()
		return fn(c, s)
	}
}

var screeningFlags = []cli.Flag{
	&cli.StringFlag{Name: "movie", Usage: "movie name", Required: true},
	&cli.StringFlag{Name: "theatre", Usage: "theatre name", Required: true},
	&cli.StringFlag{Name: "date", Usage: "screening date, YYYY-MM-DD (default today)"},
}

// screeningFrom resolves the --movie/--theatre names to a screening.
func screeningFrom(c *cli.Context, s *session) (model.Screening, error) {
	ctx := c.Context
	m, err := s.Catalog.MovieByName(ctx, c.String("movie"))
	if err != nil {
		return model.Screening{}, err
	}
	t, err := s.Catalog.TheatreByName(ctx, c.String("theatre"))
	if err != nil {
		return model.Screening{}, err
	}
	date := model.DateOf(time.Now())
	if v := c.String("date"); v != "" {
		if date, err = model.ParseDate(v); err != nil {
			return model.Screening{}, err
		}
	}
	return model.Screening{MovieID: m.ID, TheatreID: t.ID, Date: date}, nil
}

func newApp(open opener, out io.Writer) *cli.App {
	return &cli.App{
		Name:   "boxoffice",
		Usage:  "book screening seats from the command line",
		Writer: out,
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "create the database tables",
				Action: withSession(open, func(c *cli.Context, s *session) error {
					if s.migrate == nil {
						return nil
					}
					if err := s.migrate(c.Context); err != nil {
						return err
					}
					fmt.Fprintln(out, "schema up to date")
					return nil
				}),
			},
			{
				Name:  "seed",
				Usage: "insert sample movies and theatres into an empty catalog",
				Action: withSession(open, func(c *cli.Context, s *session) error {
					seeded, err := booking.SeedSampleData(c.Context, s.Catalog)
					if err != nil {
						return err
					}
					if seeded {
						fmt.Fprintln(out, "sample catalog inserted")
					} else {
						fmt.Fprintln(out, "catalog not empty, nothing to do")
					}
					return nil
				}),
			},
			{
				Name:  "movies",
				Usage: "list movies",
				Action: withSession(open, func(c *cli.Context, s *session) error {
					movies, err := s.Catalog.ListMovies(c.Context)
					if err != nil {
						return err
					}
					w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
					fmt.Fprintln(w, "ID\tNAME\tGENRE\tMINUTES\tRATING")
					for _, m := range movies {
						fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n", m.ID, m.Name, m.Genre, m.DurationMinutes, m.Rating)
					}
					return w.Flush()
				}),
			},
			{
				Name:  "theatres",
				Usage: "list theatres",
				Action: withSession(open, func(c *cli.Context, s *session) error {
					theatres, err := s.Catalog.ListTheatres(c.Context)
					if err != nil {
						return err
					}
					w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
					fmt.Fprintln(w, "ID\tNAME\tLOCATION\tSEATS")
					for _, t := range theatres {
						fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", t.ID, t.Name, t.Location, t.TotalSeats)
					}
					return w.Flush()
				}),
			},
			{
				Name:  "dates",
				Usage: "list bookable dates",
				Action: func(c *cli.Context) error {
					for _, d := range model.CandidateDates(time.Now()) {
						fmt.Fprintln(out, d)
					}
					return nil
				},
			},
			{
				Name:  "seats",
				Usage: "print the seat map of a screening",
				Flags: screeningFlags,
				Action: withSession(open, func(c *cli.Context, s *session) error {
					sc, err := screeningFrom(c, s)
					if err != nil {
						return err
					}
					m, err := s.Availability.SeatMap(c.Context, sc)
					if err != nil {
						return err
					}
					printSeatMap(out, m)
					return nil
				}),
			},
			{
				Name:  "book",
				Usage: "book seats for a customer",
				Flags: append([]cli.Flag{
					&cli.StringSliceFlag{Name: "seats", Usage: "seat labels, e.g. A1,A2", Required: true},
					&cli.StringFlag{Name: "name", Usage: "customer name", Required: true},
					&cli.StringFlag{Name: "phone", Usage: "customer phone", Required: true},
				}, screeningFlags...),
				Action: withSession(open, func(c *cli.Context, s *session) error {
					sc, err := screeningFrom(c, s)
					if err != nil {
						return err
					}
					r, err := s.Engine.CommitBooking(c.Context, booking.Request{
						Screening:    sc,
						Seats:        c.StringSlice("seats"),
						CustomerName: c.String("name"),
						Phone:        c.String("phone"),
					})
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "booked %s for %s: %s at %s on %s, total %s\n",
						strings.Join(r.Seats, ","), r.CustomerName, r.MovieName, r.TheatreName, r.Screening.Date, r.Total.StringFixed(2))
					return nil
				}),
			},
			{
				Name:  "report",
				Usage: "print every booking, newest first",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "grouped", Usage: "fold rows into purchases"},
				},
				Action: withSession(open, func(c *cli.Context, s *session) error {
					rows, err := s.Reports.ListAllBookings(c.Context)
					if err != nil {
						return err
					}
					w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
					if c.Bool("grouped") {
						fmt.Fprintln(w, "MOVIE\tTHEATRE\tDATE\tSEATS\tCUSTOMER\tPHONE\tBOOKED AT")
						for _, p := range booking.GroupPurchases(rows, booking.DefaultPurchaseTolerance) {
							fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", p.MovieName, p.TheatreName, p.Date,
								strings.Join(p.Seats, ","), p.CustomerName, p.Phone, p.BookedAt.Format(time.DateTime))
						}
						return w.Flush()
					}
					fmt.Fprintln(w, "ID\tMOVIE\tTHEATRE\tDATE\tSEAT\tCUSTOMER\tPHONE\tBOOKED AT")
					for _, r := range rows {
						fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.MovieName, r.TheatreName, r.Date,
							r.Seat, r.CustomerName, r.Phone, r.BookedAt.Format(time.DateTime))
					}
					return w.Flush()
				}),
			},
			{
				Name:      "hash-password",
				Usage:     "print a bcrypt hash for ADMIN_PASSWORD_HASH",
				ArgsUsage: "<password>",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "cost", Value: 12, EnvVars: []string{"BCRYPT_COST"}},
				},
				Action: func(c *cli.Context) error {
					if c.Args().Len() != 1 {
						return errors.New("exactly one password argument is required")
					}
					hash, err := utils.HashPassword(c.Args().First(), c.Int("cost"))
					if err != nil {
						return err
					}
					fmt.Fprintln(out, hash)
					return nil
				},
			},
		},
	}
}

// printSeatMap draws the grid with booked seats as "XX".
func printSeatMap(out io.Writer, m booking.SeatMap) {
	booked := make(map[string]bool, len(m.Booked))
	for _, s := range m.Booked {
		booked[s] = true
	}
	fmt.Fprintln(out, strings.Repeat(" ", (m.Cols*4-6)/2)+"SCREEN")
	for r := 0; r < m.Rows; r++ {
		var b strings.Builder
		for col := 1; col <= m.Cols; col++ {
			label := model.Seat{Row: r, Col: col}.Label()
			if booked[label] {
				label = "XX"
			}
			fmt.Fprintf(&b, "%-4s", label)
		}
		fmt.Fprintln(out, strings.TrimRight(b.String(), " "))
	}
	fmt.Fprintf(out, "%d booked, %d available\n", len(m.Booked), len(m.Available))
}

func main() {
	config.InitLogging(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	if err := newApp(openMySQL, os.Stdout).RunContext(context.Background(), os.Args); err != nil {
		logrus.Fatal(err)
	}
}

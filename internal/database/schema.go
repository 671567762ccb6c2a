package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema is applied statement by statement; every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS movies (
		id               BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name             VARCHAR(191) NOT NULL,
		genre            VARCHAR(64)  NOT NULL DEFAULT '',
		duration_minutes INT          NOT NULL,
		rating           VARCHAR(16)  NOT NULL DEFAULT '',
		UNIQUE KEY uq_movies_name (name)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS theatres (
		id          BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name        VARCHAR(191) NOT NULL,
		location    VARCHAR(191) NOT NULL DEFAULT '',
		total_seats INT          NOT NULL,
		UNIQUE KEY uq_theatres_name (name)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS bookings (
		id            BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		movie_id      BIGINT UNSIGNED NOT NULL,
		theatre_id    BIGINT UNSIGNED NOT NULL,
		booking_date  DATE            NOT NULL,
		seat_number   VARCHAR(4)      NOT NULL,
		customer_name VARCHAR(191)    NOT NULL,
		phone         VARCHAR(32)     NOT NULL,
		booking_time  DATETIME(3)     NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		UNIQUE KEY uq_bookings_seat (movie_id, theatre_id, booking_date, seat_number),
		KEY idx_bookings_report (booking_date, booking_time),
		CONSTRAINT fk_bookings_movie   FOREIGN KEY (movie_id)   REFERENCES movies(id),
		CONSTRAINT fk_bookings_theatre FOREIGN KEY (theatre_id) REFERENCES theatres(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates the tables if they do not exist.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}

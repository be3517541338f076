// Package store persists appointments, calendar credentials and notifications
// in Postgres.
package store

import (
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"appointment-scheduler/internal/model"
)

var ErrNotFound = model.ErrNotFound

type Store struct {
	DB  *pgxpool.Pool
	now func() time.Time
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{DB: pool, now: func() time.Time { return time.Now().UTC() }}
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/classhour/scheduling/internal/booking"
	"github.com/classhour/scheduling/internal/db"
	"github.com/classhour/scheduling/internal/model"
)

// ActorDirectory reads the portal's actors table. The user service owns
// these rows; soft-deleted actors are reported as not found so they can
// never participate in a booking.
type ActorDirectory struct {
	pool *db.Pool
}

func NewActorDirectory(pool *db.Pool) *ActorDirectory {
	return &ActorDirectory{pool: pool}
}

func (d *ActorDirectory) GetActor(ctx context.Context, id string) (model.Actor, error) {
	var actor model.Actor
	err := d.pool.QueryRow(ctx, `
		SELECT id::text, role, window_start_minute, window_end_minute, booking_approved, deleted
		FROM actors
		WHERE id = $1
	`, id).Scan(
		&actor.ID,
		&actor.Role,
		&actor.WindowStart,
		&actor.WindowEnd,
		&actor.BookingApproved,
		&actor.Deleted,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Actor{}, fmt.Errorf("%w: actor %s", booking.ErrNotFound, id)
	}
	if err != nil {
		return model.Actor{}, err
	}
	if actor.Deleted {
		return model.Actor{}, fmt.Errorf("%w: actor %s", booking.ErrNotFound, id)
	}
	return actor, nil
}

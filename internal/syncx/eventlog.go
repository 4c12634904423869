package syncx

import (
	"context"
	"database/sql"
	"time"
)

// Attempt lifecycle event types.
const (
	EventAttemptStarted   = "AttemptStarted"
	EventAttemptSubmitted = "AttemptSubmitted"
)

type Event struct {
	Offset    int64
	SiteID    string
	Type      string
	Key       string // natural key: attempt id
	DataJSON  string
	CreatedAt int64
}

// Sink receives append-only activity events. The zero-value NopSink drops
// them, which keeps the session service wirable without a database.
type Sink interface {
	Append(ctx context.Context, e Event) error
}

type NopSink struct{}

func (NopSink) Append(context.Context, Event) error { return nil }

type EventRepo struct{ db *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

func (r *EventRepo) Append(ctx context.Context, e Event) error {
	if e.SiteID == "" {
		e.SiteID = "local"
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_log (site_id, typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		e.SiteID, e.Type, e.Key, e.DataJSON, time.Now().Unix())
	return err
}

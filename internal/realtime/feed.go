package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const (
	initialRetryDelay = time.Second
	maxRetryDelay     = 30 * time.Second
)

// envelope is the JSON payload built by the notify_change trigger.
type envelope struct {
	Table string          `json:"table"`
	Event string          `json:"event"`
	Old   json.RawMessage `json:"old,omitempty"`
	New   json.RawMessage `json:"new"`
}

// Feed pumps row-change notifications out of Postgres into the broker. It
// holds one dedicated connection on LISTEN; when that connection drops the
// feed reconnects with capped backoff and raises a broker resync, since
// NOTIFY does not replay anything committed during the gap.
type Feed struct {
	pool    *pgxpool.Pool
	channel string
	broker  *Broker
	log     zerolog.Logger
}

func NewFeed(pool *pgxpool.Pool, channel string, broker *Broker, log zerolog.Logger) *Feed {
	return &Feed{
		pool:    pool,
		channel: channel,
		broker:  broker,
		log:     log.With().Str("component", "changefeed").Logger(),
	}
}

func (f *Feed) Run(ctx context.Context) error {
	delay := initialRetryDelay
	connected := false

	for {
		err := f.listen(ctx, connected)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		connected = true

		f.log.Warn().Err(err).Dur("retry_in", delay).Msg("change feed disconnected")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		if delay < maxRetryDelay {
			delay *= 2
		}
	}
}

func (f *Feed) listen(ctx context.Context, resync bool) error {
	conn, err := f.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{f.channel}.Sanitize()); err != nil {
		return err
	}
	f.log.Info().Str("channel", f.channel).Msg("listening for row changes")

	if resync {
		f.broker.Resync()
	}

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		f.publish(notification.Payload)
	}
}

func (f *Feed) publish(payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		f.log.Error().Err(err).Msg("malformed change payload")
		return
	}

	kind := EventKind(env.Event)
	if kind != EventInsert && kind != EventUpdate {
		return
	}

	f.broker.Publish(ChangeEvent{
		Kind:  kind,
		Table: env.Table,
		Old:   env.Old,
		New:   env.New,
	})
}

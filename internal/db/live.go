package db

import (
	"context"
	"fmt"
	"sync"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Subscription is a running live query on one table. Events carries one tick
// per change notification; payloads are dropped because consumers recompute
// full state rather than applying deltas.
type Subscription struct {
	table  string
	id     *surrealmodels.UUID
	client *Client
	events chan struct{}

	closeOnce sync.Once
	done      chan struct{}
}

// Events returns the change tick channel. It is closed when the subscription
// ends.
func (s *Subscription) Events() <-chan struct{} {
	return s.events
}

// Table returns the watched table name.
func (s *Subscription) Table() string {
	return s.table
}

// Close kills the live query and stops the pump goroutine.
func (s *Subscription) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = surrealdb.Kill(ctx, s.client.db, s.id.String())
	})
	if err != nil {
		return fmt.Errorf("kill live query %s: %w", s.table, err)
	}
	return nil
}

// Watch starts a live query on a table and returns a subscription delivering
// change ticks. The caller must Close it to avoid leaked listeners.
func (c *Client) Watch(ctx context.Context, table string) (*Subscription, error) {
	id, err := surrealdb.Live(ctx, c.db, surrealmodels.Table(table), false)
	if err != nil {
		return nil, fmt.Errorf("live %s: %w", table, err)
	}

	notifications, err := c.db.LiveNotifications(id.String())
	if err != nil {
		_ = surrealdb.Kill(ctx, c.db, id.String())
		return nil, fmt.Errorf("live notifications %s: %w", table, err)
	}

	sub := &Subscription{
		table:  table,
		id:     id,
		client: c,
		events: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}

	go func() {
		defer close(sub.events)
		for {
			select {
			case <-sub.done:
				return
			case _, ok := <-notifications:
				if !ok {
					return
				}
				// Coalesce: one pending tick is enough, the consumer
				// recounts everything anyway.
				select {
				case sub.events <- struct{}{}:
				default:
				}
			}
		}
	}()

	c.logger.Debug("live query started", "table", table, "id", id.String())
	return sub, nil
}

// Package pgnotify receives the notifications published by the notify
// customizer.
//
//	conn, _ := pgx.Connect(ctx, dsn)
//	l, err := pgnotify.Listen(ctx, conn, "posts")
//	if err != nil {
//		return err
//	}
//	defer l.Close(ctx)
//	for {
//		n, err := l.Next(ctx)
//		if err != nil {
//			return err
//		}
//		fmt.Println(n.Channel, n.Payload)
//	}
package pgnotify

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/syssam/stmthook"
	"github.com/syssam/stmthook/dialect"
)

// Notification is a single payload received on a channel.
type Notification struct {
	PID     uint32
	Channel string
	Payload string
}

// Conn is the subset of *pgx.Conn a Listener needs.
type Conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
}

// Listener owns a dedicated connection subscribed to one or more channels.
// It is not safe for concurrent use.
type Listener struct {
	conn     Conn
	channels []string
	closed   bool
}

var _ Conn = (*pgx.Conn)(nil)

// ErrClosed is returned by Next after Close.
var ErrClosed = errors.New("stmthook/pgnotify: listener closed")

// Listen subscribes conn to channels. The connection must not be shared
// with statement execution while the listener is open.
func Listen(ctx context.Context, conn Conn, channels ...string) (*Listener, error) {
	if len(channels) == 0 {
		return nil, fmt.Errorf("%w: no channel to listen on", stmthook.ErrMissingParameter)
	}
	for _, c := range channels {
		if !dialect.ValidIdentifier(c) {
			return nil, fmt.Errorf("%w: channel %q", stmthook.ErrInvalidIdentifier, c)
		}
	}
	l := &Listener{conn: conn}
	for _, c := range channels {
		if slices.Contains(l.channels, c) {
			continue
		}
		if _, err := conn.Exec(ctx, "LISTEN "+pq.QuoteIdentifier(c)); err != nil {
			_ = l.unlisten(ctx)
			return nil, fmt.Errorf("stmthook/pgnotify: listen %s: %w", c, err)
		}
		l.channels = append(l.channels, c)
	}
	return l, nil
}

// Channels returns the subscribed channels in subscription order.
func (l *Listener) Channels() []string {
	return slices.Clone(l.channels)
}

// Next blocks until a notification arrives or ctx is done.
func (l *Listener) Next(ctx context.Context) (Notification, error) {
	if l.closed {
		return Notification{}, ErrClosed
	}
	n, err := l.conn.WaitForNotification(ctx)
	if err != nil {
		return Notification{}, err
	}
	return Notification{PID: n.PID, Channel: n.Channel, Payload: n.Payload}, nil
}

// Close unsubscribes from every channel. The connection itself stays open
// and is owned by the caller.
func (l *Listener) Close(ctx context.Context) error {
	if l.closed {
		return nil
	}
	l.closed = true
	return l.unlisten(ctx)
}

func (l *Listener) unlisten(ctx context.Context) error {
	var errs []error
	for _, c := range l.channels {
		if _, err := l.conn.Exec(ctx, "UNLISTEN "+pq.QuoteIdentifier(c)); err != nil {
			errs = append(errs, err)
		}
	}
	l.channels = nil
	return errors.Join(errs...)
}

package db

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

var ErrClosed = errors.New("db: connection closed")

const _defaultDialTimeout = 30 * time.Second

// lazy owns one process-wide connection of type T. The first acquire dials,
// concurrent first acquires share that dial, and the connection is closed
// once Close was called and the last holder released it.
type lazy[T any] struct {
	name        string
	dial        func(ctx context.Context) (T, error)
	closeFn     func(conn T)
	dialTimeout time.Duration

	group singleflight.Group

	mu     sync.Mutex
	conn   T
	ready  bool
	closed bool
	refs   int
}

func newLazy[T any](name string, dial func(context.Context) (T, error), closeFn func(T)) *lazy[T] {
	return &lazy[T]{
		name:        name,
		dial:        dial,
		closeFn:     closeFn,
		dialTimeout: _defaultDialTimeout,
	}
}

// established wraps a connection that is already open.
func established[T any](name string, conn T, closeFn func(T)) *lazy[T] {
	l := newLazy[T](name, nil, closeFn)
	l.conn = conn
	l.ready = true
	return l
}

func (l *lazy[T]) acquire(ctx context.Context) (T, func(), error) {
	var zero T

	if conn, release, ok, err := l.take(); ok || err != nil {
		return conn, release, err
	}

	_, err, shared := l.group.Do(l.name, func() (interface{}, error) {
		l.mu.Lock()
		ready := l.ready
		l.mu.Unlock()
		if ready {
			return nil, nil
		}

		// the dial outlives the caller that happened to start it
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.dialTimeout)
		defer cancel()

		conn, err := l.dial(dctx)
		if err != nil {
			return nil, err
		}

		l.mu.Lock()
		defer l.mu.Unlock()
		if l.closed {
			l.closeFn(conn)
			return nil, ErrClosed
		}
		l.conn = conn
		l.ready = true
		log.Infof("%s connection established", l.name)
		return nil, nil
	})
	if err != nil {
		log.Errorf("%s connection failed (shared=%t): %v", l.name, shared, err)
		return zero, nil, err
	}

	conn, release, ok, err := l.take()
	if err != nil {
		return zero, nil, err
	}
	if !ok {
		return zero, nil, ErrClosed
	}
	return conn, release, nil
}

func (l *lazy[T]) take() (T, func(), bool, error) {
	var zero T

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return zero, nil, false, ErrClosed
	}
	if !l.ready {
		return zero, nil, false, nil
	}
	l.refs++

	var once sync.Once
	release := func() {
		once.Do(l.release)
	}
	return l.conn, release, true, nil
}

func (l *lazy[T]) release() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refs--
	if l.closed && l.ready && l.refs == 0 {
		l.shutdown()
	}
}

// Close is idempotent. Holders keep a usable connection until they release.
func (l *lazy[T]) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	l.closed = true
	if l.ready && l.refs == 0 {
		l.shutdown()
	}
}

// shutdown must be called with mu held.
func (l *lazy[T]) shutdown() {
	var zero T
	l.closeFn(l.conn)
	l.conn = zero
	l.ready = false
	log.Infof("%s connection closed", l.name)
}

func (l *lazy[T]) inUse() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.refs
}

package query

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/casescope/casescope/internal/apierr"
)

// FetchFunc loads the value behind a key from the backend.
type FetchFunc func(ctx context.Context) (any, error)

// Options configures a Store.
type Options struct {
	// Retries is the number of additional attempts after a retryable
	// failure. The default of 1 means two attempts total.
	Retries int
	// GCTimeout is how long an entry without subscribers survives
	// before Sweep evicts it.
	GCTimeout time.Duration
	Logger    *slog.Logger
	Metrics   *Metrics
	// Now overrides the clock. Tests use this; production leaves it nil.
	Now func() time.Time
}

// Store is the query cache. It owns one entry per key and guarantees at
// most one in-flight fetch per key, serves stale values while a refetch
// runs, discards out-of-order fetch results, and isolates refetch
// failures from already cached values.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry

	now       func() time.Time
	retries   int
	gcTimeout time.Duration
	logger    *slog.Logger
	metrics   *Metrics

	nextSeq uint64
	nextSub uint64
}

type entry struct {
	key   Key
	ttl   time.Duration
	fetch FetchFunc

	value     any
	hasValue  bool
	err       error
	fetchedAt time.Time
	stale     bool

	fetching bool
	issueSeq uint64
	waiters  []chan outcome

	subs      map[uint64]func(Result[any])
	idleSince time.Time
}

type outcome struct {
	value any
	err   error
}

// NewStore creates a Store.
func NewStore(opts Options) *Store {
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.GCTimeout <= 0 {
		opts.GCTimeout = 5 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{
		entries:   make(map[string]*entry),
		now:       opts.Now,
		retries:   opts.Retries,
		gcTimeout: opts.GCTimeout,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
	}
}

// Get returns the value behind key, fetching it when the cache holds
// nothing usable. A fresh entry is returned without a network call, a
// stale one is returned immediately while a background refetch runs,
// and a missing one blocks until the (deduplicated) fetch resolves.
func Get[T any](ctx context.Context, s *Store, key Key, ttl time.Duration, fetch func(ctx context.Context) (T, error)) (T, error) {
	v, err := s.get(ctx, key, ttl, adapt(fetch))
	if err != nil {
		var zero T
		return zero, err
	}
	t, _ := v.(T)
	return t, nil
}

// Subscribe registers interest in a key and returns a subscription whose
// channel carries the current result and every later change. The first
// send happens before Subscribe returns a value on the channel buffer,
// so callers can read immediately.
func Subscribe[T any](ctx context.Context, s *Store, key Key, ttl time.Duration, fetch func(ctx context.Context) (T, error)) *Subscription[T] {
	sub := &Subscription[T]{
		store: s,
		key:   key,
		ch:    make(chan Result[T], 1),
	}

	deliver := func(r Result[any]) {
		t, _ := r.Data.(T)
		typed := Result[T]{Status: r.Status, Data: t, Err: r.Err, UpdatedAt: r.UpdatedAt}
		// Conflate: keep only the latest result.
		select {
		case <-sub.ch:
		default:
		}
		sub.ch <- typed
	}

	s.mu.Lock()
	e := s.ensure(key, ttl, adapt(fetch))
	s.nextSub++
	sub.id = s.nextSub
	e.subs[sub.id] = deliver
	e.idleSince = time.Time{}

	switch {
	case e.hasValue && s.fresh(e):
		s.metrics.hits.WithLabelValues(s.metrics.domain(key)).Inc()
	case e.hasValue:
		s.metrics.staleServes.WithLabelValues(s.metrics.domain(key)).Inc()
		s.startFetch(ctx, e)
	default:
		s.metrics.misses.WithLabelValues(s.metrics.domain(key)).Inc()
		s.startFetch(ctx, e)
	}
	deliver(e.result())
	s.mu.Unlock()

	return sub
}

// Subscription is a live view over one key.
type Subscription[T any] struct {
	store *Store
	key   Key
	id    uint64
	ch    chan Result[T]
	once  sync.Once
}

// Updates returns the result channel. It always holds at most one
// pending result, the latest.
func (s *Subscription[T]) Updates() <-chan Result[T] { return s.ch }

// Next blocks until a result arrives or the context ends.
func (s *Subscription[T]) Next(ctx context.Context) (Result[T], error) {
	select {
	case r := <-s.ch:
		return r, nil
	case <-ctx.Done():
		return Result[T]{}, ctx.Err()
	}
}

// Close unregisters the subscription. The entry becomes eligible for
// garbage collection once its last subscriber closes.
func (s *Subscription[T]) Close() {
	s.once.Do(func() {
		st := s.store
		st.mu.Lock()
		if e, ok := st.entries[s.key.String()]; ok {
			delete(e.subs, s.id)
			if len(e.subs) == 0 {
				e.idleSince = st.now()
			}
		}
		st.mu.Unlock()
	})
}

func adapt[T any](fetch func(ctx context.Context) (T, error)) FetchFunc {
	return func(ctx context.Context) (any, error) {
		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
}

func (s *Store) get(ctx context.Context, key Key, ttl time.Duration, fetch FetchFunc) (any, error) {
	s.mu.Lock()
	e := s.ensure(key, ttl, fetch)
	domain := s.metrics.domain(key)

	if e.hasValue && s.fresh(e) {
		v := e.value
		s.metrics.hits.WithLabelValues(domain).Inc()
		s.mu.Unlock()
		return v, nil
	}
	if e.hasValue {
		// Stale-while-revalidate: hand back the stale value now, refresh
		// in the background.
		v := e.value
		s.metrics.staleServes.WithLabelValues(domain).Inc()
		s.startFetch(ctx, e)
		s.mu.Unlock()
		return v, nil
	}

	s.metrics.misses.WithLabelValues(domain).Inc()
	s.startFetch(ctx, e)
	ch := make(chan outcome, 1)
	e.waiters = append(e.waiters, ch)
	s.mu.Unlock()

	select {
	case o := <-ch:
		return o.value, o.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ensure returns the entry for key, creating it if absent. Caller holds
// the lock.
func (s *Store) ensure(key Key, ttl time.Duration, fetch FetchFunc) *entry {
	id := key.String()
	e, ok := s.entries[id]
	if !ok {
		e = &entry{
			key:       key,
			ttl:       ttl,
			subs:      make(map[uint64]func(Result[any])),
			idleSince: s.now(),
		}
		s.entries[id] = e
	}
	e.ttl = ttl
	e.fetch = fetch
	return e
}

func (s *Store) fresh(e *entry) bool {
	return !e.stale && s.now().Sub(e.fetchedAt) < e.ttl
}

// startFetch issues a new fetch for the entry unless one is already in
// flight. Caller holds the lock.
func (s *Store) startFetch(ctx context.Context, e *entry) {
	s.issueFetch(ctx, e, false)
}

// issueFetch optionally supersedes an in-flight fetch. A superseding
// fetch bumps the issue sequence, so the response of the older one is
// discarded when it eventually lands.
func (s *Store) issueFetch(ctx context.Context, e *entry, supersede bool) {
	if e.fetch == nil {
		return
	}
	if e.fetching && !supersede {
		return
	}
	s.nextSeq++
	seq := s.nextSeq
	e.fetching = true
	e.issueSeq = seq
	if e.hasValue {
		s.metrics.refetches.WithLabelValues(s.metrics.domain(e.key)).Inc()
	}
	go s.runFetch(context.WithoutCancel(ctx), e.key, seq, e.fetch)
}

func (s *Store) runFetch(ctx context.Context, key Key, seq uint64, fetch FetchFunc) {
	var (
		v   any
		err error
	)
	for attempt := 0; ; attempt++ {
		v, err = fetch(ctx)
		if err == nil || !apierr.Retryable(err) || attempt >= s.retries {
			break
		}
		s.metrics.retries.WithLabelValues(s.metrics.domain(key)).Inc()
		s.logger.Debug("retrying fetch", "key", key.String(), "attempt", attempt+1, "error", err)
	}
	s.apply(key, seq, v, err)
}

// apply records a fetch outcome. Only the latest-issued fetch for the
// entry may apply; a straggling older response is discarded because a
// newer fetch owns the entry.
func (s *Store) apply(key Key, seq uint64, v any, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key.String()]
	if !ok || seq != e.issueSeq {
		return
	}
	e.fetching = false

	if err == nil {
		e.value = v
		e.hasValue = true
		e.err = nil
		e.fetchedAt = s.now()
		e.stale = false
	} else {
		// A failed refetch keeps the last good value; a failed initial
		// fetch leaves no reusable entry, so the next reader re-attempts.
		e.err = err
		s.logger.Warn("fetch failed", "key", key.String(), "error", err)
	}

	for _, ch := range e.waiters {
		ch <- outcome{value: v, err: err}
	}
	e.waiters = nil

	r := e.result()
	for _, deliver := range e.subs {
		deliver(r)
	}
	if len(e.subs) == 0 {
		e.idleSince = s.now()
	}
}

func (e *entry) result() Result[any] {
	switch {
	case e.hasValue:
		return Result[any]{Status: StatusSuccess, Data: e.value, Err: e.err, UpdatedAt: e.fetchedAt}
	case e.err != nil && !e.fetching:
		return Result[any]{Status: StatusError, Err: e.err}
	default:
		return Result[any]{Status: StatusLoading}
	}
}

// Invalidate marks every entry matching the prefix stale. Entries with
// live subscribers or an in-flight fetch are refetched immediately; the
// rest refetch lazily on their next read.
func (s *Store) Invalidate(prefix Key) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if !e.key.HasPrefix(prefix) {
			continue
		}
		e.stale = true
		s.metrics.invalidations.WithLabelValues(s.metrics.domain(e.key)).Inc()
		if len(e.subs) > 0 || e.fetching {
			// A fetch issued before the invalidation may carry
			// pre-mutation data, so it must not be allowed to apply.
			// Reissuing (rather than only bumping the sequence) keeps
			// blocked readers resolvable: they wait on the entry, and
			// the replacement fetch delivers the post-mutation value.
			s.issueFetch(context.Background(), e, true)
		}
	}
}

// Sweep evicts entries that have had no subscribers for at least the GC
// timeout. Run calls it periodically; tests call it directly.
func (s *Store) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, e := range s.entries {
		if len(e.subs) > 0 || e.fetching || e.idleSince.IsZero() {
			continue
		}
		if now.Sub(e.idleSince) >= s.gcTimeout {
			delete(s.entries, id)
		}
	}
}

// Run sweeps the cache until the context ends.
func (s *Store) Run(ctx context.Context) {
	interval := s.gcTimeout / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Sweep()
		}
	}
}

// Len reports the number of live entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

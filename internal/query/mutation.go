package query

import "context"

// Mutation pairs a write operation with the cache prefixes it renders
// stale. The prefixes are declared up front so the invalidation set is
// part of the mutation's contract, not an afterthought at call sites.
type Mutation[T any] struct {
	Run         func(ctx context.Context) (T, error)
	Invalidates []Key
}

// Mutate executes the mutation and, only on success, fans its
// invalidation prefixes out over the store. A failed mutation leaves
// the cache untouched.
func Mutate[T any](ctx context.Context, s *Store, m Mutation[T]) (T, error) {
	v, err := m.Run(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	for _, p := range m.Invalidates {
		s.Invalidate(p)
	}
	return v, nil
}

// Do runs a valueless mutation with the same invalidation contract.
func Do(ctx context.Context, s *Store, run func(ctx context.Context) error, invalidates ...Key) error {
	if err := run(ctx); err != nil {
		return err
	}
	for _, p := range invalidates {
		s.Invalidate(p)
	}
	return nil
}

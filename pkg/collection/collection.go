// Package collection provides generic slice helpers plus composable
// predicates and comparators for in-memory filtering and sorting.
//
//	active := collection.Filter(offers, collection.All(isActive, inShop(id)))
//	collection.Sort(offers, collection.Then(
//	    collection.Desc(collection.By(func(o Offer) float64 { return o.Value })),
//	    collection.By(func(o Offer) string { return o.ID }),
//	))
package collection

import (
	"cmp"
	"slices"
)

// Predicate reports whether an element matches.
type Predicate[T any] func(T) bool

// Comparator orders two elements: negative when a sorts first.
type Comparator[T any] func(a, b T) int

// All matches when every predicate matches. No predicates match everything.
func All[T any](ps ...Predicate[T]) Predicate[T] {
	return func(v T) bool {
		for _, p := range ps {
			if !p(v) {
				return false
			}
		}
		return true
	}
}

// Any matches when at least one predicate matches.
func Any[T any](ps ...Predicate[T]) Predicate[T] {
	return func(v T) bool {
		for _, p := range ps {
			if p(v) {
				return true
			}
		}
		return false
	}
}

func Not[T any](p Predicate[T]) Predicate[T] {
	return func(v T) bool { return !p(v) }
}

// By orders ascending by the key returned by fn.
func By[T any, K cmp.Ordered](fn func(T) K) Comparator[T] {
	return func(a, b T) int { return cmp.Compare(fn(a), fn(b)) }
}

// Desc reverses c.
func Desc[T any](c Comparator[T]) Comparator[T] {
	return func(a, b T) int { return c(b, a) }
}

// Then chains comparators; later ones break ties left by earlier ones.
func Then[T any](cs ...Comparator[T]) Comparator[T] {
	return func(a, b T) int {
		for _, c := range cs {
			if r := c(a, b); r != 0 {
				return r
			}
		}
		return 0
	}
}

// Sort sorts s in place, stably, and returns it.
func Sort[T any](s []T, c Comparator[T]) []T {
	slices.SortStableFunc(s, c)
	return s
}

// Min returns the element that sorts first under c, or (zero, false).
func Min[T any](s []T, c Comparator[T]) (T, bool) {
	var best T
	if len(s) == 0 {
		return best, false
	}
	best = s[0]
	for _, v := range s[1:] {
		if c(v, best) < 0 {
			best = v
		}
	}
	return best, true
}

// Map transforms each element of s using fn.
func Map[T, R any](s []T, fn func(T) R) []R {
	out := make([]R, len(s))
	for i, v := range s {
		out[i] = fn(v)
	}
	return out
}

// Filter returns the elements of s matching p. The result is never nil.
func Filter[T any](s []T, p Predicate[T]) []T {
	out := make([]T, 0, len(s))
	for _, v := range s {
		if p(v) {
			out = append(out, v)
		}
	}
	return out
}

// GroupBy partitions s by the key returned by fn.
func GroupBy[T any, K comparable](s []T, fn func(T) K) map[K][]T {
	out := make(map[K][]T)
	for _, v := range s {
		k := fn(v)
		out[k] = append(out[k], v)
	}
	return out
}

// KeyBy indexes s by fn. If two elements share a key, the last one wins.
func KeyBy[T any, K comparable](s []T, fn func(T) K) map[K]T {
	out := make(map[K]T, len(s))
	for _, v := range s {
		out[fn(v)] = v
	}
	return out
}

// Unique returns s with duplicates removed, keeping first occurrences.
func Unique[T comparable](s []T) []T {
	seen := make(map[T]struct{}, len(s))
	out := make([]T, 0, len(s))
	for _, v := range s {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

// Reduce folds s into a single value using fn, starting with initial.
func Reduce[T, R any](s []T, initial R, fn func(carry R, item T) R) R {
	carry := initial
	for _, v := range s {
		carry = fn(carry, v)
	}
	return carry
}

// Chunk splits s into slices of at most size n.
func Chunk[T any](s []T, n int) [][]T {
	if n <= 0 {
		return nil
	}
	var out [][]T
	for i := 0; i < len(s); i += n {
		out = append(out, s[i:min(i+n, len(s))])
	}
	return out
}

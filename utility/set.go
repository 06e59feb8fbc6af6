package utility

import (
	"fmt"
	"iter"
	"maps"
)

type Set[T comparable] struct {
	set map[T]struct{}
}

func NewSet[T comparable]() Set[T] {
	return Set[T]{set: make(map[T]struct{})}
}

func (set *Set[T]) Add(key T) {
	set.set[key] = struct{}{}
}

func (set *Set[T]) Has(key T) bool {
	_, found := set.set[key]
	return found
}

func (set *Set[T]) Remove(key T) {
	delete(set.set, key)
}

func (set *Set[T]) Len() int {
	return len(set.set)
}

func (set *Set[T]) Iter() iter.Seq[T] {
	return maps.Keys(set.set)
}

// DiffArr returns the elements of set that are not in other.
func (set *Set[T]) DiffArr(other *Set[T]) []T {
	diff := make([]T, 0)
	for key := range set.set {
		if !other.Has(key) {
			diff = append(diff, key)
		}
	}
	return diff
}

func (set *Set[T]) String() string {
	return fmt.Sprintf("%+v", set.set)
}

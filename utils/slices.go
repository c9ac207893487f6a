package utils

import (
	"sort"

	"golang.org/x/exp/constraints"
	"golang.org/x/exp/maps"
)

// GetKeys returns the keys of the input map.
func GetKeys[K comparable, E any](m map[K]E) (keys []K) {
	return maps.Keys(m)
}

// GetSortedKeys returns the sorted keys of a map.
func GetSortedKeys[K constraints.Ordered, E any](m map[K]E) (keys []K) {
	keys = GetKeys(m)
	sort.Slice(keys, func(i, j int) bool {
		return keys[i] < keys[j]
	})
	return
}

// MaxSlice returns the maximum value in the slice.
func MaxSlice[V constraints.Ordered](slice []V) (max V) {
	for _, v := range slice {
		max = Max(max, v)
	}
	return
}

// Max returns the maximum between to comparable values.
func Max[V constraints.Ordered](a, b V) (max V) {
	if a > b {
		return a
	}
	return b
}

// Min returns the minimum between to comparable values.
func Min[V constraints.Ordered](a, b V) (min V) {
	if a < b {
		return a
	}
	return b
}

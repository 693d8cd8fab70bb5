package chatsync

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Line is one chat row in the timestamp index.
type Line[E any] struct {
	// Timestamp is in seconds, on the same origin as the synchronizer's start offset.
	Timestamp int64
	// Element is the pane's handle for the rendered row.
	Element E
}

// BuildIndex pairs each rendered element with its timestamp, in document order.
// Elements are expected to already be sorted by timestamp; they are not re-sorted.
func BuildIndex[E any](elems []E, timestamp func(E) int64) []Line[E] {
	lines := make([]Line[E], len(elems))
	for i, el := range elems {
		lines[i] = Line[E]{Timestamp: timestamp(el), Element: el}
	}
	return lines
}

// ParseTimestampAttr parses the integer timestamp attribute carried by a rendered row.
func ParseTimestampAttr(v string) (int64, error) {
	ts, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp attribute %q: %w", v, err)
	}
	return ts, nil
}

// Locate returns the smallest index i with lines[i].Timestamp >= target, or
// len(lines) when every line is earlier than target.
func Locate[E any](lines []Line[E], target int64) int {
	return sort.Search(len(lines), func(i int) bool {
		return lines[i].Timestamp >= target
	})
}

// LocateTime is Locate for a fractional target: the first line with
// Timestamp >= target. NaN and targets beyond the int64 range return len(lines).
func LocateTime[E any](lines []Line[E], target float64) int {
	return SearchTime(len(lines), func(i int) int64 { return lines[i].Timestamp }, target)
}

// SearchTime is LocateTime over n ascending timestamps read through timestamp.
// The first timestamp >= target is the first >= ceil(target).
func SearchTime(n int, timestamp func(i int) int64, target float64) int {
	switch {
	case math.IsNaN(target):
		return n
	case target <= math.MinInt64:
		return 0
	case target >= math.MaxInt64:
		return n
	}
	ts := int64(math.Ceil(target))
	return sort.Search(n, func(i int) bool { return timestamp(i) >= ts })
}

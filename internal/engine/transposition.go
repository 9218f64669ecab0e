package engine

import (
	"slices"

	"github.com/hailam/aaschess/internal/board"
)

// TTFlag indicates the type of bound stored in the transposition table.
type TTFlag uint8

const (
	TTExact      TTFlag = iota // Exact score
	TTLowerBound               // Failed high (beta cutoff)
	TTUpperBound               // Failed low
)

// ttEntryBytes approximates the memory of one map entry, used to turn a
// size in MB into an entry cap.
const ttEntryBytes = 64

// TTEntry represents an entry in the transposition table.
type TTEntry struct {
	BestMove board.Move
	Score    int
	Depth    int
	Flag     TTFlag
	stamp    uint64 // store order, used for eviction
}

// TranspositionTable maps position hashes to search results. It is owned by
// one Searcher and is not safe for concurrent use.
type TranspositionTable struct {
	entries  map[uint64]TTEntry
	capacity int
	clock    uint64

	hits   uint64
	probes uint64
}

// NewTranspositionTable creates a table holding at most capacity entries.
func NewTranspositionTable(capacity int) *TranspositionTable {
	capacity = max(capacity, 16)
	return &TranspositionTable{
		entries:  make(map[uint64]TTEntry, min(capacity, 1<<16)),
		capacity: capacity,
	}
}

// EntriesForMB converts a hash size in MB into an entry cap.
func EntriesForMB(mb int) int {
	return max(mb, 1) * 1024 * 1024 / ttEntryBytes
}

// Probe looks up a position in the transposition table.
func (tt *TranspositionTable) Probe(hash uint64) (TTEntry, bool) {
	tt.probes++
	e, ok := tt.entries[hash]
	if ok {
		tt.hits++
	}
	return e, ok
}

// Store saves a search result. An existing entry is kept when it was
// searched deeper than the new one.
func (tt *TranspositionTable) Store(hash uint64, depth int, score int, flag TTFlag, bestMove board.Move) {
	if old, ok := tt.entries[hash]; ok && depth < old.Depth {
		return
	}
	tt.clock++
	tt.entries[hash] = TTEntry{
		BestMove: bestMove,
		Score:    score,
		Depth:    depth,
		Flag:     flag,
		stamp:    tt.clock,
	}
	if len(tt.entries) > tt.capacity {
		tt.evict()
	}
}

// evict drops the oldest quarter of the entries.
func (tt *TranspositionTable) evict() {
	stamps := make([]uint64, 0, len(tt.entries))
	for _, e := range tt.entries {
		stamps = append(stamps, e.stamp)
	}
	slices.Sort(stamps)
	n := max(len(stamps)/4, len(stamps)-tt.capacity)
	cut := stamps[n-1]
	for k, e := range tt.entries {
		if e.stamp <= cut {
			delete(tt.entries, k)
		}
	}
}

// NewSearch resets the hit statistics. Entries carry over.
func (tt *TranspositionTable) NewSearch() {
	tt.hits = 0
	tt.probes = 0
}

// Clear empties the table.
func (tt *TranspositionTable) Clear() {
	clear(tt.entries)
	tt.clock = 0
	tt.hits = 0
	tt.probes = 0
}

// Len returns the number of stored entries.
func (tt *TranspositionTable) Len() int { return len(tt.entries) }

// Capacity returns the entry cap.
func (tt *TranspositionTable) Capacity() int { return tt.capacity }

// HashFull returns the permille of the table that is used.
func (tt *TranspositionTable) HashFull() int {
	return min(len(tt.entries)*1000/tt.capacity, 1000)
}

// HitRate returns the cache hit rate as a percentage.
func (tt *TranspositionTable) HitRate() float64 {
	if tt.probes == 0 {
		return 0
	}
	return float64(tt.hits) / float64(tt.probes) * 100
}

// AdjustScoreFromTT converts a stored mate score back to distance from the
// current ply.
func AdjustScoreFromTT(score int, ply int) int {
	if score > MateScore-MaxPly {
		return score - ply
	}
	if score < -MateScore+MaxPly {
		return score + ply
	}
	return score
}

// AdjustScoreToTT converts a mate score to distance from the stored node.
func AdjustScoreToTT(score int, ply int) int {
	if score > MateScore-MaxPly {
		return score + ply
	}
	if score < -MateScore+MaxPly {
		return score - ply
	}
	return score
}

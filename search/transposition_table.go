package search

import (
	"math"

	"github.com/pbnjay/memory"
	"github.com/rs/zerolog/log"

	"github.com/bastion-go/bastion/board"
)

const (
	TTExact = 0x01
	TTLower = 0x02
	TTUpper = 0x03
)

const entrySize = 24

const (
	minSizePowerOf2     = 10
	maxSizePowerOf2     = 30
	DefaultSizePowerOf2 = 22
)

// 24 bytes (entrySize)
type TableEntry struct {
	key   uint64
	score int32
	depth int8
	flag  uint8
	play  board.Move
}

func (t TableEntry) Score() int {
	return int(t.score)
}

// Depth is the remaining depth the entry was searched to; 0 means the
// score came straight out of quiescence.
func (t TableEntry) Depth() int {
	return int(t.depth)
}

func (t TableEntry) Flag() uint8 {
	return t.flag
}

func (t TableEntry) Move() board.Move {
	return t.play
}

func (t TableEntry) valid() bool {
	// a table flag is 1, 2, or 3.
	return t.flag != 0
}

// TTStats are the table's diagnostic counters.
type TTStats struct {
	Created    uint64
	Lookups    uint64
	Hits       uint64
	Collisions uint64
}

// TranspositionTable is a fixed array of 2^N entries indexed by the low bits
// of the zobrist key. It is not safe for concurrent use; every Solver owns
// its own.
type TranspositionTable struct {
	table        []TableEntry
	created      uint64
	lookups      uint64
	hits         uint64
	sizePowerOf2 int
	sizeMask     uint64
	// A collision here means two positions share the same low bits. Full
	// 64-bit collisions are not detected.
	collisions uint64
}

func NewTranspositionTable(sizePowerOf2 int) *TranspositionTable {
	t := &TranspositionTable{}
	t.Reset(sizePowerOf2)
	return t
}

func (t *TranspositionTable) IndexOf(key uint64) uint64 {
	return key & t.sizeMask
}

// Lookup returns the entry for key. An entry stored under a different key
// in the same slot is a miss.
func (t *TranspositionTable) Lookup(key uint64) (TableEntry, bool) {
	t.lookups++
	e := t.table[t.IndexOf(key)]
	if !e.valid() {
		return TableEntry{}, false
	}
	if e.key != key {
		// There is another unrelated node at this position.
		t.collisions++
		return TableEntry{}, false
	}
	t.hits++
	return e, true
}

// Store writes an entry unless the slot already holds one searched deeper.
func (t *TranspositionTable) Store(key uint64, score int, depth int, flag uint8, play board.Move) {
	idx := t.IndexOf(key)
	old := t.table[idx]
	if old.valid() && depth < int(old.depth) {
		return
	}
	t.table[idx] = TableEntry{
		key:   key,
		score: int32(score),
		depth: int8(depth),
		flag:  flag,
		play:  play,
	}
	t.created++
}

// Size counts the occupied slots. It walks the whole table.
func (t *TranspositionTable) Size() int {
	n := 0
	for i := range t.table {
		if t.table[i].valid() {
			n++
		}
	}
	return n
}

func (t *TranspositionTable) Capacity() int {
	return len(t.table)
}

func (t *TranspositionTable) Stats() TTStats {
	return TTStats{Created: t.created, Lookups: t.lookups, Hits: t.hits, Collisions: t.collisions}
}

// Clear empties every slot and zeroes the counters.
func (t *TranspositionTable) Clear() {
	clear(t.table)
	t.resetCounters()
}

func (t *TranspositionTable) resetCounters() {
	t.created = 0
	t.lookups = 0
	t.hits = 0
	t.collisions = 0
}

// Reset reallocates the table with 2^sizePowerOf2 slots.
func (t *TranspositionTable) Reset(sizePowerOf2 int) {
	sizePowerOf2 = max(minSizePowerOf2, min(maxSizePowerOf2, sizePowerOf2))
	numElems := 1 << sizePowerOf2
	reset := false
	if t.table != nil && len(t.table) == numElems {
		reset = true
		clear(t.table)
	} else {
		t.table = make([]TableEntry, numElems)
	}
	t.sizePowerOf2 = sizePowerOf2
	t.sizeMask = uint64(numElems - 1)
	t.resetCounters()

	log.Debug().Int("num-elems", numElems).
		Int("estimated-total-memory-bytes", numElems*entrySize).
		Bool("reset", reset).
		Msg("transposition-table-size")
}

// ResetWithMemoryFraction sizes the table to the largest power of two that
// fits in the given fraction of system memory.
func (t *TranspositionTable) ResetWithMemoryFraction(fractionOfMemory float64) {
	totalMem := memory.TotalMemory()
	desiredNElems := fractionOfMemory * (float64(totalMem) / float64(entrySize))
	power := minSizePowerOf2
	if desiredNElems >= 1 {
		// find biggest power of 2 lower than desired.
		power = int(math.Log2(desiredNElems))
	}
	log.Info().Float64("desired-num-elems", desiredNElems).
		Uint64("total-system-memory-bytes", totalMem).
		Int("size-power", power).
		Msg("sizing-transposition-table")
	t.Reset(power)
}

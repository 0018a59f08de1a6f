// Package spatial provides the per-frame spatial index used for broad-phase
// collision detection and neighbor queries.
//
// Entries are integer indices into the caller's entity slices (not pointers)
// so the index can be cleared and rebuilt every frame without GC churn.
package spatial

import "math"

// Hash primes for combining cell coordinates into a bucket key.
const (
	primeX = 73856093
	primeY = 19349663
)

// Hash is an unbounded uniform grid keyed by hashed cell coordinates.
// Unlike a dense grid it has no world bounds: entities slightly outside the
// arena still land in a bucket.
//
// The structure only holds the current frame's entities. There is no removal;
// call Clear once per frame and re-insert.
type Hash struct {
	cellSize    float64
	invCellSize float64
	cells       map[int64][]uint32
	scratch     []uint32 // reusable buffer for query results
	visited     []int64  // keys already read by the current query
	inserted    int
}

// NewHash creates a spatial hash with the given cell size.
// The cell size should be close to the most common query radius.
func NewHash(cellSize float64) *Hash {
	if cellSize <= 0 {
		cellSize = 100
	}
	return &Hash{
		cellSize:    cellSize,
		invCellSize: 1.0 / cellSize,
		cells:       make(map[int64][]uint32, 256),
		scratch:     make([]uint32, 0, 64),
		visited:     make([]int64, 0, 25),
	}
}

// CellKey combines integer cell coordinates into a bucket key.
// Distinct cells may share a key; that only merges their buckets.
func CellKey(cx, cy int) int64 {
	return int64(cx)*primeX ^ int64(cy)*primeY
}

func (h *Hash) cellCoord(v float64) int {
	return int(math.Floor(v * h.invCellSize))
}

// Clear empties every bucket but keeps its capacity.
func (h *Hash) Clear() {
	for k, bucket := range h.cells {
		h.cells[k] = bucket[:0]
	}
	h.inserted = 0
}

// Insert places an entity into the single cell containing (x, y).
func (h *Hash) Insert(id uint32, x, y float64) {
	key := CellKey(h.cellCoord(x), h.cellCoord(y))
	h.cells[key] = append(h.cells[key], id)
	h.inserted++
}

// InsertCircle places an entity into every cell overlapped by the bounding
// box of the circle. The same id can then appear in several buckets.
func (h *Hash) InsertCircle(id uint32, x, y, radius float64) {
	minX, maxX := h.cellCoord(x-radius), h.cellCoord(x+radius)
	minY, maxY := h.cellCoord(y-radius), h.cellCoord(y+radius)

	for cx := minX; cx <= maxX; cx++ {
		for cy := minY; cy <= maxY; cy++ {
			key := CellKey(cx, cy)
			h.cells[key] = append(h.cells[key], id)
		}
	}
	h.inserted++
}

// Query returns every id stored in a cell overlapping the square bounding box
// of the query circle.
//
// IMPORTANT: The returned slice is reused on subsequent calls.
// Copy the results if you need to persist them.
//
// The result is a superset: it may contain ids outside the radius, ids from
// hash-colliding cells, and duplicates of circle inserts. The caller must
// perform a precise distance check.
func (h *Hash) Query(x, y, radius float64) []uint32 {
	h.scratch = h.scratch[:0]

	minX, maxX := h.cellCoord(x-radius), h.cellCoord(x+radius)
	minY, maxY := h.cellCoord(y-radius), h.cellCoord(y+radius)

	if minX == maxX && minY == maxY {
		return append(h.scratch, h.cells[CellKey(minX, minY)]...)
	}

	// Colliding keys inside one query would return the same bucket twice.
	h.visited = h.visited[:0]
	for cx := minX; cx <= maxX; cx++ {
		for cy := minY; cy <= maxY; cy++ {
			key := CellKey(cx, cy)
			if h.wasVisited(key) {
				continue
			}
			h.visited = append(h.visited, key)
			h.scratch = append(h.scratch, h.cells[key]...)
		}
	}

	return h.scratch
}

func (h *Hash) wasVisited(key int64) bool {
	for _, k := range h.visited {
		if k == key {
			return true
		}
	}
	return false
}

// CellSize returns the configured cell size.
func (h *Hash) CellSize() float64 {
	return h.cellSize
}

// Len returns the number of insert calls since the last Clear.
func (h *Hash) Len() int {
	return h.inserted
}

// Stats returns hash statistics for debugging/profiling.
func (h *Hash) Stats() HashStats {
	var entries, maxInCell, nonEmpty int
	for _, bucket := range h.cells {
		n := len(bucket)
		entries += n
		if n > maxInCell {
			maxInCell = n
		}
		if n > 0 {
			nonEmpty++
		}
	}

	avg := 0.0
	if nonEmpty > 0 {
		avg = float64(entries) / float64(nonEmpty)
	}

	return HashStats{
		Buckets:        len(h.cells),
		NonEmptyCells:  nonEmpty,
		TotalEntries:   entries,
		MaxInCell:      maxInCell,
		AvgPerNonEmpty: avg,
	}
}

// HashStats contains hash statistics for debugging.
type HashStats struct {
	Buckets        int
	NonEmptyCells  int
	TotalEntries   int
	MaxInCell      int
	AvgPerNonEmpty float64
}

package gradient

import "math"

// Batch collects the distinct gate-parameter vectors needed by a set of
// recipes and remembers, for each added vector, its index into the
// deduplicated point list. Two vectors coincide only when every entry is
// bit-identical; no numeric tolerance is applied.
type Batch struct {
	points  [][]float64
	indices map[string]int
}

// NewBatch returns an empty batch.
func NewBatch() *Batch {
	return &Batch{indices: make(map[string]int)}
}

// Add registers a gate-parameter vector and returns its index into
// Points(). Vectors already present are not stored again.
func (b *Batch) Add(point []float64) int {
	key := pointKey(point)
	if idx, ok := b.indices[key]; ok {
		return idx
	}
	idx := len(b.points)
	b.points = append(b.points, point)
	b.indices[key] = idx
	return idx
}

// Points returns the deduplicated vectors in insertion order.
func (b *Batch) Points() [][]float64 {
	return b.points
}

// Size returns the number of distinct vectors collected so far.
func (b *Batch) Size() int {
	return len(b.points)
}

// pointKey builds an exact equality key from the vector's IEEE-754 bit
// patterns, so 0.0 and -0.0 (and distinct NaN payloads) key differently.
func pointKey(point []float64) string {
	buf := make([]byte, 0, len(point)*8)
	for _, v := range point {
		bits := math.Float64bits(v)
		buf = append(buf,
			byte(bits), byte(bits>>8), byte(bits>>16), byte(bits>>24),
			byte(bits>>32), byte(bits>>40), byte(bits>>48), byte(bits>>56),
		)
	}
	return string(buf)
}

// CollectBatch gathers every shift term of every recipe into one
// deduplicated batch and returns, per recipe, the point index of each of
// its terms.
func CollectBatch(recipes []Recipe) (*Batch, [][]int) {
	batch := NewBatch()
	termIndices := make([][]int, len(recipes))
	for i, r := range recipes {
		if len(r.Terms) == 0 {
			continue
		}
		termIndices[i] = make([]int, len(r.Terms))
		for t, term := range r.Terms {
			termIndices[i][t] = batch.Add(term.GateParams)
		}
	}
	return batch, termIndices
}

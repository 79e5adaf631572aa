package similarity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type vec []float64

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{name: "identical", a: []float64{1, 2, 3}, b: []float64{1, 2, 3}, want: 1},
		{name: "orthogonal", a: []float64{1, 0}, b: []float64{0, 1}, want: 0},
		{name: "opposite", a: []float64{1, 1}, b: []float64{-1, -1}, want: -1},
		{name: "diagonal", a: []float64{1, 0}, b: []float64{0.7, 0.7}, want: math.Sqrt2 / 2},
		{name: "scale invariant", a: []float64{2, 0}, b: []float64{5, 0}, want: 1},
		{name: "zero vector left", a: []float64{0, 0}, b: []float64{1, 0}, want: 0},
		{name: "zero vector right", a: []float64{1, 0}, b: []float64{0, 0}, want: 0},
		{name: "both zero", a: []float64{0, 0}, b: []float64{0, 0}, want: 0},
		{name: "length mismatch", a: []float64{1, 0, 0}, b: []float64{1, 0}, want: 0},
		{name: "empty", a: nil, b: nil, want: 0},
		{name: "nan component", a: []float64{math.NaN(), 1}, b: []float64{1, 1}, want: 0},
		{name: "overflowing components", a: []float64{math.MaxFloat64, 1}, b: []float64{math.MaxFloat64, 1}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Cosine(tt.a, tt.b)
			assert.False(t, math.IsNaN(got))
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestCosineSymmetric(t *testing.T) {
	vectors := [][]float64{
		{1, 0, 0},
		{0.3, -0.7, 0.2},
		{5, 5, -5},
		{0, 0, 0},
		{1e-8, 2e-8, 0},
	}
	for _, a := range vectors {
		for _, b := range vectors {
			assert.Equal(t, Cosine(a, b), Cosine(b, a))
		}
	}
}

func TestCosineSelfIdentity(t *testing.T) {
	for _, a := range [][]float64{{1}, {0.1, 0.2, 0.3}, {-4, 3}, {1e-3, 1e3}} {
		assert.InDelta(t, 1.0, Cosine(a, a), 1e-12)
	}
}

func TestCosineBounded(t *testing.T) {
	a := []float64{0.1, 0.2, 0.3, 0.4}
	b := []float64{0.10000001, 0.2, 0.3, 0.4}
	got := Cosine(a, b)
	assert.LessOrEqual(t, got, 1.0)
	assert.GreaterOrEqual(t, got, -1.0)
}

func TestRank(t *testing.T) {
	query := vec{1, 0}
	candidates := []vec{{1, 0}, {0, 1}, {0.7, 0.7}}

	got := Rank(query, candidates, 0)
	require.Len(t, got, 3)
	assert.Equal(t, []int{0, 2, 1}, indexes(got))
	assert.InDelta(t, 1.0, got[0].Score, 1e-9)
	assert.InDelta(t, 0.7071, got[1].Score, 1e-4)
	assert.InDelta(t, 0.0, got[2].Score, 1e-9)
}

func TestRankStableTies(t *testing.T) {
	query := vec{1, 0}
	candidates := []vec{{0, 0}, {1, 0}, {0, 1}, {2, 0}, {0, 0}}

	got := Rank(query, candidates, 0)
	assert.Equal(t, []int{1, 3, 0, 2, 4}, indexes(got))
}

func TestRankTruncates(t *testing.T) {
	query := vec{1, 0}
	candidates := []vec{{0, 1}, {1, 0}, {0.5, 0.5}}

	assert.Equal(t, []int{1, 2}, indexes(Rank(query, candidates, 2)))
	assert.Len(t, Rank(query, candidates, 10), 3)
	assert.Len(t, Rank(query, candidates, -1), 3)
	assert.Empty(t, Rank(query, []vec{}, 5))
}

func TestRankDeterministic(t *testing.T) {
	query := vec{0.2, 0.4, 0.1}
	candidates := []vec{{1, 0, 0}, {0.2, 0.4, 0.1}, {0, 0, 0}, {0.4, 0.8, 0.2}, {-1, 0, 0}}

	first := Rank(query, candidates, 3)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Rank(query, candidates, 3))
	}
}

func indexes(scored []Scored) []int {
	out := make([]int, len(scored))
	for i, s := range scored {
		out[i] = s.Index
	}
	return out
}

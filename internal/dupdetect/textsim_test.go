package dupdetect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTextSimilarityIdentity(t *testing.T) {
	inputs := []string{
		"large pothole near bus stop",
		"Garbage pile on 5th street!",
		"",
		"a an it", // normalizes to nothing
	}
	for _, s := range inputs {
		assert.Equal(t, 1.0, TextSimilarity(s, s), "similarity(a,a) must be 1 for %q", s)
	}
}

func TestTextSimilaritySymmetry(t *testing.T) {
	pairs := [][2]string{
		{"large pothole near bus stop", "pothole damaging cars"},
		{"garbage pile", "trash smell"},
		{"streetlight flickering at night", "street light is broken"},
		{"", "broken swing in the park"},
	}
	for _, p := range pairs {
		assert.Equal(t, TextSimilarity(p[0], p[1]), TextSimilarity(p[1], p[0]))
	}
}

func TestTextSimilarityEmptyInputs(t *testing.T) {
	assert.Equal(t, 0.0, TextSimilarity("", "overflowing garbage bin"))
	assert.Equal(t, 0.0, TextSimilarity("overflowing garbage bin", ""))
	// Two empty descriptions carry equally no information and are defined
	// as identical.
	assert.Equal(t, 1.0, TextSimilarity("", ""))
	// Strings that normalize to no tokens behave like empty strings.
	assert.Equal(t, 1.0, TextSimilarity("!! ??", "a of"))
	assert.Equal(t, 0.0, TextSimilarity("!! ??", "broken pipe leaking"))
}

func TestTextSimilarityScoring(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{
			name: "identical vocabulary different order",
			a:    "pothole near bus stop",
			b:    "bus stop near pothole",
			want: 1.0,
		},
		{
			name: "no overlap",
			a:    "stray dogs barking all night",
			b:    "broken streetlight flickering",
			want: 0.0,
		},
		{
			name: "case and punctuation ignored",
			a:    "LARGE pothole, near BUS-STOP!",
			b:    "large pothole near bus stop",
			want: 1.0,
		},
		{
			name: "partial overlap",
			// tokens: {huge, pothole, main, road} vs {pothole, main, street}
			// intersection 2 (pothole, main), union 5.
			a:    "huge pothole on main road",
			b:    "pothole in main street",
			want: 0.4,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, TextSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestTextSimilarityMonotonicInSharedVocabulary(t *testing.T) {
	base := "deep pothole near the bus stop damaging vehicles"
	closer := "deep pothole near the bus stop"
	farther := "deep hole in the ground"

	simCloser := TextSimilarity(base, closer)
	simFarther := TextSimilarity(base, farther)
	assert.Greater(t, simCloser, simFarther,
		"more shared distinctive vocabulary must never lower the score")
}

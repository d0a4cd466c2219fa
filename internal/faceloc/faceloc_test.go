package faceloc

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()
	input := `# frame x y w h
0 10 20 100 120
1,11,21,101,121,0.98

3 12 22 0 0
4	13	23	90.7	95.2
`
	locs, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	want := Locations{
		0: {X: 10, Y: 20, Width: 100, Height: 120},
		1: {X: 11, Y: 21, Width: 101, Height: 121},
		4: {X: 13, Y: 23, Width: 90, Height: 95},
	}
	if diff := cmp.Diff(want, locs); diff != "" {
		t.Errorf("Parse mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []int{0, 1, 4}, locs.Frames())
}

func TestParse_Malformed(t *testing.T) {
	t.Parallel()
	for _, in := range []string{
		"0 1 2 3",
		"0 a 2 3 4",
		"-1 0 0 10 10",
	} {
		_, err := Parse(strings.NewReader(in))
		assert.True(t, errors.Is(err, ErrMalformed), "input %q: %v", in, err)
	}
}

func TestReadFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "face.txt")
	require.NoError(t, os.WriteFile(path, []byte("2 1 1 60 60\n"), 0644))

	locs, err := ReadFile(path)
	require.NoError(t, err)
	b, ok := locs.Lookup(2)
	assert.True(t, ok)
	assert.Equal(t, 60, b.Width)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestFilter(t *testing.T) {
	t.Parallel()
	locs := Locations{
		0: {Width: 60, Height: 60},
		1: {Width: 40, Height: 80},
		2: {Width: 80, Height: 49},
		3: {Width: 0, Height: 0},
	}
	assert.Equal(t, 3600, locs[0].Area())
	got := Filter(locs, 50)
	assert.Equal(t, []int{0}, got.Frames())

	assert.Len(t, Filter(locs, 0), 3)
}

func TestExpand(t *testing.T) {
	t.Parallel()
	a := BoundingBox{X: 1, Width: 10, Height: 10}
	b := BoundingBox{X: 2, Width: 10, Height: 10}
	locs := Locations{2: a, 5: b, 9: a}

	got := Expand(locs, 7)
	want := Locations{2: a, 3: a, 4: a, 5: b, 6: b}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Expand mismatch (-want +got):\n%s", diff)
	}
	_, ok := got.Lookup(0)
	assert.False(t, ok)
}

func TestPreprocess(t *testing.T) {
	t.Parallel()
	big := BoundingBox{Width: 100, Height: 100}
	small := BoundingBox{X: 7, Width: 20, Height: 20}
	locs := Locations{0: big, 1: small, 2: small}

	got := Preprocess(locs, 4, 50)
	for i := 0; i < 4; i++ {
		b, ok := got.Lookup(i)
		require.True(t, ok, "frame %d", i)
		assert.Equal(t, big, b, "frame %d should inherit the last large face", i)
	}
}

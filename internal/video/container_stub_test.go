//go:build !withcv

package video

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ContainerWithoutOpenCV(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "clip.mov")
	require.NoError(t, os.WriteFile(path, []byte("not a video"), 0644))
	_, err := Load(path)
	assert.True(t, errors.Is(err, ErrUnsupported))
}

package flac_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pipelined/audiomix/flac"
)

func TestOpenInvalid(t *testing.T) {
	_, err := flac.Open(filepath.Join(t.TempDir(), "missing.flac"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "invalid.flac")
	assert.NoError(t, os.WriteFile(path, []byte("RIFF is not fLaC"), 0644))
	_, err = flac.Open(path)
	assert.Error(t, err)
}

// Package flac decodes flac files.
package flac

import (
	"fmt"
	"os"

	"github.com/gopxl/beep/v2/flac"

	"github.com/pipelined/audiomix/internal/streamer"
)

// Open opens flac file for decoding. The file is closed with the input.
func Open(path string) (*streamer.Input, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	s, format, err := flac.Decode(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%v: %w", path, err)
	}
	return streamer.New(s, format), nil
}

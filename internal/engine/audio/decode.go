package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/flac"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/wav"
)

// decodeFile opens and decodes an audio file by its extension. The
// returned stream owns the underlying file handle and must be closed
// by the caller once the instance is torn down.
func decodeFile(path string) (beep.StreamSeekCloser, beep.Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("open %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		s, format, err := wav.Decode(f)
		if err != nil {
			f.Close()
			return nil, beep.Format{}, fmt.Errorf("decode wav %s: %w", path, err)
		}
		return s, format, nil
	case ".mp3":
		s, format, err := mp3.Decode(f)
		if err != nil {
			f.Close()
			return nil, beep.Format{}, fmt.Errorf("decode mp3 %s: %w", path, err)
		}
		return s, format, nil
	case ".flac":
		s, format, err := flac.Decode(f)
		if err != nil {
			f.Close()
			return nil, beep.Format{}, fmt.Errorf("decode flac %s: %w", path, err)
		}
		return s, format, nil
	default:
		f.Close()
		return nil, beep.Format{}, fmt.Errorf("unsupported audio file extension %q", filepath.Ext(path))
	}
}

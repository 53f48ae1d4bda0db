package audio

import "github.com/gopxl/beep"

// sampleLoopRegion is a LoopRegion converted to sample offsets at the
// source file's native sample rate.
type sampleLoopRegion struct {
	Start int
	End   int
}

// slicedLoopStreamer plays the [start,end) sample window of a seekable
// source stream and, once a loop region is configured, seeks back to
// loopStart each time playback reaches loopEnd, repeating
// [loopStart,loopEnd) forever instead of finishing — until the engine
// stops the instance.
type slicedLoopStreamer struct {
	source     beep.StreamSeeker
	start, end int
	looping    bool
	loopStart  int
	loopEnd    int
	pos        int
	err        error
}

func newSlicedLoopStreamer(source beep.StreamSeeker, start, end int, loop *sampleLoopRegion) *slicedLoopStreamer {
	s := &slicedLoopStreamer{source: source, start: start, end: end, pos: start}
	if loop != nil {
		s.looping = true
		s.loopStart = loop.Start
		s.loopEnd = loop.End
	}
	if err := source.Seek(start); err != nil {
		s.err = err
	}
	return s
}

// Position reports how far into the slice playback has progressed,
// relative to the slice's own start rather than the source file's.
func (s *slicedLoopStreamer) Position() int {
	return s.pos - s.start
}

func (s *slicedLoopStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	if s.err != nil {
		return 0, false
	}
	for n < len(samples) {
		end := s.end
		if s.looping && s.pos >= s.loopStart {
			end = s.loopEnd
		}
		if s.pos >= end {
			if !s.looping {
				return n, n > 0
			}
			if err := s.source.Seek(s.loopStart); err != nil {
				s.err = err
				return n, n > 0
			}
			s.pos = s.loopStart
			continue
		}

		want := end - s.pos
		if want > len(samples)-n {
			want = len(samples) - n
		}
		got, streamOK := s.source.Stream(samples[n : n+want])
		s.pos += got
		n += got
		if !streamOK {
			if s.looping {
				if err := s.source.Seek(s.loopStart); err != nil {
					s.err = err
					return n, n > 0
				}
				s.pos = s.loopStart
				continue
			}
			return n, n > 0
		}
	}
	return n, true
}

func (s *slicedLoopStreamer) Err() error {
	if s.err != nil {
		return s.err
	}
	return s.source.Err()
}

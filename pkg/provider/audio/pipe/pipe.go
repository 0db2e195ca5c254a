// Package pipe provides an audio.Source that reads raw PCM from a named pipe
// (or any readable file). The kiosk's capture process (e.g. arecord) writes
// 16-bit little-endian mono PCM into the FIFO; this source slices it into
// fixed-duration chunks for the orchestrator's pre-buffer ring.
//
//	mkfifo /run/reskiosk/mic
//	arecord -f S16_LE -r 16000 -c 1 -t raw > /run/reskiosk/mic
//
// When the writer goes away (EOF) the source reopens the pipe and keeps
// going, so a restarted capture process reattaches without kiosk restarts.
package pipe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/keithruezyl1/ResKiosk--sub000/pkg/provider/audio"
)

// Compile-time interface assertion.
var _ audio.Source = (*Source)(nil)

const (
	defaultChunkMillis = 100
	reopenDelay        = 500 * time.Millisecond
	chunkChanBuf       = 64
)

// Source reads PCM chunks from a pipe path.
type Source struct {
	path       string
	sampleRate int
	chunkBytes int

	mu     sync.Mutex
	cancel context.CancelFunc
	opened bool
}

// New creates a Source reading from path at the given sample rate.
// chunkMillis selects the chunk duration; <= 0 selects 100 ms.
func New(path string, sampleRate, chunkMillis int) (*Source, error) {
	if path == "" {
		return nil, errors.New("pipe: path must not be empty")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("pipe: invalid sample rate %d", sampleRate)
	}
	if chunkMillis <= 0 {
		chunkMillis = defaultChunkMillis
	}
	return &Source{
		path:       path,
		sampleRate: sampleRate,
		chunkBytes: sampleRate * 2 * chunkMillis / 1000,
	}, nil
}

// Open starts the reader goroutine and returns the chunk channel.
func (s *Source) Open(ctx context.Context) (<-chan audio.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opened {
		return nil, errors.New("pipe: source already open")
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.opened = true

	out := make(chan audio.Chunk, chunkChanBuf)
	go s.readLoop(runCtx, out)
	return out, nil
}

// SampleRate implements [audio.Source].
func (s *Source) SampleRate() int { return s.sampleRate }

// Close stops the reader. Safe to call more than once.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.opened = false
	return nil
}

// readLoop reads fixed-size chunks, reopening the pipe on EOF.
func (s *Source) readLoop(ctx context.Context, out chan<- audio.Chunk) {
	defer close(out)

	for ctx.Err() == nil {
		f, err := os.Open(s.path)
		if err != nil {
			if !sleepCtx(ctx, reopenDelay) {
				return
			}
			continue
		}
		s.drain(ctx, f, out)
		f.Close()

		if !sleepCtx(ctx, reopenDelay) {
			return
		}
	}
}

// drain reads chunks from f until EOF, error, or cancellation.
func (s *Source) drain(ctx context.Context, f *os.File, out chan<- audio.Chunk) {
	for ctx.Err() == nil {
		buf := make([]byte, s.chunkBytes)
		n, err := io.ReadFull(f, buf)
		if n > 0 {
			select {
			case out <- audio.Chunk{Data: buf[:n]}:
			case <-ctx.Done():
				return
			default:
				// Consumer stalled; drop the chunk rather than block the mic.
			}
		}
		if err != nil {
			return
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

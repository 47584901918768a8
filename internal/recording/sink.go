// Package recording implements the per-session RecordingSink: a sequential
// writer of opaque byte buffers to a single append-mode file, with
// high/low-water-mark backpressure signalling.
package recording

import (
	"bufio"
	"os"
	"sync"

	"go.uber.org/zap"
)

const (
	// HighWaterMark is the pending-byte threshold above which write()
	// reports the producer should pause.
	HighWaterMark = 4 << 20 // 4 MiB
	// LowWaterMark is the pending-byte threshold at or below which onDrain
	// fires.
	LowWaterMark = 1 << 20 // 1 MiB
)

// Sink is a single-writer-goroutine append-mode file sink. write() enqueues
// onto an in-memory queue guarded by a mutex/cond and returns immediately; a
// dedicated goroutine drains the queue and performs the actual disk I/O, so
// a slow disk never blocks the Hub's fan-out path.
type Sink struct {
	log  *zap.Logger
	path string

	mu      sync.Mutex
	cond    *sync.Cond
	queue   [][]byte
	pending int64
	drained bool
	onDrain func()
	closing bool

	closeOnce sync.Once
	doneCh    chan struct{}
}

// New opens path in append mode and starts the writer goroutine.
func New(path string, log *zap.Logger) (*Sink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	s := &Sink{
		log:     log,
		path:    path,
		drained: true,
		doneCh:  make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)
	go s.run(f)
	return s, nil
}

func (s *Sink) run(f *os.File) {
	w := bufio.NewWriterSize(f, 64<<10)
	defer func() {
		_ = w.Flush()
		_ = f.Close()
		close(s.doneCh)
	}()
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closing {
			s.cond.Wait()
		}
		if len(s.queue) == 0 && s.closing {
			s.mu.Unlock()
			return
		}
		data := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		if _, err := w.Write(data); err != nil {
			s.log.Warn("recording: write failed", zap.String("path", s.path), zap.Error(err))
		}
		if err := w.Flush(); err != nil {
			s.log.Warn("recording: flush failed", zap.String("path", s.path), zap.Error(err))
		}

		s.mu.Lock()
		s.pending -= int64(len(data))
		if s.pending < 0 {
			s.pending = 0
		}
		fireDrain := s.pending <= LowWaterMark && !s.drained
		if fireDrain {
			s.drained = true
		}
		cb := s.onDrain
		s.mu.Unlock()
		if fireDrain && cb != nil {
			cb()
		}
	}
}

// Write appends bytes to the file and returns false if the producer should
// pause (pending buffer at or above HighWaterMark). It never blocks on disk
// I/O — it only appends to an in-memory queue, which bounds the delay seen
// by the caller to a mutex acquisition rather than disk latency.
func (s *Sink) Write(data []byte) bool {
	buf := make([]byte, len(data))
	copy(buf, data)

	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return false
	}
	s.pending += int64(len(buf))
	accepted := s.pending < HighWaterMark
	if !accepted {
		s.drained = false
	}
	s.queue = append(s.queue, buf)
	s.mu.Unlock()
	s.cond.Signal()
	return accepted
}

// OnDrain registers a one-shot, re-armable callback fired when pending bytes
// fall to or below LowWaterMark after having reached HighWaterMark.
func (s *Sink) OnDrain(cb func()) {
	s.mu.Lock()
	s.onDrain = cb
	s.mu.Unlock()
}

// Close flushes pending bytes and releases the file. Idempotent.
func (s *Sink) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closing = true
		s.mu.Unlock()
		s.cond.Signal()
		<-s.doneCh
	})
	return nil
}

package chatstream

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"finchat/internal/logging"
	"finchat/internal/types"
)

const defaultChunkSize = 4 * 1024

var ErrIdleTimeout = errors.New("chat stream idle timeout")

type Options struct {
	// IdleTimeout aborts the read when no bytes arrive within the window.
	// Zero disables it.
	IdleTimeout time.Duration
	ChunkSize   int
	Logger      logging.Logger
	Debug       bool
}

// Stream owns the response body of one exchange. Events are delivered in
// frame order on Events; the channel closes after Completed, at end of input,
// or on failure. Err is valid once Events is closed.
type Stream struct {
	events    chan types.StreamEvent
	err       error
	ctx       context.Context
	cancel    context.CancelFunc
	body      io.ReadCloser
	closeOnce sync.Once
}

// Open starts the pump goroutine over body. cancel, when non-nil, is invoked
// by Close to abort the request that produced body.
func Open(ctx context.Context, cancel context.CancelFunc, body io.ReadCloser, opts Options) *Stream {
	ctx, own := context.WithCancel(ctx)
	s := &Stream{
		events: make(chan types.StreamEvent, 64),
		ctx:    ctx,
		body:   body,
		cancel: func() {
			own()
			if cancel != nil {
				cancel()
			}
		},
	}
	go s.pump(opts)
	return s
}

func (s *Stream) Events() <-chan types.StreamEvent {
	if s == nil {
		return nil
	}
	return s.events
}

func (s *Stream) Err() error {
	if s == nil {
		return nil
	}
	return s.err
}

// Close aborts the underlying read. It is safe to call more than once and
// from any goroutine.
func (s *Stream) Close() {
	if s == nil {
		return
	}
	s.closeOnce.Do(func() {
		s.cancel()
		if s.body != nil {
			_ = s.body.Close()
		}
	})
}

func (s *Stream) pump(opts Options) {
	defer close(s.events)
	defer s.Close()

	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}

	var timedOut atomic.Bool
	var watchdog *time.Timer
	if opts.IdleTimeout > 0 {
		watchdog = time.AfterFunc(opts.IdleTimeout, func() {
			timedOut.Store(true)
			s.Close()
		})
		defer watchdog.Stop()
	}

	start := time.Now()
	frames := 0
	decoder := NewDecoder()
	interpreter := NewInterpreter()
	buf := make([]byte, chunkSize)
	if opts.Debug {
		logger.Info("stream open")
	}

	for {
		n, readErr := s.body.Read(buf)
		if n > 0 {
			payloads := decoder.Feed(string(buf[:n]))
			// Only complete frames count as activity; keep-alive comments do not.
			if watchdog != nil && len(payloads) > 0 {
				watchdog.Reset(opts.IdleTimeout)
			}
			for _, payload := range payloads {
				frames++
				for _, event := range interpreter.Interpret(payload) {
					if malformed, ok := event.(types.Malformed); ok {
						logger.Warn("stream frame malformed", logging.F("raw", malformed.Raw), logging.Err(malformed.Err))
					}
					if !s.send(event) {
						s.err = s.abortErr(&timedOut)
						return
					}
					if _, ok := event.(types.Completed); ok {
						if opts.Debug {
							logger.Info("stream completed", logging.F("frames", frames), logging.F("dur", time.Since(start)))
						}
						return
					}
				}
			}
		}
		if readErr == nil {
			continue
		}
		s.err = s.abortErr(&timedOut)
		if s.err == nil && !errors.Is(readErr, io.EOF) {
			s.err = readErr
		}
		if pending := decoder.Pending(); s.err == nil && pending != "" {
			logger.Debug("stream ended with partial frame", logging.F("pending_bytes", len(pending)))
		}
		if opts.Debug {
			logger.Info("stream close", logging.F("frames", frames), logging.F("dur", time.Since(start)), logging.Err(s.err))
		}
		return
	}
}

func (s *Stream) send(event types.StreamEvent) bool {
	select {
	case s.events <- event:
		return true
	case <-s.ctx.Done():
		return false
	}
}

func (s *Stream) abortErr(timedOut *atomic.Bool) error {
	if timedOut.Load() {
		return ErrIdleTimeout
	}
	if err := s.ctx.Err(); err != nil {
		return err
	}
	return nil
}

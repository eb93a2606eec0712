package renderer

import (
	"context"
	"sync"
)

const progressBuffer = 64

// Handle is a render running on its own goroutine.
type Handle struct {
	progress chan float64
	done     chan struct{}
	cancel   context.CancelFunc

	mu     sync.Mutex
	last   float64
	sent   bool
	closed bool

	path string
	err  error
}

// Start runs r.Render for job in the background. Cancel ctx, or call
// Cancel, to abort the render.
func Start(ctx context.Context, r Renderer, job Job) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{
		progress: make(chan float64, progressBuffer),
		done:     make(chan struct{}),
		cancel:   cancel,
	}

	go func() {
		defer close(h.done)
		defer cancel()
		path, err := r.Render(ctx, job, h.report)

		h.mu.Lock()
		h.path, h.err = path, err
		h.closed = true
		close(h.progress)
		h.mu.Unlock()
	}()

	return h
}

// Progress yields percentages in [0, 100] that never decrease. It is closed
// when the render finishes; a final 100 is not guaranteed. Values are
// dropped rather than blocking the renderer when the reader falls behind.
func (h *Handle) Progress() <-chan float64 {
	return h.progress
}

// Done is closed when the render has finished.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the render finishes and returns its result.
func (h *Handle) Wait() (string, error) {
	<-h.done
	return h.path, h.err
}

// Cancel aborts the render.
func (h *Handle) Cancel() {
	h.cancel()
}

func (h *Handle) report(p float64) {
	p = clamp(p)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	if h.sent && p <= h.last {
		return
	}
	select {
	case h.progress <- p:
		h.last, h.sent = p, true
	default:
	}
}

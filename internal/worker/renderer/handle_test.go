package renderer

import (
	"context"
	"fmt"
	"testing"
	"time"

	"audiowave/internal/pkg/errors"
)

type scriptedRenderer struct {
	emit []float64
	path string
	err  error
	wait bool
}

func (s scriptedRenderer) Name() string { return "scripted" }

func (s scriptedRenderer) Render(ctx context.Context, job Job, onProgress ProgressFunc) (string, error) {
	for _, p := range s.emit {
		onProgress(p)
	}
	if s.wait {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return s.path, s.err
}

func drain(h *Handle) []float64 {
	var out []float64
	for p := range h.Progress() {
		out = append(out, p)
	}
	return out
}

func TestHandleProgressIsClampedAndMonotonic(t *testing.T) {
	h := Start(context.Background(), scriptedRenderer{
		emit: []float64{-5, 10, 5, 10, 42.5, 150, 3},
		path: "/tmp/out.mp4",
	}, Job{})

	got := drain(h)
	want := []float64{0, 10, 42.5, 100}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	path, err := h.Wait()
	if err != nil || path != "/tmp/out.mp4" {
		t.Fatalf("unexpected result %q, %v", path, err)
	}
}

func TestHandleWithoutProgress(t *testing.T) {
	h := Start(context.Background(), scriptedRenderer{path: "/tmp/out.mp4"}, Job{})

	if got := drain(h); len(got) != 0 {
		t.Fatalf("expected no progress, got %v", got)
	}
	if _, err := h.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHandlePropagatesFailure(t *testing.T) {
	h := Start(context.Background(), scriptedRenderer{
		emit: []float64{30},
		err:  errors.Render(nil, "exit status 1"),
	}, Job{})

	_, err := h.Wait()
	if !errors.IsRender(err) {
		t.Fatalf("expected render failure, got %v", err)
	}
}

func TestHandleCancel(t *testing.T) {
	h := Start(context.Background(), scriptedRenderer{wait: true}, Job{})
	h.Cancel()

	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("render did not stop after cancel")
	}
	if _, err := h.Wait(); err == nil {
		t.Fatal("expected error after cancel")
	}
}

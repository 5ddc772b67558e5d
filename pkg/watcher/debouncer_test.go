package watcher

import (
	"context"
	"testing"
	"time"
)

func receive(t *testing.T, ch <-chan ChangeEvent) ChangeEvent {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatal("output closed unexpectedly")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for debounced event")
	}
	return ChangeEvent{}
}

func TestDebouncerBatchesBurst(t *testing.T) {
	input := make(chan ChangeEvent, 10)
	d := NewDebouncer(input, 50*time.Millisecond, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	input <- ChangeEvent{Type: ChangeTypePicture, Paths: []string{"/pics/Alice.jpeg"}}
	input <- ChangeEvent{Type: ChangeTypeOutline, Paths: []string{"/work/acme.org"}}
	input <- ChangeEvent{Type: ChangeTypeOutline, Paths: []string{"/work/acme.org"}}

	first := receive(t, d.Output())
	if first.Type != ChangeTypeOutline || len(first.Paths) != 2 {
		t.Errorf("first event = %+v, want two outline paths", first)
	}

	second := receive(t, d.Output())
	if second.Type != ChangeTypePicture || len(second.Paths) != 1 {
		t.Errorf("second event = %+v, want one picture path", second)
	}

	select {
	case ev := <-d.Output():
		t.Errorf("unexpected extra event %+v", ev)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestDebouncerMaxWait(t *testing.T) {
	input := make(chan ChangeEvent)
	d := NewDebouncer(input, 200*time.Millisecond, 300*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	// Keep the quiet period from ever expiring
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				input <- ChangeEvent{Type: ChangeTypeOutline, Paths: []string{"acme.org"}}
			}
		}
	}()
	defer close(stop)

	start := time.Now()
	receive(t, d.Output())
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("max wait not honored, flushed after %v", elapsed)
	}
}

func TestDebouncerFlushesOnClose(t *testing.T) {
	input := make(chan ChangeEvent, 1)
	d := NewDebouncer(input, time.Hour, time.Hour)
	d.Start(context.Background())

	input <- ChangeEvent{Type: ChangeTypeOutline, Paths: []string{"acme.org"}}
	close(input)

	ev := receive(t, d.Output())
	if ev.Type != ChangeTypeOutline {
		t.Errorf("event type = %v, want outline", ev.Type)
	}

	if _, ok := <-d.Output(); ok {
		t.Error("output should be closed after input closes")
	}
}

func TestAnalyzeChanges(t *testing.T) {
	tests := []struct {
		event  ChangeEvent
		reason string
	}{
		{ChangeEvent{Type: ChangeTypeOutline, Paths: []string{"acme.org"}}, "outline changed"},
		{ChangeEvent{Type: ChangeTypePicture, Paths: []string{"Alice.jpeg"}}, "profile pictures changed"},
	}

	for _, tt := range tests {
		got := AnalyzeChanges(tt.event)
		if !got.NeedReload || got.Reason != tt.reason {
			t.Errorf("AnalyzeChanges(%v) = %+v", tt.event.Type, got)
		}
		if len(got.ChangedFiles) != len(tt.event.Paths) {
			t.Errorf("ChangedFiles = %v, want %v", got.ChangedFiles, tt.event.Paths)
		}
	}
}

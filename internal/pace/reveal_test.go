package pace

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func newRevealController(t *testing.T, rec *sleepRecorder, chunk int) *Controller {
	t.Helper()
	c, err := NewController(testConfig(), WithSleeper(rec.sleep), WithRevealChunk(chunk))
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestRevealPrefixes(t *testing.T) {
	rec := &sleepRecorder{}
	c := newRevealController(t, rec, 3)

	r := c.Reveal("hello world")
	want := []string{"hel", "hello ", "hello wor", "hello world"}
	if got := r.Prefixes(); !reflect.DeepEqual(got, want) {
		t.Errorf("Prefixes() = %q, want %q", got, want)
	}
	if len(rec.waits) != 0 {
		t.Errorf("Prefixes slept %d times, want 0", len(rec.waits))
	}
}

func TestRevealNextWalksAndStops(t *testing.T) {
	rec := &sleepRecorder{}
	c := newRevealController(t, rec, 3)
	r := c.Reveal("hello world")

	var got []string
	for {
		prefix, ok, err := r.Next(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			break
		}
		got = append(got, prefix)
	}

	if !reflect.DeepEqual(got, r.Prefixes()) {
		t.Errorf("Next sequence %q, want %q", got, r.Prefixes())
	}
	// One sleep per produced prefix, each at chunk/rate seconds.
	if len(rec.waits) != len(got) {
		t.Fatalf("slept %d times, want %d", len(rec.waits), len(got))
	}
	wantDelay := 300 * time.Millisecond
	for i, w := range rec.waits {
		if w != wantDelay {
			t.Errorf("wait[%d] = %v, want %v", i, w, wantDelay)
		}
	}
}

func TestRevealReset(t *testing.T) {
	rec := &sleepRecorder{}
	c := newRevealController(t, rec, 4)
	r := c.Reveal("restartable")

	first, ok, err := r.Next(context.Background())
	if err != nil || !ok {
		t.Fatalf("Next() = %q, %v, %v", first, ok, err)
	}
	r.Reset()
	again, ok, err := r.Next(context.Background())
	if err != nil || !ok {
		t.Fatalf("Next() after Reset = %q, %v, %v", again, ok, err)
	}
	if first != again {
		t.Errorf("restarted prefix = %q, want %q", again, first)
	}
}

func TestRevealEmptyText(t *testing.T) {
	rec := &sleepRecorder{}
	c := newRevealController(t, rec, 1)
	r := c.Reveal("")

	if got := r.Prefixes(); got != nil {
		t.Errorf("Prefixes() = %q, want nil", got)
	}
	if _, ok, err := r.Next(context.Background()); ok || err != nil {
		t.Errorf("Next() on empty text = %v, %v; want done", ok, err)
	}
}

func TestRevealRuneSafe(t *testing.T) {
	rec := &sleepRecorder{}
	c := newRevealController(t, rec, 2)
	r := c.Reveal("héllo")

	want := []string{"hé", "héll", "héllo"}
	if got := r.Prefixes(); !reflect.DeepEqual(got, want) {
		t.Errorf("Prefixes() = %q, want %q", got, want)
	}
}

func TestRevealCancelled(t *testing.T) {
	c, err := NewController(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := c.Reveal("never shown")
	if _, _, err := r.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

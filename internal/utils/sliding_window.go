package utils

import (
	"sync"
	"time"
)

type SlidingWindow struct {
	mu     sync.Mutex
	window time.Duration
	hits   []time.Time
}

func NewSlidingWindow(window time.Duration) *SlidingWindow {
	return &SlidingWindow{window: window}
}

func (w *SlidingWindow) Add(now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.prune(now)
	w.hits = append(w.hits, now)
	return len(w.hits)
}

func (w *SlidingWindow) Count(now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.prune(now)
	return len(w.hits)
}

func (w *SlidingWindow) prune(now time.Time) {
	cutoff := now.Add(-w.window)
	idx := 0
	for _, hit := range w.hits {
		if hit.After(cutoff) {
			break
		}
		idx++
	}
	w.hits = w.hits[idx:]
}

// KeyedWindows keeps one SlidingWindow per key, e.g. per guild member, and
// drops windows that have emptied out.
type KeyedWindows struct {
	mu      sync.Mutex
	window  time.Duration
	windows map[string]*SlidingWindow
}

func NewKeyedWindows(window time.Duration) *KeyedWindows {
	return &KeyedWindows{window: window, windows: make(map[string]*SlidingWindow)}
}

func (k *KeyedWindows) Add(key string, now time.Time) int {
	k.mu.Lock()
	w := k.windows[key]
	if w == nil {
		w = NewSlidingWindow(k.window)
		k.windows[key] = w
	}
	k.mu.Unlock()
	return w.Add(now)
}

func (k *KeyedWindows) Count(key string, now time.Time) int {
	k.mu.Lock()
	defer k.mu.Unlock()

	w := k.windows[key]
	if w == nil {
		return 0
	}
	count := w.Count(now)
	if count == 0 {
		delete(k.windows, key)
	}
	return count
}

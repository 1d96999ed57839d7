package search

import (
	"context"
	"strings"
	"sync"
	"time"

	"skycast/internal/types"
)

const (
	// DefaultQuiet is the debounce quiet period after the last keystroke.
	DefaultQuiet = 300 * time.Millisecond

	// MinQueryLen is the shortest trimmed query that triggers a fetch.
	MinQueryLen = 2
)

// Suggestions fetches city suggestions for a query.
type Suggestions func(ctx context.Context, query string) []types.Location

type DebouncerOption func(*Debouncer)

func QuietOption(quiet time.Duration) DebouncerOption {
	return func(d *Debouncer) {
		d.quiet = quiet
	}
}

func OnClearOption(fn func()) DebouncerOption {
	return func(d *Debouncer) {
		d.onClear = fn
	}
}

// Debouncer turns a stream of keystrokes into at most one pending suggestion
// fetch. Each Input cancels the previously scheduled fetch before scheduling
// a new one, so stale responses never overwrite newer ones; a generation
// counter additionally discards completions that lost the race to a newer
// keystroke.
type Debouncer struct {
	quiet     time.Duration
	fetch     Suggestions
	onResults func(query string, locs []types.Location)
	onClear   func()

	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
}

func NewDebouncer(fetch Suggestions, onResults func(string, []types.Location), opts ...DebouncerOption) *Debouncer {
	d := &Debouncer{
		quiet:     DefaultQuiet,
		fetch:     fetch,
		onResults: onResults,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Input registers a keystroke's resulting field value. Queries shorter than
// MinQueryLen after trimming clear the suggestion list immediately and
// schedule nothing.
func (d *Debouncer) Input(query string) {
	query = strings.TrimSpace(query)

	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	gen := d.gen

	if len(query) < MinQueryLen {
		d.mu.Unlock()
		if d.onClear != nil {
			d.onClear()
		}
		return
	}

	d.timer = time.AfterFunc(d.quiet, func() {
		d.run(gen, query)
	})
	d.mu.Unlock()
}

// Cancel drops any pending scheduled fetch and invalidates in-flight ones.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
}

func (d *Debouncer) run(gen uint64, query string) {
	locs := d.fetch(context.Background(), query)

	d.mu.Lock()
	stale := gen != d.gen
	d.mu.Unlock()
	if stale {
		return
	}
	d.onResults(query, locs)
}

// Navigator tracks the highlighted index of a dropdown list. Arrow movement
// wraps circularly; -1 means nothing highlighted. It is agnostic to whether
// the list holds live suggestions or recent searches.
type Navigator struct {
	size  int
	index int
}

func NewNavigator() *Navigator {
	return &Navigator{index: -1}
}

// Reset points the navigator at a freshly rendered list of n items with
// nothing highlighted.
func (n *Navigator) Reset(size int) {
	n.size = size
	n.index = -1
}

// Next moves the highlight down, wrapping to the top.
func (n *Navigator) Next() int {
	if n.size == 0 {
		return -1
	}
	n.index = (n.index + 1) % n.size
	return n.index
}

// Prev moves the highlight up, wrapping to the bottom.
func (n *Navigator) Prev() int {
	if n.size == 0 {
		return -1
	}
	if n.index <= 0 {
		n.index = n.size - 1
	} else {
		n.index--
	}
	return n.index
}

// Index returns the highlighted index, or -1.
func (n *Navigator) Index() int {
	return n.index
}

// Commit returns the highlighted index for selection and dismisses the
// dropdown state.
func (n *Navigator) Commit() int {
	idx := n.index
	n.Dismiss()
	return idx
}

// Dismiss clears the dropdown state, as on Escape.
func (n *Navigator) Dismiss() {
	n.size = 0
	n.index = -1
}

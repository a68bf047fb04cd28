package watcher

import (
	"sort"
	"sync"
	"time"
)

// Op is the kind of file system change.
type Op int

const (
	OpCreate Op = iota
	OpWrite
	OpRemove
	OpRename
)

func (op Op) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpWrite:
		return "write"
	case OpRemove:
		return "remove"
	case OpRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Change is one path's net change within a debounce window.
type Change struct {
	Path string
	Op   Op
}

// Debouncer collects changes and emits them as one batch, sorted by path, once no
// new change has arrived for the interval.
type Debouncer struct {
	interval time.Duration
	output   chan []Change

	mu      sync.Mutex
	pending map[string]Op
	timer   *time.Timer
	stopped bool
}

// NewDebouncer creates a debouncer with the given quiet interval.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{
		interval: interval,
		output:   make(chan []Change, 16),
		pending:  make(map[string]Op),
	}
}

// Output returns the channel batches are delivered on.
func (d *Debouncer) Output() <-chan []Change {
	return d.output
}

// Add records a change. A write to a path created in the same window stays a create;
// otherwise the latest operation wins.
func (d *Debouncer) Add(path string, op Op) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if prev, ok := d.pending[path]; ok && prev == OpCreate && op == OpWrite {
		op = OpCreate
	}
	d.pending[path] = op

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, d.flush)
}

// Stop discards pending changes and closes the output channel.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = nil
	close(d.output)
}

func (d *Debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped || len(d.pending) == 0 {
		return
	}

	batch := make([]Change, 0, len(d.pending))
	for path, op := range d.pending {
		batch = append(batch, Change{Path: path, Op: op})
	}
	sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })

	d.pending = make(map[string]Op)
	d.output <- batch
}

// Package lazyimage fetches images once they come near the viewport.
//
// Every registered image is a Handle that moves Pending -> Loading and then
// to Loaded or Failed. A handle leaves Pending at most once and is never
// retried; terminal handles are no longer observed.
package lazyimage

import (
	"context"
	"errors"
	"sync"

	"github.com/sw33tLie/galshelf/pkg/logging"
)

// State is the lifecycle state of a Handle.
type State int

const (
	Pending State = iota
	Loading
	Loaded
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// DefaultMargin is how far below the viewport an image may sit and still be
// fetched, in pixels.
const DefaultMargin = 200

// ErrReset fails handles whose fetch was abandoned by Reset or Close.
var ErrReset = errors.New("lazyimage: scheduler reset")

// Rect is an axis-aligned rectangle in page coordinates.
type Rect struct {
	X, Y, W, H float64
}

// Intersects reports whether r and o overlap. Touching edges count.
func (r Rect) Intersects(o Rect) bool {
	return r.X <= o.X+o.W && o.X <= r.X+r.W && r.Y <= o.Y+o.H && o.Y <= r.Y+r.H
}

// FetchFunc downloads the image at url.
type FetchFunc func(ctx context.Context, url string) ([]byte, error)

// Options configures a Scheduler.
type Options struct {
	Fetch FetchFunc
	// Margin extends the viewport downwards. Zero means DefaultMargin;
	// NoMargin observes the exact viewport.
	Margin float64
	// Concurrency bounds simultaneous fetches. Defaults to 6 if <= 0.
	Concurrency int
	// OnLoaded and OnFailed are called from fetch goroutines.
	OnLoaded func(h *Handle)
	OnFailed func(h *Handle, err error)
	Log      logging.Logger // optional; nil = no logging
}

// NoMargin disables the viewport extension.
const NoMargin = -1

// Handle is the future for one image.
type Handle struct {
	ID     string
	URL    string
	Bounds Rect

	s     *Scheduler
	gen   uint64
	state State
	data  []byte
	err   error
	done  chan struct{}
}

// State returns the current state.
func (h *Handle) State() State {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	return h.state
}

// Done is closed once the handle reaches Loaded or Failed.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until the handle is terminal or ctx ends.
func (h *Handle) Wait(ctx context.Context) ([]byte, error) {
	select {
	case <-h.done:
		return h.Result()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Result returns the fetched bytes or the failure. Before the handle is
// terminal both are nil.
func (h *Handle) Result() ([]byte, error) {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	return h.data, h.err
}

// Scheduler tracks registered handles and runs their fetches.
type Scheduler struct {
	opts Options
	log  logging.Logger
	sem  chan struct{}

	mu       sync.Mutex
	gen      uint64
	ctx      context.Context
	cancel   context.CancelFunc
	observed []*Handle
	wg       sync.WaitGroup
	closed   bool
}

// New returns a Scheduler. opts.Fetch is required.
func New(opts Options) *Scheduler {
	if opts.Margin == 0 {
		opts.Margin = DefaultMargin
	} else if opts.Margin < 0 {
		opts.Margin = 0
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 6
	}
	log := logging.OrNop(opts.Log)
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		opts:   opts,
		log:    log,
		sem:    make(chan struct{}, concurrency),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Register adds an image to observe. An empty URL yields a handle that is
// already Failed.
func (s *Scheduler) Register(id, url string, bounds Rect) *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := &Handle{ID: id, URL: url, Bounds: bounds, s: s, gen: s.gen, done: make(chan struct{})}
	if url == "" || s.closed {
		h.state = Failed
		h.err = errors.New("lazyimage: no image url")
		if s.closed {
			h.err = ErrReset
		}
		close(h.done)
		return h
	}
	s.observed = append(s.observed, h)
	return h
}

// Observe reports the current viewport. Every pending handle whose bounds
// intersect the viewport extended by the margin starts loading. It returns
// the handles it started.
func (s *Scheduler) Observe(viewport Rect) []*Handle {
	area := viewport
	area.H += s.opts.Margin

	s.mu.Lock()
	var started []*Handle
	kept := s.observed[:0]
	for _, h := range s.observed {
		if h.state == Pending && h.Bounds.Intersects(area) {
			s.startLocked(h)
			started = append(started, h)
			continue
		}
		if h.state == Pending {
			kept = append(kept, h)
		}
	}
	for i := len(kept); i < len(s.observed); i++ {
		s.observed[i] = nil
	}
	s.observed = kept
	s.mu.Unlock()
	return started
}

// Trigger starts h directly, for callers that have their own intersection
// events. It reports whether this call moved h out of Pending.
func (s *Scheduler) Trigger(h *Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h.s != s || h.state != Pending || h.gen != s.gen {
		return false
	}
	s.startLocked(h)
	for i, o := range s.observed {
		if o == h {
			s.observed = append(s.observed[:i], s.observed[i+1:]...)
			break
		}
	}
	return true
}

// Pending returns how many handles are still observed.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.observed)
}

func (s *Scheduler) startLocked(h *Handle) {
	h.state = Loading
	ctx := s.ctx
	s.wg.Add(1)
	go s.fetch(ctx, h)
}

func (s *Scheduler) fetch(ctx context.Context, h *Handle) {
	defer s.wg.Done()

	var (
		data []byte
		err  error
	)
	select {
	case s.sem <- struct{}{}:
		s.log.Debugf("Fetching image %s", h.URL)
		data, err = s.opts.Fetch(ctx, h.URL)
		<-s.sem
	case <-ctx.Done():
		err = ErrReset
	}
	if ctx.Err() != nil {
		data, err = nil, ErrReset
	}

	s.mu.Lock()
	if err != nil {
		h.state, h.err = Failed, err
	} else {
		h.state, h.data = Loaded, data
	}
	current := h.gen == s.gen
	close(h.done)
	s.mu.Unlock()

	if !current {
		return
	}
	if err != nil {
		s.log.Warnf("Image %s failed: %v", h.URL, err)
		if s.opts.OnFailed != nil {
			s.opts.OnFailed(h, err)
		}
		return
	}
	if s.opts.OnLoaded != nil {
		s.opts.OnLoaded(h)
	}
}

// Reset forgets every handle for a fresh load. In-flight fetches are
// cancelled and their handles fail with ErrReset without callbacks.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	s.cancel()
	s.gen++
	s.ctx, s.cancel = context.WithCancel(context.Background())
	pending := s.observed
	s.observed = nil
	s.mu.Unlock()

	s.failPending(pending)
}

// Close cancels everything and waits for in-flight fetches to finish.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	s.cancel()
	s.gen++
	pending := s.observed
	s.observed = nil
	s.mu.Unlock()

	s.failPending(pending)
	s.wg.Wait()
}

func (s *Scheduler) failPending(handles []*Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range handles {
		if h.state == Pending {
			h.state, h.err = Failed, ErrReset
			close(h.done)
		}
	}
}

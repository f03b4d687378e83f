package services

import (
	"context"
	"sync"
	"time"

	"kafe-pos/metrics"

	"github.com/sirupsen/logrus"
)

// Handler is the work a Poller runs on every tick.
type Handler func(ctx context.Context)

// Ticker is the part of *time.Ticker a Poller needs. Tests supply a manual one.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

func newTimeTicker(d time.Duration) Ticker { return timeTicker{time.NewTicker(d)} }

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithTicker replaces the wall-clock ticker.
func WithTicker(f func(time.Duration) Ticker) PollerOption {
	return func(p *Poller) { p.newTicker = f }
}

func WithPollerLogger(log *logrus.Entry) PollerOption {
	return func(p *Poller) { p.log = log }
}

// Poller runs a handler once on Start and then every interval until Stop.
// The handler is looked up on every tick, so SetHandler takes effect on the next one.
// Ticks do not wait for the previous handler to return; overlapping runs are the
// handler's concern.
type Poller struct {
	name      string
	interval  time.Duration
	newTicker func(time.Duration) Ticker
	log       *logrus.Entry

	mu      sync.Mutex
	handler Handler
	running bool
	done    chan struct{}
	exited  chan struct{}
}

func NewPoller(name string, interval time.Duration, h Handler, opts ...PollerOption) *Poller {
	p := &Poller{
		name:      name,
		interval:  interval,
		handler:   h,
		newTicker: newTimeTicker,
		log:       logrus.WithField("poller", name),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Poller) SetHandler(h Handler) {
	p.mu.Lock()
	p.handler = h
	p.mu.Unlock()
}

func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Start runs the handler immediately and starts the tick loop. It is a no-op when the
// poller is already running. The loop also ends when ctx is cancelled.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.done = make(chan struct{})
	p.exited = make(chan struct{})
	done, exited := p.done, p.exited
	p.mu.Unlock()

	metrics.PollerStarted()
	p.log.Debug("poller started")
	p.fire(ctx)

	ticker := p.newTicker(p.interval)
	go p.loop(ctx, ticker, done, exited)
}

func (p *Poller) loop(ctx context.Context, ticker Ticker, done, exited chan struct{}) {
	defer close(exited)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			p.mu.Lock()
			if p.done == done && p.running {
				p.running = false
				metrics.PollerStopped()
			}
			p.mu.Unlock()
			return
		case <-ticker.C():
			// A tick and Stop can be ready together; Stop wins.
			select {
			case <-done:
				return
			default:
			}
			p.fire(ctx)
		}
	}
}

func (p *Poller) fire(ctx context.Context) {
	p.mu.Lock()
	h := p.handler
	p.mu.Unlock()
	if h == nil {
		return
	}
	metrics.RecordPollTick(p.name)
	go h(ctx)
}

// Stop ends the tick loop and waits for it to exit. After Stop returns the handler is
// not invoked again; runs already started are left to finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	done, exited := p.done, p.exited
	close(done)
	p.mu.Unlock()

	<-exited
	metrics.PollerStopped()
	p.log.Debug("poller stopped")
}

// SetActive starts or stops the poller; it mirrors a screen gaining or losing focus.
func (p *Poller) SetActive(ctx context.Context, active bool) {
	if active {
		p.Start(ctx)
		return
	}
	p.Stop()
}

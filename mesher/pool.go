package mesher

import (
	"context"
	"errors"
	"sync"

	"github.com/johnbchron/mage-corp-sub000/collider"
	"github.com/johnbchron/mage-corp-sub000/mesh"
)

// Result is the outcome of one pooled request.
type Result struct {
	Mesh     *mesh.BufMesh
	Collider *collider.Shape
	Err      error
}

type poolTask struct {
	ctx context.Context
	req MeshRequest
	out chan<- Result
}

// Pool runs mesh requests on a fixed set of workers. Each request is
// handled by one worker start to finish; there is no ordering guarantee
// between concurrent requests.
type Pool struct {
	builder *Builder
	tasks   chan poolTask
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

// ErrPoolClosed reports a submit after Close.
var ErrPoolClosed = errors.New("mesher: pool closed")

// NewPool starts workers goroutines serving requests against b.
func NewPool(b *Builder, workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{
		builder: b,
		tasks:   make(chan poolTask),
		done:    make(chan struct{}),
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.done:
			return
		case t := <-p.tasks:
			if err := t.ctx.Err(); err != nil {
				t.out <- Result{Err: err}
				continue
			}
			m, c, err := p.builder.BuildMesh(t.ctx, t.req)
			t.out <- Result{Mesh: m, Collider: c, Err: err}
		}
	}
}

// Submit queues a request and returns a channel carrying its single
// result. A canceled context abandons the request; the channel always
// receives exactly one value.
func (p *Pool) Submit(ctx context.Context, req MeshRequest) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		select {
		case p.tasks <- poolTask{ctx: ctx, req: req, out: out}:
		case <-ctx.Done():
			out <- Result{Err: ctx.Err()}
		case <-p.done:
			out <- Result{Err: ErrPoolClosed}
		}
	}()
	return out
}

// Close stops the workers and rejects further submissions. Requests a
// worker already picked up run to their next cancellation check.
func (p *Pool) Close() {
	p.once.Do(func() { close(p.done) })
	p.wg.Wait()
}

package qmps

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
)

/*
Pool is a bounded set of workers for independent shots. The queue and the
result channel are sized for a whole batch up front, so Schedule never
blocks and workers never wait on a slow reader.
*/
type Pool struct {
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	workers chan chan Job
	jobs    chan Job
	results chan ShotResult
	metrics *Metrics
	log     *log.Logger
}

// NewPool starts workers goroutines with room for queue pending shots.
func NewPool(ctx context.Context, workers, queue int, metrics *Metrics, logger *log.Logger) *Pool {
	ctx, cancel := context.WithCancel(ctx)
	p := &Pool{
		ctx:     ctx,
		cancel:  cancel,
		workers: make(chan chan Job, workers),
		jobs:    make(chan Job, queue),
		results: make(chan ShotResult, queue),
		metrics: metrics,
		log:     logger.WithPrefix("pool"),
	}

	for i := 0; i < workers; i++ {
		p.startWorker()
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.manage()
	}()

	return p
}

func (p *Pool) manage() {
	for {
		select {
		case <-p.ctx.Done():
			return
		case job := <-p.jobs:
			select {
			case workerChan := <-p.workers:
				select {
				case workerChan <- job:
				case <-p.ctx.Done():
					return
				}
			case <-p.ctx.Done():
				return
			}
		}
	}
}

func (p *Pool) startWorker() {
	worker := &Worker{
		pool: p,
		jobs: make(chan Job),
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		worker.run(p.ctx)
	}()
}

// Schedule queues a job. It fails once the pool is closed or the queue is
// full.
func (p *Pool) Schedule(job Job) error {
	if err := p.ctx.Err(); err != nil {
		return errors.Wrapf(err, "scheduling shot %d", job.Shot)
	}

	select {
	case p.jobs <- job:
		return nil
	default:
		return errors.Errorf("shot queue full at shot %d", job.Shot)
	}
}

func (p *Pool) Results() <-chan ShotResult {
	return p.results
}

// Close stops every worker and waits for them to return.
func (p *Pool) Close() {
	if p == nil {
		return
	}

	p.cancel()
	p.wg.Wait()
	p.log.Debug("shot pool closed")
}

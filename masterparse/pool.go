package masterparse

import (
	"runtime"
	"sync"

	"github.com/alitto/pond"

	"github.com/cvsup/cvsup/model"
)

// Pool drives bounded-concurrency parsing of a batch of Sources through a
// shared Parser, the same pond.New(size, 0, pond.MinWorkers(10))
// worker-pool shape used elsewhere in this module for blob persistence,
// submitting one closure per unit of work.
type Pool struct {
	pool   *pond.WorkerPool
	parser Parser
}

// NewPool returns a Pool with size workers, defaulting to runtime.NumCPU()
// when size is not positive.
func NewPool(parser Parser, size int) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	return &Pool{pool: pond.New(size, 0, pond.MinWorkers(10)), parser: parser}
}

// ParseAll parses every source concurrently and returns one Master (or
// error) per source, in the same order sources was given.
func (p *Pool) ParseAll(sources []Source) ([]*model.Master, []error) {
	masters := make([]*model.Master, len(sources))
	errs := make([]error, len(sources))
	var wg sync.WaitGroup
	for i, src := range sources {
		i, src := i, src
		wg.Add(1)
		p.pool.Submit(func() {
			defer wg.Done()
			m, err := p.parser.Parse(src)
			masters[i] = m
			errs[i] = err
		})
	}
	wg.Wait()
	return masters, errs
}

// StopAndWait shuts the underlying worker pool down, releasing its
// goroutines. Call once the caller is done submitting batches.
func (p *Pool) StopAndWait() {
	p.pool.StopAndWait()
}

package mps

import "golang.org/x/sync/errgroup"

/*
parallelFor runs fn for every i in [0, n). Once the chain is at least
ParallelThreshold qubits long and more than one thread is configured, the
iterations are spread over at most Threads goroutines. It returns only
when every iteration has finished, so callers stay synchronous.
*/
func (s *MPS) parallelFor(n int, fn func(i int)) {
	if s.opts.Threads <= 1 || s.n < s.opts.ParallelThreshold || n < 2 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}

	var g errgroup.Group
	g.SetLimit(s.opts.Threads)

	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			fn(i)
			return nil
		})
	}

	_ = g.Wait()
}

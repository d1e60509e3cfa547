package engine

import "golang.org/x/sync/errgroup"

// defaultParallelMin is the item count below which a stage runs inline even
// when several workers are configured.
const defaultParallelMin = 256

// forEachRange splits [0, n) into contiguous chunks and runs fn on each, in
// parallel when the simulation has more than one worker and n is large
// enough. Shard numbers are dense and ordered by range, so concatenating
// per-shard output in shard order reproduces the sequential order.
func (s *Simulation) forEachRange(n int, fn func(lo, hi, shard int) error) error {
	if n == 0 {
		return nil
	}
	w := s.workers
	if w <= 1 || n < s.parallelMin {
		return fn(0, n, 0)
	}

	chunk := (n + w - 1) / w
	var g errgroup.Group
	g.SetLimit(w)
	for shard := 0; shard*chunk < n; shard++ {
		lo := shard * chunk
		hi := min(lo+chunk, n)
		g.Go(func() error {
			return fn(lo, hi, shard)
		})
	}
	return g.Wait()
}

// shards returns the number of shards forEachRange may use for n items.
func (s *Simulation) shards(n int) int {
	if s.workers <= 1 || n < s.parallelMin {
		return 1
	}
	return s.workers
}

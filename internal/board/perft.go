package board

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Perft counts the leaf nodes of the legal move tree to the given depth.
func (p *Position) Perft(depth int) uint64 {
	if depth <= 0 {
		return 1
	}
	var ml MoveList
	p.GenerateLegalMoves(&ml)
	if depth == 1 {
		return uint64(ml.Len())
	}
	var nodes uint64
	for _, m := range ml.Slice() {
		undo := p.MakeMove(m)
		nodes += p.Perft(depth - 1)
		p.UnmakeMove(m, undo)
	}
	return nodes
}

// DivideEntry is the subtree size below one root move.
type DivideEntry struct {
	Move  Move
	Nodes uint64
}

// Divide splits Perft(depth) by root move, sorted by move text.
func (p *Position) Divide(depth int) []DivideEntry {
	var ml MoveList
	p.GenerateLegalMoves(&ml)
	out := make([]DivideEntry, 0, ml.Len())
	for _, m := range ml.Slice() {
		undo := p.MakeMove(m)
		out = append(out, DivideEntry{Move: m, Nodes: p.Perft(depth - 1)})
		p.UnmakeMove(m, undo)
	}
	sortDivide(out)
	return out
}

// DivideParallel is Divide with one goroutine per root move, each on its
// own copy of the position. It stops early when ctx is cancelled.
func (p *Position) DivideParallel(ctx context.Context, depth, workers int) ([]DivideEntry, error) {
	var ml MoveList
	p.GenerateLegalMoves(&ml)
	out := make([]DivideEntry, ml.Len())

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, m := range ml.Slice() {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			child := p.Copy()
			child.MakeMove(m)
			out[i] = DivideEntry{Move: m, Nodes: child.Perft(depth - 1)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sortDivide(out)
	return out, nil
}

// PerftParallel sums DivideParallel.
func (p *Position) PerftParallel(ctx context.Context, depth, workers int) (uint64, error) {
	if depth <= 1 {
		return p.Perft(depth), nil
	}
	entries, err := p.DivideParallel(ctx, depth, workers)
	if err != nil {
		return 0, err
	}
	var total uint64
	for _, e := range entries {
		total += e.Nodes
	}
	return total, nil
}

func sortDivide(d []DivideEntry) {
	sort.Slice(d, func(i, j int) bool { return d[i].Move.String() < d[j].Move.String() })
}

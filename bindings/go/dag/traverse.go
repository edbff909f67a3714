package dag

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

type DiscoveryState int

const (
	StateDiscovering DiscoveryState = iota
	StateDiscovered
	StateCompleted
	StateError
)

const (
	AttributeDiscoveryState = "dag/discovery-state"
	AttributeOrderIndex     = "dag/order-index"
)

// TraversalFunc returns the neighbors of v. It SHOULD treat v as read-only.
type TraversalFunc[T cmp.Ordered] func(ctx context.Context, v *Vertex[T]) (neighbors []*Vertex[T], err error)

type TraverseOptions struct {
	GoRoutineLimit int
}

type TraverseOption func(*TraverseOptions)

// WithGoRoutineLimit limits the number of neighbors traversed concurrently
// per vertex. A limit of 1 yields a sequential traversal.
func WithGoRoutineLimit(numGoRoutines int) TraverseOption {
	return func(options *TraverseOptions) {
		options.GoRoutineLimit = numGoRoutines
	}
}

// Traverse performs a concurrent depth-first discovery of the graph starting
// at the given roots. The traversalFunc is called exactly once per vertex and
// returns its neighbors, which are added to the graph together with an edge
// from the vertex. The order of the returned neighbors is kept in the
// AttributeOrderIndex attribute of the neighbor the first time it is seen.
//
// Every vertex carries an AttributeDiscoveryState:
//   - StateDiscovering: added, but the traversalFunc has not run yet.
//   - StateDiscovered: the traversalFunc ran, neighbors are still in progress.
//   - StateCompleted: the vertex and everything reachable from it is done.
//   - StateError: the traversal failed at or below this vertex.
//
// The first error stops the traversal. An edge that would close a cycle
// surfaces as a *CycleError.
func (d *DirectedAcyclicGraph[T]) Traverse(
	ctx context.Context,
	traversalFunc TraversalFunc[T],
	roots []*Vertex[T],
	options ...TraverseOption,
) error {
	d.traverseMu.Lock()
	defer d.traverseMu.Unlock()

	opts := &TraverseOptions{}
	for _, opt := range options {
		opt(opts)
	}
	if opts.GoRoutineLimit <= 0 {
		opts.GoRoutineLimit = runtime.NumCPU()
	}

	doneMap := &sync.Map{}
	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(opts.GoRoutineLimit)
	for _, root := range roots {
		if err := d.AddVertex(root, map[string]any{
			AttributeDiscoveryState: StateDiscovering,
		}); err != nil && !errors.Is(err, ErrAlreadyExists) {
			return fmt.Errorf("failed to add vertex for root %v: %w", root.ID, err)
		}
		id := root.ID
		eg.Go(func() error {
			return d.traverse(egctx, id, traversalFunc, doneMap, opts)
		})
	}
	return eg.Wait()
}

func (d *DirectedAcyclicGraph[T]) traverse(
	ctx context.Context,
	id T,
	process TraversalFunc[T],
	doneMap *sync.Map,
	opts *TraverseOptions,
) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	// A loaded channel means another goroutine owns this vertex.
	doneCh, loaded := doneMap.LoadOrStore(id, make(chan struct{}))
	done := doneCh.(chan struct{})
	if loaded {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-done:
		}
		return nil
	}
	defer close(done)

	vertex, ok := d.GetVertex(id)
	if !ok {
		return fmt.Errorf("vertex %v: %w", id, ErrNotFound)
	}

	neighbors, err := process(ctx, vertex)
	if err != nil {
		vertex.Attributes.Store(AttributeDiscoveryState, StateError)
		return fmt.Errorf("failed to process %v: %w", id, err)
	}
	vertex.Attributes.Store(AttributeDiscoveryState, StateDiscovered)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(opts.GoRoutineLimit)
	for index, ref := range neighbors {
		if err := d.AddVertex(ref, map[string]any{
			AttributeDiscoveryState: StateDiscovering,
			AttributeOrderIndex:     index,
		}); err != nil && !errors.Is(err, ErrAlreadyExists) {
			return d.abort(vertex, cancel, eg, fmt.Errorf("failed to add vertex for %v: %w", ref.ID, err))
		}
		if err := d.AddEdge(id, ref.ID); err != nil {
			return d.abort(vertex, cancel, eg, err)
		}
		refID := ref.ID
		eg.Go(func() error {
			if err := d.traverse(egctx, refID, process, doneMap, opts); err != nil {
				return fmt.Errorf("failed to traverse %v: %w", refID, err)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		vertex.Attributes.Store(AttributeDiscoveryState, StateError)
		return err
	}
	vertex.Attributes.Store(AttributeDiscoveryState, StateCompleted)
	return nil
}

// abort stops the neighbors already started and marks vertex as failed.
func (d *DirectedAcyclicGraph[T]) abort(vertex *Vertex[T], cancel context.CancelFunc, eg *errgroup.Group, err error) error {
	cancel()
	_ = eg.Wait()
	vertex.Attributes.Store(AttributeDiscoveryState, StateError)
	return err
}

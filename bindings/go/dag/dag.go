// # Modified from https://github.com/kro-run/kro/blob/7e437f2fe159a1e1c59d8eefd2bfa55320df4489/pkg/graph/dag/dag.go under Apache 2.0 License
//
// Original License:
//
// Copyright 2025 The Kube Resource Orchestrator Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License"). You may
// not use this file except in compliance with the License. A copy of the
// License is located at
//
//     http://aws.amazon.com/apache2.0/
//
// or in the "license" file accompanying this file. This file is distributed
// on an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either
// express or implied. See the License for the specific language governing
// permissions and limitations under the License.
//
// We would like to thank the authors of kro for their outstanding work on this code.

// Package dag provides a concurrency safe directed acyclic graph. It is used to
// model dependencies between the projects of a build, where an edge from a to b
// means that a depends on b.
package dag

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

var (
	ErrSelfReference = errors.New("self-references are not allowed")
	ErrAlreadyExists = errors.New("vertex already exists in the graph")
	ErrNotFound      = errors.New("vertex does not exist in the graph")
)

// Vertex represents a node in a directed acyclic graph.
type Vertex[T cmp.Ordered] struct {
	// ID is a unique identifier for the vertex, such as a project path.
	ID T
	// Attributes stores arbitrary attributes of the vertex.
	Attributes *sync.Map // map[string]any
	// Edges stores the IDs of the vertices this vertex has an outgoing edge to.
	Edges *sync.Map // map[T]struct{}
}

// NewVertex creates a vertex with the given attributes. It is the preferred way
// to hand neighbors back from a TraversalFunc.
func NewVertex[T cmp.Ordered](id T, attributes ...map[string]any) *Vertex[T] {
	v := &Vertex[T]{
		ID:         id,
		Attributes: &sync.Map{},
		Edges:      &sync.Map{},
	}
	for _, attrs := range attributes {
		for k, val := range attrs {
			v.Attributes.Store(k, val)
		}
	}
	return v
}

// Attribute returns the attribute stored under key, if any.
func (v *Vertex[T]) Attribute(key string) (any, bool) {
	return v.Attributes.Load(key)
}

// Neighbors returns the targets of the outgoing edges in sorted order.
func (v *Vertex[T]) Neighbors() []T {
	var ids []T
	v.Edges.Range(func(key, _ any) bool {
		ids = append(ids, key.(T))
		return true
	})
	slices.Sort(ids)
	return ids
}

// DirectedAcyclicGraph represents a directed acyclic graph.
type DirectedAcyclicGraph[T cmp.Ordered] struct {
	// traverseMu serializes whole traversals on the same graph.
	traverseMu sync.Mutex
	// mu guards edge insertion so that the cycle check sees a stable graph.
	mu sync.Mutex

	// Vertices stores the vertices in the graph.
	Vertices *sync.Map // map[T]*Vertex[T]
	// InDegree of each vertex (number of incoming edges).
	InDegree *sync.Map // map[T]int
}

// NewDirectedAcyclicGraph creates a new, empty directed acyclic graph.
func NewDirectedAcyclicGraph[T cmp.Ordered]() *DirectedAcyclicGraph[T] {
	return &DirectedAcyclicGraph[T]{
		Vertices: &sync.Map{},
		InDegree: &sync.Map{},
	}
}

// AddVertex adds v to the graph. Edges set on v are ignored, use AddEdge.
func (d *DirectedAcyclicGraph[T]) AddVertex(v *Vertex[T], attributes ...map[string]any) error {
	vertex := NewVertex(v.ID)
	if v.Attributes != nil {
		v.Attributes.Range(func(key, value any) bool {
			vertex.Attributes.Store(key, value)
			return true
		})
	}
	for _, attrs := range attributes {
		for k, val := range attrs {
			vertex.Attributes.Store(k, val)
		}
	}
	if _, loaded := d.Vertices.LoadOrStore(v.ID, vertex); loaded {
		return fmt.Errorf("vertex %v: %w", v.ID, ErrAlreadyExists)
	}
	d.InDegree.Store(v.ID, 0)
	return nil
}

// GetVertex returns the vertex with the given id.
func (d *DirectedAcyclicGraph[T]) GetVertex(id T) (*Vertex[T], bool) {
	v, ok := d.Vertices.Load(id)
	if !ok {
		return nil, false
	}
	vertex, ok := v.(*Vertex[T])
	return vertex, ok
}

// Contains reports whether a vertex with the given id is part of the graph.
func (d *DirectedAcyclicGraph[T]) Contains(id T) bool {
	_, ok := d.Vertices.Load(id)
	return ok
}

// GetVertices returns the ids of all vertices in sorted order.
func (d *DirectedAcyclicGraph[T]) GetVertices() []T {
	ids := make([]T, 0)
	d.Vertices.Range(func(key, _ any) bool {
		ids = append(ids, key.(T))
		return true
	})
	slices.Sort(ids)
	return ids
}

// Roots returns the ids of all vertices without incoming edges in sorted order.
func (d *DirectedAcyclicGraph[T]) Roots() []T {
	var roots []T
	d.InDegree.Range(func(key, value any) bool {
		if value.(int) == 0 {
			roots = append(roots, key.(T))
		}
		return true
	})
	slices.Sort(roots)
	return roots
}

// CycleError is returned when an edge would close a cycle.
type CycleError struct {
	Cycle []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("the graph would contain a cycle: %s", strings.Join(e.Cycle, " -> "))
}

// AddEdge adds a directed edge from one vertex to another. Adding an existing
// edge is a no-op. An edge that would close a cycle is rejected with a
// *CycleError.
func (d *DirectedAcyclicGraph[T]) AddEdge(from, to T) error {
	fromVertex, ok := d.GetVertex(from)
	if !ok {
		return fmt.Errorf("vertex %v: %w", from, ErrNotFound)
	}
	if !d.Contains(to) {
		return fmt.Errorf("vertex %v: %w", to, ErrNotFound)
	}
	if from == to {
		return fmt.Errorf("edge %v -> %v: %w", from, to, ErrSelfReference)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := fromVertex.Edges.Load(to); exists {
		return nil
	}
	if path := d.path(to, from); path != nil {
		cycle := make([]string, 0, len(path)+1)
		cycle = append(cycle, fmt.Sprintf("%v", from))
		for _, id := range path {
			cycle = append(cycle, fmt.Sprintf("%v", id))
		}
		return fmt.Errorf("adding an edge from %v to %v: %w", from, to, &CycleError{Cycle: cycle})
	}

	fromVertex.Edges.Store(to, struct{}{})
	inDegree, _ := d.InDegree.Load(to)
	d.InDegree.Store(to, inDegree.(int)+1)
	return nil
}

// path returns a path from src to dst following outgoing edges in sorted
// order, or nil if dst is not reachable from src.
func (d *DirectedAcyclicGraph[T]) path(src, dst T) []T {
	visited := make(map[T]bool)
	var walk func(T) []T
	walk = func(id T) []T {
		if id == dst {
			return []T{id}
		}
		visited[id] = true
		vertex, ok := d.GetVertex(id)
		if !ok {
			return nil
		}
		for _, next := range vertex.Neighbors() {
			if visited[next] {
				continue
			}
			if rest := walk(next); rest != nil {
				return append([]T{id}, rest...)
			}
		}
		return nil
	}
	return walk(src)
}

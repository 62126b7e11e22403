// Package graph provides core data structures and algorithms for graph-based
// network flow computations.
//
// This file implements Breadth-First Search (BFS) variants used by flow algorithms:
//   - Parent BFS for finding augmenting paths (Edmonds-Karp)
//   - Level BFS for building level graphs (Dinic's algorithm)
//   - Reverse BFS for computing node heights (Push-Relabel)
//   - Reachability BFS for min-cut extraction
//
// All variants walk arc lists in insertion order, so repeated runs on the
// same graph always visit nodes in the same sequence.
package graph

// =============================================================================
// Queue Implementation
// =============================================================================

// Queue provides an efficient FIFO queue for BFS traversal.
// It uses a slice with a head pointer to avoid repeated allocations
// during typical BFS operations.
type Queue struct {
	data []int // Underlying storage
	head int   // Index of next element to dequeue
}

// NewQueue creates a new Queue with the specified initial capacity.
// The capacity should be set to the expected maximum queue size
// (typically the number of nodes in the graph for BFS).
func NewQueue(capacity int) *Queue {
	return &Queue{
		data: make([]int, 0, capacity),
		head: 0,
	}
}

// Push adds an element to the end of the queue.
// Amortized O(1) time complexity.
func (q *Queue) Push(v int) {
	q.data = append(q.data, v)
}

// Pop removes and returns the element at the front of the queue.
// O(1) time complexity.
//
// Panics if the queue is empty. Always check Empty() before calling Pop().
func (q *Queue) Pop() int {
	v := q.data[q.head]
	q.head++
	return v
}

// Empty returns true if the queue contains no elements.
func (q *Queue) Empty() bool {
	return q.head >= len(q.data)
}

// Len returns the number of elements currently in the queue.
func (q *Queue) Len() int {
	return len(q.data) - q.head
}

// Reset clears the queue for reuse, keeping the underlying capacity.
// This is more efficient than creating a new queue.
func (q *Queue) Reset() {
	q.data = q.data[:0]
	q.head = 0
}

// =============================================================================
// Parent BFS
// =============================================================================

// BFSResult encapsulates the result of a parent-tracking BFS traversal.
//
// ParentNode[v] and ParentArc[v] identify the arc that discovered node v:
// the arc at position ParentArc[v] in ParentNode[v]'s arc list. Unvisited
// nodes carry -1 in both slices.
type BFSResult struct {
	Found      bool
	ParentNode []int
	ParentArc  []int
}

// BFSParent performs breadth-first search from source to sink over arcs
// with positive residual capacity. This is the search used by the
// augmenting-path algorithm.
//
// Returns as soon as the sink is found (early termination).
//
// Time Complexity: O(V + E)
// Space Complexity: O(V)
func BFSParent(r *Residual, source, sink int) *BFSResult {
	n := r.NodeCount()
	result := &BFSResult{
		ParentNode: make([]int, n),
		ParentArc:  make([]int, n),
	}
	for i := range result.ParentNode {
		result.ParentNode[i] = -1
		result.ParentArc[i] = -1
	}

	visited := make([]bool, n)
	visited[source] = true

	queue := NewQueue(n)
	queue.Push(source)

	for !queue.Empty() {
		u := queue.Pop()

		for i, arc := range r.Arcs(u) {
			v := arc.To

			// Only traverse arcs with positive residual capacity
			if visited[v] || arc.Capacity <= Epsilon {
				continue
			}
			visited[v] = true
			result.ParentNode[v] = u
			result.ParentArc[v] = i

			// Early termination when sink is found
			if v == sink {
				result.Found = true
				return result
			}
			queue.Push(v)
		}
	}

	return result
}

// =============================================================================
// Level BFS (for Dinic's Algorithm)
// =============================================================================

// BFSLevel computes BFS distances from the source over arcs with positive
// residual capacity. Dinic's algorithm uses the result as its level graph:
// only arcs going from level i to level i+1 participate in a phase.
//
// Unreachable nodes get level -1.
func BFSLevel(r *Residual, source int) []int {
	n := r.NodeCount()
	level := make([]int, n)
	for i := range level {
		level[i] = -1
	}
	level[source] = 0

	queue := NewQueue(n)
	queue.Push(source)

	for !queue.Empty() {
		u := queue.Pop()

		for _, arc := range r.Arcs(u) {
			v := arc.To
			if level[v] < 0 && arc.Capacity > Epsilon {
				level[v] = level[u] + 1
				queue.Push(v)
			}
		}
	}

	return level
}

// =============================================================================
// Reverse BFS (for Push-Relabel)
// =============================================================================

// BFSReverse computes exact distance labels to the sink by walking arcs
// backwards: node v is one step from u when the arc (v, u) still has
// residual capacity. Push-Relabel uses the result for global relabeling.
//
// Nodes that cannot reach the sink get height -1.
func BFSReverse(r *Residual, sink int) []int {
	n := r.NodeCount()
	height := make([]int, n)
	for i := range height {
		height[i] = -1
	}
	height[sink] = 0

	queue := NewQueue(n)
	queue.Push(sink)

	for !queue.Empty() {
		u := queue.Pop()

		// An arc (u, v) whose paired arc (v, u) has capacity means
		// v can still push toward u.
		for _, arc := range r.Arcs(u) {
			v := arc.To
			if height[v] >= 0 {
				continue
			}
			paired := r.Arc(v, arc.Rev)
			if paired.Capacity > Epsilon {
				height[v] = height[u] + 1
				queue.Push(v)
			}
		}
	}

	return height
}

// =============================================================================
// Reachability BFS (for Min-Cut)
// =============================================================================

// ResidualReachable marks every node reachable from source over arcs with
// positive residual capacity. On a maximum flow this is exactly the source
// side of a minimum cut.
func ResidualReachable(r *Residual, source int) []bool {
	n := r.NodeCount()
	visited := make([]bool, n)
	visited[source] = true

	queue := NewQueue(n)
	queue.Push(source)

	for !queue.Empty() {
		u := queue.Pop()

		for _, arc := range r.Arcs(u) {
			if !visited[arc.To] && arc.Capacity > Epsilon {
				visited[arc.To] = true
				queue.Push(arc.To)
			}
		}
	}

	return visited
}

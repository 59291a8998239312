// Package graph models the undirected trading network between participants
// and its traversal algorithms: BFS shortest path, bounded all-paths
// enumeration, connected-component clustering, and radial layout.
//
// Queries on unknown nodes degrade to empty/false results, never errors, so
// orchestration code need not pre-check existence. The graph is internally
// locked: the periodic layout refresher iterates the same maps the trading
// path mutates.
package graph

import (
	"math"
	"slices"
	"sync"
)

// Position is a 2D layout coordinate. Purely cosmetic.
type Position struct {
	X float64
	Y float64
}

// DefaultMaxDepth bounds AllPaths enumeration when the caller passes zero.
const DefaultMaxDepth = 3

// Network is an undirected adjacency model over participant identifiers.
// Neighbor lists preserve insertion order; edges are deduplicated on add.
type Network struct {
	mu        sync.RWMutex
	adjacency map[string][]string
	positions map[string]Position
}

// New creates an empty trading network.
func New() *Network {
	return &Network{
		adjacency: make(map[string][]string),
		positions: make(map[string]Position),
	}
}

// AddLink records a trading relationship between a and b. Idempotent: an
// existing edge is not duplicated. Callers guard against self-loops.
func (n *Network) AddLink(a, b string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !slices.Contains(n.adjacency[a], b) {
		n.adjacency[a] = append(n.adjacency[a], b)
	}
	if !slices.Contains(n.adjacency[b], a) {
		n.adjacency[b] = append(n.adjacency[b], a)
	}
}

// RemoveLink deletes the relationship from both adjacency lists. Idempotent.
func (n *Network) RemoveLink(a, b string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if neighbors, ok := n.adjacency[a]; ok {
		n.adjacency[a] = slices.DeleteFunc(neighbors, func(id string) bool { return id == b })
	}
	if neighbors, ok := n.adjacency[b]; ok {
		n.adjacency[b] = slices.DeleteFunc(neighbors, func(id string) bool { return id == a })
	}
}

// Neighbors returns a copy of id's neighbor list, empty if id is unknown.
func (n *Network) Neighbors(id string) []string {
	n.mu.RLock()
	defer n.mu.RUnlock()

	return slices.Clone(n.adjacency[id])
}

// Connected reports whether b appears in a's adjacency list. False, not an
// error, when a is unknown.
func (n *Network) Connected(a, b string) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()

	return slices.Contains(n.adjacency[a], b)
}

// TotalLinks returns the number of undirected edges.
func (n *Network) TotalLinks() int {
	n.mu.RLock()
	defer n.mu.RUnlock()

	total := 0
	for _, neighbors := range n.adjacency {
		total += len(neighbors)
	}
	return total / 2
}

// ShortestPath runs BFS over unweighted edges and returns the node sequence
// from start to end inclusive. Returns nil when start == end, when either
// endpoint is absent, or when no path exists. Ties among equal-length paths
// follow BFS discovery order; callers must not depend on a specific
// tie-break beyond "some shortest path".
func (n *Network) ShortestPath(start, end string) []string {
	n.mu.RLock()
	defer n.mu.RUnlock()

	return n.shortestPathLocked(start, end)
}

func (n *Network) shortestPathLocked(start, end string) []string {
	if start == end {
		return nil
	}
	if _, ok := n.adjacency[start]; !ok {
		return nil
	}
	if _, ok := n.adjacency[end]; !ok {
		return nil
	}

	parent := map[string]string{start: ""}
	queue := []string{start}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if current == end {
			var path []string
			for node := end; node != ""; node = parent[node] {
				path = append(path, node)
			}
			slices.Reverse(path)
			return path
		}

		for _, neighbor := range n.adjacency[current] {
			if _, seen := parent[neighbor]; !seen {
				parent[neighbor] = current
				queue = append(queue, neighbor)
			}
		}
	}
	return nil
}

// AllPaths enumerates every simple path from start to end whose edge count
// does not exceed maxDepth (DefaultMaxDepth when maxDepth <= 0), using
// breadth-first expansion of partial paths. Result order is unspecified.
func (n *Network) AllPaths(start, end string, maxDepth int) [][]string {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	n.mu.RLock()
	defer n.mu.RUnlock()

	if _, ok := n.adjacency[start]; !ok {
		return nil
	}
	if _, ok := n.adjacency[end]; !ok {
		return nil
	}

	var paths [][]string
	queue := [][]string{{start}}

	for len(queue) > 0 {
		path := queue[0]
		queue = queue[1:]
		current := path[len(path)-1]

		if current == end {
			paths = append(paths, path)
			continue
		}
		if len(path)-1 >= maxDepth {
			continue
		}

		for _, neighbor := range n.adjacency[current] {
			if slices.Contains(path, neighbor) {
				continue
			}
			next := make([]string, len(path), len(path)+1)
			copy(next, path)
			queue = append(queue, append(next, neighbor))
		}
	}
	return paths
}

// Clusters partitions all known nodes into connected components via BFS.
// Every known node appears in exactly one component.
func (n *Network) Clusters() [][]string {
	n.mu.RLock()
	defer n.mu.RUnlock()

	var clusters [][]string
	visited := make(map[string]bool)

	for _, node := range n.sortedNodesLocked() {
		if visited[node] {
			continue
		}
		var cluster []string
		queue := []string{node}
		visited[node] = true

		for len(queue) > 0 {
			current := queue[0]
			queue = queue[1:]
			cluster = append(cluster, current)

			for _, neighbor := range n.adjacency[current] {
				if !visited[neighbor] {
					visited[neighbor] = true
					queue = append(queue, neighbor)
				}
			}
		}
		clusters = append(clusters, cluster)
	}
	return clusters
}

// Layout recomputes positions for all known nodes, evenly spaced on a circle
// centered in the canvas with radius 0.35×min(width, height). Prior positions
// are cleared first. Angular order follows sorted node ids, which keeps the
// assignment deterministic for a given node set.
func (n *Network) Layout(width, height float64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.positions = make(map[string]Position)
	nodes := n.sortedNodesLocked()
	if len(nodes) == 0 {
		return
	}

	centerX := width / 2
	centerY := height / 2
	radius := 0.35 * math.Min(width, height)

	for i, id := range nodes {
		angle := 2 * math.Pi * float64(i) / float64(len(nodes))
		n.positions[id] = Position{
			X: centerX + radius*math.Cos(angle),
			Y: centerY + radius*math.Sin(angle),
		}
	}
}

// PositionOf returns the last computed layout position for id.
func (n *Network) PositionOf(id string) (Position, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	pos, ok := n.positions[id]
	return pos, ok
}

// Links returns the deduplicated undirected edge list. Each pair appears
// once, oriented from the lexicographically smaller id.
func (n *Network) Links() [][2]string {
	n.mu.RLock()
	defer n.mu.RUnlock()

	var links [][2]string
	for _, from := range n.sortedNodesLocked() {
		for _, to := range n.adjacency[from] {
			if from < to {
				links = append(links, [2]string{from, to})
			}
		}
	}
	return links
}

// sortedNodesLocked returns all known node ids in sorted order.
// Callers must hold at least a read lock.
func (n *Network) sortedNodesLocked() []string {
	nodes := make([]string, 0, len(n.adjacency))
	for id := range n.adjacency {
		nodes = append(nodes, id)
	}
	slices.Sort(nodes)
	return nodes
}

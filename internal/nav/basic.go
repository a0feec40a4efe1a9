package nav

import "fleetsim/internal/graph"

// DFS finds any path from start to goal by depth-first exploration. Not
// shortest; kept as an uninformed comparison mode.
func (n *Navigator) DFS(start, goal int64) []int64 {
	if _, ok := n.g.Node(start); !ok {
		return nil
	}
	if _, ok := n.g.Node(goal); !ok {
		return nil
	}
	if start == goal {
		return []int64{start}
	}
	type frame struct {
		node int64
		path []int64
	}
	stack := []frame{{node: start, path: []int64{start}}}
	visited := map[int64]bool{}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[f.node] {
			continue
		}
		visited[f.node] = true
		if f.node == goal {
			return f.path
		}
		out := n.g.Out(f.node)
		for i := len(out) - 1; i >= 0; i-- {
			to := out[i].To
			if !visited[to] {
				next := append(append([]int64{}, f.path...), to)
				stack = append(stack, frame{node: to, path: next})
			}
		}
	}
	return nil
}

// BFS finds the path with the fewest edges from start to goal.
func (n *Navigator) BFS(start, goal int64) []int64 {
	return bfs(n.g, start, goal, func(graph.Edge) bool { return true })
}

// UnavoidableObstacle reports whether every route from start to end must
// cross a blocked or bad-pavement edge. It is pure reachability on the
// restricted subgraph that keeps only clean edges; weights play no part.
func (n *Navigator) UnavoidableObstacle(start, end int64) bool {
	clean := func(e graph.Edge) bool {
		return !e.Blocked && e.Pavement != graph.PavementBad
	}
	return bfs(n.g, start, end, clean) == nil
}

func bfs(g *graph.Network, start, goal int64, usable func(graph.Edge) bool) []int64 {
	if _, ok := g.Node(start); !ok {
		return nil
	}
	if _, ok := g.Node(goal); !ok {
		return nil
	}
	if start == goal {
		return []int64{start}
	}
	type frame struct {
		node int64
		path []int64
	}
	queue := []frame{{node: start, path: []int64{start}}}
	visited := map[int64]bool{start: true}
	for len(queue) > 0 {
		f := queue[0]
		queue = queue[1:]
		for _, e := range g.Out(f.node) {
			if !usable(e) || visited[e.To] {
				continue
			}
			next := append(append([]int64{}, f.path...), e.To)
			if e.To == goal {
				return next
			}
			visited[e.To] = true
			queue = append(queue, frame{node: e.To, path: next})
		}
	}
	return nil
}

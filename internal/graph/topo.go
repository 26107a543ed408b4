package graph

import "github.com/wirepod/wirepod/internal/plugin"

// topoSort orders nodes via Kahn's algorithm over dependency counts that
// include both audio and notify (control) links. It returns plugin.Invalid
// if the link graph contains a cycle.
func topoSort(nodes []*Node) ([]*Node, error) {
	inDegree := make(map[*Node]int, len(nodes))
	dependents := make(map[*Node][]*Node, len(nodes))

	for _, n := range nodes {
		inDegree[n] = 0
	}

	addEdge := func(from, to *Node) {
		if from == to {
			return
		}
		dependents[from] = append(dependents[from], to)
		inDegree[to]++
	}

	for _, n := range nodes {
		for _, p := range n.InputsAudio {
			if p.Inbound != nil {
				addEdge(p.Inbound.Output.Node, n)
			}
		}
		for _, p := range n.Controls {
			if p.Inbound != nil {
				addEdge(p.Inbound.Output.Node, n)
			}
		}
	}

	queue := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		if inDegree[n] == 0 {
			queue = append(queue, n)
		}
	}

	order := make([]*Node, 0, len(nodes))
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		order = append(order, n)

		for _, dep := range dependents[n] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if len(order) != len(nodes) {
		return nil, plugin.Errorf(plugin.Invalid, "graph: link topology contains a cycle")
	}
	return order, nil
}

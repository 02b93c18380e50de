package graph

// TopoOrder returns a lazy, single-pass iterator over "ready sets". Each
// call yields the jobs whose dependencies were all yielded by earlier calls,
// in declaration order, and nil once the graph is exhausted. The iterator is
// not restartable; callers needing a fresh pass take a new one.
//
// The iteration is purely structural: it assumes every yielded job reaches a
// terminal outcome, which is what the scheduler guarantees.
func (g *Graph) TopoOrder() func() []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	// Snapshot the topology so concurrent outcome writes don't affect the
	// structural order.
	deps := make(map[string][]string, len(g.nodes))
	for id, n := range g.nodes {
		deps[id] = g.orderedSubset(n.deps)
	}
	order := make([]string, len(g.order))
	copy(order, g.order)

	yielded := make(map[string]bool, len(order))
	return func() []string {
		var set []string
		for _, id := range order {
			if yielded[id] {
				continue
			}
			ready := true
			for _, dep := range deps[id] {
				if !yielded[dep] {
					ready = false
					break
				}
			}
			if ready {
				set = append(set, id)
			}
		}
		for _, id := range set {
			yielded[id] = true
		}
		if len(set) == 0 {
			return nil
		}
		return set
	}
}

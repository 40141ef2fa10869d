package registry

// detectCycles finds every strongly connected component of size >= 2,
// plus self-loops, over the directed graph of Reference fields across the
// whole Registry (spec.md §4.1). Tarjan's algorithm is used because it
// finds all SCCs in a single linear pass without repeated reachability
// queries; spec.md only requires "the set of cycles", not a particular
// algorithm (see DESIGN.md's Open Questions notes).
func detectCycles(r *Registry) [][]*EntityType {
	d := &tarjan{
		index:   map[*EntityType]int{},
		lowlink: map[*EntityType]int{},
		onStack: map[*EntityType]bool{},
	}
	for _, et := range r.ordered {
		if _, seen := d.index[et]; !seen {
			d.strongconnect(et)
		}
	}
	var cycles [][]*EntityType
	for _, comp := range d.components {
		if len(comp) >= 2 {
			cycles = append(cycles, comp)
			continue
		}
		// A single-node component is a cycle only if it self-references.
		if len(comp) == 1 && hasSelfLoop(comp[0]) {
			cycles = append(cycles, comp)
		}
	}
	return cycles
}

func hasSelfLoop(et *EntityType) bool {
	for _, f := range et.Fields {
		if f.Kind == Reference && f.Reference.Target == et {
			return true
		}
	}
	return false
}

// references returns the distinct EntityTypes et directly points to via
// its own Reference fields (ancestor fields are not walked here: a cycle
// through an ancestor's reference field is detected when that ancestor is
// visited in its own right).
func references(et *EntityType) []*EntityType {
	var out []*EntityType
	seen := map[*EntityType]bool{}
	for _, f := range et.Fields {
		if f.Kind != Reference {
			continue
		}
		t := f.Reference.Target
		if t != et && !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// tarjan runs Tarjan's strongly-connected-components algorithm over the
// Registry's reference graph.
type tarjan struct {
	counter    int
	index      map[*EntityType]int
	lowlink    map[*EntityType]int
	onStack    map[*EntityType]bool
	stack      []*EntityType
	components [][]*EntityType
}

func (d *tarjan) strongconnect(v *EntityType) {
	d.index[v] = d.counter
	d.lowlink[v] = d.counter
	d.counter++
	d.stack = append(d.stack, v)
	d.onStack[v] = true

	for _, w := range references(v) {
		if _, seen := d.index[w]; !seen {
			d.strongconnect(w)
			if d.lowlink[w] < d.lowlink[v] {
				d.lowlink[v] = d.lowlink[w]
			}
		} else if d.onStack[w] {
			if d.index[w] < d.lowlink[v] {
				d.lowlink[v] = d.index[w]
			}
		}
	}

	if d.lowlink[v] == d.index[v] {
		var comp []*EntityType
		for {
			n := len(d.stack) - 1
			w := d.stack[n]
			d.stack = d.stack[:n]
			d.onStack[w] = false
			comp = append(comp, w)
			if w == v {
				break
			}
		}
		d.components = append(d.components, comp)
	}
}

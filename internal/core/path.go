package core

// Path is an ordered sequence of vertices, start included.
type Path []VertexID

// Edges returns the edges traversed by the path.
func (p Path) Edges() []EdgeKey {
	if len(p) < 2 {
		return nil
	}
	keys := make([]EdgeKey, 0, len(p)-1)
	for i := 1; i < len(p); i++ {
		keys = append(keys, MakeEdgeKey(p[i-1], p[i]))
	}
	return keys
}

// Contains reports whether v appears on the path.
func (p Path) Contains(v VertexID) bool {
	for _, u := range p {
		if u == v {
			return true
		}
	}
	return false
}

// Last returns the final vertex.
func (p Path) Last() (VertexID, bool) {
	if len(p) == 0 {
		return 0, false
	}
	return p[len(p)-1], true
}

// Equal compares two paths element-wise.
func (p Path) Equal(o Path) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

// Less orders paths lexicographically by vertex id.
func (p Path) Less(o Path) bool {
	for i := 0; i < len(p) && i < len(o); i++ {
		if p[i] != o[i] {
			return p[i] < o[i]
		}
	}
	return len(p) < len(o)
}

// Length sums edge costs along the path. Missing edges count as zero.
func (p Path) Length(g *Graph) float64 {
	total := 0.0
	for _, k := range p.Edges() {
		if e, ok := g.EdgeBetween(k.A, k.B); ok {
			total += e.Cost
		}
	}
	return total
}

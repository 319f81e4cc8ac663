package collision

// unionFind is a plain disjoint-set over intent ids with path compression.
// Candidate pairs are fed to it in a stable order, so cluster membership
// is reproducible across runs.
type unionFind struct {
	parent map[string]string
}

func newUnionFind() *unionFind {
	return &unionFind{parent: make(map[string]string)}
}

func (u *unionFind) find(id string) string {
	root, ok := u.parent[id]
	if !ok {
		u.parent[id] = id
		return id
	}

	if root == id {
		return id
	}

	resolved := u.find(root)
	u.parent[id] = resolved

	return resolved
}

func (u *unionFind) union(a, b string) {
	rootA, rootB := u.find(a), u.find(b)
	if rootA == rootB {
		return
	}

	// Deterministic root selection: smaller id wins.
	if rootB < rootA {
		rootA, rootB = rootB, rootA
	}

	u.parent[rootB] = rootA
}

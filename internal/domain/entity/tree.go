package entity

// TreeNode es un nodo del bosque tipado que arma el lector: el nodo más sus
// hijos del siguiente nivel de la cadena y, si aplica, sus ramas paralelas
// (en Productos, los sizes de un trade van junto a sus sections, no debajo).
type TreeNode struct {
	Node     TaxonomyNode
	Children []*TreeNode
	Branches map[string][]*TreeNode // nombre de nivel de rama -> nodos
}

// Walk recorre el subárbol en preorden, incluyendo ramas.
func (t *TreeNode) Walk(fn func(*TreeNode)) {
	fn(t)
	for _, c := range t.Children {
		c.Walk(fn)
	}
	for _, bs := range t.Branches {
		for _, b := range bs {
			b.Walk(fn)
		}
	}
}

// CountNodes devuelve el total de nodos del bosque, ramas incluidas.
func CountNodes(forest []*TreeNode) int {
	n := 0
	for _, t := range forest {
		t.Walk(func(*TreeNode) { n++ })
	}
	return n
}

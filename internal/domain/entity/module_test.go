package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_FormaDeLosModulos(t *testing.T) {
	r := NewRegistry()

	products, ok := r.Module("products")
	require.True(t, ok)
	assert.Len(t, products.Levels, 5)
	assert.Len(t, products.Branches, 1)
	assert.Equal(t, "products", products.ItemCollection)

	labor, ok := r.Module("labor")
	require.True(t, ok)
	assert.Len(t, labor.Levels, 3)
	assert.Empty(t, labor.Branches)

	equipment, ok := r.Module("equipment")
	require.True(t, ok)
	assert.Len(t, equipment.Levels, 4)

	_, ok = r.Module("materials")
	assert.False(t, ok)

	// Los tres módulos comparten la misma raíz: la colección de trades.
	for _, m := range r.Modules() {
		assert.Equal(t, "trades", m.Root().Collection)
		assert.Empty(t, m.Root().ParentField)
	}
}

func TestModule_DescriptorIncluyeRamas(t *testing.T) {
	r := NewRegistry()
	products, _ := r.Module("products")

	size, ok := products.Descriptor("size")
	require.True(t, ok)
	assert.Equal(t, "sizes", size.Collection)
	assert.Equal(t, "tradeId", size.ParentField)

	_, ok = products.Descriptor("subtype")
	assert.False(t, ok)

	labor, _ := r.Module("labor")
	_, ok = labor.Descriptor("subcategory")
	assert.False(t, ok, "labor termina en category")
}

func TestModule_ChildrenOfYParentOf(t *testing.T) {
	r := NewRegistry()
	products, _ := r.Module("products")

	// Trade tiene dos hijos en productos: la cadena (section) y la rama (size).
	children := products.ChildrenOf("trade")
	require.Len(t, children, 2)
	assert.Equal(t, "section", children[0].Name)
	assert.Equal(t, "size", children[1].Name)

	parent, ok := products.ParentOf("size")
	require.True(t, ok)
	assert.Equal(t, "trade", parent.Name)

	parent, ok = products.ParentOf("type")
	require.True(t, ok)
	assert.Equal(t, "subcategory", parent.Name)

	_, ok = products.ParentOf("trade")
	assert.False(t, ok, "la raíz no tiene padre")

	_, ok = products.ParentOf("desconocido")
	assert.False(t, ok)
}

func TestModule_NivelesHoja(t *testing.T) {
	r := NewRegistry()

	products, _ := r.Module("products")
	assert.True(t, products.IsLeafLevel("type"))
	assert.True(t, products.IsLeafLevel("size"), "una rama no tiene hijos")
	assert.False(t, products.IsLeafLevel("trade"))
	assert.False(t, products.IsLeafLevel("subcategory"))

	labor, _ := r.Module("labor")
	assert.True(t, labor.IsLeafLevel("category"))

	equipment, _ := r.Module("equipment")
	assert.True(t, equipment.IsLeafLevel("subcategory"))

	assert.True(t, products.IsBranch("size"))
	assert.False(t, products.IsBranch("section"))
}

package entity

// Level describe un nivel de la taxonomía dentro de un módulo: su colección en
// el almacén de documentos, el campo que apunta al padre y el campo con el que
// los ítems de inventario lo referencian.
type Level struct {
	Name        string // trade, section, category, subcategory, type, size
	Collection  string // trades, product_sections, ...
	ParentField string // campo del documento con el id del padre; vacío en la raíz
	ItemField   string // campo del ítem que referencia este nivel
}

// Branch es una rama paralela: un nivel colgado de un nivel de la cadena
// principal (Size cuelga directamente de Trade en Productos).
type Branch struct {
	Level       Level
	ParentLevel string
}

// Module describe un módulo del catálogo: su cadena de niveles (raíz primero),
// sus ramas paralelas y la colección de ítems de inventario enlazados.
type Module struct {
	Name           string
	Levels         []Level
	Branches       []Branch
	ItemCollection string
}

// Descriptor devuelve el descriptor del nivel por nombre, buscando en la
// cadena principal y en las ramas.
func (m *Module) Descriptor(level string) (Level, bool) {
	for _, l := range m.Levels {
		if l.Name == level {
			return l, true
		}
	}
	for _, b := range m.Branches {
		if b.Level.Name == level {
			return b.Level, true
		}
	}
	return Level{}, false
}

// ChildrenOf devuelve los niveles inmediatamente inferiores a level dentro del
// módulo: el siguiente nivel de la cadena más las ramas colgadas de level.
// Un nivel de rama no tiene hijos.
func (m *Module) ChildrenOf(level string) []Level {
	var out []Level
	for i, l := range m.Levels {
		if l.Name == level && i+1 < len(m.Levels) {
			out = append(out, m.Levels[i+1])
		}
	}
	for _, b := range m.Branches {
		if b.ParentLevel == level {
			out = append(out, b.Level)
		}
	}
	return out
}

// ParentOf devuelve el descriptor del nivel inmediatamente superior a level.
// Devuelve false para la raíz o para niveles desconocidos.
func (m *Module) ParentOf(level string) (Level, bool) {
	for i, l := range m.Levels {
		if l.Name == level {
			if i == 0 {
				return Level{}, false
			}
			return m.Levels[i-1], true
		}
	}
	for _, b := range m.Branches {
		if b.Level.Name == level {
			return m.Descriptor(b.ParentLevel)
		}
	}
	return Level{}, false
}

// IsLeafLevel indica si level no tiene niveles inferiores en este módulo.
func (m *Module) IsLeafLevel(level string) bool {
	return len(m.ChildrenOf(level)) == 0
}

// IsBranch indica si level es una rama paralela (Size) y no parte de la cadena.
func (m *Module) IsBranch(level string) bool {
	for _, b := range m.Branches {
		if b.Level.Name == level {
			return true
		}
	}
	return false
}

// Root devuelve el nivel raíz del módulo.
func (m *Module) Root() Level {
	return m.Levels[0]
}

// Registry agrupa los módulos del catálogo. Trade es un espacio de nombres
// compartido: los tres módulos comparten la colección de trades y cuelgan sus
// propias cadenas de ella.
type Registry struct {
	modules []*Module
	byName  map[string]*Module
}

// TradeLevel es el descriptor del nivel raíz compartido.
var TradeLevel = Level{Name: "trade", Collection: "trades", ParentField: "", ItemField: "tradeId"}

// NewRegistry construye el registro con los tres módulos del catálogo:
// Productos (6 niveles, Size como rama paralela de Trade), Mano de obra (3) y
// Equipos (4).
func NewRegistry() *Registry {
	products := &Module{
		Name: "products",
		Levels: []Level{
			TradeLevel,
			{Name: "section", Collection: "product_sections", ParentField: "tradeId", ItemField: "sectionId"},
			{Name: "category", Collection: "product_categories", ParentField: "sectionId", ItemField: "categoryId"},
			{Name: "subcategory", Collection: "product_subcategories", ParentField: "categoryId", ItemField: "subcategoryId"},
			{Name: "type", Collection: "product_types", ParentField: "subcategoryId", ItemField: "typeId"},
		},
		Branches: []Branch{
			{Level: Level{Name: "size", Collection: "sizes", ParentField: "tradeId", ItemField: "sizeId"}, ParentLevel: "trade"},
		},
		ItemCollection: "products",
	}
	labor := &Module{
		Name: "labor",
		Levels: []Level{
			TradeLevel,
			{Name: "section", Collection: "labor_sections", ParentField: "tradeId", ItemField: "sectionId"},
			{Name: "category", Collection: "labor_categories", ParentField: "sectionId", ItemField: "categoryId"},
		},
		ItemCollection: "labor_items",
	}
	equipment := &Module{
		Name: "equipment",
		Levels: []Level{
			TradeLevel,
			{Name: "section", Collection: "equipment_sections", ParentField: "tradeId", ItemField: "sectionId"},
			{Name: "category", Collection: "equipment_categories", ParentField: "sectionId", ItemField: "categoryId"},
			{Name: "subcategory", Collection: "equipment_subcategories", ParentField: "categoryId", ItemField: "subcategoryId"},
		},
		ItemCollection: "equipment_items",
	}

	r := &Registry{modules: []*Module{products, labor, equipment}}
	r.byName = make(map[string]*Module, len(r.modules))
	for _, m := range r.modules {
		r.byName[m.Name] = m
	}
	return r
}

// Module devuelve el módulo por nombre.
func (r *Registry) Module(name string) (*Module, bool) {
	m, ok := r.byName[name]
	return m, ok
}

// Modules devuelve todos los módulos registrados.
func (r *Registry) Modules() []*Module {
	return r.modules
}

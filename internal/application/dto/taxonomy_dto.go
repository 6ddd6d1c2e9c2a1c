package dto

import "github.com/shopspring/decimal"

// CreateNodeRequest alta de un nodo de taxonomía.
type CreateNodeRequest struct {
	Name     string `json:"name"`
	Level    string `json:"level"`
	ParentID string `json:"parentId"`
}

// RenameNodeRequest renombrado de un nodo.
type RenameNodeRequest struct {
	Level string `json:"level"`
	Name  string `json:"name"`
}

// NodeResponse nodo plano (listados de hijos por nivel).
type NodeResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Level    string `json:"level"`
	ParentID string `json:"parentId,omitempty"`
}

// TreeNodeResponse nodo del bosque anidado.
type TreeNodeResponse struct {
	ID       string                        `json:"id"`
	Name     string                        `json:"name"`
	Level    string                        `json:"level"`
	Children []TreeNodeResponse            `json:"children,omitempty"`
	Branches map[string][]TreeNodeResponse `json:"branches,omitempty"`
}

// TreeResponse bosque completo de un módulo.
type TreeResponse struct {
	Module string             `json:"module"`
	Roots  []TreeNodeResponse `json:"roots"`
}

// UsageStatsResponse impacto de un borrado en cascada, para confirmación previa.
type UsageStatsResponse struct {
	NodeID              string          `json:"nodeId"`
	Level               string          `json:"level"`
	DescendantNodeCount int             `json:"descendantNodeCount"`
	LinkedItemCount     int             `json:"linkedItemCount"`
	LinkedItemValue     decimal.Decimal `json:"linkedItemValue"`
}

// EmptyLeafResponse hoja sin ítems enlazados.
type EmptyLeafResponse struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Level string   `json:"level"`
	Path  []string `json:"path"` // nombres desde el trade hasta el propio nodo
}

// EmptyLeafBucketResponse hojas vacías de un nivel.
type EmptyLeafBucketResponse struct {
	Level  string              `json:"level"`
	Leaves []EmptyLeafResponse `json:"leaves"`
}

// ScanResponse resultado del escaneo de hojas vacías de un módulo.
type ScanResponse struct {
	Module  string                    `json:"module"`
	Buckets []EmptyLeafBucketResponse `json:"buckets"`
}

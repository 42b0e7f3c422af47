package index

import (
	"encoding/gob"
	"fmt"
	"io"

	"gonum.org/v1/gonum/spatial/kdtree"

	"bovw/internal/vector"
	pkgerrors "bovw/pkg/errors"
)

// point is a codebook row tagged with its row number.
type point struct {
	id  int
	vec []float32
}

func (p point) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(point)
	return float64(p.vec[d]) - float64(q.vec[d])
}

func (p point) Dims() int { return len(p.vec) }

func (p point) Distance(c kdtree.Comparable) float64 {
	return squaredDistance(p.vec, c.(point).vec)
}

type points []point

func (p points) Index(i int) kdtree.Comparable        { return p[i] }
func (p points) Len() int                             { return len(p) }
func (p points) Pivot(d kdtree.Dim) int               { return plane{points: p, Dim: d}.Pivot() }
func (p points) Slice(start, end int) kdtree.Interface { return p[start:end] }

// plane sorts points along one dimension for median selection.
type plane struct {
	kdtree.Dim
	points
}

func (p plane) Less(i, j int) bool {
	return p.points[i].vec[p.Dim] < p.points[j].vec[p.Dim]
}
func (p plane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.points = p.points[start:end]
	return p
}
func (p plane) Swap(i, j int) {
	p.points[i], p.points[j] = p.points[j], p.points[i]
}

// KDTree is an exact kd-tree over a codebook. Ties between equidistant rows
// may resolve to any of them.
type KDTree struct {
	dim  int
	rows int
	sum  uint64
	tree *kdtree.Tree
}

func newKDTree(config *IndexConfig, codebook vector.Matrix) (*KDTree, error) {
	if codebook.Empty() {
		return nil, pkgerrors.ErrEmptyCodebook
	}
	if config.Dimension != 0 && config.Dimension != codebook.Cols {
		return nil, pkgerrors.ErrInvalidDimension
	}
	pts := rowPoints(codebook)
	return &KDTree{
		dim:  codebook.Cols,
		rows: codebook.Rows,
		sum:  Fingerprint(codebook),
		tree: kdtree.New(pts, false),
	}, nil
}

func rowPoints(codebook vector.Matrix) points {
	pts := make(points, codebook.Rows)
	for i := range pts {
		pts[i] = point{id: i, vec: codebook.Row(i)}
	}
	return pts
}

func (t *KDTree) Nearest(query []float32) (int, error) {
	if err := checkQuery(query, t.dim); err != nil {
		return 0, err
	}
	got, _ := t.tree.Nearest(point{id: -1, vec: query})
	if got == nil {
		return 0, pkgerrors.ErrEmptyCodebook
	}
	return got.(point).id, nil
}

func (t *KDTree) Type() IndexType     { return KDTreeIndex }
func (t *KDTree) Len() int            { return t.rows }
func (t *KDTree) Dimension() int      { return t.dim }
func (t *KDTree) Fingerprint() uint64 { return t.sum }

func (t *KDTree) Close() error {
	t.tree = nil
	return nil
}

// kdNode is one tree node in preorder. Point vectors are not stored.
type kdNode struct {
	ID    int32
	Plane int32
	Left  bool
	Right bool
}

type kdLayout struct {
	Dim   int
	Rows  int
	Sum   uint64
	Nodes []kdNode
}

func (t *KDTree) encode(w io.Writer) error {
	layout := kdLayout{Dim: t.dim, Rows: t.rows, Sum: t.sum, Nodes: make([]kdNode, 0, t.rows)}
	var walk func(n *kdtree.Node)
	walk = func(n *kdtree.Node) {
		if n == nil {
			return
		}
		layout.Nodes = append(layout.Nodes, kdNode{
			ID:    int32(n.Point.(point).id),
			Plane: int32(n.Plane),
			Left:  n.Left != nil,
			Right: n.Right != nil,
		})
		walk(n.Left)
		walk(n.Right)
	}
	walk(t.tree.Root)
	return gob.NewEncoder(w).Encode(layout)
}

func decodeKDTree(r io.Reader, codebook vector.Matrix) (*KDTree, error) {
	var layout kdLayout
	if err := gob.NewDecoder(r).Decode(&layout); err != nil {
		return nil, fmt.Errorf("decode kd-tree: %w: %v", pkgerrors.ErrMalformedFile, err)
	}
	if layout.Rows != codebook.Rows || layout.Dim != codebook.Cols || len(layout.Nodes) != codebook.Rows {
		return nil, pkgerrors.ErrIndexMismatch
	}

	pts := rowPoints(codebook)
	seen := make([]bool, len(pts))
	next := 0
	var build func() (*kdtree.Node, error)
	build = func() (*kdtree.Node, error) {
		if next >= len(layout.Nodes) {
			return nil, fmt.Errorf("kd-tree layout truncated: %w", pkgerrors.ErrMalformedFile)
		}
		rec := layout.Nodes[next]
		next++
		if rec.ID < 0 || int(rec.ID) >= len(pts) || seen[rec.ID] || rec.Plane < 0 || int(rec.Plane) >= layout.Dim {
			return nil, fmt.Errorf("kd-tree node %d: %w", next-1, pkgerrors.ErrMalformedFile)
		}
		seen[rec.ID] = true
		n := &kdtree.Node{Point: pts[rec.ID], Plane: kdtree.Dim(rec.Plane)}
		var err error
		if rec.Left {
			if n.Left, err = build(); err != nil {
				return nil, err
			}
		}
		if rec.Right {
			if n.Right, err = build(); err != nil {
				return nil, err
			}
		}
		return n, nil
	}
	root, err := build()
	if err != nil {
		return nil, err
	}
	if next != len(layout.Nodes) {
		return nil, fmt.Errorf("kd-tree layout has trailing nodes: %w", pkgerrors.ErrMalformedFile)
	}
	return &KDTree{
		dim:  layout.Dim,
		rows: layout.Rows,
		sum:  layout.Sum,
		tree: &kdtree.Tree{Root: root, Count: layout.Rows},
	}, nil
}

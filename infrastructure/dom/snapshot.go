package dom

import (
	"page_marker/domain/entities"
	"page_marker/domain/interfaces"
)

// snapshotDocument answers layout queries from a recorded snapshot
type snapshotDocument struct {
	snapshot *entities.PageSnapshot
	nodes    []interfaces.Node
	byIndex  []*snapshotNode
	hits     map[entities.Point]int
}

type snapshotNode struct {
	index int
	data  *entities.SnapshotNode
}

// FromSnapshot returns a Document over snapshot. Hit-testing only knows the points
// recorded in the snapshot: the centers of every client rect. Other points hit nothing.
func FromSnapshot(snapshot *entities.PageSnapshot) interfaces.Document {
	doc := &snapshotDocument{
		snapshot: snapshot,
		nodes:    make([]interfaces.Node, len(snapshot.Nodes)),
		byIndex:  make([]*snapshotNode, len(snapshot.Nodes)),
		hits:     make(map[entities.Point]int),
	}

	for i := range snapshot.Nodes {
		node := &snapshotNode{index: i, data: &snapshot.Nodes[i]}
		doc.nodes[i] = node
		doc.byIndex[i] = node

		// rects past the end of Hits were never hit tested
		for r, rect := range node.data.Rects {
			if r < len(node.data.Hits) {
				doc.hits[rect.Center()] = node.data.Hits[r]
			}
		}
	}
	return doc
}

func (d *snapshotDocument) Nodes() []interfaces.Node {
	return d.nodes
}

func (d *snapshotDocument) Viewport() entities.Viewport {
	return d.snapshot.Viewport
}

func (d *snapshotDocument) ElementAt(p entities.Point) interfaces.Node {
	hit, ok := d.hits[p]
	if !ok || hit < 0 || hit >= len(d.byIndex) {
		return nil
	}
	return d.byIndex[hit]
}

func (d *snapshotDocument) Contains(ancestor, node interfaces.Node) bool {
	a, ok := ancestor.(*snapshotNode)
	if !ok {
		return false
	}
	n, ok := node.(*snapshotNode)
	if !ok {
		return false
	}

	// parents always precede children in document order, so the walk terminates
	for i := n.index; i >= 0 && i < len(d.byIndex); {
		if i == a.index {
			return true
		}
		parent := d.byIndex[i].data.Parent
		if parent >= i {
			return false
		}
		i = parent
	}
	return false
}

func (n *snapshotNode) Tag() string {
	return n.data.Tag
}

func (n *snapshotNode) Attribute(name string) string {
	return n.data.Attrs[name]
}

func (n *snapshotNode) TextContent() string {
	return n.data.Text
}

func (n *snapshotNode) HasClickHandler() bool {
	return n.data.OnClick
}

func (n *snapshotNode) Cursor() string {
	return n.data.Cursor
}

func (n *snapshotNode) ClientRects() []entities.Rect {
	return n.data.Rects
}

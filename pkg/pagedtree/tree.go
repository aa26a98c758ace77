package pagedtree

import (
	"fmt"
	"sync/atomic"

	"github.com/bobboyms/labelscan/pkg/keys"
	"github.com/bobboyms/labelscan/pkg/lserrors"
)

// Combiner computes a new value from the current one (nil if absent).
// Returning a zero (or nil) bitset causes the key to be removed,
// enforcing invariant 1: no zero-valued entry is ever stored.
type Combiner func(current keys.Bitset, exists bool) (keys.Bitset, error)

// Limiter throttles or paces checkpoint I/O. The teacher has no
// equivalent; this is the hook spec section 4.3's force(limiter)
// names. The zero value does no throttling.
type Limiter interface {
	// Admit is called once per node flushed during a checkpoint.
	Admit()
}

// NoopLimiter never throttles.
type NoopLimiter struct{}

func (NoopLimiter) Admit() {}

// PagedTree is a copy-on-write B+tree over (keys.Key, keys.Bitset)
// entries. Exactly one writer may be open at a time; any number of
// readers may hold cursors concurrently, each seeing the root as it
// was when the cursor was created.
type PagedTree struct {
	t          int
	width      keys.RangeWidth
	layoutID   uint32
	root       atomic.Pointer[node]
	writerHeld atomic.Bool
}

// New creates an empty tree of the given minimum degree and range width.
func New(minDegree int, width keys.RangeWidth, layoutID uint32) *PagedTree {
	tr := &PagedTree{t: minDegree, width: width, layoutID: layoutID}
	tr.root.Store(newLeaf(minDegree))
	return tr
}

func (tr *PagedTree) LayoutID() uint32     { return tr.layoutID }
func (tr *PagedTree) Width() keys.RangeWidth { return tr.width }

// IsEmpty reports whether the tree currently holds no entries.
func (tr *PagedTree) IsEmpty() bool {
	r := tr.root.Load()
	return r.leaf && r.n == 0
}

// Writer is the single mutation seat. Acquire via PagedTree.Writer.
type Writer struct {
	tree *PagedTree
	work *node // private working root, COW-built from tree.root at acquisition
}

// Writer acquires the exclusive writer seat. Acquisition is
// non-blocking: a second concurrent call fails with WriterBusy
// instead of waiting.
func (tr *PagedTree) Writer() (*Writer, error) {
	if !tr.writerHeld.CompareAndSwap(false, true) {
		return nil, &lserrors.WriterBusy{}
	}
	return &Writer{tree: tr, work: tr.root.Load()}, nil
}

// Put sets key to value directly, skipping the merge callback. A zero
// value removes the key.
func (w *Writer) Put(key keys.Key, value keys.Bitset) error {
	return w.Merge(key, func(keys.Bitset, bool) (keys.Bitset, error) { return value, nil })
}

// Remove deletes key if present.
func (w *Writer) Remove(key keys.Key) error {
	return w.Merge(key, func(keys.Bitset, bool) (keys.Bitset, error) { return nil, nil })
}

// Merge applies combiner to the current value at key (nil if absent)
// and stores the result, copying every node on the root-to-leaf path
// so the previously published root remains untouched for readers.
func (w *Writer) Merge(key keys.Key, combine Combiner) error {
	root := w.work
	if root.isFull() {
		newRoot := newInternal(root.t)
		newRoot.children = append(newRoot.children, root)
		newRoot.n = 0
		newRoot.splitChild(0)
		root = newRoot
	}
	newRoot, err := mergeDown(root, key, combine)
	if err != nil {
		return err
	}
	w.work = shrinkRoot(newRoot)
	return nil
}

// shrinkRoot drops a root that has become a single-child internal
// node with zero keys, keeping the tree's height minimal.
func shrinkRoot(r *node) *node {
	for !r.leaf && r.n == 0 {
		r = r.children[0]
	}
	return r
}

// mergeDown performs a copy-on-write descent, splitting full children
// preventively (as the teacher's upsertTopDown does) and applying
// combine at the leaf, returning the replacement subtree root.
func mergeDown(n *node, key keys.Key, combine Combiner) (*node, error) {
	if n.leaf {
		return mergeLeaf(n, key, combine)
	}

	nc := n.clone()
	i := nc.childFor(key)
	child := nc.children[i]

	if child.isFull() {
		nc.splitChild(i)
		if !key.Less(nc.keyList[i]) {
			i++
		}
		child = nc.children[i]
	}

	newChild, err := mergeDown(child, key, combine)
	if err != nil {
		return nil, err
	}
	nc.children[i] = newChild

	// If the child became an empty leaf after a removal, resync the
	// separators of this node. The empty leaf itself stays linked as
	// a child; cursors skip over it. No borrow/merge rebalancing is
	// done, per the tree's documented underflow-tolerant design (see
	// DESIGN.md).
	if newChild.leaf && newChild.n == 0 && nc.n > 0 {
		nc.fixSeparators()
	}
	return nc, nil
}

func mergeLeaf(n *node, key keys.Key, combine Combiner) (*node, error) {
	idx := n.lowerBound(key)
	exists := idx < n.n && n.keyList[idx].Compare(key) == 0

	var current keys.Bitset
	if exists {
		current = n.values[idx]
	}
	newVal, err := combine(current, exists)
	if err != nil {
		return nil, err
	}

	nc := n.clone()
	switch {
	case exists && (newVal == nil || newVal.IsZero()):
		nc.keyList = append(nc.keyList[:idx], nc.keyList[idx+1:]...)
		nc.values = append(nc.values[:idx], nc.values[idx+1:]...)
		nc.n--
	case exists:
		nc.values[idx] = newVal
	case newVal == nil || newVal.IsZero():
		// no-op: nothing existed and nothing is being added
	default:
		nc.keyList = append(nc.keyList, keys.Key{})
		nc.values = append(nc.values, nil)
		copy(nc.keyList[idx+1:], nc.keyList[idx:])
		copy(nc.values[idx+1:], nc.values[idx:])
		nc.keyList[idx] = key
		nc.values[idx] = newVal
		nc.n++
	}
	return nc, nil
}

// fixSeparators resyncs each separator in an internal node to the
// smallest key of the subtree to its right, mirroring the teacher's
// fixSeparators. Called after a leaf loses its first key.
func (n *node) fixSeparators() {
	if n.leaf {
		return
	}
	for i := 0; i < n.n; i++ {
		curr := n.children[i+1]
		for !curr.leaf {
			curr = curr.children[0]
		}
		if curr.n > 0 {
			n.keyList[i] = curr.keyList[0]
		}
	}
}

// Close publishes the writer's working root and releases the seat.
// Updates become visible as a group to any cursor opened afterward.
func (w *Writer) Close() error {
	w.tree.root.Store(w.work)
	w.tree.writerHeld.Store(false)
	return nil
}

// Discard releases the seat without publishing any change.
func (w *Writer) Discard() {
	w.tree.writerHeld.Store(false)
}

// Checkpoint serializes the current published root and writes it
// through persist, which is responsible for the atomic
// write-temp-then-rename file replace (pagecache.PagedFile.Replace).
func (tr *PagedTree) Checkpoint(limiter Limiter, persist func(body []byte) error) error {
	if limiter == nil {
		limiter = NoopLimiter{}
	}
	root := tr.root.Load()
	body, err := encodeTree(root, tr.t, limiter)
	if err != nil {
		return fmt.Errorf("encode tree: %w", err)
	}
	return persist(body)
}

// LoadFrom replaces the tree's content with a previously checkpointed
// body, used on open.
func (tr *PagedTree) LoadFrom(body []byte) error {
	root, t, err := decodeTree(body)
	if err != nil {
		return err
	}
	tr.t = t
	tr.root.Store(root)
	return nil
}

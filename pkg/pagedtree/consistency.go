package pagedtree

import "github.com/bobboyms/labelscan/pkg/keys"

// Fault describes one structural or semantic violation found while
// walking the tree.
type Fault struct {
	Kind string // "key-order" | "duplicate-key" | "zero-value" | "orphan"
	Key  keys.Key
	Note string
}

// Visitor receives faults as the tree is walked. Report returning
// false stops the walk early.
type Visitor interface {
	Report(f Fault) (keepGoing bool)
}

// Check walks the whole tree depth-first, reporting key-order
// violations, duplicate keys, and zero-valued entries (invariant 1).
// Returns true iff no fault was reported.
func (tr *PagedTree) Check(v Visitor) bool {
	ok := true
	var prev *keys.Key
	var walk func(n *node) bool
	walk = func(n *node) bool {
		if n.leaf {
			for i := 0; i < n.n; i++ {
				k := n.keyList[i]
				if prev != nil {
					if k.Compare(*prev) == 0 {
						ok = false
						if !v.Report(Fault{Kind: "duplicate-key", Key: k}) {
							return false
						}
					} else if k.Less(*prev) {
						ok = false
						if !v.Report(Fault{Kind: "key-order", Key: k, Note: "out of order"}) {
							return false
						}
					}
				}
				kk := k
				prev = &kk
				if n.values[i].IsZero() {
					ok = false
					if !v.Report(Fault{Kind: "zero-value", Key: k, Note: "stored zero bitset"}) {
						return false
					}
				}
			}
			return true
		}
		for i := 0; i <= n.n; i++ {
			if n.children[i] == nil {
				ok = false
				if !v.Report(Fault{Kind: "orphan", Note: "nil child pointer"}) {
					return false
				}
				continue
			}
			if !walk(n.children[i]) {
				return false
			}
		}
		return true
	}
	walk(tr.root.Load())
	return ok
}

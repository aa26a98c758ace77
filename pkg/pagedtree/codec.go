package pagedtree

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/bobboyms/labelscan/pkg/keys"
)

// Node type tags in the serialized body, mirroring the teacher's
// checkpoint_serializer.go NodeTypeInternal/NodeTypeLeaf.
const (
	nodeTypeInternal uint8 = 0
	nodeTypeLeaf     uint8 = 1
)

// encodeTree writes the whole tree as [minDegree][root...], recursing
// depth-first exactly as the teacher's SerializeNode does, generalized
// to the fixed-width (Key,Bitset) entry instead of a tagged Comparable.
func encodeTree(root *node, minDegree int, limiter Limiter) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, int32(minDegree)); err != nil {
		return nil, err
	}
	if err := encodeNode(buf, root, limiter); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeNode(w io.Writer, n *node, limiter Limiter) error {
	limiter.Admit()

	nodeType := nodeTypeInternal
	if n.leaf {
		nodeType = nodeTypeLeaf
	}
	if err := binary.Write(w, binary.LittleEndian, nodeType); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, int32(n.n)); err != nil {
		return err
	}

	keyBuf := make([]byte, keys.KeySize)
	for i := 0; i < n.n; i++ {
		n.keyList[i].Encode(keyBuf)
		if _, err := w.Write(keyBuf); err != nil {
			return err
		}
	}

	if n.leaf {
		for i := 0; i < n.n; i++ {
			v := n.values[i]
			if err := binary.Write(w, binary.LittleEndian, uint16(len(v))); err != nil {
				return err
			}
			if _, err := w.Write(v); err != nil {
				return err
			}
		}
		return nil
	}

	for i := 0; i <= n.n; i++ {
		if err := encodeNode(w, n.children[i], limiter); err != nil {
			return err
		}
	}
	return nil
}

// decodeTree reconstructs a tree from a body produced by encodeTree,
// also relinking the leaf-level next pointers, which are not stored
// explicitly (they are implied by the depth-first leaf visit order).
func decodeTree(body []byte) (*node, int, error) {
	r := bytes.NewReader(body)
	var minDegree int32
	if err := binary.Read(r, binary.LittleEndian, &minDegree); err != nil {
		return nil, 0, fmt.Errorf("read min degree: %w", err)
	}

	var leaves []*node
	root, err := decodeNode(r, int(minDegree), &leaves)
	if err != nil {
		return nil, 0, err
	}
	for i := 0; i+1 < len(leaves); i++ {
		leaves[i].next = leaves[i+1]
	}
	return root, int(minDegree), nil
}

func decodeNode(r *bytes.Reader, t int, leaves *[]*node) (*node, error) {
	var nodeType uint8
	if err := binary.Read(r, binary.LittleEndian, &nodeType); err != nil {
		return nil, err
	}
	var nVal int32
	if err := binary.Read(r, binary.LittleEndian, &nVal); err != nil {
		return nil, err
	}

	n := &node{t: t, leaf: nodeType == nodeTypeLeaf, n: int(nVal)}

	keyBuf := make([]byte, keys.KeySize)
	n.keyList = make([]keys.Key, 0, n.n)
	for i := 0; i < n.n; i++ {
		if _, err := io.ReadFull(r, keyBuf); err != nil {
			return nil, err
		}
		n.keyList = append(n.keyList, keys.DecodeKey(keyBuf))
	}

	if n.leaf {
		n.values = make([]keys.Bitset, 0, n.n)
		for i := 0; i < n.n; i++ {
			var l uint16
			if err := binary.Read(r, binary.LittleEndian, &l); err != nil {
				return nil, err
			}
			v := make(keys.Bitset, l)
			if _, err := io.ReadFull(r, v); err != nil {
				return nil, err
			}
			n.values = append(n.values, v)
		}
		*leaves = append(*leaves, n)
		return n, nil
	}

	n.children = make([]*node, 0, n.n+1)
	for i := 0; i <= n.n; i++ {
		child, err := decodeNode(r, t, leaves)
		if err != nil {
			return nil, err
		}
		n.children = append(n.children, child)
	}
	return n, nil
}

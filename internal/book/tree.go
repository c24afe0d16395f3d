package book

// levelTree is a red/black tree of price levels keyed by price. It gives
// O(log L) insert/delete and iteration from the best price, which keeps the
// replay linear-ish even for books with thousands of distinct levels.
type levelTree struct {
	root *treeNode
	nil_ *treeNode // shared sentinel, always black
	size int
}

type treeNode struct {
	key    int64
	level  *Level
	red    bool
	left   *treeNode
	right  *treeNode
	parent *treeNode
}

func newLevelTree() *levelTree {
	s := &treeNode{}
	return &levelTree{root: s, nil_: s}
}

// Size returns the number of price levels in the tree.
func (t *levelTree) Size() int { return t.size }

// Find returns the level at price, or nil.
func (t *levelTree) Find(price int64) *Level {
	n := t.find(price)
	if n == t.nil_ {
		return nil
	}
	return n.level
}

// GetOrCreate returns the level at price, inserting an empty one if absent.
func (t *levelTree) GetOrCreate(price int64) *Level {
	if n := t.find(price); n != t.nil_ {
		return n.level
	}
	lvl := &Level{Price: price}
	t.insert(price, lvl)
	return lvl
}

// Remove deletes the level at price from the tree, if present.
func (t *levelTree) Remove(price int64) {
	n := t.find(price)
	if n == t.nil_ {
		return
	}
	t.delete(n)
	t.size--
}

// Min returns the lowest-priced level, or nil for an empty tree.
func (t *levelTree) Min() *Level {
	n := t.min(t.root)
	if n == t.nil_ {
		return nil
	}
	return n.level
}

// Max returns the highest-priced level, or nil for an empty tree.
func (t *levelTree) Max() *Level {
	n := t.max(t.root)
	if n == t.nil_ {
		return nil
	}
	return n.level
}

// WalkAsc visits levels in ascending price order until fn returns false.
func (t *levelTree) WalkAsc(fn func(*Level) bool) {
	for n := t.min(t.root); n != t.nil_; n = t.next(n) {
		if !fn(n.level) {
			return
		}
	}
}

// WalkDesc visits levels in descending price order until fn returns false.
func (t *levelTree) WalkDesc(fn func(*Level) bool) {
	for n := t.max(t.root); n != t.nil_; n = t.prev(n) {
		if !fn(n.level) {
			return
		}
	}
}

// ---- lookup helpers ----

func (t *levelTree) find(price int64) *treeNode {
	n := t.root
	for n != t.nil_ {
		switch {
		case price < n.key:
			n = n.left
		case price > n.key:
			n = n.right
		default:
			return n
		}
	}
	return t.nil_
}

func (t *levelTree) min(n *treeNode) *treeNode {
	for n != t.nil_ && n.left != t.nil_ {
		n = n.left
	}
	return n
}

func (t *levelTree) max(n *treeNode) *treeNode {
	for n != t.nil_ && n.right != t.nil_ {
		n = n.right
	}
	return n
}

func (t *levelTree) next(n *treeNode) *treeNode {
	if n.right != t.nil_ {
		return t.min(n.right)
	}
	p := n.parent
	for p != t.nil_ && p != nil && n == p.right {
		n = p
		p = p.parent
	}
	if p == nil {
		return t.nil_
	}
	return p
}

func (t *levelTree) prev(n *treeNode) *treeNode {
	if n.left != t.nil_ {
		return t.max(n.left)
	}
	p := n.parent
	for p != t.nil_ && p != nil && n == p.left {
		n = p
		p = p.parent
	}
	if p == nil {
		return t.nil_
	}
	return p
}

// ---- rotations ----

func (t *levelTree) rotateLeft(x *treeNode) {
	y := x.right
	x.right = y.left
	if y.left != t.nil_ {
		y.left.parent = x
	}
	y.parent = x.parent
	switch {
	case x.parent == t.nil_:
		t.root = y
	case x == x.parent.left:
		x.parent.left = y
	default:
		x.parent.right = y
	}
	y.left = x
	x.parent = y
}

func (t *levelTree) rotateRight(x *treeNode) {
	y := x.left
	x.left = y.right
	if y.right != t.nil_ {
		y.right.parent = x
	}
	y.parent = x.parent
	switch {
	case x.parent == t.nil_:
		t.root = y
	case x == x.parent.right:
		x.parent.right = y
	default:
		x.parent.left = y
	}
	y.right = x
	x.parent = y
}

// ---- insert ----

func (t *levelTree) insert(price int64, lvl *Level) {
	n := &treeNode{key: price, level: lvl, red: true, left: t.nil_, right: t.nil_, parent: t.nil_}

	parent := t.nil_
	cur := t.root
	for cur != t.nil_ {
		parent = cur
		if price < cur.key {
			cur = cur.left
		} else {
			cur = cur.right
		}
	}
	n.parent = parent
	switch {
	case parent == t.nil_:
		t.root = n
	case price < parent.key:
		parent.left = n
	default:
		parent.right = n
	}
	t.size++
	t.insertFixup(n)
}

func (t *levelTree) insertFixup(z *treeNode) {
	for z.parent.red {
		if z.parent == z.parent.parent.left {
			u := z.parent.parent.right
			if u.red {
				z.parent.red = false
				u.red = false
				z.parent.parent.red = true
				z = z.parent.parent
			} else {
				if z == z.parent.right {
					z = z.parent
					t.rotateLeft(z)
				}
				z.parent.red = false
				z.parent.parent.red = true
				t.rotateRight(z.parent.parent)
			}
		} else {
			u := z.parent.parent.left
			if u.red {
				z.parent.red = false
				u.red = false
				z.parent.parent.red = true
				z = z.parent.parent
			} else {
				if z == z.parent.left {
					z = z.parent
					t.rotateRight(z)
				}
				z.parent.red = false
				z.parent.parent.red = true
				t.rotateLeft(z.parent.parent)
			}
		}
	}
	t.root.red = false
}

// ---- delete ----

func (t *levelTree) transplant(u, v *treeNode) {
	switch {
	case u.parent == t.nil_:
		t.root = v
	case u == u.parent.left:
		u.parent.left = v
	default:
		u.parent.right = v
	}
	v.parent = u.parent
}

func (t *levelTree) delete(z *treeNode) {
	y := z
	yWasRed := y.red
	var x *treeNode

	switch {
	case z.left == t.nil_:
		x = z.right
		t.transplant(z, z.right)
	case z.right == t.nil_:
		x = z.left
		t.transplant(z, z.left)
	default:
		y = t.min(z.right)
		yWasRed = y.red
		x = y.right
		if y.parent == z {
			x.parent = y
		} else {
			t.transplant(y, y.right)
			y.right = z.right
			y.right.parent = y
		}
		t.transplant(z, y)
		y.left = z.left
		y.left.parent = y
		y.red = z.red
	}

	if !yWasRed {
		t.deleteFixup(x)
	}
	t.nil_.parent = nil
}

func (t *levelTree) deleteFixup(x *treeNode) {
	for x != t.root && !x.red {
		if x == x.parent.left {
			w := x.parent.right
			if w.red {
				w.red = false
				x.parent.red = true
				t.rotateLeft(x.parent)
				w = x.parent.right
			}
			if !w.left.red && !w.right.red {
				w.red = true
				x = x.parent
			} else {
				if !w.right.red {
					w.left.red = false
					w.red = true
					t.rotateRight(w)
					w = x.parent.right
				}
				w.red = x.parent.red
				x.parent.red = false
				w.right.red = false
				t.rotateLeft(x.parent)
				x = t.root
			}
		} else {
			w := x.parent.left
			if w.red {
				w.red = false
				x.parent.red = true
				t.rotateRight(x.parent)
				w = x.parent.left
			}
			if !w.right.red && !w.left.red {
				w.red = true
				x = x.parent
			} else {
				if !w.left.red {
					w.right.red = false
					w.red = true
					t.rotateLeft(w)
					w = x.parent.left
				}
				w.red = x.parent.red
				x.parent.red = false
				w.left.red = false
				t.rotateRight(x.parent)
				x = t.root
			}
		}
	}
	x.red = false
}

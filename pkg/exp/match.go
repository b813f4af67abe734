package exp

// Equal reports whether a and b are structurally identical trees
func Equal(a, b Exp) bool {
	return match(a, b, false)
}

// Match reports whether e has the shape of pattern. A Wild terminal in the
// pattern matches any sub-tree of e.
func Match(pattern, e Exp) bool {
	return match(pattern, e, true)
}

func match(p, e Exp, wild bool) bool {
	if p == nil || e == nil {
		return p == nil && e == nil
	}
	if wild && IsTerminal(p, OpWild) {
		return true
	}
	switch pp := p.(type) {
	case *Const:
		ee, ok := e.(*Const)
		return ok && pp.Op == ee.Op && pp.Int == ee.Int && pp.Str == ee.Str
	case *Terminal:
		ee, ok := e.(*Terminal)
		return ok && pp.Op == ee.Op
	case *Unary:
		ee, ok := e.(*Unary)
		return ok && pp.Op == ee.Op && match(pp.X, ee.X, wild)
	case *Binary:
		ee, ok := e.(*Binary)
		return ok && pp.Op == ee.Op && match(pp.X, ee.X, wild) && match(pp.Y, ee.Y, wild)
	case *Ternary:
		ee, ok := e.(*Ternary)
		return ok && pp.Op == ee.Op && match(pp.X, ee.X, wild) &&
			match(pp.Y, ee.Y, wild) && match(pp.Z, ee.Z, wild)
	case *Assign:
		ee, ok := e.(*Assign)
		return ok && pp.Size == ee.Size && match(pp.Lhs, ee.Lhs, wild) && match(pp.Rhs, ee.Rhs, wild)
	case *FlagCall:
		ee, ok := e.(*FlagCall)
		if !ok || pp.Name != ee.Name || len(pp.Args) != len(ee.Args) {
			return false
		}
		for i := range pp.Args {
			if !match(pp.Args[i], ee.Args[i], wild) {
				return false
			}
		}
		return true
	}
	return false
}

// Children returns the direct operands of e in evaluation order
func Children(e Exp) []Exp {
	switch n := e.(type) {
	case *Unary:
		return []Exp{n.X}
	case *Binary:
		return []Exp{n.X, n.Y}
	case *Ternary:
		return []Exp{n.X, n.Y, n.Z}
	case *Assign:
		return []Exp{n.Lhs, n.Rhs}
	case *FlagCall:
		return n.Args
	}
	return nil
}

// Walk visits e and its sub-trees in pre-order. Returning false from fn
// stops the descent into the current node's children.
func Walk(e Exp, fn func(Exp) bool) {
	if e == nil || !fn(e) {
		return
	}
	for _, c := range Children(e) {
		Walk(c, fn)
	}
}

// Contains reports whether any sub-tree of e (including e) matches pattern
func Contains(e, pattern Exp) bool {
	found := false
	Walk(e, func(n Exp) bool {
		if found {
			return false
		}
		if Match(pattern, n) {
			found = true
			return false
		}
		return true
	})
	return found
}

// Map rebuilds e bottom-up. fn receives each node after its operands have
// been rebuilt and returns the node to use in its place. Every node of the
// original tree is visited exactly once, so replacements never see each
// other's output.
func Map(e Exp, fn func(Exp) Exp) Exp {
	if e == nil {
		return nil
	}
	var n Exp
	switch x := e.(type) {
	case *Const:
		c := *x
		n = &c
	case *Terminal:
		t := *x
		n = &t
	case *Unary:
		n = &Unary{Op: x.Op, X: Map(x.X, fn)}
	case *Binary:
		n = &Binary{Op: x.Op, X: Map(x.X, fn), Y: Map(x.Y, fn)}
	case *Ternary:
		n = &Ternary{Op: x.Op, X: Map(x.X, fn), Y: Map(x.Y, fn), Z: Map(x.Z, fn)}
	case *Assign:
		n = &Assign{Size: x.Size, Lhs: Map(x.Lhs, fn), Rhs: Map(x.Rhs, fn)}
	case *FlagCall:
		args := make([]Exp, len(x.Args))
		for i, a := range x.Args {
			args[i] = Map(a, fn)
		}
		n = &FlagCall{Name: x.Name, Args: args}
	default:
		n = e
	}
	return fn(n)
}

// Clone returns a deep copy of e
func Clone(e Exp) Exp {
	return Map(e, func(n Exp) Exp { return n })
}

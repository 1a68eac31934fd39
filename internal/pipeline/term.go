package pipeline

import "fmt"

// Op is an operator applied by a unary or binary term.
type Op uint8

const (
	OpAnd Op = iota
	OpOr
	OpNot
	OpAdd
	OpSub
	OpDiv
	OpNeg
	OpEq
	OpNe
)

func (o Op) String() string {
	switch o {
	case OpAnd:
		return "and"
	case OpOr:
		return "or"
	case OpNot:
		return "not"
	case OpAdd:
		return "add"
	case OpSub:
		return "subtract"
	case OpDiv:
		return "divide"
	case OpNeg:
		return "negate"
	case OpEq:
		return "equals"
	case OpNe:
		return "not-equals"
	default:
		return fmt.Sprintf("op(%d)", uint8(o))
	}
}

// logical reports whether the operator works on boolean operands.
func (o Op) logical() bool { return o == OpAnd || o == OpOr || o == OpNot }

// comparison reports whether the operator takes numerics and yields booleans.
func (o Op) comparison() bool { return o == OpEq || o == OpNe }

type termKind uint8

const (
	termSource termKind = iota
	termUnary
	termBinary
	termRank
)

type rankMethod uint8

const (
	rankTop rankMethod = iota
	rankBottom
	rankPercentile
)

// Term is a node in the expression DAG. A term is lazy: building one does no
// evaluation and touches no data source. Terms are immutable once returned,
// which is what lets the evaluator memoize them by identity and share them
// between outputs.
type Term struct {
	kind   termKind
	op     Op
	field  string     // termSource
	method rankMethod // termRank
	n      int
	lo, hi float64
	args   []*Term
	mask   *Term // optional, always boolean
	out    Kind
}

// OutKind returns the value kind the term produces when evaluated.
func (t *Term) OutKind() Kind { return t.out }

// Field returns the source field name, or "" for non-source terms.
func (t *Term) Field() string { return t.field }

// SourceTerm references a named column of the given kind supplied by the
// data source at evaluation time.
func SourceTerm(field string, kind Kind) *Term {
	return &Term{kind: termSource, field: field, out: kind}
}

// Combine builds a binary term. Operand kinds are checked eagerly: logical
// operators need two booleans, everything else two numerics. Comparison
// operators yield a boolean term.
func Combine(op Op, a, b *Term) (*Term, error) {
	if op == OpNot || op == OpNeg {
		return nil, fmt.Errorf("combine: %s is unary", op)
	}
	want := KindNumeric
	if op.logical() {
		want = KindBool
	}
	if a.out != want || b.out != want {
		return nil, &TypeMismatchError{Op: op, Left: a.out, Right: b.out}
	}
	out := want
	if op.comparison() {
		out = KindBool
	}
	t := &Term{kind: termBinary, op: op, args: []*Term{a, b}, out: out}
	if err := checkAcyclic(t); err != nil {
		return nil, err
	}
	return t, nil
}

// Unary builds a logical not or arithmetic negation term.
func Unary(op Op, a *Term) (*Term, error) {
	switch op {
	case OpNot:
		if a.out != KindBool {
			return nil, &TypeMismatchError{Op: op, Left: a.out, Right: KindBool}
		}
	case OpNeg:
		if a.out != KindNumeric {
			return nil, &TypeMismatchError{Op: op, Left: a.out, Right: KindNumeric}
		}
	default:
		return nil, fmt.Errorf("unary: %s is binary", op)
	}
	t := &Term{kind: termUnary, op: op, args: []*Term{a}, out: a.out}
	if err := checkAcyclic(t); err != nil {
		return nil, err
	}
	return t, nil
}

// Masked returns a copy of t restricted to assets where mask is true. An
// existing mask composes by logical AND with the new one.
func Masked(t, mask *Term) (*Term, error) {
	if mask.out != KindBool {
		return nil, &TypeMismatchError{Op: OpAnd, Left: mask.out, Right: KindBool}
	}
	m := mask
	if t.mask != nil {
		var err error
		m, err = Combine(OpAnd, t.mask, mask)
		if err != nil {
			return nil, err
		}
	}
	cp := *t
	cp.mask = m
	if err := checkAcyclic(&cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

// RankSelect builds a rank-based filter over a numeric term. For rankTop and
// rankBottom an n outside (0, active count] degrades to the full active set
// at evaluation time rather than failing. Percentile bounds are validated
// here, eagerly.
func RankSelect(method rankMethod, a *Term, n int, lo, hi float64) (*Term, error) {
	if a.out != KindNumeric {
		return nil, &TypeMismatchError{Op: OpAdd, Left: a.out, Right: KindNumeric}
	}
	if method == rankPercentile {
		if lo < 0 || hi > 100 || lo >= hi {
			return nil, &InvalidRangeError{Lo: lo, Hi: hi}
		}
	}
	t := &Term{kind: termRank, method: method, n: n, lo: lo, hi: hi, args: []*Term{a}, out: KindBool}
	if err := checkAcyclic(t); err != nil {
		return nil, err
	}
	return t, nil
}

// checkAcyclic walks the graph rooted at t and rejects any cycle. Performed
// on every construction so a bad graph fails fast, long before evaluation.
func checkAcyclic(t *Term) error {
	const (
		visiting = 1
		done     = 2
	)
	state := make(map[*Term]uint8)
	var walk func(n *Term) error
	walk = func(n *Term) error {
		if n == nil {
			return nil
		}
		switch state[n] {
		case visiting:
			return &CyclicExpressionError{}
		case done:
			return nil
		}
		state[n] = visiting
		for _, c := range n.args {
			if err := walk(c); err != nil {
				return err
			}
		}
		if err := walk(n.mask); err != nil {
			return err
		}
		state[n] = done
		return nil
	}
	return walk(t)
}

func mustTerm(t *Term, err error) *Term {
	if err != nil {
		panic(err)
	}
	return t
}

package pipeline

import (
	"context"
	"sort"
	"time"
)

// Source supplies named raw columns for one date. Implementations live in
// the repository layer; the evaluator treats a source as already resolved
// and synchronous.
type Source interface {
	GetColumn(ctx context.Context, field string, date time.Time) (Column, error)
}

// Evaluator materializes terms into columns for a single date. Results are
// memoized per term identity, so a term shared by several outputs is
// evaluated once. An evaluator must not be shared across concurrent dates;
// the runner creates one per date.
type Evaluator struct {
	src  Source
	date time.Time
	memo map[*Term]Column
}

// NewEvaluator creates an evaluator bound to one date.
func NewEvaluator(src Source, date time.Time) *Evaluator {
	return &Evaluator{src: src, date: date, memo: make(map[*Term]Column)}
}

func (e *Evaluator) Date() time.Time { return e.date }

// Eval evaluates one term to a concrete column.
func (e *Evaluator) Eval(ctx context.Context, t *Term) (Column, error) {
	if col, ok := e.memo[t]; ok {
		return col, nil
	}

	active, err := e.activeSet(ctx, t)
	if err != nil {
		return Column{}, err
	}

	var col Column
	switch t.kind {
	case termSource:
		col, err = e.evalSource(ctx, t, active)
	case termUnary:
		col, err = e.evalUnary(ctx, t, active)
	case termBinary:
		col, err = e.evalBinary(ctx, t, active)
	case termRank:
		col, err = e.evalRank(ctx, t, active)
	}
	if err != nil {
		return Column{}, err
	}

	e.memo[t] = col
	return col, nil
}

// activeSet resolves the term's mask to a membership predicate. A nil return
// means all assets are active.
func (e *Evaluator) activeSet(ctx context.Context, t *Term) (map[Asset]bool, error) {
	if t.mask == nil {
		return nil, nil
	}
	maskCol, err := e.Eval(ctx, t.mask)
	if err != nil {
		return nil, err
	}
	active := make(map[Asset]bool, maskCol.Len())
	for _, a := range maskCol.TrueAssets() {
		active[a] = true
	}
	return active, nil
}

func inActive(active map[Asset]bool, a Asset) bool {
	return active == nil || active[a]
}

func (e *Evaluator) evalSource(ctx context.Context, t *Term, active map[Asset]bool) (Column, error) {
	raw, err := e.src.GetColumn(ctx, t.field, e.date)
	if err != nil {
		return Column{}, err
	}
	if active == nil {
		return raw, nil
	}
	col := NewColumn(raw.Kind())
	for _, a := range raw.Assets() {
		if active[a] {
			col.Set(a, raw.Get(a))
		}
	}
	return col, nil
}

func (e *Evaluator) evalUnary(ctx context.Context, t *Term, active map[Asset]bool) (Column, error) {
	child, err := e.Eval(ctx, t.args[0])
	if err != nil {
		return Column{}, err
	}
	col := NewColumn(t.out)
	for _, a := range child.Assets() {
		if !inActive(active, a) {
			continue
		}
		v := child.Get(a)
		if v.IsNull() {
			col.Set(a, Null(t.out))
			continue
		}
		switch t.op {
		case OpNot:
			col.Set(a, Bool(!v.Bool()))
		case OpNeg:
			col.Set(a, Num(-v.Num()))
		}
	}
	return col, nil
}

func (e *Evaluator) evalBinary(ctx context.Context, t *Term, active map[Asset]bool) (Column, error) {
	left, err := e.Eval(ctx, t.args[0])
	if err != nil {
		return Column{}, err
	}
	right, err := e.Eval(ctx, t.args[1])
	if err != nil {
		return Column{}, err
	}

	domain := make(map[Asset]struct{}, left.Len()+right.Len())
	for _, a := range left.Assets() {
		domain[a] = struct{}{}
	}
	for _, a := range right.Assets() {
		domain[a] = struct{}{}
	}

	col := NewColumn(t.out)
	for a := range domain {
		if !inActive(active, a) {
			continue
		}
		col.Set(a, applyBinary(t.op, left.Get(a), right.Get(a)))
	}
	return col, nil
}

// applyBinary applies op pointwise. Arithmetic with a null operand yields
// null; logical operators treat null as false, which matches how filters
// resolve nulls to excluded.
func applyBinary(op Op, l, r Value) Value {
	switch op {
	case OpAnd:
		return Bool(l.Bool() && r.Bool())
	case OpOr:
		return Bool(l.Bool() || r.Bool())
	}
	if l.IsNull() || r.IsNull() {
		if op.comparison() {
			return Null(KindBool)
		}
		return Null(KindNumeric)
	}
	switch op {
	case OpAdd:
		return Num(l.Num() + r.Num())
	case OpSub:
		return Num(l.Num() - r.Num())
	case OpDiv:
		if r.Num() == 0 {
			return Null(KindNumeric)
		}
		return Num(l.Num() / r.Num())
	case OpEq:
		return Bool(l.Num() == r.Num())
	case OpNe:
		return Bool(l.Num() != r.Num())
	}
	return Null(KindNumeric)
}

type ranked struct {
	asset Asset
	value float64
}

func (e *Evaluator) evalRank(ctx context.Context, t *Term, active map[Asset]bool) (Column, error) {
	child, err := e.Eval(ctx, t.args[0])
	if err != nil {
		return Column{}, err
	}

	// Gather the fully materialized, masked cross-section. Nulls never rank.
	pool := make([]ranked, 0, child.Len())
	col := NewColumn(KindBool)
	for _, a := range child.Assets() {
		if !inActive(active, a) {
			continue
		}
		v := child.Get(a)
		if v.IsNull() {
			col.Set(a, Bool(false))
			continue
		}
		pool = append(pool, ranked{asset: a, value: v.Num()})
		col.Set(a, Bool(false))
	}

	// Ascending by value, ties broken by asset id. This is what makes rank
	// selection reproducible across runs on identical inputs.
	sort.Slice(pool, func(i, j int) bool {
		if pool[i].value != pool[j].value {
			return pool[i].value < pool[j].value
		}
		return pool[i].asset < pool[j].asset
	})

	count := len(pool)
	if count == 0 {
		return col, nil
	}

	switch t.method {
	case rankTop:
		n := t.n
		if n <= 0 || n > count {
			n = count // degrade to the full active set
		}
		for _, r := range pool[count-n:] {
			col.Set(r.asset, Bool(true))
		}
	case rankBottom:
		n := t.n
		if n <= 0 || n > count {
			n = count
		}
		for _, r := range pool[:n] {
			col.Set(r.asset, Bool(true))
		}
	case rankPercentile:
		lo, hi := t.lo/100, t.hi/100
		for i, r := range pool {
			frac := 0.0
			if count > 1 {
				frac = float64(i) / float64(count-1)
			}
			if frac >= lo && frac <= hi {
				col.Set(r.asset, Bool(true))
			}
		}
	}
	return col, nil
}

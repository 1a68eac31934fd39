package pipeline

// Factor is a numeric expression over the cross-section. The typed wrapper
// makes arithmetic composition infallible: kind mismatches are impossible to
// express, so the only fallible constructor left is PercentileBetween.
type Factor struct {
	t *Term
}

// ColumnFactor references a numeric source column by name.
func ColumnFactor(field string) Factor {
	return Factor{t: SourceTerm(field, KindNumeric)}
}

// FactorFrom wraps an already-built numeric term.
func FactorFrom(t *Term) (Factor, error) {
	if t.OutKind() != KindNumeric {
		return Factor{}, &TypeMismatchError{Op: OpAdd, Left: t.OutKind(), Right: KindNumeric}
	}
	return Factor{t: t}, nil
}

// Term exposes the underlying node for evaluation and dynamic composition.
func (f Factor) Term() *Term { return f.t }

func (f Factor) Add(o Factor) Factor { return Factor{t: mustTerm(Combine(OpAdd, f.t, o.t))} }
func (f Factor) Sub(o Factor) Factor { return Factor{t: mustTerm(Combine(OpSub, f.t, o.t))} }
func (f Factor) Div(o Factor) Factor { return Factor{t: mustTerm(Combine(OpDiv, f.t, o.t))} }

// Negate is the arithmetic inverse: -x per asset.
func (f Factor) Negate() Factor { return Factor{t: mustTerm(Unary(OpNeg, f.t))} }

func (f Factor) Eq(o Factor) Filter { return Filter{t: mustTerm(Combine(OpEq, f.t, o.t))} }
func (f Factor) Ne(o Factor) Filter { return Filter{t: mustTerm(Combine(OpNe, f.t, o.t))} }

// WithMask restricts the factor to assets passing the mask. Masks stack by
// logical AND.
func (f Factor) WithMask(m Filter) Factor { return Factor{t: mustTerm(Masked(f.t, m.t))} }

// RankTop selects the n largest values over the active set.
func (f Factor) RankTop(n int) Filter {
	return Filter{t: mustTerm(RankSelect(rankTop, f.t, n, 0, 0))}
}

// RankBottom selects the n smallest values over the active set.
func (f Factor) RankBottom(n int) Filter {
	return Filter{t: mustTerm(RankSelect(rankBottom, f.t, n, 0, 0))}
}

// PercentileBetween selects assets whose percentile rank over the active set
// falls in [lo, hi] inclusive. Bounds outside 0 <= lo < hi <= 100 fail with
// InvalidRangeError.
func (f Factor) PercentileBetween(lo, hi float64) (Filter, error) {
	t, err := RankSelect(rankPercentile, f.t, 0, lo, hi)
	if err != nil {
		return Filter{}, err
	}
	return Filter{t: t}, nil
}

// Filter is a boolean expression over the cross-section.
type Filter struct {
	t *Term
}

// ColumnFilter references a boolean source column by name.
func ColumnFilter(field string) Filter {
	return Filter{t: SourceTerm(field, KindBool)}
}

// FilterFrom wraps an already-built boolean term.
func FilterFrom(t *Term) (Filter, error) {
	if t.OutKind() != KindBool {
		return Filter{}, &TypeMismatchError{Op: OpAnd, Left: t.OutKind(), Right: KindBool}
	}
	return Filter{t: t}, nil
}

func (f Filter) Term() *Term { return f.t }

func (f Filter) And(o Filter) Filter { return Filter{t: mustTerm(Combine(OpAnd, f.t, o.t))} }
func (f Filter) Or(o Filter) Filter  { return Filter{t: mustTerm(Combine(OpOr, f.t, o.t))} }

// Not is the logical inverse per asset. Nulls stay null and therefore stay
// excluded; Not does not resurrect missing assets.
func (f Filter) Not() Filter { return Filter{t: mustTerm(Unary(OpNot, f.t))} }

// WithMask restricts the filter to assets passing the mask.
func (f Filter) WithMask(m Filter) Filter { return Filter{t: mustTerm(Masked(f.t, m.t))} }

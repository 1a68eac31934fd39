package pipeline

import "fmt"

// Kind discriminates the value type a Column or Term carries.
type Kind uint8

const (
	KindNumeric Kind = iota
	KindBool
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is one nullable cell of a Column. The zero value is a null numeric.
type Value struct {
	kind Kind
	null bool
	num  float64
	b    bool
	str  string
}

// Num builds a numeric value.
func Num(f float64) Value { return Value{kind: KindNumeric, num: f} }

// Bool builds a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Str builds a string value.
func Str(s string) Value { return Value{kind: KindString, str: s} }

// Null builds a missing value of the given kind.
func Null(k Kind) Value { return Value{kind: k, null: true} }

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.null }

// Num returns the numeric payload, 0 when null or non-numeric.
func (v Value) Num() float64 { return v.num }

// Bool returns the boolean payload. A null boolean reads as false, which is
// also how the evaluator treats nulls flowing into filters: excluded.
func (v Value) Bool() bool { return !v.null && v.b }

func (v Value) Str() string { return v.str }

func (v Value) String() string {
	if v.null {
		return "null"
	}
	switch v.kind {
	case KindNumeric:
		return fmt.Sprintf("%g", v.num)
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	default:
		return v.str
	}
}

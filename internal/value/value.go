// Package value defines the runtime value model shared by the compiler
// and the VM: a small tagged variant over nil, bool, number, string,
// function and native-function.
package value

import (
	"fmt"
	"strconv"
)

// Type tags a Value's active variant.
type Type int

const (
	Nil Type = iota
	Bool
	Number
	String
	Function
	Native
)

// NativeFunc is the signature of a host-provided native function. It
// receives the evaluated call arguments and returns a Value or a runtime
// error; arity/type validation is the native's own responsibility, the
// same way a user-defined lumen function's Arity is checked by the VM
// before the native is ever invoked is NOT the case here — natives are
// variadic from the VM's point of view and must check len(args) themselves.
type NativeFunc func(args []Value) (Value, error)

// ObjFunction is a compiled lumen function: its name, declared arity, and
// the Chunk that implements its body. Top-level programs are compiled as
// a synthetic ObjFunction named "main" with arity 0.
type ObjFunction struct {
	Name  string
	Arity int
	Chunk interface{} // *chunk.Chunk; interface{} avoids an import cycle
}

// ObjNative wraps a host function under a display name.
type ObjNative struct {
	Name string
	Fn   NativeFunc
}

// Value is a copy-by-value tagged variant. Strings and functions are
// shared by reference through the Obj field; Go's garbage collector
// reclaims them once the last Value referencing them is gone, which is
// this core's reference-counting story made free by the host language
// (see DESIGN.md).
type Value struct {
	Type   Type
	Bool   bool
	Number float64
	Obj    interface{} // string, *ObjFunction, or *ObjNative
}

// NewNil returns the Nil value.
func NewNil() Value { return Value{Type: Nil} }

// NewBool wraps a bool.
func NewBool(b bool) Value { return Value{Type: Bool, Bool: b} }

// NewNumber wraps a float64.
func NewNumber(n float64) Value { return Value{Type: Number, Number: n} }

// NewString wraps a string.
func NewString(s string) Value { return Value{Type: String, Obj: s} }

// NewFunction wraps a compiled function.
func NewFunction(fn *ObjFunction) Value { return Value{Type: Function, Obj: fn} }

// NewNative wraps a host function under name.
func NewNative(name string, fn NativeFunc) Value {
	return Value{Type: Native, Obj: &ObjNative{Name: name, Fn: fn}}
}

// AsString returns the underlying Go string. Callers must check Type ==
// String first.
func (v Value) AsString() string { return v.Obj.(string) }

// AsFunction returns the underlying *ObjFunction. Callers must check
// Type == Function first.
func (v Value) AsFunction() *ObjFunction { return v.Obj.(*ObjFunction) }

// AsNative returns the underlying *ObjNative. Callers must check Type ==
// Native first.
func (v Value) AsNative() *ObjNative { return v.Obj.(*ObjNative) }

// IsFalsey reports whether v acts as false in a conditional: nil or the
// boolean false. Everything else, including 0 and "", is truthy.
func (v Value) IsFalsey() bool {
	switch v.Type {
	case Nil:
		return true
	case Bool:
		return !v.Bool
	default:
		return false
	}
}

// Equal implements the language's equality: same variant and same
// content. Cross-variant comparisons are always false, never an error.
func Equal(a, b Value) bool {
	if a.Type != b.Type {
		return false
	}
	switch a.Type {
	case Nil:
		return true
	case Bool:
		return a.Bool == b.Bool
	case Number:
		return a.Number == b.Number
	case String:
		return a.AsString() == b.AsString()
	case Function:
		af, bf := a.AsFunction(), b.AsFunction()
		return af.Name == bf.Name && af.Arity == bf.Arity && af.Chunk == bf.Chunk
	default:
		return false
	}
}

// String formats v the way Print renders it: no quotes around strings,
// shortest round-trip decimal for numbers, "<fn 'NAME'>" for functions.
func (v Value) String() string {
	switch v.Type {
	case Nil:
		return "nil"
	case Bool:
		if v.Bool {
			return "true"
		}
		return "false"
	case Number:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case String:
		return v.AsString()
	case Function:
		return fmt.Sprintf("<fn '%s'>", v.AsFunction().Name)
	case Native:
		return fmt.Sprintf("<native '%s'>", v.AsNative().Name)
	default:
		return "<unknown value>"
	}
}

// TypeName returns a human-readable name for v's type, used in runtime
// error messages.
func (v Value) TypeName() string {
	switch v.Type {
	case Nil:
		return "nil"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Function:
		return "function"
	case Native:
		return "native function"
	default:
		return "unknown"
	}
}

package calc

import (
	"math/big"
	"time"

	"rpnengine/arena"
	"rpnengine/calcerr"
	"rpnengine/cplx"
	"rpnengine/matrix"
	"rpnengine/number"
	"rpnengine/undo"
	"rpnengine/unit"
	"rpnengine/value"
)

// Context wraps a Stack with the rest of the engine's command surface:
// display format, angle mode, named/numbered memory, and every arithmetic,
// transcendental, bitwise, date/time, unit, and vector/matrix operation.
type Context struct {
	a                      *arena.Arena
	stack                  *Stack
	format                 Format
	defaultIntegerFormat   IntegerMode
	prevDecimalIntegerMode IntegerMode
	angleMode              value.AngleMode
	memory                 map[Location]arena.Ref[value.Value]
	lastX                  arena.Ref[value.Value]
	clock                  Clock
}

// NewContext creates a Context with undo recording disabled.
func NewContext(a *arena.Arena) *Context {
	return newContext(a, NewStack(a))
}

// NewContextWithUndo creates a Context whose stack records every mutation
// for later Undo.
func NewContextWithUndo(a *arena.Arena, undoBuf *undo.Buffer) *Context {
	return newContext(a, NewStackWithUndo(a, undoBuf))
}

func newContext(a *arena.Arena, s *Stack) *Context {
	return &Context{
		a:                      a,
		stack:                  s,
		format:                 NewFormat(),
		defaultIntegerFormat:   BigIntegerMode(),
		prevDecimalIntegerMode: FloatMode(),
		angleMode:              unit.Degrees,
		memory:                 map[Location]arena.Ref[value.Value]{},
		clock:                  SystemClock,
	}
}

// SetClock overrides the time source Now reads from.
func (c *Context) SetClock(clock Clock) { c.clock = clock }

// Stack exposes the underlying Stack for direct manipulation (tests,
// serialization, UI event wiring).
func (c *Context) Stack() *Stack { return c.stack }

// Format returns the active display settings.
func (c *Context) Format() Format { return c.format }

func (c *Context) SetFormatMode(mode FormatMode) {
	c.format.Mode = mode
	c.stack.InvalidateCaches()
}

func (c *Context) ToggleAltHex() {
	c.format.ShowAltHex = !c.format.ShowAltHex
	c.stack.InvalidateCaches()
}

func (c *Context) ToggleAltFloat() {
	c.format.ShowAltFloat = !c.format.ShowAltFloat
	c.stack.InvalidateCaches()
}

func (c *Context) SetThousandsSeparator(state bool) {
	c.format.Thousands = state
	c.stack.InvalidateCaches()
}

func (c *Context) SetDecimalPointMode(mode DecimalPointMode) {
	c.format.DecimalPoint = mode
	c.stack.InvalidateCaches()
}

func (c *Context) SetFloatMode() error {
	if c.format.IntegerRadix != 10 {
		return calcerr.New(calcerr.FloatRequiresDecimalMode)
	}
	c.format.IntegerMode = FloatMode()
	c.stack.InvalidateCaches()
	return nil
}

func (c *Context) SetIntegerMode(mode IntegerMode) {
	c.format.IntegerMode = mode
	c.defaultIntegerFormat = mode
	c.stack.InvalidateCaches()
}

func (c *Context) SetIntegerRadix(radix uint8) {
	if radix == 10 {
		if c.format.IntegerRadix != 10 {
			c.format.IntegerMode = c.prevDecimalIntegerMode
		}
		c.format.IntegerRadix = radix
	} else {
		if c.format.IntegerRadix == 10 {
			c.prevDecimalIntegerMode = c.format.IntegerMode
			c.format.IntegerMode = c.defaultIntegerFormat
		}
		c.format.IntegerRadix = radix
	}
	c.stack.InvalidateCaches()
}

func (c *Context) ToggleIntegerRadix() {
	if c.format.IntegerRadix == 10 {
		c.SetIntegerRadix(16)
	} else {
		c.SetIntegerRadix(10)
	}
}

func (c *Context) DefaultIntegerFormat() IntegerMode         { return c.defaultIntegerFormat }
func (c *Context) SetDefaultIntegerFormat(mode IntegerMode)  { c.defaultIntegerFormat = mode }
func (c *Context) PrevDecimalIntegerMode() IntegerMode       { return c.prevDecimalIntegerMode }
func (c *Context) SetPrevDecimalIntegerMode(mode IntegerMode) { c.prevDecimalIntegerMode = mode }

func (c *Context) AngleMode() value.AngleMode        { return c.angleMode }
func (c *Context) SetAngleMode(m value.AngleMode)     { c.angleMode = m }

// StackLen reports the number of live stack entries.
func (c *Context) StackLen() int { return c.stack.Len() }

// Top decodes the top-of-stack value, coerced per the active IntegerMode.
func (c *Context) Top() (value.Value, error) {
	v, err := c.stack.Top()
	if err != nil {
		return value.Value{}, err
	}
	return ValueForIntegerMode(c.format.IntegerMode, v), nil
}

// Entry decodes the value idx positions down from the top, coerced per the
// active IntegerMode.
func (c *Context) Entry(idx int) (value.Value, error) {
	v, err := c.stack.Entry(idx)
	if err != nil {
		return value.Value{}, err
	}
	return ValueForIntegerMode(c.format.IntegerMode, v), nil
}

// captureLastX snapshots the current top-of-stack (the x operand about to
// be consumed) so LastX can push it back later. Best effort: an empty stack
// or a failed snapshot simply leaves the previous last-x in place.
func (c *Context) captureLastX() {
	top, err := c.stack.Top()
	if err != nil {
		return
	}
	ref, err := arena.Store(c.a, top, false)
	top.Release(c.a)
	if err != nil {
		return
	}
	if c.lastX.Valid() {
		_ = arena.Drop(c.a, c.lastX, value.Decode)
	}
	c.lastX = ref
}

// LastX pushes the operand consumed by the most recent command.
func (c *Context) LastX() error {
	if !c.lastX.Valid() {
		return calcerr.New(calcerr.ValueNotDefined)
	}
	v, err := arena.Get(c.a, c.lastX, value.Decode)
	if err != nil {
		return err
	}
	err = c.Push(v)
	v.Release(c.a)
	return err
}

// ClearLastX discards the retained last-x operand.
func (c *Context) ClearLastX() {
	if c.lastX.Valid() {
		_ = arena.Drop(c.a, c.lastX, value.Decode)
		c.lastX = arena.Ref[value.Value]{}
	}
}

func (c *Context) ReplaceEntries(count int, v value.Value) error {
	c.captureLastX()
	return c.stack.ReplaceEntries(count, ValueForIntegerMode(c.format.IntegerMode, v))
}

func (c *Context) ReplaceTopWithMultiple(items []arena.Ref[value.Value]) error {
	return c.stack.ReplaceTopWithMultiple(items)
}

func (c *Context) SetTop(v value.Value) error {
	c.captureLastX()
	return c.stack.SetTop(ValueForIntegerMode(c.format.IntegerMode, v))
}

func (c *Context) SetEntry(idx int, v value.Value) error {
	return c.stack.SetEntry(idx, ValueForIntegerMode(c.format.IntegerMode, v))
}

func (c *Context) Push(v value.Value) error {
	return c.stack.Push(ValueForIntegerMode(c.format.IntegerMode, v))
}

func (c *Context) Pop() (value.Value, error) {
	v, err := c.stack.Pop()
	if err != nil {
		return value.Value{}, err
	}
	return ValueForIntegerMode(c.format.IntegerMode, v), nil
}

// Enter duplicates the top entry, the RPN "ENTER" key.
func (c *Context) Enter() error { return c.stack.Enter() }

// InputValue pushes v coerced to the active IntegerMode, the path numeric
// keyboard entry commits through.
func (c *Context) InputValue(v value.Value) error {
	return c.stack.InputValue(ValueForIntegerMode(c.format.IntegerMode, v))
}

func (c *Context) RotateDown()                { c.stack.RotateDown() }
func (c *Context) Swap(a, b int) error        { return c.stack.Swap(a, b) }
func (c *Context) ClearStack()                { c.stack.Clear() }
func (c *Context) ClearUndoBuffer()           { c.stack.ClearUndoBuffer() }
func (c *Context) Undo() error                { return c.stack.Undo() }

// Read dereferences location: a StackOffset routes straight to the stack,
// everything else through the memory map.
func (c *Context) Read(loc Location) (value.Value, error) {
	if loc.Kind() == LocationStackOffset {
		return c.Entry(loc.Index())
	}
	ref, ok := c.memory[loc]
	if !ok {
		return value.Value{}, calcerr.New(calcerr.ValueNotDefined)
	}
	return arena.Get(c.a, ref, value.Decode)
}

// Write stores v at location, through the stack for a StackOffset or into
// the memory map otherwise (dropping whatever previously occupied the
// slot).
func (c *Context) Write(loc Location, v value.Value) error {
	if loc.Kind() == LocationStackOffset {
		return c.SetEntry(loc.Index(), v)
	}
	fresh, err := arena.Store(c.a, v, false)
	if err != nil {
		return err
	}
	if old, ok := c.memory[loc]; ok {
		if err := arena.Drop(c.a, old, value.Decode); err != nil {
			return err
		}
	}
	c.memory[loc] = fresh
	return nil
}

// Exchange swaps the top of stack with the value stored at location.
func (c *Context) Exchange(loc Location) error {
	top, err := c.Top()
	if err != nil {
		return err
	}
	stored, err := c.Read(loc)
	if err != nil {
		return c.release(err, top)
	}
	if err := c.Write(loc, top); err != nil {
		return c.release(err, top, stored)
	}
	return c.release(c.SetTop(stored), top, stored)
}

// ClearVariables drops every named-variable memory slot, leaving numbered
// registers intact.
func (c *Context) ClearVariables() {
	for loc, ref := range c.memory {
		if loc.Kind() == LocationVariable {
			_ = arena.Drop(c.a, ref, value.Decode)
			delete(c.memory, loc)
		}
	}
}

// release drops the element counts held by decoded aggregate clones and by
// result temporaries once a command has committed (or failed). Scalar values
// hold no element counts, so releasing them costs nothing. Returns err so
// call sites can release and propagate in one expression.
func (c *Context) release(err error, used ...value.Value) error {
	for _, v := range used {
		v.Release(c.a)
	}
	return err
}

// ---- arithmetic ----

func (c *Context) Add() error {
	x, err := c.Entry(1)
	if err != nil {
		return err
	}
	y, err := c.Entry(0)
	if err != nil {
		return c.release(err, x)
	}
	result, err := value.Add(x, y)
	if err != nil {
		return c.release(err, x, y)
	}
	return c.release(c.ReplaceEntries(2, result), x, y)
}

func (c *Context) Sub() error {
	x, err := c.Entry(1)
	if err != nil {
		return err
	}
	y, err := c.Entry(0)
	if err != nil {
		return c.release(err, x)
	}
	result, err := value.Sub(x, y)
	if err != nil {
		return c.release(err, x, y)
	}
	return c.release(c.ReplaceEntries(2, result), x, y)
}

func (c *Context) Mul() error {
	x, err := c.Entry(1)
	if err != nil {
		return err
	}
	y, err := c.Entry(0)
	if err != nil {
		return c.release(err, x)
	}
	result, err := value.Mul(c.a, x, y)
	if err != nil {
		return c.release(err, x, y)
	}
	return c.release(c.ReplaceEntries(2, result), x, y, result)
}

func (c *Context) Div() error {
	x, err := c.Entry(1)
	if err != nil {
		return err
	}
	y, err := c.Entry(0)
	if err != nil {
		return c.release(err, x)
	}
	result, err := value.Div(c.a, x, y)
	if err != nil {
		return c.release(err, x, y)
	}
	return c.release(c.ReplaceEntries(2, result), x, y, result)
}

func (c *Context) Recip() error {
	top, err := c.Top()
	if err != nil {
		return err
	}
	result, err := value.Div(c.a, value.NumberValue(number.FromInt64(1)), top)
	if err != nil {
		return c.release(err, top)
	}
	return c.release(c.SetTop(result), top, result)
}

func (c *Context) Pow() error {
	x, err := c.Entry(1)
	if err != nil {
		return err
	}
	y, err := c.Entry(0)
	if err != nil {
		return c.release(err, x)
	}
	result, err := x.Pow(y)
	if err != nil {
		return c.release(err, x, y)
	}
	return c.release(c.ReplaceEntries(2, result), x, y)
}

func (c *Context) Sqrt() error {
	top, err := c.Top()
	if err != nil {
		return err
	}
	result, err := top.Sqrt()
	if err != nil {
		return c.release(err, top)
	}
	return c.release(c.SetTop(result), top)
}

func (c *Context) Square() error {
	top, err := c.Top()
	if err != nil {
		return err
	}
	result, err := value.Mul(c.a, top, top)
	if err != nil {
		return c.release(err, top)
	}
	return c.release(c.SetTop(result), top, result)
}

func (c *Context) Percent() error {
	hundred := value.NumberValue(number.FromInt64(100))
	x, err := c.Entry(0)
	if err != nil {
		return err
	}
	factor, err := value.Div(c.a, x, hundred)
	if err != nil {
		return c.release(err, x)
	}
	y, err := c.Entry(1)
	if err != nil {
		return c.release(err, x, factor)
	}
	result, err := value.Mul(c.a, y, factor)
	if err != nil {
		return c.release(err, x, factor, y)
	}
	return c.release(c.SetTop(result), x, factor, y, result)
}

// PercentChange replaces x with 100*(x-y)/y, keeping the base y in place.
func (c *Context) PercentChange() error {
	x, err := c.Entry(0)
	if err != nil {
		return err
	}
	y, err := c.Entry(1)
	if err != nil {
		return c.release(err, x)
	}
	diff, err := value.Sub(x, y)
	if err != nil {
		return c.release(err, x, y)
	}
	ratio, err := value.Div(c.a, diff, y)
	if err != nil {
		return c.release(err, x, y)
	}
	result, err := value.Mul(c.a, ratio, value.NumberValue(number.FromInt64(100)))
	if err != nil {
		return c.release(err, x, y)
	}
	return c.release(c.SetTop(result), x, y)
}

// ---- transcendentals ----

func (c *Context) Log() error { return c.unary(value.Value.Log) }
func (c *Context) Exp10() error { return c.unary(value.Value.Exp10) }
func (c *Context) Ln() error  { return c.unary(value.Value.Ln) }
func (c *Context) Exp() error { return c.unary(value.Value.Exp) }
func (c *Context) Log2() error { return c.unary(value.Value.Log2) }
func (c *Context) Exp2() error { return c.unary(value.Value.Exp2) }

func (c *Context) Erf() error     { return c.unary(value.Value.Erf) }
func (c *Context) Erfc() error    { return c.unary(value.Value.Erfc) }
func (c *Context) Gamma() error   { return c.unary(value.Value.Gamma) }
func (c *Context) LnGamma() error { return c.unary(value.Value.LnGamma) }

func (c *Context) unary(fn func(value.Value) (value.Value, error)) error {
	top, err := c.Top()
	if err != nil {
		return err
	}
	result, err := fn(top)
	if err != nil {
		return c.release(err, top)
	}
	return c.release(c.SetTop(result), top)
}

func (c *Context) Sin() error { return c.unaryAngle(value.Value.Sin) }
func (c *Context) Cos() error { return c.unaryAngle(value.Value.Cos) }
func (c *Context) Tan() error { return c.unaryAngle(value.Value.Tan) }
func (c *Context) Asin() error { return c.unaryAngle(value.Value.Asin) }
func (c *Context) Acos() error { return c.unaryAngle(value.Value.Acos) }
func (c *Context) Atan() error { return c.unaryAngle(value.Value.Atan) }

func (c *Context) unaryAngle(fn func(value.Value, value.AngleMode) (value.Value, error)) error {
	top, err := c.Top()
	if err != nil {
		return err
	}
	result, err := fn(top, c.angleMode)
	if err != nil {
		return c.release(err, top)
	}
	return c.release(c.SetTop(result), top)
}

func (c *Context) Sinh() error  { return c.unary(value.Value.Sinh) }
func (c *Context) Cosh() error  { return c.unary(value.Value.Cosh) }
func (c *Context) Tanh() error  { return c.unary(value.Value.Tanh) }
func (c *Context) Asinh() error { return c.unary(value.Value.Asinh) }
func (c *Context) Acosh() error { return c.unary(value.Value.Acosh) }
func (c *Context) Atanh() error { return c.unary(value.Value.Atanh) }

// ---- bitwise/integer ----

func (c *Context) bitwise(op func(x, y *big.Int) *big.Int) error {
	x, err := c.Entry(1)
	if err != nil {
		return err
	}
	y, err := c.Entry(0)
	if err != nil {
		return c.release(err, x)
	}
	xi, err := toBigInt(x)
	if err != nil {
		return c.release(err, x, y)
	}
	yi, err := toBigInt(y)
	if err != nil {
		return c.release(err, x, y)
	}
	result := op(xi, yi)
	return c.release(c.ReplaceEntries(2, value.NumberValue(number.FromBigInt(result))), x, y)
}

func toBigInt(v value.Value) (*big.Int, error) {
	n, err := v.ToInt()
	if err != nil {
		return nil, err
	}
	i, ok := n.AsInt()
	if !ok {
		return nil, calcerr.New(calcerr.InvalidInteger)
	}
	return i, nil
}

func (c *Context) And() error {
	return c.bitwise(func(x, y *big.Int) *big.Int { return new(big.Int).And(x, y) })
}
func (c *Context) Or() error {
	return c.bitwise(func(x, y *big.Int) *big.Int { return new(big.Int).Or(x, y) })
}
func (c *Context) Xor() error {
	return c.bitwise(func(x, y *big.Int) *big.Int { return new(big.Int).Xor(x, y) })
}

func (c *Context) Not() error {
	top, err := c.Top()
	if err != nil {
		return err
	}
	i, err := toBigInt(top)
	if err != nil {
		return c.release(err, top)
	}
	result := new(big.Int).Not(i)
	return c.release(c.SetTop(value.NumberValue(number.FromBigInt(result))), top)
}

func isPowerOfTwo(n uint) bool { return n != 0 && n&(n-1) == 0 }

// shiftAmount reads entry 0, masking it to the sized-integer width when the
// active mode is a power-of-two SizedInteger; non-power-of-two widths take
// the amount unmasked.
func (c *Context) shiftAmount() (uint, error) {
	x, err := c.Entry(0)
	if err != nil {
		return 0, err
	}
	xi, err := toBigInt(x)
	x.Release(c.a)
	if err != nil {
		return 0, err
	}
	mode := c.format.IntegerMode
	if mode.Kind == IntegerModeSized && isPowerOfTwo(mode.Size) {
		mask := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), mode.Size), big.NewInt(1))
		xi = new(big.Int).And(xi, mask)
	}
	if !xi.IsUint64() || xi.Uint64() > (1<<32-1) {
		return 0, calcerr.New(calcerr.ValueOutOfRange)
	}
	return uint(xi.Uint64()), nil
}

func (c *Context) Shl() error {
	shift, err := c.shiftAmount()
	if err != nil {
		return err
	}
	y, err := c.Entry(1)
	if err != nil {
		return err
	}
	yi, err := toBigInt(y)
	y.Release(c.a)
	if err != nil {
		return err
	}
	if uint(yi.BitLen())+shift > number.MaxIntegerBits {
		return calcerr.New(calcerr.ValueOutOfRange)
	}
	result := new(big.Int).Lsh(yi, shift)
	return c.ReplaceEntries(2, value.NumberValue(number.FromBigInt(result)))
}

func (c *Context) Shr() error {
	shift, err := c.shiftAmount()
	if err != nil {
		return err
	}
	y, err := c.Entry(1)
	if err != nil {
		return err
	}
	yi, err := toBigInt(y)
	y.Release(c.a)
	if err != nil {
		return err
	}
	result := new(big.Int).Rsh(yi, shift)
	return c.ReplaceEntries(2, value.NumberValue(number.FromBigInt(result)))
}

func (c *Context) rotate(dir func(y *big.Int, shift, size uint) *big.Int) error {
	mode := c.format.IntegerMode
	if mode.Kind != IntegerModeSized {
		return calcerr.New(calcerr.RequiresSizedIntegerMode)
	}
	shift, err := c.shiftAmount()
	if err != nil {
		return err
	}
	if shift >= mode.Size {
		return calcerr.New(calcerr.ValueOutOfRange)
	}
	y, err := c.Entry(1)
	if err != nil {
		return err
	}
	yi, err := toBigInt(y)
	y.Release(c.a)
	if err != nil {
		return err
	}
	result := dir(yi, shift, mode.Size)
	return c.ReplaceEntries(2, value.NumberValue(number.FromBigInt(result)))
}

func (c *Context) RotateLeft() error {
	return c.rotate(func(y *big.Int, shift, size uint) *big.Int {
		left := new(big.Int).Lsh(y, shift)
		right := new(big.Int).Rsh(y, size-shift)
		return new(big.Int).Or(left, right)
	})
}

func (c *Context) RotateRight() error {
	return c.rotate(func(y *big.Int, shift, size uint) *big.Int {
		right := new(big.Int).Rsh(y, shift)
		left := new(big.Int).Lsh(y, size-shift)
		return new(big.Int).Or(right, left)
	})
}

// ---- date/time ----

// Now pushes the current wall-clock time as a DateTime.
func (c *Context) Now() error {
	return c.Push(value.DateTimeValue(c.clock()))
}

func (c *Context) Date() error {
	top, err := c.Top()
	if err != nil {
		return err
	}
	if top.Kind() == value.KindDateTime {
		t, err := top.Time()
		if err != nil {
			return err
		}
		return c.SetTop(value.DateValue(t))
	}
	top.Release(c.a)
	year, err := c.entryInt(2)
	if err != nil {
		return err
	}
	month, err := c.entryInt(1)
	if err != nil {
		return err
	}
	day, err := c.entryInt(0)
	if err != nil {
		return err
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return calcerr.New(calcerr.InvalidDate)
	}
	date := dateFromYMD(int(year), int(month), int(day))
	return c.ReplaceEntries(3, value.DateValue(date))
}

func (c *Context) Time() error {
	top, err := c.Top()
	if err != nil {
		return err
	}
	if top.Kind() == value.KindDateTime {
		t, err := top.Time()
		if err != nil {
			return err
		}
		return c.SetTop(value.TimeValue(t))
	}
	top.Release(c.a)
	hr, err := c.entryInt(2)
	if err != nil {
		return err
	}
	min, err := c.entryInt(1)
	if err != nil {
		return err
	}
	secEntry, err := c.Entry(0)
	if err != nil {
		return err
	}
	secNum, err := secEntry.RealNumber()
	secEntry.Release(c.a)
	if err != nil {
		return err
	}
	nanos := secNum.Mul(number.FromInt64(1_000_000_000))
	nanosInt, err := nanos.Int()
	if err != nil {
		return err
	}
	if hr < 0 || hr > 23 || min < 0 || min > 59 || !nanosInt.IsInt64() || nanosInt.Sign() < 0 {
		return calcerr.New(calcerr.InvalidTime)
	}
	sec := nanosInt.Int64() / 1_000_000_000
	nsec := nanosInt.Int64() % 1_000_000_000
	if sec < 0 || sec > 59 {
		return calcerr.New(calcerr.InvalidTime)
	}
	t := timeFromHMS(int(hr), int(min), int(sec), int(nsec))
	return c.ReplaceEntries(3, value.TimeValue(t))
}

// ToJulianDay replaces a Date or DateTime top of stack with its Julian day
// number (proleptic Gregorian civil calendar).
func (c *Context) ToJulianDay() error {
	top, err := c.Top()
	if err != nil {
		return err
	}
	if top.Kind() != value.KindDate && top.Kind() != value.KindDateTime {
		return c.release(calcerr.New(calcerr.DataTypeMismatch), top)
	}
	t, err := top.Time()
	if err != nil {
		return err
	}
	jdn := julianDayNumber(t.Year(), int(t.Month()), t.Day())
	return c.SetTop(value.NumberValue(number.FromInt64(jdn)))
}

func julianDayNumber(year, month, day int) int64 {
	a := int64(14-month) / 12
	y := int64(year) + 4800 - a
	m := int64(month) + 12*a - 3
	return int64(day) + (153*m+2)/5 + 365*y + y/4 - y/100 + y/400 - 32045
}

func dateFromYMD(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

func timeFromHMS(hour, minute, sec, nsec int) time.Time {
	return time.Date(0, time.January, 1, hour, minute, sec, nsec, time.UTC)
}

func (c *Context) entryInt(idx int) (int64, error) {
	v, err := c.Entry(idx)
	if err != nil {
		return 0, err
	}
	n, err := v.ToInt()
	v.Release(c.a)
	if err != nil {
		return 0, err
	}
	i, ok := n.AsInt()
	if !ok || !i.IsInt64() {
		return 0, calcerr.New(calcerr.ValueOutOfRange)
	}
	return i.Int64(), nil
}

// ---- units ----

func (c *Context) ClearUnits() error {
	top, err := c.Top()
	if err != nil {
		return err
	}
	if top.Kind() != value.KindNumberWithUnit {
		return c.release(nil, top)
	}
	n, err := top.RealNumber()
	if err != nil {
		return err
	}
	return c.SetTop(value.NumberValue(n))
}

func (c *Context) addUnitTimes(u unit.Unit, times int, inv bool) error {
	top, err := c.Top()
	if err != nil {
		return err
	}
	for i := 0; i < times; i++ {
		var next value.Value
		var err error
		if inv {
			next, err = top.AddUnitInv(u)
		} else {
			next, err = top.AddUnit(u)
		}
		if err != nil {
			return c.release(err, top)
		}
		top = next
	}
	return c.SetTop(top)
}

func (c *Context) AddUnit(u unit.Unit) error        { return c.addUnitTimes(u, 1, false) }
func (c *Context) AddUnitSquared(u unit.Unit) error { return c.addUnitTimes(u, 2, false) }
func (c *Context) AddUnitCubed(u unit.Unit) error   { return c.addUnitTimes(u, 3, false) }
func (c *Context) AddInvUnit(u unit.Unit) error        { return c.addUnitTimes(u, 1, true) }
func (c *Context) AddInvUnitSquared(u unit.Unit) error { return c.addUnitTimes(u, 2, true) }
func (c *Context) AddInvUnitCubed(u unit.Unit) error   { return c.addUnitTimes(u, 3, true) }

func (c *Context) ConvertToUnit(u unit.Unit) error {
	top, err := c.Top()
	if err != nil {
		return err
	}
	result, err := top.ConvertSingleUnit(u)
	if err != nil {
		return c.release(err, top)
	}
	return c.SetTop(result)
}

// ---- vector/matrix ----

func valueToPositiveInt(v value.Value) (int, error) {
	n, err := v.ToInt()
	if err != nil {
		return 0, err
	}
	i, ok := n.AsInt()
	if !ok || !i.IsInt64() || i.Sign() < 0 {
		return 0, calcerr.New(calcerr.ValueOutOfRange)
	}
	return int(i.Int64()), nil
}

func requireVector(v value.Value) (value.Vector, error) {
	if v.Kind() != value.KindVector {
		return value.Vector{}, calcerr.New(calcerr.DataTypeMismatch)
	}
	return v.AsVector()
}

func (c *Context) Sum() error {
	top, err := c.Top()
	if err != nil {
		return err
	}
	vec, err := requireVector(top)
	if err != nil {
		return c.release(err, top)
	}
	result, err := vec.Sum(c.a, value.ElementOps())
	if err != nil {
		return c.release(err, top)
	}
	return c.release(c.SetTop(result), top)
}

func (c *Context) Mean() error {
	top, err := c.Top()
	if err != nil {
		return err
	}
	vec, err := requireVector(top)
	if err != nil {
		return c.release(err, top)
	}
	div := func(sum value.Value, n int) (value.Value, error) {
		return value.Div(c.a, sum, value.NumberValue(number.FromInt64(int64(n))))
	}
	result, err := vec.Mean(c.a, value.ElementOps(), div)
	if err != nil {
		return c.release(err, top)
	}
	return c.release(c.SetTop(result), top)
}

func (c *Context) Magnitude() error {
	top, err := c.Top()
	if err != nil {
		return err
	}
	vec, err := requireVector(top)
	if err != nil {
		return c.release(err, top)
	}
	result, err := vec.Magnitude(c.a, value.ElementOps())
	if err != nil {
		return c.release(err, top)
	}
	return c.release(c.SetTop(result), top)
}

func (c *Context) Normalize() error {
	top, err := c.Top()
	if err != nil {
		return err
	}
	vec, err := requireVector(top)
	if err != nil {
		return c.release(err, top)
	}
	div := func(x, y value.Value) (value.Value, error) { return value.Div(c.a, x, y) }
	result, err := vec.Normalize(c.a, value.ElementOps(), div)
	if err != nil {
		return c.release(err, top)
	}
	resultVal := value.VectorValue(result)
	return c.release(c.SetTop(resultVal), top, resultVal)
}

func (c *Context) DotProduct() error {
	x, err := c.Entry(1)
	if err != nil {
		return err
	}
	y, err := c.Entry(0)
	if err != nil {
		return c.release(err, x)
	}
	xv, err := requireVector(x)
	if err != nil {
		return c.release(err, x, y)
	}
	yv, err := requireVector(y)
	if err != nil {
		return c.release(err, x, y)
	}
	result, err := xv.Dot(c.a, yv, value.ElementOps())
	if err != nil {
		return c.release(err, x, y)
	}
	return c.release(c.ReplaceEntries(2, result), x, y)
}

func (c *Context) CrossProduct() error {
	x, err := c.Entry(1)
	if err != nil {
		return err
	}
	y, err := c.Entry(0)
	if err != nil {
		return c.release(err, x)
	}
	xv, err := requireVector(x)
	if err != nil {
		return c.release(err, x, y)
	}
	yv, err := requireVector(y)
	if err != nil {
		return c.release(err, x, y)
	}
	result, err := xv.Cross(c.a, yv, value.ElementOps(), value.Sub)
	if err != nil {
		return c.release(err, x, y)
	}
	resultVal := value.VectorValue(result)
	return c.release(c.ReplaceEntries(2, resultVal), x, y, resultVal)
}

// ToMatrix consumes a rows and cols count plus however many stack entries
// (plain values or vectors) it takes to fill rows*cols cells, and replaces
// them with the resulting Matrix (or Vector, if rows == 1).
func (c *Context) ToMatrix() error {
	rowsV, err := c.Entry(1)
	if err != nil {
		return err
	}
	rows, err := valueToPositiveInt(rowsV)
	if err != nil {
		return err
	}
	colsV, err := c.Entry(0)
	if err != nil {
		return err
	}
	cols, err := valueToPositiveInt(colsV)
	if err != nil {
		return err
	}
	if rows == 0 || cols == 0 {
		return calcerr.New(calcerr.ValueOutOfRange)
	}

	remaining := rows * cols
	startEntry := 2
	for remaining > 0 {
		e, err := c.Entry(startEntry)
		if err != nil {
			return err
		}
		switch e.Kind() {
		case value.KindMatrix:
			return c.release(calcerr.New(calcerr.DataTypeMismatch), e)
		case value.KindVector:
			vec, _ := e.AsVector()
			if vec.Len() > remaining {
				return c.release(calcerr.New(calcerr.DimensionMismatch), e)
			}
			remaining -= vec.Len()
		default:
			remaining--
		}
		e.Release(c.a)
		if remaining == 0 {
			break
		}
		startEntry++
	}

	result, err := matrix.NewMatrix(c.a, rows, cols, value.Decode, value.NumberValue(number.Zero()))
	if err != nil {
		return err
	}
	resultVal := value.MatrixValue(result)
	row, col := 0, 0
	place := func(elem value.Value) error {
		if err := result.Set(c.a, row, col, elem, value.Value.IsVectorOrMatrix); err != nil {
			return err
		}
		col++
		if col >= cols {
			row++
			col = 0
		}
		return nil
	}
	for entry := startEntry; entry >= 2; entry-- {
		e, err := c.Entry(entry)
		if err != nil {
			return c.release(err, resultVal)
		}
		if e.Kind() == value.KindVector {
			vec, _ := e.AsVector()
			for i := 0; i < vec.Len(); i++ {
				elem, err := vec.Get(c.a, i)
				if err != nil {
					return c.release(err, e, resultVal)
				}
				if err := place(elem); err != nil {
					return c.release(err, e, resultVal)
				}
			}
		} else if err := place(e); err != nil {
			return c.release(err, e, resultVal)
		}
		e.Release(c.a)
	}

	if rows == 1 {
		vec := matrix.NewVector[value.Value](value.Decode)
		for col := 0; col < cols; col++ {
			elem, err := result.Get(c.a, 0, col)
			if err != nil {
				return c.release(err, value.VectorValue(vec), resultVal)
			}
			if err := vec.Push(c.a, elem); err != nil {
				return c.release(err, value.VectorValue(vec), resultVal)
			}
		}
		vecVal := value.VectorValue(vec)
		return c.release(c.ReplaceEntries(startEntry+1, vecVal), vecVal, resultVal)
	}
	return c.release(c.ReplaceEntries(startEntry+1, resultVal), resultVal)
}

func (c *Context) RowsToMatrix() error {
	rowsV, err := c.Entry(0)
	if err != nil {
		return err
	}
	rows, err := valueToPositiveInt(rowsV)
	if err != nil {
		return err
	}
	if rows == 0 {
		return calcerr.New(calcerr.ValueOutOfRange)
	}
	cols := -1
	for row := 0; row < rows; row++ {
		e, err := c.Entry(rows - row)
		if err != nil {
			return err
		}
		vec, err := requireVector(e)
		if err != nil {
			return c.release(err, e)
		}
		length := vec.Len()
		e.Release(c.a)
		if cols == -1 {
			cols = length
		} else if length != cols {
			return calcerr.New(calcerr.DimensionMismatch)
		}
	}

	if rows == 1 {
		v, err := c.Entry(1)
		if err != nil {
			return err
		}
		return c.release(c.ReplaceEntries(2, v), v)
	}

	result, err := matrix.NewMatrix(c.a, rows, cols, value.Decode, value.NumberValue(number.Zero()))
	if err != nil {
		return err
	}
	resultVal := value.MatrixValue(result)
	for row := 0; row < rows; row++ {
		e, err := c.Entry(rows - row)
		if err != nil {
			return c.release(err, resultVal)
		}
		vec, _ := e.AsVector()
		for col := 0; col < cols; col++ {
			elem, err := vec.Get(c.a, col)
			if err != nil {
				return c.release(err, e, resultVal)
			}
			if err := result.Set(c.a, row, col, elem, value.Value.IsVectorOrMatrix); err != nil {
				return c.release(err, e, resultVal)
			}
		}
		e.Release(c.a)
	}
	return c.release(c.ReplaceEntries(rows+1, resultVal), resultVal)
}

func (c *Context) ColsToMatrix() error {
	colsV, err := c.Entry(0)
	if err != nil {
		return err
	}
	cols, err := valueToPositiveInt(colsV)
	if err != nil {
		return err
	}
	if cols == 0 {
		return calcerr.New(calcerr.ValueOutOfRange)
	}
	rows := -1
	for col := 0; col < cols; col++ {
		e, err := c.Entry(cols - col)
		if err != nil {
			return err
		}
		vec, err := requireVector(e)
		if err != nil {
			return c.release(err, e)
		}
		length := vec.Len()
		e.Release(c.a)
		if rows == -1 {
			rows = length
		} else if length != rows {
			return calcerr.New(calcerr.DimensionMismatch)
		}
	}

	result, err := matrix.NewMatrix(c.a, rows, cols, value.Decode, value.NumberValue(number.Zero()))
	if err != nil {
		return err
	}
	resultVal := value.MatrixValue(result)
	for col := 0; col < cols; col++ {
		e, err := c.Entry(cols - col)
		if err != nil {
			return c.release(err, resultVal)
		}
		vec, _ := e.AsVector()
		for row := 0; row < rows; row++ {
			elem, err := vec.Get(c.a, row)
			if err != nil {
				return c.release(err, e, resultVal)
			}
			if err := result.Set(c.a, row, col, elem, value.Value.IsVectorOrMatrix); err != nil {
				return c.release(err, e, resultVal)
			}
		}
		e.Release(c.a)
	}

	if rows == 1 {
		vec := matrix.NewVector[value.Value](value.Decode)
		for col := 0; col < cols; col++ {
			elem, err := result.Get(c.a, 0, col)
			if err != nil {
				return c.release(err, value.VectorValue(vec), resultVal)
			}
			if err := vec.Push(c.a, elem); err != nil {
				return c.release(err, value.VectorValue(vec), resultVal)
			}
		}
		vecVal := value.VectorValue(vec)
		return c.release(c.ReplaceEntries(cols+1, vecVal), vecVal, resultVal)
	}
	return c.release(c.ReplaceEntries(cols+1, resultVal), resultVal)
}

func (c *Context) IdentityMatrix() error {
	topV, err := c.Top()
	if err != nil {
		return err
	}
	size, err := valueToPositiveInt(topV)
	topV.Release(c.a)
	if err != nil {
		return err
	}
	if size == 0 {
		return calcerr.New(calcerr.ValueOutOfRange)
	}
	if size == 1 {
		vec := matrix.NewVector[value.Value](value.Decode)
		if err := vec.Push(c.a, value.NumberValue(number.FromInt64(1))); err != nil {
			return err
		}
		vecVal := value.VectorValue(vec)
		return c.release(c.SetTop(vecVal), vecVal)
	}
	result, err := matrix.NewMatrix(c.a, size, size, value.Decode, value.NumberValue(number.Zero()))
	if err != nil {
		return err
	}
	resultVal := value.MatrixValue(result)
	for i := 0; i < size; i++ {
		if err := result.Set(c.a, i, i, value.NumberValue(number.FromInt64(1)), value.Value.IsVectorOrMatrix); err != nil {
			return c.release(err, resultVal)
		}
	}
	return c.release(c.SetTop(resultVal), resultVal)
}

func (c *Context) Transpose() error {
	top, err := c.Top()
	if err != nil {
		return err
	}
	switch top.Kind() {
	case value.KindVector:
		vec, _ := top.AsVector()
		if vec.Len() == 1 {
			return c.release(nil, top)
		}
		result, err := matrix.NewMatrix(c.a, vec.Len(), 1, value.Decode, value.NumberValue(number.Zero()))
		if err != nil {
			return c.release(err, top)
		}
		resultVal := value.MatrixValue(result)
		for i := 0; i < vec.Len(); i++ {
			elem, err := vec.Get(c.a, i)
			if err != nil {
				return c.release(err, top, resultVal)
			}
			if err := result.Set(c.a, i, 0, elem, value.Value.IsVectorOrMatrix); err != nil {
				return c.release(err, top, resultVal)
			}
		}
		return c.release(c.SetTop(resultVal), top, resultVal)
	case value.KindMatrix:
		m, _ := top.AsMatrix()
		if m.Cols() == 1 {
			vec := matrix.NewVector[value.Value](value.Decode)
			for i := 0; i < m.Rows(); i++ {
				elem, err := m.Get(c.a, i, 0)
				if err != nil {
					return c.release(err, top, value.VectorValue(vec))
				}
				if err := vec.Push(c.a, elem); err != nil {
					return c.release(err, top, value.VectorValue(vec))
				}
			}
			vecVal := value.VectorValue(vec)
			return c.release(c.SetTop(vecVal), top, vecVal)
		}
		resultVal := value.MatrixValue(m.Transpose(c.a))
		return c.release(c.SetTop(resultVal), top, resultVal)
	default:
		return calcerr.New(calcerr.DataTypeMismatch)
	}
}

// Complex splits a complex top-of-stack into its real and imaginary parts,
// or combines the top two real entries into a complex value.
func (c *Context) Complex() error {
	top, err := c.Entry(0)
	if err != nil {
		return err
	}
	if top.Kind() == value.KindComplex {
		cx, err := top.AsComplex()
		if err != nil {
			return err
		}
		realRef, err := arena.Store(c.a, value.NumberValue(cx.Real), false)
		if err != nil {
			return err
		}
		imagRef, err := arena.Store(c.a, value.NumberValue(cx.Imaginary), false)
		if err != nil {
			return err
		}
		return c.ReplaceTopWithMultiple([]arena.Ref[value.Value]{realRef, imagRef})
	}

	real, err := c.Entry(1)
	if err != nil {
		return err
	}
	realN, err := real.RealNumber()
	if err != nil {
		return c.release(err, top, real)
	}
	imagN, err := top.RealNumber()
	if err != nil {
		return c.release(err, top, real)
	}
	result, err := value.CheckComplex(cplx.FromParts(realN, imagN))
	if err != nil {
		return err
	}
	return c.ReplaceEntries(2, result)
}

// AddToVector folds the top of stack into a vector, merging two vectors or
// prepending a scalar onto an existing vector, or wrapping a bare scalar.
func (c *Context) AddToVector() error {
	top, err := c.Entry(0)
	if err != nil {
		return err
	}
	if top.Kind() == value.KindVector {
		existing, _ := top.AsVector()
		prev, err := c.Entry(1)
		if err != nil {
			return c.release(err, top)
		}
		if prev.Kind() == value.KindVector {
			merged, _ := prev.AsVector()
			if err := merged.ExtendWith(c.a, existing); err != nil {
				return c.release(err, top, prev)
			}
			// merged now owns prev's clone counts plus the bumps
			// ExtendWith took on top's elements; releasing it and the
			// top clone (not prev, whose counts merged absorbed)
			// balances the store ReplaceEntries performs.
			mergedVal := value.VectorValue(merged)
			return c.release(c.ReplaceEntries(2, mergedVal), mergedVal, top)
		}
		newVec := existing
		if err := newVec.Insert(c.a, 0, prev); err != nil {
			return c.release(err, top)
		}
		// newVec shares the top clone's element refs and added one fresh
		// slot; a single release covers both.
		newVecVal := value.VectorValue(newVec)
		return c.release(c.ReplaceEntries(2, newVecVal), newVecVal)
	}
	vec := matrix.NewVector[value.Value](value.Decode)
	if err := vec.Push(c.a, top); err != nil {
		return err
	}
	vecVal := value.VectorValue(vec)
	return c.release(c.SetTop(vecVal), vecVal)
}

// Decompose breaks a vector or matrix on top of the stack into its
// elements, or (for a bare scalar) batches as many leading scalar stack
// entries as it can into a new vector.
func (c *Context) Decompose() error {
	top, err := c.Entry(0)
	if err != nil {
		return err
	}
	switch top.Kind() {
	case value.KindVector:
		vec, _ := top.AsVector()
		refs := make([]arena.Ref[value.Value], vec.Len())
		for i := 0; i < vec.Len(); i++ {
			ref, err := vec.GetRef(i)
			if err != nil {
				return c.release(err, top)
			}
			c.a.Clone(ref.Offset())
			refs[i] = ref
		}
		return c.release(c.ReplaceTopWithMultiple(refs), top)
	case value.KindMatrix:
		m, _ := top.AsMatrix()
		var refs []arena.Ref[value.Value]
		for row := 0; row < m.Rows(); row++ {
			for col := 0; col < m.Cols(); col++ {
				ref, err := m.GetRef(row, col)
				if err != nil {
					return c.release(err, top)
				}
				c.a.Clone(ref.Offset())
				refs = append(refs, ref)
			}
		}
		return c.release(c.ReplaceTopWithMultiple(refs), top)
	default:
		vec := matrix.NewVector[value.Value](value.Decode)
		for i := 0; i < c.StackLen(); i++ {
			e, err := c.Entry(i)
			if err != nil {
				return c.release(err, value.VectorValue(vec))
			}
			if e.IsVectorOrMatrix() {
				e.Release(c.a)
				break
			}
			if err := vec.Insert(c.a, 0, e); err != nil {
				return c.release(err, value.VectorValue(vec))
			}
		}
		if vec.Len() == 0 {
			return calcerr.New(calcerr.DataTypeMismatch)
		}
		vecVal := value.VectorValue(vec)
		return c.release(c.ReplaceEntries(vec.Len(), vecVal), vecVal)
	}
}

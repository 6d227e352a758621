// Package fixedpoint implements the signed 32-bit fixed-point arithmetic used
// by the track estimator.
//
// Working values are int32. Products are formed in int64 and renormalised by
// a fixed right shift of Shift bits. Narrowing back to int32 follows an
// explicit Policy so overflow behaviour is defined rather than implicit.
package fixedpoint

import (
	"fmt"
	"math"
	"strings"
)

// Shift is the renormalisation shift applied to 64-bit products.
const Shift = 15

// One is the fixed-point representation of 1.0 at Shift fractional bits.
const One int32 = 1 << Shift

// Policy selects how an out-of-range intermediate is narrowed to int32.
type Policy int

const (
	// Saturate clamps to [math.MinInt32, math.MaxInt32].
	Saturate Policy = iota
	// Wrap keeps the low 32 bits (two's complement wrap-around).
	Wrap
)

func (p Policy) String() string {
	switch p {
	case Saturate:
		return "saturate"
	case Wrap:
		return "wrap"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy parses a policy name as written in the tuning file.
// An empty string selects Saturate.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "saturate":
		return Saturate, nil
	case "wrap":
		return Wrap, nil
	default:
		return Saturate, fmt.Errorf("unknown overflow policy %q: expected saturate or wrap", s)
	}
}

// Arith performs fixed-point operations under a policy and counts how many
// narrowing operations overflowed. The zero value saturates.
//
// Arith is not safe for concurrent use; each owner keeps its own.
type Arith struct {
	Policy    Policy
	Overflows uint64
}

// Narrow converts v to int32 under the configured policy.
func (a *Arith) Narrow(v int64) int32 {
	if v >= math.MinInt32 && v <= math.MaxInt32 {
		return int32(v)
	}
	a.Overflows++
	if a.Policy == Wrap {
		return int32(v)
	}
	if v > 0 {
		return math.MaxInt32
	}
	return math.MinInt32
}

// Add returns x+y narrowed.
func (a *Arith) Add(x, y int32) int32 {
	return a.Narrow(int64(x) + int64(y))
}

// Sub returns x-y narrowed.
func (a *Arith) Sub(x, y int32) int32 {
	return a.Narrow(int64(x) - int64(y))
}

// MulShift returns (x*y) >> Shift with the product held in 64 bits.
// The shift is arithmetic, so negative products round toward -inf.
func (a *Arith) MulShift(x, y int32) int32 {
	return a.Narrow((int64(x) * int64(y)) >> Shift)
}

// Step returns (g*d) >> Shift with the magnitude rounded up, so a non-zero
// gain always moves a non-zero difference by at least one unit. For g in
// [0, One] the result never exceeds |d|, which keeps repeated corrections
// converging all the way to zero instead of stalling on truncation.
func (a *Arith) Step(g, d int32) int32 {
	p := int64(g) * int64(d)
	if p == 0 {
		return 0
	}
	if p > 0 {
		return a.Narrow((p + (1 << Shift) - 1) >> Shift)
	}
	return a.Narrow(-((-p + (1 << Shift) - 1) >> Shift))
}

// Gain returns p/(p+r) as a fraction of One, computed as (p<<Shift)/(p+r).
// The result is clamped to [0, One]; a non-positive denominator yields 0 so a
// degenerate covariance never produces a correction.
func (a *Arith) Gain(p, r int32) int32 {
	den := int64(p) + int64(r)
	if den <= 0 || p <= 0 {
		return 0
	}
	g := (int64(p) << Shift) / den
	if g > int64(One) {
		g = int64(One)
	}
	return int32(g)
}

// Abs returns |x| narrowed; Abs(math.MinInt32) overflows.
func (a *Arith) Abs(x int32) int32 {
	if x < 0 {
		return a.Narrow(-int64(x))
	}
	return x
}

// Clamp bounds x to [lo, hi].
func Clamp(x, lo, hi int32) int32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// PackVelocity concatenates vx (high 16 bits) and vy (low 16 bits).
// Each component is truncated to its low 16 bits.
func PackVelocity(vx, vy int32) int32 {
	return int32(uint32(uint16(vx))<<16 | uint32(uint16(vy)))
}

// UnpackVelocity reverses PackVelocity with sign extension of both halves.
func UnpackVelocity(v int32) (vx, vy int32) {
	return int32(int16(uint32(v) >> 16)), int32(int16(uint32(v)))
}

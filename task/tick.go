package task

import (
	"context"
	"math"
	"time"
)

// Rate is a fixed simulation tick rate in ticks per second.
type Rate int

// DefaultRate is the tick rate of a Dragonfly world.
const DefaultRate Rate = 20

// Duration converts n ticks into wall-clock time: n * 1000/r milliseconds.
// The result is exact at nanosecond precision, truncated toward zero.
func (r Rate) Duration(n int64) time.Duration {
	return time.Duration(n) * time.Second / time.Duration(r.valid())
}

// DurationFloat converts a fractional tick count. The result is truncated
// toward zero at nanosecond precision.
func (r Rate) DurationFloat(n float64) time.Duration {
	return time.Duration(n * float64(time.Second) / float64(r.valid()))
}

// Tick returns the duration of a single tick.
func (r Rate) Tick() time.Duration {
	return r.Duration(1)
}

func (r Rate) valid() Rate {
	if r <= 0 {
		panic("task: tick rate must be positive")
	}
	return r
}

// Number is any tick count type accepted by Ticks.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Ticks converts n ticks at rate r into a duration. Integral counts use
// Rate.Duration and fractional counts Rate.DurationFloat, so both produce the
// same value for the same number of ticks.
func Ticks[N Number](r Rate, n N) time.Duration {
	f := float64(n)
	if f == math.Trunc(f) && math.Abs(f) < math.MaxInt64/float64(time.Second) {
		return r.Duration(int64(f))
	}
	return r.DurationFloat(f)
}

type rateKey struct{}

// WithRate returns a context whose tick helpers use r.
func WithRate(ctx context.Context, r Rate) context.Context {
	return context.WithValue(ctx, rateKey{}, r)
}

// RateFrom returns the tick rate carried by ctx, or DefaultRate.
func RateFrom(ctx context.Context) Rate {
	if r, ok := ctx.Value(rateKey{}).(Rate); ok && r > 0 {
		return r
	}
	return DefaultRate
}

// DelayTicks suspends the calling task for n ticks.
func DelayTicks[N Number](ctx context.Context, n N) error {
	return Delay(ctx, Ticks(RateFrom(ctx), n))
}

// RepeatTicks calls action n times with tick indices 0..n-1, one after the
// other, suspending for one tick after each call.
func RepeatTicks(ctx context.Context, n int, action func(i int)) error {
	tick := RateFrom(ctx).Tick()
	for i := 0; i < n; i++ {
		action(i)
		if err := Delay(ctx, tick); err != nil {
			return err
		}
	}
	return nil
}

// RepeatEvery calls action, waits interval and repeats until ctx is
// cancelled. Cancellation is only observed between calls: a running action
// is never interrupted.
func RepeatEvery(ctx context.Context, interval time.Duration, action func()) error {
	for {
		action()
		if err := Delay(ctx, interval); err != nil {
			return err
		}
	}
}

package fusion

import (
	"context"
	"errors"
	"time"

	"github.com/banshee-data/sensor.fusion/internal/timeutil"
)

// ErrSourceExhausted is returned by a Source with nothing left to replay.
var ErrSourceExhausted = errors.New("source exhausted")

// Source supplies the raw input for each tick.
type Source interface {
	Next(ctx context.Context) (Batch, error)
}

// Sink receives every tick result.
type Sink interface {
	Consume(ctx context.Context, r Result) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, r Result) error

// Consume calls f.
func (f SinkFunc) Consume(ctx context.Context, r Result) error { return f(ctx, r) }

// Runner paces pipeline steps from a clock.
type Runner struct {
	Pipeline *Pipeline
	Source   Source
	Sinks    []Sink
	Clock    timeutil.Clock
	Interval time.Duration
	MaxTicks int // stop after this many ticks; 0 runs until cancelled
}

// Run ticks until ctx is cancelled, the source is exhausted or MaxTicks is
// reached. Source failures other than exhaustion degrade to an empty batch,
// and sink failures are logged; neither stops the loop.
func (r *Runner) Run(ctx context.Context) error {
	clock := r.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	ticker := clock.NewTicker(r.Interval)
	defer ticker.Stop()

	diagf("runner started: interval=%s max_ticks=%d sinks=%d", r.Interval, r.MaxTicks, len(r.Sinks))
	ticks := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C():
			batch, err := r.Source.Next(ctx)
			if errors.Is(err, ErrSourceExhausted) {
				diagf("source exhausted after %d ticks", ticks)
				return nil
			}
			if err != nil {
				opsf("source failed, ticking with empty input: %v", err)
				batch = Batch{}
			}

			res, err := r.Pipeline.Step(ctx, batch)
			if err != nil {
				return err
			}
			res.At = now
			for _, s := range r.Sinks {
				if err := s.Consume(ctx, res); err != nil {
					opsf("sink failed for tick %d: %v", res.Seq, err)
				}
			}

			ticks++
			if r.MaxTicks > 0 && ticks >= r.MaxTicks {
				diagf("runner reached %d ticks", ticks)
				return nil
			}
		}
	}
}

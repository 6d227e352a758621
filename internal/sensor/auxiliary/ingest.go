package auxiliary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/banshee-data/sensor.fusion/internal/timeutil"
)

// ErrUnknownRecord is returned for a well-formed line carrying neither a
// radar nor an IMU object.
var ErrUnknownRecord = errors.New("line has no radar or imu record")

// Wire format, one JSON object per line:
//
//	{"radar":{"range":1200,"velocity":-35,"angle":16384}}
//	{"imu":{"ax":12,"ay":-4,"az":980,"gx":0,"gy":1,"gz":-7}}
//
// "valid" may be given explicitly; it defaults to true.
type line struct {
	Radar *radarRecord `json:"radar"`
	IMU   *imuRecord   `json:"imu"`
}

type radarRecord struct {
	Range    uint32 `json:"range"`
	Velocity int16  `json:"velocity"`
	Angle    uint16 `json:"angle"`
	Valid    *bool  `json:"valid"`
}

type imuRecord struct {
	AX    int16 `json:"ax"`
	AY    int16 `json:"ay"`
	AZ    int16 `json:"az"`
	GX    int16 `json:"gx"`
	GY    int16 `json:"gy"`
	GZ    int16 `json:"gz"`
	Valid *bool `json:"valid"`
}

func validOrDefault(v *bool) bool {
	return v == nil || *v
}

// Ingester parses serial lines into a Latch.
type Ingester struct {
	Latch *Latch
	Clock timeutil.Clock

	Lines  atomic.Uint64
	Errors atomic.Uint64
}

// NewIngester returns an ingester writing into latch, timestamped by clock.
func NewIngester(latch *Latch, clock timeutil.Clock) *Ingester {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Ingester{Latch: latch, Clock: clock}
}

// HandleLine parses one line and latches any reading it carries. Blank lines
// are ignored.
func (in *Ingester) HandleLine(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	in.Lines.Add(1)

	var l line
	if err := json.Unmarshal([]byte(raw), &l); err != nil {
		in.Errors.Add(1)
		return fmt.Errorf("failed to parse auxiliary line: %w", err)
	}
	if l.Radar == nil && l.IMU == nil {
		in.Errors.Add(1)
		return ErrUnknownRecord
	}

	now := in.Clock.Now()
	if r := l.Radar; r != nil {
		s := RadarSample{Range: r.Range, Velocity: r.Velocity, Angle: r.Angle, Valid: validOrDefault(r.Valid)}
		in.Latch.UpdateRadar(s, now)
		tracef("radar: %+v", s)
	}
	if m := l.IMU; m != nil {
		s := IMUSample{
			AccelX: m.AX, AccelY: m.AY, AccelZ: m.AZ,
			GyroX: m.GX, GyroY: m.GY, GyroZ: m.GZ,
			Valid: validOrDefault(m.Valid),
		}
		in.Latch.UpdateIMU(s, now)
		tracef("imu: %+v", s)
	}
	return nil
}

// Run consumes lines until the channel closes or ctx is cancelled. Bad lines
// are logged and skipped. A closed channel returns nil.
func (in *Ingester) Run(ctx context.Context, lines <-chan string) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-lines:
			if !ok {
				diagf("auxiliary ingest finished: %d lines, %d errors", in.Lines.Load(), in.Errors.Load())
				return nil
			}
			if err := in.HandleLine(raw); err != nil {
				if in.Errors.Load() == 1 {
					opsf("auxiliary stream is producing unparseable lines: %v", err)
				}
				diagf("skipping line %q: %v", raw, err)
			}
		}
	}
}

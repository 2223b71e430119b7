package servo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/golang/glog"

	"github.com/knieriem/robotis"
)

var ErrMotionTimeout = robotis.Error("motion timed out")

// DefaultPollInterval is the pause between two reads of the
// moving flag while waiting for a motion to finish.
const DefaultPollInterval = 10 * time.Millisecond

// RangeError reports a move request outside the limits
// of a servo's settings.
type RangeError struct {
	Quantity string // "angle" or "angvel"
	Value    float64
	Min, Max float64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("servo: %s %.4f outside [%.4f, %.4f]", e.Quantity, e.Value, e.Min, e.Max)
}

type MoveOption func(*moveOptions)

type moveOptions struct {
	angvel       float64
	angvelSet    bool
	nonBlocking  bool
	pollInterval time.Duration
	timeout      time.Duration
}

// AngVel sets the velocity of a move in rad/s. It defaults to
// the servo's maximum speed.
func AngVel(v float64) MoveOption {
	return func(o *moveOptions) {
		o.angvel = v
		o.angvelSet = true
	}
}

// NonBlocking makes MoveAngle return once the goal has been written.
func NonBlocking() MoveOption {
	return func(o *moveOptions) {
		o.nonBlocking = true
	}
}

func PollInterval(d time.Duration) MoveOption {
	return func(o *moveOptions) {
		o.pollInterval = d
	}
}

// Timeout limits the time MoveAngle waits for a motion to finish.
func Timeout(d time.Duration) MoveOption {
	return func(o *moveOptions) {
		o.timeout = d
	}
}

// CheckMove returns a *RangeError if a move to angle at angvel
// exceeds the limits of the servo's settings. NaN and infinite
// values are never in range.
func (s *Servo) CheckMove(angle, angvel float64) error {
	st := &s.settings
	if math.IsNaN(angvel) || math.IsInf(angvel, 0) || angvel > st.MaxSpeed {
		return &RangeError{Quantity: "angvel", Value: angvel, Min: -st.MaxSpeed, Max: st.MaxSpeed}
	}
	if math.IsNaN(angle) || angle < st.MinAng || angle > st.MaxAng {
		return &RangeError{Quantity: "angle", Value: angle, Min: st.MinAng, Max: st.MaxAng}
	}
	return nil
}

// MoveAngle moves to angle, given in rad. Requests exceeding
// the limits of the servo's settings are logged and ignored
// without any bus traffic; use CheckMove to detect them.
// Unless NonBlocking is specified, MoveAngle waits until the
// servo has stopped, ctx is done, or the Timeout option expires,
// in which case ErrMotionTimeout is returned.
func (s *Servo) MoveAngle(ctx context.Context, angle float64, opts ...MoveOption) error {
	o := moveOptions{
		angvel:       s.settings.MaxSpeed,
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(&o)
	}

	err := s.CheckMove(angle, o.angvel)
	if err != nil {
		var re *RangeError
		if errors.As(err, &re) && re.Quantity == "angvel" {
			glog.Warningf("servo %d: angvel too high - %.2f deg/s, ignoring move command", s.id, deg(o.angvel))
		} else {
			glog.Warningf("servo %d: target angle out of range - %.2f deg, ignoring move command", s.id, deg(angle))
		}
		return nil
	}
	if err = ctx.Err(); err != nil {
		return err
	}

	err = s.SetAngVel(o.angvel)
	if err != nil {
		return err
	}
	err = s.MoveToEncoder(s.EncoderForAngle(angle))
	if err != nil || o.nonBlocking {
		return err
	}

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	return s.WaitStopped(ctx, o.pollInterval)
}

// WaitStopped polls the moving flag until it is cleared. The bus
// is available to other devices between polls. If ctx expires,
// ErrMotionTimeout is returned; if it is canceled, ctx.Err().
func (s *Servo) WaitStopped(ctx context.Context, pollInterval time.Duration) error {
	var t *time.Timer
	for {
		moving, err := s.IsMoving()
		if err != nil {
			return err
		}
		if !moving {
			return nil
		}
		if t == nil {
			t = time.NewTimer(pollInterval)
			defer t.Stop()
		} else {
			t.Reset(pollInterval)
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return ErrMotionTimeout
			}
			return ctx.Err()
		case <-t.C:
		}
	}
}

func deg(rad float64) float64 {
	return rad * 180 / math.Pi
}

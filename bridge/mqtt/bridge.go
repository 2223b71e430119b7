// Package mqtt exposes servos to an MQTT broker. The state of
// each servo is published periodically to
//
//	<prefix>servo/<id>/state
//
// and commands are accepted on
//
//	<prefix>servo/<id>/move	{"angle": 0.5, "angvel": 1.0, "blocking": true}
//	<prefix>servo/<id>/torque	on | off
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/knieriem/robotis/servo"
)

var (
	ErrUnknownServo = errors.New("mqtt: unknown servo")
	ErrTopic        = errors.New("mqtt: unexpected topic")
)

const (
	DefaultInterval    = time.Second
	DefaultMoveTimeout = 10 * time.Second
)

// State is the payload of a state topic.
type State struct {
	ID          byte    `json:"id"`
	Angle       float64 `json:"angle"`
	Moving      bool    `json:"moving"`
	Voltage     float64 `json:"voltage"`
	Temperature int     `json:"temperature"`
	Load        int     `json:"load"`
}

// Move is the payload of a move topic. If AngVel is
// missing, the servo's maximum speed is used.
type Move struct {
	Angle    float64  `json:"angle"`
	AngVel   *float64 `json:"angvel,omitempty"`
	Blocking bool     `json:"blocking"`
}

// Bridge connects a set of servos to topics below Prefix.
type Bridge struct {
	Prefix      string
	Interval    time.Duration
	MoveTimeout time.Duration

	// Publish sends a payload to a topic.
	Publish func(topic string, payload []byte) error

	mu     sync.Mutex
	servos map[byte]*servo.Servo
}

func New(prefix string, servos ...*servo.Servo) *Bridge {
	b := &Bridge{
		Prefix:      prefix,
		Interval:    DefaultInterval,
		MoveTimeout: DefaultMoveTimeout,
		servos:      make(map[byte]*servo.Servo, len(servos)),
	}
	for _, s := range servos {
		b.servos[s.ID()] = s
	}
	return b
}

// Topic returns the topic of kind for servo id.
func (b *Bridge) Topic(id byte, kind string) string {
	return b.Prefix + "servo/" + strconv.Itoa(int(id)) + "/" + kind
}

// Subscriptions returns the topic filters commands arrive on.
func (b *Bridge) Subscriptions() []string {
	return []string{
		b.Prefix + "servo/+/move",
		b.Prefix + "servo/+/torque",
	}
}

func (b *Bridge) servo(id byte) (*servo.Servo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.servos[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownServo, id)
	}
	return s, nil
}

func (b *Bridge) ids() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]byte, 0, len(b.servos))
	for id := range b.servos {
		ids = append(ids, id)
	}
	return ids
}

// ReadState queries the state of a servo.
func ReadState(s *servo.Servo) (st State, err error) {
	st.ID = s.ID()
	st.Angle, err = s.ReadAngle()
	if err != nil {
		return
	}
	st.Moving, err = s.IsMoving()
	if err != nil {
		return
	}
	st.Voltage, err = s.ReadVoltage()
	if err != nil {
		return
	}
	st.Temperature, err = s.ReadTemperature()
	if err != nil {
		return
	}
	st.Load, err = s.ReadLoad()
	return
}

// PublishState publishes the state of all servos. Servos failing
// to respond are logged and skipped.
func (b *Bridge) PublishState() error {
	if b.Publish == nil {
		return errors.New("mqtt: no publish function")
	}
	for _, id := range b.ids() {
		s, err := b.servo(id)
		if err != nil {
			continue
		}
		st, err := ReadState(s)
		if err != nil {
			glog.Warningf("servo %d: state: %v", id, err)
			continue
		}
		payload, err := json.Marshal(&st)
		if err != nil {
			return err
		}
		err = b.Publish(b.Topic(id, "state"), payload)
		if err != nil {
			return err
		}
	}
	return nil
}

// Run publishes the state every Interval until ctx is done.
func (b *Bridge) Run(ctx context.Context) error {
	t := time.NewTicker(b.Interval)
	defer t.Stop()
	for {
		err := b.PublishState()
		if err != nil {
			glog.Errorf("publish state: %v", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

// HandleMessage executes a command received on topic.
func (b *Bridge) HandleMessage(ctx context.Context, topic string, payload []byte) error {
	id, kind, err := b.parseTopic(topic)
	if err != nil {
		return err
	}
	s, err := b.servo(id)
	if err != nil {
		return err
	}
	switch kind {
	case "move":
		var m Move
		err = json.Unmarshal(payload, &m)
		if err != nil {
			return fmt.Errorf("servo %d: move: %w", id, err)
		}
		return b.move(ctx, s, &m)
	case "torque":
		switch strings.ToLower(strings.TrimSpace(string(payload))) {
		case "on", "1", "true":
			return s.EnableTorque()
		case "off", "0", "false":
			return s.DisableTorque()
		}
		return fmt.Errorf("servo %d: torque: invalid value %q", id, payload)
	}
	return fmt.Errorf("%w: %s", ErrTopic, topic)
}

func (b *Bridge) move(ctx context.Context, s *servo.Servo, m *Move) error {
	opts := []servo.MoveOption{}
	angvel := s.Settings().MaxSpeed
	if m.AngVel != nil {
		angvel = *m.AngVel
		opts = append(opts, servo.AngVel(angvel))
	}
	if err := s.CheckMove(m.Angle, angvel); err != nil {
		return fmt.Errorf("servo %d: %w", s.ID(), err)
	}
	if m.Blocking {
		opts = append(opts, servo.Timeout(b.MoveTimeout))
	} else {
		opts = append(opts, servo.NonBlocking())
	}
	return s.MoveAngle(ctx, m.Angle, opts...)
}

func (b *Bridge) parseTopic(topic string) (id byte, kind string, err error) {
	rest := strings.TrimPrefix(topic, b.Prefix)
	f := strings.Split(rest, "/")
	if len(rest) == len(topic) && b.Prefix != "" || len(f) != 3 || f[0] != "servo" {
		err = fmt.Errorf("%w: %s", ErrTopic, topic)
		return
	}
	u, err := strconv.ParseUint(f[1], 10, 8)
	if err != nil {
		err = fmt.Errorf("%w: %s", ErrTopic, topic)
		return
	}
	return byte(u), f[2], nil
}

// Package input produces steering and throttle samples for karts that have
// no human behind them: the headless client bot and the server host kart.
package input

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

var ErrUnknownScript = errors.New("unknown driving script")

// track loops through a list of tweens forever.
type track struct {
	tweens []*gween.Tween
	index  int
}

func newTrack(tweens ...*gween.Tween) *track {
	return &track{tweens: tweens}
}

func (t *track) update(dt float32) float32 {
	current := t.tweens[t.index]
	v, finished := current.Update(dt)
	if finished {
		current.Reset()
		t.index = (t.index + 1) % len(t.tweens)
	}
	return v
}

func hold(v, seconds float32) *gween.Tween {
	return gween.New(v, v, seconds, ease.Linear)
}

// scripts builds a fresh steering and throttle track per script name.
var scripts = map[string]func() (steering, throttle *track){
	"straight": func() (*track, *track) {
		return newTrack(hold(0, 1)), newTrack(hold(1, 1))
	},
	"circle": func() (*track, *track) {
		return newTrack(hold(0.5, 1)), newTrack(hold(0.8, 1))
	},
	"figure8": func() (*track, *track) {
		steering := newTrack(
			gween.New(0, 1, 1, ease.InOutSine),
			hold(1, 3),
			gween.New(1, -1, 2, ease.InOutSine),
			hold(-1, 3),
			gween.New(-1, 0, 1, ease.InOutSine),
		)
		return steering, newTrack(hold(0.9, 1))
	},
	"zigzag": func() (*track, *track) {
		steering := newTrack(
			gween.New(-0.8, 0.8, 1.5, ease.InOutQuad),
			gween.New(0.8, -0.8, 1.5, ease.InOutQuad),
		)
		throttle := newTrack(
			gween.New(0.3, 1, 2, ease.OutQuad),
			hold(1, 4),
			gween.New(1, 0.3, 2, ease.InQuad),
		)
		return steering, throttle
	},
}

// Scripts returns the available script names, sorted.
func Scripts() []string {
	names := make([]string, 0, len(scripts))
	for name := range scripts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Driver replays a looping driving script.
type Driver struct {
	name     string
	steering *track
	throttle *track
}

func NewDriver(script string) (*Driver, error) {
	build, ok := scripts[script]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScript, script)
	}
	steering, throttle := build()
	return &Driver{name: script, steering: steering, throttle: throttle}, nil
}

// Sample advances the script by dt seconds and returns the inputs to apply
// for that tick, each within [-1, 1].
func (d *Driver) Sample(dt float64) (steering, throttle float64) {
	s := d.steering.update(float32(dt))
	t := d.throttle.update(float32(dt))
	return mgl64.Clamp(float64(s), -1, 1), mgl64.Clamp(float64(t), -1, 1)
}

func (d *Driver) Script() string { return d.name }

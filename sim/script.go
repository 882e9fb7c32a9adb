package sim

import (
	"sort"
	"time"
)

// Input is a scripted user input.
type Input struct {
	At     time.Duration
	User   string
	Action string
}

// Script replays inputs in time order.
type Script struct {
	inputs []Input
	next   int
}

// NewScript sorts inputs by offset.
func NewScript(inputs ...Input) *Script {
	sorted := append([]Input(nil), inputs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].At < sorted[j].At })
	return &Script{inputs: sorted}
}

// Due returns the inputs whose offset has passed and that were not returned
// before.
func (s *Script) Due(elapsed time.Duration) []Input {
	start := s.next
	for s.next < len(s.inputs) && s.inputs[s.next].At <= elapsed {
		s.next++
	}
	return s.inputs[start:s.next]
}

// Done reports whether every input was returned.
func (s *Script) Done() bool {
	return s.next >= len(s.inputs)
}

// Demo builds the world and input script used by the record command.
func Demo() (*World, *Script) {
	w := NewWorld(20, 10)
	w.Spawn("Player", Vector2{X: 2, Y: 5}, Vector2{X: 3, Y: 0}, 0.5).WithHealth(10)
	w.Spawn("Enemy", Vector2{X: 18, Y: 5}, Vector2{X: -2, Y: 0}, 0.5).WithHealth(5)
	w.Spawn("Crate", Vector2{X: 10, Y: 2}, Vector2{X: 0, Y: 1.5}, 1)
	cam := w.Spawn("Camera", Vector2{X: 10, Y: 5}, Vector2{}, 0)
	cam.Tagged = "MainCamera"
	cam.RenderLayer = 5

	script := NewScript(
		Input{At: 500 * time.Millisecond, User: "player-one", Action: "move_right"},
		Input{At: 1500 * time.Millisecond, User: "player-one", Action: "jump"},
		Input{At: 2500 * time.Millisecond, User: "player-one", Action: "fire"},
	)
	return w, script
}

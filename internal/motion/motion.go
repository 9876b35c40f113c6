package motion

import (
	"fmt"

	"drone-dance.klederson.com/internal/drone"
)

// Name identifies a motion command.
type Name string

const (
	TakeOff   Name = "takeOff"
	Land      Name = "land"
	FrontFlip Name = "frontFlip"
	BackFlip  Name = "backFlip"
	Up        Name = "up"
	Down      Name = "down"
	Forward   Name = "forward"
	Backward  Name = "backward"
	Left      Name = "left"
	Right     Name = "right"
	TurnLeft  Name = "turnLeft"
	TurnRight Name = "turnRight"
)

// Names lists every motion in palette order.
var Names = []Name{
	TakeOff, Land, Up, Down, TurnRight, TurnLeft, Forward, Backward, Left, Right, FrontFlip, BackFlip,
}

// Spellings used by older grid clients.
var aliases = map[string]Name{
	"takeoff": TakeOff,
}

// Params carries the optional move arguments. Zero values take the drone
// defaults.
type Params struct {
	Speed int `json:"speed"`
	Steps int `json:"steps"`
}

type command struct {
	simple func(drone.Commander) error
	move   func(drone.Commander, drone.Move) error
}

var commands = map[Name]command{
	TakeOff:   {simple: drone.Commander.TakeOff},
	Land:      {simple: drone.Commander.Land},
	FrontFlip: {simple: drone.Commander.FrontFlip},
	BackFlip:  {simple: drone.Commander.BackFlip},
	Up:        {move: drone.Commander.Up},
	Down:      {move: drone.Commander.Down},
	Forward:   {move: drone.Commander.Forward},
	Backward:  {move: drone.Commander.Backward},
	Left:      {move: drone.Commander.Left},
	Right:     {move: drone.Commander.Right},
	TurnLeft:  {move: drone.Commander.TurnLeft},
	TurnRight: {move: drone.Commander.TurnRight},
}

// Parse resolves a motion name.
func Parse(s string) (Name, error) {
	if _, ok := commands[Name(s)]; ok {
		return Name(s), nil
	}
	if n, ok := aliases[s]; ok {
		return n, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMotion, s)
}

// Parameterized reports whether the motion uses speed and steps.
func (n Name) Parameterized() bool {
	return commands[n].move != nil
}

// Apply runs the motion on c.
func (n Name) Apply(c drone.Commander, p Params) error {
	cmd, ok := commands[n]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMotion, string(n))
	}
	if cmd.move != nil {
		return cmd.move(c, drone.Move{Speed: p.Speed, Steps: p.Steps})
	}
	return cmd.simple(c)
}

package drone

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
)

// MiniDrone GATT characteristics share one vendor base UUID.
func charUUID(short string) string {
	return fmt.Sprintf("9a66%s-0800-9191-11e4-012d1540cb8e", short)
}

var (
	CharPiloting  = charUUID("fa0a") // non-acknowledged piloting stream
	CharCommand   = charUUID("fa0b") // acknowledged commands
	CharEmergency = charUUID("fa0c") // high priority

	// Notification characteristics the firmware expects a subscriber on
	// before it accepts commands.
	NotifyChars = []string{
		charUUID("fb0e"), charUUID("fb0f"), charUUID("fb1b"), charUUID("fb1c"),
		charUUID("fd22"), charUUID("fd23"), charUUID("fd24"),
		charUUID("fd52"), charUUID("fd53"), charUUID("fd54"),
	}
)

const (
	frameTypeData    = 0x02
	projectMiniDrone = 0x02

	classPiloting   = 0x00
	classAnimations = 0x04

	cmdFlatTrim  = 0x00
	cmdTakeOff   = 0x01
	cmdPCMD      = 0x02
	cmdLanding   = 0x03
	cmdEmergency = 0x04

	cmdFlip = 0x00
)

// Flip is the direction argument of the flip animation.
type Flip uint32

const (
	FlipFront Flip = iota
	FlipBack
	FlipRight
	FlipLeft
)

// Pilot is one piloting setpoint; each axis is a signed percentage.
type Pilot struct {
	Roll  int8
	Pitch int8
	Yaw   int8
	Gaz   int8
}

// Hovering reports whether every axis is zero.
func (p Pilot) Hovering() bool {
	return p == Pilot{}
}

// sequencer hands out per-characteristic frame sequence numbers; they wrap
// at 256.
type sequencer struct {
	mu  sync.Mutex
	seq map[string]byte
}

func (s *sequencer) next(char string) byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seq == nil {
		s.seq = make(map[string]byte)
	}
	s.seq[char]++
	return s.seq[char]
}

func commandPacket(seq, class, cmd byte, args ...byte) []byte {
	buf := make([]byte, 0, 6+len(args))
	buf = append(buf, frameTypeData, seq, projectMiniDrone, class, cmd, 0x00)
	return append(buf, args...)
}

func flipPacket(seq byte, dir Flip) []byte {
	arg := make([]byte, 4)
	binary.LittleEndian.PutUint32(arg, uint32(dir))
	return commandPacket(seq, classAnimations, cmdFlip, arg...)
}

// pcmdPacket encodes a piloting setpoint. The flag byte enables roll and
// pitch; psi (heading) is always zero.
func pcmdPacket(seq byte, p Pilot) []byte {
	var flag byte
	if p.Roll != 0 || p.Pitch != 0 {
		flag = 1
	}

	psi := make([]byte, 4)
	binary.LittleEndian.PutUint32(psi, math.Float32bits(0))

	return commandPacket(seq, classPiloting, cmdPCMD,
		append([]byte{flag, byte(p.Roll), byte(p.Pitch), byte(p.Yaw), byte(p.Gaz)}, psi...)...)
}

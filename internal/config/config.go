package config

import "time"

const (
	// Keyframe grid
	FrameRate        = 3    // Keyframes per second of track time
	KeyframeInterval = 20.0 // Grid spacing in pixels between adjacent keyframes
	CatchUpFrames    = 0    // Skipped frames replayed on a coarse forward tick (0 = strict)

	// Drone piloting
	DefaultSpeed  = 50                    // Percent of max tilt/gaz when a move omits speed
	DefaultSteps  = 50                    // Piloting ticks when a move omits steps
	MaxSpeed      = 100                   // Upper clamp for move speed
	PilotInterval = 50 * time.Millisecond // PCMD resend period while a move is active

	// Discovery
	ConnectTimeout = 30 * time.Second // Per-device connect+setup budget (0 = unbounded)

	// Console
	TargetFPS      = 30 // Console redraws per second
	RehearsalTicks = 10 // Rehearsal clock ticks per second fed to the scheduler
	HistorySize    = 64 // Dispatch events kept for the console
	ConsoleLogFile = "drone-dance.log"

	// Demo mode
	DemoDroneCount = 3                      // Simulated drones advertised
	DemoNoiseCount = 4                      // Simulated non-drone peripherals advertised
	DemoAdvertise  = 200 * time.Millisecond // Simulated advertisement period
	DemoConnectLag = 300 * time.Millisecond // Simulated connect latency

	// App
	AppName    = "DRONE-DANCE"
	AppVersion = "1.0"
)

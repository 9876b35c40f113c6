package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"drone-dance.klederson.com/internal/announce"
	"drone-dance.klederson.com/internal/api"
	"drone-dance.klederson.com/internal/app"
	"drone-dance.klederson.com/internal/bluetooth"
	"drone-dance.klederson.com/internal/config"
	"drone-dance.klederson.com/internal/discovery"
	"drone-dance.klederson.com/internal/logger"
	"drone-dance.klederson.com/internal/motion"
	"drone-dance.klederson.com/internal/playback"
	"drone-dance.klederson.com/internal/timeline"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var (
	flagConfig   string
	flagDemo     bool
	flagAdapter  string
	flagListen   string
	flagTUI      bool
	flagRehearse time.Duration
	flagAnnounce bool
	flagCatchUp  int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "drone-dance",
		Short: "Drone Dance - fly Bluetooth minidrones in time with a music track",
		Long: `Drone Dance scans for Parrot minidrones, connects to every one it finds,
and fires the motions placed on each drone's keyframe grid as the track plays.

The browser grid talks to the HTTP API; --tui adds an operator console.
Requires sudo or CAP_NET_ADMIN capability for real Bluetooth scanning.
Use --demo flag for simulated drones without Bluetooth hardware.`,
		SilenceUsage: true,
		RunE:         run,
	}

	rootCmd.Flags().StringVar(&flagConfig, "config", "drone-dance.yaml", "Settings file (missing file means defaults)")
	rootCmd.Flags().BoolVar(&flagDemo, "demo", false, "Run with simulated drones (no Bluetooth required)")
	rootCmd.Flags().StringVar(&flagAdapter, "adapter", "hci0", "Bluetooth adapter to use")
	rootCmd.Flags().StringVar(&flagListen, "listen", ":3000", "HTTP API listen address")
	rootCmd.Flags().BoolVar(&flagTUI, "tui", false, "Show the operator console")
	rootCmd.Flags().DurationVar(&flagRehearse, "rehearse", 0, "Drive playback from the console for a track of this length (implies --tui)")
	rootCmd.Flags().BoolVar(&flagAnnounce, "announce", false, "Advertise the API over mDNS")
	rootCmd.Flags().IntVar(&flagCatchUp, "catch-up", 0, "Fire keyframes skipped by a forward jump of up to N frames")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s v%s\n", config.AppName, config.AppVersion)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadSettings reads the settings file and applies explicitly set flags.
func loadSettings(cmd *cobra.Command) (config.Settings, error) {
	s, err := config.Load(flagConfig)
	if err != nil {
		return s, err
	}

	flags := cmd.Flags()
	if flags.Changed("demo") {
		s.Demo = flagDemo
	}
	if flags.Changed("adapter") {
		s.Adapter = flagAdapter
	}
	if flags.Changed("listen") {
		s.Listen = flagListen
	}
	if flags.Changed("announce") {
		s.Announce = flagAnnounce
	}
	if flags.Changed("catch-up") {
		s.CatchUpFrames = flagCatchUp
	}

	if flagRehearse > 0 || flagTUI {
		// the console owns the terminal
		if s.Log.Output == "" || s.Log.Output == "stdout" || s.Log.Output == "stderr" {
			s.Log.Output = config.ConsoleLogFile
		}
	}
	return s, s.Validate()
}

func newRadio(s config.Settings) bluetooth.Radio {
	log := logger.WithComponent("radio")
	if s.Demo {
		return bluetooth.NewSimRadio(config.DemoDroneCount, config.DemoNoiseCount,
			config.DemoAdvertise, config.DemoConnectLag, log)
	}
	return bluetooth.NewBLERadio(log)
}

func run(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	closer, err := logger.Init(settings.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer closer.Close()
	log := logger.WithComponent("main")

	notifier := &app.Notifier{}
	registry := discovery.NewRegistry()
	manager := discovery.NewManager(newRadio(settings), registry,
		discovery.WithConnectTimeout(settings.ConnectTimeout),
		discovery.WithLogger(logger.WithComponent("discovery")),
		discovery.WithStateHook(notifier.DeviceChanged),
	)
	router := motion.NewRouter(manager, logger.WithComponent("motion"))
	scheduler := timeline.NewScheduler(router, settings.FrameRate,
		timeline.WithCatchUp(settings.CatchUpFrames),
		timeline.WithLogger(logger.WithComponent("scheduler")),
		timeline.WithResultHook(notifier.Dispatched),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := manager.Start(); err != nil {
		if !settings.Demo {
			fmt.Fprintf(os.Stderr, "\nError: %v\n\n", err)
			fmt.Fprintln(os.Stderr, "Bluetooth scanning requires elevated permissions.")
			fmt.Fprintln(os.Stderr, "Try one of:")
			fmt.Fprintln(os.Stderr, "  sudo ./drone-dance")
			fmt.Fprintln(os.Stderr, "  sudo setcap cap_net_admin+ep ./drone-dance")
			fmt.Fprintln(os.Stderr, "  ./drone-dance --demo    (simulated drones, no hardware needed)")
		}
		return err
	}
	defer manager.Stop()

	server := api.NewServer(api.NewHandler(manager, router, scheduler, logger.WithComponent("api")),
		logger.WithComponent("http"))
	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("listen", settings.Listen).Bool("demo", settings.Demo).Msg("serving choreography API")
		if err := server.Start(settings.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("HTTP shutdown incomplete")
		}
		scheduler.Wait()
	}()

	if settings.Announce {
		svc, err := announce.New(settings.Listen, settings.FrameRate, logger.WithComponent("announce"))
		if err == nil {
			err = svc.Start()
		}
		if err != nil {
			log.Warn().Err(err).Msg("mDNS announcement disabled")
		} else {
			defer svc.Stop()
		}
	}

	if flagTUI || flagRehearse > 0 {
		cfg := app.Config{
			Adapter:    settings.Adapter,
			Fleet:      manager,
			Dispatcher: router,
			Scheduler:  scheduler,
		}
		if flagRehearse > 0 {
			cfg.Clock = playback.NewLocalClock(flagRehearse)
		}
		if settings.Demo {
			cfg.Adapter = "demo"
		}

		p := tea.NewProgram(app.New(cfg), tea.WithAltScreen(), tea.WithContext(ctx), tea.WithFPS(config.TargetFPS))
		notifier.Attach(p)
		if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return err
		}
		return nil
	}

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		return nil
	case err := <-serverErr:
		return fmt.Errorf("HTTP server failed: %w", err)
	}
}

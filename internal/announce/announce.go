package announce

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"

	"drone-dance.klederson.com/internal/config"
	"github.com/grandcat/zeroconf"
	"github.com/rs/zerolog"
)

const (
	ServiceType   = "_dronedance._tcp"
	ServiceDomain = "local."
)

var ErrInvalidListen = errors.New("listen address has no usable port")

type shutdowner interface {
	Shutdown()
}

type registerFunc func(instance, service, domain string, port int, text []string, ifaces []net.Interface) (shutdowner, error)

func zeroconfRegister(instance, service, domain string, port int, text []string, ifaces []net.Interface) (shutdowner, error) {
	return zeroconf.Register(instance, service, domain, port, text, ifaces)
}

// Service advertises the choreography API on the local network over mDNS
// so grid pages on other machines can find the watcher.
type Service struct {
	mu       sync.Mutex
	server   shutdowner
	instance string
	port     int
	fps      int
	register registerFunc
	log      zerolog.Logger
}

// New creates an announcer for the API bound to listen.
func New(listen string, fps int, log zerolog.Logger) (*Service, error) {
	port, err := listenPort(listen)
	if err != nil {
		return nil, err
	}
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "watcher"
	}
	return &Service{
		instance: fmt.Sprintf("%s-drone-dance", hostname),
		port:     port,
		fps:      fps,
		register: zeroconfRegister,
		log:      log,
	}, nil
}

func listenPort(listen string) (int, error) {
	_, p, err := net.SplitHostPort(listen)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrInvalidListen, listen, err)
	}
	port, err := strconv.Atoi(p)
	if err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidListen, listen)
	}
	return port, nil
}

// Start registers the service. Calling it twice is a no-op.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server != nil {
		return nil
	}

	text := []string{
		"version=" + config.AppVersion,
		"fps=" + strconv.Itoa(s.fps),
		"drones=/drones",
		"feed=/ws/playback",
	}
	server, err := s.register(s.instance, ServiceType, ServiceDomain, s.port, text, nil)
	if err != nil {
		return fmt.Errorf("failed to register mDNS service: %w", err)
	}
	s.server = server

	s.log.Info().Str("instance", s.instance).Str("service", ServiceType).
		Int("port", s.port).Msg("announcing on mDNS")
	return nil
}

// Stop withdraws the announcement.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return
	}
	s.server.Shutdown()
	s.server = nil
	s.log.Info().Msg("mDNS announcement stopped")
}

// Instance returns the advertised instance name.
func (s *Service) Instance() string {
	return s.instance
}

// Port returns the advertised port.
func (s *Service) Port() int {
	return s.port
}

package bluetooth

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"tinygo.org/x/bluetooth"
)

// BLERadio drives the host adapter through tinygo bluetooth.
type BLERadio struct {
	adapter *bluetooth.Adapter
	log     zerolog.Logger

	mu       sync.Mutex
	addrs    map[string]bluetooth.Address
	onState  func(RadioState)
	onAdv    func(Advertisement)
	scanning bool
}

// NewBLERadio creates a radio on the default adapter.
func NewBLERadio(log zerolog.Logger) *BLERadio {
	return &BLERadio{
		adapter: bluetooth.DefaultAdapter,
		log:     log,
		addrs:   make(map[string]bluetooth.Address),
	}
}

func (r *BLERadio) OnStateChange(fn func(RadioState)) {
	r.mu.Lock()
	r.onState = fn
	r.mu.Unlock()
}

func (r *BLERadio) OnAdvertisement(fn func(Advertisement)) {
	r.mu.Lock()
	r.onAdv = fn
	r.mu.Unlock()
}

// Enable powers the adapter and reports the resulting state.
func (r *BLERadio) Enable() error {
	if err := r.adapter.Enable(); err != nil {
		r.emitState(StatePoweredOff)
		return fmt.Errorf("failed to enable BLE adapter: %w (try running with sudo or setcap cap_net_admin+ep)", err)
	}

	r.emitState(StatePoweredOn)
	return nil
}

func (r *BLERadio) emitState(s RadioState) {
	r.mu.Lock()
	fn := r.onState
	r.mu.Unlock()

	r.log.Info().Str("state", s.String()).Msg("radio state changed")
	if fn != nil {
		fn(s)
	}
}

// StartScan begins scanning in a goroutine. Calling it while a scan is
// running is a no-op.
func (r *BLERadio) StartScan() error {
	r.mu.Lock()
	if r.scanning {
		r.mu.Unlock()
		return nil
	}
	r.scanning = true
	r.mu.Unlock()

	go func() {
		err := r.adapter.Scan(r.handleResult)

		r.mu.Lock()
		r.scanning = false
		r.mu.Unlock()

		if err != nil {
			r.log.Error().Err(err).Msg("scan stopped")
		}
	}()

	return nil
}

func (r *BLERadio) handleResult(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
	id := result.Address.String()

	adv := Advertisement{
		ID:        id,
		LocalName: result.LocalName(),
		RSSI:      result.RSSI,
	}
	for _, m := range result.ManufacturerData() {
		adv.Manufacturer = append(adv.Manufacturer, ManufacturerData{
			CompanyID: m.CompanyID,
			Data:      m.Data,
		})
	}

	r.mu.Lock()
	r.addrs[id] = result.Address
	fn := r.onAdv
	r.mu.Unlock()

	if fn != nil {
		fn(adv)
	}
}

// Dial returns an unconnected link to a peripheral seen during the scan.
func (r *BLERadio) Dial(id string) (Link, error) {
	r.mu.Lock()
	addr, ok := r.addrs[id]
	r.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPeripheral, id)
	}

	return &bleLink{
		adapter: r.adapter,
		address: addr,
		log:     r.log.With().Str("peripheral", id).Logger(),
	}, nil
}

// Stop halts scanning.
func (r *BLERadio) Stop() {
	_ = r.adapter.StopScan()
}

// bleLink is a GATT connection over tinygo bluetooth.
type bleLink struct {
	adapter *bluetooth.Adapter
	address bluetooth.Address
	log     zerolog.Logger

	mu        sync.Mutex
	device    bluetooth.Device
	connected bool
	chars     map[string]bluetooth.DeviceCharacteristic
}

type connectResult struct {
	device bluetooth.Device
	err    error
}

// Connect opens the connection and discovers every characteristic.
// tinygo's Connect has no cancellation; on ctx expiry the pending attempt
// is abandoned and disconnected if it completes later.
func (l *bleLink) Connect(ctx context.Context) error {
	done := make(chan connectResult, 1)
	go func() {
		dev, err := l.adapter.Connect(l.address, bluetooth.ConnectionParams{})
		done <- connectResult{device: dev, err: err}
	}()

	var res connectResult
	select {
	case res = <-done:
	case <-ctx.Done():
		go func() {
			if late := <-done; late.err == nil {
				_ = late.device.Disconnect()
			}
		}()
		return ctx.Err()
	}
	if res.err != nil {
		return res.err
	}

	chars, err := discoverCharacteristics(res.device)
	if err != nil {
		_ = res.device.Disconnect()
		return err
	}

	l.mu.Lock()
	l.device = res.device
	l.chars = chars
	l.connected = true
	l.mu.Unlock()

	l.log.Debug().Int("characteristics", len(chars)).Msg("gatt discovered")
	return nil
}

func discoverCharacteristics(dev bluetooth.Device) (map[string]bluetooth.DeviceCharacteristic, error) {
	services, err := dev.DiscoverServices(nil)
	if err != nil {
		return nil, fmt.Errorf("discover services: %w", err)
	}

	chars := make(map[string]bluetooth.DeviceCharacteristic)
	for i := range services {
		found, err := services[i].DiscoverCharacteristics(nil)
		if err != nil {
			return nil, fmt.Errorf("discover characteristics: %w", err)
		}
		for _, c := range found {
			chars[strings.ToLower(c.UUID().String())] = c
		}
	}
	return chars, nil
}

func (l *bleLink) characteristic(id string) (bluetooth.DeviceCharacteristic, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.connected {
		return bluetooth.DeviceCharacteristic{}, ErrNotConnected
	}
	c, ok := l.chars[id]
	if !ok {
		return bluetooth.DeviceCharacteristic{}, fmt.Errorf("%w: %s", ErrUnknownCharacteristic, id)
	}
	return c, nil
}

func (l *bleLink) Subscribe(ctx context.Context, chars []string, fn func(string, []byte)) error {
	for _, id := range chars {
		if err := ctx.Err(); err != nil {
			return err
		}

		c, err := l.characteristic(id)
		if err != nil {
			return err
		}

		id := id
		if err := c.EnableNotifications(func(buf []byte) {
			fn(id, buf)
		}); err != nil {
			return fmt.Errorf("enable notifications on %s: %w", id, err)
		}
	}
	return nil
}

func (l *bleLink) Write(char string, data []byte) error {
	c, err := l.characteristic(char)
	if err != nil {
		return err
	}
	_, err = c.WriteWithoutResponse(data)
	return err
}

func (l *bleLink) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.connected {
		return nil
	}
	l.connected = false
	return l.device.Disconnect()
}

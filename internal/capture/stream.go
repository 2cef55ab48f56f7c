package capture

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"github.com/gen2brain/malgo"
	"github.com/rs/zerolog"
)

// Source resolves the platform loopback device and opens a PCM stream on
// it. onData is invoked on the audio backend's own thread with interleaved
// signed 16-bit samples and must not block. Tests substitute fakes.
type Source interface {
	Open(onData func(samples []int16)) (Stream, error)
}

// Stream is a running capture stream.
type Stream interface {
	SampleRate() int
	Channels() int
	Close() error
}

// SourceConfig carries the user's device and process preferences into
// platform device selection.
type SourceConfig struct {
	// Device optionally forces a capture device by name substring.
	Device string
	// ProcessName is the application whose audio should be captured on
	// platforms that support per-process targeting or routing.
	ProcessName string
}

// deviceSelection is the uniform result of platform device resolution.
type deviceSelection struct {
	name       string
	deviceID   unsafe.Pointer
	deviceType malgo.DeviceType
	sampleRate uint32
	channels   uint32
	routing    routingHandle
}

// routingHandle is temporarily rerouted system audio state that must be
// reversed when the stream closes, on every exit path.
type routingHandle interface {
	teardown(log zerolog.Logger)
}

// deviceEntry is a platform-independent view of one capture device.
type deviceEntry struct {
	name      string
	id        unsafe.Pointer
	isDefault bool
}

// defaultEntry picks the backend's flagged default capture device. When no
// device carries the flag, the backend opens its own default (nil ID), and
// the selection is labeled as such rather than borrowing another device's
// name.
func defaultEntry(entries []deviceEntry) deviceEntry {
	for _, e := range entries {
		if e.isDefault {
			return e
		}
	}
	return deviceEntry{name: "system default"}
}

type malgoSource struct {
	cfg SourceConfig
	log zerolog.Logger
}

// NewSource returns the miniaudio-backed stream source for this platform.
func NewSource(cfg SourceConfig, log zerolog.Logger) Source {
	return &malgoSource{cfg: cfg, log: log}
}

func (s *malgoSource) Open(onData func(samples []int16)) (Stream, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		s.log.Debug().Str("component", "miniaudio").Msg(message)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}

	sel, err := resolveSource(ctx, s.cfg, s.log)
	if err != nil {
		_ = ctx.Uninit()
		ctx.Free()
		return nil, err
	}

	deviceConfig := malgo.DefaultDeviceConfig(sel.deviceType)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = sel.channels
	deviceConfig.SampleRate = sel.sampleRate
	deviceConfig.Alsa.NoMMap = 1
	if sel.deviceID != nil {
		deviceConfig.Capture.DeviceID = sel.deviceID
	}

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, frameCount uint32) {
			n := len(input) / 2
			if n == 0 {
				return
			}
			samples := make([]int16, n)
			for i := 0; i < n; i++ {
				samples[i] = int16(binary.LittleEndian.Uint16(input[2*i:]))
			}
			onData(samples)
		},
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, callbacks)
	if err != nil {
		if sel.routing != nil {
			sel.routing.teardown(s.log)
		}
		_ = ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("failed to initialize capture device %q: %w", sel.name, err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		if sel.routing != nil {
			sel.routing.teardown(s.log)
		}
		_ = ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("failed to start capture device %q: %w", sel.name, err)
	}

	s.log.Info().
		Str("device", sel.name).
		Uint32("sample_rate", sel.sampleRate).
		Uint32("channels", sel.channels).
		Msg("capture stream started")

	return &malgoStream{
		ctx:        ctx,
		device:     device,
		routing:    sel.routing,
		log:        s.log,
		sampleRate: int(sel.sampleRate),
		channels:   int(sel.channels),
	}, nil
}

type malgoStream struct {
	ctx        *malgo.AllocatedContext
	device     *malgo.Device
	routing    routingHandle
	log        zerolog.Logger
	sampleRate int
	channels   int
}

func (m *malgoStream) SampleRate() int { return m.sampleRate }
func (m *malgoStream) Channels() int   { return m.channels }

func (m *malgoStream) Close() error {
	if m.device != nil {
		_ = m.device.Stop()
		m.device.Uninit()
		m.device = nil
	}
	if m.routing != nil {
		m.routing.teardown(m.log)
		m.routing = nil
	}
	if m.ctx != nil {
		err := m.ctx.Uninit()
		m.ctx.Free()
		m.ctx = nil
		if err != nil {
			return fmt.Errorf("failed to uninit audio context: %w", err)
		}
	}
	return nil
}

// ListDevices enumerates the available capture devices, for the devices
// CLI command and for troubleshooting device selection.
func ListDevices(log zerolog.Logger) ([]DeviceInfo, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate capture devices: %w", err)
	}

	devices := make([]DeviceInfo, 0, len(infos))
	for _, info := range infos {
		devices = append(devices, DeviceInfo{
			Name:    info.Name(),
			Default: info.IsDefault == 1,
		})
	}
	return devices, nil
}

// DeviceInfo describes one capture device.
type DeviceInfo struct {
	Name    string
	Default bool
}

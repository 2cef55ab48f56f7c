//go:build darwin

package capture

import (
	"fmt"
	"strings"

	"github.com/gen2brain/malgo"
	"github.com/rs/zerolog"
)

// virtualDeviceKeywords match the virtual audio devices commonly installed
// for system audio capture on macOS. Core Audio has no native loopback.
var virtualDeviceKeywords = []string{
	"blackhole",
	"loopback",
	"soundflower",
	"virtual",
	"screencapture",
}

// resolveSource prefers a known virtual loopback device and falls back to
// the default input with an actionable warning.
func resolveSource(ctx *malgo.AllocatedContext, cfg SourceConfig, log zerolog.Logger) (deviceSelection, error) {
	sel := deviceSelection{
		deviceType: malgo.Capture,
		sampleRate: 48000,
		channels:   2,
	}

	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return deviceSelection{}, fmt.Errorf("failed to enumerate capture devices: %w", err)
	}
	if len(infos) == 0 {
		return deviceSelection{}, fmt.Errorf("%w: install BlackHole (https://existential.audio/blackhole/) for system audio capture", ErrDeviceNotFound)
	}

	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name())
	}
	log.Debug().Strs("devices", names).Msg("available capture devices")

	pick := func(match func(string) bool) bool {
		for _, info := range infos {
			if match(info.Name()) {
				sel.name = info.Name()
				sel.deviceID = info.ID.Pointer()
				return true
			}
		}
		return false
	}

	if cfg.Device != "" {
		if pick(func(n string) bool { return strings.Contains(n, cfg.Device) }) {
			log.Info().Str("device", sel.name).Msg("using configured capture device")
			return sel, nil
		}
		log.Warn().Str("device", cfg.Device).Msg("configured capture device not found")
	}

	if pick(func(n string) bool {
		lower := strings.ToLower(n)
		for _, kw := range virtualDeviceKeywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
		return false
	}) {
		log.Info().Str("device", sel.name).Msg("using virtual audio device")
		return sel, nil
	}

	log.Warn().Msg("no virtual audio device found; install BlackHole (https://existential.audio/blackhole/) to capture system audio, recording default input instead")
	entries := make([]deviceEntry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, deviceEntry{
			name:      info.Name(),
			id:        info.ID.Pointer(),
			isDefault: info.IsDefault == 1,
		})
	}
	d := defaultEntry(entries)
	sel.name = d.name
	sel.deviceID = d.id
	return sel, nil
}

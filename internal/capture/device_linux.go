//go:build linux

package capture

import (
	"fmt"
	"strings"

	"github.com/gen2brain/malgo"
	"github.com/rs/zerolog"
)

// resolveSource picks a capture device on PulseAudio/PipeWire systems.
// Order matters: per-app routed sink monitor first, then any monitor
// source (system output reflected as an input), then the default input.
// Each fallback is only attempted when the previous step fails.
func resolveSource(ctx *malgo.AllocatedContext, cfg SourceConfig, log zerolog.Logger) (deviceSelection, error) {
	sel := deviceSelection{
		deviceType: malgo.Capture,
		sampleRate: 48000,
		channels:   2,
	}

	// Try to reroute the target application's audio to a private sink so
	// only its output is captured. Best-effort: nil means full-system
	// monitor capture instead.
	var preferred string
	if routing := setupPulseRouting(cfg.ProcessName, log); routing != nil {
		sel.routing = routing
		preferred = routing.monitorSource()
	}

	fail := func(err error) (deviceSelection, error) {
		if sel.routing != nil {
			sel.routing.teardown(log)
		}
		return deviceSelection{}, err
	}

	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return fail(fmt.Errorf("failed to enumerate capture devices: %w", err))
	}
	if len(infos) == 0 {
		return fail(fmt.Errorf("%w: ensure PulseAudio or PipeWire is running", ErrDeviceNotFound))
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

	if preferred != "" {
		if pick(func(n string) bool { return strings.Contains(n, preferred) }) {
			log.Info().Str("device", sel.name).Msg("using per-app capture device")
			return sel, nil
		}
		log.Warn().Str("source", preferred).Msg("routed monitor source not found, falling back to system monitor")
	}

	if pick(func(n string) bool { return strings.Contains(strings.ToLower(n), "monitor") }) {
		log.Info().Str("device", sel.name).Msg("using monitor device")
		return sel, nil
	}

	log.Warn().Msg("no monitor device found, falling back to default input")
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

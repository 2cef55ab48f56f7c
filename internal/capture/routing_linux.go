//go:build linux

package capture

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

const captureSinkName = "discrec_capture"

// pulseRouting is temporarily rerouted PulseAudio state: a private null
// sink receiving the target application's audio, plus a loopback module so
// the user still hears it. Everything created here is unwound by teardown
// in reverse creation order.
type pulseRouting struct {
	nullSinkModule string
	loopbackModule string
	sinkInputIdx   string
	originalSink   string
}

// setupPulseRouting reroutes the target application's audio stream to a
// private capture sink. Returns nil if pactl is unavailable, the target is
// not playing anything, or any step fails; callers then fall back to
// monitor capture.
func setupPulseRouting(processName string, log zerolog.Logger) *pulseRouting {
	if processName == "" {
		return nil
	}

	sinkInputIdx, originalSink, ok := findSinkInput(processName, log)
	if !ok {
		return nil
	}
	log.Info().
		Str("sink_input", sinkInputIdx).
		Str("sink", originalSink).
		Str("app", processName).
		Msg("found application sink input")

	nullSink, err := pactlLoadModule(
		"module-null-sink",
		"sink_name="+captureSinkName,
		"sink_properties=device.description=DiscRec",
		"rate=48000",
		"channels=2",
	)
	if err != nil {
		log.Warn().Err(err).Msg("failed to create capture sink, falling back to system capture")
		return nil
	}

	r := &pulseRouting{
		nullSinkModule: nullSink,
		sinkInputIdx:   sinkInputIdx,
		originalSink:   originalSink,
	}

	// Loopback so the user still hears the application while recording.
	loopback, err := pactlLoadModule(
		"module-loopback",
		"source="+captureSinkName+".monitor",
		"latency_msec=1",
	)
	if err != nil {
		log.Warn().Err(err).Msg("failed to create loopback, application will be inaudible while recording")
	} else {
		r.loopbackModule = loopback
	}

	if err := pactl("move-sink-input", sinkInputIdx, captureSinkName); err != nil {
		log.Warn().Err(err).Msg("failed to move application audio, falling back to system capture")
		r.teardown(log)
		return nil
	}

	log.Info().Str("sink", captureSinkName).Msg("application audio routed to capture sink")
	return r
}

// monitorSource is the capture source name the routed audio appears on.
func (r *pulseRouting) monitorSource() string {
	return captureSinkName + ".monitor"
}

// teardown restores the original routing and removes the temporary
// modules, in reverse creation order. Failures are logged and the
// remaining steps still run.
func (r *pulseRouting) teardown(log zerolog.Logger) {
	if err := pactl("move-sink-input", r.sinkInputIdx, r.originalSink); err != nil {
		log.Warn().Err(err).Str("sink", r.originalSink).Msg("failed to restore application sink")
	} else {
		log.Info().Str("sink", r.originalSink).Msg("restored application to original sink")
	}

	if r.loopbackModule != "" {
		if err := pactl("unload-module", r.loopbackModule); err != nil {
			log.Warn().Err(err).Msg("failed to unload loopback module")
		}
	}
	if err := pactl("unload-module", r.nullSinkModule); err != nil {
		log.Warn().Err(err).Msg("failed to unload capture sink module")
	}
}

func pactl(args ...string) error {
	out, err := exec.Command("pactl", args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("pactl %s: %w (%s)", args[0], err, strings.TrimSpace(string(out)))
	}
	return nil
}

// pactlLoadModule loads a module and returns its ID for later unloading.
func pactlLoadModule(args ...string) (string, error) {
	out, err := exec.Command("pactl", append([]string{"load-module"}, args...)...).Output()
	if err != nil {
		return "", fmt.Errorf("pactl load-module %s: %w", args[0], err)
	}
	id := strings.TrimSpace(string(out))
	if _, err := strconv.Atoi(id); err != nil {
		return "", fmt.Errorf("pactl load-module %s: unexpected output %q", args[0], id)
	}
	return id, nil
}

// findSinkInput parses `pactl list sink-inputs` for the target
// application's stream index and the sink it currently plays on.
func findSinkInput(processName string, log zerolog.Logger) (idx, sink string, ok bool) {
	out, err := exec.Command("pactl", "list", "sink-inputs").Output()
	if err != nil {
		log.Debug().Err(err).Msg("pactl unavailable, per-app capture disabled")
		return "", "", false
	}

	var curIdx, curSink string
	needle := strings.ToLower(processName)

	for _, line := range strings.Split(string(out), "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "Sink Input #"):
			curIdx = strings.TrimPrefix(trimmed, "Sink Input #")
			curSink = ""
		case strings.HasPrefix(trimmed, "Sink: "):
			curSink = strings.TrimSpace(strings.TrimPrefix(trimmed, "Sink: "))
		case strings.Contains(trimmed, "application.name"):
			if strings.Contains(strings.ToLower(trimmed), needle) && curIdx != "" && curSink != "" {
				return curIdx, curSink, true
			}
		}
	}

	log.Debug().Str("app", processName).Msg("application sink input not found")
	return "", "", false
}

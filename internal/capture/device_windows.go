//go:build windows

package capture

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gen2brain/malgo"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/process"
)

// resolveSource verifies the target application is running and opens a
// WASAPI loopback stream at the fixed 48 kHz stereo capture format.
// Miniaudio exposes loopback per render device rather than per process,
// so capture covers the render device the application plays to.
func resolveSource(_ *malgo.AllocatedContext, cfg SourceConfig, log zerolog.Logger) (deviceSelection, error) {
	name := cfg.ProcessName
	if name == "" {
		name = "Discord"
	}

	pid, err := findProcessTreeRoot(name)
	if err != nil {
		return deviceSelection{}, err
	}
	log.Info().Str("process", name).Int32("pid", pid).Msg("found target process")

	return deviceSelection{
		name:       name + " loopback",
		deviceType: malgo.Loopback,
		sampleRate: 48000,
		channels:   2,
	}, nil
}

// findProcessTreeRoot locates the target application's root process: the
// lowest-PID match, walked up through same-named ancestors so helper and
// renderer children resolve to the tree root.
func findProcessTreeRoot(name string) (int32, error) {
	procs, err := process.Processes()
	if err != nil {
		return 0, fmt.Errorf("failed to enumerate processes: %w", err)
	}

	byPid := make(map[int32]*process.Process, len(procs))
	var matches []*process.Process
	for _, p := range procs {
		byPid[p.Pid] = p
		pname, err := p.Name()
		if err != nil {
			continue
		}
		if matchesProcessName(pname, name) {
			matches = append(matches, p)
		}
	}

	if len(matches) == 0 {
		return 0, fmt.Errorf("%w: start %s before recording", ErrProcessNotFound, name)
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Pid < matches[j].Pid })
	root := matches[0]

	// Climb while the parent is also an instance of the application.
	for {
		ppid, err := root.Ppid()
		if err != nil || ppid <= 0 {
			break
		}
		parent, ok := byPid[ppid]
		if !ok {
			break
		}
		pname, err := parent.Name()
		if err != nil || !matchesProcessName(pname, name) {
			break
		}
		root = parent
	}

	return root.Pid, nil
}

func matchesProcessName(procName, target string) bool {
	procName = strings.TrimSuffix(strings.ToLower(procName), ".exe")
	target = strings.TrimSuffix(strings.ToLower(target), ".exe")
	return procName == target || strings.HasPrefix(procName, target)
}

package audio

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gordonklaus/portaudio"
)

// Device describes a PortAudio device in a Go-friendly way.
type Device struct {
	Name            string
	MaxInput        int
	MaxOutput       int
	DefaultSampleHz float64
	HostAPI         string
	IsDefaultInput  bool
	IsDefaultOutput bool
}

func (d Device) String() string {
	var flags []string
	if d.IsDefaultInput {
		flags = append(flags, "default in")
	}
	if d.IsDefaultOutput {
		flags = append(flags, "default out")
	}
	s := fmt.Sprintf("%s / %s (in %d, out %d, %.0f Hz)", d.HostAPI, d.Name, d.MaxInput, d.MaxOutput, d.DefaultSampleHz)
	if len(flags) > 0 {
		s += " [" + strings.Join(flags, ", ") + "]"
	}
	return s
}

// ListDevices returns all available devices across host APIs sorted by host and name.
func ListDevices() ([]Device, error) {
	release, err := Acquire()
	if err != nil {
		return nil, fmt.Errorf("init portaudio: %w", err)
	}
	defer release()

	hosts, err := portaudio.HostApis()
	if err != nil {
		return nil, fmt.Errorf("host apis: %w", err)
	}

	defaultIn, defaultOut := -1, -1
	if def, err := portaudio.DefaultInputDevice(); err == nil && def != nil {
		defaultIn = def.Index
	}
	if def, err := portaudio.DefaultOutputDevice(); err == nil && def != nil {
		defaultOut = def.Index
	}

	var devices []Device
	for _, host := range hosts {
		for _, d := range host.Devices {
			devices = append(devices, Device{
				Name:            d.Name,
				MaxInput:        d.MaxInputChannels,
				MaxOutput:       d.MaxOutputChannels,
				DefaultSampleHz: d.DefaultSampleRate,
				HostAPI:         host.Name,
				IsDefaultInput:  d.Index == defaultIn,
				IsDefaultOutput: d.Index == defaultOut,
			})
		}
	}
	sortDevices(devices)
	return devices, nil
}

func sortDevices(devices []Device) {
	sort.Slice(devices, func(i, j int) bool {
		if devices[i].HostAPI == devices[j].HostAPI {
			return devices[i].Name < devices[j].Name
		}
		return devices[i].HostAPI < devices[j].HostAPI
	})
}

// findInput resolves an input device: a case-insensitive substring match when
// name is set, otherwise the best scoring input.
func findInput(name string) (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list audio devices: %w", err)
	}

	if name != "" {
		name = strings.ToLower(name)
		for _, d := range devices {
			if d.MaxInputChannels > 0 && strings.Contains(strings.ToLower(d.Name), name) {
				return d, nil
			}
		}
		return nil, fmt.Errorf("audio input %q not found", name)
	}

	defaultIn := -1
	if def, err := portaudio.DefaultInputDevice(); err == nil && def != nil {
		defaultIn = def.Index
	}
	candidates := make([]candidate, 0, len(devices))
	for _, d := range devices {
		if d == nil || d.MaxInputChannels <= 0 {
			continue
		}
		candidates = append(candidates, candidate{
			name:     d.Name,
			channels: d.MaxInputChannels,
			isDef:    d.Index == defaultIn,
			info:     d,
		})
	}
	best := pickInput(candidates)
	if best == nil {
		return nil, fmt.Errorf("no suitable audio input device found")
	}
	return best.info, nil
}

type candidate struct {
	name     string
	channels int
	isDef    bool
	info     *portaudio.DeviceInfo
}

// pickInput prefers the system default, then microphones over monitor and
// loopback sources, then stereo-capable devices.
func pickInput(cs []candidate) *candidate {
	if len(cs) == 0 {
		return nil
	}
	score := func(c candidate) int {
		s := min(c.channels, 2)
		if c.isDef {
			s += 50
		}
		lower := strings.ToLower(c.name)
		for _, kw := range []string{"mic", "input", "line in"} {
			if strings.Contains(lower, kw) {
				s += 20
				break
			}
		}
		for _, kw := range []string{"monitor", "loopback", "stereo mix", "what u hear"} {
			if strings.Contains(lower, kw) {
				s -= 30
				break
			}
		}
		return s
	}
	sort.SliceStable(cs, func(i, j int) bool {
		si, sj := score(cs[i]), score(cs[j])
		if si == sj {
			return strings.ToLower(cs[i].name) < strings.ToLower(cs[j].name)
		}
		return si > sj
	})
	return &cs[0]
}

// isInvalidStreamState checks if the provided error stems from stopping an already stopped stream.
func isInvalidStreamState(err error) bool {
	if err == nil {
		return false
	}
	const invalidStateMsg = "PaErrorCode -9986"
	return strings.Contains(err.Error(), invalidStateMsg)
}

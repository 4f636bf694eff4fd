package audio

import (
	"sync"

	"github.com/gordonklaus/portaudio"
)

var (
	mu   sync.Mutex
	refs int
)

// Acquire initializes PortAudio on first use and returns a release function.
// Recorder, Player and ListDevices can be nested freely; the library is
// terminated when the last holder releases it.
func Acquire() (release func(), err error) {
	mu.Lock()
	defer mu.Unlock()

	if refs == 0 {
		if err := portaudio.Initialize(); err != nil {
			return nil, err
		}
	}
	refs++

	var once sync.Once
	return func() {
		once.Do(func() {
			mu.Lock()
			defer mu.Unlock()
			refs--
			if refs == 0 {
				_ = portaudio.Terminate()
			}
		})
	}, nil
}

// flash_persist.go - flash image persistence across simulator runs

/*
flash_persist.go - Flash Store

Flash is non-volatile, so a board that was programmed yesterday still boots
today. The store keeps the flash array in a plain image file and holds an
advisory lock (gofrs/flock) on a sidecar for as long as the simulator owns
the board, so two instances pointed at the same file cannot interleave
writes and corrupt the image.
*/

package main

import (
	"fmt"
	"os"

	"github.com/gofrs/flock"
)

type FlashStore struct {
	path string
	lock *flock.Flock
}

// OpenFlashStore claims the backing file for this instance. A second
// instance pointed at the same path is refused immediately rather than
// silently sharing the image.
func OpenFlashStore(path string) (*FlashStore, error) {
	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("flash store %s: %v", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("flash store %s is in use by another instance", path)
	}
	return &FlashStore{path: path, lock: lock}, nil
}

// Restore copies the persisted image into the flash array. Returns false
// when no image exists yet, which is not an error on a first run.
func (s *FlashStore) Restore(bus *MachineBus) (bool, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("flash store %s: %v", s.path, err)
	}
	flashSize := len(bus.FlashBytes())
	if len(data) > flashSize {
		return false, fmt.Errorf("flash store %s holds %d bytes but the part has %d bytes of flash",
			s.path, len(data), flashSize)
	}
	if err := bus.WriteFlashDirect(FLASH_BASE, data); err != nil {
		return false, fmt.Errorf("flash store %s: %v", s.path, err)
	}
	return true, nil
}

// Save writes the flash array back to the image file.
func (s *FlashStore) Save(bus *MachineBus) error {
	if err := os.WriteFile(s.path, bus.FlashBytes(), 0644); err != nil {
		return fmt.Errorf("flash store %s: %v", s.path, err)
	}
	return nil
}

// Close releases the instance lock. The image file stays behind.
func (s *FlashStore) Close() error {
	return s.lock.Unlock()
}

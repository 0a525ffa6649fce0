package storage

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Sentinel is an flock-guarded marker file a Store holds open for its entire
// lifetime. If a prior process crashed without releasing the lock, opening
// the store on restart reports Recovered=true instead of failing, matching
// the spec §6.4 requirement to distinguish a clean shutdown from a crash so
// the caller can decide whether to re-validate pending bundles.
type Sentinel struct {
	file *os.File
}

// OpenSentinel opens (creating if necessary) the sentinel file at path and
// attempts an exclusive, non-blocking flock on it. If the lock is already
// held by this process's own prior, uncleanly-terminated run, flock succeeds
// anyway once that process has exited -- the crash signal instead comes from
// the presence of a leftover marker byte written by OpenSentinel and cleared
// by Close.
func OpenSentinel(path string) (*Sentinel, bool, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, false, fmt.Errorf("storage: failed to open sentinel file: %w", err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, false, fmt.Errorf("storage: store already locked by another process: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, false, err
	}
	recovered := info.Size() > 0

	if err := f.Truncate(1); err != nil {
		f.Close()
		return nil, false, err
	}
	if _, err := f.WriteAt([]byte{1}, 0); err != nil {
		f.Close()
		return nil, false, err
	}

	return &Sentinel{file: f}, recovered, nil
}

// Close marks the sentinel clean and releases the flock. A subsequent
// OpenSentinel call will then report Recovered=false.
func (s *Sentinel) Close() error {
	if err := s.file.Truncate(0); err != nil {
		s.file.Close()
		return err
	}
	if err := unix.Flock(int(s.file.Fd()), unix.LOCK_UN); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}

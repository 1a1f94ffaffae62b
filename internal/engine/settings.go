package engine

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"
)

// Solver settings travel in the engine's own structured-binary format:
// a magic header followed by a gob stream. Callers treat the file as an
// opaque blob.
const settingsMagic = "ODEFIT-SOLVER\x01"

// ErrSettingsCodecUnavailable is returned when this engine build ships
// without the solver settings codec.
var ErrSettingsCodecUnavailable = errors.New("engine: solver settings codec unavailable in this build")

type settingsCodec interface {
	encode(w io.Writer, s *Solver) error
	decode(r io.Reader, s *Solver) error
}

// activeCodec is nil in builds without settings support.
var activeCodec settingsCodec = gobSettingsCodec{}

type gobSettingsCodec struct{}

func (gobSettingsCodec) encode(w io.Writer, s *Solver) error {
	return gob.NewEncoder(w).Encode(s)
}

func (gobSettingsCodec) decode(r io.Reader, s *Solver) error {
	return gob.NewDecoder(r).Decode(s)
}

// WriteSolverSettings exports the solver configuration to path.
func WriteSolverSettings(s *Solver, path string) (err error) {
	if activeCodec == nil {
		return ErrSettingsCodecUnavailable
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if _, err := io.WriteString(f, settingsMagic); err != nil {
		return err
	}
	return activeCodec.encode(f, s)
}

// ReadSolverSettings imports a previously exported configuration from
// path into s, overwriting its current values.
func ReadSolverSettings(path string, s *Solver) error {
	if activeCodec == nil {
		return ErrSettingsCodecUnavailable
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	magic := make([]byte, len(settingsMagic))
	if _, err := io.ReadFull(f, magic); err != nil {
		return fmt.Errorf("engine: read solver settings header: %w", err)
	}
	if !bytes.Equal(magic, []byte(settingsMagic)) {
		return fmt.Errorf("engine: %s is not a solver settings file", path)
	}
	return activeCodec.decode(f, s)
}

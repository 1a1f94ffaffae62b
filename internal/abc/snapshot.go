package abc

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mhelwig/odefit/internal/engine"
	"github.com/mhelwig/odefit/internal/petab"
)

// Snapshot is the portable form of a SimulatorModel: plain data only,
// no live engine handles. The compiled model is deliberately absent —
// it cannot be serialized and is rebuilt from the problem on restore —
// while the solver configuration travels as an opaque byte blob in the
// engine's own settings format.
type Snapshot struct {
	Problem           *petab.Problem
	FreeIDs           []string
	FixedIDs          []string
	FixedValues       []float64
	ReturnSimulations bool
	ReturnRawResults  bool
	SolverSettings    []byte
}

// Snapshot captures everything needed to reconstruct the model callable
// in another process. The solver configuration is exported through the
// engine's structured-binary format via a scoped temporary file that is
// removed on every exit path.
func (m *SimulatorModel) Snapshot() (*Snapshot, error) {
	snap := &Snapshot{
		Problem:           m.problem,
		FreeIDs:           append([]string(nil), m.freeIDs...),
		FixedIDs:          append([]string(nil), m.fixedIDs...),
		FixedValues:       append([]float64(nil), m.fixedValues...),
		ReturnSimulations: m.returnSimulations,
		ReturnRawResults:  m.returnRawResults,
	}

	err := withTempFile("odefit-solver-*.bin", func(path string) error {
		if err := writeSolverSettings(m.solver, path); err != nil {
			if errors.Is(err, engine.ErrSettingsCodecUnavailable) {
				return fmt.Errorf("snapshotting a simulator model requires an engine build with solver settings support: %w", err)
			}
			return err
		}
		blob, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		snap.SolverSettings = blob
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// RestoreModel rebuilds a SimulatorModel from a snapshot: the compiled
// model is reconstructed from the stored problem (a potentially
// expensive recompilation, not a cheap decode), and a fresh default
// solver is overwritten with the stored configuration blob.
//
// A restored model reproduces the original's evaluations up to solver
// numerical reproducibility; the compiled model identity is not
// preserved.
func RestoreModel(snap *Snapshot) (*SimulatorModel, error) {
	model, err := importProblem(snap.Problem)
	if err != nil {
		return nil, err
	}
	solver := model.NewSolver()

	err = withTempFile("odefit-solver-*.bin", func(path string) error {
		if err := os.WriteFile(path, snap.SolverSettings, 0o600); err != nil {
			return err
		}
		if err := readSolverSettings(path, solver); err != nil {
			if errors.Is(err, engine.ErrSettingsCodecUnavailable) {
				return fmt.Errorf("restoring a simulator model requires an engine build with solver settings support: %w", err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &SimulatorModel{
		problem:           snap.Problem,
		model:             model,
		solver:            solver,
		freeIDs:           append([]string(nil), snap.FreeIDs...),
		fixedIDs:          append([]string(nil), snap.FixedIDs...),
		fixedValues:       append([]float64(nil), snap.FixedValues...),
		returnSimulations: snap.ReturnSimulations,
		returnRawResults:  snap.ReturnRawResults,
	}, nil
}

// Encode writes the snapshot to w for persistence or transmission.
func (s *Snapshot) Encode(w io.Writer) error {
	return gob.NewEncoder(w).Encode(s)
}

// DecodeSnapshot reads a snapshot previously written by Encode.
func DecodeSnapshot(r io.Reader) (*Snapshot, error) {
	s := &Snapshot{}
	if err := gob.NewDecoder(r).Decode(s); err != nil {
		return nil, err
	}
	return s, nil
}

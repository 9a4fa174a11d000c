// Package diagnostics records convergence history for a multigrid run
// and can export it as CSV. The residual norms themselves are computed
// externally (mg.Run returns them) per spec.md §4.5 — this package only
// accumulates and persists what a caller chooses to record.
//
// Grounded in the teacher's telemetry.OutputManager (header-then-append
// gocsv writes) and telemetry's PerfStats-to-CSV flattening pattern.
package diagnostics

import (
	"fmt"
	"os"

	"github.com/gocarina/gocsv"
)

// CycleRecord is one V-cycle's recorded residual norm.
type CycleRecord struct {
	Step     int     `csv:"step"`
	Cycle    int     `csv:"cycle"`
	Residual float64 `csv:"residual_l2"`
}

// StepRecord summarizes one full time-step pass (solve, push, migrate).
type StepRecord struct {
	Step          int     `csv:"step"`
	FinalResidual float64 `csv:"final_residual_l2"`
	Cycles        int     `csv:"cycles"`
	ParticleCount int     `csv:"particle_count"`
}

// History accumulates convergence and step records in memory for the
// lifetime of a run. It is not written to disk unless WriteCSV is
// called explicitly.
type History struct {
	Cycles []CycleRecord
	Steps  []StepRecord
}

// New returns an empty History.
func New() *History {
	return &History{}
}

// RecordCycles appends one step's per-cycle residual history, as
// returned by mg.Multigrid.Run.
func (h *History) RecordCycles(step int, residuals []float64) {
	for i, r := range residuals {
		h.Cycles = append(h.Cycles, CycleRecord{Step: step, Cycle: i, Residual: r})
	}
}

// RecordStep appends a summary record for one completed time step.
func (h *History) RecordStep(step int, residuals []float64, particleCount int) {
	final := 0.0
	if len(residuals) > 0 {
		final = residuals[len(residuals)-1]
	}
	h.Steps = append(h.Steps, StepRecord{
		Step:          step,
		FinalResidual: final,
		Cycles:        len(residuals),
		ParticleCount: particleCount,
	})
}

// WriteCSV writes the per-cycle history to cyclesPath and the
// per-step summary to stepsPath. Either path may be empty to skip
// that file.
func (h *History) WriteCSV(cyclesPath, stepsPath string) error {
	if cyclesPath != "" {
		if err := writeCSV(cyclesPath, h.Cycles); err != nil {
			return fmt.Errorf("writing cycle history: %w", err)
		}
	}
	if stepsPath != "" {
		if err := writeCSV(stepsPath, h.Steps); err != nil {
			return fmt.Errorf("writing step history: %w", err)
		}
	}
	return nil
}

func writeCSV[T any](path string, records []T) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gocsv.Marshal(records, f)
}

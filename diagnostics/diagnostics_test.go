package diagnostics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRecordCyclesAccumulates(t *testing.T) {
	h := New()
	h.RecordCycles(0, []float64{1.0, 0.5, 0.1})
	h.RecordCycles(1, []float64{0.2, 0.05})

	if len(h.Cycles) != 5 {
		t.Fatalf("len(Cycles) = %d, want 5", len(h.Cycles))
	}
	if h.Cycles[0].Step != 0 || h.Cycles[0].Cycle != 0 {
		t.Fatalf("first record = %+v", h.Cycles[0])
	}
	if h.Cycles[4].Step != 1 || h.Cycles[4].Cycle != 1 {
		t.Fatalf("last record = %+v", h.Cycles[4])
	}
}

func TestRecordStepUsesFinalResidual(t *testing.T) {
	h := New()
	h.RecordStep(3, []float64{1.0, 0.3, 0.01}, 42)

	if len(h.Steps) != 1 {
		t.Fatalf("len(Steps) = %d, want 1", len(h.Steps))
	}
	got := h.Steps[0]
	if got.FinalResidual != 0.01 {
		t.Fatalf("FinalResidual = %v, want 0.01", got.FinalResidual)
	}
	if got.Cycles != 3 || got.ParticleCount != 42 {
		t.Fatalf("step record = %+v", got)
	}
}

func TestRecordStepEmptyResidualsIsZero(t *testing.T) {
	h := New()
	h.RecordStep(0, nil, 0)
	if h.Steps[0].FinalResidual != 0 {
		t.Fatalf("FinalResidual = %v, want 0", h.Steps[0].FinalResidual)
	}
}

func TestWriteCSVProducesBothFiles(t *testing.T) {
	h := New()
	h.RecordCycles(0, []float64{1.0, 0.5})
	h.RecordStep(0, []float64{1.0, 0.5}, 10)

	dir := t.TempDir()
	cyclesPath := filepath.Join(dir, "cycles.csv")
	stepsPath := filepath.Join(dir, "steps.csv")

	if err := h.WriteCSV(cyclesPath, stepsPath); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	cyclesData, err := os.ReadFile(cyclesPath)
	if err != nil {
		t.Fatalf("reading cycles.csv: %v", err)
	}
	if !strings.Contains(string(cyclesData), "residual_l2") {
		t.Fatalf("cycles.csv missing header: %s", cyclesData)
	}

	stepsData, err := os.ReadFile(stepsPath)
	if err != nil {
		t.Fatalf("reading steps.csv: %v", err)
	}
	if !strings.Contains(string(stepsData), "particle_count") {
		t.Fatalf("steps.csv missing header: %s", stepsData)
	}
}

func TestWriteCSVSkipsEmptyPaths(t *testing.T) {
	h := New()
	if err := h.WriteCSV("", ""); err != nil {
		t.Fatalf("WriteCSV with empty paths: %v", err)
	}
}

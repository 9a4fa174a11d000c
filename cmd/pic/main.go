// Command pic is a headless driver wiring one full particle-in-cell time
// step together: multigrid Poisson solve, trilinear acceleration and
// deposition, explicit-Euler push, periodic wrap, and neighbor-exchange
// migration (C1-C9). It plays the role the teacher's flag-based main.go
// plays for the ecosystem simulation, minus any rendering: every
// subdomain runs as a goroutine over the in-process transport, so a
// single process stands in for an MPI job of cfg.Domain.NSubdomains
// ranks.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"sync"

	"github.com/pinc-go/pinc/config"
	"github.com/pinc-go/pinc/diagnostics"
	"github.com/pinc-go/pinc/mg"
	"github.com/pinc-go/pinc/migrate"
	"github.com/pinc-go/pinc/population"
	"github.com/pinc-go/pinc/pusher"
	"github.com/pinc-go/pinc/transport"
)

var (
	configPath    = flag.String("config", "", "Path to YAML config (defaults to embedded config/defaults.yaml)")
	steps         = flag.Int("steps", 20, "Number of time steps to run")
	outDir        = flag.String("out", "", "Directory to write per-rank diagnostics CSV (empty disables)")
	logInterval   = flag.Int("log", 1, "Log step summary every N steps (0 disables)")
	logFile       = flag.String("logfile", "", "Write logs to file instead of stdout")
	seedParticles = flag.Int("seed-particles", 200, "Particles seeded per species per subdomain at startup")
)

func main() {
	flag.Parse()

	if *logFile != "" {
		f, err := os.Create(*logFile)
		if err != nil {
			log.Fatalf("pic: opening logfile: %v", err)
		}
		defer f.Close()
		setLogWriter(f)
	}

	config.MustInit(*configPath)
	cfg := config.Cfg()

	nSpatial := len(cfg.Domain.TrueSize)
	trueSize := append([]int{1}, cfg.Domain.TrueSize...)
	nGhost := make([]int, 2*(nSpatial+1))
	for d := 1; d <= nSpatial; d++ {
		nGhost[d] = cfg.Domain.NGhostLayers
		nGhost[nSpatial+1+d] = cfg.Domain.NGhostLayers
	}

	conns, err := transport.NewLocal(cfg.Domain.NSubdomains)
	if err != nil {
		log.Fatalf("pic: building transport fabric: %v", err)
	}

	mgCfg, err := buildMGConfig(cfg)
	if err != nil {
		log.Fatalf("pic: %v", err)
	}

	if *outDir != "" {
		if err := os.MkdirAll(*outDir, 0755); err != nil {
			log.Fatalf("pic: creating output dir: %v", err)
		}
	}

	nRanks := len(conns)
	errs := make([]error, nRanks)
	var wg sync.WaitGroup
	for r := 0; r < nRanks; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			errs[r] = runRank(r, conns[r], cfg, mgCfg, nSpatial, trueSize, nGhost)
		}(r)
	}
	wg.Wait()

	for r, err := range errs {
		if err != nil {
			log.Fatalf("pic: rank %d: %v", r, err)
		}
	}
}

// buildMGConfig resolves the YAML-named smoothers and transfer operators
// into the mg package's tagged-variant Config, per the teacher's
// name-keyed dispatch (mg.SmootherByName).
func buildMGConfig(cfg *config.Config) (mg.Config, error) {
	pre, err := mg.SmootherByName(cfg.Modules.PreSmooth)
	if err != nil {
		return mg.Config{}, fmt.Errorf("preSmooth: %w", err)
	}
	post, err := mg.SmootherByName(cfg.Modules.PostSmooth)
	if err != nil {
		return mg.Config{}, fmt.Errorf("postSmooth: %w", err)
	}
	coarse, err := mg.SmootherByName(cfg.CoarseSolveName())
	if err != nil {
		return mg.Config{}, fmt.Errorf("coarseSolve: %w", err)
	}

	var restrictor mg.Restrictor
	switch cfg.Multigrid.Restrictor {
	case "", "halfWeight":
		restrictor = mg.HalfWeight{}
	default:
		return mg.Config{}, fmt.Errorf("unknown restrictor %q", cfg.Multigrid.Restrictor)
	}

	var prolongator mg.Prolongator
	switch cfg.Multigrid.Prolongator {
	case "", "bilinear":
		prolongator = mg.Bilinear{}
	default:
		return mg.Config{}, fmt.Errorf("unknown prolongator %q", cfg.Multigrid.Prolongator)
	}

	return mg.Config{
		PreSmooth:    pre,
		PostSmooth:   post,
		CoarseSolve:  coarse,
		Restrictor:   restrictor,
		Prolongator:  prolongator,
		NLevels:      cfg.Multigrid.MGLevels,
		NCycles:      cfg.Multigrid.MGCycles,
		NPreSmooth:   cfg.Multigrid.NPreSmooth,
		NPostSmooth:  cfg.Multigrid.NPostSmooth,
		NCoarseSolve: cfg.Multigrid.NCoarseSolve,
	}, nil
}

// runRank drives one subdomain's full simulation loop: solve, push,
// migrate, record. It is the per-rank body the main goroutine fan-out
// above runs concurrently, one per transport.Conn.
func runRank(r int, conn transport.Conn, cfg *config.Config, mgCfg mg.Config, nSpatial int, trueSize, nGhost []int) error {
	solver, err := mg.New(conn, trueSize, nGhost, mgCfg)
	if err != nil {
		return fmt.Errorf("mg.New: %w", err)
	}

	pop := population.New(nSpatial, cfg.Population.NSpecies, cfg.Population.BlockSize)
	seedPopulation(pop, cfg, nSpatial, rand.New(rand.NewSource(int64(r)+1)))

	mig := &migrate.Migrator{Conn: conn, Info: conn.Topology(), TrueSize: cfg.Domain.TrueSize}
	hist := diagnostics.New()

	for step := 0; step < *steps; step++ {
		solver.Rho().Zero()
		for s := 0; s < cfg.Population.NSpecies; s++ {
			if err := pusher.Distribute(pop, s, solver.Rho(), cfg.Population.RenormRho[s]); err != nil {
				return fmt.Errorf("step %d: distribute species %d: %w", step, s, err)
			}
		}

		residuals, err := solver.Run()
		if err != nil {
			return fmt.Errorf("step %d: solve: %w", step, err)
		}

		E := computeEField(solver.Phi())
		for s := 0; s < cfg.Population.NSpecies; s++ {
			if err := pusher.Accelerate(pop, s, E, cfg.Population.RenormE[s], cfg.Timestep.DT); err != nil {
				return fmt.Errorf("step %d: accelerate species %d: %w", step, s, err)
			}
		}
		pusher.Move(pop, cfg.Timestep.DT)
		pusher.WrapPeriodic(pop, cfg.Domain.TrueSize, cfg.Domain.Periodic)

		if err := mig.Run(pop); err != nil {
			return fmt.Errorf("step %d: migrate: %w", step, err)
		}

		total := 0
		for s := 0; s < pop.NSpecies; s++ {
			total += pop.Count(s)
		}
		hist.RecordCycles(step, residuals)
		hist.RecordStep(step, residuals, total)

		if *logInterval > 0 && (step+1)%(*logInterval) == 0 {
			logf("rank %d step %d: residual=%.3e particles=%d", r, step, lastResidual(residuals), total)
		}
	}

	if *outDir != "" {
		cyclesPath := filepath.Join(*outDir, fmt.Sprintf("cycles-rank%d.csv", r))
		stepsPath := filepath.Join(*outDir, fmt.Sprintf("steps-rank%d.csv", r))
		if err := hist.WriteCSV(cyclesPath, stepsPath); err != nil {
			return fmt.Errorf("writing diagnostics: %w", err)
		}
	}
	return nil
}

// seedPopulation scatters seedParticles particles per species uniformly
// over this subdomain's local interior, at rest.
func seedPopulation(pop *population.Population, cfg *config.Config, nSpatial int, rng *rand.Rand) {
	for s := 0; s < cfg.Population.NSpecies; s++ {
		for i := 0; i < *seedParticles; i++ {
			pos := make([]float64, nSpatial)
			vel := make([]float64, nSpatial)
			for d := 0; d < nSpatial; d++ {
				pos[d] = rng.Float64() * float64(cfg.Domain.TrueSize[d])
			}
			if _, err := pop.Append(s, pos, vel); err != nil {
				return // seed buffer full; fewer particles than requested is fine
			}
		}
	}
}

func lastResidual(residuals []float64) float64 {
	if len(residuals) == 0 {
		return 0
	}
	return residuals[len(residuals)-1]
}

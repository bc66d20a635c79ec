// Package main tunes movement, collection and growth constants with
// CMA-ES so autopilot runs finish levels at a chosen pace.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/katamari/config"
)

type tuneFlags struct {
	configPath string
	outputDir  string
	maxTicks   int
	seeds      int
	maxEvals   int
	population int
	levelSec   float64
}

func main() {
	var f tuneFlags
	flag.StringVar(&f.configPath, "config", "", "Base config YAML file (empty = use defaults)")
	flag.StringVar(&f.outputDir, "output", "", "Output directory for results")
	flag.IntVar(&f.maxTicks, "max-ticks", 60*60*5, "Steps per run (cap)")
	flag.IntVar(&f.seeds, "seeds", 3, "Number of seeds per evaluation")
	flag.IntVar(&f.maxEvals, "max-evals", 200, "Maximum number of evaluations")
	flag.IntVar(&f.population, "population", 0, "CMA-ES population size (0 = auto)")
	flag.Float64Var(&f.levelSec, "level-sec", 60, "Desired seconds per level")
	flag.Parse()

	if f.outputDir == "" {
		log.Fatal("--output is required")
	}
	if err := run(f); err != nil {
		log.Fatal(err)
	}
}

func run(f tuneFlags) error {
	if err := os.MkdirAll(f.outputDir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	baseCfg, err := config.Load(f.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	params := NewParamVector(baseCfg)
	seeds := make([]int64, f.seeds)
	for i := range seeds {
		seeds[i] = int64(i*1000 + 42)
	}
	evaluator := NewFitnessEvaluator(params, f.maxTicks, seeds, baseCfg, f.levelSec)

	elog, err := newEvalLog(filepath.Join(f.outputDir, "tune_log.csv"), params)
	if err != nil {
		return err
	}
	defer elog.Close()

	popSize := f.population
	if popSize == 0 {
		popSize = 4 + int(3.0*float64(params.Dim())/2.0)
	}

	prog := &progress{maxEvals: f.maxEvals, start: time.Now(), best: 1e9}
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			raw := params.Denormalize(x)
			fitness := evaluator.Evaluate(raw)
			levels, paceErr := evaluator.LastStats()

			// Log clamped values, these are the ones actually used
			used := params.Clamp(raw)
			prog.record(fitness, used)
			elog.Record(prog.evals, fitness, levels, paceErr, used)
			fmt.Printf("Eval %d/%d: levels=%.2f pace_err=%.3f fitness=%.3f (best=%.3f) | %s\n",
				prog.evals, f.maxEvals, levels, paceErr, fitness, prog.best, prog.timing())
			return fitness
		},
	}

	fmt.Printf("Tuning %d parameters: population=%d max_evals=%d seeds=%d steps=%d pace=%.0fs\n",
		params.Dim(), popSize, f.maxEvals, f.seeds, f.maxTicks, f.levelSec)

	result, err := optimize.Minimize(problem,
		params.Normalize(params.DefaultVector()),
		&optimize.Settings{FuncEvaluations: f.maxEvals},
		&optimize.CmaEsChol{InitStepSize: 0.3, Population: popSize},
	)
	if err != nil {
		log.Printf("tuning ended: %v", err)
	}

	// Best params may come from any evaluation, not just the final one
	best := prog.params
	if best == nil && result != nil {
		best = params.Clamp(params.Denormalize(result.X))
	}
	if best == nil {
		return fmt.Errorf("no evaluations completed")
	}

	fmt.Printf("\nTuning complete after %d evaluations in %s, best fitness %.4f\n",
		prog.evals, formatDuration(time.Since(prog.start)), prog.best)
	for i, spec := range params.Specs {
		fmt.Printf("  %-24s %-38s %.6f\n", spec.Name, spec.Path, best[i])
	}

	return writeBest(f.configPath, filepath.Join(f.outputDir, "best_config.yaml"), params, best)
}

// writeBest applies best on top of the base config and saves it.
func writeBest(configPath, out string, params *ParamVector, best []float64) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("reload config: %w", err)
	}
	params.ApplyToConfig(cfg, best)
	if err := cfg.Validate(); err != nil {
		log.Printf("best config does not validate: %v", err)
	}
	if err := cfg.WriteYAML(out); err != nil {
		return err
	}
	fmt.Printf("\nBest config saved to: %s\n", out)
	return nil
}

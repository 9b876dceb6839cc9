package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"cartpole/internal/config"
	"cartpole/internal/env"
	"cartpole/internal/feed"
	"cartpole/internal/ga"
	"cartpole/internal/logging"
	"cartpole/internal/storage"
	"cartpole/internal/trainer"
)

var errGenerationLimit = errors.New("generation limit reached")

func main() {
	// Parse command line flags
	configPath := flag.String("config", "configs/cartpole.yaml", "path to config file (.yaml or .ini)")
	generations := flag.Int("generations", 0, "number of generations to run, 0 runs until interrupted")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := run(cfg, *configPath, *generations); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, configPath string, generations int) error {
	envOpts, err := cfg.EnvOptions()
	if err != nil {
		return err
	}
	netOpts, err := cfg.NetworkOptions()
	if err != nil {
		return err
	}

	fmt.Println("Cart-Pole Trainer")
	fmt.Printf("Config: %s\n", configPath)
	fmt.Printf("Layers: %v (%s), Integrator: %s, Features: %s\n",
		cfg.Layers(), netOpts.Activation.Name, envOpts.Integrator, cfg.NN.Features)
	fmt.Printf("Population: %d, Mutation: %.1f%% x %.2f, Random: %.1f%%\n",
		cfg.GA.Population, cfg.GA.MutationChance, cfg.GA.MutationMagnitude, cfg.GA.RandomPercent)
	fmt.Println("---")

	rng := rand.New(rand.NewSource(cfg.Seed))
	evo, err := trainer.NewEvolutionary(trainer.Config{
		Population: ga.Spec{
			Size:     cfg.GA.Population,
			Layers:   cfg.Layers(),
			Network:  netOpts,
			Env:      envOpts,
			BaseSeed: cfg.Seed,
		},
		Mutation: ga.MutationConfig{
			PercentChance: cfg.GA.MutationChance,
			Magnitude:     cfg.GA.MutationMagnitude,
			RandomPercent: cfg.GA.RandomPercent,
		},
		Fitness:  cfg.Fitness,
		Features: cfg.NN.Features,
		Workers:  cfg.Eval.Workers,
	}, rng)
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(cfg.Logging.CSVPath, cfg.Logging.JSONPath)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	if err := logger.Init(); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()
	logger.SetEveryGeneration(cfg.Logging.EveryGenSummary)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Storage.SQLitePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.SQLitePath), 0755); err != nil {
			return err
		}
	}
	store := storage.NewStore(cfg.Storage.SQLitePath)
	if err := store.Init(ctx); err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer storage.CloseIfSupported(store)

	var hub *feed.Hub
	if cfg.Logging.FeedAddr != "" {
		hub = feed.NewHub()
		go func() {
			if err := hub.ListenAndServe(cfg.Logging.FeedAddr); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: feed stopped: %v\n", err)
			}
		}()
		fmt.Printf("Feed: ws://%s/ws\n", cfg.Logging.FeedAddr)
	}

	rec := recorder{store: store, runID: cfg.Storage.RunID}
	startTime := time.Now()
	onGeneration := func(r ga.Report, pop *ga.Population) error {
		gen := r.Generation

		if err := logger.LogGeneration(r); err != nil {
			return fmt.Errorf("log generation %d: %w", gen, err)
		}
		best, _ := evo.Best()
		if err := rec.record(ctx, r, best); err != nil {
			return err
		}
		if r.Improved && hub != nil {
			hub.Publish(logging.FormatReport(r))
		}

		if gen%10 == 0 && cfg.Logging.TopNDebug > 0 {
			logger.LogTopK(pop.TopK(cfg.Logging.TopNDebug))
		}

		if cfg.Eval.BenchmarkEvery > 0 && gen%cfg.Eval.BenchmarkEvery == 0 {
			results, err := evo.Evaluator().RunBenchmark(pop.TopK(cfg.Eval.BenchmarkTopK), envOpts, cfg.Eval.BenchmarkSeeds)
			if err != nil {
				return fmt.Errorf("benchmark generation %d: %w", gen, err)
			}
			logger.LogBenchmark(gen, results)
		}

		if cfg.Logging.SaveChampionEvery > 0 && gen%cfg.Logging.SaveChampionEvery == 0 {
			championPath := filepath.Join(cfg.Logging.ArtifactsDir, fmt.Sprintf("champion_gen%d.json", gen))
			if err := logging.SaveChampion(championPath, pop.Best(), gen); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to save champion: %v\n", err)
			}
		}

		if cfg.Logging.ReplayEvery > 0 && gen%cfg.Logging.ReplayEvery == 0 {
			if err := saveReplay(evo, pop.Best(), envOpts, cfg.Seed+int64(gen), cfg.Logging.ArtifactsDir, gen); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to save replay: %v\n", err)
			}
		}

		if generations > 0 && gen >= generations {
			if err := logging.SaveChampion(filepath.Join(cfg.Logging.ArtifactsDir, "champion_final.json"), pop.Best(), gen); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to save final champion: %v\n", err)
			}
			return errGenerationLimit
		}
		return nil
	}

	err = evo.Run(ctx, onGeneration)
	elapsed := time.Since(startTime)
	fmt.Println("---")
	switch {
	case errors.Is(err, errGenerationLimit), errors.Is(err, context.Canceled):
		fmt.Printf("Training stopped after %d generations in %v\n", evo.Generation(), elapsed)
	case err != nil:
		return err
	}

	if best, ok := evo.Best(); ok {
		fmt.Printf("Best of last generation: id=%d score=%.2f steps=%d\n", best.ID, best.Score, best.Steps)
		fmt.Printf("  %s\n", best.Formula)
	}
	return nil
}

// saveReplay re-runs the member's brain on a fresh environment and records it
func saveReplay(evo *trainer.Evolutionary, m *env.Env, opts env.Options, seed int64, dir string, gen int) error {
	fresh, err := env.New(m.ID, m.Brain.Clone(), opts, seed)
	if err != nil {
		return err
	}
	replay, stats, err := evo.Evaluator().EvaluateWithReplay(fresh, seed, opts)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	fmt.Printf("  Replay gen %d: steps=%d outcome=%s\n", gen, stats.Steps, stats.Outcome)
	return replay.Save(filepath.Join(dir, fmt.Sprintf("replay_gen%d.json", gen)))
}

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cartpole/internal/config"
	"cartpole/internal/nn"
	"cartpole/internal/render"
	"cartpole/internal/supervised"
)

func main() {
	configPath := flag.String("config", "configs/supervised.yaml", "path to config file")
	out := flag.String("out", "", "write the trained network snapshot to this path")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := run(cfg, *out); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, out string) error {
	sc := cfg.Supervised
	rng := rand.New(rand.NewSource(cfg.Seed))
	enc := render.NewEncoder(sc.ImageWidth, sc.ImageHeight)

	net, err := supervised.NewNetwork(enc, sc.Hidden, sc.LearningRate, rng)
	if err != nil {
		return err
	}
	tr, err := supervised.NewTrainer(net, enc, supervised.Options{
		SweepMin:      sc.SweepMin,
		SweepMax:      sc.SweepMax,
		SweepStep:     sc.SweepStep,
		MaxIterations: sc.MaxIterations,
		MaxRounds:     sc.MaxRounds,
	}, rng)
	if err != nil {
		return err
	}

	fmt.Println("Pole Direction Trainer")
	fmt.Printf("Image: %dx%d, Layers: %v, LR: %g\n", sc.ImageWidth, sc.ImageHeight, net.Layers, sc.LearningRate)
	fmt.Printf("Sweep: %g..%g step %g degrees\n", sc.SweepMin, sc.SweepMax, sc.SweepStep)
	fmt.Println("---")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	res, err := tr.Train(ctx)
	fmt.Printf("Rounds: %d, Backprop calls: %d, Time: %v\n", res.Rounds, res.Iterations, time.Since(start))
	if err != nil {
		return err
	}

	for _, deg := range []float64{sc.SweepMin, -1, 0, 1, sc.SweepMax} {
		p, err := tr.Predict(deg)
		if err != nil {
			return err
		}
		fmt.Printf("  %+6.1f° -> %.3f\n", deg, p)
	}
	fmt.Println(net.Describe())

	if out != "" {
		return saveSnapshot(out, net)
	}
	return nil
}

func saveSnapshot(path string, net *nn.Network) error {
	data, err := json.MarshalIndent(net.Snapshot(), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

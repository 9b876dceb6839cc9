package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"cartpole/internal/config"
	"cartpole/internal/env"
	"cartpole/internal/logging"
	"cartpole/internal/nn"
	"cartpole/internal/storage"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "configs/cartpole.yaml", "path to config file")
	championPath := flag.String("champion", "artifacts/champion_final.json", "path to champion JSON")
	dbPath := flag.String("db", "", "load the champion of -run from this SQLite store instead")
	runID := flag.String("run", "default", "run id to load from -db")
	seed := flag.Int64("seed", 12345, "random seed for the episode")
	delay := flag.Int("delay", 20, "delay between frames in milliseconds")
	noDisplay := flag.Bool("no-display", false, "run without display (just print stats)")
	replayPath := flag.String("replay", "", "write the episode as a replay to this path")
	loadReplay := flag.String("load-replay", "", "play back a saved replay instead of a champion")
	from := flag.Int("from", 0, "with -load-replay, skip straight to this step")
	episodes := flag.Int("episodes", 1, "episodes to aggregate over, from consecutive seeds (extra ones run headless)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	opts, err := cfg.EnvOptions()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error in config: %v\n", err)
		os.Exit(1)
	}

	if *loadReplay != "" {
		if err := showReplay(*loadReplay, *from, *noDisplay, time.Duration(*delay)*time.Millisecond); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	brain, err := loadBrain(*championPath, *dbPath, *runID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading champion: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Config: %s, Seed: %d\n", *configPath, *seed)
	fmt.Printf("Champion: %s\n", brain.Describe())
	fmt.Println("Press Ctrl+C to exit")
	fmt.Println()

	game, err := env.New(0, brain, opts, *seed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating environment: %v\n", err)
		os.Exit(1)
	}
	features := env.NewFeatureExtractor(cfg.NN.Features)
	replay := env.NewReplay(*seed, opts)

	display := NewDisplay(60)
	frameDelay := time.Duration(*delay) * time.Millisecond

	for !game.Terminated() {
		action, err := brain.Act(features.Extract(game.State()))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if !*noDisplay {
			display.Render(game, action)
			time.Sleep(frameDelay)
		}

		replay.Record(action)
		if _, err := game.Step(action); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	if !*noDisplay {
		display.Render(game, -1)
	}

	stats := game.Stats(*seed)
	replay.SetFinalStats(stats)
	if *replayPath != "" {
		if err := replay.Save(*replayPath); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to save replay: %v\n", err)
		}
	}

	fmt.Println()
	fmt.Println("═══════════════════════════════════")
	fmt.Printf("  Episode over: %s\n", stats.Outcome)
	fmt.Printf("  Steps: %d, Won: %v\n", stats.Steps, game.Won())
	fmt.Printf("  Avg speed: %.3f, Avg deviation: %.4f rad\n", stats.AvgSpeed, stats.AvgDeviation)
	fmt.Println("═══════════════════════════════════")

	if *episodes > 1 {
		all := []env.EpisodeStats{stats}
		for i := int64(1); i < int64(*episodes); i++ {
			ep, err := runHeadless(brain, opts, cfg.NN.Features, *seed+i)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			all = append(all, ep)
		}
		agg := env.Aggregate(all)
		fmt.Printf("  %d episodes: steps mean %.1f\n", agg.NumEpisodes, agg.StepsMean)
		for _, o := range []env.Outcome{env.CartOut, env.PoleFell, env.Truncated} {
			fmt.Printf("    %-10s %d\n", o, agg.OutcomeCounts[o])
		}
	}
}

func runHeadless(brain *nn.Network, opts env.Options, mode string, seed int64) (env.EpisodeStats, error) {
	game, err := env.New(0, brain, opts, seed)
	if err != nil {
		return env.EpisodeStats{}, err
	}
	features := env.NewFeatureExtractor(mode)
	for !game.Terminated() {
		action, err := brain.Act(features.Extract(game.State()))
		if err != nil {
			return env.EpisodeStats{}, err
		}
		if _, err := game.Step(action); err != nil {
			return env.EpisodeStats{}, err
		}
	}
	return game.Stats(seed), nil
}

func showReplay(path string, from int, noDisplay bool, frameDelay time.Duration) error {
	replay, err := env.LoadReplay(path)
	if err != nil {
		return err
	}
	fmt.Printf("Replay: %s, Seed: %d, %d actions, integrator %s\n",
		path, replay.Seed, len(replay.Actions), replay.Config.Integrator)

	display := NewDisplay(60)
	game, err := playTrace(replay, from, func(e *env.Env, next env.Action) {
		if !noDisplay {
			display.Render(e, next)
			time.Sleep(frameDelay)
		}
	})
	if game != nil && !noDisplay {
		display.Render(game, -1)
	}
	if err != nil {
		return err
	}
	fmt.Printf("  Episode over: %s after %d steps\n", game.Outcome(), game.Steps())
	return nil
}

func loadBrain(championPath, dbPath, runID string) (*nn.Network, error) {
	if dbPath == "" {
		champion, brain, err := logging.LoadChampion(championPath)
		if err != nil {
			return nil, err
		}
		fmt.Printf("Loaded champion from gen %d (score=%.1f, steps=%d)\n",
			champion.Generation, champion.Score, champion.Steps)
		return brain, nil
	}

	ctx := context.Background()
	store := storage.NewSQLiteStore(dbPath)
	defer store.Close()
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	champion, ok, err := store.GetChampion(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no champion stored for run %q", runID)
	}
	history, err := store.GetHistory(ctx, runID)
	if err != nil {
		return nil, err
	}
	fmt.Printf("Loaded champion of run %s from gen %d of %d (score=%.1f, steps=%d)\n",
		runID, champion.Generation, len(history), champion.Score, champion.Steps)
	return nn.FromSnapshot(champion.Network)
}

// Display draws the cart and pole as text
type Display struct {
	width int
}

// NewDisplay creates a display with width columns of track
func NewDisplay(width int) *Display {
	return &Display{width: width}
}

// Render draws the current state to the terminal
func (d *Display) Render(game *env.Env, action nn.Action) {
	clearScreen()
	s := game.State()

	// cart column across the track
	cart := int(math.Round((s.Position + env.PositionThreshold) / (2 * env.PositionThreshold) * float64(d.width-1)))
	if cart < 0 {
		cart = 0
	}
	if cart > d.width-1 {
		cart = d.width - 1
	}

	// pole drawn over a few rows, leaning with the angle
	const poleRows = 6
	for row := poleRows; row >= 1; row-- {
		x := cart + int(math.Round(float64(row)*math.Tan(s.Angle)*2))
		line := []rune(strings.Repeat(" ", d.width))
		if x >= 0 && x < d.width {
			line[x] = '●'
			if row < poleRows {
				line[x] = poleRune(s.Angle)
			}
		}
		fmt.Println(" " + string(line))
	}

	track := []rune(strings.Repeat("─", d.width))
	track[cart] = '█'
	fmt.Println("┤" + string(track) + "├")

	actionDisplay := "---"
	switch action {
	case nn.ActionLeft:
		actionDisplay = "LEFT"
	case nn.ActionRight:
		actionDisplay = "RIGHT"
	}
	fmt.Printf("  Step: %3d | x: %+.3f | v: %+.3f | θ: %+.2f° | ω: %+.3f | Push: %s\n",
		game.Steps(), s.Position, s.Velocity, s.Angle*180/math.Pi, s.AngularVelocity, actionDisplay)

	if game.Terminated() {
		fmt.Printf("  DONE: %s\n", game.Outcome())
	}
}

func poleRune(angle float64) rune {
	switch {
	case angle > 0.05:
		return '/'
	case angle < -0.05:
		return '\\'
	}
	return '|'
}

func clearScreen() {
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.Command("cmd", "/c", "cls")
	} else {
		cmd = exec.Command("clear")
	}
	cmd.Stdout = os.Stdout
	cmd.Run()
}

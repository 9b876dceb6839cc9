package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cartpole/internal/env"
	"cartpole/internal/eval"
	"cartpole/internal/ga"
	"cartpole/internal/nn"
)

func TestLogGenerationWritesFilesAndRateLimitsConsole(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "runs", "run.csv")
	jsonPath := filepath.Join(dir, "runs", "run.jsonl")

	l, err := NewLogger(csvPath, jsonPath)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	if err := l.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	var console bytes.Buffer
	l.SetConsole(&console)

	reports := []ga.Report{
		{Generation: 1, BestScore: 40, BestSteps: 40, Improved: true, Formula: "y0 = x", Outcomes: map[string]int{"pole_fell": 3}},
		{Generation: 2, BestScore: 40, BestSteps: 40, Outcomes: map[string]int{"pole_fell": 3}},
		{Generation: 3, BestScore: 900, BestSteps: 501, Improved: true, Outcomes: map[string]int{"truncated": 1}},
	}
	for _, r := range reports {
		if err := l.LogGeneration(r); err != nil {
			t.Fatalf("log generation %d: %v", r.Generation, err)
		}
	}
	l.Close()

	lines := strings.Split(strings.TrimSpace(console.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 console lines, got %d: %q", len(lines), console.String())
	}
	if !strings.Contains(lines[0], "Gen      1") || !strings.Contains(lines[1], "501") {
		t.Fatalf("unexpected console output: %q", lines)
	}

	csvData, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if rows := strings.Count(string(csvData), "\n"); rows != 4 {
		t.Fatalf("expected header + 3 rows, got %d", rows)
	}

	jsonData, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatalf("read jsonl: %v", err)
	}
	jsonLines := strings.Split(strings.TrimSpace(string(jsonData)), "\n")
	var last ga.Report
	if err := json.Unmarshal([]byte(jsonLines[len(jsonLines)-1]), &last); err != nil {
		t.Fatalf("decode jsonl: %v", err)
	}
	if last.Generation != 3 || last.Outcomes["truncated"] != 1 {
		t.Fatalf("unexpected last jsonl record: %+v", last)
	}
}

func TestChampionRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifacts", "champion.json")

	brain, _ := nn.New([]int{4, 2, 1}, nn.Options{Activation: nn.HardTanh})
	brain.SetWeight(2, 0, 1, -0.75)
	m, err := env.New(3, brain, env.Options{}, 1)
	if err != nil {
		t.Fatalf("env: %v", err)
	}
	m.Score = 1234

	if err := SaveChampion(path, m, 17); err != nil {
		t.Fatalf("save: %v", err)
	}
	data, net, err := LoadChampion(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if data.Generation != 17 || data.Score != 1234 || data.Formula != brain.Describe() {
		t.Fatalf("unexpected champion data: %+v", data)
	}
	if net.Weight(2, 0, 1) != -0.75 {
		t.Fatalf("weight lost: %f", net.Weight(2, 0, 1))
	}
}

func TestEveryGenerationPrintsAll(t *testing.T) {
	l, err := NewLogger(filepath.Join(t.TempDir(), "a.csv"), filepath.Join(t.TempDir(), "a.jsonl"))
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	var console bytes.Buffer
	l.SetConsole(&console)
	l.SetEveryGeneration(true)

	for gen := 1; gen <= 3; gen++ {
		if err := l.LogGeneration(ga.Report{Generation: gen}); err != nil {
			t.Fatalf("log: %v", err)
		}
	}
	if n := strings.Count(console.String(), "\n"); n != 3 {
		t.Fatalf("expected 3 lines, got %d", n)
	}
}

func TestLogBenchmark(t *testing.T) {
	l, err := NewLogger(filepath.Join(t.TempDir(), "b.csv"), filepath.Join(t.TempDir(), "b.jsonl"))
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	var console bytes.Buffer
	l.SetConsole(&console)

	l.LogBenchmark(100, nil)
	if console.Len() != 0 {
		t.Fatal("empty benchmark should print nothing")
	}
	l.LogBenchmark(100, []eval.BenchmarkResult{
		{ID: 4, Stats: env.AggregatedStats{StepsMean: 501, Wins: 2, NumEpisodes: 2}},
		{ID: 9, Stats: env.AggregatedStats{StepsMean: 101, NumEpisodes: 2}},
	})
	out := console.String()
	if !strings.Contains(out, "Gen 100: Avg Steps=301.0, Wins=2/4") || !strings.Contains(out, "id=9") {
		t.Fatalf("unexpected benchmark output: %q", out)
	}
}

package logging

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"cartpole/internal/env"
	"cartpole/internal/eval"
	"cartpole/internal/ga"
	"cartpole/internal/nn"
)

// Logger handles all training output and artifact saving
type Logger struct {
	csvPath     string
	jsonPath    string
	csvFile     *os.File
	csvWriter   *csv.Writer
	jsonFile    *os.File
	console     io.Writer
	everyGen    bool
	initialized bool
}

// NewLogger creates a new logger
func NewLogger(csvPath, jsonPath string) (*Logger, error) {
	l := &Logger{
		csvPath:  csvPath,
		jsonPath: jsonPath,
		console:  os.Stdout,
	}

	// Ensure directories exist
	if err := os.MkdirAll(filepath.Dir(csvPath), 0755); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(jsonPath), 0755); err != nil {
		return nil, err
	}

	return l, nil
}

// SetConsole redirects the console lines
func (l *Logger) SetConsole(w io.Writer) {
	l.console = w
}

// SetEveryGeneration prints every generation, not only the improved ones
func (l *Logger) SetEveryGeneration(on bool) {
	l.everyGen = on
}

// Init initializes the log files
func (l *Logger) Init() error {
	var err error

	// Open CSV file
	l.csvFile, err = os.Create(l.csvPath)
	if err != nil {
		return err
	}
	l.csvWriter = csv.NewWriter(l.csvFile)

	// Write CSV header
	header := []string{
		"generation", "best_id", "best_score", "best_steps", "mean_score", "std_score",
		"mean_steps", "wins", "cart_out", "pole_fell", "truncated", "improved",
	}
	if err := l.csvWriter.Write(header); err != nil {
		return err
	}

	// Open JSON file
	l.jsonFile, err = os.OpenFile(l.jsonPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	l.initialized = true
	return nil
}

// Close closes all log files
func (l *Logger) Close() {
	if l.csvWriter != nil {
		l.csvWriter.Flush()
	}
	if l.csvFile != nil {
		l.csvFile.Close()
	}
	if l.jsonFile != nil {
		l.jsonFile.Close()
	}
}

// FormatReport renders the console line for a generation
func FormatReport(r ga.Report) string {
	return fmt.Sprintf("Gen %6d | Best: %14.2f | Steps: %3d | Mean: %12.2f | Wins: %d | %s",
		r.Generation, r.BestScore, r.BestSteps, r.MeanScore, r.Wins, r.Formula)
}

// LogGeneration writes the generation to the CSV and JSONL files and, when
// the best score changed, prints it to the console.
func (l *Logger) LogGeneration(r ga.Report) error {
	if r.Improved || l.everyGen {
		fmt.Fprintln(l.console, FormatReport(r))
	}
	if !l.initialized {
		return nil
	}

	row := []string{
		strconv.Itoa(r.Generation),
		strconv.Itoa(r.BestID),
		fmt.Sprintf("%.2f", r.BestScore),
		strconv.Itoa(r.BestSteps),
		fmt.Sprintf("%.2f", r.MeanScore),
		fmt.Sprintf("%.2f", r.StdScore),
		fmt.Sprintf("%.2f", r.MeanSteps),
		strconv.Itoa(r.Wins),
		strconv.Itoa(r.Outcomes[env.CartOut.String()]),
		strconv.Itoa(r.Outcomes[env.PoleFell.String()]),
		strconv.Itoa(r.Outcomes[env.Truncated.String()]),
		strconv.FormatBool(r.Improved),
	}
	if err := l.csvWriter.Write(row); err != nil {
		return err
	}
	l.csvWriter.Flush()
	if err := l.csvWriter.Error(); err != nil {
		return err
	}

	jsonLine, err := json.Marshal(r)
	if err != nil {
		return err
	}
	_, err = l.jsonFile.WriteString(string(jsonLine) + "\n")
	return err
}

// LogBenchmark prints the benchmark averages and each member's line
func (l *Logger) LogBenchmark(gen int, results []eval.BenchmarkResult) {
	if len(results) == 0 {
		return
	}

	var avgSteps float64
	wins, episodes := 0, 0
	for _, r := range results {
		avgSteps += r.Stats.StepsMean
		wins += r.Stats.Wins
		episodes += r.Stats.NumEpisodes
	}
	avgSteps /= float64(len(results))

	fmt.Fprintf(l.console, "  [Benchmark] Gen %d: Avg Steps=%.1f, Wins=%d/%d\n", gen, avgSteps, wins, episodes)
	for _, r := range results {
		fmt.Fprintf(l.console, "    id=%d steps=%.1f score=%.1f±%.1f wins=%d/%d\n",
			r.ID, r.Stats.StepsMean, r.Stats.ScoreMean, r.Stats.ScoreStd, r.Stats.Wins, r.Stats.NumEpisodes)
	}
}

// LogTopK logs debug info for the given members, best first
func (l *Logger) LogTopK(members []*env.Env) {
	fmt.Fprintf(l.console, "  Top %d members:\n", len(members))
	for i, m := range members {
		fmt.Fprintf(l.console, "    #%d: id=%d score=%.1f steps=%d wins=%d losses=%d age=%d outcome=%s\n",
			i+1, m.ID, m.Score, m.Steps(), m.Wins, m.Losses, m.Age, m.Outcome())
	}
}

// ChampionData is the saved champion format
type ChampionData struct {
	Generation int         `json:"generation"`
	Score      float64     `json:"score"`
	Steps      int         `json:"steps"`
	Formula    string      `json:"formula"`
	Network    nn.Snapshot `json:"network"`
}

// SaveChampion saves a member's brain to a file
func SaveChampion(path string, m *env.Env, gen int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data := ChampionData{
		Generation: gen,
		Score:      m.Score,
		Steps:      m.Steps(),
		Formula:    m.Brain.Describe(),
		Network:    m.Brain.Snapshot(),
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, jsonData, 0644)
}

// LoadChampion loads a champion file and rebuilds its network
func LoadChampion(path string) (*ChampionData, *nn.Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	var saved ChampionData
	if err := json.Unmarshal(data, &saved); err != nil {
		return nil, nil, err
	}
	net, err := nn.FromSnapshot(saved.Network)
	if err != nil {
		return nil, nil, fmt.Errorf("champion %s: %w", path, err)
	}
	return &saved, net, nil
}

package dashboard

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/torosent/forkfire/internal/metrics"
)

// RunConfig holds run parameters for display.
type RunConfig struct {
	Commands    []string      // Command strings being run
	Parallelism int           // Repetitions per command
	Planned     int           // Total planned invocations
	Rate        int           // Launches per second (0 = unlimited)
	Timeout     time.Duration // Per-invocation timeout (0 = none)
	FailFast    bool          // Abort on first spawn failure
	ConfigFile  string        // Path to config file if used
}

// Dashboard renders a live terminal UI for run metrics.
type Dashboard struct {
	collector    *metrics.Collector
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownFunc func()
	wg           sync.WaitGroup
	mu           sync.Mutex

	// Widgets
	grid           *ui.Grid
	latencySparkle *widgets.SparklineGroup
	latencyPara    *widgets.Paragraph
	runGauge       *widgets.Gauge
	failureList    *widgets.List
	commandList    *widgets.List
	summaryPara    *widgets.Paragraph
	metricsPara    *widgets.Paragraph
	exitPara       *widgets.Paragraph
	latencyHistory []float64
	startTime      time.Time
	runDuration    time.Duration
	runConfig      RunConfig
}

// New creates a new Dashboard.
func New(collector *metrics.Collector, cfg RunConfig, shutdownFunc func()) (*Dashboard, error) {
	if err := ui.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize termui: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &Dashboard{
		collector:      collector,
		ctx:            ctx,
		cancel:         cancel,
		shutdownFunc:   shutdownFunc,
		latencyHistory: make([]float64, 0, 100),
		startTime:      time.Now(),
		runConfig:      cfg,
	}

	d.initWidgets()
	d.setupGrid()

	return d, nil
}

// initWidgets initializes all dashboard widgets.
func (d *Dashboard) initWidgets() {
	// Latency Sparkline
	sparkline := widgets.NewSparkline()
	sparkline.Title = "Latency (ms)"
	sparkline.LineColor = ui.ColorGreen
	sparkline.Data = []float64{0}

	d.latencySparkle = widgets.NewSparklineGroup(sparkline)
	d.latencySparkle.Title = "Real-time Latency"
	d.latencySparkle.BorderStyle.Fg = ui.ColorCyan

	// Latency Metrics Paragraph
	d.latencyPara = widgets.NewParagraph()
	d.latencyPara.Title = "Latency Stats"
	d.latencyPara.Text = "Min: 0ms\nMean: 0ms\nP50: 0ms\nP90: 0ms\nP99: 0ms"
	d.latencyPara.BorderStyle.Fg = ui.ColorCyan

	// Completed Runs Gauge
	d.runGauge = widgets.NewGauge()
	d.runGauge.Title = "Completed Runs"
	d.runGauge.Percent = 0
	d.runGauge.BarColor = ui.ColorBlue
	d.runGauge.BorderStyle.Fg = ui.ColorCyan
	d.runGauge.LabelStyle = ui.NewStyle(ui.ColorWhite)

	// Failure List
	d.failureList = widgets.NewList()
	d.failureList.Title = "Failures"
	d.failureList.Rows = []string{"No failures"}
	d.failureList.TextStyle = ui.NewStyle(ui.ColorYellow)
	d.failureList.BorderStyle.Fg = ui.ColorCyan

	// Command List
	d.commandList = widgets.NewList()
	d.commandList.Title = "Commands"
	d.commandList.Rows = []string{"Awaiting data"}
	d.commandList.TextStyle = ui.NewStyle(ui.ColorCyan)
	d.commandList.BorderStyle.Fg = ui.ColorCyan

	// Summary Paragraph
	d.summaryPara = widgets.NewParagraph()
	d.summaryPara.Title = "Run Summary"
	d.summaryPara.Text = "Initializing..."
	d.summaryPara.BorderStyle.Fg = ui.ColorCyan

	// Metrics Paragraph (plain text summary)
	d.metricsPara = widgets.NewParagraph()
	d.metricsPara.Title = "Metrics"
	d.metricsPara.Text = "Waiting for data..."
	d.metricsPara.BorderStyle.Fg = ui.ColorCyan

	// Exit Code Paragraph
	d.exitPara = widgets.NewParagraph()
	d.exitPara.Title = "Exit Codes"
	d.exitPara.Text = "No completed runs"
	d.exitPara.TextStyle = ui.NewStyle(ui.ColorGreen)
	d.exitPara.BorderStyle.Fg = ui.ColorCyan
}

// setupGrid configures the layout grid.
func (d *Dashboard) setupGrid() {
	termWidth, termHeight := ui.TerminalDimensions()

	d.grid = ui.NewGrid()
	d.grid.SetRect(0, 0, termWidth, termHeight)

	d.grid.Set(
		ui.NewRow(0.14,
			ui.NewCol(1.0, d.summaryPara),
		),
		ui.NewRow(0.18,
			ui.NewCol(0.5, d.runGauge),
			ui.NewCol(0.5, d.metricsPara),
		),
		ui.NewRow(0.26,
			ui.NewCol(0.65, d.latencySparkle),
			ui.NewCol(0.35, d.latencyPara),
		),
		ui.NewRow(0.14,
			ui.NewCol(1.0, d.exitPara),
		),
		ui.NewRow(0.28,
			ui.NewCol(0.5, d.commandList),
			ui.NewCol(0.5, d.failureList),
		),
	)
}

// Start begins the dashboard update loop.
func (d *Dashboard) Start() {
	d.wg.Add(1)
	go d.run()
}

// Stop stops the dashboard and cleans up.
func (d *Dashboard) Stop() {
	d.cancel()
	d.wg.Wait()
	d.runDuration = time.Since(d.startTime)
	ui.Close()
	// Give terminal time to restore
	time.Sleep(100 * time.Millisecond)
}

// GetFinalStats returns the final statistics after the dashboard has stopped.
func (d *Dashboard) GetFinalStats() metrics.Stats {
	return d.collector.Stats(d.runDuration)
}

// run is the main dashboard update loop.
func (d *Dashboard) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	uiEvents := ui.PollEvents()

	d.render()

	for {
		select {
		case <-d.ctx.Done():
			// Drain any remaining events
			for len(uiEvents) > 0 {
				<-uiEvents
			}
			return
		case e := <-uiEvents:
			// Check if context is done to avoid blocking
			select {
			case <-d.ctx.Done():
				return
			default:
			}

			switch e.ID {
			case "q", "<C-c>":
				if d.shutdownFunc != nil {
					d.shutdownFunc()
				}
				// Do not return here; wait for Stop() to cancel context
			case "<Resize>":
				payload := e.Payload.(ui.Resize)
				d.grid.SetRect(0, 0, payload.Width, payload.Height)
				ui.Clear()
				d.render()
			}
		case <-ticker.C:
			d.update()
			d.render()
		}
	}
}

// update refreshes all widget data from the collector.
func (d *Dashboard) update() {
	d.mu.Lock()
	defer d.mu.Unlock()

	elapsed := time.Since(d.startTime)
	stats := d.collector.Stats(elapsed)

	// Update latency history for sparkline
	if stats.MeanLatency > 0 {
		latencyMs := stats.MeanLatencyMs
		d.latencyHistory = append(d.latencyHistory, latencyMs)
		if len(d.latencyHistory) > 100 {
			d.latencyHistory = d.latencyHistory[1:]
		}
		d.latencySparkle.Sparklines[0].Data = d.latencyHistory
		// Update sparkline title with current latency values
		d.latencySparkle.Title = fmt.Sprintf(
			"Real-time Latency | Current: %.2fms | Min: %.2fms | Max: %.2fms",
			latencyMs,
			stats.MinLatencyMs,
			stats.MaxLatencyMs,
		)
	}

	completed := int(stats.Total)
	percent := 0
	if d.runConfig.Planned > 0 {
		percent = (completed * 100) / d.runConfig.Planned
		if percent > 100 {
			percent = 100
		}
	}
	d.runGauge.Percent = percent
	d.runGauge.Label = fmt.Sprintf("%d/%d runs", completed, d.runConfig.Planned)

	successRate := 0.0
	if stats.Total > 0 {
		successRate = (float64(stats.Successes) / float64(stats.Total)) * 100
	}

	// Build run parameters line
	params := d.formatRunParams()

	d.summaryPara.Text = fmt.Sprintf(
		"Commands: %d\n%s\nElapsed: %s | Completed: %d/%d | Success Rate: %.1f%%",
		len(d.runConfig.Commands),
		params,
		elapsed.Round(time.Second),
		completed,
		d.runConfig.Planned,
		successRate,
	)

	d.metricsPara.Text = fmt.Sprintf(
		"Total Runs:        %d\nSuccessful:        %d\nFailed:            %d\nRuns/sec:          %.2f\nSuccess Rate:      %.1f%%\nMin Latency:       %.2fms\nMean Latency:      %.2fms\nP50/P90/P99:       %.2f / %.2f / %.2f ms",
		stats.Total,
		stats.Successes,
		stats.Failures,
		stats.RunsPerSec,
		successRate,
		stats.MinLatencyMs,
		stats.MeanLatencyMs,
		stats.P50LatencyMs,
		stats.P90LatencyMs,
		stats.P99LatencyMs,
	)

	d.latencyPara.Text = fmt.Sprintf(
		"Min:  %.2fms\nMean: %.2fms\nP50:  %.2fms\nP90:  %.2fms\nP99:  %.2fms",
		stats.MinLatencyMs,
		stats.MeanLatencyMs,
		stats.P50LatencyMs,
		stats.P90LatencyMs,
		stats.P99LatencyMs,
	)

	d.failureList.Rows = formatFailureRows(stats.Errors)
	d.exitPara.Text = formatExitSummary(stats.ExitCounts)

	d.updateCommandList(stats)
}

// render draws all widgets to the screen.
func (d *Dashboard) render() {
	d.mu.Lock()
	defer d.mu.Unlock()

	ui.Render(d.grid)
}

func (d *Dashboard) updateCommandList(stats metrics.Stats) {
	if len(stats.Commands) == 0 {
		d.commandList.Rows = []string{"[No command data](fg:green)"}
		return
	}
	type commandRow struct {
		name string
		stat metrics.RunStats
	}
	rows := make([]commandRow, 0, len(stats.Commands))
	for name, stat := range stats.Commands {
		rows = append(rows, commandRow{name: name, stat: stat})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].stat.Total == rows[j].stat.Total {
			return rows[i].name < rows[j].name
		}
		return rows[i].stat.Total > rows[j].stat.Total
	})
	formatted := make([]string, 0, len(rows))
	for _, entry := range rows {
		share := 0.0
		if stats.Total > 0 {
			share = (float64(entry.stat.Total) / float64(stats.Total)) * 100
		}
		exitSummary := summarizeExitCounts(entry.stat.ExitCounts, 2)
		if exitSummary == "" {
			exitSummary = "Exits n/a"
		}
		formatted = append(formatted, fmt.Sprintf("[%s](fg:cyan) | %5.1f%% | RPS %5.1f | P99 %5.1fms | Err %d | %s",
			entry.name,
			share,
			entry.stat.RunsPerSec,
			entry.stat.P99LatencyMs,
			entry.stat.Failures,
			exitSummary,
		))
	}
	d.commandList.Rows = formatted
}

func formatFailureRows(errors map[string]int) []string {
	if len(errors) == 0 {
		return []string{"[No failures](fg:green)"}
	}
	types := make([]string, 0, len(errors))
	for errType := range errors {
		types = append(types, errType)
	}
	sort.Slice(types, func(i, j int) bool {
		if errors[types[i]] == errors[types[j]] {
			return types[i] < types[j]
		}
		return errors[types[i]] > errors[types[j]]
	})
	maxRows := len(types)
	if maxRows > 10 {
		maxRows = 10
	}
	formatted := make([]string, 0, maxRows)
	for i := 0; i < maxRows; i++ {
		errType := types[i]
		formatted = append(formatted, fmt.Sprintf("[%s](fg:red) %d", metrics.FriendlyErrorName(errType), errors[errType]))
	}
	return formatted
}

func formatExitSummary(counts map[string]int) string {
	rows := metrics.FlattenExitCounts(counts)
	if len(rows) == 0 {
		return "[No completed runs](fg:green)"
	}
	parts := make([]string, 0, len(rows))
	for _, row := range rows {
		parts = append(parts, fmt.Sprintf("%s: %d", row.Label, row.Count))
	}
	return strings.Join(parts, " | ")
}

func summarizeExitCounts(counts map[string]int, limit int) string {
	rows := metrics.FlattenExitCounts(counts)
	if len(rows) == 0 {
		return ""
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	parts := make([]string, 0, len(rows))
	for _, row := range rows {
		parts = append(parts, fmt.Sprintf("%s x%d", row.Label, row.Count))
	}
	return strings.Join(parts, ", ")
}

// formatRunParams formats the run configuration parameters for display.
func (d *Dashboard) formatRunParams() string {
	var parts []string

	// Parallelism
	if d.runConfig.Parallelism > 0 {
		parts = append(parts, fmt.Sprintf("Parallelism: %d", d.runConfig.Parallelism))
	}

	// Rate
	if d.runConfig.Rate > 0 {
		parts = append(parts, fmt.Sprintf("Rate: %d/s", d.runConfig.Rate))
	} else {
		parts = append(parts, "Rate: unlimited")
	}

	// Timeout
	if d.runConfig.Timeout > 0 {
		parts = append(parts, fmt.Sprintf("Timeout: %s", d.runConfig.Timeout))
	}

	// Fail-fast (only show if set)
	if d.runConfig.FailFast {
		parts = append(parts, "Fail-fast")
	}

	// Config file (only show if used)
	if d.runConfig.ConfigFile != "" {
		parts = append(parts, fmt.Sprintf("Config: %s", d.runConfig.ConfigFile))
	}

	if len(parts) == 0 {
		return ""
	}

	return strings.Join(parts, " | ")
}

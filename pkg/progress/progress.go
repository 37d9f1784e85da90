// Package progress reports batch progress to a human or a machine.
//
// The orchestrator emits one event per processed record; emitters are
// fire-and-forget and must never fail the batch.
package progress

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/pterm/pterm"
)

// Emitter receives per-record progress. processed is 1-based and reaches
// total exactly once on the final record.
type Emitter interface {
	Emit(processed, total int)
}

// Reporter extends Emitter with run-lifecycle events for front-ends that
// render more than a counter.
type Reporter interface {
	Emitter

	// EmitStage announces a named phase of the run.
	EmitStage(stage, message string)
	// EmitComplete announces the final summary.
	EmitComplete(summary map[string]any)
	// EmitError announces a fatal failure of a phase.
	EmitError(stage string, err error)
}

// CLIEmitter prints pretty terminal output using pterm.
type CLIEmitter struct {
	verbosity int
}

// NewCLIEmitter creates a terminal reporter. verbosity >= 1 prints
// per-record lines; below that only stages and the summary appear.
func NewCLIEmitter(verbosity int) *CLIEmitter {
	return &CLIEmitter{verbosity: verbosity}
}

func (e *CLIEmitter) Emit(processed, total int) {
	if e.verbosity < 1 {
		return
	}
	pterm.Printf("✅ Processed %s records\n", pterm.Green(fmt.Sprintf("%d/%d", processed, total)))
}

func (e *CLIEmitter) EmitStage(stage, message string) {
	pterm.Printf("🔄 %s: %s\n", pterm.LightCyan(stage), message)
}

func (e *CLIEmitter) EmitComplete(summary map[string]any) {
	pterm.Success.Println("Enrichment complete!")
	for key, value := range summary {
		pterm.Printf("  %s: %v\n", key, value)
	}
}

func (e *CLIEmitter) EmitError(stage string, err error) {
	pterm.Error.Printf("Error in %s: %v\n", stage, err)
}

// Event is one structured JSON progress event.
type Event struct {
	Type      string         `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data"`
}

// JSONEmitter writes one Event per line for machine consumption.
type JSONEmitter struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

// NewJSONEmitter creates a JSON reporter writing to w (stdout when nil).
func NewJSONEmitter(w io.Writer) *JSONEmitter {
	if w == nil {
		w = os.Stdout
	}
	return &JSONEmitter{encoder: json.NewEncoder(w)}
}

func (e *JSONEmitter) emit(eventType string, data map[string]any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	_ = e.encoder.Encode(Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
}

func (e *JSONEmitter) Emit(processed, total int) {
	e.emit("progress", map[string]any{
		"processed": processed,
		"total":     total,
	})
}

func (e *JSONEmitter) EmitStage(stage, message string) {
	e.emit("stage", map[string]any{
		"stage":   stage,
		"message": message,
	})
}

func (e *JSONEmitter) EmitComplete(summary map[string]any) {
	e.emit("complete", summary)
}

func (e *JSONEmitter) EmitError(stage string, err error) {
	e.emit("error", map[string]any{
		"stage": stage,
		"error": err.Error(),
	})
}

// NopEmitter discards all events.
type NopEmitter struct{}

func (NopEmitter) Emit(processed, total int)           {}
func (NopEmitter) EmitStage(stage, message string)     {}
func (NopEmitter) EmitComplete(summary map[string]any) {}
func (NopEmitter) EmitError(stage string, err error)   {}

var (
	_ Reporter = (*CLIEmitter)(nil)
	_ Reporter = (*JSONEmitter)(nil)
	_ Reporter = NopEmitter{}
)

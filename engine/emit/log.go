package emit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// LogEmitter implements Emitter by writing events to a writer, either as
// human-readable text (one line per event) or as JSONL.
type LogEmitter struct {
	writer   io.Writer
	jsonMode bool
}

// NewLogEmitter returns a LogEmitter writing to writer. A nil writer
// defaults to os.Stdout. jsonMode selects JSONL output over text.
func NewLogEmitter(writer io.Writer, jsonMode bool) *LogEmitter {
	if writer == nil {
		writer = os.Stdout
	}
	return &LogEmitter{writer: writer, jsonMode: jsonMode}
}

// Emit implements Emitter.
func (l *LogEmitter) Emit(event Event) {
	if l.jsonMode {
		l.emitJSON(event)
	} else {
		l.emitText(event)
	}
}

type logLine struct {
	ThreadID string                 `json:"thread_id"`
	Step     int                    `json:"step"`
	NodeID   string                 `json:"node_id"`
	Msg      string                 `json:"msg"`
	Meta     map[string]interface{} `json:"meta"`
}

func (l *LogEmitter) emitJSON(event Event) {
	data, err := json.Marshal(logLine{
		ThreadID: event.ThreadID,
		Step:     event.Step,
		NodeID:   event.NodeID,
		Msg:      event.Msg,
		Meta:     event.Meta,
	})
	if err != nil {
		_, _ = fmt.Fprintf(l.writer, "{\"error\":\"failed to marshal event: %v\"}\n", err)
		return
	}
	_, _ = fmt.Fprintf(l.writer, "%s\n", data)
}

func (l *LogEmitter) emitText(event Event) {
	_, _ = fmt.Fprintf(l.writer, "[%s] thread=%s step=%d node=%s",
		event.Msg, event.ThreadID, event.Step, event.NodeID)

	if len(event.Meta) > 0 {
		if metaJSON, err := json.Marshal(event.Meta); err == nil {
			_, _ = fmt.Fprintf(l.writer, " meta=%s", metaJSON)
		} else {
			_, _ = fmt.Fprintf(l.writer, " meta=%v", event.Meta)
		}
	}
	_, _ = fmt.Fprint(l.writer, "\n")
}

// EmitBatch writes each event in order by calling Emit once per event.
func (l *LogEmitter) EmitBatch(_ context.Context, events []Event) error {
	for _, event := range events {
		l.Emit(event)
	}
	return nil
}

// Flush is a no-op: LogEmitter writes synchronously and keeps no buffer
// of its own. It exists so LogEmitter satisfies Emitter alongside
// emitters that do need to drain a buffer, such as OTelEmitter.
func (l *LogEmitter) Flush(_ context.Context) error {
	return nil
}

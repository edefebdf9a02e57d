package verifier

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
)

// runLog mirrors every pass event to the console and, when a path was
// configured, appends it as NDJSON. A nil runLog logs to the console only.
type runLog struct {
	f *os.File
	w *bufio.Writer
}

type logLine struct {
	TS    time.Time      `json:"ts"`
	Level string         `json:"level"`
	Scope string         `json:"scope"`
	Msg   string         `json:"msg"`
	Meta  map[string]any `json:"meta,omitempty"`
}

func newRunLog(path string) (*runLog, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create run log: %w", err)
	}
	return &runLog{f: f, w: bufio.NewWriter(f)}, nil
}

func (l *runLog) write(level, scope, msg string, meta map[string]any) {
	text := msg
	if errv, ok := meta["error"]; ok {
		text = fmt.Sprintf("%s: %v", msg, errv)
	}
	switch level {
	case "warn":
		log.Warn(text)
	case "debug":
		log.Debug(text)
	default:
		log.Info(text)
	}

	if l == nil || l.w == nil {
		return
	}
	line := logLine{TS: time.Now(), Level: level, Scope: scope, Msg: msg, Meta: meta}
	b, _ := json.Marshal(line)
	l.w.Write(b)
	l.w.WriteByte('\n')
	l.w.Flush()
}

func (l *runLog) info(scope, msg string, meta map[string]any) {
	l.write("info", scope, msg, meta)
}

func (l *runLog) warn(scope, msg string, meta map[string]any) {
	l.write("warn", scope, msg, meta)
}

func (l *runLog) debug(scope, msg string, meta map[string]any) {
	l.write("debug", scope, msg, meta)
}

func (l *runLog) close() {
	if l == nil || l.f == nil {
		return
	}
	l.w.Flush()
	l.f.Close()
	l.f = nil
	l.w = nil
}

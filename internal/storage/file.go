package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const maxEventLine = 10 * 1024 * 1024

// FileRecorder keeps the interaction journal as JSON lines. One append
// handle stays open for the recorder's lifetime; reads open the file anew.
type FileRecorder struct {
	path string

	mu  sync.Mutex
	out *os.File
	enc *json.Encoder
}

func NewFileRecorder(path string) (*FileRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to ensure journal dir: %w", err)
	}
	out, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	return &FileRecorder{path: path, out: out, enc: json.NewEncoder(out)}, nil
}

func (r *FileRecorder) AppendInteraction(event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.out == nil {
		return fmt.Errorf("journal %s is closed", r.path)
	}
	if err := r.enc.Encode(event); err != nil {
		return fmt.Errorf("append interaction: %w", err)
	}
	return nil
}

// LoadInteractionsSince skips lines that fail to decode.
func (r *FileRecorder) LoadInteractionsSince(since time.Time) ([]Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	in, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	defer in.Close()

	s := bufio.NewScanner(in)
	s.Buffer(make([]byte, 0, 64*1024), maxEventLine)
	var events []Event
	for s.Scan() {
		var ev Event
		if json.Unmarshal(s.Bytes(), &ev) != nil {
			continue
		}
		if ev.Timestamp.Before(since) {
			continue
		}
		events = append(events, ev)
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	return events, nil
}

// Close releases the append handle. Later appends fail; loads still work.
func (r *FileRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.out == nil {
		return nil
	}
	err := r.out.Close()
	r.out, r.enc = nil, nil
	return err
}

package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rapid100/triage/internal/types"
)

// CallLog is the append-only audit log of finalized call records: one
// self-contained JSON object per line.
type CallLog struct {
	mu   sync.Mutex
	path string
}

func NewCallLog(path string) (*CallLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %v", err)
	}
	return &CallLog{path: path}, nil
}

// Append writes one finalized record. Durability is best-effort: a crash
// between finalize and append loses at most that one record.
func (l *CallLog) Append(snap types.CallSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal call record: %v", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open call log: %v", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to append call record: %v", err)
	}
	return nil
}

// List returns up to limit records, most recent first. Unparseable lines
// are skipped rather than failing the whole read.
func (l *CallLog) List(limit int) ([]types.CallSnapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open call log: %v", err)
	}
	defer f.Close()

	var all []types.CallSnapshot
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var snap types.CallSnapshot
		if err := json.Unmarshal(line, &snap); err != nil {
			continue
		}
		all = append(all, snap)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read call log: %v", err)
	}

	// Reverse into most-recent-first order.
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

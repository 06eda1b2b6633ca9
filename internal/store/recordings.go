package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rapid100/triage/internal/audio"
)

// RecordingStore persists each finalized call's audio as a WAV file so
// dispatchers can replay calls.
type RecordingStore struct {
	dir string
}

func NewRecordingStore(dir string) (*RecordingStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create recordings directory: %v", err)
	}
	return &RecordingStore{dir: dir}, nil
}

// Dir returns the recordings directory, for cleanup scheduling.
func (rs *RecordingStore) Dir() string {
	return rs.dir
}

// Save writes the call's raw PCM as a WAV file and returns its path.
func (rs *RecordingStore) Save(callID string, pcm []byte) (string, error) {
	if len(pcm) == 0 {
		return "", fmt.Errorf("no audio to save for call %s", callID)
	}

	filename := fmt.Sprintf("call_%s_%s.wav", sanitizeFilename(callID),
		time.Now().UTC().Format("20060102_150405"))
	path := filepath.Join(rs.dir, filename)

	if err := os.WriteFile(path, audio.WrapWAV(pcm), 0644); err != nil {
		return "", fmt.Errorf("failed to save recording: %v", err)
	}
	return path, nil
}

// Recording describes one saved call recording.
type Recording struct {
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
	URL       string    `json:"url"`
}

// List returns all saved recordings, most recent first.
func (rs *RecordingStore) List() ([]Recording, error) {
	entries, err := os.ReadDir(rs.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read recordings directory: %v", err)
	}

	var recordings []Recording
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".wav") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		recordings = append(recordings, Recording{
			Filename:  entry.Name(),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
			URL:       "/recordings/" + entry.Name(),
		})
	}
	sort.Slice(recordings, func(i, j int) bool {
		return recordings[i].CreatedAt.After(recordings[j].CreatedAt)
	})
	return recordings, nil
}

// Path resolves a recording filename inside the store, rejecting path
// traversal.
func (rs *RecordingStore) Path(filename string) (string, error) {
	if filepath.Base(filename) != filename {
		return "", fmt.Errorf("invalid recording name")
	}
	path := filepath.Join(rs.dir, filename)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("recording not found")
	}
	return path, nil
}

// sanitizeFilename strips path separators and bounds length.
func sanitizeFilename(name string) string {
	result := filepath.Base(name)
	for _, c := range []string{":", "*", "?", "\"", "<", ">", "|"} {
		result = strings.ReplaceAll(result, c, "_")
	}
	if len(result) > 100 {
		result = result[:100]
	}
	return result
}

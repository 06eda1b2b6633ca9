package cleanup

import (
	"log"
	"os"
	"path/filepath"
	"time"
)

// Scheduler prunes aging call recordings so the recordings directory does
// not grow without bound.
type Scheduler struct {
	recordingsDir   string
	intervalMinutes int
	maxAgeHours     int
	stopChan        chan struct{}
}

// NewScheduler creates a recording cleanup scheduler.
func NewScheduler(recordingsDir string, intervalMinutes, maxAgeHours int) *Scheduler {
	return &Scheduler{
		recordingsDir:   recordingsDir,
		intervalMinutes: intervalMinutes,
		maxAgeHours:     maxAgeHours,
		stopChan:        make(chan struct{}),
	}
}

// Start begins periodic cleanup, running one pass immediately.
func (s *Scheduler) Start() {
	log.Println("Running initial recording cleanup...")
	s.cleanOldRecordings()

	ticker := time.NewTicker(time.Duration(s.intervalMinutes) * time.Minute)

	go func() {
		for {
			select {
			case <-ticker.C:
				s.cleanOldRecordings()
			case <-s.stopChan:
				ticker.Stop()
				return
			}
		}
	}()

	log.Printf("Cleanup scheduler started (interval: %dm, max age: %dh)",
		s.intervalMinutes, s.maxAgeHours)
}

// Stop stops the cleanup scheduler.
func (s *Scheduler) Stop() {
	close(s.stopChan)
	log.Println("Cleanup scheduler stopped")
}

// cleanOldRecordings removes recordings older than maxAgeHours.
func (s *Scheduler) cleanOldRecordings() {
	now := time.Now()
	maxAge := time.Duration(s.maxAgeHours) * time.Hour

	var deletedCount int
	var deletedSize int64

	err := filepath.Walk(s.recordingsDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip files we can't access
		}
		if info.IsDir() {
			return nil
		}

		age := now.Sub(info.ModTime())
		if age > maxAge {
			size := info.Size()
			if err := os.Remove(path); err != nil {
				log.Printf("Failed to delete old recording %s: %v", path, err)
			} else {
				deletedCount++
				deletedSize += size
				log.Printf("Deleted old recording: %s (age: %s, size: %dKB)",
					filepath.Base(path), age.Round(time.Hour), size/1024)
			}
		}
		return nil
	})

	if err != nil {
		log.Printf("Error during cleanup: %v", err)
	}

	if deletedCount > 0 {
		log.Printf("Cleanup complete: %d recordings deleted, %.2fMB freed",
			deletedCount, float64(deletedSize)/(1024*1024))
	}
}

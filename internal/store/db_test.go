package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rapid100/triage/internal/types"
)

func TestRecordDB(t *testing.T) {
	db, err := NewRecordDB(filepath.Join(t.TempDir(), "calls.db"))
	if err != nil {
		t.Fatalf("new record db failed: %v", err)
	}
	defer db.Close()

	stamp := func(snap types.CallSnapshot, at time.Time) types.CallSnapshot {
		snap.FinalizedAt = &at
		return snap
	}
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("append and get", func(t *testing.T) {
		snap := stamp(finalizedSnap("c1", types.EmergencyMedical), base)
		if err := db.Append(snap); err != nil {
			t.Fatalf("append failed: %v", err)
		}

		got, err := db.Get("c1")
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if got.CallID != "c1" || got.PredictedClass != types.EmergencyMedical {
			t.Errorf("record mangled: %+v", got)
		}
		if got.Routing.Department != "Fire Department" {
			t.Errorf("department = %q", got.Routing.Department)
		}
	})

	t.Run("duplicate call id rejected", func(t *testing.T) {
		if err := db.Append(stamp(finalizedSnap("c1", types.EmergencyFire), base)); err == nil {
			t.Error("expected unique constraint violation")
		}
	})

	t.Run("get unknown id", func(t *testing.T) {
		if _, err := db.Get("ghost"); err == nil {
			t.Error("expected error for unknown call id")
		}
	})

	t.Run("list most recent first with limit", func(t *testing.T) {
		db.Append(stamp(finalizedSnap("c2", types.EmergencyFire), base.Add(time.Minute)))
		db.Append(stamp(finalizedSnap("c3", types.EmergencyCrime), base.Add(2*time.Minute)))

		records, err := db.List(2)
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("got %d records, expected 2", len(records))
		}
		if records[0].CallID != "c3" || records[1].CallID != "c2" {
			t.Errorf("order = [%s %s]", records[0].CallID, records[1].CallID)
		}
	})
}

func TestRecordingStore(t *testing.T) {
	rs, err := NewRecordingStore(t.TempDir())
	if err != nil {
		t.Fatalf("new recording store failed: %v", err)
	}

	t.Run("save rejects empty audio", func(t *testing.T) {
		if _, err := rs.Save("c1", nil); err == nil {
			t.Error("expected error for empty audio")
		}
	})

	t.Run("save and list", func(t *testing.T) {
		path, err := rs.Save("c1", []byte{1, 2, 3, 4})
		if err != nil {
			t.Fatalf("save failed: %v", err)
		}
		if filepath.Ext(path) != ".wav" {
			t.Errorf("saved as %q, expected a wav file", path)
		}

		recordings, err := rs.List()
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(recordings) != 1 {
			t.Fatalf("got %d recordings", len(recordings))
		}
		// 44-byte header plus payload.
		if recordings[0].Size != 48 {
			t.Errorf("size = %d, expected 48", recordings[0].Size)
		}
	})

	t.Run("path rejects traversal", func(t *testing.T) {
		if _, err := rs.Path("../../etc/passwd"); err == nil {
			t.Error("expected rejection of traversal path")
		}
	})

	t.Run("path rejects missing file", func(t *testing.T) {
		if _, err := rs.Path("nope.wav"); err == nil {
			t.Error("expected error for missing recording")
		}
	})
}

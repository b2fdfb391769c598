package service

import (
	"sync"
	"testing"
)

func TestStatsServiceCounters(t *testing.T) {
	stats := NewStatsService()

	stats.RecordSessionCreated()
	stats.RecordSessionCreated()
	stats.RecordSessionDeleted()
	stats.RecordSessionExpired()
	stats.RecordTransitionDenied()
	stats.RecordTypeMismatch()
	stats.RecordStepCompleted("payment")
	stats.RecordStepCompleted("payment")
	stats.RecordStepCompleted("waitlist")
	stats.RecordStepCompleted("") // skipped

	got := stats.GetStats()
	if got.SessionsCreated != 2 {
		t.Errorf("SessionsCreated = %d, want 2", got.SessionsCreated)
	}
	if got.SessionsDeleted != 1 {
		t.Errorf("SessionsDeleted = %d, want 1", got.SessionsDeleted)
	}
	if got.SessionsExpired != 1 {
		t.Errorf("SessionsExpired = %d, want 1", got.SessionsExpired)
	}
	if got.TransitionsDenied != 1 {
		t.Errorf("TransitionsDenied = %d, want 1", got.TransitionsDenied)
	}
	if got.TypeMismatches != 1 {
		t.Errorf("TypeMismatches = %d, want 1", got.TypeMismatches)
	}
	if got.StepCounts["payment"] != 2 || got.StepCounts["waitlist"] != 1 {
		t.Errorf("StepCounts = %v, want payment=2 waitlist=1", got.StepCounts)
	}
	if _, ok := got.StepCounts[""]; ok {
		t.Error("empty kind should not be counted")
	}
}

func TestStatsServiceReset(t *testing.T) {
	stats := NewStatsService()
	stats.RecordSessionCreated()
	stats.RecordStepCompleted("payment")

	stats.Reset()
	got := stats.GetStats()
	if got.SessionsCreated != 0 || len(got.StepCounts) != 0 {
		t.Errorf("after Reset, stats = %+v, want zeroes", got)
	}
}

func TestStatsServiceConcurrent(t *testing.T) {
	stats := NewStatsService()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				stats.RecordSessionCreated()
				stats.RecordStepCompleted("form_submission")
			}
		}()
	}
	wg.Wait()

	got := stats.GetStats()
	if got.SessionsCreated != 1000 {
		t.Errorf("SessionsCreated = %d, want 1000", got.SessionsCreated)
	}
	if got.StepCounts["form_submission"] != 1000 {
		t.Errorf("StepCounts[form_submission] = %d, want 1000", got.StepCounts["form_submission"])
	}
}

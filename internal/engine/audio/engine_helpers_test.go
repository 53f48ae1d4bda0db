package audio

import (
	"math"
	"testing"
	"time"
)

func TestDbToBeepVolume_UnityGainIsZero(t *testing.T) {
	if v := dbToBeepVolume(0); math.Abs(v) > 1e-9 {
		t.Errorf("expected 0dB to map to 0 log2-volume, got %v", v)
	}
}

func TestDbToBeepVolume_MonotonicWithDb(t *testing.T) {
	low := dbToBeepVolume(-20)
	high := dbToBeepVolume(-6)
	if !(low < high) {
		t.Errorf("expected -20dB volume (%v) < -6dB volume (%v)", low, high)
	}
}

func TestSecondsToDuration(t *testing.T) {
	if got := secondsToDuration(1.5); got != 1500*time.Millisecond {
		t.Errorf("expected 1.5s to be 1500ms, got %v", got)
	}
}

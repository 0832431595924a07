package clock

import (
	"testing"
	"time"
)

func TestMock_Advance(t *testing.T) {
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	m := NewMock(start)

	if !m.Now().Equal(start) {
		t.Fatalf("Now() = %v, want %v", m.Now(), start)
	}

	m.Advance(10 * time.Minute)
	if want := start.Add(10 * time.Minute); !m.Now().Equal(want) {
		t.Errorf("Now() after Advance = %v, want %v", m.Now(), want)
	}

	later := start.Add(24 * time.Hour)
	m.Set(later)
	if !m.Now().Equal(later) {
		t.Errorf("Now() after Set = %v, want %v", m.Now(), later)
	}
}

func TestSystem_ReturnsUTC(t *testing.T) {
	if loc := System().Now().Location(); loc != time.UTC {
		t.Errorf("location = %v, want UTC", loc)
	}
}

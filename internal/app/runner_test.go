package app

import (
	"testing"
	"time"
)

func TestDefaultOutputName(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, time.March, 7, 14, 30, 9, 0, time.UTC)
	if got, want := defaultOutputName(at), "enriched_data_20250307_143009.csv"; got != want {
		t.Fatalf("defaultOutputName = %q, want %q", got, want)
	}
}

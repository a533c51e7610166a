package main

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestReadShipments(t *testing.T) {
	data := `POL,POD,transit_time,carrier,expected_level,cargo_value
VNSGN,CNSHA,20,Maersk,Medium,
SGSIN,NLRTM,32,,High,120000
`
	rows, err := readShipments(strings.NewReader(data), 0)
	if err != nil {
		t.Fatalf("readShipments failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	first := rows[0]
	if first.Fields["pol"] != "VNSGN" || first.Fields["transit_time"] != 20.0 {
		t.Errorf("unexpected fields: %v", first.Fields)
	}
	if _, ok := first.Fields["cargo_value"]; ok {
		t.Error("empty cells should be omitted")
	}
	if _, ok := first.Fields[expectedColumn]; ok || first.Expected != "Medium" {
		t.Errorf("expected level should be split off: %+v", first)
	}
	if rows[1].Line != 3 {
		t.Errorf("line = %d, want 3", rows[1].Line)
	}

	limited, _ := readShipments(strings.NewReader(data), 1)
	if len(limited) != 1 {
		t.Errorf("limit not honored: %d rows", len(limited))
	}
}

func TestPercentile(t *testing.T) {
	var d []time.Duration
	for i := 1; i <= 20; i++ {
		d = append(d, time.Duration(i)*time.Millisecond)
	}
	if got := percentile(d, 0.95); got != 19*time.Millisecond {
		t.Errorf("p95 = %v, want 19ms", got)
	}
	if got := percentile(nil, 0.95); got != 0 {
		t.Errorf("empty p95 = %v", got)
	}
}

func TestSummarize(t *testing.T) {
	samples := []Sample{
		{Row: Row{Expected: "Medium"}, Level: "Medium", Latency: 10 * time.Millisecond},
		{Row: Row{Expected: "High"}, Level: "Medium", Latency: 30 * time.Millisecond, Cached: true},
		{Err: errors.New("status 500")},
	}
	s := summarize(samples)
	if s.Total != 3 || s.Errors != 1 || s.Cached != 1 {
		t.Errorf("counts = %+v", s)
	}
	if s.Levels["Medium"] != 2 || s.Compared != 2 || s.Agreements != 1 {
		t.Errorf("levels/agreement = %+v", s)
	}
	if s.Mean != 20*time.Millisecond {
		t.Errorf("mean = %v", s.Mean)
	}
}

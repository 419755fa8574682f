package dashboard

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/lutefd/pongboard/internal/domain/matches"
	"github.com/lutefd/pongboard/internal/domain/stats"
	"github.com/lutefd/pongboard/internal/locale"
)

func table(pairs ...any) stats.RateTable {
	t := stats.NewRateTable()
	for i := 0; i+1 < len(pairs); i += 2 {
		t.Set(pairs[i].(string), pairs[i+1].(float64))
	}
	return t
}

func sampleChartData() stats.ChartData {
	return stats.ChartData{
		House: table("A", 0.5, "B", 0.3),
		Rate:  table("A", 0.6, "B", 0.4, "total", 0.55),
	}
}

func sampleRecords(n int) []matches.Record {
	out := make([]matches.Record, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, matches.Record{
			GameID:       uuid.New(),
			Player1:      matches.Participant{Nickname: fmt.Sprintf("p%d", i)},
			Player2:      matches.Participant{Nickname: "bob"},
			Player1Score: 11,
			Player2Score: i,
		})
	}
	return out
}

func equalFloats(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestBuildSeries(t *testing.T) {
	got, err := BuildSeries(sampleChartData())
	if err != nil {
		t.Fatalf("build series: %v", err)
	}
	if len(got.Categories) != 2 || got.Categories[0] != "A" || got.Categories[1] != "B" {
		t.Fatalf("unexpected categories %v", got.Categories)
	}
	if !equalFloats(got.Baseline, []float64{50, 30}) {
		t.Fatalf("unexpected baseline %v", got.Baseline)
	}
	if !equalFloats(got.Observed, []float64{60, 40, 55}) {
		t.Fatalf("unexpected observed %v", got.Observed)
	}
	if got.Unpaired() != 1 {
		t.Fatalf("expected one unpaired point, got %d", got.Unpaired())
	}
}

func TestBuildSeriesFollowsBaselineOrderAndRounds(t *testing.T) {
	data := stats.ChartData{
		House: table("SL", 0.12346, "GR", 0.98766),
		Rate:  table("GR", 0.33333, "SL", 0.66666, "total", 0.5),
	}
	got, err := BuildSeries(data)
	if err != nil {
		t.Fatalf("build series: %v", err)
	}
	if got.Categories[0] != "SL" || got.Categories[1] != "GR" {
		t.Fatalf("expected baseline key order, got %v", got.Categories)
	}
	if !equalFloats(got.Baseline, []float64{12.35, 98.77}) {
		t.Fatalf("unexpected baseline %v", got.Baseline)
	}
	if !equalFloats(got.Observed, []float64{66.67, 33.33, 50}) {
		t.Fatalf("unexpected observed %v", got.Observed)
	}
}

func TestBuildSeriesContractErrors(t *testing.T) {
	cases := map[string]stats.ChartData{
		"missing total":    {House: table("A", 0.5), Rate: table("A", 0.6)},
		"missing category": {House: table("A", 0.5, "B", 0.3), Rate: table("A", 0.6, "total", 0.5)},
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := BuildSeries(data); !errors.Is(err, ErrContract) {
				t.Fatalf("expected ErrContract, got %v", err)
			}
		})
	}
}

func TestBuildRecordList(t *testing.T) {
	strings := locale.NewCatalog().Lookup("en")
	cases := []struct {
		name      string
		records   int
		wantLines int
		wantMore  bool
	}{
		{name: "more than limit", records: 7, wantLines: 5, wantMore: true},
		{name: "empty", records: 0, wantLines: 0, wantMore: false},
		{name: "under limit", records: 3, wantLines: 3, wantMore: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := BuildRecordList(sampleRecords(tc.records), strings)
			if len(got.Lines) != tc.wantLines {
				t.Fatalf("expected %d lines, got %d", tc.wantLines, len(got.Lines))
			}
			if (got.More != nil) != tc.wantMore {
				t.Fatalf("expected more=%v, got %+v", tc.wantMore, got.More)
			}
			if got.More != nil && (got.More.Path != RecordsPath || got.More.Label != strings.More) {
				t.Fatalf("unexpected affordance %+v", got.More)
			}
		})
	}
}

func TestBuildRecordListKeepsReceivedOrder(t *testing.T) {
	got := BuildRecordList(sampleRecords(7), locale.NewCatalog().Lookup("en"))
	for i, line := range got.Lines {
		want := fmt.Sprintf("p%d [11] vs [%d] bob", i, i)
		if line != want {
			t.Fatalf("line %d: expected %q, got %q", i, want, line)
		}
	}
}

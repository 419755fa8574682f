package dashboard

import (
	"errors"
	"fmt"
	"math"

	"github.com/lutefd/pongboard/internal/domain/matches"
	"github.com/lutefd/pongboard/internal/domain/stats"
	"github.com/lutefd/pongboard/internal/locale"
)

var ErrContract = errors.New("dashboard: chart data breaks contract")

const (
	RecordLimit = 5
	RecordsPath = "/records"
)

// ChartSeries is chart-ready data. Observed carries one more point than
// Baseline: the overall total, which has no baseline counterpart.
type ChartSeries struct {
	Categories []string  `json:"categories"`
	Baseline   []float64 `json:"baseline"`
	Observed   []float64 `json:"observed"`
}

// Unpaired is the number of trailing observed points without a baseline.
func (s ChartSeries) Unpaired() int {
	return len(s.Observed) - len(s.Baseline)
}

func percent(v float64) float64 {
	return math.Round(v*10000) / 100
}

// BuildSeries turns rate tables into percentages rounded to two decimals.
// Categories follow the baseline key order.
func BuildSeries(data stats.ChartData) (ChartSeries, error) {
	keys := data.House.Keys()
	out := ChartSeries{
		Categories: keys,
		Baseline:   make([]float64, 0, len(keys)),
		Observed:   make([]float64, 0, len(keys)+1),
	}
	for _, k := range keys {
		base, _ := data.House.Get(k)
		observed, ok := data.Rate.Get(k)
		if !ok {
			return ChartSeries{}, fmt.Errorf("%w: rate has no %q", ErrContract, k)
		}
		out.Baseline = append(out.Baseline, percent(base))
		out.Observed = append(out.Observed, percent(observed))
	}
	total, ok := data.Rate.Get(stats.TotalKey)
	if !ok {
		return ChartSeries{}, fmt.Errorf("%w: rate has no %s", ErrContract, stats.TotalKey)
	}
	out.Observed = append(out.Observed, percent(total))
	return out, nil
}

type Affordance struct {
	Label string `json:"label"`
	Path  string `json:"path"`
}

type RecordList struct {
	Lines []string    `json:"lines"`
	More  *Affordance `json:"more,omitempty"`
}

// BuildRecordList keeps the first RecordLimit records in received order. The
// "more" affordance is offered whenever the full log is non-empty.
func BuildRecordList(records []matches.Record, s locale.Strings) RecordList {
	n := len(records)
	if n > RecordLimit {
		n = RecordLimit
	}
	list := RecordList{Lines: make([]string, 0, n)}
	for _, r := range records[:n] {
		list.Lines = append(list.Lines, r.Line())
	}
	if len(records) > 0 {
		list.More = &Affordance{Label: s.More, Path: RecordsPath}
	}
	return list
}

package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/lutefd/pongboard/internal/chart"
	"github.com/lutefd/pongboard/internal/domain/matches"
	"github.com/lutefd/pongboard/internal/domain/stats"
	"github.com/lutefd/pongboard/internal/events"
	"github.com/lutefd/pongboard/internal/locale"
	"github.com/lutefd/pongboard/internal/page"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/sync/errgroup"
)

var ErrFetch = errors.New("dashboard: fetch failed")

// Disposer tears a view down. Calling it more than once is harmless.
type Disposer func()

// Snapshot is what the last successful render put on screen.
type Snapshot struct {
	Series  *ChartSeries `json:"series,omitempty"`
	Records RecordList   `json:"records"`
}

type View struct {
	deps  Deps
	state State

	root    *html.Node
	surface *html.Node
	list    *html.Node

	lifetime context.Context
	cancel   context.CancelFunc
	once     sync.Once

	mu       sync.Mutex
	strings  locale.Strings
	more     *html.Node
	chart    chart.Handle
	subID    events.SubscriptionID
	armed    bool
	disposed bool
	snapshot Snapshot
}

// Open builds the dashboard shell and mounts it into doc.
func Open(doc *page.Document, deps Deps, state State) (*View, Disposer, error) {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.Scheduler == nil {
		deps.Scheduler = Inline{}
	}
	if deps.Locales == nil {
		deps.Locales = locale.NewCatalog()
	}

	v := &View{deps: deps, state: state}
	v.build()
	if err := doc.Mount(v.root); err != nil {
		return nil, nil, err
	}
	v.lifetime, v.cancel = context.WithCancel(context.Background())
	return v, v.dispose, nil
}

func (v *View) build() {
	v.root = page.Element(atom.Div, "class", page.ContentClass+" dashboard")
	top := page.Element(atom.Div, "class", "home-top-container")
	v.surface = page.Element(atom.Div, "id", "bar-chart", "class", chart.SurfaceClass)
	box := page.Element(atom.Div, "id", "records-box")
	v.list = page.Element(atom.Ul, "id", "records-list")

	box.AppendChild(v.list)
	top.AppendChild(v.surface)
	top.AppendChild(box)
	v.root.AppendChild(top)
}

func (v *View) Root() *html.Node { return v.root }

func (v *View) Surface() *html.Node { return v.surface }

func (v *View) RecordList() *html.Node { return v.list }

func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshot
}

// Render resets the shell and, when the viewer has a credential, fills it
// from both fetches. The language listener is armed on every path.
func (v *View) Render(ctx context.Context, s locale.Strings) error {
	v.mu.Lock()
	if v.disposed {
		v.mu.Unlock()
		return nil
	}
	v.arm()
	v.strings = s
	v.reset()
	v.mu.Unlock()

	if v.deps.Credentials == nil {
		return nil
	}
	credential, ok := v.deps.Credentials.Credential()
	if !ok {
		return nil
	}

	data, records, err := v.fetch(ctx, credential)
	if v.lifetime.Err() != nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFetch, err)
	}
	series, err := BuildSeries(data)
	if err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.disposed {
		return nil
	}
	if err := v.draw(series); err != nil {
		return err
	}
	list := BuildRecordList(records, v.strings)
	v.writeRecords(list)
	v.snapshot = Snapshot{Series: &series, Records: list}
	return nil
}

// ActivateMore follows the "more" affordance. It reports false when there
// is none.
func (v *View) ActivateMore() bool {
	v.mu.Lock()
	var path string
	if v.more != nil && !v.disposed {
		path = page.Attr(v.more, "data-navigate")
	}
	v.mu.Unlock()

	if path == "" || v.deps.Navigator == nil {
		return false
	}
	v.deps.Navigator.NavigateTo(path)
	return true
}

func (v *View) fetch(ctx context.Context, credential string) (stats.ChartData, []matches.Record, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(v.lifetime, cancel)
	defer stop()

	var (
		data    stats.ChartData
		records []matches.Record
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		data, err = v.deps.Source.FetchChartData(gctx, credential)
		if err != nil {
			return fmt.Errorf("chart data: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		records, err = v.deps.Source.FetchMatchLog(gctx, credential)
		if err != nil {
			return fmt.Errorf("match log: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return stats.ChartData{}, nil, err
	}
	return data, records, nil
}

// arm, reset, draw, writeRecords and relabel expect v.mu to be held.

func (v *View) arm() {
	if v.armed || v.deps.Bus == nil {
		return
	}
	v.subID = v.deps.Bus.Subscribe(events.LanguageChanged, v.onLanguageChanged)
	v.armed = true
}

func (v *View) reset() {
	if v.chart != nil {
		v.chart.Release()
		v.chart = nil
	}
	page.Clear(v.surface)
	page.Clear(v.list)
	v.more = nil
	v.snapshot = Snapshot{}
}

func (v *View) draw(series ChartSeries) error {
	if v.chart != nil {
		v.chart.Release()
		v.chart = nil
	}
	s := v.strings
	labels := make([]string, len(series.Categories))
	for i, key := range series.Categories {
		labels[i] = s.HouseName(key)
	}
	h, err := v.deps.Charts.Render(v.surface, labels, []chart.Series{
		{Label: s.BaselineLabel, Values: series.Baseline},
		{Label: s.ObservedLabel, Values: series.Observed},
	}, chart.PercentOptions(s.ChartTitle, s.AxisTitle, s.TotalLabel))
	if err != nil {
		return fmt.Errorf("draw chart: %w", err)
	}
	v.chart = h
	return nil
}

func (v *View) writeRecords(list RecordList) {
	for _, line := range list.Lines {
		li := page.Element(atom.Li)
		li.AppendChild(page.Text(line))
		v.list.AppendChild(li)
	}
	if list.More == nil {
		return
	}
	v.more = page.Element(atom.Button,
		"class", "more-button",
		"data-action", "more",
		"data-navigate", list.More.Path,
	)
	v.more.AppendChild(page.Text(list.More.Label))
	v.list.AppendChild(v.more)
}

func (v *View) onLanguageChanged(_ context.Context, e events.Event) error {
	p, ok := e.Payload.(events.LanguagePayload)
	if !ok || p.Audience != v.state.Audience {
		return nil
	}
	s := v.deps.Locales.Lookup(p.Lang)
	v.deps.Scheduler.Post(func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		v.relabel(s)
	})
	return nil
}

func (v *View) relabel(s locale.Strings) {
	if v.disposed {
		return
	}
	v.strings = s
	if v.snapshot.Series != nil {
		if err := v.draw(*v.snapshot.Series); err != nil {
			v.deps.Log.Warn("redraw chart after language change", zap.Error(err))
		}
	}
	if v.more == nil {
		return
	}
	page.SetText(v.more, s.More)
	if v.snapshot.Records.More != nil {
		v.snapshot.Records.More = &Affordance{Label: s.More, Path: v.snapshot.Records.More.Path}
	}
}

func (v *View) dispose() {
	v.once.Do(func() {
		v.mu.Lock()
		v.disposed = true
		if v.armed {
			v.deps.Bus.Unsubscribe(v.subID)
			v.armed = false
		}
		if v.chart != nil {
			v.chart.Release()
			v.chart = nil
		}
		v.mu.Unlock()
		v.cancel()
		v.deps.Log.Debug("dashboard view disposed", zap.Stringer("audience", v.state.Audience))
	})
}

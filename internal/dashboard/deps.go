package dashboard

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/lutefd/pongboard/internal/chart"
	"github.com/lutefd/pongboard/internal/domain/matches"
	"github.com/lutefd/pongboard/internal/domain/stats"
	"github.com/lutefd/pongboard/internal/events"
	"github.com/lutefd/pongboard/internal/locale"
	"go.uber.org/zap"
)

// CredentialSource reports the viewer's credential, if any.
type CredentialSource interface {
	Credential() (string, bool)
}

type Source interface {
	FetchChartData(ctx context.Context, credential string) (stats.ChartData, error)
	FetchMatchLog(ctx context.Context, credential string) ([]matches.Record, error)
}

type Navigator interface {
	NavigateTo(path string)
}

// Scheduler runs fn on the host's view loop.
type Scheduler interface {
	Post(fn func())
}

type Subscriber interface {
	Subscribe(name string, handler events.Handler) events.SubscriptionID
	Unsubscribe(id events.SubscriptionID)
}

type Locales interface {
	Lookup(code string) locale.Strings
}

type Deps struct {
	Credentials CredentialSource
	Source      Source
	Charts      chart.Renderer
	Bus         Subscriber
	Navigator   Navigator
	Scheduler   Scheduler
	Locales     Locales
	Log         *zap.Logger
}

// State identifies whose view this is. Language events for other
// audiences are ignored.
type State struct {
	Audience uuid.UUID
}

// Inline runs posted work immediately. Hosts without a loop of their own
// use it.
type Inline struct{}

func (Inline) Post(fn func()) { fn() }

// Queue holds posted work until the host drains it on its own goroutine.
type Queue struct {
	mu     sync.Mutex
	tasks  []func()
	closed bool
}

func (q *Queue) Post(fn func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.tasks = append(q.tasks, fn)
}

// Drain runs queued work on the caller's goroutine, including work posted
// while draining.
func (q *Queue) Drain() {
	for {
		q.mu.Lock()
		batch := q.tasks
		q.tasks = nil
		q.mu.Unlock()
		if len(batch) == 0 {
			return
		}
		for _, fn := range batch {
			fn()
		}
	}
}

// Close drops pending work and ignores later posts.
func (q *Queue) Close() {
	q.mu.Lock()
	q.tasks = nil
	q.closed = true
	q.mu.Unlock()
}

// StaticCredential is a CredentialSource with a fixed answer.
type StaticCredential string

func (c StaticCredential) Credential() (string, bool) {
	return string(c), c != ""
}

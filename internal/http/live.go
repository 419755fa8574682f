package httpserver

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lutefd/pongboard/internal/auth"
	"github.com/lutefd/pongboard/internal/dashboard"
	"github.com/lutefd/pongboard/internal/domain/matches"
	"github.com/lutefd/pongboard/internal/events"
	"github.com/lutefd/pongboard/internal/locale"
	"github.com/lutefd/pongboard/internal/page"
	"go.uber.org/zap"
)

const (
	recordsPath    = "/records"
	writeWait      = 10 * time.Second
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type liveMessage struct {
	Navigate string `json:"navigate,omitempty"`
	Action   string `json:"action,omitempty"`
	Language string `json:"language,omitempty"`
}

type liveFrame struct {
	Path string `json:"path"`
	HTML string `json:"html"`
}

// liveSession drives one browser tab. Every view operation and every write
// to the connection happens on run's goroutine.
type liveSession struct {
	s       *Server
	conn    *websocket.Conn
	log     *zap.Logger
	user    uuid.UUID
	cred    dashboard.CredentialSource
	doc     *page.Document
	strings locale.Strings

	ctx   context.Context
	wake  chan struct{}
	qmu   sync.Mutex
	queue []func()

	path    string
	view    *dashboard.View
	dispose dashboard.Disposer
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	strings := s.strings(r)
	user, _ := auth.UserIDFromContext(r.Context())
	var credential dashboard.StaticCredential
	if raw, ok := s.auth.Credential(r).Credential(); ok {
		credential = dashboard.StaticCredential(raw)
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("live upgrade", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ls := &liveSession{
		s:       s,
		conn:    conn,
		log:     s.log.With(zap.Stringer("user", user)),
		user:    user,
		cred:    credential,
		doc:     page.New(strings.DashboardTitle),
		strings: strings,
		ctx:     ctx,
		wake:    make(chan struct{}, 1),
	}

	go ls.read(cancel)
	ls.run()
}

// read forwards client messages to the loop and cancels the session when
// the connection drops.
func (l *liveSession) read(cancel context.CancelFunc) {
	defer cancel()
	l.conn.SetReadLimit(maxMessageSize)
	for {
		_, data, err := l.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg liveMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			l.log.Debug("drop live message", zap.Error(err))
			continue
		}
		l.Post(func() { l.handle(msg) })
	}
}

func (l *liveSession) run() {
	ids := []events.SubscriptionID{
		l.s.bus.Subscribe(events.GamesRecorded, l.onGamesRecorded),
		l.s.bus.Subscribe(events.LanguageChanged, l.onLanguageChanged),
	}
	defer func() {
		for _, id := range ids {
			l.s.bus.Unsubscribe(id)
		}
		l.closeView()
	}()

	for {
		select {
		case <-l.ctx.Done():
			return
		case <-l.wake:
			l.qmu.Lock()
			batch := l.queue
			l.queue = nil
			l.qmu.Unlock()
			for _, fn := range batch {
				fn()
			}
			l.push()
		}
	}
}

// Post queues fn on the session loop without blocking; the page is pushed
// after each batch. Safe to call from the loop itself.
func (l *liveSession) Post(fn func()) {
	l.qmu.Lock()
	l.queue = append(l.queue, fn)
	l.qmu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// NavigateTo is only reached from tasks already running on the loop.
func (l *liveSession) NavigateTo(path string) {
	l.navigate(path)
}

func (l *liveSession) handle(msg liveMessage) {
	if msg.Language != "" && l.s.catalog.Supported(msg.Language) {
		l.strings = l.s.catalog.Lookup(msg.Language)
		if l.user != uuid.Nil {
			l.s.announceLanguage(l.ctx, l.user, msg.Language)
		}
	}
	if msg.Action == "more" && l.view != nil && l.view.ActivateMore() {
		return
	}
	if msg.Navigate != "" {
		l.navigate(msg.Navigate)
	}
}

func (l *liveSession) navigate(path string) {
	switch path {
	case dashboardPath:
		l.openDashboard()
	case recordsPath:
		l.openRecords()
	default:
		l.log.Debug("unknown live path", zap.String("path", path))
	}
}

func (l *liveSession) openDashboard() {
	l.closeView()
	view, dispose, err := dashboard.Open(l.doc, l.s.viewDeps(l.user, l.cred, l, l), dashboard.State{Audience: l.user})
	if err != nil {
		l.log.Error("open dashboard", zap.Error(err))
		return
	}
	l.view, l.dispose, l.path = view, dispose, dashboardPath
	l.render()
}

func (l *liveSession) render() {
	if l.view == nil {
		return
	}
	ctx, cancel := context.WithTimeout(l.ctx, l.s.fetchTimeout)
	defer cancel()
	if err := l.view.Render(ctx, l.strings); err != nil {
		l.s.logRenderError(err)
	}
}

func (l *liveSession) openRecords() {
	l.closeView()
	var records []matches.Record
	if l.user != uuid.Nil {
		var err error
		if records, err = l.s.projection.MatchLog(l.ctx, l.user); err != nil {
			l.log.Warn("load records", zap.Error(err))
		}
	}
	if err := l.doc.Mount(recordsContent(records, l.strings)); err != nil {
		l.log.Error("mount records", zap.Error(err))
		return
	}
	l.path = recordsPath
}

func (l *liveSession) closeView() {
	if l.dispose != nil {
		l.dispose()
	}
	l.view, l.dispose = nil, nil
}

func (l *liveSession) onGamesRecorded(_ context.Context, e events.Event) error {
	p, ok := e.Payload.(events.GamesPayload)
	if !ok || l.user == uuid.Nil || !slices.Contains(p.Players, l.user) {
		return nil
	}
	l.Post(func() {
		if l.path == dashboardPath {
			l.render()
		}
	})
	return nil
}

func (l *liveSession) onLanguageChanged(_ context.Context, e events.Event) error {
	p, ok := e.Payload.(events.LanguagePayload)
	if !ok || p.Audience != l.user || !l.s.catalog.Supported(p.Lang) {
		return nil
	}
	strings := l.s.catalog.Lookup(p.Lang)
	l.Post(func() { l.strings = strings })
	return nil
}

func (l *liveSession) push() {
	body, err := l.doc.RootHTML()
	if err != nil {
		l.log.Error("render live page", zap.Error(err))
		return
	}
	data, err := json.Marshal(liveFrame{Path: l.path, HTML: body})
	if err != nil {
		l.log.Error("encode live frame", zap.Error(err))
		return
	}
	_ = l.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := l.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		l.log.Debug("live write", zap.Error(err))
	}
}

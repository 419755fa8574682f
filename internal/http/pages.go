package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/lutefd/pongboard/internal/auth"
	"github.com/lutefd/pongboard/internal/dashboard"
	"github.com/lutefd/pongboard/internal/domain/matches"
	"github.com/lutefd/pongboard/internal/locale"
	"github.com/lutefd/pongboard/internal/page"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const dashboardPath = "/dashboard"

func (s *Server) shell(title string, live bool) *page.Document {
	doc := page.New(title)
	if live {
		page.SetAttr(doc.Root(), "data-live", "1")
	}
	doc.Body().AppendChild(page.Element(atom.Script, "src", "/static/live.js", "defer", ""))
	return doc
}

func (s *Server) viewDeps(userID uuid.UUID, cred dashboard.CredentialSource, nav dashboard.Navigator, sched dashboard.Scheduler) dashboard.Deps {
	return dashboard.Deps{
		Credentials: cred,
		Source:      s.projection.Viewer(userID),
		Charts:      s.charts,
		Bus:         s.bus,
		Navigator:   nav,
		Scheduler:   sched,
		Locales:     s.catalog,
		Log:         s.log,
	}
}

// handleDashboardPage renders the dashboard once and disposes the view
// before returning. View work posted by events runs on this goroutine
// before the page is written; anything later is dropped.
func (s *Server) handleDashboardPage(w http.ResponseWriter, r *http.Request) {
	strings := s.strings(r)
	userID, _ := auth.UserIDFromContext(r.Context())
	doc := s.shell(strings.DashboardTitle, false)

	queue := &dashboard.Queue{}
	view, dispose, err := dashboard.Open(doc, s.viewDeps(userID, s.auth.Credential(r), nil, queue), dashboard.State{Audience: userID})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer dispose()
	defer queue.Close()

	ctx, cancel := context.WithTimeout(r.Context(), s.fetchTimeout)
	defer cancel()
	if err := view.Render(ctx, strings); err != nil {
		s.logRenderError(err)
	}
	queue.Drain()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := doc.Render(w); err != nil {
		s.log.Warn("write dashboard page", zap.Error(err))
	}
}

func (s *Server) handleRecordsPage(w http.ResponseWriter, r *http.Request) {
	strings := s.strings(r)
	doc := s.shell(strings.RecordsTitle, false)

	var records []matches.Record
	if userID, ok := auth.UserIDFromContext(r.Context()); ok {
		var err error
		records, err = s.projection.History(r.Context(), userID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
	if err := doc.Mount(recordsContent(records, strings)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := doc.Render(w); err != nil {
		s.log.Warn("write records page", zap.Error(err))
	}
}

// handleApp serves the empty shell that the live host fills over /live.
func (s *Server) handleApp(w http.ResponseWriter, r *http.Request) {
	doc := s.shell(s.strings(r).DashboardTitle, true)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := doc.Render(w); err != nil {
		s.log.Warn("write app shell", zap.Error(err))
	}
}

func recordsContent(records []matches.Record, s locale.Strings) *html.Node {
	root := page.Element(atom.Div, "class", page.ContentClass+" records")
	title := page.Element(atom.H2)
	title.AppendChild(page.Text(s.RecordsTitle))
	root.AppendChild(title)

	list := page.Element(atom.Ul, "id", "records-full")
	for _, r := range records {
		li := page.Element(atom.Li)
		li.AppendChild(page.Text(r.Line()))
		if t := r.Tournament; t != nil {
			class := "tournament"
			if t.Final {
				class += " final"
			}
			tag := page.Element(atom.Span, "class", class)
			tag.AppendChild(page.Text(fmt.Sprintf("%s R%d", t.Name, t.Round)))
			li.AppendChild(tag)
		}
		list.AppendChild(li)
	}
	if len(records) == 0 {
		li := page.Element(atom.Li, "class", "empty")
		li.AppendChild(page.Text(s.NoRecords))
		list.AppendChild(li)
	}
	root.AppendChild(list)

	back := page.Element(atom.Button, "class", "back-button", "data-navigate", dashboardPath)
	back.AppendChild(page.Text(s.DashboardTitle))
	root.AppendChild(back)
	return root
}

func (s *Server) logRenderError(err error) {
	switch {
	case errors.Is(err, dashboard.ErrFetch):
		s.log.Warn("dashboard fetch failed", zap.Error(err))
	default:
		s.log.Error("dashboard render failed", zap.Error(err))
	}
}

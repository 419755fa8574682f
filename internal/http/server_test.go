package httpserver

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/lutefd/pongboard/internal/auth"
	"github.com/lutefd/pongboard/internal/chart"
	"github.com/lutefd/pongboard/internal/domain/matches"
	"github.com/lutefd/pongboard/internal/events"
	"github.com/lutefd/pongboard/internal/projections"
	"github.com/lutefd/pongboard/internal/storage/sqlite"
)

type testEnv struct {
	srv *Server
	ts  *httptest.Server
	bus *events.Bus
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(store.Close)

	bus := events.NewBus()
	srv := NewServer(Dependencies{
		Store:         store,
		Bus:           bus,
		Charts:        chart.TableRenderer{},
		SessionSecret: "test-secret",
		FetchTimeout:  2 * time.Second,
	})
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return &testEnv{srv: srv, ts: ts, bus: bus}
}

func (e *testEnv) do(t *testing.T, method, path string, cookie *http.Cookie, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.ts.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *testEnv) login(t *testing.T, intraID, house string) *http.Cookie {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/v1/login/"+intraID+"?house="+house, nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login %s: status %d", intraID, resp.StatusCode)
	}
	var out loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	if out.Token == "" || out.Nickname != intraID {
		t.Fatalf("unexpected login response %+v", out)
	}
	return &http.Cookie{Name: auth.SessionName, Value: out.Token}
}

func (e *testEnv) recordGame(t *testing.T, cookie *http.Cookie, p1, p2 string, s1, s2 int) {
	t.Helper()
	end := time.Now().Add(-time.Minute)
	resp := e.do(t, http.MethodPost, "/v1/games", cookie, map[string]any{
		"player1_intra_id": p1,
		"player2_intra_id": p2,
		"player1_score":    s1,
		"player2_score":    s2,
		"start_time":       end.Add(-5 * time.Minute),
		"end_time":         end,
	})
	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("record game: status %d: %s", resp.StatusCode, body)
	}
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(data)
}

func TestAPIRequiresSession(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{"/v1/chart", "/v1/games/me"} {
		if resp := env.do(t, http.MethodGet, path, nil, nil); resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, resp.StatusCode)
		}
	}
}

func TestChartAndMatchLog(t *testing.T) {
	env := newTestEnv(t)
	alice := env.login(t, "alice", "GR")
	env.login(t, "bob", "SL")

	env.recordGame(t, alice, "alice", "bob", 11, 5)
	env.recordGame(t, alice, "bob", "alice", 11, 9)

	resp := env.do(t, http.MethodGet, "/v1/chart", alice, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("chart: status %d", resp.StatusCode)
	}
	body := readBody(t, resp)
	order := []string{`"GR"`, `"RA"`, `"SL"`, `"HU"`}
	last := -1
	for _, key := range order {
		idx := strings.Index(body, key)
		if idx <= last {
			t.Fatalf("expected house keys in canonical order: %s", body)
		}
		last = idx
	}
	if !strings.Contains(body, `"total":0.5`) || !strings.Contains(body, `"SL":0.5`) {
		t.Fatalf("unexpected chart body %s", body)
	}

	resp = env.do(t, http.MethodGet, "/v1/games/me", alice, nil)
	var games []struct {
		Player1 struct {
			Nickname string `json:"nickname"`
		} `json:"player1"`
		Player1Score int `json:"player1_score"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&games); err != nil {
		t.Fatalf("decode games: %v", err)
	}
	if len(games) != 2 {
		t.Fatalf("expected 2 games, got %d", len(games))
	}
}

func TestCreateGameRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)
	alice := env.login(t, "alice", "GR")
	end := time.Now().Add(-time.Minute)

	cases := map[string]map[string]any{
		"unknown player": {"player1_intra_id": "alice", "player2_intra_id": "ghost",
			"start_time": end.Add(-time.Minute), "end_time": end},
		"same player": {"player1_intra_id": "alice", "player2_intra_id": "alice",
			"start_time": end.Add(-time.Minute), "end_time": end},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if resp := env.do(t, http.MethodPost, "/v1/games", alice, body); resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", resp.StatusCode)
			}
		})
	}
}

func TestDashboardPageWithoutSessionIsEmptyShell(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodGet, "/dashboard", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := readBody(t, resp)
	if !strings.Contains(body, `id="bar-chart"`) || !strings.Contains(body, `<ul id="records-list"></ul>`) {
		t.Fatalf("expected empty shell, got %s", body)
	}
	if got := env.bus.Count(events.LanguageChanged); got != 0 {
		t.Fatalf("expected view to be disposed after the request, %d listeners left", got)
	}
}

func TestDashboardPageRendersChartAndRecords(t *testing.T) {
	env := newTestEnv(t)
	alice := env.login(t, "alice", "GR")
	env.login(t, "bob", "SL")
	env.recordGame(t, alice, "alice", "bob", 11, 5)

	body := readBody(t, env.do(t, http.MethodGet, "/dashboard", alice, nil))
	for _, want := range []string{"alice [11] vs [5] bob", `class="more-button"`, `data-navigate="/records"`, "<pre>", "100.00%"} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in dashboard page:\n%s", want, body)
		}
	}
	if got := env.bus.Count(events.LanguageChanged); got != 0 {
		t.Fatalf("expected listener removed after request, got %d", got)
	}
}

func TestLanguageCookieAndEvent(t *testing.T) {
	env := newTestEnv(t)
	alice := env.login(t, "alice", "GR")
	env.login(t, "bob", "SL")
	env.recordGame(t, alice, "alice", "bob", 11, 5)

	var got events.LanguagePayload
	env.bus.Subscribe(events.LanguageChanged, func(_ context.Context, e events.Event) error {
		got = e.Payload.(events.LanguagePayload)
		return nil
	})

	resp := env.do(t, http.MethodPost, "/v1/language", alice, map[string]string{"language": "ja"})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	var lang *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == langCookie {
			lang = c
		}
	}
	if lang == nil || lang.Value != "ja" {
		t.Fatalf("expected lang cookie, got %+v", resp.Cookies())
	}
	if got.Lang != "ja" {
		t.Fatalf("expected language event, got %+v", got)
	}

	req, _ := http.NewRequest(http.MethodGet, env.ts.URL+"/dashboard", nil)
	req.AddCookie(alice)
	req.AddCookie(&http.Cookie{Name: langCookie, Value: "ja"})
	page, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	defer page.Body.Close()
	if body := readBody(t, page); !strings.Contains(body, "もっと見る") {
		t.Fatalf("expected ja affordance label")
	}

	if resp := env.do(t, http.MethodPost, "/v1/language", alice, map[string]string{"language": "xx"}); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unsupported language, got %d", resp.StatusCode)
	}
}

func TestRecordsPageListsEverything(t *testing.T) {
	env := newTestEnv(t)
	alice := env.login(t, "alice", "GR")
	env.login(t, "bob", "SL")
	for i := 0; i < 7; i++ {
		env.recordGame(t, alice, "alice", "bob", 11, i)
	}

	body := readBody(t, env.do(t, http.MethodGet, "/records", alice, nil))
	if got := strings.Count(body, "<li>"); got != 7 {
		t.Fatalf("expected 7 records, got %d", got)
	}
}

func TestMatchLogCapAndFullHistory(t *testing.T) {
	env := newTestEnv(t)
	alice := env.login(t, "alice", "GR")
	env.login(t, "bob", "SL")
	const total = projections.MatchLogLimit + 5
	for i := 0; i < total; i++ {
		env.recordGame(t, alice, "alice", "bob", 11, i%11)
	}

	count := func(path string) int {
		resp := env.do(t, http.MethodGet, path, alice, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s: status %d", path, resp.StatusCode)
		}
		var items []matches.Record
		if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
		return len(items)
	}
	if got := count("/v1/games/me"); got != projections.MatchLogLimit {
		t.Fatalf("expected capped log of %d, got %d", projections.MatchLogLimit, got)
	}
	if got := count("/v1/games/me?all=1"); got != total {
		t.Fatalf("expected full history of %d, got %d", total, got)
	}

	body := readBody(t, env.do(t, http.MethodGet, "/records", alice, nil))
	if got := strings.Count(body, "<li>"); got != total {
		t.Fatalf("expected %d records on the page, got %d", total, got)
	}
}

func TestTournamentGames(t *testing.T) {
	env := newTestEnv(t)
	alice := env.login(t, "alice", "GR")
	env.login(t, "bob", "SL")
	env.recordGame(t, alice, "alice", "bob", 11, 2)

	end := time.Now().Add(-time.Minute)
	game := map[string]any{
		"player1_intra_id": "alice",
		"player2_intra_id": "bob",
		"player1_score":    11,
		"player2_score":    9,
		"start_time":       end.Add(-5 * time.Minute),
		"end_time":         end,
		"tournament_name":  "spring",
		"round":            2,
		"is_final":         true,
	}
	if resp := env.do(t, http.MethodPost, "/v1/games", alice, game); resp.StatusCode != http.StatusCreated {
		t.Fatalf("record tournament game: status %d: %s", resp.StatusCode, readBody(t, resp))
	}
	game["tournament_name"] = "wait"
	if resp := env.do(t, http.MethodPost, "/v1/games", alice, game); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for reserved tournament name, got %d", resp.StatusCode)
	}

	for _, path := range []string{"/v1/tournaments/me", "/v1/tournaments/spring"} {
		resp := env.do(t, http.MethodGet, path, alice, nil)
		var items []matches.Record
		if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
		if len(items) != 1 || items[0].Tournament == nil || !items[0].Tournament.Final || items[0].Tournament.Round != 2 {
			t.Fatalf("unexpected %s response %+v", path, items)
		}
	}

	body := readBody(t, env.do(t, http.MethodGet, "/records", alice, nil))
	if !strings.Contains(body, `<span class="tournament final">spring R2</span>`) {
		t.Fatalf("expected tournament tag on the records page")
	}
}

func TestProfileAndRename(t *testing.T) {
	env := newTestEnv(t)
	alice := env.login(t, "alice", "GR")
	bob := env.login(t, "bob", "SL")
	env.recordGame(t, alice, "alice", "bob", 11, 4)
	env.recordGame(t, alice, "alice", "bob", 5, 11)
	env.recordGame(t, alice, "alice", "bob", 11, 8)

	resp := env.do(t, http.MethodGet, "/v1/users/alice", bob, nil)
	var profile projections.Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if profile.Nickname != "alice" || profile.Wins != 2 || profile.Losses != 1 {
		t.Fatalf("unexpected profile %+v", profile)
	}
	if resp := env.do(t, http.MethodGet, "/v1/users/ghost", bob, nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown user, got %d", resp.StatusCode)
	}

	rename := func(cookie *http.Cookie, intraID, nickname string) int {
		return env.do(t, http.MethodPatch, "/v1/users/"+intraID, cookie, map[string]string{"nickname": nickname}).StatusCode
	}
	if got := rename(bob, "alice", "mallory"); got != http.StatusForbidden {
		t.Fatalf("expected 403 renaming someone else, got %d", got)
	}
	if got := rename(alice, "alice", strings.Repeat("a", 21)); got != http.StatusBadRequest {
		t.Fatalf("expected 400 for a long nickname, got %d", got)
	}
	if got := rename(alice, "alice", "bob"); got != http.StatusConflict {
		t.Fatalf("expected 409 for a taken nickname, got %d", got)
	}
	if got := rename(alice, "alice", "ace"); got != http.StatusOK {
		t.Fatalf("expected 200 for a free nickname, got %d", got)
	}

	// ace's default nickname now belongs to alice
	if resp := env.do(t, http.MethodPost, "/v1/login/ace", nil, nil); resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 logging in with a taken nickname, got %d", resp.StatusCode)
	}
}

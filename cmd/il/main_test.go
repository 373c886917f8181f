package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/incidentline/internal/datasource"
	"github.com/vanderheijden86/incidentline/pkg/debug"
	"github.com/vanderheijden86/incidentline/pkg/hooks"
	"github.com/vanderheijden86/incidentline/pkg/metrics"
	"github.com/vanderheijden86/incidentline/pkg/model"
	"github.com/vanderheijden86/incidentline/pkg/testutil"
	"github.com/vanderheijden86/incidentline/pkg/timeline"
	"github.com/vanderheijden86/incidentline/pkg/ui"
	"github.com/vanderheijden86/incidentline/pkg/watcher"
)

func testOptions() timeline.Options {
	opts := timeline.DefaultOptions()
	opts.Location = time.UTC
	opts.Now = func() time.Time { return time.Date(2025, 1, 1, 18, 0, 0, 0, time.UTC) }
	return opts
}

func TestResolvePath(t *testing.T) {
	dir := t.TempDir()
	recent := filepath.Join(dir, "recent.json")
	if err := os.WriteFile(recent, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	missing := filepath.Join(dir, "gone.json")

	tests := []struct {
		name   string
		flag   string
		args   []string
		recent []string
		want   string
	}{
		{"flag wins", "a.json", []string{"b.json"}, []string{recent}, "a.json"},
		{"first argument", "", []string{"b.json", "c.json"}, nil, "b.json"},
		{"recent skips missing", "", nil, []string{missing, recent}, recent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolvePath(tt.flag, tt.args, tt.recent)
			if err != nil {
				t.Fatalf("resolvePath: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}

	if _, err := resolvePath("", nil, []string{missing}); err == nil {
		t.Error("expected error without any usable path")
	}
}

func TestLoadConfig_ExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "timeline:\n  zoom_max: 6\nserver:\n  listen: \":9000\"\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Timeline.ZoomMax != 6 || cfg.Server.Listen != ":9000" {
		t.Errorf("config = %+v", cfg)
	}
}

func TestLayoutScene_AppliesView(t *testing.T) {
	inc := testutil.QuickIncident()
	s := layoutScene(inc, testOptions(), viewParams{Width: 800, Zoom: 5, Pan: 1})

	if s.Viewport.ViewportWidth != 800 || s.Viewport.ZoomLevel != 5 {
		t.Fatalf("viewport = %+v", s.Viewport)
	}
	maxPan := s.Viewport.ContentWidth - s.Viewport.ViewportWidth
	if s.Viewport.PanOffset != -maxPan {
		t.Errorf("pan offset = %v, want %v", s.Viewport.PanOffset, -maxPan)
	}
	if s.Buckets.MarkerCount() == 0 {
		t.Error("no markers laid out")
	}
}

func TestWriteScene_JSON(t *testing.T) {
	inc := testutil.QuickIncident()
	var buf bytes.Buffer
	if err := writeScene(&buf, inc, testOptions(), viewParams{Width: 600}); err != nil {
		t.Fatalf("writeScene: %v", err)
	}
	var got timeline.Scene
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Viewport.ViewportWidth != 600 {
		t.Errorf("viewport width = %v", got.Viewport.ViewportWidth)
	}
	if len(got.Rows) != testutil.CountNodes(inc.Tree) {
		t.Errorf("rows = %d, want %d", len(got.Rows), testutil.CountNodes(inc.Tree))
	}
}

func TestRunExport(t *testing.T) {
	inc := testutil.QuickIncident()
	dir := t.TempDir()

	svg := filepath.Join(dir, "out.svg")
	if err := runExport(inc, testOptions(), viewParams{Width: 900}, svg); err != nil {
		t.Fatalf("svg export: %v", err)
	}
	data, err := os.ReadFile(svg)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "<svg") {
		t.Error("svg output missing root element")
	}

	png := filepath.Join(dir, "nested", "out.png")
	if err := runExport(inc, testOptions(), viewParams{Width: 900}, png); err != nil {
		t.Fatalf("png export: %v", err)
	}
	if st, err := os.Stat(png); err != nil || st.Size() == 0 {
		t.Errorf("png not written: %v", err)
	}

	if err := runExport(inc, testOptions(), viewParams{Width: 0}, filepath.Join(dir, "empty.svg")); err == nil {
		t.Error("expected error for zero width export")
	}
	if err := runExport(inc, testOptions(), viewParams{Width: 900}, filepath.Join(dir, "out.gif")); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestReloadLoop_AppliesChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "incident.json")
	inc := testutil.QuickIncident()
	testutil.WriteIncidentFile(t, path, inc)

	w, err := watcher.New(path, watcher.WithForcePoll(true), watcher.WithPollInterval(20*time.Millisecond), watcher.WithDebounce(10*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	applied := make(chan *model.Incident, 1)
	go reloadLoop(ctx, w, path, func(inc *model.Incident) {
		select {
		case applied <- inc:
		default:
		}
	}, func(err error) { t.Logf("reload error: %v", err) })

	time.Sleep(50 * time.Millisecond)
	inc.Title = "edited"
	if err := datasource.SaveJSONFile(path, inc); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-applied:
		if got.Title != "edited" {
			t.Errorf("title = %q", got.Title)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("change was not applied")
	}
}

func TestReloadLoop_StopsWithContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "incident.json")
	testutil.WriteIncidentFile(t, path, testutil.QuickIncident())
	w, err := watcher.New(path, watcher.WithForcePoll(true))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	done := make(chan struct{})
	go func() {
		reloadLoop(ctx, w, path, func(*model.Incident) {}, func(error) {})
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reload loop did not stop")
	}
}

func TestRunExportHooks(t *testing.T) {
	inc := testutil.QuickIncident()
	if err := runExportHooks(context.Background(), nil, inc, "x.svg"); err != nil {
		t.Fatalf("nil executor: %v", err)
	}

	out := filepath.Join(t.TempDir(), "hook.txt")
	exec := hooks.NewExecutor(&hooks.Config{Hooks: hooks.HooksByPhase{PostExport: []hooks.Hook{
		{Name: "record", Command: `printf '%s %s' "$IL_EXPORT_FORMAT" "$IL_INCIDENT_ID" > ` + out},
	}}})
	if err := runExportHooks(context.Background(), exec, inc, "snap.PNG"); err != nil {
		t.Fatalf("runExportHooks: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "png "+inc.ID {
		t.Errorf("hook saw %q", data)
	}
}

func TestActionContext(t *testing.T) {
	inc := testutil.QuickIncident()
	ac := actionContext(inc, ui.ActionRequest{
		EventID: "ev", Action: timeline.ActionDispatch, EntityID: "e1", NodeID: "n1", Records: []string{"r1"},
	})
	if ac.Action != "dispatch" || ac.IncidentID != inc.ID || ac.NodeID != "n1" || len(ac.RecordIDs) != 1 {
		t.Errorf("action context = %+v", ac)
	}
}

func TestLogTimings(t *testing.T) {
	var buf bytes.Buffer
	debug.SetOutput(&buf)
	t.Cleanup(func() {
		debug.SetOutput(nil)
		debug.SetEnabled(false)
	})
	metrics.ResetAll()

	layoutScene(testutil.QuickIncident(), testOptions(), viewParams{Width: 900})
	logTimings()

	out := buf.String()
	for _, name := range []string{"timing axis_build", "timing clustering", "timing row_layout"} {
		if !strings.Contains(out, name) {
			t.Errorf("debug log missing %q:\n%s", name, out)
		}
	}
}

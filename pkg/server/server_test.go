package server

import (
	"bytes"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/incidentline/pkg/metrics"
	"github.com/vanderheijden86/incidentline/pkg/model"
	"github.com/vanderheijden86/incidentline/pkg/testutil"
	"github.com/vanderheijden86/incidentline/pkg/timeline"
)

func newTestServer(t *testing.T) (*Server, *model.Incident) {
	t.Helper()
	gen := testutil.NewDefault()
	inc := gen.SingleDay()
	now := gen.Base().Add(6 * time.Hour)

	opts := timeline.DefaultOptions()
	opts.Location = time.UTC
	opts.Now = func() time.Time { return now }
	return New(inc, opts, nil), inc
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decodeScene(t *testing.T, rec *httptest.ResponseRecorder) sceneResponse {
	t.Helper()
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp sceneResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp
}

func TestHealth(t *testing.T) {
	s, inc := newTestServer(t)
	rec := get(t, s, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" || body["incident"] != inc.ID {
		t.Errorf("body = %v", body)
	}
}

func TestScene_Defaults(t *testing.T) {
	s, inc := newTestServer(t)
	resp := decodeScene(t, get(t, s, "/api/v1/timeline"))

	if resp.Viewport.ViewportWidth != defaultWidth {
		t.Errorf("viewport width = %v, want %v", resp.Viewport.ViewportWidth, defaultWidth)
	}
	if len(resp.Ticks) < 2 {
		t.Errorf("got %d ticks, want at least 2", len(resp.Ticks))
	}
	if got, want := len(resp.Rows), testutil.CountNodes(inc.Tree); got != want {
		t.Errorf("rows = %d, want %d", got, want)
	}

	total := 0
	for _, m := range resp.Markers {
		total += len(m.RecordIDs)
		if m.Count != len(m.RecordIDs) {
			t.Errorf("marker count %d but %d record ids", m.Count, len(m.RecordIDs))
		}
	}
	if total != len(inc.Records) {
		t.Errorf("markers hold %d records, want %d", total, len(inc.Records))
	}
}

func TestScene_ZoomAndPan(t *testing.T) {
	s, _ := newTestServer(t)
	resp := decodeScene(t, get(t, s, "/api/v1/timeline?width=1000&zoom=10&pan=1"))

	if resp.Viewport.ZoomLevel != 10 {
		t.Errorf("zoom = %v", resp.Viewport.ZoomLevel)
	}
	if resp.Viewport.ContentWidth != 3000 {
		t.Errorf("content width = %v, want 3000", resp.Viewport.ContentWidth)
	}
	if resp.Viewport.PanOffset != -2000 {
		t.Errorf("pan = %v, want -2000", resp.Viewport.PanOffset)
	}
}

func TestScene_Collapse(t *testing.T) {
	s, inc := newTestServer(t)
	group := inc.Tree[0]
	resp := decodeScene(t, get(t, s, "/api/v1/timeline?collapse="+group.ID))

	for _, r := range resp.Rows {
		for _, child := range group.Children {
			if r.ID == child.ID && r.Shown {
				t.Errorf("child %s of collapsed %s is shown", r.ID, group.ID)
			}
		}
	}

	resp = decodeScene(t, get(t, s, "/api/v1/timeline?open="+group.ID))
	for _, r := range resp.Rows {
		if r.ID == group.Children[0].ID && !r.Shown {
			t.Errorf("child %s of open group hidden", r.ID)
		}
	}
}

func TestScene_BadParams(t *testing.T) {
	s, _ := newTestServer(t)
	for _, q := range []string{
		"width=abc", "width=-1", "zoom=11", "zoom=x", "pan=1.5", "pan=-0.1",
		"width=NaN", "zoom=NaN", "pan=NaN", "width=Inf", "zoom=-Inf",
	} {
		rec := get(t, s, "/api/v1/timeline?"+q)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", q, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "error") {
			t.Errorf("%s: body lacks error: %s", q, rec.Body.String())
		}
	}
}

func TestRenderEndpoints_RejectNaN(t *testing.T) {
	s, _ := newTestServer(t)
	for _, target := range []string{
		"/api/v1/timeline.svg?zoom=NaN",
		"/api/v1/minimap.png?width=NaN",
		"/api/v1/timeline.svg?width=nan",
	} {
		if rec := get(t, s, target); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, rec.Code)
		}
	}
}

func TestHealth_ReportsTimings(t *testing.T) {
	metrics.ResetAll()
	s, _ := newTestServer(t)
	if rec := get(t, s, "/api/v1/timeline"); rec.Code != http.StatusOK {
		t.Fatalf("scene status = %d", rec.Code)
	}

	rec := get(t, s, "/healthz")
	var body struct {
		Timings []metrics.TimingStats `json:"timings"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	names := make(map[string]int64)
	for _, st := range body.Timings {
		names[st.Name] = st.Count
	}
	if names["axis_build"] == 0 || names["clustering"] == 0 {
		t.Errorf("timings after a layout = %+v", body.Timings)
	}
}

func TestScene_ZeroWidthIsEmpty(t *testing.T) {
	s, _ := newTestServer(t)
	resp := decodeScene(t, get(t, s, "/api/v1/timeline?width=0"))
	if len(resp.Markers) != 0 || len(resp.Minimap.Bars) != 0 {
		t.Errorf("zero width drew %d markers, %d minimap bars", len(resp.Markers), len(resp.Minimap.Bars))
	}
}

func TestSVG(t *testing.T) {
	s, inc := newTestServer(t)
	rec := get(t, s, "/api/v1/timeline.svg?width=800")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("content type = %q", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<svg") || !strings.Contains(body, inc.Title) {
		t.Error("svg missing root element or title")
	}

	if rec := get(t, s, "/api/v1/timeline.svg?width=0"); rec.Code != http.StatusBadRequest {
		t.Errorf("zero width svg status = %d", rec.Code)
	}
}

func TestMinimapPNG(t *testing.T) {
	s, _ := newTestServer(t)
	rec := get(t, s, "/api/v1/minimap.png")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if w := img.Bounds().Dx(); w != int(timeline.DefaultMinimapWidth) {
		t.Errorf("png width = %d, want %v", w, timeline.DefaultMinimapWidth)
	}
}

func TestSetIncident(t *testing.T) {
	s, _ := newTestServer(t)
	s.SetIncident(&model.Incident{ID: "swapped"})

	var body map[string]any
	if err := json.Unmarshal(get(t, s, "/healthz").Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["incident"] != "swapped" {
		t.Errorf("incident = %v", body["incident"])
	}

	s.SetIncident(nil)
	if rec := get(t, s, "/api/v1/timeline"); rec.Code != http.StatusOK {
		t.Errorf("empty incident status = %d", rec.Code)
	}
}

func TestSplitIDs(t *testing.T) {
	got := splitIDs(" a, ,b,,c ")
	if strings.Join(got, "|") != "a|b|c" {
		t.Errorf("splitIDs = %v", got)
	}
	if splitIDs("") != nil {
		t.Error("empty input should give nil")
	}
}

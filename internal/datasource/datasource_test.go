package datasource

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/vanderheijden86/incidentline/pkg/model"
	"github.com/vanderheijden86/incidentline/pkg/testutil"
)

func TestTypeForPath(t *testing.T) {
	tests := []struct {
		path string
		want SourceType
		err  bool
	}{
		{"incident.json", SourceTypeJSON, false},
		{"INCIDENT.JSON", SourceTypeJSON, false},
		{"store.db", SourceTypeSQLite, false},
		{"store.sqlite3", SourceTypeSQLite, false},
		{"notes.txt", "", true},
		{"noext", "", true},
	}
	for _, tt := range tests {
		got, err := TypeForPath(tt.path)
		if tt.err {
			if !errors.Is(err, ErrUnknownSource) {
				t.Errorf("TypeForPath(%q) error = %v, want ErrUnknownSource", tt.path, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("TypeForPath(%q) = %q, %v; want %q", tt.path, got, err, tt.want)
		}
	}
}

func TestDetect_Errors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Detect(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
	sub := filepath.Join(dir, "looks.json")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := Detect(sub); err == nil {
		t.Error("expected error for directory")
	}
}

func TestLoad_JSON(t *testing.T) {
	inc := testutil.QuickIncident()
	path := testutil.WriteIncidentFile(t, filepath.Join(t.TempDir(), "inc.json"), inc)

	got, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	testutil.AssertRecordCount(t, got, len(inc.Records))
	testutil.AssertJSONEqual(t, inc, got)
}

func TestLoad_RejectsInvalidIncident(t *testing.T) {
	end := int64(10)
	inc := &model.Incident{
		ID: "bad",
		Tree: []*model.AggregationNode{
			{ID: "n", LevelName: "alert", BeginTime: 20, EndTime: &end},
		},
	}
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := SaveJSONFile(path, inc); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(context.Background(), path); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestDecodeJSON_Malformed(t *testing.T) {
	if _, err := DecodeJSON([]byte(`{"records": [`)); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestSQLite_RoundTrip(t *testing.T) {
	ctx := context.Background()
	inc := testutil.New(testutil.DefaultConfig()).Incident(8, 3, 6*time.Hour)
	inc.Tree[0].Children[0].IsFeedbackRoot = true

	path := filepath.Join(t.TempDir(), "inc.db")
	if err := SaveSQLite(ctx, path, inc); err != nil {
		t.Fatalf("SaveSQLite: %v", err)
	}

	got, err := Load(ctx, path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got.ID != inc.ID || got.Title != inc.Title {
		t.Errorf("header = %q/%q, want %q/%q", got.ID, got.Title, inc.ID, inc.Title)
	}

	want := append([]model.OperationRecord(nil), inc.Records...)
	sort.SliceStable(want, func(i, j int) bool {
		if want[i].CreateTime != want[j].CreateTime {
			return want[i].CreateTime < want[j].CreateTime
		}
		return want[i].ID < want[j].ID
	})
	testutil.AssertJSONEqual(t, want, got.Records)
	testutil.AssertJSONEqual(t, inc.Tree, got.Tree)
}

func TestSaveSQLite_Overwrites(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "inc.sqlite")

	first := testutil.QuickIncident()
	if err := SaveSQLite(ctx, path, first); err != nil {
		t.Fatal(err)
	}
	second := &model.Incident{
		ID:      "second",
		Records: []model.OperationRecord{{ID: "only", CreateTime: 100, OperationClass: model.ClassSystem}},
	}
	if err := SaveSQLite(ctx, path, second); err != nil {
		t.Fatal(err)
	}

	got, err := Load(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "second" || len(got.Records) != 1 || len(got.Tree) != 0 {
		t.Errorf("got %q with %d records, %d nodes", got.ID, len(got.Records), len(got.Tree))
	}
}

func TestNewSQLiteReader_WrongType(t *testing.T) {
	if _, err := NewSQLiteReader(DataSource{Type: SourceTypeJSON, Path: "x.json"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestBuildTree(t *testing.T) {
	rows := []nodeRow{
		{node: &model.AggregationNode{ID: "c1"}, parentID: "p"},
		{node: &model.AggregationNode{ID: "p"}},
		{node: &model.AggregationNode{ID: "c2"}, parentID: "p"},
		{node: &model.AggregationNode{ID: "q"}},
	}
	tree, err := buildTree(rows)
	if err != nil {
		t.Fatal(err)
	}
	if len(tree) != 2 || tree[0].ID != "p" || tree[1].ID != "q" {
		t.Fatalf("roots = %v", tree)
	}
	if len(tree[0].Children) != 2 || tree[0].Children[0].ID != "c1" || tree[0].Children[1].ID != "c2" {
		t.Errorf("children out of order: %v", tree[0].Children)
	}

	_, err = buildTree([]nodeRow{{node: &model.AggregationNode{ID: "x"}, parentID: "ghost"}})
	if err == nil {
		t.Error("expected missing parent error")
	}

	_, err = buildTree([]nodeRow{
		{node: &model.AggregationNode{ID: "a"}, parentID: "b"},
		{node: &model.AggregationNode{ID: "b"}, parentID: "a"},
	})
	if err == nil {
		t.Error("expected cycle error")
	}
}

func TestDiffIncidents(t *testing.T) {
	end := int64(500)
	before := &model.Incident{
		Records: []model.OperationRecord{{ID: "r1"}, {ID: "r2"}},
		Tree: []*model.AggregationNode{
			{ID: "a", Status: model.StatusFiring},
			{ID: "b", Status: model.StatusFiring},
		},
	}
	after := &model.Incident{
		Records: []model.OperationRecord{{ID: "r2"}, {ID: "r3"}, {ID: "r4"}},
		Tree: []*model.AggregationNode{
			{ID: "a", Status: model.StatusRecovered, EndTime: &end},
			{ID: "c", Status: model.StatusFiring},
		},
	}

	d := DiffIncidents(before, after)
	if !d.HasChanges() {
		t.Fatal("expected changes")
	}
	testutil.AssertJSONEqual(t, []string{"r3", "r4"}, d.RecordsAdded)
	testutil.AssertJSONEqual(t, []string{"r1"}, d.RecordsRemoved)
	testutil.AssertJSONEqual(t, []string{"c"}, d.NodesAdded)
	testutil.AssertJSONEqual(t, []string{"b"}, d.NodesRemoved)
	testutil.AssertJSONEqual(t, []string{"a"}, d.Ended)
	if len(d.StatusChanged) != 1 || d.StatusChanged[0].After != model.StatusRecovered {
		t.Errorf("StatusChanged = %+v", d.StatusChanged)
	}

	want := "2 new records, 1 records removed, 1 new alerts, 1 alerts removed, 1 status changes, 1 ended"
	if got := d.Summary(); got != want {
		t.Errorf("Summary() = %q, want %q", got, want)
	}
}

func TestDiffIncidents_NoChanges(t *testing.T) {
	inc := testutil.QuickIncident()
	d := DiffIncidents(inc, inc)
	if d.HasChanges() {
		t.Errorf("unexpected changes: %+v", d)
	}
	if d.Summary() != "no changes" {
		t.Errorf("Summary() = %q", d.Summary())
	}
	if !DiffIncidents(nil, inc).HasChanges() {
		t.Error("nil before should report additions")
	}
}

package timeline

import (
	"fmt"
	"math"
	"time"

	"github.com/vanderheijden86/incidentline/pkg/model"
)

// day0 is midnight UTC of the fixture day.
var day0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func at(hour, min int) int64 {
	return day0.Add(time.Duration(hour)*time.Hour + time.Duration(min)*time.Minute).Unix()
}

func i64(v int64) *int64 { return &v }

func rec(id string, ts int64) model.OperationRecord {
	return model.OperationRecord{
		ID:             id,
		CreateTime:     ts,
		OperationType:  model.OpComment,
		OperationClass: model.ClassHuman,
	}
}

func recs(prefix string, times ...int64) []model.OperationRecord {
	out := make([]model.OperationRecord, len(times))
	for i, ts := range times {
		out[i] = rec(fmt.Sprintf("%s-%d", prefix, i), ts)
	}
	return out
}

func approx(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func fixedOptions() Options {
	opts := DefaultOptions()
	opts.Location = time.UTC
	opts.Now = func() time.Time { return day0.Add(20 * time.Hour) }
	return opts
}

// sampleIncident has a status group with an open branch, a closed branch and
// a handful of records on the fixture day.
func sampleIncident() *model.Incident {
	return &model.Incident{
		ID:    "INC-1",
		Title: "checkout latency",
		Records: []model.OperationRecord{
			{ID: "r1", CreateTime: at(9, 0), OperationType: model.OpAlert, OperationClass: model.ClassSystem, RelatedEntityID: "a1"},
			{ID: "r2", CreateTime: at(9, 5), OperationType: model.OpAcknowledge, OperationClass: model.ClassHuman, RelatedEntityID: "a1"},
			{ID: "r3", CreateTime: at(11, 30), OperationType: model.OpDispatch, OperationClass: model.ClassHuman, RelatedEntityID: "b"},
			{ID: "r4", CreateTime: at(14, 0), OperationType: model.OpRecover, OperationClass: model.ClassSystem},
		},
		Tree: []*model.AggregationNode{
			{
				ID: "S", LevelName: model.LevelStatus, BeginTime: at(9, 0), Status: model.StatusFiring, IsOpen: true,
				Children: []*model.AggregationNode{
					{
						ID: "a", LevelName: "alert", BeginTime: at(9, 0), EndTime: i64(at(12, 0)), Status: model.StatusFiring, IsOpen: true, IsRoot: true,
						Children: []*model.AggregationNode{
							{ID: "a1", LevelName: "alert", BeginTime: at(9, 0), EndTime: i64(at(10, 0)), Status: model.StatusRecovered, EntityID: "a1"},
							{ID: "a2", LevelName: "alert", BeginTime: at(10, 30), EndTime: i64(at(10, 30)), Status: model.StatusClosed},
						},
					},
					{
						ID: "b", LevelName: "alert", BeginTime: at(11, 0), Status: model.StatusProcessing, EntityID: "b",
						Children: []*model.AggregationNode{
							{ID: "b1", LevelName: "alert", BeginTime: at(11, 0), EndTime: i64(at(13, 0)), Status: model.StatusPending, IsFeedbackRoot: true},
						},
					},
				},
			},
		},
	}
}

// Package testutil provides deterministic incident fixtures for tests.
// All generators produce the same output for the same seed.
package testutil

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/vanderheijden86/incidentline/pkg/model"
)

// GeneratorConfig controls incident generation.
type GeneratorConfig struct {
	Seed      int64          // Random seed for determinism (0 = use current time)
	IDPrefix  string         // Prefix for ids (default: "INC")
	BaseTime  time.Time      // Start of the incident (default: fixed time)
	StatusMix []model.Status // Status distribution for alerts (nil = firing/recovered)
	Ongoing   float64        // Fraction of alerts without an end time
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:      42, // Deterministic
		IDPrefix:  "INC",
		BaseTime:  time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC),
		StatusMix: []model.Status{model.StatusFiring, model.StatusRecovered},
		Ongoing:   0.25,
	}
}

// Generator creates incidents of various shapes.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
	seq int
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if cfg.BaseTime.IsZero() {
		cfg.BaseTime = DefaultConfig().BaseTime
	}
	if cfg.IDPrefix == "" {
		cfg.IDPrefix = "INC"
	}
	if len(cfg.StatusMix) == 0 {
		cfg.StatusMix = DefaultConfig().StatusMix
	}
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(seed)),
	}
}

// NewDefault creates a Generator with default config.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

// Base returns the configured start time.
func (g *Generator) Base() time.Time {
	return g.cfg.BaseTime
}

// Incident builds an incident spanning span: one status row per status in
// the mix, alerts distributed over them, and recordsPerAlert records on each
// alert.
func (g *Generator) Incident(alerts, recordsPerAlert int, span time.Duration) *model.Incident {
	inc := &model.Incident{
		ID:    g.nextID("incident"),
		Title: fmt.Sprintf("generated incident with %d alerts", alerts),
	}
	groups := make(map[model.Status]*model.AggregationNode)
	base := g.cfg.BaseTime.Unix()
	spanSec := int64(span / time.Second)
	if spanSec <= 0 {
		spanSec = 1
	}

	for i := 0; i < alerts; i++ {
		status := g.cfg.StatusMix[g.rng.Intn(len(g.cfg.StatusMix))]
		group, ok := groups[status]
		if !ok {
			group = &model.AggregationNode{
				ID:        g.nextID("status"),
				Title:     string(status),
				LevelName: model.LevelStatus,
				BeginTime: base,
				Status:    status,
				IsOpen:    true,
			}
			groups[status] = group
			inc.Tree = append(inc.Tree, group)
		}

		begin := base + g.rng.Int63n(spanSec)
		alert := &model.AggregationNode{
			ID:        g.nextID("alert"),
			Title:     fmt.Sprintf("alert %d", i),
			LevelName: "alert",
			BeginTime: begin,
			Status:    status,
		}
		alert.EntityID = alert.ID
		if g.rng.Float64() >= g.cfg.Ongoing {
			end := begin + g.rng.Int63n(spanSec-(begin-base)+1)
			alert.EndTime = &end
		}
		group.Children = append(group.Children, alert)

		for k := 0; k < recordsPerAlert; k++ {
			inc.Records = append(inc.Records, g.record(alert, begin+g.rng.Int63n(spanSec-(begin-base)+1)))
		}
	}

	if len(inc.Tree) > 0 && len(inc.Tree[0].Children) > 0 {
		inc.Tree[0].Children[0].IsRoot = true
	}
	return inc
}

// SingleDay builds a small incident that stays inside one calendar day.
func (g *Generator) SingleDay() *model.Incident {
	return g.Incident(6, 3, 4*time.Hour)
}

// MultiDay builds an incident spanning the given number of days.
func (g *Generator) MultiDay(days int) *model.Incident {
	return g.Incident(4*days, 2, time.Duration(days)*24*time.Hour)
}

// Burst returns n records sharing the timestamp ts.
func (g *Generator) Burst(n int, ts int64) []model.OperationRecord {
	out := make([]model.OperationRecord, n)
	for i := range out {
		out[i] = model.OperationRecord{
			ID:             g.nextID("rec"),
			CreateTime:     ts,
			OperationType:  model.OpAlert,
			OperationClass: model.ClassSystem,
		}
	}
	return out
}

// Nested builds a tree of the given depth and breadth below one status row.
// Every branch is open unless collapsed is set.
func (g *Generator) Nested(depth, breadth int, collapsed bool) []*model.AggregationNode {
	base := g.cfg.BaseTime.Unix()
	var build func(level int) []*model.AggregationNode
	build = func(level int) []*model.AggregationNode {
		if level > depth {
			return nil
		}
		nodes := make([]*model.AggregationNode, breadth)
		for i := range nodes {
			begin := base + int64(level*600+i*60)
			end := begin + 1800
			nodes[i] = &model.AggregationNode{
				ID:        g.nextID("node"),
				LevelName: fmt.Sprintf("level%d", level),
				BeginTime: begin,
				EndTime:   &end,
				Status:    model.StatusFiring,
				IsOpen:    !collapsed,
				Children:  build(level + 1),
			}
		}
		return nodes
	}
	return []*model.AggregationNode{{
		ID:        g.nextID("status"),
		LevelName: model.LevelStatus,
		BeginTime: base,
		Status:    model.StatusFiring,
		IsOpen:    true,
		Children:  build(1),
	}}
}

var opTypes = []string{model.OpAlert, model.OpAcknowledge, model.OpDispatch, model.OpComment, model.OpRecover}

func (g *Generator) record(alert *model.AggregationNode, ts int64) model.OperationRecord {
	op := opTypes[g.rng.Intn(len(opTypes))]
	class := model.ClassHuman
	if op == model.OpAlert || op == model.OpRecover {
		class = model.ClassSystem
	}
	return model.OperationRecord{
		ID:              g.nextID("rec"),
		CreateTime:      ts,
		OperationType:   op,
		OperationClass:  class,
		RelatedEntityID: alert.EntityID,
		Operator:        "oncall",
		Content:         fmt.Sprintf("%s on %s", op, alert.Title),
	}
}

func (g *Generator) nextID(kind string) string {
	g.seq++
	return fmt.Sprintf("%s-%s-%d", g.cfg.IDPrefix, kind, g.seq)
}

// QuickIncident returns a default single-day incident.
func QuickIncident() *model.Incident {
	return NewDefault().SingleDay()
}

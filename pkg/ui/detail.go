package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/vanderheijden86/incidentline/pkg/model"
	"github.com/vanderheijden86/incidentline/pkg/timeline"
)

// detailMarkdown describes a selection as Markdown.
func detailMarkdown(sel timeline.Selection, now time.Time, loc *time.Location) string {
	var sb strings.Builder
	switch sel.Kind {
	case timeline.SelectRow:
		writeNodeDetail(&sb, sel.Node, now, loc)
	case timeline.SelectMarker:
		writeRecordsDetail(&sb, sel.Records, loc)
	}
	if len(sel.Actions) > 0 {
		sb.WriteString("\n**Actions:** ")
		labels := make([]string, len(sel.Actions))
		for i, a := range sel.Actions {
			labels[i] = a.Label()
		}
		sb.WriteString(strings.Join(labels, ", "))
		sb.WriteString("\n")
	}
	return sb.String()
}

func writeNodeDetail(sb *strings.Builder, n *model.AggregationNode, now time.Time, loc *time.Location) {
	if n == nil {
		sb.WriteString("_nothing selected_\n")
		return
	}
	title := n.Title
	if title == "" {
		title = n.ID
	}
	fmt.Fprintf(sb, "## %s\n\n", title)
	sb.WriteString("| | |\n|---|---|\n")
	fmt.Fprintf(sb, "| ID | `%s` |\n", n.ID)
	fmt.Fprintf(sb, "| Level | %s |\n", n.LevelName)
	fmt.Fprintf(sb, "| Status | %s |\n", n.Status)
	begin := time.Unix(n.BeginTime, 0).In(loc)
	fmt.Fprintf(sb, "| Began | %s |\n", begin.Format("2006-01-02 15:04:05"))
	if n.EndTime != nil {
		end := time.Unix(*n.EndTime, 0).In(loc)
		fmt.Fprintf(sb, "| Ended | %s (%s) |\n", end.Format("2006-01-02 15:04:05"), FormatDuration(end.Sub(begin)))
	} else {
		fmt.Fprintf(sb, "| Ended | ongoing (%s) |\n", FormatDuration(now.Sub(begin)))
	}
	if n.EntityID != "" {
		fmt.Fprintf(sb, "| Entity | `%s` |\n", n.EntityID)
	}
	switch {
	case n.IsRoot:
		sb.WriteString("\n> Detected root cause\n")
	case n.IsFeedbackRoot:
		sb.WriteString("\n> Reported as root cause\n")
	}
	if n.HasChildren() {
		fmt.Fprintf(sb, "\n%d child alerts\n", len(n.Children))
	}
}

func writeRecordsDetail(sb *strings.Builder, recs []model.OperationRecord, loc *time.Location) {
	fmt.Fprintf(sb, "## %d operation records\n\n", len(recs))
	for _, r := range recs {
		ts := time.Unix(r.CreateTime, 0).In(loc).Format("15:04:05")
		who := r.Operator
		if who == "" {
			who = string(r.OperationClass)
		}
		fmt.Fprintf(sb, "- `%s` **%s** by %s", ts, r.OperationType, who)
		if r.Content != "" {
			fmt.Fprintf(sb, ": %s", r.Content)
		}
		sb.WriteString("\n")
	}
}

// detailRenderer renders detail Markdown for the terminal, recreating the
// glamour renderer only when the wrap width changes.
type detailRenderer struct {
	width int
	r     *glamour.TermRenderer
}

func (d *detailRenderer) render(md string, width int) string {
	if width < 20 {
		width = 20
	}
	if d.r == nil || d.width != width {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return md
		}
		d.r, d.width = r, width
	}
	out, err := d.r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimSpace(out)
}

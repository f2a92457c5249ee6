package tui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"lbt/internal/build"
	"lbt/internal/framework"
)

// BuildColumns is the table layout used by `lbt build`.
var BuildColumns = []Column{
	{Header: "FRAMEWORK", Width: 9},
	{Header: "TARGET", Width: 8},
	{Header: "STAGE", Width: 10},
	{Header: "STATUS", Width: 9},
	{Header: "DETAIL", Width: 48},
}

// RowKey identifies a build table row.
func RowKey(fw framework.Framework, target framework.Target) string {
	return string(fw) + "/" + string(target)
}

// AddBuildRows pre-populates one pending row per target.
func AddBuildRows(m *ProgressModel, fw framework.Framework, targets []framework.Target) {
	for _, t := range targets {
		m.AddRow(RowKey(fw, t), []string{string(fw), string(t), "-", StatusPending, ""})
	}
}

// ResultStatus summarizes a build result as a row status.
func ResultStatus(res build.Result) string {
	switch {
	case res.Err == nil:
		return StatusBuilt
	case res.Archive != "":
		return StatusPartial
	default:
		return StatusFailed
	}
}

// ResultDetail is the archive path on success, otherwise the first line of
// the error.
func ResultDetail(res build.Result) string {
	if res.Err == nil {
		return res.Archive
	}
	msg := res.Err.Error()
	if idx := strings.IndexByte(msg, '\n'); idx >= 0 {
		msg = msg[:idx]
	}
	return msg
}

// BuildReporter forwards build.Reporter events to a bubbletea program.
type BuildReporter struct {
	fw   framework.Framework
	send func(tea.Msg)
}

// NewBuildReporter returns a reporter for builds of fw.
func NewBuildReporter(fw framework.Framework, send func(tea.Msg)) *BuildReporter {
	return &BuildReporter{fw: fw, send: send}
}

// Stage implements build.Reporter.
func (r *BuildReporter) Stage(target framework.Target, stage string) {
	r.send(RowUpdateMsg{
		Key:    RowKey(r.fw, target),
		Fields: map[string]string{"STAGE": stage, "STATUS": StatusRunning},
	})
}

// Finish implements build.Reporter.
func (r *BuildReporter) Finish(res build.Result) {
	r.send(RowUpdateMsg{
		Key: RowKey(r.fw, res.Target),
		Fields: map[string]string{
			"STAGE":  "done",
			"STATUS": ResultStatus(res),
			"DETAIL": ResultDetail(res),
		},
	})
}

// PlainReporter prints one line per stage and per finished target.
type PlainReporter struct {
	mu sync.Mutex
	w  io.Writer
	fw framework.Framework
}

// NewPlainReporter writes progress for builds of fw to w.
func NewPlainReporter(w io.Writer, fw framework.Framework) *PlainReporter {
	return &PlainReporter{w: w, fw: fw}
}

// Stage implements build.Reporter.
func (r *PlainReporter) Stage(target framework.Target, stage string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.w, "[%s/%s] %s\n", r.fw, target, stage)
}

// Finish implements build.Reporter.
func (r *PlainReporter) Finish(res build.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.w, "[%s/%s] %s %s\n", r.fw, res.Target, ResultStatus(res), NonEmptyOrDash(ResultDetail(res)))
}

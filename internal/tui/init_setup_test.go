package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"

	"lbt/internal/framework"
)

func press(m initSetupModel, keys ...tea.KeyMsg) initSetupModel {
	for _, k := range keys {
		updated, _ := m.Update(k)
		m = updated.(initSetupModel)
	}
	return m
}

var (
	keyDown  = tea.KeyMsg{Type: tea.KeyDown}
	keyRight = tea.KeyMsg{Type: tea.KeyRight}
	keyLeft  = tea.KeyMsg{Type: tea.KeyLeft}
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyEsc   = tea.KeyMsg{Type: tea.KeyEsc}
)

func TestInitSetupDefaults(t *testing.T) {
	m := press(newInitSetupModel(framework.Love), keyEnter)
	want := InitSetupResult{Framework: framework.Love, Version: "11.5", Format: "toml"}
	if diff := cmp.Diff(want, m.result()); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestInitSetupSwitchFrameworkUpdatesVersions(t *testing.T) {
	m := press(newInitSetupModel(framework.Love), keyRight)
	if got := m.rows[rowFramework].value(); got != "lovr" {
		t.Fatalf("expected lovr, got %s", got)
	}
	if diff := cmp.Diff([]string{"0.17.0", "0.15.0"}, m.rows[rowVersion].options); diff != "" {
		t.Fatalf("versions (-want +got):\n%s", diff)
	}
}

func TestInitSetupTargetsAndFormat(t *testing.T) {
	m := newInitSetupModel(framework.Love)
	m = press(m, keyDown, keyRight, keyDown, keyLeft, keyDown, keyRight, keyEnter)

	res := m.result()
	if res.Version != "11.0" {
		t.Fatalf("expected minimum version, got %s", res.Version)
	}
	if diff := cmp.Diff([]framework.Target{framework.TargetWin64, framework.TargetLinux}, res.Targets); diff != "" {
		t.Fatalf("targets (-want +got):\n%s", diff)
	}
	if res.Format != "yaml" {
		t.Fatalf("expected yaml, got %s", res.Format)
	}
}

func TestInitSetupCancel(t *testing.T) {
	m := press(newInitSetupModel(framework.Love), keyEsc)
	if !m.result().Cancelled {
		t.Fatal("expected cancelled result")
	}
	if !strings.Contains(m.View(), "cancelled") {
		t.Fatal("expected cancelled view")
	}
}

func TestInitSetupHintFollowsFocus(t *testing.T) {
	m := newInitSetupModel(framework.Lovr)
	if !strings.Contains(m.View(), "bjornbytes/lovr") {
		t.Fatalf("expected repo hint:\n%s", m.View())
	}
}

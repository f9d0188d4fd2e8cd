package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitAndLevelString(t *testing.T) {
	defer Init("info")
	Init("debug")
	if got := LevelString(); got != "debug" {
		t.Fatalf("LevelString() = %q, want %q", got, "debug")
	}
	Init("WARN")
	if got := LevelString(); got != "warn" {
		t.Fatalf("LevelString() = %q, want %q", got, "warn")
	}
	Init("Error")
	if got := LevelString(); got != "error" {
		t.Fatalf("LevelString() = %q, want %q", got, "error")
	}
	Init("nonsense")
	if got := LevelString(); got != "info" {
		t.Fatalf("LevelString() = %q, want %q for unknown input", got, "info")
	}
}

func TestLevelFilteringAndPrintln(t *testing.T) {
	core, logs := observer.New(Level())
	restore := SetLogger(zap.New(core))
	defer restore()
	defer Init("info")

	Init("warn")
	Debugf("debug-msg")
	Infof("info-msg")
	Warnf("warn-msg")
	Errorf("error-msg")

	if n := logs.FilterMessage("debug-msg").Len(); n != 0 {
		t.Fatalf("debug messages should be suppressed at warn level")
	}
	if n := logs.FilterMessage("info-msg").Len(); n != 0 {
		t.Fatalf("info messages should be suppressed at warn level")
	}
	if logs.FilterMessage("warn-msg").Len() != 1 {
		t.Fatalf("warn message missing: %v", logs.All())
	}
	if logs.FilterMessage("error-msg").Len() != 1 {
		t.Fatalf("error message missing: %v", logs.All())
	}

	Println("hello")
	if logs.FilterMessage("hello").Len() != 0 {
		t.Fatalf("Println should be suppressed at warn level")
	}

	Init("info")
	Println("hello")
	if logs.FilterMessage("hello").Len() != 1 {
		t.Fatalf("Println expected at info level, got: %v", logs.All())
	}
}

func TestInfowCarriesFields(t *testing.T) {
	core, logs := observer.New(Level())
	restore := SetLogger(zap.New(core))
	defer restore()

	Infow("request", "status", 201, "route", "/api/projects")
	entries := logs.FilterMessage("request").All()
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["route"] != "/api/projects" {
		t.Fatalf("unexpected fields: %v", fields)
	}
}

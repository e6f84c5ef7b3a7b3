package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Format(t *testing.T) {
	err := New(CodeMissingColumn, "required column not found").
		WithContext("column", "case").
		WithContext("available", []string{"a", "b"})

	got := err.Error()
	want := "[E104] required column not found (available=[a b], column=case)"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestWrap_Cause(t *testing.T) {
	if Wrap(nil, CodeParseFailed, "x") != nil {
		t.Fatal("Expected nil when wrapping nil")
	}

	err := Wrapf(context.Canceled, CodeContextCanceled, "reading %s", "log.xes")
	if !errors.Is(err, context.Canceled) {
		t.Error("Expected wrapped error to match context.Canceled")
	}
	if !strings.HasSuffix(err.Error(), ": context canceled") {
		t.Errorf("Expected cause in message, got %q", err.Error())
	}
	if len(err.StackTrace) == 0 {
		t.Error("Expected captured stack")
	}
}

func TestCodes(t *testing.T) {
	base := InvalidConfig("discovery.patterns", "bogus", "unknown pattern kind")
	wrapped := fmt.Errorf("loading: %w", base)

	if !IsCode(wrapped, CodeInvalidConfig) {
		t.Error("Expected IsCode to see through fmt wrapping")
	}
	if GetCode(wrapped) != CodeInvalidConfig {
		t.Errorf("Expected %s, got %s", CodeInvalidConfig, GetCode(wrapped))
	}
	if GetCode(errors.New("plain")) != CodeUnknown {
		t.Error("Expected CodeUnknown for plain errors")
	}
	if !errors.Is(wrapped, New(CodeInvalidConfig, "other")) {
		t.Error("Expected errors.Is to match by code")
	}
	if IsRetryable(base) {
		t.Error("Config errors are not retryable")
	}
}

func TestMultiError(t *testing.T) {
	var m MultiError
	if m.Combined() != nil {
		t.Fatal("Expected nil for empty MultiError")
	}

	m.Add(nil)
	m.Add(FileNotFound("a.xes"))
	if m.Combined() != m.Errors[0] {
		t.Error("Expected single error to be returned as-is")
	}

	m.Add(InvalidConfig("relog.undefined", "x", "unknown strategy"))
	if !m.HasErrors() || len(m.Errors) != 2 {
		t.Fatalf("Expected 2 errors, got %d", len(m.Errors))
	}
	combined := m.Combined()
	if !strings.HasPrefix(combined.Error(), "2 errors occurred") {
		t.Errorf("Unexpected message %q", combined.Error())
	}
	if !IsCode(combined, CodeFileNotFound) {
		t.Error("Expected errors.As to reach collected errors")
	}
}

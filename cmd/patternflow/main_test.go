package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/logflow/patternflow/internal/model"
	"github.com/logflow/patternflow/pkg/config"
	"github.com/logflow/patternflow/pkg/discovery"
	pferrors "github.com/logflow/patternflow/pkg/errors"
	"github.com/logflow/patternflow/pkg/patterns"
)

func setupTest(t *testing.T) {
	t.Helper()
	cfg = config.Default()
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	formatFlag = ""
	verbose = false
}

func namesLog(traces ...string) *model.Log {
	raw := make([][]string, len(traces))
	for i, tr := range traces {
		for _, r := range tr {
			raw[i] = append(raw[i], string(r))
		}
	}
	return model.NewLogFromNames(raw)
}

func TestPrintPatterns_Tandem(t *testing.T) {
	setupTest(t)
	opts := discovery.DefaultOptions()

	var buf bytes.Buffer
	if err := printPatterns(context.Background(), &buf, namesLog("abababc"), opts, 0); err != nil {
		t.Fatalf("printPatterns failed: %v", err)
	}
	want := "0: (a b)x3@0 (b a)x2@1\n"
	if buf.String() != want {
		t.Errorf("Expected %q, got %q", want, buf.String())
	}
}

func TestPrintPatterns_RepeatsLimit(t *testing.T) {
	setupTest(t)
	opts := discovery.DefaultOptions()
	opts.Patterns = patterns.MaximalRepeats

	var buf bytes.Buffer
	if err := printPatterns(context.Background(), &buf, namesLog("gdabcfiabc", "xyz"), opts, 1); err != nil {
		t.Fatalf("printPatterns failed: %v", err)
	}
	want := "0: (a b c)@2\n... 1 more traces\n"
	if buf.String() != want {
		t.Errorf("Expected %q, got %q", want, buf.String())
	}
}

func TestWriteJSON(t *testing.T) {
	setupTest(t)
	log := namesLog("gdabcabcabcabcafica")
	res, err := discovery.Discover(context.Background(), log, discovery.DefaultOptions())
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}

	var buf bytes.Buffer
	if err := writeJSON(&buf, log, res); err != nil {
		t.Fatalf("writeJSON failed: %v", err)
	}

	var doc jsonResult
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if doc.Traces != 1 || doc.Events != 19 {
		t.Errorf("Expected 1 trace and 19 events, got %d and %d", doc.Traces, doc.Events)
	}
	if len(doc.Activities) != 1 || doc.Activities[0].Name != "abc" || doc.Activities[0].Classes != 3 {
		t.Fatalf("Unexpected activities %+v", doc.Activities)
	}
	if doc.Activities[0].Instances != 2 {
		t.Errorf("Expected 2 instances, got %d", doc.Activities[0].Instances)
	}
	got := doc.Segmentation[0].Instances
	if len(got) != 2 || got[0].Start != 2 || got[0].Length != 13 || got[1].Start != 17 || got[1].Length != 2 {
		t.Errorf("Unexpected segmentation %+v", got)
	}
	if want := 15.0 / 19.0; doc.EventCoverage != want {
		t.Errorf("Expected coverage %f, got %f", want, doc.EventCoverage)
	}
}

func TestLoadLog_CSV(t *testing.T) {
	setupTest(t)
	cfg.Input.CaseColumn = "case"
	cfg.Input.ActivityColumn = "activity"

	path := filepath.Join(t.TempDir(), "log.csv")
	body := "case,activity\n1,a\n1,b\n2,c\n1,a\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write log: %v", err)
	}

	log, err := loadLog(context.Background(), path)
	if err != nil {
		t.Fatalf("loadLog failed: %v", err)
	}
	if len(log.Traces) != 2 || len(log.Traces[0].Events) != 3 {
		t.Fatalf("Expected traces of 3 and 1 events, got %d traces", len(log.Traces))
	}
	if log.Traces[0].CaseID != "1" || log.Traces[0].Events[2].Name() != "a" {
		t.Errorf("Unexpected first trace %+v", log.Traces[0])
	}
}

func TestLoadLog_Errors(t *testing.T) {
	setupTest(t)
	dir := t.TempDir()

	if _, err := loadLog(context.Background(), filepath.Join(dir, "log.txt")); err == nil {
		t.Error("Expected error for unknown format")
	}
	if _, err := loadLog(context.Background(), filepath.Join(dir, "missing.xes")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func writeLog(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write log: %v", err)
	}
	return path
}

func TestLoadLog_MissingColumn(t *testing.T) {
	setupTest(t)
	path := writeLog(t, "log.csv", "case,step\n1,a\n1,b\n")

	_, err := loadLog(context.Background(), path)
	if !pferrors.IsCode(err, pferrors.CodeMissingColumn) {
		t.Fatalf("Expected %s, got %v", pferrors.CodeMissingColumn, err)
	}

	var pfErr *pferrors.Error
	if !errors.As(err, &pfErr) {
		t.Fatalf("Expected *errors.Error, got %T", err)
	}
	if col := pfErr.Context["column"]; col != "concept:name" {
		t.Errorf("Expected missing concept:name, got %v", col)
	}
	if got, ok := pfErr.Context["available"].([]string); !ok || !reflect.DeepEqual(got, []string{"case", "step"}) {
		t.Errorf("Expected available [case step], got %v", pfErr.Context["available"])
	}
}

func TestLoadLog_Canceled(t *testing.T) {
	setupTest(t)
	path := writeLog(t, "log.csv", "case,activity\n1,a\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := loadLog(ctx, path)
	if !pferrors.IsCode(err, pferrors.CodeContextCanceled) {
		t.Errorf("Expected %s, got %v", pferrors.CodeContextCanceled, err)
	}
}

func TestLoadLog_ParseFailed(t *testing.T) {
	setupTest(t)
	path := writeLog(t, "log.csv", "")

	_, err := loadLog(context.Background(), path)
	if !pferrors.IsCode(err, pferrors.CodeParseFailed) {
		t.Errorf("Expected %s, got %v", pferrors.CodeParseFailed, err)
	}
}

func TestWriteEvents_Relogged(t *testing.T) {
	setupTest(t)
	log := namesLog("gdabcabcabcabcafica")
	res, err := discovery.Discover(context.Background(), log, discovery.DefaultOptions())
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	relogged := discovery.Relog(log, res.Forest, res.Instances, discovery.RelogOptions{})

	path := filepath.Join(t.TempDir(), "out", "relog.parquet")
	if err := writeEvents(context.Background(), cfg, relogged, path); err != nil {
		t.Fatalf("writeEvents failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Expected output file: %v", err)
	}
	if info.Size() == 0 {
		t.Error("Expected non-empty parquet file")
	}
}

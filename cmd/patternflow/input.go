package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/logflow/patternflow/internal/model"
	pferrors "github.com/logflow/patternflow/pkg/errors"
	"github.com/logflow/patternflow/pkg/parser"
	"github.com/logflow/patternflow/pkg/storage"
	"github.com/logflow/patternflow/pkg/tui"
)

// Input flags shared by every command that reads a log.
var (
	inputFile  string
	formatFlag string
	sortEvents bool
)

// loadLog reads the whole log at path. The format comes from --format,
// then from the configuration, then from the file extension.
func loadLog(ctx context.Context, path string) (*model.Log, error) {
	format := detectFormat(path)
	if format == parser.FormatUnknown {
		return nil, pferrors.New(pferrors.CodeInvalidFormat, "unable to detect input format, please specify with --format").
			WithContext("path", path)
	}

	p, err := parser.NewParser(format, cfg.ParserConfig())
	if err != nil {
		return nil, err
	}

	r, size, err := storage.OpenReader(ctx, path, cfg.StorageOptions())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, pferrors.FileNotFound(path)
		}
		return nil, pferrors.Wrap(err, pferrors.CodeFilePermission, "failed to open input").
			WithContext("path", path)
	}
	defer r.Close()

	logger.Debug("reading log", "path", path, "format", format.String(), "size", size)

	opts := parser.ReadOptions{SortByTimestamp: sortEvents}
	if verbose {
		bar := tui.ShowProgress(os.Stderr, -1, "reading "+format.String())
		opts.OnEvent = func(int) { bar.Add(1) }
		defer bar.Finish()
	}

	started := time.Now()
	log, err := parser.ReadLog(ctx, p, r, opts)
	if err != nil {
		return nil, readError(ctx, path, err)
	}

	logger.Info("log loaded",
		"path", path,
		"traces", len(log.Traces),
		"events", log.EventCount(),
		"elapsed", time.Since(started))
	return log, nil
}

// readError maps parser failures onto coded errors.
func readError(ctx context.Context, path string, err error) error {
	var colErr *parser.ColumnError
	switch {
	case ctx.Err() != nil || errors.Is(err, context.Canceled):
		return pferrors.ContextCanceled("read").WithContext("path", path)
	case errors.As(err, &colErr):
		return pferrors.MissingColumn(colErr.Column, colErr.Available).WithContext("path", path)
	default:
		return pferrors.Wrapf(err, pferrors.CodeParseFailed, "failed to read %s", path)
	}
}

func detectFormat(path string) parser.Format {
	if formatFlag != "" {
		return parser.ParseFormat(formatFlag)
	}
	if cfg.Input.Format != "" {
		return parser.ParseFormat(cfg.Input.Format)
	}
	return parser.DetectFormat(path)
}

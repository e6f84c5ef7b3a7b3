package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/logflow/patternflow/internal/model"
	"github.com/logflow/patternflow/pkg/discovery"
	"github.com/logflow/patternflow/pkg/eventclass"
	"github.com/logflow/patternflow/pkg/patterns"
)

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Print the raw patterns found in every trace",
	Long: `Mine patterns without building activities. Tandem arrays are printed
with their first period and repeat count; repeats with their span.

Examples:
  patternflow patterns -i log.xes --patterns mta --max-period 4
  patternflow patterns -i log.csv --patterns smr --strategy merged`,
	RunE: runPatterns,
}

func init() {
	addInputFlags(patternsCmd)
	addDiscoveryFlags(patternsCmd)
	patternsCmd.Flags().IntVar(&traceLimit, "limit", 20, "Number of traces to print (0 prints all)")
}

func runPatterns(cmd *cobra.Command, args []string) error {
	c, err := effectiveConfig(cmd)
	if err != nil {
		return err
	}
	opts, err := discoveryOptions(c)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	log, err := loadLog(ctx, inputFile)
	if err != nil {
		return err
	}
	return printPatterns(ctx, os.Stdout, log, opts, traceLimit)
}

func printPatterns(ctx context.Context, w io.Writer, log *model.Log, opts discovery.Options, limit int) error {
	hashed := eventclass.HashLog(log, opts.Extractor)
	popts := patterns.Options{
		Kind:            opts.Patterns,
		Strategy:        opts.Strategy,
		MaxTandemPeriod: opts.MaxTandemPeriod,
		Workers:         opts.Workers,
		Logger:          opts.Logger,
	}

	n := len(log.Traces)
	if limit > 0 && limit < n {
		n = limit
	}

	if opts.Patterns.IsTandem() {
		found, err := patterns.FindTandem(ctx, hashed, popts)
		if err != nil {
			return err
		}
		for t := 0; t < n; t++ {
			parts := make([]string, 0, len(found[t]))
			for _, a := range found[t] {
				parts = append(parts, fmt.Sprintf("(%s)x%d@%d", spanText(log.Traces[t], a.Span), a.RepeatCount, a.Start))
			}
			fmt.Fprintf(w, "%s: %s\n", log.Traces[t].CaseID, strings.Join(parts, " "))
		}
	} else {
		found, err := patterns.Find(ctx, hashed, popts)
		if err != nil {
			return err
		}
		for t := 0; t < n; t++ {
			parts := make([]string, 0, len(found[t]))
			for _, s := range found[t] {
				parts = append(parts, fmt.Sprintf("(%s)@%d", spanText(log.Traces[t], s), s.Start))
			}
			fmt.Fprintf(w, "%s: %s\n", log.Traces[t].CaseID, strings.Join(parts, " "))
		}
	}

	if n < len(log.Traces) {
		fmt.Fprintf(w, "... %d more traces\n", len(log.Traces)-n)
	}
	return nil
}

func spanText(tr *model.Trace, s patterns.Span) string {
	names := make([]string, s.Length)
	for i := range names {
		names[i] = tr.Events[s.Start+i].Name()
	}
	return strings.Join(names, " ")
}

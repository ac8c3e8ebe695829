package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/aledsdavies/operon/core/dispatch"
	"github.com/aledsdavies/operon/internal/config"
	"github.com/aledsdavies/operon/runtime/document"
	"github.com/aledsdavies/operon/runtime/evaluator"
	"github.com/aledsdavies/operon/runtime/operators"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/cobra"
)

type evalFlags struct {
	format   string
	policy   string
	parallel int
	strict   bool
	watch    bool
	stats    bool
}

func newEvalCmd(a *app) *cobra.Command {
	var f evalFlags

	cmd := &cobra.Command{
		Use:   "eval [file]",
		Short: "Evaluate the operator nodes of a YAML or JSON document",
		Long: `Evaluate every operator node ({"_operator.method": params}) of a document
bottom-up and print the resulting document. Reads stdin when file is "-" or
omitted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}

			cfg, err := resolveConfig(cmd, a, &f)
			if err != nil {
				return err
			}
			s, err := newSession(cmd, a, cfg)
			if err != nil {
				return err
			}

			if f.watch {
				return s.watch(cmd.Context(), path)
			}
			err = s.evaluate(cmd.Context(), path)
			if f.stats {
				s.printStats()
			}
			return err
		},
	}

	cmd.Flags().StringVar(&f.format, "format", config.FormatYAML, "Output format: yaml or json")
	cmd.Flags().StringVar(&f.policy, "policy", evaluator.FailFast.String(), "Failure policy: fail-fast or collect")
	cmd.Flags().IntVar(&f.parallel, "parallel", 1, "Evaluate top-level entries with up to N workers")
	cmd.Flags().BoolVar(&f.strict, "strict", false, "Treat every _-prefixed single-key mapping as an operator node")
	cmd.Flags().BoolVar(&f.watch, "watch", false, "Re-evaluate whenever the file changes")
	cmd.Flags().BoolVar(&f.stats, "stats", false, "Print dispatch metrics to stderr")
	return cmd
}

// resolveConfig layers flags that were set explicitly over the loaded config.
func resolveConfig(cmd *cobra.Command, a *app, f *evalFlags) (config.Config, error) {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return config.Config{}, &CLIError{Type: "config", Message: "invalid configuration", Details: err.Error(), Err: err}
	}

	flags := cmd.Flags()
	if flags.Changed("format") {
		cfg.Format = strings.ToLower(f.format)
	}
	if flags.Changed("policy") {
		p, err := evaluator.ParsePolicy(f.policy)
		if err != nil {
			return config.Config{}, &CLIError{Type: "config", Message: err.Error(), Err: err}
		}
		cfg.Policy = p
	}
	if flags.Changed("parallel") {
		cfg.Parallelism = f.parallel
	}
	if flags.Changed("strict") {
		cfg.Strict = f.strict
	}
	if a.debug {
		cfg.Debug = true
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, &CLIError{Type: "config", Message: "invalid configuration", Details: err.Error(), Err: err}
	}
	return cfg, nil
}

// session is one configured engine plus the streams of the running command.
type session struct {
	cfg      config.Config
	logger   *slog.Logger
	metrics  *prometheus.Registry
	ev       *evaluator.Evaluator
	in       io.Reader
	out      io.Writer
	errOut   io.Writer
	useColor bool
}

func newSession(cmd *cobra.Command, a *app, cfg config.Config) (*session, error) {
	logger := newLogger(cmd.ErrOrStderr(), cfg.Debug)

	registry := prometheus.NewRegistry()
	metrics, err := dispatch.NewMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	engine, err := operators.NewEngine(
		dispatch.WithLogger(logger),
		dispatch.WithMetrics(metrics),
		dispatch.WithCache(cfg.CacheSize),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build engine: %w", err)
	}

	return &session{
		cfg:      cfg,
		logger:   logger,
		metrics:  registry,
		ev:       evaluator.New(engine, nil, cfg.Evaluator(), logger),
		in:       cmd.InOrStdin(),
		out:      cmd.OutOrStdout(),
		errOut:   cmd.ErrOrStderr(),
		useColor: ShouldUseColor(a.noColor, cmd.ErrOrStderr()),
	}, nil
}

func (s *session) read(path string) ([]byte, string, error) {
	if path == "-" {
		data, err := io.ReadAll(s.in)
		if err != nil {
			return nil, "", &CLIError{Type: "input", Message: "failed to read stdin", Details: err.Error(), Err: err}
		}
		return data, "<stdin>", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", &CLIError{Type: "input", Message: fmt.Sprintf("error opening file %s", path), Details: err.Error(), Err: err}
	}
	return data, path, nil
}

// evaluate runs one document. Output is written even when CollectAll
// recorded failures; the diagnostics go to stderr.
func (s *session) evaluate(ctx context.Context, path string) error {
	src, name, err := s.read(path)
	if err != nil {
		return err
	}

	doc, err := document.Decode(bytes.NewReader(src))
	if err != nil {
		return &CLIError{Type: "parse", Message: fmt.Sprintf("cannot parse %s", name), Details: err.Error(), Err: err}
	}

	res, err := s.ev.Evaluate(ctx, doc.Root)
	if err != nil {
		var derr *dispatch.DispatchError
		if errors.As(err, &derr) {
			writeDiagnostic(s.errOut, name, doc, derr, s.useColor)
			return &CLIError{
				Type:    "evaluation",
				Message: "evaluation failed",
				Hint:    "use --policy collect to report every failing node",
				Err:     derr,
			}
		}
		return err
	}

	if err := s.write(res.Value); err != nil {
		return err
	}

	for _, derr := range res.Errors {
		writeDiagnostic(s.errOut, name, doc, derr, s.useColor)
	}
	if n := res.Errors.Len(); n > 0 {
		noun := "call"
		if n > 1 {
			noun = "calls"
		}
		return &CLIError{Type: "evaluation", Message: fmt.Sprintf("%d operator %s failed", n, noun), Err: res.Errors}
	}
	return nil
}

func (s *session) write(v any) error {
	switch s.cfg.Format {
	case config.FormatJSON:
		return document.EncodeJSON(s.out, v)
	default:
		return document.EncodeYAML(s.out, v)
	}
}

// printStats writes call counters and timings, one series per line.
func (s *session) printStats() {
	families, err := s.metrics.Gather()
	if err != nil {
		s.logger.Error("failed to gather metrics", "error", err)
		return
	}

	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			series := mf.GetName() + formatLabels(m.GetLabel())
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				_, _ = fmt.Fprintf(s.errOut, "%s %g\n", series, m.GetCounter().GetValue())
			case dto.MetricType_HISTOGRAM:
				h := m.GetHistogram()
				_, _ = fmt.Fprintf(s.errOut, "%s count=%d sum=%gs\n", series, h.GetSampleCount(), h.GetSampleSum())
			}
		}
	}
}

func formatLabels(pairs []*dto.LabelPair) string {
	if len(pairs) == 0 {
		return ""
	}
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = fmt.Sprintf("%s=%q", p.GetName(), p.GetValue())
	}
	sort.Strings(parts)
	return "{" + strings.Join(parts, ",") + "}"
}

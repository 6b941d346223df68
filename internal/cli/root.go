// SPDX-License-Identifier: Apache-2.0

// Package cli implements the jsonmerge command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sam-fredrickson/jsonmerge"
	"github.com/sam-fredrickson/jsonmerge/internal/audit"
)

// Version is reported by --version. It is set by the main package at startup.
var Version = "dev"

const (
	flagUnion      = "extend-as-array-union"
	flagStructural = "structural-equality"
	flagJWCC       = "jwcc"
	flagDryRun     = "dry-run"
	flagDebug      = "debug"
	keyAudit       = "audit"
)

type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return fmt.Sprintf("exit code %d", e.code)
}

func (e *exitError) Unwrap() error {
	return e.err
}

func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// newConfig returns a viper instance reading JSONMERGE_* environment variables.
func newConfig() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("JSONMERGE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	v := newConfig()

	root := &cobra.Command{
		Use:   "jsonmerge [flags] MAIN UPDATE",
		Short: "Deep-merge an update JSON document into a main JSON document",
		Long: `jsonmerge deep-merges UPDATE into MAIN and overwrites MAIN with the result.

Objects are merged key by key and UPDATE wins every conflict. Arrays are replaced,
except at the dotted key paths given with --extend-as-array-union, where the
arrays are combined into a deduplicated union (MAIN's elements first).

YAML (.yaml, .yml) and TOML (.toml) documents are also accepted; the output
uses MAIN's format.`,
		Example: `  # deep merge
  jsonmerge settings.json settings.local.json

  # keep plugins from both documents
  jsonmerge -a plugins.enabled -a plugins.paths settings.json extra.json`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				return &exitError{code: 2, err: fmt.Errorf("expected MAIN and UPDATE paths, got %d argument(s)", len(args))}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoot(cmd, v, args, stdout, stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &exitError{code: 2, err: err}
	})

	flags := root.Flags()
	flags.StringArrayP(flagUnion, "a", nil, "dotted key path of an array to merge by union (repeatable)")
	flags.Bool(flagStructural, false, "ignore object key order when comparing union elements")
	flags.Bool(flagJWCC, false, "accept comments and trailing commas in JSON input")
	flags.Bool(flagDryRun, false, "print the merged document instead of writing MAIN")
	flags.Bool(flagDebug, false, "enable debug logging")
	_ = v.BindPFlags(flags)

	root.AddCommand(newHistoryCmd(stdout))

	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "jsonmerge: %v\n", err)
		var ee *exitError
		if errors.As(err, &ee) {
			if ee.code == 2 {
				fmt.Fprintf(stderr, "usage: %s\n", cmd.UseLine())
			}
			return ee.code
		}
		return 1
	}
	return 0
}

func runRoot(cmd *cobra.Command, v *viper.Viper, args []string, stdout, stderr io.Writer) error {
	logger := newLogger(stderr, v.GetBool(flagDebug))

	unionPaths, err := unionPathsFrom(cmd, v)
	if err != nil {
		return err
	}

	opts := runOptions{
		mainPath:   args[0],
		updatePath: args[1],
		unionPaths: unionPaths,
		jwcc:       v.GetBool(flagJWCC),
		dryRun:     v.GetBool(flagDryRun),
	}
	if v.GetBool(flagStructural) {
		opts.equality = jsonmerge.EqualityStructural
	}

	var auditor audit.Auditor
	if v.GetBool(keyAudit) {
		a, err := audit.Open(audit.DefaultDBPath())
		if err != nil {
			logger.Warn("failed to open audit db, continuing without audit", "err", err)
		} else {
			auditor = a
			defer a.Close()
		}
	}

	start := time.Now()
	err = run(cmd.Context(), opts, stdout, logger)

	entry := audit.Run{
		Timestamp:  start.UTC(),
		MainPath:   opts.mainPath,
		UpdatePath: opts.updatePath,
		UnionPaths: opts.unionPaths,
		Outcome:    audit.OutcomeMerged,
		DurationMs: time.Since(start).Milliseconds(),
	}
	switch {
	case err != nil:
		entry.Outcome = audit.OutcomeError
		entry.Error = err.Error()
	case opts.dryRun:
		entry.Outcome = audit.OutcomeDryRun
	}
	if auditor != nil {
		if recErr := auditor.Record(entry); recErr != nil {
			logger.Warn("failed to record audit entry", "err", recErr)
		}
	}

	return err
}

// unionPathsFrom returns the array-union paths. Each flag occurrence is one
// path taken verbatim, so a key containing a comma can still be named. Only
// JSONMERGE_EXTEND_AS_ARRAY_UNION is split into several paths.
func unionPathsFrom(cmd *cobra.Command, v *viper.Viper) ([]string, error) {
	if cmd.Flags().Changed(flagUnion) {
		return cmd.Flags().GetStringArray(flagUnion)
	}
	return splitPaths(v.GetStringSlice(flagUnion)), nil
}

// splitPaths flattens comma-separated environment entries. Viper already
// splits the value on whitespace.
func splitPaths(values []string) []string {
	var paths []string
	for _, value := range values {
		for _, p := range strings.Split(value, ",") {
			if p = strings.TrimSpace(p); p != "" {
				paths = append(paths, p)
			}
		}
	}
	return paths
}

func newHistoryCmd(stdout io.Writer) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent merge runs recorded with JSONMERGE_AUDIT=1",
		Long: `history prints the most recent merge runs, newest first.

A MAIN file literally named "history" is taken as this command; name it
./history to merge it.`,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) > 0 {
				return &exitError{code: 2, err: errors.New(
					"history takes no arguments; to merge a file named history, pass it as ./history")}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := audit.Open(audit.DefaultDBPath())
			if err != nil {
				return err
			}
			defer a.Close()
			runs, err := a.Recent(limit)
			if err != nil {
				return err
			}
			printRuns(stdout, runs)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	return cmd
}

func printRuns(w io.Writer, runs []audit.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No merge runs recorded.")
		return
	}
	for _, r := range runs {
		fmt.Fprintf(w, "%s  %-7s  %5dms  %s <- %s",
			r.Timestamp.Format(time.RFC3339), r.Outcome, r.DurationMs, r.MainPath, r.UpdatePath)
		if len(r.UnionPaths) > 0 {
			fmt.Fprintf(w, "  union=%s", strings.Join(r.UnionPaths, ","))
		}
		if r.Error != "" {
			fmt.Fprintf(w, "  error=%q", r.Error)
		}
		fmt.Fprintln(w)
	}
}

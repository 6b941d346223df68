// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/sam-fredrickson/jsonmerge"
	"github.com/sam-fredrickson/jsonmerge/internal/codec"
)

type runOptions struct {
	mainPath   string
	updatePath string
	unionPaths []string
	equality   jsonmerge.Equality
	jwcc       bool
	dryRun     bool
}

// run loads both documents, merges them and writes the result to the main path
// (or to stdout on a dry run). Nothing is written unless every step succeeds.
func run(ctx context.Context, opts runOptions, stdout io.Writer, logger *slog.Logger) error {
	merger, err := jsonmerge.NewMerger(jsonmerge.Options{
		ArrayUnionPaths: opts.unionPaths,
		Equality:        opts.equality,
	})
	if err != nil {
		return err
	}

	mainPath, err := filepath.Abs(opts.mainPath)
	if err != nil {
		return err
	}
	updatePath, err := filepath.Abs(opts.updatePath)
	if err != nil {
		return err
	}

	docs, err := load(ctx, opts.jwcc, mainPath, updatePath)
	if err != nil {
		return err
	}
	logger.Debug("loaded documents",
		"main", mainPath, "main_format", docs[0].format,
		"update", updatePath, "update_format", docs[1].format)

	merged, err := merger.Merge(docs[0].doc, docs[1].doc)
	if err != nil {
		return err
	}
	logger.Debug("merged documents", "union_paths", opts.unionPaths, "equality", opts.equality)

	outputFormat := docs[0].format
	marshaled, err := outputFormat.Marshal(merged)
	if err != nil {
		return fmt.Errorf("failed to marshal result as %s: %w", outputFormat, err)
	}

	if opts.dryRun {
		if !bytes.HasSuffix(marshaled, []byte("\n")) {
			marshaled = append(marshaled, '\n')
		}
		if _, err := stdout.Write(marshaled); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}

	if err := writeFileAtomic(mainPath, marshaled); err != nil {
		return fmt.Errorf("failed to write %s: %w", mainPath, err)
	}
	logger.Debug("wrote merged document", "path", mainPath, "bytes", len(marshaled))
	return nil
}

type loaded struct {
	doc    any
	format codec.Format
}

// load reads and decodes all paths concurrently. The first failure cancels the rest.
func load(ctx context.Context, jwcc bool, paths ...string) ([]loaded, error) {
	docs := make([]loaded, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			doc, format, err := codec.ReadFile(path, jwcc)
			if err != nil {
				if errors.Is(err, codec.ErrParse) {
					return err
				}
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			docs[i] = loaded{doc: doc, format: format}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}

// Package bundler runs the parse, collect, prune, merge and render pipeline.
package bundler

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/phpbundle/internal/bundle"
	"github.com/phobologic/phpbundle/internal/discover"
	"github.com/phobologic/phpbundle/internal/graph"
	"github.com/phobologic/phpbundle/internal/lang"
	"github.com/phobologic/phpbundle/internal/model"
	"github.com/phobologic/phpbundle/internal/parse"
	"github.com/phobologic/phpbundle/internal/prune"
	"github.com/phobologic/phpbundle/internal/render"
	"github.com/phobologic/phpbundle/internal/usage"
)

// Reader loads source files. *store.Store satisfies it.
type Reader interface {
	Read(ctx context.Context, location string) ([]byte, error)
}

// Options controls a bundling run.
type Options struct {
	// Keep lists names treated as used even without a call site.
	Keep []string
	// Strict fails the run when two files declare the same top-level name.
	Strict bool
	// Iterate repeats collection and pruning until nothing more is removed.
	Iterate bool
	// Workers bounds parse concurrency; 0 means GOMAXPROCS.
	Workers int
	Logger  *slog.Logger
}

// Result is everything a run produced.
type Result struct {
	// Parsed holds the trees before pruning, in discovery order.
	Parsed []*model.File
	// Files holds the pruned trees, in discovery order.
	Files   []*model.File
	Used    model.UsageSet
	Removed []model.Removal
	Passes  int
	Bundle  *model.Bundle
	Output  []byte
}

// Run bundles files found under root. Every file is parsed and its usages
// collected before any file is pruned, so no pruning decision depends on
// the order files are visited. A parse error aborts the run.
func Run(ctx context.Context, root string, files []discover.FileEntry, r Reader, opts Options) (*Result, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	parsed, names, err := parseFilesConcurrent(ctx, root, files, r, opts.Workers)
	if err != nil {
		return nil, err
	}

	// Barrier: the set is frozen only after every file contributed.
	collector := usage.NewCollector(opts.Keep...)
	for _, n := range names {
		collector.AddNames(n)
	}
	used := collector.Freeze()
	log.Debug("collected usages", "files", len(parsed), "names", used.Len())

	res := &Result{Parsed: parsed, Used: used, Passes: 1}
	res.Files, res.Removed = prune.All(parsed, used)
	log.Debug("pruned", "pass", 1, "removed", len(res.Removed))

	if opts.Iterate {
		removed := len(res.Removed)
		for removed > 0 {
			used = usage.Collect(res.Files, opts.Keep...)
			var more []model.Removal
			res.Files, more = prune.All(res.Files, used)
			res.Passes++
			res.Used = used
			res.Removed = append(res.Removed, more...)
			removed = len(more)
			log.Debug("pruned", "pass", res.Passes, "removed", removed)
		}
	}

	res.Bundle, err = bundle.Merge(res.Files, opts.Strict)
	if err != nil {
		return nil, err
	}
	log.Debug("merged", "files", len(res.Bundle.Files), "decls", len(bundle.Decls(res.Bundle)))
	res.Output = render.Bundle(res.Bundle)
	return res, nil
}

// Report summarizes the run for output.
func (r *Result) Report(output string) *model.Report {
	return &model.Report{
		Output:       output,
		Used:         r.Used.Len(),
		Files:        graph.Summarize(r.Parsed, r.Files),
		Removed:      r.Removed,
		Dependencies: graph.BuildGraph(r.Files),
	}
}

func parseFilesConcurrent(ctx context.Context, root string, files []discover.FileEntry, r Reader, workers int) ([]*model.File, [][]string, error) {
	type result struct {
		index int
		file  *model.File
		names []string
		err   error
	}

	numWorkers := workers
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	if numWorkers > len(files) {
		numWorkers = len(files)
	}

	work := make(chan int, len(files))
	results := make(chan result, len(files))

	var wg sync.WaitGroup

	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			// Each goroutine gets its own parser
			parsers := make(map[string]*parserPair)

			for idx := range work {
				f := files[idx]
				if err := ctx.Err(); err != nil {
					results <- result{index: idx, err: err}
					continue
				}
				pp, ok := parsers[f.Language]
				if !ok {
					l, known := lang.Languages[f.Language]
					if !known {
						results <- result{index: idx, err: fmt.Errorf("%s: unsupported language %q", f.Path, f.Language)}
						continue
					}
					q, err := l.GetCallQuery()
					if err != nil {
						results <- result{index: idx, err: fmt.Errorf("call query for %s: %w", f.Language, err)}
						continue
					}
					pp = &parserPair{lang: l, parser: l.NewParser(), query: q}
					parsers[f.Language] = pp
				}

				source, err := r.Read(ctx, filepath.Join(root, f.Path))
				if err != nil {
					results <- result{index: idx, err: err}
					continue
				}

				tree, err := parse.File(ctx, pp.lang, pp.parser, pp.query, source, f.Path)
				if err != nil {
					results <- result{index: idx, err: err}
					continue
				}
				results <- result{index: idx, file: tree, names: usage.Names(tree)}
			}
		}()
	}

	for i := range files {
		work <- i
	}
	close(work)

	go func() {
		wg.Wait()
		close(results)
	}()

	// Collect results in discovery order
	parsed := make([]*model.File, len(files))
	names := make([][]string, len(files))
	errs := make([]error, len(files))
	for res := range results {
		parsed[res.index] = res.file
		names[res.index] = res.names
		errs[res.index] = res.err
	}

	// Report the first failing file in discovery order.
	for _, err := range errs {
		if err != nil {
			return nil, nil, err
		}
	}
	return parsed, names, nil
}

type parserPair struct {
	lang   *lang.Language
	parser *sitter.Parser
	query  *sitter.Query
}

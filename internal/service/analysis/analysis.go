// Package analysis orchestrates toxicity runs: it discovers and loads issue
// reports, feeds them to an aggregator and caches the resulting snapshots.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/panbanda/toxicity/internal/cache"
	"github.com/panbanda/toxicity/internal/fileproc"
	"github.com/panbanda/toxicity/internal/scanner"
	"github.com/panbanda/toxicity/internal/vcs"
	"github.com/panbanda/toxicity/pkg/analyzer/toxicity"
	"github.com/panbanda/toxicity/pkg/config"
	"github.com/panbanda/toxicity/pkg/models"
	"github.com/panbanda/toxicity/pkg/report"
	"github.com/panbanda/toxicity/pkg/source"
	"github.com/sourcegraph/conc/pool"
)

// ErrNoReports is returned when the given paths contain no report files.
var ErrNoReports = errors.New("no reports found")

// Service orchestrates toxicity analysis operations.
type Service struct {
	config  *config.Config
	opener  vcs.Opener
	cache   *cache.Cache
	logger  *slog.Logger
	repoDir string
}

// Option configures a Service.
type Option func(*Service)

// WithConfig sets the configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		s.config = cfg
	}
}

// WithOpener sets the VCS opener.
func WithOpener(opener vcs.Opener) Option {
	return func(s *Service) {
		s.opener = opener
	}
}

// WithCache enables snapshot caching.
func WithCache(c *cache.Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithLogger sets the base logger. The service and the aggregators it
// creates derive component loggers from it.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRepoDir sets the directory used to find the repository for reads at a
// revision, and the base for relative paths in that mode. Defaults to the
// working directory.
func WithRepoDir(dir string) Option {
	return func(s *Service) {
		s.repoDir = dir
	}
}

// New creates a new analysis service.
func New(opts ...Option) *Service {
	s := &Service{
		config: config.LoadOrDefault(),
		opener: vcs.DefaultOpener(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Options configures a single run.
type Options struct {
	// Ref reads reports from this git revision instead of the working tree.
	Ref string
	// NoCache bypasses the snapshot cache for this run.
	NoCache bool
	// OnProgress is called once per report after it has been loaded.
	OnProgress func()
}

// Result is the outcome of a combined run over several reports.
type Result struct {
	Modules  []string                   `json:"modules"`
	Issues   int                        `json:"issues"`
	Toxicity *models.Toxicity           `json:"toxicity"`
	Cached   bool                       `json:"cached"`
	Errors   *fileproc.ProcessingErrors `json:"-"`
}

// ModuleResult is the outcome of one report in a separate run.
type ModuleResult struct {
	Module   string           `json:"module"`
	Path     string           `json:"path"`
	Issues   int              `json:"issues"`
	Toxicity *models.Toxicity `json:"toxicity"`
	Cached   bool             `json:"cached"`
}

// SeparateResult is the outcome of a separate run, one entry per report in
// path order.
type SeparateResult struct {
	Modules []ModuleResult             `json:"modules"`
	Errors  *fileproc.ProcessingErrors `json:"-"`
}

// Config returns the configuration the service runs with.
func (s *Service) Config() *config.Config {
	return s.config
}

// NewAggregator builds an aggregator for the configured policy.
func (s *Service) NewAggregator() (*toxicity.Aggregator, error) {
	policy, err := s.config.Policy.Build()
	if err != nil {
		return nil, fmt.Errorf("policy: %w", err)
	}
	opts := []toxicity.Option{
		toxicity.WithLogger(s.logger.With(slog.String("component", "toxicity"))),
	}
	if s.config.Analysis.Shards > 0 {
		opts = append(opts, toxicity.WithShards(s.config.Analysis.Shards))
	}
	return toxicity.NewAggregator(policy, opts...), nil
}

// Discover expands paths into report files. With a ref the files are looked
// up in that revision and returned repository-relative.
func (s *Service) Discover(paths []string, ref string) ([]string, error) {
	_, files, err := s.resolve(paths, ref)
	return files, err
}

// Analyze loads every report under paths concurrently and ingests all of their
// issues into agg, so sources from different modules share one snapshot.
//
// Reports that fail to load are skipped and listed in Result.Errors. The cache
// is consulted only when agg starts empty and every report loaded; on a hit
// agg is left untouched.
func (s *Service) Analyze(ctx context.Context, agg *toxicity.Aggregator, paths []string, opts Options) (*Result, error) {
	loaded, errs, err := s.loadAll(ctx, paths, opts)
	if err != nil {
		return nil, err
	}

	res := &Result{Errors: errs}
	issues := make([]models.Issue, 0)
	parts := make([][]byte, 0, 2*len(loaded))
	for _, l := range loaded {
		res.Modules = append(res.Modules, l.report.Module)
		res.Issues += len(l.report.Issues)
		issues = append(issues, l.report.AsIssues()...)
		parts = append(parts, []byte(l.report.Path), l.data)
	}

	useCache := !opts.NoCache && errs == nil && agg.Len() == 0
	key := s.cacheKey(parts...)
	if useCache {
		if snap, ok := s.cache.Get(key); ok {
			s.logger.Debug("cache hit", slog.String("component", "analysis"), slog.Int("reports", len(loaded)))
			res.Toxicity = snap
			res.Cached = true
			return res, nil
		}
	}

	if err := s.ingest(ctx, agg, issues); err != nil {
		return nil, err
	}
	res.Toxicity = agg.Snapshot()

	if useCache {
		s.store(key, res.Toxicity)
	}
	s.logger.Info("analysis complete",
		slog.String("component", "analysis"),
		slog.Int("reports", len(loaded)),
		slog.Int("sources", len(res.Toxicity.Sources)),
		slog.Float64("total", res.Toxicity.Summary.Total),
	)
	return res, nil
}

// AnalyzeSeparately runs one independent analysis per report. Reports are
// loaded concurrently; agg is Reset before each report is ingested, so every
// snapshot holds only that report's sources. After the call agg holds the last
// ingested report.
func (s *Service) AnalyzeSeparately(ctx context.Context, agg *toxicity.Aggregator, paths []string, opts Options) (*SeparateResult, error) {
	loaded, errs, err := s.loadAll(ctx, paths, opts)
	if err != nil {
		return nil, err
	}

	out := &SeparateResult{Errors: errs}
	for _, l := range loaded {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		mr := ModuleResult{
			Module: l.report.Module,
			Path:   l.report.Path,
			Issues: len(l.report.Issues),
		}
		key := s.cacheKey([]byte(l.report.Path), l.data)
		if !opts.NoCache {
			if snap, ok := s.cache.Get(key); ok {
				mr.Toxicity = snap
				mr.Cached = true
				out.Modules = append(out.Modules, mr)
				continue
			}
		}

		agg.Reset()
		if err := s.ingest(ctx, agg, l.report.AsIssues()); err != nil {
			return nil, err
		}
		mr.Toxicity = agg.Snapshot()
		if !opts.NoCache {
			s.store(key, mr.Toxicity)
		}
		s.logger.Debug("module analyzed",
			slog.String("component", "analysis"),
			slog.String("module", mr.Module),
			slog.Float64("total", mr.Toxicity.Summary.Total),
		)
		out.Modules = append(out.Modules, mr)
	}
	return out, nil
}

type loadedReport struct {
	report *report.Report
	data   []byte
}

func (s *Service) loadAll(ctx context.Context, paths []string, opts Options) ([]loadedReport, *fileproc.ProcessingErrors, error) {
	src, files, err := s.resolve(paths, opts.Ref)
	if err != nil {
		return nil, nil, err
	}
	if len(files) == 0 {
		return nil, nil, ErrNoReports
	}

	loaded, errs := fileproc.ForEachFileN(ctx, files, s.config.Analysis.Workers,
		func(_ context.Context, path string) (loadedReport, error) {
			if !report.Supported(path) {
				return loadedReport{}, report.ErrUnsupportedFormat
			}
			data, err := src.Read(path)
			if err != nil {
				return loadedReport{}, err
			}
			r, err := report.Parse(path, data)
			if err != nil {
				return loadedReport{}, err
			}
			return loadedReport{report: r, data: data}, nil
		}, opts.OnProgress)

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if len(loaded) == 0 {
		if errs == nil {
			return nil, nil, ErrNoReports
		}
		return nil, nil, errs
	}
	for _, e := range errorList(errs) {
		s.logger.Warn("report skipped",
			slog.String("component", "analysis"),
			slog.String("path", e.Path),
			slog.String("error", e.Err.Error()),
		)
	}
	return loaded, errs, nil
}

func errorList(errs *fileproc.ProcessingErrors) []fileproc.ProcessingError {
	if errs == nil {
		return nil
	}
	return errs.Errors
}

// ingest spreads issues over a bounded worker pool. The aggregator serializes
// updates per source, so chunks may interleave freely.
func (s *Service) ingest(ctx context.Context, agg *toxicity.Aggregator, issues []models.Issue) error {
	if len(issues) == 0 {
		return ctx.Err()
	}
	workers := fileproc.Workers(s.config.Analysis.Workers)
	size := (len(issues) + workers - 1) / workers

	p := pool.New().WithMaxGoroutines(workers).WithContext(ctx)
	for start := 0; start < len(issues); start += size {
		chunk := issues[start:min(start+size, len(issues))]
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			agg.IngestAll(chunk)
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (s *Service) cacheKey(parts ...[]byte) string {
	return cache.Key(append([][]byte{[]byte(s.config.Policy.Fingerprint())}, parts...)...)
}

func (s *Service) store(key string, snap *models.Toxicity) {
	if err := s.cache.Put(key, snap); err != nil {
		s.logger.Warn("cache write failed", slog.String("component", "analysis"), slog.String("error", err.Error()))
	}
}

// resolve picks the content source for ref and expands paths into report files.
func (s *Service) resolve(paths []string, ref string) (source.ContentSource, []string, error) {
	sc := scanner.NewScanner(s.config)

	if ref == "" {
		if len(paths) == 0 {
			paths = []string{"."}
		}
		files, err := sc.Scan(paths)
		if err != nil {
			return nil, nil, err
		}
		return source.NewFilesystem(), files, nil
	}

	base, err := s.baseDir()
	if err != nil {
		return nil, nil, err
	}
	repo, err := s.opener.PlainOpenWithDetect(base)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open repository: %w", err)
	}
	tree, err := repo.TreeAt(ref)
	if err != nil {
		return nil, nil, err
	}

	rel := make([]string, 0, len(paths))
	for _, p := range paths {
		r, err := repoRelative(repo.RepoPath(), base, p)
		if err != nil {
			return nil, nil, err
		}
		rel = append(rel, r)
	}
	files, err := sc.ScanTree(tree, rel)
	if err != nil {
		return nil, nil, err
	}
	return source.NewTree(tree), files, nil
}

func (s *Service) baseDir() (string, error) {
	if s.repoDir != "" {
		return s.repoDir, nil
	}
	return os.Getwd()
}

// repoRelative maps p, relative to base unless absolute, to a slash-separated
// path relative to the repository root.
func repoRelative(root, base, p string) (string, error) {
	root, err := filepath.EvalSymlinks(root)
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(p) {
		if base, err = filepath.EvalSymlinks(base); err != nil {
			return "", err
		}
		p = filepath.Join(base, p)
	}
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return "", err
	}
	if rel == ".." || filepath.IsAbs(rel) || len(rel) > 2 && rel[:3] == ".."+string(filepath.Separator) {
		return "", fmt.Errorf("%s is outside the repository", p)
	}
	return filepath.ToSlash(rel), nil
}

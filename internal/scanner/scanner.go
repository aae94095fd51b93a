// Package scanner discovers markdown style guides on disk and loads them
// into the guide registry.
//
// The scanner walks directories for .md and .markdown files, skipping
// entries whose base name matches an exclude pattern. Files are loaded
// concurrently by a persistent worker pool, validated when a validator is
// configured, and registered under their absolute path so the registry
// broadcasts change events. A file whose checksum is unchanged since it was
// last registered is not reloaded.
package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	guideerrors "github.com/conneroisu/guidebook/internal/errors"
	"github.com/conneroisu/guidebook/internal/logging"
	"github.com/conneroisu/guidebook/internal/markdown"
	"github.com/conneroisu/guidebook/internal/registry"
	"github.com/conneroisu/guidebook/internal/validation"
)

// smallBatch is the batch size at or below which files are loaded inline.
const smallBatch = 5

// ScanJob is a unit of work for the worker pool.
type ScanJob struct {
	ctx      context.Context
	filePath string
	result   chan<- ScanResult
}

// ScanResult is the outcome of loading one file.
type ScanResult struct {
	filePath string
	err      error
}

// WorkerPool manages persistent scanning workers.
type WorkerPool struct {
	jobQueue    chan ScanJob
	workerCount int
	scanner     *GuideScanner
	stop        chan struct{}
	stopped     bool
	wg          sync.WaitGroup
	mu          sync.Mutex
}

// NewWorkerPool starts workerCount workers that load files for scanner.
func NewWorkerPool(workerCount int, scanner *GuideScanner) *WorkerPool {
	if workerCount < 1 {
		workerCount = 1
	}
	pool := &WorkerPool{
		jobQueue:    make(chan ScanJob, workerCount*2),
		workerCount: workerCount,
		scanner:     scanner,
		stop:        make(chan struct{}),
	}

	pool.wg.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go pool.work()
	}
	return pool
}

func (p *WorkerPool) work() {
	defer p.wg.Done()
	for {
		select {
		case job := <-p.jobQueue:
			job.result <- ScanResult{
				filePath: job.filePath,
				err:      p.scanner.scanFileInternal(job.ctx, job.filePath),
			}
		case <-p.stop:
			return
		}
	}
}

// submit queues job, reporting false when the queue is full or the pool is
// stopped.
func (p *WorkerPool) submit(job ScanJob) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return false
	}
	select {
	case p.jobQueue <- job:
		return true
	default:
		return false
	}
}

// Stop shuts the workers down and waits for them to exit.
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.stop)
	p.mu.Unlock()

	p.wg.Wait()
}

// GuideScanner discovers and loads style guides.
type GuideScanner struct {
	registry   *registry.GuideRegistry
	loader     *markdown.Loader
	validator  *validation.Validator
	exclude    []string
	logger     logging.Logger
	workerPool *WorkerPool
}

// Option configures a GuideScanner.
type Option func(*GuideScanner)

// WithLoader sets the markdown loader.
func WithLoader(loader *markdown.Loader) Option {
	return func(s *GuideScanner) { s.loader = loader }
}

// WithValidator validates every loaded guide and stores the report in the
// registry.
func WithValidator(v *validation.Validator) Option {
	return func(s *GuideScanner) { s.validator = v }
}

// WithExclude skips files and directories whose base name matches one of the
// glob patterns.
func WithExclude(patterns ...string) Option {
	return func(s *GuideScanner) { s.exclude = append(s.exclude, patterns...) }
}

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *GuideScanner) { s.logger = logger }
}

// NewGuideScanner creates a scanner with a worker pool sized to the CPU
// count, capped at 8.
func NewGuideScanner(reg *registry.GuideRegistry, opts ...Option) *GuideScanner {
	s := &GuideScanner{
		registry: reg,
		loader:   markdown.NewLoader(),
		logger:   logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent("scanner")

	workerCount := runtime.NumCPU()
	if workerCount > 8 {
		workerCount = 8
	}
	s.workerPool = NewWorkerPool(workerCount, s)
	return s
}

// GetRegistry returns the registry the scanner fills.
func (s *GuideScanner) GetRegistry() *registry.GuideRegistry {
	return s.registry
}

// Close stops the worker pool.
func (s *GuideScanner) Close() error {
	s.workerPool.Stop()
	return nil
}

// Scan loads every path, scanning directories recursively.
func (s *GuideScanner) Scan(ctx context.Context, paths []string) error {
	var errs []error
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			errs = append(errs, guideerrors.WrapIO(err, guideerrors.ErrCodeFileNotFound,
				fmt.Sprintf("cannot scan %s", path)))
			continue
		}
		if info.IsDir() {
			err = s.ScanDirectory(ctx, path)
		} else {
			err = s.ScanFile(ctx, path)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return guideerrors.CombineErrors(errs...)
}

// ScanDirectory loads every guide under dir.
func (s *GuideScanner) ScanDirectory(ctx context.Context, dir string) error {
	if err := validation.ValidatePath(dir); err != nil {
		return fmt.Errorf("invalid directory path: %w", err)
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != dir && s.Excluded(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !IsGuideFile(path) {
			return nil
		}
		if err := validation.ValidatePath(path); err != nil {
			s.logger.Warn(ctx, err, "Skipping file", "path", path)
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return guideerrors.WrapIO(err, guideerrors.ErrCodeInvalidPath,
			fmt.Sprintf("walking %s", dir))
	}

	s.logger.Debug(ctx, "Discovered guides", "dir", dir, "count", len(files))
	return s.processBatch(ctx, files)
}

func (s *GuideScanner) processBatch(ctx context.Context, files []string) error {
	if len(files) == 0 {
		return nil
	}
	if len(files) <= smallBatch {
		var errs []error
		for _, file := range files {
			if err := s.scanFileInternal(ctx, file); err != nil {
				errs = append(errs, err)
			}
		}
		return guideerrors.CombineErrors(errs...)
	}

	resultChan := make(chan ScanResult, len(files))
	for _, file := range files {
		job := ScanJob{ctx: ctx, filePath: file, result: resultChan}
		if !s.workerPool.submit(job) {
			resultChan <- ScanResult{filePath: file, err: s.scanFileInternal(ctx, file)}
		}
	}

	var errs []error
	for range files {
		if result := <-resultChan; result.err != nil {
			errs = append(errs, result.err)
		}
	}
	return guideerrors.CombineErrors(errs...)
}

// ScanFile loads a single guide.
func (s *GuideScanner) ScanFile(ctx context.Context, path string) error {
	return s.scanFileInternal(ctx, path)
}

// RemoveFile drops the guide at path from the registry.
func (s *GuideScanner) RemoveFile(path string) {
	if abs, err := filepath.Abs(path); err == nil {
		s.registry.Remove(abs)
	}
}

// Excluded reports whether path's base name matches an exclude pattern.
func (s *GuideScanner) Excluded(path string) bool {
	base := filepath.Base(path)
	return slices.ContainsFunc(s.exclude, func(pattern string) bool {
		matched, err := filepath.Match(pattern, base)
		return err == nil && matched
	})
}

// IsGuideFile reports whether path has a guide extension.
func IsGuideFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return slices.Contains(validation.GuideExtensions, ext)
}

// scanFileInternal loads, validates and registers one file. A file that
// fails to load is still registered, with the error, so callers can show it.
func (s *GuideScanner) scanFileInternal(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validation.ValidateGuideFile(path); err != nil {
		return guideerrors.Wrap(err, guideerrors.ErrorTypeValidation, guideerrors.ErrCodeInvalidPath,
			"invalid guide path").WithLocation(path, 0)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return guideerrors.WrapIO(err, guideerrors.ErrCodeInvalidPath, "resolving path").
			WithLocation(path, 0)
	}

	stat, err := os.Stat(absPath)
	if err != nil {
		return guideerrors.WrapIO(err, guideerrors.ErrCodeFileNotFound, "guide not found").
			WithLocation(absPath, 0)
	}
	src, err := os.ReadFile(absPath)
	if err != nil {
		return guideerrors.WrapIO(err, guideerrors.ErrCodeInvalidPath, "reading guide").
			WithLocation(absPath, 0)
	}

	hash := s.loader.Hash(src)
	if existing, ok := s.registry.Get(absPath); ok && existing.Hash == hash {
		s.logger.Debug(ctx, "Guide unchanged", "path", absPath)
		return nil
	}

	info := &registry.GuideInfo{Path: absPath, LastMod: stat.ModTime(), Hash: hash}
	doc, err := s.loader.Parse(absPath, src)
	if err != nil {
		info.Err = err
		s.registry.Register(info)
		return err
	}
	info.Document = doc

	if s.validator != nil {
		report, err := s.validator.Validate(ctx, doc)
		if err != nil {
			return err
		}
		info.Report = report
	}

	s.registry.Register(info)
	s.logger.Debug(ctx, "Loaded guide", "path", absPath, "sections", doc.Len())
	return nil
}

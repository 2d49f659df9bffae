package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/materialsio/internal/model"
)

// Scanner runs every registered parser over one root directory
type Scanner interface {
	ScanRoot(ctx context.Context, root string) ([]model.ParseResult, error)
}

// ScanFunc adapts a function to the Scanner interface
type ScanFunc func(ctx context.Context, root string) ([]model.ParseResult, error)

// ScanRoot calls f(ctx, root)
func (f ScanFunc) ScanRoot(ctx context.Context, root string) ([]model.ParseResult, error) {
	return f(ctx, root)
}

// ScanJob represents a root directory scan job
type ScanJob struct {
	Root    string
	Scanner Scanner
}

// Execute executes the scan job
func (j *ScanJob) Execute(ctx context.Context) Result {
	results, err := j.Scanner.ScanRoot(ctx, j.Root)
	return &ScanResult{
		Root:    j.Root,
		Results: results,
		Error:   err,
	}
}

// ScanResult holds everything extracted from one root. Results may be
// partial when Error is set.
type ScanResult struct {
	Root    string
	Results []model.ParseResult
	Error   error
}

// GetError returns the error from the scan result
func (r *ScanResult) GetError() error {
	return r.Error
}

// BatchProcessor processes multiple roots concurrently
type BatchProcessor struct {
	scanner     Scanner
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(scanner Scanner, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		scanner:     scanner,
		concurrency: concurrency,
	}
}

// ProcessRoots scans roots concurrently. Results follow the order of roots.
func (b *BatchProcessor) ProcessRoots(ctx context.Context, roots []string) []*ScanResult {
	if len(roots) == 0 {
		return []*ScanResult{}
	}

	pool := NewPoolWithContext(ctx, b.concurrency)
	pool.Start()

	for _, root := range roots {
		pool.Submit(&ScanJob{
			Root:    root,
			Scanner: b.scanner,
		})
	}

	results := pool.Wait()

	scanResults := make([]*ScanResult, len(results))
	for i, result := range results {
		scanResults[i] = result.(*ScanResult)
	}

	return scanResults
}

// ProcessFile reads roots from a file and processes them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*ScanResult, error) {
	roots, err := ReadRootsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read roots: %w", err)
	}

	return b.ProcessRoots(ctx, roots), nil
}

// ReadRootsFromFile reads root directories from a file (one per line)
func ReadRootsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var roots []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			roots = append(roots, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return roots, nil
}

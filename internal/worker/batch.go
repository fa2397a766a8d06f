package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ppiankov/animequote/internal/model"
)

// Verifier runs one verification. *pipeline.Pipeline satisfies it.
type Verifier interface {
	Verify(ctx context.Context, req model.VerifyRequest) *model.Report
}

// BatchItem is one parsed input line
type BatchItem struct {
	Line    int // 1-based line number in the input
	Request model.VerifyRequest
	Err     error // Set when the line could not be parsed
}

// VerifyJob verifies one batch item
type VerifyJob struct {
	Index    int
	Item     BatchItem
	Verifier Verifier
}

// Execute runs the verification for the job's item
func (j *VerifyJob) Execute(ctx context.Context) Result {
	result := &BatchResult{Index: j.Index, Line: j.Item.Line, Error: j.Item.Err}
	if j.Item.Err != nil {
		return result
	}
	if err := ctx.Err(); err != nil {
		result.Error = err
		return result
	}
	result.Report = j.Verifier.Verify(ctx, j.Item.Request)
	return result
}

// BatchResult is the outcome for one input line
type BatchResult struct {
	Index  int           `json:"-"`
	Line   int           `json:"line"`
	Report *model.Report `json:"report,omitempty"`
	Error  error         `json:"-"`
}

// GetError returns the error from the batch result
func (r *BatchResult) GetError() error {
	return r.Error
}

// MarshalJSON writes the error as a string
func (r *BatchResult) MarshalJSON() ([]byte, error) {
	type alias BatchResult
	out := struct {
		*alias
		Error string `json:"error,omitempty"`
	}{alias: (*alias)(r)}
	if r.Error != nil {
		out.Error = r.Error.Error()
	}
	return json.Marshal(out)
}

// BatchProcessor verifies many requests concurrently
type BatchProcessor struct {
	verifier    Verifier
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(verifier Verifier, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		verifier:    verifier,
		concurrency: concurrency,
	}
}

// Process verifies every item and returns the results in input order
func (b *BatchProcessor) Process(ctx context.Context, items []BatchItem) []*BatchResult {
	if len(items) == 0 {
		return []*BatchResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for i, item := range items {
		pool.Submit(&VerifyJob{Index: i, Item: item, Verifier: b.verifier})
	}

	collected := make([]*BatchResult, 0, len(items))
	for _, result := range pool.Wait() {
		collected = append(collected, result.(*BatchResult))
	}

	// Jobs dropped by a cancelled context never report back
	byIndex := make(map[int]*BatchResult, len(collected))
	for _, r := range collected {
		byIndex[r.Index] = r
	}
	results := make([]*BatchResult, 0, len(items))
	for i, item := range items {
		if r, ok := byIndex[i]; ok {
			results = append(results, r)
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = fmt.Errorf("line %d: not processed", item.Line)
		}
		results = append(results, &BatchResult{Index: i, Line: item.Line, Error: err})
	}

	return results
}

// ProcessFile reads JSONL requests from filePath and verifies them
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*BatchResult, error) {
	items, err := ReadRequestsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read requests: %w", err)
	}
	return b.Process(ctx, items), nil
}

// ReadRequestsFromFile reads one JSON request object per line
func ReadRequestsFromFile(filePath string) ([]BatchItem, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return ReadRequests(file)
}

// ReadRequests parses JSONL input. Blank lines and lines starting with # are
// skipped; a malformed line becomes an item carrying its parse error.
func ReadRequests(r io.Reader) ([]BatchItem, error) {
	var items []BatchItem

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		item := BatchItem{Line: line}
		decoder := json.NewDecoder(strings.NewReader(text))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&item.Request); err != nil {
			item.Err = fmt.Errorf("line %d: %w", line, err)
		}
		items = append(items, item)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan input: %w", err)
	}

	return items, nil
}

// WriteResults writes one JSON object per result, in order
func WriteResults(w io.Writer, results []*BatchResult) error {
	encoder := json.NewEncoder(w)
	for _, r := range results {
		if err := encoder.Encode(r); err != nil {
			return fmt.Errorf("encode line %d: %w", r.Line, err)
		}
	}
	return nil
}

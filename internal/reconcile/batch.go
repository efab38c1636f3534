package reconcile

import (
	"runtime"
	"sync"

	"github.com/cleared-dev/stmtcheck/internal/model"
)

// Failure is a statement excluded from the results, with the reason.
type Failure struct {
	StatementID string
	Err         error
}

// BatchResult holds the reconciled statements and the ones that failed.
type BatchResult struct {
	Results []Result
	Errors  []Failure
}

// Unbalanced returns the results whose discrepancy is outside tolerance.
func (b BatchResult) Unbalanced() []Result {
	var out []Result
	for _, r := range b.Results {
		if !r.Balanced {
			out = append(out, r)
		}
	}
	return out
}

// Batch reconciles records in parallel. Records are independent, so workers
// share nothing but the output slots. Results and Errors keep input order.
func Batch(records []model.StatementRecord, opts Options) BatchResult {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(records) {
		workers = len(records)
	}

	results := make([]Result, len(records))
	errs := make([]error, len(records))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i], errs[i] = Reconcile(records[i], opts)
			}
		}()
	}
	for i := range records {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	var out BatchResult
	for i, rec := range records {
		if errs[i] != nil {
			out.Errors = append(out.Errors, Failure{StatementID: rec.ID, Err: errs[i]})
			continue
		}
		out.Results = append(out.Results, results[i])
	}
	return out
}

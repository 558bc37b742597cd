package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ============================================================================
// BATCH: Independent requests over a shared Calculator
// ============================================================================
// Items share nothing but the read-only Calculator. Each item's error is kept
// on its own outcome; one bad item never aborts the rest. Outcomes come back
// in input order regardless of completion order.
// ============================================================================

// batchNamespace seeds deterministic ids for requests submitted without one.
var batchNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/spektr-org/voltcalc/batch"))

// BatchOutcome is the result of one batch item.
type BatchOutcome struct {
	Index    int       `json:"index"`
	ID       string    `json:"id"`
	Response *Response `json:"response,omitempty"`
	Err      error     `json:"-"`
	Error    string    `json:"error,omitempty"`
}

// RunBatch evaluates requests with at most parallelism concurrent workers
// (0 or less means one per request). When ctx is cancelled, items that have
// not started yet report ctx.Err().
func RunBatch(ctx context.Context, calc *Calculator, reqs []Request, parallelism int) []BatchOutcome {
	out := make([]BatchOutcome, len(reqs))

	g, ctx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}

	for i := range reqs {
		i := i
		req := reqs[i]
		if req.ID == "" {
			req.ID = RequestID(req, i)
		}
		out[i] = BatchOutcome{Index: i, ID: req.ID}

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				out[i].setErr(err)
				return nil
			}
			resp, err := calc.Calculate(req)
			if err != nil {
				out[i].setErr(err)
				return nil
			}
			out[i].Response = resp
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, o := range out {
		if o.Err != nil {
			failed++
		}
	}
	calc.logger.Info("batch complete", zap.Int("items", len(reqs)), zap.Int("failed", failed))
	return out
}

func (o *BatchOutcome) setErr(err error) {
	o.Err = err
	o.Error = err.Error()
}

// RequestID derives a stable id from a request's content and position, so
// reruns of the same batch produce the same ids.
func RequestID(req Request, index int) string {
	req.ID = ""
	payload, err := json.Marshal(struct {
		Index   int     `json:"index"`
		Request Request `json:"request"`
	}{index, req})
	if err != nil {
		// NaN and ±Inf do not marshal; fall back to kind and position.
		return uuid.NewSHA1(batchNamespace, []byte(fmt.Sprintf("%s/%d", req.Kind, index))).String()
	}
	return uuid.NewSHA1(batchNamespace, payload).String()
}

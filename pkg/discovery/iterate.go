package discovery

import (
	"context"

	"github.com/logflow/patternflow/internal/model"
)

// DiscoverUntilStable repeatedly discovers activities and relogs the log
// with them, one level higher each pass. It stops when a pass finds no
// instance, when relogging no longer shrinks the log, or after
// maxIterations passes when maxIterations is positive. Activities are
// always named by NameByEvents over the log of their pass.
func DiscoverUntilStable(ctx context.Context, log *model.Log, opts Options, relog RelogOptions, maxIterations int) (*model.Log, []*Result, error) {
	var results []*Result
	current := log

	for i := 0; maxIterations <= 0 || i < maxIterations; i++ {
		pass := opts
		pass.Level = opts.Level + i
		pass.Namer = nil

		res, err := Discover(ctx, current, pass)
		if err != nil {
			return nil, nil, err
		}
		if res.InstanceCount() == 0 {
			break
		}
		results = append(results, res)

		next := Relog(current, res.Forest, res.Instances, relog)
		shrunk := next.EventCount() < current.EventCount()
		current = next

		opts.logger().Debug("discovery: iteration done",
			"iteration", i,
			"run_id", res.RunID.String(),
			"events", current.EventCount())
		if !shrunk {
			break
		}
	}
	return current, results, nil
}

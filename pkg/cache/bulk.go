package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"smartcache/pkg/cacheerrors"
	"smartcache/pkg/cluster"
)

// bulk runs a multi-element write against n. Nodes that take variadic
// arguments get one batched call; legacy nodes get one call per element.
// A node with unknown capabilities gets the batched call first and falls
// back when the server rejects the argument count.
func bulk(ctx context.Context, n *cluster.Node, verb string, count int,
	batched func(context.Context) (int64, error),
	single func(ctx context.Context, i int) (int64, error),
) (int64, error) {
	if count == 0 {
		return 0, nil
	}
	if count == 1 || n.Caps.Variadic {
		return batched(ctx)
	}
	if !n.Caps.Known {
		affected, err := batched(ctx)
		if !errors.Is(err, cacheerrors.ErrVariadicRejected) {
			return affected, err
		}
		slog.Warn("variadic write rejected, retrying per element", "node", n.ID, "verb", verb, "count", count)
	}
	return perElement(ctx, verb, count, single)
}

// perElement attempts every element. The result counts the successful calls'
// affected elements; failures are joined.
func perElement(ctx context.Context, verb string, count int, single func(ctx context.Context, i int) (int64, error)) (int64, error) {
	var (
		total int64
		errs  []error
	)
	for i := 0; i < count; i++ {
		affected, err := single(ctx, i)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s element %d: %w", verb, i, err))
			continue
		}
		total += affected
	}
	return total, errors.Join(errs...)
}

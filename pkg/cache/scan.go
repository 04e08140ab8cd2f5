package cache

import (
	"context"
	"fmt"
	"sort"
)

// scanPage is the COUNT hint sent with every SCAN call.
const scanPage = 100

// Scan walks the keyspace of every node the router knows, one SCAN page at a
// time, and hands each non-empty page to fn. match is a glob pattern; ""
// matches every key. With replicas the same key may arrive from several
// nodes. The walk stops at the first error, from the store or from fn.
func (c *Cache) Scan(ctx context.Context, match string, fn func(keys []string) error) error {
	for _, n := range c.router.Nodes() {
		var cursor uint64
		for {
			page, next, err := n.Conn.Scan(ctx, cursor, match, scanPage)
			if err != nil {
				return fmt.Errorf("scan %s: %w", n.ID, err)
			}
			if len(page) > 0 {
				if err := fn(page); err != nil {
					return err
				}
			}
			if next == 0 {
				break
			}
			cursor = next
		}
	}
	return nil
}

// Keys returns every distinct key matching match across all nodes, sorted.
func (c *Cache) Keys(ctx context.Context, match string) ([]string, error) {
	seen := make(map[string]struct{})
	err := c.Scan(ctx, match, func(keys []string) error {
		for _, k := range keys {
			seen[k] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}

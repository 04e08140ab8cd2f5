package cluster

import "smartcache/pkg/metrics"

type routerOptions struct {
	dial      Dialer
	hash      HashFunc
	collector metrics.Collector
	pick      func(n int) int
}

type RouterOption func(*routerOptions)

func WithDialer(d Dialer) RouterOption {
	return func(o *routerOptions) { o.dial = d }
}

// WithRingHash sets the shard ring hash function.
func WithRingHash(h HashFunc) RouterOption {
	return func(o *routerOptions) { o.hash = h }
}

// WithCollector counts routing decisions per node.
func WithCollector(c metrics.Collector) RouterOption {
	return func(o *routerOptions) { o.collector = c }
}

// withPicker replaces the replica picker; tests only.
func withPicker(pick func(n int) int) RouterOption {
	return func(o *routerOptions) { o.pick = pick }
}

func buildOptions(opts []RouterOption) routerOptions {
	o := routerOptions{
		dial:      DefaultDialer,
		hash:      CRC32,
		collector: metrics.Nop{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

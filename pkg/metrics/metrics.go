package metrics

import (
	"math"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/zhangyunhao116/skipmap"
)

// Collector captures counters, gauges and histograms.
type Collector interface {
	IncCounter(name string, labels map[string]string, delta float64)
	SetGauge(name string, labels map[string]string, value float64)
	ObserveHistogram(name string, labels map[string]string, value float64)
}

// Nop discards everything.
type Nop struct{}

func (Nop) IncCounter(string, map[string]string, float64)       {}
func (Nop) SetGauge(string, map[string]string, float64)         {}
func (Nop) ObserveHistogram(string, map[string]string, float64) {}

// Sample is one series in a snapshot.
type Sample struct {
	Name   string            `json:"name"`
	Labels map[string]string `json:"labels,omitempty"`
	Value  float64           `json:"value"`
	// Count is set for histograms only.
	Count uint64 `json:"count,omitempty"`
}

type series struct {
	name   string
	labels map[string]string
	bits   atomic.Uint64 // float64
	count  atomic.Uint64
}

func (s *series) add(delta float64) {
	for {
		old := s.bits.Load()
		next := math.Float64bits(math.Float64frombits(old) + delta)
		if s.bits.CompareAndSwap(old, next) {
			return
		}
	}
}

// Registry keeps series in memory, ordered by series key.
// Histograms keep only sum and count.
type Registry struct {
	series *skipmap.OrderedMap[string, *series]
}

func NewRegistry() *Registry {
	return &Registry{series: skipmap.New[string, *series]()}
}

func (r *Registry) get(name string, labels map[string]string) *series {
	s, _ := r.series.LoadOrStoreLazy(seriesKey(name, labels), func() *series {
		cp := make(map[string]string, len(labels))
		for k, v := range labels {
			cp[k] = v
		}
		return &series{name: name, labels: cp}
	})
	return s
}

func (r *Registry) IncCounter(name string, labels map[string]string, delta float64) {
	r.get(name, labels).add(delta)
}

func (r *Registry) SetGauge(name string, labels map[string]string, value float64) {
	r.get(name, labels).bits.Store(math.Float64bits(value))
}

func (r *Registry) ObserveHistogram(name string, labels map[string]string, value float64) {
	s := r.get(name, labels)
	s.add(value)
	s.count.Add(1)
}

// Value returns the current value of one series.
func (r *Registry) Value(name string, labels map[string]string) (float64, bool) {
	s, ok := r.series.Load(seriesKey(name, labels))
	if !ok {
		return 0, false
	}
	return math.Float64frombits(s.bits.Load()), true
}

// Snapshot returns every series in key order.
func (r *Registry) Snapshot() []Sample {
	out := make([]Sample, 0, r.series.Len())
	r.series.Range(func(_ string, s *series) bool {
		out = append(out, Sample{
			Name:   s.name,
			Labels: s.labels,
			Value:  math.Float64frombits(s.bits.Load()),
			Count:  s.count.Load(),
		})
		return true
	})
	return out
}

// seriesKey: name{k1=v1,k2=v2} с отсортированными ключами
func seriesKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(labels[k])
	}
	b.WriteByte('}')
	return b.String()
}

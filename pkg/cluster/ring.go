package cluster

import (
	"hash/crc32"
	"sort"
	"strconv"
	"sync"

	"github.com/howeyc/crc16"
	"github.com/spaolacci/murmur3"

	"smartcache/pkg/cacheerrors"
)

// HashFunc maps bytes onto the ring.
type HashFunc func([]byte) uint32

func CRC32(b []byte) uint32   { return crc32.ChecksumIEEE(b) }
func Murmur3(b []byte) uint32 { return murmur3.Sum32(b) }

// CRC16 uses the IBM table. Its 16-bit space suits small rings only.
func CRC16(b []byte) uint32 { return uint32(crc16.Checksum(b, crc16.IBMTable)) }

// HashByName resolves a configured ring hash name.
func HashByName(name string) (HashFunc, error) {
	switch name {
	case "", "crc32":
		return CRC32, nil
	case "murmur3":
		return Murmur3, nil
	case "crc16":
		return CRC16, nil
	}
	return nil, cacheerrors.Configf("unknown ring hash %q", name)
}

type WeightedNode struct {
	ID     Identity
	Weight int
}

type point struct {
	hash uint32
	id   Identity
}

// реализует consistent hashing с виртуальными нодами, число точек = вес ноды
type HashRing struct {
	hash    HashFunc
	points  []point // отсортированы по (hash, id)
	weights map[Identity]int
	mu      sync.RWMutex
}

type RingOption func(*HashRing)

func WithHash(h HashFunc) RingOption {
	return func(r *HashRing) { r.hash = h }
}

// NewHashRing builds a ring over nodes. An empty node list, a non-positive
// weight or a duplicate identity is a configuration error.
func NewHashRing(nodes []WeightedNode, opts ...RingOption) (*HashRing, error) {
	if len(nodes) == 0 {
		return nil, cacheerrors.Configf("hash ring needs at least one node")
	}

	r := &HashRing{
		hash:    CRC32,
		weights: make(map[Identity]int, len(nodes)),
	}
	for _, opt := range opts {
		opt(r)
	}

	for _, n := range nodes {
		if _, dup := r.weights[n.ID]; dup {
			return nil, cacheerrors.Configf("duplicate node identity %q", n.ID)
		}
		if n.Weight <= 0 {
			return nil, cacheerrors.Configf("node %q: weight must be positive, got %d", n.ID, n.Weight)
		}
		r.weights[n.ID] = n.Weight
		r.points = append(r.points, r.pointsFor(n.ID, n.Weight)...)
	}
	r.sortPoints()

	return r, nil
}

func (r *HashRing) pointsFor(id Identity, weight int) []point {
	out := make([]point, 0, weight)
	for i := 0; i < weight; i++ {
		token := string(id) + "-" + strconv.Itoa(i)
		out = append(out, point{hash: r.hash([]byte(token)), id: id})
	}
	return out
}

func (r *HashRing) sortPoints() {
	sort.Slice(r.points, func(i, j int) bool {
		if r.points[i].hash != r.points[j].hash {
			return r.points[i].hash < r.points[j].hash
		}
		return r.points[i].id < r.points[j].id
	})
}

// AddNode adds a node with the given weight. Re-adding a known node is a no-op.
func (r *HashRing) AddNode(id Identity, weight int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.weights[id]; ok || weight <= 0 {
		return
	}
	r.weights[id] = weight
	r.points = append(r.points, r.pointsFor(id, weight)...)
	r.sortPoints()
}

func (r *HashRing) RemoveNode(id Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()

	filtered := r.points[:0]
	for _, p := range r.points {
		if p.id != id {
			filtered = append(filtered, p)
		}
	}
	r.points = filtered
	delete(r.weights, id)
}

// GetNode returns the owner of key: the first point at or after hash(key),
// wrapping to the first point. ok is false only for an emptied ring.
func (r *HashRing) GetNode(key string) (Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.points) == 0 {
		return "", false
	}

	h := r.hash([]byte(key))
	idx := sort.Search(len(r.points), func(i int) bool { return r.points[i].hash >= h })
	if idx == len(r.points) {
		idx = 0
	}
	return r.points[idx].id, true
}

// возвращает список уникальных нод в отсортированном виде
func (r *HashRing) ListNodes() []Identity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Identity, 0, len(r.weights))
	for id := range r.weights {
		result = append(result, id)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

package cluster

import (
	"fmt"
	"strconv"

	"smartcache/pkg/cacheerrors"
	"smartcache/pkg/store"
)

type Role string

const (
	RoleMaster  Role = "master"
	RoleReplica Role = "replica"
	RoleShard   Role = "shard"
)

// Identity names one node: "name:host:port:db". It is both the ring placement
// token and the registry key.
type Identity string

// Descriptor describes one configured store node.
type Descriptor struct {
	Name   string `yaml:"name" json:"name"`
	Host   string `yaml:"host" json:"host"`
	Port   int    `yaml:"port" json:"port"`
	DB     int    `yaml:"db" json:"db"`
	Weight int    `yaml:"weight" json:"weight"`
	Role   Role   `yaml:"role" json:"role"`
}

func (d Descriptor) Identity() Identity {
	return Identity(fmt.Sprintf("%s:%s:%d:%d", d.Name, d.Host, d.Port, d.DB))
}

// Addr is the dial address host:port.
func (d Descriptor) Addr() string {
	return d.Host + ":" + strconv.Itoa(d.Port)
}

func (d Descriptor) validate() error {
	switch d.Role {
	case RoleMaster, RoleReplica, RoleShard:
	default:
		return cacheerrors.Configf("node %q: unknown role %q", d.Name, d.Role)
	}
	if d.Name == "" || d.Host == "" {
		return cacheerrors.Configf("node %q: name and host are required", d.Identity())
	}
	if d.Port < 0 || d.Port > 65535 {
		return cacheerrors.Configf("node %q: port %d out of range", d.Name, d.Port)
	}
	if d.DB < 0 {
		return cacheerrors.Configf("node %q: negative db index", d.Name)
	}
	return nil
}

// Capabilities are probed once per node when the registry is built.
type Capabilities struct {
	// Known is false when the version probe failed.
	Known bool
	// Variadic: multi-member LPUSH/RPUSH/SADD/SREM/ZADD/ZREM (2.4+).
	Variadic bool
	// RandCount: SRANDMEMBER key count (2.6+).
	RandCount bool
	Version   string
}

func capabilitiesFor(version string) Capabilities {
	return Capabilities{
		Known:     true,
		Variadic:  store.VersionAtLeast(version, 2, 4),
		RandCount: store.VersionAtLeast(version, 2, 6),
		Version:   version,
	}
}

// Node is a registered store node: its descriptor, live connection and capabilities.
type Node struct {
	ID   Identity
	Desc Descriptor
	Conn store.Conn
	Caps Capabilities
}

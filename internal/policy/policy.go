// Package policy implements the engine's hierarchical configuration
// policies: per-edge channel capacities, health/heartbeat
// thresholds, self-telemetry sampling, and resource limits, each
// resolvable at pipeline, group, or top (engine-wide) scope with
// pipeline overriding group overriding top. Grounded on
// `collector/receiver/otelarrowreceiver/config.go`'s `mapstructure`-tagged
// config tree and its `confmap.Unmarshaler`/`Validate` pattern.
package policy

import (
	"fmt"
	"time"

	"go.opentelemetry.io/collector/config/configgrpc"
	"go.opentelemetry.io/collector/confmap"

	"github.com/otelcol-arrow-dataflow/engine/internal/werror"
)

// ChannelCapacityPolicy bounds per-edge data channel buffer sizes.
// DefaultCapacity applies to any edge not named in PerEdge.
type ChannelCapacityPolicy struct {
	DefaultCapacity *int           `mapstructure:"default_capacity,omitempty"`
	PerEdge         map[string]int `mapstructure:"per_edge,omitempty"`
}

// HealthPolicy governs heartbeat freshness and readiness timing.
type HealthPolicy struct {
	HeartbeatInterval *time.Duration `mapstructure:"heartbeat_interval,omitempty"`
	HeartbeatTimeout  *time.Duration `mapstructure:"heartbeat_timeout,omitempty"`
	ReadyTimeout      *time.Duration `mapstructure:"ready_timeout,omitempty"`
}

// TelemetryPolicy bounds self-telemetry cost: a cardinality ceiling for
// dynamically-named metrics and a sampling rate for self-trace spans.
type TelemetryPolicy struct {
	MaxCardinality      *int     `mapstructure:"max_cardinality,omitempty"`
	SelfTraceSampleRate *float64 `mapstructure:"self_trace_sample_rate,omitempty"`
}

// ResourcesPolicy caps the CPU/memory a pipeline's nodes may consume and
// optionally pins them to specific cores.
type ResourcesPolicy struct {
	CPULimitMillis *int64  `mapstructure:"cpu_limit_millis,omitempty"`
	MemoryLimitMiB *uint64 `mapstructure:"memory_limit_mib,omitempty"`
	CoreAffinity   []int   `mapstructure:"core_affinity,omitempty"`
}

// PolicyConfig is one scope's (top, group, or pipeline) policy
// overrides. Every field is optional; nil/empty means "inherit from the
// next scope up."
type PolicyConfig struct {
	Channel   *ChannelCapacityPolicy `mapstructure:"channel,omitempty"`
	Health    *HealthPolicy          `mapstructure:"health,omitempty"`
	Telemetry *TelemetryPolicy       `mapstructure:"telemetry,omitempty"`
	Resources *ResourcesPolicy       `mapstructure:"resources,omitempty"`
}

// Resolved is the fully-merged policy set a pipeline actually runs with.
// Channel.DefaultCapacity and the Health and Telemetry fields always
// carry a concrete value (hardcoded engine default if no scope ever set
// them); Channel.PerEdge and Resources have no engine default and stay
// unset unless some scope sets them.
type Resolved struct {
	Channel   ChannelCapacityPolicy
	Health    HealthPolicy
	Telemetry TelemetryPolicy
	Resources ResourcesPolicy
}

func defaultResolved() Resolved {
	defaultCap := 64
	heartbeatInterval := 5 * time.Second
	heartbeatTimeout := 15 * time.Second
	readyTimeout := 30 * time.Second
	maxCardinality := 10000
	sampleRate := 1.0
	return Resolved{
		Channel:   ChannelCapacityPolicy{DefaultCapacity: &defaultCap},
		Health:    HealthPolicy{HeartbeatInterval: &heartbeatInterval, HeartbeatTimeout: &heartbeatTimeout, ReadyTimeout: &readyTimeout},
		Telemetry: TelemetryPolicy{MaxCardinality: &maxCardinality, SelfTraceSampleRate: &sampleRate},
		Resources: ResourcesPolicy{},
	}
}

// Resolve merges top, group, and pipeline scopes in that priority order
// (pipeline wins, then group, then top, then the engine's hardcoded
// defaults), field by field.
func Resolve(top, group, pipeline PolicyConfig) Resolved {
	r := defaultResolved()
	for _, scope := range []PolicyConfig{top, group, pipeline} {
		mergeChannel(&r.Channel, scope.Channel)
		mergeHealth(&r.Health, scope.Health)
		mergeTelemetry(&r.Telemetry, scope.Telemetry)
		mergeResources(&r.Resources, scope.Resources)
	}
	return r
}

func mergeChannel(dst *ChannelCapacityPolicy, src *ChannelCapacityPolicy) {
	if src == nil {
		return
	}
	if src.DefaultCapacity != nil {
		dst.DefaultCapacity = src.DefaultCapacity
	}
	if len(src.PerEdge) > 0 {
		if dst.PerEdge == nil {
			dst.PerEdge = map[string]int{}
		}
		for k, v := range src.PerEdge {
			dst.PerEdge[k] = v
		}
	}
}

func mergeHealth(dst *HealthPolicy, src *HealthPolicy) {
	if src == nil {
		return
	}
	if src.HeartbeatInterval != nil {
		dst.HeartbeatInterval = src.HeartbeatInterval
	}
	if src.HeartbeatTimeout != nil {
		dst.HeartbeatTimeout = src.HeartbeatTimeout
	}
	if src.ReadyTimeout != nil {
		dst.ReadyTimeout = src.ReadyTimeout
	}
}

func mergeTelemetry(dst *TelemetryPolicy, src *TelemetryPolicy) {
	if src == nil {
		return
	}
	if src.MaxCardinality != nil {
		dst.MaxCardinality = src.MaxCardinality
	}
	if src.SelfTraceSampleRate != nil {
		dst.SelfTraceSampleRate = src.SelfTraceSampleRate
	}
}

func mergeResources(dst *ResourcesPolicy, src *ResourcesPolicy) {
	if src == nil {
		return
	}
	if src.CPULimitMillis != nil {
		dst.CPULimitMillis = src.CPULimitMillis
	}
	if src.MemoryLimitMiB != nil {
		dst.MemoryLimitMiB = src.MemoryLimitMiB
	}
	if len(src.CoreAffinity) > 0 {
		dst.CoreAffinity = src.CoreAffinity
	}
}

// CapacityFor returns the configured buffer capacity for a named edge,
// falling back to DefaultCapacity.
func (r Resolved) CapacityFor(edgeName string) int {
	if n, ok := r.Channel.PerEdge[edgeName]; ok {
		return n
	}
	if r.Channel.DefaultCapacity != nil {
		return *r.Channel.DefaultCapacity
	}
	return 64
}

// TransportPolicy configures the engine's optional external gRPC ingress
// listener, reusing the collector's own network/TLS config types
// (`configgrpc.GRPCServerSettings`, which itself embeds `confignet.NetAddr`
// and `*configtls.TLSServerSetting`) instead of a bespoke address+options
// struct, the same way `receiver/otelarrowreceiver/config.go` embeds
// `GRPCServerSettings` in its own receiver config.
type TransportPolicy struct {
	GRPC *configgrpc.GRPCServerSettings `mapstructure:"grpc,omitempty"`
}

// EngineConfig is the root configuration tree: top-level default
// policies plus a set of groups, each holding pipelines, mirroring the
// pipeline > group > top hierarchy.
type EngineConfig struct {
	Policies  PolicyConfig     `mapstructure:"policies,omitempty"`
	Transport *TransportPolicy `mapstructure:"transport,omitempty"`
	Groups    []GroupConfig    `mapstructure:"groups"`
}

// GroupConfig is one policy-scoping group of pipelines.
type GroupConfig struct {
	ID        string           `mapstructure:"id"`
	Policies  PolicyConfig     `mapstructure:"policies,omitempty"`
	Pipelines []PipelineConfig `mapstructure:"pipelines"`
}

// PipelineConfig is a single pipeline's identity and policy overrides.
type PipelineConfig struct {
	ID       string       `mapstructure:"id"`
	Policies PolicyConfig `mapstructure:"policies,omitempty"`
}

var _ confmap.Unmarshaler = (*EngineConfig)(nil)

// Unmarshal loads conf into cfg, rejecting unknown keys the same way
// `collector/receiver/otelarrowreceiver`'s own config does.
func (cfg *EngineConfig) Unmarshal(conf *confmap.Conf) error {
	return conf.Unmarshal(cfg, confmap.WithErrorUnused())
}

// Validate checks structural invariants: every group and pipeline must
// be named, and (group_id, pipeline_id) pairs must be unique — the same
// key C8's deterministic pipeline ordering sorts by. Every failure is
// wrapped with werror so a config error can be traced back to the
// exact validation site that raised it.
func (cfg *EngineConfig) Validate() error {
	if cfg.Transport != nil && cfg.Transport.GRPC != nil && cfg.Transport.GRPC.NetAddr.Endpoint == "" {
		return werror.Wrap(fmt.Errorf("policy: transport.grpc missing endpoint"))
	}
	seen := map[string]struct{}{}
	for _, g := range cfg.Groups {
		if g.ID == "" {
			return werror.Wrap(fmt.Errorf("policy: group missing id"))
		}
		for _, p := range g.Pipelines {
			if p.ID == "" {
				return werror.Wrap(fmt.Errorf("policy: pipeline in group %q missing id", g.ID))
			}
			key := g.ID + "/" + p.ID
			if _, dup := seen[key]; dup {
				return werror.Wrap(fmt.Errorf("policy: duplicate pipeline %q in group %q", p.ID, g.ID))
			}
			seen[key] = struct{}{}
		}
	}
	return nil
}

// ResolveFor returns the fully-merged policy set for the pipeline
// identified by groupID/pipelineID.
func (cfg *EngineConfig) ResolveFor(groupID, pipelineID string) (Resolved, error) {
	for _, g := range cfg.Groups {
		if g.ID != groupID {
			continue
		}
		for _, p := range g.Pipelines {
			if p.ID != pipelineID {
				continue
			}
			return Resolve(cfg.Policies, g.Policies, p.Policies), nil
		}
		return Resolved{}, fmt.Errorf("policy: unknown pipeline %q in group %q", pipelineID, groupID)
	}
	return Resolved{}, fmt.Errorf("policy: unknown group %q", groupID)
}

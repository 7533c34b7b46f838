// Package controller resolves engine configuration into a deterministic,
// ordered set of pipelines and drives their lifecycle:
// sorting by (group_id, pipeline_id), policy resolution per pipeline via
// C9, optional injection of a dedicated system/internal observability
// pipeline, and coordinated start/shutdown across every pipeline.
// Grounded on `collector/otelarrowcol`'s own top-level `Run`
// orchestration shape (build once, start all components, wait for a
// shutdown signal, stop all components) generalized to this engine's own
// node/pipeline model instead of the collector's receiver/exporter
// graph.
package controller

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/otelcol-arrow-dataflow/engine/internal/observed"
	"github.com/otelcol-arrow-dataflow/engine/internal/pipeline"
	"github.com/otelcol-arrow-dataflow/engine/internal/policy"
)

// SystemInternalGroupID/PipelineID name the dedicated pipeline injected
// for engine self-observability when configured.
const (
	SystemInternalGroupID    = "system"
	SystemInternalPipelineID = "internal"
)

// ResolvedPipelineConfig pairs one pipeline's DAG spec with its
// hierarchy-resolved policy set.
type ResolvedPipelineConfig[PData any] struct {
	GroupID    string
	PipelineID string
	Policies   policy.Resolved
	Spec       pipeline.Spec[PData]
}

// ResolvedOtelDataflowSpec is the controller's fully-resolved input: the
// engine config plus every pipeline's sorted, policy-resolved spec.
type ResolvedOtelDataflowSpec[PData any] struct {
	Engine    policy.EngineConfig
	Pipelines []ResolvedPipelineConfig[PData]
}

// SpecSource supplies the DAG spec for a (groupID, pipelineID) pair;
// callers build this from their own node/config wiring since the
// controller has no opinion on how a pipeline's nodes are constructed.
type SpecSource[PData any] func(groupID, pipelineID string) (pipeline.Spec[PData], error)

// Resolve builds a ResolvedOtelDataflowSpec from cfg: every configured
// pipeline's policy is resolved through the top/group/pipeline hierarchy,
// its DAG spec is obtained from specs, and the whole set is sorted by
// (group_id, pipeline_id) lexicographic order. When
// injectSystemInternal is true and no explicit system/internal pipeline
// is already configured, one is appended using systemInternalSpec.
func Resolve[PData any](
	cfg *policy.EngineConfig,
	specs SpecSource[PData],
	injectSystemInternal bool,
	systemInternalSpec pipeline.Spec[PData],
) (*ResolvedOtelDataflowSpec[PData], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	resolved := &ResolvedOtelDataflowSpec[PData]{Engine: *cfg}
	hasSystemInternal := false

	for _, g := range cfg.Groups {
		for _, p := range g.Pipelines {
			if g.ID == SystemInternalGroupID && p.ID == SystemInternalPipelineID {
				hasSystemInternal = true
			}
			pol, err := cfg.ResolveFor(g.ID, p.ID)
			if err != nil {
				return nil, err
			}
			spec, err := specs(g.ID, p.ID)
			if err != nil {
				return nil, fmt.Errorf("controller: building spec for %s/%s: %w", g.ID, p.ID, err)
			}
			resolved.Pipelines = append(resolved.Pipelines, ResolvedPipelineConfig[PData]{
				GroupID:    g.ID,
				PipelineID: p.ID,
				Policies:   pol,
				Spec:       spec,
			})
		}
	}

	if injectSystemInternal && !hasSystemInternal {
		resolved.Pipelines = append(resolved.Pipelines, ResolvedPipelineConfig[PData]{
			GroupID:    SystemInternalGroupID,
			PipelineID: SystemInternalPipelineID,
			Policies:   policy.Resolve(cfg.Policies, policy.PolicyConfig{}, policy.PolicyConfig{}),
			Spec:       systemInternalSpec,
		})
	}

	sortPipelines(resolved.Pipelines)
	return resolved, nil
}

func sortPipelines[PData any](pipelines []ResolvedPipelineConfig[PData]) {
	sort.Slice(pipelines, func(i, j int) bool {
		if pipelines[i].GroupID != pipelines[j].GroupID {
			return pipelines[i].GroupID < pipelines[j].GroupID
		}
		return pipelines[i].PipelineID < pipelines[j].PipelineID
	})
}

// Controller owns the running set of pipelines built from a
// ResolvedOtelDataflowSpec.
type Controller[PData any] struct {
	logger *zap.Logger
	store  *observed.Store
	specs  []ResolvedPipelineConfig[PData]
	live   []*pipeline.Pipeline[PData]
}

// New creates a Controller that will build pipelines from resolved in
// its already-sorted order, reporting lifecycle events into store.
func New[PData any](resolved *ResolvedOtelDataflowSpec[PData], store *observed.Store, logger *zap.Logger) *Controller[PData] {
	return &Controller[PData]{logger: logger, store: store, specs: resolved.Pipelines}
}

func pipelineKey(groupID, pipelineID string) string { return groupID + "/" + pipelineID }

// Start builds and starts every pipeline in sorted order.
func (c *Controller[PData]) Start(ctx context.Context) error {
	for _, rp := range c.specs {
		rp := rp
		key := pipelineKey(rp.GroupID, rp.PipelineID)
		rp.Spec.ID = key
		pl, err := pipeline.Build[PData](rp.Spec, rp.Policies, c.store, c.logger.With(zap.String("pipeline", key)))
		if err != nil {
			return fmt.Errorf("controller: building pipeline %s: %w", key, err)
		}
		pl.Start(ctx)
		c.live = append(c.live, pl)
	}
	return nil
}

// Shutdown drains every live pipeline, in reverse start order, each
// bounded by deadline; every pipeline is attempted regardless of earlier
// failures and their errors are aggregated with multierr.Append, the
// same N-independent-operations idiom netstats.go uses to combine
// sibling instrument-creation errors.
func (c *Controller[PData]) Shutdown(ctx context.Context, deadline time.Duration, reason string) error {
	var errs error
	for i := len(c.live) - 1; i >= 0; i-- {
		pl := c.live[i]
		if err := pl.Shutdown(ctx, deadline, reason); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("controller: shutting down pipeline %d: %w", i, err))
		}
		pl.Close()
	}
	return errs
}

// PipelineIDs returns every resolved pipeline's key ("group/pipeline"), in
// start order.
func (c *Controller[PData]) PipelineIDs() []string {
	out := make([]string, 0, len(c.specs))
	for _, rp := range c.specs {
		out = append(out, pipelineKey(rp.GroupID, rp.PipelineID))
	}
	return out
}

// Phase aggregates the observed phase of every node in the named
// pipeline, looking up node ids from the live pipeline
// instance that was built for it.
func (c *Controller[PData]) Phase(groupID, pipelineID string) (observed.Phase, error) {
	key := pipelineKey(groupID, pipelineID)
	for _, pl := range c.live {
		if pl.ID() == key {
			return c.store.PipelinePhase(key, pl.NodeIDs()), nil
		}
	}
	return observed.PhaseUnknown, fmt.Errorf("controller: no live pipeline %q", key)
}

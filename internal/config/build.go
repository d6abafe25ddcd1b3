package config

import (
	"github.com/gekko3d/puppet/rig/core"
	"github.com/gekko3d/puppet/rig/force"
	"github.com/gekko3d/puppet/rig/group"
	"github.com/gekko3d/puppet/rig/index"
	"github.com/gekko3d/puppet/rig/limit"
	"github.com/gekko3d/puppet/rig/manip"
	"github.com/gekko3d/puppet/rig/posture"
)

// Rig is an assembled reaction skeleton.
type Rig struct {
	Skeleton    *core.Skeleton
	Limits      *limit.Model
	Groups      *group.Layer
	Index       *index.Index
	Manipulator *manip.Manipulator
	Engine      *force.Engine
	Posture     *posture.Controller
}

type BuildOption func(*buildOptions)

type buildOptions struct {
	logger core.Logger
	trace  func(force.Event)
	ground posture.GroundSampler
}

func WithLogger(l core.Logger) BuildOption {
	return func(o *buildOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithTrace observes every resolved engine task.
func WithTrace(fn func(force.Event)) BuildOption {
	return func(o *buildOptions) { o.trace = fn }
}

func WithGroundSampler(g posture.GroundSampler) BuildOption {
	return func(o *buildOptions) { o.ground = g }
}

// Build assembles skeleton, limits, groups, index, manipulator, engine and
// posture controller in dependency order. Any failure aborts the whole rig.
func Build(cfg *Config, opts ...BuildOption) (*Rig, error) {
	if cfg == nil {
		return nil, core.ConfigErrorf("nil config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := buildOptions{logger: core.NopLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	t, err := cfg.tables()
	if err != nil {
		return nil, err
	}

	r := &Rig{}
	if r.Skeleton, err = core.NewSkeleton(t.Joints); err != nil {
		return nil, err
	}
	if r.Limits, err = limit.New(t.Limits); err != nil {
		return nil, err
	}
	if r.Groups, err = group.NewLayer(t.Groups, r.Limits, r.Skeleton.Has); err != nil {
		return nil, err
	}
	if r.Index, err = index.New(r.Skeleton, r.Limits, r.Groups, t.Capsules); err != nil {
		return nil, err
	}

	mopts := []manip.Option{manip.WithUnsupported(t.Unsupported...)}
	if cfg.Skeleton.AngleCache > 0 {
		mopts = append(mopts, manip.WithAngleCache(cfg.Skeleton.AngleCache))
	}
	if r.Manipulator, err = manip.New(r.Skeleton, r.Limits, r.Groups, mopts...); err != nil {
		return nil, err
	}

	eopts := []force.Option{force.WithSettings(cfg.EngineSettings()), force.WithLogger(o.logger)}
	if o.trace != nil {
		eopts = append(eopts, force.WithTrace(o.trace))
	}
	if r.Engine, err = force.New(r.Index, r.Manipulator, eopts...); err != nil {
		return nil, err
	}

	popts := []posture.Option{posture.WithSettings(cfg.PostureSettings()), posture.WithLogger(o.logger)}
	if o.ground != nil {
		popts = append(popts, posture.WithGroundSampler(o.ground))
	}
	if r.Posture, err = posture.New(r.Engine, t.Weights, popts...); err != nil {
		return nil, err
	}
	if cfg.Posture.Enabled && !r.Posture.SetPostureControlState(true) {
		return nil, core.ConfigErrorf("posture control needs the hips and both feet")
	}
	o.logger.Debugf("rig assembled: %d joints, %d capsules, %d groups",
		len(t.Joints), len(t.Capsules), len(t.Groups))
	return r, nil
}

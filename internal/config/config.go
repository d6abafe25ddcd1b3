// Package config loads the static rig tables and tuning knobs, and assembles
// a ready-to-run rig from them.
package config

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/gekko3d/puppet/rig/core"
	"github.com/gekko3d/puppet/rig/force"
	"github.com/gekko3d/puppet/rig/group"
	"github.com/gekko3d/puppet/rig/humanoid"
	"github.com/gekko3d/puppet/rig/index"
	"github.com/gekko3d/puppet/rig/limit"
	"github.com/gekko3d/puppet/rig/posture"
)

// EnvPrefix prefixes environment overrides, e.g. PUPPET_ENGINE_MAX_TWIST.
const EnvPrefix = "PUPPET"

// Vec3 is an x, y, z triple as written in config files.
type Vec3 [3]float32

func (v Vec3) Vec() mgl32.Vec3 { return mgl32.Vec3(v) }

type JointConfig struct {
	Bone     string `mapstructure:"bone" yaml:"bone"`
	Parent   string `mapstructure:"parent" yaml:"parent,omitempty"`
	Position Vec3   `mapstructure:"position" yaml:"position,flow"`
}

type LimitConfig struct {
	Bone string `mapstructure:"bone" yaml:"bone"`
	Min  Vec3   `mapstructure:"min" yaml:"min,flow"`
	Max  Vec3   `mapstructure:"max" yaml:"max,flow"`
	Axis string `mapstructure:"axis" yaml:"axis"`
}

type CapsuleConfig struct {
	Bone    string  `mapstructure:"bone" yaml:"bone"`
	Radius  float32 `mapstructure:"radius" yaml:"radius"`
	Length  float32 `mapstructure:"length" yaml:"length"`
	Center  Vec3    `mapstructure:"center" yaml:"center,flow"`
	Aligned bool    `mapstructure:"aligned" yaml:"aligned"`
}

type GroupConfig struct {
	Name    string   `mapstructure:"name" yaml:"name"`
	Members []string `mapstructure:"members" yaml:"members,flow"`
}

type SkeletonConfig struct {
	Joints      []JointConfig `mapstructure:"joints" yaml:"joints"`
	Unsupported []string      `mapstructure:"unsupported" yaml:"unsupported,flow"`
	// AngleCache is the orientation drift tolerated by the cached angle
	// reader. Zero reads every angle from the live pose.
	AngleCache float32 `mapstructure:"angle_cache" yaml:"angle_cache"`
}

type EngineConfig struct {
	TwistRadiusScale float32 `mapstructure:"twist_radius_scale" yaml:"twist_radius_scale"`
	MaxTwist         float32 `mapstructure:"max_twist" yaml:"max_twist"`
	ResidualEpsilon  float32 `mapstructure:"residual_epsilon" yaml:"residual_epsilon"`
	RotationEpsilon  float32 `mapstructure:"rotation_epsilon" yaml:"rotation_epsilon"`
	Feedback         bool    `mapstructure:"feedback" yaml:"feedback"`
}

type PostureConfig struct {
	Enabled          bool    `mapstructure:"enabled" yaml:"enabled"`
	Thresholds       Vec3    `mapstructure:"thresholds" yaml:"thresholds,flow"`
	Gravity          float32 `mapstructure:"gravity" yaml:"gravity"`
	MinFallHeight    float32 `mapstructure:"min_fall_height" yaml:"min_fall_height"`
	MaxDurationScale float32 `mapstructure:"max_duration_scale" yaml:"max_duration_scale"`
	StepLength       float32 `mapstructure:"step_length" yaml:"step_length"`
	FootLift         float32 `mapstructure:"foot_lift" yaml:"foot_lift"`
	GoalTolerance    float32 `mapstructure:"goal_tolerance" yaml:"goal_tolerance"`
	GroundTolerance  float32 `mapstructure:"ground_tolerance" yaml:"ground_tolerance"`
	AngleStep        float32 `mapstructure:"angle_step" yaml:"angle_step"`
}

// LoggerConfig holds settings for the zap-backed logger.
type LoggerConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Format     string `mapstructure:"format" yaml:"format"`
	Prefix     string `mapstructure:"prefix" yaml:"prefix"`
	LogFile    string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

type Config struct {
	Skeleton SkeletonConfig     `mapstructure:"skeleton" yaml:"skeleton"`
	Limits   []LimitConfig      `mapstructure:"limits" yaml:"limits"`
	Capsules []CapsuleConfig    `mapstructure:"capsules" yaml:"capsules"`
	Weights  map[string]float32 `mapstructure:"weights" yaml:"weights"`
	Groups   []GroupConfig      `mapstructure:"groups" yaml:"groups"`
	Engine   EngineConfig       `mapstructure:"engine" yaml:"engine"`
	Posture  PostureConfig      `mapstructure:"posture" yaml:"posture"`
	Logger   LoggerConfig       `mapstructure:"logger" yaml:"logger"`
}

// SetDefaults registers the scalar defaults. The bone tables default to the
// stock humanoid when a source leaves them out.
func SetDefaults(v *viper.Viper) {
	es := force.DefaultSettings()
	v.SetDefault("engine.twist_radius_scale", es.TwistRadiusScale)
	v.SetDefault("engine.max_twist", es.MaxTwist)
	v.SetDefault("engine.residual_epsilon", es.ResidualEpsilon)
	v.SetDefault("engine.rotation_epsilon", es.RotationEpsilon)
	v.SetDefault("engine.feedback", es.Feedback)

	ps := posture.DefaultSettings()
	v.SetDefault("posture.enabled", true)
	v.SetDefault("posture.thresholds", []float32{ps.Thresholds.X(), ps.Thresholds.Y(), ps.Thresholds.Z()})
	v.SetDefault("posture.gravity", ps.Gravity)
	v.SetDefault("posture.min_fall_height", ps.MinFallHeight)
	v.SetDefault("posture.max_duration_scale", ps.MaxDurationScale)
	v.SetDefault("posture.step_length", ps.StepLength)
	v.SetDefault("posture.foot_lift", ps.FootLift)
	v.SetDefault("posture.goal_tolerance", ps.GoalTolerance)
	v.SetDefault("posture.ground_tolerance", ps.GroundTolerance)
	v.SetDefault("posture.angle_step", ps.AngleStep)

	v.SetDefault("skeleton.angle_cache", 0)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.prefix", "puppet")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 7)
	v.SetDefault("logger.compress", false)
}

// NewDefaultConfig returns the stock humanoid with default settings.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	cfg.fillTables()
	return &cfg
}

// Load reads the config file at path, if any, over the defaults and applies
// PUPPET_* environment overrides. The format follows the file extension.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", core.ErrConfiguration, path, err)
		}
	}
	return NewConfigFromViper(v)
}

// NewConfigFromViper decodes and validates a populated viper instance.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: decoding: %v", core.ErrConfiguration, err)
	}
	cfg.fillTables()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Marshal renders cfg as YAML that Load reads back unchanged.
func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// fillTables substitutes the stock humanoid for every missing table and
// canonicalises weight keys, which viper lowercases.
func (c *Config) fillTables() {
	if len(c.Skeleton.Joints) == 0 {
		for _, j := range humanoid.Joints() {
			jc := JointConfig{Bone: j.Bone.String(), Position: Vec3(j.Position)}
			if j.Parent != core.NoBone {
				jc.Parent = j.Parent.String()
			}
			c.Skeleton.Joints = append(c.Skeleton.Joints, jc)
		}
		if len(c.Skeleton.Unsupported) == 0 {
			for _, b := range humanoid.Unsupported() {
				c.Skeleton.Unsupported = append(c.Skeleton.Unsupported, b.String())
			}
		}
	}
	if len(c.Limits) == 0 {
		table := humanoid.Limits()
		for _, b := range core.AllBones() {
			if l, ok := table[b]; ok {
				c.Limits = append(c.Limits, LimitConfig{
					Bone: b.String(),
					Min:  Vec3(l.Min),
					Max:  Vec3(l.Max),
					Axis: l.Axis.String(),
				})
			}
		}
	}
	if len(c.Capsules) == 0 {
		for _, cp := range humanoid.Capsules() {
			c.Capsules = append(c.Capsules, CapsuleConfig{
				Bone:    cp.Bone.String(),
				Radius:  cp.Radius,
				Length:  cp.Length,
				Center:  Vec3(cp.Center),
				Aligned: cp.Aligned,
			})
		}
	}
	if len(c.Groups) == 0 {
		for _, g := range humanoid.Groups() {
			gc := GroupConfig{Name: g.Name}
			for _, m := range g.Members {
				gc.Members = append(gc.Members, m.String())
			}
			c.Groups = append(c.Groups, gc)
		}
	}
	if len(c.Weights) == 0 {
		c.Weights = make(map[string]float32)
		for b, w := range humanoid.Weights() {
			c.Weights[b.String()] = w
		}
		return
	}
	weights := make(map[string]float32, len(c.Weights))
	for name, w := range c.Weights {
		if b, ok := core.ParseHumanBone(name); ok {
			name = b.String()
		}
		weights[name] = w
	}
	c.Weights = weights
}

// Validate checks the settings ranges and that every table names real bones.
func (c *Config) Validate() error {
	if c.Engine.TwistRadiusScale < 0 || c.Engine.MaxTwist < 0 ||
		c.Engine.ResidualEpsilon < 0 || c.Engine.RotationEpsilon < 0 {
		return core.ConfigErrorf("engine settings must not be negative")
	}
	if c.Posture.Gravity <= 0 {
		return core.ConfigErrorf("posture.gravity must be positive")
	}
	if c.Posture.MaxDurationScale <= 0 {
		return core.ConfigErrorf("posture.max_duration_scale must be positive")
	}
	if c.Posture.MinFallHeight < 0 || c.Posture.StepLength < 0 || c.Posture.FootLift < 0 ||
		c.Posture.GoalTolerance < 0 || c.Posture.GroundTolerance < 0 {
		return core.ConfigErrorf("posture distances must not be negative")
	}
	for i, t := range c.Posture.Thresholds {
		if t < 0 {
			return core.ConfigErrorf("posture.thresholds[%d] must not be negative", i)
		}
	}
	if c.Skeleton.AngleCache < 0 {
		return core.ConfigErrorf("skeleton.angle_cache must not be negative")
	}
	switch c.Logger.Format {
	case "", "console", "json":
	default:
		return core.ConfigErrorf("logger.format must be 'console' or 'json', got %q", c.Logger.Format)
	}
	_, err := c.tables()
	return err
}

// Tables are the typed bone tables behind a Config.
type Tables struct {
	Joints      []core.JointDef
	Unsupported []core.HumanBone
	Limits      map[core.HumanBone]limit.Limit
	Capsules    []index.Capsule
	Groups      []group.Def
	Weights     map[core.HumanBone]float32
}

func parseBone(table, name string) (core.HumanBone, error) {
	b, ok := core.ParseHumanBone(name)
	if !ok {
		return core.NoBone, core.ConfigErrorf("%s: unknown bone %q", table, name)
	}
	return b, nil
}

func (c *Config) tables() (Tables, error) {
	t := Tables{
		Limits:  make(map[core.HumanBone]limit.Limit, len(c.Limits)),
		Weights: make(map[core.HumanBone]float32, len(c.Weights)),
	}
	for _, j := range c.Skeleton.Joints {
		b, err := parseBone("skeleton.joints", j.Bone)
		if err != nil {
			return t, err
		}
		parent := core.NoBone
		if j.Parent != "" {
			if parent, err = parseBone("skeleton.joints", j.Parent); err != nil {
				return t, err
			}
		}
		t.Joints = append(t.Joints, core.JointDef{Bone: b, Parent: parent, Position: j.Position.Vec()})
	}
	for _, name := range c.Skeleton.Unsupported {
		b, err := parseBone("skeleton.unsupported", name)
		if err != nil {
			return t, err
		}
		t.Unsupported = append(t.Unsupported, b)
	}
	for _, l := range c.Limits {
		b, err := parseBone("limits", l.Bone)
		if err != nil {
			return t, err
		}
		axis, ok := core.ParseAxis(l.Axis)
		if !ok {
			return t, core.ConfigErrorf("limits: %s has unknown axis %q", l.Bone, l.Axis)
		}
		t.Limits[b] = limit.Limit{Min: l.Min.Vec(), Max: l.Max.Vec(), Axis: axis}
	}
	for _, cp := range c.Capsules {
		b, err := parseBone("capsules", cp.Bone)
		if err != nil {
			return t, err
		}
		t.Capsules = append(t.Capsules, index.Capsule{
			Bone:    b,
			Radius:  cp.Radius,
			Length:  cp.Length,
			Center:  cp.Center.Vec(),
			Aligned: cp.Aligned,
		})
	}
	for _, g := range c.Groups {
		def := group.Def{Name: g.Name}
		for _, name := range g.Members {
			b, err := parseBone("groups."+g.Name, name)
			if err != nil {
				return t, err
			}
			def.Members = append(def.Members, b)
		}
		t.Groups = append(t.Groups, def)
	}
	for name, w := range c.Weights {
		b, err := parseBone("weights", name)
		if err != nil {
			return t, err
		}
		t.Weights[b] = w
	}
	return t, nil
}

// Tables returns the typed bone tables.
func (c *Config) Tables() (Tables, error) {
	return c.tables()
}

func (c *Config) EngineSettings() force.Settings {
	return force.Settings{
		TwistRadiusScale: c.Engine.TwistRadiusScale,
		MaxTwist:         c.Engine.MaxTwist,
		ResidualEpsilon:  c.Engine.ResidualEpsilon,
		RotationEpsilon:  c.Engine.RotationEpsilon,
		Feedback:         c.Engine.Feedback,
	}
}

func (c *Config) PostureSettings() posture.Settings {
	p := c.Posture
	return posture.Settings{
		Thresholds:       p.Thresholds.Vec(),
		Gravity:          p.Gravity,
		MinFallHeight:    p.MinFallHeight,
		MaxDurationScale: p.MaxDurationScale,
		StepLength:       p.StepLength,
		FootLift:         p.FootLift,
		GoalTolerance:    p.GoalTolerance,
		GroundTolerance:  p.GroundTolerance,
		AngleStep:        p.AngleStep,
	}
}

package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spf13/cobra"

	puppet "github.com/gekko3d/puppet"
	"github.com/gekko3d/puppet/internal/config"
	"github.com/gekko3d/puppet/rig/core"
	"github.com/gekko3d/puppet/rig/force"
)

type runOptions struct {
	ticks     int
	dt        time.Duration
	bone      string
	force     []float32
	pull      bool
	translate bool
	repeat    bool
	trace     bool
}

func newRunCmd(c *cli) *cobra.Command {
	o := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Apply a contact to the rig and step it",
		Example: `  puppetsim run --push LeftHand --force 0,0,0.1
  puppetsim run --push Hips --force 0,0,-0.3 --translate --ticks 120`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSim(cmd.OutOrStdout(), c, o)
		},
	}
	f := cmd.Flags()
	f.IntVar(&o.ticks, "ticks", 60, "number of steps")
	f.DurationVar(&o.dt, "dt", 16*time.Millisecond, "step length")
	f.StringVar(&o.bone, "push", "", "bone to touch at its capsule center")
	f.Float32SliceVar(&o.force, "force", nil, "world displacement x,y,z of the contact")
	f.BoolVar(&o.pull, "pull", false, "pull instead of push")
	f.BoolVar(&o.translate, "translate", false, "let the hips move")
	f.BoolVar(&o.repeat, "repeat", false, "apply the contact on every step, not only the first")
	f.BoolVar(&o.trace, "trace", false, "print every resolved task")
	return cmd
}

func runSim(out io.Writer, c *cli, o *runOptions) error {
	if o.ticks < 0 || o.dt < 0 {
		return fmt.Errorf("ticks and dt must not be negative")
	}
	bone := core.NoBone
	var f mgl32.Vec3
	if o.bone != "" {
		var ok bool
		if bone, ok = core.ParseHumanBone(o.bone); !ok {
			return fmt.Errorf("unknown bone %q", o.bone)
		}
		if len(o.force) != 3 {
			return fmt.Errorf("--force needs three components, got %d", len(o.force))
		}
		f = mgl32.Vec3{o.force[0], o.force[1], o.force[2]}
	}

	var opts []config.BuildOption
	if o.trace {
		opts = append(opts, config.WithTrace(func(e force.Event) {
			if e.Forward {
				fmt.Fprintf(out, "trace %s -> %s residual %.4f\n", e.Bone, e.To, e.Residual.Len())
				return
			}
			fmt.Fprintf(out, "trace %s force %.4f achieved %.4f\n", e.Bone, e.Force.Len(), e.Achieved.Len())
		}))
	}
	mod, err := puppet.NewReactionModule(c.cfg, c.logger, opts...)
	if err != nil {
		return err
	}
	app := puppet.NewAppBuilder().
		UseModule(puppet.LoggingModule{Logger: c.logger}, puppet.TimeModule{}, mod).
		Build()
	r := mod.Reaction()

	for i := 0; i < o.ticks; i++ {
		if bone != core.NoBone && (i == 0 || o.repeat) {
			var contact *force.Contact
			if o.pull {
				contact = r.Pull(bone, f, o.translate)
			} else {
				contact = r.Push(bone, f, o.translate)
			}
			if contact == nil {
				return fmt.Errorf("%s cannot be touched", bone)
			}
		}
		app.Step(o.dt)
	}
	return writeReport(out, r)
}

func writeReport(out io.Writer, r *puppet.Reaction) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "bone\tx\ty\tz\t")
	angles := r.Angles()
	for _, b := range r.Rig.Skeleton.Bones() {
		a := angles[b]
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\t\n", b, a.X(), a.Y(), a.Z())
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	st := r.Rig.Posture.Status()
	fmt.Fprintf(out, "posture: %s (%s)\n", st.State, st.Strategy)
	t := r.Totals()
	_, err := fmt.Fprintf(out, "tasks: queued %d executed %d merged %d forwarded %d dropped %d feedback %d\n",
		t.Queued, t.Executed, t.Merged, t.Forwarded, t.Dropped, t.Feedback)
	return err
}

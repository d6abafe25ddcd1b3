package puppet

import (
	"time"
)

// Time is the simulated clock. The host supplies Dt through App.Step.
type Time struct {
	Time    time.Time
	Dt      time.Duration
	Elapsed time.Duration
}

// Seconds is Dt as the float the rig works in.
func (t *Time) Seconds() float32 {
	return float32(t.Dt.Seconds())
}

type TimeModule struct {
	Start time.Time
}

func (mod TimeModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(&Time{
		Time: mod.Start,
		Dt:   0,
	})
	cmd.UseSystem(System(timeSystem).InStage(Prelude))
}

func timeSystem(timeResource *Time) {
	timeResource.Time = timeResource.Time.Add(timeResource.Dt)
	timeResource.Elapsed += timeResource.Dt
}

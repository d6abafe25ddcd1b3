package puppet

type Commands struct {
	app *App
}

func (cmd *Commands) AddResources(resources ...any) *Commands {
	cmd.app.addResources(resources...)
	return cmd
}

func (cmd *Commands) UseSystem(system any) *Commands {
	cmd.app.UseSystem(asSchedule(system))
	return cmd
}

func (cmd *Commands) Logger() Logger {
	return cmd.app.Logger()
}

func asSchedule(system any) systemScheduleBuilder {
	if sched, ok := system.(systemScheduleBuilder); ok {
		return sched
	}
	return System(system)
}

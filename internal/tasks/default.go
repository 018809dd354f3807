package tasks

// Default returns the registry of every deploy task.
func Default() *Registry {
	return NewRegistry(
		bootstrapTask,
		checkoutTask,
		createVirtualenvTask,
		updateRequirementsTask,
		deployTask,
		syncdbTask,
		migrateTask,
		collectStaticTask,
		loadFixtureTask,
		createSuperuserTask,
		updateSupervisordTask,
		updateNginxTask,
		nginxTask("reload", "Reload the nginx configuration"),
		nginxTask("restart", "Restart nginx"),
		supervised("start", "start", "", "Start the uWSGI process"),
		supervised("stop", "stop", "", "Stop the uWSGI process"),
		supervised("restart", "restart", "", "Restart the uWSGI process"),
		supervised("start_redis", "start", "-redis", "Start redis"),
		supervised("stop_redis", "stop", "-redis", "Stop redis"),
		supervised("restart_redis", "restart", "-redis", "Restart redis"),
		supervised("start_celeryd", "start", "-celeryd", "Start celeryd"),
		supervised("stop_celeryd", "stop", "-celeryd", "Stop celeryd"),
		restartCelerydTask,
		createDBTask,
	)
}

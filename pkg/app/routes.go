package app

// initDefaultRoutes initializes the applications default routes.
//  These are the routes which always are the same in every application.
//  Things like version, health, ...
func (app *App) initDefaultRoutes() {
	api := app.web.Group("/")
	if app.config.Webserver.Webservices["version"] {
		api.Get("/version", app.HandleVersion())
	}
	if app.config.Webserver.Webservices["health"] {
		api.Get("/health", app.HandleHealth())
	}
	if app.config.Webserver.Webservices["status"] {
		api.Get("/status", app.HandleStatus())
	}
	if app.config.Webserver.Webservices["message"] {
		api.Get("/message", app.HandleMessage())
	}
	if app.config.Webserver.Webservices["send"] {
		api.Post("/send", app.HandleSend())
	}
	if app.config.Webserver.Webservices["control"] {
		api.Post("/reset", app.HandleReset())
		api.Post("/calibrate", app.HandleCalibrate())
		api.Post("/ready", app.HandleReady(true))
		api.Post("/notready", app.HandleReady(false))
	}
}

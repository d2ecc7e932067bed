package app

import (
	"errors"
	"net/http"

	"luxlink/pkg/transmit"

	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"
)

// runWebServer starts the applications web server and listens for web
// requests. It's designed to run in a separate go function to not
// block the main go function. See app.Run().
func (app *App) runWebServer() {
	err := app.web.Listen(app.urlParsed.Host)
	debug.ErrorLog.Print(err)
}

// HandleStatus reports the receiver snapshot and status line.
func (app *App) HandleStatus() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request status")

		app.rxMu.Lock()
		snap := app.rx.Snapshot()
		status := app.rx.Status()
		app.rxMu.Unlock()

		return ctx.JSON(fiber.Map{
			"status":   status,
			"receiver": snap,
			"sending":  app.sender != nil && app.sender.Sending(),
		})
	}
}

// HandleMessage returns the last decoded message.
func (app *App) HandleMessage() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request message")

		return ctx.JSON(app.lastDecoded())
	}
}

// HandleSend starts a transmission of the request body text.
func (app *App) HandleSend() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		text := string(ctx.Body())
		debug.InfoLog.Printf("web request send %q", text)

		if app.sender == nil {
			ctx.Status(http.StatusServiceUnavailable)
			return ctx.JSON(fiber.Map{"error": "no lamp configured"})
		}
		if app.sender.Sending() {
			ctx.Status(http.StatusConflict)
			return ctx.JSON(fiber.Map{"error": transmit.ErrBusy.Error()})
		}

		go func() {
			if err := app.sender.Send(text); err != nil && !errors.Is(err, transmit.ErrBusy) {
				debug.ErrorLog.Printf("transmission failed: %v", err)
			}
		}()

		return ctx.JSON(fiber.Map{"accepted": text})
	}
}

// HandleReset returns the receiver to idle.
func (app *App) HandleReset() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request reset")

		app.rxMu.Lock()
		app.rx.Reset()
		app.rxMu.Unlock()

		return ctx.JSON(fiber.Map{"reset": true})
	}
}

// HandleCalibrate snapshots the ambient brightness as dark baseline.
func (app *App) HandleCalibrate() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request calibrate")

		app.rxMu.Lock()
		ok := app.rx.Calibrate()
		threshold := app.rx.Threshold()
		app.rxMu.Unlock()

		if !ok {
			ctx.Status(http.StatusConflict)
			return ctx.JSON(fiber.Map{"error": "not enough samples to calibrate"})
		}
		return ctx.JSON(fiber.Map{"calibrated": true, "threshold": threshold})
	}
}

// HandleReady opens or closes the readiness gate.
func (app *App) HandleReady(ready bool) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Printf("web request ready=%v", ready)

		app.rxMu.Lock()
		if ready {
			app.rx.MarkReady()
		} else {
			app.rx.MarkNotReady()
		}
		app.rxMu.Unlock()

		return ctx.JSON(fiber.Map{"ready": ready})
	}
}

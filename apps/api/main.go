package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	echoapi "github.com/Shyamyemuka/goldenspire-learn/apps/api/echo"
	"github.com/Shyamyemuka/goldenspire-learn/apps/shared"
	"github.com/Shyamyemuka/goldenspire-learn/core"
	"github.com/Shyamyemuka/goldenspire-learn/core/auth"
	"github.com/Shyamyemuka/goldenspire-learn/core/gate"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()
	logger := shared.NewLogger(conf, "API : ")

	ctx := context.Background()
	app, err := shared.NewApp(ctx, conf, logger, true /* migrate */)
	if err != nil {
		logger.Error(fmt.Sprintf("setting up application: %v", err), err)
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error(fmt.Sprintf("closing application: %v", err), err)
		}
	}()

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	// the holder must see sign-ins before the gate does
	detach, err := app.Holder.Attach(app.Auth)
	if err != nil {
		logger.Error(fmt.Sprintf("attaching session holder: %v", err), err)
		return err
	}
	defer detach()

	g := gate.New(app.Auth, app.Auth, app.Holder, app.Profiles, echoapi.RequestNavigator(), logger)
	unmount, err := g.Mount()
	if err != nil {
		logger.Error(fmt.Sprintf("mounting gate: %v", err), err)
		return err
	}
	defer unmount()

	n, err := app.Auth.Restore(ctx)
	if err != nil {
		logger.Error(fmt.Sprintf("restoring sessions: %v", err), err)
		return err
	}
	logger.Info(fmt.Sprintf("restored %d active sessions", n))

	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	go sweepSessions(sweepCtx, app.Auth, conf.Server.SessionSweepInterval, logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.
	// /metrics - Prometheus metrics.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	http.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:          conf,
		Logger:        logger,
		Auth:          app.Auth,
		Sessions:      app.Holder,
		Gate:          g,
		Profiles:      app.Profiles,
		Signup:        app.Signup,
		Approvals:     app.Approvals,
		Courses:       app.Courses,
		Notifications: app.Notifications,
		Validate:      app.Validate,
		Translator:    app.Translator,
	})

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)
		return err

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(ctx, conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
				return err
			}
		}
	}
	return nil
}

// sweepSessions signs out expired sessions every interval until ctx is done.
func sweepSessions(ctx context.Context, svc *auth.Service, interval time.Duration, logger core.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.ExpireSessions(ctx, core.NowFunc())
			if err != nil {
				logger.Warn(fmt.Sprintf("expiring sessions: %v", err), err)
				continue
			}
			if n > 0 {
				logger.Info(fmt.Sprintf("expired %d sessions", n))
			}
		}
	}
}

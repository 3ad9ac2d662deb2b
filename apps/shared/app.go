// Package shared wires the services the API and the admin CLI run on.
package shared

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/Shyamyemuka/goldenspire-learn/core"
	"github.com/Shyamyemuka/goldenspire-learn/core/approval"
	"github.com/Shyamyemuka/goldenspire-learn/core/auth"
	"github.com/Shyamyemuka/goldenspire-learn/core/course"
	"github.com/Shyamyemuka/goldenspire-learn/core/notification"
	"github.com/Shyamyemuka/goldenspire-learn/core/profile"
	"github.com/Shyamyemuka/goldenspire-learn/core/session"
	"github.com/Shyamyemuka/goldenspire-learn/core/signup"
	"github.com/Shyamyemuka/goldenspire-learn/services/cache"
	"github.com/Shyamyemuka/goldenspire-learn/services/email"
	"github.com/Shyamyemuka/goldenspire-learn/services/logger"
	"github.com/Shyamyemuka/goldenspire-learn/storage/database"
	"github.com/Shyamyemuka/goldenspire-learn/storage/database/inmem"
	"github.com/Shyamyemuka/goldenspire-learn/storage/database/sqlx"
)

// EngineMemory keeps everything in process memory. Handy for demos; nothing survives a restart.
const EngineMemory = "memory"

const cacheNamespace = "pending_approvals"

type (
	repositories struct {
		auth         auth.Repository
		profiles     profile.Repository
		approvals    approval.Repository
		courses      course.Repository
		notification notification.Repository
		tx           core.Transactor
	}

	App struct {
		Conf       *core.Config
		Logger     core.Logger
		DB         *sql.DB // nil on EngineMemory
		Validate   *validator.Validate
		Translator ut.Translator

		Profiles      profile.Repository
		Auth          *auth.Service
		Holder        *session.Holder
		Notifications *notification.Service
		Approvals     *approval.Service
		Signup        *signup.Service
		Courses       *course.Service

		closers []io.Closer
	}
)

// NewLogger returns the Rollbar logger of a subsystem, printing to stdout with prefix.
func NewLogger(conf *core.Config, prefix string) *logsvc.RollbarLogger {
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, prefix, log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	logger.Enable(!conf.Debug)
	return logger
}

// NewApp opens the storage and builds every service. When migrate is set, pending migrations are
// applied first. The session holder is not attached yet: callers attach it, mount their gate, then
// restore sessions.
func NewApp(ctx context.Context, conf *core.Config, logger core.Logger, migrate bool) (*App, error) {
	app := &App{
		Conf:       conf,
		Logger:     logger,
		Validate:   validator.New(),
		Translator: core.NewTranslator(),
		Holder:     session.NewHolder(),
	}
	core.InitValidators(app.Validate, app.Translator)
	signup.InitValidators(app.Validate, app.Translator)
	core.ParseEmailTemplates(conf, logger)

	repos, err := app.openStorage(ctx, migrate)
	if err != nil {
		return nil, err
	}

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, log.New(os.Stdout, "MAIL : ", log.LstdFlags), logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	app.Profiles = repos.profiles
	app.Auth = auth.NewService(repos.auth, conf, logger)
	app.Notifications = notification.NewService(repos.notification)
	app.Approvals = approval.NewService(approval.Deps{
		Repo:     repos.approvals,
		Profiles: repos.profiles,
		Notifier: app.Notifications,
		Tx:       repos.tx,
		Sessions: app.Holder,
		Cache:    app.newCache(ctx),
		MailSvc:  mailSvc,
		Logger:   logger,
	})
	app.Signup = signup.NewService(app.Auth, repos.profiles, app.Approvals, repos.tx, logger)
	app.Courses = course.NewService(repos.courses, repos.profiles, app.Notifications, repos.tx, mailSvc, logger)
	return app, nil
}

func (app *App) openStorage(ctx context.Context, migrate bool) (repositories, error) {
	if app.Conf.Database.Engine == EngineMemory {
		app.Logger.Warn("using in-memory storage: nothing survives a restart")
		db := inmemdb.Open()
		return repositories{
			auth:         inmemdb.NewAuthRepository(db),
			profiles:     inmemdb.NewProfileRepository(db),
			approvals:    inmemdb.NewApprovalRepository(db),
			courses:      inmemdb.NewCourseRepository(db),
			notification: inmemdb.NewNotificationRepository(db),
			tx:           inmemdb.NewTransactor(db),
		}, nil
	}

	if migrate {
		if err := database.CreateIfNotExist(ctx, app.Conf); err != nil {
			return repositories{}, errors.Wrap(err, "creating database")
		}
	}
	db, err := database.Open(app.Conf)
	if err != nil {
		return repositories{}, err
	}
	app.DB = db
	app.closers = append(app.closers, db)
	if migrate {
		if err = database.Migrate(ctx, db); err != nil {
			return repositories{}, err
		}
	}

	return repositories{
		auth:         sqlxrepos.NewAuthRepository(db),
		profiles:     sqlxrepos.NewProfileRepository(db),
		approvals:    sqlxrepos.NewApprovalRepository(db),
		courses:      sqlxrepos.NewCourseRepository(db),
		notification: sqlxrepos.NewNotificationRepository(db),
		tx:           database.NewTransactor(db),
	}, nil
}

// newCache returns the redis cache when redis is configured and answers, the in-process one otherwise.
func (app *App) newCache(ctx context.Context) approval.Cache {
	conf := app.Conf
	if conf.Redis.Address == "" {
		return cachesvc.NewMemoryCache(conf.Redis.CacheTTL)
	}

	client := cachesvc.NewRedisClient(conf)
	c := cachesvc.NewRedisCache(client, cacheNamespace, conf.Redis.CacheTTL)
	if err := c.Ping(ctx); err != nil {
		app.Logger.Warn(fmt.Sprintf("redis unavailable, caching in memory: %v", err), err)
		_ = client.Close()
		return cachesvc.NewMemoryCache(conf.Redis.CacheTTL)
	}
	app.closers = append(app.closers, client)
	return c
}

// Close releases the storage and cache connections.
func (app *App) Close() error {
	var firstErr error
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

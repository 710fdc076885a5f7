// Command jrestd serves owners and tasks over REST from a SQL database,
// Redis or memory.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/shrek82/jrest/config"
	"github.com/shrek82/jrest/core"
	"github.com/shrek82/jrest/logger"
	"github.com/shrek82/jrest/memstore"
	"github.com/shrek82/jrest/middleware"
	"github.com/shrek82/jrest/model"
	"github.com/shrek82/jrest/query"
	"github.com/shrek82/jrest/redisstore"
	"github.com/shrek82/jrest/resource"
)

const ownerHeader = "X-Owner-Id"

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	envFile := flag.String("env", ".env", "path to the .env file")
	storeKind := flag.String("store", "sql", "entity store: sql, memory or redis")
	flag.Parse()

	if err := run(*configPath, *envFile, *storeKind); err != nil {
		fmt.Fprintln(os.Stderr, "jrestd:", err)
		os.Exit(1)
	}
}

func run(configPath, envFile, storeKind string) error {
	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		return err
	}
	log, err := cfg.Log.Logger(os.Stdout)
	if err != nil {
		return err
	}
	logger.Default = log

	if err := ownerRules.Check(ownerMeta.Defs); err != nil {
		return err
	}
	if err := taskRules.Check(taskMeta.Defs); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openStores(ctx, cfg, storeKind, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.close(); err != nil {
			log.Error("close store: %v", err)
		}
	}()

	e, err := newServer(cfg, s, log)
	if err != nil {
		return err
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("listening on %s (store %s)", cfg.HTTP.Addr, storeKind)
		errc <- e.Start(cfg.HTTP.Addr)
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

type stores struct {
	owners resource.Store[*Owner]
	tasks  resource.Store[*Task]
	close  func() error
}

func openStores(ctx context.Context, cfg *config.Config, kind string, log logger.Logger) (*stores, error) {
	switch kind {
	case "memory":
		return &stores{
			owners: memstore.New[*Owner](),
			tasks:  memstore.New[*Task](),
			close:  func() error { return nil },
		}, nil
	case "redis":
		return openRedis(ctx, cfg.Redis)
	case "sql":
		return openSQL(ctx, cfg.Database, log)
	}
	return nil, fmt.Errorf("unknown store %q", kind)
}

func openRedis(ctx context.Context, cfg config.RedisConfig) (*stores, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis %s: %w", cfg.Addr, err)
	}

	owners, err := redisstore.New[*Owner](client, cfg.Prefix)
	if err != nil {
		client.Close()
		return nil, err
	}
	tasks, err := redisstore.New[*Task](client, cfg.Prefix)
	if err != nil {
		client.Close()
		return nil, err
	}
	return &stores{owners: owners, tasks: tasks, close: client.Close}, nil
}

func openSQL(ctx context.Context, cfg config.DatabaseConfig, log logger.Logger) (*stores, error) {
	db, err := core.Open(cfg.Driver, cfg.DSN, cfg.Options())
	if err != nil {
		return nil, err
	}
	db.SetLogger(log)

	mws := []core.QueryMiddleware{
		middleware.NewTracing(),
		middleware.NewSlowLog(cfg.SlowThreshold, cfg.SlowLogPath),
	}
	if cfg.BreakerThreshold > 0 {
		mws = append(mws, middleware.NewCircuitBreaker(cfg.BreakerThreshold, cfg.BreakerReset))
	}
	if err := db.Use(mws...); err != nil {
		db.Close()
		return nil, err
	}

	if err := db.Prepare(ctx, ownerMeta, taskMeta); err != nil {
		db.Close()
		return nil, err
	}

	owners, err := core.NewRepository[*Owner](db)
	if err != nil {
		db.Close()
		return nil, err
	}
	tasks, err := core.NewRepository[*Task](db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &stores{owners: owners, tasks: tasks, close: db.Close}, nil
}

func newServer(cfg *config.Config, s *stores, log logger.Logger) (*echo.Echo, error) {
	owners, err := resource.New[*Owner](s.owners, resource.RulesPolicy[*Owner]{Rules: ownerRules})
	if err != nil {
		return nil, err
	}
	tasks, err := resource.New[*Task](s.tasks, resource.RulesPolicy[*Task]{
		Policy: resource.PolicyFuncs[*Task]{
			AuthorizeFunc:  ownsTask,
			BulkFilterFunc: taskFilter,
			ValidateFunc:   defaultStatus,
		},
		Rules: taskRules,
	})
	if err != nil {
		return nil, err
	}
	owners.SetLogger(log)
	tasks.SetLogger(log)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = resource.Serializer{}
	e.HTTPErrorHandler = errorHandler(resource.ErrorHandler(log))

	e.Use(echomw.Recover())
	e.Use(echomw.BodyLimit(cfg.HTTP.BodyLimit))
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	if cfg.HTTP.RateLimit > 0 {
		e.Use(rateLimit(cfg.HTTP))
	}
	e.Use(identify)

	api := e.Group("/api")
	resource.Mount(api.Group("/owners"), owners)
	resource.Mount(api.Group("/tasks"), tasks)
	return e, nil
}

// rateLimit limits each client address to cfg.RateLimit requests per second.
func rateLimit(cfg config.HTTPConfig) echo.MiddlewareFunc {
	return echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Store: echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(cfg.RateLimit),
			Burst:     cfg.RateBurst,
			ExpiresIn: 3 * time.Minute,
		}),
	})
}

// identify stores the owner named by the X-Owner-Id header as the request
// identity.
func identify(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if raw := ctx.Request().Header.Get(ownerHeader); raw != "" {
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid "+ownerHeader)
			}
			ctx.Set(resource.IdentityKey, model.Some(n))
		}
		return next(ctx)
	}
}

// ownsTask lets an identified owner act only on its own tasks and on
// unassigned ones. Anonymous requests are allowed.
func ownsTask(req *resource.Request, t *Task) bool {
	id, ok := req.Identity.(model.Identifier)
	if !ok || !t.Owner.Valid {
		return true
	}
	return id == t.Owner
}

// taskFilter takes ?filter= for anonymous requests. An identified owner is
// always scoped to its own tasks; the only filter it may send is that scope.
func taskFilter(req *resource.Request) (*query.Filter, error) {
	f, err := resource.QueryFilter("status", "priority", "owner_id", "due")(req)
	if err != nil {
		return nil, err
	}
	id, ok := req.Identity.(model.Identifier)
	if !ok {
		return f, nil
	}

	scope := query.Eq("owner_id", id)
	if f == nil {
		return scope, nil
	}
	tf, err := f.Typed(taskMeta.Defs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", resource.ErrDecode, err)
	}
	if tf.Field != "owner_id" || tf.Op != query.Equals || tf.Value != id {
		return nil, fmt.Errorf("%w: owner %s can only filter on its own tasks", resource.ErrDecode, id)
	}
	return scope, nil
}

func defaultStatus(_ *resource.Request, t *Task) error {
	if t.Status == "" {
		t.Status = "open"
	}
	return nil
}

func errorHandler(next echo.HTTPErrorHandler) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		if errors.Is(err, middleware.ErrCircuitOpen) {
			err = echo.NewHTTPError(http.StatusServiceUnavailable, "database unavailable")
		}
		next(err, ctx)
	}
}

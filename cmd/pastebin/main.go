package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pastebin/cfg"
	"pastebin/svc/api"
	"pastebin/svc/auth"
	"pastebin/svc/db"
	"pastebin/svc/lim"
	"pastebin/svc/svc"
	"pastebin/svc/util"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run returns the process exit code so deferred cleanup runs before exiting.
func run(args []string) int {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		util.Warn().Err(err).Msg("failed to read .env file")
	}
	c, err := cfg.Load()
	if err != nil {
		util.Error().Err(err).Msg("failed to load configuration")
		return 1
	}
	defer c.Wipe()
	if err := cfg.Validate(c); err != nil {
		util.Error().Err(err).Msg("invalid configuration")
		return 1
	}
	util.InitLog(c.LogLevel, c.Environment == "development")

	if len(args) > 0 {
		switch args[0] {
		case "-health":
			return runHealth(c)
		case "prune":
			return runPrune(c)
		case "checkpoint":
			return runCheckpoint(c)
		default:
			util.Error().Str("command", args[0]).Msg("unknown command (want -health, prune or checkpoint)")
			return 2
		}
	}
	if err := serve(c); err != nil {
		util.Error().Err(err).Msg("server failed")
		return 1
	}
	return 0
}

func openStore(c *cfg.Cfg) (*db.SQLite, error) {
	return db.NewSQLiteWithConfig(c.DatabasePath, c.Variant, c.DBMaxOpenConns, c.DBMaxIdleConns, c.DBQueryTimeout)
}

func runHealth(c *cfg.Cfg) int {
	sqlDB, err := openStore(c)
	if err != nil {
		return 1
	}
	defer sqlDB.Close()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := sqlDB.Ping(ctx); err != nil {
		return 1
	}
	return 0
}

func runPrune(c *cfg.Cfg) int {
	sqlDB, err := openStore(c)
	if err != nil {
		util.Error().Err(err).Msg("failed to open database")
		return 1
	}
	defer sqlDB.Close()
	n, err := sqlDB.DeleteExpired(context.Background(), time.Now())
	if err != nil {
		util.Error().Err(err).Int("deleted", n).Msg("prune failed")
		return 1
	}
	util.Info().Int("deleted", n).Str("path", c.DatabasePath).Msg("expired pastes pruned")
	return 0
}

func runCheckpoint(c *cfg.Cfg) int {
	sqlDB, err := openStore(c)
	if err != nil {
		util.Error().Err(err).Msg("failed to open database")
		return 1
	}
	defer sqlDB.Close()
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	res, err := sqlDB.Checkpoint(ctx)
	if err != nil {
		util.Error().Err(err).Msg("checkpoint failed")
		return 1
	}
	util.Info().
		Int("log_pages", res.LogPages).
		Int("checkpointed", res.Checkpointed).
		Bool("truncated", res.Truncated).
		Dur("duration", res.Duration).
		Msg("WAL checkpoint complete")
	return 0
}

func newGate(c *cfg.Cfg) (*auth.Gate, error) {
	if !c.PasswordHashing {
		util.Warn().Msg("paste passwords are stored in plaintext; set PASSWORD_HASHING=true to hash them")
		return auth.NewPlainGate(), nil
	}
	return auth.NewArgon2Gate(c.Argon2.Time, c.Argon2.Memory, c.Argon2.Parallelism)
}

func serve(c *cfg.Cfg) error {
	util.Info().Str("variant", string(c.Variant)).Msg("starting pastebin")
	sqlDB, err := openStore(c)
	if err != nil {
		return err
	}
	defer sqlDB.Close()
	util.Info().Str("path", c.DatabasePath).Msg("database initialized")

	var rdb *db.Redis
	var counter lim.Counter
	if c.RedisURL != "" {
		rdb, err = db.NewRedis(c.RedisURL, c.RedisTimeout)
		if err != nil {
			if c.Environment == "production" {
				return err
			}
			util.Warn().Err(err).Msg("redis unavailable, rate limiting per process")
		} else {
			defer rdb.Close()
			counter = rdb
			util.Info().Msg("redis connected")
		}
	}

	gate, err := newGate(c)
	if err != nil {
		return err
	}
	limiter, err := lim.New(c.RateLimit.RPM, c.RateLimit.Burst, counter, c.TrustedProxies)
	if err != nil {
		return err
	}
	util.Info().
		Int("rpm", c.RateLimit.RPM).
		Int("burst", c.RateLimit.Burst).
		Strs("trusted_proxies", c.TrustedProxies).
		Msg("rate limiter initialized")

	pasteSvc := svc.NewPaste(sqlDB, gate, c)
	server := api.NewServer(c, pasteSvc, limiter, sqlDB, rdb)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-ctx.Done()
		util.Info().Msg("shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		return err
	}
	util.Info().Msg("shutdown complete")
	return nil
}

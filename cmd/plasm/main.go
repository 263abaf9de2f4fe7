package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/uber-go/tally/v4"

	"github.com/reoring/plasm"
	"github.com/reoring/plasm/config"
	"github.com/reoring/plasm/effect"
	"github.com/reoring/plasm/i18n"
	"github.com/reoring/plasm/internal/letter"
	"github.com/reoring/plasm/middleware"
	echomw "github.com/reoring/plasm/middleware/echo"
	ginmw "github.com/reoring/plasm/middleware/gin"
	"github.com/reoring/plasm/repo"
	"github.com/reoring/plasm/repo/sqlstore"
)

const shutdownGrace = 10 * time.Second

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	sub := os.Args[1]
	switch sub {
	case "serve":
		serveCmd("serve", os.Args[2:], letter.Intake, func(d letter.Deps, cfg config.Config) *middleware.Table {
			return letter.IntakeApp(d, &letter.Forwarder{URL: cfg.Publish.URL, Log: d.Log})
		})
	case "publish":
		serveCmd("publish", os.Args[2:], letter.Published, func(d letter.Deps, cfg config.Config) *middleware.Table {
			return letter.PublishApp(d, &letter.Notifier{SMTP: cfg.SMTP, Log: d.Log})
		})
	case "schema":
		schemaCmd(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "plasm CLI\n\nUsage:\n  plasm serve   [-config config.yaml] [-addr :9001]\n  plasm publish [-config config.yaml] [-addr :9000]\n  plasm schema  [-app intake|publish]\n\nNotes:\n  - serve runs the intake app and forwards letters to publish.url.\n  - publish runs the publishing API and mails smtp.to for every stored letter.")
}

type buildFunc func(letter.Deps, config.Config) *middleware.Table

func serveCmd(name string, args []string, s *plasm.SchemaDefinition, build buildFunc) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	var cfgPath, addr string
	fs.StringVar(&cfgPath, "config", "", "path to a YAML or JSON config file")
	fs.StringVar(&addr, "addr", "", "listen address (overrides http.addr)")
	_ = fs.Parse(args)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fatalf("%v", err)
	}
	if addr != "" {
		cfg.HTTP.Addr = addr
	} else if name == "publish" && cfgPath == "" {
		cfg.HTTP.Addr = ":9000"
	}
	log, err := cfg.Log.NewLogger(os.Stderr)
	if err != nil {
		fatalf("%v", err)
	}
	slog.SetDefault(log)
	i18n.SetLanguage(cfg.Lang)

	if err := run(name, cfg, log, s, build); err != nil {
		log.Error("exit", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(name string, cfg config.Config, log *slog.Logger, s *plasm.SchemaDefinition, build buildFunc) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := sqlstore.Open(ctx, cfg.Database.Driver, cfg.Database.DSN, sqlstore.WithLogger(log))
	if err != nil {
		return err
	}
	defer store.Close()
	r := repo.New(store, store.Dialect())
	if err := r.EnsureTable(ctx, s); err != nil {
		return err
	}

	scope, closer := tally.NewRootScope(tally.ScopeOptions{
		Prefix:   "plasm_" + name,
		Reporter: tally.NullStatsReporter,
	}, time.Second)
	defer closer.Close()

	runner := effect.NewRunner(r,
		effect.WithLogger(log),
		effect.WithScope(scope.SubScope("effect")),
		effect.WithBaseContext(context.WithoutCancel(ctx)))
	deps := letter.Deps{Repo: r, Runner: runner, Log: log}

	srv := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler(cfg.HTTP.Engine, build(deps, cfg))}
	errc := make(chan error, 1)
	go func() {
		log.Info("listening", slog.String("app", name), slog.String("addr", cfg.HTTP.Addr),
			slog.String("engine", cfg.HTTP.Engine), slog.String("driver", cfg.Database.Driver))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		log.Warn("http shutdown", slog.Any("error", err))
	}
	if err := runner.Shutdown(shutCtx); err != nil {
		log.Warn("side effects still running", slog.Any("error", err))
	}
	return nil
}

func handler(engine string, t *middleware.Table) http.Handler {
	if engine == "gin" {
		gin.SetMode(gin.ReleaseMode)
		return ginmw.New(t)
	}
	return echomw.New(t)
}

func schemaCmd(args []string) {
	fs := flag.NewFlagSet("schema", flag.ExitOnError)
	var app string
	fs.StringVar(&app, "app", "intake", "intake or publish")
	_ = fs.Parse(args)
	var s *plasm.SchemaDefinition
	switch app {
	case "intake":
		s = letter.Intake
	case "publish":
		s = letter.Published
	default:
		fs.Usage()
		os.Exit(2)
	}
	b, err := plasm.EncodeJSON(s.JSONSchema())
	if err != nil {
		fatalf("encode: %v", err)
	}
	fmt.Println(string(b))
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}

package letter

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/reoring/plasm"
	"github.com/reoring/plasm/codec"
	"github.com/reoring/plasm/effect"
	"github.com/reoring/plasm/middleware"
	"github.com/reoring/plasm/repo"
)

// Deps are the shared resources both apps are built from.
type Deps struct {
	Repo   *repo.Repository
	Runner *effect.Runner
	Log    *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
	// SwishKey defaults to NewSwishKey.
	SwishKey func() string
}

func (d Deps) logger() *slog.Logger {
	if d.Log == nil {
		return slog.Default()
	}
	return d.Log
}

// IntakeApp routes the client-facing app: new letters get a swish key, are
// stored, and are forwarded to the publishing API in the background.
func IntakeApp(d Deps, fwd *Forwarder) *middleware.Table {
	key := d.SwishKey
	if key == nil {
		key = NewSwishKey
	}
	stamp := plasm.Map(func(_ context.Context, e plasm.Entity) plasm.Entity {
		e.Values["swishKey"] = key()
		return e
	})
	create := plasm.Pipe(Intake, Accepted,
		stamp,
		plasm.Validation,
		d.Repo.Insert,
		d.Runner.Wrap(fwd.Send),
	)
	return common(d, Intake).Add(http.MethodPost, "/letter", create)
}

// PublishApp routes the publishing API: letters are stamped with their
// creation time, stored, and announced by mail in the background.
func PublishApp(d Deps, n *Notifier) *middleware.Table {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	stamp := plasm.Map(func(_ context.Context, e plasm.Entity) plasm.Entity {
		e.Values["createdAt"] = codec.Encode(now())
		return e
	})
	create := plasm.Pipe(Published, Accepted,
		stamp,
		plasm.Validation,
		d.Repo.Insert,
		d.Runner.Wrap(n.Notify),
	)
	return common(d, Published).Add(http.MethodPost, "/letter", create)
}

func common(d Deps, s *plasm.SchemaDefinition) *middleware.Table {
	return middleware.NewTable(middleware.WithLogger(d.logger())).
		Add(http.MethodGet, "/letter/:id", Lookup(d.Repo, s)).
		AddRaw(http.MethodGet, "/schema/:name", SchemaExport(s)).
		AddRaw(http.MethodGet, "/healthz", func(context.Context, map[string]string) (int, any) {
			return http.StatusOK, map[string]string{"status": "ok"}
		})
}

// Lookup answers point reads by the "id" request value.
func Lookup(r *repo.Repository, s *plasm.SchemaDefinition) plasm.Handler {
	return func(ctx context.Context, body map[string]any) (plasm.Result, error) {
		id, ok := plasm.AsInt64(body[plasm.IDField])
		if !ok {
			return plasm.Invalid(plasm.ValidationErrors{plasm.IDField: plasm.CodeValidation}), nil
		}
		e, err := r.Get(ctx, s, id)
		if err != nil {
			return plasm.Result{}, err
		}
		return plasm.Ok(e), nil
	}
}

// SchemaExport serves the JSON Schema of s under its name.
func SchemaExport(s *plasm.SchemaDefinition) middleware.RawHandler {
	return func(_ context.Context, params map[string]string) (int, any) {
		if params["name"] != s.Name() {
			return http.StatusNotFound, map[string]string{"404": "not found"}
		}
		return http.StatusOK, s.JSONSchema()
	}
}

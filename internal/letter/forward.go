package letter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/reoring/plasm"
	"github.com/reoring/plasm/effect"
)

// Forwarder posts stored letters to the publishing API and records the id it
// answers with as apiId.
type Forwarder struct {
	URL    string
	Client *http.Client
	Log    *slog.Logger
}

// Send is the side effect run after an intake letter is stored.
func (f *Forwarder) Send(ctx context.Context, e plasm.Entity) (effect.Outcome, error) {
	body, err := plasm.EncodeJSON(e.Values)
	if err != nil {
		return effect.Outcome{}, fmt.Errorf("encode letter: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.URL, bytes.NewReader(body))
	if err != nil {
		return effect.Outcome{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return effect.Outcome{}, fmt.Errorf("forward letter: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return effect.Fail(fmt.Sprintf("publishing api answered %d: %s", resp.StatusCode, msg)), nil
	}
	out, err := plasm.DecodeJSON(resp.Body)
	if err != nil {
		return effect.Outcome{}, fmt.Errorf("read publishing api reply: %w", err)
	}
	apiID, ok := plasm.AsInt64(out[plasm.IDField])
	if !ok {
		return effect.Fail("publishing api reply has no id"), nil
	}
	if f.Log != nil {
		task, _ := effect.TaskID(ctx)
		f.Log.InfoContext(ctx, "letter forwarded", slog.String("task", task), slog.Int64("apiId", apiID))
	}
	return effect.Merge(plasm.Cast(Intake, []string{plasm.IDField, "apiId"}, map[string]any{
		plasm.IDField: e.Values[plasm.IDField],
		"apiId":       apiID,
	})), nil
}

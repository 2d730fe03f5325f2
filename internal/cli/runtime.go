package cli

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/weftlabs/weft/internal/actionlog"
	"github.com/weftlabs/weft/internal/dispatch"
	"github.com/weftlabs/weft/internal/gate"
	"github.com/weftlabs/weft/internal/index"
	"github.com/weftlabs/weft/internal/ir"
)

// runtime bundles the per-command wiring: the opened log plus the index,
// gate resolver, and dispatch registry derived from a bundle file.
type runtime struct {
	log      *actionlog.Log
	idx      *index.Index
	gates    *gate.Resolver
	registry *dispatch.Registry
	bundle   *Bundle
}

// openRuntime loads the bundle and opens the action log. Registration
// warnings are logged, not fatal: a suite with one dangling reference
// stays usable.
func openRuntime(dbPath, bundlePath string) (*runtime, error) {
	bundle, err := LoadBundle(bundlePath)
	if err != nil {
		return nil, WrapExitError(ExitFailure, "load bundle", err)
	}

	idx := index.New(bundle.Concepts)
	for _, s := range bundle.Syncs {
		for _, w := range idx.Register(s) {
			slog.Warn("sync registration warning",
				"sync", w.Sync,
				"ref", w.Ref,
				"reason", w.Reason,
			)
		}
	}

	log, err := actionlog.Open(dbPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open action log", err)
	}

	// The CLI has no real concept handlers; every concept echoes its
	// input. Gated concepts defer instead, so their invocations suspend
	// until `weft resume` delivers the completion.
	registry := dispatch.NewRegistry()
	gates := gate.NewResolver(bundle.Concepts)
	for _, c := range bundle.Concepts {
		if gates.IsGated(c.URI) {
			registry.Register(c.URI, pendingHandler{})
		} else {
			registry.Register(c.URI, dispatch.NewScripted(nil))
		}
	}

	return &runtime{log: log, idx: idx, gates: gates, registry: registry, bundle: bundle}, nil
}

func (r *runtime) Close() error {
	return r.log.Close()
}

// pendingHandler defers every action, the default for gated concepts.
type pendingHandler struct{}

func (pendingHandler) Invoke(_ context.Context, _ string, _ ir.Object) (dispatch.Outcome, error) {
	return dispatch.Pending(), nil
}

// parseObjectFlag decodes a --input/--output JSON object flag.
func parseObjectFlag(raw string) (ir.Object, error) {
	if raw == "" {
		return nil, nil
	}
	var obj ir.Object
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

package main

import (
	"context"

	"github.com/pkg/errors"

	"calmirror/internal/config"
)

// resetCmd deletes every upcoming event in a profile's destination
// calendar and empties its state tables. Destructive, so it refuses to
// run without an explicit --profile.
func resetCmd(ctx context.Context, e *env) error {
	if e.k.String(config.ProfileName) == "" {
		return errors.New("reset requires --profile")
	}
	engine, profiles, dir, err := e.engine(ctx)
	if err != nil {
		return err
	}
	return runLocked(dir, func() error {
		return engine.Reset(ctx, profiles[0])
	})
}

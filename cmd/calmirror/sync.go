package main

import (
	"context"
	"path/filepath"

	"calmirror/internal/syncer"
)

const lockFile = "calmirror.lock"

func syncCmd(ctx context.Context, e *env) error {
	engine, profiles, dir, err := e.engine(ctx)
	if err != nil {
		return err
	}
	return runLocked(dir, func() error {
		return engine.Run(ctx, profiles)
	})
}

// runLocked guards a pass with the state directory lock so two processes
// cannot interleave whole-table store writes.
func runLocked(dir string, run func() error) error {
	release, err := syncer.AcquireLock(filepath.Join(dir, lockFile))
	if err != nil {
		return err
	}
	defer release()
	return run()
}

package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	storageapi "google.golang.org/api/storage/v1"

	"calmirror/internal"
	"calmirror/internal/auth"
	"calmirror/internal/config"
	"calmirror/internal/gateway/google"
	"calmirror/internal/store"
	"calmirror/internal/syncer"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// env carries what every subcommand needs before it builds anything.
type env struct {
	k   *koanf.Koanf
	log zerolog.Logger
}

func (e *env) session() (*auth.Session, error) {
	credJSON, err := os.ReadFile(e.k.String(config.GoogleCredentials))
	if err != nil {
		return nil, errors.Wrap(err, "reading credentials file")
	}
	return auth.NewSession(credJSON, e.k.String(config.GoogleToken))
}

func (e *env) stateDir() (string, error) {
	dir := e.k.String(config.StateDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "creating state directory")
	}
	return dir, nil
}

func (e *env) store(ctx context.Context, dir string) (internal.Store, error) {
	switch backend := e.k.String(config.StoreBackend); backend {
	case "file":
		return store.NewFile(filepath.Join(dir, "state")), nil
	case "sqlite":
		path := e.k.String(config.StoreSQLite)
		if path == "" {
			path = filepath.Join(dir, "state.db")
		}
		db, err := sqlx.Open(store.DriverName, path)
		if err != nil {
			return nil, errors.Wrap(err, "opening sqlite database")
		}
		return store.NewSQLite(db.DB), nil
	case "gcs":
		bucket := e.k.String(config.StoreBucket)
		if bucket == "" {
			return nil, errors.New("the gcs backend requires --store.bucket")
		}
		svc, err := storageapi.NewService(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "creating storage client")
		}
		return store.NewGCS(svc, bucket), nil
	default:
		return nil, errors.Errorf("unknown store backend %q", backend)
	}
}

// engine wires gateway, store and profiles into a ready syncer.Engine.
func (e *env) engine(ctx context.Context) (*syncer.Engine, []internal.Profile, string, error) {
	dir, err := e.stateDir()
	if err != nil {
		return nil, nil, "", err
	}

	session, err := e.session()
	if err != nil {
		return nil, nil, "", err
	}
	httpClient, err := session.Client(ctx)
	if err != nil {
		return nil, nil, "", errors.Wrap(err, "building authenticated client, run login first")
	}
	gw, err := google.NewClient(ctx, httpClient, e.log)
	if err != nil {
		return nil, nil, "", err
	}

	cfg, err := config.LoadFile(e.k.String(config.ConfigFile))
	if err != nil {
		return nil, nil, "", err
	}
	calendars, err := gw.Calendars(ctx)
	if err != nil {
		return nil, nil, "", errors.Wrap(err, "listing calendars")
	}
	profiles, err := cfg.Resolve(calendars)
	if err != nil {
		return nil, nil, "", err
	}
	if name := e.k.String(config.ProfileName); name != "" {
		profiles, err = selectProfile(profiles, name)
		if err != nil {
			return nil, nil, "", err
		}
	}

	st, err := e.store(ctx, dir)
	if err != nil {
		return nil, nil, "", err
	}
	return syncer.NewEngine(gw, gw, st, e.log), profiles, dir, nil
}

func selectProfile(profiles []internal.Profile, name string) ([]internal.Profile, error) {
	for _, p := range profiles {
		if p.Name == name {
			return []internal.Profile{p}, nil
		}
	}
	return nil, errors.Errorf("profile %q not found", name)
}

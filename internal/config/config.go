package config

import (
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	flag "github.com/spf13/pflag"

	"calmirror/internal"
)

// Koanf keys for the command line surface.
const (
	LogLevel          = "log.level"
	ConfigFile        = "config"
	StateDir          = "state.dir"
	StoreBackend      = "store.backend"
	StoreSQLite       = "store.sqlite"
	StoreBucket       = "store.bucket"
	GoogleCredentials = "google.credentials"
	GoogleToken       = "google.token"
	DaemonCron        = "daemon.cron"
	ProfileName       = "profile"
)

const defaultTimezone = "America/Phoenix"

// Flags declares the flag set shared by every subcommand.
func Flags() *flag.FlagSet {
	f := flag.NewFlagSet("calmirror", flag.ContinueOnError)
	f.String(LogLevel, "info", "log level")
	f.String(ConfigFile, "calmirror.yml", "path to the profiles file")
	f.String(StateDir, ".calmirror", "directory for sync state and the run lock")
	f.String(StoreBackend, "file", "state store backend (file, sqlite or gcs)")
	f.String(StoreSQLite, "", "sqlite database path, for the sqlite backend")
	f.String(StoreBucket, "", "bucket name, for the gcs backend")
	f.String(GoogleCredentials, "credentials.json", "path to the oauth client credentials")
	f.String(GoogleToken, "token.json", "path to the cached oauth token")
	f.String(DaemonCron, "*/15 * * * *", "cron expression for daemon mode")
	f.String(ProfileName, "", "restrict the run to a single profile")
	return f
}

// Load parses args into the flag set and folds them into a koanf instance.
func Load(f *flag.FlagSet, args []string) (*koanf.Koanf, error) {
	if err := f.Parse(args); err != nil {
		return nil, errors.Wrap(err, "parsing flags")
	}
	k := koanf.New(".")
	if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
		return nil, errors.Wrap(err, "loading config")
	}
	return k, nil
}

// File is the on-disk profiles document.
type File struct {
	Timezone string        `koanf:"timezone"`
	Profiles []ProfileSpec `koanf:"profiles"`
}

// ProfileSpec names calendars by their display name, not their opaque id.
// Resolve turns the names into ids using the account's calendar list.
type ProfileSpec struct {
	Name        string   `koanf:"name"`
	Sources     []string `koanf:"sources"`
	Destination string   `koanf:"destination"`
	TaskList    string   `koanf:"tasklist"`
	SkipTitles  []string `koanf:"skip_titles"`
}

// LoadFile reads and validates the YAML profiles document at path.
func LoadFile(path string) (*File, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	var cfg File
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	if err := cfg.validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid %s", path)
	}
	return &cfg, nil
}

func (c *File) validate() error {
	if len(c.Profiles) == 0 {
		return errors.New("no profiles defined")
	}
	seen := make(map[string]bool, len(c.Profiles))
	for _, p := range c.Profiles {
		switch {
		case p.Name == "":
			return errors.New("profile without a name")
		case seen[p.Name]:
			return errors.Errorf("duplicate profile %q", p.Name)
		case len(p.Sources) == 0:
			return errors.Errorf("profile %q has no source calendars", p.Name)
		case p.Destination == "":
			return errors.Errorf("profile %q has no destination calendar", p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

// Resolve maps the document's calendar names to ids using calendars, the
// lowercased name to id index of the account's calendar list. Unknown names
// are an error so a typo cannot silently mirror into the wrong calendar.
func (c *File) Resolve(calendars map[string]string) ([]internal.Profile, error) {
	tz := c.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, errors.Wrapf(err, "loading timezone %q", tz)
	}

	lookup := func(name string) (string, error) {
		id, ok := calendars[strings.ToLower(name)]
		if !ok {
			return "", errors.Errorf("calendar %q not found in the account", name)
		}
		return id, nil
	}

	profiles := make([]internal.Profile, 0, len(c.Profiles))
	for _, spec := range c.Profiles {
		p := internal.Profile{
			Name:           spec.Name,
			TaskListID:     spec.TaskList,
			TitleBlocklist: spec.SkipTitles,
			Location:       loc,
		}
		if p.DestinationCalendarID, err = lookup(spec.Destination); err != nil {
			return nil, errors.Wrapf(err, "profile %q", spec.Name)
		}
		for _, src := range spec.Sources {
			id, err := lookup(src)
			if err != nil {
				return nil, errors.Wrapf(err, "profile %q", spec.Name)
			}
			p.SourceCalendarIDs = append(p.SourceCalendarIDs, id)
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

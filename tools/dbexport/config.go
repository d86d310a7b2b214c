package main

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/tphakala/birdobs/internal/conf"
)

const maxBatchSize = 10000

// Config holds the flags of the export tool
type Config struct {
	ConfigPath string

	// SourcePath is the SQLite file to read, defaulting to datastore.sqlite.path
	SourcePath string

	// TargetType selects the destination store, defaulting to datastore.type.
	// TargetPath is only used for SQLite targets.
	TargetType string
	TargetPath string

	// Datasets limits the copy, empty means every configured dataset
	Datasets []string

	BatchSize  int
	Clean      bool
	SkipVerify bool
	Verbose    bool
}

// Load reads birdobs settings and derives the source and target store settings
func (c *Config) Load() (source, target *conf.Settings, err error) {
	settings, err := conf.LoadFile(c.ConfigPath)
	if err != nil {
		return nil, nil, err
	}
	return c.resolve(settings)
}

// resolve validates the flags against settings. Both returned settings are
// copies of settings that differ only in the datastore section.
func (c *Config) resolve(settings *conf.Settings) (source, target *conf.Settings, err error) {
	if c.BatchSize < 1 || c.BatchSize > maxBatchSize {
		return nil, nil, fmt.Errorf("batch-size must be between 1 and %d", maxBatchSize)
	}

	src := *settings
	src.Datastore.Type = conf.DatastoreSQLite
	if c.SourcePath != "" {
		src.Datastore.SQLite.Path = c.SourcePath
	}

	dst := *settings
	if c.TargetType != "" {
		dst.Datastore.Type = strings.ToLower(c.TargetType)
	}
	switch dst.Datastore.Type {
	case conf.DatastoreSQLite:
		if c.TargetPath == "" {
			return nil, nil, fmt.Errorf("--target-path is required for a sqlite target")
		}
		dst.Datastore.SQLite.Path = c.TargetPath
		if samePath(src.Datastore.SQLite.Path, dst.Datastore.SQLite.Path) {
			return nil, nil, fmt.Errorf("source and target are the same database: %s", c.TargetPath)
		}
	case conf.DatastoreMySQL, conf.DatastorePostgres:
	default:
		return nil, nil, fmt.Errorf("unsupported target type %q", dst.Datastore.Type)
	}

	if len(c.Datasets) > 0 {
		selected := make([]string, 0, len(c.Datasets))
		for _, name := range c.Datasets {
			canonical, ok := settings.HasDataset(name)
			if !ok {
				return nil, nil, fmt.Errorf("dataset %q is not configured", name)
			}
			if !slices.Contains(selected, canonical) {
				selected = append(selected, canonical)
			}
		}
		c.Datasets = selected
	} else {
		c.Datasets = slices.Clone(settings.Datasets)
	}

	return &src, &dst, nil
}

// describe renders store settings for output without credentials
func describe(s *conf.Settings) string {
	ds := s.Datastore
	switch ds.Type {
	case conf.DatastoreMySQL:
		return fmt.Sprintf("mysql %s@%s:%s/%s", ds.MySQL.Username, ds.MySQL.Host, ds.MySQL.Port, ds.MySQL.Database)
	case conf.DatastorePostgres:
		return fmt.Sprintf("postgres %s@%s:%s/%s", ds.Postgres.Username, ds.Postgres.Host, ds.Postgres.Port, ds.Postgres.Database)
	default:
		return "sqlite " + ds.SQLite.Path
	}
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return absA == absB
}

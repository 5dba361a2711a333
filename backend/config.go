// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package backend

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store kinds.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

// Config is the process configuration, read from DUGOUT_* environment
// variables and an optional .env file.
type Config struct {
	Addr      string `env:"DUGOUT_ADDR" envDefault:":8080"`
	DataDir   string `env:"DUGOUT_DATA_DIR" envDefault:"data"`
	Debug     bool   `env:"DUGOUT_DEBUG"`
	RecordID  string `env:"DUGOUT_RECORD_ID"`
	Store     string `env:"DUGOUT_STORE" envDefault:"file"`
	SQLite    string `env:"DUGOUT_SQLITE_PATH"`
	MasterKey string `env:"DUGOUT_MASTER_KEY"`

	// ServerURL is where client commands send their edits.
	ServerURL string        `env:"DUGOUT_SERVER" envDefault:"http://localhost:8080"`
	SaveDelay time.Duration `env:"DUGOUT_SAVE_DELAY" envDefault:"1s"`

	RaftEnabled   bool   `env:"DUGOUT_RAFT"`
	RaftBind      string `env:"DUGOUT_RAFT_BIND" envDefault:":8081"`
	RaftAdvertise string `env:"DUGOUT_RAFT_ADVERTISE"`
	RaftBootstrap bool   `env:"DUGOUT_RAFT_BOOTSTRAP"`

	// RaftSecret authorizes nodes joining through this one.
	RaftSecret string `env:"DUGOUT_RAFT_SECRET"`
	// RaftJoin is the HTTP URL of a member to join through on startup.
	RaftJoin string `env:"DUGOUT_RAFT_JOIN"`
}

// LoadConfig parses the configuration from the process environment and the
// given dotenv files. Without files, ./.env is read if it exists. Variables
// already set in the environment win over the files.
func LoadConfig(files ...string) (Config, error) {
	environ := make(map[string]string)
	vars, err := godotenv.Read(files...)
	switch {
	case err == nil:
		for k, v := range vars {
			environ[k] = v
		}
	case len(files) == 0 && errors.Is(err, fs.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("load env file: %w", err)
	}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			environ[k] = v
		}
	}
	return parseConfig(environ)
}

func parseConfig(environ map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks option combinations that env tags cannot express.
func (c Config) Validate() error {
	switch c.Store {
	case StoreFile, StoreSQLite:
	default:
		return fmt.Errorf("unknown store %q (want %s or %s)", c.Store, StoreFile, StoreSQLite)
	}
	if c.RaftEnabled {
		if c.RaftAdvertise == "" {
			return errors.New("DUGOUT_RAFT_ADVERTISE is required when Raft is enabled")
		}
		if c.RecordID == "" {
			return errors.New("DUGOUT_RECORD_ID is required when Raft is enabled")
		}
		if c.RaftJoin != "" && c.RaftBootstrap {
			return errors.New("DUGOUT_RAFT_JOIN and DUGOUT_RAFT_BOOTSTRAP are mutually exclusive")
		}
		if c.RaftJoin != "" && c.RaftSecret == "" {
			return errors.New("DUGOUT_RAFT_SECRET is required to join a cluster")
		}
	}
	if c.SaveDelay < 0 {
		return fmt.Errorf("negative save delay: %s", c.SaveDelay)
	}
	return nil
}

// SQLitePath is the database file used by the sqlite store.
func (c Config) SQLitePath() string {
	if c.SQLite != "" {
		return c.SQLite
	}
	return filepath.Join(c.DataDir, "dugout.db")
}

// OpenRecordStore opens the store selected by c. The returned function
// releases it.
func (c Config) OpenRecordStore(ctx context.Context) (RecordStore, func() error, error) {
	if c.Store == StoreSQLite {
		if err := os.MkdirAll(filepath.Dir(c.SQLitePath()), 0755); err != nil {
			return nil, nil, err
		}
		s, err := OpenSQLStore(ctx, c.SQLitePath())
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
	st, err := OpenStorage(c.DataDir, c.MasterKey)
	if err != nil {
		return nil, nil, err
	}
	s := NewOrderStore(c.DataDir, st)
	s.Debug = c.Debug
	return s, s.FlushAll, nil
}

// ServerOptions maps the configuration onto server options.
func (c Config) ServerOptions(store RecordStore) Options {
	return Options{
		Addr:                  c.Addr,
		DataDir:               c.DataDir,
		Debug:                 c.Debug,
		RecordID:              c.RecordID,
		Store:                 store,
		RaftEnabled:           c.RaftEnabled,
		RaftBind:              c.RaftBind,
		RaftAdvertise:         c.RaftAdvertise,
		RaftBootstrap:         c.RaftBootstrap,
		RaftSecret:            c.RaftSecret,
		RaftJoin:              c.RaftJoin,
		UseProductionTimeouts: true,
	}
}

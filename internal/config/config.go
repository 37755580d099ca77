// Package config loads abiconsole settings from a CUE file checked against
// an embedded #Config definition, then applies environment overrides.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed schema.cue
var schemaSource []byte

// Config is the decoded configuration.
type Config struct {
	Port    int           `json:"port"`
	RPC     RPCConfig     `json:"rpc"`
	Journal JournalConfig `json:"journal"`
	Log     LogConfig     `json:"log"`
	Emit    EmitConfig    `json:"emit"`
	Events  EventsConfig  `json:"events"`
}

type RPCConfig struct {
	URL          string `json:"url"`
	ChainID      int64  `json:"chain_id"`
	SignerKey    string `json:"signer_key"`
	PollInterval string `json:"poll_interval"`
	// Target is the default contract address for calls that name none.
	Target string `json:"target"`
}

// Poll returns PollInterval as a duration.
func (c RPCConfig) Poll() time.Duration {
	d, err := time.ParseDuration(c.PollInterval)
	if err != nil {
		return time.Second
	}
	return d
}

type JournalConfig struct {
	Driver string `json:"driver"` // "memory" or "sqlite"
	DSN    string `json:"dsn"`
}

type LogConfig struct {
	Level      string `json:"level"`
	Format     string `json:"format"`
	File       string `json:"file"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

type EmitConfig struct {
	Dialect string `json:"dialect"`
	Mode    string `json:"mode"`
}

type EventsConfig struct {
	Buffer int `json:"buffer"`
}

// Load reads the CUE file at path (defaults only when path is empty) and
// applies overrides from the process environment.
func Load(path string) (Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (Config, error) {
	var src []byte
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
		src = data
	}
	return parse(src, path, lookup)
}

func parse(src []byte, filename string, lookup func(string) (string, bool)) (Config, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("compiling config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	v := def
	if len(src) > 0 {
		file := ctx.CompileBytes(src, cue.Filename(filename))
		if err := file.Err(); err != nil {
			return Config{}, fmt.Errorf("parsing %s: %w", filename, err)
		}
		v = def.Unify(file)
	}

	var cfg Config
	if err := decode(v, &cfg); err != nil {
		return Config{}, err
	}
	if err := applyEnv(&cfg, lookup); err != nil {
		return Config{}, err
	}

	// Overrides are checked against the same constraints as the file.
	if err := decode(def.Unify(ctx.Encode(cfg)), &cfg); err != nil {
		return Config{}, fmt.Errorf("environment override: %w", err)
	}
	return cfg, nil
}

func decode(v cue.Value, cfg *Config) error {
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := v.Decode(cfg); err != nil {
		return fmt.Errorf("decoding config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if p, ok := lookup("PORT"); ok && p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		cfg.Port = n
	}
	if v, ok := lookup("RPC_URL"); ok {
		cfg.RPC.URL = v
	}
	if v, ok := lookup("CHAIN_ID"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("CHAIN_ID: %w", err)
		}
		cfg.RPC.ChainID = n
	}
	if v, ok := lookup("SIGNER_KEY"); ok {
		cfg.RPC.SignerKey = v
	}
	if v, ok := lookup("CONTRACT_ADDRESS"); ok {
		cfg.RPC.Target = v
	}
	if v, ok := lookup("JOURNAL_DSN"); ok && v != "" {
		cfg.Journal.Driver = "sqlite"
		cfg.Journal.DSN = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		cfg.Log.Level = v
	}
	return nil
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/goliatone/go-config/cfgx"
	opts "github.com/goliatone/go-options"
	"gopkg.in/yaml.v3"
)

// EnvPrefix namespaces every environment override.
const EnvPrefix = "VENDING_"

type envKind int

const (
	envString envKind = iota
	envInt
	envBool
	envList
)

type envBinding struct {
	path []string
	kind envKind
}

var envBindings = map[string]envBinding{
	"MODE":             {path: []string{"mode"}},
	"SHUTDOWN_TIMEOUT": {path: []string{"shutdown_timeout"}},
	"HTTP_ADDR":        {path: []string{"http", "addr"}},
	"HTTP_ORIGINS":     {path: []string{"http", "allowed_origins"}, kind: envList},
	"GRPC_ADDR":        {path: []string{"grpc", "addr"}},
	"STORAGE_DRIVER":   {path: []string{"storage", "driver"}},
	"STORAGE_DSN":      {path: []string{"storage", "dsn"}},
	"MACHINE_ID":       {path: []string{"storage", "machine_id"}},
	"STORAGE_DEBUG":    {path: []string{"storage", "debug"}, kind: envBool},
	"REDIS_ADDR":       {path: []string{"storage", "redis", "addr"}},
	"REDIS_PASSWORD":   {path: []string{"storage", "redis", "password"}},
	"REDIS_DB":         {path: []string{"storage", "redis", "db"}, kind: envInt},
	"REDIS_PREFIX":     {path: []string{"storage", "redis", "key_prefix"}},
	"JOURNAL_SINK":     {path: []string{"journal", "sink"}},
	"JOURNAL_WORKERS":  {path: []string{"journal", "workers"}, kind: envInt},
	"JOURNAL_QUEUE":    {path: []string{"journal", "queue_size"}, kind: envInt},
	"JOURNAL_STREAM":   {path: []string{"journal", "stream"}},
	"LOG_LEVEL":        {path: []string{"log", "level"}},
	"LOG_DEVELOPMENT":  {path: []string{"log", "development"}, kind: envBool},
}

// Load resolves the configuration from defaults, an optional YAML file and
// VENDING_* environment variables, in increasing order of precedence.
func Load(path string, lookup func(string) (string, bool)) (Config, error) {
	defaults := Defaults()

	defaultLayer, err := toLayer(defaults)
	if err != nil {
		return Config{}, err
	}
	fileLayer, err := readFile(path)
	if err != nil {
		return Config{}, err
	}
	envLayer, err := readEnv(lookup)
	if err != nil {
		return Config{}, err
	}

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("file", 10),
			fileLayer,
			opts.WithSnapshotID[map[string]any]("file"),
		),
		opts.NewLayer(
			opts.NewScope("env", 20),
			envLayer,
			opts.WithSnapshotID[map[string]any]("env"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("config: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("config: options merge failed: %w", err)
	}

	cfg, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func toLayer(cfg Config) (map[string]any, error) {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("config: encode defaults: %w", err)
	}
	layer := map[string]any{}
	if err := yaml.Unmarshal(raw, &layer); err != nil {
		return nil, fmt.Errorf("config: encode defaults: %w", err)
	}
	return layer, nil
}

func readFile(path string) (map[string]any, error) {
	layer := map[string]any{}
	if strings.TrimSpace(path) == "" {
		return layer, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &layer); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if layer == nil {
		layer = map[string]any{}
	}
	return layer, nil
}

func readEnv(lookup func(string) (string, bool)) (map[string]any, error) {
	layer := map[string]any{}
	if lookup == nil {
		return layer, nil
	}
	for name, binding := range envBindings {
		raw, ok := lookup(EnvPrefix + name)
		if !ok {
			continue
		}
		value, err := binding.parse(raw)
		if err != nil {
			return nil, fmt.Errorf("config: %s%s: %w", EnvPrefix, name, err)
		}
		setPath(layer, binding.path, value)
	}
	return layer, nil
}

func (b envBinding) parse(raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	switch b.kind {
	case envInt:
		return strconv.Atoi(raw)
	case envBool:
		return strconv.ParseBool(raw)
	case envList:
		var out []string
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	default:
		return raw, nil
	}
}

func setPath(layer map[string]any, path []string, value any) {
	node := layer
	for _, key := range path[:len(path)-1] {
		next, ok := node[key].(map[string]any)
		if !ok {
			next = map[string]any{}
			node[key] = next
		}
		node = next
	}
	node[path[len(path)-1]] = value
}

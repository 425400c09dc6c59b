package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"geostat/internal/components/telemetry"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

type Store struct {
	// File is the sqlite file the scrape writes to.
	File string `json:"file"`
	// Url points at a libsql server instead of a local file when set.
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

type Http struct {
	BaseUrl        string `json:"base_url"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	// RequestsPerSecond limits the request rate. Zero counts as unset and
	// keeps the default, a negative rate turns the limiter off.
	RequestsPerSecond float64 `json:"requests_per_second"`
	// MaxFeedPages stops feed pagination after this many pages, 0 means no limit.
	MaxFeedPages int `json:"max_feed_pages"`
	// CloudflareBypass routes requests through the cloudflare-bp transport.
	CloudflareBypass bool `json:"cloudflare_bypass"`
	// DumpDir receives a file per http exchange when set, it is cleared first.
	DumpDir string `json:"dump_dir"`
}

func (h Http) Timeout() time.Duration {
	return time.Duration(h.TimeoutSeconds) * time.Second
}

type Scrape struct {
	// CommitEvery commits the run transaction after this many saved games,
	// 0 commits once at the end of the pass.
	CommitEvery int `json:"commit_every"`
	// Extractor is either "markers" or "next_data".
	Extractor string `json:"extractor"`
}

type Config struct {
	Store     Store            `json:"store"`
	Http      Http             `json:"http"`
	Scrape    Scrape           `json:"scrape"`
	Telemetry telemetry.Config `json:"telemetry"`
}

func Default() Config {
	return Config{
		Store: Store{File: "GeoData.db"},
		Http: Http{
			BaseUrl:           "https://www.geoguessr.com",
			TimeoutSeconds:    30,
			RequestsPerSecond: 2,
		},
		Scrape: Scrape{Extractor: "markers"},
	}
}

func splitExt(f string) (string, string) {
	for i := len(f) - 1; i >= 0; i-- {
		if f[i] == '.' {
			return f[0:i], f[i+1:]
		}
	}
	return f, ""
}

// ReadConfig reads a configuration file, `name` should come with a file extension,
// it will automatically be lopped off to produce the other extensions.
// this function will merge the following files, where higher number is more prioritized.
// 1. <name>.<ext>
// 2. <name>.local.<ext>
func ReadConfig[T any](name string) (T, error) {
	var out T
	allNotFound := true

	dirname := filepath.Dir(name)
	basename := filepath.Base(name)
	prefixname, ext := splitExt(basename)

	defaultFile, err := os.ReadFile(name)
	if err != nil && !os.IsNotExist(err) {
		return out, err
	}
	if len(defaultFile) > 0 {
		err = json5.Unmarshal(defaultFile, &out)
		if err != nil {
			return out, fmt.Errorf("parse %s: %w", name, err)
		}
		allNotFound = false
	}

	localFilepath := filepath.Join(
		dirname,
		fmt.Sprintf("%s.local.%s", prefixname, ext),
	)
	localFile, err := os.ReadFile(localFilepath)
	if err != nil && !os.IsNotExist(err) {
		return out, err
	}
	if len(localFile) > 0 {
		var override T
		err = json5.Unmarshal(localFile, &override)
		if err != nil {
			return out, fmt.Errorf("parse %s: %w", localFilepath, err)
		}
		err = mergo.Merge(&out, override, mergo.WithOverride)
		if err != nil {
			return out, err
		}
		slog.Info("merging config with local overrides", "local", localFilepath)
		allNotFound = false
	}

	if allNotFound {
		return out, os.ErrNotExist
	}

	return out, nil
}

// Load reads `name` through ReadConfig and fills every unset field from Default.
// Zero values in the file count as unset. A missing config file is not an error.
func Load(name string) (Config, error) {
	out := Default()

	fromFile, err := ReadConfig[Config](name)
	if os.IsNotExist(err) {
		return out, nil
	}
	if err != nil {
		return out, err
	}

	err = mergo.Merge(&out, fromFile, mergo.WithOverride)
	if err != nil {
		return out, err
	}
	return out, nil
}

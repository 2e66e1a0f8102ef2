// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cardsmith Contributors

package config

import (
	"errors"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/cardsmith/cardsmith/internal/xdg"
)

// EnvPrefix prefixes every environment variable cardsmith reads.
const EnvPrefix = "CARDSMITH_"

// FlagKeys maps command-line flag names to config keys. Only flags listed
// here and set explicitly on the command line override the config.
var FlagKeys = map[string]string{
	"package-name":         "profile.package_name",
	"card-version":         "profile.version",
	"output-dir":           "publish.output_dir",
	"registry":             "registry.url",
	"max-publish-attempts": "publish.max_publish_attempts",
	"max-auth-retries":     "publish.max_auth_retries",
	"max-verify-retries":   "publish.max_verify_retries",
	"propagation-delay":    "publish.propagation_delay",
	"verify-retry-delay":   "publish.verify_retry_delay",
	"prompt":               "prompt.mode",
	"log-format":           "log.format",
	"log-level":            "log.level",
	"pushgateway-url":      "metrics.pushgateway_url",
	"metrics-addr":         "metrics.listen_addr",
}

// Load builds the configuration from defaults, the YAML file at path, the
// environment, and flags. An empty path means the XDG default, which may be
// absent; an explicit path must exist. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	explicit := path != ""
	if !explicit {
		var err error
		if path, err = xdg.ConfigFile(); err != nil {
			return nil, err
		}
	}

	if err := loadFile(k, path, explicit); err != nil {
		return nil, err
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrapf(err, "load environment")
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, flagKey(flags)), nil); err != nil {
			return nil, oops.Code("CONFIG_INVALID").Wrapf(err, "load flags")
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrapf(err, "decode config")
	}
	cfg.Profile = cfg.Profile.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(k *koanf.Koanf, path string, explicit bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return nil
		}
		return oops.Code("CONFIG_INVALID").With("path", path).Wrapf(err, "read config file")
	}

	if err := ValidateSchema(data); err != nil {
		return oops.Code("CONFIG_INVALID").With("path", path).Wrap(err)
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return oops.Code("CONFIG_INVALID").With("path", path).Wrapf(err, "parse config file")
	}
	return nil
}

// envKey maps CARDSMITH_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, field, ok := strings.Cut(lower, "_")
	if !ok {
		return lower
	}
	return section + "." + field
}

func flagKey(flags *pflag.FlagSet) func(*pflag.Flag) (string, interface{}) {
	return func(f *pflag.Flag) (string, interface{}) {
		key, ok := FlagKeys[f.Name]
		if !ok || !f.Changed {
			return "", nil
		}
		return key, posflag.FlagVal(flags, f)
	}
}

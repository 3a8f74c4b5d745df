package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadWithProfile loads basePath, then overlays a profile-specific sibling
// file (config.<profile>.yaml next to config.yaml) if one exists. Keys
// absent from the profile file keep their base value.
func LoadWithProfile(basePath, profile string) (*Config, error) {
	resetDefaults()

	if err := loadFileIfSet(basePath); err != nil {
		return nil, err
	}

	if p := profileConfigPath(basePath, profile); p != "" {
		if err := loadFileIfSet(p); err != nil {
			return nil, err
		}
	}

	return finalize()
}

// LoadWithCLI parses a small set of CLI flags and loads config from them:
//
//	--config <path>     base config file (also accepts --config=path)
//	--profile <name>    profile overlay, see LoadWithProfile
//	--env <name>        alias for --profile
//	--set key=value     repeatable; sets a dotted config key, applied
//	                    after file and profile loading, last wins
func LoadWithCLI(args []string) (*Config, error) {
	configPath, profile, overrides, err := parseCLIArgs(args)
	if err != nil {
		return nil, err
	}

	resetDefaults()

	if err := loadFileIfSet(configPath); err != nil {
		return nil, err
	}
	if p := profileConfigPath(configPath, profile); p != "" {
		if err := loadFileIfSet(p); err != nil {
			return nil, err
		}
	}

	cfg, err := finalize()
	if err != nil {
		return nil, err
	}

	for key, value := range overrides {
		k.Set(key, value)
	}
	if len(overrides) > 0 {
		if err := k.Unmarshal("", cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// parseCLIArgs extracts --config, --profile/--env, and --set key=value
// pairs from args. Unrecognized arguments are ignored.
func parseCLIArgs(args []string) (configPath, profile string, overrides map[string]string, err error) {
	overrides = map[string]string{}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch {
		case arg == "--config":
			v, ok := nextArg(args, i)
			if !ok {
				return "", "", nil, fmt.Errorf("--config requires a value")
			}
			configPath = v
			i++
		case strings.HasPrefix(arg, "--config="):
			configPath = strings.TrimPrefix(arg, "--config=")
		case arg == "--profile", arg == "--env":
			v, ok := nextArg(args, i)
			if !ok {
				return "", "", nil, fmt.Errorf("%s requires a value", arg)
			}
			profile = v
			i++
		case strings.HasPrefix(arg, "--profile="):
			profile = strings.TrimPrefix(arg, "--profile=")
		case strings.HasPrefix(arg, "--env="):
			profile = strings.TrimPrefix(arg, "--env=")
		case arg == "--set":
			v, ok := nextArg(args, i)
			if !ok {
				return "", "", nil, fmt.Errorf("--set requires a key=value argument")
			}
			key, val, ok := strings.Cut(v, "=")
			if !ok {
				return "", "", nil, fmt.Errorf("invalid --set value %q, expected key=value", v)
			}
			overrides[key] = val
			i++
		case strings.HasPrefix(arg, "--set="):
			v := strings.TrimPrefix(arg, "--set=")
			key, val, ok := strings.Cut(v, "=")
			if !ok {
				return "", "", nil, fmt.Errorf("invalid --set value %q, expected key=value", v)
			}
			overrides[key] = val
		}
	}

	return configPath, profile, overrides, nil
}

// parseCLIOverrides parses only the --config/--set validation surface;
// kept separate from parseCLIArgs so tests can exercise flag-parsing
// error paths without needing a --profile.
func parseCLIOverrides(args []string) (string, map[string]string, error) {
	configPath, _, overrides, err := parseCLIArgs(args)
	return configPath, overrides, err
}

func nextArg(args []string, i int) (string, bool) {
	if i+1 >= len(args) {
		return "", false
	}
	return args[i+1], true
}

// profileConfigPath returns the profile-specific sibling of base
// (config.yaml + "dev" -> config.dev.yaml) if that file exists on disk,
// or "" if base or profile is empty or the file is absent.
func profileConfigPath(base, profile string) string {
	if base == "" || profile == "" {
		return ""
	}
	dir := filepath.Dir(base)
	ext := filepath.Ext(base)
	name := filepath.Base(base)
	nameWithoutExt := strings.TrimSuffix(name, ext)

	p := filepath.Join(dir, nameWithoutExt+"."+profile+ext)
	if _, err := os.Stat(p); err != nil {
		return ""
	}
	return p
}

func loadFileIfSet(path string) error {
	if path == "" {
		return nil
	}
	return k.Load(fileProvider(path), yamlParser())
}

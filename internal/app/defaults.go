package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Defaults are the locations used when nothing else is configured.
type Defaults struct {
	ConfigPath string // config file
	BaseDir    string // log and run history live below here
}

// GetDefaults resolves the default locations. Each one is taken from the
// first of these that is set:
//
//	config: $INKWELL_CONFIG_PATH, $XDG_CONFIG_HOME/inkwell.toml, ~/.config/inkwell.toml
//	base:   $INKWELL_HOME, $XDG_DATA_HOME/inkwell, ~/.local/share/inkwell
func GetDefaults() (Defaults, error) {
	configPath, err := firstOf(
		os.Getenv("INKWELL_CONFIG_PATH"),
		xdgPath("XDG_CONFIG_HOME", "inkwell.toml"),
		".config", "inkwell.toml",
	)
	if err != nil {
		return Defaults{}, err
	}

	baseDir, err := firstOf(
		os.Getenv("INKWELL_HOME"),
		xdgPath("XDG_DATA_HOME", "inkwell"),
		".local", "share", "inkwell",
	)
	if err != nil {
		return Defaults{}, err
	}

	return Defaults{ConfigPath: configPath, BaseDir: baseDir}, nil
}

// firstOf returns override or xdg when set, otherwise homeRel joined under
// the user's home directory.
func firstOf(override, xdg string, homeRel ...string) (string, error) {
	if override != "" {
		return override, nil
	}
	if xdg != "" {
		return xdg, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(append([]string{homeDir}, homeRel...)...), nil
}

// xdgPath joins name under the directory named by env. Relative XDG values
// are invalid and ignored.
func xdgPath(env, name string) string {
	dir := os.Getenv(env)
	if dir == "" || !filepath.IsAbs(dir) {
		return ""
	}
	return filepath.Join(dir, name)
}

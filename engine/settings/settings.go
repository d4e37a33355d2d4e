// Package settings loads PageRank settings from a configuration file and
// the environment.
package settings

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"Rank_Engine/linkgraph/graph"

	"github.com/spf13/viper"
	"golang.org/x/xerrors"
)

// DefaultFile is the settings file used when no path is given.
const DefaultFile = "prMatrix.props"

// Recognized keys.
const (
	KeyDanglingNodesPolicy = "dangling.nodes.policy"
	KeySelfLinksPolicy     = "self.links.policy"
	KeyErrorRate           = "error.rate"
	KeyMaxIterations       = "max.iterations"
	KeyDampingFactor       = "damping.factor"
)

// EnvPrefix is prepended to the environment variables that override file
// values, e.g. PAGERANK_ERROR_RATE.
const EnvPrefix = "PAGERANK"

// New returns a viper instance with defaults and environment bindings for
// every recognized key.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyDanglingNodesPolicy, "ignore")
	v.SetDefault(KeySelfLinksPolicy, "ignore")
	v.SetDefault(KeyErrorRate, 0.0001)
	v.SetDefault(KeyMaxIterations, 100)
	v.SetDefault(KeyDampingFactor, 0.85)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the settings file at path into v. An empty path selects
// DefaultFile in the working directory, which may be absent; an explicit
// path must exist.
//
// Files with a .props or .properties extension hold one pair per line with
// the key separated from its value by '=', ':' or whitespace, as in Java
// properties files. Lines starting with '#' or '!' are comments. Other
// extensions are handled by viper.
func Load(v *viper.Viper, path string) error {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if _, err := os.Stat(path); err != nil {
		if !explicit && os.IsNotExist(err) {
			return nil
		}
		return xerrors.Errorf("settings file %q: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".props", ".properties":
		data, err := os.ReadFile(path)
		if err != nil {
			return xerrors.Errorf("read settings file %q: %w", path, err)
		}
		v.SetConfigType("dotenv")
		if err = v.ReadConfig(bytes.NewReader(normalizeProperties(data))); err != nil {
			return xerrors.Errorf("read settings file %q: %w", path, err)
		}
		return nil
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return xerrors.Errorf("read settings file %q: %w", path, err)
	}
	return nil
}

// normalizeProperties rewrites every pair in a properties file as key=value
// so it can be decoded as dotenv. Comments and blank lines are dropped.
func normalizeProperties(data []byte) []byte {
	var out bytes.Buffer
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimLeft(scanner.Text(), " \t\f")
		if line == "" || line[0] == '#' || line[0] == '!' {
			continue
		}

		key, value := line, ""
		if i := strings.IndexAny(line, "=: \t\f"); i >= 0 {
			// A whitespace separator may still be followed by '=' or ':'.
			key, value = line[:i], strings.TrimLeft(line[i:], " \t\f")
			if value != "" && (value[0] == '=' || value[0] == ':') {
				value = strings.TrimLeft(value[1:], " \t\f")
			}
		}
		out.WriteString(key)
		out.WriteByte('=')
		out.WriteString(strings.TrimRight(value, " \t\f"))
		out.WriteByte('\n')
	}
	return out.Bytes()
}

// FromViper converts the values held by v into validated graph settings.
func FromViper(v *viper.Viper) (graph.Settings, error) {
	s := graph.Settings{
		DanglingNodePolicy: graph.ParsePolicy(v.GetString(KeyDanglingNodesPolicy)),
		SelfLinkPolicy:     graph.ParsePolicy(v.GetString(KeySelfLinksPolicy)),
		ErrorTolerance:     v.GetFloat64(KeyErrorRate),
		MaxIterations:      v.GetInt(KeyMaxIterations),
		DampingFactor:      v.GetFloat64(KeyDampingFactor),
	}
	if err := s.Validate(); err != nil {
		return graph.Settings{}, xerrors.Errorf("invalid settings: %w", err)
	}
	return s, nil
}

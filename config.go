package stepwise

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config describes one tracing run: which source file to trace, which
// variables to surface, and how to display the result.
type Config struct {
	Trace   TraceDetails  `toml:"trace"`
	Display DisplayConfig `toml:"display,omitempty"`
}

type TraceDetails struct {
	// File is the program to trace. When empty it defaults to the
	// config file's basename with a .py extension.
	File string `toml:"file,omitempty"`
	// Variables overrides the statically derived whitelist.
	Variables []string `toml:"variables,omitempty"`
}

type DisplayConfig struct {
	NoColor   bool `toml:"no_color,omitempty"`
	CacheSize int  `toml:"cache_size,omitempty"`
}

func parseConfig(f io.Reader) (*Config, error) {
	var out Config
	_, err := toml.NewDecoder(f).Decode(&out)
	return &out, err
}

func LoadConfigFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	c, err := parseConfig(f)
	if err != nil {
		return nil, err
	}
	if c.Trace.File == "" {
		parts := strings.Split(fi.Name(), ".")
		parts = parts[:len(parts)-1]
		parts = append(parts, "py")
		c.Trace.File = strings.Join(parts, ".")
	}
	filedir := filepath.Dir(path)
	c.Trace.File = filepath.Clean(filepath.Join(filedir, c.Trace.File))
	return c, nil
}

package runner

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/user/cyberpulse/pkg/engine"
)

// File is the on-disk batch layout read by `cyberpulse evaluate --input`
type File struct {
	CrosswalkURL string        `json:"crosswalk_url" yaml:"crosswalk_url"`
	Items        []engine.Item `json:"items" yaml:"items"`
}

// LoadFile reads a JSON or YAML batch file. Items stay raw so malformed
// ones fail individually at evaluation time.
func LoadFile(path string) (File, error) {
	var f File
	data, err := os.ReadFile(path)
	if err != nil {
		return f, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &f)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &f)
	default:
		return f, fmt.Errorf("unsupported batch file type: %s", path)
	}
	if err != nil {
		return f, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return f, nil
}

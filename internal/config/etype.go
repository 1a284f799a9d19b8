package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadEtypeMap reads a YAML file mapping CSS etype flags to QuakeML event
// types, e.g.
//
//	qb: quarry blast
//	lp: earthquake
//
// An empty path yields a nil map, meaning built-in defaults only.
func LoadEtypeMap(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read etype map: %w", err)
	}
	m := map[string]string{}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("config: parse etype map %s: %w", path, err)
	}
	return m, nil
}

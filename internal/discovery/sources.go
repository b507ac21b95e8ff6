package discovery

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Source describes one marketplace offers endpoint. The endpoint is expected
// to answer GET <base_url><path>?q=<product> with a JSON array of offers.
type Source struct {
	Name    string `yaml:"name"`
	BaseURL string `yaml:"base_url"`
	Path    string `yaml:"path"`
}

// sourcesFile is the on-disk shape of the sources list.
type sourcesFile struct {
	Sources []Source `yaml:"sources"`
}

// LoadSources reads the marketplace source list from a YAML file. A missing
// file is not an error: it returns an empty list so callers can fall back to
// the static demo source.
func LoadSources(path string) ([]Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "discovery: read sources file")
	}

	var f sourcesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "discovery: parse sources file")
	}

	for i, s := range f.Sources {
		if s.Name == "" || s.BaseURL == "" {
			return nil, eris.Errorf("discovery: source %d missing name or base_url", i)
		}
	}

	return f.Sources, nil
}

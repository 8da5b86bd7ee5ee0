package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	json5 "github.com/yosuke-furukawa/json5/encoding/json5"
	"gopkg.in/yaml.v3"
)

// includeKey names the files a config file layers itself on top of. It
// takes one path or a list, relative to the including file.
const includeKey = "$include"

// LoadRaw reads a config file and everything it includes into one map.
// Included files are applied in order, then the including file on top.
func LoadRaw(path string) (map[string]any, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("config path is required")
	}
	var l fileLoader
	return l.load(path)
}

// fileLoader resolves includes depth first. chain holds the files currently
// being loaded so a cycle can be reported in full.
type fileLoader struct {
	chain []string
}

func (l *fileLoader) load(path string) (map[string]any, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	for i, p := range l.chain {
		if p == abs {
			cycle := append(append([]string{}, l.chain[i:]...), abs)
			for j := range cycle {
				cycle[j] = filepath.Base(cycle[j])
			}
			return nil, fmt.Errorf("include cycle: %s", strings.Join(cycle, " -> "))
		}
	}
	l.chain = append(l.chain, abs)
	defer func() { l.chain = l.chain[:len(l.chain)-1] }()

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, err
	}
	doc, err := parseDocument(expandEnv(string(data)), filepath.Ext(abs))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(abs), err)
	}

	includes, err := takeIncludes(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(abs), err)
	}
	merged := map[string]any{}
	for _, inc := range includes {
		if !filepath.IsAbs(inc) {
			inc = filepath.Join(filepath.Dir(abs), inc)
		}
		base, err := l.load(inc)
		if err != nil {
			return nil, err
		}
		overlay(merged, base)
	}
	overlay(merged, doc)
	return merged, nil
}

// expandEnv substitutes $VAR and ${VAR}. The include key looks like a
// variable reference and is kept as written.
func expandEnv(s string) string {
	return os.Expand(s, func(key string) string {
		if "$"+key == includeKey {
			return includeKey
		}
		return os.Getenv(key)
	})
}

// parseDocument reads JSON5 for .json and .json5 files and a single YAML
// document otherwise.
func parseDocument(text, ext string) (map[string]any, error) {
	doc := map[string]any{}
	switch strings.ToLower(ext) {
	case ".json", ".json5":
		if err := json5.Unmarshal([]byte(text), &doc); err != nil {
			return nil, err
		}
	default:
		dec := yaml.NewDecoder(strings.NewReader(text))
		if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
			return nil, errors.New("expected a single YAML document")
		}
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}

// takeIncludes removes the include key from doc and returns its paths.
func takeIncludes(doc map[string]any) ([]string, error) {
	value, ok := doc[includeKey]
	delete(doc, includeKey)
	if !ok || value == nil {
		return nil, nil
	}
	switch v := value.(type) {
	case string:
		return []string{v}, nil
	case []any:
		paths := make([]string, 0, len(v))
		for _, item := range v {
			p, ok := item.(string)
			if !ok || strings.TrimSpace(p) == "" {
				return nil, fmt.Errorf("%s entries must be non-empty paths", includeKey)
			}
			paths = append(paths, p)
		}
		return paths, nil
	default:
		return nil, fmt.Errorf("%s must be a path or a list of paths", includeKey)
	}
}

// overlay copies src onto dst, merging nested sections key by key so an
// including file only has to name what it changes.
func overlay(dst, src map[string]any) {
	for key, value := range src {
		section, isSection := value.(map[string]any)
		existing, hasSection := dst[key].(map[string]any)
		if isSection && hasSection {
			overlay(existing, section)
			continue
		}
		dst[key] = value
	}
}

// decodeConfig turns the merged map into a Config, rejecting unknown keys.
func decodeConfig(raw map[string]any) (*Config, error) {
	payload, err := yaml.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("re-encode config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(payload))
	dec.KnownFields(true)
	var cfg Config
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return &cfg, nil
}

// Package palette: растения, которые можно посадить на доску.
package palette

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

type Plant struct {
	Name string `toml:"name"`
	URL  string `toml:"url"`
}

type fileConfig struct {
	Plants []Plant `toml:"plant"`
}

const (
	roseURL      = "/lovable-uploads/f9557315-7aa6-4306-b3db-4fbfe954efb6.png"
	sunflowerURL = "/lovable-uploads/df695081-6b6e-49f6-84af-0f48314f93f3.png"
	tulipURL     = "/assets/tulip.png"
)

// Default: стандартный набор. Grass пока рисуется картинкой тюльпана.
func Default() []Plant {
	return []Plant{
		{Name: "Rose", URL: roseURL},
		{Name: "Sunflower", URL: sunflowerURL},
		{Name: "Tulip", URL: tulipURL},
		{Name: "Grass", URL: tulipURL},
	}
}

// Load читает палитру из TOML:
//
//	[[plant]]
//	name = "Rose"
//	url  = "/plants/rose.png"
//
// Пустой path возвращает Default.
func Load(path string) ([]Plant, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return nil, fmt.Errorf("load palette: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("load palette: unknown key %q", undecoded[0].String())
	}
	return normalize(raw.Plants)
}

func normalize(plants []Plant) ([]Plant, error) {
	seen := make(map[string]struct{}, len(plants))
	out := make([]Plant, 0, len(plants))
	for i, p := range plants {
		p.Name = strings.TrimSpace(p.Name)
		p.URL = strings.TrimSpace(p.URL)
		if p.Name == "" || p.URL == "" {
			return nil, fmt.Errorf("palette entry %d: name and url are required", i+1)
		}
		key := strings.ToLower(p.Name)
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("palette entry %d: duplicate plant %q", i+1, p.Name)
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("palette is empty")
	}
	return out, nil
}

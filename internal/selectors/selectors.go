// Package selectors holds the page structure the campaigns depend on.
// Both target sites change their markup without notice, so the selectors
// live in YAML and can be replaced without a rebuild.
package selectors

import (
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// Maps holds the search results page structure.
type Maps struct {
	SearchURL    string   `yaml:"search_url"`
	ResultsPanel string   `yaml:"results_panel"`
	ResultItem   string   `yaml:"result_item"`
	Name         []string `yaml:"name"`
	Phone        string   `yaml:"phone"`
	Address      string   `yaml:"address"`
	Category     string   `yaml:"category"`
	Rating       string   `yaml:"rating"`
	Website      string   `yaml:"website"`
}

// WhatsApp holds the messaging web client structure.
type WhatsApp struct {
	HomeURL          string `yaml:"home_url"`
	SendURL          string `yaml:"send_url"`
	QRCode           string `yaml:"qr_code"`
	ChatList         string `yaml:"chat_list"`
	Composer         string `yaml:"composer"`
	ComposerFallback string `yaml:"composer_fallback"`
}

// Selectors is the full selector document.
type Selectors struct {
	Maps     Maps     `yaml:"maps"`
	WhatsApp WhatsApp `yaml:"whatsapp"`
}

// Default returns the embedded selector document.
func Default() *Selectors {
	s, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded selectors are invalid: %v", err))
	}
	return s
}

// Load reads selectors from path, falling back to the embedded document when path is empty.
func Load(path string) (*Selectors, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read selectors file: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes and validates a selector document.
func Parse(data []byte) (*Selectors, error) {
	var s Selectors
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse selectors: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate reports every required selector that is missing.
func (s *Selectors) Validate() error {
	var errs []error
	required := map[string]string{
		"maps.search_url":            s.Maps.SearchURL,
		"maps.results_panel":         s.Maps.ResultsPanel,
		"maps.result_item":           s.Maps.ResultItem,
		"maps.phone":                 s.Maps.Phone,
		"whatsapp.home_url":          s.WhatsApp.HomeURL,
		"whatsapp.send_url":          s.WhatsApp.SendURL,
		"whatsapp.qr_code":           s.WhatsApp.QRCode,
		"whatsapp.chat_list":         s.WhatsApp.ChatList,
		"whatsapp.composer":          s.WhatsApp.Composer,
		"whatsapp.composer_fallback": s.WhatsApp.ComposerFallback,
	}
	for _, key := range sortedKeys(required) {
		if strings.TrimSpace(required[key]) == "" {
			errs = append(errs, fmt.Errorf("%s is required", key))
		}
	}
	if len(s.Maps.Name) == 0 {
		errs = append(errs, errors.New("maps.name needs at least one selector"))
	}
	if !strings.Contains(s.Maps.SearchURL, "{query}") {
		errs = append(errs, errors.New("maps.search_url must contain {query}"))
	}
	if !strings.Contains(s.WhatsApp.SendURL, "{phone}") {
		errs = append(errs, errors.New("whatsapp.send_url must contain {phone}"))
	}
	return errors.Join(errs...)
}

// SearchURL renders the results page address for a free-text query.
func (s *Selectors) SearchURL(query string) string {
	return strings.ReplaceAll(s.Maps.SearchURL, "{query}", url.QueryEscape(strings.TrimSpace(query)))
}

// SendURL renders the chat address for a normalized phone number.
func (s *Selectors) SendURL(phone string) string {
	return strings.ReplaceAll(s.WhatsApp.SendURL, "{phone}", url.QueryEscape(phone))
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

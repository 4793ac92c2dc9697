// Package content holds the marketing copy rendered by the site pages.
package content

import (
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed site.yaml
var siteYAML []byte

// Site is the full page content.
type Site struct {
	Brand        string          `yaml:"brand" json:"brand"`
	Tagline      string          `yaml:"tagline" json:"tagline"`
	SupportEmail string          `yaml:"support_email" json:"support_email"`
	PrivacyEmail string          `yaml:"privacy_email" json:"privacy_email"`
	Plans        []Plan          `yaml:"plans" json:"plans"`
	Guardians    []Guardian      `yaml:"guardians" json:"guardians"`
	Team         []TeamMember    `yaml:"team" json:"team"`
	FAQ          []FAQItem       `yaml:"faq" json:"faq"`
	Platform     Platform        `yaml:"platform" json:"platform"`
	Privacy      []PolicySection `yaml:"privacy" json:"privacy"`
}

// Plan is a pricing card.
type Plan struct {
	Title       string   `yaml:"title" json:"title"`
	Description string   `yaml:"description" json:"description"`
	Price       string   `yaml:"price" json:"price"`
	Features    []string `yaml:"features" json:"features"`
	ButtonText  string   `yaml:"button_text" json:"button_text"`
	Highlighted bool     `yaml:"highlighted" json:"highlighted"`
}

type Guardian struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	ImageURL    string `yaml:"image_url" json:"image_url"`
}

// TeamMember is a card on the team page. Social links are optional.
type TeamMember struct {
	Name      string   `yaml:"name" json:"name"`
	Title     string   `yaml:"title" json:"title"`
	Expertise []string `yaml:"expertise" json:"expertise"`
	ImageURL  string   `yaml:"image_url" json:"image_url"`
	Bio       string   `yaml:"bio" json:"bio"`
	LinkedIn  string   `yaml:"linkedin" json:"linkedin,omitempty"`
	Twitter   string   `yaml:"twitter" json:"twitter,omitempty"`
}

type FAQItem struct {
	Question string `yaml:"question" json:"question"`
	Answer   string `yaml:"answer" json:"answer"`
}

type Platform struct {
	Intro    string    `yaml:"intro" json:"intro"`
	Features []Feature `yaml:"features" json:"features"`
	Reasons  []string  `yaml:"reasons" json:"reasons"`
}

type Feature struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
}

type PolicySection struct {
	Title      string   `yaml:"title" json:"title"`
	Paragraphs []string `yaml:"paragraphs" json:"paragraphs"`
	Items      []string `yaml:"items" json:"items,omitempty"`
}

// Load parses the embedded site content.
func Load() (*Site, error) {
	return Parse(siteYAML)
}

// Parse decodes and validates site content from YAML.
func Parse(data []byte) (*Site, error) {
	var site Site
	if err := yaml.Unmarshal(data, &site); err != nil {
		return nil, fmt.Errorf("parse site content: %w", err)
	}
	if err := site.Validate(); err != nil {
		return nil, err
	}
	return &site, nil
}

// Validate checks the invariants the pages rely on.
func (s *Site) Validate() error {
	if s.Brand == "" {
		return errors.New("site content: brand is required")
	}
	if len(s.Plans) == 0 {
		return errors.New("site content: at least one plan is required")
	}

	seen := make(map[string]bool, len(s.Plans))
	highlighted := 0
	for _, p := range s.Plans {
		if p.Title == "" || p.Price == "" {
			return fmt.Errorf("site content: plan %q needs a title and a price", p.Title)
		}
		if seen[p.Title] {
			return fmt.Errorf("site content: duplicate plan %q", p.Title)
		}
		seen[p.Title] = true
		if p.Highlighted {
			highlighted++
		}
	}
	if highlighted > 1 {
		return fmt.Errorf("site content: %d plans highlighted, at most one allowed", highlighted)
	}

	for _, m := range s.Team {
		if m.Name == "" {
			return errors.New("site content: team member without a name")
		}
	}
	return nil
}

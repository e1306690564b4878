// Package i18n provides the string lookup consumed by the summary renderers.
//
// Catalogs are YAML files named locales/<locale>.yaml. Missing keys fall back
// to the base locale, then to the key itself.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// BaseLocale is the canonical source locale.
const BaseLocale = "en-US"

// Localizer resolves display strings for one locale.
type Localizer interface {
	Locale() string
	Message(key string) string
}

type catalogFile struct {
	Locale   string            `yaml:"locale"`
	Messages map[string]string `yaml:"messages"`
}

// Catalog holds all loaded locales.
type Catalog struct {
	locales  []string
	messages map[string]map[string]string
	matcher  language.Matcher
}

//go:embed locales/*.yaml
var embedded embed.FS

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// Default returns the embedded catalog. It panics if the embedded files are
// invalid, which is a build defect.
func Default() *Catalog {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = Load(embedded)
	})
	if defaultErr != nil {
		panic(defaultErr)
	}
	return defaultCatalog
}

// Load reads locales/*.yaml from fsys.
func Load(fsys fs.FS) (*Catalog, error) {
	paths, err := fs.Glob(fsys, "locales/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	sort.Strings(paths)

	c := &Catalog{messages: map[string]map[string]string{}}
	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", p, err)
		}
		var f catalogFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", p, err)
		}
		locale := strings.TrimSpace(f.Locale)
		if want := strings.TrimSuffix(path.Base(p), path.Ext(p)); locale != want {
			return nil, fmt.Errorf("catalog %s: locale %q must match file name %q", p, locale, want)
		}
		if _, err := language.Parse(locale); err != nil {
			return nil, fmt.Errorf("catalog %s: invalid locale %q: %w", p, locale, err)
		}
		if len(f.Messages) == 0 {
			return nil, fmt.Errorf("catalog %s: messages map is required", p)
		}
		if _, dup := c.messages[locale]; dup {
			return nil, fmt.Errorf("catalog %s: locale %q already defined", p, locale)
		}
		msgs := make(map[string]string, len(f.Messages))
		for k, v := range f.Messages {
			k = strings.TrimSpace(k)
			if k == "" {
				return nil, fmt.Errorf("catalog %s: message key cannot be blank", p)
			}
			msgs[k] = v
		}
		c.messages[locale] = msgs
	}
	if _, ok := c.messages[BaseLocale]; !ok {
		return nil, fmt.Errorf("base locale %s is not defined in catalogs", BaseLocale)
	}

	// The matcher's first tag is its fallback, so the base locale goes first.
	c.locales = append(c.locales, BaseLocale)
	for locale := range c.messages {
		if locale != BaseLocale {
			c.locales = append(c.locales, locale)
		}
	}
	sort.Strings(c.locales[1:])
	tags := make([]language.Tag, 0, len(c.locales))
	for _, l := range c.locales {
		tags = append(tags, language.MustParse(l))
	}
	c.matcher = language.NewMatcher(tags)
	return c, nil
}

// Locales returns the available locales, base locale first.
func (c *Catalog) Locales() []string {
	return append([]string(nil), c.locales...)
}

// Match returns the best available locale for the given preferences, which may
// be locale identifiers or Accept-Language header values.
func (c *Catalog) Match(prefs ...string) string {
	var tags []language.Tag
	for _, p := range prefs {
		parsed, _, err := language.ParseAcceptLanguage(p)
		if err != nil {
			continue
		}
		tags = append(tags, parsed...)
	}
	if len(tags) == 0 {
		return BaseLocale
	}
	_, idx, conf := c.matcher.Match(tags...)
	if conf == language.No {
		return BaseLocale
	}
	return c.locales[idx]
}

// Localizer returns a lookup for the best match of locale.
func (c *Catalog) Localizer(locale string) Localizer {
	matched := c.Match(locale)
	return localizer{locale: matched, own: c.messages[matched], base: c.messages[BaseLocale]}
}

type localizer struct {
	locale string
	own    map[string]string
	base   map[string]string
}

func (l localizer) Locale() string { return l.locale }

func (l localizer) Message(key string) string {
	if v, ok := l.own[key]; ok {
		return v
	}
	if v, ok := l.base[key]; ok {
		return v
	}
	return key
}

// Map is a Localizer backed by a plain map, useful for callers that bring
// their own string table.
type Map map[string]string

func (Map) Locale() string { return "" }

func (m Map) Message(key string) string {
	if v, ok := m[key]; ok {
		return v
	}
	return key
}

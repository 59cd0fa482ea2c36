// Package i18n loads the embedded message catalogs used for category labels,
// headline titles and long dates.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var embedded embed.FS

// Catalog holds the flattened messages of one language, keyed by namespace.
type Catalog struct {
	lang     string
	messages map[string]map[string]string
}

// Lang returns the base language of the catalog, e.g. "id".
func (c *Catalog) Lang() string {
	return c.lang
}

// Resolve looks up a dotted key within a namespace.
func (c *Catalog) Resolve(namespace, key string) (string, bool) {
	if c == nil {
		return "", false
	}
	v, ok := c.messages[namespace][key]
	return v, ok
}

// Text resolves a key, returning the key itself when it is missing.
func (c *Catalog) Text(namespace, key string) string {
	if v, ok := c.Resolve(namespace, key); ok {
		return v
	}
	return key
}

// FormatDate renders a long date: "20 Januari 2025" or "January 20, 2025".
func (c *Catalog) FormatDate(t time.Time) string {
	month := c.Text("months", strconv.Itoa(int(t.Month())))
	if c.lang == "en" {
		return fmt.Sprintf("%s %d, %d", month, t.Day(), t.Year())
	}
	return fmt.Sprintf("%d %s %d", t.Day(), month, t.Year())
}

// FormatISODate parses a YYYY-MM-DD date and renders it long. Unparsable
// input is returned unchanged.
func (c *Catalog) FormatISODate(s string) string {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return s
	}
	return c.FormatDate(t)
}

// Bundle picks a catalog for a locale. The first catalog is the default.
type Bundle struct {
	catalogs []*Catalog
	matcher  language.Matcher
}

// NewBundle loads the embedded Indonesian and English catalogs.
func NewBundle() (*Bundle, error) {
	return LoadBundle(embedded, "locales", "id", "en")
}

// LoadBundle reads {dir}/{lang}.yaml for each language from fsys.
func LoadBundle(fsys fs.FS, dir string, langs ...string) (*Bundle, error) {
	if len(langs) == 0 {
		return nil, fmt.Errorf("i18n: no languages given")
	}

	b := &Bundle{}
	tags := make([]language.Tag, 0, len(langs))
	for _, lang := range langs {
		tag, err := language.Parse(lang)
		if err != nil {
			return nil, fmt.Errorf("i18n: language %q: %w", lang, err)
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, lang+".yaml"))
		if err != nil {
			return nil, fmt.Errorf("i18n: reading %s catalog: %w", lang, err)
		}
		cat, err := parseCatalog(lang, data)
		if err != nil {
			return nil, err
		}
		b.catalogs = append(b.catalogs, cat)
		tags = append(tags, tag)
	}
	b.matcher = language.NewMatcher(tags)
	return b, nil
}

// For returns the catalog that best matches locale, or the default one.
func (b *Bundle) For(locale string) *Catalog {
	tag, err := language.Parse(locale)
	if err != nil {
		return b.catalogs[0]
	}
	_, idx, conf := b.matcher.Match(tag)
	if conf == language.No {
		return b.catalogs[0]
	}
	return b.catalogs[idx]
}

func parseCatalog(lang string, data []byte) (*Catalog, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("i18n: parsing %s catalog: %w", lang, err)
	}

	cat := &Catalog{lang: lang, messages: make(map[string]map[string]string, len(raw))}
	for ns, v := range raw {
		flat := make(map[string]string)
		flatten("", v, flat)
		cat.messages[ns] = flat
	}
	return cat, nil
}

func flatten(prefix string, v any, out map[string]string) {
	switch val := v.(type) {
	case map[string]any:
		for k, child := range val {
			flatten(join(prefix, k), child, out)
		}
	case nil:
	default:
		out[prefix] = fmt.Sprint(val)
	}
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return strings.Join([]string{prefix, key}, ".")
}

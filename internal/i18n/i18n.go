// Package i18n loads YAML translation catalogues and renders localized strings.
//
// A catalogue file holds one top-level mapping per language; nested mappings become dotted
// keys, so
//
//	en:
//	  interaction:
//	    accept_button: "Accept"
//
// defines "interaction.accept_button" for "en".
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var embedded embed.FS

// Translator resolves dotted keys for one language.
type Translator interface {
	// T returns the text for key, falling back to the default language and then to key itself.
	T(key string) string
	// F is T with {name} placeholders replaced from args.
	F(key string, args map[string]string) string
	Lang() string
}

type messages map[string]string

// Manager holds every loaded language.
type Manager struct {
	langs       map[string]messages
	defaultLang string
}

// Load reads the catalogues compiled into the binary.
func Load(defaultLang string) (*Manager, error) {
	return LoadFS(embedded, "locales", defaultLang)
}

// LoadFS reads every .yaml or .yml file directly under dir. defaultLang must be among them;
// empty means "en".
func LoadFS(fsys fs.FS, dir, defaultLang string) (*Manager, error) {
	if defaultLang = normalize(defaultLang); defaultLang == "" {
		defaultLang = "en"
	}

	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("i18n: read dir %s: %w", dir, err)
	}

	m := &Manager{langs: make(map[string]messages), defaultLang: defaultLang}
	files := 0
	for _, entry := range entries {
		ext := strings.ToLower(path.Ext(entry.Name()))
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		files++

		name := path.Join(dir, entry.Name())
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("i18n: read %s: %w", name, err)
		}
		if err := m.merge(data); err != nil {
			return nil, fmt.Errorf("i18n: %s: %w", name, err)
		}
	}

	if files == 0 {
		return nil, fmt.Errorf("i18n: no yaml files found in %s", dir)
	}
	if _, ok := m.langs[defaultLang]; !ok {
		return nil, fmt.Errorf("i18n: default language %q is missing", defaultLang)
	}
	return m, nil
}

func (m *Manager) merge(data []byte) error {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	if len(doc.Content) == 0 {
		return nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: top level must map languages to keys", root.Line)
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		lang := normalize(root.Content[i].Value)
		if lang == "" {
			continue
		}
		if m.langs[lang] == nil {
			m.langs[lang] = make(messages)
		}
		if err := collect(root.Content[i+1], lang, "", m.langs[lang]); err != nil {
			return err
		}
	}
	return nil
}

func collect(node *yaml.Node, lang, prefix string, out messages) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if prefix == "" {
			return nil
		}
		if _, dup := out[prefix]; dup {
			return fmt.Errorf("line %d: %s.%s defined twice", node.Line, lang, prefix)
		}
		out[prefix] = node.Value
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i].Value
			if key == "" {
				continue
			}
			if prefix != "" {
				key = prefix + "." + key
			}
			if err := collect(node.Content[i+1], lang, key, out); err != nil {
				return err
			}
		}
	}
	return nil
}

// normalize lowercases a language tag and turns "pt_BR" into "pt-br".
func normalize(lang string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(lang)), "_", "-")
}

// Translator picks the best catalogue for a Telegram language code: the exact tag, then its base
// language ("pt-br" -> "pt"), then the default.
func (m *Manager) Translator(lang string) Translator {
	if m == nil {
		return translator{}
	}

	chosen := m.defaultLang
	tag := normalize(lang)
	base, _, _ := strings.Cut(tag, "-")
	for _, candidate := range []string{tag, base} {
		if _, ok := m.langs[candidate]; ok && candidate != "" {
			chosen = candidate
			break
		}
	}

	return translator{lang: chosen, primary: m.langs[chosen], fallback: m.langs[m.defaultLang]}
}

// DefaultLang is the language used when a user's language has no catalogue.
func (m *Manager) DefaultLang() string {
	if m == nil {
		return ""
	}
	return m.defaultLang
}

// Languages returns the loaded languages in sorted order.
func (m *Manager) Languages() []string {
	if m == nil {
		return nil
	}
	out := make([]string, 0, len(m.langs))
	for lang := range m.langs {
		out = append(out, lang)
	}
	slices.Sort(out)
	return out
}

type translator struct {
	lang     string
	primary  messages
	fallback messages
}

func (t translator) Lang() string { return t.lang }

func (t translator) T(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	if v, ok := t.primary[key]; ok && v != "" {
		return v
	}
	if v, ok := t.fallback[key]; ok && v != "" {
		return v
	}
	return key
}

func (t translator) F(key string, args map[string]string) string {
	text := t.T(key)
	if len(args) == 0 || !strings.Contains(text, "{") {
		return text
	}

	pairs := make([]string, 0, 2*len(args))
	for name, value := range args {
		pairs = append(pairs, "{"+name+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

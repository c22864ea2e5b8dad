package msgcat

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"text/template"

	yaml "gopkg.in/yaml.v3"

	"github.com/park285/cheese-connect4/pkg/wire"
)

//go:embed messages.en.yaml
var embedded embed.FS

// Catalog holds compiled message templates keyed by dotted path
// ("reject.ColumnFull"). It is immutable once built.
type Catalog struct {
	tmpl map[string]*template.Template
}

// New compiles the embedded messages, then layers every *.yaml / *.yml in
// overrideDir on top. Two override files defining the same key is an error.
func New(overrideDir string) (*Catalog, error) {
	src := make(map[string]string)
	if err := loadFile(embedded, "messages.en.yaml", src); err != nil {
		return nil, fmt.Errorf("embedded messages: %w", err)
	}
	if dir := strings.TrimSpace(overrideDir); dir != "" {
		over, err := loadOverrides(os.DirFS(dir))
		if err != nil {
			return nil, fmt.Errorf("messages dir %s: %w", dir, err)
		}
		for k, v := range over {
			src[k] = v
		}
	}

	c := &Catalog{tmpl: make(map[string]*template.Template, len(src))}
	for key, text := range src {
		if strings.TrimSpace(text) == "" {
			continue
		}
		t, err := template.New(key).Option("missingkey=error").Parse(text)
		if err != nil {
			return nil, fmt.Errorf("compile %s: %w", key, err)
		}
		c.tmpl[key] = t
	}
	return c, nil
}

// MustDefault is New("") for callers that ship only the embedded file.
func MustDefault() *Catalog {
	c, err := New("")
	if err != nil {
		panic(err)
	}
	return c
}

func loadOverrides(fsys fs.FS) (map[string]string, error) {
	var names []string
	for _, pat := range []string{"*.yaml", "*.yml"} {
		m, err := fs.Glob(fsys, pat)
		if err != nil {
			return nil, err
		}
		names = append(names, m...)
	}
	out := make(map[string]string)
	owner := make(map[string]string)
	for _, name := range names {
		one := make(map[string]string)
		if err := loadFile(fsys, name, one); err != nil {
			return nil, err
		}
		for k, v := range one {
			if first, dup := owner[k]; dup {
				return nil, fmt.Errorf("key %q defined in both %s and %s", k, first, name)
			}
			owner[k] = name
			out[k] = v
		}
	}
	return out, nil
}

func loadFile(fsys fs.FS, name string, dst map[string]string) error {
	raw, err := fs.ReadFile(fsys, name)
	if err != nil {
		return err
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if len(doc.Content) == 0 {
		return nil
	}
	return collect(doc.Content[0], "", dst)
}

// collect walks mapping nodes and records scalar leaves under their joined key.
func collect(n *yaml.Node, prefix string, dst map[string]string) error {
	switch n.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i].Value
			if prefix != "" {
				key = prefix + "." + key
			}
			if err := collect(n.Content[i+1], key, dst); err != nil {
				return err
			}
		}
		return nil
	case yaml.ScalarNode:
		if prefix == "" {
			return fmt.Errorf("line %d: bare scalar", n.Line)
		}
		if n.Tag == "!!null" {
			return nil
		}
		dst[prefix] = n.Value
		return nil
	default:
		return fmt.Errorf("line %d: %s must be a string or mapping", n.Line, prefix)
	}
}

// Has reports whether key has a template.
func (c *Catalog) Has(key string) bool {
	_, ok := c.tmpl[key]
	return ok
}

// Render executes the template under key. Referencing an absent data key fails.
func (c *Catalog) Render(key string, data any) (string, error) {
	t, ok := c.tmpl[strings.TrimSpace(key)]
	if !ok {
		return "", fmt.Errorf("no message for %q", key)
	}
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Rejection renders "reject.<reason>", falling back to the bare code.
func (c *Catalog) Rejection(reason wire.Reason, data map[string]any) string {
	if c == nil {
		return string(reason)
	}
	if data == nil {
		data = map[string]any{}
	}
	s, err := c.Render("reject."+string(reason), data)
	if err != nil {
		return string(reason)
	}
	return s
}

package template

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// Renderer renders command results through user supplied go templates.
// Parsed templates are cached by content.
type Renderer struct {
	mu        sync.Mutex
	templates map[string]*template.Template
}

func NewRenderer() *Renderer {
	return &Renderer{
		templates: make(map[string]*template.Template),
	}
}

// generateTemplateName generates a unique name for a template based on its content
func generateTemplateName(tmpl string) string {
	hash := sha256.Sum256([]byte(tmpl))
	return fmt.Sprintf("tmpl_%s", hex.EncodeToString(hash[:8]))
}

func funcMap() template.FuncMap {
	fm := sprig.TxtFuncMap()
	fm["env"] = os.Getenv
	fm["fromJSON"] = fromJSON
	fm["toJSON"] = toJSON
	fm["safeGet"] = safeGet
	fm["safeGetOr"] = safeGetOr
	return fm
}

func (r *Renderer) parse(tmpl string) (*template.Template, error) {
	name := generateTemplateName(tmpl)

	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.templates[name]; ok {
		return t, nil
	}
	t, err := template.New(name).Funcs(funcMap()).Option("missingkey=zero").Parse(tmpl)
	if err != nil {
		return nil, err
	}
	r.templates[name] = t
	return t, nil
}

// Render executes tmpl against data. The data is passed through its JSON
// form first, so templates address fields by their wire names:
//
//	{{ .content }} {{ .why.input }} {{ range .installed }}{{ .id }}{{ end }}
func (r *Renderer) Render(tmpl string, data any) (string, error) {
	t, err := r.parse(tmpl)
	if err != nil {
		return "", err
	}

	generic, err := toGeneric(data)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, generic); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func toGeneric(data any) (any, error) {
	switch data.(type) {
	case nil, string, map[string]any, []any:
		return data, nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode template data: %w", err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode template data: %w", err)
	}
	return out, nil
}

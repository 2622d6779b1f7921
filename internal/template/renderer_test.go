package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reply struct {
	Who     string         `json:"who"`
	Content string         `json:"text"`
	Why     map[string]any `json:"why,omitempty"`
}

func TestGenerateTemplateNameDeterministic(t *testing.T) {
	n1 := generateTemplateName("hello {{ . }}")
	n2 := generateTemplateName("hello {{ . }}")
	n3 := generateTemplateName("other")
	assert.Equal(t, n1, n2)
	assert.NotEqual(t, n1, n3)
}

func TestRenderUsesWireNames(t *testing.T) {
	r := NewRenderer()
	out, err := r.Render(`{{ .who }}: {{ .text }} ({{ .why.input }})`, reply{
		Who:     "AI",
		Content: "You said: hi",
		Why:     map[string]any{"input": "hi"},
	})
	require.NoError(t, err)
	assert.Equal(t, "AI: You said: hi (hi)", out)
}

func TestRenderCachesTemplates(t *testing.T) {
	r := NewRenderer()
	for i := 0; i < 3; i++ {
		_, err := r.Render(`{{ .id }}`, map[string]any{"id": "x"})
		require.NoError(t, err)
	}
	assert.Len(t, r.templates, 1)
}

func TestRenderRange(t *testing.T) {
	data := map[string]any{
		"installed": []any{
			map[string]any{"id": "core_plugin", "active": true},
			map[string]any{"id": "weather", "active": false},
		},
	}
	out, err := NewRenderer().Render(`{{ range .installed }}{{ .id }}={{ .active }};{{ end }}`, data)
	require.NoError(t, err)
	assert.Equal(t, "core_plugin=true;weather=false;", out)
}

func TestSprigFunctionsAvailable(t *testing.T) {
	r := NewRenderer()
	data := map[string]any{"name": "  Cheshire ", "tags": []any{"core", "default"}}

	out, err := r.Render(`{{ .name | trim | upper }}`, data)
	require.NoError(t, err)
	assert.Equal(t, "CHESHIRE", out)

	out, err = r.Render(`{{ .missing | default "none" }}`, data)
	require.NoError(t, err)
	assert.Equal(t, "none", out)

	out, err = r.Render(`{{ join ", " .tags }}`, data)
	require.NoError(t, err)
	assert.Equal(t, "core, default", out)
}

func TestDashKeysNeedSafeGet(t *testing.T) {
	r := NewRenderer()
	data := map[string]any{"chat-id": "chat-1"}

	out, err := r.Render(`{{ .chat-id }}`, data)
	assert.Error(t, err)
	assert.Empty(t, out)

	out, err = r.Render(`{{ safeGet "chat-id" . }}`, data)
	require.NoError(t, err)
	assert.Equal(t, "chat-1", out)
}

func TestRenderEnvAndJSON(t *testing.T) {
	t.Setenv("CATCTL_TEMPLATE_TEST", "works")
	out, err := NewRenderer().Render(`{{ env "CATCTL_TEMPLATE_TEST" }} {{ toJSON .points }}`,
		map[string]any{"points": []any{"a"}})
	require.NoError(t, err)
	assert.Equal(t, `works ["a"]`, out)
}

func TestRenderParseError(t *testing.T) {
	_, err := NewRenderer().Render(`{{ .who `, nil)
	assert.Error(t, err)
}

package view

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/ashureev/wpassist/internal/domain"
	"github.com/ashureev/wpassist/internal/session"
	"github.com/ashureev/wpassist/web"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer(web.Templates(), time.UTC)
	require.NoError(t, err)
	return r
}

func render(t *testing.T, snap session.Snapshot) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, newRenderer(t).Render(&buf, snap))
	return buf.String()
}

func connectedSnapshot(turns ...domain.ConversationTurn) session.Snapshot {
	return session.Snapshot{
		Version: 4,
		Mode:    domain.ModeInline,
		Open:    true,
		Tab:     domain.TabChat,
		Site: domain.SiteConnection{
			URL:       "https://example.com",
			Connected: true,
			Items:     []domain.ContentItem{{ID: 1, RenderedTitle: "Hello", Link: "https://example.com/hello"}},
		},
		Turns: turns,
	}
}

func TestRender_SetupForm(t *testing.T) {
	out := render(t, session.Snapshot{Mode: domain.ModeInline, Tab: domain.TabChat})
	assert.Contains(t, out, "Start Indexing")
	assert.Contains(t, out, `data-wpa-action="connect"`)
	assert.NotContains(t, out, "wpa-launcher")
}

func TestRender_ConnectingAndError(t *testing.T) {
	out := render(t, session.Snapshot{Mode: domain.ModeInline, Loading: true})
	assert.Contains(t, out, "Connecting...")

	out = render(t, session.Snapshot{Mode: domain.ModeInline, Error: session.ConnectFailedMessage})
	assert.Contains(t, out, "Connect Failed: Make sure WordPress REST API is enabled.")
}

func TestRender_WidgetLauncher(t *testing.T) {
	closed := render(t, session.Snapshot{Mode: domain.ModeWidget})
	assert.Contains(t, closed, "wpa-launcher")
	assert.Contains(t, closed, `aria-expanded="false"`)
	assert.Contains(t, closed, "hidden")

	open := render(t, session.Snapshot{Mode: domain.ModeWidget, Open: true})
	assert.Contains(t, open, `aria-expanded="true"`)
	assert.Contains(t, open, "wpa--open")
}

func TestRender_TranscriptEscapesInjectedMarkup(t *testing.T) {
	at := time.Date(2024, 5, 1, 9, 7, 0, 0, time.UTC)
	snap := connectedSnapshot(
		domain.ConversationTurn{ID: "u1", Role: domain.RoleUser, Text: "<img src=x onerror=alert(1)>", CreatedAt: at},
		domain.ConversationTurn{
			ID:        "a1",
			Role:      domain.RoleAssistant,
			Text:      "See **this** <script>alert(2)</script>",
			CreatedAt: at,
			RelatedItems: []domain.ContentItem{
				{ID: 1, RenderedTitle: `Hi <b onclick="x()">there</b>`, Link: "javascript:alert(3)"},
				{ID: 2, RenderedTitle: "Safe", Link: "https://example.com/safe"},
			},
		},
	)

	out := render(t, snap)
	assert.NotContains(t, out, "<img")
	assert.NotContains(t, out, "<script>")
	assert.NotContains(t, out, "onclick")
	assert.NotContains(t, out, "javascript:")
	assert.Contains(t, out, "&lt;img src=x onerror=alert(1)&gt;")
	assert.Contains(t, out, "<strong>this</strong>")
	assert.Contains(t, out, `href="https://example.com/safe"`)
	assert.Contains(t, out, "Top Matches")
	assert.Contains(t, out, "09:07")
}

func TestRender_LoadingDisablesInput(t *testing.T) {
	snap := connectedSnapshot(domain.ConversationTurn{ID: "u1", Role: domain.RoleUser, Text: "hi"})
	snap.Loading = true
	out := render(t, snap)
	assert.Contains(t, out, "wpa-typing")
	assert.True(t, strings.Contains(out, `name="text"`) && strings.Contains(out, "disabled"))
}

func TestRender_Settings(t *testing.T) {
	snap := connectedSnapshot()
	snap.Tab = domain.TabSettings
	out := render(t, snap)
	assert.Contains(t, out, "[ai_chatbot mode=&#34;inline&#34;]")
	assert.Contains(t, out, "[ai_chatbot mode=&#34;widget&#34;]")
	assert.Contains(t, out, "Re-index Website Data")
	assert.Contains(t, out, "https://example.com")
}

func TestSafeLink(t *testing.T) {
	cases := map[string]string{
		"https://example.com/a": "https://example.com/a",
		"http://example.com":    "http://example.com",
		"javascript:alert(1)":   "",
		"/relative":             "",
		"ftp://example.com":     "",
		"":                      "",
	}
	for in, want := range cases {
		assert.Equal(t, want, SafeLink(in), in)
	}
}

func TestTitleHTML(t *testing.T) {
	assert.Equal(t, "Hello World", string(TitleHTML("<em>Hello</em> World")))
	assert.Empty(t, string(TitleHTML("<script>x</script>")))
}

func TestRender_SetupFormKeepsAttemptedURL(t *testing.T) {
	out := render(t, session.Snapshot{
		Instance:  "inst-1",
		Mode:      domain.ModeInline,
		SiteInput: "https://typed.example",
		Error:     session.ConnectFailedMessage,
	})
	assert.Contains(t, out, `value="https://typed.example"`)
	assert.Contains(t, out, `data-wpa-instance="inst-1"`)
}

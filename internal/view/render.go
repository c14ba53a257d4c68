// Package view renders session snapshots as the embeddable widget's HTML.
package view

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"time"

	"github.com/ashureev/wpassist/internal/domain"
	"github.com/ashureev/wpassist/internal/session"
)

// Shortcodes a site owner places in WordPress content to mount the widget.
const (
	InlineShortcode = `[ai_chatbot mode="inline"]`
	WidgetShortcode = `[ai_chatbot mode="widget"]`
)

type shortcode struct {
	Label string
	Hint  string
	Code  string
}

var shortcodes = []shortcode{
	{Label: "Inline Chatbot", Hint: "Place inside any Page or Post content:", Code: InlineShortcode},
	{Label: "Floating Widget", Hint: "This appears automatically, but you can force it:", Code: WidgetShortcode},
}

type relatedLink struct {
	Title template.HTML
	URL   string
}

type turnView struct {
	ID      string
	Role    domain.Role
	Body    template.HTML
	Time    string
	ISOTime string
	Related []relatedLink
}

type pageView struct {
	Instance   string
	Version    uint64
	Phase      session.Phase
	Mode       domain.DisplayMode
	Inline     bool
	Open       bool
	Settings   bool
	Connected  bool
	Loading    bool
	Error      string
	SiteURL    string
	SetupURL   string
	ItemCount  int
	Draft      string
	Turns      []turnView
	Shortcodes []shortcode
}

// Renderer turns snapshots into widget HTML.
type Renderer struct {
	tmpl *template.Template
	loc  *time.Location
}

// NewRenderer parses the widget templates from templates. Timestamps are shown in loc,
// or the local zone when loc is nil.
func NewRenderer(templates fs.FS, loc *time.Location) (*Renderer, error) {
	tmpl, err := template.ParseFS(templates, "*.html")
	if err != nil {
		return nil, fmt.Errorf("parse widget templates: %w", err)
	}
	if tmpl.Lookup("widget") == nil {
		return nil, fmt.Errorf("parse widget templates: no \"widget\" template defined")
	}
	if loc == nil {
		loc = time.Local
	}
	return &Renderer{tmpl: tmpl, loc: loc}, nil
}

// Render writes the widget for snap to w.
func (r *Renderer) Render(w io.Writer, snap session.Snapshot) error {
	if err := r.tmpl.ExecuteTemplate(w, "widget", r.page(snap)); err != nil {
		return fmt.Errorf("render widget: %w", err)
	}
	return nil
}

func (r *Renderer) page(snap session.Snapshot) pageView {
	p := pageView{
		Instance:   snap.Instance,
		Version:    snap.Version,
		Phase:      snap.Phase(),
		Mode:       snap.Mode,
		Inline:     snap.Mode == domain.ModeInline,
		Open:       snap.Open || snap.Mode == domain.ModeInline,
		Settings:   snap.Tab == domain.TabSettings,
		Connected:  snap.Site.Connected,
		Loading:    snap.Loading,
		Error:      snap.Error,
		SiteURL:    snap.Site.URL,
		ItemCount:  len(snap.Site.Items),
		Draft:      snap.Draft,
		Shortcodes: shortcodes,
	}
	p.SetupURL = snap.SiteInput
	if p.SetupURL == "" {
		p.SetupURL = snap.Site.URL
	}
	p.Turns = make([]turnView, 0, len(snap.Turns))
	for _, t := range snap.Turns {
		p.Turns = append(p.Turns, r.turn(t))
	}
	return p
}

func (r *Renderer) turn(t domain.ConversationTurn) turnView {
	at := t.CreatedAt.In(r.loc)
	v := turnView{
		ID:      t.ID,
		Role:    t.Role,
		Time:    at.Format("15:04"),
		ISOTime: at.Format(time.RFC3339),
	}
	if t.IsUser() {
		v.Body = PlainHTML(t.Text)
	} else {
		v.Body = AnswerHTML(t.Text)
	}
	for _, item := range t.RelatedItems {
		title := TitleHTML(item.RenderedTitle)
		link := SafeLink(item.Link)
		if title == "" {
			title = template.HTML(template.HTMLEscapeString(link))
		}
		v.Related = append(v.Related, relatedLink{Title: title, URL: link})
	}
	return v
}

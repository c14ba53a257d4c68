// Package session holds the per-visitor assistant state and notifies subscribers of changes.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/wpassist/internal/agent"
	"github.com/ashureev/wpassist/internal/domain"
	"github.com/ashureev/wpassist/internal/metrics"
	"github.com/google/uuid"
)

// User-facing messages.
const (
	ConnectFailedMessage = "Connect Failed: Make sure WordPress REST API is enabled."
	ApologyMessage       = "Oops! I hit a snag. Check your API key or internet connection."
	welcomeFormat        = "👋 Hello! I've indexed %d items from this site. How can I help you today?"
)

var (
	// ErrBusy is returned when a connect or query is already in flight.
	ErrBusy = errors.New("a request is already in progress")
	// ErrEmpty is returned for blank site URLs and blank queries.
	ErrEmpty = errors.New("input is empty")
	// ErrNotConnected is returned when a query is submitted before a site is loaded.
	ErrNotConnected = errors.New("no site connected")
)

// Fetcher loads the content of a site.
type Fetcher interface {
	Fetch(ctx context.Context, siteURL string) ([]domain.ContentItem, error)
}

// Analyzer answers a query from the loaded content.
type Analyzer interface {
	Analyze(ctx context.Context, query string, items []domain.ContentItem) (agent.Analysis, error)
}

// Options configures a State.
type Options struct {
	Mode    domain.DisplayMode
	Metrics *metrics.Metrics
	Logger  *slog.Logger
	Now     func() time.Time
	NewID   func() string
}

// State is the assistant session of one visitor: the connected site, the transcript
// and the widget's UI mode. Mutations are serialized; network calls run unlocked.
type State struct {
	fetcher  Fetcher
	analyzer Analyzer
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
	instance string

	mu         sync.Mutex
	mode       domain.DisplayMode
	open       bool
	tab        domain.Tab
	draft      string
	siteInput  string
	site       domain.SiteConnection
	turns      []domain.ConversationTurn
	loading    bool
	errMsg     string
	version    uint64
	lastActive time.Time
	closed     bool
	subs       map[int]chan Snapshot
	nextSubID  int
}

// New creates a disconnected session.
func New(fetcher Fetcher, analyzer Analyzer, opts Options) *State {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	mode := domain.ParseDisplayMode(string(opts.Mode))
	return &State{
		fetcher:    fetcher,
		analyzer:   analyzer,
		metrics:    opts.Metrics,
		logger:     opts.Logger,
		now:        opts.Now,
		newID:      opts.NewID,
		instance:   uuid.NewString(),
		mode:       mode,
		open:       mode == domain.ModeInline,
		tab:        domain.TabChat,
		lastActive: opts.Now(),
		subs:       make(map[int]chan Snapshot),
	}
}

// Connect loads the site's posts and pages. On success the transcript is replaced by a
// welcome turn; on failure the error banner is set and the previous content is kept.
func (s *State) Connect(ctx context.Context, siteURL string) error {
	siteURL = strings.TrimSpace(siteURL)
	if siteURL == "" {
		return ErrEmpty
	}

	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return ErrBusy
	}
	s.loading = true
	s.errMsg = ""
	s.siteInput = siteURL
	s.touchLocked()
	s.notifyLocked()
	s.mu.Unlock()

	start := s.now()
	items, err := s.fetcher.Fetch(ctx, siteURL)
	took := s.now().Sub(start)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.errMsg = ConnectFailedMessage
		s.metrics.ObserveConnect(metrics.OutcomeError, 0, took)
		s.logger.Warn("Site connect failed", "site", siteURL, "error", err)
		s.notifyLocked()
		return err
	}

	s.site = domain.SiteConnection{URL: siteURL, Items: items, Connected: true}
	s.turns = []domain.ConversationTurn{{
		ID:        s.newID(),
		Role:      domain.RoleAssistant,
		Text:      fmt.Sprintf(welcomeFormat, len(items)),
		CreatedAt: s.now(),
	}}
	s.metrics.ObserveConnect(metrics.OutcomeOK, len(items), took)
	s.logger.Info("Site connected", "site", siteURL, "items", len(items))
	s.notifyLocked()
	return nil
}

// AutoConnect connects to siteURL unless no URL is given or a site is already loaded.
func (s *State) AutoConnect(ctx context.Context, siteURL string) error {
	if strings.TrimSpace(siteURL) == "" {
		return nil
	}
	s.mu.Lock()
	loaded := s.site.Connected
	s.mu.Unlock()
	if loaded {
		return nil
	}
	return s.Connect(ctx, siteURL)
}

// Pending is a submitted query whose answer has not been produced yet.
type Pending struct {
	state *State
	query string
	items []domain.ContentItem
	start time.Time
}

// BeginSubmit records the user turn, clears the draft and raises the loading flag.
// The caller must call Complete on the returned Pending.
func (s *State) BeginSubmit(text string) (*Pending, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmpty
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loading {
		return nil, ErrBusy
	}
	if !s.site.Connected {
		return nil, ErrNotConnected
	}

	s.draft = ""
	s.turns = append(s.turns, domain.ConversationTurn{
		ID:        s.newID(),
		Role:      domain.RoleUser,
		Text:      text,
		CreatedAt: s.now(),
	})
	s.loading = true
	s.touchLocked()
	s.notifyLocked()

	return &Pending{state: s, query: text, items: s.site.Items, start: s.now()}, nil
}

// Complete asks the analyzer and appends the assistant turn. An analyzer failure becomes
// an apology turn and is also returned to the caller.
func (p *Pending) Complete(ctx context.Context) error {
	s := p.state
	analysis, err := s.analyzer.Analyze(ctx, p.query, p.items)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	took := s.now().Sub(p.start)

	turn := domain.ConversationTurn{
		ID:        s.newID(),
		Role:      domain.RoleAssistant,
		CreatedAt: s.now(),
	}
	switch {
	case err != nil:
		turn.Text = ApologyMessage
		s.metrics.ObserveQuery(metrics.OutcomeError, took)
		s.logger.Error("Query failed", "error", err)
	default:
		turn.Text = analysis.Answer
		turn.RelatedItems = s.site.ItemsByID(analysis.RecommendedPostIDs)
		outcome := metrics.OutcomeOK
		if analysis.Fallback {
			outcome = metrics.OutcomeFallback
		}
		s.metrics.ObserveQuery(outcome, took)
	}
	s.turns = append(s.turns, turn)
	s.touchLocked()
	s.notifyLocked()
	return err
}

// Submit runs BeginSubmit and Complete back to back.
func (s *State) Submit(ctx context.Context, text string) error {
	pending, err := s.BeginSubmit(text)
	if err != nil {
		return err
	}
	return pending.Complete(ctx)
}

// Reset disconnects the site and clears the conversation. The last attempted URL is
// kept for the setup form. Resetting an already reset session changes nothing.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	if !s.site.Connected && s.site.URL == "" && len(s.turns) == 0 && s.errMsg == "" &&
		s.tab == domain.TabChat && s.draft == "" {
		return
	}
	s.site = domain.SiteConnection{}
	s.turns = nil
	s.errMsg = ""
	s.draft = ""
	s.tab = domain.TabChat
	s.logger.Info("Session reset")
	s.notifyLocked()
}

// SetDraft stores the text currently typed in the input field.
func (s *State) SetDraft(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft == text {
		return
	}
	s.draft = text
	s.notifyLocked()
}

// Toggle opens or closes the widget panel. Inline panels are always open.
func (s *State) Toggle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == domain.ModeInline {
		return
	}
	s.open = !s.open
	s.touchLocked()
	s.notifyLocked()
}

// SetTab switches between the chat and settings panels.
func (s *State) SetTab(tab domain.Tab) {
	if tab != domain.TabSettings {
		tab = domain.TabChat
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tab == tab {
		return
	}
	s.tab = tab
	s.touchLocked()
	s.notifyLocked()
}

// SetMode changes the display variant. Switching to inline opens the panel.
func (s *State) SetMode(mode domain.DisplayMode) {
	mode = domain.ParseDisplayMode(string(mode))
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == mode {
		return
	}
	s.mode = mode
	if mode == domain.ModeInline {
		s.open = true
	}
	s.notifyLocked()
}

// LastActive returns the time of the last visitor action.
func (s *State) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Subscribers returns the number of open subscriptions.
func (s *State) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Busy reports whether a request is in flight.
func (s *State) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *State) touchLocked() {
	s.lastActive = s.now()
}

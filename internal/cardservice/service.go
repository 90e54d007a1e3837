// Package cardservice runs live card render sessions on top of the bundle
// store and index.
//
// A session owns one card.Document and a page.Recorder. Every flushed batch
// is published as a card.commands event and the session row is saved to
// the index. Sessions are independent; each is guarded by its own mutex.
package cardservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/cardbind/internal/apperr"
	"github.com/starford/cardbind/internal/card"
	"github.com/starford/cardbind/internal/cardfile"
	"github.com/starford/cardbind/internal/index"
	"github.com/starford/cardbind/internal/jsonvalue"
	"github.com/starford/cardbind/internal/locale"
	"github.com/starford/cardbind/internal/mediaquery"
	"github.com/starford/cardbind/internal/models"
	"github.com/starford/cardbind/internal/page"
	"github.com/starford/cardbind/internal/sse"
	"github.com/starford/cardbind/internal/storage"
)

// OpenRequest describes a new render session. Zero fields take the
// service defaults.
type OpenRequest struct {
	Bundle    string
	Locale    string
	ColorMode string
	Width     int
	Height    int
	Density   float64
	// Data is merged into the card data before the first render.
	Data *jsonvalue.Value
}

// Batch is one flushed group of DOM commands.
type Batch struct {
	Session  string         `json:"session"`
	Seq      int            `json:"seq"`
	Reset    bool           `json:"reset,omitempty"`
	Commands []page.Command `json:"commands"`
}

// Render is the result of a session operation.
type Render struct {
	Session  models.Session `json:"session"`
	Commands []page.Command `json:"commands"`
}

type session struct {
	mu      sync.Mutex
	info    models.Session
	req     OpenRequest
	doc     *card.Document
	rec     *page.Recorder
	matcher *mediaquery.Matcher
	// data accumulates every patch so a reload keeps the live values.
	data  *jsonvalue.Value
	seq   int
	reset bool
}

// Service coordinates bundles, the index and live sessions.
type Service struct {
	store    storage.Provider
	db       *index.DB
	pub      Publisher
	logger   *slog.Logger
	defaults Defaults

	mu       sync.RWMutex
	sessions map[string]*session

	// matchMu guards matcher, which serves stateless MatchMedia calls.
	matchMu sync.Mutex
	matcher *mediaquery.Matcher
}

// New creates a card service.
func New(store storage.Provider, db *index.DB, opts ...Option) *Service {
	s := &Service{
		store:    store,
		db:       db,
		logger:   slog.Default(),
		defaults: Defaults{Width: 360, Height: 360, Locale: "en-US", Device: mediaquery.Device{Type: "phone", Density: 1}},
		sessions: make(map[string]*session),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.matcher = mediaquery.New(s.defaults.Device)
	return s
}

// Open loads a bundle, renders its card and registers a session.
func (s *Service) Open(_ context.Context, req OpenRequest) (*Render, error) {
	b, err := s.db.GetBundle(req.Bundle)
	if err != nil {
		return nil, err
	}
	req = s.withDefaults(req)

	now := time.Now().UTC()
	sess := &session{
		info: models.Session{
			ID:        uuid.NewString(),
			Bundle:    b.Name,
			Locale:    req.Locale,
			ColorMode: mediaquery.ParseColorMode(req.ColorMode).String(),
			Width:     req.Width,
			Height:    req.Height,
			CreatedAt: now,
			UpdatedAt: now,
		},
		req:  req,
		data: jsonvalue.NewObject(),
	}
	if req.Data.IsObject() {
		sess.data = req.Data.Clone()
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := s.build(sess, b); err != nil {
		return nil, err
	}
	if err := sess.doc.Create(sess.rec); err != nil {
		return nil, fmt.Errorf("cardservice: open: %w", err)
	}

	res, err := s.commit(sess)
	if err != nil {
		// The create batch is already out; tell subscribers to drop it.
		if s.pub != nil {
			s.pub.Publish(sse.Event{Type: sse.TypeSessionClosed, Session: sess.info.ID, Data: map[string]string{"session": sess.info.ID}})
		}
		return nil, fmt.Errorf("cardservice: open: %w", err)
	}

	s.mu.Lock()
	s.sessions[sess.info.ID] = sess
	s.mu.Unlock()

	s.logger.Info("session opened", slog.String("session", sess.info.ID), slog.String("bundle", b.Name))
	return res, nil
}

// Render performs a one-shot render without registering a session.
func (s *Service) Render(_ context.Context, req OpenRequest) ([]page.Command, error) {
	b, err := s.db.GetBundle(req.Bundle)
	if err != nil {
		return nil, err
	}
	req = s.withDefaults(req)
	sess := &session{req: req, data: req.Data}
	if err := s.build(sess, b); err != nil {
		return nil, err
	}
	if err := sess.doc.Create(sess.rec); err != nil {
		return nil, fmt.Errorf("cardservice: render: %w", err)
	}
	return sess.rec.LastBatch(), nil
}

// UpdateData patches the card data of a session and re-renders it.
func (s *Service) UpdateData(_ context.Context, id string, patch *jsonvalue.Value) (*Render, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := sess.doc.UpdateData(patch, sess.rec); err != nil {
		return nil, fmt.Errorf("cardservice: update data: %w", err)
	}
	for _, f := range patch.Fields() {
		sess.data.Put(f.Key, f.Value.Clone())
	}
	sess.info.Updates++
	return s.commit(sess)
}

// Resize changes the surface size of a session and re-renders it.
func (s *Service) Resize(_ context.Context, id string, width, height int) (*Render, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("cardservice: resize %dx%d: %w", width, height, apperr.ErrInvalidInput)
	}
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.doc.OnSurfaceChanged(width, height)
	if err := sess.doc.Update(sess.rec); err != nil {
		return nil, fmt.Errorf("cardservice: resize: %w", err)
	}
	sess.req.Width, sess.req.Height = width, height
	sess.info.Width, sess.info.Height = width, height
	sess.info.Updates++
	return s.commit(sess)
}

// SetColorMode switches a session between light and dark and re-renders it.
func (s *Service) SetColorMode(_ context.Context, id, mode string) (*Render, error) {
	if mode != "light" && mode != "dark" {
		return nil, fmt.Errorf("cardservice: color mode %q: %w", mode, apperr.ErrInvalidInput)
	}
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.doc.SetColorMode(mediaquery.ParseColorMode(mode))
	if err := sess.doc.Update(sess.rec); err != nil {
		return nil, fmt.Errorf("cardservice: color mode: %w", err)
	}
	sess.req.ColorMode = mode
	sess.info.ColorMode = sess.doc.ColorMode().String()
	sess.info.Updates++
	return s.commit(sess)
}

// Evaluate resolves a binding expression against a session's data.
func (s *Service) Evaluate(_ context.Context, id, expr string) (string, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return "", err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.doc.Resolve(expr), nil
}

// Close ends a session and removes its row.
func (s *Service) Close(_ context.Context, id string) error {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("cardservice: session %s: %w", id, apperr.ErrNotFound)
	}
	if err := s.db.DeleteSession(id); err != nil {
		return err
	}
	if s.pub != nil {
		s.pub.Publish(sse.Event{Type: sse.TypeSessionClosed, Session: id, Data: map[string]string{"session": id}})
	}
	s.logger.Info("session closed", slog.String("session", id))
	return nil
}

// Session returns the live state of one session.
func (s *Service) Session(_ context.Context, id string) (*models.Session, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	info := sess.info
	return &info, nil
}

// Sessions lists persisted sessions, optionally for one bundle.
func (s *Service) Sessions(_ context.Context, bundle string) ([]models.Session, error) {
	return s.db.ListSessions(bundle)
}

// ListBundles returns the indexed bundles.
func (s *Service) ListBundles(_ context.Context) ([]models.Bundle, error) {
	return s.db.ListBundles()
}

// Contract summarizes what a bundle's card declares: components, data
// keys, actions, media conditions and apiVersion levels.
func (s *Service) Contract(_ context.Context, bundle string) (*cardfile.Summary, error) {
	b, err := s.db.GetBundle(bundle)
	if err != nil {
		return nil, err
	}
	body, err := s.loadCard(b)
	if err != nil {
		return nil, err
	}
	sum := cardfile.Inspect(body)
	return &sum, nil
}

// SyncBundles rescans the bundles root and reloads sessions of every
// changed bundle.
func (s *Service) SyncBundles(ctx context.Context) ([]index.Change, error) {
	changes, err := index.Sync(ctx, s.db, s.store, s.logger)
	if err != nil {
		return nil, err
	}
	for _, c := range changes {
		s.HandleBundleChange(c)
	}
	return changes, nil
}

// HandleBundleChange publishes a bundle change and reloads or closes the
// sessions rendering it. It is the watcher callback.
func (s *Service) HandleBundleChange(c index.Change) {
	if s.pub != nil {
		s.pub.PublishBundleEvent(c.Kind, c.Bundle)
	}
	if c.Kind == index.Created {
		return
	}
	if err := s.ReloadBundle(context.Background(), c.Bundle); err != nil {
		s.logger.Warn("reload failed", slog.String("bundle", c.Bundle), slog.String("error", err.Error()))
	}
}

// ReloadBundle rebuilds every session of bundle from the current card
// file. Accumulated data patches are kept. When the bundle is gone its
// sessions are closed.
func (s *Service) ReloadBundle(ctx context.Context, bundle string) error {
	s.mu.RLock()
	var affected []*session
	for _, sess := range s.sessions {
		if sess.info.Bundle == bundle {
			affected = append(affected, sess)
		}
	}
	s.mu.RUnlock()
	if len(affected) == 0 {
		return nil
	}

	b, err := s.db.GetBundle(bundle)
	if errors.Is(err, apperr.ErrNotFound) {
		var errs []error
		for _, sess := range affected {
			if err := s.Close(ctx, sess.info.ID); err != nil && !errors.Is(err, apperr.ErrNotFound) {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
	if err != nil {
		return err
	}

	var errs []error
	for _, sess := range affected {
		if err := s.reload(sess, b); err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", sess.info.ID, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Service) reload(sess *session, b *models.Bundle) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := s.build(sess, b); err != nil {
		return err
	}
	sess.reset = true
	if err := sess.doc.Create(sess.rec); err != nil {
		return err
	}
	sess.info.Updates++
	_, err := s.commit(sess)
	s.logger.Info("session reloaded", slog.String("session", sess.info.ID), slog.String("bundle", b.Name))
	return err
}

// build creates the document and recorder of sess and initializes the
// document. The caller holds sess.mu.
func (s *Service) build(sess *session, b *models.Bundle) error {
	body, err := s.loadCard(b)
	if err != nil {
		return err
	}
	if sess.data.IsObject() {
		data := body.Get("data")
		for _, f := range sess.data.Fields() {
			data.Put(f.Key, f.Value.Clone())
		}
	}

	assets, err := storage.NewBundleAssets(s.store, b.Name)
	if err != nil {
		return err
	}
	loc, err := locale.New(sess.req.Locale)
	if err != nil {
		return fmt.Errorf("cardservice: locale %q: %w", sess.req.Locale, apperr.ErrInvalidInput)
	}

	device := s.defaults.Device
	device.Density = sess.req.Density
	sess.matcher = mediaquery.New(device)
	sess.matcher.SetSurfaceSize(sess.req.Width, sess.req.Height)

	sess.rec = page.NewRecorder(func(cmds []page.Command) { s.publish(sess, cmds) })
	sess.doc = card.New(body,
		card.WithLogger(s.logger.With(slog.String("bundle", b.Name))),
		card.WithAssets(assets),
		card.WithFonts(sess.rec),
		card.WithLocale(loc),
		card.WithMatcher(sess.matcher),
		card.WithDensity(sess.req.Density),
		card.WithAPIVersion(s.defaults.APIVersion),
		card.WithColorMode(mediaquery.ParseColorMode(sess.req.ColorMode)),
	)
	return sess.doc.Initialize()
}

func (s *Service) loadCard(b *models.Bundle) (*jsonvalue.Value, error) {
	raw, err := s.store.Read(path.Join(b.Name, b.CardFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("cardservice: card of %s: %w", b.Name, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return cardfile.Parse(b.CardFile, raw)
}

// publish is the recorder flush hook. It runs under sess.mu.
func (s *Service) publish(sess *session, cmds []page.Command) {
	sess.seq++
	if s.pub == nil || sess.info.ID == "" {
		return
	}
	s.pub.Publish(sse.Event{
		Type:    sse.TypeCardCommands,
		Session: sess.info.ID,
		Data:    Batch{Session: sess.info.ID, Seq: sess.seq, Reset: sess.reset, Commands: cmds},
	})
	sess.reset = false
}

// commit saves the session row and returns the latest batch. The caller
// holds sess.mu.
func (s *Service) commit(sess *session) (*Render, error) {
	sess.info.NodeCount = sess.doc.NodeCount()
	sess.info.UpdatedAt = time.Now().UTC()
	if err := s.db.SaveSession(sess.info); err != nil {
		return nil, err
	}
	cmds := sess.rec.LastBatch()
	if cmds == nil {
		cmds = []page.Command{}
	}
	return &Render{Session: sess.info, Commands: cmds}, nil
}

func (s *Service) lookup(id string) (*session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("cardservice: session %s: %w", id, apperr.ErrNotFound)
	}
	return sess, nil
}

func (s *Service) withDefaults(req OpenRequest) OpenRequest {
	if req.Locale == "" {
		req.Locale = s.defaults.Locale
	}
	if req.ColorMode == "" {
		req.ColorMode = s.defaults.ColorMode.String()
	}
	if req.Width <= 0 {
		req.Width = s.defaults.Width
	}
	if req.Height <= 0 {
		req.Height = s.defaults.Height
	}
	if req.Density <= 0 {
		req.Density = s.defaults.Device.Density
	}
	if req.Density <= 0 {
		req.Density = 1
	}
	return req
}

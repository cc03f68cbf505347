package admin

import (
	"context"
	"errors"
	"log"
	"os"
	"sync"

	"github.com/Zachkp/folio/internal/assets"
	"github.com/Zachkp/folio/internal/repository"
)

// SingletonView is a snapshot of a SingletonManager for rendering.
type SingletonView struct {
	Kind        KindInfo
	Form        Form
	FieldErrors map[string]string
	Found       bool
	Busy        bool
	Saved       bool

	Err      error
	FetchErr error
	Notice   string
}

// SingletonManager edits a one-document collection. Its form is always
// open; saving upserts the document and re-reads it.
type SingletonManager[T any] struct {
	kind     *Kind[T]
	repo     *repository.Singleton[T]
	assets   assets.Store
	fallback func() T
	logger   *log.Logger

	mu       sync.Mutex
	busy     bool
	saved    bool
	found    bool
	current  T
	form     Form
	err      error
	fetchErr error
	notice   string
}

// NewSingletonManager returns a manager whose form starts from fallback()
// until a document has been saved. fallback may be nil.
func NewSingletonManager[T any](kind *Kind[T], repo *repository.Singleton[T], store assets.Store, fallback func() T, logger *log.Logger) *SingletonManager[T] {
	if logger == nil {
		logger = log.New(os.Stderr, "[admin] ", log.LstdFlags)
	}
	return &SingletonManager[T]{
		kind:     kind,
		repo:     repo,
		assets:   store,
		fallback: fallback,
		logger:   logger,
	}
}

func (m *SingletonManager[T]) Info() KindInfo { return m.kind.Info() }

// Load re-reads the document and resets the form from it.
func (m *SingletonManager[T]) Load(ctx context.Context) error {
	v, found, err := m.repo.Get(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.busy {
		return ErrBusy
	}
	m.applyLoaded(v, found, err)
	m.err, m.notice, m.saved = nil, "", false
	return err
}

func (m *SingletonManager[T]) View() SingletonView {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := SingletonView{
		Kind:     m.kind.Info(),
		Found:    m.found,
		Busy:     m.busy,
		Saved:    m.saved,
		Err:      m.err,
		FetchErr: m.fetchErr,
		Notice:   m.notice,
	}
	if m.form != nil {
		v.Form = m.form.Clone()
	} else {
		v.Form = m.kind.Blank()
	}
	var verr *ValidationError
	if errors.As(m.err, &verr) {
		v.FieldErrors = verr.Fields
	}
	return v
}

// Submit validates and upserts the document. Failures keep the submitted
// form for a retry.
func (m *SingletonManager[T]) Submit(ctx context.Context, form Form, upload *Upload) error {
	m.mu.Lock()
	if m.busy {
		m.mu.Unlock()
		return ErrBusy
	}
	m.form, m.saved, m.notice = form.Clone(), false, ""

	value, err := m.kind.check(form)
	if err == nil && upload != nil && (m.assets == nil || m.kind.WithAsset == nil) {
		err = ErrNoAssetStore
	}
	if err != nil {
		m.err = err
		m.mu.Unlock()
		return err
	}

	var previous string
	if m.found && m.kind.AssetOf != nil {
		previous = m.kind.AssetOf(m.current)
	}
	m.busy, m.err = true, nil
	m.mu.Unlock()

	var uploaded string
	if upload != nil {
		url, err := m.assets.Upload(ctx, upload.Name, upload.Data)
		if err != nil {
			return m.finish(&UploadError{Name: upload.Name, Err: err})
		}
		uploaded = url
		value = m.kind.WithAsset(value, url)
	}

	if err := m.repo.Save(ctx, value); err != nil {
		if uploaded != "" {
			if rerr := m.assets.Remove(ctx, uploaded); rerr != nil {
				m.logger.Printf("%v", &AssetCleanupError{URL: uploaded, Err: rerr})
			}
		}
		return m.finish(&SubmitError{Op: "save " + m.kind.Singular, Err: err})
	}

	var notice string
	if uploaded != "" && previous != "" && previous != uploaded {
		if rerr := m.assets.Remove(ctx, previous); rerr != nil {
			m.logger.Printf("%v", &AssetCleanupError{URL: previous, Err: rerr})
			notice = "Saved, but the previous image could not be removed."
		}
	}

	v, found, ferr := m.repo.Get(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.busy, m.saved, m.notice = false, true, notice
	m.applyLoaded(v, found, ferr)
	return nil
}

func (m *SingletonManager[T]) finish(err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.busy, m.err = false, err
	m.logger.Printf("%s: %v", m.kind.Name, err)
	return err
}

// applyLoaded must be called with mu held.
func (m *SingletonManager[T]) applyLoaded(v T, found bool, err error) {
	if err != nil {
		m.logger.Printf("%s: %v", m.kind.Name, err)
		m.fetchErr = err
		return
	}
	m.fetchErr, m.found, m.current = nil, found, v
	if !found && m.fallback != nil {
		v = m.fallback()
	}
	m.form = m.kind.ToForm(v)
}

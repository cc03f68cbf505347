// Package admin implements the create/edit/delete panels of the admin site.
//
// A Manager owns the list it displays and the one form that may be open.
// Successful writes are reconciled by re-reading the collection; a write
// that fails leaves the form populated so it can be retried.
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

type State int

const (
	Browsing State = iota
	EditingNew
	EditingExisting
	Submitting
	Failed
)

func (s State) String() string {
	switch s {
	case Browsing:
		return "browsing"
	case EditingNew:
		return "editing-new"
	case EditingExisting:
		return "editing-existing"
	case Submitting:
		return "submitting"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Upload is a file chosen in the form.
type Upload struct {
	Name string
	Data []byte
}

// View is a snapshot of a manager for rendering.
type View struct {
	Kind      KindInfo
	State     State
	EditingID string

	// Form is nil when no form is open.
	Form        Form
	FieldErrors map[string]string
	Rows        []Row

	Err      error
	FetchErr error
	Notice   string
}

func (v View) FormOpen() bool { return v.Form != nil }
func (v View) Busy() bool     { return v.State == Submitting }

// Panel is the untyped surface the HTTP layer drives.
type Panel interface {
	Info() KindInfo
	Load(ctx context.Context) error
	View() View
	Create() error
	Edit(id string) error
	Cancel() error
	Submit(ctx context.Context, form Form, upload *Upload) error
	Delete(ctx context.Context, id string, confirmed bool) error
	Watch() (unsubscribe func())
}

// Manager is the admin panel for one collection.
type Manager[T repository.Entity[T]] struct {
	kind      *Kind[T]
	repo      *repository.Repository[T]
	assets    assets.Store
	reconcile Reconciliation[T]
	logger    *log.Logger

	mu        sync.Mutex
	state     State
	resume    State // editing state a Failed submission returns to
	editingID string
	form      Form
	items     []T
	fetchErr  error
	err       error
	notice    string
}

// NewManager returns a manager in the Browsing state with an empty list;
// call Load to fill it. store may be nil for kinds without uploads.
func NewManager[T repository.Entity[T]](kind *Kind[T], repo *repository.Repository[T], store assets.Store, logger *log.Logger) *Manager[T] {
	if logger == nil {
		logger = log.New(os.Stderr, "[admin] ", log.LstdFlags)
	}
	return &Manager[T]{
		kind:      kind,
		repo:      repo,
		assets:    store,
		reconcile: FullRefetchReconciliation[T]{Repo: repo},
		logger:    logger,
	}
}

// SetReconciliation replaces the default full refetch strategy.
func (m *Manager[T]) SetReconciliation(r Reconciliation[T]) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reconcile = r
}

func (m *Manager[T]) Info() KindInfo { return m.kind.Info() }

// Load re-reads the list. On failure the previous list is kept and the
// error is shown with a retry affordance.
func (m *Manager[T]) Load(ctx context.Context) error {
	items, err := m.repo.List(ctx)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setList(items, err)
	return err
}

// Items returns a copy of the displayed list.
func (m *Manager[T]) Items() []T {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]T(nil), m.items...)
}

func (m *Manager[T]) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager[T]) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := View{
		Kind:      m.kind.Info(),
		State:     m.state,
		EditingID: m.editingID,
		Err:       m.err,
		FetchErr:  m.fetchErr,
		Notice:    m.notice,
		Rows:      make([]Row, len(m.items)),
	}
	if m.form != nil {
		v.Form = m.form.Clone()
	}
	var verr *ValidationError
	if errors.As(m.err, &verr) {
		v.FieldErrors = verr.Fields
	}
	for i, item := range m.items {
		v.Rows[i] = m.kind.Row(item)
	}
	return v
}

// Create opens a blank form. Any open form is discarded.
func (m *Manager[T]) Create() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Submitting {
		return ErrBusy
	}
	m.open(EditingNew, "", m.kind.Blank())
	return nil
}

// Edit opens the form for id, populated from the displayed copy of the
// item. The item is not re-read.
func (m *Manager[T]) Edit(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Submitting {
		return ErrBusy
	}
	item, ok := m.find(id)
	if !ok {
		return ErrUnknownItem
	}
	m.open(EditingExisting, id, m.kind.ToForm(item))
	return nil
}

// Cancel closes the form and clears any error.
func (m *Manager[T]) Cancel() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Submitting {
		return ErrBusy
	}
	m.state, m.resume = Browsing, Browsing
	m.editingID, m.form, m.err = "", nil, nil
	return nil
}

// Submit validates form, uploads the chosen file if any, and saves the
// entity. A validation failure keeps the form open and makes no network
// call. Any later failure moves to Failed with the form retained.
func (m *Manager[T]) Submit(ctx context.Context, form Form, upload *Upload) error {
	m.mu.Lock()
	editing := m.state
	if editing == Submitting {
		m.mu.Unlock()
		return ErrBusy
	}
	if editing == Failed {
		editing = m.resume
	}
	if editing != EditingNew && editing != EditingExisting {
		m.mu.Unlock()
		return ErrNotEditing
	}

	m.form = form.Clone()
	entity, err := m.kind.check(form)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			m.state, m.err = editing, err
		} else {
			m.fail(editing, err)
		}
		m.mu.Unlock()
		return err
	}
	if upload != nil && m.assets == nil {
		m.fail(editing, ErrNoAssetStore)
		m.mu.Unlock()
		return ErrNoAssetStore
	}

	isUpdate := editing == EditingExisting
	var previous string
	if isUpdate {
		entity = entity.WithID(m.editingID)
		if old, ok := m.find(m.editingID); ok {
			previous = old.AssetURL()
		}
	}
	m.state, m.resume, m.err, m.notice = Submitting, editing, nil, ""
	reconcile := m.reconcile
	m.mu.Unlock()

	var uploaded string
	if upload != nil {
		url, err := m.assets.Upload(ctx, upload.Name, upload.Data)
		if err != nil {
			return m.failLocked(editing, &UploadError{Name: upload.Name, Err: err})
		}
		uploaded = url
		entity = entity.WithAssetURL(url)
	}

	saved, err := m.repo.Save(ctx, entity, isUpdate)
	if err != nil {
		if uploaded != "" {
			// The document never referenced it.
			if rerr := m.assets.Remove(ctx, uploaded); rerr != nil {
				m.logger.Printf("%v", &AssetCleanupError{URL: uploaded, Err: rerr})
			}
		}
		op := "create " + m.kind.Singular
		if isUpdate {
			op = "update " + m.kind.Singular
		}
		return m.failLocked(editing, &SubmitError{Op: op, Err: err})
	}

	var notice string
	if uploaded != "" && previous != "" && previous != uploaded {
		if rerr := m.assets.Remove(ctx, previous); rerr != nil {
			cerr := &AssetCleanupError{URL: previous, Err: rerr}
			m.logger.Printf("%v", cerr)
			notice = "Saved, but the previous image could not be removed."
		}
	}

	items, ferr := reconcile.AfterSave(ctx, saved)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.state, m.resume = Browsing, Browsing
	m.editingID, m.form, m.err, m.notice = "", nil, nil, notice
	m.setList(items, ferr)
	return nil
}

// Delete removes the item with id and then its asset. Without confirmed
// nothing happens. A failed asset removal is logged and shown as a notice;
// the document stays deleted.
func (m *Manager[T]) Delete(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}

	m.mu.Lock()
	switch {
	case m.state == Submitting:
		m.mu.Unlock()
		return ErrBusy
	case m.form != nil:
		m.mu.Unlock()
		return ErrFormOpen
	}
	item, ok := m.find(id)
	if !ok {
		m.mu.Unlock()
		return ErrUnknownItem
	}
	m.state, m.resume, m.err, m.notice = Submitting, Browsing, nil, ""
	reconcile := m.reconcile
	m.mu.Unlock()

	if err := m.repo.Remove(ctx, item); err != nil {
		return m.failLocked(Browsing, &SubmitError{Op: "delete " + m.kind.Singular, Err: err})
	}

	var notice string
	if url := item.AssetURL(); url != "" {
		var err error
		if m.assets == nil {
			err = ErrNoAssetStore
		} else {
			err = m.assets.Remove(ctx, url)
		}
		if err != nil {
			cerr := &AssetCleanupError{URL: url, Err: err}
			m.logger.Printf("%v", cerr)
			notice = "Deleted, but its image could not be removed."
		}
	}

	items, ferr := reconcile.AfterDelete(ctx, item)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.state, m.err, m.notice = Browsing, nil, notice
	m.setList(items, ferr)
	return nil
}

// Watch applies live snapshots of the collection to the list. The open
// form is never touched.
func (m *Manager[T]) Watch() func() {
	return m.repo.Subscribe(m.applyRemote)
}

func (m *Manager[T]) applyRemote(items []T, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setList(items, err)
}

// setList must be called with mu held.
func (m *Manager[T]) setList(items []T, err error) {
	if err != nil {
		m.logger.Printf("%s: %v", m.kind.Name, err)
		m.fetchErr = err
		return
	}
	m.items, m.fetchErr = items, nil
}

func (m *Manager[T]) open(state State, id string, form Form) {
	m.state, m.resume = state, state
	m.editingID, m.form = id, form
	m.err, m.notice = nil, ""
}

func (m *Manager[T]) find(id string) (T, bool) {
	for _, item := range m.items {
		if item.EntityID() == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// fail must be called with mu held.
func (m *Manager[T]) fail(resume State, err error) {
	m.state, m.resume, m.err = Failed, resume, err
	m.logger.Printf("%s: %v", m.kind.Name, err)
}

func (m *Manager[T]) failLocked(resume State, err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail(resume, err)
	return err
}

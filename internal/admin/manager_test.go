package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Zachkp/folio/internal/assets"
	"github.com/Zachkp/folio/internal/model"
	"github.com/Zachkp/folio/internal/repository"
	"github.com/Zachkp/folio/internal/store"
)

var quiet = log.New(io.Discard, "", 0)

// countingStore records every write that reaches the store.
type countingStore struct {
	store.Store
	mu     sync.Mutex
	writes int
	addErr error
}

func (c *countingStore) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes
}

func (c *countingStore) Add(ctx context.Context, collection string, data json.RawMessage) (string, error) {
	c.mu.Lock()
	c.writes++
	err := c.addErr
	c.mu.Unlock()
	if err != nil {
		return "", err
	}
	return c.Store.Add(ctx, collection, data)
}

func (c *countingStore) Put(ctx context.Context, collection, id string, data json.RawMessage) error {
	c.mu.Lock()
	c.writes++
	c.mu.Unlock()
	return c.Store.Put(ctx, collection, id, data)
}

func (c *countingStore) Update(ctx context.Context, collection, id string, data json.RawMessage) error {
	c.mu.Lock()
	c.writes++
	c.mu.Unlock()
	return c.Store.Update(ctx, collection, id, data)
}

func (c *countingStore) Delete(ctx context.Context, collection, id string) error {
	c.mu.Lock()
	c.writes++
	c.mu.Unlock()
	return c.Store.Delete(ctx, collection, id)
}

type fakeAssets struct {
	mu        sync.Mutex
	uploaded  []string
	removed   []string
	uploadErr error
	removeErr error

	// block, when set, holds Upload until it is closed.
	block   chan struct{}
	started chan struct{}
}

func (f *fakeAssets) Upload(ctx context.Context, name string, data []byte) (string, error) {
	if f.block != nil {
		close(f.started)
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	url := fmt.Sprintf("https://cdn.test/%d-%s", len(f.uploaded)+1, name)
	f.uploaded = append(f.uploaded, url)
	return url, nil
}

func (f *fakeAssets) Remove(ctx context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, ref)
	return f.removeErr
}

func (f *fakeAssets) removals() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.removed...)
}

type fixture struct {
	store  *countingStore
	repo   *repository.Repository[model.Project]
	assets *fakeAssets
	mgr    *Manager[model.Project]
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "admin.db"), quiet)
	if err != nil {
		t.Fatalf("store.Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	cs := &countingStore{Store: s}
	repo := repository.NewRepositories(cs).Projects
	fa := &fakeAssets{}
	return &fixture{
		store:  cs,
		repo:   repo,
		assets: fa,
		mgr:    NewManager(ProjectKind(), repo, fa, quiet),
	}
}

func (f *fixture) seed(t *testing.T, p model.Project) model.Project {
	t.Helper()
	saved, err := f.repo.Save(context.Background(), p, false)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return saved
}

func demoForm() Form {
	return Form{
		"title":        "Demo",
		"description":  "A demo project.",
		"technologies": "Go, Rust",
		"startDate":    "2024-01-01",
		"isPresent":    "on",
	}
}

func TestCreateOngoingProjectSortsFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, model.Project{Title: "Finished Later", Description: "x", Technologies: []string{"Go"}, StartDate: "2030-01-01", FinishDate: "2031-12-31"})
	f.seed(t, model.Project{Title: "Finished Earlier", Description: "x", Technologies: []string{"Go"}, StartDate: "2019-01-01", FinishDate: "2020-01-01"})
	if err := f.mgr.Load(ctx); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if err := f.mgr.Create(); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if got := f.mgr.State(); got != EditingNew {
		t.Fatalf("state = %v, want editing-new", got)
	}
	if err := f.mgr.Submit(ctx, demoForm(), nil); err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}

	items := f.mgr.Items()
	if len(items) != 3 {
		t.Fatalf("list has %d items, want 3", len(items))
	}
	if items[0].Title != "Demo" || items[0].ID == "" {
		t.Errorf("first item = %+v, want stored Demo", items[0])
	}
	if !reflect.DeepEqual(items[0].Technologies, []string{"Go", "Rust"}) {
		t.Errorf("technologies = %q", items[0].Technologies)
	}
	if items[1].Title != "Finished Later" {
		t.Errorf("second item = %q", items[1].Title)
	}

	v := f.mgr.View()
	if v.State != Browsing || v.FormOpen() || v.Err != nil {
		t.Errorf("after submit view = state %v form %v err %v", v.State, v.Form, v.Err)
	}
}

func TestMissingRequiredFieldMakesNoWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_ = f.mgr.Create()

	form := demoForm()
	form["title"] = ""
	err := f.mgr.Submit(ctx, form, &Upload{Name: "a.png", Data: []byte("x")})

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Submit() error = %v, want ValidationError", err)
	}
	if n := f.store.count(); n != 0 {
		t.Errorf("%d writes reached the store", n)
	}
	if len(f.assets.uploaded) != 0 {
		t.Errorf("upload attempted: %v", f.assets.uploaded)
	}

	v := f.mgr.View()
	if v.State != EditingNew {
		t.Errorf("state = %v, want editing-new", v.State)
	}
	if v.FieldErrors["title"] == "" {
		t.Errorf("FieldErrors = %v", v.FieldErrors)
	}
	if v.Form["description"] != "A demo project." {
		t.Errorf("form not retained: %v", v.Form)
	}
}

func TestSubmitRequiresOpenForm(t *testing.T) {
	f := newFixture(t)
	if err := f.mgr.Submit(context.Background(), demoForm(), nil); !errors.Is(err, ErrNotEditing) {
		t.Errorf("Submit() while browsing = %v, want ErrNotEditing", err)
	}
}

func TestUploadFailureFailsClosed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.assets.uploadErr = errors.New("cdn down")
	_ = f.mgr.Create()

	err := f.mgr.Submit(ctx, demoForm(), &Upload{Name: "shot.png", Data: []byte("png")})
	var uerr *UploadError
	if !errors.As(err, &uerr) {
		t.Fatalf("Submit() error = %v, want UploadError", err)
	}
	if n := f.store.count(); n != 0 {
		t.Errorf("%d writes after failed upload", n)
	}
	v := f.mgr.View()
	if v.State != Failed || v.Form["title"] != "Demo" {
		t.Fatalf("view = state %v form %v", v.State, v.Form)
	}

	// Retry from the failed state with the retained form.
	f.assets.uploadErr = nil
	if err := f.mgr.Submit(ctx, v.Form, &Upload{Name: "shot.png", Data: []byte("png")}); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	items := f.mgr.Items()
	if len(items) != 1 || items[0].ImageURL != "https://cdn.test/1-shot.png" {
		t.Errorf("items after retry = %+v", items)
	}
}

func TestSaveFailureRemovesFreshUpload(t *testing.T) {
	f := newFixture(t)
	f.store.addErr = errors.New("disk full")
	_ = f.mgr.Create()

	err := f.mgr.Submit(context.Background(), demoForm(), &Upload{Name: "shot.png", Data: []byte("png")})
	var serr *SubmitError
	if !errors.As(err, &serr) {
		t.Fatalf("Submit() error = %v, want SubmitError", err)
	}
	if got := f.assets.removals(); !reflect.DeepEqual(got, []string{"https://cdn.test/1-shot.png"}) {
		t.Errorf("removals = %v", got)
	}
	if v := f.mgr.View(); v.State != Failed || v.Form["title"] != "Demo" {
		t.Errorf("view = state %v form %v", v.State, v.Form)
	}
}

func TestUpdateOfRemotelyDeletedItemFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.seed(t, model.Project{Title: "P", Description: "x", Technologies: []string{"Go"}, StartDate: "2020-01-01", IsPresent: true})
	_ = f.mgr.Load(ctx)
	if err := f.mgr.Edit(p.ID); err != nil {
		t.Fatalf("Edit() failed: %v", err)
	}
	if err := f.repo.Remove(ctx, p); err != nil {
		t.Fatalf("Remove() failed: %v", err)
	}

	form := f.mgr.View().Form
	form["title"] = "Still here?"
	err := f.mgr.Submit(ctx, form, nil)
	var serr *SubmitError
	if !errors.As(err, &serr) || !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Submit() error = %v, want SubmitError wrapping ErrNotFound", err)
	}
	if v := f.mgr.View(); v.State != Failed || v.Form["title"] != "Still here?" {
		t.Errorf("view = state %v form %v", v.State, v.Form)
	}
	items, err := f.repo.List(ctx)
	if err != nil || len(items) != 0 {
		t.Errorf("List() = %+v, %v; deleted item was recreated", items, err)
	}
}

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)

func TestBucketImageSurvivesReEdit(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "admin.db"), quiet)
	if err != nil {
		t.Fatalf("store.Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	repo := repository.NewRepositories(s).Posts
	now := func() time.Time { return time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC) }
	mgr := NewManager(PostKind("Zach", now), repo, assets.NewBucket(t.TempDir(), "/uploads", "posts"), quiet)
	ctx := context.Background()

	_ = mgr.Create()
	if err := mgr.Submit(ctx, Form{"title": "Hello", "content": "# Hi"}, &Upload{Name: "cover.png", Data: pngBytes}); err != nil {
		t.Fatalf("Submit() with upload failed: %v", err)
	}
	items := mgr.Items()
	if len(items) != 1 || !strings.HasPrefix(items[0].ImageURL, "/uploads/posts/") {
		t.Fatalf("items = %+v, want a bucket image", items)
	}

	if err := mgr.Edit(items[0].ID); err != nil {
		t.Fatalf("Edit() failed: %v", err)
	}
	form := mgr.View().Form
	form["title"] = "Hello again"
	if err := mgr.Submit(ctx, form, nil); err != nil {
		t.Fatalf("re-Submit() failed: %v", err)
	}
	got, err := repo.GetOne(ctx, items[0].ID)
	if err != nil {
		t.Fatalf("GetOne() failed: %v", err)
	}
	if got.Title != "Hello again" || got.ImageURL != items[0].ImageURL {
		t.Errorf("stored = %+v", got)
	}
}

func TestEditPopulatesFromDisplayedCopy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.seed(t, model.Project{Title: "Old", Description: "x", Technologies: []string{"React", "Node.js"}, StartDate: "2020-01-01", FinishDate: "2021-01-01"})
	_ = f.mgr.Load(ctx)

	if err := f.mgr.Edit("missing"); !errors.Is(err, ErrUnknownItem) {
		t.Errorf("Edit(missing) = %v", err)
	}
	if err := f.mgr.Edit(p.ID); err != nil {
		t.Fatalf("Edit() failed: %v", err)
	}
	v := f.mgr.View()
	if v.State != EditingExisting || v.EditingID != p.ID {
		t.Fatalf("view = state %v id %q", v.State, v.EditingID)
	}
	if v.Form["technologies"] != "React, Node.js" {
		t.Errorf("technologies field = %q", v.Form["technologies"])
	}

	form := v.Form
	form["title"] = "New"
	form["technologies"] = "React,, Go"
	if err := f.mgr.Submit(ctx, form, nil); err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	got, err := f.repo.GetOne(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetOne() failed: %v", err)
	}
	if got.Title != "New" || !reflect.DeepEqual(got.Technologies, []string{"React", "Go"}) {
		t.Errorf("stored = %+v", got)
	}
	if n := len(f.mgr.Items()); n != 1 {
		t.Errorf("update created a second item: %d", n)
	}
}

func TestReplacingImageRemovesPreviousAsset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.seed(t, model.Project{Title: "P", Description: "x", Technologies: []string{"Go"}, StartDate: "2020-01-01", IsPresent: true, ImageURL: "https://cdn.test/old.png"})
	_ = f.mgr.Load(ctx)
	_ = f.mgr.Edit(p.ID)

	if err := f.mgr.Submit(ctx, f.mgr.View().Form, &Upload{Name: "new.png", Data: []byte("png")}); err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	if got := f.assets.removals(); !reflect.DeepEqual(got, []string{"https://cdn.test/old.png"}) {
		t.Errorf("removals = %v", got)
	}
	if got := f.mgr.Items()[0].ImageURL; got != "https://cdn.test/1-new.png" {
		t.Errorf("image = %q", got)
	}
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.seed(t, model.Project{Title: "P", Description: "x", Technologies: []string{"Go"}, StartDate: "2020-01-01", IsPresent: true})
	_ = f.mgr.Load(ctx)
	writes := f.store.count()

	if err := f.mgr.Delete(ctx, p.ID, false); !errors.Is(err, ErrNotConfirmed) {
		t.Errorf("Delete(unconfirmed) = %v, want ErrNotConfirmed", err)
	}
	if f.store.count() != writes {
		t.Error("unconfirmed delete reached the store")
	}
	if _, err := f.repo.GetOne(ctx, p.ID); err != nil {
		t.Errorf("document gone after unconfirmed delete: %v", err)
	}
}

func TestDeleteRemovesAssetExactlyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.seed(t, model.Project{Title: "P", Description: "x", Technologies: []string{"Go"}, StartDate: "2020-01-01", IsPresent: true, ImageURL: "https://cdn.test/p.png"})
	plain := f.seed(t, model.Project{Title: "Plain", Description: "x", Technologies: []string{"Go"}, StartDate: "2020-01-01", IsPresent: true})
	_ = f.mgr.Load(ctx)

	if err := f.mgr.Delete(ctx, p.ID, true); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if got := f.assets.removals(); !reflect.DeepEqual(got, []string{"https://cdn.test/p.png"}) {
		t.Errorf("removals = %v", got)
	}
	if items := f.mgr.Items(); len(items) != 1 || items[0].ID != plain.ID {
		t.Errorf("list after delete = %+v", items)
	}

	if err := f.mgr.Delete(ctx, plain.ID, true); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if got := f.assets.removals(); len(got) != 1 {
		t.Errorf("item without asset triggered removal: %v", got)
	}
}

func TestAssetCleanupFailureDoesNotBlockDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.assets.removeErr = errors.New("cdn down")
	p := f.seed(t, model.Project{Title: "P", Description: "x", Technologies: []string{"Go"}, StartDate: "2020-01-01", IsPresent: true, ImageURL: "https://cdn.test/p.png"})
	_ = f.mgr.Load(ctx)

	if err := f.mgr.Delete(ctx, p.ID, true); err != nil {
		t.Fatalf("Delete() = %v, want nil", err)
	}
	if _, err := f.repo.GetOne(ctx, p.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("GetOne() after delete = %v, want ErrNotFound", err)
	}
	v := f.mgr.View()
	if v.State != Browsing || v.Notice == "" || len(v.Rows) != 0 {
		t.Errorf("view = state %v notice %q rows %d", v.State, v.Notice, len(v.Rows))
	}
}

func TestDeleteBlockedWhileFormOpen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.seed(t, model.Project{Title: "P", Description: "x", Technologies: []string{"Go"}, StartDate: "2020-01-01", IsPresent: true})
	_ = f.mgr.Load(ctx)
	_ = f.mgr.Create()

	if err := f.mgr.Delete(ctx, p.ID, true); !errors.Is(err, ErrFormOpen) {
		t.Errorf("Delete() with open form = %v, want ErrFormOpen", err)
	}
	_ = f.mgr.Cancel()
	if err := f.mgr.Delete(ctx, "nope", true); !errors.Is(err, ErrUnknownItem) {
		t.Errorf("Delete(unknown) = %v, want ErrUnknownItem", err)
	}
}

func TestSecondSubmitWhileSubmittingIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.assets.block = make(chan struct{})
	f.assets.started = make(chan struct{})
	_ = f.mgr.Create()

	done := make(chan error, 1)
	go func() {
		done <- f.mgr.Submit(ctx, demoForm(), &Upload{Name: "a.png", Data: []byte("png")})
	}()
	<-f.assets.started

	if got := f.mgr.State(); got != Submitting {
		t.Errorf("state = %v, want submitting", got)
	}
	if err := f.mgr.Submit(ctx, demoForm(), nil); !errors.Is(err, ErrBusy) {
		t.Errorf("second Submit() = %v, want ErrBusy", err)
	}
	if err := f.mgr.Cancel(); !errors.Is(err, ErrBusy) {
		t.Errorf("Cancel() while submitting = %v, want ErrBusy", err)
	}
	if err := f.mgr.Create(); !errors.Is(err, ErrBusy) {
		t.Errorf("Create() while submitting = %v, want ErrBusy", err)
	}

	close(f.assets.block)
	if err := <-done; err != nil {
		t.Fatalf("first Submit() failed: %v", err)
	}
	if n := len(f.mgr.Items()); n != 1 {
		t.Errorf("%d items stored, want 1", n)
	}
}

func TestRemoteUpdateKeepsOpenForm(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.seed(t, model.Project{Title: "Mine", Description: "x", Technologies: []string{"Go"}, StartDate: "2020-01-01", IsPresent: true})
	_ = f.mgr.Load(ctx)
	unsubscribe := f.mgr.Watch()
	defer unsubscribe()

	_ = f.mgr.Edit(p.ID)
	before := f.mgr.View().Form

	// Another writer changes the same item and adds one.
	changed := p
	changed.Title = "Theirs"
	if _, err := f.repo.Save(ctx, changed, true); err != nil {
		t.Fatal(err)
	}
	f.seed(t, model.Project{Title: "Extra", Description: "x", Technologies: []string{"Go"}, StartDate: "2020-01-01", IsPresent: true})

	v := f.mgr.View()
	if !reflect.DeepEqual(v.Form, before) {
		t.Errorf("form changed by remote update: %v, want %v", v.Form, before)
	}
	if v.State != EditingExisting {
		t.Errorf("state = %v", v.State)
	}
	if len(v.Rows) != 2 {
		t.Errorf("background list has %d rows, want 2", len(v.Rows))
	}
}

func TestFetchFailureKeepsListAndReportsError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, model.Project{Title: "P", Description: "x", Technologies: []string{"Go"}, StartDate: "2020-01-01", IsPresent: true})
	_ = f.mgr.Load(ctx)

	f.mgr.applyRemote(nil, &repository.FetchError{Collection: "projects", Err: errors.New("offline")})
	v := f.mgr.View()
	if !repository.IsFetchError(v.FetchErr) {
		t.Errorf("FetchErr = %v", v.FetchErr)
	}
	if len(v.Rows) != 1 {
		t.Errorf("rows = %d, want the previous list", len(v.Rows))
	}

	if err := f.mgr.Load(ctx); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if f.mgr.View().FetchErr != nil {
		t.Error("FetchErr not cleared by a successful load")
	}
}

type recordingReconciliation struct {
	saved []model.Project
}

func (r *recordingReconciliation) AfterSave(_ context.Context, saved model.Project) ([]model.Project, error) {
	r.saved = append(r.saved, saved)
	return []model.Project{saved}, nil
}

func (r *recordingReconciliation) AfterDelete(context.Context, model.Project) ([]model.Project, error) {
	return nil, nil
}

func TestReconciliationIsReplaceable(t *testing.T) {
	f := newFixture(t)
	rec := &recordingReconciliation{}
	f.mgr.SetReconciliation(rec)
	_ = f.mgr.Create()

	if err := f.mgr.Submit(context.Background(), demoForm(), nil); err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	if len(rec.saved) != 1 || rec.saved[0].ID == "" {
		t.Errorf("AfterSave saw %+v", rec.saved)
	}
}

func TestReconciliationSwapDuringSubmit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.assets.block = make(chan struct{})
	f.assets.started = make(chan struct{})
	_ = f.mgr.Create()

	done := make(chan error, 1)
	go func() {
		done <- f.mgr.Submit(ctx, demoForm(), &Upload{Name: "a.png", Data: []byte("png")})
	}()
	<-f.assets.started

	rec := &recordingReconciliation{}
	f.mgr.SetReconciliation(rec)
	close(f.assets.block)
	if err := <-done; err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	if len(rec.saved) != 0 {
		t.Errorf("in-flight submit used the new strategy: %+v", rec.saved)
	}

	f.assets.block = nil
	_ = f.mgr.Create()
	if err := f.mgr.Submit(ctx, demoForm(), nil); err != nil {
		t.Fatalf("second Submit() failed: %v", err)
	}
	if len(rec.saved) != 1 {
		t.Errorf("AfterSave calls = %d, want 1", len(rec.saved))
	}
}

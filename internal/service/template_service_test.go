package service

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/dripmail/dripmail/internal/config"
	"github.com/dripmail/dripmail/internal/content"
	"github.com/dripmail/dripmail/internal/logger"
	"github.com/dripmail/dripmail/internal/model"
	"github.com/dripmail/dripmail/internal/repository"
	"github.com/stretchr/testify/require"
)

type fakeTemplateStore struct {
	templates map[string]*model.EmailTemplate
}

func newFakeTemplateStore() *fakeTemplateStore {
	return &fakeTemplateStore{templates: make(map[string]*model.EmailTemplate)}
}

func (f *fakeTemplateStore) Create(_ context.Context, tmpl *model.EmailTemplate) error {
	cp := *tmpl
	f.templates[tmpl.ID] = &cp
	return nil
}

func (f *fakeTemplateStore) GetByID(_ context.Context, id string) (*model.EmailTemplate, error) {
	tmpl, ok := f.templates[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *tmpl
	return &cp, nil
}

func (f *fakeTemplateStore) List(_ context.Context) ([]model.EmailTemplate, error) {
	out := make([]model.EmailTemplate, 0, len(f.templates))
	for _, tmpl := range f.templates {
		out = append(out, *tmpl)
	}
	return out, nil
}

func (f *fakeTemplateStore) Update(_ context.Context, tmpl *model.EmailTemplate) error {
	if _, ok := f.templates[tmpl.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *tmpl
	f.templates[tmpl.ID] = &cp
	return nil
}

func (f *fakeTemplateStore) Delete(_ context.Context, id string) error {
	if _, ok := f.templates[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.templates, id)
	return nil
}

func newTemplateFixture(t *testing.T) (*TemplateService, *content.Store, *content.Pipeline) {
	t.Helper()
	store := content.NewStore(t.TempDir())
	pipeline := content.NewPipeline(store, config.MediaConfig{
		URLPrefix:  "/media",
		SiteURL:    "https://mail.example.com",
		LandingURL: "https://shop.example.com/",
	}, logger.New("error", "text"))
	svc := NewTemplateService(newFakeTemplateStore(), pipeline, logger.New("error", "text"))
	return svc, store, pipeline
}

func TestTemplateCreateExtractsImages(t *testing.T) {
	svc, _, _ := newTemplateFixture(t)

	in := `<h1>Offer</h1><img src="data:image/png;base64,aGVsbG8=">`
	tmpl, err := svc.Create(context.Background(), "Offer", "Offer", in)
	require.NoError(t, err)

	require.NotContains(t, tmpl.Content, "base64")
	require.Contains(t, tmpl.Content, "/media/email_images/")

	got, err := svc.GetByID(context.Background(), tmpl.ID)
	require.NoError(t, err)
	require.Equal(t, tmpl.Content, got.Content)
}

func TestTemplateCreateMalformedImage(t *testing.T) {
	svc, _, _ := newTemplateFixture(t)

	_, err := svc.Create(context.Background(), "Bad", "Bad", `<img src="data:image/png;base64,???">`)
	require.ErrorIs(t, err, content.ErrDecode)
}

func TestTemplateUpdateReconcilesImages(t *testing.T) {
	svc, store, p := newTemplateFixture(t)

	in := `<img src="data:image/png;base64,aGVsbG8="><img src="data:image/jpeg;base64,d29ybGQ=">`
	tmpl, err := svc.Create(context.Background(), "Offer", "Offer", in)
	require.NoError(t, err)

	names := artifactsOnDisk(t, store)
	require.Len(t, names, 2)

	// Keep the first image, drop the second, add nothing
	kept := names[0]
	newContent := fmt.Sprintf(`<p>Updated</p><img src="%s">`, p.PublicURL(kept))
	updated, err := svc.Update(context.Background(), tmpl.ID, "Offer v2", "Offer v2", newContent)
	require.NoError(t, err)
	require.Equal(t, newContent, updated.Content)
	require.Equal(t, "Offer v2", updated.Subject)

	remaining := artifactsOnDisk(t, store)
	require.Equal(t, []string{kept}, remaining)
}

func TestTemplateDeleteRemovesImages(t *testing.T) {
	svc, store, _ := newTemplateFixture(t)

	in := `<img src="data:image/png;base64,aGVsbG8=">`
	tmpl, err := svc.Create(context.Background(), "Offer", "Offer", in)
	require.NoError(t, err)
	require.Len(t, artifactsOnDisk(t, store), 1)

	require.NoError(t, svc.Delete(context.Background(), tmpl.ID))
	require.Empty(t, artifactsOnDisk(t, store))

	_, err = svc.GetByID(context.Background(), tmpl.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)

	err = svc.Delete(context.Background(), tmpl.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func artifactsOnDisk(t *testing.T, store *content.Store) []string {
	t.Helper()
	entries, err := os.ReadDir(store.Path(""))
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/cmlabs-hris/school-attendance-go/internal/domain/notification"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTemplateRepo struct {
	overrides map[string]notification.Template
	err       error
}

func (f *fakeTemplateRepo) GetTemplate(ctx context.Context, tenantID string, kind notification.Kind) (notification.Template, error) {
	if f.err != nil {
		return notification.Template{}, f.err
	}
	t, ok := f.overrides[tenantID+"|"+string(kind)]
	if !ok {
		return notification.Template{}, notification.ErrTemplateNotFound
	}
	return t, nil
}

func sampleData(kind notification.Kind) MessageData {
	return MessageData{
		StudentName: "Budi Santoso",
		SectionName: "7A",
		Label:       kind.Label(),
		Time:        "07:12",
		Date:        "2025-03-03",
	}
}

func TestRenderer_DefaultCatalog(t *testing.T) {
	r, err := NewRenderer(&fakeTemplateRepo{})
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	for _, kind := range notification.AllKinds() {
		t.Run(string(kind), func(t *testing.T) {
			msg, err := r.Render(context.Background(), "tenant-a", kind, sampleData(kind))
			require.NoError(t, err)

			g.Assert(t, string(kind), []byte(msg.Subject+"\n\n"+msg.Body+"\n"))
		})
	}
}

func TestRenderer_TenantOverride(t *testing.T) {
	repo := &fakeTemplateRepo{overrides: map[string]notification.Template{
		"tenant-a|late": {
			TenantID: "tenant-a",
			Kind:     notification.KindLate,
			Subject:  "[{{upper .SectionName}}] {{.StudentName}}",
			Body:     "Terlambat pukul {{.Time}}",
		},
	}}
	r, err := NewRenderer(repo)
	require.NoError(t, err)

	msg, err := r.Render(context.Background(), "tenant-a", notification.KindLate, sampleData(notification.KindLate))
	require.NoError(t, err)
	assert.Equal(t, "[7A] Budi Santoso", msg.Subject)
	assert.Equal(t, "Terlambat pukul 07:12", msg.Body)

	// Another tenant keeps the default.
	msg, err = r.Render(context.Background(), "tenant-b", notification.KindLate, sampleData(notification.KindLate))
	require.NoError(t, err)
	assert.Equal(t, "Budi Santoso arrived late", msg.Subject)
}

func TestRenderer_Errors(t *testing.T) {
	t.Run("repository failure is not masked by the default", func(t *testing.T) {
		r, err := NewRenderer(&fakeTemplateRepo{err: errors.New("connection reset")})
		require.NoError(t, err)

		_, err = r.Render(context.Background(), "tenant-a", notification.KindOnTime, sampleData(notification.KindOnTime))
		assert.ErrorContains(t, err, "connection reset")
	})

	t.Run("unknown field in override", func(t *testing.T) {
		repo := &fakeTemplateRepo{overrides: map[string]notification.Template{
			"tenant-a|absent": {Subject: "{{.Nickname}}", Body: "x"},
		}}
		r, err := NewRenderer(repo)
		require.NoError(t, err)

		_, err = r.Render(context.Background(), "tenant-a", notification.KindAbsent, sampleData(notification.KindAbsent))
		assert.Error(t, err)
	})

	t.Run("unknown kind", func(t *testing.T) {
		r, err := NewRenderer(nil)
		require.NoError(t, err)

		_, err = r.Render(context.Background(), "tenant-a", notification.Kind("excused"), MessageData{})
		assert.ErrorIs(t, err, notification.ErrTemplateNotFound)
	})
}

func TestParseCatalog(t *testing.T) {
	catalog, err := parseCatalog([]byte("on_time:\n  subject: a\n  body: b\n"))
	require.NoError(t, err)
	assert.Equal(t, templateSpec{Subject: "a", Body: "b"}, catalog[notification.KindOnTime])

	_, err = parseCatalog([]byte("on_time: [unterminated"))
	assert.Error(t, err)
}

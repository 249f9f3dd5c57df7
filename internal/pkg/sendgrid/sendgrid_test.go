package sendgrid

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cmlabs-hris/school-attendance-go/internal/config"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/notification"
	"github.com/sendgrid/rest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSender_Send(t *testing.T) {
	var captured rest.Request
	s := NewSender(config.SendGridConfig{APIKey: "SG.test", From: "noreply@school.example", FromName: "SMP Harapan"})
	s.api = func(_ context.Context, req rest.Request) (*rest.Response, error) {
		captured = req
		return &rest.Response{StatusCode: http.StatusAccepted}, nil
	}

	err := s.Send(context.Background(),
		notification.Channel{Relation: "father", Name: "Agus", Address: "agus@example.com"},
		notification.Message{Subject: "Budi Santoso has left school", Body: "Dear parent"},
	)
	require.NoError(t, err)

	assert.Equal(t, rest.Method(http.MethodPost), captured.Method)
	assert.Equal(t, "https://api.sendgrid.com/v3/mail/send", captured.BaseURL)
	assert.Equal(t, "Bearer SG.test", captured.Headers["Authorization"])

	var body struct {
		From struct {
			Email string `json:"email"`
		} `json:"from"`
		Personalizations []struct {
			To []struct {
				Email string `json:"email"`
			} `json:"to"`
			Subject string `json:"subject"`
		} `json:"personalizations"`
		Content []struct {
			Type  string `json:"type"`
			Value string `json:"value"`
		} `json:"content"`
	}
	require.NoError(t, json.Unmarshal(captured.Body, &body))
	assert.Equal(t, "noreply@school.example", body.From.Email)
	require.Len(t, body.Personalizations, 1)
	assert.Equal(t, "agus@example.com", body.Personalizations[0].To[0].Email)
	assert.Equal(t, "Budi Santoso has left school", body.Personalizations[0].Subject)
	assert.Equal(t, "Dear parent", body.Content[0].Value)
}

func TestSender_Rejected(t *testing.T) {
	s := NewSender(config.SendGridConfig{APIKey: "SG.bad"})
	s.api = func(_ context.Context, req rest.Request) (*rest.Response, error) {
		return &rest.Response{StatusCode: http.StatusUnauthorized, Body: `{"errors":[{"message":"invalid key"}]}`}, nil
	}

	err := s.Send(context.Background(), notification.Channel{Address: "a@example.com"}, notification.Message{})
	assert.ErrorContains(t, err, "status 401")
}

func TestSender_CanceledContext(t *testing.T) {
	s := NewSender(config.SendGridConfig{APIKey: "SG.test"})
	s.api = func(_ context.Context, req rest.Request) (*rest.Response, error) {
		t.Fatal("request sent with a canceled context")
		return nil, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Send(ctx, notification.Channel{Address: "a@example.com"}, notification.Message{}), context.Canceled)
}

func TestSender_PropagatesDeadline(t *testing.T) {
	s := NewSender(config.SendGridConfig{APIKey: "SG.test"})
	s.api = func(ctx context.Context, req rest.Request) (*rest.Response, error) {
		_, ok := ctx.Deadline()
		assert.True(t, ok, "request context lost the send deadline")
		<-ctx.Done()
		return nil, ctx.Err()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := s.Send(ctx, notification.Channel{Address: "a@example.com"}, notification.Message{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSender_HungServerHonoursTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	prev := host
	host = srv.URL
	t.Cleanup(func() { host = prev })

	s := NewSender(config.SendGridConfig{APIKey: "SG.test", From: "noreply@school.example"})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	started := time.Now()
	err := s.Send(ctx, notification.Channel{Address: "a@example.com"}, notification.Message{Subject: "s", Body: "b"})
	require.Error(t, err)
	assert.Less(t, time.Since(started), 5*time.Second)
}

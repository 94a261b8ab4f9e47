package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/MahdiBaghbani/pizzabot-go/internal/components/activity"
	"github.com/MahdiBaghbani/pizzabot-go/internal/components/api"
	"github.com/MahdiBaghbani/pizzabot-go/internal/components/meetup"
	"github.com/MahdiBaghbani/pizzabot-go/internal/platform/config"
)

type emptyPlans struct{}

func (emptyPlans) ActivePlans() []meetup.Plan { return nil }

func (emptyPlans) ArchivedPlans(context.Context) ([]meetup.Plan, error) { return nil, nil }

func newHandlers() *api.Handlers {
	return api.NewHandlers(activity.NewFeed(nil, time.Now), emptyPlans{}, nil)
}

func TestNew_RequiresHandlers(t *testing.T) {
	if _, err := New(config.HTTPConfig{}, nil, nil); !errors.Is(err, ErrMissingHandlers) {
		t.Errorf("expected ErrMissingHandlers, got %v", err)
	}
}

func TestIsAuthRequired(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/health", false},
		{"/api", true},
		{"/api/activity", true},
		{"/api/plans.ics", true},
		{"/healthz", true},
		{"/unknown", true},
	}
	for _, tt := range tests {
		if got := IsAuthRequired(tt.path); got != tt.want {
			t.Errorf("IsAuthRequired(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestRoutes(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("GenerateFromPassword: %v", err)
	}
	withAuth := config.HTTPConfig{BasicAuth: config.BasicAuthConfig{Username: "op", PasswordHash: string(hash)}}

	tests := []struct {
		name       string
		cfg        config.HTTPConfig
		path       string
		creds      bool
		wantStatus int
	}{
		{"health is public", withAuth, "/health", false, http.StatusOK},
		{"api needs credentials", withAuth, "/api/plans", false, http.StatusUnauthorized},
		{"api with credentials", withAuth, "/api/plans", true, http.StatusOK},
		{"version with credentials", withAuth, "/api", true, http.StatusOK},
		{"calendar with credentials", withAuth, "/api/plans.ics", true, http.StatusOK},
		{"auth disabled", config.HTTPConfig{}, "/api/activity", false, http.StatusOK},
		{"unknown route", config.HTTPConfig{}, "/api/nope", false, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.cfg, nil, newHandlers())
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.creds {
				req.SetBasicAuth("op", "secret")
			}
			w := httptest.NewRecorder()
			s.Handler().ServeHTTP(w, req)
			if w.Code != tt.wantStatus {
				t.Errorf("GET %s = %d, want %d", tt.path, w.Code, tt.wantStatus)
			}
		})
	}
}

func TestShutdownBeforeStart(t *testing.T) {
	s, err := New(config.HTTPConfig{ListenAddr: "127.0.0.1:0"}, nil, newHandlers())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"taskflow/internal/middleware"
	"taskflow/internal/models"
	"taskflow/internal/services"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type stubUserService struct {
	user *models.User
	err  error

	lastName     string
	lastEmail    string
	lastPassword string
}

func (s *stubUserService) Register(_ context.Context, name, email, password string) (*models.User, error) {
	s.lastName, s.lastEmail, s.lastPassword = name, email, password
	return s.user, s.err
}

func (s *stubUserService) Authenticate(_ context.Context, email, password string) (*models.User, error) {
	s.lastEmail, s.lastPassword = email, password
	return s.user, s.err
}

func (s *stubUserService) GetByID(context.Context, primitive.ObjectID) (*models.User, error) {
	return s.user, s.err
}

func (s *stubUserService) UpdateProfile(_ context.Context, _ primitive.ObjectID, name string) (*models.User, error) {
	s.lastName = name
	return s.user, s.err
}

func (s *stubUserService) ListUsers(context.Context) ([]models.UserSummary, error) {
	return nil, s.err
}

func newAuthRouter(users services.UserService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewAuthHandler(users, services.NewAuthService("test-secret"))
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserID, primitive.NewObjectID().Hex())
	})
	r.GET("/auth/profile", h.GetProfile)
	r.PUT("/auth/profile", h.UpdateProfile)
	return r
}

func sampleUser() *models.User {
	return &models.User{ID: primitive.NewObjectID(), Name: "Alice", Email: "alice@example.com"}
}

func TestAuthRegister(t *testing.T) {
	t.Run("success returns user and token", func(t *testing.T) {
		svc := &stubUserService{user: sampleUser()}
		router := newAuthRouter(svc)

		w := doJSON(t, router, http.MethodPost, "/auth/register", gin.H{
			"name":     "Alice",
			"email":    "alice@example.com",
			"password": "hunter22",
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201 (body %s)", w.Code, w.Body.String())
		}
		var resp struct {
			Token string          `json:"token"`
			User  json.RawMessage `json:"user"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if resp.Token == "" {
			t.Error("token missing from response")
		}
		if strings.Contains(string(resp.User), "password") {
			t.Errorf("user payload leaks password: %s", resp.User)
		}
	})

	t.Run("duplicate email", func(t *testing.T) {
		router := newAuthRouter(&stubUserService{err: services.ErrDuplicateEmail})
		w := doJSON(t, router, http.MethodPost, "/auth/register", gin.H{
			"name":     "Alice",
			"email":    "alice@example.com",
			"password": "hunter22",
		})
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", w.Code)
		}
		if !strings.Contains(w.Body.String(), "email already exists") {
			t.Errorf("body = %s, want duplicate email message", w.Body.String())
		}
	})

	validation := []struct {
		name     string
		body     gin.H
		wantPath string
	}{
		{"missing name", gin.H{"email": "a@b.com", "password": "hunter22"}, "name"},
		{"bad email", gin.H{"name": "Alice", "email": "not-an-email", "password": "hunter22"}, "email"},
		{"short password", gin.H{"name": "Alice", "email": "a@b.com", "password": "12345"}, "password"},
	}
	for _, tt := range validation {
		t.Run(tt.name, func(t *testing.T) {
			router := newAuthRouter(&stubUserService{user: sampleUser()})
			w := doJSON(t, router, http.MethodPost, "/auth/register", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (body %s)", w.Code, w.Body.String())
			}
			if !strings.Contains(w.Body.String(), `"path":"`+tt.wantPath+`"`) {
				t.Errorf("body = %s, want a %q detail", w.Body.String(), tt.wantPath)
			}
		})
	}
}

func TestAuthLogin(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		router := newAuthRouter(&stubUserService{user: sampleUser()})
		w := doJSON(t, router, http.MethodPost, "/auth/login", gin.H{
			"email":    "alice@example.com",
			"password": "hunter22",
		})
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
		}
		if !strings.Contains(w.Body.String(), "Login successful") {
			t.Errorf("body = %s, want login message", w.Body.String())
		}
	})

	t.Run("bad credentials share one message", func(t *testing.T) {
		router := newAuthRouter(&stubUserService{err: services.ErrInvalidCredentials})
		w := doJSON(t, router, http.MethodPost, "/auth/login", gin.H{
			"email":    "alice@example.com",
			"password": "wrong",
		})
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", w.Code)
		}
		if !strings.Contains(w.Body.String(), "Invalid email or password") {
			t.Errorf("body = %s, want generic credential message", w.Body.String())
		}
	})
}

func TestAuthUpdateProfile(t *testing.T) {
	svc := &stubUserService{user: sampleUser()}
	router := newAuthRouter(svc)

	w := doJSON(t, router, http.MethodPut, "/auth/profile", gin.H{"name": "Alice B"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}
	if svc.lastName != "Alice B" {
		t.Errorf("name passed to service = %q, want Alice B", svc.lastName)
	}

	w = doJSON(t, router, http.MethodPut, "/auth/profile", gin.H{"name": strings.Repeat("x", 101)})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for oversized name", w.Code)
	}
	if !strings.Contains(w.Body.String(), "name cannot exceed 100 characters") {
		t.Errorf("body = %s, want max-length message", w.Body.String())
	}
}

package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/audio-transcribe/client/internal/core/domain"
)

// fakeAPI is an echo router standing in for the transcription service. It
// records the headers of every request it receives.
type fakeAPI struct {
	e   *echo.Echo
	srv *httptest.Server

	mu      sync.Mutex
	headers []http.Header
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{e: echo.New()}
	f.e.Pre(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			f.mu.Lock()
			f.headers = append(f.headers, c.Request().Header.Clone())
			f.mu.Unlock()
			return next(c)
		}
	})
	f.srv = httptest.NewServer(f.e)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAPI) lastHeader() http.Header {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.headers) == 0 {
		return nil
	}
	return f.headers[len(f.headers)-1]
}

func (f *fakeAPI) client(t *testing.T) *Client {
	t.Helper()
	c, err := New(Config{BaseURL: f.srv.URL + "/", Timeout: 5 * time.Second}, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNew_InvalidBaseURL(t *testing.T) {
	if _, err := New(Config{BaseURL: "not a url"}, nil, zerolog.Nop()); err == nil {
		t.Fatalf("expected error for invalid base URL")
	}
}

func TestClient_Login_FormEncodedAndNoAuthHeader(t *testing.T) {
	api := newFakeAPI(t)
	api.e.POST("/auth/login", func(c echo.Context) error {
		if ct := c.Request().Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
			return c.JSON(http.StatusBadRequest, map[string]string{"detail": "bad content type " + ct})
		}
		if c.FormValue("username") != "alice" || c.FormValue("password") != "pw" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"detail": "Incorrect username or password"})
		}
		return c.JSON(http.StatusOK, map[string]string{"access_token": "abc123", "token_type": "bearer"})
	})

	client := api.client(t)
	token, err := client.Login(context.Background(), "alice", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if token != "abc123" {
		t.Fatalf("token = %q, want abc123", token)
	}

	h := api.lastHeader()
	if _, ok := h["Authorization"]; ok {
		t.Fatalf("Authorization header must be absent without a token, got %q", h.Get("Authorization"))
	}
	if h.Get("X-Request-ID") == "" {
		t.Fatalf("expected X-Request-ID header")
	}
	if h.Get("Accept") != "application/json" {
		t.Fatalf("Accept = %q", h.Get("Accept"))
	}
}

func TestClient_Login_Unauthorized(t *testing.T) {
	api := newFakeAPI(t)
	api.e.POST("/auth/login", func(c echo.Context) error {
		return c.JSON(http.StatusUnauthorized, map[string]string{"detail": "Incorrect username or password"})
	})

	_, err := api.client(t).Login(context.Background(), "alice", "wrong")
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if !strings.Contains(err.Error(), "Incorrect username or password") {
		t.Fatalf("expected server detail in error, got %v", err)
	}
}

func TestClient_Login_EmptyToken(t *testing.T) {
	api := newFakeAPI(t)
	api.e.POST("/auth/login", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"token_type": "bearer"})
	})

	if _, err := api.client(t).Login(context.Background(), "alice", "pw"); err == nil {
		t.Fatalf("expected error for missing access token")
	}
}

func TestClient_BearerHeader(t *testing.T) {
	api := newFakeAPI(t)
	api.e.GET("/users/me/", func(c echo.Context) error {
		if c.Request().Header.Get("Authorization") != "Bearer abc123" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"detail": "Not authenticated"})
		}
		return c.JSONBlob(http.StatusOK, []byte(`{"username":"alice","disabled":null}`))
	})

	client := api.client(t)
	if _, err := client.FetchProfile(context.Background()); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized without token, got %v", err)
	}

	client.SetToken("abc123")
	profile, err := client.FetchProfile(context.Background())
	if err != nil {
		t.Fatalf("FetchProfile: %v", err)
	}
	if profile.Username != "alice" || profile.Disabled {
		t.Fatalf("unexpected profile: %+v", profile)
	}

	client.SetToken("")
	if _, err := client.FetchProfile(context.Background()); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized after clearing token, got %v", err)
	}
	if _, ok := api.lastHeader()["Authorization"]; ok {
		t.Fatalf("Authorization header must be omitted after clearing the token")
	}
}

func TestClient_ServerErrorMessages(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"detail", http.StatusBadRequest, `{"detail":"Username already registered"}`, "Username already registered"},
		{"message", http.StatusInternalServerError, `{"message":"database unavailable"}`, "database unavailable"},
		{"detail wins", http.StatusConflict, `{"detail":"first","message":"second"}`, "first"},
		{"validation list", http.StatusUnprocessableEntity, `{"detail":[{"loc":["body","username"],"msg":"field required","type":"missing"}]}`, "field required"},
		{"empty", http.StatusBadGateway, ``, "An error occurred"},
		{"not json", http.StatusServiceUnavailable, `<html>down</html>`, "An error occurred"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := newFakeAPI(t)
			api.e.POST("/auth/register", func(c echo.Context) error {
				return c.Blob(tc.status, echo.MIMEApplicationJSON, []byte(tc.body))
			})

			_, err := api.client(t).Register(context.Background(), "alice", "pw")
			var se *domain.ServerError
			if !errors.As(err, &se) {
				t.Fatalf("expected *domain.ServerError, got %v", err)
			}
			if se.Status != tc.status {
				t.Fatalf("Status = %d, want %d", se.Status, tc.status)
			}
			if se.Message != tc.want {
				t.Fatalf("Message = %q, want %q", se.Message, tc.want)
			}
		})
	}
}

func TestClient_Register_SendsJSON(t *testing.T) {
	api := newFakeAPI(t)
	api.e.POST("/auth/register", func(c echo.Context) error {
		var req registerRequest
		if err := c.Bind(&req); err != nil {
			return err
		}
		if req.Username != "alice" || req.Password != "pw" {
			return c.JSON(http.StatusBadRequest, map[string]string{"detail": "unexpected body"})
		}
		return c.JSON(http.StatusOK, map[string]any{"username": "alice", "disabled": false})
	})

	profile, err := api.client(t).Register(context.Background(), "alice", "pw")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if profile.Username != "alice" {
		t.Fatalf("unexpected profile: %+v", profile)
	}
	if api.lastHeader().Get("Content-Type") != "application/json" {
		t.Fatalf("Content-Type = %q", api.lastHeader().Get("Content-Type"))
	}
}

func TestClient_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	client, err := New(Config{BaseURL: base, Timeout: time.Second}, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = client.ListJobs(context.Background())
	if !errors.Is(err, domain.ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
	if got := domain.Message(err, ""); got != "Network error: Unable to reach the server" {
		t.Fatalf("Message = %q", got)
	}
}

func TestClient_ContextCanceled(t *testing.T) {
	api := newFakeAPI(t)
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	api.e.GET("/users/me/jobs/", func(c echo.Context) error {
		select {
		case <-release:
		case <-c.Request().Context().Done():
		}
		return c.JSON(http.StatusOK, []any{})
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := api.client(t).ListJobs(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, domain.ErrNetwork) {
		t.Fatalf("cancellation must not be reported as a network error")
	}
}

func TestClient_ListJobs_DropsPendingTranscripts(t *testing.T) {
	api := newFakeAPI(t)
	api.e.GET("/users/me/jobs/", func(c echo.Context) error {
		return c.JSONBlob(http.StatusOK, []byte(`[
			{"job_id":"1","filename":"a.mp3","status":"uploaded","transcript":"Transcription pending…","owner":"alice"},
			{"job_id":"2","filename":"b.wav","status":"completed","transcript":"hello world","owner":"alice"},
			{"job_id":"3","filename":"c.ogg","status":"failed","transcript":"","error_message":"decoder crashed"}
		]`))
	})

	jobs, err := api.client(t).ListJobs(context.Background())
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(jobs))
	}
	if jobs[0].Transcript != "" || jobs[0].Status != domain.JobStatusUploaded {
		t.Fatalf("unexpected pending job: %+v", jobs[0])
	}
	if jobs[1].Transcript != "hello world" || jobs[1].Owner != "alice" {
		t.Fatalf("unexpected completed job: %+v", jobs[1])
	}
	if jobs[2].ErrorMessage != "decoder crashed" {
		t.Fatalf("unexpected failed job: %+v", jobs[2])
	}
}

func TestClient_GetJob(t *testing.T) {
	api := newFakeAPI(t)
	api.e.GET("/users/me/jobs/:id/", func(c echo.Context) error {
		if c.Param("id") != "42" {
			return c.JSON(http.StatusNotFound, map[string]string{"detail": "Job not found"})
		}
		return c.JSON(http.StatusOK, map[string]string{"job_id": "42", "filename": "a.mp3", "status": "processing"})
	})
	client := api.client(t)

	job, err := client.GetJob(context.Background(), "42")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.ID != "42" || job.Status != domain.JobStatusProcessing {
		t.Fatalf("unexpected job: %+v", job)
	}

	_, err = client.GetJob(context.Background(), "7")
	var se *domain.ServerError
	if !errors.As(err, &se) || se.Status != http.StatusNotFound || se.Message != "Job not found" {
		t.Fatalf("expected 404 ServerError, got %v", err)
	}
}

func TestClient_UploadJob_Multipart(t *testing.T) {
	api := newFakeAPI(t)
	api.e.POST("/users/me/jobs/", func(c echo.Context) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"detail": err.Error()})
		}
		if fh.Header.Get("Content-Type") != "audio/mpeg" {
			return c.JSON(http.StatusBadRequest, map[string]string{"detail": "part type " + fh.Header.Get("Content-Type")})
		}
		f, err := fh.Open()
		if err != nil {
			return err
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		if string(data) != "ID3 fake audio" {
			return c.JSON(http.StatusBadRequest, map[string]string{"detail": "unexpected content"})
		}
		return c.JSON(http.StatusOK, map[string]string{
			"job_id": "1", "filename": fh.Filename, "status": "uploaded", "transcript": "Transcription pending…",
		})
	})

	client := api.client(t)
	client.SetToken("abc123")
	job, err := client.UploadJob(context.Background(), domain.UploadFile{
		Name:        "voice memo.mp3",
		Size:        14,
		ContentType: "audio/mpeg",
		Content:     strings.NewReader("ID3 fake audio"),
	})
	if err != nil {
		t.Fatalf("UploadJob: %v", err)
	}
	if job.ID != "1" || job.Filename != "voice memo.mp3" || job.Transcript != "" {
		t.Fatalf("unexpected job: %+v", job)
	}
	if api.lastHeader().Get("Authorization") != "Bearer abc123" {
		t.Fatalf("expected bearer header on upload")
	}
}

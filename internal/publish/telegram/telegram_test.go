package telegram

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"termbot/internal/publish"
	"termbot/internal/task/engine"
)

const photoResult = `{"ok":true,"result":{"message_id":7,"date":1731750000,"chat":{"id":-1001,"type":"channel"},"caption":"progress","photo":[{"file_id":"f1","file_unique_id":"u1","width":800,"height":200}]}}`

func TestAuthenticateValidates(t *testing.T) {
	t.Parallel()
	if _, err := Authenticate("", -1001, Options{}); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("err = %v, want ErrMissingToken", err)
	}
	if _, err := Authenticate("123:abc", 0, Options{}); err == nil {
		t.Fatal("expected chat id error")
	}
}

func TestPostSendsPhotoWithCaption(t *testing.T) {
	t.Parallel()
	var gotPath, gotChat, gotCaption, gotPhoto, gotName, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			gotChat = r.FormValue("chat_id")
			gotCaption = r.FormValue("caption")
			if f, hdr, err := r.FormFile("photo"); err == nil {
				b, _ := io.ReadAll(f)
				gotPhoto = string(b)
				gotName = hdr.Filename
				gotType = hdr.Header.Get("Content-Type")
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, photoResult)
	}))
	defer srv.Close()

	s, err := Authenticate("123:abc", -1001, Options{APIURL: srv.URL})
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	m, err := s.Upload(context.Background(), []byte("png-bytes"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if err := s.Post(context.Background(), "progress", m); err != nil {
		t.Fatalf("Post: %v", err)
	}
	if gotPath != "/bot123:abc/sendPhoto" {
		t.Fatalf("path = %q, want sendPhoto", gotPath)
	}
	if gotChat != "-1001" || gotCaption != "progress" || gotPhoto != "png-bytes" {
		t.Fatalf("chat = %q, caption = %q, photo = %q", gotChat, gotCaption, gotPhoto)
	}
	if gotName != "progress.png" || gotType != "image/png" {
		t.Fatalf("photo part filename = %q, type = %q", gotName, gotType)
	}
}

func TestPostPhotoErrorClassification(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		status    int
		body      string
		permanent bool
	}{
		{name: "bad request", status: http.StatusBadRequest, body: `{"ok":false,"error_code":400,"description":"Bad Request: IMAGE_PROCESS_FAILED"}`, permanent: true},
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"ok":false,"error_code":401,"description":"Unauthorized"}`, permanent: true},
		{name: "flood", status: http.StatusTooManyRequests, body: `{"ok":false,"error_code":429,"description":"Too Many Requests: retry after 5","parameters":{"retry_after":5}}`},
		{name: "server error", status: http.StatusBadGateway, body: `<html>bad gateway</html>`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			s, err := Authenticate("123:abc", -1001, Options{APIURL: srv.URL})
			if err != nil {
				t.Fatal(err)
			}
			err = s.Post(context.Background(), "progress", publish.Media{Data: []byte("png")})
			if err == nil {
				t.Fatal("expected error")
			}
			if got := engine.IsNoRetry(err); got != tt.permanent {
				t.Fatalf("IsNoRetry(%v) = %v, want %v", err, got, tt.permanent)
			}
		})
	}
}

func TestPostTransportErrorHidesToken(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	s, err := Authenticate("123:secret-token", -1001, Options{APIURL: url})
	if err != nil {
		t.Fatal(err)
	}
	err = s.Post(context.Background(), "progress", publish.Media{Data: []byte("png")})
	if err == nil {
		t.Fatal("expected error")
	}
	if strings.Contains(err.Error(), "secret-token") {
		t.Fatalf("error leaks token: %v", err)
	}
}

func TestPostForbiddenIsPermanent(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"ok":false,"error_code":403,"description":"Forbidden: bot is not a member of the channel chat"}`)
	}))
	defer srv.Close()

	s, err := Authenticate("123:abc", -1001, Options{APIURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	err = s.Post(context.Background(), "progress", publish.Media{Data: []byte("png")})
	if err == nil || !engine.IsNoRetry(err) {
		t.Fatalf("err = %v, want permanent failure", err)
	}
}

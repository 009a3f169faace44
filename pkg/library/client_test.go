package library

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

const testToken = "secret-token"

// fakeBackend mimics the library routes with an in-memory record list
type fakeBackend struct {
	mu      sync.Mutex
	records []Record
	files   map[string][]byte
	thumbs  map[string]string
	nextID  int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{files: map[string][]byte{}, thumbs: map[string]string{}}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.URL.Path == "/api/auth/login" {
		var req loginRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "hunter2" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"msg": "Invalid email or password"})
			return
		}
		writeJSON(w, http.StatusOK, loginResponse{Token: testToken, User: User{ID: "u1", Email: req.Email}})
		return
	}

	if r.Header.Get("Authorization") != "Bearer "+testToken {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"msg": "No token, authorization denied"})
		return
	}

	if strings.HasPrefix(r.URL.Path, "/uploads/") {
		data, ok := f.files[strings.TrimPrefix(r.URL.Path, "/uploads/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write(data)
		return
	}

	id := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, "/api/pdfs"), "/")
	switch {
	case r.Method == http.MethodPost && id == "":
		f.nextID++
		rec := Record{ID: "pdf" + string(rune('0'+f.nextID)), CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
		if err := f.fill(r, &rec); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"msg": err.Error()})
			return
		}
		f.records = append([]Record{rec}, f.records...)
		writeJSON(w, http.StatusOK, rec)
	case r.Method == http.MethodGet && id == "":
		writeJSON(w, http.StatusOK, f.records)
	default:
		i := f.find(id)
		if i < 0 {
			writeJSON(w, http.StatusNotFound, map[string]string{"msg": "PDF not found"})
			return
		}
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, f.records[i])
		case http.MethodPut:
			if err := f.fill(r, &f.records[i]); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"msg": err.Error()})
				return
			}
			writeJSON(w, http.StatusOK, f.records[i])
		case http.MethodDelete:
			f.records = append(f.records[:i], f.records[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]string{"msg": "PDF removed"})
		}
	}
}

func (f *fakeBackend) find(id string) int {
	for i, r := range f.records {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func (f *fakeBackend) fill(r *http.Request, rec *Record) error {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		return err
	}
	// only the pdfFile part is accepted as a file
	for field := range r.MultipartForm.File {
		if field != "pdfFile" {
			return errors.New("File upload error: Unexpected field")
		}
	}
	file, _, err := r.FormFile("pdfFile")
	if err != nil {
		return err
	}
	data, _ := io.ReadAll(file)
	f.files[rec.ID+".pdf"] = data

	rec.Filename = r.FormValue("filename")
	rec.FileURL = "/uploads/" + rec.ID + ".pdf"
	rec.PageCount = atoi(r.FormValue("pageCount"))
	rec.FileSize = atoi(r.FormValue("fileSize"))
	if thumb := r.FormValue("thumbnailUrl"); thumb != "" {
		f.thumbs[rec.ID] = thumb
		rec.ThumbnailURL = thumb
	}
	return nil
}

func atoi(s string) int {
	n := 0
	for _, c := range s {
		n = n*10 + int(c-'0')
	}
	return n
}

func newTestClient(t *testing.T, token string) (*Client, *fakeBackend) {
	t.Helper()
	backend := newFakeBackend()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{BaseURL: srv.URL + "/", Token: token, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return c, backend
}

func TestLogin(t *testing.T) {
	c, _ := newTestClient(t, "")

	token, user, err := c.Login(context.Background(), "ana@example.com", "hunter2")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if token != testToken {
		t.Errorf("Expected token %q, got %q", testToken, token)
	}
	if user.Email != "ana@example.com" {
		t.Errorf("Expected user email, got %+v", user)
	}

	_, _, err = c.Login(context.Background(), "ana@example.com", "wrong")
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusBadRequest {
		t.Fatalf("Expected StatusError 400, got %v", err)
	}
	if se.Message != "Invalid email or password" {
		t.Errorf("Expected backend message, got %q", se.Message)
	}
}

func TestSaveListGetDelete(t *testing.T) {
	c, backend := newTestClient(t, testToken)
	ctx := context.Background()
	pdf := []byte("%PDF-1.7 fake")

	rec, err := c.Save(ctx, pdf, Metadata{Filename: "Scan.pdf", PageCount: 3, Thumbnail: []byte{0xFF, 0xD8}})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if rec.Filename != "Scan.pdf" || rec.PageCount != 3 {
		t.Errorf("Unexpected record %+v", rec)
	}
	if rec.FileSize != len(pdf) {
		t.Errorf("Expected file size %d, got %d", len(pdf), rec.FileSize)
	}
	if want := "data:image/jpeg;base64,/9g="; rec.ThumbnailURL != want || backend.thumbs[rec.ID] != want {
		t.Errorf("Expected thumbnail data URI %q, got %q", want, rec.ThumbnailURL)
	}

	list, err := c.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if diff := cmp.Diff([]Record{*rec}, list); diff != "" {
		t.Errorf("List mismatch (-want +got):\n%s", diff)
	}

	got, err := c.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	data, err := c.Download(ctx, got)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if string(data) != string(pdf) {
		t.Errorf("Expected downloaded bytes to match, got %q", data)
	}

	if err := c.Delete(ctx, rec.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := c.Delete(ctx, rec.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestUpdate(t *testing.T) {
	c, _ := newTestClient(t, testToken)
	ctx := context.Background()

	rec, err := c.Save(ctx, []byte("v1"), Metadata{Filename: "a.pdf", PageCount: 1})
	if err != nil {
		t.Fatal(err)
	}
	updated, err := c.Update(ctx, rec.ID, []byte("version2"), Metadata{Filename: "b.pdf", PageCount: 2})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.ID != rec.ID || updated.Filename != "b.pdf" || updated.PageCount != 2 || updated.FileSize != 8 {
		t.Errorf("Unexpected updated record %+v", updated)
	}

	if _, err := c.Update(ctx, "missing", []byte("x"), Metadata{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestUnauthorized(t *testing.T) {
	c, _ := newTestClient(t, "")
	if _, err := c.List(context.Background()); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized without token, got %v", err)
	}

	bad := c.WithToken("wrong")
	if _, err := bad.List(context.Background()); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized for a rejected token, got %v", err)
	}
	if c.Token() != "" {
		t.Error("WithToken must not modify the original client")
	}
}

func TestSaveRejectsExtraFileParts(t *testing.T) {
	c, _ := newTestClient(t, testToken)

	var buf strings.Builder
	buf.WriteString("--b\r\nContent-Disposition: form-data; name=\"pdfFile\"; filename=\"a.pdf\"\r\n\r\n%PDF\r\n")
	buf.WriteString("--b\r\nContent-Disposition: form-data; name=\"thumbnail\"; filename=\"thumb.jpg\"\r\n\r\nxx\r\n--b--\r\n")
	_, err := c.sendRequest(context.Background(), http.MethodPost, "/api/pdfs", strings.NewReader(buf.String()), "multipart/form-data; boundary=b", true)
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for a thumbnail file part, got %v", err)
	}

	// the client itself only ever sends one file part
	rec, err := c.Save(context.Background(), []byte("%PDF"), Metadata{Filename: "a.pdf", Thumbnail: []byte("jpeg")})
	if err != nil {
		t.Fatalf("Save with thumbnail failed: %v", err)
	}
	if !strings.HasPrefix(rec.ThumbnailURL, "data:image/jpeg;base64,") {
		t.Errorf("Expected inline thumbnail, got %q", rec.ThumbnailURL)
	}
}

func TestSaveEmpty(t *testing.T) {
	c, _ := newTestClient(t, testToken)
	if _, err := c.Save(context.Background(), nil, Metadata{Filename: "x.pdf"}); err == nil {
		t.Error("Expected error for empty pdf")
	}
}

func TestNewClientInvalidURL(t *testing.T) {
	if _, err := NewClient(Config{BaseURL: "::nope"}); err == nil {
		t.Error("Expected error for invalid base URL")
	}
}

package assets

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)

func TestCheckImage(t *testing.T) {
	if _, err := CheckImage(pngBytes); err != nil {
		t.Errorf("CheckImage(png) error = %v", err)
	}
	if _, err := CheckImage([]byte("hello, plain text")); !errors.Is(err, ErrNotImage) {
		t.Errorf("CheckImage(text) error = %v, want ErrNotImage", err)
	}
	if _, err := CheckImage(nil); !errors.Is(err, ErrEmpty) {
		t.Errorf("CheckImage(nil) error = %v, want ErrEmpty", err)
	}
}

func TestBucketUploadRemove(t *testing.T) {
	dir := t.TempDir()
	b := NewBucket(dir, "/uploads", "blog-images")
	ctx := context.Background()

	url, err := b.Upload(ctx, "../My Photo!.png", pngBytes)
	if err != nil {
		t.Fatalf("Upload() failed: %v", err)
	}
	if !strings.HasPrefix(url, "/uploads/blog-images/") || !strings.HasSuffix(url, "-My-Photo.png") {
		t.Errorf("url = %q", url)
	}

	key := strings.TrimPrefix(url, "/uploads/")
	if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(key))); err != nil {
		t.Fatalf("object not written: %v", err)
	}

	if err := b.Remove(ctx, "https://example.com"+url); err != nil {
		t.Fatalf("Remove() failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(key))); !os.IsNotExist(err) {
		t.Errorf("object still present: %v", err)
	}
}

func TestBucketRejectsEscapingRefs(t *testing.T) {
	b := NewBucket(t.TempDir(), "/uploads", "")
	for _, ref := range []string{"/uploads/../../etc/passwd", "../secret", "https://cdn.example.com/x.png", ""} {
		if err := b.Remove(context.Background(), ref); !errors.Is(err, ErrInvalidRef) {
			t.Errorf("Remove(%q) error = %v, want ErrInvalidRef", ref, err)
		}
	}
}

func TestBucketRejectsNonImage(t *testing.T) {
	b := NewBucket(t.TempDir(), "/uploads", "")
	if _, err := b.Upload(context.Background(), "notes.txt", []byte("just text")); !errors.Is(err, ErrNotImage) {
		t.Errorf("Upload() error = %v, want ErrNotImage", err)
	}
}

func TestSign(t *testing.T) {
	got := Sign(map[string]string{"timestamp": "1700000000", "public_id": "profile/abc"}, "secret")

	mac := hmac.New(sha1.New, []byte("secret"))
	mac.Write([]byte("public_id=profile/abc&timestamp=1700000000"))
	want := hex.EncodeToString(mac.Sum(nil))

	if got != want {
		t.Errorf("Sign() = %s, want %s", got, want)
	}
}

func TestPublicID(t *testing.T) {
	tests := []struct {
		ref  string
		want string
	}{
		{"https://res.cloudinary.com/demo/image/upload/v1712345678/profile/abc123.jpg", "profile/abc123"},
		{"https://res.cloudinary.com/demo/image/upload/abc123.png", "abc123"},
		{"https://res.cloudinary.com/demo/image/upload/v1/x.y.png", "x.y"},
		{"already-an-id", "already-an-id"},
	}
	for _, tt := range tests {
		got, err := PublicID(tt.ref)
		if err != nil {
			t.Errorf("PublicID(%q) error = %v", tt.ref, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PublicID(%q) = %q, want %q", tt.ref, got, tt.want)
		}
	}

	if _, err := PublicID("https://example.com/not/cloudinary.png"); !errors.Is(err, ErrInvalidRef) {
		t.Errorf("PublicID(non-upload url) error = %v, want ErrInvalidRef", err)
	}
}

func TestCloudinaryUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1_1/demo/image/upload" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
		}
		if got := r.FormValue("upload_preset"); got != "preset" {
			t.Errorf("upload_preset = %q", got)
		}
		if got := r.FormValue("folder"); got != "profile" {
			t.Errorf("folder = %q", got)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("missing file part: %v", err)
		}
		w.Write([]byte(`{"secure_url":"https://res.cloudinary.com/demo/image/upload/v1/profile/p.png","public_id":"profile/p"}`))
	}))
	defer srv.Close()

	c := NewCloudinary(CloudinaryConfig{CloudName: "demo", UploadPreset: "preset", Folder: "profile", BaseURL: srv.URL})
	url, err := c.Upload(context.Background(), "p.png", pngBytes)
	if err != nil {
		t.Fatalf("Upload() failed: %v", err)
	}
	if url != "https://res.cloudinary.com/demo/image/upload/v1/profile/p.png" {
		t.Errorf("url = %q", url)
	}
}

func TestCloudinaryUploadError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Upload preset not found"}}`))
	}))
	defer srv.Close()

	c := NewCloudinary(CloudinaryConfig{CloudName: "demo", UploadPreset: "nope", BaseURL: srv.URL})
	_, err := c.Upload(context.Background(), "p.png", pngBytes)
	if err == nil || !strings.Contains(err.Error(), "Upload preset not found") {
		t.Errorf("Upload() error = %v", err)
	}
}

func TestCloudinaryRemoveSignsRequest(t *testing.T) {
	now := time.Unix(1700000000, 0)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1_1/demo/image/destroy" {
			http.NotFound(w, r)
			return
		}
		_ = r.ParseForm()
		want := Sign(map[string]string{"public_id": "profile/abc", "timestamp": "1700000000"}, "shh")
		if r.FormValue("signature") != want {
			t.Errorf("signature = %q, want %q", r.FormValue("signature"), want)
		}
		if r.FormValue("api_key") != "key" || r.FormValue("public_id") != "profile/abc" || r.FormValue("timestamp") != "1700000000" {
			t.Errorf("unexpected form: %v", r.Form)
		}
		w.Write([]byte(`{"result":"ok"}`))
	}))
	defer srv.Close()

	c := NewCloudinary(CloudinaryConfig{CloudName: "demo", APIKey: "key", APISecret: "shh", BaseURL: srv.URL})
	c.now = func() time.Time { return now }

	if err := c.Remove(context.Background(), "https://res.cloudinary.com/demo/image/upload/v99/profile/abc.jpg"); err != nil {
		t.Fatalf("Remove() failed: %v", err)
	}
}

func TestCloudinaryRemoveNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":"not found"}`))
	}))
	defer srv.Close()

	c := NewCloudinary(CloudinaryConfig{CloudName: "demo", BaseURL: srv.URL})
	if err := c.Remove(context.Background(), "gone"); err == nil {
		t.Error("Remove() succeeded for a missing asset")
	}
}

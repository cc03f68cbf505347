package assets

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

const defaultCloudinaryBase = "https://api.cloudinary.com"

// CloudinaryConfig holds the account settings for the upload API.
type CloudinaryConfig struct {
	CloudName    string
	UploadPreset string
	APIKey       string
	APISecret    string
	Folder       string

	// BaseURL overrides the API host (tests).
	BaseURL string
}

// Configured reports whether uploads can be made.
func (c CloudinaryConfig) Configured() bool {
	return c.CloudName != "" && c.UploadPreset != ""
}

// Cloudinary uploads unsigned with an upload preset and deletes with a
// signed destroy request.
type Cloudinary struct {
	cfg        CloudinaryConfig
	httpClient *http.Client
	now        func() time.Time
}

func NewCloudinary(cfg CloudinaryConfig) *Cloudinary {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultCloudinaryBase
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	return &Cloudinary{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		now: time.Now,
	}
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *Cloudinary) Upload(ctx context.Context, name string, data []byte) (string, error) {
	if _, err := CheckImage(data); err != nil {
		return "", err
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", safeName(name))
	if err != nil {
		return "", fmt.Errorf("build upload form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("build upload form: %w", err)
	}
	_ = w.WriteField("upload_preset", c.cfg.UploadPreset)
	if c.cfg.Folder != "" {
		_ = w.WriteField("folder", c.cfg.Folder)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("build upload form: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1_1/%s/image/upload", c.cfg.BaseURL, c.cfg.CloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("cloudinary upload: %w", err)
	}
	defer resp.Body.Close()

	var out uploadResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return "", fmt.Errorf("cloudinary upload: status %d: decode response: %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := ""
		if out.Error != nil {
			msg = out.Error.Message
		}
		return "", fmt.Errorf("cloudinary upload: status %d: %s", resp.StatusCode, msg)
	}
	if out.SecureURL == "" {
		return "", fmt.Errorf("cloudinary upload: response has no secure_url")
	}
	return out.SecureURL, nil
}

func (c *Cloudinary) Remove(ctx context.Context, ref string) error {
	publicID, err := PublicID(ref)
	if err != nil {
		return err
	}

	timestamp := strconv.FormatInt(c.now().Unix(), 10)
	params := map[string]string{
		"public_id": publicID,
		"timestamp": timestamp,
	}
	form := url.Values{}
	form.Set("public_id", publicID)
	form.Set("timestamp", timestamp)
	form.Set("api_key", c.cfg.APIKey)
	form.Set("signature", Sign(params, c.cfg.APISecret))

	endpoint := fmt.Sprintf("%s/v1_1/%s/image/destroy", c.cfg.BaseURL, c.cfg.CloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("cloudinary destroy %s: %w", publicID, err)
	}
	defer resp.Body.Close()

	var out struct {
		Result string `json:"result"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return fmt.Errorf("cloudinary destroy %s: status %d: decode response: %w", publicID, resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || out.Result != "ok" {
		return fmt.Errorf("cloudinary destroy %s: status %d: result %q", publicID, resp.StatusCode, out.Result)
	}
	return nil
}

// Sign computes the request signature: the parameters sorted by key,
// joined as key=value pairs with "&", HMAC-SHA1'd with the API secret and
// hex encoded.
func Sign(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + params[k]
	}

	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(strings.Join(pairs, "&")))
	return hex.EncodeToString(mac.Sum(nil))
}

var versionSegment = regexp.MustCompile(`^v[0-9]+$`)

// PublicID derives the asset public id from a delivery URL: the path after
// "/upload/", without a leading version segment or file extension. A value
// that is not a URL is taken to be a public id already.
func PublicID(ref string) (string, error) {
	if !strings.Contains(ref, "://") {
		if ref == "" {
			return "", fmt.Errorf("%w: empty", ErrInvalidRef)
		}
		return ref, nil
	}

	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRef, err)
	}
	_, rest, ok := strings.Cut(u.Path, "/upload/")
	if !ok || rest == "" {
		return "", fmt.Errorf("%w: %q has no upload path", ErrInvalidRef, ref)
	}

	segments := strings.Split(rest, "/")
	if len(segments) > 1 && versionSegment.MatchString(segments[0]) {
		segments = segments[1:]
	}
	id := strings.Join(segments, "/")
	id = strings.TrimSuffix(id, path.Ext(id))
	if id == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	return id, nil
}

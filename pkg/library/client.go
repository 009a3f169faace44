package library

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/snappdf/snappdf/pkg/processing"
)

// Config configures a Client
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	Logger  *logrus.Entry
}

// Client is the HTTP implementation of Store and Authenticator
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	log        *logrus.Entry
}

var (
	_ Store         = (*Client)(nil)
	_ Authenticator = (*Client)(nil)
)

// NewClient creates a client for the backend at cfg.BaseURL
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:5000"
	}
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		token:   cfg.Token,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		log: log.WithField("component", "library"),
	}, nil
}

// WithToken returns a copy of c that authenticates with token
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// Token returns the bearer token in use
func (c *Client) Token() string {
	return c.token
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Login posts credentials and returns the issued token
func (c *Client) Login(ctx context.Context, email, password string) (string, *User, error) {
	payload, err := json.Marshal(loginRequest{Email: email, Password: password})
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	body, err := c.sendRequest(ctx, http.MethodPost, "/api/auth/login", bytes.NewReader(payload), "application/json", false)
	if err != nil {
		return "", nil, fmt.Errorf("login failed: %w", err)
	}

	var resp loginResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Token == "" {
		return "", nil, fmt.Errorf("login failed: %w: no token in response", ErrUnauthorized)
	}
	c.log.WithField("user", resp.User.Email).Debug("logged in")
	return resp.Token, &resp.User, nil
}

// Save uploads a new PDF
func (c *Client) Save(ctx context.Context, pdf []byte, meta Metadata) (*Record, error) {
	return c.upload(ctx, http.MethodPost, "/api/pdfs", pdf, meta)
}

// Update replaces the PDF behind id
func (c *Client) Update(ctx context.Context, id string, pdf []byte, meta Metadata) (*Record, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty id", ErrNotFound)
	}
	return c.upload(ctx, http.MethodPut, "/api/pdfs/"+url.PathEscape(id), pdf, meta)
}

// List returns the user's PDFs, newest first
func (c *Client) List(ctx context.Context) ([]Record, error) {
	body, err := c.sendRequest(ctx, http.MethodGet, "/api/pdfs", nil, "", true)
	if err != nil {
		return nil, err
	}
	var records []Record
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return records, nil
}

// Get returns a single record
func (c *Client) Get(ctx context.Context, id string) (*Record, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty id", ErrNotFound)
	}
	body, err := c.sendRequest(ctx, http.MethodGet, "/api/pdfs/"+url.PathEscape(id), nil, "", true)
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &rec, nil
}

// Delete removes a record
func (c *Client) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty id", ErrNotFound)
	}
	if _, err := c.sendRequest(ctx, http.MethodDelete, "/api/pdfs/"+url.PathEscape(id), nil, "", true); err != nil {
		return err
	}
	c.log.WithField("id", id).Info("pdf deleted")
	return nil
}

// Download fetches the PDF file of a record
func (c *Client) Download(ctx context.Context, rec *Record) ([]byte, error) {
	if rec == nil || rec.FileURL == "" {
		return nil, fmt.Errorf("%w: record has no file", ErrNotFound)
	}
	target := rec.FileURL
	if strings.HasPrefix(target, "/") {
		target = c.baseURL + target
	}
	return c.do(ctx, http.MethodGet, target, nil, "", true)
}

func (c *Client) upload(ctx context.Context, method, endpoint string, pdf []byte, meta Metadata) (*Record, error) {
	if len(pdf) == 0 {
		return nil, fmt.Errorf("empty pdf")
	}
	if meta.FileSize == 0 {
		meta.FileSize = len(pdf)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("pdfFile", meta.Filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build form: %w", err)
	}
	if _, err := part.Write(pdf); err != nil {
		return nil, fmt.Errorf("failed to build form: %w", err)
	}
	fields := map[string]string{
		"filename":  meta.Filename,
		"pageCount": strconv.Itoa(meta.PageCount),
		"fileSize":  strconv.Itoa(meta.FileSize),
	}
	keys := []string{"filename", "pageCount", "fileSize"}
	// the backend accepts a single file part; the thumbnail travels inline
	if len(meta.Thumbnail) > 0 {
		fields["thumbnailUrl"] = processing.EncodeDataURI(meta.Thumbnail)
		keys = append(keys, "thumbnailUrl")
	}
	for _, k := range keys {
		if err := mw.WriteField(k, fields[k]); err != nil {
			return nil, fmt.Errorf("failed to build form: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to build form: %w", err)
	}

	body, err := c.sendRequest(ctx, method, endpoint, &buf, mw.FormDataContentType(), true)
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	c.log.WithFields(logrus.Fields{
		"id":    rec.ID,
		"pages": meta.PageCount,
		"bytes": meta.FileSize,
	}).Info("pdf stored")
	return &rec, nil
}

func (c *Client) sendRequest(ctx context.Context, method, endpoint string, body io.Reader, contentType string, auth bool) ([]byte, error) {
	return c.do(ctx, method, c.baseURL+endpoint, body, contentType, auth)
}

func (c *Client) do(ctx context.Context, method, target string, body io.Reader, contentType string, auth bool) ([]byte, error) {
	if auth && c.token == "" {
		return nil, fmt.Errorf("%w: no token configured", ErrUnauthorized)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if auth {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.log.WithFields(logrus.Fields{
		"method": method,
		"url":    target,
		"status": resp.StatusCode,
	}).Debug("library request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := errorMessage(respBody)
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return nil, fmt.Errorf("%w: %s", ErrUnauthorized, msg)
		case http.StatusNotFound:
			return nil, fmt.Errorf("%w: %s", ErrNotFound, msg)
		}
		return nil, &StatusError{Code: resp.StatusCode, Message: msg}
	}
	return respBody, nil
}

// errorMessage extracts the {"msg": ...} body the backend sends with errors
func errorMessage(body []byte) string {
	var e struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Msg != "" {
		return e.Msg
	}
	return strings.TrimSpace(string(body))
}

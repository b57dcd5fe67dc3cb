package payload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"nous-core/pkg/gateway"
	"nous-core/pkg/lexical"
)

// Client talks to the Payload CMS REST API. Every call forwards the caller's
// JWT; the CMS decides what the caller may do.
type Client struct {
	baseURL string
	http    *http.Client
}

var (
	_ gateway.MediaUploader = (*Client)(nil)
	_ gateway.LessonStore   = (*Client)(nil)
)

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Minute},
	}
}

type lessonDoc struct {
	ID        interface{}      `json:"id"`
	Title     string           `json:"title"`
	Narration string           `json:"narration"`
	Content   lexical.Document `json:"content"`
	Course    interface{}      `json:"course"`
	Published bool             `json:"published"`
}

func (d lessonDoc) record() *gateway.LessonRecord {
	return &gateway.LessonRecord{
		ID:        idString(d.ID),
		Title:     d.Title,
		CourseID:  idString(d.Course),
		Narration: d.Narration,
		Content:   d.Content,
		Published: d.Published,
	}
}

type courseDoc struct {
	ID          interface{} `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
}

func (c *Client) UploadMedia(ctx context.Context, path string, kind lexical.MediaKind, alt, token string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open media: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	meta, _ := json.Marshal(map[string]string{"alt": alt})
	if err := w.WriteField("_payload", string(meta)); err != nil {
		return "", err
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filepath.Base(path)))
	header.Set("Content-Type", contentType(kind))
	part, err := w.CreatePart(header)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("copy media: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	var out struct {
		ID  interface{} `json:"id"`
		Doc struct {
			ID interface{} `json:"id"`
		} `json:"doc"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/media", token, w.FormDataContentType(), &body, &out); err != nil {
		return "", err
	}

	id := idString(out.ID)
	if id == "" {
		id = idString(out.Doc.ID)
	}
	if id == "" {
		return "", gateway.New(gateway.Malformed, "media upload response carried no id", nil)
	}
	return id, nil
}

func (c *Client) CreateLesson(ctx context.Context, in gateway.LessonInput, token string) (*gateway.LessonRecord, error) {
	payload := map[string]interface{}{
		"title":     in.Title,
		"courseId":  in.CourseID,
		"narration": in.Narration,
		"content":   in.Content,
		"published": true,
		"course":    map[string]interface{}{"id": numericOrString(in.CourseID)},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	var out struct {
		Doc lessonDoc `json:"doc"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/lessons", token, "application/json", bytes.NewReader(body), &out); err != nil {
		return nil, err
	}
	return out.Doc.record(), nil
}

func (c *Client) GetLesson(ctx context.Context, id, token string) (*gateway.LessonRecord, error) {
	var doc lessonDoc
	if err := c.do(ctx, http.MethodGet, "/api/lessons/"+url.PathEscape(id)+"?depth=0", token, "", nil, &doc); err != nil {
		return nil, err
	}
	return doc.record(), nil
}

func (c *Client) GetCourse(ctx context.Context, id, token string) (*gateway.CourseRecord, error) {
	var doc courseDoc
	if err := c.do(ctx, http.MethodGet, "/api/courses/"+url.PathEscape(id)+"?depth=0", token, "", nil, &doc); err != nil {
		return nil, err
	}
	return &gateway.CourseRecord{ID: idString(doc.ID), Title: doc.Title, Description: doc.Description}, nil
}

// SearchLessons ORs a title "contains" clause per keyword (top five).
func (c *Client) SearchLessons(ctx context.Context, keywords []string, limit int, token string) ([]gateway.LessonRecord, error) {
	if len(keywords) > 5 {
		keywords = keywords[:5]
	}
	if len(keywords) == 0 {
		return []gateway.LessonRecord{}, nil
	}

	q := url.Values{}
	for i, kw := range keywords {
		q.Set(fmt.Sprintf("where[or][%d][title][contains]", i), kw)
	}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("depth", "0")

	var out struct {
		Docs []lessonDoc `json:"docs"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/lessons?"+q.Encode(), token, "", nil, &out); err != nil {
		return nil, err
	}

	lessons := make([]gateway.LessonRecord, 0, len(out.Docs))
	for _, d := range out.Docs {
		lessons = append(lessons, *d.record())
	}
	return lessons, nil
}

func (c *Client) do(ctx context.Context, method, path, token, contentType string, body io.Reader, out interface{}) error {
	if token == "" {
		return gateway.New(gateway.Unauthorized, "authentication token required", gateway.ErrUnauthorized)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "JWT "+token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return gateway.Wrap(gateway.Transient, fmt.Errorf("payload request failed: %w", err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return gateway.Wrap(gateway.Transient, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classifyStatus(method, path, resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return gateway.New(gateway.Malformed, "payload returned an unreadable response", err)
	}
	return nil
}

func classifyStatus(method, path string, status int, body []byte) error {
	err := fmt.Errorf("payload %s %s: status %d: %s", method, strings.SplitN(path, "?", 2)[0], status, strings.TrimSpace(string(body)))
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return gateway.Wrap(gateway.Unauthorized, err)
	case status == http.StatusNotFound:
		return gateway.Wrap(gateway.NotFound, err)
	case status >= 500:
		return gateway.Wrap(gateway.Transient, err)
	}
	return gateway.Wrap(gateway.Permanent, err)
}

func contentType(kind lexical.MediaKind) string {
	if kind == lexical.MediaVideo {
		return "video/mp4"
	}
	return "audio/mpeg"
}

// idString normalizes Payload ids, which are numbers on SQL adapters and
// strings on Mongo, and may arrive populated as objects.
func idString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case map[string]interface{}:
		return idString(t["id"])
	}
	return fmt.Sprint(v)
}

func numericOrString(id string) interface{} {
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		return n
	}
	return id
}

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/inspection-reports/internal/common"
	"github.com/joseph-ayodele/inspection-reports/internal/export"
	"github.com/joseph-ayodele/inspection-reports/internal/layout"
	"github.com/joseph-ayodele/inspection-reports/internal/session"
	"github.com/joseph-ayodele/inspection-reports/internal/sites"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newExporter() *export.Service {
	logger := quietLogger()
	engine := layout.NewEngine(layout.DefaultConfig(), logger)
	return export.NewService(engine, export.Config{Recipients: []string{"ops@example.com"}}, logger)
}

type stubNormalizer struct {
	err error
}

func (s stubNormalizer) Normalize(_ context.Context, data []byte) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return data, nil
}

type wizardClient struct {
	t    *testing.T
	base string
	http *http.Client
}

func newWizard(t *testing.T, norm PhotoNormalizer) (*wizardClient, *session.MemoryStore) {
	t.Helper()
	store := session.NewMemoryStore()
	logger := quietLogger()
	wz := NewWizard(
		session.NewManager(store, session.ManagerConfig{}, logger),
		sites.NewCatalog([]string{"P-101", "P-102"}),
		norm,
		newExporter(),
		WizardConfig{},
		logger,
	)
	ts := httptest.NewServer(wz.Routes())
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Transport: ts.Client().Transport,
		Jar:       jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &wizardClient{t: t, base: ts.URL, http: client}, store
}

func (c *wizardClient) get(path string) *http.Response {
	resp, err := c.http.Get(c.base + path)
	require.NoError(c.t, err)
	return resp
}

func (c *wizardClient) post(path string, form url.Values) *http.Response {
	resp, err := c.http.PostForm(c.base+path, form)
	require.NoError(c.t, err)
	return resp
}

type uploadFile struct {
	field, filename string
	data            []byte
}

func (c *wizardClient) upload(path string, files map[string][]byte, fields map[string]string) *http.Response {
	var uploads []uploadFile
	for name, data := range files {
		uploads = append(uploads, uploadFile{field: name, filename: name + ".png", data: data})
	}
	return c.uploadFiles(path, uploads, fields)
}

func (c *wizardClient) uploadFiles(path string, files []uploadFile, fields map[string]string) *http.Response {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range files {
		fw, err := mw.CreateFormFile(f.field, f.filename)
		require.NoError(c.t, err)
		_, err = fw.Write(f.data)
		require.NoError(c.t, err)
	}
	for k, v := range fields {
		require.NoError(c.t, mw.WriteField(k, v))
	}
	require.NoError(c.t, mw.Close())

	resp, err := c.http.Post(c.base+path, mw.FormDataContentType(), &body)
	require.NoError(c.t, err)
	return resp
}

func readBody(t *testing.T, resp *http.Response) []byte {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return b
}

func decodeErrors(t *testing.T, resp *http.Response) []string {
	t.Helper()
	var out struct {
		Errors []string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(readBody(t, resp), &out))
	return out.Errors
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func expectRedirect(t *testing.T, resp *http.Response, to string) {
	t.Helper()
	readBody(t, resp)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, to, resp.Header.Get("Location"))
}

func TestWizardFullFlow(t *testing.T) {
	c, _ := newWizard(t, stubNormalizer{})

	resp := c.get("/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	var general struct {
		Sites []string `json:"sites"`
	}
	require.NoError(t, json.Unmarshal(readBody(t, resp), &general))
	assert.Equal(t, []string{"P-101", "P-102"}, general.Sites)

	expectRedirect(t, c.post("/", url.Values{"site_id": {"P-101"}, "date": {"2024-06-01"}, "initial_notes": {"Windy"}}), "/step2")
	expectRedirect(t, c.post("/step2", url.Values{"type": {"Casing"}, "depth": {"12,5"}, "status": {"ok"}}), "/step2")
	expectRedirect(t, c.post("/step2", url.Values{"type": {"Valve"}, "depth": {"3"}, "status": {"Leaking"}, "next": {"1"}}), "/step3")

	resp = c.get("/step2")
	var items struct {
		Items []itemView `json:"items"`
	}
	require.NoError(t, json.Unmarshal(readBody(t, resp), &items))
	require.Len(t, items.Items, 2)
	assert.Equal(t, "Good", items.Items[0].Status)
	assert.Equal(t, "Leaking", items.Items[1].Status)

	expectRedirect(t, c.upload("/step3",
		map[string][]byte{
			"photo_0_0": pngBytes(t, 40, 30),
			"photo_0_2": pngBytes(t, 30, 40),
			"photo_1_1": pngBytes(t, 20, 20),
		},
		map[string]string{"label_0_0": "north face", "label_0_2": "south face", "label_1_1": "stem"},
	), "/step4")

	resp = c.get("/step4")
	var summary struct {
		Items  []itemView `json:"items"`
		Photos int        `json:"photos"`
	}
	require.NoError(t, json.Unmarshal(readBody(t, resp), &summary))
	assert.Equal(t, 3, summary.Photos)
	assert.Equal(t, []string{"north face", "south face"}, summary.Items[0].Labels)

	resp = c.post("/step4", url.Values{"action": {"download"}, "closing_notes": {"All good"}})
	body := readBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "inspection-P-101-2024-06-01.pdf")
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))

	resp = c.post("/step4", url.Values{"action": {"download_xlsx"}})
	body = readBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, bytes.HasPrefix(body, []byte("PK")))

	resp = c.post("/step4", url.Values{"action": {"message"}, "recipients": {"a@example.com; b@example.com"}})
	body = readBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "message/rfc822", resp.Header.Get("Content-Type"))
	assert.Contains(t, string(body), "To: <a@example.com>, <b@example.com>")
}

func TestWizardRedirectsWithoutHeader(t *testing.T) {
	c, _ := newWizard(t, stubNormalizer{})
	for _, path := range []string{"/step2", "/step3", "/step4"} {
		expectRedirect(t, c.get(path), "/")
	}
	expectRedirect(t, c.post("/step4", url.Values{"action": {"download"}}), "/")
}

func TestWizardValidation(t *testing.T) {
	c, _ := newWizard(t, stubNormalizer{})

	resp := c.post("/", url.Values{"site_id": {"P-999"}, "date": {"01/06/2024"}})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	errs := decodeErrors(t, resp)
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "site_id")
	assert.Contains(t, errs[1], "date")

	expectRedirect(t, c.post("/", url.Values{"site_id": {"P-102"}, "date": {"2024-06-01"}}), "/step2")

	resp = c.post("/step2", url.Values{"type": {"Casing"}, "depth": {"deep"}})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	errs = decodeErrors(t, resp)
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "depth")
	assert.Contains(t, errs[1], "status")

	resp = c.post("/step4", url.Values{"action": {"fax"}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	readBody(t, resp)

	resp = c.post("/step4", url.Values{"action": {"message"}})
	// falls back to the configured recipients
	readBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWizardRejectedPhoto(t *testing.T) {
	c, _ := newWizard(t, stubNormalizer{err: common.ErrInvalidInput})
	expectRedirect(t, c.post("/", url.Values{"site_id": {"P-101"}, "date": {"2024-06-01"}}), "/step2")
	expectRedirect(t, c.post("/step2", url.Values{"type": {"Casing"}, "depth": {"1"}, "status": {"Good"}, "next": {""}}), "/step3")

	resp := c.upload("/step3", map[string][]byte{"photo_0_0": pngBytes(t, 10, 10)}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Len(t, decodeErrors(t, resp), 1)
}

func TestWizardRejectsUnsupportedFileType(t *testing.T) {
	c, _ := newWizard(t, stubNormalizer{})
	expectRedirect(t, c.post("/", url.Values{"site_id": {"P-101"}, "date": {"2024-06-01"}}), "/step2")
	expectRedirect(t, c.post("/step2", url.Values{"type": {"Casing"}, "depth": {"1"}, "status": {"Good"}, "next": {""}}), "/step3")

	resp := c.uploadFiles("/step3", []uploadFile{
		{field: "photo_0_0", filename: "notes.txt", data: []byte("hello")},
		{field: "photo_0_1", filename: "casing.JPG", data: pngBytes(t, 10, 10)},
	}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	errs := decodeErrors(t, resp)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "photo_0_0")
	assert.Contains(t, errs[0], ".txt")

	// extensionless uploads are sniffed by the normalizer instead
	expectRedirect(t, c.uploadFiles("/step3", []uploadFile{
		{field: "photo_0_0", filename: "camera-upload", data: pngBytes(t, 10, 10)},
	}, nil), "/step4")
}

func TestWizardKeepsUnconvertedPhoto(t *testing.T) {
	c, _ := newWizard(t, stubNormalizer{err: assert.AnError})
	expectRedirect(t, c.post("/", url.Values{"site_id": {"P-101"}, "date": {"2024-06-01"}}), "/step2")
	expectRedirect(t, c.post("/step2", url.Values{"type": {"Casing"}, "depth": {"1"}, "status": {"Good"}, "next": {""}}), "/step3")
	expectRedirect(t, c.upload("/step3", map[string][]byte{"photo_0_1": []byte("not an image")}, nil), "/step4")

	resp := c.post("/step4", url.Values{"download": {""}})
	body := readBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))
}

func TestWizardResetAndRestart(t *testing.T) {
	c, store := newWizard(t, stubNormalizer{})
	expectRedirect(t, c.post("/", url.Values{"site_id": {"P-101"}, "date": {"2024-06-01"}}), "/step2")
	expectRedirect(t, c.post("/step2", url.Values{"type": {"Casing"}, "depth": {"1"}, "status": {"Good"}}), "/step2")

	// posting step 1 again starts over
	expectRedirect(t, c.post("/", url.Values{"site_id": {"P-102"}, "date": {"2024-06-02"}}), "/step2")
	resp := c.get("/step2")
	var items struct {
		Items []itemView `json:"items"`
	}
	require.NoError(t, json.Unmarshal(readBody(t, resp), &items))
	assert.Empty(t, items.Items)

	expectRedirect(t, c.post("/reset", nil), "/")
	n, err := store.DeleteExpired(context.Background(), time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)
	expectRedirect(t, c.get("/step2"), "/")
}

func TestHealth(t *testing.T) {
	c, _ := newWizard(t, nil)
	resp := c.get("/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(readBody(t, resp)), `"ok"`))
}

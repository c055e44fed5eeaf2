package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/raine/rapidlisting/internal/imaging"
	"github.com/raine/rapidlisting/internal/listing"
	"github.com/raine/rapidlisting/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type extractorFunc func(ctx context.Context, data []byte, mimeType string) (string, error)

func (f extractorFunc) ExtractText(ctx context.Context, data []byte, mimeType string) (string, error) {
	return f(ctx, data, mimeType)
}

type generatorFunc func(ctx context.Context, prompt string) (*listing.Result, error)

func (f generatorFunc) GenerateListings(ctx context.Context, prompt string) (*listing.Result, error) {
	return f(ctx, prompt)
}

var testResult = &listing.Result{
	EbayTitle:             "Toyota Camry Headlight",
	EbayDescription:       "Used headlight in good shape.",
	FacebookTitle:         "Camry headlight",
	FacebookDescription:   "Pickup only.",
	CraigslistTitle:       "camry headlight",
	CraigslistDescription: "headlight toyota camry",
}

type testClient struct {
	t      *testing.T
	server *httptest.Server
	client *http.Client
}

func newTestServer(t *testing.T, ext extractorFunc, gen generatorFunc) *testClient {
	t.Helper()
	if ext == nil {
		ext = func(context.Context, []byte, string) (string, error) { return "PART 123", nil }
	}
	if gen == nil {
		gen = func(context.Context, string) (*listing.Result, error) { return testResult, nil }
	}
	key, err := DeriveKey("test secret")
	require.NoError(t, err)

	srv, err := New(session.NewManager(time.Hour), session.NewService(ext, gen), Options{
		MaxUploadBytes: 1 << 20,
		SessionKey:     key,
	})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testClient{t: t, server: ts, client: &http.Client{Jar: jar}}
}

func (c *testClient) do(method, path string, body any) *http.Response {
	c.t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(c.t, err)
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.server.URL+path, r)
	require.NoError(c.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	require.NoError(c.t, err)
	c.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (c *testClient) state() stateJSON {
	c.t.Helper()
	resp := c.do(http.MethodGet, "/api/state", nil)
	require.Equal(c.t, http.StatusOK, resp.StatusCode)
	return decodeBody[stateJSON](c.t, resp)
}

func (c *testClient) setField(field, value string) *http.Response {
	c.t.Helper()
	return c.do(http.MethodPut, "/api/fields/"+field, map[string]string{"value": value})
}

func (c *testClient) upload(path string, files ...[]byte) *http.Response {
	c.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for i, data := range files {
		fw, err := mw.CreateFormFile(uploadField, "photo"+string(rune('a'+i))+".png")
		require.NoError(c.t, err)
		_, err = fw.Write(data)
		require.NoError(c.t, err)
	}
	require.NoError(c.t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, c.server.URL+path, &buf)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := c.client.Do(req)
	require.NoError(c.t, err)
	c.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

type stateJSON struct {
	Mode        string               `json:"mode"`
	AutoPart    listing.AutoPartItem `json:"autoPart"`
	General     listing.GeneralItem  `json:"general"`
	Images      []imageInfo          `json:"images"`
	Result      *listing.Result      `json:"result"`
	Submittable bool                 `json:"submittable"`
	Missing     []string             `json:"missing"`
	Copied      map[string]bool      `json:"copied"`
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func errorBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	return decodeBody[map[string]string](t, resp)["error"]
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for x := 0; x < 40; x++ {
		for y := 0; y < 30; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

func TestHealthz(t *testing.T) {
	c := newTestServer(t, nil, nil)
	resp := c.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", readBody(t, resp))
}

func TestStatic(t *testing.T) {
	c := newTestServer(t, nil, nil)
	resp := c.do(http.MethodGet, "/static/app.js", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "clipboard")
}

func TestAPIState_IssuesSessionCookie(t *testing.T) {
	c := newTestServer(t, nil, nil)

	resp := c.do(http.MethodGet, "/api/state", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cookie *http.Cookie
	for _, ck := range resp.Cookies() {
		if ck.Name == CookieName {
			cookie = ck
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	first := decodeBody[map[string]any](t, resp)
	assert.Equal(t, "AUTO_PARTS", first["mode"])
	assert.Equal(t, false, first["submittable"])

	// The jar sends the cookie back, so the same session is used.
	second := decodeBody[map[string]any](t, c.do(http.MethodGet, "/api/state", nil))
	assert.Equal(t, first["id"], second["id"])
}

func TestAPIState_InvalidCookieGetsNewSession(t *testing.T) {
	c := newTestServer(t, nil, nil)

	req, err := http.NewRequest(http.MethodGet, c.server.URL+"/api/state", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "not-a-token"})
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Cookies())
}

func TestAPIMode(t *testing.T) {
	c := newTestServer(t, nil, nil)
	require.Equal(t, http.StatusOK, c.setField("make", "Toyota").StatusCode)

	resp := c.do(http.MethodPost, "/api/mode", map[string]string{"mode": "GENERAL_ITEMS"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	st := decodeBody[stateJSON](t, resp)
	assert.Equal(t, "GENERAL_ITEMS", st.Mode)
	assert.Equal(t, "Toyota", st.AutoPart.Make, "inactive record keeps its values")

	resp = c.do(http.MethodPost, "/api/mode", map[string]string{"mode": "BOATS"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPost, c.server.URL+"/api/mode", strings.NewReader("{"))
	require.NoError(t, err)
	badJSON, err := c.client.Do(req)
	require.NoError(t, err)
	defer badJSON.Body.Close()
	assert.Equal(t, http.StatusBadRequest, badJSON.StatusCode)
}

func TestAPISetField(t *testing.T) {
	c := newTestServer(t, nil, nil)

	require.Equal(t, http.StatusOK, c.setField("make", "Toyota").StatusCode)
	require.Equal(t, http.StatusOK, c.setField("model", "Camry").StatusCode)
	assert.Equal(t, "Camry", c.state().AutoPart.Model)

	resp := c.setField("make", "Honda")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	st := decodeBody[stateJSON](t, resp)
	assert.Equal(t, "Honda", st.AutoPart.Make)
	assert.Empty(t, st.AutoPart.Model, "changing the make clears the model")

	resp = c.setField("upc", "012345678905")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "upc is a general item field")

	resp = c.setField("condition", "Mint")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, errorBody(t, resp), "invalid condition")
}

func TestAPIImages_UploadServeDelete(t *testing.T) {
	c := newTestServer(t, nil, nil)
	pngData := testPNG(t)

	resp := c.upload("/api/images", pngData, pngData)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	added := decodeBody[imagesResponse](t, resp)
	require.Len(t, added.Images, 2)
	assert.Equal(t, "image/jpeg", added.Images[0].MIMEType)

	img := c.do(http.MethodGet, added.Images[0].URL, nil)
	require.Equal(t, http.StatusOK, img.StatusCode)
	assert.Equal(t, "image/jpeg", img.Header.Get("Content-Type"))
	assert.Equal(t, "nosniff", img.Header.Get("X-Content-Type-Options"))

	resp = c.do(http.MethodDelete, "/api/images/"+added.Images[0].ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	st := c.state()
	require.Len(t, st.Images, 1)
	assert.Equal(t, added.Images[1].ID, st.Images[0].ID)

	resp = c.do(http.MethodDelete, "/api/images/"+added.Images[0].ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = c.do(http.MethodGet, added.Images[0].URL, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIImages_Rejected(t *testing.T) {
	c := newTestServer(t, nil, nil)

	resp := c.upload("/api/images", []byte("%PDF-1.4 not an image"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = c.upload("/api/images", bytes.Repeat([]byte{0xff}, 2<<20))
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)

	resp = c.upload("/api/images")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, c.state().Images)
}

func TestAPIExtract(t *testing.T) {
	var gotMIME string
	c := newTestServer(t, func(_ context.Context, _ []byte, mimeType string) (string, error) {
		gotMIME = mimeType
		return "OEM 81110-06680", nil
	}, nil)

	resp := c.do(http.MethodPost, "/api/extract", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, session.ErrNoImages.Error(), errorBody(t, resp))

	require.Equal(t, http.StatusCreated, c.upload("/api/images", testPNG(t)).StatusCode)
	resp = c.do(http.MethodPost, "/api/extract", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OEM 81110-06680", decodeBody[map[string]string](t, resp)["extractedText"])
	assert.Equal(t, "image/jpeg", gotMIME)
	assert.Equal(t, "OEM 81110-06680", c.state().AutoPart.ExtractedText)
}

func TestAPIExtract_Failure(t *testing.T) {
	c := newTestServer(t, func(context.Context, []byte, string) (string, error) {
		return "", errors.New("quota exceeded for key AIza")
	}, nil)
	require.Equal(t, http.StatusCreated, c.upload("/api/images", testPNG(t)).StatusCode)

	resp := c.do(http.MethodPost, "/api/extract", nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, session.ErrExtractionFailed.Error(), errorBody(t, resp))
}

func TestAPIGenerate(t *testing.T) {
	var prompt string
	c := newTestServer(t, nil, func(_ context.Context, p string) (*listing.Result, error) {
		prompt = p
		return testResult, nil
	})

	resp := c.do(http.MethodPost, "/api/generate", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Empty(t, prompt, "no call without required fields")

	require.Equal(t, http.StatusOK, c.setField("make", "Toyota").StatusCode)
	require.Equal(t, http.StatusOK, c.setField("partName", "Headlight").StatusCode)

	resp = c.do(http.MethodPost, "/api/generate", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decodeBody[listing.Result](t, resp)
	assert.Equal(t, *testResult, result)
	assert.Contains(t, prompt, "Make: Toyota")
	assert.Contains(t, prompt, "Part Name: Headlight")

	st := c.state()
	require.NotNil(t, st.Result)
	assert.Equal(t, testResult.CraigslistTitle, st.Result.CraigslistTitle)
}

func TestAPIGenerate_Failure(t *testing.T) {
	c := newTestServer(t, nil, func(context.Context, string) (*listing.Result, error) {
		return nil, listing.ErrMalformedResult
	})
	require.Equal(t, http.StatusOK, c.setField("make", "Toyota").StatusCode)
	require.Equal(t, http.StatusOK, c.setField("partName", "Headlight").StatusCode)

	resp := c.do(http.MethodPost, "/api/generate", nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "failed to generate listings, please try again", errorBody(t, resp))
	assert.Nil(t, c.state().Result)
}

func TestAPICopied(t *testing.T) {
	c := newTestServer(t, nil, nil)

	resp := c.do(http.MethodPost, "/api/copied/ebayTitle", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "nothing to copy yet")

	require.Equal(t, http.StatusOK, c.setField("make", "Toyota").StatusCode)
	require.Equal(t, http.StatusOK, c.setField("partName", "Headlight").StatusCode)
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/generate", nil).StatusCode)

	resp = c.do(http.MethodPost, "/api/copied/ebayTitle", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]bool{"ebayTitle": true}, c.state().Copied)

	resp = c.do(http.MethodPost, "/api/copied/ebayPrice", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPIReset(t *testing.T) {
	c := newTestServer(t, nil, nil)
	require.Equal(t, http.StatusOK, c.setField("make", "Toyota").StatusCode)
	require.Equal(t, http.StatusCreated, c.upload("/api/images", testPNG(t)).StatusCode)

	resp := c.do(http.MethodPost, "/api/reset", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	st := decodeBody[stateJSON](t, resp)
	assert.Empty(t, st.AutoPart.Make)
	assert.Empty(t, st.Images)
}

func TestAPIOptions(t *testing.T) {
	c := newTestServer(t, nil, nil)

	resp := c.do(http.MethodGet, "/api/options", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	opts := decodeBody[optionsResponse](t, resp)
	assert.Equal(t, "2025", opts.Years[0])
	assert.Contains(t, opts.Makes, "Toyota")
	assert.Contains(t, opts.GeneralCategories, "Video Games")
	assert.Equal(t, "New", opts.Conditions[0])

	resp = c.do(http.MethodGet, "/api/options/models?make=BMW", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"3 Series", "5 Series", "X3", "X5", "M3", "M5"}, decodeBody[map[string][]string](t, resp)["models"])

	resp = c.do(http.MethodGet, "/api/options/models?make=Tesla", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"models":[]}`, strings.TrimSpace(readBody(t, resp)))
}

func TestIndexPage(t *testing.T) {
	c := newTestServer(t, nil, nil)

	resp := c.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
	body := readBody(t, resp)
	assert.Contains(t, body, "Auto Parts")
	assert.Contains(t, body, "Generate listings")
	assert.Contains(t, body, "Required: Make, Part Name")
	assert.Contains(t, body, `name="partName"`)
	assert.NotContains(t, body, `name="upc"`)
	assert.Contains(t, body, `data-mode="AUTO_PARTS"`)
	assert.Contains(t, body, `formaction="/generate"`)
}

func TestFormActions(t *testing.T) {
	c := newTestServer(t, nil, nil)

	// Redirects are followed, so each post ends on the rendered page.
	resp, err := c.client.PostForm(c.server.URL+"/generate", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), session.ErrNotSubmittable.Error())

	resp, err = c.client.PostForm(c.server.URL+"/form", map[string][]string{
		"make":     {"Toyota"},
		"model":    {"Camry"},
		"partName": {"Headlight"},
	})
	require.NoError(t, err)
	defer resp.Body.Close()
	body := readBody(t, resp)
	assert.Contains(t, body, `value="Headlight"`)
	assert.NotContains(t, body, "Required:")
	assert.Equal(t, "Camry", c.state().AutoPart.Model)

	resp, err = c.client.PostForm(c.server.URL+"/generate", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	body = readBody(t, resp)
	assert.Contains(t, body, "Toyota Camry Headlight")
	assert.Contains(t, body, `data-field="ebayTitle"`)

	resp, err = c.client.PostForm(c.server.URL+"/mode", map[string][]string{"mode": {"GENERAL_ITEMS"}})
	require.NoError(t, err)
	defer resp.Body.Close()
	body = readBody(t, resp)
	assert.Contains(t, body, `name="upc"`)
	assert.NotContains(t, body, "Toyota Camry Headlight", "switching mode clears the result")
}

func TestGenerateSubmit_UsesPostedFields(t *testing.T) {
	var prompts []string
	c := newTestServer(t, nil, func(_ context.Context, p string) (*listing.Result, error) {
		prompts = append(prompts, p)
		return testResult, nil
	})

	// Fields typed into the form count without a separate save.
	resp, err := c.client.PostForm(c.server.URL+"/generate", map[string][]string{
		"make":     {"Honda"},
		"partName": {"Headlight"},
	})
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "Make: Honda\n")
	assert.Contains(t, prompts[0], "Part Name: Headlight\n")

	// An edit after an earlier save replaces the saved value.
	resp, err = c.client.PostForm(c.server.URL+"/generate", map[string][]string{
		"make":     {"Honda"},
		"partName": {"Taillight"},
	})
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Len(t, prompts, 2)
	assert.Contains(t, prompts[1], "Part Name: Taillight\n")
	assert.NotContains(t, prompts[1], "Headlight")
	assert.Equal(t, "Taillight", c.state().AutoPart.PartName)

	// Clearing a required field in the form blocks the call.
	resp, err = c.client.PostForm(c.server.URL+"/generate", map[string][]string{
		"make":     {"Honda"},
		"partName": {""},
	})
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Contains(t, readBody(t, resp), session.ErrNotSubmittable.Error())
	assert.Len(t, prompts, 2)
}

func TestProviderCallsOutliveClient(t *testing.T) {
	var extractErr, generateErr error
	ext := func(ctx context.Context, _ []byte, _ string) (string, error) {
		extractErr = ctx.Err()
		return "PART 123", ctx.Err()
	}
	gen := func(ctx context.Context, _ string) (*listing.Result, error) {
		generateErr = ctx.Err()
		return testResult, ctx.Err()
	}
	mgr := session.NewManager(time.Hour)
	srv, err := New(mgr, session.NewService(extractorFunc(ext), generatorFunc(gen)), Options{})
	require.NoError(t, err)
	handler := srv.Handler()

	sess := mgr.GetOrCreate("gone")
	_, err = sess.AddImage(testPNG(t), "image/png", time.Now())
	require.NoError(t, err)
	require.NoError(t, sess.SetFields(map[listing.Field]string{
		listing.FieldMake:     "Toyota",
		listing.FieldPartName: "Headlight",
	}))
	cookie, err := srv.cookies.Sign("gone", time.Now())
	require.NoError(t, err)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	for _, path := range []string{"/api/extract", "/api/generate"} {
		req := httptest.NewRequest(http.MethodPost, path, nil).WithContext(cancelled)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: cookie})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	assert.NoError(t, extractErr)
	assert.NoError(t, generateErr)
	assert.Equal(t, "PART 123", sess.Item().Common().ExtractedText)
	assert.NotNil(t, sess.Result())
}

func TestErrorStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{listing.ErrUnknownField, http.StatusBadRequest},
		{listing.ErrInvalidCondition, http.StatusBadRequest},
		{session.ErrImageNotFound, http.StatusNotFound},
		{session.ErrNotSubmittable, http.StatusConflict},
		{session.ErrGenerationInFlight, http.StatusConflict},
		{session.ErrTooManyImages, http.StatusConflict},
		{session.ErrGenerationFailed, http.StatusBadGateway},
		{errFileTooLarge, http.StatusRequestEntityTooLarge},
		{imaging.ErrImageTooLarge, http.StatusRequestEntityTooLarge},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, errorStatus(tc.err), tc.err.Error())
	}
	assert.Equal(t, "internal error", errorMessage(errors.New("disk on fire")))
}

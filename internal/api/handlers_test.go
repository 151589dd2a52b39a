package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/leafsii/leafsii-cms/internal/config"
	"github.com/leafsii/leafsii-cms/internal/content"
	"github.com/leafsii/leafsii-cms/internal/db"
	"github.com/leafsii/leafsii-cms/internal/db/entities"
	"github.com/leafsii/leafsii-cms/internal/domain"
	"github.com/leafsii/leafsii-cms/internal/identity"
	"github.com/leafsii/leafsii-cms/internal/mail"
	"github.com/leafsii/leafsii-cms/internal/mail/mailtest"
	"github.com/leafsii/leafsii-cms/internal/media"
	"github.com/leafsii/leafsii-cms/internal/settings"
	"github.com/leafsii/leafsii-cms/internal/store"
	memkv "github.com/leafsii/leafsii-cms/pkg/kv/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var csrfPattern = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)

type testApp struct {
	t        *testing.T
	server   *httptest.Server
	client   *http.Client
	identity *identity.Service
	content  *content.Service
	media    *media.Service
	settings *settings.Service
	mailer   *mailtest.MockSender
	admin    *entities.User
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop().Sugar()

	database := db.NewInMemoryDatabase()
	require.NoError(t, db.ConnectAndMigrate(ctx, database, db.AllSchemas()))

	cfg := &config.Config{
		Env:       "test",
		PublicURL: "http://cms.test/",
		Uploads:   config.UploadConfig{Dir: t.TempDir(), MaxBytes: 1 << 20},
		Security: config.SecurityConfig{
			CORSAllowedOrigins: []string{"*"},
			LoginMaxAttempts:   3,
			LoginWindow:        time.Minute,
		},
	}

	kvStore := memkv.NewStore()
	cache := store.NewCache(kvStore, logger)
	t.Cleanup(func() { cache.Close() })

	ident := identity.NewService(database, identity.Options{BcryptCost: bcrypt.MinCost}, nil, logger)
	admin, _, err := ident.EnsureAdmin(ctx, "admin", "admin@example.com", "admin123")
	require.NoError(t, err)

	blobs, err := media.NewLocalFS(cfg.Uploads.Dir)
	require.NoError(t, err)

	app := &testApp{
		t:        t,
		identity: ident,
		content:  content.NewService(database, content.Options{}, nil, logger),
		media:    media.NewService(database, blobs, media.Options{MaxBytes: cfg.Uploads.MaxBytes}, nil, logger),
		settings: settings.NewService(database, settings.Defaults{SiteName: "Test Site", PostsPerPage: 2}, nil, logger),
		mailer:   &mailtest.MockSender{},
		admin:    admin,
	}

	h, err := NewHandler(Deps{
		Config:   cfg,
		Database: database,
		Cache:    cache,
		Sessions: store.NewSessions(cache, store.SessionOptions{TTL: time.Hour, RememberTTL: 24 * time.Hour}, nil),
		Throttle: store.NewLoginThrottle(kvStore, cfg.Security.LoginMaxAttempts, cfg.Security.LoginWindow),
		Identity: ident,
		Content:  app.content,
		Media:    app.media,
		Blobs:    blobs,
		Settings: app.settings,
		Mailer:   app.mailer,
		Logger:   logger,
	})
	require.NoError(t, err)

	app.server = httptest.NewServer(h.Routes(NewMiddleware(logger, nil), nil))
	t.Cleanup(app.server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	app.client = &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return app
}

func (a *testApp) do(req *http.Request) (*http.Response, string) {
	a.t.Helper()
	resp, err := a.client.Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	return resp, string(body)
}

func (a *testApp) get(path string) (*http.Response, string) {
	a.t.Helper()
	req, err := http.NewRequest(http.MethodGet, a.server.URL+path, nil)
	require.NoError(a.t, err)
	return a.do(req)
}

// csrf reads the token of the current session from a page any visitor can load
func (a *testApp) csrf() string {
	a.t.Helper()
	resp, body := a.get("/admin/forgot-password")
	require.Equal(a.t, http.StatusOK, resp.StatusCode)
	m := csrfPattern.FindStringSubmatch(body)
	require.Len(a.t, m, 2, "csrf token not found")
	return m[1]
}

func (a *testApp) post(path string, form url.Values) (*http.Response, string) {
	a.t.Helper()
	if form == nil {
		form = url.Values{}
	}
	form.Set(csrfField, a.csrf())
	return a.postRaw(path, form)
}

func (a *testApp) postRaw(path string, form url.Values) (*http.Response, string) {
	a.t.Helper()
	req, err := http.NewRequest(http.MethodPost, a.server.URL+path, strings.NewReader(form.Encode()))
	require.NoError(a.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.do(req)
}

func (a *testApp) upload(name string, data []byte) (*http.Response, string) {
	a.t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(a.t, w.WriteField(csrfField, a.csrf()))
	part, err := w.CreateFormFile("file", name)
	require.NoError(a.t, err)
	_, err = part.Write(data)
	require.NoError(a.t, err)
	require.NoError(a.t, w.Close())

	req, err := http.NewRequest(http.MethodPost, a.server.URL+"/admin/media/upload", &buf)
	require.NoError(a.t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return a.do(req)
}

func (a *testApp) login(username, password string) {
	a.t.Helper()
	resp, _ := a.post("/admin/login", url.Values{"username": {username}, "password": {password}})
	require.Equal(a.t, http.StatusSeeOther, resp.StatusCode)
}

func (a *testApp) caller() *domain.Caller {
	return domain.CallerFromUser(a.admin)
}

func TestLoginFlow(t *testing.T) {
	app := newTestApp(t)

	resp, _ := app.get("/admin")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin/login?next=%2Fadmin", resp.Header.Get("Location"))

	resp, body := app.post("/admin/login", url.Values{"username": {"admin"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body, "Invalid username or password.")

	resp, _ = app.post("/admin/login", url.Values{
		"username": {"admin"},
		"password": {"admin123"},
		"next":     {"/admin/posts"},
	})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin/posts", resp.Header.Get("Location"))

	var session *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == sessionCookie {
			session = c
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, session.SameSite)

	resp, body = app.get("/admin")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Welcome back, admin!")
	assert.Contains(t, body, "Dashboard")

	resp, _ = app.post("/admin/logout", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp, _ = app.get("/admin")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func TestLoginIgnoresForeignRedirects(t *testing.T) {
	app := newTestApp(t)

	resp, _ := app.post("/admin/login", url.Values{
		"username": {"admin"},
		"password": {"admin123"},
		"next":     {"//evil.example.com/"},
	})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin", resp.Header.Get("Location"))
}

func TestSafeNext(t *testing.T) {
	cases := map[string]string{
		"":                    "/admin",
		"/admin/posts":        "/admin/posts",
		"/admin/posts?sort=1": "/admin/posts?sort=1",
		"https://evil.com":    "/admin",
		"//evil.com":          "/admin",
		`/\evil.com`:          "/admin",
		"/\t/evil.com":        "/admin",
		"/\n/evil.com":        "/admin",
		"/admin/\r\nX: y":     "/admin",
		"admin":               "/admin",
	}
	for in, want := range cases {
		assert.Equal(t, want, safeNext(in), "next=%q", in)
	}
}

func TestLoginThrottle(t *testing.T) {
	app := newTestApp(t)

	for i := 0; i < 3; i++ {
		resp, _ := app.post("/admin/login", url.Values{"username": {"admin"}, "password": {"nope"}})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	resp, body := app.post("/admin/login", url.Values{"username": {"admin"}, "password": {"admin123"}})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Contains(t, body, "Invalid username or password.")
}

func TestLoginThrottleKeyMatchesUsernameCase(t *testing.T) {
	app := newTestApp(t)

	for i := 0; i < 3; i++ {
		resp, _ := app.post("/admin/login", url.Values{"username": {"ADMIN"}, "password": {"admin123"}})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	resp, body := app.post("/admin/login", url.Values{"username": {"ADMIN"}, "password": {"admin123"}})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Contains(t, body, "Invalid username or password.")

	resp, _ = app.post("/admin/login", url.Values{"username": {"admin"}, "password": {"admin123"}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin", resp.Header.Get("Location"))
}

func TestCSRFTokenRequired(t *testing.T) {
	app := newTestApp(t)
	app.login("admin", "admin123")

	resp, _ := app.postRaw("/admin/posts/create", url.Values{"title": {"Sneaky"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = app.postRaw("/admin/posts/create", url.Values{"title": {"Sneaky"}, csrfField: {"forged"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	posts, err := app.content.ListPosts(context.Background(), content.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestPostPublishWorkflow(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	app.login("admin", "admin123")

	cat, err := app.content.CreateCategory(ctx, app.caller(), content.CategoryInput{Name: "News"})
	require.NoError(t, err)

	resp, _ := app.post("/admin/posts/create", url.Values{
		"title":      {"Hello World"},
		"content":    {"First post"},
		"status":     {"draft"},
		"categories": {cat.ID},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin/posts", resp.Header.Get("Location"))

	post, err := app.content.GetPostBySlug(ctx, "hello-world")
	require.NoError(t, err)
	assert.Equal(t, entities.StatusDraft, post.Status)
	require.Len(t, post.Categories, 1)

	resp, _ = app.get("/api/v1/posts/hello-world")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = app.post("/admin/posts/"+post.ID+"/publish", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp, body := app.get("/api/v1/posts/hello-world")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var dto PostDTO
	require.NoError(t, json.Unmarshal([]byte(body), &dto))
	assert.Equal(t, "Hello World", dto.Title)
	assert.Equal(t, "First post", dto.Content)
	require.NotNil(t, dto.Author)
	assert.Equal(t, "admin", dto.Author.Username)
	require.Len(t, dto.Categories, 1)
	assert.Equal(t, "news", dto.Categories[0].Slug)

	resp, body = app.get("/admin/posts?status=published")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Hello World")

	resp, _ = app.post("/admin/posts/"+post.ID+"/unpublish", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp, _ = app.get("/api/v1/posts/hello-world")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreatePostRejectsDuplicateSlug(t *testing.T) {
	app := newTestApp(t)
	app.login("admin", "admin123")

	form := url.Values{"title": {"Same Title"}}
	resp, _ := app.post("/admin/posts/create", form)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp, body := app.post("/admin/posts/create", url.Values{"title": {"Same Title"}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "is already in use.")
	assert.Contains(t, body, `value="Same Title"`)
}

func TestEditMissingPostIsNotFound(t *testing.T) {
	app := newTestApp(t)
	app.login("admin", "admin123")

	resp, _ := app.get("/admin/posts/does-not-exist/edit")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCategoryPages(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	app.login("admin", "admin123")

	resp, _ := app.post("/admin/categories/create", url.Values{"name": {"Go Tips"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	cats, err := app.content.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "go-tips", cats[0].Slug)

	resp, body := app.post("/admin/categories/create", url.Values{"name": {"Go Tips"}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "Go Tips")

	resp, _ = app.post("/admin/categories/"+cats[0].ID+"/edit", url.Values{"name": {"Go Advice"}, "slug": {"go-advice"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp, body = app.get("/admin/categories")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Go Advice")

	resp, _ = app.post("/admin/categories/"+cats[0].ID+"/delete", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	cats, err = app.content.ListCategories(ctx)
	require.NoError(t, err)
	assert.Empty(t, cats)
}

func TestAuthorCannotManageUsers(t *testing.T) {
	app := newTestApp(t)
	app.login("admin", "admin123")

	resp, _ := app.post("/admin/users/create", url.Values{
		"username": {"writer"},
		"email":    {"writer@example.com"},
		"role":     {"author"},
		"password": {"writer123"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp, _ = app.post("/admin/logout", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	app.login("writer", "writer123")

	resp, _ = app.get("/admin/users")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin", resp.Header.Get("Location"))

	resp, body := app.get("/admin")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "You do not have permission to perform this action.")
	assert.NotContains(t, body, `href="/admin/users"`)

	resp, _ = app.post("/admin/settings/update", url.Values{"site_name": {"Hijacked"}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	site, err := app.settings.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Test Site", site.SiteName)
}

func TestLastAdminCannotBeDeleted(t *testing.T) {
	app := newTestApp(t)
	app.login("admin", "admin123")

	resp, _ := app.post("/admin/users/"+app.admin.ID+"/delete", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin/users", resp.Header.Get("Location"))

	resp, body := app.get("/admin/users")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Cannot delete or demote the last admin user.")

	_, err := app.identity.GetUser(context.Background(), app.admin.ID)
	assert.NoError(t, err)
}

func TestPasswordResetFlow(t *testing.T) {
	app := newTestApp(t)

	var sent mail.Message
	app.mailer.On("Send", mock.Anything, mock.AnythingOfType("mail.Message")).
		Run(func(args mock.Arguments) { sent = args.Get(1).(mail.Message) }).
		Return(nil).Once()

	resp, _ := app.post("/admin/forgot-password", url.Values{"email": {"nobody@example.com"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin/login", resp.Header.Get("Location"))

	resp, _ = app.post("/admin/forgot-password", url.Values{"email": {"Admin@Example.com"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	app.mailer.AssertNumberOfCalls(t, "Send", 1)
	assert.Equal(t, []string{"admin@example.com"}, sent.To)

	m := regexp.MustCompile(`http://cms\.test/admin/reset-password/([0-9a-f]{64})`).FindStringSubmatch(sent.Body)
	require.Len(t, m, 2, "reset link not found in %q", sent.Body)
	resetPath := "/admin/reset-password/" + m[1]

	resp, _ = app.get(resetPath)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := app.post(resetPath, url.Values{"password": {"newpass1"}, "confirm_password": {"other"}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "Passwords do not match.")

	resp, _ = app.post(resetPath, url.Values{"password": {"newpass1"}, "confirm_password": {"newpass1"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin/login", resp.Header.Get("Location"))

	resp, _ = app.get(resetPath)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin/forgot-password", resp.Header.Get("Location"))

	app.login("admin", "newpass1")
	app.mailer.AssertExpectations(t)
}

func TestMediaUpload(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	app.login("admin", "admin123")

	resp, _ := app.upload("report.pdf", []byte("%PDF-1.4 test"))
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	items, err := app.media.ListMedia(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "report.pdf", items[0].OriginalFilename)
	assert.True(t, strings.HasSuffix(items[0].Filename, "_report.pdf"))

	resp, body := app.get("/static/uploads/" + items[0].Filename)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "%PDF-1.4 test", body)

	resp, body = app.upload("script.exe", []byte("MZ"))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "report.pdf")

	resp, _ = app.post("/admin/media/"+items[0].ID+"/delete", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp, _ = app.get("/static/uploads/" + items[0].Filename)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSettingsPages(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	app.login("admin", "admin123")

	resp, body := app.get("/admin/settings")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Test Site")

	resp, _ = app.post("/admin/settings/update", url.Values{"site_name": {"My Blog"}, "posts_per_page": {"0"}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, _ = app.post("/admin/settings/update", url.Values{"site_name": {"My Blog"}, "posts_per_page": {"5"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp, _ = app.post("/admin/settings/email/update", url.Values{
		"mail_server":         {"smtp.example.com"},
		"mail_port":           {"465"},
		"mail_use_tls":        {"1"},
		"mail_username":       {"mailer"},
		"mail_password":       {"secret"},
		"mail_default_sender": {"noreply@example.com"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	site, err := app.settings.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "My Blog", site.SiteName)
	assert.Equal(t, 5, site.PostsPerPage)
	assert.Equal(t, "smtp.example.com", site.MailServer)
	assert.Equal(t, 465, site.MailPort)
	assert.Equal(t, "secret", site.MailPassword)
}

func TestProfileUpdate(t *testing.T) {
	app := newTestApp(t)
	app.login("admin", "admin123")

	resp, body := app.post("/admin/profile", url.Values{
		"username":         {"admin"},
		"email":            {"admin@example.com"},
		"current_password": {"wrong"},
		"new_password":     {"changed1"},
		"confirm_password": {"changed1"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "Current password is incorrect.")

	resp, _ = app.post("/admin/profile", url.Values{
		"username":  {"admin"},
		"email":     {"admin@example.com"},
		"full_name": {"Site Owner"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	user, err := app.identity.GetUser(context.Background(), app.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, "Site Owner", user.FullName)
}

func TestPublicPostsPaginate(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	for _, title := range []string{"One", "Two", "Three"} {
		_, err := app.content.CreatePost(ctx, app.caller(), content.PostInput{Title: title, Status: entities.StatusPublished}, nil)
		require.NoError(t, err)
	}
	_, err := app.content.CreatePost(ctx, app.caller(), content.PostInput{Title: "Hidden"}, nil)
	require.NoError(t, err)

	resp, body := app.get("/api/v1/posts")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page PostPageDTO
	require.NoError(t, json.Unmarshal([]byte(body), &page))
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 2, page.PerPage)
	assert.Equal(t, int64(2), page.TotalPages)
	assert.Len(t, page.Posts, 2)

	resp, body = app.get("/api/v1/posts?page=2")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal([]byte(body), &page))
	assert.Len(t, page.Posts, 1)

	resp, _ = app.get("/api/v1/posts?page=0")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = app.get("/api/v1/categories")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, "[]", body)
}

func TestHealthEndpoints(t *testing.T) {
	app := newTestApp(t)

	resp, body := app.get("/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", body)

	resp, body = app.get("/readyz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"ready"`)

	resp, _ = app.get("/")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/admin", resp.Header.Get("Location"))

	resp, _ = app.get("/nowhere")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

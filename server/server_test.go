package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"blog_backend/auth"
	"blog_backend/generator"
	"blog_backend/sitemap"
	"blog_backend/store"
)

type testEnv struct {
	t      *testing.T
	e      *echo.Echo
	st     *store.Store
	issuer *auth.Issuer
	llm    *generator.MockLLM
}

func newTestEnv(t *testing.T, llm *generator.MockLLM, settings generator.Settings) *testEnv {
	t.Helper()
	st, err := store.Open(":memory:", nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = st.Close() })

	issuer := auth.NewIssuer("test-secret", 0, 0)
	gen := sitemap.NewGenerator("https://example.com", "", t.TempDir(), "", st, nil)
	srv, err := New(st, generator.NewAgent(llm, settings, nil), issuer, gen, Options{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	return &testEnv{t: t, e: srv.Echo(), st: st, issuer: issuer, llm: llm}
}

func defaultEnv(t *testing.T) *testEnv {
	settings := generator.DefaultSettings()
	settings.APIKey = "sk-test"
	return newTestEnv(t, &generator.MockLLM{Auto: true}, settings)
}

// login creates a user and returns an access token for it.
func (env *testEnv) login(username string, staff bool) (string, *store.User) {
	env.t.Helper()
	hash, err := auth.HashPassword("password123")
	if err != nil {
		env.t.Fatal(err)
	}
	u := &store.User{Username: username, PasswordHash: hash, IsStaff: staff}
	if err := env.st.CreateUser(env.t.Context(), u); err != nil {
		env.t.Fatal(err)
	}
	pair, err := env.issuer.Pair(auth.Principal{UserID: u.ID, Username: u.Username, Staff: u.IsStaff})
	if err != nil {
		env.t.Fatal(err)
	}
	return pair.Access, u
}

func (env *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	env.t.Helper()
	var r *bytes.Reader
	switch b := body.(type) {
	case nil:
		r = bytes.NewReader(nil)
	case string:
		r = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			env.t.Fatal(err)
		}
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d; body = %s", rec.Code, want, rec.Body.String())
	}
}

func TestHealthzAndRequestID(t *testing.T) {
	env := defaultEnv(t)
	rec := env.do(http.MethodGet, "/healthz", "", nil)
	expectStatus(t, rec, http.StatusOK)
	if rec.Header().Get(headerRequestID) == "" {
		t.Error("missing request id header")
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(headerRequestID, "fixed-id")
	rec = httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	if got := rec.Header().Get(headerRequestID); got != "fixed-id" {
		t.Errorf("request id = %q, want fixed-id", got)
	}
}

func TestGeneratePost_Boundary(t *testing.T) {
	env := defaultEnv(t)
	staff, _ := env.login("editor", true)
	reader, _ := env.login("reader", false)
	const path = "/api/ai/generate-post/"

	rec := env.do(http.MethodGet, path, staff, nil)
	expectStatus(t, rec, http.StatusMethodNotAllowed)
	if body := decode[ErrorResponse](t, rec); body.Error == "" || body.Hint == "" {
		t.Errorf("405 body = %+v", body)
	}

	expectStatus(t, env.do(http.MethodPost, path, "", map[string]string{"topic": "x"}), http.StatusUnauthorized)
	expectStatus(t, env.do(http.MethodPost, path, reader, map[string]string{"topic": "x"}), http.StatusForbidden)

	rec = env.do(http.MethodPost, path, staff, "{not json")
	expectStatus(t, rec, http.StatusBadRequest)
	if body := decode[ErrorResponse](t, rec); body.Hint == "" {
		t.Errorf("bad body response without hint: %+v", body)
	}

	rec = env.do(http.MethodPost, path, staff, map[string]string{"topic": "   "})
	expectStatus(t, rec, http.StatusBadRequest)
	if body := decode[ErrorResponse](t, rec); body.Error != "topic is required" {
		t.Errorf("error = %q", body.Error)
	}

	rec = env.do(http.MethodPost, path, staff, map[string]string{"topic": "Speaking", "tone": "casual"})
	expectStatus(t, rec, http.StatusBadRequest)
	if body := decode[ErrorResponse](t, rec); !strings.Contains(body.Error, "tone") {
		t.Errorf("error = %q", body.Error)
	}

	if env.llm.Calls() != 0 {
		t.Fatalf("provider called %d times before a valid request", env.llm.Calls())
	}

	rec = env.do(http.MethodPost, path, staff, map[string]string{"topic": "IELTS Speaking Part 2", "tone": "friendly"})
	expectStatus(t, rec, http.StatusOK)
	post := decode[generator.GeneratedPost](t, rec)
	if post.Title != "IELTS Speaking Part 2" || post.Content == "" || len(post.Tags) < 3 {
		t.Errorf("post = %+v", post)
	}
	if env.llm.Calls() != 1 {
		t.Errorf("calls = %d, want 1", env.llm.Calls())
	}

	// generation never persists
	_, total, err := env.st.ListPosts(t.Context(), store.PostFilter{})
	if err != nil || total != 0 {
		t.Errorf("posts after generation = %d, %v", total, err)
	}
}

func TestGeneratePost_GeneratorErrors(t *testing.T) {
	cases := []struct {
		name    string
		llm     *generator.MockLLM
		apiKey  string
		wantErr string
	}{
		{
			name:    "missing key",
			llm:     &generator.MockLLM{Auto: true},
			apiKey:  "",
			wantErr: "OPENAI_API_KEY is missing",
		},
		{
			name:    "auth",
			llm:     &generator.MockLLM{Replies: []generator.MockReply{{Err: fmt.Errorf("%w: status 401", generator.ErrAuth)}}},
			apiKey:  "sk-test",
			wantErr: "authentication failed",
		},
		{
			name:    "transport",
			llm:     &generator.MockLLM{Replies: []generator.MockReply{{Err: fmt.Errorf("%w: timeout", generator.ErrTransport)}}},
			apiKey:  "sk-test",
			wantErr: "AI generation failed",
		},
		{
			name: "exhausted",
			llm: &generator.MockLLM{Replies: []generator.MockReply{
				{Payload: map[string]any{"title": "t"}},
				{Payload: map[string]any{"title": "t"}},
				{Payload: map[string]any{"title": "t"}},
			}},
			apiKey:  "sk-test",
			wantErr: "failed validation after 3 attempts",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			settings := generator.DefaultSettings()
			settings.APIKey = tc.apiKey
			env := newTestEnv(t, tc.llm, settings)
			staff, _ := env.login("editor", true)

			rec := env.do(http.MethodPost, "/api/ai/generate-post/", staff, map[string]string{"topic": "Reading"})
			expectStatus(t, rec, http.StatusBadRequest)
			body := decode[ErrorResponse](t, rec)
			if !strings.Contains(body.Error, tc.wantErr) {
				t.Errorf("error = %q, want containing %q", body.Error, tc.wantErr)
			}
			if body.Hint == "" {
				t.Error("missing hint")
			}
		})
	}
}

func TestAuthFlow(t *testing.T) {
	env := defaultEnv(t)

	rec := env.do(http.MethodPost, "/api/register/", "", map[string]string{"username": "amir", "email": "amir@example.com", "password": "short"})
	expectStatus(t, rec, http.StatusBadRequest)
	if errs := decode[FieldErrors](t, rec); len(errs["password"]) == 0 {
		t.Errorf("errors = %v", errs)
	}

	rec = env.do(http.MethodPost, "/api/register/", "", map[string]string{"username": "amir", "email": "amir@example.com", "password": "longenough"})
	expectStatus(t, rec, http.StatusCreated)
	if u := decode[UserResponse](t, rec); u.Username != "amir" || u.ID == 0 {
		t.Errorf("user = %+v", u)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Error("password leaked in response")
	}

	rec = env.do(http.MethodPost, "/api/register/", "", map[string]string{"username": "AMIR", "password": "longenough"})
	expectStatus(t, rec, http.StatusBadRequest)

	expectStatus(t, env.do(http.MethodPost, "/api/token/", "", map[string]string{"username": "amir", "password": "wrong-pass"}), http.StatusUnauthorized)
	expectStatus(t, env.do(http.MethodPost, "/api/token/", "", map[string]string{"username": "ghost", "password": "longenough"}), http.StatusUnauthorized)

	rec = env.do(http.MethodPost, "/api/token/", "", map[string]string{"username": "amir", "password": "longenough"})
	expectStatus(t, rec, http.StatusOK)
	pair := decode[auth.TokenPair](t, rec)
	if pair.Access == "" || pair.Refresh == "" {
		t.Fatalf("pair = %+v", pair)
	}

	// a refresh token is not an access token
	expectStatus(t, env.do(http.MethodPost, "/api/posts/", pair.Refresh, map[string]string{"title": "t", "content": "c"}), http.StatusUnauthorized)

	rec = env.do(http.MethodPost, "/api/token/refresh/", "", map[string]string{"refresh": pair.Refresh})
	expectStatus(t, rec, http.StatusOK)
	if next := decode[auth.TokenPair](t, rec); next.Access == "" || next.Refresh == "" {
		t.Errorf("refreshed = %+v", next)
	}
	expectStatus(t, env.do(http.MethodPost, "/api/token/refresh/", "", map[string]string{"refresh": pair.Access}), http.StatusUnauthorized)

	expectStatus(t, env.do(http.MethodGet, "/api/posts/", "garbage", nil), http.StatusUnauthorized)
}

func TestPostsCRUD(t *testing.T) {
	env := defaultEnv(t)
	author, _ := env.login("author", false)
	other, _ := env.login("other", false)
	staff, _ := env.login("staff", true)

	cat := &store.Category{Name: "Writing"}
	if err := env.st.SaveCategory(t.Context(), cat); err != nil {
		t.Fatal(err)
	}

	body := map[string]any{
		"title":           "Band 7 Essay Structure",
		"content":         "<p>Plan first.</p>",
		"category":        cat.ID,
		"seo_description": "How to structure an essay",
		"tags":            []string{"#Writing", "writing", "Essays"},
		"featured_image":  "posts/cover.png",
	}
	expectStatus(t, env.do(http.MethodPost, "/api/posts/", "", body), http.StatusUnauthorized)

	rec := env.do(http.MethodPost, "/api/posts/", author, body)
	expectStatus(t, rec, http.StatusCreated)
	created := decode[PostResponse](t, rec)
	if created.Slug != "band-7-essay-structure" {
		t.Errorf("slug = %q", created.Slug)
	}
	if created.Author == nil || *created.Author != "author" {
		t.Errorf("author = %v", created.Author)
	}
	if created.CategoryName == nil || *created.CategoryName != "Writing" {
		t.Errorf("category_name = %v", created.CategoryName)
	}
	if strings.Join(created.Tags, ",") != "Writing,Essays" {
		t.Errorf("tags = %v", created.Tags)
	}
	if !created.IsIndexable {
		t.Error("posts are indexable by default")
	}
	if created.FeaturedImageURL == nil || *created.FeaturedImageURL != "http://example.com/media/posts/cover.png" {
		t.Errorf("featured_image_url = %v", created.FeaturedImageURL)
	}

	rec = env.do(http.MethodPost, "/api/posts/", author, map[string]any{"title": "  "})
	expectStatus(t, rec, http.StatusBadRequest)
	if errs := decode[FieldErrors](t, rec); len(errs["title"]) == 0 || len(errs["content"]) == 0 {
		t.Errorf("errors = %v", errs)
	}
	rec = env.do(http.MethodPost, "/api/posts/", author, map[string]any{"title": "x", "content": "y", "category": 999})
	expectStatus(t, rec, http.StatusBadRequest)

	rec = env.do(http.MethodGet, "/api/posts/band-7-essay-structure/", "", nil)
	expectStatus(t, rec, http.StatusOK)
	expectStatus(t, env.do(http.MethodGet, "/api/posts/missing/", "", nil), http.StatusNotFound)

	patch := map[string]any{"seo_title": "Essay Structure", "is_indexable": false}
	expectStatus(t, env.do(http.MethodPatch, "/api/posts/band-7-essay-structure/", other, patch), http.StatusForbidden)
	rec = env.do(http.MethodPatch, "/api/posts/band-7-essay-structure/", author, patch)
	expectStatus(t, rec, http.StatusOK)
	updated := decode[PostResponse](t, rec)
	if updated.SEOTitle != "Essay Structure" || updated.IsIndexable || updated.Title != created.Title {
		t.Errorf("patched = %+v", updated)
	}
	if len(updated.Tags) != 2 || updated.Category == nil {
		t.Errorf("patch dropped untouched fields: %+v", updated)
	}

	rec = env.do(http.MethodPut, "/api/posts/band-7-essay-structure/", staff, map[string]any{"title": "Rewritten", "content": "<p>New</p>"})
	expectStatus(t, rec, http.StatusOK)
	replaced := decode[PostResponse](t, rec)
	if replaced.Category != nil || len(replaced.Tags) != 0 || !replaced.IsIndexable || replaced.Slug != created.Slug {
		t.Errorf("put = %+v", replaced)
	}

	expectStatus(t, env.do(http.MethodDelete, "/api/posts/band-7-essay-structure/", other, nil), http.StatusForbidden)
	expectStatus(t, env.do(http.MethodDelete, "/api/posts/band-7-essay-structure/", author, nil), http.StatusNoContent)
	expectStatus(t, env.do(http.MethodGet, "/api/posts/band-7-essay-structure/", "", nil), http.StatusNotFound)
}

func TestListPosts_PaginationAndFilters(t *testing.T) {
	env := defaultEnv(t)
	_, u := env.login("author", false)

	cat := &store.Category{Name: "Speaking"}
	if err := env.st.SaveCategory(t.Context(), cat); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 12; i++ {
		p := &store.Post{Title: fmt.Sprintf("Post %02d", i), Content: "body", AuthorID: &u.ID, IsIndexable: true}
		if i%4 == 0 {
			p.CategoryID = &cat.ID
			p.Content = "fluency and coherence"
		}
		if err := env.st.CreatePost(t.Context(), p); err != nil {
			t.Fatal(err)
		}
	}

	rec := env.do(http.MethodGet, "/api/posts", "", nil)
	expectStatus(t, rec, http.StatusOK)
	page := decode[Page[PostResponse]](t, rec)
	if page.Count != 12 || len(page.Results) != PageSize {
		t.Fatalf("count = %d, results = %d", page.Count, len(page.Results))
	}
	if page.Next == nil || !strings.Contains(*page.Next, "page=2") || page.Previous != nil {
		t.Errorf("next = %v, previous = %v", page.Next, page.Previous)
	}

	rec = env.do(http.MethodGet, "/api/posts/?page=2&ordering=title", "", nil)
	expectStatus(t, rec, http.StatusOK)
	page = decode[Page[PostResponse]](t, rec)
	if len(page.Results) != 2 || page.Next != nil || page.Previous == nil {
		t.Fatalf("page 2 = %d results, next %v, previous %v", len(page.Results), page.Next, page.Previous)
	}
	if page.Results[0].Title != "Post 10" {
		t.Errorf("ordering by title: first = %q", page.Results[0].Title)
	}
	if strings.Contains(*page.Previous, "page=") || !strings.Contains(*page.Previous, "ordering=title") {
		t.Errorf("previous = %q", *page.Previous)
	}

	expectStatus(t, env.do(http.MethodGet, "/api/posts/?page=3", "", nil), http.StatusNotFound)
	expectStatus(t, env.do(http.MethodGet, "/api/posts/?page=zero", "", nil), http.StatusNotFound)

	for _, q := range []string{fmt.Sprintf("category=%d", cat.ID), "category=" + cat.Slug, "search=FLUENCY"} {
		rec = env.do(http.MethodGet, "/api/posts/?"+q, "", nil)
		expectStatus(t, rec, http.StatusOK)
		if got := decode[Page[PostResponse]](t, rec).Count; got != 3 {
			t.Errorf("%s: count = %d, want 3", q, got)
		}
	}
	rec = env.do(http.MethodGet, fmt.Sprintf("/api/posts/?author=%d", u.ID+100), "", nil)
	if got := decode[Page[PostResponse]](t, rec).Count; got != 0 {
		t.Errorf("unknown author count = %d", got)
	}
	expectStatus(t, env.do(http.MethodGet, "/api/posts/?category=nope", "", nil), http.StatusBadRequest)
}

func TestCategoriesAndTags(t *testing.T) {
	env := defaultEnv(t)
	token, u := env.login("author", false)

	expectStatus(t, env.do(http.MethodPost, "/api/categories/", "", map[string]string{"name": "Listening"}), http.StatusUnauthorized)
	rec := env.do(http.MethodPost, "/api/categories/", token, map[string]string{"name": "Listening Skills"})
	expectStatus(t, rec, http.StatusCreated)
	cat := decode[CategoryResponse](t, rec)
	if cat.Slug != "listening-skills" {
		t.Errorf("slug = %q", cat.Slug)
	}
	expectStatus(t, env.do(http.MethodPost, "/api/categories/", token, map[string]string{}), http.StatusBadRequest)

	p := &store.Post{Title: "Maps", Content: "c", CategoryID: &cat.ID, AuthorID: &u.ID}
	if err := env.st.CreatePost(t.Context(), p); err != nil {
		t.Fatal(err)
	}

	for _, key := range []string{fmt.Sprint(cat.ID), cat.Slug} {
		rec = env.do(http.MethodGet, "/api/categories/"+key+"/", "", nil)
		expectStatus(t, rec, http.StatusOK)
		if got := decode[CategoryResponse](t, rec); got.PostCount != 1 {
			t.Errorf("%s: post_count = %d", key, got.PostCount)
		}
	}
	rec = env.do(http.MethodGet, "/api/categories/", "", nil)
	if list := decode[[]CategoryResponse](t, rec); len(list) != 1 || list[0].PostCount != 1 {
		t.Errorf("list = %+v", list)
	}

	rec = env.do(http.MethodPatch, fmt.Sprintf("/api/categories/%d/", cat.ID), token, map[string]string{"slug": "listening"})
	expectStatus(t, rec, http.StatusOK)
	if got := decode[CategoryResponse](t, rec); got.Slug != "listening" || got.Name != "Listening Skills" {
		t.Errorf("patched = %+v", got)
	}
	expectStatus(t, env.do(http.MethodDelete, "/api/categories/listening/", token, nil), http.StatusNoContent)
	post, err := env.st.GetPost(t.Context(), p.Slug)
	if err != nil || post.CategoryID != nil {
		t.Errorf("post after category delete = %+v, %v", post, err)
	}

	rec = env.do(http.MethodPost, "/api/tags/", token, map[string]string{"name": "Band 9"})
	expectStatus(t, rec, http.StatusCreated)
	tag := decode[TagResponse](t, rec)
	rec = env.do(http.MethodPost, "/api/tags/", token, map[string]string{"name": "band 9"})
	expectStatus(t, rec, http.StatusBadRequest)
	if errs := decode[FieldErrors](t, rec); len(errs["name"]) == 0 {
		t.Errorf("errors = %v", errs)
	}
	rec = env.do(http.MethodPut, "/api/tags/"+tag.Slug+"/", token, map[string]string{"name": "Band Nine"})
	expectStatus(t, rec, http.StatusOK)
	renamed := decode[TagResponse](t, rec)
	expectStatus(t, env.do(http.MethodGet, "/api/tags/"+renamed.Slug+"/", "", nil), http.StatusOK)
	expectStatus(t, env.do(http.MethodDelete, "/api/tags/"+renamed.Slug+"/", token, nil), http.StatusNoContent)
	if list := decode[[]TagResponse](t, env.do(http.MethodGet, "/api/tags/", "", nil)); len(list) != 0 {
		t.Errorf("tags = %+v", list)
	}
}

func TestComments(t *testing.T) {
	env := defaultEnv(t)
	token, u := env.login("author", false)
	other, _ := env.login("other", false)

	p := &store.Post{Title: "Cue cards", Content: "c", AuthorID: &u.ID}
	if err := env.st.CreatePost(t.Context(), p); err != nil {
		t.Fatal(err)
	}

	expectStatus(t, env.do(http.MethodPost, "/api/comments/", token, map[string]any{"post": 999, "text": "hi"}), http.StatusBadRequest)
	expectStatus(t, env.do(http.MethodPost, "/api/comments/", token, map[string]any{"post": p.ID, "text": "  "}), http.StatusBadRequest)

	rec := env.do(http.MethodPost, "/api/comments/", token, map[string]any{"post": p.ID, "text": "Very useful"})
	expectStatus(t, rec, http.StatusCreated)
	cm := decode[CommentResponse](t, rec)
	if cm.Author == nil || *cm.Author != "author" || cm.Post != p.ID {
		t.Errorf("comment = %+v", cm)
	}

	rec = env.do(http.MethodGet, fmt.Sprintf("/api/comments/?post=%d", p.ID), "", nil)
	if list := decode[[]CommentResponse](t, rec); len(list) != 1 {
		t.Errorf("comments = %+v", list)
	}
	post := decode[PostResponse](t, env.do(http.MethodGet, "/api/posts/"+p.Slug+"/", "", nil))
	if len(post.Comments) != 1 || post.Comments[0].Text != "Very useful" {
		t.Errorf("post comments = %+v", post.Comments)
	}

	path := fmt.Sprintf("/api/comments/%d/", cm.ID)
	expectStatus(t, env.do(http.MethodPut, path, other, map[string]any{"text": "spam"}), http.StatusForbidden)
	rec = env.do(http.MethodPatch, path, token, map[string]any{"text": "Edited"})
	expectStatus(t, rec, http.StatusOK)
	if got := decode[CommentResponse](t, rec); got.Text != "Edited" {
		t.Errorf("text = %q", got.Text)
	}
	expectStatus(t, env.do(http.MethodDelete, path, token, nil), http.StatusNoContent)
	expectStatus(t, env.do(http.MethodGet, path, "", nil), http.StatusNotFound)
	expectStatus(t, env.do(http.MethodGet, "/api/comments/abc/", "", nil), http.StatusNotFound)
}

func TestAdSenseSettings(t *testing.T) {
	env := defaultEnv(t)
	staff, _ := env.login("staff", true)
	reader, _ := env.login("reader", false)

	rec := env.do(http.MethodGet, "/api/adsense-settings/", "", nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[AdSenseResponse](t, rec); got.Enabled || got.PublisherID != nil {
		t.Errorf("default = %+v", got)
	}
	expectStatus(t, env.do(http.MethodPut, "/api/adsense-settings/", staff, map[string]any{"enabled": true}), http.StatusMethodNotAllowed)

	update := map[string]any{"enabled": true, "publisher_id": "ca-pub-123", "homepage_ad_unit_id": "111"}
	expectStatus(t, env.do(http.MethodPut, "/admin/adsense-settings/", reader, update), http.StatusForbidden)
	expectStatus(t, env.do(http.MethodPut, "/admin/adsense-settings/", staff, update), http.StatusOK)

	got := decode[AdSenseResponse](t, env.do(http.MethodGet, "/api/adsense-settings/", "", nil))
	if !got.Enabled || got.PublisherID == nil || *got.PublisherID != "ca-pub-123" || got.PostSidebarAdUnitID != nil {
		t.Errorf("after update = %+v", got)
	}
}

func TestAdminCreatePost(t *testing.T) {
	env := defaultEnv(t)
	staff, _ := env.login("staff", true)
	reader, _ := env.login("reader", false)

	form := map[string]any{"generation_mode": "ai", "ai_topic": "IELTS Listening Section 4", "ai_tone": "academic", "featured_image": "old.png"}
	expectStatus(t, env.do(http.MethodPost, "/admin/posts/", reader, form), http.StatusForbidden)

	rec := env.do(http.MethodPost, "/admin/posts/", staff, form)
	expectStatus(t, rec, http.StatusCreated)
	res := decode[adminPostResponse](t, rec)
	if res.Mode != "ai" || !strings.HasPrefix(res.Message, "AI content generated successfully") {
		t.Errorf("result = %+v", res)
	}
	if res.Post.Title != "IELTS Listening Section 4" || res.Post.FeaturedImage != nil || len(res.Post.Tags) < 3 {
		t.Errorf("post = %+v", res.Post)
	}

	bad := map[string]any{"generation_mode": "ai", "title": "Draft title", "content": "Draft body", "ai_tone": "loud"}
	rec = env.do(http.MethodPost, "/admin/posts/", staff, bad)
	expectStatus(t, rec, http.StatusBadRequest)
	failed := decode[adminErrorResponse](t, rec)
	if len(failed.Errors["ai_topic"]) == 0 {
		t.Errorf("errors = %v", failed.Errors)
	}
	if failed.Form.Title != "Draft title" || failed.Form.Content != "Draft body" {
		t.Errorf("form not echoed: %+v", failed.Form)
	}

	req := httptest.NewRequest(http.MethodPost, "/admin/posts/", strings.NewReader("generation_mode=manual&title=Form+post&content=hello&is_indexable=false"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+staff)
	rec = httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	expectStatus(t, rec, http.StatusCreated)
	if res := decode[adminPostResponse](t, rec); res.Post.IsIndexable || res.Post.Title != "Form post" {
		t.Errorf("form-encoded post = %+v", res.Post)
	}
}

func TestSitemapXML(t *testing.T) {
	env := defaultEnv(t)
	_, u := env.login("author", false)
	for _, p := range []*store.Post{
		{Title: "Visible", Content: "c", AuthorID: &u.ID, IsIndexable: true},
		{Title: "Hidden", Content: "c", AuthorID: &u.ID, IsIndexable: false},
	} {
		if err := env.st.CreatePost(t.Context(), p); err != nil {
			t.Fatal(err)
		}
	}

	rec := env.do(http.MethodGet, "/sitemap.xml", "", nil)
	expectStatus(t, rec, http.StatusOK)
	if ct := rec.Header().Get(echo.HeaderContentType); !strings.HasPrefix(ct, "application/xml") {
		t.Errorf("content type = %q", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<loc>https://example.com/posts/visible</loc>") {
		t.Errorf("missing indexable post: %s", body)
	}
	if strings.Contains(body, "hidden") {
		t.Errorf("non-indexable post listed: %s", body)
	}
}

func TestUnknownRoute(t *testing.T) {
	env := defaultEnv(t)
	rec := env.do(http.MethodGet, "/api/nothing/", "", nil)
	expectStatus(t, rec, http.StatusNotFound)
	if got := decode[DetailResponse](t, rec); got.Detail != "Not found." {
		t.Errorf("detail = %q", got.Detail)
	}
}

func TestAdminUpdatePost(t *testing.T) {
	env := defaultEnv(t)
	staff, _ := env.login("staff", true)
	_, author := env.login("author", false)

	p := &store.Post{Title: "Old title", Content: "old", AuthorID: &author.ID, IsIndexable: true}
	if err := env.st.CreatePost(t.Context(), p); err != nil {
		t.Fatal(err)
	}

	form := map[string]any{"generation_mode": "ai", "ai_topic": "IELTS Writing Task 1 maps"}
	rec := env.do(http.MethodPut, "/admin/posts/"+p.Slug+"/", staff, form)
	expectStatus(t, rec, http.StatusOK)
	res := decode[adminPostResponse](t, rec)
	if res.Post.Slug != p.Slug || res.Post.Title != "IELTS Writing Task 1 maps" || res.Mode != "ai" {
		t.Errorf("post = %+v", res.Post)
	}
	if res.Post.Author == nil || *res.Post.Author != "author" {
		t.Errorf("author = %v", res.Post.Author)
	}

	expectStatus(t, env.do(http.MethodPut, "/admin/posts/missing/", staff, form), http.StatusNotFound)
}

package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"blog_backend/config"
	"blog_backend/generator"
	"blog_backend/store"
)

// isolate 清理会影响 config.Load 的环境变量。
func isolate(t *testing.T) {
	t.Helper()
	for _, k := range []string{"OPENAI_API_KEY", "GEMINI_API_KEY", "OPENAI_BASE_URL", "OPENAI_MODEL", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	t.Setenv("LLM_PROVIDER", "mock")
	t.Setenv("DATABASE_DSN", filepath.Join(t.TempDir(), "blog.db"))
	configPath = config.DefaultPath
	logLevel = ""
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(t.Context())
	return out.String(), err
}

func TestBuildLLM(t *testing.T) {
	base := config.Config{LLM: config.LLMConfig{Model: "m", APIKey: "k", TimeoutSeconds: 5}}

	cfg := base
	cfg.LLM.Provider = "mock"
	llm, err := buildLLM(t.Context(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := llm.(*generator.MockLLM); !ok {
		t.Errorf("mock provider built %T", llm)
	}

	cfg = base
	cfg.LLM.Provider = "gemini"
	cfg.LLM.GeminiAPIKey = "gk-test"
	llm, err = buildLLM(t.Context(), cfg)
	if err != nil {
		t.Fatalf("gemini: %v", err)
	}
	if _, ok := llm.(*generator.GeminiLLM); !ok {
		t.Errorf("gemini provider built %T", llm)
	}

	cfg = base
	cfg.LLM.Provider = "openai"
	if _, err := buildLLM(t.Context(), cfg); err != nil {
		t.Errorf("openai: %v", err)
	}

	cfg = base
	cfg.LLM.Provider = "deepseek"
	if _, err := buildLLM(t.Context(), cfg); err == nil || !strings.Contains(err.Error(), "base_url") {
		t.Errorf("deepseek without base_url: err = %v", err)
	}
	cfg.LLM.BaseURL = "https://api.deepseek.com/v1"
	if _, err := buildLLM(t.Context(), cfg); err != nil {
		t.Errorf("deepseek: %v", err)
	}

	cfg = base
	cfg.LLM.Provider = "claude"
	if _, err := buildLLM(t.Context(), cfg); err == nil {
		t.Error("unknown provider accepted")
	}
}

func TestGenerateCommand_MockUsesConfiguredLimits(t *testing.T) {
	isolate(t)
	t.Setenv("GENERATION_MIN_WORDS", "1500")
	t.Setenv("GENERATION_MAX_WORDS", "2000")
	t.Setenv("GENERATION_TARGET_WORDS", "1600")
	t.Setenv("GENERATION_MIN_TAGS", "5")
	t.Cleanup(func() { genJSON = false })

	out, err := run(t, "", "generate", "IELTS Listening Section 3", "--json")
	if err != nil {
		t.Fatalf("generate: %v\n%s", err, out)
	}
	var post generator.GeneratedPost
	if err := json.Unmarshal([]byte(out), &post); err != nil {
		t.Fatalf("output is not json: %v\n%s", err, out)
	}
	if n := generator.WordCount(post.Content); n != 1600 {
		t.Errorf("words = %d, want 1600", n)
	}
	if len(post.Tags) < 5 {
		t.Errorf("tags = %v", post.Tags)
	}
}

func TestNewAgent_NoKey(t *testing.T) {
	isolate(t)
	t.Setenv("LLM_PROVIDER", "openai")
	cfg, err := config.Load(config.DefaultPath)
	if err != nil {
		t.Fatal(err)
	}
	logger := newLogger(&bytes.Buffer{}, cfg.Level(), false)
	agent, err := newAgent(t.Context(), cfg, &logger)
	if err != nil {
		t.Fatal(err)
	}
	_, err = agent.Generate(t.Context(), generator.Request{Topic: "Band 7 vocabulary"})
	if !errors.Is(err, generator.ErrConfiguration) {
		t.Fatalf("err = %v, want configuration error", err)
	}
}

func TestGenerateCommand_JSON(t *testing.T) {
	isolate(t)
	t.Cleanup(func() { genJSON, genKeywords, genTone = false, "", "expert" })

	out, err := run(t, "", "generate", "IELTS Writing Task 2 opinion essays", "--tone", "academic", "--json")
	if err != nil {
		t.Fatalf("generate: %v\n%s", err, out)
	}
	var post generator.GeneratedPost
	if err := json.Unmarshal([]byte(out), &post); err != nil {
		t.Fatalf("output is not json: %v\n%s", err, out)
	}
	if post.Title == "" || post.Content == "" {
		t.Errorf("empty post: %+v", post)
	}
	if len(post.Tags) < 3 {
		t.Errorf("tags = %v", post.Tags)
	}
}

func TestGenerateCommand_InvalidTone(t *testing.T) {
	isolate(t)
	t.Cleanup(func() { genTone = "expert" })

	_, err := run(t, "", "generate", "Reading tips", "--tone", "sarcastic")
	if !errors.Is(err, generator.ErrInvalidTone) {
		t.Fatalf("err = %v, want invalid tone", err)
	}
}

func TestCreateUserCommand(t *testing.T) {
	isolate(t)
	dsn := filepath.Join(t.TempDir(), "users.db")
	t.Setenv("DATABASE_DSN", dsn)
	t.Cleanup(func() { userEmail, userPassword, userStaff = "", "", false })

	out, err := run(t, "password123\n", "createuser", "alice", "--email", "alice@example.com")
	if err != nil {
		t.Fatalf("createuser: %v", err)
	}
	if !strings.Contains(out, "created user alice") {
		t.Errorf("output = %q", out)
	}

	if _, err := run(t, "password123\n", "createuser", "alice"); err == nil {
		t.Error("duplicate user accepted")
	}
	if _, err := run(t, "", "createuser", "alice", "--staff"); err != nil {
		t.Fatalf("promote: %v", err)
	}
	userStaff = false
	if _, err := run(t, "", "createuser", "bob", "--password", "short"); err == nil {
		t.Error("short password accepted")
	}
	userPassword = ""

	st, err := store.Open(dsn, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	u, err := st.GetUserByUsername(t.Context(), "alice")
	if err != nil {
		t.Fatal(err)
	}
	if !u.IsStaff || u.Email != "alice@example.com" {
		t.Errorf("user = %+v", u)
	}
}

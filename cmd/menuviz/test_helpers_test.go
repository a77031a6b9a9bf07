package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jaswdr/faker"

	"menuviz/internal/config"
	"menuviz/internal/daemon"
	"menuviz/internal/extraction"
	"menuviz/internal/menu"
	"menuviz/internal/session"
	"menuviz/internal/testsupport"
)

type menuExtractor struct{}

func (menuExtractor) Extract(_ context.Context, mode menu.Mode, _ []byte, _ string) (extraction.Result, error) {
	return extraction.Result{
		Mode:           mode,
		RestaurantName: "Chez Test",
		Dishes: []menu.RawDish{
			{Name: "Soup", Description: "Onion soup", Price: "$8", Tags: []string{"Vegan"}},
			{Name: "Steak", Description: "Grilled", Price: "$24", Tags: []string{"Beef"}},
		},
	}, nil
}

type cliTestEnv struct {
	cfg        *config.Config
	daemon     *daemon.Daemon
	configPath string
	imagePath  string
	token      string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	fake := faker.New()
	token := "tok-" + fake.Lorem().Word() + fake.Lorem().Word()
	cfg := testsupport.NewConfig(t, testsupport.WithAPIToken(token))

	st := testsupport.MustOpenStore(t, cfg)
	state := testsupport.NewState(t, cfg, st)
	sess := session.New(session.Deps{Extractor: menuExtractor{}, State: state})
	d, err := daemon.New(cfg, st, state, sess, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		d.Close()
	})
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	cfg.Paths.APIBind = d.APIAddr()

	configPath := filepath.Join(homeDir, ".config", "menuviz", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, cfg)

	imagePath := filepath.Join(base, "menu.jpg")
	testsupport.WriteImage(t, imagePath, 2048)

	return &cliTestEnv{
		cfg:        cfg,
		daemon:     d,
		configPath: configPath,
		imagePath:  imagePath,
		token:      token,
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\ndata_dir = %q\nlog_dir = %q\napi_bind = %q\napi_token = %q\n\n[llm]\napi_key = %q\n\n[camera]\nmonitor = false\n\n[analytics]\nenabled = false\n",
		cfg.Paths.DataDir,
		cfg.Paths.LogDir,
		cfg.Paths.APIBind,
		cfg.Paths.APIToken,
		cfg.LLM.APIKey,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func requireNotContains(t *testing.T, output, substr string) {
	t.Helper()
	if strings.Contains(output, substr) {
		t.Fatalf("expected %q not to contain %q", output, substr)
	}
}

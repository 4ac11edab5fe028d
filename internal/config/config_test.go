package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tszym/driveframe/internal/model"
	"github.com/tszym/driveframe/internal/testutil"
)

func writeConfigFile(t *testing.T, path string, cfg model.Config) {
	t.Helper()
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &model.Config{FolderID: "f1", Token: "Bearer  tok "}
	ApplyDefaults(cfg)

	if cfg.SyncIntervalSeconds != model.DefaultSyncIntervalSeconds {
		t.Errorf("sync interval default not applied: %d", cfg.SyncIntervalSeconds)
	}
	if cfg.SlideshowDelaySeconds != model.DefaultSlideshowDelaySeconds {
		t.Errorf("slideshow delay default not applied: %d", cfg.SlideshowDelaySeconds)
	}
	if cfg.VideoTimeoutSeconds != model.DefaultVideoTimeoutSeconds {
		t.Errorf("video timeout default not applied: %d", cfg.VideoTimeoutSeconds)
	}
	if cfg.ImageRenderer != "feh" || cfg.VideoRenderer != "cvlc" {
		t.Errorf("renderer defaults not applied: %q %q", cfg.ImageRenderer, cfg.VideoRenderer)
	}
	if len(cfg.ImageExtensions) == 0 || len(cfg.VideoExtensions) == 0 {
		t.Error("extension defaults not applied")
	}
	if cfg.Token != "tok" {
		t.Errorf("token should be trimmed of whitespace and Bearer prefix, got %q", cfg.Token)
	}
	if cfg.MediaDir != "media" {
		t.Errorf("media dir default not applied: %q", cfg.MediaDir)
	}
}

func TestValidate_RequiresFolderID(t *testing.T) {
	cfg := &model.Config{MediaDir: t.TempDir()}
	ApplyDefaults(cfg)
	cfg.FolderID = ""
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for missing folderId")
	}
}

func TestValidate_CreatesMediaDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "media", "nested")
	cfg := &model.Config{FolderID: "f1", MediaDir: dir}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("media dir not created: %v", err)
	}
}

func TestValidateExtensionSets(t *testing.T) {
	cases := []struct {
		name    string
		images  []string
		videos  []string
		wantErr bool
	}{
		{"valid", []string{".jpg"}, []string{".mp4"}, false},
		{"overlap", []string{".jpg", ".webm"}, []string{".webm"}, true},
		{"no dot", []string{"jpg"}, nil, true},
		{"uppercase", []string{".JPG"}, nil, true},
		{"dup within set", []string{".jpg", ".jpg"}, []string{".mp4"}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := validateExtensionSets(c.images, c.videos)
			if (err != nil) != c.wantErr {
				t.Fatalf("got err=%v, wantErr=%v", err, c.wantErr)
			}
		})
	}
}

func TestReadConfig_SearchOrder(t *testing.T) {
	home := testutil.WithTempHome(t)
	testutil.ChdirTemp(t)

	writeConfigFile(t, filepath.Join(home, ".driveframe", "config.json"),
		model.Config{FolderID: "from-home"})

	cfg, err := ReadConfig()
	if err != nil {
		t.Fatalf("ReadConfig failed: %v", err)
	}
	if cfg.FolderID != "from-home" {
		t.Fatalf("unexpected config loaded: %+v", cfg)
	}

	// A config in the working directory wins over the home locations.
	writeConfigFile(t, "config.json", model.Config{FolderID: "from-cwd"})
	cfg, err = ReadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.FolderID != "from-cwd" {
		t.Fatalf("cwd config should take precedence, got %+v", cfg)
	}
}

func TestReadConfig_Missing(t *testing.T) {
	testutil.WithTempHome(t)
	testutil.ChdirTemp(t)
	if _, err := ReadConfig(); err == nil {
		t.Fatal("expected error when no config exists")
	}
}

func TestReadConfig_FixesInsecurePermissions(t *testing.T) {
	testutil.WithTempHome(t)
	tmp := testutil.ChdirTemp(t)

	writeConfigFile(t, "config.json", model.Config{FolderID: "f1", Token: "secret"})
	if err := os.Chmod("config.json", 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := ReadConfig(); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(filepath.Join(tmp, "config.json"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Fatalf("expected chmod 600 auto-fix, got %04o", info.Mode().Perm())
	}
}

func TestParseCfg_ArgsOverrideConfig(t *testing.T) {
	testutil.WithTempHome(t)
	testutil.ChdirTemp(t)

	writeConfigFile(t, "config.json", model.Config{
		FolderID:              "folder-from-file",
		Token:                 "tok",
		SlideshowDelaySeconds: 5,
	})

	args := &model.Args{
		FolderID:       "folder-from-cli",
		SlideshowDelay: 12,
		Framebuffer:    true,
		Verbose:        true,
	}
	cfg, err := ParseCfg(args)
	if err != nil {
		t.Fatalf("ParseCfg failed: %v", err)
	}
	if cfg.FolderID != "folder-from-cli" {
		t.Errorf("CLI folder id should win, got %q", cfg.FolderID)
	}
	if cfg.SlideshowDelaySeconds != 12 {
		t.Errorf("CLI delay should win, got %d", cfg.SlideshowDelaySeconds)
	}
	if cfg.ImageRenderer != "fbi" {
		t.Errorf("--framebuffer should select fbi, got %q", cfg.ImageRenderer)
	}
	if !cfg.Verbose {
		t.Error("verbose flag not propagated")
	}
}

func TestParseCfg_DefaultDelaySentinel(t *testing.T) {
	testutil.WithTempHome(t)
	testutil.ChdirTemp(t)

	writeConfigFile(t, "config.json", model.Config{
		FolderID:              "f1",
		Token:                 "tok",
		SlideshowDelaySeconds: 5,
	})

	// -1 means "not given on the command line": the file value must survive.
	cfg, err := ParseCfg(&model.Args{SlideshowDelay: -1})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SlideshowDelaySeconds != 5 {
		t.Fatalf("file value should survive when flag absent, got %d", cfg.SlideshowDelaySeconds)
	}
}

func TestWriteConfig_RoundTrip(t *testing.T) {
	testutil.WithTempHome(t)
	testutil.ChdirTemp(t)

	original := model.Config{FolderID: "f1", Token: "tok", MediaDir: "media"}
	writeConfigFile(t, "config.json", original)

	cfg, err := ReadConfig()
	if err != nil {
		t.Fatal(err)
	}
	cfg.SlideshowDelaySeconds = 15
	if err := WriteConfig(cfg); err != nil {
		t.Fatalf("WriteConfig failed: %v", err)
	}

	reread, err := ReadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if reread.SlideshowDelaySeconds != 15 {
		t.Fatalf("written value lost: %+v", reread)
	}
	if !strings.HasSuffix(LoadedConfigPath, "config.json") {
		t.Fatalf("unexpected loaded path: %q", LoadedConfigPath)
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := &model.Config{
		SyncIntervalSeconds:   300,
		SlideshowDelaySeconds: 8,
		VideoTimeoutSeconds:   600,
	}
	if SyncInterval(cfg) != 5*time.Minute {
		t.Errorf("unexpected sync interval: %v", SyncInterval(cfg))
	}
	if SlideshowDelay(cfg) != 8*time.Second {
		t.Errorf("unexpected slideshow delay: %v", SlideshowDelay(cfg))
	}
	if VideoTimeout(cfg) != 10*time.Minute {
		t.Errorf("unexpected video timeout: %v", VideoTimeout(cfg))
	}
}

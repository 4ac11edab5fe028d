package config

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/tszym/driveframe/internal/model"
	"github.com/tszym/driveframe/internal/ui"
)

// LoadedConfigPath tracks which config file was loaded so WriteConfig can
// save to the same location.
var LoadedConfigPath string

// ParseArgs parses CLI arguments using go-arg.
func ParseArgs() *model.Args {
	var args model.Args
	arg.MustParse(&args)
	return &args
}

// ParseCfg reads the config file, applies defaults, overlays CLI args, and
// returns the resolved Config.
func ParseCfg(args *model.Args) (*model.Config, error) {
	cfg, err := ReadConfig()
	if err != nil {
		return nil, err
	}
	if args.FolderID != "" {
		cfg.FolderID = args.FolderID
	}
	if args.MediaDir != "" {
		cfg.MediaDir = args.MediaDir
	}
	if args.SlideshowDelay >= 0 {
		cfg.SlideshowDelaySeconds = args.SlideshowDelay
	}
	if args.Framebuffer {
		cfg.ImageRenderer = "fbi"
	}
	if args.Verbose {
		cfg.Verbose = true
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills unset fields with the documented defaults from
// internal/model. The config struct is the only place these knobs live; no
// package carries its own mutable globals.
func ApplyDefaults(cfg *model.Config) {
	if cfg.SyncIntervalSeconds <= 0 {
		cfg.SyncIntervalSeconds = model.DefaultSyncIntervalSeconds
	}
	if cfg.SlideshowDelaySeconds <= 0 {
		cfg.SlideshowDelaySeconds = model.DefaultSlideshowDelaySeconds
	}
	if cfg.VideoTimeoutSeconds <= 0 {
		cfg.VideoTimeoutSeconds = model.DefaultVideoTimeoutSeconds
	}
	if len(cfg.ImageExtensions) == 0 {
		cfg.ImageExtensions = append([]string(nil), model.DefaultImageExtensions...)
	}
	if len(cfg.VideoExtensions) == 0 {
		cfg.VideoExtensions = append([]string(nil), model.DefaultVideoExtensions...)
	}
	if strings.TrimSpace(cfg.ImageRenderer) == "" {
		cfg.ImageRenderer = model.DefaultImageRenderer
	}
	if strings.TrimSpace(cfg.VideoRenderer) == "" {
		cfg.VideoRenderer = model.DefaultVideoRenderer
	}
	if strings.TrimSpace(cfg.MediaDir) == "" {
		cfg.MediaDir = "media"
	}
	cfg.MediaDir = strings.TrimSpace(cfg.MediaDir)
	cfg.FolderID = strings.TrimSpace(cfg.FolderID)
	cfg.Token = strings.TrimPrefix(strings.TrimSpace(cfg.Token), "Bearer ")
}

// Validate rejects configs the engines cannot run with. The media directory
// is created when missing rather than rejected; a first run has no cache yet.
func Validate(cfg *model.Config) error {
	if cfg.FolderID == "" {
		return errors.New("folderId is not set (use --folder-id, config.json, or run 'driveframe setup')")
	}
	if err := validateExtensionSets(cfg.ImageExtensions, cfg.VideoExtensions); err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.MediaDir, 0755); err != nil {
		return fmt.Errorf("failed to create media directory %s: %w", cfg.MediaDir, err)
	}
	return nil
}

// validateExtensionSets enforces lowercase dot-prefixed extensions and keeps
// the image and video sets disjoint.
func validateExtensionSets(images, videos []string) error {
	seen := make(map[string]string, len(images)+len(videos))
	check := func(set []string, kind string) error {
		for _, ext := range set {
			if !strings.HasPrefix(ext, ".") || ext != strings.ToLower(ext) {
				return fmt.Errorf("invalid %s extension %q (must be lowercase and start with a dot)", kind, ext)
			}
			if prev, dup := seen[ext]; dup && prev != kind {
				return fmt.Errorf("extension %q appears in both image and video sets", ext)
			}
			seen[ext] = kind
		}
		return nil
	}
	if err := check(images, "image"); err != nil {
		return err
	}
	return check(videos, "video")
}

// ReadConfig reads the config file from known locations.
func ReadConfig() (*model.Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	configPaths := []string{
		"config.json",
		filepath.Join(homeDir, ".driveframe", "config.json"),
		filepath.Join(homeDir, ".config", "driveframe", "config.json"),
	}

	var data []byte
	var configPath string
	var lastErr error

	for _, path := range configPaths {
		data, err = os.ReadFile(path)
		if err == nil {
			configPath = path
			break
		}
		lastErr = err
	}

	if data == nil {
		return nil, fmt.Errorf("config file not found in any location (./config.json, ~/.driveframe/config.json, ~/.config/driveframe/config.json): %w", lastErr)
	}

	var obj model.Config
	err = json.Unmarshal(data, &obj)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config at %s: %w", configPath, err)
	}

	LoadedConfigPath = configPath

	// The config carries an API token and should only be readable by the owner.
	fileInfo, err := os.Stat(configPath)
	if err == nil {
		mode := fileInfo.Mode()
		if mode.Perm()&0077 != 0 {
			fmt.Fprintf(os.Stderr, "%s WARNING: Config file has insecure permissions (%04o)\n", ui.ColorYellow+ui.SymbolWarning+ui.ColorReset, mode.Perm())
			fmt.Fprintf(os.Stderr, "   File: %s\n", configPath)
			if runtime.GOOS != "windows" {
				if chmodErr := os.Chmod(configPath, 0600); chmodErr != nil {
					fmt.Fprintf(os.Stderr, "   Auto-fix failed: %v\n", chmodErr)
					fmt.Fprintf(os.Stderr, "   Fix manually: chmod 600 %s\n\n", configPath)
				} else {
					fmt.Fprintf(os.Stderr, "   Auto-fix applied: chmod 600 %s\n\n", configPath)
				}
			} else {
				fmt.Fprintf(os.Stderr, "   Windows ACLs in use; skipping chmod auto-fix\n\n")
			}
		}
	}

	return &obj, nil
}

// WriteConfig writes the config to the same file that was loaded by ReadConfig.
func WriteConfig(cfg *model.Config) error {
	configData, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	targetPath := LoadedConfigPath
	if targetPath == "" {
		targetPath = "config.json"
	}

	dir := filepath.Dir(targetPath)
	if dir != "." {
		if mkErr := os.MkdirAll(dir, 0755); mkErr != nil {
			return fmt.Errorf("failed to create config directory %s: %w", dir, mkErr)
		}
	}

	err = os.WriteFile(targetPath, configData, 0600)
	if err != nil {
		return fmt.Errorf("failed to write config to %s: %w", targetPath, err)
	}

	return nil
}

// SyncInterval returns the reconciliation loop interval as a Duration.
func SyncInterval(cfg *model.Config) time.Duration {
	return time.Duration(cfg.SyncIntervalSeconds) * time.Second
}

// SlideshowDelay returns the per-image display time as a Duration.
func SlideshowDelay(cfg *model.Config) time.Duration {
	return time.Duration(cfg.SlideshowDelaySeconds) * time.Second
}

// VideoTimeout returns the fallback display time for videos whose duration
// could not be probed.
func VideoTimeout(cfg *model.Config) time.Duration {
	return time.Duration(cfg.VideoTimeoutSeconds) * time.Second
}

// PromptForConfig runs the interactive first-time setup flow.
func PromptForConfig() error {
	scanner := bufio.NewScanner(os.Stdin)
	ui.PrintHeader("First Time Setup")
	ui.PrintInfo("No config.json found. Let's create one!")
	fmt.Println()

	fmt.Printf("%s%s%s Enter the Drive folder ID to sync: ", ui.ColorCyan, ui.BulletArrow, ui.ColorReset)
	scanner.Scan()
	folderID := strings.TrimSpace(scanner.Text())
	if folderID == "" {
		return errors.New("folder ID is required")
	}

	fmt.Printf("%s%s%s Enter the Drive API access token: ", ui.ColorCyan, ui.BulletArrow, ui.ColorReset)
	scanner.Scan()
	token := strings.TrimSpace(scanner.Text())
	if token == "" {
		return errors.New("access token is required")
	}

	fmt.Printf("%s%s%s Enter the media cache directory (default: media): ", ui.ColorCyan, ui.BulletArrow, ui.ColorReset)
	scanner.Scan()
	mediaDir := strings.TrimSpace(scanner.Text())
	if mediaDir == "" {
		mediaDir = "media"
	}

	fmt.Printf("%s%s%s Seconds each image stays on screen (default: %d): ", ui.ColorCyan, ui.BulletArrow, ui.ColorReset, model.DefaultSlideshowDelaySeconds)
	scanner.Scan()
	delayStr := strings.TrimSpace(scanner.Text())
	delay := model.DefaultSlideshowDelaySeconds
	if delayStr != "" {
		var err error
		delay, err = strconv.Atoi(delayStr)
		if err != nil || delay < 1 {
			return errors.New("slideshow delay must be a positive integer")
		}
	}

	fmt.Printf("%s%s%s Use the framebuffer (fbi) for images instead of feh? [y/N]: ", ui.ColorCyan, ui.BulletArrow, ui.ColorReset)
	scanner.Scan()
	fbStr := strings.ToLower(strings.TrimSpace(scanner.Text()))
	imageRenderer := model.DefaultImageRenderer
	if fbStr == "y" || fbStr == "yes" {
		imageRenderer = "fbi"
	}

	cfg := model.Config{
		FolderID:              folderID,
		Token:                 token,
		MediaDir:              mediaDir,
		SlideshowDelaySeconds: delay,
		ImageRenderer:         imageRenderer,
	}

	data, err := json.MarshalIndent(cfg, "", "    ")
	if err != nil {
		return err
	}

	err = os.WriteFile("config.json", data, 0600)
	if err != nil {
		return err
	}

	fmt.Println()
	ui.PrintSuccess("config.json created successfully!")
	ui.PrintInfo("You can edit config.json later to change these settings.")
	fmt.Println()
	return nil
}

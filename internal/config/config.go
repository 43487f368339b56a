package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
	"spotload/pkg/models"
)

const (
	DefaultDownloadDir     = "~/Music/spotload"
	DefaultQuality         = "320"
	DefaultFFmpegImage     = "linuxserver/ffmpeg:latest"
	DefaultCredentialsFile = "credentials.txt"
	ConfigDir              = ".spotload"
	ConfigFile             = "spotload.yml"

	TranscoderLocal  = "local"
	TranscoderDocker = "docker"
)

// Qualities lists the accepted bitrate targets in kbps.
var Qualities = []string{"128", "192", "320"}

func IsQuality(s string) bool {
	for _, q := range Qualities {
		if s == q {
			return true
		}
	}
	return false
}

func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ConfigDir), nil
}

func EnsureConfigDir() error {
	configDir, err := GetConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(configDir, 0755)
}

func defaults() *models.Config {
	return &models.Config{
		DownloadDir: DefaultDownloadDir,
		Quality:     DefaultQuality,
		Transcoder:  TranscoderLocal,
		FFmpegImage: DefaultFFmpegImage,
		TagFiles:    true,
	}
}

func LoadConfig() (*models.Config, error) {
	if err := EnsureConfigDir(); err != nil {
		return nil, err
	}

	configDir, err := GetConfigDir()
	if err != nil {
		return nil, err
	}

	configPath := filepath.Join(configDir, ConfigFile)
	config := defaults()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// First run: write the defaults so the user has something to edit
		return config, SaveConfig(config)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if config.DownloadDir == "" {
		config.DownloadDir = DefaultDownloadDir
	}
	if config.Quality == "" {
		config.Quality = DefaultQuality
	}
	if config.Transcoder == "" {
		config.Transcoder = TranscoderLocal
	}
	if config.FFmpegImage == "" {
		config.FFmpegImage = DefaultFFmpegImage
	}

	return config, nil
}

func SaveConfig(config *models.Config) error {
	configDir, err := GetConfigDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(configDir, ConfigFile)
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(configPath, data, 0600)
}

// LoadCredentials reads a KEY=VALUE credentials file. Both the SPOTIPY_*
// keys of the classic credentials.txt and SPOTIFY_ID/SPOTIFY_SECRET are accepted.
func LoadCredentials(path string) (id, secret string, err error) {
	values, err := godotenv.Read(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to read credentials file %s: %w", path, err)
	}

	id = firstNonEmpty(values["SPOTIFY_ID"], values["SPOTIPY_CLIENT_ID"])
	secret = firstNonEmpty(values["SPOTIFY_SECRET"], values["SPOTIPY_CLIENT_SECRET"])
	return id, secret, nil
}

// Flags carries command line overrides. Empty fields leave the config untouched.
type Flags struct {
	SpotifyID       string
	SpotifySecret   string
	CredentialsFile string
	DownloadDir     string
	Transcoder      string
}

// MergeWithFlags merges configuration with command line flags, a credentials
// file and environment variables.
// Priority: flags > credentials file > config file > environment variables
func MergeWithFlags(config *models.Config, flags Flags) error {
	credsPath := flags.CredentialsFile
	if credsPath == "" {
		if _, err := os.Stat(DefaultCredentialsFile); err == nil {
			credsPath = DefaultCredentialsFile
		}
	}
	if credsPath != "" {
		id, secret, err := LoadCredentials(credsPath)
		if err != nil {
			return err
		}
		if id != "" {
			config.SpotifyID = id
		}
		if secret != "" {
			config.SpotifySecret = secret
		}
	}

	if flags.SpotifyID != "" {
		config.SpotifyID = flags.SpotifyID
	} else if envID := os.Getenv("SPOTIFY_ID"); envID != "" && config.SpotifyID == "" {
		config.SpotifyID = envID
	}

	if flags.SpotifySecret != "" {
		config.SpotifySecret = flags.SpotifySecret
	} else if envSecret := os.Getenv("SPOTIFY_SECRET"); envSecret != "" && config.SpotifySecret == "" {
		config.SpotifySecret = envSecret
	}

	if flags.DownloadDir != "" {
		config.DownloadDir = flags.DownloadDir
	} else if envDir := os.Getenv("SPOTLOAD_DOWNLOAD_DIR"); envDir != "" && config.DownloadDir == DefaultDownloadDir {
		config.DownloadDir = envDir
	}

	if flags.Transcoder != "" {
		config.Transcoder = flags.Transcoder
	}

	return nil
}

func ValidateConfig(config *models.Config) error {
	if config.SpotifyID == "" {
		return fmt.Errorf("spotify ID is required (--spotify-id, credentials file, config file, or SPOTIFY_ID env var)")
	}
	if config.SpotifySecret == "" {
		return fmt.Errorf("spotify secret is required (--spotify-secret, credentials file, config file, or SPOTIFY_SECRET env var)")
	}
	if !IsQuality(config.Quality) {
		return fmt.Errorf("invalid quality %q (expected one of %s)", config.Quality, strings.Join(Qualities, ", "))
	}
	if config.Transcoder != TranscoderLocal && config.Transcoder != TranscoderDocker {
		return fmt.Errorf("invalid transcoder %q (expected %q or %q)", config.Transcoder, TranscoderLocal, TranscoderDocker)
	}
	return nil
}

// ExpandHome resolves a leading "~/" against the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	if path == "~" {
		return homeDir, nil
	}
	return filepath.Join(homeDir, path[2:]), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

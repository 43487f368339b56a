package models

type Config struct {
	SpotifyID     string `yaml:"spotify_id"`
	SpotifySecret string `yaml:"spotify_secret"`
	DownloadDir   string `yaml:"download_dir"`
	Quality       string `yaml:"quality"`
	Transcoder    string `yaml:"transcoder"`
	FFmpegImage   string `yaml:"ffmpeg_image"`
	TagFiles      bool   `yaml:"tag_files"`
	VerboseFetch  bool   `yaml:"verbose_fetch"`
}

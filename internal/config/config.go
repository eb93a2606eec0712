// Package config loads audiowave settings from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Store providers.
const (
	StoreCloudinary = "cloudinary"
	StoreS3         = "s3"
	StoreGDrive     = "gdrive"
	StoreLocalFS    = "localfs"
)

// Renderer backends.
const (
	RendererFFmpeg = "ffmpeg"
	RendererHTTP   = "http"
)

type Config struct {
	HTTPPort        string        `validate:"required,numeric"`
	ServiceName     string        `validate:"required"`
	ShutdownTimeout time.Duration `validate:"gt=0"`
	RequestTimeout  time.Duration
	CORSOrigins     []string
	MaxUploadMB     int    `validate:"min=1"`
	RedisAddr       string `validate:"omitempty,hostname_port"`
	MetricsEnabled  bool

	Store    StoreConfig
	Renderer RendererConfig
	Pipeline PipelineConfig
}

type StoreConfig struct {
	Provider   string           `validate:"oneof=cloudinary s3 gdrive localfs"`
	Cloudinary CloudinaryConfig `validate:"-"`
	S3         S3Config         `validate:"-"`
	GDrive     GDriveConfig     `validate:"-"`
	Local      LocalConfig      `validate:"-"`
}

type CloudinaryConfig struct {
	CloudName string `validate:"required"`
	APIKey    string `validate:"required"`
	APISecret string `validate:"required"`
}

type S3Config struct {
	Bucket          string `validate:"required"`
	Region          string
	Endpoint        string `validate:"omitempty,url"`
	AccessKeyID     string `validate:"required_with=SecretAccessKey"`
	SecretAccessKey string `validate:"required_with=AccessKeyID"`
	PublicURL       string `validate:"omitempty,url"`
	UsePathStyle    bool
}

type GDriveConfig struct {
	ClientID     string `validate:"required"`
	ClientSecret string `validate:"required"`
	RefreshToken string `validate:"required"`
	FolderID     string
}

type LocalConfig struct {
	Root    string `validate:"required"`
	BaseURL string
}

type RendererConfig struct {
	Backend     string `validate:"oneof=ffmpeg http"`
	FFmpegBin   string
	FFprobeBin  string
	FontFile    string
	HTTPBaseURL string `validate:"required_if=Backend http,omitempty,url"`
}

type PipelineConfig struct {
	VideosDir    string `validate:"required"`
	UploadsDir   string `validate:"required"`
	Compositing  string `validate:"oneof=auto store render"`
	Folder       string
	OverlayStyle string
	Timeout      time.Duration `validate:"gte=0"`
}

// Load reads .env (when present) and the environment, then validates the
// result.
func Load() (*Config, error) {
	if err := LoadDotEnv(); err != nil {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv builds a Config from the environment without validating it.
func FromEnv() *Config {
	return &Config{
		HTTPPort:        Env("HTTP_PORT", "8080"),
		ServiceName:     Env("SERVICE_NAME", "audiowave"),
		ShutdownTimeout: EnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		RequestTimeout:  EnvDuration("REQUEST_TIMEOUT", 0),
		CORSOrigins:     EnvCSV("CORS_ALLOWED_ORIGINS"),
		MaxUploadMB:     EnvInt("MAX_UPLOAD_MB", 100),
		RedisAddr:       Env("REDIS_ADDR", ""),
		MetricsEnabled:  EnvBool("METRICS_ENABLED", true),
		Store: StoreConfig{
			Provider: strings.ToLower(Env("ASSET_STORE", StoreLocalFS)),
			Cloudinary: CloudinaryConfig{
				CloudName: Env("CLOUD_NAME", ""),
				APIKey:    Env("API_KEY", ""),
				APISecret: Env("API_SECRET", ""),
			},
			S3: S3Config{
				Bucket:          Env("S3_BUCKET", ""),
				Region:          Env("S3_REGION", "auto"),
				Endpoint:        Env("S3_ENDPOINT", ""),
				AccessKeyID:     Env("S3_ACCESS_KEY_ID", ""),
				SecretAccessKey: Env("S3_SECRET_ACCESS_KEY", ""),
				PublicURL:       Env("S3_PUBLIC_URL", ""),
				UsePathStyle:    EnvBool("S3_USE_PATH_STYLE", false),
			},
			GDrive: GDriveConfig{
				ClientID:     Env("GDRIVE_CLIENT_ID", ""),
				ClientSecret: Env("GDRIVE_CLIENT_SECRET", ""),
				RefreshToken: Env("GDRIVE_REFRESH_TOKEN", ""),
				FolderID:     Env("GDRIVE_FOLDER_ID", ""),
			},
			Local: LocalConfig{
				Root:    Env("STORAGE_LOCAL_ROOT", "repository/published"),
				BaseURL: Env("STORAGE_LOCAL_BASE_URL", "/media"),
			},
		},
		Renderer: RendererConfig{
			Backend:     strings.ToLower(Env("RENDERER", RendererFFmpeg)),
			FFmpegBin:   Env("FFMPEG_BIN", "ffmpeg"),
			FFprobeBin:  Env("FFPROBE_BIN", "ffprobe"),
			FontFile:    Env("FONT_FILE", ""),
			HTTPBaseURL: Env("RENDERER_HTTP_BASEURL", ""),
		},
		Pipeline: PipelineConfig{
			VideosDir:    Env("VIDEOS_DIR", "repository/videos"),
			UploadsDir:   Env("UPLOADS_DIR", "repository/uploads"),
			Compositing:  strings.ToLower(Env("COMPOSITING", "auto")),
			Folder:       Env("VIDEOS_FOLDER", ""),
			OverlayStyle: Env("OVERLAY_STYLE", "classic"),
			Timeout:      EnvDuration("PIPELINE_TIMEOUT", 0),
		},
	}
}

// Validate checks the config. Only the selected store's section is
// required to be complete.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return describe("config", err)
	}

	var section any
	switch c.Store.Provider {
	case StoreCloudinary:
		section = c.Store.Cloudinary
	case StoreS3:
		section = c.Store.S3
	case StoreGDrive:
		section = c.Store.GDrive
	case StoreLocalFS:
		section = c.Store.Local
	}
	if err := v.Struct(section); err != nil {
		return describe(c.Store.Provider, err)
	}
	return nil
}

// MaxUploadBytes is MaxUploadMB in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

func describe(scope string, err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("%s: %w", scope, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid %s: %s", scope, strings.Join(msgs, "; "))
}

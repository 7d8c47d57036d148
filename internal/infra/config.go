package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string

	// Storage backend selection. When UseGCS is true, processed images are
	// uploaded to the named bucket; otherwise they are written under
	// LocalStoragePath.
	UseGCS           bool
	GCSBucketName    string
	LocalStoragePath string

	// Image acquisition.
	BaseImageURL       string
	AlternateImageURLs []string
	HostHeaderVariants []string
	ImageReferer       string
	EnableDirectIP     bool

	// Image processing.
	OptimizeImages    bool
	MaxImageDimension int
	JPEGQuality       int
	ImageBatchSize    int

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		UseGCS:           getEnvBool("USE_GCS", false),
		GCSBucketName:    getEnv("GCS_BUCKET_NAME", "valuer-images"),
		LocalStoragePath: getEnv("LOCAL_STORAGE_PATH", "./local_images"),

		BaseImageURL: getEnv("BASE_IMAGE_URL", "https://image.invaluable.com/housePhotos/"),
		AlternateImageURLs: getEnvList("ALTERNATE_IMAGE_URLS", []string{
			"https://media.invaluable.com/housePhotos/",
			"https://www.invaluable.com/housePhotos/",
			"https://cdn.invaluable.com/housePhotos/",
		}),
		HostHeaderVariants: getEnvList("HOST_HEADER_VARIANTS", []string{
			"cdn.invaluable.com",
			"media.invaluable.com",
			"origin-images.invaluable.com",
			"images.invaluable.com",
		}),
		ImageReferer:   getEnv("IMAGE_REFERER", "https://www.invaluable.com/"),
		EnableDirectIP: getEnvBool("ENABLE_DIRECT_IP", false),

		OptimizeImages:    getEnvBool("OPTIMIZE_IMAGES", true),
		MaxImageDimension: getEnvInt("MAX_IMAGE_DIMENSION", 1200),
		JPEGQuality:       getEnvInt("JPEG_QUALITY", 85),
		ImageBatchSize:    getEnvInt("IMAGE_BATCH_SIZE", 10),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 120)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.UseGCS && cfg.GCSBucketName == "" {
		return nil, fmt.Errorf("GCS_BUCKET_NAME is required when USE_GCS is enabled")
	}

	if cfg.MaxImageDimension <= 0 {
		return nil, fmt.Errorf("MAX_IMAGE_DIMENSION must be positive, got %d", cfg.MaxImageDimension)
	}

	if cfg.ImageBatchSize <= 0 {
		return nil, fmt.Errorf("IMAGE_BATCH_SIZE must be positive, got %d", cfg.ImageBatchSize)
	}

	return cfg, nil
}

// Development reports whether the service runs with development conveniences
// such as synthetic placeholder images.
func (c *Config) Development() bool {
	return c.AppEnv == "development"
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

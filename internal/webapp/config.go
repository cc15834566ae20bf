package webapp

import (
	"time"
	_ "time/tzdata"

	"github.com/phillip-england/maintreq/internal/envutil"
	"github.com/phillip-england/maintreq/internal/media"
	"github.com/phillip-england/maintreq/internal/requests"
	"github.com/phillip-england/maintreq/internal/store"
)

type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	DBDriver store.Dialect
	DBDSN    string

	MasterPassword string
	PasswordGate   bool

	Media         media.Config
	UploadTimeout time.Duration

	LogoPath   string
	Location   *time.Location
	SessionTTL time.Duration

	LogLevel string
	Env      string
}

// DefaultConfigFromEnv reads the environment. Invalid enum values fall back
// to their defaults; an invalid TIMEZONE falls back to America/Sao_Paulo.
func DefaultConfigFromEnv() Config {
	driver, err := store.ParseDialect(envutil.String("DB_DRIVER", string(store.SQLite)))
	if err != nil {
		driver = store.SQLite
	}
	backend, err := media.ParseBackend(envutil.String("MEDIA_BACKEND", string(media.BackendCloudinary)))
	if err != nil {
		backend = media.BackendCloudinary
	}

	return Config{
		Addr:         envutil.String("APP_ADDR", ":8080"),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second,

		DBDriver: driver,
		DBDSN:    envutil.String("DB_DSN", ""),

		MasterPassword: envutil.String("MASTER_PASSWORD", ""),
		PasswordGate:   envutil.Bool("PASSWORD_GATE", true),

		Media: media.Config{
			Backend:             backend,
			CloudinaryCloudName: envutil.String("CLOUDINARY_CLOUD_NAME", ""),
			CloudinaryAPIKey:    envutil.String("CLOUDINARY_API_KEY", ""),
			CloudinaryAPISecret: envutil.String("CLOUDINARY_API_SECRET", ""),
			S3Bucket:            envutil.String("S3_BUCKET", ""),
			S3Region:            envutil.String("S3_REGION", ""),
			S3Endpoint:          envutil.String("S3_ENDPOINT", ""),
			S3AccessKey:         envutil.String("S3_ACCESS_KEY", ""),
			S3SecretKey:         envutil.String("S3_SECRET_KEY", ""),
			S3PublicBaseURL:     envutil.String("S3_PUBLIC_BASE_URL", ""),
		},
		UploadTimeout: 30 * time.Second,

		LogoPath:   envutil.String("LOGO_PATH", "assets/logo.png"),
		Location:   LoadLocation(envutil.String("TIMEZONE", requests.DefaultTimezone)),
		SessionTTL: envutil.Duration("SESSION_TTL", 12*time.Hour),

		LogLevel: envutil.String("LOG_LEVEL", "info"),
		Env:      envutil.String("APP_ENV", "development"),
	}
}

func LoadLocation(name string) *time.Location {
	if loc, err := time.LoadLocation(name); err == nil {
		return loc
	}
	if loc, err := time.LoadLocation(requests.DefaultTimezone); err == nil {
		return loc
	}
	return time.UTC
}

// StoreConfig maps the database settings onto the persistence gateway.
func (c Config) StoreConfig() store.Config {
	return store.Config{Dialect: c.DBDriver, DSN: c.DBDSN, Location: c.Location}
}

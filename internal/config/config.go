package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Configはアプリ全体の設定
type Config struct {
	App       AppConfig
	DB        DBConfig
	JWT       JWTConfig
	Redis     RedisConfig
	Order     OrderConfig
	Member    MemberConfig
	Report    ReportConfig
	Outbox    OutboxConfig
	AWS       AWSConfig
	Analytics AnalyticsConfig
}

type AppConfig struct {
	Env      string // dev/prod
	Port     string
	LogLevel string
}

type DBConfig struct {
	Driver string // postgres / sqlite
	URL    string // DATABASE_URL があれば最優先
	Host   string
	Port   int
	User   string
	Pass   string
	Name   string
	SSL    string
	Path   string // sqlite
}

type JWTConfig struct {
	Secret    string
	AccessTTL time.Duration
}

type RedisConfig struct {
	Addr     string // 空ならキャッシュ/pubsubを使わない
	Password string
	DB       int
	CacheTTL time.Duration
	Channel  string
}

type OrderConfig struct {
	StrictTransitions      bool
	AtomicStockReservation bool
}

type MemberConfig struct {
	RequireGmail bool
}

type ReportConfig struct {
	DailyAt    string // "08:00"
	AdminEmail string
	Enabled    bool
	LocalDir   string
}

type OutboxConfig struct {
	Interval    time.Duration
	BatchSize   int
	MaxAttempts int
	ClaimLease  time.Duration // processingのまま放置された行を取り直すまでの時間
}

type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SenderEmail     string
	ReportBucket    string
}

type AnalyticsConfig struct {
	MeasurementID string
	APISecret     string
	Endpoint      string
	RatePerSecond float64
}

// viperの既定値
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.port", "8080")
	v.SetDefault("log.level", "info")

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "postgres")
	v.SetDefault("db.name", "estore")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.path", "estore.db")

	v.SetDefault("jwt.access_ttl", 15*time.Minute)

	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.cache_ttl", 5*time.Minute)
	v.SetDefault("redis.channel", "estore:events")

	v.SetDefault("order.strict_transitions", false)
	v.SetDefault("order.atomic_stock_reservation", false)
	v.SetDefault("member.require_gmail", true)

	v.SetDefault("report.daily_at", "08:00")
	v.SetDefault("report.admin_email", "admin@example.com")
	v.SetDefault("report.enabled", true)
	v.SetDefault("report.local_dir", "reports")

	v.SetDefault("outbox.interval", 500*time.Millisecond)
	v.SetDefault("outbox.batch_size", 100)
	v.SetDefault("outbox.max_attempts", 5)
	v.SetDefault("outbox.claim_lease", 30*time.Second)

	v.SetDefault("aws.region", "us-east-1")
	v.SetDefault("analytics.endpoint", "https://www.google-analytics.com/mp/collect")
	v.SetDefault("analytics.rate_per_second", 10.0)
}

// Loadは .env → config.yaml → 環境変数(ESTORE_) の順で読む
func Load() (Config, error) {
	// .envは無くてもよい
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("ESTORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 既存の環境変数名も受ける
	_ = v.BindEnv("db.url", "DATABASE_URL", "ESTORE_DB_URL")
	_ = v.BindEnv("jwt.secret", "JWT_SECRET", "ESTORE_JWT_SECRET")
	_ = v.BindEnv("app.port", "PORT", "ESTORE_APP_PORT")

	return FromViper(v)
}

// テストからも使う
func FromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		App: AppConfig{
			Env:      v.GetString("app.env"),
			Port:     v.GetString("app.port"),
			LogLevel: v.GetString("log.level"),
		},
		DB: DBConfig{
			Driver: v.GetString("db.driver"),
			URL:    v.GetString("db.url"),
			Host:   v.GetString("db.host"),
			Port:   v.GetInt("db.port"),
			User:   v.GetString("db.user"),
			Pass:   v.GetString("db.password"),
			Name:   v.GetString("db.name"),
			SSL:    v.GetString("db.sslmode"),
			Path:   v.GetString("db.path"),
		},
		JWT: JWTConfig{
			Secret:    v.GetString("jwt.secret"),
			AccessTTL: v.GetDuration("jwt.access_ttl"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			CacheTTL: v.GetDuration("redis.cache_ttl"),
			Channel:  v.GetString("redis.channel"),
		},
		Order: OrderConfig{
			StrictTransitions:      v.GetBool("order.strict_transitions"),
			AtomicStockReservation: v.GetBool("order.atomic_stock_reservation"),
		},
		Member: MemberConfig{
			RequireGmail: v.GetBool("member.require_gmail"),
		},
		Report: ReportConfig{
			DailyAt:    v.GetString("report.daily_at"),
			AdminEmail: v.GetString("report.admin_email"),
			Enabled:    v.GetBool("report.enabled"),
			LocalDir:   v.GetString("report.local_dir"),
		},
		Outbox: OutboxConfig{
			Interval:    v.GetDuration("outbox.interval"),
			BatchSize:   v.GetInt("outbox.batch_size"),
			MaxAttempts: v.GetInt("outbox.max_attempts"),
			ClaimLease:  v.GetDuration("outbox.claim_lease"),
		},
		AWS: AWSConfig{
			Region:          v.GetString("aws.region"),
			AccessKeyID:     v.GetString("aws.access_key_id"),
			SecretAccessKey: v.GetString("aws.secret_access_key"),
			SenderEmail:     v.GetString("aws.sender_email"),
			ReportBucket:    v.GetString("aws.report_bucket"),
		},
		Analytics: AnalyticsConfig{
			MeasurementID: v.GetString("analytics.measurement_id"),
			APISecret:     v.GetString("analytics.api_secret"),
			Endpoint:      v.GetString("analytics.endpoint"),
			RatePerSecond: v.GetFloat64("analytics.rate_per_second"),
		},
	}

	//必須チェック
	switch cfg.DB.Driver {
	case "postgres", "sqlite":
	default:
		return Config{}, fmt.Errorf("db.driver must be postgres or sqlite: %q", cfg.DB.Driver)
	}
	if cfg.App.Port == "" {
		return Config{}, fmt.Errorf("app.port is required")
	}
	if cfg.JWT.Secret == "" {
		if cfg.IsProd() {
			return Config{}, fmt.Errorf("JWT_SECRET is required")
		}
		cfg.JWT.Secret = "dev_secret_change_me"
	}
	if _, _, err := ParseClock(cfg.Report.DailyAt); err != nil {
		return Config{}, fmt.Errorf("report.daily_at: %w", err)
	}
	if cfg.Outbox.BatchSize < 1 {
		return Config{}, fmt.Errorf("outbox.batch_size must be >= 1")
	}
	if cfg.Outbox.MaxAttempts < 1 {
		return Config{}, fmt.Errorf("outbox.max_attempts must be >= 1")
	}

	return cfg, nil
}

func (c Config) IsProd() bool {
	return c.App.Env == "prod" || c.App.Env == "production"
}

// "HH:MM"
func ParseClock(s string) (int, int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, fmt.Errorf("must be HH:MM: %w", err)
	}
	return t.Hour(), t.Minute(), nil
}

package db

import (
	"fmt"
	"time"

	"estore/internal/config"
	"estore/internal/domain/model"
	"estore/internal/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func gormConfig() *gorm.Config {
	return &gorm.Config{
		// 一意制約違反を gorm.ErrDuplicatedKey にそろえる
		TranslateError: true,
		Logger:         newGormLogger(),
	}
}

// gormのログはzapへ流す。record not foundは出さない
func newGormLogger() gormlogger.Interface {
	return gormlogger.New(zapWriter{}, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

type zapWriter struct{}

func (zapWriter) Printf(format string, args ...interface{}) {
	logger.L().Sugar().Warnf(format, args...)
}

// Connect はDBに接続して *gorm.DB を返す。
func Connect(cfg config.DBConfig) (*gorm.DB, error) {
	switch cfg.Driver {
	case "sqlite":
		return OpenSQLite(cfg.Path)
	case "postgres", "":
	default:
		return nil, fmt.Errorf("unsupported db driver: %s", cfg.Driver)
	}

	// DATABASE_URL があれば最優先で使う
	dsn := cfg.URL
	if dsn == "" {
		dsn = fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Pass, cfg.Name, cfg.SSL,
		)
	}
	return OpenPostgres(dsn)
}

// pgxのdatabase/sqlドライバ越しにgormを載せる
func OpenPostgres(dsn string) (*gorm.DB, error) {
	pgxCfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	sqlDB := stdlib.OpenDB(*pgxCfg)
	return gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), gormConfig())
}

// sqliteは書き込みが1本なので接続も1本に絞る（":memory:"もこれで共有される）
func OpenSQLite(path string) (*gorm.DB, error) {
	gdb, err := gorm.Open(sqlite.Open(path), gormConfig())
	if err != nil {
		return nil, err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return gdb, nil
}

func Models() []interface{} {
	return []interface{}{
		&model.Member{},
		&model.Category{},
		&model.Product{},
		&model.Cart{},
		&model.CartItem{},
		&model.Order{},
		&model.OrderDetail{},
		&model.TrackingOrder{},
		&model.InventoryAdjustment{},
		&model.OutboxEvent{},
	}
}

func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(Models()...)
}

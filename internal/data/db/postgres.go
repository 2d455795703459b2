package db

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/pinegate-backend/internal/platform/envutil"
	"github.com/yungbote/pinegate-backend/internal/platform/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Driver      string
	Host        string
	Port        string
	User        string
	Password    string
	Name        string
	SSLMode     string
	SQLitePath  string
	AutoMigrate bool
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		Driver:      strings.ToLower(envutil.String("DB_DRIVER", DriverPostgres)),
		Host:        envutil.String("POSTGRES_HOST", "localhost"),
		Port:        envutil.String("POSTGRES_PORT", "5432"),
		User:        envutil.String("POSTGRES_USER", "postgres"),
		Password:    envutil.String("POSTGRES_PASSWORD", ""),
		Name:        envutil.String("POSTGRES_NAME", "pinegate"),
		SSLMode:     envutil.String("POSTGRES_SSLMODE", "disable"),
		SQLitePath:  envutil.String("SQLITE_PATH", "pinegate.db"),
		AutoMigrate: envutil.Bool("DB_AUTO_MIGRATE", false, log),
	}
}

func (c Config) postgresDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Name,
		c.SSLMode,
	)
}

type Service struct {
	db  *gorm.DB
	log *logger.Logger
}

// Open connects to the configured driver. TranslateError is on so unique violations
// surface as gorm.ErrDuplicatedKey on both drivers.
func Open(logg *logger.Logger, cfg Config) (*Service, error) {
	serviceLog := logg.With("service", "DatabaseService", "driver", cfg.Driver)

	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	gcfg := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
		Logger:                                   gormLog,
		NowFunc:                                  func() time.Time { return time.Now().UTC() },
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverPostgres, "":
		dialector = postgres.Open(cfg.postgresDSN())
	case DriverSQLite:
		dialector = sqlite.Open(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, gcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Driver, err)
	}
	if cfg.Driver == DriverSQLite {
		// sqlite serializes writers; the fan-out stages would otherwise hit SQLITE_BUSY
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}
	serviceLog.Info("Database connected")

	if cfg.AutoMigrate {
		if err := AutoMigrateAll(db); err != nil {
			return nil, fmt.Errorf("automigrate: %w", err)
		}
		serviceLog.Info("Database schema migrated")
	}
	return &Service{db: db, log: serviceLog}, nil
}

func (s *Service) DB() *gorm.DB { return s.db }

func (s *Service) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

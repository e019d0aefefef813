package repositories

import (
	"fmt"
	stdlog "log"
	"strings"
	"time"

	"vofo/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Driver names returned by ParseDatabaseURL.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// ParseDatabaseURL maps a DATABASE_URL to a driver and DSN.
//
//	postgres://... and postgresql://...  -> postgres, URL unchanged
//	sqlite:///vofo.db                    -> sqlite, "vofo.db"
//	sqlite:////var/lib/vofo.db           -> sqlite, "/var/lib/vofo.db"
//	memory://                            -> in-process maps, no database
//
// Anything else is treated as a SQLite DSN.
func ParseDatabaseURL(url string) (driver, dsn string) {
	url = strings.TrimSpace(url)
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return DriverPostgres, url
	case strings.HasPrefix(url, "memory://"):
		return DriverMemory, ""
	case strings.HasPrefix(url, "sqlite:///"):
		return DriverSQLite, strings.TrimPrefix(url, "sqlite:///")
	case strings.HasPrefix(url, "sqlite://"):
		return DriverSQLite, strings.TrimPrefix(url, "sqlite://")
	default:
		return DriverSQLite, url
	}
}

// OpenDatabase opens a GORM connection for the given driver and DSN. SQLite
// is limited to one open connection so that transactions serialize.
func OpenDatabase(driver, dsn string, logWriter *stdlog.Logger) (*gorm.DB, error) {
	cfg := &gorm.Config{TranslateError: true}
	if logWriter != nil {
		cfg.Logger = gormlogger.New(logWriter, gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		})
	}

	var dialector gorm.Dialector
	switch driver {
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == DriverSQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sql db: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// Migrate creates or updates the account and liked track tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Account{}, &models.LikedTrack{}); err != nil {
		return fmt.Errorf("failed to auto-migrate database: %w", err)
	}
	return nil
}

// Package db opens the relational store holding user profiles and import
// records.
package db

import (
	"fmt"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	SQLite = "sqlite"
	MySQL  = "mysql"
)

// UserProfile carries traits sent for an identified user. Traits is a JSON
// document.
type UserProfile struct {
	SiteID    int64  `gorm:"primaryKey;autoIncrement:false"`
	UserID    string `gorm:"primaryKey;size:255"`
	Traits    string `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (UserProfile) TableName() string { return "user_profiles" }

type ImportStatus string

const (
	ImportPending    ImportStatus = "pending"
	ImportProcessing ImportStatus = "processing"
	ImportCompleted  ImportStatus = "completed"
	ImportFailed     ImportStatus = "failed"
)

// Active reports whether the import is still being worked on.
func (s ImportStatus) Active() bool {
	return s == ImportPending || s == ImportProcessing
}

type Import struct {
	ID        string       `gorm:"primaryKey;size:36"`
	SiteID    int64        `gorm:"index"`
	Platform  string       `gorm:"size:64"`
	Status    ImportStatus `gorm:"size:32;default:pending"`
	FileName  string       `gorm:"size:255"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Import) TableName() string { return "imports" }

// Open connects to driver with dsn and migrates the schema.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialect gorm.Dialector
	switch driver {
	case SQLite, "":
		dialect = sqlite.Open(dsn)
	case MySQL:
		cfg, err := mysqldriver.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("parsing mysql dsn %w", err)
		}
		cfg.ParseTime = true
		dialect = mysql.Open(cfg.FormatDSN())
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}
	db, err := gorm.Open(dialect, &gorm.Config{})
	if err != nil {
		return nil, err
	}
	db.Logger = db.Logger.LogMode(logger.Silent)
	err = db.AutoMigrate(
		&UserProfile{},
		&Import{},
	)
	if err != nil {
		return nil, err
	}
	return db, nil
}

func Close(db *gorm.DB) error {
	x, err := db.DB()
	if err != nil {
		return err
	}
	return x.Close()
}

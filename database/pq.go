package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"
	"github.com/sahilchouksey/fee-management/config"
)

// Storage defines the interface that all database implementations must satisfy
type Storage interface {
	// Lifecycle methods
	Init() error
	Close() error
	HealthCheck() error

	// GetDB returns *gorm.DB for GORMStore and *sql.DB for ReportStore
	GetDB() interface{}
}

// ReportStore runs the aggregate fee reports as hand-written SQL over a
// plain lib/pq connection, outside of GORM.
type ReportStore struct {
	db *sql.DB
}

// StartReportStore opens the reporting connection
func StartReportStore(env *config.EnviornmentVariable) (*ReportStore, error) {
	db, err := sql.Open("postgres", DSN(env))
	if err != nil {
		log.Println("Unable to open PostgreSQL reporting connection:", err)
		return nil, err
	}

	db.SetMaxOpenConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)

	log.Println("Successfully opened PostgreSQL reporting connection.")
	return NewReportStore(db), nil
}

// NewReportStore wraps an existing connection
func NewReportStore(db *sql.DB) *ReportStore {
	return &ReportStore{db: db}
}

// Init creates the reporting views. Tables must already exist.
func (s *ReportStore) Init() error {
	log.Println("Initializing reporting views.")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.InitViews(ctx)
}

func (s *ReportStore) Close() error {
	log.Println("Closing PostgreSQL reporting connection.")
	return s.db.Close()
}

// HealthCheck verifies the database connection is alive
func (s *ReportStore) HealthCheck() error {
	return s.db.Ping()
}

func (s *ReportStore) GetDB() interface{} {
	return s.db
}

func wrapReport(name string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("failed to run %s report: %w", name, err)
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/resonately/resonately-scribe-sub000/entities"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DBStore is the relational backend: recordings and chunks tables. It keeps
// the same whole-collection Save/Load contract as the file store so the
// two are interchangeable behind Store.
type DBStore struct {
	db *gorm.DB
}

func NewDBStore(driver, dsn string) (*DBStore, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	case DriverPostgres:
		conn, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, err
		}
		dialector = postgres.New(postgres.Config{Conn: conn})
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", driver)
	}

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := gormDB.AutoMigrate(&entities.Recording{}, &entities.Chunk{}); err != nil {
		return nil, err
	}

	return &DBStore{db: gormDB}, nil
}

func (s *DBStore) Load(ctx context.Context) ([]entities.Recording, error) {
	var recordings []entities.Recording
	err := s.db.WithContext(ctx).
		Preload("Chunks", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Order("start_date ASC").
		Find(&recordings).Error
	if err != nil {
		return nil, err
	}
	if recordings == nil {
		recordings = []entities.Recording{}
	}
	return recordings, nil
}

func (s *DBStore) Save(ctx context.Context, recordings []entities.Recording) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&entities.Chunk{}).Error; err != nil {
			return err
		}
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&entities.Recording{}).Error; err != nil {
			return err
		}
		if len(recordings) == 0 {
			return nil
		}
		// Chunk ids are reassigned on each overwrite; identity within a
		// recording is the position, not the row id.
		for i := range recordings {
			for j := range recordings[i].Chunks {
				recordings[i].Chunks[j].ID = 0
				recordings[i].Chunks[j].RecordingID = recordings[i].ID
			}
		}
		return tx.Create(&recordings).Error
	})
	if err != nil {
		return errors.Join(ErrStoreWrite, err)
	}
	return nil
}

func (s *DBStore) Clear(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&entities.Chunk{}).Error; err != nil {
			return err
		}
		return tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&entities.Recording{}).Error
	})
}

package repository

import (
	"fmt"

	"github.com/resonately/resonately-scribe-sub000/config"
)

const DriverFile = "file"

func NewStore(cfg config.Store) (Store, error) {
	switch cfg.Driver {
	case DriverFile, "":
		return NewFileStore(cfg.Path), nil
	case DriverSQLite, DriverPostgres:
		return NewDBStore(cfg.Driver, cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Driver)
	}
}

package database

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/marcboeker/go-duckdb"
)

type DuckDBClient struct {
	DB *sql.DB
}

// NewDuckDB opens an embedded DuckDB database at the given path. An empty
// path opens an in-memory database, which is what the tests use.
//
// DuckDB is single-process: one writer owns the file. Connection pooling is
// capped accordingly.
func NewDuckDB(path string) (*DuckDBClient, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("error opening duckdb database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error opening duckdb file (ping failed): %w", err)
	}

	if path == "" {
		log.Println("Opened in-memory DuckDB database")
	} else {
		log.Printf("Opened DuckDB database at %s", path)
	}
	return &DuckDBClient{DB: db}, nil
}

func (c *DuckDBClient) Close() {
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			log.Printf("Error closing duckdb database: %v", err)
		} else {
			log.Println("DuckDB database closed.")
		}
	}
}

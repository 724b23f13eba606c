package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/chameleon-db/dsql/internal/config"
	"github.com/chameleon-db/dsql/pkg/engine"
)

// openExecutor connects to the configured database. The returned close
// function rolls back anything left open and releases the connections.
func openExecutor(ctx context.Context, db config.DatabaseConfig) (engine.Executor, func(), error) {
	if db.ConnectionString == "" {
		return nil, nil, fmt.Errorf("no connection string configured\nSet DATABASE_URL or database.connection_string in .dsql.yml")
	}

	timeout := time.Duration(db.ConnectionTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if db.DriverName() == "pgx" {
		return openPgx(ctx, db)
	}

	conn, err := sql.Open(db.DriverName(), db.ConnectionString)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", db.Driver, err)
	}
	if db.MaxConnections > 0 {
		conn.SetMaxOpenConns(db.MaxConnections)
	}
	if db.MinConnections > 0 {
		conn.SetMaxIdleConns(db.MinConnections)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to connect: %w", err)
	}

	exec := engine.NewSQLExecutor(conn)
	return exec, func() {
		if err := exec.Close(); err != nil {
			logger.Warn("rollback on close failed", "error", err)
		}
		conn.Close()
	}, nil
}

func openPgx(ctx context.Context, db config.DatabaseConfig) (engine.Executor, func(), error) {
	cc, err := engine.ParseConnectionString(db.ConnectionString)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid connection string: %w", err)
	}
	if db.MaxConnections > 0 {
		cc.MaxConns = int32(db.MaxConnections)
	}
	if db.MinConnections > 0 {
		cc.MinConns = int32(db.MinConnections)
	}

	connector := engine.NewConnector(cc)
	if err := connector.Connect(ctx); err != nil {
		return nil, nil, err
	}
	if err := connector.Ping(ctx); err != nil {
		connector.Close()
		return nil, nil, fmt.Errorf("failed to connect: %w", err)
	}
	exec, err := connector.Executor()
	if err != nil {
		connector.Close()
		return nil, nil, err
	}
	return exec, func() {
		if err := exec.Rollback(context.Background()); err != nil {
			logger.Warn("rollback on close failed", "error", err)
		}
		connector.Close()
	}, nil
}

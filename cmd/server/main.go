// Package main is the entry point for the icon gallery server.
//
// All it does is read configuration from the environment, build the
// logger, and hand off to internal/server. The actual wiring lives there.
//
// Environment:
//
//	PORT          listen port (default 8080)
//	DB_PATH       SQLite database file (default data/gallery.db)
//	STORAGE_DIR   uploaded-file store root (default data/storage)
//	JWT_SECRET    session token secret, 16+ chars (required)
//	AUTO_APPROVE  "false" to hold uploads for admin approval (default true)
package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sakif/icon-gallery/internal/server"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	port := 8080
	if portStr := os.Getenv("PORT"); portStr != "" {
		var err error
		port, err = strconv.Atoi(portStr)
		if err != nil {
			logger.Error("invalid PORT value", slog.String("value", portStr))
			os.Exit(1)
		}
	}

	dbPath := "data/gallery.db"
	if envDB := os.Getenv("DB_PATH"); envDB != "" {
		dbPath = envDB
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		logger.Error("failed to create database directory",
			slog.String("dir", filepath.Dir(dbPath)),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	storageDir := "data/storage"
	if envStorage := os.Getenv("STORAGE_DIR"); envStorage != "" {
		storageDir = envStorage
	}

	// Sessions are HMAC-signed; an unset or weak secret would let anyone
	// forge a login, so refuse to start without one.
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Error("JWT_SECRET is required (generate one with: openssl rand -hex 32)")
		os.Exit(1)
	}

	autoApprove := true
	if envApprove := os.Getenv("AUTO_APPROVE"); envApprove != "" {
		parsed, err := strconv.ParseBool(envApprove)
		if err != nil {
			logger.Error("invalid AUTO_APPROVE value", slog.String("value", envApprove))
			os.Exit(1)
		}
		autoApprove = parsed
	}

	srv, err := server.New(server.Config{
		Port:        port,
		DBPath:      dbPath,
		StorageDir:  storageDir,
		JWTSecret:   jwtSecret,
		AutoApprove: autoApprove,
	}, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

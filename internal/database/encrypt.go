package database

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gorm.io/gorm"
)

var (
	ErrEmptyKey     = errors.New("encryption key must not be empty")
	ErrTargetExists = errors.New("target database already exists")
)

// ExportEncrypted copies the plaintext database at plainPath into a new
// file at encryptedPath keyed with key. It needs a SQLCipher build of
// the driver (sqlcipher_export is not part of stock SQLite).
func ExportEncrypted(plainPath, encryptedPath, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if _, err := os.Stat(plainPath); err != nil {
		return fmt.Errorf("failed to open plaintext database: %w", err)
	}
	if _, err := os.Stat(encryptedPath); err == nil {
		return fmt.Errorf("%w: %s", ErrTargetExists, encryptedPath)
	}

	db, err := Open(encryptedPath, Options{Key: key})
	if err != nil {
		return err
	}
	defer Close(db)

	err = db.Connection(func(conn *gorm.DB) error {
		if err := conn.Exec("ATTACH DATABASE ? AS plaintext KEY ''", plainPath).Error; err != nil {
			return fmt.Errorf("failed to attach plaintext database: %w", err)
		}
		exportErr := conn.Exec("SELECT sqlcipher_export('main', 'plaintext')").Error
		detachErr := conn.Exec("DETACH DATABASE plaintext").Error
		if exportErr != nil {
			return fmt.Errorf("failed to export database: %w", exportErr)
		}
		return detachErr
	})
	if err != nil {
		Close(db)
		os.Remove(encryptedPath)
		return err
	}

	slog.Info("database encrypted", slog.String("source", plainPath), slog.String("target", encryptedPath))
	return nil
}

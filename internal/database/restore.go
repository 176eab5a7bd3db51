package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

type backupFile struct {
	path    string
	modTime time.Time
}

// listBackups returns *.db files in dir, newest first.
func listBackups(dir string) []backupFile {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var backups []backupFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".db") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		backups = append(backups, backupFile{
			path:    filepath.Join(dir, entry.Name()),
			modTime: info.ModTime(),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].modTime.After(backups[j].modTime)
	})
	return backups
}

// RestoreLatestBackup replaces dbPath with the newest backup that passes an
// integrity check. The replaced file is kept alongside as dbPath.replaced.<timestamp>.
// The database must not be open while restoring.
func RestoreLatestBackup(dbPath, backupDir string) (string, error) {
	backups := listBackups(backupDir)
	if len(backups) == 0 {
		return "", errors.New("no backup files found")
	}

	for _, b := range backups {
		if err := checkFile(b.path); err != nil {
			slog.Debug("skipping backup", "path", b.path, "error", err)
			continue
		}

		if _, err := os.Stat(dbPath); err == nil {
			keep := dbPath + ".replaced." + time.Now().Format("20060102-150405")
			if err := os.Rename(dbPath, keep); err != nil {
				return "", fmt.Errorf("preserving current database: %w", err)
			}
		}
		os.Remove(dbPath + "-wal")
		os.Remove(dbPath + "-shm")

		if err := copyFile(b.path, dbPath); err != nil {
			return "", fmt.Errorf("copying backup: %w", err)
		}

		slog.Info("database restored from backup", "path", dbPath, "backup", b.path)
		return b.path, nil
	}

	return "", errors.New("no valid backup found")
}

func checkFile(path string) error {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return integrityCheck(ctx, conn, "PRAGMA quick_check")
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening source: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0640)
	if err != nil {
		return fmt.Errorf("creating destination: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return out.Sync()
}

// Diagnostics summarizes a database file for the doctor command.
type Diagnostics struct {
	Path          string
	Exists        bool
	SizeBytes     int64
	WALSizeBytes  int64
	SchemaVersion int
	JournalMode   string
	QuickCheck    string
	Backups       int
	LatestBackup  string
}

// Diagnose inspects dbPath without modifying it.
func Diagnose(ctx context.Context, dbPath, backupDir string) (*Diagnostics, error) {
	diag := &Diagnostics{Path: dbPath}

	if backups := listBackups(backupDir); len(backups) > 0 {
		diag.Backups = len(backups)
		diag.LatestBackup = backups[0].path
	}

	info, err := os.Stat(dbPath)
	if os.IsNotExist(err) {
		return diag, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stating database: %w", err)
	}
	diag.Exists = true
	diag.SizeBytes = info.Size()

	if wal, err := os.Stat(dbPath + "-wal"); err == nil {
		diag.WALSizeBytes = wal.Size()
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	defer conn.Close()

	if err := conn.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&diag.SchemaVersion); err != nil {
		slog.Debug("reading schema version", "error", err)
	}
	if err := conn.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&diag.JournalMode); err != nil {
		slog.Debug("reading journal mode", "error", err)
	}
	if err := conn.QueryRowContext(ctx, "PRAGMA quick_check").Scan(&diag.QuickCheck); err != nil {
		diag.QuickCheck = err.Error()
	}

	return diag, nil
}

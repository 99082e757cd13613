package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Entry records the last successful compilation of one template.
type Entry struct {
	Template     string   `gorm:"primaryKey"`
	Output       string   `gorm:"not null"`
	Dependencies []string `gorm:"serializer:json"`
	Fingerprint  string   `gorm:"size:64;not null"`
	BuildID      string   `gorm:"size:36;index"`
	UpdatedAt    time.Time
}

// Store is the incremental build cache. Every entry written through one
// Store carries the same build id.
type Store struct {
	db      *gorm.DB
	buildID string
	log     *slog.Logger
}

// Open opens (creating if needed) the sqlite database at path.
func Open(path string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		return nil, fmt.Errorf("opening cache %s: %w", path, err)
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("migrating cache %s: %w", path, err)
	}
	s := &Store{db: db, buildID: uuid.New().String(), log: log}
	log.Debug("cache opened", "path", path, "build", s.buildID)
	return s, nil
}

func (s *Store) BuildID() string { return s.buildID }

// Get returns the entry of template, or nil when there is none.
func (s *Store) Get(template string) (*Entry, error) {
	var e Entry
	err := s.db.First(&e, "template = ?", template).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Fresh reports whether template's last output is still current: the entry
// exists, the output file exists, and neither the compile key nor any
// dependency changed.
func (s *Store) Fresh(template, key string) (bool, error) {
	e, err := s.Get(template)
	if err != nil || e == nil {
		return false, err
	}
	if _, err := os.Stat(e.Output); err != nil {
		return false, nil
	}
	fp, err := Fingerprint(key, e.Dependencies)
	if err != nil {
		// a dependency disappeared
		return false, nil
	}
	fresh := fp == e.Fingerprint
	s.log.Debug("cache lookup", "template", template, "fresh", fresh)
	return fresh, nil
}

// Record stores a successful compilation made under key.
func (s *Store) Record(template, output, key string, deps []string) error {
	fp, err := Fingerprint(key, deps)
	if err != nil {
		return err
	}
	return s.db.Save(&Entry{
		Template:     template,
		Output:       output,
		Dependencies: deps,
		Fingerprint:  fp,
		BuildID:      s.buildID,
	}).Error
}

// Forget drops the entry of template, so a failed compilation is retried.
func (s *Store) Forget(template string) error {
	return s.db.Delete(&Entry{}, "template = ?", template).Error
}

// Entries lists every entry ordered by template path.
func (s *Store) Entries() ([]Entry, error) {
	var out []Entry
	if err := s.db.Order("template").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Fingerprint hashes key, then the path and content of each file in order.
// The key stands for everything besides file contents that shapes the
// generated code.
func Fingerprint(key string, paths []string) (string, error) {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00", key)
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(h, "%s\x00", p)
		_, err = io.Copy(h, f)
		_ = f.Close()
		if err != nil {
			return "", fmt.Errorf("hashing %s: %w", p, err)
		}
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

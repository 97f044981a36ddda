package media

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
	"learnview/internal/storage"
)

// ManifestName is the optional per-course metadata file.
const ManifestName = "course.yaml"

// Manifest overrides what the scanner derives from folder and file names.
type Manifest struct {
	Title       string           `yaml:"title"`
	Description string           `yaml:"description"`
	Instructor  string           `yaml:"instructor"`
	Category    string           `yaml:"category"`
	Modules     []ManifestModule `yaml:"modules"`
}

type ManifestModule struct {
	File  string `yaml:"file"`
	Title string `yaml:"title"`
	Type  string `yaml:"type"`
}

type Scanner struct {
	storage  *storage.SQLiteStorage
	logger   zerolog.Logger
	scanning bool
	mu       sync.Mutex
}

func NewScanner(store *storage.SQLiteStorage, logger zerolog.Logger) *Scanner {
	return &Scanner{
		storage: store,
		logger:  logger,
	}
}

func (s *Scanner) IsScanning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanning
}

// ScanPath scans a library directory. Every sub-folder is a course.
func (s *Scanner) ScanPath(libraryPath string) error {
	s.mu.Lock()
	if s.scanning {
		s.mu.Unlock()
		return nil
	}
	s.scanning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.scanning = false
		s.mu.Unlock()
	}()

	if libraryPath == "" {
		s.logger.Warn().Msg("no library path configured")
		return nil
	}

	info, err := os.Stat(libraryPath)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return nil
	}

	libraryPath = filepath.Clean(libraryPath)
	s.logger.Info().Str("path", libraryPath).Msg("scanning library")

	// Cleanup deleted files first
	if err := s.CleanupDeletedFiles(); err != nil {
		s.logger.Warn().Err(err).Msg("cleanup failed, continuing with scan")
	}

	entries, err := os.ReadDir(libraryPath)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		coursePath := filepath.Join(libraryPath, entry.Name())
		if err := s.scanCourse(coursePath); err != nil {
			s.logger.Error().Err(err).Str("path", coursePath).Msg("failed to scan course")
		}
	}

	return nil
}

func (s *Scanner) scanCourse(coursePath string) error {
	manifest, err := loadManifest(coursePath)
	if err != nil {
		return err
	}

	course := &storage.Course{
		ID:          generateID(coursePath),
		Title:       filepath.Base(coursePath),
		Description: manifest.Description,
		Instructor:  manifest.Instructor,
		Category:    manifest.Category,
		Path:        coursePath,
		CreatedAt:   time.Now(),
	}
	if manifest.Title != "" {
		course.Title = manifest.Title
	}

	if err := s.storage.CreateCourse(course); err != nil {
		return err
	}

	overrides := make(map[string]ManifestModule, len(manifest.Modules))
	for _, m := range manifest.Modules {
		overrides[filepath.ToSlash(filepath.Clean(m.File))] = m
	}

	var position int
	err = filepath.WalkDir(coursePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != coursePath && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(coursePath, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		override, listed := overrides[rel]

		moduleType, ok := ModuleTypeOf(d.Name())
		if override.Type != "" {
			if t := storage.ModuleType(strings.ToLower(override.Type)); t.Valid() {
				moduleType, ok = t, true
			} else {
				s.logger.Warn().
					Str("path", path).
					Str("type", override.Type).
					Msg("unknown module type in manifest, using file type")
			}
		}
		if !ok {
			if listed {
				s.logger.Warn().Str("path", path).Msg("manifest lists a file with no module type")
			}
			return nil
		}

		info, err := d.Info()
		if err != nil {
			s.logger.Error().Err(err).Str("path", path).Msg("failed to get file info")
			return nil
		}

		title := moduleTitle(d.Name())
		if override.Title != "" {
			title = override.Title
		}

		module := &storage.Module{
			ID:         generateID(path),
			CourseID:   course.ID,
			Title:      title,
			Type:       moduleType,
			Content:    path,
			Position:   position,
			ModifiedAt: info.ModTime(),
			CreatedAt:  time.Now(),
		}
		if err := s.storage.CreateModule(module); err != nil {
			s.logger.Error().Err(err).Str("path", path).Msg("failed to create module")
			return nil
		}
		position++

		s.logger.Debug().
			Str("course", course.Title).
			Str("title", title).
			Str("type", string(moduleType)).
			Msg("added module")
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info().
		Str("course", course.Title).
		Int("modules", position).
		Msg("course scanned")
	return nil
}

func moduleTitle(name string) string {
	if base, ok := quizBase(name); ok {
		return base
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func loadManifest(coursePath string) (*Manifest, error) {
	var manifest Manifest

	data, err := os.ReadFile(filepath.Join(coursePath, ManifestName))
	if errors.Is(err, fs.ErrNotExist) {
		return &manifest, nil
	}
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, err
	}
	return &manifest, nil
}

func generateID(path string) string {
	hash := sha256.Sum256([]byte(path))
	return hex.EncodeToString(hash[:8])
}

// CleanupDeletedFiles removes database entries for files that no longer exist
func (s *Scanner) CleanupDeletedFiles() error {
	modulePaths, err := s.storage.GetAllModulePaths()
	if err != nil {
		return err
	}

	deletedModules := 0
	for id, path := range modulePaths {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := s.storage.DeleteModule(id); err != nil {
				s.logger.Error().Err(err).Str("path", path).Msg("failed to delete module")
			} else {
				deletedModules++
				s.logger.Debug().Str("path", path).Msg("deleted missing module")
			}
		}
	}

	coursePaths, err := s.storage.GetAllCoursePaths()
	if err != nil {
		return err
	}

	deletedCourses := 0
	for id, path := range coursePaths {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := s.storage.DeleteCourse(id); err != nil {
				s.logger.Error().Err(err).Str("path", path).Msg("failed to delete course")
			} else {
				deletedCourses++
				s.logger.Debug().Str("path", path).Msg("deleted missing course")
			}
		}
	}

	if deletedModules > 0 || deletedCourses > 0 {
		s.logger.Info().
			Int("modules", deletedModules).
			Int("courses", deletedCourses).
			Msg("cleanup completed")
	}

	return nil
}

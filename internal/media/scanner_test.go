package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"learnview/internal/storage"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func newTestStorage(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "learnview.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestScanPathBuildsCatalog(t *testing.T) {
	library := t.TempDir()
	writeFile(t, filepath.Join(library, "go-basics", "course.yaml"), `
title: Go Basics
instructor: Ada
category: Programming
description: Learn Go.
modules:
  - file: 02-types.mp4
    title: Types and Values
  - file: quiz.json
    type: quiz
`)
	writeFile(t, filepath.Join(library, "go-basics", "01-intro.mp4"), "video")
	writeFile(t, filepath.Join(library, "go-basics", "02-types.mp4"), "video")
	writeFile(t, filepath.Join(library, "go-basics", "notes.txt"), "ignored")
	writeFile(t, filepath.Join(library, "go-basics", "quiz.json"), "{}")
	writeFile(t, filepath.Join(library, "go-basics", "slides", "cheatsheet.pdf"), "pdf")
	writeFile(t, filepath.Join(library, ".hidden", "secret.mp4"), "video")
	writeFile(t, filepath.Join(library, "loose.mp4"), "video")

	store := newTestStorage(t)
	scanner := NewScanner(store, zerolog.Nop())
	require.NoError(t, scanner.ScanPath(library))
	assert.False(t, scanner.IsScanning())

	courses, err := store.GetCourses()
	require.NoError(t, err)
	require.Len(t, courses, 1)
	course := courses[0]
	assert.Equal(t, "Go Basics", course.Title)
	assert.Equal(t, "Ada", course.Instructor)
	assert.Equal(t, "Programming", course.Category)
	assert.Equal(t, 4, course.TotalModules)

	modules, err := store.GetModulesByCourse(course.ID)
	require.NoError(t, err)
	require.Len(t, modules, 4)

	var titles []string
	var types []storage.ModuleType
	for _, m := range modules {
		titles = append(titles, m.Title)
		types = append(types, m.Type)
	}
	assert.Equal(t, []string{"01-intro", "Types and Values", "quiz", "cheatsheet"}, titles)
	assert.Equal(t, []storage.ModuleType{storage.ModuleVideo, storage.ModuleVideo, storage.ModuleQuiz, storage.ModulePDF}, types)
}

func TestScanPathIsStableAndCleansUp(t *testing.T) {
	library := t.TempDir()
	intro := filepath.Join(library, "rust", "intro.mp4")
	writeFile(t, intro, "video")
	writeFile(t, filepath.Join(library, "rust", "ownership.mp4"), "video")

	store := newTestStorage(t)
	scanner := NewScanner(store, zerolog.Nop())
	require.NoError(t, scanner.ScanPath(library))

	courses, err := store.GetCourses()
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "rust", courses[0].Title)
	firstID := courses[0].ID

	require.NoError(t, os.Remove(intro))
	require.NoError(t, scanner.ScanPath(library))

	courses, err = store.GetCourses()
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, firstID, courses[0].ID)
	assert.Equal(t, 1, courses[0].TotalModules)

	require.NoError(t, os.RemoveAll(filepath.Join(library, "rust")))
	require.NoError(t, scanner.ScanPath(library))
	courses, err = store.GetCourses()
	require.NoError(t, err)
	assert.Empty(t, courses)
}

func TestScanPathRejectsBadManifest(t *testing.T) {
	library := t.TempDir()
	writeFile(t, filepath.Join(library, "broken", "course.yaml"), "title: [unterminated")
	writeFile(t, filepath.Join(library, "broken", "a.mp4"), "video")

	store := newTestStorage(t)
	require.NoError(t, NewScanner(store, zerolog.Nop()).ScanPath(library))

	courses, err := store.GetCourses()
	require.NoError(t, err)
	assert.Empty(t, courses)
}

type fakeProber struct {
	durations map[string]int64
}

func (p fakeProber) IsAvailable() bool { return true }

func (p fakeProber) Duration(_ context.Context, path string) (int64, error) {
	d, ok := p.durations[filepath.Base(path)]
	if !ok {
		return 0, errors.New("unreadable")
	}
	return d, nil
}

func TestProbeServiceFillsDurations(t *testing.T) {
	library := t.TempDir()
	writeFile(t, filepath.Join(library, "go", "a.mp4"), "video")
	writeFile(t, filepath.Join(library, "go", "b.mp4"), "video")
	writeFile(t, filepath.Join(library, "go", "c.pdf"), "pdf")

	store := newTestStorage(t)
	require.NoError(t, NewScanner(store, zerolog.Nop()).ScanPath(library))

	svc := NewProbeService(fakeProber{durations: map[string]int64{"a.mp4": 125}}, store, zerolog.Nop())
	svc.Run(context.Background(), 1, 0)

	pending, err := store.GetModulesWithoutMetadata(10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	courses, err := store.GetCourses()
	require.NoError(t, err)
	modules, err := store.GetModulesByCourse(courses[0].ID)
	require.NoError(t, err)
	require.Len(t, modules, 3)
	require.NotNil(t, modules[0].Duration)
	assert.Equal(t, int64(125), *modules[0].Duration)
	require.NotNil(t, modules[1].Duration)
	assert.Equal(t, int64(0), *modules[1].Duration)
	assert.Nil(t, modules[2].Duration, "documents are not probed")
}

func TestParseDuration(t *testing.T) {
	d, err := parseDuration([]byte(`{"format": {"duration": "300.52"}}`))
	require.NoError(t, err)
	assert.Equal(t, int64(301), d)

	d, err = parseDuration([]byte(`{
		"streams": [{"duration": "61.2"}, {"duration": "62.4"}],
		"format": {"duration": "N/A"}
	}`))
	require.NoError(t, err)
	assert.Equal(t, int64(62), d, "longest stream when the container has no length")

	_, err = parseDuration([]byte(`{"format": {}}`))
	assert.ErrorIs(t, err, ErrNoDuration)

	_, err = parseDuration([]byte(`not json`))
	assert.Error(t, err)
}

func TestModuleTypeOf(t *testing.T) {
	typ, ok := ModuleTypeOf("Lecture.MP4")
	assert.True(t, ok)
	assert.Equal(t, storage.ModuleVideo, typ)

	typ, ok = ModuleTypeOf("handout.pdf")
	assert.True(t, ok)
	assert.Equal(t, storage.ModulePDF, typ)

	typ, ok = ModuleTypeOf("Final.Quiz.YAML")
	assert.True(t, ok)
	assert.Equal(t, storage.ModuleQuiz, typ)

	_, ok = ModuleTypeOf("settings.yaml")
	assert.False(t, ok)

	_, ok = ModuleTypeOf("readme.md")
	assert.False(t, ok)
	assert.Equal(t, "video/webm", GetContentType("a.webm"))
}

func TestScanPathValidatesManifestTypes(t *testing.T) {
	library := t.TempDir()
	writeFile(t, filepath.Join(library, "go", "course.yaml"), `
modules:
  - file: 01-intro.mp4
    type: foo
  - file: notes.txt
    type: foo
  - file: extra.txt
  - file: 03-handout.pdf
    type: PDF
`)
	writeFile(t, filepath.Join(library, "go", "01-intro.mp4"), "video")
	writeFile(t, filepath.Join(library, "go", "02-final.quiz.yaml"), "title: Final")
	writeFile(t, filepath.Join(library, "go", "03-handout.pdf"), "pdf")
	writeFile(t, filepath.Join(library, "go", "notes.txt"), "text")
	writeFile(t, filepath.Join(library, "go", "extra.txt"), "text")

	store := newTestStorage(t)
	require.NoError(t, NewScanner(store, zerolog.Nop()).ScanPath(library))

	courses, err := store.GetCourses()
	require.NoError(t, err)
	require.Len(t, courses, 1)
	modules, err := store.GetModulesByCourse(courses[0].ID)
	require.NoError(t, err)
	require.Len(t, modules, 3)

	assert.Equal(t, "01-intro", modules[0].Title)
	assert.Equal(t, storage.ModuleVideo, modules[0].Type, "unknown types fall back to the file type")
	assert.Equal(t, "02-final", modules[1].Title)
	assert.Equal(t, storage.ModuleQuiz, modules[1].Type)
	assert.Equal(t, storage.ModulePDF, modules[2].Type)
	for _, m := range modules {
		assert.True(t, m.Type.Valid(), m.Title)
	}
}

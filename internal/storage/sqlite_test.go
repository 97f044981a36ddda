package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "data", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedCourse(t *testing.T, store *SQLiteStorage, id string, moduleIDs ...string) {
	t.Helper()
	now := time.Now()
	require.NoError(t, store.CreateCourse(&Course{
		ID:        id,
		Title:     "Course " + id,
		Path:      "/library/" + id,
		CreatedAt: now,
	}))
	for i, moduleID := range moduleIDs {
		require.NoError(t, store.CreateModule(&Module{
			ID:        moduleID,
			CourseID:  id,
			Title:     "Module " + moduleID,
			Type:      ModuleVideo,
			Content:   "/library/" + id + "/" + moduleID + ".mp4",
			Position:  i,
			CreatedAt: now,
		}))
	}
}

func TestCoursesAndModules(t *testing.T) {
	store := newTestStorage(t)
	seedCourse(t, store, "go", "m2", "m1")

	courses, err := store.GetCourses()
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "Course go", courses[0].Title)
	assert.Equal(t, 2, courses[0].TotalModules)
	assert.Equal(t, 0, courses[0].CompletedModules)

	modules, err := store.GetModulesByCourse("go")
	require.NoError(t, err)
	require.Len(t, modules, 2)
	assert.Equal(t, "m2", modules[0].ID, "modules are ordered by position")
	assert.Equal(t, ModuleVideo, modules[0].Type)

	missing, err := store.GetCourse("nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestModuleDuration(t *testing.T) {
	store := newTestStorage(t)
	seedCourse(t, store, "go", "m1", "m2")

	pending, err := store.GetModulesWithoutMetadata(10)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	require.NoError(t, store.UpdateModuleDuration("m1", 300))

	m, err := store.GetModule("m1")
	require.NoError(t, err)
	require.NotNil(t, m.Duration)
	assert.Equal(t, int64(300), *m.Duration)

	pending, err = store.GetModulesWithoutMetadata(10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "m2", pending[0].ID)
}

func TestProgressAndCourseCompletion(t *testing.T) {
	store := newTestStorage(t)
	seedCourse(t, store, "go", "m1", "m2")

	none, err := store.GetProgress("m1")
	require.NoError(t, err)
	assert.Nil(t, none)

	require.NoError(t, store.SaveProgress(&ModuleProgress{
		CourseID: "go", ModuleID: "m1", Position: 290, Duration: 300, Progress: 290.0 / 300, Completed: true,
	}))
	// Rewatching from the start keeps the module completed.
	require.NoError(t, store.SaveProgress(&ModuleProgress{
		CourseID: "go", ModuleID: "m1", Position: 12.5, Duration: 300, Progress: 12.5 / 300,
	}))

	p, err := store.GetProgress("m1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 12.5, p.Position)
	assert.True(t, p.Completed)

	course, err := store.GetCourse("go")
	require.NoError(t, err)
	require.NotNil(t, course)
	assert.Equal(t, 1, course.CompletedModules)
	assert.Equal(t, 0.5, course.Progress)
}

func TestContinueWatching(t *testing.T) {
	store := newTestStorage(t)
	seedCourse(t, store, "go", "m1", "m2", "m3")

	require.NoError(t, store.SaveProgress(&ModuleProgress{CourseID: "go", ModuleID: "m1", Position: 1, Duration: 100, Progress: 0.01}))
	require.NoError(t, store.SaveProgress(&ModuleProgress{CourseID: "go", ModuleID: "m2", Position: 50, Duration: 100, Progress: 0.5}))
	require.NoError(t, store.SaveProgress(&ModuleProgress{CourseID: "go", ModuleID: "m3", Position: 99, Duration: 100, Progress: 0.99, Completed: true}))

	items, err := store.GetContinueWatching(20)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "m2", items[0].Module.ID)
	assert.Equal(t, 50.0, items[0].Progress.Position)
}

func TestBookmarks(t *testing.T) {
	store := newTestStorage(t)
	seedCourse(t, store, "go", "m1")

	now := time.Now()
	require.NoError(t, store.CreateBookmark(&Bookmark{ID: "b2", CourseID: "go", ModuleID: "m1", Timestamp: 80, Label: "later", CreatedAt: now}))
	require.NoError(t, store.CreateBookmark(&Bookmark{ID: "b1", CourseID: "go", ModuleID: "m1", Timestamp: 12, Label: "early", CreatedAt: now}))

	bookmarks, err := store.GetBookmarks("m1")
	require.NoError(t, err)
	require.Len(t, bookmarks, 2)
	assert.Equal(t, "b1", bookmarks[0].ID)
	assert.Equal(t, 12.0, bookmarks[0].Timestamp)

	deleted, err := store.DeleteBookmark("b1")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = store.DeleteBookmark("b1")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestDeleteCourseCascades(t *testing.T) {
	store := newTestStorage(t)
	seedCourse(t, store, "go", "m1")
	require.NoError(t, store.SaveProgress(&ModuleProgress{CourseID: "go", ModuleID: "m1", Position: 5, Duration: 10, Progress: 0.5}))

	require.NoError(t, store.DeleteCourse("go"))

	m, err := store.GetModule("m1")
	require.NoError(t, err)
	assert.Nil(t, m)
	p, err := store.GetProgress("m1")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestQuizAttempts(t *testing.T) {
	store := newTestStorage(t)
	seedCourse(t, store, "go")
	require.NoError(t, store.CreateModule(&Module{
		ID: "q1", CourseID: "go", Title: "Quiz", Type: ModuleQuiz,
		Content: "/library/go/q1.quiz.yaml", CreatedAt: time.Now(),
	}))

	n, err := store.CountQuizAttempts("q1")
	require.NoError(t, err)
	assert.Zero(t, n)

	first := time.Now().Add(-time.Minute)
	require.NoError(t, store.CreateQuizAttempt(&QuizAttempt{
		ID: "a2", CourseID: "go", ModuleID: "q1", Score: 100, Earned: 4, Total: 4, Passed: true, TimeSpent: 30, CreatedAt: time.Now(),
	}))
	require.NoError(t, store.CreateQuizAttempt(&QuizAttempt{
		ID: "a1", CourseID: "go", ModuleID: "q1", Score: 50, Earned: 2, Total: 4, TimeSpent: 45, CreatedAt: first,
	}))

	attempts, err := store.GetQuizAttempts("q1")
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.Equal(t, "a1", attempts[0].ID)
	assert.False(t, attempts[0].Passed)
	assert.Equal(t, 45, attempts[0].TimeSpent)
	assert.True(t, attempts[1].Passed)
	assert.Equal(t, 100.0, attempts[1].Score)

	n, err = store.CountQuizAttempts("q1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Quiz progress never shows up in continue watching.
	require.NoError(t, store.SaveProgress(&ModuleProgress{CourseID: "go", ModuleID: "q1", Progress: 0.5}))
	items, err := store.GetContinueWatching(20)
	require.NoError(t, err)
	assert.Empty(t, items)

	require.NoError(t, store.DeleteModule("q1"))
	attempts, err = store.GetQuizAttempts("q1")
	require.NoError(t, err)
	assert.Empty(t, attempts)
}

func TestModuleTypeValid(t *testing.T) {
	assert.True(t, ModuleVideo.Valid())
	assert.True(t, ModuleQuiz.Valid())
	assert.True(t, ModulePDF.Valid())
	assert.False(t, ModuleType("foo").Valid())
	assert.False(t, ModuleType("").Valid())
}

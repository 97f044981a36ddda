package storage

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteStorage struct {
	db *sql.DB
}

func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStorage{db: db}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *SQLiteStorage) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS courses (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		instructor TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		path TEXT NOT NULL UNIQUE,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS modules (
		id TEXT PRIMARY KEY,
		course_id TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		type TEXT NOT NULL DEFAULT 'video',
		content TEXT NOT NULL UNIQUE,
		position INTEGER NOT NULL DEFAULT 0,
		duration INTEGER,
		file_modified_at DATETIME,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_modules_course ON modules(course_id, position);

	CREATE TABLE IF NOT EXISTS module_progress (
		module_id TEXT PRIMARY KEY REFERENCES modules(id) ON DELETE CASCADE,
		course_id TEXT NOT NULL,
		position REAL NOT NULL,
		duration REAL NOT NULL,
		progress REAL NOT NULL,
		completed BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_progress_updated ON module_progress(updated_at DESC);

	CREATE TABLE IF NOT EXISTS bookmarks (
		id TEXT PRIMARY KEY,
		course_id TEXT NOT NULL,
		module_id TEXT NOT NULL REFERENCES modules(id) ON DELETE CASCADE,
		timestamp REAL NOT NULL,
		label TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_bookmarks_module ON bookmarks(module_id, timestamp);

	CREATE TABLE IF NOT EXISTS quiz_attempts (
		id TEXT PRIMARY KEY,
		course_id TEXT NOT NULL,
		module_id TEXT NOT NULL REFERENCES modules(id) ON DELETE CASCADE,
		score REAL NOT NULL,
		earned INTEGER NOT NULL,
		total INTEGER NOT NULL,
		passed BOOLEAN NOT NULL DEFAULT FALSE,
		time_spent INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_quiz_attempts_module ON quiz_attempts(module_id, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Courses

const courseColumns = `
	c.id, c.title, c.description, c.instructor, c.category, c.path, c.created_at,
	(SELECT COUNT(*) FROM modules m WHERE m.course_id = c.id),
	(SELECT COUNT(*) FROM module_progress p WHERE p.course_id = c.id AND p.completed)
`

func scanCourse(row interface{ Scan(...any) error }) (Course, error) {
	var c Course
	err := row.Scan(
		&c.ID, &c.Title, &c.Description, &c.Instructor, &c.Category, &c.Path, &c.CreatedAt,
		&c.TotalModules, &c.CompletedModules,
	)
	if err != nil {
		return c, err
	}
	if c.TotalModules > 0 {
		c.Progress = float64(c.CompletedModules) / float64(c.TotalModules)
	}
	return c, nil
}

func (s *SQLiteStorage) CreateCourse(c *Course) error {
	_, err := s.db.Exec(`
		INSERT INTO courses (id, title, description, instructor, category, path, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			instructor = excluded.instructor,
			category = excluded.category
	`, c.ID, c.Title, c.Description, c.Instructor, c.Category, c.Path, c.CreatedAt)

	return err
}

func (s *SQLiteStorage) GetCourses() ([]Course, error) {
	rows, err := s.db.Query(`SELECT ` + courseColumns + ` FROM courses c ORDER BY c.title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courses []Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}

	return courses, rows.Err()
}

func (s *SQLiteStorage) GetCourse(id string) (*Course, error) {
	row := s.db.QueryRow(`SELECT `+courseColumns+` FROM courses c WHERE c.id = ?`, id)

	c, err := scanCourse(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &c, nil
}

// GetAllCoursePaths returns all course folder paths for cleanup
func (s *SQLiteStorage) GetAllCoursePaths() (map[string]string, error) {
	return s.pathsByID("SELECT id, path FROM courses")
}

func (s *SQLiteStorage) DeleteCourse(id string) error {
	_, err := s.db.Exec("DELETE FROM courses WHERE id = ?", id)
	return err
}

// Modules

const moduleColumns = `id, course_id, title, type, content, position, duration, file_modified_at, created_at`

func scanModule(row interface{ Scan(...any) error }) (Module, error) {
	var m Module
	var modifiedAt sql.NullTime
	err := row.Scan(
		&m.ID, &m.CourseID, &m.Title, &m.Type, &m.Content, &m.Position,
		&m.Duration, &modifiedAt, &m.CreatedAt,
	)
	if modifiedAt.Valid {
		m.ModifiedAt = modifiedAt.Time
	}
	return m, err
}

func (s *SQLiteStorage) CreateModule(m *Module) error {
	_, err := s.db.Exec(`
		INSERT INTO modules (
			id, course_id, title, type, content, position, duration,
			file_modified_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(content) DO UPDATE SET
			title = excluded.title,
			position = excluded.position,
			file_modified_at = excluded.file_modified_at,
			updated_at = excluded.updated_at
	`,
		m.ID, m.CourseID, m.Title, m.Type, m.Content, m.Position, m.Duration,
		m.ModifiedAt, m.CreatedAt, time.Now(),
	)

	return err
}

func (s *SQLiteStorage) GetModule(id string) (*Module, error) {
	row := s.db.QueryRow(`SELECT `+moduleColumns+` FROM modules WHERE id = ?`, id)

	m, err := scanModule(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &m, nil
}

func (s *SQLiteStorage) GetModulesByCourse(courseID string) ([]Module, error) {
	return s.queryModules(`SELECT `+moduleColumns+` FROM modules WHERE course_id = ? ORDER BY position, title`, courseID)
}

// GetModulesWithoutMetadata returns video modules whose duration has not been probed yet
func (s *SQLiteStorage) GetModulesWithoutMetadata(limit int) ([]Module, error) {
	return s.queryModules(`SELECT `+moduleColumns+` FROM modules WHERE duration IS NULL AND type = 'video' LIMIT ?`, limit)
}

func (s *SQLiteStorage) queryModules(query string, args ...any) ([]Module, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var modules []Module
	for rows.Next() {
		m, err := scanModule(rows)
		if err != nil {
			return nil, err
		}
		modules = append(modules, m)
	}

	return modules, rows.Err()
}

func (s *SQLiteStorage) UpdateModuleDuration(id string, duration int64) error {
	_, err := s.db.Exec(`
		UPDATE modules SET duration = ?, updated_at = ? WHERE id = ?
	`, duration, time.Now(), id)
	return err
}

// GetAllModulePaths returns all module content paths for cleanup
func (s *SQLiteStorage) GetAllModulePaths() (map[string]string, error) {
	return s.pathsByID("SELECT id, content FROM modules")
}

func (s *SQLiteStorage) DeleteModule(id string) error {
	_, err := s.db.Exec("DELETE FROM modules WHERE id = ?", id)
	return err
}

// Progress

// SaveProgress saves or updates the resume position for a module
func (s *SQLiteStorage) SaveProgress(p *ModuleProgress) error {
	_, err := s.db.Exec(`
		INSERT INTO module_progress (module_id, course_id, position, duration, progress, completed, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(module_id) DO UPDATE SET
			position = excluded.position,
			duration = excluded.duration,
			progress = excluded.progress,
			completed = module_progress.completed OR excluded.completed,
			updated_at = excluded.updated_at
	`, p.ModuleID, p.CourseID, p.Position, p.Duration, p.Progress, p.Completed, time.Now())
	return err
}

func (s *SQLiteStorage) GetProgress(moduleID string) (*ModuleProgress, error) {
	row := s.db.QueryRow(`
		SELECT course_id, module_id, position, duration, progress, completed, updated_at
		FROM module_progress WHERE module_id = ?
	`, moduleID)

	var p ModuleProgress
	err := row.Scan(&p.CourseID, &p.ModuleID, &p.Position, &p.Duration, &p.Progress, &p.Completed, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &p, nil
}

// GetContinueWatching returns modules with playback progress (not finished)
// Progress between 2% and 95% is considered "in progress"
func (s *SQLiteStorage) GetContinueWatching(limit int) ([]ContinueWatchingItem, error) {
	rows, err := s.db.Query(`
		SELECT
			m.id, m.course_id, m.title, m.type, m.content, m.position, m.duration,
			m.file_modified_at, m.created_at,
			p.course_id, p.module_id, p.position, p.duration, p.progress, p.completed, p.updated_at
		FROM module_progress p
		JOIN modules m ON p.module_id = m.id
		WHERE m.type = 'video' AND p.progress > 0.02 AND p.progress < ?
		ORDER BY p.updated_at DESC
		LIMIT ?
	`, CompletionThreshold, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ContinueWatchingItem
	for rows.Next() {
		var item ContinueWatchingItem
		var modifiedAt sql.NullTime
		if err := rows.Scan(
			&item.Module.ID, &item.Module.CourseID, &item.Module.Title, &item.Module.Type,
			&item.Module.Content, &item.Module.Position, &item.Module.Duration,
			&modifiedAt, &item.Module.CreatedAt,
			&item.Progress.CourseID, &item.Progress.ModuleID, &item.Progress.Position,
			&item.Progress.Duration, &item.Progress.Progress, &item.Progress.Completed,
			&item.Progress.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if modifiedAt.Valid {
			item.Module.ModifiedAt = modifiedAt.Time
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// Bookmarks

func (s *SQLiteStorage) CreateBookmark(b *Bookmark) error {
	_, err := s.db.Exec(`
		INSERT INTO bookmarks (id, course_id, module_id, timestamp, label, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, b.ID, b.CourseID, b.ModuleID, b.Timestamp, b.Label, b.CreatedAt)
	return err
}

func (s *SQLiteStorage) GetBookmarks(moduleID string) ([]Bookmark, error) {
	rows, err := s.db.Query(`
		SELECT id, course_id, module_id, timestamp, label, created_at
		FROM bookmarks WHERE module_id = ? ORDER BY timestamp, created_at
	`, moduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookmarks []Bookmark
	for rows.Next() {
		var b Bookmark
		if err := rows.Scan(&b.ID, &b.CourseID, &b.ModuleID, &b.Timestamp, &b.Label, &b.CreatedAt); err != nil {
			return nil, err
		}
		bookmarks = append(bookmarks, b)
	}

	return bookmarks, rows.Err()
}

// DeleteBookmark removes a bookmark and reports whether it existed
func (s *SQLiteStorage) DeleteBookmark(id string) (bool, error) {
	res, err := s.db.Exec("DELETE FROM bookmarks WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Quiz attempts

func (s *SQLiteStorage) CreateQuizAttempt(a *QuizAttempt) error {
	_, err := s.db.Exec(`
		INSERT INTO quiz_attempts (id, course_id, module_id, score, earned, total, passed, time_spent, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.CourseID, a.ModuleID, a.Score, a.Earned, a.Total, a.Passed, a.TimeSpent, a.CreatedAt)
	return err
}

// GetQuizAttempts returns a module's attempts, oldest first
func (s *SQLiteStorage) GetQuizAttempts(moduleID string) ([]QuizAttempt, error) {
	rows, err := s.db.Query(`
		SELECT id, course_id, module_id, score, earned, total, passed, time_spent, created_at
		FROM quiz_attempts WHERE module_id = ? ORDER BY created_at, id
	`, moduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []QuizAttempt
	for rows.Next() {
		var a QuizAttempt
		if err := rows.Scan(&a.ID, &a.CourseID, &a.ModuleID, &a.Score, &a.Earned, &a.Total, &a.Passed, &a.TimeSpent, &a.CreatedAt); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}

	return attempts, rows.Err()
}

func (s *SQLiteStorage) CountQuizAttempts(moduleID string) (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM quiz_attempts WHERE module_id = ?", moduleID).Scan(&n)
	return n, err
}

func (s *SQLiteStorage) pathsByID(query string) (map[string]string, error) {
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	paths := make(map[string]string)
	for rows.Next() {
		var id, path string
		if err := rows.Scan(&id, &path); err != nil {
			return nil, err
		}
		paths[id] = path
	}
	return paths, rows.Err()
}

package media

import (
	"path/filepath"
	"strings"

	"learnview/internal/storage"
)

// quizSuffixes mark quiz files found without a manifest entry.
var quizSuffixes = []string{".quiz.yaml", ".quiz.yml", ".quiz.json"}

var supportedVideoExtensions = map[string]bool{
	".mp4":  true,
	".m4v":  true,
	".mkv":  true,
	".webm": true,
	".mov":  true,
}

func IsSupportedVideo(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return supportedVideoExtensions[ext]
}

// ModuleTypeOf reports which module a file becomes when found in a course
// folder without a manifest entry.
func ModuleTypeOf(filename string) (storage.ModuleType, bool) {
	if IsSupportedVideo(filename) {
		return storage.ModuleVideo, true
	}
	if _, ok := quizBase(filename); ok {
		return storage.ModuleQuiz, true
	}
	if strings.ToLower(filepath.Ext(filename)) == ".pdf" {
		return storage.ModulePDF, true
	}
	return "", false
}

func GetContentType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".mp4", ".m4v":
		return "video/mp4"
	case ".mkv":
		return "video/x-matroska"
	case ".webm":
		return "video/webm"
	case ".mov":
		return "video/quicktime"
	case ".pdf":
		return "application/pdf"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

// quizBase strips a quiz suffix from filename.
func quizBase(filename string) (string, bool) {
	lower := strings.ToLower(filename)
	for _, suffix := range quizSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return filename[:len(filename)-len(suffix)], true
		}
	}
	return "", false
}

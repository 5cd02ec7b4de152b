package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// setupTestDir points the log directory at a temp dir and resets global state
func setupTestDir(t *testing.T) {
	t.Helper()

	origLogDir := logDir
	origInitErr := initErr
	origSessionID := sessionID

	logDir = t.TempDir()
	initErr = nil
	initOnce = sync.Once{}
	sessionID = ""
	sessionIDOnce = sync.Once{}

	t.Cleanup(func() {
		logDir = origLogDir
		initErr = origInitErr
		initOnce = sync.Once{}
		sessionID = origSessionID
		sessionIDOnce = sync.Once{}
	})
}

func TestNewLogger(t *testing.T) {
	setupTestDir(t)

	logger, err := NewLogger("scraper")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Close()

	if logger.component != "scraper" {
		t.Errorf("Expected component 'scraper', got %q", logger.component)
	}
	if logger.SessionID() == "" {
		t.Error("Expected non-empty session ID")
	}
	if _, err := os.Stat(logger.LogPath()); err != nil {
		t.Errorf("Log file does not exist at %s: %v", logger.LogPath(), err)
	}
}

func TestLoggerFormatting(t *testing.T) {
	setupTestDir(t)

	logger, err := NewLogger("test")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Close()

	logger.Debugf("Debug message")
	logger.Infof("Info message %d", 123)
	logger.Warnf("Warning message")
	logger.Errorf("Error message")

	content, err := os.ReadFile(logger.LogPath())
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	for _, pattern := range []string{
		"[test] [DEBUG] Debug message",
		"[test] [INFO] Info message 123",
		"[test] [WARN] Warning message",
		"[test] [ERROR] Error message",
	} {
		if !strings.Contains(string(content), pattern) {
			t.Errorf("Log content missing expected pattern: %q\nContent:\n%s", pattern, content)
		}
	}
}

func TestMultipleComponents(t *testing.T) {
	setupTestDir(t)

	logger1, err := NewLogger("scraper")
	if err != nil {
		t.Fatalf("Failed to create logger1: %v", err)
	}
	defer logger1.Close()

	logger2, err := NewLogger("browser")
	if err != nil {
		t.Fatalf("Failed to create logger2: %v", err)
	}
	defer logger2.Close()

	if logger1.LogPath() != logger2.LogPath() {
		t.Errorf("Expected same log path, got %q and %q", logger1.LogPath(), logger2.LogPath())
	}

	logger1.Infof("from scraper")
	logger2.Infof("from browser")

	content, err := os.ReadFile(logger1.LogPath())
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(content), "[scraper]") || !strings.Contains(string(content), "[browser]") {
		t.Errorf("Log missing component entries:\n%s", content)
	}
}

func TestWriterLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger("cli", &buf, false)

	logger.Debugf("hidden")
	logger.Infof("shown")
	logger.With("browser").Warnf("child")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("Debug line written by non-verbose logger:\n%s", out)
	}
	if !strings.Contains(out, "[cli] [INFO] shown") {
		t.Errorf("Missing info line:\n%s", out)
	}
	if !strings.Contains(out, "[browser] [WARN] child") {
		t.Errorf("Missing child component line:\n%s", out)
	}

	buf.Reset()
	NewWriterLogger("cli", &buf, true).Debugf("visible")
	if !strings.Contains(buf.String(), "[cli] [DEBUG] visible") {
		t.Errorf("Verbose logger dropped debug line: %q", buf.String())
	}
}

func TestLoggerClose(t *testing.T) {
	setupTestDir(t)

	logger, err := NewLogger("test")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	if err := logger.Close(); err != nil {
		t.Errorf("First close failed: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("Second close failed: %v", err)
	}
	if err := Discard().Close(); err != nil {
		t.Errorf("Closing writer logger failed: %v", err)
	}
}

func TestLogPathFormat(t *testing.T) {
	setupTestDir(t)

	logger, err := NewLogger("test")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Close()

	fileName := filepath.Base(logger.LogPath())
	if !strings.HasSuffix(fileName, "-textfrag.log") {
		t.Errorf("Expected log file to end with '-textfrag.log', got %q", fileName)
	}

	sessionPart := strings.TrimSuffix(fileName, "-textfrag.log")
	if sessionPart != logger.SessionID() {
		t.Errorf("Expected file name to start with session ID %q, got %q", logger.SessionID(), sessionPart)
	}
}

func TestGetLogDirectory(t *testing.T) {
	setupTestDir(t)

	dir, err := GetLogDirectory()
	if err != nil {
		t.Fatalf("Failed to get log directory: %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("Log directory does not exist or is not a directory: %s", dir)
	}
}

package logging

import (
	"bytes"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestDebug_DisabledInProduction(t *testing.T) {
	var buf bytes.Buffer

	logger := log.NewWithOptions(&buf, log.Options{
		ReportTimestamp: false,
		ReportCaller:    false,
	})
	logger.SetLevel(log.DebugLevel)

	appLogger := &AppLogger{
		logger: logger,
		debug:  false, // Production mode
	}

	appLogger.Debug("debug message that should not appear")

	output := buf.String()
	if strings.Contains(output, "debug message that should not appear") {
		t.Errorf("Expected debug message to be suppressed in production mode, got: %s", output)
	}
}

func TestSetDebug(t *testing.T) {
	var buf bytes.Buffer

	logger := log.NewWithOptions(&buf, log.Options{
		ReportTimestamp: false,
		ReportCaller:    false,
	})
	logger.SetLevel(log.WarnLevel)

	appLogger := &AppLogger{logger: logger, debug: false}

	appLogger.Debug("before enabling")
	appLogger.SetDebug(true)
	appLogger.Debug("after enabling")

	output := buf.String()
	if strings.Contains(output, "before enabling") {
		t.Errorf("Expected debug suppressed before SetDebug(true), got: %s", output)
	}
	if !strings.Contains(output, "after enabling") {
		t.Errorf("Expected debug emitted after SetDebug(true), got: %s", output)
	}
}

func TestDebugObject(t *testing.T) {
	logger, buf := NewTestLogger()

	testObj := struct {
		Name  string
		Value int
	}{
		Name:  "test",
		Value: 42,
	}

	logger.DebugObject("test_object", testObj)

	output := buf.String()
	if !strings.Contains(output, "Object dump") {
		t.Errorf("Expected log output to contain 'Object dump', got: %s", output)
	}
	if !strings.Contains(output, "test_object") {
		t.Errorf("Expected log output to contain object name, got: %s", output)
	}
	if !strings.Contains(output, "test") {
		t.Errorf("Expected log output to contain object data, got: %s", output)
	}
}

func TestLogPerformance(t *testing.T) {
	logger, buf := NewTestLogger()

	start := time.Now()
	time.Sleep(1 * time.Millisecond) // Small delay for measurable duration
	logger.LogPerformance("test_operation", start)

	output := buf.String()
	if !strings.Contains(output, "Performance") {
		t.Errorf("Expected log output to contain 'Performance', got: %s", output)
	}
	if !strings.Contains(output, "test_operation") {
		t.Errorf("Expected log output to contain operation name, got: %s", output)
	}
	if !strings.Contains(output, "duration") {
		t.Errorf("Expected log output to contain duration, got: %s", output)
	}
}

func TestCharm(t *testing.T) {
	logger, buf := NewTestLogger()

	logger.Charm().Info("direct charm access")

	if !strings.Contains(buf.String(), "direct charm access") {
		t.Errorf("Expected Charm() to expose the underlying logger, got: %s", buf.String())
	}
}

func TestPackageLevelFunctions(t *testing.T) {
	// Reset the singleton for testing
	defaultLogger = nil
	once = sync.Once{}

	// Run from a temp dir so the debug log file lands there
	t.Chdir(t.TempDir())

	// Set debug mode for testing
	os.Setenv("DEBUG", "1")
	defer os.Unsetenv("DEBUG")

	// Test that package-level functions work
	Info("package level info")
	Warn("package level warn")
	Error("package level error")
	Debug("package level debug")

	// Test LogPerformance at package level
	start := time.Now()
	LogPerformance("package_operation", start)

	// If we get here without panics, the package-level functions work
}

func TestGetDefault_Singleton(t *testing.T) {
	// Reset the singleton for testing
	defaultLogger = nil
	once = sync.Once{}

	logger1 := GetDefault()
	logger2 := GetDefault()

	if logger1 != logger2 {
		t.Error("Expected GetDefault() to return the same instance (singleton)")
	}
}

// Benchmark tests
func BenchmarkInfo(b *testing.B) {
	logger, _ := NewTestLogger()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Info("benchmark message", "iteration", i)
	}
}

func BenchmarkDebug(b *testing.B) {
	logger, _ := NewTestLogger()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Debug("benchmark debug message", "iteration", i)
	}
}

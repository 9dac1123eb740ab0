package gate

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

func TestFileAccessLog_AppendsLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access.log")

	log, closeFn, err := NewFileAccessLog(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	log.Record("1.2.3.4", EventHashGenerated, "abc")
	log.Record("1.2.3.4", EventRateLimitExceeded, "")
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), data)
	}

	line := regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2} \| 1\.2\.3\.4 \| hash_generated \| abc$`)
	if !line.MatchString(lines[0]) {
		t.Errorf("unexpected line format %q", lines[0])
	}
	if !strings.Contains(lines[1], "| rate_limit_exceeded |") {
		t.Errorf("unexpected second line %q", lines[1])
	}
}

func TestFileAccessLog_Reopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access.log")

	for i := 0; i < 2; i++ {
		log, closeFn, err := NewFileAccessLog(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		log.Record("1.2.3.4", EventLoginAttempt, "abc")
		_ = closeFn()
	}

	data, _ := os.ReadFile(path)
	if n := strings.Count(string(data), "login_attempt"); n != 2 {
		t.Errorf("expected appended lines from both opens, got %d", n)
	}
}

func TestFileAccessLog_EmptyPathDiscards(t *testing.T) {
	log, closeFn, err := NewFileAccessLog("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	log.Record("1.2.3.4", EventLoginFailed, "abc")
	if err := closeFn(); err != nil {
		t.Errorf("unexpected close error: %v", err)
	}
}

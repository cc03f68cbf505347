package logging

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Zachkp/folio/internal/config"
)

func TestSetupWritesToRotatingFile(t *testing.T) {
	defer log.SetOutput(os.Stderr)
	file := filepath.Join(t.TempDir(), "folio.log")

	w, closer := Setup(config.LogConfig{File: file, MaxSizeMB: 1, MaxBackups: 1, MaxAgeDays: 1})
	New(w, "test").Println("hello")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(data), "[test] ") || !strings.Contains(string(data), "hello") {
		t.Errorf("log file = %q", data)
	}
}

func TestNewPrefixesComponent(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "live").Printf("client %d connected", 3)
	if !strings.HasPrefix(buf.String(), "[live] ") {
		t.Errorf("output = %q", buf.String())
	}
}

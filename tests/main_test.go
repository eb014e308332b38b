package tests

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/yaksetig/votex-sub001/log"
)

var services *Services

func TestMain(m *testing.M) {
	log.Init(log.LogLevelDebug, "stdout", nil)

	tempDir := os.TempDir() + "/votex-test-" + time.Now().Format("20060102150405")

	ctx, cancel := context.WithCancel(context.Background())

	var err error
	var cleanup func()
	services, cleanup, err = NewTestService(ctx, tempDir)
	if err != nil {
		log.Fatalf("failed to setup test services: %v", err)
	}

	code := m.Run()

	cancel()

	cleanupDone := make(chan struct{})
	go func() {
		cleanup()
		close(cleanupDone)
	}()

	select {
	case <-cleanupDone:
	case <-time.After(30 * time.Second):
		log.Warn("cleanup timed out, forcing exit")
	}

	if err := os.RemoveAll(tempDir); err != nil {
		log.Fatalf("failed to remove temp dir (%s): %v", tempDir, err)
	}
	os.Exit(code)
}

package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vk/pipegrid/internal/app"
	"github.com/vk/pipegrid/internal/config"
	"github.com/vk/pipegrid/internal/localexec"
	"github.com/vk/pipegrid/internal/run"
)

// HarnessResult holds the outcomes of an app-level test run.
type HarnessResult struct {
	LogOutput string
	Outcome   run.Outcome
	Err       error
	App       *app.App
}

// RunPipelineTest writes the given pipeline document to a temp directory and
// runs it end to end through the app with the provided executor, using a
// default background context.
func RunPipelineTest(t *testing.T, filename, content string, exec localexec.Executor, overrides ...func(*app.Config)) *HarnessResult {
	t.Helper()
	return RunPipelineTestWithContext(context.Background(), t, filename, content, exec, overrides...)
}

// RunPipelineTestWithContext is RunPipelineTest with a caller-provided
// context, for cancellation scenarios.
func RunPipelineTestWithContext(ctx context.Context, t *testing.T, filename, content string, exec localexec.Executor, overrides ...func(*app.Config)) *HarnessResult {
	t.Helper()

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, filename)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg := app.Config{
		PipelinePath: path,
		Event:        "push",
		Branch:       "main",
		Workers:      4,
		GracePeriod:  time.Second,
		LogFormat:    "text",
		LogLevel:     "debug",
	}
	for _, override := range overrides {
		override(&cfg)
	}
	appConfig, err := app.NewConfig(cfg)
	require.NoError(t, err)

	loader, err := config.ForPath(path)
	require.NoError(t, err)

	logBuffer := &SafeBuffer{}

	var testApp *app.App
	var panicErr any
	func() {
		defer func() {
			if r := recover(); r != nil {
				panicErr = r
			}
		}()
		testApp = app.NewApp(logBuffer, appConfig, loader, exec)
	}()
	if panicErr != nil {
		return &HarnessResult{
			LogOutput: logBuffer.String(),
			Err:       fmt.Errorf("application startup panicked | %v", panicErr),
		}
	}

	outcome, runErr := testApp.Run(ctx)
	return &HarnessResult{
		LogOutput: logBuffer.String(),
		Outcome:   outcome,
		Err:       runErr,
		App:       testApp,
	}
}

package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DebugOptions contains configuration for debug output.
type DebugOptions struct {
	Enabled      bool
	OutputDir    string
	SaveToFile   bool
	LogPrompts   bool
	LogResponses bool
}

// DebugManager records the meta-prompts sent to the teacher model and the
// rewrites it returns.
type DebugManager struct {
	options   DebugOptions
	logger    Logger
	outputDir string
	now       func() time.Time
}

// NewDebugManager creates a new debug manager with the given options.
func NewDebugManager(logger Logger, options DebugOptions) *DebugManager {
	if logger == nil {
		logger = NewNopLogger()
	}
	outputDir := options.OutputDir
	if outputDir == "" {
		outputDir = filepath.Join(".", "debug_output")
	}

	if options.SaveToFile && options.Enabled {
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			logger.Warn("Failed to create debug output directory", "dir", outputDir, "error", err)
		}
	}

	return &DebugManager{
		options:   options,
		logger:    logger,
		outputDir: outputDir,
		now:       time.Now,
	}
}

// IsEnabled returns whether debugging is enabled.
func (dm *DebugManager) IsEnabled() bool {
	return dm != nil && dm.options.Enabled
}

// LogPrompt logs a prompt if prompt logging is enabled.
func (dm *DebugManager) LogPrompt(name string, prompt string) {
	if !dm.IsEnabled() || !dm.options.LogPrompts {
		return
	}

	dm.logger.Debug("Prompt", "name", name, "prompt", prompt)
	if dm.options.SaveToFile {
		dm.saveToFile(fmt.Sprintf("prompt_%s_%s.txt", name, dm.stamp()), prompt)
	}
}

// LogResponse logs a response if response logging is enabled.
func (dm *DebugManager) LogResponse(name string, response string) {
	if !dm.IsEnabled() || !dm.options.LogResponses {
		return
	}

	dm.logger.Debug("Response", "name", name, "response", response)
	if dm.options.SaveToFile {
		dm.saveToFile(fmt.Sprintf("response_%s_%s.txt", name, dm.stamp()), response)
	}
}

func (dm *DebugManager) stamp() string {
	return dm.now().Format("20060102_150405.000000")
}

func (dm *DebugManager) saveToFile(filename string, content string) {
	path := filepath.Join(dm.outputDir, filename)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		dm.logger.Error("Failed to open file for debug output", "error", err, "file", path)
		return
	}
	defer file.Close()

	if _, err := fmt.Fprintf(file, "[%s] %s\n", dm.now().Format("2006-01-02 15:04:05"), content); err != nil {
		dm.logger.Error("Failed to write debug output", "error", err, "file", path)
	}
}

package application

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
)

const (
	// AppName is the application name used for directories and identification
	AppName = "ai-models"

	// AppExeName is the executable name (without extension)
	AppExeName = "ai-models"

	// Version is the release version stamped into builds
	Version = "0.7.3"
)

var (
	once   sync.Once
	appDir string
	errDir error
)

// GetApplicationDirectory returns the ai-models configuration directory path.
// Linux: ~/.config/ai-models (via os.UserConfigDir)
// Windows: C:\Users\{username}\AppData\Local\ai-models (via os.UserCacheDir)
func GetApplicationDirectory() (string, error) {
	once.Do(lazyLoad)

	if errDir != nil {
		return "", errDir
	}

	return appDir, errDir
}

func lazyLoad() {
	var (
		baseDir string
		err     error
	)

	switch runtime.GOOS {
	case "windows":
		// Windows: use AppData\Local (via UserCacheDir)
		baseDir, err = os.UserCacheDir()
	default:
		// Linux/others: use ~/.config (via UserConfigDir)
		baseDir, err = os.UserConfigDir()
	}

	if err != nil {
		errDir = fmt.Errorf("failed to get config directory: %w", err)
	}

	appDir = filepath.Join(baseDir, AppName)
}

// CacheDirectory returns the ai-models cache directory, creating it if
// needed. Downloaded constants files and in-flight asset chunks land here.
func CacheDirectory() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to get cache directory: %w", err)
	}

	dir := filepath.Join(base, AppName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	return dir, nil
}

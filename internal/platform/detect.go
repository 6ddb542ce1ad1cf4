package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const appDirName = "fwtext"

// DefaultModelName is the directory name of the model fwtext ships with.
const DefaultModelName = "faster-whisper-large-v3"

type Environment struct {
	HomeDir      string
	XDGDataHome  string
	LocalAppData string
}

func CurrentEnvironment() (Environment, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return Environment{}, fmt.Errorf("resolve user home: %w", err)
	}

	return Environment{
		HomeDir:      homeDir,
		XDGDataHome:  os.Getenv("XDG_DATA_HOME"),
		LocalAppData: os.Getenv("LOCALAPPDATA"),
	}, nil
}

func DefaultModelDirFor(goos string, env Environment) (string, error) {
	dataDir, err := defaultDataDirFor(goos, env)
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "models", DefaultModelName), nil
}

func ResolveModelDir(override string) (string, error) {
	if override != "" {
		return filepath.Clean(override), nil
	}

	env, err := CurrentEnvironment()
	if err != nil {
		return "", err
	}

	return DefaultModelDirFor(runtime.GOOS, env)
}

func defaultDataDirFor(goos string, env Environment) (string, error) {
	if env.HomeDir == "" {
		return "", errors.New("home directory is empty")
	}

	switch goos {
	case "linux":
		if env.XDGDataHome != "" {
			return filepath.Join(env.XDGDataHome, appDirName), nil
		}
		return filepath.Join(env.HomeDir, ".local", "share", appDirName), nil
	case "darwin":
		return filepath.Join(env.HomeDir, "Library", "Application Support", appDirName), nil
	case "windows":
		if env.LocalAppData != "" {
			return filepath.Join(env.LocalAppData, appDirName), nil
		}
		return filepath.Join(env.HomeDir, "AppData", "Local", appDirName), nil
	default:
		return "", fmt.Errorf("unsupported OS: %s", goos)
	}
}

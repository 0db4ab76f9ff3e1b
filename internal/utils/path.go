package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/charmbracelet/log"
)

// DatasetNames are the file names searched for inside a data directory, in order.
var DatasetNames = []string{"cities.csv", "cities.json", "cities.csv.gz", "cities.json.gz"}

// PathResolver resolves data, config and session paths relative to the binary
type PathResolver struct {
	executablePath string
	executableDir  string
	homeDir        string
	configDir      string
}

// NewPathResolver creates a new path resolver that determines the executable location
func NewPathResolver() (*PathResolver, error) {
	execPath, err := os.Executable()
	if err != nil {
		return nil, err
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return nil, err
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Warnf("Could not determine home directory: %v", err)
		homeDir = os.TempDir()
	}

	pr := &PathResolver{
		executablePath: execPath,
		executableDir:  filepath.Dir(execPath),
		homeDir:        homeDir,
		configDir:      getConfigDir(homeDir),
	}
	log.Debugf("PathResolver initialized: exec=%s, configDir=%s", execPath, pr.configDir)
	return pr, nil
}

// getConfigDir returns the appropriate config directory for the platform
func getConfigDir(homeDir string) string {
	switch runtime.GOOS {
	case "linux":
		if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
			return filepath.Join(configHome, "cityserve")
		}
		return filepath.Join(homeDir, ".config", "cityserve")
	case "darwin":
		return filepath.Join(homeDir, ".config", "cityserve")
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "cityserve")
		}
		return filepath.Join(homeDir, "AppData", "Roaming", "cityserve")
	default:
		return filepath.Join(homeDir, ".cityserve")
	}
}

// GetDataFile resolves the dataset file. userPath may name a file or a directory
// holding one of DatasetNames. It tries, in order:
// 1. userPath as given (absolute or relative to the working dir)
// 2. userPath relative to the executable directory
// 3. data/ next to the executable, its parent, and the config dir
func (pr *PathResolver) GetDataFile(userPath string) (string, error) {
	for _, candidate := range pr.dataCandidates(userPath) {
		if path, ok := findDataset(candidate); ok {
			log.Debugf("Found dataset: %s", path)
			return path, nil
		}
		log.Debugf("Dataset candidate not valid: %s", candidate)
	}
	return "", fmt.Errorf("no city dataset found for %q: %w", userPath, os.ErrNotExist)
}

func (pr *PathResolver) dataCandidates(userPath string) []string {
	var candidates []string
	if userPath != "" {
		candidates = append(candidates, userPath)
		if !filepath.IsAbs(userPath) {
			candidates = append(candidates, filepath.Join(pr.executableDir, userPath))
		}
	}
	return append(candidates,
		filepath.Join(pr.executableDir, "data"),
		filepath.Join(filepath.Dir(pr.executableDir), "data"),
		filepath.Join(pr.configDir, "data"),
	)
}

// findDataset returns path itself when it is a file, or the first known dataset
// file inside it when it is a directory.
func findDataset(path string) (string, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return "", false
	}
	if !info.IsDir() {
		return path, true
	}
	for _, name := range DatasetNames {
		candidate := filepath.Join(path, name)
		if FileExists(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// GetConfigPath returns the full path for a config file, falling back to other
// writable locations when the config dir is read-only
func (pr *PathResolver) GetConfigPath(filename string) (string, error) {
	if pr.ensureDir(pr.configDir) {
		return filepath.Join(pr.configDir, filename), nil
	}

	fallbackDirs := []string{
		filepath.Join(pr.homeDir, ".cityserve"),
		filepath.Join(os.TempDir(), "cityserve"),
		pr.executableDir,
	}
	for _, dir := range fallbackDirs {
		if pr.ensureDir(dir) {
			path := filepath.Join(dir, filename)
			log.Warnf("Using fallback config location: %s", path)
			return path, nil
		}
	}

	tempPath := filepath.Join(os.TempDir(), filename)
	log.Warnf("Using temporary config file: %s", tempPath)
	return tempPath, nil
}

// GetSessionDir returns the directory used by the session store
func (pr *PathResolver) GetSessionDir() string {
	return filepath.Join(pr.configDir, "session")
}

// GetConfigDir returns the config directory
func (pr *PathResolver) GetConfigDir() string {
	return pr.configDir
}

// GetExecutableDir returns the directory containing the executable
func (pr *PathResolver) GetExecutableDir() string {
	return pr.executableDir
}

// ensureDir creates the directory if needed and tests writability
func (pr *PathResolver) ensureDir(dir string) bool {
	result := CheckDirStatus(dir)
	if result.Error != nil {
		log.Debugf("Cannot use directory %s: %v", dir, result.Error)
	}
	return result.Writable
}

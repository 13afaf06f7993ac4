package config

import (
	"os"
	"path/filepath"
)

const appDirName = ".finchat"

// DataDir returns the base data directory for finchat.
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, appDirName), nil
}

// ConfigPath returns the path to the TOML configuration file.
func ConfigPath() (string, error) {
	return dataFile("config.toml")
}

// EnvPath returns the path to the optional dotenv override file.
func EnvPath() (string, error) {
	return dataFile(".env")
}

// StateDBPath returns the path to the local UI state database.
func StateDBPath() (string, error) {
	return dataFile("state.db")
}

// StatePath and ChatCachePath back the JSON fallback used when the state
// database is held by another process.
func StatePath() (string, error) {
	return dataFile("state.json")
}

func ChatCachePath() (string, error) {
	return dataFile("chats.json")
}

// LogPath returns the default log file used while the terminal UI is running.
func LogPath() (string, error) {
	return dataFile("finchat.log")
}

func dataFile(name string) (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, name), nil
}

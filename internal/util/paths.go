package util

import (
	"os"
	"path/filepath"
)

// StateDirName is the per-project directory typesync keeps its own state in.
const StateDirName = ".typesync"

// HomeDir returns the user's home directory
func HomeDir() string {
	home, _ := os.UserHomeDir()
	return home
}

// ResolveDir returns dir as an absolute path, falling back to dir itself
// when the working directory cannot be determined.
func ResolveDir(dir string) string {
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return dir
	}
	return abs
}

// StatePath returns the typesync state directory for a project
func StatePath(projectDir string) string {
	return filepath.Join(projectDir, StateDirName)
}

// BackupsPath returns the backup directory for a project
func BackupsPath(projectDir string) string {
	return filepath.Join(StatePath(projectDir), "backups")
}

// SSHKeyPaths returns the private key locations tried for ssh remotes, in order
func SSHKeyPaths() []string {
	home := HomeDir()
	if home == "" {
		return nil
	}
	return []string{
		filepath.Join(home, ".ssh", "id_ed25519"),
		filepath.Join(home, ".ssh", "id_rsa"),
		filepath.Join(home, ".ssh", "id_ecdsa"),
	}
}

// Exists reports whether path exists, without following a final symlink
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// IsDir reports whether path exists and is a directory
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

package restserver

import (
	"fmt"
	"io/fs"
	"os"
)

// AssetsDirEnv overrides the configured static directory.
const AssetsDirEnv = "AWSAPI_STATIC_DIR"

// GetAssets returns the filesystem served under /static/, or nil when no
// static directory is configured.
func GetAssets(dir string) (fs.FS, error) {
	if env := os.Getenv(AssetsDirEnv); env != "" {
		dir = env
	}
	if dir == "" {
		return nil, nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("static directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("static directory %s is not a directory", dir)
	}
	return os.DirFS(dir), nil
}

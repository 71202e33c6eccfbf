package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Veraticus/spent/internal/common"
)

// memoryDatabase is the SQLite name of a database that lives only in memory.
const memoryDatabase = ":memory:"

// ExpandPath expands a leading ~ and $VAR references.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = home + path[1:]
		}
	}
	return os.ExpandEnv(path)
}

// resolvePath expands path and makes it absolute so that the database and
// export locations do not depend on the working directory of a later run.
func resolvePath(key, path string) (string, error) {
	path = ExpandPath(path)
	if path == memoryDatabase || filepath.IsAbs(path) {
		return path, nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", common.ErrInvalidConfig, key, err)
	}
	return abs, nil
}

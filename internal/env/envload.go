package env

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

var (
	loadOnce sync.Once
	loadErr  error
)

// Ensure loads the first .env file found between the working directory and
// the filesystem root, once per process. Under `go test` it is a no-op
// unless GOTEST_LOAD_DOTENV=1, so unit tests never pick up a developer's
// local environment.
func Ensure() error {
	if underGoTest() && os.Getenv("GOTEST_LOAD_DOTENV") != "1" {
		return nil
	}
	loadOnce.Do(func() { loadErr = load() })
	return loadErr
}

func load() error {
	path, err := findDotEnv()
	if err != nil {
		log.Debug().Err(err).Msg("hwwallet: search .env failed")
		return err
	}
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		log.Warn().Err(err).Str("dotenv", path).Msg("hwwallet: load .env failed")
		return err
	}
	log.Debug().Str("dotenv", path).Msg("hwwallet: loaded .env")
	return nil
}

func underGoTest() bool {
	if strings.HasSuffix(os.Args[0], ".test") {
		return true
	}
	for _, arg := range os.Args[1:] {
		if strings.HasPrefix(arg, "-test.") {
			return true
		}
	}
	return false
}

func findDotEnv() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, ".env")
		info, err := os.Stat(candidate)
		switch {
		case err == nil && !info.IsDir():
			return candidate, nil
		case err != nil && !errors.Is(err, os.ErrNotExist):
			return "", err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

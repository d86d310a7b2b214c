// Package secrets resolves credentials given in configuration as literals,
// ${VAR} references or mounted secret files (Docker and Kubernetes secrets).
// Secret values are never logged.
package secrets

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/tphakala/birdobs/internal/errors"
	"github.com/tphakala/birdobs/internal/logger"
)

const (
	// secrets are passwords and DSNs, not documents
	maxFileSize = 64 * 1024

	// group and other permission bits
	permissiveBits = 0o077
)

func getLogger() logger.Logger {
	return logger.Global().Module("secrets")
}

// Expand substitutes ${VAR} and ${VAR:-fallback} references with environment
// values. A referenced variable that is unset and has no fallback is an error.
func Expand(s string) (string, error) {
	if s == "" {
		return "", nil
	}

	var missing []string
	expanded := os.Expand(s, func(key string) string {
		name, fallback, hasFallback := strings.Cut(key, ":-")
		if v := os.Getenv(name); v != "" {
			return v
		}
		if hasFallback {
			return fallback
		}
		missing = append(missing, name)
		return ""
	})

	if len(missing) > 0 {
		return "", errors.Newf("missing environment variable(s): %s", strings.Join(missing, ", ")).
			Component("secrets").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return expanded, nil
}

// ReadFile reads a secret file and strips its trailing newline
func ReadFile(path string) (string, error) {
	clean := filepath.Clean(path)

	info, err := os.Stat(clean)
	if err != nil {
		return "", fileError(err, clean)
	}
	if !info.Mode().IsRegular() {
		return "", fileError(errors.NewStd("not a regular file"), clean)
	}
	if info.Size() > maxFileSize {
		return "", fileError(errors.NewStd("secret file too large"), clean)
	}
	if perm := info.Mode().Perm(); perm&permissiveBits != 0 {
		getLogger().Warn("secret file is readable by group or others",
			logger.String("path", clean),
			logger.String("mode", perm.String()))
	}

	data, err := os.ReadFile(clean)
	if err != nil {
		return "", fileError(err, clean)
	}

	secret := strings.TrimRight(string(data), "\r\n")
	if secret == "" {
		return "", fileError(errors.NewStd("secret file is empty"), clean)
	}
	return secret, nil
}

// Resolve returns the secret from file when set, otherwise value with
// environment references expanded
func Resolve(file, value string) (string, error) {
	if file != "" {
		return ReadFile(file)
	}
	return Expand(value)
}

func fileError(err error, path string) error {
	return errors.New(err).
		Component("secrets").
		Category(errors.CategoryFileIO).
		Context("path", path).
		Build()
}

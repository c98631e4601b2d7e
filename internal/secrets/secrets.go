// Package secrets resolves credential values in the configuration that
// refer to environment variables or mounted secret files, so config.yaml
// can be committed without tokens in it.
//
// Accepted forms:
//
//	literal
//	${VAR} or ${VAR:-default}, also embedded: tcp://${HOST}:1883
//	file:/run/secrets/mqtt_password
package secrets

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/tphakala/epaper-weather/internal/errors"
	"github.com/tphakala/epaper-weather/internal/logger"
)

const (
	filePrefix        = "file:"
	maxSecretFileSize = 64 * 1024
)

// ExpandString replaces ${VAR} and ${VAR:-default} references. A variable
// without a default that is unset or empty is an error.
func ExpandString(s string) (string, error) {
	if s == "" {
		return "", nil
	}

	var missing []string
	expanded := os.Expand(s, func(key string) string {
		name, def, hasDefault := strings.Cut(key, ":-")
		if v := os.Getenv(name); v != "" {
			return v
		}
		if hasDefault {
			return def
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

// ReadFile reads a secret file, dropping trailing newlines. Files readable
// by group or others are accepted with a warning.
func ReadFile(path string) (string, error) {
	clean := filepath.Clean(path)
	info, err := os.Stat(clean)
	if err != nil {
		return "", fileError(err, clean)
	}
	if !info.Mode().IsRegular() {
		return "", fileError(errors.NewStd("secret path is not a regular file"), clean)
	}
	if info.Size() > maxSecretFileSize {
		return "", fileError(errors.NewStd("secret file too large"), clean)
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		logger.Global().Module("secrets").Warn("secret file is readable by other users",
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

func fileError(err error, path string) error {
	return errors.New(err).
		Component("secrets").
		Category(errors.CategoryConfiguration).
		Context("path", path).
		Build()
}

// Resolve returns the secret value referred to by value.
func Resolve(value string) (string, error) {
	if path, ok := strings.CutPrefix(value, filePrefix); ok {
		return ReadFile(path)
	}
	return ExpandString(value)
}

// ResolveAll resolves every pointed-to value in place and reports all
// failures together, keyed by name.
func ResolveAll(fields map[string]*string) error {
	var errs []error
	for name, p := range fields {
		if p == nil || *p == "" {
			continue
		}
		v, err := Resolve(*p)
		if err != nil {
			errs = append(errs, errors.Newf("%s: %w", name, err).
				Component("secrets").
				Category(errors.CategoryConfiguration).
				Build())
			continue
		}
		*p = v
	}
	return errors.Join(errs...)
}

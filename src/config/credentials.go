package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"mxshs/oddsranker/src/apperr"
	"mxshs/oddsranker/src/domain"

	"github.com/joho/godotenv"
)

const (
	UsernameKey = "USERNAME"
	PasswordKey = "PASSWORD"

	// EnvPrefix namespaces the process variables that may stand in for keys
	// missing from the file. The bare USERNAME is set by many shells.
	EnvPrefix = "ODDSRANKER_"
)

// LoadCredentials reads USERNAME and PASSWORD from a key=value file, falling
// back to ODDSRANKER_USERNAME and ODDSRANKER_PASSWORD in the process
// environment for keys the file does not define.
func LoadCredentials(path string) (domain.Credentials, error) {
	values, err := ReadEnv(path)
	if err != nil {
		return domain.Credentials{}, err
	}

	lookup := func(key string) string {
		if v, ok := values[key]; ok {
			return strings.TrimSpace(v)
		}
		v, _ := os.LookupEnv(EnvPrefix + key)
		return strings.TrimSpace(v)
	}

	creds := domain.Credentials{
		Username: lookup(UsernameKey),
		Password: lookup(PasswordKey),
	}

	var missing []string
	if creds.Username == "" {
		missing = append(missing, UsernameKey)
	}
	if creds.Password == "" {
		missing = append(missing, PasswordKey)
	}
	if len(missing) > 0 {
		return domain.Credentials{}, apperr.New(
			apperr.CodeConfigurationMissing,
			"missing or empty %s in %s", strings.Join(missing, ", "), path,
		)
	}

	return creds, nil
}

// ReadEnv parses a key=value file. A missing file yields an empty map.
func ReadEnv(path string) (map[string]string, error) {
	values, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeConfigurationMissing, err, "could not read %s", path)
	}
	return values, nil
}

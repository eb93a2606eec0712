package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadDotEnv reads .env style files into the process environment. Variables
// already set win. With no paths ".env" is used; missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return err
		}
	}
	return nil
}

// Env returns the trimmed value of k, or def when unset or blank.
func Env(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}

func EnvInt(k string, def int) int {
	if n, err := strconv.Atoi(Env(k, "")); err == nil {
		return n
	}
	return def
}

func EnvBool(k string, def bool) bool {
	if b, err := strconv.ParseBool(Env(k, "")); err == nil {
		return b
	}
	return def
}

// EnvDuration accepts Go durations ("90s") or a bare number of seconds.
func EnvDuration(k string, def time.Duration) time.Duration {
	v := Env(k, "")
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}

// EnvCSV splits a comma separated list, dropping blank entries.
func EnvCSV(k string) []string {
	var out []string
	for _, part := range strings.Split(Env(k, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

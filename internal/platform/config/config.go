package config

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "CBLEDGER"

// New returns a viper instance reading CBLEDGER_* variables and, when present, a config.yaml from the
// working directory or /etc/cbledger. Environment always wins over the file.
func New(defaults map[string]any) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for k, d := range defaults {
		v.SetDefault(k, d)
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/cbledger")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	return v, nil
}

// Duration accepts either a Go duration string ("750ms") or a whole number of seconds ("10").
func Duration(v *viper.Viper, key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return def
	}

	d, err := time.ParseDuration(raw)
	if err == nil {
		return d
	}

	if secs, secsErr := strconv.Atoi(raw); secsErr == nil {
		return time.Duration(secs) * time.Second
	}

	return def
}

func CSV(v *viper.Viper, key string) []string {
	return SplitCSV(v.GetString(key))
}

func SplitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}

	return out
}

package cmd

import (
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/leynos/versync/internal/preflight"
)

const (
	envPrefix = "VERSYNC"

	docsPatternsKey   = "docs.patterns"
	docsDependencyKey = "docs.dependency"
	docsLanguageKey   = "docs.language"

	preflightCacheSizeKey = "preflight.cache_size"

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"

	defaultDocsLanguage  = "toml"
	defaultLogLevel      = "info"
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
)

var defaultDocsPatterns = []string{"README.md", "docs/**/*.md"}

// initConfig points viper at the optional versync.toml in the workspace
// root. The same file carries the [preflight] section, so the CLI and the
// preflight loader read one configuration.
func initConfig(root string) {
	viper.Reset()
	viper.SetConfigName("versync")
	viper.SetConfigType("toml")
	viper.AddConfigPath(root)
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.SetDefault(docsPatternsKey, defaultDocsPatterns)
	viper.SetDefault(docsDependencyKey, "")
	viper.SetDefault(docsLanguageKey, defaultDocsLanguage)
	viper.SetDefault(preflightCacheSizeKey, preflight.DefaultCacheSize)
	viper.SetDefault(logFilenameKey, "")
	viper.SetDefault(logLevelKey, defaultLogLevel)
	viper.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	viper.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	viper.SetDefault(logMaxAgeKey, defaultLogMaxAge)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			// The file exists but is unreadable or malformed. Defaults still
			// apply; the manifest tooling reports its own errors.
			slog.Debug("ignoring workspace config", "error", err)
		}
	}
}

func setupLogger(stderr io.Writer, verbose bool) {
	level := parseSlogLevel(viper.GetString(logLevelKey), slog.LevelInfo)
	if verbose {
		level = slog.LevelDebug
	}

	w := stderr
	if filename := viper.GetString(logFilenameKey); filename != "" {
		w = &lumberjack.Logger{
			Filename:   filename,
			MaxSize:    viper.GetInt(logMaxSizeKey),
			MaxBackups: viper.GetInt(logMaxBackupsKey),
			MaxAge:     viper.GetInt(logMaxAgeKey),
		}
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

func parseSlogLevel(value string, fallback slog.Level) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return fallback
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
		return slog.Level(n)
	}

	return fallback
}

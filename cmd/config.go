package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	m "twister.dev/pkg/twister/internal/model"
)

const (
	configVersionKey     = "version"
	currentConfigVersion = 1

	configBaseName   = "twister"
	configFileName   = configBaseName + ".yaml"
	configFolderPath = "."

	outputFlagName          = "output"
	instrumentationFlagName = "instrumentation"
	verboseFlagName         = "verbose"
	logFileFlagName         = "log-file"

	requireFlagName         = "require"
	twistFlagName           = "twist"
	orderFlagName           = "order"
	seedFlagName            = "seed"
	filterFlagName          = "filter"
	failureExitCodeFlagName = "failure-exit-code"
	terseTwistsFlagName     = "terse-twists"

	instrumentationConfigKey = "instrumentation.enabled"
	requireConfigKey         = "run.require"
	twistConfigKey           = "run.twist"
	orderConfigKey           = "run.order"
	seedConfigKey            = "run.seed"
	filterConfigKey          = "run.filter"
	failureExitCodeConfigKey = "run.failure_exit_code"
	terseTwistsConfigKey     = "run.terse_twists"

	defaultReportsDir      = ".twister-reports"
	defaultInstrumentation = true
	defaultOrder           = string(m.OrderDefined)
	defaultFailureExitCode = 1
	defaultTerseTwists     = true
	defaultSpecPath        = "spec"

	envPrefix = "TWISTER"

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logVerboseKey    = "log.verbose"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultLogFilename   = ".twister.log"
	defaultLogLevel      = int(slog.LevelInfo)
	defaultLogVerbose    = false
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
	defaultLogCompress   = true
)

var globalLogger *slog.Logger

func init() {
	viper.SetConfigName(configBaseName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configFolderPath)
	viper.SetConfigFile(filepath.Join(configFolderPath, configFileName))
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.SetDefault(configVersionKey, currentConfigVersion)
	viper.SetDefault(outputFlagName, defaultReportsDir)
	viper.SetDefault(instrumentationConfigKey, defaultInstrumentation)
	viper.SetDefault(requireConfigKey, []string{})
	viper.SetDefault(twistConfigKey, []string{})
	viper.SetDefault(orderConfigKey, defaultOrder)
	viper.SetDefault(seedConfigKey, uint64(0))
	viper.SetDefault(filterConfigKey, "")
	viper.SetDefault(failureExitCodeConfigKey, defaultFailureExitCode)
	viper.SetDefault(terseTwistsConfigKey, defaultTerseTwists)

	viper.SetDefault(logFilenameKey, defaultLogFilename)
	viper.SetDefault(logLevelKey, defaultLogLevel)
	viper.SetDefault(logVerboseKey, defaultLogVerbose)
	viper.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	viper.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	viper.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	viper.SetDefault(logCompressKey, defaultLogCompress)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return
		}

		slog.Warn("read config", "file", configFileName, "error", err)
	}
}

func parseSlogLevel(value string, defaultLevel slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	if level == "" {
		return defaultLevel
	}

	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	// numeric slog levels, e.g. -4 for debug
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}

	return defaultLevel
}

// configureLogger points the default slog logger at a rotated log file.
// It logs at the configured level, or Debug when verbose is set.
func configureLogger(logPath string, verbose bool) {
	if strings.TrimSpace(logPath) == "" {
		logPath = viper.GetString(logFilenameKey)
	}

	if strings.TrimSpace(logPath) == "" {
		logPath = defaultLogFilename
	}

	logLevel := parseSlogLevel(viper.GetString(logLevelKey), slog.LevelInfo)
	if verbose {
		logLevel = slog.LevelDebug
	}

	logWriter := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    viper.GetInt(logMaxSizeKey),
		MaxBackups: viper.GetInt(logMaxBackupsKey),
		MaxAge:     viper.GetInt(logMaxAgeKey),
		Compress:   viper.GetBool(logCompressKey),
	}

	handler := slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		AddSource: true,
		Level:     logLevel,
	})

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
}

// parseOrder accepts the example orders the suite supports.
func parseOrder(value string) (m.Order, error) {
	switch order := m.Order(strings.ToLower(strings.TrimSpace(value))); order {
	case "", m.OrderDefined:
		return m.OrderDefined, nil
	case m.OrderRandom:
		return m.OrderRandom, nil
	default:
		return "", fmt.Errorf("unknown order %q (want %q or %q)", value, m.OrderDefined, m.OrderRandom)
	}
}

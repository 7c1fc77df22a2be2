package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/cinematogether/server/internal/app"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
}

var (
	secret = configVar[string]{
		envKey:       "SERVER_SECRET",
		flagKey:      "secret",
		defaultValue: "",
	}
	port = configVar[int]{
		envKey:       "SERVER_PORT",
		flagKey:      "port",
		defaultValue: 8080,
	}
	host = configVar[string]{
		envKey:       "SERVER_HOST",
		flagKey:      "host",
		defaultValue: "0.0.0.0",
	}
	logLevel = configVar[string]{
		envKey:       "SERVER_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
	}
	gracePeriod = configVar[int]{
		envKey:       "SERVER_GRACE_PERIOD_SEC",
		flagKey:      "grace-period-sec",
		defaultValue: 30,
	}
	idleTimeout = configVar[int]{
		envKey:       "SERVER_IDLE_TIMEOUT_SEC",
		flagKey:      "idle-timeout-sec",
		defaultValue: 60,
	}
	driftTolerance = configVar[float64]{
		envKey:       "SERVER_DRIFT_TOLERANCE",
		flagKey:      "drift-tolerance",
		defaultValue: 1.5,
	}
	resyncFloor = configVar[int]{
		envKey:       "SERVER_RESYNC_FLOOR_SEC",
		flagKey:      "resync-floor-sec",
		defaultValue: 5,
	}
	chatHistorySize = configVar[int]{
		envKey:       "SERVER_CHAT_HISTORY_SIZE",
		flagKey:      "chat-history-size",
		defaultValue: 100,
	}
	maxMessageLen = configVar[int]{
		envKey:       "SERVER_MAX_MESSAGE_LEN",
		flagKey:      "max-message-len",
		defaultValue: 500,
	}
	redisHost = configVar[string]{
		envKey:       "REDIS_HOST",
		flagKey:      "redis-host",
		defaultValue: "localhost",
	}
	redisPort = configVar[int]{
		envKey:       "REDIS_PORT",
		flagKey:      "redis-port",
		defaultValue: 6379,
	}
	redisPassword = configVar[string]{
		envKey:       "REDIS_PASSWORD",
		flagKey:      "redis-password",
		defaultValue: "",
	}
)

func loadAppConfig() *app.AppConfig {
	pflag.String(secret.flagKey, secret.defaultValue, "Identity provider shared secret")
	pflag.Int(port.flagKey, port.defaultValue, "Server port")
	pflag.String(host.flagKey, host.defaultValue, "Server host")
	pflag.String(logLevel.flagKey, logLevel.defaultValue, "Logging level")
	pflag.Int(gracePeriod.flagKey, gracePeriod.defaultValue, "Seconds a disconnected participant keeps its seat")
	pflag.Int(idleTimeout.flagKey, idleTimeout.defaultValue, "Seconds before an empty room is destroyed")
	pflag.Float64(driftTolerance.flagKey, driftTolerance.defaultValue, "Playback drift tolerance in seconds")
	pflag.Int(resyncFloor.flagKey, resyncFloor.defaultValue, "Minimum seconds between forced resyncs per participant")
	pflag.Int(chatHistorySize.flagKey, chatHistorySize.defaultValue, "Chat messages retained per room")
	pflag.Int(maxMessageLen.flagKey, maxMessageLen.defaultValue, "Maximum chat message length in bytes")
	pflag.String(redisHost.flagKey, redisHost.defaultValue, "Redis host")
	pflag.Int(redisPort.flagKey, redisPort.defaultValue, "Redis port")
	pflag.String(redisPassword.flagKey, redisPassword.defaultValue, "Redis password")
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	viper.BindEnv(secret.flagKey, secret.envKey)
	viper.BindEnv(port.flagKey, port.envKey)
	viper.BindEnv(host.flagKey, host.envKey)
	viper.BindEnv(logLevel.flagKey, logLevel.envKey)
	viper.BindEnv(gracePeriod.flagKey, gracePeriod.envKey)
	viper.BindEnv(idleTimeout.flagKey, idleTimeout.envKey)
	viper.BindEnv(driftTolerance.flagKey, driftTolerance.envKey)
	viper.BindEnv(resyncFloor.flagKey, resyncFloor.envKey)
	viper.BindEnv(chatHistorySize.flagKey, chatHistorySize.envKey)
	viper.BindEnv(maxMessageLen.flagKey, maxMessageLen.envKey)
	viper.BindEnv(redisHost.flagKey, redisHost.envKey)
	viper.BindEnv(redisPort.flagKey, redisPort.envKey)
	viper.BindEnv(redisPassword.flagKey, redisPassword.envKey)

	return &app.AppConfig{
		Secret:          viper.GetString(secret.flagKey),
		Host:            viper.GetString(host.flagKey),
		Port:            viper.GetInt(port.flagKey),
		LogLevel:        viper.GetString(logLevel.flagKey),
		GracePeriodSec:  viper.GetInt(gracePeriod.flagKey),
		IdleTimeoutSec:  viper.GetInt(idleTimeout.flagKey),
		DriftTolerance:  viper.GetFloat64(driftTolerance.flagKey),
		ResyncFloorSec:  viper.GetInt(resyncFloor.flagKey),
		ChatHistorySize: viper.GetInt(chatHistorySize.flagKey),
		MaxMessageLen:   viper.GetInt(maxMessageLen.flagKey),
		RedisHost:       viper.GetString(redisHost.flagKey),
		RedisPort:       viper.GetInt(redisPort.flagKey),
		RedisPassword:   viper.GetString(redisPassword.flagKey),
	}
}

func main() {
	ctx := context.Background()

	appConfig := loadAppConfig()

	jsonConfig, _ := json.MarshalIndent(appConfig, "", "  ")
	fmt.Printf("starting app with config: %s\n", jsonConfig)

	log.Fatal(app.Run(ctx, appConfig))
}

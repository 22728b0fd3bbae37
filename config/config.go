package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Lobby    LobbyConfig    `mapstructure:"lobby"`
	Game     GameConfig     `mapstructure:"game"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	HTTPAddress  string        `mapstructure:"http_address"`
	RPCAddress   string        `mapstructure:"rpc_address"`
	GRPCAddress  string        `mapstructure:"grpc_address"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Heartbeat    time.Duration `mapstructure:"heartbeat"`
}

type DatabaseConfig struct {
	// Driver selects the result store: "gorm", "postgres" (lib/pq), "memory"
	// or "none".
	Driver   string         `mapstructure:"driver"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

type LobbyConfig struct {
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type GameConfig struct {
	MaxRounds        int           `mapstructure:"max_rounds"`
	MinPlayers       int           `mapstructure:"min_players"`
	RoundDuration    time.Duration `mapstructure:"round_duration"`
	EliminationPause time.Duration `mapstructure:"elimination_pause"`
	CorrectPoints    int           `mapstructure:"correct_points"`
	ScoringPolicy    string        `mapstructure:"scoring_policy"`
	EarlyFinish      bool          `mapstructure:"early_finish"`
	Minigame         string        `mapstructure:"minigame"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_address", ":8000")
	v.SetDefault("server.rpc_address", ":8001")
	v.SetDefault("server.grpc_address", ":8002")
	v.SetDefault("server.write_timeout", 5*time.Second)
	v.SetDefault("server.heartbeat", 30*time.Second)

	v.SetDefault("database.driver", "memory")
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "user")
	v.SetDefault("database.postgres.password", "password")
	v.SetDefault("database.postgres.dbname", "eduparty")

	v.SetDefault("lobby.cleanup_interval", 30*time.Second)

	v.SetDefault("game.max_rounds", 4)
	v.SetDefault("game.min_players", 2)
	v.SetDefault("game.round_duration", 30*time.Second)
	v.SetDefault("game.elimination_pause", 3*time.Second)
	v.SetDefault("game.correct_points", 100)
	v.SetDefault("game.scoring_policy", "once_per_round")
	v.SetDefault("game.early_finish", false)
	v.SetDefault("game.minigame", "arithmetic")

	v.SetDefault("log.level", "info")
}

// LoadConfig reads config.yaml from path, an optional .env file, and
// EDUPARTY_* environment variables, in increasing priority. A missing
// config file is not an error; every key has a default.
func LoadConfig(path string) (config *Config, err error) {
	// .env is optional; only the variables it sets matter.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("EDUPARTY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		err = nil
	}

	err = v.Unmarshal(&config)
	return
}

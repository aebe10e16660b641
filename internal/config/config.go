package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`

	// Well-known portal rooms. An empty value disables creation for
	// that kind instead of crashing the process.
	GeneralPortal string `mapstructure:"general_portal"`
	FocusPortal   string `mapstructure:"focus_portal"`
	GeneralPrefix string `mapstructure:"general_prefix"`
	FocusPrefix   string `mapstructure:"focus_prefix"`

	// MaxRooms is the platform-side cap on live ephemeral rooms.
	MaxRooms int `mapstructure:"max_rooms"`

	WorkDuration  time.Duration `mapstructure:"work_duration"`
	BreakDuration time.Duration `mapstructure:"break_duration"`

	SweepInterval  time.Duration `mapstructure:"sweep_interval"`
	EmptyRoomGrace time.Duration `mapstructure:"empty_room_grace"`

	CreateLimit  int           `mapstructure:"create_limit"`
	CreateWindow time.Duration `mapstructure:"create_window"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("general_portal", "portal-study")
	v.SetDefault("focus_portal", "portal-focus")
	v.SetDefault("general_prefix", "Study Room")
	v.SetDefault("focus_prefix", "Focus Room")
	v.SetDefault("max_rooms", 50)
	v.SetDefault("work_duration", "25m")
	v.SetDefault("break_duration", "5m")
	v.SetDefault("sweep_interval", "1m")
	v.SetDefault("empty_room_grace", "15s")
	v.SetDefault("create_limit", 3)
	v.SetDefault("create_window", "1m")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	fmt.Printf("🧩 Mode: %s | Port: %d | Static: %s\n", cfg.Mode, cfg.Port, cfg.StaticPath)
	return &cfg, nil
}

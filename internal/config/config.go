package config

import (
	"io/ioutil"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации приложения.
// Содержит секции EventBus, Server и Sim.

type Config struct {
	EventBus EventBusConfig `yaml:"eventbus"`
	Server   ServerConfig   `yaml:"server"`
	Sim      SimConfig      `yaml:"sim"`
}

// SimConfig carries the Voxel Grid / Player Simulation / Network Core
// tunables. Zero values fall back to the defaults noted per field.
type SimConfig struct {
	GridEdge       int32   `yaml:"grid_edge"`        // default 5
	VoxelSize      float32 `yaml:"voxel_size"`       // default 9
	SurfaceThresh  uint8   `yaml:"surface_threshold"` // default 60
	TickRate       int     `yaml:"tick_rate"`        // default 50 Hz
	SnapshotRate   int     `yaml:"snapshot_rate"`    // default 25 Hz
	TerraformRange float32 `yaml:"terraform_range"`  // default 70
	TerraformRadius float32 `yaml:"terraform_radius"` // default 2
	UseKCP         bool    `yaml:"use_kcp"`
	CompressChunks bool    `yaml:"compress_chunks"`
}

// WithDefaults returns a copy of s with every zero field replaced by
// spec.md §6's tunable defaults.
func (s SimConfig) WithDefaults() SimConfig {
	if s.GridEdge == 0 {
		s.GridEdge = 5
	}
	if s.VoxelSize == 0 {
		s.VoxelSize = 9
	}
	if s.SurfaceThresh == 0 {
		s.SurfaceThresh = 60
	}
	if s.TickRate == 0 {
		s.TickRate = 50
	}
	if s.SnapshotRate == 0 {
		s.SnapshotRate = 25
	}
	if s.TerraformRange == 0 {
		s.TerraformRange = 70
	}
	if s.TerraformRadius == 0 {
		s.TerraformRadius = 2
	}
	return s
}

type EventBusConfig struct {
	URL       string `yaml:"url"`
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
}

type ServerConfig struct {
	TCPPort     int    `yaml:"tcp_port"`
	UDPPort     int    `yaml:"udp_port"`
	RESTPort    int    `yaml:"rest_port"`
	MetricsPort int    `yaml:"metrics_port"`
	// WorldDataDir, when non-empty, enables the Badger-backed world
	// snapshot: the grid and player roster are loaded from it at
	// startup and saved back to it on graceful shutdown. Empty means
	// "none during a run" (spec.md §6's default: in-memory only).
	WorldDataDir string `yaml:"world_data_dir"`
	// PositionDBDSN, when non-empty, selects the MariaDB-backed
	// PositionRepo instead of the default in-memory one, so spawn
	// positions survive a server restart.
	PositionDBDSN string `yaml:"position_db_dsn"`
	// CacheInvalidatorURL, when non-empty, fronts the Hot Cache with a
	// NATS pub/sub invalidator so multiple server processes sharing one
	// Redis instance drop their cached grid:hardupdate blob together
	// instead of only the process that issued the write.
	CacheInvalidatorURL string `yaml:"cache_invalidator_url"`
}

// GetTCPPort возвращает TCP порт с поддержкой fallback значений
func (s *ServerConfig) GetTCPPort() int {
	return getPortWithEnvFallback(s.TCPPort, "GAME_TCP_PORT", 7777)
}

// GetUDPPort возвращает UDP порт с поддержкой fallback значений
func (s *ServerConfig) GetUDPPort() int {
	return getPortWithEnvFallback(s.UDPPort, "GAME_UDP_PORT", 7778)
}

// GetRESTPort возвращает REST API порт с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "GAME_REST_PORT", 8088)
}

// GetMetricsPort возвращает Prometheus метрики порт с поддержкой fallback значений
func (s *ServerConfig) GetMetricsPort() int {
	return getPortWithEnvFallback(s.MetricsPort, "GAME_METRICS_PORT", 2112)
}

// GetWorldDataDir возвращает путь к Badger-хранилищу мира с поддержкой
// fallback на переменную окружения; пустая строка отключает снапшоты.
func (s *ServerConfig) GetWorldDataDir() string {
	if s.WorldDataDir != "" {
		return s.WorldDataDir
	}
	return os.Getenv("GAME_WORLD_DATA_DIR")
}

// GetPositionDBDSN возвращает DSN MariaDB для персистентности позиций с
// поддержкой fallback на переменную окружения; пустая строка означает
// использование in-memory репозитория.
func (s *ServerConfig) GetPositionDBDSN() string {
	if s.PositionDBDSN != "" {
		return s.PositionDBDSN
	}
	return os.Getenv("GAME_POSITION_DB_DSN")
}

// GetCacheInvalidatorURL возвращает URL NATS для распределённой инвалидации
// Hot Cache с поддержкой fallback на переменную окружения; пустая строка
// отключает Pub/Sub-инвалидацию (каждый процесс сбрасывает только свой
// собственный ключ в Redis).
func (s *ServerConfig) GetCacheInvalidatorURL() string {
	if s.CacheInvalidatorURL != "" {
		return s.CacheInvalidatorURL
	}
	return os.Getenv("GAME_CACHE_NATS_URL")
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	// Если порт задан в конфиге и больше 0, используем его
	if configPort > 0 {
		return configPort
	}

	// Пробуем прочитать из environment variable
	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	// Используем дефолтное значение
	return defaultPort
}

// Load читает YAML файл конфигурации.
// Если path == "", пытается прочитать из ENV GAME_CONFIG или возвращает nil, nil.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("GAME_CONFIG")
		if path == "" {
			return nil, nil // конфиг не задан — использовать дефолты
		}
	}

	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/mmo-game/internal/api"
	"github.com/annel0/mmo-game/internal/auth"
	"github.com/annel0/mmo-game/internal/cache"
	"github.com/annel0/mmo-game/internal/config"
	"github.com/annel0/mmo-game/internal/eventbus"
	"github.com/annel0/mmo-game/internal/logging"
	"github.com/annel0/mmo-game/internal/network"
	"github.com/annel0/mmo-game/internal/observability"
	"github.com/annel0/mmo-game/internal/storage"
)

func main() {
	if err := logging.InitDefaultLogger("server"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()

	logging.Info("🎮 Запуск voxel sandbox сервера...")

	shutdownTelemetry, err := observability.InitTelemetry(context.Background(), "voxel-sandbox-server")
	if err != nil {
		logging.Error("⚠️ OpenTelemetry не инициализирован: %v", err)
	} else {
		defer shutdownTelemetry(context.Background())
	}
	stopHostStats := observability.StartHostStats(10 * time.Second)
	defer stopHostStats()

	cfg, err := config.Load("")
	if err != nil {
		logging.Error("❌ Ошибка чтения конфигурации: %v", err)
		log.Fatalf("❌ Ошибка чтения конфигурации: %v", err)
	}
	simCfg := config.SimConfig{}
	serverCfg := config.ServerConfig{}
	busCfg := config.EventBusConfig{}
	if cfg != nil {
		simCfg = cfg.Sim
		serverCfg = cfg.Server
		busCfg = cfg.EventBus
	}
	simCfg = simCfg.WithDefaults()

	udpAddr := fmt.Sprintf(":%d", serverCfg.GetUDPPort())
	restPort := fmt.Sprintf(":%d", serverCfg.GetRESTPort())

	logging.Info("📡 Конфигурация: UDP=%s, REST=%s, grid_edge=%d, tick_rate=%d, snapshot_rate=%d",
		udpAddr, restPort, simCfg.GridEdge, simCfg.TickRate, simCfg.SnapshotRate)

	logging.Debug("Создание игрового сервера...")
	gameServer, err := network.NewServer(udpAddr, simCfg)
	if err != nil {
		logging.Error("❌ Ошибка создания игрового сервера: %v", err)
		log.Fatalf("❌ Ошибка создания игрового сервера: %v", err)
	}
	if dsn := serverCfg.GetPositionDBDSN(); dsn != "" {
		mariaRepo, err := storage.NewMariaPositionRepo(dsn)
		if err != nil {
			logging.Warn("⚠️ MariaDB-репозиторий позиций недоступен, используем in-memory: %v", err)
			gameServer.SetPositionRepo(storage.NewMemoryPositionRepo())
		} else {
			gameServer.SetPositionRepo(mariaRepo)
		}
	} else {
		gameServer.SetPositionRepo(storage.NewMemoryPositionRepo())
	}

	var snapshotStore *storage.WorldSnapshotStore
	if dataDir := serverCfg.GetWorldDataDir(); dataDir != "" {
		snapshotStore, err = storage.NewWorldSnapshotStore(dataDir)
		if err != nil {
			logging.Error("❌ Ошибка открытия хранилища мира %q: %v", dataDir, err)
			log.Fatalf("❌ Ошибка открытия хранилища мира %q: %v", dataDir, err)
		}
		if err := gameServer.LoadSnapshot(snapshotStore); err != nil {
			logging.Warn("⚠️ Не удалось восстановить снапшот мира из %q, стартуем с чистой генерацией: %v", dataDir, err)
			gameServer.Grid().SeedDefaultTerrain()
		}
	} else {
		gameServer.Grid().SeedDefaultTerrain()
	}

	var cacheInvalidator cache.CacheInvalidator
	if natsURL := serverCfg.GetCacheInvalidatorURL(); natsURL != "" {
		inv, err := cache.NewNATSInvalidator(&cache.InvalidatorConfig{NATSURL: natsURL}, udpAddr)
		if err != nil {
			logging.Warn("⚠️ NATS-инвалидатор Hot Cache недоступен, инвалидация останется локальной для процесса: %v", err)
		} else {
			cacheInvalidator = inv
		}
	}

	if chunkCache, err := cache.NewRedisCache(&cache.CacheConfig{RedisURL: "localhost:6379"}, nil, cacheInvalidator); err != nil {
		logging.Warn("⚠️ Redis-кеш снапшотов недоступен, join будет обходить сетку напрямую: %v", err)
	} else {
		gameServer.SetChunkCache(chunkCache)
	}

	if posCache, err := storage.NewRedisPositionCache(nil); err != nil {
		logging.Warn("⚠️ Redis GEO-кеш позиций недоступен, nearby-запросы отключены: %v", err)
	} else {
		gameServer.SetPositionCache(posCache)
	}

	if busCfg.URL != "" {
		retention := time.Duration(busCfg.Retention) * time.Hour
		jsBus, err := eventbus.NewJetStreamBus(busCfg.URL, busCfg.Stream, retention)
		if err != nil {
			logging.Warn("⚠️ JetStream недоступен, dirty-chunk события останутся in-process: %v", err)
		} else {
			gameServer.SetEventBus(jsBus)
		}
	}

	eventbus.Init(gameServer.EventBus())
	if err := eventbus.StartLoggingListener(gameServer.EventBus()); err != nil {
		logging.Warn("⚠️ Не удалось подписать логгер на dirty-chunk события: %v", err)
	}
	eventbus.NewMetricsExporter(gameServer.EventBus()).Start()

	logging.Debug("Создание шлюза предварительной аутентификации...")
	userRepo, err := auth.NewMemoryUserRepo()
	if err != nil {
		logging.Error("❌ Ошибка создания репозитория пользователей: %v", err)
		log.Fatalf("❌ Ошибка создания репозитория пользователей: %v", err)
	}
	gateway := api.NewJoinGateway(userRepo, restPort)
	go func() {
		if err := gateway.Run(); err != nil {
			logging.Error("❌ Шлюз аутентификации остановлен: %v", err)
		}
	}()

	logging.Debug("Запуск игрового сервера...")
	gameServer.Start()

	logging.Info("✅ Сервер запущен")
	logging.Info("   🎮 Игровой трафик: UDP %s", udpAddr)
	logging.Info("   🔐 Аутентификация: http://localhost%s/api/auth/login", restPort)
	logging.Info("   ❤️  Health check: http://localhost%s/health", restPort)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logging.Info("📡 Получен сигнал %v, завершение работы...", sig)

	gameServer.Stop()

	if snapshotStore != nil {
		if err := gameServer.SaveSnapshot(snapshotStore); err != nil {
			logging.Error("❌ Ошибка сохранения снапшота мира: %v", err)
		} else {
			logging.Info("💾 Снапшот мира сохранён")
		}
		if err := snapshotStore.Close(); err != nil {
			logging.Warn("⚠️ Ошибка закрытия хранилища мира: %v", err)
		}
	}

	logging.Info("👋 Сервер успешно остановлен")
}

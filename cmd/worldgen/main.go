package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/worldgen/internal/api"
	"github.com/annel0/worldgen/internal/auth"
	"github.com/annel0/worldgen/internal/config"
	"github.com/annel0/worldgen/internal/eventbus"
	"github.com/annel0/worldgen/internal/logging"
	"github.com/annel0/worldgen/internal/observability"
	"github.com/annel0/worldgen/internal/storage"
	"github.com/annel0/worldgen/internal/world"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to YAML config (default: $WORLDGEN_CONFIG)")
		snapshotID = flag.String("snapshot", "", "Restore world from snapshot: <uuid> or \"latest\"")
		serve      = flag.Bool("serve", false, "Start REST inspector after generation")
		dump       = flag.Bool("dump", false, "Print ASCII map of every region")
		issueToken = flag.String("issue-token", "", "Print admin token for the given operator and exit")
	)
	flag.Parse()

	// Инициализируем систему логирования
	if err := logging.InitDefaultLogger("worldgen"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Error("❌ Ошибка загрузки конфигурации: %v", err)
		os.Exit(1)
	}

	if *issueToken != "" {
		if err := printToken(cfg, *issueToken); err != nil {
			logging.Error("❌ %v", err)
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *snapshotID, *serve, *dump); err != nil {
		logging.Error("❌ %v", err)
		os.Exit(1)
	}
	logging.Info("👋 Генератор остановлен")
}

func run(ctx context.Context, cfg *config.Config, snapshotID string, serve, dump bool) error {
	// === OBSERVABILITY ===
	shutdownTelemetry, err := observability.InitTelemetry(ctx, observability.Options{
		Enabled:     cfg.Telemetry.Enabled,
		ServiceName: cfg.Telemetry.ServiceName,
		Endpoint:    cfg.Telemetry.Endpoint,
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logging.Warn("⚠️ Ошибка остановки телеметрии: %v", err)
		}
	}()

	if err := world.RegisterMetrics(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	// === EVENT BUS ===
	bus, err := openBus(cfg)
	if err != nil {
		return err
	}
	defer bus.Close()

	if err := prometheus.DefaultRegisterer.Register(eventbus.NewCollector(bus)); err != nil {
		return fmt.Errorf("register eventbus metrics: %w", err)
	}
	if _, err := eventbus.StartLoggingListener(ctx, bus, logging.GetComponentLogger("EVENTS")); err != nil {
		return fmt.Errorf("event listener: %w", err)
	}

	// === STORAGE ===
	store, err := storage.Open(ctx, storage.Options{
		Driver:    cfg.Storage.Driver,
		Path:      cfg.Storage.Path,
		RedisAddr: cfg.Storage.RedisAddr,
		RedisDB:   cfg.Storage.RedisDB,
		KeyPrefix: cfg.Storage.KeyPrefix,
	})
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer store.Close()

	// === WORLD ===
	wb, restored, err := buildWorld(ctx, cfg, store, bus, snapshotID)
	if err != nil {
		return err
	}

	start := time.Now()
	err = wb.Generate(ctx)
	var genErr *world.GenerationError
	switch {
	case err == nil:
	case errors.As(err, &genErr) && wb.State() == world.StateGenerated:
		logging.Warn("⚠️ Мир построен частично, регионов с ошибками: %d", len(genErr.Failed))
		for _, key := range genErr.Keys() {
			logging.Warn("   %s: %v", key, genErr.Failed[key])
		}
	default:
		return fmt.Errorf("generate: %w", err)
	}

	id, _ := wb.GenerationID()
	logging.Info("🌍 Мир %s построен за %s: %d регионов", id, time.Since(start).Round(time.Millisecond), wb.Settings().RegionCount())

	if !restored {
		if err := saveSnapshot(ctx, cfg, store, id); err != nil {
			logging.Warn("⚠️ Не удалось сохранить снимок: %v", err)
		}
	}

	if dump {
		if err := dumpWorld(wb); err != nil {
			return err
		}
	}

	if serve {
		return serveInspector(ctx, cfg, wb, store)
	}
	return nil
}

func openBus(cfg *config.Config) (eventbus.EventBus, error) {
	if cfg.EventBus.URL == "" {
		logging.Debug("Используется in-memory шина событий")
		return eventbus.NewMemoryBus(1024), nil
	}
	bus, err := eventbus.NewJetStreamBus(cfg.EventBus.URL, cfg.EventBus.Stream, cfg.EventBus.RetentionDuration())
	if err != nil {
		return nil, fmt.Errorf("eventbus: %w", err)
	}
	logging.Info("📨 JetStream шина подключена: %s (stream=%s)", cfg.EventBus.URL, cfg.EventBus.Stream)
	return bus, nil
}

// buildWorld создаёт построитель из конфигурации или из снимка
func buildWorld(ctx context.Context, cfg *config.Config, store storage.SnapshotStore, bus eventbus.EventBus, snapshotID string) (*world.WorldBuilder, bool, error) {
	policy, err := cfg.Generation.FailurePolicy()
	if err != nil {
		return nil, false, err
	}
	opts := []world.Option{
		world.WithFailurePolicy(policy),
		world.WithWorkers(cfg.Generation.GetWorkers()),
		world.WithEventBus(bus),
		world.WithNoiseScale(cfg.Generation.NoiseScale),
	}

	if snapshotID == "" {
		bp, err := cfg.Blueprint()
		if err != nil {
			return nil, false, err
		}
		opts = append(opts, world.WithBlueprint(bp))
		return world.NewWorldBuilder(cfg.World, opts...), false, nil
	}

	var snap *storage.Snapshot
	if snapshotID == "latest" {
		snap, err = store.Latest(ctx)
	} else {
		var id uuid.UUID
		id, err = uuid.Parse(snapshotID)
		if err != nil {
			return nil, false, fmt.Errorf("snapshot id %q: %w", snapshotID, err)
		}
		snap, err = store.Load(ctx, id)
	}
	if err != nil {
		return nil, false, fmt.Errorf("load snapshot: %w", err)
	}
	logging.Info("📦 Восстановление мира из снимка %s (seed=%q)", snap.ID, snap.Settings.Seed)
	return snap.Restore(opts...), true, nil
}

func saveSnapshot(ctx context.Context, cfg *config.Config, store storage.SnapshotStore, generationID string) error {
	bp, err := cfg.Blueprint()
	if err != nil {
		return err
	}
	snap := storage.NewSnapshot(cfg.World, bp)
	snap.GenerationID = generationID
	if err := store.Save(ctx, snap); err != nil {
		return err
	}
	logging.Info("💾 Снимок %s сохранён (%s)", snap.ID, cfg.Storage.Driver)
	return nil
}

func dumpWorld(wb *world.WorldBuilder) error {
	regions, err := wb.Regions()
	if err != nil {
		return err
	}
	for _, r := range regions {
		fmt.Printf("Region %s offset=(%.0f, %.0f) zones=%d\n", r.Key(), r.Offset().X, r.Offset().Z, len(r.Zones()))
		for _, row := range api.RenderRegion(r) {
			fmt.Println(row)
		}
		fmt.Println()
	}
	return nil
}

func serveInspector(ctx context.Context, cfg *config.Config, wb *world.WorldBuilder, store storage.SnapshotStore) error {
	gin.SetMode(gin.ReleaseMode)

	var signer *auth.Signer
	if secret := cfg.Server.GetAdminSecret(); secret != "" {
		s, err := auth.NewSigner(secret)
		if err != nil {
			return err
		}
		signer = s
		logging.Info("🔐 Админ-эндпоинты защищены JWT")
	} else {
		logging.Warn("⚠️ admin_secret не задан, админ-эндпоинты открыты")
	}

	port := fmt.Sprintf(":%d", cfg.Server.GetRESTPort())
	server, err := api.NewRestServer(api.Config{
		Port:   port,
		World:  wb,
		Store:  store,
		Signer: signer,
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	logging.Info("   ❤️  Health check: http://localhost%s/health", port)
	logging.Info("   🗺️  Карта региона: curl 'http://localhost%s/api/regions/0/0/map?format=text'", port)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logging.Info("📡 Получен сигнал, завершение работы...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Stop(shutdownCtx)
}

func printToken(cfg *config.Config, operator string) error {
	secret := cfg.Server.GetAdminSecret()
	if secret == "" {
		return errors.New("admin_secret не задан (server.admin_secret или WORLDGEN_ADMIN_SECRET)")
	}
	signer, err := auth.NewSigner(secret)
	if err != nil {
		return err
	}
	token, err := signer.Issue(operator, true, 24*time.Hour)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

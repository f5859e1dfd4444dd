package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/junctionrelay/display-node/internal/config"
	"github.com/junctionrelay/display-node/internal/connection"
	"github.com/junctionrelay/display-node/internal/device"
	"github.com/junctionrelay/display-node/internal/display"
	"github.com/junctionrelay/display-node/internal/i2cbus"
	"github.com/junctionrelay/display-node/internal/peripherals"
	"github.com/junctionrelay/display-node/internal/portal"
	"github.com/junctionrelay/display-node/internal/prefs"
	"github.com/junctionrelay/display-node/internal/transport"
)

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Non-volatile preferences and the device profile
	store, err := prefs.NewStore(cfg.Node.PrefsDir, logger)
	if err != nil {
		logger.Fatal("Failed to open preference store", zap.Error(err))
	}

	profile, err := device.LoadProfile(cfg.Node.ProfilePath)
	if err != nil {
		logger.Fatal("Failed to load device profile", zap.Error(err))
	}
	if cfg.Node.DeviceID != "" {
		profile.DeviceID = cfg.Node.DeviceID
	}

	var record prefs.ConnRecord
	if _, err := store.Read(prefs.NamespaceConn, &record); err != nil {
		logger.Fatal("Failed to read connection settings", zap.Error(err))
	}
	if record.Rotation != 0 {
		profile.Rotation = record.Rotation
	}

	logger.Info("Display node starting",
		zap.String("device_id", profile.DeviceID),
		zap.String("profile", profile.Name),
		zap.Bool("configured", record.Configured()))

	// Unconfigured nodes run the onboarding portal and restart once
	// settings are saved. The supervisor relaunches the process.
	if !record.Configured() {
		runPortal(cfg, store, profile, logger)
		return
	}

	runNode(cfg, store, profile, record, logger)
}

// runPortal serves the onboarding flow until settings are saved.
func runPortal(cfg *config.Config, store *prefs.Store, profile *device.Profile, logger *zap.Logger) {
	restart := func() {
		logger.Info("Onboarding complete, restarting")
		_ = logger.Sync()
		os.Exit(0)
	}
	p := portal.NewManager(store, profile, restart, logger)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = p.Shutdown(ctx)
	}()

	addr := fmt.Sprintf(":%d", cfg.Portal.Port)
	if err := p.Begin(addr, cfg.Portal.SSIDPrefix); err != nil {
		logger.Fatal("Portal failed", zap.Error(err))
	}
}

// runNode is the configured-mode main loop.
func runNode(cfg *config.Config, store *prefs.Store, profile *device.Profile, record prefs.ConnRecord, logger *zap.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis is optional: without it the node still serves MQTT/WebSocket
	// payloads, it just cannot publish render snapshots.
	var sink display.SnapshotSink
	var redisClient *transport.Client
	if client, err := transport.NewClient(cfg.Redis, logger); err != nil {
		logger.Warn("Redis unavailable, render snapshots disabled", zap.Error(err))
	} else {
		redisClient = client
		sink = client
		defer redisClient.Close()
	}

	// Display manager and payload router
	manager := display.NewManager(profile, sink, logger)
	defer manager.Shutdown()
	router := display.NewRouter(logger)
	router.Register(manager)
	manager.CreateHomeScreen()

	// External I2C discovery and the peripherals it finds
	var stoppers []func()
	defer func() {
		for _, stop := range stoppers {
			stop()
		}
	}()
	if profile.HasExternalI2C {
		stoppers = startPeripherals(ctx, cfg, store, profile, router, logger)
	}

	// Transports: MQTT/WebSocket links plus the Redis stream consumer
	conn := connection.NewManager(connection.Options{
		DeviceID: profile.DeviceID,
		Record:   record,
		MQTT:     cfg.MQTT,
		Backend:  cfg.Backend,
	}, router, manager, logger)
	if err := conn.Start(ctx); err != nil {
		logger.Warn("No payload transport active", zap.Error(err))
		manager.UpdateStatusLabel("No transport configured")
	}
	defer conn.Stop()

	var consumer *transport.Consumer
	if redisClient != nil {
		consumer = transport.NewConsumer(redisClient, router, logger)
		go func() {
			if err := consumer.Start(); err != nil {
				logger.Error("Redis consumer exited", zap.Error(err))
			}
		}()
		defer consumer.Stop()
	}

	logger.Info("Display node ready", zap.String("device_id", profile.DeviceID))

	// Wait for interrupt signal to gracefully shut down
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down display node...")
}

// startPeripherals opens the bus, runs discovery, and brings up the
// managers for whatever was found. Returns the stop funcs in shutdown
// order.
func startPeripherals(ctx context.Context, cfg *config.Config, store *prefs.Store, profile *device.Profile, router *display.Router, logger *zap.Logger) []func() {
	var bus i2cbus.Bus
	if cfg.I2C.SerialPort != "" {
		bridge, err := i2cbus.OpenSerialBridge(cfg.I2C.SerialPort, cfg.I2C.BaudRate)
		if err != nil {
			logger.Warn("Serial bridge unavailable, continuing without external I2C", zap.Error(err))
			return nil
		}
		bus = bridge
	} else {
		logger.Info("No serial bridge configured, using simulated I2C bus")
		bus = i2cbus.NewMemBus()
	}

	scanner := i2cbus.NewScanner(bus, profile.DeviceID, logger)
	discovery := i2cbus.NewDiscovery(scanner, logger)
	go discovery.Run(ctx)

	select {
	case <-discovery.Ready():
	case <-ctx.Done():
		return []func(){func() { bus.Close() }}
	}
	report := discovery.Report()

	var stoppers []func()
	stoppers = append(stoppers, func() { bus.Close() })

	if report.FoundQuadDisplay && profile.HasQuadDisplay {
		quad := peripherals.NewQuadDisplay(bus, logger)
		for _, d := range report.Devices {
			if d.DeviceType == i2cbus.TypeQuadDisplay {
				quad.AddDisplay(d.Address)
			}
		}
		if err := quad.Begin(); err == nil {
			router.Register(quad)
			stoppers = append(stoppers, quad.Stop)
		}
	}

	if report.FoundCharlieplex && profile.HasCharlieplex {
		matrix := peripherals.NewCharlieplex(bus, logger)
		if err := matrix.Begin(); err == nil {
			matrix.SetMessage(profile.DeviceID)
			stoppers = append(stoppers, matrix.Stop)
		}
	}

	if profile.HasRGBLED {
		var npRecord prefs.NeoPixelRecord
		if _, err := store.Read(prefs.NamespaceNeoPixel, &npRecord); err != nil {
			logger.Warn("Failed to read NeoPixel settings", zap.Error(err))
		}
		pixels := peripherals.NewNeoPixels(peripherals.NopStrip{}, npRecord, 8, logger)
		if err := pixels.Begin(); err == nil {
			pixels.SetMode(peripherals.ModeSolid, peripherals.Color{G: 64})
			stoppers = append(stoppers, pixels.Stop)
		}
	}

	return stoppers
}

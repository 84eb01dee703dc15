// Command rebornctl connects to a Reborn/Graal server, logs in, and
// dumps decoded packets to the console. It wires the core's packages the
// way cmd/paysys/main.go wires the teacher's server (config load ->
// construct managers -> start -> signal.Notify -> graceful shutdown),
// inverted from a listening server into a single outbound connection.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"reborn-client/internal/cache"
	"reborn-client/internal/codec"
	"reborn-client/internal/dispatch"
	"reborn-client/internal/filexfer"
	"reborn-client/internal/login"
	"reborn-client/internal/metrics"
	"reborn-client/internal/reconnect"
	"reborn-client/internal/registry"
	"reborn-client/internal/transport"
	"reborn-client/pkg/config"
)

func main() {
	configPath := flag.String("config", "client.ini", "path to client configuration")
	account := flag.String("account", "", "account name")
	password := flag.String("password", "", "account password")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer logger.Sync()
	log := logger.Sugar()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalw("failed to load config", "error", err)
	}

	gen, err := parseGeneration(cfg.Connection.ProtocolGeneration)
	if err != nil {
		log.Fatalw("failed to start", "error", err)
	}

	store, err := cache.New(cfg.Cache.Directory, cfg.Cache.MySQLDSN)
	if err != nil {
		log.Fatalw("cache directory not writable", "error", err)
	}
	defer store.Close()

	coll := metrics.NewCollectors(nil)
	bus := dispatch.NewEventBus()
	reg := registry.NewBuiltin()
	d := dispatch.New(bus, coll, log)

	reassembler := filexfer.New(coll, func(filename string, content []byte) {
		if _, err := store.Write(cfg.Connection.Host, filename, content); err != nil {
			log.Warnw("failed to cache downloaded file", "filename", filename, "error", err)
		}
		bus.Emit(dispatch.TopicFileDownloaded, map[string]any{"filename": filename, "bytes": len(content)})
	})

	var activeDownloadID string
	registerCoreHandlers(d, reassembler, &activeDownloadID, cfg.DebugPackets, log)

	mgr := transport.New(gen, bus, reg, d, coll, log)
	mgr.ConnectTimeout = cfg.Connection.ConnectTimeout()

	mgr.SetRawSink(func(chunk []byte) {
		if activeDownloadID == "" {
			log.Warnw("raw data chunk received with no active download", "bytes", len(chunk))
			return
		}
		reassembler.AppendRaw(activeDownloadID, chunk)
		if cfg.DebugPackets {
			log.Debugw("raw data chunk received", "download_id", activeDownloadID, "bytes", len(chunk))
		}
	})

	reconnectPolicy := cfg.Reconnect.ToReconnectPolicy()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rc := reconnect.New(reconnectPolicy, bus, coll, log, func(ctx context.Context) error {
		return mgr.Connect(ctx, cfg.Connection.Host, cfg.Connection.Port, 0)
	})
	rc.Start(ctx)

	bus.Subscribe(dispatch.TopicConnected, func(data map[string]any) {
		fmt.Printf("connected to %s:%d (generation %s)\n", cfg.Connection.Host, cfg.Connection.Port, gen)
		frame := login.Build(login.Params{
			ClientType:            cfg.Connection.ClientType,
			ProtocolVersionString: cfg.Connection.ProtocolVersionString,
			Account:               *account,
			Password:              *password,
			Build:                 cfg.Connection.BuildString,
			SendsBuild:            cfg.Connection.BuildString != "",
			Generation:            int(gen),
		})
		if err := mgr.SendLoginFrame(frame); err != nil {
			log.Errorw("login failed", "error", err)
		}
	})

	if err := mgr.Connect(ctx, cfg.Connection.Host, cfg.Connection.Port, 0); err != nil {
		log.Fatalw("initial connect failed", "error", err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	fmt.Println("shutting down")
	mgr.Disconnect()
}

func parseGeneration(s string) (codec.Generation, error) {
	switch s {
	case "gen1":
		return codec.Gen1, nil
	case "gen2":
		return codec.Gen2, nil
	case "gen4":
		return codec.Gen4, nil
	case "gen5", "":
		return codec.Gen5, nil
	default:
		return 0, fmt.Errorf("rebornctl: unsupported protocol_generation %q", s)
	}
}

func registerCoreHandlers(d *dispatch.Dispatcher, reassembler *filexfer.Reassembler, activeDownloadID *string, debug bool, log *zap.SugaredLogger) {
	d.RegisterHandler(9, func(data map[string]any) {
		if debug {
			log.Debugw("PLO_PLAYERPROPS", "data", data)
		}
	})
	d.RegisterHandler(6, func(data map[string]any) {
		if debug {
			log.Debugw("PLO_LEVELNAME", "data", data)
		}
	})
	d.RegisterHandler(16, func(data map[string]any) {
		log.Warnw("server sent disconnect message", "data", data)
	})
	d.RegisterHandler(102, func(data map[string]any) {
		raw, _ := data["body"].([]byte)
		identified := filexfer.Identify(raw)
		reassembler.HandleFile(identified.Filename, identified.Content)
	})
	d.RegisterHandler(68, func(data map[string]any) {
		id := fmt.Sprintf("%d", data["download_id"])
		filename, _ := data["filename"].([]byte)
		reassembler.Start(id, string(filename))
		*activeDownloadID = id
	})
	d.RegisterHandler(84, func(data map[string]any) {
		id := fmt.Sprintf("%d", data["download_id"])
		size, _ := data["size"].(int)
		reassembler.SetSize(id, size)
	})
	d.RegisterHandler(69, func(data map[string]any) {
		filename, _ := data["filename"].([]byte)
		reassembler.Finish(string(filename))
		*activeDownloadID = ""
	})
}

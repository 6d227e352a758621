package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/banshee-data/sensor.fusion/internal/config"
	"github.com/banshee-data/sensor.fusion/internal/db"
	"github.com/banshee-data/sensor.fusion/internal/fusion"
	"github.com/banshee-data/sensor.fusion/internal/monitor"
	"github.com/banshee-data/sensor.fusion/internal/sensor/auxiliary"
	"github.com/banshee-data/sensor.fusion/internal/sensor/lidar/network"
	"github.com/banshee-data/sensor.fusion/internal/serialmux"
	"github.com/banshee-data/sensor.fusion/internal/timeutil"
	"github.com/banshee-data/sensor.fusion/internal/tracking"
	"github.com/banshee-data/sensor.fusion/internal/version"
)

var (
	configPath   = flag.String("config", config.DefaultConfigPath, "Tuning config JSON")
	dbPath       = flag.String("db", "fusion.db", "SQLite run store; empty disables recording")
	listen       = flag.String("listen", ":8080", "HTTP listen address; empty disables the server")
	serialPort   = flag.String("serial", "", "Serial port carrying radar/IMU JSON lines")
	baudRate     = flag.Int("baud", serialmux.DefaultPortOptions().BaudRate, "Serial baud rate")
	lidarUDP     = flag.String("lidar-udp", "", "UDP address to receive LiDAR packets on")
	lidarPCAP    = flag.String("lidar-pcap", "", "pcap file to replay LiDAR packets from")
	lidarPort    = flag.Int("lidar-port", 0, "UDP port filter for pcap replay (0 accepts all)")
	pcapSpeed    = flag.Float64("lidar-pcap-speed", 1.0, "pcap replay speed multiplier (0 replays as fast as the file reads)")
	rcvBuf       = flag.Int("udp-rcvbuf", 4<<20, "UDP receive buffer size")
	imageDir     = flag.String("images", "", "Directory of still images replayed to the cameras")
	loopImages   = flag.Bool("loop", false, "Loop the image replay")
	maxTicks     = flag.Int("ticks", 0, "Stop after this many ticks (0 runs until interrupted)")
	notes        = flag.String("notes", "", "Free-form notes stored with the run")
	debugLog     = flag.Bool("debug", false, "Enable diagnostic logging")
	traceLog     = flag.Bool("trace", false, "Enable per-tick trace logging")
	forceMigrate = flag.Int("migrate-force", -1, "Force the -db schema version to recover a dirty migration, then exit")
	showVersion  = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println("fusion " + version.String())
		return
	}
	if *lidarUDP != "" && *lidarPCAP != "" {
		log.Fatal("-lidar-udp and -lidar-pcap are mutually exclusive")
	}
	if *forceMigrate >= 0 {
		if err := forceMigration(*dbPath, *forceMigrate); err != nil {
			log.Fatal(err)
		}
		return
	}

	setLogWriters(*debugLog, *traceLog)

	tc, err := config.LoadTuningConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	bankCfg, err := tracking.ConfigFromTuning(tc)
	if err != nil {
		log.Fatalf("invalid tracking config: %v", err)
	}

	pipeline := fusion.NewPipeline(tc, fusion.NewOrchestrator(tracking.NewBank(bankCfg)))
	source := &fusion.SensorSource{}

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	// ctx is also cancelled when the runner stops on its own (tick limit,
	// exhausted replay) or the HTTP server fails.
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	var wg sync.WaitGroup
	var sinks []fusion.Sink
	var admin []monitor.AdminRouter

	if *imageDir != "" {
		replay, err := fusion.NewImageReplay(*imageDir, *loopImages)
		if err != nil {
			log.Fatalf("failed to open image replay: %v", err)
		}
		log.Printf("replaying %d images from %s", replay.Len(), *imageDir)
		source.Images = replay
	}

	if *lidarUDP != "" || *lidarPCAP != "" {
		collector := &fusion.LidarCollector{}
		source.Lidar = collector

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := runLidar(ctx, collector); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("lidar input stopped: %v", err)
			}
			log.Print("lidar routine terminated")
		}()
	}

	if *serialPort != "" {
		opts := serialmux.DefaultPortOptions()
		opts.BaudRate = *baudRate
		mux, err := serialmux.OpenPort(*serialPort, opts)
		if err != nil {
			log.Fatalf("failed to open serial port: %v", err)
		}
		defer mux.Close()
		admin = append(admin, mux)

		latch := &auxiliary.Latch{}
		source.Aux = latch
		ingester := auxiliary.NewIngester(latch, nil)
		id, lines := mux.Subscribe()

		wg.Add(2)
		go func() {
			defer wg.Done()
			if err := mux.Monitor(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("failed to monitor serial port: %v", err)
			}
			log.Print("serial monitor routine terminated")
		}()
		go func() {
			defer wg.Done()
			defer mux.Unsubscribe(id)
			if err := ingester.Run(ctx, lines); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("auxiliary ingest stopped: %v", err)
			}
			log.Printf("auxiliary ingest terminated after %d lines (%d errors)", ingester.Lines.Load(), ingester.Errors.Load())
		}()
	}

	if *dbPath != "" {
		store, err := db.NewDB(*dbPath)
		if err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
		defer store.Close()
		admin = append(admin, store)

		raw, err := json.Marshal(tc)
		if err != nil {
			log.Fatalf("failed to encode config: %v", err)
		}
		runID, err := store.StartRun(ctx, string(raw), *notes)
		if err != nil {
			log.Fatalf("failed to start run: %v", err)
		}
		log.Printf("recording run %s to %s", runID, *dbPath)
		defer func() {
			if err := store.EndRun(context.Background(), runID); err != nil {
				log.Printf("failed to close run %s: %v", runID, err)
			}
		}()
		sinks = append(sinks, store.NewRecorder(runID))
	}

	if *listen != "" {
		ws := monitor.NewWebServer(monitor.WebServerConfig{
			Address:  *listen,
			Pipeline: pipeline,
			History:  tc.GetResidualHistoryLength(),
			Admin:    admin,
		})
		sinks = append(sinks, ws)

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ws.Start(ctx); err != nil {
				log.Printf("HTTP server failed: %v", err)
				cancel()
			}
		}()
	}

	runner := &fusion.Runner{
		Pipeline: pipeline,
		Source:   source,
		Sinks:    sinks,
		Clock:    timeutil.RealClock{},
		Interval: tc.GetTickInterval(),
		MaxTicks: *maxTicks,
	}
	log.Printf("fusion %s ticking every %s", version.Version, runner.Interval)
	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("runner stopped: %v", err)
	}

	cancel()
	wg.Wait()

	last := pipeline.Orchestrator().Last()
	log.Printf("final tick %d: %d objects (valid=%t)", last.Seq, last.Count, last.Valid)
}

func runLidar(ctx context.Context, collector *fusion.LidarCollector) error {
	if *lidarPCAP != "" {
		var stats *network.Stats
		var err error
		if *pcapSpeed > 0 {
			stats, err = network.ReadPCAPFileRealtime(ctx, *lidarPCAP, *lidarPort, collector.Handle, network.ReplayConfig{
				SpeedMultiplier: *pcapSpeed,
				Clock:           timeutil.RealClock{},
			})
		} else {
			stats, err = network.ReadPCAPFile(ctx, *lidarPCAP, *lidarPort, collector.Handle)
		}
		if stats != nil {
			log.Printf("pcap replay: %d packets, %d samples, %d errors", stats.Packets.Load(), stats.Samples.Load(), stats.Errors.Load())
		}
		return err
	}

	l, err := network.Listen(*lidarUDP, *rcvBuf)
	if err != nil {
		return err
	}
	defer l.Close()
	log.Printf("listening for LiDAR packets on %s", l.Addr())
	return l.Serve(ctx, collector.Handle)
}

// forceMigration clears a dirty schema by stamping version without running
// any migration.
func forceMigration(path string, version int) error {
	if path == "" {
		return errors.New("-migrate-force needs -db")
	}
	store, err := db.OpenDB(path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	if err := store.MigrateForce(version); err != nil {
		return err
	}
	log.Printf("migration version of %s forced to %d", path, version)
	return nil
}

func setLogWriters(debug, trace bool) {
	ops := io.Writer(os.Stderr)
	var diag, tr io.Writer
	if debug || trace {
		diag = os.Stderr
	}
	if trace {
		tr = os.Stderr
	}
	fusion.SetLogWriters(ops, diag, tr)
	tracking.SetLogWriters(ops, diag, tr)
	auxiliary.SetLogWriters(ops, diag, tr)
	network.SetLogWriters(ops, diag, tr)
}

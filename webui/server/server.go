// Glider control panel.
//
// Brings up the network (own access point, or joins a LAN), serves the
// control page on port 80 and keeps the flight-control flags in sync with the
// flight controller over serial.
//
// e.g. ./server --mode station --port 8080 --serial /dev/ttyUSB0
package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/airheads/glider-panel/internal/config"
	"github.com/airheads/glider-panel/internal/link"
	"github.com/airheads/glider-panel/internal/netboot"
	"github.com/airheads/glider-panel/internal/page"
	"github.com/airheads/glider-panel/internal/panel"
	"github.com/airheads/glider-panel/internal/poll"
	"github.com/airheads/glider-panel/internal/share"
	"github.com/airheads/glider-panel/internal/webui"
)

const shutdownTimeout = 5 * time.Second

func main() {
	configPath := flag.String("config", "", "Path to glider.yaml (default: ./glider.yaml or ~/.config/glider-panel/glider.yaml)")
	port := flag.Int("port", 0, "Port for the panel to listen on (default 80)")
	mode := flag.String("mode", "", "Network mode: ap (host own network) or station (join existing)")
	serialPort := flag.String("serial", "", "Serial port of the flight controller (e.g., COM5 on Windows, /dev/ttyUSB0 on Linux)")
	pollInterval := flag.Duration("poll", 0, "Time between request polls (default 500ms)")
	writeConfig := flag.String("write-config", "", "Write the effective configuration to this path and exit")
	flag.Parse()

	// Only flags given on the command line override the file and environment.
	overrides := map[string]any{}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			overrides["http.port"] = *port
		case "mode":
			overrides["network.mode"] = *mode
		case "serial":
			overrides["serial.port"] = *serialPort
		case "poll":
			overrides["poll.interval"] = *pollInterval
		}
	})

	cfg, err := config.Load(*configPath, overrides)
	if err != nil {
		log.Fatalf("[STARTUP] %v", err)
	}

	if *writeConfig != "" {
		if err := config.Write(*writeConfig, cfg); err != nil {
			log.Fatalf("[STARTUP] %v", err)
		}
		log.Printf("[STARTUP] Wrote configuration to %s", *writeConfig)
		return
	}

	// Set up graceful shutdown on Ctrl+C or SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("[SHUTDOWN] %v", err)
	}
	log.Println("[SHUTDOWN] Server exited cleanly")
}

func run(ctx context.Context, cfg config.Config) error {
	store := share.NewStore()
	ctl, err := panel.New(store, page.New(page.DefaultPanel))
	if err != nil {
		return err
	}
	log.Printf("[STARTUP] Routes: %v", ctl.Routes.Paths())

	// The network must be up before polling starts.
	log.Printf("[STARTUP] Bringing up network in %s mode...", cfg.Network.Mode)
	listener, err := netboot.New(cfg.Bootstrap()).Up(ctx)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	tasks, cancelTasks := context.WithCancel(context.Background())
	defer func() {
		cancelTasks()
		wg.Wait()
	}()

	queue := poll.NewQueue(cfg.Poll.Queue)
	poller := poll.NewPoller(queue, ctl.Routes, cfg.Poll.Interval)
	hub := webui.NewHub(store)

	wg.Add(2)
	go func() {
		defer wg.Done()
		poller.Run(tasks)
	}()
	go func() {
		defer wg.Done()
		hub.Run(tasks)
	}()

	if cfg.Serial.Port != "" {
		log.Printf("[STARTUP] Opening flight controller on %s at %d baud...", cfg.Serial.Port, cfg.Serial.Baud)
		port, err := link.Open(ctx, cfg.Serial.Port, cfg.Serial.Baud)
		if err != nil {
			// The panel stays useful without the link; flags are still visible on /state.
			log.Printf("[STARTUP] Serial link disabled: %v", err)
		} else {
			wg.Add(1)
			go func() {
				defer wg.Done()
				reopen := func(ctx context.Context) (io.ReadWriteCloser, error) {
					return link.Open(ctx, cfg.Serial.Port, cfg.Serial.Baud)
				}
				link.New(port, store, reopen).Run(tasks)
			}()
		}
	}

	srv := webui.NewServer(webui.NewRouter(queue, hub))
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(listener)
	}()
	log.Printf("[STARTUP] Control panel can be found at: http://%s/", listener.Addr())

	select {
	case <-ctx.Done():
		log.Println("[SHUTDOWN] Shutting down...")
	case err := <-serveErr:
		return err
	}

	// Stop accepting requests, let in-flight ones finish, then stop the tasks.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[SHUTDOWN] Server shutdown: %v", err)
	}
	return nil
}

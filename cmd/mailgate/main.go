// Command mailgate polls one or more IMAP mailboxes, turns unseen messages
// into tickets or ticket comments against a REST ticketing API, and files
// each processed message into its configured success or failure mailbox.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/inboxforge/mailgate/internal/config"
	"github.com/inboxforge/mailgate/internal/dispatch"
	"github.com/inboxforge/mailgate/internal/logx"
	"github.com/inboxforge/mailgate/internal/orchestrator"
	"github.com/inboxforge/mailgate/internal/platform"
	"github.com/inboxforge/mailgate/internal/restapi"
	"github.com/inboxforge/mailgate/internal/spam"
	"github.com/inboxforge/mailgate/internal/supervisor"
)

func main() {
	configPath := os.Getenv("MAILGATE_CONFIG")
	if configPath == "" {
		configPath = "./config.yaml"
	}

	if err := config.Load(configPath); err != nil {
		log.Fatalf("mailgate: loading configuration from %s: %v", configPath, err)
	}
	cfg := config.Get()

	if os.Getenv("MAILGATE_TLS_INSECURE") == "true" {
		log.Println("mailgate: WARNING MAILGATE_TLS_INSECURE=true, certificate verification is disabled for every server")
		for i := range cfg.Servers {
			cfg.Servers[i].TLS.Insecure = true
		}
	}

	logger, err := logx.New(cfg.Logging.InfoPath, cfg.Logging.ErrorPath)
	if err != nil {
		log.Fatalf("mailgate: opening log sinks: %v", err)
	}

	if cfg.Metrics.Enabled {
		go serveMetrics(cfg.Metrics.ListenAddr, logger)
	}

	tickets := restapi.New(cfg.REST)

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelPing()
	if err := tickets.Ping(pingCtx); err != nil {
		log.Fatalf("mailgate: ticketing API at %s is unreachable: %v", cfg.REST.BaseURL, err)
	}

	gate := spam.New(tickets)
	pipeline := dispatch.New(tickets, gate)

	supervisors := make([]orchestrator.Supervisor, 0, len(cfg.Servers))
	for _, serverCfg := range cfg.Servers {
		serverName := serverCfg.Name
		sup := supervisor.New(
			serverCfg,
			pipeline,
			func() config.RuntimeConfig { return config.Get().Runtime },
			func() string { return config.Get().REST.DBQueryURI },
			supervisor.WithLogger(log.New(logAdapter{logger}, fmt.Sprintf("[%s] ", serverName), 0)),
		)
		supervisors = append(supervisors, sup)
	}

	orch := orchestrator.New(log.New(logAdapter{logger}, "[orchestrator] ", 0), supervisors...)

	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	if err := platform.NotifyConsoleClose(sigChan); err != nil {
		logger.Errorf("mailgate: installing console close handler: %v", err)
	}

	go func() {
		sig := <-sigChan
		logger.Infof("mailgate: received signal %v, shutting down", sig)
		cancel()
	}()

	logger.Infof("mailgate: starting, %d server(s) configured", len(cfg.Servers))
	if err := orch.Run(ctx); err != nil {
		logger.Errorf("mailgate: stopped with error: %v", err)
		os.Exit(1)
	}
	logger.Infof("mailgate: shutdown complete")
}

func serveMetrics(addr string, logger *logx.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Errorf("mailgate: metrics server on %s exited: %v", addr, err)
	}
}

// logAdapter lets log.New wrap *logx.Logger's info sink as an io.Writer, so
// package-level code written against *log.Logger (supervisor, orchestrator)
// shares the same destination as the rest of the service.
type logAdapter struct{ logger *logx.Logger }

func (a logAdapter) Write(p []byte) (int, error) {
	a.logger.Infof("%s", string(p))
	return len(p), nil
}

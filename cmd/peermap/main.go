// main is the entry point of the Peermap application.
// It initializes the configuration, logger, resolvers and the aggregation service, and starts the HTTP server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/peermap/internal/aggregator"
	"github.com/woozymasta/peermap/internal/cache"
	"github.com/woozymasta/peermap/internal/config"
	"github.com/woozymasta/peermap/internal/daemon"
	"github.com/woozymasta/peermap/internal/geoip"
	"github.com/woozymasta/peermap/internal/logger"
	"github.com/woozymasta/peermap/internal/rdns"
	"github.com/woozymasta/peermap/internal/server"
	"github.com/woozymasta/peermap/internal/vars"
)

func main() {
	cfg := config.Parse()

	closeLog := logger.Setup(cfg.Logger)
	defer func() { _ = closeLog() }()

	log.Info().Str("version", vars.Version).Msg("Starting peermap service...")

	store := cache.New(cfg.Cache.EntryTTL())

	// Geolocation
	sources := []geoip.Lookuper{geoip.NewIPInfo(geoip.IPInfoOptions{
		BaseURL: cfg.IPInfo.URL,
		Token:   cfg.IPInfo.Token,
		Timeout: cfg.IPInfo.Timeout,
		Rate:    cfg.IPInfo.Rate,
		Burst:   cfg.IPInfo.Burst,
	})}

	if cfg.GeoIP.Path != "" {
		log.Info().Msg("Checking GeoIP database...")
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		if err := geoip.EnsureDB(ctx, cfg.GeoIP.Path, cfg.GeoIP.URL, cfg.GeoIP.Interval); err != nil {
			log.Error().Err(err).Msg("Failed to download GeoIP database")
		}
		cancel()

		mmdb, err := geoip.Open(cfg.GeoIP.Path)
		if err != nil {
			log.Error().Err(err).Msg("Failed to open GeoIP database, offline fallback disabled")
		} else {
			defer func() {
				if err := mmdb.Close(); err != nil {
					log.Error().Err(err).Msg("Error closing GeoIP provider")
				}
			}()
			sources = append(sources, mmdb)
		}
	}

	geo := geoip.NewResolver(store, sources...)

	// Reverse DNS
	var servers []string
	if !cfg.DNS.System {
		var err error
		servers, err = rdns.ServersFromResolvConf(cfg.DNS.ResolvConf)
		if err != nil {
			log.Warn().Err(err).Str("path", cfg.DNS.ResolvConf).Msg("No usable nameservers, using system resolver")
		}
	}
	dnsClient := rdns.NewClient(servers, cfg.DNS.Timeout)
	dns := rdns.NewResolver(store, dnsClient.LookupAddr)

	// Daemon
	rpc := daemon.NewClient(daemon.Options{
		Host:     cfg.Daemon.Host,
		Port:     cfg.Daemon.Port,
		Username: cfg.Daemon.Username,
		Password: cfg.Daemon.Password,
		Timeout:  cfg.Daemon.Timeout,
		TLS:      cfg.Daemon.SSL,
	})
	log.Info().Str("url", rpc.URL()).Msg("Daemon RPC configured")

	svc := aggregator.New(daemon.NewGateway(rpc, cfg.Daemon.Port), geo, dns, store, aggregator.Options{
		Interval:    cfg.Cache.RefreshInterval,
		Concurrency: cfg.Aggregation.Concurrency,
	})
	svc.Start()
	log.Info().
		Dur("interval", cfg.Cache.RefreshInterval).
		Dur("ttl", store.TTL()).
		Msg("Peer locations refresh scheduled")

	// Init server
	srvHandler := server.New(svc, cfg)

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      srvHandler.Run(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.Daemon.Timeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("address", cfg.Server.Address()).Msg("Server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Stop the scheduler first so in-flight refreshes release waiting requests
	svc.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	srvHandler.Close()

	log.Info().Msg("Server exited")
}

package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/labelgw/label-gateway/internal/carrier"
	"github.com/labelgw/label-gateway/internal/config"
	"github.com/labelgw/label-gateway/internal/convert"
	"github.com/labelgw/label-gateway/internal/db"
	"github.com/labelgw/label-gateway/internal/dedup"
	httpSrv "github.com/labelgw/label-gateway/internal/http"
	"github.com/labelgw/label-gateway/internal/kafka"
	"github.com/labelgw/label-gateway/internal/logger"
	"github.com/labelgw/label-gateway/internal/pipeline"
	"github.com/labelgw/label-gateway/internal/printrelay"
	"github.com/labelgw/label-gateway/internal/repository"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run webhook gateway",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logger.Init(cfg.Log.Level)

		mysqlDB, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.MySQLOpts{
			MaxOpenConns:    cfg.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.MySQL.MaxIdleConns,
			ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
			PingTimeout:     cfg.MySQL.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer mysqlDB.Close()

		chDB, err := db.NewClickHouseConnection(db.ClickHouseOpts{
			DSN:             cfg.ClickHouse.DSN,
			MaxOpenConns:    cfg.ClickHouse.MaxOpenConns,
			MaxIdleConns:    cfg.ClickHouse.MaxIdleConns,
			ConnMaxLifetime: cfg.ClickHouse.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.ClickHouse.ConnMaxIdleTime,
			PingTimeout:     cfg.ClickHouse.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("clickhouse connect: %w", err)
		}
		defer func() { _ = chDB.Close() }()

		// dedup ledger
		var ledger dedup.Ledger
		if cfg.Dedup.Backend == "memory" {
			ledger = dedup.NewMemoryLedger(cfg.Dedup.Retention)
		} else {
			redisClient, err := db.NewRedisClient(db.RedisOpts{
				Addr:        cfg.Redis.Addr,
				Password:    cfg.Redis.Password,
				DB:          cfg.Redis.DB,
				DialTimeout: cfg.Redis.DialTimeout,
			})
			if err != nil {
				return fmt.Errorf("redis connect: %w", err)
			}
			defer func() { _ = redisClient.Close() }()

			ledger = dedup.NewRedisLedger(redisClient, dedup.RedisLedgerOpts{
				KeyPrefix: cfg.Dedup.KeyPrefix,
				Retention: cfg.Dedup.Retention,
				ClaimTTL:  cfg.Dedup.ClaimTTL,
			})
		}

		// repos
		accountsRepo := repository.NewAccountsRepository(mysqlDB)
		chJobsRepo := repository.NewCHJobsRepository(chDB)

		// outbound clients
		carrierClient := carrier.NewClient(cfg.Carrier.BaseURL, cfg.Carrier.Timeout)
		relayClient := printrelay.NewClient(cfg.Relay.BaseURL, cfg.Relay.Timeout)
		converter := convert.NewHTTPConverter(convert.Opts{
			BaseURL:  cfg.Converter.BaseURL,
			DPMM:     cfg.Converter.DPMM,
			WidthIn:  cfg.Converter.WidthIn,
			HeightIn: cfg.Converter.HeightIn,
			Timeout:  cfg.Converter.Timeout,
		})

		publisher := kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer func() { _ = publisher.Close() }()

		pipe := pipeline.New(
			accountsRepo,
			ledger,
			carrierClient,
			converter,
			relayClient,
			publisher,
			logger.L(),
		)

		server := httpSrv.NewServer(cfg, accountsRepo, pipe, chJobsRepo)

		errCh := make(chan error, 1)
		go func() {
			log.Printf("starting http on %s", cfg.HTTP.Addr)
			errCh <- server.Start(cfg.HTTP.Addr)
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			log.Printf("signal received: %s, shutting down...", sig)
		case err := <-errCh:
			if err != nil {
				log.Printf("http server exited: %v", err)
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)

		return nil
	},
}

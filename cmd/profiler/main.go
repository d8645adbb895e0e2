package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/PerformanceProfiler/serverless-performance-profiler/internal/models"
	"github.com/PerformanceProfiler/serverless-performance-profiler/internal/profiler"
	"github.com/PerformanceProfiler/serverless-performance-profiler/internal/server"
	pkgaws "github.com/PerformanceProfiler/serverless-performance-profiler/pkg/aws"
	"github.com/PerformanceProfiler/serverless-performance-profiler/pkg/pricing"
	"github.com/PerformanceProfiler/serverless-performance-profiler/pkg/store"
)

const Version = "0.2.0"

var (
	listenAddr     string
	region         string
	tenantTable    string
	pricingTable   string
	reportTable    string
	concurrency    int
	requestTimeout time.Duration
	debug          bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "profiler",
		Short: "Cross-account serverless performance profiler",
		Long: `profiler serves per-tenant Lambda performance reports: latency, errors,
invocations, cold starts, and estimated cost, aggregated from the tenant's
own account through delegated credentials.`,
		Version: Version,
		RunE:    run,
	}

	rootCmd.Flags().StringVar(&listenAddr, "listen", ":8080", "HTTP listen address")
	rootCmd.Flags().StringVar(&region, "region", "us-east-1", "AWS region of the service's own tables")
	rootCmd.Flags().StringVar(&tenantTable, "tenant-table", "profiler-tenants", "DynamoDB table with tenant configuration")
	rootCmd.Flags().StringVar(&pricingTable, "pricing-table", "profiler-pricing", "DynamoDB table with per-region pricing overrides")
	rootCmd.Flags().StringVar(&reportTable, "report-table", "profiler-reports", "DynamoDB table for persisted reports")
	rootCmd.Flags().IntVar(&concurrency, "concurrency", profiler.DefaultConcurrency, "Max in-flight per-function tasks")
	rootCmd.Flags().DurationVar(&requestTimeout, "request-timeout", server.DefaultRequestTimeout, "Per-request deadline")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(debug)
	if err != nil {
		return fmt.Errorf("error building logger: %w", err)
	}
	defer logger.Sync()

	cfg, err := awsconfig.LoadDefaultConfig(cmd.Context(), awsconfig.WithRegion(region))
	if err != nil {
		return fmt.Errorf("error loading AWS config: %w", err)
	}

	db := dynamodb.NewFromConfig(cfg)
	tenants := store.NewTenantStore(db, tenantTable)
	pricingSource := store.NewPricingStore(db, pricingTable)
	reports := store.NewReportStore(db, reportTable)

	broker := pkgaws.NewCredentialBroker(sts.NewFromConfig(cfg), logger)
	opener := pkgaws.NewOpener(broker, logger)
	openTelemetry := profiler.OpenerFunc(func(ctx context.Context, tenant models.Tenant) (profiler.Telemetry, error) {
		return opener.Open(ctx, tenant)
	})

	resolver := pricing.NewResolver(pricingSource, logger)
	profileSvc := profiler.New(tenants, resolver, openTelemetry, reports, logger, concurrency)

	httpServer := &http.Server{
		Addr:         listenAddr,
		Handler:      server.New(profileSvc, logger, requestTimeout),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: requestTimeout + 5*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		signalChan := make(chan os.Signal, 1)
		signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)
		<-signalChan

		logger.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			logger.Error("shutdown failed", zap.Error(err))
		}
		close(shutdownDone)
	}()

	logger.Info("listening",
		zap.String("addr", listenAddr),
		zap.String("region", region),
		zap.Int("concurrency", concurrency))
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	<-shutdownDone
	return nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

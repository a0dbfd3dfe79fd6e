package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	globalConfig "github.com/AzielCF/az-crm/config"
	coreconfig "github.com/AzielCF/az-crm/core/config"
	coreDB "github.com/AzielCF/az-crm/core/database"
	domainCampaign "github.com/AzielCF/az-crm/domains/campaign"
	domainIntegration "github.com/AzielCF/az-crm/domains/integration"
	"github.com/AzielCF/az-crm/domains/realtime"
	domainSend "github.com/AzielCF/az-crm/domains/send"
	"github.com/AzielCF/az-crm/infrastructure/repository"
	"github.com/AzielCF/az-crm/infrastructure/valkey"
	"github.com/AzielCF/az-crm/infrastructure/webhook"
	"github.com/AzielCF/az-crm/infrastructure/whatsapp"
	whatsappadapter "github.com/AzielCF/az-crm/infrastructure/whatsapp/adapter"
	"github.com/AzielCF/az-crm/pkg/msgworker"
	"github.com/AzielCF/az-crm/pkg/utils"
	"github.com/AzielCF/az-crm/usecase"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/store/sqlstore"
	waLog "go.mau.fi/whatsmeow/util/log"
)

var (
	// Whatsapp
	whatsappCli *whatsmeow.Client
	waContainer *sqlstore.Container
	waAdapter   *whatsappadapter.WhatsAppAdapter

	// Pipeline infrastructure
	identityResolver *whatsapp.IdentityResolver
	loopGuard        *whatsapp.LoopGuard
	webhookRouter    *webhook.Router
	eventPool        *msgworker.EventWorkerPool
	pipeline         *whatsapp.Pipeline

	// Repositories and caches
	messageRepo      *repository.MessageRepository
	integrationRepo  *repository.IntegrationRepository
	integrationCache *domainIntegration.Cache

	// Usecases
	sendUsecase        domainSend.ISendUsecase
	campaignUsecase    domainCampaign.ICampaignUsecase
	integrationUsecase domainIntegration.IIntegrationUsecase

	// Valkey (optional)
	vkClient *valkey.Client
	serverID string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Short: "WhatsApp CRM event pipeline",
	Long: `CRM backend on top of a WhatsApp multi-device account: ingests inbound
messages, forwards them to the configured automation endpoint and drives
bulk campaign dispatches.`,
}

func init() {
	// Load environment variables first
	utils.LoadConfig(".")

	time.Local = time.UTC

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// Initialize flags first, before any subcommands are added
	initFlags()

	// Then initialize other components
	cobra.OnInitialize(initEnvConfig, initApp)
}

// initEnvConfig loads configuration from environment variables
func initEnvConfig() {
	if envPort := viper.GetString("app_port"); envPort != "" {
		globalConfig.AppPort = envPort
	}
	if envDebug := viper.GetBool("app_debug"); envDebug {
		globalConfig.AppDebug = envDebug
	}
	envBasicAuth := viper.GetString("app_basic_auth")
	if envBasicAuth == "" {
		envBasicAuth = os.Getenv("APP_BASIC_AUTH")
	}
	if envBasicAuth != "" {
		credential := strings.Split(envBasicAuth, ",")
		globalConfig.AppBasicAuthCredential = credential
	}
	if envBasePath := viper.GetString("app_base_path"); envBasePath != "" {
		globalConfig.AppBasePath = envBasePath
	}
	if envTrustedProxies := viper.GetString("app_trusted_proxies"); envTrustedProxies != "" {
		proxies := strings.Split(envTrustedProxies, ",")
		globalConfig.AppTrustedProxies = proxies
	}

	// Database settings
	if envDriver := viper.GetString("db_driver"); envDriver != "" {
		globalConfig.DBDriver = envDriver
	}
	if envDBName := viper.GetString("db_name"); envDBName != "" {
		globalConfig.DBName = envDBName
	}

	// Webhook settings
	if envSecret := viper.GetString("webhook_secret"); envSecret != "" {
		globalConfig.WebhookSecret = envSecret
	}
	if viper.IsSet("webhook_timeout_seconds") {
		globalConfig.WebhookTimeoutSeconds = viper.GetInt("webhook_timeout_seconds")
	}
}

func initFlags() {
	// Application flags
	rootCmd.PersistentFlags().StringVarP(
		&globalConfig.AppPort,
		"port", "p",
		globalConfig.AppPort,
		"change port number with --port <number> | example: --port=8080",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&globalConfig.AppDebug,
		"debug", "d",
		globalConfig.AppDebug,
		"hide or displaying log with --debug <true/false> | example: --debug=true",
	)
	rootCmd.PersistentFlags().StringSliceVarP(
		&globalConfig.AppBasicAuthCredential,
		"basic-auth", "b",
		globalConfig.AppBasicAuthCredential,
		"basic auth credential | -b=yourUsername:yourPassword",
	)
	rootCmd.PersistentFlags().StringVarP(
		&globalConfig.AppBasePath,
		"base-path", "",
		globalConfig.AppBasePath,
		`base path for subpath deployment --base-path <string> | example: --base-path="/crm"`,
	)

	// Database flags
	rootCmd.PersistentFlags().StringVarP(
		&globalConfig.DBDriver,
		"db-driver", "",
		globalConfig.DBDriver,
		`database driver, sqlite or postgres --db-driver <string> | example: --db-driver=postgres`,
	)
	rootCmd.PersistentFlags().StringVarP(
		&globalConfig.DBName,
		"db-name", "",
		globalConfig.DBName,
		`database file path (sqlite) or database name (postgres) --db-name <string>`,
	)

	// Webhook flags
	rootCmd.PersistentFlags().StringVarP(
		&globalConfig.WebhookSecret,
		"webhook-secret", "",
		globalConfig.WebhookSecret,
		`sign webhook requests --webhook-secret <string> | example: --webhook-secret="super-secret-key"`,
	)

	// Event worker pool flags
	rootCmd.PersistentFlags().IntVarP(
		&globalConfig.EventWorkerPoolSize,
		"event-workers", "",
		globalConfig.EventWorkerPoolSize,
		`number of concurrent event workers --event-workers <number> | example: --event-workers=30 (default: 20)`,
	)
	rootCmd.PersistentFlags().IntVarP(
		&globalConfig.EventWorkerQueueSize,
		"event-queue-size", "",
		globalConfig.EventWorkerQueueSize,
		`queue size per event worker --event-queue-size <number> | example: --event-queue-size=1500 (default: 1000)`,
	)
}

func initApp() {
	if globalConfig.AppDebug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	// preparing folder if not exist
	if err := utils.CreateFolder(globalConfig.PathMedia, globalConfig.PathStorages); err != nil {
		logrus.Errorln(err)
	}

	ctx := context.Background()

	cfg, err := coreconfig.LoadConfig()
	if err != nil {
		logrus.Fatalf("failed to load configuration: %v", err)
	}
	// CLI flags win over environment defaults
	cfg.App.Port = globalConfig.AppPort
	cfg.App.Debug = globalConfig.AppDebug
	cfg.App.BasicAuth = globalConfig.AppBasicAuthCredential
	cfg.App.BasePath = globalConfig.AppBasePath
	cfg.App.TrustedProxies = globalConfig.AppTrustedProxies
	cfg.Database.Driver = globalConfig.DBDriver
	cfg.Database.Name = globalConfig.DBName
	cfg.Webhook.Secret = globalConfig.WebhookSecret

	db, err := coreDB.NewDatabase(cfg)
	if err != nil {
		logrus.Fatalf("failed to open database: %v", err)
	}

	messageRepo, err = repository.NewMessageRepository(db)
	if err != nil {
		logrus.Fatalf("failed to init message repository: %v", err)
	}
	integrationRepo, err = repository.NewIntegrationRepository(db)
	if err != nil {
		logrus.Fatalf("failed to init integration repository: %v", err)
	}

	integrationCfg, err := integrationRepo.Load(ctx)
	if err != nil {
		logrus.Warnf("[APP] Could not load integration config, starting empty: %v", err)
	}
	integrationCache = domainIntegration.NewCache(integrationCfg)

	// Valkey is optional; without it realtime events stay process-local.
	serverID = utils.GetPersistentServerID(cfg.App.ServerID, globalConfig.PathStorages)
	if cfg.Database.ValkeyEnabled {
		vkClient, err = valkey.NewClient(valkey.Config{
			Address:   cfg.Database.ValkeyAddress,
			Password:  cfg.Database.ValkeyPassword,
			DB:        cfg.Database.ValkeyDB,
			KeyPrefix: cfg.Database.ValkeyKeyPrefix,
		})
		if err != nil {
			logrus.Warnf("[APP] Valkey disabled: %v", err)
			vkClient = nil
		}
	}

	initWhatsAppClient(ctx, cfg)
}

func initWhatsAppClient(ctx context.Context, cfg *coreconfig.Config) {
	logLevel := "ERROR"
	if cfg.App.Debug {
		logLevel = "DEBUG"
	}

	storeURI := fmt.Sprintf("file:%s/whatsapp.db?_foreign_keys=on&_journal_mode=WAL", cfg.Paths.Storages)
	container, err := sqlstore.New(ctx, "sqlite3", storeURI, waLog.Stdout("Database", logLevel, true))
	if err != nil {
		logrus.Fatalf("failed to open whatsapp session store: %v", err)
	}
	waContainer = container

	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		logrus.Fatalf("failed to load whatsapp device: %v", err)
	}

	whatsappCli = whatsmeow.NewClient(device, waLog.Stdout("Client", logLevel, true))
	waAdapter = whatsappadapter.NewAdapter(whatsappCli)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// StopApp performs a clean shutdown of the pipeline and its connections.
func StopApp() {
	logrus.Info("[APP] Stopping application...")

	if eventPool != nil {
		eventPool.Stop()
	}
	if loopGuard != nil {
		loopGuard.Close()
	}
	if whatsappCli != nil {
		whatsappCli.Disconnect()
	}
	if waContainer != nil {
		_ = waContainer.Close()
	}
	if vkClient != nil {
		vkClient.Close()
	}
	if sqlDB, err := coreDB.GetLegacyDB(); err == nil {
		_ = sqlDB.Close()
	}

	logrus.Info("[APP] Application stopped cleanly.")
}

// buildPipeline wires the ingestion stack once the realtime emitter exists.
func buildPipeline(ctx context.Context, cfg *coreconfig.Config, emitter realtime.Emitter) {
	identityResolver = whatsapp.NewIdentityResolver()
	loopGuard = whatsapp.NewLoopGuard(time.Duration(globalConfig.LoopGuardClearIntervalMs) * time.Millisecond)
	webhookRouter = webhook.NewRouter(
		integrationCache,
		cfg.Webhook.Secret,
		time.Duration(cfg.Webhook.TimeoutSeconds)*time.Second,
		cfg.Webhook.InsecureSkipVerify,
	)

	eventPool = msgworker.NewEventWorkerPool(globalConfig.EventWorkerPoolSize, globalConfig.EventWorkerQueueSize)
	eventPool.Start(ctx)

	pipeline = whatsapp.NewPipeline(
		waAdapter,
		messageRepo,
		identityResolver,
		loopGuard,
		webhookRouter,
		emitter,
		eventPool,
		cfg.Paths.Media,
		cfg.Pipeline.AutoDownloadMedia,
	)
	waAdapter.Bind(pipeline.Handlers())

	sendUsecase = usecase.NewSendService(waAdapter, messageRepo, loopGuard, webhookRouter, emitter)
	campaignUsecase = usecase.NewCampaignService(
		waAdapter,
		integrationCache,
		emitter,
		time.Duration(globalConfig.CampaignInterSendDelayMs)*time.Millisecond,
	)
	integrationUsecase = usecase.NewIntegrationService(integrationRepo, integrationCache)
}

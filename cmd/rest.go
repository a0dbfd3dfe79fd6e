package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	globalConfig "github.com/AzielCF/az-crm/config"
	coreconfig "github.com/AzielCF/az-crm/core/config"
	"github.com/AzielCF/az-crm/ui/rest"
	"github.com/AzielCF/az-crm/ui/rest/middleware"
	"github.com/AzielCF/az-crm/ui/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var restCmd = &cobra.Command{
	Use:   "rest",
	Short: "Serve the CRM API over http",
	Run:   restServer,
}

func init() {
	restCmd.Flags().String("basic-auth", "", "Basic auth for API (format: user:pass,user2:pass2)")
	rootCmd.AddCommand(restCmd)
}

func restServer(cmd *cobra.Command, _ []string) {
	// Override basic auth if flag is provided
	if baFlag, _ := cmd.Flags().GetString("basic-auth"); baFlag != "" {
		coreconfig.Global.App.BasicAuth = strings.Split(baFlag, ",")
	}

	fiberConfig := fiber.Config{
		EnableTrustedProxyCheck: true,
		Network:                 "tcp",
		AppName:                 "Az-CRM Engine",
		DisableStartupMessage:   false,
		ServerHeader:            "Hidden",
	}

	// Configure proxy settings if trusted proxies are specified
	if len(coreconfig.Global.App.TrustedProxies) > 0 {
		fiberConfig.TrustedProxies = coreconfig.Global.App.TrustedProxies
		fiberConfig.ProxyHeader = fiber.HeaderXForwardedHost
	}

	app := fiber.New(fiberConfig)

	// Security: RequestID for audit trails
	app.Use(requestid.New())

	// Security: Strict CORS
	origins := strings.Join(coreconfig.Global.App.CorsAllowedOrigins, ", ")
	if !strings.Contains(origins, coreconfig.Global.App.BaseUrl) {
		origins += ", " + coreconfig.Global.App.BaseUrl
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.Recovery())

	// Security: Hardened Headers
	app.Use(helmet.New(helmet.Config{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "SAMEORIGIN",
		HSTSMaxAge:            31536000,
		HSTSExcludeSubdomains: false,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        1000,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
	}))

	if coreconfig.Global.App.Debug {
		app.Use(logger.New())
	}

	if len(coreconfig.Global.App.BasicAuth) == 0 {
		logrus.Fatalln("APP_BASIC_AUTH is required. Nothing should be public; please set APP_BASIC_AUTH=<user>:<secret>[,<user2>:<secret2>] and restart.")
	}

	account := make(map[string]string)
	for _, basicAuth := range coreconfig.Global.App.BasicAuth {
		ba := strings.Split(basicAuth, ":")
		if len(ba) != 2 {
			logrus.Fatalln("Basic auth is not valid, please this following format <user>:<secret>")
		}
		account[ba[0]] = ba[1]
	}

	// System statics (downloaded media)
	app.Static(coreconfig.Global.App.BasePath+"/statics", "./statics")

	// Create API group
	apiGroup := app.Group(coreconfig.Global.App.BasePath + "/api")

	// Apply BasicAuth ONLY to the API group
	apiGroup.Use(basicauth.New(basicauth.Config{
		Users: account,
		Next: func(c *fiber.Ctx) bool {
			// Allow CORS preflight without credentials.
			return c.Method() == fiber.MethodOptions
		},
	}))

	// The hub must be draining Broadcast before the transport can deliver
	// events, or the emitter hand-off blocks a pool worker.
	websocket.SetValkeyClient(vkClient, serverID)
	go websocket.RunHub()

	// Wire the pipeline behind the websocket emitter, then connect.
	ctx := context.Background()
	buildPipeline(ctx, coreconfig.Global, websocket.Emitter{})
	rest.SetPipelinePool(eventPool)

	if err := whatsappCli.Connect(); err != nil {
		logrus.Errorf("[APP] WhatsApp connect failed, pairing may be required: %v", err)
	}

	// Graceful shutdown handler
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logrus.Info("[REST] Reception of termination signal, shutting down gracefully...")
		if err := app.Shutdown(); err != nil {
			logrus.Errorf("[REST] Error during Fiber shutdown: %v", err)
		}

		// Stop all app subsystems (pool, clients, DBs)
		StopApp()
	}()

	// Register handlers
	rest.InitRestSend(apiGroup, sendUsecase)
	rest.InitRestCampaign(apiGroup, campaignUsecase)
	rest.InitRestMessage(apiGroup, messageRepo)
	rest.InitRestIntegration(apiGroup, integrationUsecase)
	apiGroup.Get("/pipeline/stats", rest.GetPipelineStats)
	apiGroup.Get("/settings", func(c *fiber.Ctx) error {
		return c.JSON(coreconfig.GetAllSettings())
	})
	// Persisted tuning knobs; they survive restarts and apply on the next boot.
	apiGroup.Post("/settings/campaign-delay", func(c *fiber.Ctx) error {
		var req struct {
			DelayMs int `json:"delay_ms"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		if err := globalConfig.SaveCampaignInterSendDelayMs(req.DelayMs); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"campaign_inter_send_delay_ms": globalConfig.CampaignInterSendDelayMs})
	})
	apiGroup.Post("/settings/loop-guard-interval", func(c *fiber.Ctx) error {
		var req struct {
			IntervalMs int `json:"interval_ms"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		if err := globalConfig.SaveLoopGuardClearIntervalMs(req.IntervalMs); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"loop_guard_clear_interval_ms": globalConfig.LoopGuardClearIntervalMs})
	})

	// Websocket
	websocket.RegisterRoutes(apiGroup, campaignUsecase)

	// 404 Handler ONLY for API group
	apiGroup.All("/*", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "API Endpoint not found",
			"path":  c.Path(),
		})
	})

	if err := app.Listen(":" + coreconfig.Global.App.Port); err != nil {
		logrus.Fatalln("Failed to start: ", err.Error())
	}
}

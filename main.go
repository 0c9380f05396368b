package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hysteriabot/m/v2/app/config"
	"hysteriabot/m/v2/app/db/mongo"
	"hysteriabot/m/v2/app/db/redis"
	"hysteriabot/m/v2/app/ledger"
	"hysteriabot/m/v2/app/models"
	"hysteriabot/m/v2/app/payments"
	"hysteriabot/m/v2/app/provisioning"
	"hysteriabot/m/v2/app/settings"
	"hysteriabot/m/v2/app/settlement"
	systemstatus "hysteriabot/m/v2/app/status"
	"hysteriabot/m/v2/app/telegram"
	"hysteriabot/m/v2/app/util"
	"hysteriabot/m/v2/app/workers"
	"hysteriabot/m/v2/app/workers/salesreport"
	"hysteriabot/m/v2/app/workers/status"

	"github.com/DataDog/datadog-go/v5/statsd"
	fasthttpprom "github.com/carousell/fasthttp-prometheus-middleware"
	"github.com/fasthttp/router"
	"github.com/joho/godotenv"
	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	done := make(chan struct{}, 1)
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warnf("failed to load .env: %v", err)
	}

	env := util.Env("ENV", "dev")
	dataDogClient, err := statsd.New(util.Env("DATADOG_AGENT_ADDRESS", "datadog-agent.default.svc.cluster.local:8125"), statsd.WithNamespace("hysteriabot."))
	if err != nil && env == "production" {
		log.Fatalf("error creating main DataDog client: %v", err)
	}
	var metrics statsd.ClientInterface = &statsd.NoOpClient{}
	if err == nil {
		metrics = dataDogClient
	}

	config.CONFIG = loadConfig(env, metrics)
	setupLogging(config.CONFIG)
	err = config.CONFIG.Validate()
	util.Assert(err == nil, "invalid configuration:", err)

	err = metrics.Count("main.start", 1, []string{"env:" + config.CONFIG.Environment}, 1)
	if err != nil {
		log.Errorf("error sending metric: %v", err)
	}

	redisClient := redis.NewClient(config.CONFIG.Redis)
	mongoClient := mongo.NewClient(config.CONFIG.MongoDBConnection, config.CONFIG.MongoDBName)

	appSettings := settings.New(mongoClient, models.DefaultCatalog, config.CONFIG.Payments.MerchantID, config.CONFIG.Payments.PaymentKey)
	purchaseLedger := ledger.New(mongoClient)
	hysteria := config.CONFIG.Hysteria
	gateway := provisioning.NewGateway(
		provisioning.NewCLIRunner(hysteria.Python, hysteria.CLIPath, hysteria.LockFile, hysteria.CommandTimeout),
		hysteria.BackupDirectory,
	)
	paymentClient := payments.NewClient(
		config.CONFIG.Payments.CryptomusBaseURL,
		config.CONFIG.Payments.ReturnURL,
		config.CONFIG.Payments.HTTPRequestTimeout,
		appSettings,
	)

	tg, err := telegram.NewTelegoBot(config.CONFIG)
	if err != nil {
		log.Fatalf("ERROR creating bot: %v", err)
	}
	notifier := telegram.NewNotifier(tg, redisClient, config.CONFIG.AdminUserIDs)

	tracker := settlement.NewTracker(settlement.Dependencies{
		Payments:    paymentClient,
		Provisioner: gateway,
		Ledger:      purchaseLedger,
		Plans:       appSettings,
		Deliverer:   notifier,
		Alerter:     notifier,
		Metrics:     metrics,
	}, settlement.Config{
		PollInterval:    config.CONFIG.Payments.PollInterval,
		MaxPollDuration: config.CONFIG.Payments.PollTimeout,
		MaxAttempts:     config.CONFIG.Payments.PollMaxAttempts,
	})

	bot := telegram.NewBot(tg, config.CONFIG, telegram.Dependencies{
		Gateway:  gateway,
		Ledger:   purchaseLedger,
		Settings: appSettings,
		Tracker:  tracker,
		Redis:    redisClient,
	})
	updates, err := tg.UpdatesViaLongPolling(nil)
	if err != nil {
		log.Fatalf("ERROR starting long polling: %v", err)
	}
	bot.Start(updates)

	// create status worker
	statusHandler := systemstatus.New(mongoClient, redisClient, gateway, tracker)
	statusWorker := status.New(
		workers.NewWorker("status", config.CONFIG.BotName, notifier, config.CONFIG.StatusWorkerInterval, true),
		statusHandler, redisClient, metrics,
	)
	go statusWorker.Start()

	// create sales report worker
	salesWorker := salesreport.New(
		workers.NewWorker("salesreport", config.CONFIG.BotName, notifier, config.CONFIG.SalesReportInterval, false),
		purchaseLedger, appSettings,
	)
	go salesWorker.Start()

	rtr := router.New()
	rtr.GET("/health", func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusOK)
		_, _ = ctx.WriteString("❤️ from hysteria bot")
	})
	rtr.GET("/status", func(ctx *fasthttp.RequestCtx) {
		report, err := statusWorker.Cached()
		if err != nil {
			ctx.Error(err.Error(), fasthttp.StatusServiceUnavailable)
			return
		}
		ctx.SetContentType("application/json")
		_, _ = ctx.WriteString(report)
	})
	rtr.POST(fmt.Sprintf("/cryptomus_%s", config.CONFIG.Payments.WebhookSuffix), payments.WebhookHandler(tracker))

	p := fasthttpprom.NewPrometheus("")
	p.Use(rtr)
	server := &fasthttp.Server{
		Handler: fasthttp.TimeoutHandler(p.Handler, time.Second*30, "Request timeout"),
		Name:    "hysteriabot",
	}
	go func() {
		err := server.ListenAndServe(config.CONFIG.BackendListenAddress)
		util.Assert(err == nil, "ListenAndServe:", err)
	}()

	go TearDown(sigs, done, tg, bot, tracker, server, mongoClient, statusWorker.Worker, salesWorker.Worker)

	successfulStartMessage := fmt.Sprintf("🤖 %s started successfully 🚀 inside %s", config.CONFIG.BotName, util.Env("POD_NAME", "unknown"))
	log.Info(successfulStartMessage)

	<-done
	log.Info("Done")
}

func loadConfig(env string, metrics statsd.ClientInterface) *config.Config {
	adminIDs, err := config.ParseAdminIDs(util.Env("ADMIN_USER_IDS"))
	util.Assert(err == nil, "ADMIN_USER_IDS:", err)

	return &config.Config{
		AdminUserIDs:         adminIDs,
		BackendListenAddress: util.Env("BACKEND_LISTEN_ADDRESS", ":8080"),
		DataDogClient:        metrics,
		Environment:          env,
		Hysteria: config.Hysteria{
			Python:          util.Env("HYSTERIA_PYTHON", "python3"),
			CLIPath:         util.Env("HYSTERIA_CLI_PATH", "/etc/hysteria/core/cli.py"),
			LockFile:        util.Env("HYSTERIA_CLI_LOCK", "/tmp/hysteria-cli.lock"),
			BackupDirectory: util.Env("BACKUP_DIRECTORY", "/opt/hysbackup"),
			CommandTimeout:  config.ParseDuration(util.Env("HYSTERIA_CLI_TIMEOUT", ""), 2*time.Minute),
		},
		LogFile:           util.Env("LOG_FILE", ""),
		MongoDBConnection: util.Env("MONGO_DB_CONNECTION_STRING"),
		MongoDBName:       util.Env("MONGO_DB_NAME", "hysteriabot"),
		Payments: config.Payments{
			CryptomusBaseURL:   util.Env("CRYPTOMUS_BASE_URL", payments.DefaultBaseURL),
			MerchantID:         util.Env("CRYPTOMUS_MERCHANT_ID", ""),
			PaymentKey:         util.Env("CRYPTOMUS_PAYMENT_KEY", ""),
			ReturnURL:          util.Env("CRYPTOMUS_RETURN_URL", ""),
			WebhookSuffix:      util.Env("CRYPTOMUS_WEBHOOK_SUFFIX", "callback"),
			PollInterval:       config.ParseDuration(util.Env("PAYMENT_POLL_INTERVAL", ""), 10*time.Second),
			PollTimeout:        config.ParseDuration(util.Env("PAYMENT_POLL_TIMEOUT", ""), time.Hour),
			PollMaxAttempts:    config.ParseInt(util.Env("PAYMENT_POLL_MAX_ATTEMPTS", ""), 360),
			HTTPRequestTimeout: 30 * time.Second,
		},
		Redis: config.Redis{
			Host:     util.Env("REDIS_HOST", "localhost"),
			Port:     "6379",
			Password: util.Env("REDIS_PASSWORD", ""),
		},
		SalesReportInterval:  config.ParseDuration(util.Env("SALES_REPORT_INTERVAL", ""), 24*time.Hour),
		StatusWorkerInterval: time.Minute,
		TelegramBotToken:     util.Env("TELEGRAM_BOT_TOKEN"),
	}
}

func setupLogging(cfg *config.Config) {
	if cfg.Environment == "production" {
		log.SetFormatter(&log.JSONFormatter{
			DisableTimestamp: true,
		})
	} else {
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp: true,
			DisableColors: false,
		})
		log.SetLevel(log.TraceLevel)
	}
	if cfg.LogFile != "" {
		log.SetOutput(io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    100,
			MaxBackups: 7,
			MaxAge:     30,
			Compress:   true,
		}))
	}
}

func TearDown(sigs chan os.Signal, done chan struct{}, tg *telego.Bot, bot *telegram.Bot, tracker *settlement.Tracker, server *fasthttp.Server, mongoClient *mongo.Client, statusWorker *workers.Worker, salesWorker *workers.Worker) {
	<-sigs
	exitMessage := fmt.Sprintf("🤖 %s bids farewell ❌ inside %s", config.CONFIG.BotName, util.Env("POD_NAME", "unknown"))
	log.Info(exitMessage)
	statusWorker.StopWorker()
	salesWorker.StopWorker()

	tg.StopLongPolling()
	bot.Stop()
	tracker.Stop()

	err := server.Shutdown()
	if err != nil {
		log.Errorf("TearDown: Shutdown for http server: %v", err)
	}
	err = mongoClient.Disconnect(context.Background())
	if err != nil {
		log.Errorf("TearDown: Disconnecting from MongoDB: %v", err)
	}
	done <- struct{}{}
}

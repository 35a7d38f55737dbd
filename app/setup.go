package app

import (
	"fmt"
	"log"

	"github.com/sahilchouksey/fee-management/api"
	"github.com/sahilchouksey/fee-management/config"
	"github.com/sahilchouksey/fee-management/database"
	"github.com/sahilchouksey/fee-management/router"
	"github.com/sahilchouksey/fee-management/services/cron"
	"github.com/sahilchouksey/fee-management/utils"
	"github.com/sahilchouksey/fee-management/utils/cache"
	"github.com/shopspring/decimal"
)

func SetupAndRunServer() error {

	// Load ENV
	if err := config.LoadENV(); err != nil {
		return err
	}

	getEnv, err := config.Get()
	if err != nil {
		return err
	}

	logCloser, err := utils.SetupLogging(getEnv.LOG_FILE, !getEnv.IsProduction())
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logCloser.Close()

	// Money goes over the wire as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	// Initialize GORM database connection
	store, err := database.StartGORM(getEnv)
	if err != nil {
		print("Check whether the Postgres is running or not\n")
		print("If not running, run the following command:\n")
		print("  make docker-up   (for Docker setup)\n")
		print("  make db-up       (for local PostgreSQL)\n")
		return err
	}

	if err := store.Init(); err != nil {
		print("Failed to initialize database tables\n")
		print("Error running migrations:\n")
		return err
	}

	if err := database.RunSeeds(store.DB(), database.SeedOptions{
		AdminEmail:    getEnv.ADMIN_EMAIL,
		AdminPassword: getEnv.ADMIN_PASSWORD,
	}); err != nil {
		log.Printf("Warning: Failed to seed database: %v", err)
	}

	// Reports run on a plain lib/pq connection; the API works without them
	reports, err := database.StartReportStore(getEnv)
	if err != nil {
		log.Printf("Warning: Failed to open reporting connection: %v. Reports are disabled.", err)
		reports = nil
	} else if err := reports.Init(); err != nil {
		log.Printf("Warning: Failed to create reporting views: %v. Reports are disabled.", err)
		reports.Close()
		reports = nil
	}

	var redisCache *cache.RedisCache
	if getEnv.REDIS_URL != "" {
		redisCache, err = cache.NewRedisCache(getEnv.REDIS_URL)
		if err != nil {
			log.Printf("Warning: Failed to connect to Redis: %v. Continuing without cache.", err)
			redisCache = nil
		}
	}

	svc := router.NewServices(store.DB(), getEnv, redisCache, reports)

	// Initialize Cron Manager (only if enabled via environment variable)
	var cronManager *cron.CronManager
	if getEnv.CRON_ENABLED {
		cronManager = cron.NewCronManager(store.DB(), cron.Dependencies{
			Notifications: svc.Notifications,
			Checkouts:     svc.Checkouts,
			Exports:       svc.Exports,
			Blacklist:     svc.Blacklist,
			Location:      getEnv.Location,
			ReminderDays:  getEnv.REMINDER_DAYS_AHEAD,
		})
		if err := cronManager.Start(); err != nil {
			// Don't fail the app, just log the warning
			log.Printf("Warning: Failed to start cron jobs: %v", err)
			cronManager = nil
		}
	}

	// Defer closing connections and stopping cron jobs
	defer func() {
		if cronManager != nil {
			cronManager.Stop()
		}
		if redisCache != nil {
			redisCache.Close()
		}
		if reports != nil {
			reports.Close()
		}
		store.Close()
	}()

	// Init API
	var server *api.APIServer = api.NewAPIServer(fmt.Sprintf(":%d", getEnv.PORT))
	app := server.GetEngine()

	// Setup Routes (security middleware is attached there)
	router.SetupRoutes(app, store, getEnv, svc)

	return server.Run()
}

package app

import (
	"fmt"
	"os"

	"github.com/supportdesk/topup-api/api"
	"github.com/supportdesk/topup-api/config"
	"github.com/supportdesk/topup-api/database"
	"github.com/supportdesk/topup-api/router"
	"github.com/supportdesk/topup-api/services/cron"
)

func SetupAndRunServer() error {

	// Load ENV
	if err := config.LoadENV(); err != nil {
		return err
	}

	cfg, err := config.Get()
	if err != nil {
		return err
	}

	// Initialize GORM database connection
	store, err := database.StartGORM(cfg)
	if err != nil {
		print("Check whether the Postgres is running or not\n")
		return err
	}

	if err := store.Init(); err != nil {
		print("Failed to initialize database tables\n")
		return err
	}

	// Background sweeps (offline flags, presence purge), unless disabled
	var cronManager *cron.CronManager
	if os.Getenv("CRON_ENABLED") != "false" { // Default to enabled
		cronManager = cron.NewCronManager(store.GetDB(), cfg)
		if err := cronManager.Start(); err != nil {
			print("Warning: Failed to start cron jobs\n")
			print("Error: ", err.Error(), "\n")
			// Don't fail the app, just log the warning
		}
	}

	// Defer closing DB and stopping cron jobs
	defer func() {
		if cronManager != nil {
			cronManager.Stop()
		}
		store.Close()
	}()

	// Init API
	var server *api.APIServer = api.NewAPIServer(fmt.Sprintf(":%d", cfg.PORT))
	app := server.GetEngine()

	// Setup Routes
	router.SetupRoutes(app, store, cfg)

	// Start the Server
	return server.Run()
}

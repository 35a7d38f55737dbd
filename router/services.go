package router

import (
	"log"
	"time"

	"github.com/sahilchouksey/fee-management/config"
	"github.com/sahilchouksey/fee-management/database"
	"github.com/sahilchouksey/fee-management/services"
	"github.com/sahilchouksey/fee-management/services/digitalocean"
	"github.com/sahilchouksey/fee-management/utils/auth"
	"github.com/sahilchouksey/fee-management/utils/cache"
	"gorm.io/gorm"
)

// Services holds everything the routes and scheduled jobs share
type Services struct {
	JWT           *auth.JWTManager
	Blacklist     *auth.BlacklistService
	Cache         *cache.RedisCache
	Auth          *services.AuthService
	Students      *services.StudentService
	FeePlans      *services.FeePlanService
	Assignments   *services.AssignmentService
	Payments      *services.PaymentService
	Checkouts     *services.CheckoutService
	Dashboard     *services.DashboardService
	Exports       *services.ExportService
	Notifications *services.NotificationService
}

// NewServices builds the service graph. redisCache and reports may be nil;
// the features that need them degrade instead of failing.
func NewServices(db *gorm.DB, env *config.EnviornmentVariable, redisCache *cache.RedisCache, reports *database.ReportStore) *Services {
	jwtManager := auth.NewJWTManager(auth.JWTConfig{
		Secret:        env.JWT_SECRET,
		Expiry:        24 * time.Hour,     // Access token expires in 24 hours
		RefreshExpiry: 7 * 24 * time.Hour, // Refresh token expires in 7 days
		Issuer:        env.JWT_ISSUER,
	})

	// nil pointers must not reach the interface parameters
	var jsonCache services.JSONCache
	var locker services.Locker
	if redisCache != nil {
		jsonCache = redisCache
		locker = redisCache
	}

	email := services.NewEmailService(env)
	if !email.IsConfigured() {
		log.Println("Warning: no email transport configured, fee emails will not be sent")
	}
	notifications := services.NewNotificationService(db, email, env.Location)
	dashboard := services.NewDashboardService(db, jsonCache, reports)
	events := services.MultiFeeEvents(notifications, dashboard)

	payments := services.NewPaymentService(db, locker, events)

	var gateway services.SnapGateway
	if env.MIDTRANS_SERVER_KEY != "" {
		gateway = services.NewSnapGateway(env.MIDTRANS_SERVER_KEY, env.MIDTRANS_ENVIRONMENT)
	} else {
		log.Println("Warning: MIDTRANS_SERVER_KEY is not set, online checkout is disabled")
	}

	var uploader services.ReportUploader
	if spacesConfig := digitalocean.ConfigFromEnv(env); spacesConfig.IsConfigured() {
		spaces, err := digitalocean.NewSpacesClient(spacesConfig)
		if err != nil {
			log.Printf("Warning: Failed to create Spaces client: %v. Report exports are disabled.", err)
		} else {
			uploader = spaces
		}
	}

	return &Services{
		JWT:           jwtManager,
		Blacklist:     auth.NewBlacklistService(db),
		Cache:         redisCache,
		Auth:          services.NewAuthService(db, jwtManager),
		Students:      services.NewStudentService(db),
		FeePlans:      services.NewFeePlanService(db),
		Assignments:   services.NewAssignmentService(db, events),
		Payments:      payments,
		Checkouts:     services.NewCheckoutService(db, gateway, env.MIDTRANS_SERVER_KEY, payments),
		Dashboard:     dashboard,
		Exports:       services.NewExportService(db, uploader, env.Location),
		Notifications: notifications,
	}
}

package router

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/fee-management/config"
	"github.com/sahilchouksey/fee-management/database"
	"github.com/sahilchouksey/fee-management/handlers"
	admin_handlers "github.com/sahilchouksey/fee-management/handlers/admin"
	assignment_handlers "github.com/sahilchouksey/fee-management/handlers/assignment"
	auth_handlers "github.com/sahilchouksey/fee-management/handlers/auth"
	feeplan_handlers "github.com/sahilchouksey/fee-management/handlers/feeplan"
	notification_handlers "github.com/sahilchouksey/fee-management/handlers/notification"
	payment_handlers "github.com/sahilchouksey/fee-management/handlers/payment"
	portal_handlers "github.com/sahilchouksey/fee-management/handlers/portal"
	student_handlers "github.com/sahilchouksey/fee-management/handlers/student"
	webhook_handlers "github.com/sahilchouksey/fee-management/handlers/webhook"
	"github.com/sahilchouksey/fee-management/model"
	"github.com/sahilchouksey/fee-management/utils"
	"github.com/sahilchouksey/fee-management/utils/middleware"
	"gorm.io/gorm"
)

func SetupRoutes(app *fiber.App, store database.Storage, env *config.EnviornmentVariable, svc *Services) {
	if env.JWT_SECRET == "" {
		log.Fatal("JWT_SECRET environment variable is not set")
	}

	// Get DB instance (type assert from interface)
	db, ok := store.GetDB().(*gorm.DB)
	if !ok {
		log.Fatal("Failed to get GORM DB instance")
	}

	now := handlers.ClockIn(env.Location)

	// Brute force protection needs Redis
	var bruteForceProtection *middleware.BruteForceProtection
	if svc.Cache != nil {
		bruteForceProtection = middleware.NewBruteForceProtection(svc.Cache)
	} else {
		log.Println("Warning: Redis is not available. Brute force protection is disabled.")
	}

	authMiddleware := middleware.NewAuthMiddleware(svc.JWT, db)

	authHandler := auth_handlers.NewAuthHandler(svc.Auth, bruteForceProtection)
	studentHandler := student_handlers.NewStudentHandler(svc.Students, svc.Assignments, svc.Payments, now)
	feePlanHandler := feeplan_handlers.NewFeePlanHandler(svc.FeePlans)
	assignmentHandler := assignment_handlers.NewAssignmentHandler(svc.Assignments, svc.Payments, now)
	paymentHandler := payment_handlers.NewPaymentHandler(svc.Payments, now, env.Location)
	portalHandler := portal_handlers.NewPortalHandler(svc.Assignments, svc.Payments, svc.Checkouts, now, env.Location)
	reportsHandler := admin_handlers.NewReportsHandler(svc.Dashboard, svc.Exports, now, env.Location)
	notificationHandler := notification_handlers.NewNotificationHandler(svc.Notifications)
	midtransHandler := webhook_handlers.NewMidtransHandler(svc.Checkouts, now)

	middleware.SetupSecurity(app, middleware.SecurityConfig{
		AllowedOrigins:    env.ALLOWED_ORIGINS,
		RateLimitRequests: env.RATE_LIMIT_REQUESTS,
		RateLimitWindow:   1 * time.Minute,
		TimeZone:          env.APP_TIMEZONE,
	})

	// Health check endpoint (public)
	app.Get("/ping", utils.MakeHTTPHandleFunc(handlers.HandleCheckHealth, store))

	api := app.Group("/api/v1")
	api.Get("/ping", utils.MakeHTTPHandleFunc(handlers.HandleCheckHealth, store))

	// Auth routes
	authGroup := api.Group("/auth")
	authGroup.Post("/register", authHandler.Register)
	if bruteForceProtection != nil {
		authGroup.Post("/login", bruteForceProtection.CheckAndRecordAttempt(), authHandler.Login)
	} else {
		authGroup.Post("/login", authHandler.Login)
	}
	authGroup.Post("/refresh", authHandler.RefreshToken)
	authGroup.Post("/logout", authMiddleware.Required(), authHandler.Logout)
	authGroup.Get("/profile", authMiddleware.Required(), authHandler.GetProfile)

	// Payment gateway callbacks are authenticated by signature
	api.Post("/webhooks/midtrans", midtransHandler.HandleNotification)

	// ==================== Fee administration ====================

	audit := func(action, resource string) fiber.Handler {
		return middleware.AdminAuditLog(db, action, resource)
	}

	students := api.Group("/students", authMiddleware.RequireAdmin())
	students.Get("/", studentHandler.ListStudents)
	students.Post("/", audit(model.AuditActionCreate, middleware.ResourceStudents), studentHandler.CreateStudent)
	students.Get("/:id", studentHandler.GetStudent)
	students.Put("/:id", audit(model.AuditActionUpdate, middleware.ResourceStudents), studentHandler.UpdateStudent)
	students.Delete("/:id", audit(model.AuditActionDelete, middleware.ResourceStudents), studentHandler.DeleteStudent)
	students.Get("/:id/courses", studentHandler.GetCourses)
	students.Get("/:id/summary", studentHandler.GetSummary)
	students.Get("/:id/payments", studentHandler.ListPayments)

	feePlans := api.Group("/fee-plans", authMiddleware.RequireAdmin())
	feePlans.Get("/", feePlanHandler.ListFeePlans)
	feePlans.Post("/", audit(model.AuditActionCreate, middleware.ResourceFeePlans), feePlanHandler.CreateFeePlan)
	feePlans.Post("/preview", feePlanHandler.PreviewTotal)
	feePlans.Get("/:id", feePlanHandler.GetFeePlan)
	feePlans.Put("/:id", audit(model.AuditActionUpdate, middleware.ResourceFeePlans), feePlanHandler.UpdateFeePlan)
	feePlans.Delete("/:id", audit(model.AuditActionDelete, middleware.ResourceFeePlans), feePlanHandler.DeleteFeePlan)

	assignments := api.Group("/assignments", authMiddleware.RequireAdmin())
	assignments.Get("/", assignmentHandler.ListAssignments)
	assignments.Post("/", audit(model.AuditActionCreate, middleware.ResourceStudentFees), assignmentHandler.CreateAssignment)
	assignments.Post("/validate", assignmentHandler.ValidateAssignment)
	assignments.Get("/:id", assignmentHandler.GetAssignment)
	assignments.Patch("/:id/due-date", audit(model.AuditActionUpdate, middleware.ResourceStudentFees), assignmentHandler.UpdateDueDate)
	assignments.Delete("/:id", audit(model.AuditActionDelete, middleware.ResourceStudentFees), assignmentHandler.DeleteAssignment)
	assignments.Get("/:id/payments", assignmentHandler.ListPayments)

	payments := api.Group("/payments", authMiddleware.RequireAdmin())
	payments.Get("/", paymentHandler.ListPayments)
	payments.Post("/", audit(model.AuditActionCreate, middleware.ResourcePayments), paymentHandler.CreatePayment)
	payments.Get("/:id", paymentHandler.GetPayment)

	// ==================== Admin panel ====================

	admin := api.Group("/admin", authMiddleware.RequireAdmin())
	admin.Get("/dashboard", reportsHandler.GetDashboard)
	admin.Get("/reports/collections", reportsHandler.GetCollections)
	admin.Get("/reports/methods", reportsHandler.GetMethodTotals)
	admin.Get("/reports/payments.csv", reportsHandler.DownloadPayments)
	admin.Post("/reports/payments/export", audit(model.AuditActionExport, middleware.ResourceReports), reportsHandler.ExportPayments)
	admin.Post("/reports/assignments/export", audit(model.AuditActionExport, middleware.ResourceReports), reportsHandler.ExportAssignments)

	admin.Get("/audit-logs", utils.MakeHTTPHandleFunc(admin_handlers.ListAuditLogs, store))
	admin.Get("/audit-logs/:id", utils.MakeHTTPHandleFunc(admin_handlers.GetAuditLog, store))

	admin.Get("/users/stats", utils.MakeHTTPHandleFunc(admin_handlers.GetUserStats, store))
	admin.Get("/users", utils.MakeHTTPHandleFunc(admin_handlers.ListUsers, store))
	admin.Get("/users/:id", utils.MakeHTTPHandleFunc(admin_handlers.GetUser, store))
	admin.Put("/users/:id", audit(model.AuditActionUpdate, middleware.ResourceUsers), utils.MakeHTTPHandleFunc(admin_handlers.UpdateUser, store))
	admin.Delete("/users/:id", audit(model.AuditActionDelete, middleware.ResourceUsers), utils.MakeHTTPHandleFunc(admin_handlers.DeleteUser, store))
	admin.Post("/users/:id/reset-password", audit(model.AuditActionUpdate, middleware.ResourceUsers), utils.MakeHTTPHandleFunc(admin_handlers.ResetUserPassword, store))

	// ==================== Student portal ====================

	me := api.Group("/me", authMiddleware.RequireStudent())
	me.Get("/fees", portalHandler.GetFees)
	me.Get("/fees/:id", portalHandler.GetFee)
	me.Post("/fees/:id/pay", portalHandler.Pay)
	me.Post("/fees/:id/checkout", portalHandler.StartCheckout)
	me.Get("/checkouts/:orderId", portalHandler.GetCheckout)
	me.Get("/payments", portalHandler.GetPayments)

	// Notifications (any signed-in user)
	notifications := api.Group("/notifications", authMiddleware.Required())
	notifications.Get("/", notificationHandler.GetNotifications)
	notifications.Get("/unread-count", notificationHandler.GetUnreadCount)
	notifications.Patch("/read-all", notificationHandler.MarkAllAsRead)
	notifications.Patch("/:id/read", notificationHandler.MarkAsRead)
	notifications.Delete("/", notificationHandler.DeleteAllNotifications)
	notifications.Delete("/:id", notificationHandler.DeleteNotification)
}

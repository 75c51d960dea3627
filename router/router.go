package router

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/table-reservation/config"
	"github.com/yeremiapane/table-reservation/controllers"
	"github.com/yeremiapane/table-reservation/kds"
	"github.com/yeremiapane/table-reservation/middlewares"
	"github.com/yeremiapane/table-reservation/services"
)

// App adalah semua dependency yang dibutuhkan router.
type App struct {
	Registry *services.Registry
	Booking  *services.BookingService
	Hub      *kds.Hub
	Config   config.Config
	Redis    *redis.Client // boleh nil
	Log      logrus.FieldLogger
}

func SetupRouter(app App) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(app.Config.AllowedOrigins))
	if app.Log != nil {
		r.Use(middlewares.LoggerMiddleware(app.Log))
	}
	r.Use(middlewares.RateLimit(app.Config.RateLimit, app.Redis))

	tableCtrl := controllers.NewTableController(app.Registry)
	groupCtrl := controllers.NewTableGroupController(app.Registry)
	reservationCtrl := controllers.NewReservationController(app.Booking)
	availabilityCtrl := controllers.NewAvailabilityController(app.Booking.Resolver)

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})
	r.GET("/availability", availabilityCtrl.ListAvailable)
	r.GET("/availability/check", availabilityCtrl.CheckTarget)
	r.GET("/tables", tableCtrl.GetAllTables)
	r.GET("/tables/:table_id", tableCtrl.GetTableByID)
	r.GET("/table-groups", groupCtrl.GetAllGroups)
	r.GET("/table-groups/:group_id", groupCtrl.GetGroupByID)

	// Console staff (token lewat query string)
	if app.Hub != nil {
		r.GET("/ws", middlewares.WebSocketAuthMiddleware(), controllers.KDSHandler(app.Hub))
	}

	// ----------------------------------------------------------------
	//                      AUTHENTICATED ROUTES
	// ----------------------------------------------------------------
	auth := r.Group("/")
	auth.Use(middlewares.AuthMiddleware())
	{
		auth.POST("/reservations", reservationCtrl.CreateReservation)
		auth.GET("/reservations", reservationCtrl.GetAllReservations)
		auth.GET("/reservations/:reservation_id", reservationCtrl.GetReservationByID)
		auth.GET("/reservations/:reservation_id/history", reservationCtrl.GetReservationHistory)
		auth.POST("/reservations/:reservation_id/cancel", reservationCtrl.CancelReservation)
	}

	// ----------------------------------------------------------------
	//                      STAFF / ADMIN ROUTES
	// ----------------------------------------------------------------
	staff := auth.Group("/")
	staff.Use(middlewares.RequireRole("staff"))
	{
		staff.POST("/reservations/:reservation_id/confirm", reservationCtrl.ConfirmReservation)
		staff.POST("/reservations/:reservation_id/no-show", reservationCtrl.MarkNoShow)
		staff.PATCH("/reservations/:reservation_id", reservationCtrl.RescheduleReservation)
		staff.DELETE("/reservations/:reservation_id", reservationCtrl.ArchiveReservation)

		// TABLE
		staff.POST("/tables", tableCtrl.CreateTable)
		staff.PATCH("/tables/:table_id", tableCtrl.UpdateTable)
		staff.PATCH("/tables/:table_id/status", tableCtrl.UpdateTableStatus)
		staff.DELETE("/tables/:table_id", tableCtrl.DeleteTable)

		// TABLE GROUP
		staff.POST("/table-groups", groupCtrl.CreateGroup)
		staff.PATCH("/table-groups/:group_id", groupCtrl.UpdateGroup)
		staff.PATCH("/table-groups/:group_id/status", groupCtrl.UpdateGroupStatus)
		staff.DELETE("/table-groups/:group_id", groupCtrl.DissolveGroup)
	}

	return r
}

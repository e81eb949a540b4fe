package api

import (
	"net/http"

	"github.com/annel0/mmo-game/internal/auth"
	"github.com/annel0/mmo-game/internal/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// JoinGateway is a thin pre-auth front door for CLIENT_JOIN: it issues a
// JWT over REST so a client can prove identity before ever opening a
// datagram session, while staying off the simulation's hot path (mirrors
// RestServer's middleware stack in rest_server.go without its
// entity-manager coupling, which the voxel sandbox has no use for).
type JoinGateway struct {
	router   *gin.Engine
	userRepo auth.UserRepository
	port     string
}

// LoginRequest is the REST login payload.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the issued token and the account's PlayerID. The
// datagram CLIENT_JOIN packet has no token field and the server checks no
// token; a client passes PlayerID as CLIENT_JOIN's UserID.
type LoginResponse struct {
	Token    string `json:"token"`
	PlayerID uint64 `json:"player_id"`
}

// NewJoinGateway builds the gateway around a user repository; port
// defaults to ":8088" when empty.
func NewJoinGateway(userRepo auth.UserRepository, port string) *JoinGateway {
	if port == "" {
		port = ":8088"
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(middleware.NewRequestLogger().Handler())
	router.Use(otelgin.Middleware("join_gateway"))

	promMw := middleware.NewPrometheusMiddleware("join_gateway")
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router)

	g := &JoinGateway{router: router, userRepo: userRepo, port: port}
	g.setupRoutes()
	return g
}

func (g *JoinGateway) setupRoutes() {
	g.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	g.router.POST("/api/auth/login", func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		user, err := g.userRepo.ValidateCredentials(req.Username, req.Password)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}

		token, err := auth.GenerateJWT(user)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
			return
		}

		c.JSON(http.StatusOK, LoginResponse{Token: token, PlayerID: user.ID})
	})
}

// Run starts the REST listener; it blocks, so callers run it in its own
// goroutine.
func (g *JoinGateway) Run() error {
	return g.router.Run(g.port)
}

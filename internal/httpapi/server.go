package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/parking/internal/auth"
	"github.com/MarkoPoloResearchLab/parking/pkg/parking"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	contextKeyClientID = "client_id"
	contextKeyToken    = "bearer_token"

	authorizationHeader = "Authorization"
	authorizationBearer = "Bearer"
)

// Run boots the HTTP API using the supplied configuration.
func Run(ctx context.Context, cfg Config, service *parking.Service, credentials *auth.Credentials) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("zap init: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	handler := &httpHandler{
		logger:      logger,
		service:     service,
		credentials: credentials,
	}
	router := setupRouter(cfg, handler)

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("parking api listening", zap.String("addr", cfg.ListenAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn("server shutdown error", zap.Error(shutdownErr))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func setupRouter(cfg Config, handler *httpHandler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Origin", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authGroup := router.Group("/auth")
	authGroup.POST("/register", handler.handleRegister)
	authGroup.POST("/login", handler.handleLogin)
	authGroup.POST("/refresh", handler.handleRefresh)
	authGroup.POST("/logout", handler.authenticate(), handler.handleLogout)
	authGroup.GET("/me", handler.authenticate(), handler.handleMe)

	protected := router.Group("/")
	protected.Use(handler.authenticate())

	protected.GET("/contrats/", handler.handleListContracts)
	protected.POST("/contrats/", handler.handleCreateContract)
	protected.DELETE("/contrats/:id", handler.handleTerminateContract)

	protected.GET("/paiement/", handler.handleListPayments)
	protected.POST("/paiement/", handler.handlePay)

	protected.GET("/vehicules/", handler.handleListVehicles)
	protected.POST("/vehicules/", handler.handleAddVehicle)
	protected.DELETE("/vehicules/:id", handler.handleRemoveVehicle)

	protected.GET("/parkings/", handler.handleListLots)
	protected.GET("/places/", handler.handleListSpots)

	protected.GET("/verifie/", handler.handleFindScan)
	protected.POST("/verifie/", handler.handleRecordScan)
	protected.GET("/verifie/contrat/:id", handler.handleScanHistory)

	protected.POST("/penalites/", handler.handleAddPenalty)
	protected.GET("/penalites/contrat/:id", handler.handleListPenalties)

	return router
}

type httpHandler struct {
	logger      *zap.Logger
	service     *parking.Service
	credentials *auth.Credentials
}

// authenticate guards a route with a bearer access token and stashes
// the caller's client id in the gin context.
func (handler *httpHandler) authenticate() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token := bearerToken(ctx)
		if token == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		clientID, err := handler.credentials.Validate(ctx.Request.Context(), token, false)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token is malformed or expired"})
			return
		}
		ctx.Set(contextKeyClientID, clientID)
		ctx.Set(contextKeyToken, token)
		ctx.Next()
	}
}

func bearerToken(ctx *gin.Context) string {
	header := ctx.GetHeader(authorizationHeader)
	if header == "" {
		return ""
	}
	fields := strings.Fields(header)
	if len(fields) != 2 || !strings.EqualFold(fields[0], authorizationBearer) {
		return ""
	}
	return fields[1]
}

func callerID(ctx *gin.Context) (parking.ClientID, bool) {
	value, ok := ctx.Get(contextKeyClientID)
	if !ok {
		return parking.ClientID{}, false
	}
	clientID, ok := value.(parking.ClientID)
	return clientID, ok
}

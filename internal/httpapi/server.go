package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"fraction-presale-go/internal/api"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// NewRouter builds the read-only HTTP surface
func NewRouter(service *api.PresaleService) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	SetupRoutes(r, NewHandler(service))
	return r
}

// Serve runs the HTTP server until ctx is cancelled
func Serve(ctx context.Context, addr string, service *api.PresaleService) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(service),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("HTTP server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	zap.L().Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	return nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		zap.L().Debug("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

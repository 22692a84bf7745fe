package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"eytstore/internal/config"
	"eytstore/internal/handler"
	"eytstore/internal/repository"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
)

// New はミドルウェアとルートを登録したechoを返す
func New(cfg config.Config, userRepo repository.UserRepository, h Handlers) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Logger.SetPrefix("eytstore")
	if cfg.IsProd() {
		e.Logger.SetLevel(log.INFO)
	} else {
		e.Logger.SetLevel(log.DEBUG)
	}

	e.Use(echomw.RequestID())
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	origins := []string{"*"}
	if cfg.FEURL != "" {
		origins = []string{cfg.FEURL}
	}
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  origins,
		AllowHeaders:  []string{echo.HeaderAuthorization, echo.HeaderContentType, handler.CartSessionHeader, handler.IdempotencyKeyHeader},
		ExposeHeaders: []string{handler.CartSessionHeader},
	}))

	RegisterRoutes(e, cfg, userRepo, h)
	return e
}

// Start はctxがキャンセルされるまで待ち、その後グレースフルに止める
func Start(ctx context.Context, e *echo.Echo, port string) error {
	addr := port
	if !strings.HasPrefix(addr, ":") {
		addr = ":" + addr
	}

	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// Package web is the HTTP front of the server: the bancho POST
// endpoint the osu! client talks to, a small status API for the
// website, and the prometheus scrape endpoint.
package web

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/rosupd/bancho/internal/bancho"
	"github.com/rosupd/bancho/internal/config"
	"github.com/rosupd/bancho/internal/metrics"
)

// maxBodySize bounds a bancho POST body. Spectator frames are the
// largest legitimate payloads and stay well under this.
const maxBodySize = 10 << 20

// Server is the HTTP front.
type Server struct {
	cfg     config.Config
	log     zerolog.Logger
	hub     *bancho.Hub
	metrics *metrics.Metrics
	echo    *echo.Echo

	limitMu sync.Mutex
	limits  map[string]*rate.Limiter
}

// New builds the HTTP server and its routes.
func New(cfg config.Config, log zerolog.Logger, hub *bancho.Hub, m *metrics.Metrics, registry *prometheus.Registry) *Server {
	s := &Server{
		cfg:     cfg,
		log:     log.With().Str("component", "web").Logger(),
		hub:     hub,
		metrics: m,
		limits:  make(map[string]*rate.Limiter),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("10M"))

	e.POST("/", s.handleBancho)
	e.GET("/", s.handleIndex)
	e.GET("/api/v1/onlineUsers", s.handleOnlineUsers)
	e.GET("/api/v1/serverStatus", s.handleServerStatus)
	e.GET("/api/v1/isOnline", s.handleIsOnline)
	e.GET("/api/status/:id", s.handleUserStatus)
	e.GET("/api/v2/status/:id", s.handleUserStatusV2)
	e.GET("/infos", s.handleInfos)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	s.echo = e
	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.echo.Start(s.cfg.BindAddr())
	}()
	s.log.Info().Str("addr", s.cfg.BindAddr()).Msg("http server listening")

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.echo.Shutdown(shutdownCtx)
	}
}

// clientIP extracts the real client address, honoring the proxy setup.
func (s *Server) clientIP(c echo.Context) string {
	if s.cfg.HTTPUsingCloudflare {
		if ip := c.Request().Header.Get("CF-Connecting-IP"); ip != "" {
			return ip
		}
	}
	if ip := c.Request().Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(c.Request().RemoteAddr)
	if err != nil {
		return c.Request().RemoteAddr
	}
	return host
}

// loginLimiter returns the per-IP login rate limiter.
func (s *Server) loginLimiter(ip string) *rate.Limiter {
	s.limitMu.Lock()
	defer s.limitMu.Unlock()
	l, ok := s.limits[ip]
	if !ok {
		// One login per second sustained, small burst for retries.
		l = rate.NewLimiter(rate.Limit(1), 3)
		s.limits[ip] = l
	}
	return l
}

// handleBancho is the endpoint the osu! client polls. A request
// without an osu-token header is a login; everything else is a framed
// packet batch for an existing session.
func (s *Server) handleBancho(c echo.Context) error {
	started := time.Now()
	defer func() {
		s.metrics.RequestTiming.Observe(time.Since(started).Seconds())
	}()

	if c.Request().Header.Get("User-Agent") != "osu!" {
		return c.String(http.StatusForbidden, "no")
	}
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBodySize))
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}

	ctx := c.Request().Context()
	token := c.Request().Header.Get("osu-token")
	if token == "" {
		ip := s.clientIP(c)
		if !s.loginLimiter(ip).Allow() {
			s.log.Warn().Str("ip", ip).Msg("login rate limited")
			return c.NoContent(http.StatusTooManyRequests)
		}
		newToken, resp := s.hub.Login(ctx, body, ip)
		if newToken == "" {
			// Error replies still need a token header or the client
			// retries the same login in a tight loop.
			c.Response().Header().Set("cho-token", "no")
		} else {
			c.Response().Header().Set("cho-token", newToken)
		}
		c.Response().Header().Set("cho-protocol", "19")
		return c.Blob(http.StatusOK, "application/octet-stream", resp)
	}

	resp, _ := s.hub.HandleRequest(ctx, token, body)
	return c.Blob(http.StatusOK, "application/octet-stream", resp)
}

// handleIndex greets browsers that hit the bancho address directly and
// sends them on to the website.
func (s *Server) handleIndex(c echo.Context) error {
	site := "https://" + s.cfg.Domain
	return c.HTML(http.StatusOK, fmt.Sprintf(
		`<html><head><meta http-equiv="refresh" content="3; url=%s"></head>`+
			`<body><pre>%s bancho server is running.
online users: %d
uptime: %s

redirecting you to <a href="%s">%s</a>...</pre></body></html>`,
		site, s.cfg.ServerName, s.hub.Sessions.Count(), s.hub.Uptime().Round(time.Second), site, site))
}

func (s *Server) handleOnlineUsers(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": 200,
		"result": s.hub.Sessions.Count(),
	})
}

func (s *Server) handleServerStatus(c echo.Context) error {
	result := 1
	if s.hub.RestartPending() {
		result = -1
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status": 200,
		"result": result,
	})
}

func (s *Server) handleIsOnline(c echo.Context) error {
	username := c.QueryParam("u")
	online := username != "" && s.hub.Sessions.GetByUsername(username) != nil
	return c.JSON(http.StatusOK, map[string]any{
		"status": 200,
		"result": online,
	})
}

func (s *Server) handleUserStatus(c echo.Context) error {
	userID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"status": 400})
	}
	result := 0
	if s.hub.Sessions.GetByUserID(int32(userID)) != nil {
		result = 1
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status": 200,
		"result": result,
	})
}

func (s *Server) handleUserStatusV2(c echo.Context) error {
	userID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"status": 400})
	}
	t := s.hub.Sessions.GetByUserID(int32(userID))
	if t == nil {
		return c.JSON(http.StatusOK, map[string]any{
			"status": 200,
			"online": false,
		})
	}
	action := t.Action()
	return c.JSON(http.StatusOK, map[string]any{
		"status":      200,
		"online":      true,
		"username":    t.Username,
		"action_id":   action.ID,
		"action_text": action.Text,
		"game_mode":   action.GameMode,
	})
}

func (s *Server) handleInfos(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"serverName":    s.cfg.ServerName,
		"onlineUsers":   s.hub.Sessions.Count(),
		"uptimeSeconds": int(s.hub.Uptime().Seconds()),
		"restarting":    s.hub.RestartPending(),
	})
}

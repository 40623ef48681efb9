package main

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"syscall"

	"github.com/anime-alley/storefront/internal/app"
	"github.com/anime-alley/storefront/internal/config"
	"github.com/anime-alley/storefront/internal/logger"

	"github.com/gin-gonic/gin"
)

const (
	ansiReset     = "\033[0m"
	ansiBold      = "\033[1m"
	ansiDim       = "\033[2m"
	ansiGreen     = "\033[32m"
	ansiCyan      = "\033[36m"
	ansiBrightMag = "\033[95m"
)

func main() {
	printStartupBanner()

	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	if cfg.Server.Mode == "release" {
		if isInsecureGateway(cfg.Gateway.BaseURL) {
			stdLog.Fatalf("gateway.base_url must use https in release mode")
		}
		gin.SetMode(gin.ReleaseMode)
	} else if isInsecureGateway(cfg.Gateway.BaseURL) {
		stdLog.Printf("warning: gateway.base_url is not https, bearer tokens travel in clear text")
	}

	if err := app.Run(app.Options{
		Config:  cfg,
		Logger:  logger.S(),
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
	}); err != nil {
		stdLog.Fatalf("storefront exited: %v", err)
	}
}

func printStartupBanner() {
	fmt.Println(ansiBrightMag + "╔══════════════════════════════════════════════╗" + ansiReset)
	fmt.Println(ansiBrightMag + "║          Anime Alley storefront client       ║" + ansiReset)
	fmt.Println(ansiBrightMag + "╚══════════════════════════════════════════════╝" + ansiReset)
	fmt.Println(ansiCyan + ansiBold + "cart · checkout · session" + ansiReset)
	fmt.Println(ansiGreen + "local API: /api/v1   metrics: /metrics   health: /healthz" + ansiReset)
	fmt.Println(ansiDim + "------------------------------------------------" + ansiReset)
}

func isInsecureGateway(raw string) bool {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return true
	}
	if strings.EqualFold(parsed.Scheme, "https") {
		return false
	}
	host := parsed.Hostname()
	return host != "127.0.0.1" && host != "localhost" && host != "::1"
}

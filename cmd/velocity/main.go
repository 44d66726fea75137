package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/velocitygame/velocity-server/internal/app"
	"github.com/velocitygame/velocity-server/internal/logger"
)

var version = "dev"

// envOr returns the environment value for key, or def when unset
func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func main() {
	// .env is optional; real deployments set the environment directly
	godotenv.Load()

	port := flag.Int("port", envIntOr("PORT", 3000), "HTTP server port")
	dbPath := flag.String("db", envOr("DB_PATH", "velocity.db"), "SQLite database path")
	logLevel := flag.String("loglevel", envOr("LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
	baseURL := flag.String("baseurl", envOr("BASE_URL", ""), "Public base URL used in join QR codes")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("velocity-server %s\n", version)
		return
	}

	appLog := logger.NewWithLevel(logger.ParseLevel(*logLevel))

	addr := fmt.Sprintf(":%d", *port)
	if *baseURL == "" {
		*baseURL = fmt.Sprintf("http://localhost%s", addr)
	}

	a, err := app.New(appLog, app.Config{
		DBPath:  *dbPath,
		BaseURL: *baseURL,
	})
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}
	defer a.Close()

	if err := a.Run(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

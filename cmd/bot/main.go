package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/marcosgomes068/espeto-bot/internal/api"
	"github.com/marcosgomes068/espeto-bot/internal/chat"
	"github.com/marcosgomes068/espeto-bot/internal/events"
	"github.com/marcosgomes068/espeto-bot/internal/gateway"
	"github.com/marcosgomes068/espeto-bot/internal/orders"
	"github.com/marcosgomes068/espeto-bot/internal/store"
	"github.com/marcosgomes068/espeto-bot/internal/sweeper"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	port := getEnv("PORT", "3000")
	menuURL := getEnv("CARDAPIO_URL", "https://marcosgomes068.github.io/cardapioconcept/")
	contact := getEnv("CONTATO", "+55 68 9208-8865")
	maxActive := getEnvInt("MAX_PEDIDOS_POR_NUMERO", orders.DefaultMaxActive, logger)
	orderTimeout := getEnvDuration("PEDIDO_TIMEOUT", sweeper.DefaultTimeout, logger)
	sweepInterval := getEnvDuration("SWEEP_INTERVAL", sweeper.DefaultInterval, logger)
	kafkaBrokers := getEnv("KAFKA_BROKERS", "")
	dashboardFile := getEnv("DASHBOARD_FILE", "web/dashboard.html")

	orderStore := store.NewMemoryStore()
	engine := orders.NewEngine(orderStore, maxActive, logger)
	messages := chat.Messages{MenuURL: menuURL, Contact: contact}

	var producer *events.Producer
	if kafkaBrokers != "" {
		var err error
		producer, err = events.NewProducer(kafkaBrokers, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create Kafka producer")
		}
		defer producer.Close()
		logger.WithField("brokers", kafkaBrokers).Info("Kafka event publishing enabled")
	} else {
		logger.Info("KAFKA_BROKERS not set - event publishing disabled")
	}

	hub := gateway.NewHub(logger)
	go hub.Run()

	interpreter := chat.NewInterpreter(engine, hub, messages, producer, logger)
	hub.SetHandler(interpreter)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sw := sweeper.New(engine, hub, messages, producer, orderTimeout, sweepInterval, logger)
	go sw.Run(ctx)

	handler := api.NewHandler(engine, orderStore, hub, messages, producer, dashboardFile, logger)

	router := mux.NewRouter()
	handler.Register(router)
	router.HandleFunc("/ws/chat", hub.HandleWebSocket)
	router.Use(api.CORSMiddleware())
	router.Use(api.LoggingMiddleware(logger))

	srv := &http.Server{
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ln := listenWithFallback(port, logger)
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server gracefully stopped")
}

// listenWithFallback binds the configured port, falling back to port+1
// when the address is already taken.
func listenWithFallback(port string, logger *logrus.Logger) net.Listener {
	ln, err := net.Listen("tcp", ":"+port)
	if err == nil {
		logger.WithField("port", port).Info("Server listening")
		return ln
	}

	next := nextPort(port)
	logger.WithError(err).WithFields(logrus.Fields{
		"port":     port,
		"fallback": next,
	}).Warn("Port unavailable, trying fallback")

	ln, err = net.Listen("tcp", ":"+next)
	if err != nil {
		logger.WithError(err).Fatal("Failed to bind fallback port")
	}
	logger.WithField("port", next).Info("Server listening")
	return ln
}

func nextPort(port string) string {
	n, err := strconv.Atoi(port)
	if err != nil {
		return port
	}
	return strconv.Itoa(n + 1)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int, logger *logrus.Logger) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		logger.WithField("key", key).WithError(err).Warn("Invalid integer in environment, using default")
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration, logger *logrus.Logger) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		logger.WithField("key", key).WithError(err).Warn("Invalid duration in environment, using default")
		return defaultValue
	}
	return d
}

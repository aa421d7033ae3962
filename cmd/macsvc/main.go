package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	log "github.com/sirupsen/logrus"

	configs "github.com/morshedkoli/macapp/configs"
	"github.com/morshedkoli/macapp/internal/macsvc/broker"
	"github.com/morshedkoli/macapp/internal/macsvc/config"
	"github.com/morshedkoli/macapp/internal/macsvc/db"
	"github.com/morshedkoli/macapp/internal/macsvc/gate"
	"github.com/morshedkoli/macapp/internal/macsvc/handlers"
	"github.com/morshedkoli/macapp/internal/macsvc/service"
	"github.com/morshedkoli/macapp/internal/macsvc/store"
	"github.com/morshedkoli/macapp/internal/macsvc/ws"
	nats "github.com/morshedkoli/macapp/internal/nats"
)

const SERVICE_NAME = "mac"

var (
	cfg        config.Config
	instanceId string
)

func init() {
	configs.LoadEnv(SERVICE_NAME)

	var err error
	cfg, err = config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	instanceId = configs.CreateUniqueInstance(SERVICE_NAME)
	configs.Logging(SERVICE_NAME+"_service_"+instanceId, cfg.LogToFile, cfg.LogLevel)
}

// openStore returns the record store for the configured driver and a func
// releasing its connection. Neither backend is dialled until first use.
func openStore() (store.RecordStore, func()) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pg := db.NewPostgres(cfg.PostgresURL, store.EnsurePostgresSchema)
		return store.NewPostgresRecordStore(pg), pg.Close
	default:
		m := db.NewMongo(cfg.MongoURI, cfg.MongoDatabase, store.EnsureMongoIndexes)
		return store.NewMongoRecordStore(m), m.Close
	}
}

func main() {
	recordStore, closeStore := openStore()
	defer closeStore()
	log.Infof("%s store configured", cfg.StoreDriver)

	// Connect to NATS
	n, err := nats.Connect(cfg.NatsURL, cfg.NatsToken, SERVICE_NAME+"-"+instanceId)
	if err != nil {
		log.Fatalf("Error: unable to connect to NATS server %v", err)
	}

	hub := ws.NewHub()
	b := broker.NewBroker(nil, hub)
	if n != nil {
		defer n.Conn.Close()
		log.Printf("NATS connection established successfully %s", n.Url)
		b = broker.NewBroker(n.Conn, hub)
	} else {
		log.Info("NATS_URL not set, record events stay on this instance")
	}

	sub, err := b.Subscribe()
	if err != nil {
		log.Fatalf("Error: unable to subscribe to %s %v", b.Subject, err)
	}

	recordService := service.NewRecordService(recordStore, b, instanceId)

	g := gate.New(gate.Options{
		StandardPin:  cfg.LockPin,
		HardcorePin:  cfg.HardcorePin,
		SigningKey:   cfg.SigningKey(),
		SecureCookie: cfg.CookieSecure,
	})

	// Setup router
	r := chi.NewRouter()
	c := configs.CORS(cfg.CORSOrigins)

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(configs.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(c.Handler)

	// Init handlers and routes
	h := handlers.NewHandler(recordService, g, hub, cfg.StoreDriver, cfg.CORSOrigins)
	h.SetRoutes(r)

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: 60 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	log.Infof("%s service running at port %s", SERVICE_NAME, server.Addr)

	// Wait for interrupt signal to gracefully shutdown the server
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	if sub != nil {
		sub.Unsubscribe()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Errorf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}

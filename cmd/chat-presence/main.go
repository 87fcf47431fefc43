package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"chat-presence/chat"
	"chat-presence/config"
	"chat-presence/globals"
	"chat-presence/observability"
	"chat-presence/persistence"
	"chat-presence/ws"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/spf13/pflag"
)

var (
	configPath = pflag.StringP("config", "c", "", "path to config file or directory")
	addr       = pflag.String("addr", "", "listen address (overrides the configured port)")

	upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	hub        *ws.Hub
	persister  persistence.Persister
	registry   *chat.RoomRegistry
	presenceS  *chat.PresenceService
	moderation *chat.ModerationService
	messages   *chat.MessageService
	sessionCfg chat.SessionConfig
)

func main() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)

	go func() {
		<-c
		log.Fatal("interrupted!")
	}()

	flagSet := config.GetFlagSet()
	pflag.CommandLine.AddFlagSet(flagSet)
	pflag.Parse()
	log.SetFlags(0)

	globalConfig, err := config.ReadConfiguration(*configPath, flagSet)
	if err != nil {
		panic(err)
	}

	globals.AppLogger.SetLevel(hclog.LevelFromString(globalConfig.LogLevel))

	persister, err = persistence.NewPersister(globalConfig)
	if err != nil {
		panic(err)
	}
	defer persister.Close()

	observability.Register()

	registry = chat.NewRoomRegistry(globalConfig.Rooms)
	hub = ws.NewHub()
	go hub.Run()

	presenceS = chat.NewPresenceService(persister, hub)
	moderation = chat.NewModerationService(persister, hub, presenceS)
	messages = chat.NewMessageService(persister, hub, presenceS)
	sessionCfg = chat.SessionConfig{
		HistorySize:  globalConfig.HistorySize(),
		TypingExpiry: time.Duration(globalConfig.TypingExpiryMs()) * time.Millisecond,
	}

	if globalConfig.RetentionConfig.MaxAgeDays > 0 {
		cronSpec := globalConfig.RetentionConfig.CronSpec
		if cronSpec == "" {
			cronSpec = "@hourly"
		}
		maxAge := time.Duration(globalConfig.RetentionConfig.MaxAgeDays) * 24 * time.Hour
		cronRunner := cron.New(cron.WithLocation(time.UTC), cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
		_, err := cronRunner.AddFunc(cronSpec, func() {
			pruned, err := persister.PruneMessages(time.Now().Add(-maxAge))
			if err != nil {
				globals.AppLogger.Error("could not prune messages", "error", err)
				return
			}
			if pruned > 0 {
				globals.AppLogger.Info("pruned messages", "count", pruned)
			}
		})
		if err != nil {
			panic(err)
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	setupRoutes()
	listenAddr := *addr
	if listenAddr == "" {
		listenAddr = fmt.Sprintf(":%d", globalConfig.Port)
	}
	globals.AppLogger.Info("listening", "addr", listenAddr, "rooms", registry.Rooms())
	err = http.ListenAndServe(listenAddr, nil)
	globals.AppLogger.Error("stopped listening", "error", err)
}

func setupRoutes() {
	router := mux.NewRouter()
	router.HandleFunc("/ws", websocketHandler).Methods(http.MethodGet)
	router.HandleFunc("/healthz", healthHandler).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	http.Handle("/", router)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Handle incoming websockets
func websocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		globals.AppLogger.Error("websocket upgrade error", "error", err)
		return
	}

	connId := uuid.NewString()
	session := chat.NewSession(connId, hub, persister, registry, presenceS, moderation, messages, sessionCfg)
	client := ws.NewClient(hub, conn, connId, session)

	// registration is picked up asynchronously by the hub run loop; the
	// first inbound event needs a network round trip first, so the client is
	// in place before anything can address it
	hub.Register <- client
	go client.WriteLoop()
	client.ReadLoop()
}

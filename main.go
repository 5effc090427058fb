package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/matst80/slask-docs/pkg/common"
	"github.com/matst80/slask-docs/pkg/messaging"
	"github.com/matst80/slask-docs/pkg/notify"
	"github.com/matst80/slask-docs/pkg/request"
	"github.com/matst80/slask-docs/pkg/server"
	"github.com/matst80/slask-docs/pkg/source"
	"github.com/matst80/slask-docs/pkg/storage"
	"github.com/matst80/slask-docs/pkg/types"
)

var enableProfiling = flag.Bool("profiling", false, "enable profiling endpoints")
var listenAddress = flag.String("listen", ":8080", "listen address")
var debugAddress = flag.String("debug-listen", ":8081", "metrics and profiling listen address")

var siteUrl = os.Getenv("SITE_URL")
var sourceToken = os.Getenv("SOURCE_TOKEN")
var dataPath = os.Getenv("DATA_PATH")
var redisUrl = os.Getenv("REDIS_URL")
var redisPassword = os.Getenv("REDIS_PASSWORD")
var amqpUrl = os.Getenv("AMQP_URL")
var amqpPrefix = os.Getenv("AMQP_PREFIX")
var pushToken = os.Getenv("PUSH_TOKEN")

func makeAuth() server.AuthHandler {
	auth, err := server.NewGoogleAuth()
	if err != nil {
		log.Printf("no oauth configuration, using mock auth: %v", err)
		return &server.MockAuth{}
	}
	return auth
}

func main() {
	flag.Parse()

	if siteUrl == "" {
		log.Fatalf("SITE_URL environment variable not set")
	}
	if amqpPrefix == "" {
		amqpPrefix = "slaskdocs"
	}

	db := storage.NewDiskStorage(dataPath)
	if err := db.LoadSettings(); err != nil {
		log.Printf("failed to load settings: %v", err)
	}

	rest := source.NewRestSource(siteUrl)
	rest.Token = sourceToken

	var src source.DocumentSource = rest
	var choiceCache *server.ChoiceCache
	if redisUrl != "" {
		choiceCache = server.NewChoiceCache(redisUrl, redisPassword, 0, 5*time.Minute)
		src = &server.CachedSource{DocumentSource: rest, Cache: choiceCache}
	}

	coordinator := request.NewCoordinator(rest, types.CurrentSettings)

	sinks := request.Sinks{}
	if pushToken != "" {
		sinks = append(sinks, &notify.PushNotifier{Token: pushToken})
	}

	auth := makeAuth()
	srv := server.NewWebServer(src, rest, types.CurrentSettings, coordinator, auth)
	srv.SetSettingsSaver(db)
	if choiceCache != nil {
		srv.SetChoiceCache(choiceCache)
	}

	if amqpUrl != "" {
		conn, err := amqp.DialConfig(amqpUrl, amqp.Config{
			Properties: amqp.NewConnectionProperties(),
		})
		if err != nil {
			log.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		ch, err := conn.Channel()
		if err != nil {
			log.Fatalf("Failed to open a channel: %v", err)
		}
		for _, topic := range []messaging.ChangeTopic{messaging.DocumentsChanged, messaging.RequestRecorded} {
			if err := messaging.DefineTopic(ch, amqpPrefix, topic); err != nil {
				log.Fatalf("Failed to declare topic %s: %v", topic, err)
			}
		}
		sinks = append(sinks, &messaging.RequestEventSender{Conn: conn, Prefix: amqpPrefix})
		if err := messaging.ListenForDocumentChanges(ch, amqpPrefix, srv); err != nil {
			log.Fatalf("Failed to listen for document changes: %v", err)
		}
	}
	if len(sinks) > 0 {
		coordinator.Events = sinks
	}

	mux := http.NewServeMux()
	srv.SetupRoutes(mux)

	go func() {
		debugMux := http.NewServeMux()
		debugMux.Handle("/metrics", promhttp.Handler())
		if *enableProfiling {
			debugMux.HandleFunc("/debug/pprof/", pprof.Index)
			debugMux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		}
		log.Printf("starting debug listener on %s", *debugAddress)
		if err := http.ListenAndServe(*debugAddress, debugMux); err != nil {
			log.Printf("debug listener error: %v", err)
		}
	}()

	timeouts := common.LoadTimeoutConfig(common.TimeoutConfig{
		ReadHeader: 5 * time.Second,
		Read:       30 * time.Second,
		Write:      30 * time.Second,
		Idle:       60 * time.Second,
		Shutdown:   15 * time.Second,
		Hook:       5 * time.Second,
	})
	httpServer := common.NewServerWithTimeouts(&http.Server{
		Addr:    *listenAddress,
		Handler: mux,
	}, timeouts)

	common.RunServerWithShutdown(httpServer, "slask-docs", timeouts.Shutdown, timeouts.Hook, func(ctx context.Context) error {
		return db.SaveSettings()
	})
}

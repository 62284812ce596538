package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"securechat-service/config"
	"securechat-service/controller"
	"securechat-service/database"
	"securechat-service/event"
	"securechat-service/router"
	"securechat-service/service"
	"securechat-service/socketio"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func main() {
	log.SetPrefix("securechat-service: ")

	rest := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		StrictRouting:         true,
		AppName:               "securechat-service",
	})

	rest.Use(cors.New())

	database.RedisConnect()
	database.PostgresConnect()

	event.RabbitMQConnect([]string{
		event.RabbitMQAuditQueue,
	})

	socket := socketio.Init(rest)

	// Wire the core: gorm for state, socket.io for delivery, RabbitMQ for
	// audit, redis for the presence cache.
	transport := socketio.Pusher{}
	audit := event.Sink{Queue: event.RabbitMQAuditQueue}
	presenceCache := service.NewRedisPresence(database.Redis[0])

	blocks := service.NewBlockService(database.Postgres, audit)
	presence := service.NewPresenceService(database.Postgres, presenceCache, transport)
	requests := service.NewChatRequestService(database.Postgres, blocks, transport, audit)
	messages := service.NewMessageService(database.Postgres, blocks, transport, audit)
	groups := service.NewGroupService(database.Postgres, transport, audit)

	controller.Init(blocks, presence, requests, messages, groups)

	router.Rest(rest)
	router.Socket(socket)

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	sweeper := service.NewSweeper(requests, sweepInterval(), service.DefaultSweepRetention)
	go sweeper.Run(sweepCtx)

	go rest.Listen(fmt.Sprintf(":%s", config.Config("SERVER_PORT")))

	exit := make(chan struct{})
	SignalC := make(chan os.Signal, 1)

	signal.Notify(SignalC, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		for s := range SignalC {
			switch s {
			case syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT:
				close(exit)
				return
			}
		}
	}()

	<-exit
	stopSweep()
	socket.Close(nil)
	event.RabbitMQChannel.Close()
	event.RabbitMQConnection.Close()
	event.OutLogFile.Close()
	os.Exit(0)
}

func sweepInterval() time.Duration {
	hours, err := strconv.Atoi(config.Config("SWEEP_INTERVAL_HOURS"))
	if err != nil || hours <= 0 {
		return service.DefaultSweepInterval
	}
	return time.Duration(hours) * time.Hour
}

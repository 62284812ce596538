package socketio

import (
	"context"
	"log"
	"time"

	"securechat-service/config"
	"securechat-service/database"
	"securechat-service/metrics"
	"securechat-service/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	eiolog "github.com/zishang520/engine.io/v2/log"
	"github.com/zishang520/socket.io-go-redis/adapter"
	r_type "github.com/zishang520/socket.io-go-redis/types"
	"github.com/zishang520/socket.io/v2/socket"
)

var server *socket.Server

func Init(app *fiber.App) *socket.Server {
	eiolog.DEBUG = config.Config("SOCKET_DEBUG") == "true"

	options := socket.DefaultServerOptions()
	options.SetServeClient(true)
	options.SetAllowEIO3(true)
	options.SetPingInterval(25 * time.Second)
	options.SetPingTimeout(20 * time.Second)
	options.SetConnectTimeout(5 * time.Second)
	options.SetAdapter(&adapter.RedisAdapterBuilder{
		Redis: r_type.NewRedisClient(context.Background(), database.Redis[1]),
		Opts:  &adapter.RedisAdapterOptions{},
	})

	server = socket.NewServer(nil, nil)

	// Authenticate the handshake; an authenticated client joins its own
	// private room and the shared presence topic.
	server.Use(func(client *socket.Socket, next func(*socket.ExtendedError)) {
		token, auth := client.Conn().Request().Query().Get("token")

		if auth {
			claims, err := utils.CheckAndExtractTokenMetadata(token, "JWT_ACCESS_KEY")

			if err == nil {
				if !claims.Otp {
					client.Join(socket.Room(claims.Id))
					client.Join(socket.Room("presence"))
					client.SetData(claims)
				}
			}
		}

		next(nil)
	})

	app.Get("/socket.io/", adaptor.HTTPHandler(server.ServeHandler(options)))
	app.Post("/socket.io/", adaptor.HTTPHandler(server.ServeHandler(options)))

	return server
}

// Emit delivers to a single room.
func Emit(room string, event string, message any) {
	if server == nil {
		log.Printf("socketio: dropped %q emit, server not started", event)
		return
	}
	server.To(socket.Room(room)).Emit(event, message)
}

// Pusher adapts the socket.io server to the service transport interface.
type Pusher struct{}

func (Pusher) Emit(room string, event string, payload any) {
	metrics.Deliveries.WithLabelValues(event).Inc()
	Emit(room, event, payload)
}

func (Pusher) Broadcast(topic string, event string, payload any) {
	metrics.Deliveries.WithLabelValues(event).Inc()
	Emit(topic, event, payload)
}

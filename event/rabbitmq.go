package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"securechat-service/config"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const RabbitMQActionHeader string = "x-action"
const RabbitMQAuditQueue string = "audit"
const RabbitMQOutLogFile string = "log/out.log"

type EventLogData struct {
	Id      string `json:"id"`
	Time    int64  `json:"time"`
	Service string `json:"service"`
	Action  string `json:"action"`
	Data    string `json:"data"`
}

var (
	RabbitMQConnection *amqp.Connection
	RabbitMQChannel    *amqp.Channel
	RabbitMQQueue      = make(map[string]amqp.Queue)

	OutLogFile *os.File
	err        error
)

func RabbitMQConnect(queues []string) {
	// Connect to RabbitMQ server
	RabbitMQConnection, err = amqp.Dial(fmt.Sprintf(
		"amqp://%s:%s@%s:%s/",
		config.Config("RABBITMQ_USER"),
		config.Config("RABBITMQ_PASSWORD"),
		config.Config("RABBITMQ_HOST"),
		config.Config("RABBITMQ_PORT"),
	))
	if err != nil {
		panic("failed to connect to RabbitMQ")
	}
	log.Printf("connection opened to RabbitMQ server")

	// Open a RabbitMQ channel
	RabbitMQChannel, err = RabbitMQConnection.Channel()
	if err != nil {
		panic("failed to open a RabbitMQ channel")
	}
	log.Printf("opened a RabbitMQ channel")

	// Declare queues
	for _, name := range queues {
		queue, err := RabbitMQChannel.QueueDeclare(
			name,  // name
			false, // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,   // arguments
		)
		if err != nil {
			panic("failed to declare a RabbitMQ queue")
		}

		RabbitMQQueue[name] = queue
		log.Printf("success declare a RabbitMQ queue: %s", name)
	}

	// Open event log file
	OutLogFile, err = os.OpenFile(RabbitMQOutLogFile, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0600)
	if err != nil {
		panic(err)
	}
}

// Emit publishes one event. Publishing is best-effort: the triggering state
// change has already committed, so failures are logged and swallowed.
func Emit(service string, action string, data []byte) {
	if RabbitMQChannel == nil {
		log.Printf("event: dropped %q, RabbitMQ not connected", action)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pubErr := RabbitMQChannel.PublishWithContext(
		ctx,
		"",      // exchange
		service, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Headers: amqp.Table{
				RabbitMQActionHeader: action,
			},
			Body: data,
		},
	)
	if pubErr != nil {
		log.Printf("event: failed to publish %q: %v", action, pubErr)
		return
	}

	if config.Config("EVENT_MODE") != "DISABLE" {
		OutLog(EventLogData{
			Id:      uuid.NewString(),
			Time:    time.Now().UnixMicro(),
			Service: service,
			Action:  action,
			Data:    string(data[:]),
		})
	}
}

func OutLog(data EventLogData) {
	eventJson, _ := json.Marshal(data)
	if OutLogFile == nil {
		return
	}
	if _, err = OutLogFile.WriteString(string(eventJson) + "\n"); err != nil {
		log.Printf("event: failed to append event log: %v", err)
	}
}

// Sink adapts the RabbitMQ publisher to the service audit interface.
type Sink struct {
	Queue string
}

func (s Sink) Notify(action string, payload any) {
	body, jsonErr := json.Marshal(payload)
	if jsonErr != nil {
		log.Printf("event: failed to encode %q payload: %v", action, jsonErr)
		return
	}

	queue := s.Queue
	if queue == "" {
		queue = RabbitMQAuditQueue
	}
	Emit(queue, action, body)
}

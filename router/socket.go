package router

import (
	"context"
	"encoding/json"
	"strconv"

	"securechat-service/controller"
	"securechat-service/model"
	"securechat-service/service"
	"securechat-service/utils"

	"github.com/zishang520/socket.io/v2/socket"
)

type socketMessageInput struct {
	RecipientID uint                     `json:"recipientId"`
	Envelope    controller.EnvelopeInput `json:"envelope"`
	OneTime     bool                     `json:"oneTime"`
	LocalID     string                   `json:"localId"`
}

type socketMarkReadInput struct {
	MessageIDs []uint `json:"messageIds"`
}

type socketGroupMessageInput struct {
	GroupID uint   `json:"groupId"`
	Content string `json:"content"`
}

// Socket wires the push-style entry points. The handshake middleware in
// the socketio package has already authenticated the client and joined it
// to its private room; an unauthenticated socket carries no data and every
// handler ignores it.
func Socket(server *socket.Server) {
	server.On("connection", func(clients ...interface{}) {
		client := clients[0].(*socket.Socket)

		if claims := tokenData(client); claims != nil {
			controller.Presence.Connect(context.Background(), claims.Id)
		}

		client.On("disconnect", func(args ...interface{}) {
			if claims := tokenData(client); claims != nil {
				controller.Presence.Disconnect(context.Background(), claims.Id)
			}
		})

		client.On("heartbeat", func(args ...interface{}) {
			if claims := tokenData(client); claims != nil {
				controller.Presence.Heartbeat(context.Background(), claims.Id)
			}
		})

		client.On("message_send", func(args ...interface{}) {
			claims := tokenData(client)
			if claims == nil || len(args) == 0 {
				return
			}

			input := new(socketMessageInput)
			if !decodeArg(args[0], input) {
				return
			}

			caller, ok := callerID(claims)
			if !ok {
				return
			}

			// Delivery happens through the transport layer; errors are the
			// caller's to discover through the absent sent-echo.
			controller.Messages.Send(
				context.Background(),
				caller,
				input.RecipientID,
				toEnvelope(input.Envelope),
				input.OneTime,
				input.LocalID,
			)
		})

		client.On("messages_read", func(args ...interface{}) {
			claims := tokenData(client)
			if claims == nil || len(args) == 0 {
				return
			}

			input := new(socketMarkReadInput)
			if !decodeArg(args[0], input) {
				return
			}

			caller, ok := callerID(claims)
			if !ok {
				return
			}

			// Fire-and-forget twin of the REST markRead endpoint.
			controller.Messages.MarkRead(context.Background(), caller, input.MessageIDs)
		})

		client.On("group_subscribe", func(args ...interface{}) {
			if tokenData(client) == nil || len(args) == 0 {
				return
			}
			if groupID, ok := argID(args[0]); ok {
				client.Join(socket.Room(service.GroupTopic(groupID)))
			}
		})

		client.On("group_unsubscribe", func(args ...interface{}) {
			if tokenData(client) == nil || len(args) == 0 {
				return
			}
			if groupID, ok := argID(args[0]); ok {
				client.Leave(socket.Room(service.GroupTopic(groupID)))
			}
		})

		client.On("group_message", func(args ...interface{}) {
			claims := tokenData(client)
			if claims == nil || len(args) == 0 {
				return
			}

			input := new(socketGroupMessageInput)
			if !decodeArg(args[0], input) {
				return
			}

			caller, ok := callerID(claims)
			if !ok {
				return
			}

			controller.Groups.SendMessage(context.Background(), input.GroupID, caller, input.Content)
		})
	})
}

func tokenData(client *socket.Socket) *utils.TokenMetadata {
	claims, ok := client.Data().(*utils.TokenMetadata)
	if !ok {
		return nil
	}
	return claims
}

func callerID(claims *utils.TokenMetadata) (uint, bool) {
	id, err := strconv.ParseUint(claims.Id, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func toEnvelope(in controller.EnvelopeInput) model.Envelope {
	return model.Envelope{
		Ciphertext:          in.Ciphertext,
		SenderKey:           in.SenderKey,
		RecipientKey:        in.RecipientKey,
		IV:                  in.IV,
		SenderKeyVersion:    in.SenderKeyVersion,
		RecipientKeyVersion: in.RecipientKeyVersion,
	}
}

// decodeArg round-trips a socket.io argument through JSON into a typed
// input struct.
func decodeArg(arg interface{}, out interface{}) bool {
	raw, err := json.Marshal(arg)
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}

func argID(arg interface{}) (uint, bool) {
	switch v := arg.(type) {
	case string:
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil || id == 0 {
			return 0, false
		}
		return uint(id), true
	case float64:
		if v <= 0 {
			return 0, false
		}
		return uint(v), true
	}
	return 0, false
}

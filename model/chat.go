package model

import (
	"time"

	"gorm.io/gorm"
)

// RequestStatus is the lifecycle state of a chat request.
type RequestStatus string

const (
	RequestPending   RequestStatus = "PENDING"
	RequestAccepted  RequestStatus = "ACCEPTED"
	RequestRejected  RequestStatus = "REJECTED"
	RequestCancelled RequestStatus = "CANCELLED"
	RequestExpired   RequestStatus = "EXPIRED"
)

// Terminal reports whether no further transition is allowed from s.
func (s RequestStatus) Terminal() bool {
	switch s {
	case RequestAccepted, RequestRejected, RequestCancelled, RequestExpired:
		return true
	case RequestPending:
		return false
	}
	return false
}

// Envelope is the opaque ciphertext bundle carried on requests and
// messages. The server stores and forwards it without inspecting it.
type Envelope struct {
	Ciphertext          string `gorm:"not null" json:"ciphertext"`
	SenderKey           string `gorm:"not null" json:"senderKey"`
	RecipientKey        string `gorm:"not null" json:"recipientKey"`
	IV                  string `gorm:"not null" json:"iv"`
	SenderKeyVersion    string `json:"senderKeyVersion"`
	RecipientKeyVersion string `json:"recipientKeyVersion"`
}

// ChatRequest is the consent handshake that gates a first conversation.
// The partial unique index allows any number of settled requests per pair
// but at most one pending one.
type ChatRequest struct {
	gorm.Model
	RequesterID uint          `gorm:"not null;uniqueIndex:idx_pending_pair,where:status = 'PENDING'" json:"requesterId"`
	RecipientID uint          `gorm:"not null;uniqueIndex:idx_pending_pair,where:status = 'PENDING'" json:"recipientId"`
	Requester   User          `gorm:"foreignKey:RequesterID" json:"requester"`
	Recipient   User          `gorm:"foreignKey:RecipientID" json:"recipient"`
	Envelope    Envelope      `gorm:"embedded" json:"envelope"`
	Status      RequestStatus `gorm:"not null;default:'PENDING'" json:"status"`
}

type ChatMessage struct {
	gorm.Model
	SenderID      uint       `gorm:"not null;index" json:"senderId"`
	RecipientID   uint       `gorm:"not null;index" json:"recipientId"`
	Sender        User       `gorm:"foreignKey:SenderID" json:"sender"`
	Recipient     User       `gorm:"foreignKey:RecipientID" json:"recipient"`
	Envelope      Envelope   `gorm:"embedded" json:"envelope"`
	Read          bool       `gorm:"not null;default:false" json:"read"`
	ReadTimestamp *time.Time `json:"readTimestamp"`
	OneTime       bool       `gorm:"not null;default:false" json:"oneTime"`

	// LocalID is a client-supplied correlation id, echoed on the sent copy
	// so the sending client can reconcile its optimistic state. Never stored.
	LocalID string `gorm:"-" json:"localId,omitempty"`
}

package model

import "gorm.io/gorm"

// GroupChat holds its full participant set; every broadcast needs it.
type GroupChat struct {
	gorm.Model
	Name         string `gorm:"not null" json:"name"`
	Participants []User `gorm:"many2many:group_chat_participants" json:"participants"`
}

type GroupChatMessage struct {
	gorm.Model
	GroupID  uint   `gorm:"not null;index" json:"groupId"`
	SenderID uint   `gorm:"not null" json:"senderId"`
	Sender   User   `gorm:"foreignKey:SenderID" json:"sender"`
	Content  string `gorm:"not null" json:"content"`
}

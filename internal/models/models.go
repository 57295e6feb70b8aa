package models

import "time"

type User struct {
	ID         int64
	Email      string
	PassHash   string
	IsVerified bool
	CreatedAt  time.Time
}

// Message is the payload published to the mail queue.
type Message struct {
	Email   string `json:"to"`
	Link    string `json:"link"`
	Purpose string `json:"purpose"`
}

const PurposeEmailVerification = "email_verification"

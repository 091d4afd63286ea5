// Package audit emits structured JSON audit events for every channel
// operation that touches an account balance.
package audit

import (
	"encoding/json"
	"log"
	"time"
)

type Event struct {
	Timestamp     time.Time `json:"timestamp"`
	EventType     string    `json:"event_type"`
	ChannelID     string    `json:"channel_id"`
	AccountNumber string    `json:"account_number"`
	Amount        string    `json:"amount"`
	Status        string    `json:"status"`
	Details       any       `json:"details,omitempty"`
}

type Logger struct{}

func NewLogger() *Logger {
	return &Logger{}
}

// LogOperation records a successful channel operation.
func (a *Logger) LogOperation(eventType, channelID, accountNumber, amount string) {
	a.log(Event{
		Timestamp:     time.Now(),
		EventType:     eventType,
		ChannelID:     channelID,
		AccountNumber: accountNumber,
		Amount:        amount,
		Status:        "SUCCESS",
	})
}

// LogTransfer records both legs of a completed transfer.
func (a *Logger) LogTransfer(channelID, fromAccount, toAccount, amount string) {
	a.log(Event{
		Timestamp: time.Now(),
		EventType: "TRANSFER",
		ChannelID: channelID,
		Amount:    amount,
		Status:    "SUCCESS",
		Details: map[string]string{
			"from_account": fromAccount,
			"to_account":   toAccount,
		},
	})
}

// LogRejection records a refused operation and the reason.
func (a *Logger) LogRejection(eventType, channelID, accountNumber string, err error) {
	a.log(Event{
		Timestamp:     time.Now(),
		EventType:     eventType,
		ChannelID:     channelID,
		AccountNumber: accountNumber,
		Status:        "REJECTED",
		Details:       map[string]string{"reason": err.Error()},
	})
}

func (a *Logger) log(event Event) {
	data, _ := json.Marshal(event)
	log.Printf("AUDIT: %s", string(data))
}

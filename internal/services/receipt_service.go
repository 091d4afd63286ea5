package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"

	"github.com/krungthon/corebank/internal/ledger"
)

// ErrReceiptNotFound means the reference is unknown or the receipt has aged
// out of retention.
var ErrReceiptNotFound = errors.New("receipt not found or expired")

// Receipt is the customer-facing record of one completed channel operation:
// the canonical transaction line plus a scannable QR of the same content.
type Receipt struct {
	Reference string    `json:"reference"`
	ChannelID string    `json:"channel_id"`
	Rendered  string    `json:"rendered"`
	QRImage   string    `json:"qr_image"` // base64 PNG
	IssuedAt  time.Time `json:"issued_at"`
}

// ReceiptService issues QR receipts for completed transactions and keeps
// them in Redis for the retention window.
type ReceiptService struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewReceiptService(rdb *redis.Client, ttl time.Duration) *ReceiptService {
	return &ReceiptService{redis: rdb, ttl: ttl}
}

func receiptKey(reference string) string {
	return fmt.Sprintf("receipt:%s", reference)
}

// Issue renders the transaction into a QR receipt and stores it under a
// fresh reference.
func (s *ReceiptService) Issue(ctx context.Context, channelID string, tx ledger.Transaction) (Receipt, error) {
	reference := uuid.New().String()

	payload := fmt.Sprintf("%s|%s", reference, tx.String())
	qr, err := qrcode.New(payload, qrcode.Medium)
	if err != nil {
		return Receipt{}, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qr.Image(256)); err != nil {
		return Receipt{}, err
	}

	receipt := Receipt{
		Reference: reference,
		ChannelID: channelID,
		Rendered:  tx.String(),
		QRImage:   base64.StdEncoding.EncodeToString(buf.Bytes()),
		IssuedAt:  time.Now(),
	}

	data, err := json.Marshal(receipt)
	if err != nil {
		return Receipt{}, err
	}
	if err := s.redis.Set(ctx, receiptKey(reference), data, s.ttl).Err(); err != nil {
		return Receipt{}, err
	}
	return receipt, nil
}

// Retrieve looks a receipt up by its reference.
func (s *ReceiptService) Retrieve(ctx context.Context, reference string) (Receipt, error) {
	data, err := s.redis.Get(ctx, receiptKey(reference)).Bytes()
	if err == redis.Nil {
		return Receipt{}, ErrReceiptNotFound
	}
	if err != nil {
		return Receipt{}, err
	}

	var receipt Receipt
	if err := json.Unmarshal(data, &receipt); err != nil {
		return Receipt{}, err
	}
	return receipt, nil
}

// Package voucher issues the QR voucher a customer shows at the venue for a
// paid order. The QR carries an encrypted token, so only this service can
// read it back.
package voucher

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"ms-booking/internal/models"

	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
)

var ErrInvalidToken = errors.New("invalid voucher token")

// Payload is what a voucher token decrypts to.
type Payload struct {
	OrderID    string          `json:"orderId"`
	UserID     string          `json:"userId"`
	FinalPrice decimal.Decimal `json:"finalPrice"`
	Deposit    decimal.Decimal `json:"deposit"`
	TicketIDs  []string        `json:"ticketIds"`
	RoomIDs    []string        `json:"roomIds"`
	IssuedAt   time.Time       `json:"issuedAt"`
}

// PayloadFor builds the voucher contents of an order.
func PayloadFor(o models.OrderWithLines, issuedAt time.Time) Payload {
	p := Payload{
		OrderID:    o.Order.OrderID,
		UserID:     o.Order.UserID,
		FinalPrice: o.Order.FinalPrice,
		Deposit:    o.Order.Deposit,
		TicketIDs:  []string{},
		RoomIDs:    []string{},
		IssuedAt:   issuedAt.UTC(),
	}
	for _, t := range o.Tickets {
		p.TicketIDs = append(p.TicketIDs, t.TicketID)
	}
	for _, r := range o.Rooms {
		p.RoomIDs = append(p.RoomIDs, r.RoomID)
	}
	return p
}

type Generator struct {
	aead cipher.AEAD
	size int
}

func NewGenerator(secret string) (*Generator, error) {
	if secret == "" {
		return nil, errors.New("voucher secret is empty")
	}
	hashed := sha256.Sum256([]byte(secret)) // normalize to 32 bytes
	block, err := aes.NewCipher(hashed[:])
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Generator{aead: aead, size: 256}, nil
}

// Token encrypts p into a URL-safe string.
func (g *Generator) Token(p Payload) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, g.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := g.aead.Seal(nonce, nonce, data, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// PNG renders the encrypted token of p as a QR code image.
func (g *Generator) PNG(p Payload) ([]byte, error) {
	token, err := g.Token(p)
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(token, qrcode.Medium, g.size)
}

// Decrypt reads a token produced by Token. Tampered or foreign tokens fail
// with ErrInvalidToken.
func (g *Generator) Decrypt(token string) (*Payload, error) {
	sealed, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	ns := g.aead.NonceSize()
	if len(sealed) < ns {
		return nil, ErrInvalidToken
	}

	data, err := g.aead.Open(nil, sealed[:ns], sealed[ns:], nil)
	if err != nil {
		return nil, ErrInvalidToken
	}

	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return &p, nil
}

package service

import (
	"strings"

	"github.com/google/uuid"
)

// ReceiptGenerator produces collision-resistant receipt identifiers.
type ReceiptGenerator interface {
	Generate() string
}

// UUIDReceiptGenerator issues receipts of the form REC-XXXXXXXX, the first
// eight hex characters of a random UUID uppercased. Uniqueness of explicitly
// supplied receipt ids is still checked against the sale store.
type UUIDReceiptGenerator struct{}

func NewUUIDReceiptGenerator() UUIDReceiptGenerator {
	return UUIDReceiptGenerator{}
}

func (UUIDReceiptGenerator) Generate() string {
	return "REC-" + strings.ToUpper(uuid.New().String()[:8])
}

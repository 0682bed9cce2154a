package walletloader

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"

	"staking_tracker/internal/app/port"
	"staking_tracker/internal/domain/entity"
	"staking_tracker/internal/pkg/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrUnsupportedFormat is returned when the document is neither an array nor an {items} object.
var ErrUnsupportedFormat = errors.New("wallet list must be a JSON array or an object with an items array")

// ExportDocument is the shape written by Export. Parse accepts it back.
type ExportDocument struct {
	GeneratedAt time.Time            `json:"generatedAt"`
	Total       int                  `json:"total"`
	Items       []entity.WalletEntry `json:"items"`
}

type itemsDocument struct {
	Items *[]entity.WalletEntry `json:"items"`
}

// Loader reads and writes wallet list files.
type Loader struct {
	logger port.Logger
}

func NewLoader(l port.Logger) *Loader {
	if l == nil {
		l = logger.NewSlogAdapter()
	}
	return &Loader{logger: l}
}

// Parse decodes a wallet list given either as a bare array or as {"items": [...]}.
// Entries are deduplicated by trimmed, lower-cased primary address; the first one wins.
func (l *Loader) Parse(data []byte) ([]entity.WalletEntry, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrUnsupportedFormat
	}

	var raw []entity.WalletEntry
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decode wallet array: %w", err)
		}
	case '{':
		var doc itemsDocument
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode wallet document: %w", err)
		}
		if doc.Items == nil {
			return nil, ErrUnsupportedFormat
		}
		raw = *doc.Items
	default:
		return nil, ErrUnsupportedFormat
	}

	wallets := entity.DedupeWallets(raw)
	if dropped := len(raw) - len(wallets); dropped > 0 {
		l.logger.Info("Dropped duplicate or empty wallet entries", "received", len(raw), "dropped", dropped)
	}
	return wallets, nil
}

// LoadFile reads and parses the wallet list at path.
func (l *Loader) LoadFile(path string) ([]entity.WalletEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read wallet file %s: %w", path, err)
	}
	wallets, err := l.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("wallet file %s: %w", path, err)
	}
	l.logger.Info("Wallets loaded from file", "count", len(wallets), "path", path)
	return wallets, nil
}

// Export wraps wallets into an export document stamped with now.
func Export(wallets []entity.WalletEntry, now time.Time) ExportDocument {
	if wallets == nil {
		wallets = []entity.WalletEntry{}
	}
	return ExportDocument{GeneratedAt: now.UTC(), Total: len(wallets), Items: wallets}
}

// Marshal renders doc as indented JSON.
func Marshal(doc ExportDocument) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}

// WriteFile exports wallets to path.
func (l *Loader) WriteFile(path string, wallets []entity.WalletEntry) error {
	data, err := Marshal(Export(wallets, time.Now()))
	if err != nil {
		return fmt.Errorf("encode wallet export: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write wallet file %s: %w", path, err)
	}
	l.logger.Info("Wallets exported", "count", len(wallets), "path", path)
	return nil
}

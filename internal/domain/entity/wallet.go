package entity

import "strings"

// WalletEntry identifies one tracked wallet.
// JSON tags follow the address-list format exported by the dashboard so that
// existing lists import unchanged.
type WalletEntry struct {
	PrimaryAddress string `json:"aAddress" yaml:"primaryAddress"`
	DerivedAddress string `json:"derivedAddress" yaml:"derivedAddress"`
	Label          string `json:"remark" yaml:"label"`
	Note           string `json:"log" yaml:"note"`
	Split          string `json:"split,omitempty" yaml:"split,omitempty"`
}

// Key returns the case-insensitive identity of the wallet.
func (w WalletEntry) Key() string {
	return strings.ToLower(strings.TrimSpace(w.PrimaryAddress))
}

// DedupeWallets drops entries whose Key repeats an earlier one, keeping the first
// occurrence and the input order. Entries with an empty key are dropped.
func DedupeWallets(wallets []WalletEntry) []WalletEntry {
	seen := make(map[string]struct{}, len(wallets))
	out := make([]WalletEntry, 0, len(wallets))
	for _, w := range wallets {
		k := w.Key()
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, w)
	}
	return out
}

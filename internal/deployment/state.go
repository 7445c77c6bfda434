// Package deployment holds the checkpoint record that ties the pipeline
// steps together. Fields accumulate monotonically as steps complete; the
// record on disk is the sole source of truth for every downstream step.
package deployment

import (
	"time"

	"kira-treasury-go/internal/deployerr"
)

// State is the persisted deployment record. Every field is optional
// until the step that produces it has run; no field is ever removed.
type State struct {
	// Treasury provisioning.
	TreasuryAddress         string   `json:"treasuryAddress,omitempty"`
	TreasuryVault           string   `json:"treasuryVault,omitempty"`
	TreasuryCreateKey       string   `json:"treasuryCreateKey,omitempty"`
	TreasuryCreateKeySecret string   `json:"treasuryCreateKeySecret,omitempty"`
	CreatorAddress          string   `json:"creatorAddress,omitempty"`
	Threshold               int      `json:"threshold,omitempty"`
	MemberAddresses         []string `json:"memberAddresses,omitempty"`
	TreasuryName            string   `json:"treasuryName,omitempty"`
	SolscanURL              string   `json:"solscanUrl,omitempty"`
	SquadsURL               string   `json:"squadsUrl,omitempty"`

	// Asset issuance.
	AssetMint            string `json:"assetMint,omitempty"`
	AssetDecimals        uint8  `json:"assetDecimals,omitempty"`
	HolderAccount        string `json:"holderAccount,omitempty"`
	TreasuryAssetAccount string `json:"treasuryAssetAccount,omitempty"`

	// Treasury funding.
	TreasuryNativeBalance uint64     `json:"treasuryNativeBalance,omitempty"`
	LastFundedAt          *time.Time `json:"lastFundedAt,omitempty"`

	Network   string    `json:"network,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// merge applies update on top of s field by field. Set fields are only
// ever overwritten by a new non-zero value; re-applying an identical
// update is a no-op. The treasury address is immutable once set.
func (s *State) merge(update *State) error {
	if update.TreasuryAddress != "" {
		if s.TreasuryAddress != "" && s.TreasuryAddress != update.TreasuryAddress {
			return &deployerr.InvariantViolationError{
				Detail: "treasury address " + s.TreasuryAddress +
					" already recorded, refusing to overwrite with " + update.TreasuryAddress,
			}
		}
		s.TreasuryAddress = update.TreasuryAddress
	}
	if update.TreasuryVault != "" {
		s.TreasuryVault = update.TreasuryVault
	}
	if update.TreasuryCreateKey != "" {
		s.TreasuryCreateKey = update.TreasuryCreateKey
	}
	if update.TreasuryCreateKeySecret != "" {
		s.TreasuryCreateKeySecret = update.TreasuryCreateKeySecret
	}
	if update.CreatorAddress != "" {
		s.CreatorAddress = update.CreatorAddress
	}
	if update.Threshold != 0 {
		s.Threshold = update.Threshold
	}
	if len(update.MemberAddresses) != 0 {
		s.MemberAddresses = append([]string(nil), update.MemberAddresses...)
	}
	if update.TreasuryName != "" {
		s.TreasuryName = update.TreasuryName
	}
	if update.SolscanURL != "" {
		s.SolscanURL = update.SolscanURL
	}
	if update.SquadsURL != "" {
		s.SquadsURL = update.SquadsURL
	}
	// Decimals travel with the mint so a 0-decimal asset is recordable.
	if update.AssetMint != "" {
		s.AssetMint = update.AssetMint
		s.AssetDecimals = update.AssetDecimals
	}
	if update.HolderAccount != "" {
		s.HolderAccount = update.HolderAccount
	}
	if update.TreasuryAssetAccount != "" {
		s.TreasuryAssetAccount = update.TreasuryAssetAccount
	}
	// The funding time marks a balance observation, so a genuinely zero
	// balance is recordable alongside it.
	if update.LastFundedAt != nil {
		t := *update.LastFundedAt
		s.LastFundedAt = &t
		s.TreasuryNativeBalance = update.TreasuryNativeBalance
	} else if update.TreasuryNativeBalance != 0 {
		s.TreasuryNativeBalance = update.TreasuryNativeBalance
	}
	if update.Network != "" {
		s.Network = update.Network
	}
	return nil
}

// HasTreasury reports whether the treasury-provisioning step completed.
func (s *State) HasTreasury() bool { return s != nil && s.TreasuryAddress != "" }

// HasAsset reports whether the asset mint was created.
func (s *State) HasAsset() bool { return s != nil && s.AssetMint != "" }

// HasDistribution reports whether the treasury received its asset
// share. The asset step is only complete once both the mint and the
// distribution are recorded; a failed distribution leaves HasAsset true
// and HasDistribution false so a re-run resumes at the transfer.
func (s *State) HasDistribution() bool { return s != nil && s.TreasuryAssetAccount != "" }

// HasFunding reports whether the treasury has been funded at least once.
func (s *State) HasFunding() bool { return s != nil && s.LastFundedAt != nil }

package profile

import (
	"github.com/janisto/wallet-profiles/internal/platform/timeutil"
	profilesvc "github.com/janisto/wallet-profiles/internal/service/profile"
)

// Profile is the response representation of a stored wallet profile.
type Profile struct {
	ID                       string                        `json:"id"                       doc:"Profile identifier"                                     example:"0f3a9c1d2b4e5f60"`
	Avatar                   any                           `json:"avatar"                   doc:"Bundled image name, {avatarName, pluginId}, or null"`
	AvatarInitial            string                        `json:"avatarInitial,omitempty"  doc:"Character rendered when avatar is null"                 example:"A"`
	Background               string                        `json:"background"               doc:"Background image or color"                              example:"bg-1"`
	Currency                 string                        `json:"currency"                 doc:"Three letter display currency"                          example:"USD"`
	TimeFormat               string                        `json:"timeFormat"               doc:"Time display format"                                    example:"Default"`
	HideWalletButtonText     bool                          `json:"hideWalletButtonText"     doc:"Show wallet buttons without labels"`
	MarketChartOptions       profilesvc.MarketChartOptions `json:"marketChartOptions"       doc:"Market chart settings"`
	Language                 string                        `json:"language"                 doc:"Interface language"                                     example:"en-US"`
	Bip39Language            *string                       `json:"bip39Language"            doc:"Mnemonic word list language, null for the default"      example:"english"`
	Name                     string                        `json:"name"                     doc:"Display name"                                           example:"Alice"`
	NetworkID                any                           `json:"networkId"                doc:"Network the profile is bound to"`
	Theme                    string                        `json:"theme"                    doc:"UI theme"                                               example:"dark"`
	ScreenshotProtection     bool                          `json:"screenshotProtection"     doc:"Block screenshots of the wallet window"`
	BackgroundUpdateLedger   bool                          `json:"backgroundUpdateLedger"   doc:"Poll Ledger devices in the background"`
	BroadcastPeers           bool                          `json:"broadcastPeers"           doc:"Broadcast transactions to several peers"`
	LedgerCache              bool                          `json:"ledgerCache"              doc:"Cache Ledger wallet data"`
	ShowPluginConfirmation   bool                          `json:"showPluginConfirmation"   doc:"Confirm before installing plugins"`
	TransactionTableRowCount int                           `json:"transactionTableRowCount" doc:"Rows per transaction table page"                        example:"10"`
	UnconfirmedVotes         []any                         `json:"unconfirmedVotes"         doc:"Votes waiting for confirmation"`
	WalletLayout             string                        `json:"walletLayout"             doc:"Wallet list layout"                                     example:"grid"`
	WalletSidebarSortParams  profilesvc.SortParams         `json:"walletSidebarSortParams"  doc:"Sidebar wallet ordering"`
	WalletSidebarFilters     map[string]any                `json:"walletSidebarFilters"     doc:"Sidebar wallet filters"`
	WalletSortParams         profilesvc.SortParams         `json:"walletSortParams"         doc:"Wallet ordering"`
	ContactSortParams        profilesvc.SortParams         `json:"contactSortParams"        doc:"Contact ordering"`
	PluginSortParams         profilesvc.SortParams         `json:"pluginSortParams"         doc:"Plugin ordering"`
	Extensions               map[string]any                `json:"extensions,omitempty"     doc:"Stored keys outside the profile schema"`
	CreatedAt                timeutil.Time                 `json:"createdAt"                doc:"Creation timestamp"                                     example:"2024-01-15T10:30:00.000Z"`
	UpdatedAt                timeutil.Time                 `json:"updatedAt"                doc:"Last update timestamp"                                  example:"2024-01-15T10:30:00.000Z"`
}

// ListData is the body of a profile listing page.
type ListData struct {
	Items []Profile `json:"items" doc:"Profiles on this page, ordered by name then id"`
	Total int       `json:"total" doc:"Number of profiles the caller owns"              example:"3"`
}

func toHTTPProfile(p *profilesvc.Profile) Profile {
	return Profile{
		ID:                       p.ID,
		Avatar:                   p.Avatar.Value(),
		AvatarInitial:            p.Avatar.Initial(p.Name),
		Background:               p.Background,
		Currency:                 p.Currency,
		TimeFormat:               p.TimeFormat,
		HideWalletButtonText:     p.HideWalletButtonText,
		MarketChartOptions:       p.MarketChartOptions,
		Language:                 p.Language,
		Bip39Language:            p.Bip39Language,
		Name:                     p.Name,
		NetworkID:                p.NetworkID,
		Theme:                    p.Theme,
		ScreenshotProtection:     p.ScreenshotProtection,
		BackgroundUpdateLedger:   p.BackgroundUpdateLedger,
		BroadcastPeers:           p.BroadcastPeers,
		LedgerCache:              p.LedgerCache,
		ShowPluginConfirmation:   p.ShowPluginConfirmation,
		TransactionTableRowCount: p.TransactionTableRowCount,
		UnconfirmedVotes:         p.UnconfirmedVotes,
		WalletLayout:             p.WalletLayout,
		WalletSidebarSortParams:  p.WalletSidebarSortParams,
		WalletSidebarFilters:     p.WalletSidebarFilters,
		WalletSortParams:         p.WalletSortParams,
		ContactSortParams:        p.ContactSortParams,
		PluginSortParams:         p.PluginSortParams,
		Extensions:               p.Extra,
		CreatedAt:                timeutil.NewTime(p.CreatedAt),
		UpdatedAt:                timeutil.NewTime(p.UpdatedAt),
	}
}

package profile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"time"
	"unicode/utf8"

	"github.com/fxamacker/cbor/v2"

	"github.com/janisto/wallet-profiles/internal/platform/schema"
)

// AvatarKind tells which of the three avatar shapes a profile uses.
type AvatarKind int

const (
	// AvatarNone renders the first character of the profile name.
	AvatarNone AvatarKind = iota
	// AvatarBuiltIn is an image bundled with the wallet, identified by name.
	AvatarBuiltIn
	// AvatarPlugin is an image supplied by a plugin.
	AvatarPlugin
)

func (k AvatarKind) String() string {
	switch k {
	case AvatarNone:
		return "none"
	case AvatarBuiltIn:
		return "builtin"
	case AvatarPlugin:
		return "plugin"
	default:
		return fmt.Sprintf("AvatarKind(%d)", int(k))
	}
}

// Avatar is a profile picture. It encodes as null, a string, or an object
// {avatarName, pluginId} depending on Kind.
type Avatar struct {
	Kind     AvatarKind
	Name     string
	PluginID string
}

// BuiltInAvatar returns a bundled image avatar.
func BuiltInAvatar(name string) Avatar {
	return Avatar{Kind: AvatarBuiltIn, Name: name}
}

// PluginAvatar returns a plugin supplied avatar.
func PluginAvatar(pluginID, name string) Avatar {
	return Avatar{Kind: AvatarPlugin, Name: name, PluginID: pluginID}
}

// Value returns the record representation of the avatar.
func (a Avatar) Value() any {
	switch a.Kind {
	case AvatarBuiltIn:
		return a.Name
	case AvatarPlugin:
		return map[string]any{"avatarName": a.Name, "pluginId": a.PluginID}
	default:
		return nil
	}
}

// Initial returns the character shown in place of an image. It is empty
// unless the avatar is AvatarNone.
func (a Avatar) Initial(profileName string) string {
	if a.Kind != AvatarNone || profileName == "" {
		return ""
	}
	r, _ := utf8.DecodeRuneInString(profileName)
	return string(r)
}

func (a Avatar) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Value())
}

func (a *Avatar) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	return a.set(v)
}

func (a Avatar) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(a.Value())
}

func (a *Avatar) UnmarshalCBOR(data []byte) error {
	var v any
	if err := cbor.Unmarshal(data, &v); err != nil {
		return err
	}
	return a.set(v)
}

func (a *Avatar) set(v any) error {
	switch x := v.(type) {
	case nil:
		*a = Avatar{}
	case string:
		*a = BuiltInAvatar(x)
	case map[string]any:
		name, _ := x["avatarName"].(string)
		pluginID, _ := x["pluginId"].(string)
		*a = PluginAvatar(pluginID, name)
	case map[any]any:
		name, _ := x["avatarName"].(string)
		pluginID, _ := x["pluginId"].(string)
		*a = PluginAvatar(pluginID, name)
	default:
		return fmt.Errorf("avatar: unsupported value of type %T", v)
	}
	return nil
}

// SortParams orders a wallet, contact, or plugin list.
type SortParams struct {
	Field string `json:"field"`
	Type  string `json:"type"`
}

// MarketChartOptions configures the market chart on the wallet screen.
type MarketChartOptions struct {
	IsEnabled  bool   `json:"isEnabled"`
	IsExpanded bool   `json:"isExpanded"`
	Period     string `json:"period"`
}

// Profile is a typed view of a normalized profile record.
type Profile struct {
	ID                       string
	OwnerID                  string
	Avatar                   Avatar
	Background               string
	Currency                 string
	TimeFormat               string
	HideWalletButtonText     bool
	MarketChartOptions       MarketChartOptions
	Language                 string
	Bip39Language            *string
	Name                     string
	NetworkID                any
	Theme                    string
	ScreenshotProtection     bool
	BackgroundUpdateLedger   bool
	BroadcastPeers           bool
	LedgerCache              bool
	ShowPluginConfirmation   bool
	TransactionTableRowCount int
	UnconfirmedVotes         []any
	WalletLayout             string
	WalletSidebarSortParams  SortParams
	WalletSidebarFilters     map[string]any
	WalletSortParams         SortParams
	ContactSortParams        SortParams
	PluginSortParams         SortParams
	// Extra holds record keys the descriptor does not declare.
	Extra     map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time

	record schema.Record
}

// wireProfile decodes the typed subset of a normalized record.
type wireProfile struct {
	ID                       string             `json:"id"`
	Avatar                   Avatar             `json:"avatar"`
	Background               string             `json:"background"`
	Currency                 string             `json:"currency"`
	TimeFormat               string             `json:"timeFormat"`
	HideWalletButtonText     bool               `json:"hideWalletButtonText"`
	MarketChartOptions       MarketChartOptions `json:"marketChartOptions"`
	Language                 string             `json:"language"`
	Bip39Language            *string            `json:"bip39Language"`
	Name                     string             `json:"name"`
	Theme                    string             `json:"theme"`
	ScreenshotProtection     bool               `json:"screenshotProtection"`
	BackgroundUpdateLedger   bool               `json:"backgroundUpdateLedger"`
	BroadcastPeers           bool               `json:"broadcastPeers"`
	LedgerCache              bool               `json:"ledgerCache"`
	ShowPluginConfirmation   bool               `json:"showPluginConfirmation"`
	TransactionTableRowCount json.Number        `json:"transactionTableRowCount"`
	WalletLayout             string             `json:"walletLayout"`
	WalletSidebarSortParams  SortParams         `json:"walletSidebarSortParams"`
	WalletSortParams         SortParams         `json:"walletSortParams"`
	ContactSortParams        SortParams         `json:"contactSortParams"`
	PluginSortParams         SortParams         `json:"pluginSortParams"`
}

// FromRecord builds a Profile from a normalized record. The record is not
// normalized again; pass the output of the profile descriptor.
func FromRecord(ownerID string, rec schema.Record) (*Profile, error) {
	canonical, err := schema.Canonicalize(rec)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(canonical)
	if err != nil {
		return nil, fmt.Errorf("encode profile record: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var w wireProfile
	if err := dec.Decode(&w); err != nil {
		return nil, fmt.Errorf("decode profile record: %w", err)
	}

	rowCount, err := intValue(w.TransactionTableRowCount)
	if err != nil {
		return nil, fmt.Errorf("decode profile record: transactionTableRowCount: %w", err)
	}

	p := &Profile{
		ID:                       w.ID,
		OwnerID:                  ownerID,
		Avatar:                   w.Avatar,
		Background:               w.Background,
		Currency:                 w.Currency,
		TimeFormat:               w.TimeFormat,
		HideWalletButtonText:     w.HideWalletButtonText,
		MarketChartOptions:       w.MarketChartOptions,
		Language:                 w.Language,
		Bip39Language:            w.Bip39Language,
		Name:                     w.Name,
		NetworkID:                schema.Native(canonical[FieldNetworkID]),
		Theme:                    w.Theme,
		ScreenshotProtection:     w.ScreenshotProtection,
		BackgroundUpdateLedger:   w.BackgroundUpdateLedger,
		BroadcastPeers:           w.BroadcastPeers,
		LedgerCache:              w.LedgerCache,
		ShowPluginConfirmation:   w.ShowPluginConfirmation,
		TransactionTableRowCount: rowCount,
		WalletLayout:             w.WalletLayout,
		WalletSidebarSortParams:  w.WalletSidebarSortParams,
		WalletSortParams:         w.WalletSortParams,
		ContactSortParams:        w.ContactSortParams,
		PluginSortParams:         w.PluginSortParams,
		record:                   canonical,
	}

	if votes, ok := schema.Native(canonical[FieldUnconfirmedVotes]).([]any); ok {
		p.UnconfirmedVotes = votes
	} else {
		p.UnconfirmedVotes = []any{}
	}
	if filters, ok := schema.Native(canonical[FieldWalletSidebarFilters]).(map[string]any); ok {
		p.WalletSidebarFilters = filters
	} else {
		p.WalletSidebarFilters = map[string]any{}
	}

	declared := make(map[string]struct{})
	for _, f := range Descriptor().Fields() {
		declared[f.Name] = struct{}{}
	}
	for k, v := range canonical {
		if _, ok := declared[k]; ok {
			continue
		}
		if p.Extra == nil {
			p.Extra = make(map[string]any)
		}
		p.Extra[k] = schema.Native(v)
	}

	return p, nil
}

// Record returns a copy of the normalized record the profile was built from.
// Sub-object keys the typed fields do not model are preserved.
func (p *Profile) Record() schema.Record {
	if p.record != nil {
		out, err := schema.Canonicalize(p.record)
		if err == nil {
			return out
		}
	}
	return p.typedRecord()
}

func (p *Profile) typedRecord() schema.Record {
	rec := schema.Record{
		FieldAvatar:                   p.Avatar.Value(),
		FieldBackground:               p.Background,
		FieldCurrency:                 p.Currency,
		FieldTimeFormat:               p.TimeFormat,
		FieldHideWalletButtonText:     p.HideWalletButtonText,
		FieldMarketChartOptions:       p.MarketChartOptions,
		FieldLanguage:                 p.Language,
		FieldBip39Language:            p.Bip39Language,
		FieldName:                     p.Name,
		FieldNetworkID:                p.NetworkID,
		FieldTheme:                    p.Theme,
		FieldScreenshotProtection:     p.ScreenshotProtection,
		FieldBackgroundUpdateLedger:   p.BackgroundUpdateLedger,
		FieldBroadcastPeers:           p.BroadcastPeers,
		FieldLedgerCache:              p.LedgerCache,
		FieldShowPluginConfirmation:   p.ShowPluginConfirmation,
		FieldTransactionTableRowCount: p.TransactionTableRowCount,
		FieldUnconfirmedVotes:         p.UnconfirmedVotes,
		FieldWalletLayout:             p.WalletLayout,
		FieldWalletSidebarSortParams:  p.WalletSidebarSortParams,
		FieldWalletSidebarFilters:     p.WalletSidebarFilters,
		FieldWalletSortParams:         p.WalletSortParams,
		FieldContactSortParams:        p.ContactSortParams,
		FieldPluginSortParams:         p.PluginSortParams,
	}
	if p.ID != "" {
		rec[FieldID] = p.ID
	}
	maps.Copy(rec, p.Extra)

	out, err := schema.Canonicalize(rec)
	if err != nil {
		return rec
	}
	return out
}

func intValue(n json.Number) (int, error) {
	if n == "" {
		return 0, nil
	}
	if i, err := n.Int64(); err == nil {
		return int(i), nil
	}
	f, err := n.Float64()
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

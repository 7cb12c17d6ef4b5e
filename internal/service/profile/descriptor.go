package profile

import (
	"sync"

	"github.com/janisto/wallet-profiles/internal/platform/schema"
)

// SchemaID is the $id of the profile JSON schema.
const SchemaID = "https://wallet-profiles.janisto.dev/schemas/profile.json"

// Profile record field names.
const (
	FieldID                       = "id"
	FieldAvatar                   = "avatar"
	FieldBackground               = "background"
	FieldCurrency                 = "currency"
	FieldTimeFormat               = "timeFormat"
	FieldHideWalletButtonText     = "hideWalletButtonText"
	FieldMarketChartOptions       = "marketChartOptions"
	FieldLanguage                 = "language"
	FieldBip39Language            = "bip39Language"
	FieldName                     = "name"
	FieldNetworkID                = "networkId"
	FieldTheme                    = "theme"
	FieldScreenshotProtection     = "screenshotProtection"
	FieldBackgroundUpdateLedger   = "backgroundUpdateLedger"
	FieldBroadcastPeers           = "broadcastPeers"
	FieldLedgerCache              = "ledgerCache"
	FieldShowPluginConfirmation   = "showPluginConfirmation"
	FieldTransactionTableRowCount = "transactionTableRowCount"
	FieldUnconfirmedVotes         = "unconfirmedVotes"
	FieldWalletLayout             = "walletLayout"
	FieldWalletSidebarSortParams  = "walletSidebarSortParams"
	FieldWalletSidebarFilters     = "walletSidebarFilters"
	FieldWalletSortParams         = "walletSortParams"
	FieldContactSortParams        = "contactSortParams"
	FieldPluginSortParams         = "pluginSortParams"
)

// RequiredFields must be present after normalization.
var RequiredFields = []string{
	FieldBackground,
	FieldCurrency,
	FieldLanguage,
	FieldName,
	FieldNetworkID,
	FieldTheme,
}

var (
	descriptorOnce sync.Once
	descriptor     *schema.Descriptor
)

// Descriptor returns the compiled profile descriptor.
func Descriptor() *schema.Descriptor {
	descriptorOnce.Do(func() {
		descriptor = schema.MustNew(SchemaID, profileFields(), RequiredFields)
	})
	return descriptor
}

func sortParamsShape() schema.Shape {
	return schema.Shape{
		"type": "object",
		"properties": map[string]any{
			"field": map[string]any{"type": "string"},
			"type":  map[string]any{"type": "string"},
		},
	}
}

func sortParams(field, direction string) map[string]any {
	return map[string]any{"field": field, "type": direction}
}

func profileFields() []schema.Field {
	return []schema.Field{
		{
			Name:  FieldID,
			Shape: schema.Shape{"type": "string", "minLength": 1, "maxLength": 16},
		},
		{
			Name: FieldAvatar,
			Shape: schema.Shape{
				"anyOf": []any{
					// bundled image
					map[string]any{"type": "string", "minLength": 1},
					// plugin image
					map[string]any{
						"type": "object",
						"properties": map[string]any{
							"avatarName": map[string]any{"type": "string"},
							"pluginId":   map[string]any{"type": "string"},
						},
					},
					// none, the name initial is rendered instead
					map[string]any{"type": "null"},
				},
			},
		},
		{
			Name:  FieldBackground,
			Shape: schema.Shape{"type": "string", "minLength": 1},
		},
		{
			Name:  FieldCurrency,
			Shape: schema.Shape{"type": "string", "minLength": 3, "maxLength": 3},
		},
		{
			Name:  FieldTimeFormat,
			Shape: schema.Shape{"type": "string", "default": DefaultTimeFormat},
			Rule:  schema.DefaultIfAbsent(FieldTimeFormat, DefaultTimeFormat),
		},
		{
			Name:  FieldHideWalletButtonText,
			Shape: schema.Shape{"type": "boolean"},
			Rule:  schema.DefaultIfAbsent(FieldHideWalletButtonText, false),
		},
		{
			Name: FieldMarketChartOptions,
			Shape: schema.Shape{
				"type": "object",
				"properties": map[string]any{
					"isEnabled":  map[string]any{"type": "boolean"},
					"isExpanded": map[string]any{"type": "boolean"},
					"period":     map[string]any{"type": "string"},
				},
			},
			Rule: schema.DefaultIfFalsy(FieldMarketChartOptions, map[string]any{
				"isEnabled":  true,
				"isExpanded": true,
				"period":     "day",
			}),
		},
		{
			Name:  FieldLanguage,
			Shape: schema.Shape{"type": "string", "minLength": 1},
		},
		{
			Name:  FieldBip39Language,
			Shape: schema.Shape{"type": []any{"string", "null"}},
			Rule:  schema.DefaultIfFalsy(FieldBip39Language, nil),
		},
		{
			Name:  FieldName,
			Shape: schema.Shape{"type": "string", "minLength": 1, "maxLength": 120},
		},
		{
			// Any shape; the NetworkResolver decides whether the id is known.
			Name: FieldNetworkID,
		},
		{
			Name:  FieldTheme,
			Shape: schema.Shape{"type": "string", "minLength": 1},
		},
		{
			Name:  FieldScreenshotProtection,
			Shape: schema.Shape{"type": "boolean"},
			Rule:  schema.DefaultIfAbsent(FieldScreenshotProtection, true),
		},
		{
			Name:  FieldBackgroundUpdateLedger,
			Shape: schema.Shape{"type": "boolean"},
			Rule:  schema.DefaultIfAbsent(FieldBackgroundUpdateLedger, true),
		},
		{
			Name:  FieldBroadcastPeers,
			Shape: schema.Shape{"type": "boolean"},
			Rule:  schema.DefaultIfAbsent(FieldBroadcastPeers, true),
		},
		{
			Name:  FieldLedgerCache,
			Shape: schema.Shape{"type": "boolean"},
			Rule:  schema.DefaultIfFalsy(FieldLedgerCache, false),
		},
		{
			Name:  FieldShowPluginConfirmation,
			Shape: schema.Shape{"type": "boolean"},
			Rule:  schema.DefaultUnlessBool(FieldShowPluginConfirmation, true),
		},
		{
			Name:  FieldTransactionTableRowCount,
			Shape: schema.Shape{"type": "integer"},
			Rule:  schema.DefaultIfFalsy(FieldTransactionTableRowCount, DefaultTransactionTableRowCount),
		},
		{
			Name:  FieldUnconfirmedVotes,
			Shape: schema.Shape{"type": "array"},
			Rule:  schema.DefaultIfFalsy(FieldUnconfirmedVotes, []any{}),
		},
		{
			Name:  FieldWalletLayout,
			Shape: schema.Shape{"type": "string"},
			Rule:  schema.DefaultIfFalsy(FieldWalletLayout, DefaultWalletLayout),
		},
		{
			Name:  FieldWalletSidebarSortParams,
			Shape: sortParamsShape(),
			Rule:  schema.DefaultIfFalsy(FieldWalletSidebarSortParams, sortParams("name", "asc")),
		},
		{
			Name:  FieldWalletSidebarFilters,
			Shape: schema.Shape{"type": "object"},
			Rule:  schema.DefaultIfFalsy(FieldWalletSidebarFilters, map[string]any{}),
		},
		{
			Name:  FieldWalletSortParams,
			Shape: sortParamsShape(),
			Rule:  schema.DefaultIfFalsy(FieldWalletSortParams, sortParams("balance", "desc")),
		},
		{
			Name:  FieldContactSortParams,
			Shape: sortParamsShape(),
			Rule:  schema.DefaultIfFalsy(FieldContactSortParams, sortParams("name", "asc")),
		},
		{
			Name:  FieldPluginSortParams,
			Shape: sortParamsShape(),
			Rule:  schema.DefaultIfFalsy(FieldPluginSortParams, sortParams("id", "asc")),
		},
	}
}

// Defaults used by the descriptor rules.
const (
	DefaultTimeFormat               = "Default"
	DefaultTransactionTableRowCount = 10
	DefaultWalletLayout             = "grid"
)

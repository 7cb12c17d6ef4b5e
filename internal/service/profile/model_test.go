package profile

import (
	"encoding/json"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/go-cmp/cmp"

	"github.com/janisto/wallet-profiles/internal/platform/schema"
	"github.com/janisto/wallet-profiles/internal/testutil"
)

func TestAvatarJSON(t *testing.T) {
	tests := []struct {
		name   string
		avatar Avatar
		json   string
	}{
		{"none", Avatar{}, `null`},
		{"builtin", BuiltInAvatar("avatar-3"), `"avatar-3"`},
		{"plugin", PluginAvatar("ark-avatars", "cat"), `{"avatarName":"cat","pluginId":"ark-avatars"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.avatar)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(data) != tt.json {
				t.Fatalf("expected %s, got %s", tt.json, data)
			}

			var got Avatar
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got != tt.avatar {
				t.Fatalf("expected %+v, got %+v", tt.avatar, got)
			}
		})
	}
}

func TestAvatarCBOR(t *testing.T) {
	for _, avatar := range []Avatar{{}, BuiltInAvatar("avatar-1"), PluginAvatar("p", "n")} {
		data, err := cbor.Marshal(avatar)
		if err != nil {
			t.Fatalf("marshal %v: %v", avatar.Kind, err)
		}
		var got Avatar
		if err := cbor.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal %v: %v", avatar.Kind, err)
		}
		if got != avatar {
			t.Fatalf("expected %+v, got %+v", avatar, got)
		}
	}
}

func TestAvatarRejectsOtherShapes(t *testing.T) {
	var a Avatar
	if err := json.Unmarshal([]byte(`12`), &a); err == nil {
		t.Fatal("expected an error for a numeric avatar")
	}
}

func TestAvatarInitial(t *testing.T) {
	if got := (Avatar{}).Initial("Ärla"); got != "Ä" {
		t.Fatalf("expected first rune, got %q", got)
	}
	if got := (Avatar{}).Initial(""); got != "" {
		t.Fatalf("expected empty initial for empty name, got %q", got)
	}
	if got := BuiltInAvatar("a").Initial("Alice"); got != "" {
		t.Fatalf("expected no initial for an image avatar, got %q", got)
	}
}

func TestFromRecord(t *testing.T) {
	rec := mustNormalize(t, testutil.ProfileRecord(map[string]any{
		FieldID:                       "a1b2c3d4e5f60718",
		FieldAvatar:                   map[string]any{"avatarName": "cat", "pluginId": "ark-avatars"},
		FieldBip39Language:            "english",
		FieldNetworkID:                map[string]any{"chain": 1},
		FieldTransactionTableRowCount: 50,
		FieldUnconfirmedVotes:         []any{"vote-1"},
		FieldWalletSidebarFilters:     map[string]any{"hideEmpty": true},
		"legacyFlag":                  "x",
	}))

	p, err := FromRecord("user-1", rec)
	if err != nil {
		t.Fatalf("FromRecord: %v", err)
	}

	if p.ID != "a1b2c3d4e5f60718" || p.OwnerID != "user-1" {
		t.Fatalf("unexpected identity: %q %q", p.ID, p.OwnerID)
	}
	if p.Avatar != PluginAvatar("ark-avatars", "cat") {
		t.Fatalf("unexpected avatar: %+v", p.Avatar)
	}
	if p.Bip39Language == nil || *p.Bip39Language != "english" {
		t.Fatalf("unexpected bip39Language: %v", p.Bip39Language)
	}
	if diff := cmp.Diff(map[string]any{"chain": int64(1)}, p.NetworkID); diff != "" {
		t.Fatalf("networkId mismatch (-want +got):\n%s", diff)
	}
	if p.TransactionTableRowCount != 50 {
		t.Fatalf("expected row count 50, got %d", p.TransactionTableRowCount)
	}
	if diff := cmp.Diff([]any{"vote-1"}, p.UnconfirmedVotes); diff != "" {
		t.Fatalf("votes mismatch (-want +got):\n%s", diff)
	}
	if p.WalletSidebarFilters["hideEmpty"] != true {
		t.Fatalf("unexpected filters: %v", p.WalletSidebarFilters)
	}
	if p.WalletSortParams != (SortParams{Field: "balance", Type: "desc"}) {
		t.Fatalf("unexpected wallet sort params: %+v", p.WalletSortParams)
	}
	if p.MarketChartOptions != (MarketChartOptions{IsEnabled: true, IsExpanded: true, Period: "day"}) {
		t.Fatalf("unexpected market chart options: %+v", p.MarketChartOptions)
	}
	if !p.ShowPluginConfirmation || !p.ScreenshotProtection || p.HideWalletButtonText {
		t.Fatalf("unexpected boolean defaults: %+v", p)
	}
	if diff := cmp.Diff(map[string]any{"legacyFlag": "x"}, p.Extra); diff != "" {
		t.Fatalf("extra mismatch (-want +got):\n%s", diff)
	}
}

func TestProfileRecordRoundTrip(t *testing.T) {
	rec := mustNormalize(t, testutil.ProfileRecord(map[string]any{
		FieldMarketChartOptions: map[string]any{"isEnabled": false, "period": "week", "theme": "light"},
	}))

	p, err := FromRecord("user-1", rec)
	if err != nil {
		t.Fatalf("FromRecord: %v", err)
	}
	if diff := cmp.Diff(rec, p.Record()); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}

	// The returned record is a copy.
	p.Record()[FieldName] = "changed"
	if p.Record()[FieldName] != "Alice" {
		t.Fatal("Record must not expose internal state")
	}
}

func TestTypedRecordNormalizes(t *testing.T) {
	lang := "english"
	p := &Profile{
		ID:                       "p1",
		Avatar:                   BuiltInAvatar("avatar-2"),
		Background:               "bg",
		Currency:                 "EUR",
		TimeFormat:               "24h",
		Language:                 "fi",
		Bip39Language:            &lang,
		Name:                     "Bob",
		NetworkID:                "ark.devnet",
		Theme:                    "light",
		ShowPluginConfirmation:   true,
		TransactionTableRowCount: 20,
		UnconfirmedVotes:         []any{},
		WalletLayout:             "table",
		WalletSidebarFilters:     map[string]any{},
		Extra:                    map[string]any{"legacyFlag": "x"},
	}

	rec := p.Record()
	if _, err := Descriptor().Normalize(rec); err != nil {
		t.Fatalf("typed record should satisfy the descriptor: %v", err)
	}
	if rec[FieldAvatar] != "avatar-2" || rec["legacyFlag"] != "x" || rec[FieldTransactionTableRowCount] != json.Number("20") {
		t.Fatalf("unexpected typed record: %v", rec)
	}
}

func TestFromRecordRejectsUnnormalizedValues(t *testing.T) {
	_, err := FromRecord("user-1", schema.Record{FieldHideWalletButtonText: "yes"})
	if err == nil {
		t.Fatal("expected a decode error")
	}
}

package profile

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/janisto/wallet-profiles/internal/platform/schema"
)

// Service errors
var (
	ErrNotFound       = errors.New("profile not found")
	ErrAlreadyExists  = errors.New("profile already exists")
	ErrIDMismatch     = errors.New("profile id cannot be changed")
	ErrInvalidID      = errors.New("profile id cannot be used")
	ErrUnknownNetwork = errors.New("unknown network")
	// ErrNetworksUnavailable means the network list could not be loaded.
	ErrNetworksUnavailable = errors.New("network list unavailable")
)

// Service defines profile operations for one owner at a time.
//
// Implementations must pass every record through a Normalizer before storing
// it, so stored profiles always satisfy the profile descriptor.
type Service interface {
	Create(ctx context.Context, ownerID string, rec schema.Record) (*Profile, error)
	Get(ctx context.Context, ownerID, id string) (*Profile, error)
	// List returns the owner's profiles sorted by name, then id.
	List(ctx context.Context, ownerID string) ([]*Profile, error)
	// Update merges patch over the stored record. Keys present in the patch
	// replace stored values, explicit nulls included.
	Update(ctx context.Context, ownerID, id string, patch schema.Record) (*Profile, error)
	Delete(ctx context.Context, ownerID, id string) error
}

// NetworkResolver validates network identifiers.
type NetworkResolver interface {
	Resolve(ctx context.Context, networkID any) error
}

// StaticNetworks accepts network ids from a fixed list. An empty list accepts
// every id.
type StaticNetworks []string

// ParseNetworks splits a comma separated list, dropping blanks.
func ParseNetworks(s string) StaticNetworks {
	var out StaticNetworks
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (n StaticNetworks) Resolve(_ context.Context, networkID any) error {
	if len(n) == 0 {
		return nil
	}
	id := fmt.Sprint(schema.Native(networkID))
	if slices.Contains(n, id) {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnknownNetwork, id)
}

// Normalizer applies the profile descriptor and network resolution shared by
// every store.
type Normalizer struct {
	descriptor *schema.Descriptor
	networks   NetworkResolver
}

// NewNormalizer returns a Normalizer for the profile descriptor. A nil
// resolver accepts every network id.
func NewNormalizer(networks NetworkResolver) *Normalizer {
	if networks == nil {
		networks = StaticNetworks(nil)
	}
	return &Normalizer{descriptor: Descriptor(), networks: networks}
}

// Networks returns the resolver used by Prepare.
func (n *Normalizer) Networks() NetworkResolver {
	return n.networks
}

// Normalize runs the descriptor over rec without touching storage.
func (n *Normalizer) Normalize(rec schema.Record) (schema.Record, error) {
	return n.descriptor.Normalize(rec)
}

// Prepare normalizes rec and resolves its network id.
func (n *Normalizer) Prepare(ctx context.Context, rec schema.Record) (schema.Record, error) {
	out, err := n.descriptor.Normalize(rec)
	if err != nil {
		return nil, err
	}
	if err := n.networks.Resolve(ctx, out[FieldNetworkID]); err != nil {
		return nil, err
	}
	return out, nil
}

// PrepareCreate normalizes a new record and assigns an id when it has none.
func (n *Normalizer) PrepareCreate(ctx context.Context, rec schema.Record) (schema.Record, error) {
	out, err := n.Prepare(ctx, rec)
	if err != nil {
		return nil, err
	}
	if _, ok := out[FieldID]; !ok {
		out[FieldID] = NewID()
	}
	if err := checkID(profileID(out)); err != nil {
		return nil, err
	}
	return out, nil
}

// reservedIDs collide with static routes under /profiles.
var reservedIDs = []string{"schema", "normalize"}

// checkID rejects ids that cannot appear as a single path segment or as a
// Firestore document id.
func checkID(id string) error {
	switch {
	case strings.Contains(id, "/"):
		return fmt.Errorf("%w: %q contains '/'", ErrInvalidID, id)
	case id == "." || id == "..":
		return fmt.Errorf("%w: %q is a relative path segment", ErrInvalidID, id)
	case slices.Contains(reservedIDs, id):
		return fmt.Errorf("%w: %q is reserved", ErrInvalidID, id)
	}
	return nil
}

// PrepareUpdate merges patch over stored and normalizes the result.
func (n *Normalizer) PrepareUpdate(ctx context.Context, id string, stored, patch schema.Record) (schema.Record, error) {
	if v, ok := patch[FieldID]; ok && v != id {
		return nil, ErrIDMismatch
	}
	merged := Merge(stored, patch)
	merged[FieldID] = id
	return n.Prepare(ctx, merged)
}

// Merge returns a shallow merge of patch over base. Neither input is modified.
func Merge(base, patch schema.Record) schema.Record {
	out := make(schema.Record, len(base)+len(patch))
	maps.Copy(out, base)
	maps.Copy(out, patch)
	return out
}

// NewID returns a random 16 character lowercase hex profile id.
func NewID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:8])
}

// profileID returns the id of a prepared record.
func profileID(rec schema.Record) string {
	id, _ := rec[FieldID].(string)
	return id
}

// categorizeError converts errors to audit-safe categories.
func categorizeError(err error) string {
	var validationErr *schema.ValidationError
	switch {
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrNetworksUnavailable):
		return "unavailable"
	case errors.As(err, &validationErr),
		errors.Is(err, ErrIDMismatch),
		errors.Is(err, ErrInvalidID),
		errors.Is(err, ErrUnknownNetwork),
		errors.Is(err, schema.ErrInvalidRecord):
		return "invalid"
	default:
		return "internal_error"
	}
}

func sortProfiles(profiles []*Profile) {
	slices.SortFunc(profiles, func(a, b *Profile) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}

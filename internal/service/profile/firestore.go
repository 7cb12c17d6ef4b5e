package profile

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/janisto/wallet-profiles/internal/platform/schema"
)

const (
	usersCollection    = "users"
	profilesCollection = "profiles"
)

// firestoreProfile maps to the Firestore document structure.
type firestoreProfile struct {
	Data      map[string]any `firestore:"data"`
	CreatedAt time.Time      `firestore:"created_at"`
	UpdatedAt time.Time      `firestore:"updated_at"`
}

func (fp firestoreProfile) profile(ownerID string) (*Profile, error) {
	p, err := FromRecord(ownerID, fp.Data)
	if err != nil {
		return nil, err
	}
	p.CreatedAt = fp.CreatedAt
	p.UpdatedAt = fp.UpdatedAt
	return p, nil
}

func storedData(rec schema.Record) map[string]any {
	data, _ := schema.Native(rec).(map[string]any)
	return data
}

// FirestoreStore implements Service using Firestore. Profiles live under
// users/{ownerID}/profiles/{id}; every mutation runs in a transaction.
type FirestoreStore struct {
	client     *firestore.Client
	normalizer *Normalizer
}

// NewFirestoreStore creates a Firestore-backed store.
func NewFirestoreStore(client *firestore.Client, normalizer *Normalizer) *FirestoreStore {
	if normalizer == nil {
		normalizer = NewNormalizer(nil)
	}
	return &FirestoreStore{client: client, normalizer: normalizer}
}

func (s *FirestoreStore) profiles(ownerID string) *firestore.CollectionRef {
	return s.client.Collection(usersCollection).Doc(ownerID).Collection(profilesCollection)
}

// Create stores a new profile. The transaction rejects an existing id.
func (s *FirestoreStore) Create(ctx context.Context, ownerID string, rec schema.Record) (*Profile, error) {
	var result *Profile

	prepared, err := s.normalizer.PrepareCreate(ctx, rec)
	if err == nil {
		id := profileID(prepared)
		docRef := s.profiles(ownerID).Doc(id)
		now := time.Now().UTC()

		err = s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
			doc, err := tx.Get(docRef)
			if err == nil && doc.Exists() {
				return ErrAlreadyExists
			}
			if err != nil && status.Code(err) != codes.NotFound {
				return err
			}

			fp := firestoreProfile{Data: storedData(prepared), CreatedAt: now, UpdatedAt: now}
			if err := tx.Create(docRef, fp); err != nil {
				return err
			}

			result, err = fp.profile(ownerID)
			return err
		})
	}
	if err != nil && status.Code(err) == codes.AlreadyExists {
		err = ErrAlreadyExists
	}

	audit(ctx, "create", ownerID, idOf(result, prepared), err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Get retrieves one profile.
func (s *FirestoreStore) Get(ctx context.Context, ownerID, id string) (*Profile, error) {
	doc, err := s.profiles(ownerID).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var fp firestoreProfile
	if err := doc.DataTo(&fp); err != nil {
		return nil, err
	}
	return fp.profile(ownerID)
}

// List returns every profile of the owner sorted by name, then id.
func (s *FirestoreStore) List(ctx context.Context, ownerID string) ([]*Profile, error) {
	iter := s.profiles(ownerID).Documents(ctx)
	defer iter.Stop()

	profiles := make([]*Profile, 0)
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}

		var fp firestoreProfile
		if err := doc.DataTo(&fp); err != nil {
			return nil, err
		}
		p, err := fp.profile(ownerID)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}

	sortProfiles(profiles)
	return profiles, nil
}

// Update merges patch over the stored record inside a transaction.
func (s *FirestoreStore) Update(ctx context.Context, ownerID, id string, patch schema.Record) (*Profile, error) {
	docRef := s.profiles(ownerID).Doc(id)

	var result *Profile

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(docRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return ErrNotFound
			}
			return err
		}

		var fp firestoreProfile
		if err := doc.DataTo(&fp); err != nil {
			return err
		}

		prepared, err := s.normalizer.PrepareUpdate(ctx, id, fp.Data, patch)
		if err != nil {
			return err
		}
		fp.Data = storedData(prepared)
		fp.UpdatedAt = time.Now().UTC()

		if err := tx.Set(docRef, fp); err != nil {
			return err
		}

		result, err = fp.profile(ownerID)
		return err
	})

	audit(ctx, "update", ownerID, id, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes a profile, failing with ErrNotFound when it does not exist.
func (s *FirestoreStore) Delete(ctx context.Context, ownerID, id string) error {
	docRef := s.profiles(ownerID).Doc(id)

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(docRef); err != nil {
			if status.Code(err) == codes.NotFound {
				return ErrNotFound
			}
			return err
		}
		return tx.Delete(docRef)
	})

	audit(ctx, "delete", ownerID, id, err)
	return err
}

// Compile-time interface check
var _ Service = (*FirestoreStore)(nil)

package mongo

import (
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/medcore/hospital-gateway/internal/core/domain"
)

func dupKey(msg string) error {
	return mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: msg}}}
}

func TestDuplicateOr(t *testing.T) {
	cases := []struct {
		err  error
		want error
	}{
		{dupKey("E11000 duplicate key error collection: hospital.users index: uniq_email dup key"), domain.ErrDuplicateEmail},
		{dupKey("E11000 duplicate key error collection: hospital.users index: uniq_username dup key"), domain.ErrDuplicateUsername},
		{dupKey(`E11000 duplicate key error collection: hospital.users index: uniq_username dup key: { username: "email_admin" }`), domain.ErrDuplicateUsername},
		{dupKey(`E11000 duplicate key error collection: hospital.users index: uniq_username dup key: { username: "uniq_email" }`), domain.ErrDuplicateUsername},
	}
	for _, tc := range cases {
		if got := duplicateOr(tc.err, "insert user"); !errors.Is(got, tc.want) {
			t.Fatalf("expected %v, got %v", tc.want, got)
		}
	}

	other := errors.New("connection reset")
	got := duplicateOr(other, "insert user")
	if !errors.Is(got, other) || got.Error() != "insert user: connection reset" {
		t.Fatalf("unexpected wrap: %v", got)
	}
}

func TestMongoUser_RoundTrip(t *testing.T) {
	oid := primitive.NewObjectID()
	created := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	u := &domain.User{
		ID:           oid.Hex(),
		Username:     "dr_smith",
		PasswordHash: "$2a$10$hash",
		Email:        "smith@hospital.org",
		FirstName:    "John",
		Role:         domain.RoleDoctor,
		Active:       true,
		CreatedAt:    created,
		UpdatedAt:    created.Add(time.Hour),
	}

	doc := toMongoUser(u)
	if doc.ID != oid || doc.Role != "DOCTOR" {
		t.Fatalf("unexpected doc: %+v", doc)
	}

	back := doc.toDomain()
	if back.ID != u.ID || back.Username != u.Username || back.Email != u.Email || back.Role != u.Role || !back.Active {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", back, u)
	}
	if !back.CreatedAt.Equal(u.CreatedAt) || !back.UpdatedAt.Equal(u.UpdatedAt) {
		t.Fatalf("timestamps changed: %v %v", back.CreatedAt, back.UpdatedAt)
	}
}

func TestToMongoUser_InvalidIDLeavesZeroID(t *testing.T) {
	doc := toMongoUser(&domain.User{ID: "u1", Username: "x"})
	if !doc.ID.IsZero() {
		t.Fatalf("expected zero id, got %s", doc.ID.Hex())
	}
}

package access

import (
	"context"
	"testing"

	apperrors "github.com/greentable/vtt/internal/platform/errors"
)

type fakeDirectory struct {
	owner   string
	members map[string]bool
	err     error
}

func (f fakeDirectory) CampaignOwner(_ context.Context, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.owner, nil
}

func (f fakeDirectory) IsMember(_ context.Context, _ string, userID string) (bool, error) {
	return f.members[userID], nil
}

func TestResolveGM(t *testing.T) {
	gate := NewGate(fakeDirectory{owner: "gm1"})

	grant, err := gate.Resolve(context.Background(), "c1", "gm1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if grant.Role != RoleGM || !grant.IsGM() || !grant.Viewer() {
		t.Fatalf("expected GM grant, got %+v", grant)
	}
}

func TestResolvePlayer(t *testing.T) {
	gate := NewGate(fakeDirectory{owner: "gm1", members: map[string]bool{"p1": true}})

	grant, err := gate.Resolve(context.Background(), "c1", "p1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if grant.Role != RolePlayer || grant.IsGM() || !grant.Viewer() {
		t.Fatalf("expected player grant, got %+v", grant)
	}
}

func TestResolveDenied(t *testing.T) {
	gate := NewGate(fakeDirectory{owner: "gm1", members: map[string]bool{"p1": true}})

	_, err := gate.Resolve(context.Background(), "c1", "stranger")
	if apperrors.CodeOf(err) != apperrors.CodeAccessDenied {
		t.Fatalf("expected ACCESS_DENIED, got %v", err)
	}
}

func TestResolveCampaignNotFound(t *testing.T) {
	notFound := apperrors.New(apperrors.CodeNotFound, "campaign not found")
	gate := NewGate(fakeDirectory{err: notFound})

	_, err := gate.Resolve(context.Background(), "missing", "p1")
	if apperrors.CodeOf(err) != apperrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestResolveRequiresIdentity(t *testing.T) {
	gate := NewGate(fakeDirectory{owner: "gm1"})

	_, err := gate.Resolve(context.Background(), "c1", "  ")
	if apperrors.CodeOf(err) != apperrors.CodeUnauthenticated {
		t.Fatalf("expected UNAUTHENTICATED, got %v", err)
	}

	_, err = gate.Resolve(context.Background(), "", "p1")
	if apperrors.CodeOf(err) != apperrors.CodeValidationFailed {
		t.Fatalf("expected VALIDATION_FAILED, got %v", err)
	}
}

func TestRequireGM(t *testing.T) {
	gate := NewGate(fakeDirectory{owner: "gm1", members: map[string]bool{"p1": true}})

	if _, err := gate.RequireGM(context.Background(), "c1", "gm1"); err != nil {
		t.Fatalf("require gm for owner: %v", err)
	}

	_, err := gate.RequireGM(context.Background(), "c1", "p1")
	if apperrors.CodeOf(err) != apperrors.CodeAccessDenied {
		t.Fatalf("expected ACCESS_DENIED for player, got %v", err)
	}
}

func TestRoleString(t *testing.T) {
	if RoleGM.String() != "gm" || RolePlayer.String() != "player" || RoleNone.String() != "none" {
		t.Fatal("unexpected role labels")
	}
}

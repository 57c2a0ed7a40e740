package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"famigo/internal/models"
)

func TestCreateFamily(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "owner@example.com")

	family, err := env.families.CreateFamily("Smiths", owner.ID, nil)
	if err != nil {
		t.Fatalf("CreateFamily() error = %v", err)
	}

	if len(family.SecretCode) != familySecretCodeLength {
		t.Errorf("secret code length = %d, want %d", len(family.SecretCode), familySecretCodeLength)
	}

	member, err := env.families.EnsureParent(owner.ID, family.ID)
	if err != nil {
		t.Fatalf("owner should be a PARENT member: %v", err)
	}

	// The owner's wallet exists from the moment the membership does
	wallet, err := env.wallets.GetWalletForMember(member.ID)
	if err != nil {
		t.Fatalf("GetWalletForMember() error = %v", err)
	}
	if wallet.Balance != 0 {
		t.Errorf("new wallet balance = %d, want 0", wallet.Balance)
	}
}

func TestJoinBySecretCode(t *testing.T) {
	env := newTestEnv(t)
	family, _, child, childMember := env.createFamily(t)

	if childMember.Role != models.RoleChild {
		t.Errorf("joined role = %v, want CHILD", childMember.Role)
	}

	if _, err := env.wallets.GetWalletForMember(childMember.ID); err != nil {
		t.Errorf("joined member should have a wallet: %v", err)
	}

	t.Run("already a member", func(t *testing.T) {
		_, err := env.families.JoinBySecretCode(child.ID, family.SecretCode, nil)
		if !errors.Is(err, ErrAlreadyMember) {
			t.Errorf("JoinBySecretCode() error = %v, want ErrAlreadyMember", err)
		}
	})

	t.Run("unknown code", func(t *testing.T) {
		stranger := env.createUser(t, "stranger@example.com")
		_, err := env.families.JoinBySecretCode(stranger.ID, "NOSUCHCODE42", nil)
		if !errors.Is(err, ErrFamilyNotFound) {
			t.Errorf("JoinBySecretCode() error = %v, want ErrFamilyNotFound", err)
		}
	})
}

func TestInviteLifecycle(t *testing.T) {
	env := newTestEnv(t)
	family, parent, child, _ := env.createFamily(t)
	ctx := context.Background()

	t.Run("child cannot invite", func(t *testing.T) {
		_, err := env.families.CreateInvite(ctx, family.ID, child.ID, nil, 0)
		if !errors.Is(err, ErrNotParent) {
			t.Errorf("CreateInvite() error = %v, want ErrNotParent", err)
		}
	})

	invite, err := env.families.CreateInvite(ctx, family.ID, parent.ID, nil, 0)
	if err != nil {
		t.Fatalf("CreateInvite() error = %v", err)
	}
	if len(invite.Code) != inviteCodeLength {
		t.Errorf("invite code length = %d, want %d", len(invite.Code), inviteCodeLength)
	}
	if invite.ExpiresAt == nil || !invite.ExpiresAt.After(time.Now()) {
		t.Error("invite should carry a future expiry")
	}

	guest := env.createUser(t, "guest@example.com")
	member, err := env.families.JoinByInvite(guest.ID, invite.Code, nil)
	if err != nil {
		t.Fatalf("JoinByInvite() error = %v", err)
	}
	if member.FamilyID != family.ID || member.Role != models.RoleChild {
		t.Errorf("JoinByInvite() member = %+v, want CHILD in %v", member, family.ID)
	}

	t.Run("invite is single use", func(t *testing.T) {
		second := env.createUser(t, "second@example.com")
		_, err := env.families.JoinByInvite(second.ID, invite.Code, nil)
		if !errors.Is(err, ErrInviteNotUsable) {
			t.Errorf("JoinByInvite() error = %v, want ErrInviteNotUsable", err)
		}
	})

	t.Run("revoked invite cannot be used", func(t *testing.T) {
		revocable, err := env.families.CreateInvite(ctx, family.ID, parent.ID, nil, 0)
		if err != nil {
			t.Fatalf("CreateInvite() error = %v", err)
		}
		if err := env.families.RevokeInvite(revocable.Code, parent.ID); err != nil {
			t.Fatalf("RevokeInvite() error = %v", err)
		}

		third := env.createUser(t, "third@example.com")
		_, err = env.families.JoinByInvite(third.ID, revocable.Code, nil)
		if !errors.Is(err, ErrInviteNotUsable) {
			t.Errorf("JoinByInvite() error = %v, want ErrInviteNotUsable", err)
		}
	})

	t.Run("unknown invite", func(t *testing.T) {
		_, err := env.families.JoinByInvite(guest.ID, "DOESNOTEXIST", nil)
		if !errors.Is(err, ErrInviteNotFound) {
			t.Errorf("JoinByInvite() error = %v, want ErrInviteNotFound", err)
		}
	})
}

func TestGetFamilyRequiresMembership(t *testing.T) {
	env := newTestEnv(t)
	family, parent, _, _ := env.createFamily(t)

	got, err := env.families.GetFamily(family.ID, parent.ID)
	if err != nil {
		t.Fatalf("GetFamily() error = %v", err)
	}
	if len(got.Members) != 2 {
		t.Errorf("GetFamily() members = %d, want 2", len(got.Members))
	}

	outsider := env.createUser(t, "outsider@example.com")
	if _, err := env.families.GetFamily(family.ID, outsider.ID); !errors.Is(err, ErrNotFamilyMember) {
		t.Errorf("GetFamily() error = %v, want ErrNotFamilyMember", err)
	}
}

func TestListFamiliesForUser(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "multi@example.com")

	for _, name := range []string{"First", "Second"} {
		if _, err := env.families.CreateFamily(name, user.ID, nil); err != nil {
			t.Fatalf("CreateFamily(%s) error = %v", name, err)
		}
	}

	families, err := env.families.ListFamiliesForUser(user.ID)
	if err != nil {
		t.Fatalf("ListFamiliesForUser() error = %v", err)
	}
	if len(families) != 2 {
		t.Errorf("ListFamiliesForUser() = %d families, want 2", len(families))
	}
}

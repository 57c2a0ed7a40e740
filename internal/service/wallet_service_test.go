package service

import (
	"errors"
	"testing"

	"famigo/internal/models"
	"famigo/internal/repository"
)

func TestAdjust(t *testing.T) {
	env := newTestEnv(t)
	_, parent, child, childMember := env.createFamily(t)

	reason := "pocket money"
	wallet, err := env.wallets.Adjust(childMember.ID, parent.ID, 50, &reason)
	if err != nil {
		t.Fatalf("Adjust() error = %v", err)
	}
	if wallet.Balance != 50 {
		t.Errorf("balance = %d, want 50", wallet.Balance)
	}

	t.Run("adjustments may go negative", func(t *testing.T) {
		wallet, err := env.wallets.Adjust(childMember.ID, parent.ID, -100, nil)
		if err != nil {
			t.Fatalf("Adjust() error = %v", err)
		}
		if wallet.Balance != -50 {
			t.Errorf("balance = %d, want -50", wallet.Balance)
		}
	})

	t.Run("child cannot adjust", func(t *testing.T) {
		_, err := env.wallets.Adjust(childMember.ID, child.ID, 1000, nil)
		if !errors.Is(err, ErrNotParent) {
			t.Errorf("Adjust() error = %v, want ErrNotParent", err)
		}
	})

	t.Run("ledger matches balance", func(t *testing.T) {
		walletRepo := repository.NewWalletRepository(env.db)
		sum, err := walletRepo.SumTransactions(wallet.ID)
		if err != nil {
			t.Fatalf("SumTransactions() error = %v", err)
		}
		current, _ := env.wallets.GetWalletForMember(childMember.ID)
		if sum != current.Balance {
			t.Errorf("ledger sum = %d, balance = %d; must match", sum, current.Balance)
		}
	})
}

func TestDebitGuards(t *testing.T) {
	env := newTestEnv(t)
	_, parent, _, childMember := env.createFamily(t)
	env.givePoints(t, childMember.ID, parent.ID, 30)

	wallet, err := env.wallets.GetWalletForMember(childMember.ID)
	if err != nil {
		t.Fatalf("GetWalletForMember() error = %v", err)
	}

	t.Run("insufficient funds", func(t *testing.T) {
		err := env.wallets.Debit(env.db, wallet.ID, 31, nil, nil, nil)
		if !errors.Is(err, ErrInsufficientFunds) {
			t.Errorf("Debit() error = %v, want ErrInsufficientFunds", err)
		}

		// A failed debit leaves no trace in the ledger
		current, _ := env.wallets.GetWalletForMember(childMember.ID)
		if current.Balance != 30 {
			t.Errorf("balance after failed debit = %d, want 30", current.Balance)
		}
	})

	t.Run("exact balance drains to zero", func(t *testing.T) {
		if err := env.wallets.Debit(env.db, wallet.ID, 30, nil, nil, nil); err != nil {
			t.Fatalf("Debit() error = %v", err)
		}
		current, _ := env.wallets.GetWalletForMember(childMember.ID)
		if current.Balance != 0 {
			t.Errorf("balance = %d, want 0", current.Balance)
		}
	})

	t.Run("non-positive amounts rejected", func(t *testing.T) {
		for _, amount := range []int{0, -5} {
			if err := env.wallets.Debit(env.db, wallet.ID, amount, nil, nil, nil); !errors.Is(err, ErrInvalidAmount) {
				t.Errorf("Debit(%d) error = %v, want ErrInvalidAmount", amount, err)
			}
		}
	})
}

func TestCreditRequiresPositiveAmount(t *testing.T) {
	env := newTestEnv(t)
	_, parent, _, childMember := env.createFamily(t)
	env.givePoints(t, childMember.ID, parent.ID, 5)

	wallet, err := env.wallets.GetWalletForMember(childMember.ID)
	if err != nil {
		t.Fatalf("GetWalletForMember() error = %v", err)
	}

	for _, amount := range []int{0, -3} {
		if err := env.wallets.Credit(env.db, wallet.ID, amount, nil, nil, nil, nil); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("Credit(%d) error = %v, want ErrInvalidAmount", amount, err)
		}
	}

	// Only the initial adjustment may appear in the ledger
	walletRepo := repository.NewWalletRepository(env.db)
	transactions, err := walletRepo.ListTransactions(wallet.ID)
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(transactions) != 1 {
		t.Errorf("ledger entries = %d, want 1", len(transactions))
	}
	current, _ := env.wallets.GetWalletForMember(childMember.ID)
	if current.Balance != 5 {
		t.Errorf("balance = %d, want 5", current.Balance)
	}
}

func TestGetPointsForUser(t *testing.T) {
	env := newTestEnv(t)
	_, parent, child, childMember := env.createFamily(t)
	env.givePoints(t, childMember.ID, parent.ID, 25)

	points, err := env.wallets.GetPointsForUser(child.ID)
	if err != nil {
		t.Fatalf("GetPointsForUser() error = %v", err)
	}
	if len(points) != 1 {
		t.Fatalf("GetPointsForUser() = %d entries, want 1", len(points))
	}
	if points[0].Balance != 25 {
		t.Errorf("balance = %d, want 25", points[0].Balance)
	}
	if points[0].FamilyName != "The Testers" {
		t.Errorf("family name = %q, want The Testers", points[0].FamilyName)
	}
}

func TestListTransactionsAccess(t *testing.T) {
	env := newTestEnv(t)
	family, parent, child, childMember := env.createFamily(t)
	env.givePoints(t, childMember.ID, parent.ID, 10)

	wallet, _ := env.wallets.GetWalletForMember(childMember.ID)

	t.Run("owner can read", func(t *testing.T) {
		transactions, err := env.wallets.ListTransactions(wallet.ID, child.ID)
		if err != nil {
			t.Fatalf("ListTransactions() error = %v", err)
		}
		if len(transactions) != 1 || transactions[0].Type != models.TransactionAdjust {
			t.Errorf("transactions = %+v, want one ADJUST entry", transactions)
		}
	})

	t.Run("parent can read", func(t *testing.T) {
		if _, err := env.wallets.ListTransactions(wallet.ID, parent.ID); err != nil {
			t.Errorf("ListTransactions() error = %v", err)
		}
	})

	t.Run("sibling child cannot read", func(t *testing.T) {
		sibling := env.createUser(t, "sibling@example.com")
		if _, err := env.families.JoinBySecretCode(sibling.ID, family.SecretCode, nil); err != nil {
			t.Fatalf("JoinBySecretCode() error = %v", err)
		}

		_, err := env.wallets.ListTransactions(wallet.ID, sibling.ID)
		if !errors.Is(err, ErrNotParent) {
			t.Errorf("ListTransactions() error = %v, want ErrNotParent", err)
		}
	})

	t.Run("outsider cannot read", func(t *testing.T) {
		outsider := env.createUser(t, "outsider@example.com")
		_, err := env.wallets.ListTransactions(wallet.ID, outsider.ID)
		if !errors.Is(err, ErrNotFamilyMember) {
			t.Errorf("ListTransactions() error = %v, want ErrNotFamilyMember", err)
		}
	})
}

package service

import (
	"errors"
	"testing"

	"famigo/internal/models"
	"famigo/internal/repository"
)

func TestRedemptionFlow(t *testing.T) {
	env := newTestEnv(t)
	family, parent, child, childMember := env.createFamily(t)
	env.givePoints(t, childMember.ID, parent.ID, 50)

	reward, err := env.rewards.CreateReward(family.ID, parent.ID, "Movie night", nil, 30)
	if err != nil {
		t.Fatalf("CreateReward() error = %v", err)
	}

	redemption, err := env.rewards.RequestRedemption(reward.ID, child.ID)
	if err != nil {
		t.Fatalf("RequestRedemption() error = %v", err)
	}
	if redemption.Status != models.RedemptionRequested {
		t.Errorf("status = %v, want REQUESTED", redemption.Status)
	}

	// Requesting moves no points
	wallet, _ := env.wallets.GetWalletForMember(childMember.ID)
	if wallet.Balance != 50 {
		t.Errorf("balance after request = %d, want 50", wallet.Balance)
	}

	t.Run("child cannot approve", func(t *testing.T) {
		_, err := env.rewards.ApproveRedemption(redemption.ID, child.ID)
		if !errors.Is(err, ErrNotParent) {
			t.Errorf("ApproveRedemption() error = %v, want ErrNotParent", err)
		}
	})

	approved, err := env.rewards.ApproveRedemption(redemption.ID, parent.ID)
	if err != nil {
		t.Fatalf("ApproveRedemption() error = %v", err)
	}
	if approved.Status != models.RedemptionApproved {
		t.Errorf("status = %v, want APPROVED", approved.Status)
	}
	if approved.ApprovedByMemberID == nil {
		t.Error("approval should record the approver")
	}

	// Approval debits the requester's wallet
	wallet, _ = env.wallets.GetWalletForMember(childMember.ID)
	if wallet.Balance != 20 {
		t.Errorf("balance after approval = %d, want 20", wallet.Balance)
	}

	walletRepo := repository.NewWalletRepository(env.db)
	transactions, _ := walletRepo.ListTransactions(wallet.ID)
	var spend *models.Transaction
	for i := range transactions {
		if transactions[i].Type == models.TransactionSpend {
			spend = &transactions[i]
		}
	}
	if spend == nil {
		t.Fatal("approval should write a SPEND ledger entry")
	}
	if spend.Amount != -30 {
		t.Errorf("SPEND amount = %d, want -30", spend.Amount)
	}
	if spend.Reason == nil || *spend.Reason != "Redeem 'Movie night'" {
		t.Errorf("SPEND reason = %v, want Redeem 'Movie night'", spend.Reason)
	}
	if spend.RedemptionID == nil || *spend.RedemptionID != redemption.ID {
		t.Error("SPEND entry should reference the redemption")
	}

	t.Run("double approve resolves once", func(t *testing.T) {
		_, err := env.rewards.ApproveRedemption(redemption.ID, parent.ID)
		if !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("second ApproveRedemption() error = %v, want ErrInvalidTransition", err)
		}
		wallet, _ := env.wallets.GetWalletForMember(childMember.ID)
		if wallet.Balance != 20 {
			t.Errorf("balance after repeat approve = %d, want 20", wallet.Balance)
		}
	})

	delivered, err := env.rewards.DeliverRedemption(redemption.ID, parent.ID)
	if err != nil {
		t.Fatalf("DeliverRedemption() error = %v", err)
	}
	if delivered.Status != models.RedemptionRedeemed || delivered.RedeemedAt == nil {
		t.Errorf("delivered = %v/%v, want REDEEMED with timestamp", delivered.Status, delivered.RedeemedAt)
	}

	t.Run("deliver only from APPROVED", func(t *testing.T) {
		_, err := env.rewards.DeliverRedemption(redemption.ID, parent.ID)
		if !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("second DeliverRedemption() error = %v, want ErrInvalidTransition", err)
		}
	})
}

func TestApproveWithInsufficientFunds(t *testing.T) {
	env := newTestEnv(t)
	family, parent, child, childMember := env.createFamily(t)
	env.givePoints(t, childMember.ID, parent.ID, 10)

	reward, err := env.rewards.CreateReward(family.ID, parent.ID, "Big prize", nil, 100)
	if err != nil {
		t.Fatalf("CreateReward() error = %v", err)
	}

	redemption, err := env.rewards.RequestRedemption(reward.ID, child.ID)
	if err != nil {
		t.Fatalf("RequestRedemption() error = %v", err)
	}

	_, err = env.rewards.ApproveRedemption(redemption.ID, parent.ID)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("ApproveRedemption() error = %v, want ErrInsufficientFunds", err)
	}

	// The failed approval rolls back entirely: still REQUESTED, no debit
	rewardRepo := repository.NewRewardRepository(env.db)
	got, _ := rewardRepo.GetRedemptionByID(redemption.ID)
	if got.Status != models.RedemptionRequested {
		t.Errorf("status after failed approval = %v, want REQUESTED", got.Status)
	}
	wallet, _ := env.wallets.GetWalletForMember(childMember.ID)
	if wallet.Balance != 10 {
		t.Errorf("balance after failed approval = %d, want 10", wallet.Balance)
	}
}

func TestAutoApproveRedemption(t *testing.T) {
	env := newTestEnv(t)
	family, parent, child, childMember := env.createFamily(t)
	env.givePoints(t, childMember.ID, parent.ID, 40)

	instant := NewRewardService(env.db, env.wallets, true)

	reward, err := instant.CreateReward(family.ID, parent.ID, "Ice cream", nil, 15)
	if err != nil {
		t.Fatalf("CreateReward() error = %v", err)
	}

	redemption, err := instant.RequestRedemption(reward.ID, child.ID)
	if err != nil {
		t.Fatalf("RequestRedemption() error = %v", err)
	}
	if redemption.Status != models.RedemptionRedeemed || redemption.RedeemedAt == nil {
		t.Errorf("auto-approved redemption = %v/%v, want REDEEMED with timestamp", redemption.Status, redemption.RedeemedAt)
	}

	wallet, _ := env.wallets.GetWalletForMember(childMember.ID)
	if wallet.Balance != 25 {
		t.Errorf("balance after instant redeem = %d, want 25", wallet.Balance)
	}

	t.Run("insufficient funds leaves nothing behind", func(t *testing.T) {
		pricey, err := instant.CreateReward(family.ID, parent.ID, "Pony", nil, 1000)
		if err != nil {
			t.Fatalf("CreateReward() error = %v", err)
		}

		_, err = instant.RequestRedemption(pricey.ID, child.ID)
		if !errors.Is(err, ErrInsufficientFunds) {
			t.Fatalf("RequestRedemption() error = %v, want ErrInsufficientFunds", err)
		}

		// The rollback removes the redemption row as well
		redemptions, err := instant.ListRedemptions(family.ID, parent.ID)
		if err != nil {
			t.Fatalf("ListRedemptions() error = %v", err)
		}
		if len(redemptions) != 1 {
			t.Errorf("redemptions = %d, want only the ice cream one", len(redemptions))
		}
	})
}

func TestRejectAndCancel(t *testing.T) {
	env := newTestEnv(t)
	family, parent, child, childMember := env.createFamily(t)
	env.givePoints(t, childMember.ID, parent.ID, 100)

	reward, err := env.rewards.CreateReward(family.ID, parent.ID, "Stickers", nil, 10)
	if err != nil {
		t.Fatalf("CreateReward() error = %v", err)
	}

	t.Run("reject", func(t *testing.T) {
		redemption, err := env.rewards.RequestRedemption(reward.ID, child.ID)
		if err != nil {
			t.Fatalf("RequestRedemption() error = %v", err)
		}

		rejected, err := env.rewards.RejectRedemption(redemption.ID, parent.ID)
		if err != nil {
			t.Fatalf("RejectRedemption() error = %v", err)
		}
		if rejected.Status != models.RedemptionRejected {
			t.Errorf("status = %v, want REJECTED", rejected.Status)
		}
	})

	t.Run("cancel by requester only", func(t *testing.T) {
		redemption, err := env.rewards.RequestRedemption(reward.ID, child.ID)
		if err != nil {
			t.Fatalf("RequestRedemption() error = %v", err)
		}

		if _, err := env.rewards.CancelRedemption(redemption.ID, parent.ID); !errors.Is(err, ErrNotRequester) {
			t.Errorf("CancelRedemption() by parent error = %v, want ErrNotRequester", err)
		}

		cancelled, err := env.rewards.CancelRedemption(redemption.ID, child.ID)
		if err != nil {
			t.Fatalf("CancelRedemption() error = %v", err)
		}
		if cancelled.Status != models.RedemptionCancelled {
			t.Errorf("status = %v, want CANCELLED", cancelled.Status)
		}
	})

	// Neither path moved any points
	wallet, _ := env.wallets.GetWalletForMember(childMember.ID)
	if wallet.Balance != 100 {
		t.Errorf("balance = %d, want 100", wallet.Balance)
	}
}

func TestCreateRewardRules(t *testing.T) {
	env := newTestEnv(t)
	family, parent, child, _ := env.createFamily(t)

	t.Run("child cannot create", func(t *testing.T) {
		_, err := env.rewards.CreateReward(family.ID, child.ID, "Sweets", nil, 5)
		if !errors.Is(err, ErrNotParent) {
			t.Errorf("CreateReward() error = %v, want ErrNotParent", err)
		}
	})

	t.Run("zero cost is allowed", func(t *testing.T) {
		reward, err := env.rewards.CreateReward(family.ID, parent.ID, "Free hug", nil, 0)
		if err != nil {
			t.Fatalf("CreateReward() error = %v", err)
		}
		if reward.CostPoints != 0 {
			t.Errorf("cost = %d, want 0", reward.CostPoints)
		}

		// A free reward approves even with an empty wallet and moves no points
		redemption, err := env.rewards.RequestRedemption(reward.ID, child.ID)
		if err != nil {
			t.Fatalf("RequestRedemption() error = %v", err)
		}
		approved, err := env.rewards.ApproveRedemption(redemption.ID, parent.ID)
		if err != nil {
			t.Fatalf("ApproveRedemption() error = %v", err)
		}
		if approved.Status != models.RedemptionApproved {
			t.Errorf("status = %v, want APPROVED", approved.Status)
		}
	})

	t.Run("negative cost rejected", func(t *testing.T) {
		_, err := env.rewards.CreateReward(family.ID, parent.ID, "Refund", nil, -10)
		if !errors.Is(err, ErrInvalidCost) {
			t.Errorf("CreateReward() error = %v, want ErrInvalidCost", err)
		}
	})

	t.Run("deactivated reward cannot be redeemed", func(t *testing.T) {
		reward, err := env.rewards.CreateReward(family.ID, parent.ID, "Retired", nil, 5)
		if err != nil {
			t.Fatalf("CreateReward() error = %v", err)
		}
		if err := env.rewards.DeactivateReward(reward.ID, parent.ID); err != nil {
			t.Fatalf("DeactivateReward() error = %v", err)
		}

		_, err = env.rewards.RequestRedemption(reward.ID, child.ID)
		if !errors.Is(err, ErrRewardInactive) {
			t.Errorf("RequestRedemption() error = %v, want ErrRewardInactive", err)
		}

		rewards, err := env.rewards.ListRewards(family.ID, child.ID)
		if err != nil {
			t.Fatalf("ListRewards() error = %v", err)
		}
		for _, rw := range rewards {
			if rw.ID == reward.ID {
				t.Error("deactivated reward should not be listed")
			}
		}
	})
}

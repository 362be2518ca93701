package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/Govind-619/WalletDesk/models"
	"github.com/Govind-619/WalletDesk/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCharge(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "user@example.com")
	ctx := context.Background()

	_, _, err := env.adjust.AddFunds(ctx, env.admin, user.ID, money.New(20000), "promo")
	require.NoError(t, err)

	in := ChargeInput{UserID: user.ID, Amount: money.New(1500), Feature: "image_generation", ReferenceID: "gen-123"}
	w, entry, err := env.usage.Charge(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, money.New(18500), w.Balance)
	assert.Equal(t, models.LedgerKindUsageDebit, entry.Kind)
	assert.Equal(t, "gen-123", entry.ReferenceID)

	var meta map[string]string
	require.NoError(t, json.Unmarshal(entry.Metadata, &meta))
	assert.Equal(t, "image_generation", meta["feature"])

	_, _, err = env.usage.Charge(ctx, in)
	assert.ErrorIs(t, err, ErrDuplicateEntry)
	assert.Equal(t, money.New(18500), env.wallet(t, user.ID).Balance)
	env.assertReconciled(t, w.ID)
}

func TestChargeFailures(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "user@example.com")
	ctx := context.Background()

	_, _, err := env.usage.Charge(ctx, ChargeInput{UserID: user.ID, Amount: money.New(100), Feature: "chat", ReferenceID: "r1"})
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	_, _, err = env.usage.Charge(ctx, ChargeInput{UserID: user.ID, Amount: money.New(100), Feature: "chat"})
	assert.ErrorIs(t, err, ErrValidation)

	_, _, err = env.usage.Charge(ctx, ChargeInput{UserID: user.ID, Amount: money.Zero, Feature: "chat", ReferenceID: "r2"})
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

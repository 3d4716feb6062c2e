package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/opencustody/walletsync/internal/auth"
	"github.com/opencustody/walletsync/internal/types"
)

// SyncGroups converges all cached groups onto the server roster.
func (e *Engine) SyncGroups(ctx context.Context, scope types.Scope) (bool, error) {
	return e.rec.SyncGroups(ctx, scope)
}

// ListGroups returns the cached groups.
func (e *Engine) ListGroups(ctx context.Context, scope types.Scope) ([]types.Group, error) {
	return e.cache.GetGroups(ctx, scope)
}

// SyncGroup refreshes one group, its alerts and its wallet key health.
func (e *Engine) SyncGroup(ctx context.Context, scope types.Scope, groupID, walletID string) error {
	if err := e.rec.SyncGroup(ctx, scope, groupID); err != nil {
		return err
	}
	if _, err := e.rec.SyncAlerts(ctx, scope, groupID, walletID); err != nil {
		return err
	}
	if walletID == "" {
		return nil
	}
	return e.rec.SyncKeyHealth(ctx, scope, groupID, walletID)
}

// EditGroupMembers commits a roster change with collected signatures.
func (e *Engine) EditGroupMembers(ctx context.Context, scope types.Scope, groupID string, body json.RawMessage, pairs []auth.SignaturePair, opts auth.HeaderOptions) (types.Group, error) {
	envelope, err := e.signedEnvelope(ctx, body)
	if err != nil {
		return types.Group{}, err
	}
	dto, err := e.client.EditGroupMembers(ctx, auth.BuildHeaders(pairs, opts), groupID, envelope)
	if err != nil {
		return types.Group{}, fmt.Errorf("fail to edit group members: %w", err)
	}
	g := dto.ToGroup()
	if err := e.cache.ApplyGroups(ctx, scope, []types.Group{g}, nil); err != nil {
		return types.Group{}, err
	}
	return g, nil
}

// MarkAlertRead flips the alert to read on both sides.
func (e *Engine) MarkAlertRead(ctx context.Context, scope types.Scope, groupID, walletID, alertID string) error {
	if err := e.client.MarkAlertRead(ctx, groupID, walletID, alertID); err != nil {
		return fmt.Errorf("fail to mark alert read: %w", err)
	}
	return e.patchAlertStatus(ctx, scope, groupID, walletID, alertID, "READ")
}

// DismissAlert removes the alert on both sides.
func (e *Engine) DismissAlert(ctx context.Context, scope types.Scope, groupID, walletID, alertID string) error {
	if err := e.client.DismissAlert(ctx, groupID, walletID, alertID); err != nil && !types.IsRemoteNotFound(err) {
		return fmt.Errorf("fail to dismiss alert: %w", err)
	}
	return e.cache.ApplyAlerts(ctx, scope, groupID, walletID, nil, []string{alertID})
}

func (e *Engine) patchAlertStatus(ctx context.Context, scope types.Scope, groupID, walletID, alertID, status string) error {
	alerts, err := e.cache.GetAlerts(ctx, scope, groupID, walletID)
	if err != nil {
		return err
	}
	for _, a := range alerts {
		if a.ID != alertID {
			continue
		}
		a.Status = status
		return e.cache.ApplyAlerts(ctx, scope, groupID, walletID, []types.Alert{a}, nil)
	}
	return nil
}

// SaveAddress pushes a labelled address and mirrors it locally.
func (e *Engine) SaveAddress(ctx context.Context, scope types.Scope, addr types.SavedAddress) error {
	if err := e.client.AddOrUpdateSavedAddress(ctx, addr); err != nil {
		return fmt.Errorf("fail to save address: %w", err)
	}
	return e.cache.ApplySavedAddresses(ctx, scope, []types.SavedAddress{addr}, nil)
}

// DeleteAddress removes a labelled address on both sides.
func (e *Engine) DeleteAddress(ctx context.Context, scope types.Scope, address string) error {
	if err := e.client.DeleteSavedAddress(ctx, address); err != nil && !types.IsRemoteNotFound(err) {
		return fmt.Errorf("fail to delete saved address: %w", err)
	}
	return e.cache.ApplySavedAddresses(ctx, scope, nil, []string{address})
}

// ExchangeRate returns the BTC price in the requested currency, joining
// the USD price and the currency rate fetches.
func (e *Engine) ExchangeRate(ctx context.Context, currency string) (float64, error) {
	var (
		btcUSD float64
		rate   float64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		btcUSD, err = e.client.GetBtcPriceUSD(gctx)
		return err
	})
	g.Go(func() error {
		if currency == "" || currency == "USD" {
			rate = 1
			return nil
		}
		var err error
		rate, err = e.client.GetExchangeRate(gctx, currency)
		return err
	})
	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("fail to fetch exchange rate: %w", err)
	}
	return btcUSD * rate, nil
}

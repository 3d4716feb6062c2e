package types

import "encoding/json"

// Alert is the LocalCache row for a group- or wallet-scoped alert. Identity
// key is the server id.
type Alert struct {
	ID                string
	GroupID           string
	WalletID          string
	Type              string
	Title             string
	Body              string
	Status            string
	Viewable          bool
	Payload           string
	CreatedTimeMillis int64
}

// AlertDTO is the remote wire form. Payload is an opaque JSON object that
// stays serialized once it crosses the boundary.
type AlertDTO struct {
	ID                string          `json:"id"`
	Type              string          `json:"type"`
	Title             string          `json:"title"`
	Body              string          `json:"body"`
	Status            string          `json:"status"`
	Viewable          bool            `json:"viewable"`
	Payload           json.RawMessage `json:"payload"`
	CreatedTimeMillis int64           `json:"created_time_millis"`
}

// ToAlert coerces the DTO into a cache row for the given scope ids.
func (d AlertDTO) ToAlert(groupID, walletID string) Alert {
	return Alert{
		ID:                d.ID,
		GroupID:           groupID,
		WalletID:          walletID,
		Type:              d.Type,
		Title:             d.Title,
		Body:              d.Body,
		Status:            d.Status,
		Viewable:          d.Viewable,
		Payload:           string(d.Payload),
		CreatedTimeMillis: d.CreatedTimeMillis,
	}
}

// KeyHealth is the LocalCache row tracking the health-check state of one
// key inside a wallet. Identity key is the xfp.
type KeyHealth struct {
	Xfp                       string
	GroupID                   string
	WalletID                  string
	CanRequestHealthCheck     bool
	LastHealthCheckTimeMillis int64
}

// KeyHealthDTO is the remote wire form of a key health record.
type KeyHealthDTO struct {
	Xfp                       string `json:"xfp"`
	CanRequestHealthCheck     bool   `json:"can_request_health_check"`
	LastHealthCheckTimeMillis *int64 `json:"last_health_check_time_millis"`
}

// ToKeyHealth coerces the DTO, defaulting a missing check time to zero.
func (d KeyHealthDTO) ToKeyHealth(groupID, walletID string) KeyHealth {
	var last int64
	if d.LastHealthCheckTimeMillis != nil {
		last = *d.LastHealthCheckTimeMillis
	}
	return KeyHealth{
		Xfp:                       d.Xfp,
		GroupID:                   groupID,
		WalletID:                  walletID,
		CanRequestHealthCheck:     d.CanRequestHealthCheck,
		LastHealthCheckTimeMillis: last,
	}
}

// SavedAddress is a user-labelled destination address synced with the
// service.
type SavedAddress struct {
	Address string `json:"address"`
	Label   string `json:"label"`
}

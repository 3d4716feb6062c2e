package remote

import (
	"context"
	"net/url"
)

type btcPriceData struct {
	Price float64 `json:"btc"`
}

type fxRateData struct {
	Rate float64 `json:"rate"`
}

// GetBtcPriceUSD returns the current BTC/USD price.
func (c *Client) GetBtcPriceUSD(ctx context.Context) (float64, error) {
	var data btcPriceData
	if err := c.get(ctx, "/v1/prices/btc", nil, &data); err != nil {
		return 0, err
	}
	return data.Price, nil
}

// GetExchangeRate returns the USD→currency FX rate.
func (c *Client) GetExchangeRate(ctx context.Context, currency string) (float64, error) {
	q := url.Values{}
	q.Set("currency", currency)
	var data fxRateData
	if err := c.get(ctx, "/v1/prices/fx", q, &data); err != nil {
		return 0, err
	}
	return data.Rate, nil
}

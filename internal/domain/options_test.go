package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T {
	return &v
}

func TestLaunchOptions_Defaults(t *testing.T) {
	var nilOpts *LaunchOptions
	for _, opts := range []*LaunchOptions{nilOpts, {}} {
		assert.Equal(t, 0.0001, opts.Liquidity())
		assert.Equal(t, 5, opts.Slippage())
		assert.Equal(t, 0.00005, opts.PriorityFeeSOL())

		twitter, telegram, website := opts.Social()
		assert.Empty(t, twitter)
		assert.Empty(t, telegram)
		assert.Empty(t, website)
	}
}

func TestLaunchOptions_ExplicitValues(t *testing.T) {
	opts := &LaunchOptions{
		InitialLiquiditySOL: ptr(1.5),
		SlippageBps:         ptr(0),
		PriorityFee:         ptr(0.001),
		Telegram:            "https://t.me/example",
	}

	assert.Equal(t, 1.5, opts.Liquidity())
	assert.Equal(t, 0, opts.Slippage(), "explicit zero is honored")
	assert.Equal(t, 0.001, opts.PriorityFeeSOL())

	twitter, telegram, website := opts.Social()
	assert.Empty(t, twitter)
	assert.Equal(t, "https://t.me/example", telegram)
	assert.Empty(t, website)
}

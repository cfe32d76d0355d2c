package domain

// Launch option defaults.
const (
	DefaultInitialLiquiditySOL = 0.0001
	DefaultSlippageBps         = 5
	DefaultPriorityFeeSOL      = 0.00005
)

// LaunchOptions are the optional knobs of a launch.
// Numeric fields are pointers: nil means "use the default", any explicit
// value (including zero) is sent as given.
type LaunchOptions struct {
	InitialLiquiditySOL *float64 `json:"initialLiquiditySOL,omitempty"` // initial buy, in SOL
	SlippageBps         *int     `json:"slippageBps,omitempty"`
	PriorityFee         *float64 `json:"priorityFee,omitempty"` // in SOL

	Twitter  string `json:"twitter,omitempty"`
	Telegram string `json:"telegram,omitempty"`
	Website  string `json:"website,omitempty"`
}

// Liquidity returns the initial liquidity in SOL, or the default.
func (o *LaunchOptions) Liquidity() float64 {
	if o == nil || o.InitialLiquiditySOL == nil {
		return DefaultInitialLiquiditySOL
	}
	return *o.InitialLiquiditySOL
}

// Slippage returns the slippage, or the default.
func (o *LaunchOptions) Slippage() int {
	if o == nil || o.SlippageBps == nil {
		return DefaultSlippageBps
	}
	return *o.SlippageBps
}

// PriorityFeeSOL returns the priority fee in SOL, or the default.
func (o *LaunchOptions) PriorityFeeSOL() float64 {
	if o == nil || o.PriorityFee == nil {
		return DefaultPriorityFeeSOL
	}
	return *o.PriorityFee
}

// Social returns the social links; absent links are empty.
func (o *LaunchOptions) Social() (twitter, telegram, website string) {
	if o == nil {
		return "", "", ""
	}
	return o.Twitter, o.Telegram, o.Website
}

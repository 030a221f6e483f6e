package birdeye

import "net/http"

// action describes one endpoint. Params named in body are sent as JSON
// instead of query string. Array values are comma-joined in the query.
type action struct {
	name     string
	method   string
	path     string
	required []string
	optional []string
	defaults map[string]string
	body     []string
}

var (
	liquidityOpts = []string{"check_liquidity", "include_liquidity"}
	timeRange     = []string{"time_from", "time_to"}
	pageOpts      = []string{"offset", "limit"}
	seekOpts      = []string{"tx_type", "before_time", "after_time", "limit"}
	sortPageOpts  = []string{"sort_by", "sort_type", "offset", "limit"}
	candleType    = map[string]string{"type": "1H"}
	addressList   = []string{"list_address"}
)

func opts(groups ...[]string) []string {
	var out []string
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func get(name, path string, required []string, optional ...string) action {
	return action{name: name, method: http.MethodGet, path: path, required: required, optional: optional}
}

func addr() []string   { return []string{"address"} }
func wallet() []string { return []string{"wallet"} }

var actionTable = []action{
	// price
	get("price", "/defi/price", addr(), liquidityOpts...),
	{name: "multi_price", method: http.MethodGet, path: "/defi/multi_price",
		required: addressList, optional: liquidityOpts},
	{name: "multi_price_post", method: http.MethodPost, path: "/defi/multi_price",
		required: addressList, optional: liquidityOpts, body: addressList},
	{name: "history_price", method: http.MethodGet, path: "/defi/history_price",
		required: addr(), optional: opts([]string{"address_type", "type"}, timeRange),
		defaults: map[string]string{"address_type": "token", "type": "1H"}},
	get("historical_price_unix", "/defi/historical_price_unix", []string{"address", "unixtime"}),
	get("price_volume_single", "/defi/price_volume/single", addr(), "type"),
	{name: "price_volume_multi", method: http.MethodPost, path: "/defi/price_volume/multi",
		required: addressList, optional: []string{"type"}, body: addressList},

	// ohlcv
	{name: "ohlcv", method: http.MethodGet, path: "/defi/ohlcv",
		required: addr(), optional: opts([]string{"type"}, timeRange), defaults: candleType},
	{name: "ohlcv_pair", method: http.MethodGet, path: "/defi/ohlcv/pair",
		required: addr(), optional: opts([]string{"type"}, timeRange), defaults: candleType},
	{name: "ohlcv_base_quote", method: http.MethodGet, path: "/defi/ohlcv/base_quote",
		required: []string{"base_address", "quote_address"}, optional: opts([]string{"type"}, timeRange), defaults: candleType},
	{name: "ohlcv_v3", method: http.MethodGet, path: "/defi/v3/ohlcv",
		required: addr(), optional: opts([]string{"type"}, timeRange, []string{"currency"}), defaults: candleType},
	{name: "ohlcv_pair_v3", method: http.MethodGet, path: "/defi/v3/ohlcv/pair",
		required: addr(), optional: opts([]string{"type"}, timeRange), defaults: candleType},

	// trades
	get("trades_token", "/defi/txs/token", addr(), opts([]string{"tx_type", "sort_type"}, pageOpts)...),
	get("trades_pair", "/defi/txs/pair", addr(), opts([]string{"tx_type", "sort_type"}, pageOpts)...),
	get("trades_token_seek", "/defi/txs/token/seek_by_time", addr(), seekOpts...),
	get("trades_pair_seek", "/defi/txs/pair/seek_by_time", addr(), seekOpts...),
	get("trades_v3", "/defi/v3/txs", nil, opts([]string{"address", "owner"}, seekOpts)...),
	get("trades_token_v3", "/defi/v3/token/txs", addr(), opts(seekOpts, []string{"cursor"})...),

	// token
	get("token_list", "/defi/tokenlist", nil, opts(sortPageOpts, []string{"min_liquidity"})...),
	get("token_list_v3", "/defi/v3/token/list", nil,
		opts(sortPageOpts, []string{"min_liquidity", "min_volume_24h_usd", "min_market_cap"})...),
	get("token_list_scroll", "/defi/v3/token/list/scroll", nil,
		"sort_by", "sort_type", "limit", "min_liquidity", "scroll_id"),
	get("token_overview", "/defi/token_overview", addr()),
	get("token_metadata_single", "/defi/v3/token/meta-data/single", addr()),
	{name: "token_metadata_multiple", method: http.MethodGet, path: "/defi/v3/token/meta-data/multiple",
		required: addressList},
	get("token_market_data", "/defi/v3/token/market-data", addr()),
	{name: "token_market_data_multiple", method: http.MethodGet, path: "/defi/v3/token/market-data/multiple",
		required: addressList},
	get("token_trade_data_single", "/defi/v3/token/trade-data/single", addr()),
	{name: "token_trade_data_multiple", method: http.MethodGet, path: "/defi/v3/token/trade-data/multiple",
		required: addressList},
	get("token_holder", "/defi/v3/token/holder", addr(), pageOpts...),
	get("token_trending", "/defi/token_trending", nil, sortPageOpts...),
	get("token_new_listing", "/defi/v2/tokens/new_listing", nil,
		"time_to", "time_from", "limit", "meme_platform_enabled"),
	get("token_top_traders", "/defi/v2/tokens/top_traders", addr(),
		opts([]string{"time_frame"}, sortPageOpts)...),
	get("token_markets", "/defi/v2/markets", addr(), sortPageOpts...),
	get("token_security", "/defi/token_security", addr()),
	get("token_creation_info", "/defi/token_creation_info", addr()),
	get("token_mint_burn", "/defi/v3/token/mint-burn-txs", addr(),
		opts([]string{"tx_type", "sort_type"}, pageOpts)...),
	get("token_all_time_trades_single", "/defi/v3/all-time-trades/single", addr()),
	{name: "token_all_time_trades_multiple", method: http.MethodGet, path: "/defi/v3/all-time-trades/multiple",
		required: addressList},
	get("token_exit_liquidity", "/defi/v3/token/exit-liquidity", addr()),
	{name: "token_exit_liquidity_multiple", method: http.MethodGet, path: "/defi/v3/token/exit-liquidity/multiple",
		required: addressList},

	// pair
	get("pair_overview_single", "/defi/v3/pair/overview/single", addr()),
	{name: "pair_overview_multiple", method: http.MethodGet, path: "/defi/v3/pair/overview/multiple",
		required: addressList},

	// trader
	get("trader_gainers_losers", "/trader/gainers-losers", nil, opts([]string{"type"}, sortPageOpts)...),
	get("trader_txs_seek", "/trader/txs/seek_by_time", addr(), seekOpts...),

	// wallet
	get("wallet_token_list", "/v1/wallet/token_list", wallet()),
	get("wallet_token_balance", "/v1/wallet/token_balance", []string{"wallet", "token_address"}),
	get("wallet_tx_list", "/v1/wallet/tx_list", wallet(), "limit", "before_time"),
	get("wallet_balance_change", "/wallet/v2/balance-change", wallet(),
		opts([]string{"token_address"}, timeRange, []string{"limit", "offset"})...),
	get("wallet_pnl_summary", "/wallet/v2/pnl/summary", wallet(), "tx_type"),
	{name: "wallet_pnl_details", method: http.MethodPost, path: "/wallet/v2/pnl/details",
		required: wallet(), optional: []string{"tokens"}, body: []string{"wallet", "tokens"}},
	{name: "wallet_pnl_multiple", method: http.MethodGet, path: "/wallet/v2/pnl/multiple",
		required: []string{"wallets"}},
	get("wallet_current_net_worth", "/wallet/v2/current-net-worth", wallet()),
	get("wallet_net_worth", "/wallet/v2/net-worth", wallet(), "time", "type", "count", "direction"),
	get("wallet_net_worth_details", "/wallet/v2/net-worth-details", wallet(), "time", "type"),

	// search
	get("search", "/defi/v3/search", []string{"keyword"},
		opts([]string{"target"}, sortPageOpts, []string{"verify_token", "markets"})...),

	// utils
	get("latest_block", "/defi/v3/txs/latest_block", nil),
	get("networks", "/defi/networks", nil),
	get("supported_chains", "/v1/wallet/list_supported_chain", nil),
}

var actionsByName = func() map[string]*action {
	m := make(map[string]*action, len(actionTable))
	for i := range actionTable {
		m[actionTable[i].name] = &actionTable[i]
	}
	return m
}()

// Actions returns every action name in table order.
func Actions() []string {
	names := make([]string, len(actionTable))
	for i, a := range actionTable {
		names[i] = a.name
	}
	return names
}

// Params returns every parameter name any action accepts, in first-seen order.
func Params() []string {
	seen := map[string]bool{}
	var out []string
	for _, a := range actionTable {
		for _, p := range opts(a.required, a.optional) {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	return out
}

package abicodec

// Method names used by the snapshot pipeline.
const (
	MethodBalanceOf         = "balanceOf"
	MethodStakesCount       = "getUserStakesCount"
	MethodStakes            = "stakes"
	MethodBondCount         = "getBondInfoDataLength"
	MethodBondInfo          = "bondInfoData"
	MethodLiquidityBalance  = "getTurbineBal"
	MethodClaimable         = "claimable"
	MethodAggregate3        = "aggregate3"
	MethodTotalQueryMultiTx = "multiCall"
)

// Field positions inside record tuples.
const (
	StakePrincipalField = 0
	BondPayoutField     = 2
)

const erc20ABI = `[
	{"type":"function","name":"balanceOf","stateMutability":"view",
	 "inputs":[{"name":"owner","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"decimals","stateMutability":"view",
	 "inputs":[],
	 "outputs":[{"name":"","type":"uint8"}]}
]`

const mintPoolABI = `[
	{"type":"function","name":"getUserStakesCount","stateMutability":"view",
	 "inputs":[{"name":"user","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"stakes","stateMutability":"view",
	 "inputs":[{"name":"user","type":"address"},{"name":"index","type":"uint256"}],
	 "outputs":[
		{"name":"principal","type":"uint256"},
		{"name":"gons","type":"uint256"},
		{"name":"startBlock","type":"uint256"},
		{"name":"expiry","type":"uint256"},
		{"name":"warmup","type":"uint256"},
		{"name":"lastBlock","type":"uint256"},
		{"name":"vesting","type":"uint256"},
		{"name":"exists","type":"bool"}
	 ]}
]`

const fixedTermPoolABI = `[
	{"type":"function","name":"getUserStakesCount","stateMutability":"view",
	 "inputs":[{"name":"user","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"stakes","stateMutability":"view",
	 "inputs":[{"name":"user","type":"address"},{"name":"index","type":"uint256"}],
	 "outputs":[
		{"name":"principal","type":"uint256"},
		{"name":"gons","type":"uint256"},
		{"name":"startEpoch","type":"uint256"},
		{"name":"expiry","type":"uint256"},
		{"name":"warmup","type":"uint256"},
		{"name":"lastBlock","type":"uint256"},
		{"name":"vesting","type":"uint256"},
		{"name":"exists","type":"bool"},
		{"name":"extraIndex","type":"uint256"},
		{"name":"creditExtra","type":"uint256"},
		{"name":"claimedExtra","type":"uint256"}
	 ]}
]`

const bondABI = `[
	{"type":"function","name":"getBondInfoDataLength","stateMutability":"view",
	 "inputs":[{"name":"user","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"bondInfoData","stateMutability":"view",
	 "inputs":[{"name":"user","type":"address"},{"name":"index","type":"uint256"}],
	 "outputs":[
		{"name":"id","type":"uint256"},
		{"name":"owner","type":"address"},
		{"name":"payout","type":"uint256"},
		{"name":"pricePaid","type":"uint256"},
		{"name":"vesting","type":"uint256"},
		{"name":"lastBlock","type":"uint256"}
	 ]}
]`

const liquidityABI = `[
	{"type":"function","name":"getTurbineBal","stateMutability":"view",
	 "inputs":[{"name":"_receiver","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]}
]`

const rewardABI = `[
	{"type":"function","name":"claimable","stateMutability":"view",
	 "inputs":[{"name":"","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]}
]`

const multicall3ABI = `[
	{"type":"function","name":"aggregate3","stateMutability":"payable",
	 "inputs":[{"name":"calls","type":"tuple[]","components":[
		{"name":"target","type":"address"},
		{"name":"allowFailure","type":"bool"},
		{"name":"callData","type":"bytes"}
	 ]}],
	 "outputs":[{"name":"returnData","type":"tuple[]","components":[
		{"name":"success","type":"bool"},
		{"name":"returnData","type":"bytes"}
	 ]}]}
]`

// totalQueryABI describes the bespoke transaction-batching wrapper used for the authoritative total.
const totalQueryABI = `[
	{"type":"function","name":"multiCall","stateMutability":"payable",
	 "inputs":[{"name":"_txs","type":"tuple[]","components":[
		{"name":"delegateCall","type":"bool"},
		{"name":"revertOnError","type":"bool"},
		{"name":"gasLimit","type":"uint256"},
		{"name":"target","type":"address"},
		{"name":"value","type":"uint256"},
		{"name":"data","type":"bytes"}
	 ]}],
	 "outputs":[
		{"name":"_successes","type":"bool[]"},
		{"name":"_results","type":"bytes[]"}
	 ]}
]`

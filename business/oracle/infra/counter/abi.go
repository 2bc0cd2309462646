package counter

// CounterABI is the ABI of the prophecy counter contract.
const CounterABI = `[
	{
		"inputs": [],
		"name": "get_current_count",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "increment",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

const (
	methodCount     = "get_current_count"
	methodIncrement = "increment"
)

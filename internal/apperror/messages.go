package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	CodeInvalidInput:       "Invalid input provided",
	CodeInvalidState:       "Invalid state for this operation",
	CodeNotFound:           "Resource not found",
	CodeConfigurationError: "Configuration error",
	CodeServiceTimeout:     "Service request timeout",
	CodeRateLimitExceeded:  "Rate limit exceeded",
	CodeInternalError:      "Internal error",
	CodeUnknownError:       "An unknown error occurred",

	CodeEthereumConnectionFailed: "Failed to connect to RPC endpoint",
	CodeEthereumRPCError:         "RPC call failed",
	CodeChainMismatch:            "Connected to an unexpected chain",
	CodeContractCallFailed:       "Smart contract call failed",
	CodeGasEstimationFailed:      "Gas estimation failed",
	CodeCircuitOpen:              "Circuit breaker is open",

	CodeConnectorNotFound:      "Wallet connector not found",
	CodeConnectorUnavailable:   "Wallet connector is not configured",
	CodeWalletConnectionFailed: "Failed to connect wallet",
	CodeWalletNotConnected:     "No wallet connected",
	CodeTransactionRejected:    "Transaction was rejected",
	CodeTransactionFailed:      "Transaction failed",
	CodeReceiptTimeout:         "Timed out waiting for transaction receipt",
	CodeCounterReadFailed:      "Failed to read prophecy counter",
	CodeInvalidCounterResponse: "Unexpected counter response",

	CodeEmptyQuestion: "Question is empty",
	CodeSessionBusy:   "The oracle is busy",
	CodeSessionClosed: "Session is closed",
}

package apperror

// Code identifies a class of application error.
type Code string

// General error codes
const (
	CodeInvalidInput       Code = "INVALID_INPUT"
	CodeInvalidState       Code = "INVALID_STATE"
	CodeNotFound           Code = "NOT_FOUND"
	CodeConfigurationError Code = "CONFIGURATION_ERROR"
	CodeServiceTimeout     Code = "SERVICE_TIMEOUT"
	CodeRateLimitExceeded  Code = "RATE_LIMIT_EXCEEDED"
	CodeInternalError      Code = "INTERNAL_ERROR"
	CodeUnknownError       Code = "UNKNOWN_ERROR"
)

// Chain access
const (
	CodeEthereumConnectionFailed Code = "ETHEREUM_CONNECTION_FAILED"
	CodeEthereumRPCError         Code = "ETHEREUM_RPC_ERROR"
	CodeChainMismatch            Code = "CHAIN_MISMATCH"
	CodeContractCallFailed       Code = "CONTRACT_CALL_FAILED"
	CodeGasEstimationFailed      Code = "GAS_ESTIMATION_FAILED"
	CodeCircuitOpen              Code = "CIRCUIT_OPEN"
)

// Wallet and transactions
const (
	CodeConnectorNotFound      Code = "CONNECTOR_NOT_FOUND"
	CodeConnectorUnavailable   Code = "CONNECTOR_UNAVAILABLE"
	CodeWalletConnectionFailed Code = "WALLET_CONNECTION_FAILED"
	CodeWalletNotConnected     Code = "WALLET_NOT_CONNECTED"
	CodeTransactionRejected    Code = "TRANSACTION_REJECTED"
	CodeTransactionFailed      Code = "TRANSACTION_FAILED"
	CodeReceiptTimeout         Code = "RECEIPT_TIMEOUT"
	CodeCounterReadFailed      Code = "COUNTER_READ_FAILED"
	CodeInvalidCounterResponse Code = "INVALID_COUNTER_RESPONSE"
)

// Oracle session guards
const (
	CodeEmptyQuestion Code = "EMPTY_QUESTION"
	CodeSessionBusy   Code = "SESSION_BUSY"
	CodeSessionClosed Code = "SESSION_CLOSED"
)

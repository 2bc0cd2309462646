package ethereum

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"

	"github.com/fd1az/crystal-ball/business/blockchain/app"
	"github.com/fd1az/crystal-ball/business/blockchain/domain"
	"github.com/fd1az/crystal-ball/internal/apperror"
	"github.com/fd1az/crystal-ball/internal/config"
	"github.com/fd1az/crystal-ball/internal/logger"
)

const simulatedChainID = 1337

type simEnv struct {
	sim    *simulated.Backend
	reader *Reader
	fees   *FeeOracle
	key    *ecdsa.PrivateKey
	addr   common.Address
}

func newSimEnv(t *testing.T) *simEnv {
	t.Helper()

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	addr := crypto.PubkeyToAddress(key.PublicKey)

	sim := simulated.NewBackend(types.GenesisAlloc{
		addr: {Balance: big.NewInt(1_000_000_000_000_000_000)},
	})
	t.Cleanup(func() { sim.Close() })

	reader := newTestReader(t, sim.Client())
	fees, err := NewFeeOracle(DefaultFeeConfig(), reader)
	if err != nil {
		t.Fatal(err)
	}

	return &simEnv{sim: sim, reader: reader, fees: fees, key: key, addr: addr}
}

func (e *simEnv) signerFunc(t *testing.T) SignerFunc {
	t.Helper()
	return func(key *ecdsa.PrivateKey) (app.Signer, error) {
		s, err := NewSigner(key, simulatedChainID, e.reader, e.fees, logger.NewDiscard())
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

func TestSigner_SendAndWatch(t *testing.T) {
	env := newSimEnv(t)
	ctx := context.Background()

	signer, err := env.signerFunc(t)(env.key)
	if err != nil {
		t.Fatal(err)
	}
	if signer.Address() != env.addr {
		t.Fatalf("unexpected signer address %s", signer.Address().Hex())
	}

	to := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	handle, err := signer.SendTransaction(ctx, []domain.Call{{To: to, Value: big.NewInt(1)}})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	status, err := env.reader.Receipt(ctx, handle.Hash)
	if err != nil {
		t.Fatal(err)
	}
	if status != domain.ReceiptPending {
		t.Errorf("expected pending before commit, got %s", status)
	}

	env.sim.Commit()

	watcher, err := NewReceiptWatcher(WatcherConfig{PollInterval: 10 * time.Millisecond, Timeout: 5 * time.Second}, env.reader, logger.NewDiscard())
	if err != nil {
		t.Fatal(err)
	}
	status, err = watcher.Watch(ctx, handle.Hash)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	if status != domain.ReceiptSuccess {
		t.Errorf("expected success, got %s", status)
	}

	bal, err := env.reader.BalanceAt(ctx, to)
	if err != nil {
		t.Fatal(err)
	}
	if bal.Int64() != 1 {
		t.Errorf("expected recipient balance 1, got %s", bal)
	}
}

func TestSigner_NoCalls(t *testing.T) {
	env := newSimEnv(t)
	signer, err := env.signerFunc(t)(env.key)
	if err != nil {
		t.Fatal(err)
	}

	_, err = signer.SendTransaction(context.Background(), nil)
	if apperror.GetCode(err) != apperror.CodeInvalidInput {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
}

func TestReceiptWatcher_Timeout(t *testing.T) {
	r := newTestReader(t, &fakeBackend{receiptErr: nil})
	w, err := NewReceiptWatcher(WatcherConfig{PollInterval: 5 * time.Millisecond, Timeout: 30 * time.Millisecond}, r, logger.NewDiscard())
	if err != nil {
		t.Fatal(err)
	}

	_, err = w.Watch(context.Background(), common.Hash{2})
	if apperror.GetCode(err) != apperror.CodeReceiptTimeout {
		t.Errorf("expected RECEIPT_TIMEOUT, got %v", err)
	}
}

func TestReceiptWatcher_ParentCancel(t *testing.T) {
	r := newTestReader(t, &fakeBackend{})
	w, err := NewReceiptWatcher(WatcherConfig{PollInterval: 5 * time.Millisecond}, r, logger.NewDiscard())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = w.Watch(ctx, common.Hash{3})
	if err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestKeystoreConnector(t *testing.T) {
	env := newSimEnv(t)

	encrypted, err := keystore.EncryptKey(&keystore.Key{
		Address:    env.addr,
		PrivateKey: env.key,
	}, "hunter2", keystore.LightScryptN, keystore.LightScryptP)
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "wallet.json")
	if err := os.WriteFile(path, encrypted, 0o600); err != nil {
		t.Fatal(err)
	}

	t.Run("unlocks", func(t *testing.T) {
		c := NewKeystoreConnector(path, "hunter2", env.signerFunc(t))
		if !c.Info().Ready || !c.Info().Recommended {
			t.Errorf("unexpected info %+v", c.Info())
		}
		signer, err := c.Connect(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if signer.Address() != env.addr {
			t.Errorf("unexpected address %s", signer.Address().Hex())
		}
	})

	t.Run("wrong_passphrase", func(t *testing.T) {
		c := NewKeystoreConnector(path, "nope", env.signerFunc(t))
		_, err := c.Connect(context.Background())
		if apperror.GetCode(err) != apperror.CodeWalletConnectionFailed {
			t.Errorf("expected WALLET_CONNECTION_FAILED, got %v", err)
		}
	})
}

func TestPrivateKeyConnector(t *testing.T) {
	env := newSimEnv(t)
	hexKey := "0x" + common.Bytes2Hex(crypto.FromECDSA(env.key))

	c := NewPrivateKeyConnector(hexKey, env.signerFunc(t))
	signer, err := c.Connect(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if signer.Address() != env.addr {
		t.Errorf("unexpected address %s", signer.Address().Hex())
	}

	bad := NewPrivateKeyConnector("zz", env.signerFunc(t))
	if _, err := bad.Connect(context.Background()); apperror.GetCode(err) != apperror.CodeWalletConnectionFailed {
		t.Errorf("expected WALLET_CONNECTION_FAILED, got %v", err)
	}
}

func TestConnectorsFromConfig(t *testing.T) {
	noop := func(*ecdsa.PrivateKey) (app.Signer, error) { return nil, nil }

	only := ConnectorsFromConfig(config.WalletConfig{}, noop)
	if len(only) != 1 || only[0].Info().ID != config.ConnectorKeystore || only[0].Info().Ready {
		t.Errorf("expected an unconfigured keystore connector, got %+v", only)
	}

	both := ConnectorsFromConfig(config.WalletConfig{PrivateKey: "0xabc"}, noop)
	if len(both) != 2 || both[1].Info().ID != config.ConnectorPrivateKey {
		t.Errorf("expected privatekey connector second, got %+v", both)
	}
}

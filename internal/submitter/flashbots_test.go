package submitter

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

func TestNewFlashbotsInvalidKey(t *testing.T) {
	if _, err := NewFlashbots(nil, "", "not-a-key", zap.NewNop()); err == nil {
		t.Fatal("невалидный ключ должен возвращать ошибку")
	}
}

func TestFlashbotsSignPayload(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	f := &Flashbots{
		authKey:  key,
		authAddr: crypto.PubkeyToAddress(key.PublicKey),
		log:      zap.NewNop(),
	}

	body := []byte(`{"jsonrpc":"2.0","id":1,"method":"eth_sendBundle","params":[]}`)
	header, err := f.signPayload(body)
	if err != nil {
		t.Fatalf("signPayload вернул ошибку: %v", err)
	}

	// Формат заголовка: <адрес>:<подпись>
	parts := strings.SplitN(header, ":", 2)
	if len(parts) != 2 {
		t.Fatalf("неожиданный формат заголовка: %s", header)
	}
	if parts[0] != f.authAddr.Hex() {
		t.Errorf("адрес в заголовке %s, ожидается %s", parts[0], f.authAddr.Hex())
	}

	// Релей восстанавливает подписанта из EIP-191 подписи над
	// hex(keccak256(body)) - проверяем тем же путём
	signature, err := hexutil.Decode(parts[1])
	if err != nil {
		t.Fatalf("подпись не hex: %v", err)
	}
	hashed := crypto.Keccak256Hash(body).Hex()
	pub, err := crypto.SigToPub(accounts.TextHash([]byte(hashed)), signature)
	if err != nil {
		t.Fatalf("восстановление подписанта: %v", err)
	}
	if got := crypto.PubkeyToAddress(*pub); got != f.authAddr {
		t.Errorf("восстановлен %s, ожидается %s", got.Hex(), f.authAddr.Hex())
	}
}

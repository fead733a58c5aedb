package executor

import (
	"crypto/ecdsa"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethmath "github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Signer authenticates outbound REST requests to a venue, producing the
// headers to attach to a request for the given method/path/body. Venues
// authenticate requests differently (HMAC over the request, a per-request
// wallet signature, nothing at all for a sandbox), so LiveExecutor depends
// on this interface rather than one scheme.
//
// Grounded on internal/exchange/auth.go's Auth, which carries both an
// HMAC (L2) and an EIP-712 (L1) signing path on one type; here the two are
// split into independent Signer implementations so a venue can be wired
// with whichever one its API requires.
type Signer interface {
	Sign(method, path string, body []byte) (map[string]string, error)
}

// HMACSigner signs requests with an HMAC-SHA256 digest of
// "timestamp + method + path + body", the scheme of
// internal/exchange/auth.go's buildHMAC/L2Headers.
type HMACSigner struct {
	APIKey     string
	Passphrase string
	secret     []byte
}

// NewHMACSigner builds an HMACSigner from a base64-encoded secret, trying
// the same decoder fallbacks as internal/exchange/auth.go's buildHMAC since
// venues are inconsistent about URL-safe vs. standard and padded vs. raw
// base64 for API secrets.
func NewHMACSigner(apiKey, secretB64, passphrase string) (*HMACSigner, error) {
	decoders := []*base64.Encoding{
		base64.URLEncoding,
		base64.RawURLEncoding,
		base64.StdEncoding,
		base64.RawStdEncoding,
	}
	var secret []byte
	var err error
	for _, dec := range decoders {
		secret, err = dec.DecodeString(secretB64)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("decode hmac secret: %w", err)
	}
	return &HMACSigner{APIKey: apiKey, Passphrase: passphrase, secret: secret}, nil
}

func (s *HMACSigner) Sign(method, path string, body []byte) (map[string]string, error) {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(timestamp + method + path))
	mac.Write(body)
	sig := base64.URLEncoding.EncodeToString(mac.Sum(nil))

	return map[string]string{
		"ARKIN-API-KEY":    s.APIKey,
		"ARKIN-PASSPHRASE": s.Passphrase,
		"ARKIN-TIMESTAMP":  timestamp,
		"ARKIN-SIGNATURE":  sig,
	}, nil
}

var _ Signer = (*HMACSigner)(nil)

// EIP712Signer signs each request with an EIP-712 typed-data signature from
// a wallet private key, for venues (e.g. on-chain CLOBs) that authenticate
// by proving control of an address rather than a shared secret.
//
// Grounded on internal/exchange/auth.go's signClobAuth/SignTypedData: the
// "RequestAuth" typed-data shape below is the same
// address+timestamp+nonce+message pattern as the teacher's ClobAuth domain,
// generalized from a one-time key-derivation signature into a per-request
// signer so go-ethereum stays exercised by the live trading path itself.
type EIP712Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	chainID    *big.Int
	nonce      uint64
}

// NewEIP712Signer parses a hex-encoded ECDSA private key (with or without a
// 0x prefix) and derives the signer's address via crypto.PubkeyToAddress.
func NewEIP712Signer(privateKeyHex string, chainID int64) (*EIP712Signer, error) {
	keyHex := privateKeyHex
	if len(keyHex) >= 2 && keyHex[:2] == "0x" {
		keyHex = keyHex[2:]
	}
	pk, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return &EIP712Signer{
		privateKey: pk,
		address:    crypto.PubkeyToAddress(pk.PublicKey),
		chainID:    big.NewInt(chainID),
	}, nil
}

func (s *EIP712Signer) Address() common.Address { return s.address }

func (s *EIP712Signer) Sign(method, path string, body []byte) (map[string]string, error) {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	nonce := s.nextNonce()

	sig, err := s.signTypedData(timestamp, nonce, method, path, body)
	if err != nil {
		return nil, fmt.Errorf("sign typed data: %w", err)
	}

	return map[string]string{
		"ARKIN-ADDRESS":   s.address.Hex(),
		"ARKIN-TIMESTAMP": timestamp,
		"ARKIN-NONCE":     strconv.FormatUint(nonce, 10),
		"ARKIN-SIGNATURE": "0x" + hex.EncodeToString(sig),
	}, nil
}

func (s *EIP712Signer) nextNonce() uint64 {
	s.nonce++
	return s.nonce
}

func (s *EIP712Signer) signTypedData(timestamp string, nonce uint64, method, path string, body []byte) ([]byte, error) {
	typedData := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
			},
			"RequestAuth": {
				{Name: "address", Type: "address"},
				{Name: "timestamp", Type: "string"},
				{Name: "nonce", Type: "uint256"},
				{Name: "method", Type: "string"},
				{Name: "path", Type: "string"},
				{Name: "bodyHash", Type: "string"},
			},
		},
		PrimaryType: "RequestAuth",
		Domain: apitypes.TypedDataDomain{
			Name:    "ArkinRequestAuth",
			Version: "1",
			ChainId: (*ethmath.HexOrDecimal256)(new(big.Int).Set(s.chainID)),
		},
		Message: apitypes.TypedDataMessage{
			"address":   s.address.Hex(),
			"timestamp": timestamp,
			"nonce":     strconv.FormatUint(nonce, 10),
			"method":    method,
			"path":      path,
			"bodyHash":  hex.EncodeToString(crypto.Keccak256(body)),
		},
	}

	hash, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return nil, fmt.Errorf("typed data hash: %w", err)
	}
	sig, err := crypto.Sign(hash, s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	if sig[64] < 27 {
		sig[64] += 27
	}
	return sig, nil
}

var _ Signer = (*EIP712Signer)(nil)

package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"walletcard/pkg/storage"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrNoSession      = errors.New("session: not logged in")
	ErrInvalidAddress = errors.New("session: invalid address")
)

// Session is the logged-in identity.
type Session struct {
	Address string
	Token   string
}

// Provider supplies the current session and a logout operation.
type Provider interface {
	Current() *Session
	Logout(ctx context.Context, setToken func(string)) error
}

// KV is the subset of storage.Store the provider needs.
type KV interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(keys ...string) error
}

// LocalProvider keeps the session in local persistent storage.
type LocalProvider struct {
	store KV
}

func NewLocalProvider(store KV) *LocalProvider {
	return &LocalProvider{store: store}
}

// StoredAddress returns the address saved under storage.KeyUser, or "".
func (p *LocalProvider) StoredAddress() string {
	addr, err := p.store.Get(storage.KeyUser)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Warn().Err(err).Msg("read stored user address")
		}
		return ""
	}
	return addr
}

func (p *LocalProvider) Current() *Session {
	token, err := p.store.Get(storage.KeyToken)
	if err != nil || token == "" {
		return nil
	}
	return &Session{Address: p.StoredAddress(), Token: token}
}

// Login stores address as the session identity and returns the new token.
func (p *LocalProvider) Login(address string) (*Session, error) {
	address = strings.TrimSpace(address)
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	checksummed := common.HexToAddress(address).Hex()
	token := uuid.NewString()

	if err := p.store.Set(storage.KeyUser, checksummed); err != nil {
		return nil, fmt.Errorf("store user: %w", err)
	}
	if err := p.store.Set(storage.KeyToken, token); err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}
	log.Info().Str("address", checksummed).Msg("session started")
	return &Session{Address: checksummed, Token: token}, nil
}

func (p *LocalProvider) Logout(ctx context.Context, setToken func(string)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.Current() == nil {
		return ErrNoSession
	}
	if err := p.store.Delete(storage.KeyToken, storage.KeyUser); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	if setToken != nil {
		setToken("")
	}
	log.Info().Msg("session cleared")
	return nil
}

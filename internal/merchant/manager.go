// Package merchant keeps the named gateway accounts the merchant server can
// switch between, backed by a YAML file.
package merchant

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v2"

	"github.com/fieldcrypt/client-go/internal/gateway"
)

var (
	// ErrNotFound is returned for an unknown account name.
	ErrNotFound = errors.New("account not found")
	// ErrExists is returned by Add for a name already in use.
	ErrExists = errors.New("account already exists")
	// ErrInvalidAccount is returned for an account missing required fields.
	ErrInvalidAccount = errors.New("invalid account")
)

// Account holds the credentials of one gateway merchant.
type Account struct {
	Environment gateway.Environment `yaml:"environment" json:"environment"`
	MerchantID  string              `yaml:"merchant_id" json:"merchant_id"`
	PublicKey   string              `yaml:"public_key" json:"public_key"`
	PrivateKey  string              `yaml:"private_key" json:"-"`
	// EncryptionKey is the base64 RSA public key used for field encryption.
	EncryptionKey string `yaml:"encryption_key,omitempty" json:"encryption_key,omitempty"`
}

// Validate checks that the gateway credentials are present.
func (a Account) Validate() error {
	switch {
	case a.Environment == "":
		return fmt.Errorf("%w: environment is required", ErrInvalidAccount)
	case a.MerchantID == "":
		return fmt.Errorf("%w: merchant_id is required", ErrInvalidAccount)
	case a.PublicKey == "" || a.PrivateKey == "":
		return fmt.Errorf("%w: public_key and private_key are required", ErrInvalidAccount)
	}
	if _, ok := a.Environment.BaseURL(); !ok {
		return fmt.Errorf("%w: unknown environment %q", ErrInvalidAccount, a.Environment)
	}
	return nil
}

// GatewayConfig returns the gateway client settings for the account.
func (a Account) GatewayConfig() gateway.Config {
	return gateway.Config{
		Environment: a.Environment,
		MerchantID:  a.MerchantID,
		PublicKey:   a.PublicKey,
		PrivateKey:  a.PrivateKey,
	}
}

// fileConfig is the YAML layout.
type fileConfig struct {
	Current         string             `yaml:"current"`
	MerchantAccount string             `yaml:"merchant_account,omitempty"`
	Accounts        map[string]Account `yaml:"accounts"`
}

// Manager is safe for concurrent use.
type Manager struct {
	mu              sync.RWMutex
	accounts        map[string]Account
	current         string
	merchantAccount string
}

// NewManager returns an empty manager.
func NewManager() *Manager {
	return &Manager{accounts: make(map[string]Account)}
}

// Parse builds a manager from YAML. Without an explicit current account
// the first name in sorted order is used.
func Parse(data []byte) (*Manager, error) {
	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse merchant config: %w", err)
	}

	m := NewManager()
	for name, account := range cfg.Accounts {
		if err := account.Validate(); err != nil {
			return nil, fmt.Errorf("account %q: %w", name, err)
		}
		m.accounts[name] = account
	}
	m.merchantAccount = cfg.MerchantAccount

	switch {
	case cfg.Current != "":
		if _, ok := m.accounts[cfg.Current]; !ok {
			return nil, fmt.Errorf("current account %q: %w", cfg.Current, ErrNotFound)
		}
		m.current = cfg.Current
	case len(m.accounts) > 0:
		m.current = m.namesLocked()[0]
	}
	return m, nil
}

// Load reads a YAML config file.
func Load(path string) (*Manager, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Marshal renders the manager as YAML.
func (m *Manager) Marshal() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return yaml.Marshal(fileConfig{
		Current:         m.current,
		MerchantAccount: m.merchantAccount,
		Accounts:        m.accounts,
	})
}

// Save writes the manager to path with owner-only permissions.
func (m *Manager) Save(path string) error {
	data, err := m.Marshal()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Has reports whether name is configured.
func (m *Manager) Has(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.accounts[name]
	return ok
}

// Add stores a new account. The first account added becomes current.
func (m *Manager) Add(name string, account Account) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidAccount)
	}
	if err := account.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[name]; ok {
		return fmt.Errorf("%s: %w", name, ErrExists)
	}
	m.accounts[name] = account
	if m.current == "" {
		m.current = name
	}
	return nil
}

// Remove deletes an account. Removing the current account clears it.
func (m *Manager) Remove(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.accounts, name)
	if m.current == name {
		m.current = ""
	}
}

// Activate makes name the current account.
func (m *Manager) Activate(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[name]; !ok {
		return fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	m.current = name
	return nil
}

// Current returns the active account name and account.
func (m *Manager) Current() (string, Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.current == "" {
		return "", Account{}, fmt.Errorf("no current account: %w", ErrNotFound)
	}
	return m.current, m.accounts[m.current], nil
}

// CurrentName returns the active account name, or "" if none.
func (m *Manager) CurrentName() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Get returns a named account.
func (m *Manager) Get(name string) (Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	account, ok := m.accounts[name]
	if !ok {
		return Account{}, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return account, nil
}

// List returns the configured account names in sorted order.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.namesLocked()
}

func (m *Manager) namesLocked() []string {
	names := make([]string, 0, len(m.accounts))
	for name := range m.accounts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MerchantAccount returns the merchant account passed with sales, or "".
func (m *Manager) MerchantAccount() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.merchantAccount
}

// SetMerchantAccount sets the merchant account; "" clears it.
func (m *Manager) SetMerchantAccount(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.merchantAccount = id
}

// View is the JSON rendering of the manager. Private keys are omitted.
type View struct {
	Current         string             `json:"current"`
	MerchantAccount string             `json:"merchant_account,omitempty"`
	Accounts        map[string]Account `json:"accounts"`
}

// View returns a snapshot for rendering.
func (m *Manager) View() View {
	m.mu.RLock()
	defer m.mu.RUnlock()

	accounts := make(map[string]Account, len(m.accounts))
	for name, account := range m.accounts {
		accounts[name] = account
	}
	return View{Current: m.current, MerchantAccount: m.merchantAccount, Accounts: accounts}
}

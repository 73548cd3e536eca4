// Package settings manages persistent user settings for the relayctl CLI.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/newtron-network/relayctl/pkg/relay"
)

// Settings holds persistent user preferences
type Settings struct {
	// DefaultUser is the SSH user when -u is not specified
	DefaultUser string `json:"default_user,omitempty"`

	// ListName is the authorized relay list to read
	ListName string `json:"list_name,omitempty"`

	// ListFile is a YAML list file used when no Redis address is set
	ListFile string `json:"list_file,omitempty"`

	// RedisAddr enables the Redis list store and device locking
	RedisAddr string `json:"redis_addr,omitempty"`

	// ListDB and LockDB select the Redis databases for lists and locks
	ListDB int `json:"list_db,omitempty"`
	LockDB int `json:"lock_db,omitempty"`

	// AuditLog overrides the audit log path
	AuditLog string `json:"audit_log,omitempty"`
}

// DefaultLockDB keeps locks apart from list rows in database 0.
const DefaultLockDB = 1

// DefaultSettingsPath returns the default path for the settings file
func DefaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "relayctl_settings.json"
	}
	return filepath.Join(home, ".relayctl", "settings.json")
}

// Load reads settings from the default location
func Load() (*Settings, error) {
	return LoadFrom(DefaultSettingsPath())
}

// LoadFrom reads settings from a specific path. A missing file yields empty
// settings.
func LoadFrom(path string) (*Settings, error) {
	s := &Settings{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return s, nil
}

// Save writes settings to the default location
func (s *Settings) Save() error {
	return s.SaveTo(DefaultSettingsPath())
}

// SaveTo writes settings to a specific path
func (s *Settings) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// GetListName returns the list name (with fallback)
func (s *Settings) GetListName() string {
	if s.ListName != "" {
		return s.ListName
	}
	return relay.DefaultListName
}

// GetLockDB returns the lock database (with fallback)
func (s *Settings) GetLockDB() int {
	if s.LockDB != 0 {
		return s.LockDB
	}
	return DefaultLockDB
}

// GetAuditLog returns the audit log path (with fallback)
func (s *Settings) GetAuditLog() string {
	if s.AuditLog != "" {
		return s.AuditLog
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "relayctl_audit.log"
	}
	return filepath.Join(home, ".relayctl", "audit.log")
}

type field struct {
	get func(*Settings) string
	set func(*Settings, string) error
}

func intField(p func(*Settings) *int) field {
	return field{
		get: func(s *Settings) string {
			if v := *p(s); v != 0 {
				return strconv.Itoa(v)
			}
			return ""
		},
		set: func(s *Settings, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return fmt.Errorf("invalid database number %q", v)
			}
			*p(s) = n
			return nil
		},
	}
}

func stringField(p func(*Settings) *string) field {
	return field{
		get: func(s *Settings) string { return *p(s) },
		set: func(s *Settings, v string) error { *p(s) = v; return nil },
	}
}

var fields = map[string]field{
	"default_user": stringField(func(s *Settings) *string { return &s.DefaultUser }),
	"list_name":    stringField(func(s *Settings) *string { return &s.ListName }),
	"list_file":    stringField(func(s *Settings) *string { return &s.ListFile }),
	"redis_addr":   stringField(func(s *Settings) *string { return &s.RedisAddr }),
	"list_db":      intField(func(s *Settings) *int { return &s.ListDB }),
	"lock_db":      intField(func(s *Settings) *int { return &s.LockDB }),
	"audit_log":    stringField(func(s *Settings) *string { return &s.AuditLog }),
}

// Keys returns the setting names in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the stored value of a setting, "" when unset.
func (s *Settings) Get(key string) (string, error) {
	f, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("unknown setting: %s (valid: %v)", key, Keys())
	}
	return f.get(s), nil
}

// Set stores a setting by name.
func (s *Settings) Set(key, value string) error {
	f, ok := fields[key]
	if !ok {
		return fmt.Errorf("unknown setting: %s (valid: %v)", key, Keys())
	}
	return f.set(s, value)
}

// Clear resets all settings to defaults
func (s *Settings) Clear() {
	*s = Settings{}
}

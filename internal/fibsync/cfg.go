package fibsync

import "time"

// Config controls mirroring of the table into the kernel FIB.
type Config struct {
	// Enabled turns the mirror on. Off by default: the table is useful on
	// its own and installing kernel routes needs CAP_NET_ADMIN.
	Enabled bool `yaml:"enabled"`
	// Table is the kernel routing table the routes are installed into.
	Table int `yaml:"table"`
	// SyncInterval bounds how often the kernel state is reconciled.
	SyncInterval time.Duration `yaml:"sync_interval"`
	// Links are glob patterns over interface names. A route is mirrored
	// only when its nexthop is on-link behind a matching interface.
	Links []string `yaml:"links"`
}

func DefaultConfig() *Config {
	return &Config{
		Table:        200,
		SyncInterval: 5 * time.Second,
		Links:        []string{"*"},
	}
}

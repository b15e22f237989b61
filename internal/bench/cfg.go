package bench

// Config describes one benchmark run.
type Config struct {
	// Routes is the number of synthetic prefixes bulk-inserted before the
	// lookup phase.
	Routes int `yaml:"routes"`
	// Lookups is the total number of resolutions performed.
	Lookups int `yaml:"lookups"`
	// Workers is the number of concurrent lookup goroutines.
	Workers int `yaml:"workers"`
	// Seed makes runs reproducible.
	Seed uint64 `yaml:"seed"`
	// UseCache routes lookups through the lookup cache instead of hitting
	// the trie directly.
	UseCache bool `yaml:"use_cache"`
	// PcapPath, when set, replays the IPv4 destination addresses of a
	// capture file instead of generating synthetic queries.
	PcapPath string `yaml:"pcap_path"`
}

func DefaultConfig() *Config {
	return &Config{
		Routes:   100_000,
		Lookups:  1_000_000,
		Workers:  4,
		Seed:     42,
		UseCache: true,
	}
}

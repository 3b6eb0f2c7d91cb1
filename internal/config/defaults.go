package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Conversion.DateLayout == "" {
		cfg.Conversion.DateLayout = "2006-01-02"
	}
	if cfg.Indexing.Workers == 0 {
		cfg.Indexing.Workers = 4
	}
}

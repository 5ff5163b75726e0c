package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = BackendSQLite
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/lostfound/data/items.db"
	}
	if cfg.Storage.ItemsPath == "" {
		cfg.Storage.ItemsPath = "/usr/local/var/lostfound/data/items.json"
	}
	if cfg.Storage.IndexPath == "" {
		cfg.Storage.IndexPath = "/usr/local/var/lostfound/data/faiss_index.index"
	}
	if cfg.Storage.IDMapPath == "" {
		cfg.Storage.IDMapPath = "/usr/local/var/lostfound/data/id_map.json"
	}
	if cfg.Vector.IndexType == "" {
		cfg.Vector.IndexType = "memory"
	}
	if cfg.Vector.Dimensions == 0 {
		cfg.Vector.Dimensions = 512
	}
	if cfg.Match.ScoreThreshold == 0 {
		cfg.Match.ScoreThreshold = 0.5
	}
	if cfg.Match.TopK == 0 {
		cfg.Match.TopK = 5
	}
	if cfg.Match.MaxTopK == 0 {
		cfg.Match.MaxTopK = 100
	}
}

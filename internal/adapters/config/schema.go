package config

// Modkitfile represents the structure of the modkit.yaml configuration file.
// Every field is optional; absent fields keep their defaults.
type Modkitfile struct {
	Paths      PathsDTO      `yaml:"paths"`
	Timeouts   TimeoutsDTO   `yaml:"timeouts"`
	Backups    BackupsDTO    `yaml:"backups"`
	Download   DownloadDTO   `yaml:"download"`
	GitHub     GitHubDTO     `yaml:"github"`
	Registry   RegistryDTO   `yaml:"registry"`
	Composer   ComposerDTO   `yaml:"composer"`
	Validation ValidationDTO `yaml:"validation"`
}

// PathsDTO holds directory overrides relative to the application root.
type PathsDTO struct {
	Modules  string `yaml:"modules"`
	Backups  string `yaml:"backups"`
	Locks    string `yaml:"locks"`
	Staging  string `yaml:"staging"`
	Keys     string `yaml:"keys"`
	Manifest string `yaml:"manifest"`
}

// TimeoutsDTO holds durations in time.ParseDuration syntax.
type TimeoutsDTO struct {
	Lock string `yaml:"lock"`
	Hook string `yaml:"hook"`
	HTTP string `yaml:"http"`
}

// BackupsDTO configures snapshot retention.
type BackupsDTO struct {
	Keep    *int     `yaml:"keep"`
	Expiry  string   `yaml:"expiry"`
	Exclude []string `yaml:"exclude"`
}

// DownloadDTO configures package downloads.
type DownloadDTO struct {
	MaxSize int64 `yaml:"max_size"`
}

// GitHubDTO configures the GitHub provider.
type GitHubDTO struct {
	API      string `yaml:"api"`
	TokenEnv string `yaml:"token_env"`
}

// RegistryDTO configures the first-party registry provider.
type RegistryDTO struct {
	Host     string `yaml:"host"`
	Scheme   string `yaml:"scheme"`
	API      string `yaml:"api"`
	TokenEnv string `yaml:"token_env"`
}

// ComposerDTO configures dependency resolution.
type ComposerDTO struct {
	Binary  string `yaml:"binary"`
	Resolve *bool  `yaml:"resolve"`
}

// ValidationDTO configures the module validator.
type ValidationDTO struct {
	MetadataFile string   `yaml:"metadata_file"`
	RequiredDirs []string `yaml:"required_dirs"`
	Disallowed   []string `yaml:"disallowed"`
}

package domain

import (
	"path/filepath"
	"time"
)

const (
	// DefaultLockTimeout is the age after which a lock is considered abandoned.
	DefaultLockTimeout = 300 * time.Second
	// DefaultHookTimeout bounds a single lifecycle hook.
	DefaultHookTimeout = 300 * time.Second
	// DefaultHTTPTimeout bounds a single provider request.
	DefaultHTTPTimeout = 60 * time.Second
	// DefaultBackupKeepCount is the number of snapshots kept per label.
	DefaultBackupKeepCount = 3
	// DefaultBackupExpiry is the age after which any snapshot is reclaimed.
	DefaultBackupExpiry = 48 * time.Hour
	// DefaultMaxDownloadSize caps a fetched package (100 MiB).
	DefaultMaxDownloadSize int64 = 100 << 20

	// DefaultGitHubAPI is the GitHub REST API base URL.
	DefaultGitHubAPI = "https://api.github.com"
	// DefaultGitHubTokenEnv is the environment variable consulted for a GitHub token.
	DefaultGitHubTokenEnv = "GITHUB_TOKEN"
	// DefaultRegistryHost is the first-party registry host.
	DefaultRegistryHost = "webkernelphp.com"
	// DefaultRegistryScheme is the first-party registry identifier scheme.
	DefaultRegistryScheme = "wk://"
	// DefaultRegistryAPI is the first-party registry API base URL.
	DefaultRegistryAPI = "https://webkernelphp.com/api/modules"
	// DefaultRegistryTokenEnv is the environment variable consulted for a registry token.
	DefaultRegistryTokenEnv = "MODKIT_REGISTRY_TOKEN"
	// DefaultComposerBinary is the dependency resolver executable.
	DefaultComposerBinary = "composer"
)

// Config is the explicit configuration handed to every component.
// All paths are absolute.
type Config struct {
	Root         string
	ModulesDir   string
	BackupDir    string
	LockDir      string
	StagingDir   string
	KeysDir      string
	HostManifest string

	LockTimeout     time.Duration
	HookTimeout     time.Duration
	HTTPTimeout     time.Duration
	BackupKeepCount int
	BackupExpiry    time.Duration
	MaxDownloadSize int64
	BackupExcludes  []string

	GitHub     GitHubConfig
	Registry   RegistryConfig
	Composer   ComposerConfig
	Validation ValidationConfig
}

// GitHubConfig configures the GitHub provider.
type GitHubConfig struct {
	APIBaseURL string
	TokenEnv   string
}

// RegistryConfig configures the first-party registry provider and identifier recognition.
type RegistryConfig struct {
	Host       string
	Scheme     string
	APIBaseURL string
	TokenEnv   string
}

// ComposerConfig configures host dependency resolution.
type ComposerConfig struct {
	Binary  string
	Resolve bool
}

// ValidationConfig configures the module validator.
type ValidationConfig struct {
	MetadataFile string
	RequiredDirs []string
	Disallowed   []string
}

// DefaultConfig returns the default configuration rooted at root.
func DefaultConfig(root string) *Config {
	return &Config{
		Root:            root,
		ModulesDir:      filepath.Join(root, DefaultModulesDir),
		BackupDir:       filepath.Join(root, filepath.FromSlash(DefaultBackupDir)),
		LockDir:         filepath.Join(root, filepath.FromSlash(DefaultLockDir)),
		StagingDir:      filepath.Join(root, filepath.FromSlash(DefaultStagingDir)),
		KeysDir:         filepath.Join(root, filepath.FromSlash(DefaultKeysDir)),
		HostManifest:    filepath.Join(root, DefaultHostManifest),
		LockTimeout:     DefaultLockTimeout,
		HookTimeout:     DefaultHookTimeout,
		HTTPTimeout:     DefaultHTTPTimeout,
		BackupKeepCount: DefaultBackupKeepCount,
		BackupExpiry:    DefaultBackupExpiry,
		MaxDownloadSize: DefaultMaxDownloadSize,
		BackupExcludes:  DefaultBackupExcludes(),
		GitHub: GitHubConfig{
			APIBaseURL: DefaultGitHubAPI,
			TokenEnv:   DefaultGitHubTokenEnv,
		},
		Registry: RegistryConfig{
			Host:       DefaultRegistryHost,
			Scheme:     DefaultRegistryScheme,
			APIBaseURL: DefaultRegistryAPI,
			TokenEnv:   DefaultRegistryTokenEnv,
		},
		Composer: ComposerConfig{
			Binary:  DefaultComposerBinary,
			Resolve: true,
		},
		Validation: ValidationConfig{
			MetadataFile: ModuleMetadataFile,
			RequiredDirs: []string{"src"},
			Disallowed:   DefaultDisallowedEntries(),
		},
	}
}

// TokenFile is the path of the encrypted token store.
func (c *Config) TokenFile() string {
	return filepath.Join(c.KeysDir, TokenFileName)
}

// AppKeyFile is the path of the generated token encryption key.
func (c *Config) AppKeyFile() string {
	return filepath.Join(c.KeysDir, AppKeyFileName)
}

// ModuleDir is the absolute install path of the module.
func (c *Config) ModuleDir(id Identifier) string {
	return filepath.Join(c.ModulesDir, filepath.FromSlash(id.InstallSubPath()))
}

// RelativeToRoot renders p relative to the application root when possible.
func (c *Config) RelativeToRoot(p string) string {
	rel, err := filepath.Rel(c.Root, p)
	if err != nil {
		return p
	}
	return filepath.ToSlash(rel)
}

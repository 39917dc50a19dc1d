package domain

const (
	// ConfigFileName is the name of the optional project configuration file.
	ConfigFileName = "modkit.yaml"

	// DefaultModulesDir is where modules are installed, relative to the application root.
	DefaultModulesDir = "Modules"

	// DefaultBackupDir is the backup root, relative to the application root.
	DefaultBackupDir = "storage/system/backups"

	// DefaultLockDir is the lock root, relative to the application root.
	DefaultLockDir = "storage/system/locks"

	// DefaultStagingDir holds staged packages, relative to the application root.
	// It lives on the same filesystem as the modules directory so commits are renames.
	DefaultStagingDir = "storage/system/staging"

	// DefaultKeysDir holds the token store and its key, relative to the application root.
	DefaultKeysDir = "storage/system/keys"

	// TokenFileName is the name of the token store inside the keys directory.
	TokenFileName = "config.json"

	// AppKeyFileName is the name of the generated encryption key inside the keys directory.
	AppKeyFileName = "app.key"

	// DefaultHostManifest is the host dependency manifest, relative to the application root.
	DefaultHostManifest = "composer.json"

	// ModuleMetadataFile is the metadata file every module ships at its root.
	ModuleMetadataFile = "module.json"

	// ModuleManifestFile is the dependency manifest a module may ship at its root.
	ModuleManifestFile = "composer.json"

	// BackupMetaFile is the metadata sidecar written into every snapshot.
	BackupMetaFile = ".backup-meta.json"

	// BackupTimestampLayout formats the timestamp suffix of a snapshot directory.
	BackupTimestampLayout = "2006-01-02_15-04-05"

	// LockFileExt is the extension of lock files.
	LockFileExt = ".lock"

	// ManifestLockKey is the lock key serializing writes to the host manifest.
	ManifestLockKey = "composer-manifest"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644

	// PrivateFilePerm is the default permission for private files (rw-------).
	PrivateFilePerm = 0o600
)

// DefaultBackupExcludes are the patterns never captured into a snapshot.
// A leading "*/" also matches at the top level of the tree.
func DefaultBackupExcludes() []string {
	return []string{
		"*/backups/*",
		"*/backups",
		"*/locks/*",
		"*/locks",
		"*.lock",
		"*/.locks/*",
		"*/.locks",
	}
}

// DefaultDisallowedEntries are the names a staged module must not contain at any depth.
func DefaultDisallowedEntries() []string {
	return []string{".git", "vendor", "node_modules", ".env"}
}

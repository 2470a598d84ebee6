package main

import "time"

// appConfig drives the orchestrator: which target to launch, where to put
// dumps, and how to scope the coverage filter. Persistence (runhistory) and
// archival (dumpstore) are configured separately and stay off unless
// NATIVECOV_ENABLE_PERSISTENCE (and, for archival, also
// NATIVECOV_ENABLE_ARCHIVAL) is set, since most local runs have neither a
// database nor an S3 bucket available.
type appConfig struct {
	CommandLine   string `env:"NATIVECOV_TARGET,required"`
	DumpOnCrash   bool   `env:"NATIVECOV_DUMP_ON_CRASH" envDefault:"true"`
	DumpDirectory string `env:"NATIVECOV_DUMP_DIR" envDefault:"./dumps"`
	StopOnAssert  bool   `env:"NATIVECOV_STOP_ON_ASSERT" envDefault:"false"`

	ModulePatterns []string `env:"NATIVECOV_MODULE_PATTERNS" envSeparator:","`
	SourcePatterns []string `env:"NATIVECOV_SOURCE_PATTERNS" envSeparator:","`
	DiffFile       string   `env:"NATIVECOV_DIFF_FILE"`
	RepoRoot       string   `env:"NATIVECOV_REPO_ROOT" envDefault:"."`

	EnablePersistence      bool   `env:"NATIVECOV_ENABLE_PERSISTENCE" envDefault:"false"`
	EnableArchival         bool   `env:"NATIVECOV_ENABLE_ARCHIVAL" envDefault:"false"`
	EnableDistributedGuard bool   `env:"NATIVECOV_ENABLE_DISTRIBUTED_GUARD" envDefault:"false"`
	RedisURL               string `env:"NATIVECOV_REDIS_URL"`

	DumpGuardCapacity       int           `env:"NATIVECOV_DUMPGUARD_CAPACITY" envDefault:"5"`
	DumpGuardRefillRate     int           `env:"NATIVECOV_DUMPGUARD_REFILL_RATE" envDefault:"5"`
	DumpGuardRefillInterval time.Duration `env:"NATIVECOV_DUMPGUARD_REFILL_INTERVAL" envDefault:"1m"`
}

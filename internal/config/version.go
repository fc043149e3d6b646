package config

// Version is set at build time via -ldflags "-X .../config.Version=...".
var Version = "dev"

func GetVersion() string { return Version }

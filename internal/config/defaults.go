package config

const (
	defaultOutputRoot    = "~/MakeMKV_Out"
	defaultMakemkvBinary = "makemkvcon"
	defaultMinLength     = 120
	defaultNamingMode    = "disc_or_folder"
	defaultScanDepth     = 3
	defaultSettleMillis  = 1500
	defaultInfoTimeout   = 180
	defaultLogFormat     = "console"
	defaultLogLevel      = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Rip: Rip{
			OutputRoot:       defaultOutputRoot,
			MakemkvBinary:    defaultMakemkvBinary,
			MinLength:        defaultMinLength,
			NamingMode:       defaultNamingMode,
			HumanLog:         true,
			ShowPercent:      true,
			ReprobeBeforeRip: true,
		},
		Scan: Scan{
			MaxDepth:     defaultScanDepth,
			SettleMillis: defaultSettleMillis,
		},
		Probe: Probe{
			InfoTimeout: defaultInfoTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

package config

const (
	defaultConfigPath      = "~/.config/notifer/config.toml"
	defaultBaseURL         = "https://app.notifer.io"
	defaultRequestTimeout  = 30
	defaultUserAgent       = "notifer-go/0.1.0"
	defaultBackend         = BackendKeyring
	defaultKeyringService  = "notifer"
	defaultCredentialsFile = "~/.config/notifer/credentials.toml"
	defaultHistoryPath     = "~/.local/share/notifer/history.db"
	defaultHistoryDays     = 90
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
)

// Credential backends understood by the credentials section.
const (
	BackendKeyring = "keyring"
	BackendFile    = "file"
	BackendEnv     = "env"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		API: API{
			BaseURL:        defaultBaseURL,
			RequestTimeout: defaultRequestTimeout,
			UserAgent:      defaultUserAgent,
		},
		Credentials: Credentials{
			Backend:        defaultBackend,
			KeyringService: defaultKeyringService,
			File:           defaultCredentialsFile,
			EnvFallback:    true,
		},
		Notify: Notify{
			OnSuccess:  true,
			OnFailure:  true,
			OnUnstable: true,
			OnAborted:  false,
		},
		History: History{
			Enabled:       true,
			Path:          defaultHistoryPath,
			RetentionDays: defaultHistoryDays,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

package config

import "github.com/alanyoungcy/pumpbot/internal/strategy"

// RedactedConfig returns a copy of cfg with sensitive fields replaced by the
// redaction placeholder "***". Use this when logging, printing or backing up
// the active configuration so secrets are never exposed.
func RedactedConfig(cfg *Config) Config {
	out := *cfg

	redact(&out.Wallet.PrivateKey)
	redact(&out.Wallet.KeyPassword)
	redact(&out.PumpPortal.APIKey)
	redact(&out.Monitoring.WebhookURL)
	redact(&out.Monitoring.WebhookSecret)
	redact(&out.Supabase.DSN)
	redact(&out.Supabase.Password)
	redact(&out.Redis.Password)
	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)
	redact(&out.Server.APIKey)
	redact(&out.Notify.TelegramToken)
	redact(&out.Notify.DiscordWebhookURL)

	// Copy slices and maps so mutations to the redacted copy do not reach
	// the original.
	if cfg.Notify.Events != nil {
		out.Notify.Events = append([]string(nil), cfg.Notify.Events...)
	}
	if cfg.Server.CORSOrigins != nil {
		out.Server.CORSOrigins = append([]string(nil), cfg.Server.CORSOrigins...)
	}
	if cfg.Strategies != nil {
		out.Strategies = make([]strategy.Config, len(cfg.Strategies))
		for i, s := range cfg.Strategies {
			out.Strategies[i] = s
			if s.Params != nil {
				out.Strategies[i].Params = make(strategy.Params, len(s.Params))
				for k, v := range s.Params {
					out.Strategies[i].Params[k] = v
				}
			}
		}
	}

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}

package config

// RedactedConfig returns a shallow copy of cfg with sensitive fields replaced
// by the redaction placeholder "***". Use this when logging or printing the
// active configuration so secrets are never accidentally exposed.
func RedactedConfig(cfg *Config) Config {
	out := *cfg

	redact(&out.BTCMarkets.APIKey)
	redact(&out.BTCMarkets.APISecret)
	redact(&out.BTCMarkets.SecretPassword)

	redact(&out.Coinbase.APIKey)
	redact(&out.Coinbase.APISecret)
	redact(&out.Coinbase.SecretPassword)

	redact(&out.Notify.PushedAppKey)
	redact(&out.Notify.PushedAppSecret)
	redact(&out.Notify.TelegramToken)
	redact(&out.Notify.DiscordWebhookURL)

	redact(&out.Sheets.CredentialsJSON)

	redact(&out.Postgres.DSN)
	redact(&out.Postgres.Password)

	redact(&out.Redis.Password)

	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)

	redact(&out.Server.APIKey)

	// Copy slices so callers cannot mutate the original through the redacted
	// copy.
	out.Cycle.Assets = cloneStrings(cfg.Cycle.Assets)
	out.Cycle.ReferenceCurrencies = cloneStrings(cfg.Cycle.ReferenceCurrencies)
	out.Notify.Events = cloneStrings(cfg.Notify.Events)
	out.Server.CORSOrigins = cloneStrings(cfg.Server.CORSOrigins)

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

package config

// RedactedConfig returns a shallow copy of cfg with sensitive fields
// replaced by the redaction placeholder "***". Use this when logging or
// printing the active configuration so secrets are never accidentally
// exposed.
func RedactedConfig(cfg *Config) Config {
	out := *cfg

	redact(&out.Binance.APIKey)
	redact(&out.Binance.APISecret)
	redact(&out.Gate.APIKey)
	redact(&out.Gate.APISecret)

	redact(&out.Postgres.DSN)
	redact(&out.Postgres.Password)
	redact(&out.Redis.Password)
	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)

	redact(&out.Notify.TelegramToken)
	redact(&out.Notify.DiscordWebhookURL)

	// Copy slices so callers cannot mutate the original through the
	// redacted copy.
	out.Scraper.Exclusions = copyStrings(cfg.Scraper.Exclusions)
	out.Notify.TelegramCategories = copyStrings(cfg.Notify.TelegramCategories)
	out.Notify.DiscordCategories = copyStrings(cfg.Notify.DiscordCategories)
	out.Notify.ConsoleCategories = copyStrings(cfg.Notify.ConsoleCategories)

	return out
}

const redactedPlaceholder = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redactedPlaceholder
	}
}

func copyStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

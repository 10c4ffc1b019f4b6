package logging

import (
	"log/slog"
	"regexp"

	"github.com/m-mizutani/masq"
)

// Values that are credentials whatever attribute carries them, such as the
// Authorization header a connector forwards.
var (
	jwtPattern    = regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`)
	authSchemeRe  = regexp.MustCompile(`(?i)^(bearer|basic)\s+.+$`)
	sensitiveKeys = []string{
		"password",
		"secret",
		"token",
		"apiKey", "apikey", "api_key",
		"accessToken", "access_token",
		"refreshToken", "refresh_token",
		"credential", "credentials",
		"authorization", "auth", "bearer",
		"cookie", "session",
		"privateKey", "private_key",
		"clientSecret", "client_secret",
	}
)

// DefaultRedactOptions returns the masq options applied to every engine
// logger. Extend them through NewReplaceAttr:
//
//	logging.NewReplaceAttr(masq.WithFieldName("invoiceIban"))
func DefaultRedactOptions() []masq.Option {
	opts := make([]masq.Option, 0, len(sensitiveKeys)+4)
	for _, key := range sensitiveKeys {
		opts = append(opts, masq.WithFieldName(key))
	}

	return append(opts,
		masq.WithFieldPrefix("secret"),
		masq.WithFieldPrefix("private"),
		masq.WithRegex(jwtPattern),
		masq.WithRegex(authSchemeRe),
	)
}

// NewReplaceAttr returns a slog ReplaceAttr func redacting the default
// sensitive attributes plus opts.
func NewReplaceAttr(opts ...masq.Option) func(groups []string, a slog.Attr) slog.Attr {
	return masq.New(append(DefaultRedactOptions(), opts...)...)
}

package types

import "log/slog"

const redacted = "[redacted]"

// Credential is the user's generation API key. It lives only in session
// memory and formats as a redacted placeholder everywhere except Reveal.
type Credential struct {
	secret string
}

func NewCredential(secret string) Credential { return Credential{secret: secret} }

func (c Credential) Empty() bool { return c.secret == "" }

// Reveal returns the raw secret. Only the generation client calls it.
func (c Credential) Reveal() string { return c.secret }

func (c Credential) String() string {
	if c.Empty() {
		return ""
	}
	return redacted
}

func (c Credential) GoString() string { return "types.Credential{" + c.String() + "}" }

func (c Credential) LogValue() slog.Value { return slog.StringValue(c.String()) }

// MarshalText keeps the secret out of any JSON or text encoding.
func (c Credential) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

package errs

import (
	"regexp"
	"strings"
)

const redactionMarker = "[REDACTED]"

// keyParamPattern matches API keys passed as query parameters, the way the
// Gemini HTTP surface reports them back inside error bodies.
var keyParamPattern = regexp.MustCompile(`([?&]key=)[^&\s"']+`)

// Redactor strips secrets out of messages before they are persisted or
// streamed. Query-string keys are always masked; any configured secret
// values are masked verbatim wherever they appear.
type Redactor struct {
	secrets []string
}

// NewRedactor builds a redactor over the given secret values. Empty values
// are ignored.
func NewRedactor(secrets ...string) *Redactor {
	r := &Redactor{}
	for _, s := range secrets {
		if s != "" {
			r.secrets = append(r.secrets, s)
		}
	}
	return r
}

// Redact returns msg with every secret replaced by the redaction marker.
// Surrounding diagnostic text (status codes, provider error categories)
// is preserved.
func (r *Redactor) Redact(msg string) string {
	msg = keyParamPattern.ReplaceAllString(msg, "${1}"+redactionMarker)
	for _, s := range r.secrets {
		msg = strings.ReplaceAll(msg, s, redactionMarker)
	}
	return msg
}

// RedactError is a convenience over Redact for error values.
func (r *Redactor) RedactError(err error) string {
	if err == nil {
		return ""
	}
	return r.Redact(err.Error())
}

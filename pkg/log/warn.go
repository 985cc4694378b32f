package log

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/clinml/paascreen/pkg/errors"
)

// UseZerologWarnings routes library warnings (ConvergenceWarning,
// UndefinedMetricWarning, ...) through a zerolog logger writing to w.
// Warning types implementing zerolog.LogObjectMarshaler are emitted as
// structured objects; anything else falls back to the error string.
func UseZerologWarnings(w io.Writer) {
	zl := zerolog.New(w).With().Timestamp().Logger()
	errors.SetZerologWarnFunc(func(warning error) {
		ev := zl.Warn()
		if obj, ok := warning.(zerolog.LogObjectMarshaler); ok {
			ev.EmbedObject(obj).Msg("warning")
			return
		}
		ev.Err(warning).Msg("warning")
	})
}

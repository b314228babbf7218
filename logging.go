package spin

import "github.com/rs/zerolog"

// defaultLogger is used by any Scheduler not given an explicit logger via
// WithLogger: structured logging is always on in the sense that the call
// sites exist, but silent by default the way zerolog.Nop() intends.
var defaultLogger = zerolog.Nop()

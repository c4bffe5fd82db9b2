// Package guard puts the odyssey binaries into test mode. Test packages that
// call a main function import it for side effects.
package guard

import "os"

// Env is the variable app.InTestMode reads.
const Env = "ODYSSEY_TEST_MODE"

func init() {
	if os.Getenv(Env) == "" {
		_ = os.Setenv(Env, "1")
	}
}

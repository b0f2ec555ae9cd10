package observe_test

import (
	"time"
)

const timeout = time.Second

func timeoutCh() <-chan time.Time {
	return time.After(timeout)
}

package operator

import (
	"time"
)

const timeout = time.Second

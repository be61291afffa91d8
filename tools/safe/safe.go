package safe

import (
	"SaChat/logger"
)

// Go starts a goroutine that recovers from panic, so a misbehaving
// push or notify path cannot crash the gateway process.
func Go(f func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("[safe.Go] panic recovered: %v", r)
			}
		}()
		f()
	}()
}

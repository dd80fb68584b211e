package safe

import (
	"SocialProject/logger"
)

// Go starts a new goroutine that recovers from panic,
// so that a bad sweep or relay callback doesn't crash the whole process.
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

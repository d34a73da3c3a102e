package logger

// Reset forgets the installed logger so each test can call Init again.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
}

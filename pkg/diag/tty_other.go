//go:build !linux && !darwin

package diag

func isTerminal(fd uintptr) bool {
	return false
}

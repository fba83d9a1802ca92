// Package netutil holds small helpers for the binaries that don't
// belong to a domain package. It currently holds only HumanBytes,
// used by the client binary.
package netutil

import "fmt"

const stepSize = 1000

var units = [...]string{"B", "KB", "MB", "GB", "TB", "PB"}

// HumanBytes renders n in decimal units, e.g. HumanBytes(1000) == "1.00 KB".
func HumanBytes(n int64) string {
	number := float64(n)

	var unit string
	for _, unit = range units {
		if number < stepSize {
			break
		}
		number /= stepSize
	}

	return fmt.Sprintf("%.2f %s", number, unit)
}
